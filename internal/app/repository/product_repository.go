package repository

import (
	"context"

	"github.com/ikkim/cart-recovery-backend/internal/app/model"
	"github.com/ikkim/cart-recovery-backend/pkg/logger"
	"gorm.io/gorm"
)

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	BulkCreate(ctx context.Context, products []model.Product, batchSize int) error
	FindByID(ctx context.Context, id uint) (*model.Product, error)
	FindByIDs(ctx context.Context, ids []uint) (map[uint]model.Product, error)
	Delete(ctx context.Context, id uint) error
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	logger.Debug("Creating product in database", map[string]interface{}{
		"name":  product.Name,
		"price": product.Price.String(),
	})

	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		logger.Error("Failed to create product in database", err, map[string]interface{}{
			"name": product.Name,
		})
		return err
	}
	return nil
}

// BulkCreate inserts products in batches of batchSize.
func (r *productRepository) BulkCreate(ctx context.Context, products []model.Product, batchSize int) error {
	if len(products) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 500
	}

	logger.Info("Bulk creating products in database", map[string]interface{}{
		"count":      len(products),
		"batch_size": batchSize,
	})

	if err := r.db.WithContext(ctx).CreateInBatches(products, batchSize).Error; err != nil {
		logger.Error("Failed to bulk create products in database", err, map[string]interface{}{
			"count": len(products),
		})
		return err
	}
	return nil
}

func (r *productRepository) FindByID(ctx context.Context, id uint) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).First(&product, id).Error; err != nil {
		logger.Debug("Product not resolved", map[string]interface{}{
			"product_id": id,
			"error":      err.Error(),
		})
		return nil, err
	}
	return &product, nil
}

// FindByIDs resolves a batch of products; soft-deleted or unknown ids are
// simply absent from the result.
func (r *productRepository) FindByIDs(ctx context.Context, ids []uint) (map[uint]model.Product, error) {
	found := make(map[uint]model.Product, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	var products []model.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		logger.Error("Failed to resolve products in database", err, map[string]interface{}{
			"product_ids": ids,
		})
		return nil, err
	}
	for _, p := range products {
		found[p.ID] = p
	}

	logger.Debug("Products resolved in database", map[string]interface{}{
		"requested": len(ids),
		"resolved":  len(found),
	})
	return found, nil
}

func (r *productRepository) Delete(ctx context.Context, id uint) error {
	logger.Debug("Deleting product from database", map[string]interface{}{
		"product_id": id,
	})

	if err := r.db.WithContext(ctx).Delete(&model.Product{}, id).Error; err != nil {
		logger.Error("Failed to delete product from database", err, map[string]interface{}{
			"product_id": id,
		})
		return err
	}
	return nil
}
