package repository

import (
	"context"
	"errors"

	"github.com/ikkim/cart-recovery-backend/internal/app/model"
	"github.com/ikkim/cart-recovery-backend/pkg/logger"
	"gorm.io/gorm"
)

// CartRepository stores the live storefront cart, keyed by identity.
type CartRepository interface {
	FindByIdentity(ctx context.Context, identity model.Identity) ([]model.CartItem, error)
	SetQuantity(ctx context.Context, identity model.Identity, productID uint, quantity int) (*model.CartItem, error)
	DeleteProduct(ctx context.Context, identity model.Identity, productID uint) error
	DeleteByIdentity(ctx context.Context, identity model.Identity) error
}

type cartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

func ownerScope(identity model.Identity) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if identity.IsUser() {
			return db.Where("user_id = ?", identity.UserID)
		}
		return db.Where("user_id = 0 AND session_id = ?", identity.SessionID)
	}
}

func (r *cartRepository) FindByIdentity(ctx context.Context, identity model.Identity) ([]model.CartItem, error) {
	logger.Debug("Finding cart items by identity in database", identity.LogFields())

	var cartItems []model.CartItem
	if identity.IsEmpty() {
		return cartItems, nil
	}
	err := r.db.WithContext(ctx).
		Scopes(ownerScope(identity)).
		Order("id ASC").
		Find(&cartItems).Error
	if err != nil {
		logger.Error("Failed to find cart items by identity in database", err, identity.LogFields())
		return nil, err
	}

	logger.Debug("Cart items found by identity in database", map[string]interface{}{
		"identity": identity.String(),
		"count":    len(cartItems),
	})
	return cartItems, nil
}

// SetQuantity inserts the line or overwrites its quantity.
func (r *cartRepository) SetQuantity(ctx context.Context, identity model.Identity, productID uint, quantity int) (*model.CartItem, error) {
	logger.Debug("Setting cart item quantity in database", map[string]interface{}{
		"identity":   identity.String(),
		"product_id": productID,
		"quantity":   quantity,
	})

	var item model.CartItem
	err := r.db.WithContext(ctx).
		Scopes(ownerScope(identity)).
		Where("product_id = ?", productID).
		First(&item).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		item = model.CartItem{
			SessionID: identity.SessionID,
			UserID:    identity.UserID,
			ProductID: productID,
			Quantity:  quantity,
		}
		err = r.db.WithContext(ctx).Create(&item).Error
	case err == nil:
		item.Quantity = quantity
		err = r.db.WithContext(ctx).Save(&item).Error
	}
	if err != nil {
		logger.Error("Failed to set cart item quantity in database", err, map[string]interface{}{
			"identity":   identity.String(),
			"product_id": productID,
		})
		return nil, err
	}
	return &item, nil
}

func (r *cartRepository) DeleteProduct(ctx context.Context, identity model.Identity, productID uint) error {
	err := r.db.WithContext(ctx).
		Scopes(ownerScope(identity)).
		Where("product_id = ?", productID).
		Delete(&model.CartItem{}).Error
	if err != nil {
		logger.Error("Failed to delete cart item from database", err, map[string]interface{}{
			"identity":   identity.String(),
			"product_id": productID,
		})
		return err
	}
	return nil
}

func (r *cartRepository) DeleteByIdentity(ctx context.Context, identity model.Identity) error {
	if identity.IsEmpty() {
		return nil
	}
	if err := r.db.WithContext(ctx).Scopes(ownerScope(identity)).Delete(&model.CartItem{}).Error; err != nil {
		logger.Error("Failed to clear cart items in database", err, identity.LogFields())
		return err
	}
	return nil
}
