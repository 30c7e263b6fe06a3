package service

import (
	"context"
	"errors"

	"github.com/ikkim/cart-recovery-backend/internal/app/model"
	"github.com/ikkim/cart-recovery-backend/internal/app/repository"
	"github.com/ikkim/cart-recovery-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrInvalidQuantity  = errors.New("quantity must be positive")
	ErrIdentityRequired = errors.New("user or session identity required")
)

// CartService manages the live storefront cart that captures snapshot.
type CartService interface {
	GetCart(ctx context.Context, identity model.Identity) ([]model.CartLine, error)
	SetItem(ctx context.Context, identity model.Identity, productID uint, quantity int) error
	RemoveItem(ctx context.Context, identity model.Identity, productID uint) error
	ClearCart(ctx context.Context, identity model.Identity) error
}

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	builder     SnapshotBuilder
}

func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		builder:     NewSnapshotBuilder(cartRepo, productRepo),
	}
}

// GetCart returns the resolved cart lines, the same view a capture stores.
func (s *cartService) GetCart(ctx context.Context, identity model.Identity) ([]model.CartLine, error) {
	logger.Debug("Fetching live cart", identity.LogFields())

	lines, err := s.builder.BuildCartSnapshot(ctx, identity)
	if err != nil {
		logger.Error("Failed to fetch live cart", err, identity.LogFields())
		return nil, err
	}

	logger.Info("Live cart fetched successfully", map[string]interface{}{
		"identity": identity.String(),
		"count":    len(lines),
	})
	return lines, nil
}

func (s *cartService) SetItem(ctx context.Context, identity model.Identity, productID uint, quantity int) error {
	logger.Info("Setting live cart item", map[string]interface{}{
		"identity":   identity.String(),
		"product_id": productID,
		"quantity":   quantity,
	})

	if identity.IsEmpty() {
		return ErrIdentityRequired
	}
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	if _, err := s.productRepo.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Cannot add to cart: product not found", map[string]interface{}{
				"identity":   identity.String(),
				"product_id": productID,
			})
			return ErrProductNotFound
		}
		logger.Error("Failed to fetch product", err, map[string]interface{}{
			"product_id": productID,
		})
		return err
	}

	if _, err := s.cartRepo.SetQuantity(ctx, identity, productID, quantity); err != nil {
		return err
	}
	return nil
}

func (s *cartService) RemoveItem(ctx context.Context, identity model.Identity, productID uint) error {
	logger.Info("Removing live cart item", map[string]interface{}{
		"identity":   identity.String(),
		"product_id": productID,
	})

	if identity.IsEmpty() {
		return ErrIdentityRequired
	}
	return s.cartRepo.DeleteProduct(ctx, identity, productID)
}

func (s *cartService) ClearCart(ctx context.Context, identity model.Identity) error {
	logger.Info("Clearing live cart", identity.LogFields())

	if identity.IsEmpty() {
		return ErrIdentityRequired
	}
	return s.cartRepo.DeleteByIdentity(ctx, identity)
}
