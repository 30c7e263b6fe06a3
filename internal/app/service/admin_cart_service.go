package service

import (
	"context"
	"errors"
	"time"

	"github.com/ikkim/cart-recovery-backend/internal/app/model"
	"github.com/ikkim/cart-recovery-backend/internal/app/repository"
	"github.com/ikkim/cart-recovery-backend/pkg/logger"
	"gorm.io/gorm"
)

var ErrAbandonedCartNotFound = errors.New("abandoned cart not found")

// CartPage is one page of the admin list.
type CartPage struct {
	Items      []CartSummary `json:"items"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	PerPage    int           `json:"per_page"`
	TotalPages int           `json:"total_pages"`
}

type AdminCartService interface {
	List(ctx context.Context, filter repository.ListFilter) (*CartPage, error)
	// Get returns the detail view and marks the cart viewed on first access.
	Get(ctx context.Context, id uint) (*CartDetail, error)
	CountUnviewed(ctx context.Context) (int64, error)
	// Export renders every abandoned cart matching filter as an XLSX workbook.
	Export(ctx context.Context, filter repository.ListFilter) ([]byte, error)
}

type AdminOption func(*adminCartService)

func WithAdminCache(cache UnviewedCountCache) AdminOption {
	return func(s *adminCartService) { s.cache = cache }
}

func WithAdminEvents(publisher CartEventPublisher) AdminOption {
	return func(s *adminCartService) { s.events = publisher }
}

func WithAdminClock(now func() time.Time) AdminOption {
	return func(s *adminCartService) {
		if now != nil {
			s.now = now
		}
	}
}

type adminCartService struct {
	carts  repository.AbandonedCartRepository
	cache  UnviewedCountCache
	events CartEventPublisher
	now    func() time.Time
}

func NewAdminCartService(carts repository.AbandonedCartRepository, opts ...AdminOption) AdminCartService {
	s := &adminCartService{
		carts: carts,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *adminCartService) List(ctx context.Context, filter repository.ListFilter) (*CartPage, error) {
	filter = filter.Normalize()

	carts, total, err := s.carts.List(ctx, filter)
	if err != nil {
		logger.Error("Failed to list abandoned carts", err, map[string]interface{}{
			"search": filter.Search,
			"page":   filter.Page,
		})
		return nil, err
	}

	now := s.now()
	items := make([]CartSummary, 0, len(carts))
	for i := range carts {
		items = append(items, summarize(&carts[i], now))
	}

	totalPages := int((total + int64(filter.PerPage) - 1) / int64(filter.PerPage))
	return &CartPage{
		Items:      items,
		Total:      total,
		Page:       filter.Page,
		PerPage:    filter.PerPage,
		TotalPages: totalPages,
	}, nil
}

func (s *adminCartService) Get(ctx context.Context, id uint) (*CartDetail, error) {
	cart, err := s.carts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Abandoned cart not found", map[string]interface{}{
				"cart_id": id,
			})
			return nil, ErrAbandonedCartNotFound
		}
		return nil, err
	}

	if !cart.IsViewed {
		flipped, err := s.carts.MarkViewed(ctx, id)
		if err != nil {
			// Serve the detail anyway.
			logger.Warn("Failed to mark abandoned cart viewed", map[string]interface{}{
				"cart_id": id,
				"error":   err.Error(),
			})
		} else if flipped {
			invalidateUnviewed(ctx, s.cache)
			publish(ctx, s.events, CartEvent{Type: EventCartViewed, CartID: id, At: s.now()})
		}
	}

	return detail(cart, s.now()), nil
}

func (s *adminCartService) CountUnviewed(ctx context.Context) (int64, error) {
	if s.cache != nil {
		count, ok, err := s.cache.Get(ctx)
		if err != nil {
			logger.Warn("Unviewed count cache read failed", map[string]interface{}{
				"error": err.Error(),
			})
		} else if ok {
			return count, nil
		}
	}

	count, err := s.carts.CountUnviewed(ctx)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, count); err != nil {
			logger.Warn("Unviewed count cache write failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
	return count, nil
}

func (s *adminCartService) Export(ctx context.Context, filter repository.ListFilter) ([]byte, error) {
	filter.Page = 1
	filter.PerPage = repository.MaxPerPage
	filter = filter.Normalize()

	var all []model.AbandonedCart
	for {
		carts, total, err := s.carts.List(ctx, filter)
		if err != nil {
			logger.Error("Failed to load abandoned carts for export", err, map[string]interface{}{
				"page": filter.Page,
			})
			return nil, err
		}
		all = append(all, carts...)
		if len(carts) == 0 || int64(len(all)) >= total {
			break
		}
		filter.Page++
	}

	body, err := renderCartWorkbook(all, DefaultExportColumns)
	if err != nil {
		logger.Error("Failed to render abandoned cart export", err, map[string]interface{}{
			"carts": len(all),
		})
		return nil, err
	}

	logger.Info("Abandoned carts exported", map[string]interface{}{
		"carts": len(all),
		"bytes": len(body),
	})
	return body, nil
}
