package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ikkim/cart-recovery-backend/internal/app/model"
	"github.com/ikkim/cart-recovery-backend/pkg/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 200
)

// sortableColumns whitelists the admin list sort keys.
var sortableColumns = map[string]string{
	"checkout_time": "checkout_time",
	"status":        "status",
}

// ListFilter selects a page of abandoned carts for the admin list.
type ListFilter struct {
	Search  string
	OrderBy string
	Order   string
	Page    int
	PerPage int
}

// Normalize fills defaults and drops unknown sort keys.
func (f ListFilter) Normalize() ListFilter {
	if _, ok := sortableColumns[f.OrderBy]; !ok {
		f.OrderBy = "checkout_time"
	}
	f.Order = strings.ToLower(f.Order)
	if f.Order != "asc" && f.Order != "desc" {
		f.Order = "desc"
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage <= 0 {
		f.PerPage = DefaultPerPage
	}
	if f.PerPage > MaxPerPage {
		f.PerPage = MaxPerPage
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

type AbandonedCartRepository interface {
	WithTx(tx *gorm.DB) AbandonedCartRepository
	FindActiveID(ctx context.Context, identity model.Identity) (uint, bool, error)
	Create(ctx context.Context, cart *model.AbandonedCart) error
	UpdateSnapshot(ctx context.Context, id uint, customer, contents datatypes.JSON, at time.Time) error
	MarkCompleted(ctx context.Context, identity model.Identity) (int64, error)
	FindAbandonedBefore(ctx context.Context, cutoff time.Time) ([]model.AbandonedCart, error)
	DeleteAbandonedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	FindByID(ctx context.Context, id uint) (*model.AbandonedCart, error)
	MarkViewed(ctx context.Context, id uint) (bool, error)
	List(ctx context.Context, filter ListFilter) ([]model.AbandonedCart, int64, error)
	CountUnviewed(ctx context.Context) (int64, error)
}

type abandonedCartRepository struct {
	db *gorm.DB
}

func NewAbandonedCartRepository(db *gorm.DB) AbandonedCartRepository {
	return &abandonedCartRepository{db: db}
}

func (r *abandonedCartRepository) WithTx(tx *gorm.DB) AbandonedCartRepository {
	if tx == nil {
		return r
	}
	return &abandonedCartRepository{db: tx}
}

// identityScope narrows a query to the rows owned by identity, user first.
// Guest lookups never reach rows owned by a signed-in user, even when the
// browser session matches.
func identityScope(identity model.Identity) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if identity.IsUser() {
			return db.Where("user_id = ?", identity.UserID)
		}
		return db.Where("user_id = 0 AND session_id = ?", identity.SessionID)
	}
}

func (r *abandonedCartRepository) FindActiveID(ctx context.Context, identity model.Identity) (uint, bool, error) {
	if identity.IsEmpty() {
		return 0, false, nil
	}

	logger.Debug("Resolving active abandoned cart", identity.LogFields())

	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&model.AbandonedCart{}).
		Scopes(identityScope(identity)).
		Where("status = ?", model.CartStatusAbandoned).
		Order("id ASC").
		Limit(1).
		Pluck("id", &ids).Error
	if err != nil {
		logger.Error("Failed to resolve active abandoned cart", err, identity.LogFields())
		return 0, false, err
	}
	if len(ids) == 0 {
		return 0, false, nil
	}

	logger.Debug("Active abandoned cart resolved", map[string]interface{}{
		"cart_id":  ids[0],
		"identity": identity.String(),
	})
	return ids[0], true, nil
}

func (r *abandonedCartRepository) Create(ctx context.Context, cart *model.AbandonedCart) error {
	logger.Debug("Creating abandoned cart in database", cart.Identity().LogFields())

	if err := r.db.WithContext(ctx).Create(cart).Error; err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			logger.Error("Failed to create abandoned cart in database", err, cart.Identity().LogFields())
		}
		return err
	}

	logger.Debug("Abandoned cart created in database", map[string]interface{}{
		"cart_id":  cart.ID,
		"identity": cart.Identity().String(),
	})
	return nil
}

func (r *abandonedCartRepository) UpdateSnapshot(ctx context.Context, id uint, customer, contents datatypes.JSON, at time.Time) error {
	logger.Debug("Updating abandoned cart snapshot in database", map[string]interface{}{
		"cart_id": id,
	})

	err := r.db.WithContext(ctx).
		Model(&model.AbandonedCart{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"customer_data": customer,
			"cart_contents": contents,
			"checkout_time": at,
		}).Error
	if err != nil {
		logger.Error("Failed to update abandoned cart snapshot in database", err, map[string]interface{}{
			"cart_id": id,
		})
		return err
	}

	logger.Debug("Abandoned cart snapshot updated in database", map[string]interface{}{
		"cart_id": id,
	})
	return nil
}

func (r *abandonedCartRepository) MarkCompleted(ctx context.Context, identity model.Identity) (int64, error) {
	if identity.IsEmpty() {
		return 0, nil
	}

	logger.Debug("Marking abandoned cart completed in database", identity.LogFields())

	result := r.db.WithContext(ctx).
		Model(&model.AbandonedCart{}).
		Scopes(identityScope(identity)).
		Where("status = ?", model.CartStatusAbandoned).
		Update("status", model.CartStatusCompleted)
	if result.Error != nil {
		logger.Error("Failed to mark abandoned cart completed in database", result.Error, identity.LogFields())
		return 0, result.Error
	}

	logger.Debug("Abandoned cart completion applied in database", map[string]interface{}{
		"identity": identity.String(),
		"rows":     result.RowsAffected,
	})
	return result.RowsAffected, nil
}

func (r *abandonedCartRepository) FindAbandonedBefore(ctx context.Context, cutoff time.Time) ([]model.AbandonedCart, error) {
	var carts []model.AbandonedCart
	err := r.db.WithContext(ctx).
		Where("status = ? AND checkout_time < ?", model.CartStatusAbandoned, cutoff).
		Order("id ASC").
		Find(&carts).Error
	if err != nil {
		logger.Error("Failed to find expiring abandoned carts in database", err, map[string]interface{}{
			"cutoff": cutoff,
		})
		return nil, err
	}
	return carts, nil
}

func (r *abandonedCartRepository) DeleteAbandonedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	logger.Debug("Deleting expired abandoned carts from database", map[string]interface{}{
		"cutoff": cutoff,
	})

	result := r.db.WithContext(ctx).
		Where("status = ? AND checkout_time < ?", model.CartStatusAbandoned, cutoff).
		Delete(&model.AbandonedCart{})
	if result.Error != nil {
		logger.Error("Failed to delete expired abandoned carts from database", result.Error, map[string]interface{}{
			"cutoff": cutoff,
		})
		return 0, result.Error
	}

	logger.Debug("Expired abandoned carts deleted from database", map[string]interface{}{
		"cutoff": cutoff,
		"rows":   result.RowsAffected,
	})
	return result.RowsAffected, nil
}

func (r *abandonedCartRepository) FindByID(ctx context.Context, id uint) (*model.AbandonedCart, error) {
	logger.Debug("Finding abandoned cart by ID in database", map[string]interface{}{
		"cart_id": id,
	})

	var cart model.AbandonedCart
	if err := r.db.WithContext(ctx).First(&cart, id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find abandoned cart by ID in database", err, map[string]interface{}{
				"cart_id": id,
			})
		}
		return nil, err
	}
	return &cart, nil
}

// MarkViewed flips is_viewed once; it reports whether this call did the flip.
func (r *abandonedCartRepository) MarkViewed(ctx context.Context, id uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.AbandonedCart{}).
		Where("id = ? AND is_viewed = ?", id, false).
		Update("is_viewed", true)
	if result.Error != nil {
		logger.Error("Failed to mark abandoned cart viewed in database", result.Error, map[string]interface{}{
			"cart_id": id,
		})
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *abandonedCartRepository) List(ctx context.Context, filter ListFilter) ([]model.AbandonedCart, int64, error) {
	filter = filter.Normalize()

	logger.Debug("Listing abandoned carts from database", map[string]interface{}{
		"search":   filter.Search,
		"order_by": filter.OrderBy,
		"order":    filter.Order,
		"page":     filter.Page,
		"per_page": filter.PerPage,
	})

	query := r.db.WithContext(ctx).
		Model(&model.AbandonedCart{}).
		Where("status = ?", model.CartStatusAbandoned)
	if filter.Search != "" {
		pattern := "%" + escapeLike(filter.Search) + "%"
		query = query.Where(`(customer_data LIKE ? ESCAPE '\' OR cart_contents LIKE ? ESCAPE '\')`, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.Error("Failed to count abandoned carts in database", err)
		return nil, 0, err
	}

	var carts []model.AbandonedCart
	err := applyPagination(query, filter.Page, filter.PerPage).
		Order(sortableColumns[filter.OrderBy] + " " + filter.Order).
		Order("id " + filter.Order).
		Find(&carts).Error
	if err != nil {
		logger.Error("Failed to list abandoned carts from database", err)
		return nil, 0, err
	}

	return carts, total, nil
}

func (r *abandonedCartRepository) CountUnviewed(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.AbandonedCart{}).
		Where("status = ? AND is_viewed = ?", model.CartStatusAbandoned, false).
		Count(&count).Error
	if err != nil {
		logger.Error("Failed to count unviewed abandoned carts in database", err)
		return 0, err
	}
	return count, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
