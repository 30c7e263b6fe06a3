package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/ikkim/cart-recovery-backend/internal/app/model"
	"github.com/ikkim/cart-recovery-backend/internal/app/repository"
	"github.com/ikkim/cart-recovery-backend/pkg/logger"
	"github.com/ikkim/cart-recovery-backend/pkg/metrics"
)

var ErrInvalidRetention = errors.New("retention age must be a positive number of days")

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type RetentionService interface {
	// Cleanup deletes abandoned carts older than maxAgeDays and returns how
	// many went. Invalid ages and storage failures yield 0.
	Cleanup(ctx context.Context, maxAgeDays int) int64
	// RunCleanup is Cleanup with the failure reported, for callers that
	// track job outcomes.
	RunCleanup(ctx context.Context, maxAgeDays int) (int64, error)
}

// CartArchiver stores expiring carts before they are deleted.
type CartArchiver interface {
	Archive(ctx context.Context, carts []model.AbandonedCart, cutoff time.Time) (string, error)
}

// ObjectStore uploads archive objects.
type ObjectStore interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

type RetentionOption func(*retentionService)

func WithArchiver(archiver CartArchiver) RetentionOption {
	return func(s *retentionService) { s.archiver = archiver }
}

func WithRetentionEvents(publisher CartEventPublisher) RetentionOption {
	return func(s *retentionService) { s.events = publisher }
}

func WithRetentionCache(cache UnviewedCountCache) RetentionOption {
	return func(s *retentionService) { s.cache = cache }
}

func WithRetentionMetrics(m *metrics.CaptureMetrics) RetentionOption {
	return func(s *retentionService) { s.metrics = m }
}

func WithRetentionClock(now func() time.Time) RetentionOption {
	return func(s *retentionService) {
		if now != nil {
			s.now = now
		}
	}
}

type retentionService struct {
	carts    repository.AbandonedCartRepository
	archiver CartArchiver
	events   CartEventPublisher
	cache    UnviewedCountCache
	metrics  *metrics.CaptureMetrics
	now      func() time.Time
}

func NewRetentionService(carts repository.AbandonedCartRepository, opts ...RetentionOption) RetentionService {
	s := &retentionService{
		carts: carts,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *retentionService) Cleanup(ctx context.Context, maxAgeDays int) int64 {
	deleted, _ := s.RunCleanup(ctx, maxAgeDays)
	return deleted
}

func (s *retentionService) RunCleanup(ctx context.Context, maxAgeDays int) (int64, error) {
	if maxAgeDays <= 0 {
		logger.Warn("Cleanup skipped: invalid retention age", map[string]interface{}{
			"days":  maxAgeDays,
			"error": ErrInvalidRetention.Error(),
		})
		return 0, ErrInvalidRetention
	}

	cutoff := s.now().AddDate(0, 0, -maxAgeDays)
	logger.Info("Cleaning up abandoned carts", map[string]interface{}{
		"days":   maxAgeDays,
		"cutoff": cutoff,
	})

	if s.archiver != nil {
		expiring, err := s.carts.FindAbandonedBefore(ctx, cutoff)
		if err != nil {
			logger.Error("Cleanup aborted: failed to load expiring carts", err, map[string]interface{}{
				"operation": "cleanup",
				"cutoff":    cutoff,
			})
			s.metrics.IncFailure("cleanup")
			return 0, fmt.Errorf("load expiring carts: %w", err)
		}
		if len(expiring) == 0 {
			logger.Info("No abandoned carts past retention", map[string]interface{}{
				"cutoff": cutoff,
			})
			return 0, nil
		}
		location, err := s.archiver.Archive(ctx, expiring, cutoff)
		if err != nil {
			logger.Error("Cleanup aborted: archive failed", err, map[string]interface{}{
				"operation": "archive",
				"carts":     len(expiring),
			})
			s.metrics.IncFailure("archive")
			return 0, fmt.Errorf("archive expiring carts: %w", err)
		}
		logger.Info("Expiring abandoned carts archived", map[string]interface{}{
			"carts":    len(expiring),
			"location": location,
		})
	}

	deleted, err := s.carts.DeleteAbandonedBefore(ctx, cutoff)
	if err != nil {
		logger.Error("Cleanup failed", err, map[string]interface{}{
			"operation": "cleanup",
			"cutoff":    cutoff,
		})
		s.metrics.IncFailure("cleanup")
		return 0, fmt.Errorf("delete expired carts: %w", err)
	}

	logger.Info("Abandoned carts cleaned up", map[string]interface{}{
		"days":    maxAgeDays,
		"deleted": deleted,
	})
	s.metrics.AddDeleted(deleted)
	if deleted > 0 {
		invalidateUnviewed(ctx, s.cache)
		publish(ctx, s.events, CartEvent{Type: EventCartsCleaned, Deleted: deleted, At: s.now()})
	}
	return deleted, nil
}

type workbookArchiver struct {
	store  ObjectStore
	prefix string
}

// NewWorkbookArchiver writes expiring carts to an XLSX workbook under prefix
// in store.
func NewWorkbookArchiver(store ObjectStore, prefix string) CartArchiver {
	return &workbookArchiver{store: store, prefix: prefix}
}

func (a *workbookArchiver) Archive(ctx context.Context, carts []model.AbandonedCart, cutoff time.Time) (string, error) {
	body, err := renderCartWorkbook(carts, DefaultExportColumns)
	if err != nil {
		return "", fmt.Errorf("render archive workbook: %w", err)
	}
	key := path.Join(a.prefix, fmt.Sprintf("%s-%s.xlsx", cutoff.UTC().Format("20060102"), uuid.NewString()))
	location, err := a.store.Upload(ctx, key, body, xlsxContentType)
	if err != nil {
		return "", fmt.Errorf("upload archive workbook: %w", err)
	}
	return location, nil
}
