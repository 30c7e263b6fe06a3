package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ikkim/cart-recovery-backend/internal/app/model"
	"github.com/ikkim/cart-recovery-backend/internal/app/repository"
	"github.com/ikkim/cart-recovery-backend/pkg/logger"
	"github.com/ikkim/cart-recovery-backend/pkg/metrics"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrCaptureFailed    = errors.New("abandoned cart capture failed")
	ErrCompletionFailed = errors.New("abandoned cart completion failed")
)

type UpsertOutcome string

const (
	OutcomeInserted UpsertOutcome = "inserted"
	OutcomeUpdated  UpsertOutcome = "updated"
	OutcomeSkipped  UpsertOutcome = "skipped"
)

const (
	SkipReasonNoIdentity = "no user or session identity"
	SkipReasonEmptyCart  = "cart is empty"
)

// CaptureSource names the path a capture arrived on.
type CaptureSource string

const (
	SourceAjax     CaptureSource = "ajax"
	SourceCheckout CaptureSource = "checkout"
)

type UpsertResult struct {
	Outcome UpsertOutcome `json:"outcome"`
	CartID  uint          `json:"id,omitempty"`
	Reason  string        `json:"reason,omitempty"`
}

type CompletionResult struct {
	Matched bool  `json:"matched"`
	Rows    int64 `json:"rows"`
}

type CaptureService interface {
	// Capture builds both snapshots for identity and upserts them.
	Capture(ctx context.Context, source CaptureSource, identity model.Identity, fields map[string]string) (*UpsertResult, error)
	Upsert(ctx context.Context, identity model.Identity, customer model.CustomerSnapshot, cart []model.CartLine) (*UpsertResult, error)
	Complete(ctx context.Context, identity model.Identity) (*CompletionResult, error)
}

type CaptureOption func(*captureService)

func WithCaptureEvents(publisher CartEventPublisher) CaptureOption {
	return func(s *captureService) { s.events = publisher }
}

func WithCaptureCache(cache UnviewedCountCache) CaptureOption {
	return func(s *captureService) { s.cache = cache }
}

func WithCaptureMetrics(m *metrics.CaptureMetrics) CaptureOption {
	return func(s *captureService) { s.metrics = m }
}

func WithCaptureClock(now func() time.Time) CaptureOption {
	return func(s *captureService) {
		if now != nil {
			s.now = now
		}
	}
}

type captureService struct {
	db      *gorm.DB
	carts   repository.AbandonedCartRepository
	builder SnapshotBuilder
	events  CartEventPublisher
	cache   UnviewedCountCache
	metrics *metrics.CaptureMetrics
	now     func() time.Time
}

func NewCaptureService(
	db *gorm.DB,
	carts repository.AbandonedCartRepository,
	builder SnapshotBuilder,
	opts ...CaptureOption,
) CaptureService {
	s := &captureService{
		db:      db,
		carts:   carts,
		builder: builder,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *captureService) Capture(ctx context.Context, source CaptureSource, identity model.Identity, fields map[string]string) (*UpsertResult, error) {
	logger.Debug("Capturing checkout", map[string]interface{}{
		"source":   string(source),
		"identity": identity.String(),
		"fields":   len(fields),
	})

	if identity.IsEmpty() {
		s.metrics.IncCapture(string(source), string(OutcomeSkipped))
		return skipped(SkipReasonNoIdentity), nil
	}

	customer := s.builder.BuildCustomerSnapshot(fields)
	lines, err := s.builder.BuildCartSnapshot(ctx, identity)
	if err != nil {
		s.metrics.IncFailure("snapshot")
		return nil, fmt.Errorf("%w: build cart snapshot: %v", ErrCaptureFailed, err)
	}

	result, err := s.Upsert(ctx, identity, customer, lines)
	if err != nil {
		return nil, err
	}
	s.metrics.IncCapture(string(source), string(result.Outcome))
	return result, nil
}

func (s *captureService) Upsert(ctx context.Context, identity model.Identity, customer model.CustomerSnapshot, cart []model.CartLine) (*UpsertResult, error) {
	if identity.IsEmpty() {
		logger.Debug("Upsert skipped: no identity", nil)
		return skipped(SkipReasonNoIdentity), nil
	}
	if len(cart) == 0 {
		logger.Debug("Upsert skipped: empty cart", identity.LogFields())
		return skipped(SkipReasonEmptyCart), nil
	}

	customerJSON, err := model.EncodeCustomerSnapshot(customer)
	if err != nil {
		return nil, fmt.Errorf("%w: encode customer snapshot: %v", ErrCaptureFailed, err)
	}
	contentsJSON, err := model.EncodeCartSnapshot(cart)
	if err != nil {
		return nil, fmt.Errorf("%w: encode cart snapshot: %v", ErrCaptureFailed, err)
	}

	at := s.now()
	result, err := s.upsertOnce(ctx, identity, customerJSON, contentsJSON, at)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Another request inserted the active row between our lookup and
		// insert. Its transaction is committed, so resolving again finds it.
		logger.Warn("Concurrent abandoned cart insert detected, retrying as update", identity.LogFields())
		result, err = s.upsertOnce(ctx, identity, customerJSON, contentsJSON, at)
	}
	if err != nil {
		fields := identity.LogFields()
		fields["operation"] = "upsert"
		if result != nil {
			fields["cart_id"] = result.CartID
		}
		logger.Error("Abandoned cart upsert failed", err, fields)
		s.metrics.IncFailure("upsert")
		return nil, fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}

	logger.Info("Abandoned cart captured", map[string]interface{}{
		"identity": identity.String(),
		"cart_id":  result.CartID,
		"outcome":  string(result.Outcome),
		"lines":    len(cart),
	})

	if result.Outcome == OutcomeInserted {
		invalidateUnviewed(ctx, s.cache)
	}
	publish(ctx, s.events, CartEvent{
		Type:    EventCartCaptured,
		CartID:  result.CartID,
		Outcome: string(result.Outcome),
		At:      at,
	})
	return result, nil
}

// upsertOnce resolves and writes inside one transaction. On failure the
// returned result still carries the resolved id, if any, for logging.
func (s *captureService) upsertOnce(ctx context.Context, identity model.Identity, customer, contents datatypes.JSON, at time.Time) (*UpsertResult, error) {
	result := &UpsertResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.carts.WithTx(tx)

		id, found, err := repo.FindActiveID(ctx, identity)
		if err != nil {
			return err
		}
		if found {
			result.Outcome = OutcomeUpdated
			result.CartID = id
			return repo.UpdateSnapshot(ctx, id, customer, contents, at)
		}

		cart := &model.AbandonedCart{
			SessionID:    identity.OwnerSessionID(),
			UserID:       identity.UserID,
			CustomerData: customer,
			CartContents: contents,
			CheckoutTime: at,
			Status:       model.CartStatusAbandoned,
			IsViewed:     false,
		}
		if err := repo.Create(ctx, cart); err != nil {
			return err
		}
		result.Outcome = OutcomeInserted
		result.CartID = cart.ID
		return nil
	})
	return result, err
}

func (s *captureService) Complete(ctx context.Context, identity model.Identity) (*CompletionResult, error) {
	if identity.IsEmpty() {
		logger.Debug("Completion skipped: no identity", nil)
		s.metrics.IncCompletion(false)
		return &CompletionResult{}, nil
	}

	rows, err := s.carts.MarkCompleted(ctx, identity)
	if err != nil {
		fields := identity.LogFields()
		fields["operation"] = "complete"
		logger.Error("Abandoned cart completion failed", err, fields)
		s.metrics.IncFailure("complete")
		return nil, fmt.Errorf("%w: %v", ErrCompletionFailed, err)
	}

	result := &CompletionResult{Matched: rows > 0, Rows: rows}
	s.metrics.IncCompletion(result.Matched)
	if !result.Matched {
		logger.Debug("No abandoned cart to complete", identity.LogFields())
		return result, nil
	}

	logger.Info("Abandoned cart completed", map[string]interface{}{
		"identity": identity.String(),
		"rows":     rows,
	})
	invalidateUnviewed(ctx, s.cache)
	publish(ctx, s.events, CartEvent{Type: EventCartCompleted, At: s.now()})
	return result, nil
}

func skipped(reason string) *UpsertResult {
	return &UpsertResult{Outcome: OutcomeSkipped, Reason: reason}
}
