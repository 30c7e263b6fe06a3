package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ikkim/cart-recovery-backend/pkg/logger"
)

const (
	EventCartCaptured  = "cart_captured"
	EventCartCompleted = "cart_completed"
	EventCartsCleaned  = "carts_cleaned"
	EventCartViewed    = "cart_viewed"
)

// CartEvent is pushed to the admin live feed.
type CartEvent struct {
	Type     string    `json:"type"`
	CartID   uint      `json:"cart_id,omitempty"`
	Outcome  string    `json:"outcome,omitempty"`
	Deleted  int64     `json:"deleted,omitempty"`
	Unviewed int64     `json:"unviewed"`
	At       time.Time `json:"at"`
}

// CartEventPublisher receives lifecycle events. Publishing never fails the
// operation that raised the event.
type CartEventPublisher interface {
	Publish(ctx context.Context, event CartEvent)
}

// UnviewedCountCache caches the admin badge count.
type UnviewedCountCache interface {
	Get(ctx context.Context) (int64, bool, error)
	Set(ctx context.Context, count int64) error
	Invalidate(ctx context.Context) error
}

// Broadcaster fans a payload out to every connected admin.
type Broadcaster interface {
	Broadcast(payload []byte)
}

type UnviewedCounter interface {
	CountUnviewed(ctx context.Context) (int64, error)
}

type liveFeedPublisher struct {
	hub     Broadcaster
	counter UnviewedCounter
}

// NewLiveFeedPublisher stamps every event with the current unviewed count
// and hands it to the hub as JSON.
func NewLiveFeedPublisher(hub Broadcaster, counter UnviewedCounter) CartEventPublisher {
	return &liveFeedPublisher{hub: hub, counter: counter}
}

func (p *liveFeedPublisher) Publish(ctx context.Context, event CartEvent) {
	if p.hub == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	if p.counter != nil {
		count, err := p.counter.CountUnviewed(ctx)
		if err != nil {
			logger.Warn("Live feed event sent without unviewed count", map[string]interface{}{
				"type":  event.Type,
				"error": err.Error(),
			})
		} else {
			event.Unviewed = count
		}
	}

	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal live feed event", err, map[string]interface{}{
			"type": event.Type,
		})
		return
	}
	p.hub.Broadcast(payload)
}

func publish(ctx context.Context, publisher CartEventPublisher, event CartEvent) {
	if publisher == nil {
		return
	}
	publisher.Publish(ctx, event)
}

func invalidateUnviewed(ctx context.Context, cache UnviewedCountCache) {
	if cache == nil {
		return
	}
	if err := cache.Invalidate(ctx); err != nil {
		logger.Warn("Failed to invalidate unviewed count cache", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
