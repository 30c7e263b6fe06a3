package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureBroadcaster struct {
	payloads [][]byte
}

func (b *captureBroadcaster) Broadcast(payload []byte) {
	b.payloads = append(b.payloads, payload)
}

type fixedCounter struct {
	count int64
	err   error
}

func (c fixedCounter) CountUnviewed(context.Context) (int64, error) {
	return c.count, c.err
}

func TestLiveFeedPublisher_StampsUnviewedCount(t *testing.T) {
	hub := &captureBroadcaster{}
	publisher := NewLiveFeedPublisher(hub, fixedCounter{count: 4})

	publisher.Publish(context.Background(), CartEvent{Type: EventCartCaptured, CartID: 12, Outcome: "inserted"})

	require.Len(t, hub.payloads, 1)
	var event CartEvent
	require.NoError(t, json.Unmarshal(hub.payloads[0], &event))
	assert.Equal(t, EventCartCaptured, event.Type)
	assert.Equal(t, uint(12), event.CartID)
	assert.Equal(t, int64(4), event.Unviewed)
	assert.False(t, event.At.IsZero())
}

func TestLiveFeedPublisher_CounterFailureStillPublishes(t *testing.T) {
	hub := &captureBroadcaster{}
	publisher := NewLiveFeedPublisher(hub, fixedCounter{err: errors.New("db down")})

	publisher.Publish(context.Background(), CartEvent{Type: EventCartsCleaned, Deleted: 3})

	require.Len(t, hub.payloads, 1)
	assert.Contains(t, string(hub.payloads[0]), `"deleted":3`)
}

func TestLiveFeedPublisher_NilHub(t *testing.T) {
	assert.NotPanics(t, func() {
		NewLiveFeedPublisher(nil, nil).Publish(context.Background(), CartEvent{Type: EventCartCompleted})
	})
}
