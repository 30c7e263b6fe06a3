package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ikkim/cart-recovery-backend/internal/app/model"
	"github.com/ikkim/cart-recovery-backend/internal/app/repository"
	"github.com/ikkim/cart-recovery-backend/internal/db"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	carts    repository.AbandonedCartRepository
	live     repository.CartRepository
	products repository.ProductRepository
	builder  SnapshotBuilder
	clock    *fakeClock
	events   *recordingPublisher
	cache    *memoryCountCache
}

func setupFixture(t *testing.T) *fixture {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	live := repository.NewCartRepository(testDB)
	products := repository.NewProductRepository(testDB)
	return &fixture{
		db:       testDB,
		carts:    repository.NewAbandonedCartRepository(testDB),
		live:     live,
		products: products,
		builder:  NewSnapshotBuilder(live, products),
		clock:    &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		events:   &recordingPublisher{},
		cache:    &memoryCountCache{},
	}
}

func (f *fixture) captureService(opts ...CaptureOption) CaptureService {
	base := []CaptureOption{
		WithCaptureClock(f.clock.Now),
		WithCaptureEvents(f.events),
		WithCaptureCache(f.cache),
	}
	return NewCaptureService(f.db, f.carts, f.builder, append(base, opts...)...)
}

func (f *fixture) product(t *testing.T, name, price string) *model.Product {
	t.Helper()
	p := &model.Product{Name: name, Price: decimal.RequireFromString(price)}
	require.NoError(t, f.products.Create(context.Background(), p))
	return p
}

func (f *fixture) addToCart(t *testing.T, identity model.Identity, productID uint, qty int) {
	t.Helper()
	_, err := f.live.SetQuantity(context.Background(), identity, productID, qty)
	require.NoError(t, err)
}

// seedCart writes a row directly, bypassing the upsert engine.
func (f *fixture) seedCart(t *testing.T, identity model.Identity, status model.CartStatus, at time.Time) *model.AbandonedCart {
	t.Helper()
	customer, err := model.EncodeCustomerSnapshot(model.CustomerSnapshot{"billing_first_name": "Seed"})
	require.NoError(t, err)
	contents, err := model.EncodeCartSnapshot([]model.CartLine{{ProductID: 1, ProductName: "Widget", Quantity: 1, Price: 9.99}})
	require.NoError(t, err)
	cart := &model.AbandonedCart{
		SessionID:    identity.SessionID,
		UserID:       identity.UserID,
		CustomerData: customer,
		CartContents: contents,
		CheckoutTime: at,
		Status:       status,
	}
	require.NoError(t, f.db.Create(cart).Error)
	return cart
}

func (f *fixture) abandonedRows(t *testing.T, identity model.Identity) []model.AbandonedCart {
	t.Helper()
	var rows []model.AbandonedCart
	query := f.db.Where("status = ?", model.CartStatusAbandoned)
	if identity.IsUser() {
		query = query.Where("user_id = ?", identity.UserID)
	} else {
		query = query.Where("user_id = 0 AND session_id = ?", identity.SessionID)
	}
	require.NoError(t, query.Find(&rows).Error)
	return rows
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []CartEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event CartEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

type memoryCountCache struct {
	mu          sync.Mutex
	value       int64
	set         bool
	invalidated int
}

func (c *memoryCountCache) Get(context.Context) (int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.set, nil
}

func (c *memoryCountCache) Set(_ context.Context, count int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value, c.set = count, true
	return nil
}

func (c *memoryCountCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set = false
	c.invalidated++
	return nil
}

func (c *memoryCountCache) Invalidations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invalidated
}
