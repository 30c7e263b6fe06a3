package repository

import (
	"context"
	"testing"

	"github.com/ikkim/cart-recovery-backend/internal/app/model"
	"github.com/ikkim/cart-recovery-backend/internal/db"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductRepository_CreateAndFind(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	defer db.CleanupTestDB(testDB)

	repo := NewProductRepository(testDB)
	ctx := context.Background()

	product := &model.Product{Name: "Widget", Price: decimal.RequireFromString("19.90")}
	require.NoError(t, repo.Create(ctx, product))
	assert.NotZero(t, product.ID)

	found, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Widget", found.Name)
	assert.True(t, found.Price.Equal(decimal.RequireFromString("19.9")))
}

func TestProductRepository_FindByIDs(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	defer db.CleanupTestDB(testDB)

	repo := NewProductRepository(testDB)
	ctx := context.Background()

	a := &model.Product{Name: "A", Price: decimal.NewFromInt(1)}
	b := &model.Product{Name: "B", Price: decimal.NewFromInt(2)}
	gone := &model.Product{Name: "Gone", Price: decimal.NewFromInt(3)}
	for _, p := range []*model.Product{a, b, gone} {
		require.NoError(t, repo.Create(ctx, p))
	}
	require.NoError(t, repo.Delete(ctx, gone.ID))

	found, err := repo.FindByIDs(ctx, []uint{a.ID, b.ID, gone.ID, 9999})
	require.NoError(t, err)
	assert.Len(t, found, 2)
	assert.Equal(t, "A", found[a.ID].Name)
	assert.Equal(t, "B", found[b.ID].Name)
	_, ok := found[gone.ID]
	assert.False(t, ok)

	empty, err := repo.FindByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestProductRepository_BulkCreate(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	defer db.CleanupTestDB(testDB)

	repo := NewProductRepository(testDB)
	ctx := context.Background()

	require.NoError(t, repo.BulkCreate(ctx, nil, 10))

	products := []model.Product{
		{Name: "A", Price: decimal.NewFromInt(1)},
		{Name: "B", Price: decimal.NewFromInt(2)},
		{Name: "C", Price: decimal.NewFromInt(3)},
	}
	require.NoError(t, repo.BulkCreate(ctx, products, 2))

	var count int64
	require.NoError(t, testDB.Model(&model.Product{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}
