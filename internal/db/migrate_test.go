package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupTestDB_CreatesTablesAndIndexes(t *testing.T) {
	testDB, err := SetupTestDB()
	require.NoError(t, err)
	defer CleanupTestDB(testDB)

	for _, table := range []string{"abandoned_carts", "cart_items", "products"} {
		assert.True(t, testDB.Migrator().HasTable(table), table)
	}
	for _, idx := range []string{
		"idx_abandoned_carts_session_status",
		"idx_abandoned_carts_user_status",
		"idx_abandoned_carts_checkout_time",
		"idx_abandoned_carts_status_viewed",
		"ux_abandoned_carts_active_user",
		"ux_abandoned_carts_active_session",
	} {
		assert.True(t, testDB.Migrator().HasIndex("abandoned_carts", idx), idx)
	}
}

func TestMigrateSchema_Idempotent(t *testing.T) {
	testDB, err := SetupTestDB()
	require.NoError(t, err)
	defer CleanupTestDB(testDB)

	assert.NoError(t, MigrateSchema(testDB))
}

func TestTruncateAllTables(t *testing.T) {
	testDB, err := SetupTestDB()
	require.NoError(t, err)
	defer CleanupTestDB(testDB)

	require.NoError(t, testDB.Exec("INSERT INTO products (name, price) VALUES ('Widget', 1)").Error)
	require.NoError(t, TruncateAllTables(testDB))

	var count int64
	testDB.Table("products").Count(&count)
	assert.Zero(t, count)
}
