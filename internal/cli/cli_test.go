package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ikkim/cart-recovery-backend/config"
	"github.com/ikkim/cart-recovery-backend/internal/app/model"
	"github.com/ikkim/cart-recovery-backend/internal/db"
	"github.com/ikkim/cart-recovery-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const testJWTSecret = "cli-test-secret"

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{Secret: testJWTSecret},
		Retention: config.RetentionConfig{
			Days:          90,
			ArchivePrefix: "abandoned-carts",
		},
		S3: config.S3Config{
			Region:          "us-east-1",
			AccessKeyID:     "AKIDEXAMPLE",
			SecretAccessKey: "secret",
		},
	}
}

func setupCLI(t *testing.T, cfg *config.Config) (*gorm.DB, func(args []string, stdin string) (string, error)) {
	t.Helper()
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	load := func(withDB bool) (*Env, func(), error) {
		env := &Env{Config: cfg}
		if withDB {
			env.DB = testDB
		}
		return env, func() {}, nil
	}

	run := func(args []string, stdin string) (string, error) {
		cmd := NewRootCommand(load)
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetIn(strings.NewReader(stdin))
		cmd.SetArgs(args)
		err := cmd.Execute()
		return out.String(), err
	}
	return testDB, run
}

func writeProductSheet(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	path := filepath.Join(t.TempDir(), "products.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func seedAbandoned(t *testing.T, conn *gorm.DB, sessionID string, at time.Time) {
	t.Helper()
	customer, err := model.EncodeCustomerSnapshot(model.CustomerSnapshot{"billing_email": sessionID + "@example.com"})
	require.NoError(t, err)
	contents, err := model.EncodeCartSnapshot([]model.CartLine{{ProductID: 1, ProductName: "Widget", Quantity: 2, Price: 5}})
	require.NoError(t, err)
	require.NoError(t, conn.Create(&model.AbandonedCart{
		SessionID:    sessionID,
		CustomerData: customer,
		CartContents: contents,
		CheckoutTime: at,
		Status:       model.CartStatusAbandoned,
	}).Error)
}

func TestReadProductsFromXLSX(t *testing.T) {
	path := writeProductSheet(t, [][]interface{}{
		{"Name", "Price"},
		{"Widget", "10.145"},
		{"", "3.00"},
		{"Gadget", "abc"},
		{"Refund", "-1"},
		{"Only name"},
		{" Gizmo ", "7"},
	})

	products, skipped, err := readProductsFromXLSX(path)
	require.NoError(t, err)
	assert.Equal(t, 4, skipped)
	require.Len(t, products, 2)
	assert.Equal(t, "Widget", products[0].Name)
	assert.Equal(t, "10.15", products[0].Price.StringFixed(2))
	assert.Equal(t, "Gizmo", products[1].Name)
	assert.Equal(t, "7.00", products[1].Price.StringFixed(2))
}

func TestReadProductsFromXLSX_MissingFile(t *testing.T) {
	_, _, err := readProductsFromXLSX(filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.Error(t, err)
}

func TestSeedProductsCommand(t *testing.T) {
	conn, run := setupCLI(t, testConfig())
	path := writeProductSheet(t, [][]interface{}{
		{"Name", "Price"},
		{"Widget", "9.99"},
		{"Gadget", "19.50"},
	})

	t.Run("cancelled at prompt", func(t *testing.T) {
		out, err := run([]string{"seed-products", path}, "no\n")
		require.NoError(t, err)
		assert.Contains(t, out, "Import cancelled.")

		var count int64
		require.NoError(t, conn.Model(&model.Product{}).Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("confirmed", func(t *testing.T) {
		out, err := run([]string{"seed-products", path, "--format", "json"}, "yes\n")
		require.NoError(t, err)

		var result seedResult
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.Equal(t, 2, result.Imported)

		var names []string
		require.NoError(t, conn.Model(&model.Product{}).Order("id").Pluck("name", &names).Error)
		assert.Equal(t, []string{"Widget", "Gadget"}, names)
	})
}

func TestCleanupCommand(t *testing.T) {
	conn, run := setupCLI(t, testConfig())
	now := time.Now().UTC()
	seedAbandoned(t, conn, "old", now.AddDate(0, 0, -120))
	seedAbandoned(t, conn, "fresh", now.AddDate(0, 0, -10))

	t.Run("explicit days", func(t *testing.T) {
		out, err := run([]string{"cleanup", "--days", "100", "--format", "json"}, "")
		require.NoError(t, err)

		var result cleanupResult
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.Equal(t, cleanupResult{Days: 100, Deleted: 1}, result)
	})

	t.Run("defaults to configured retention", func(t *testing.T) {
		out, err := run([]string{"cleanup"}, "")
		require.NoError(t, err)
		assert.Equal(t, "Deleted 0 abandoned carts older than 90 days\n", out)
	})

	t.Run("rejects non-positive days", func(t *testing.T) {
		_, err := run([]string{"cleanup", "--days", "0"}, "")
		assert.Error(t, err)
	})

	t.Run("archive needs a bucket", func(t *testing.T) {
		_, err := run([]string{"cleanup", "--archive"}, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "RETENTION_ARCHIVE_BUCKET")
	})

	var remaining int64
	require.NoError(t, conn.Model(&model.AbandonedCart{}).Count(&remaining).Error)
	assert.Equal(t, int64(1), remaining)
}

func TestExportCommand(t *testing.T) {
	conn, run := setupCLI(t, testConfig())
	seedAbandoned(t, conn, "alice", time.Now().UTC())
	seedAbandoned(t, conn, "bob", time.Now().UTC())

	out := filepath.Join(t.TempDir(), "carts.xlsx")
	_, err := run([]string{"export", "--out", out, "--search", "alice"}, "")
	require.NoError(t, err)

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	// header plus the one matching cart
	assert.Len(t, rows, 2)

	_, err = run([]string{"export"}, "")
	assert.Error(t, err)
}

func TestTokenCommand(t *testing.T) {
	_, run := setupCLI(t, testConfig())

	out, err := run([]string{"token", "--user-id", "7", "--email", "ops@example.com"}, "")
	require.NoError(t, err)

	claims, err := util.ValidateToken(strings.TrimSpace(out), testJWTSecret)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, string(model.RoleAdmin), claims.Role)
	assert.Equal(t, util.TokenTypeAccess, claims.TokenType)

	_, err = run([]string{"token", "--user-id", "7", "--role", "root"}, "")
	assert.Error(t, err)

	_, err = run([]string{"token"}, "")
	assert.Error(t, err)
}

func TestArchiveURLCommand(t *testing.T) {
	cfg := testConfig()
	cfg.Retention.ArchiveBucket = "cart-archive"
	_, run := setupCLI(t, cfg)

	out, err := run([]string{"archive-url", "abandoned-carts/20260101-x.xlsx", "--ttl", "5m", "--format", "json"}, "")
	require.NoError(t, err)

	var result archiveURLResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Contains(t, result.URL, "cart-archive")
	assert.Contains(t, result.URL, "X-Amz-Expires=300")

	_, err = run([]string{"archive-url", "../escape"}, "")
	assert.Error(t, err)
}

func TestArchiveURLCommand_NoBucket(t *testing.T) {
	_, run := setupCLI(t, testConfig())
	_, err := run([]string{"archive-url", "some/key.xlsx"}, "")
	assert.Error(t, err)
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	_, run := setupCLI(t, testConfig())
	_, err := run([]string{"token", "--user-id", "1", "--format", "yaml"}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
