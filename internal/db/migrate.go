package db

import (
	"fmt"

	"github.com/ikkim/cart-recovery-backend/internal/app/model"
	"github.com/ikkim/cart-recovery-backend/pkg/logger"
	"gorm.io/gorm"
)

// activeCartIndexes keep at most one abandoned row per signed-in user and per
// guest session. Both postgres and sqlite accept partial indexes.
var activeCartIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_abandoned_carts_active_user
		ON abandoned_carts (user_id)
		WHERE status = 'abandoned' AND user_id > 0`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_abandoned_carts_active_session
		ON abandoned_carts (session_id)
		WHERE status = 'abandoned' AND user_id = 0 AND session_id <> ''`,
}

// Migrate runs database migrations
func Migrate() error {
	logger.Info("Running database migrations...")

	if err := MigrateSchema(DB); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count":  len(models()),
		"extra_indexes": len(activeCartIndexes),
	})
	return nil
}

// MigrateSchema creates or updates every table and index the service uses.
func MigrateSchema(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("database not initialized")
	}
	if err := conn.AutoMigrate(models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	for _, stmt := range activeCartIndexes {
		if err := conn.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create active cart index: %w", err)
		}
	}
	return nil
}

func models() []interface{} {
	return []interface{}{
		&model.Product{},
		&model.CartItem{},
		&model.AbandonedCart{},
	}
}
