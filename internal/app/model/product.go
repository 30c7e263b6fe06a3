package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is the storefront catalog entry a cart line points at. Soft-deleted
// products no longer resolve, so their lines drop out of captured snapshots.
type Product struct {
	ID        uint            `gorm:"primarykey" json:"id"`
	Name      string          `gorm:"not null" json:"name"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"price"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (Product) TableName() string {
	return "products"
}
