package model

import (
	"time"
)

// CartItem is a line of the live storefront cart. Guests are keyed by
// SessionID with UserID 0; signed-in shoppers by UserID.
type CartItem struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	SessionID string    `gorm:"type:varchar(255);not null;default:'';index" json:"session_id"`
	UserID    uint      `gorm:"not null;default:0;index" json:"user_id"`
	ProductID uint      `gorm:"not null;index" json:"product_id"`
	Quantity  int       `gorm:"not null;default:1" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Product Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (CartItem) TableName() string {
	return "cart_items"
}
