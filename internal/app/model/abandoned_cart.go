package model

import (
	"time"

	"gorm.io/datatypes"
)

type CartStatus string

const (
	CartStatusAbandoned CartStatus = "abandoned"
	CartStatusCompleted CartStatus = "completed"
)

// AbandonedCart is a captured checkout that has not (yet) turned into an order.
// CustomerData and CartContents hold versioned JSON envelopes; use the
// Customer/Items accessors rather than decoding the columns directly.
type AbandonedCart struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	SessionID    string         `gorm:"type:varchar(255);not null;default:'';index:idx_abandoned_carts_session_status,priority:1" json:"session_id"`
	UserID       uint           `gorm:"not null;default:0;index:idx_abandoned_carts_user_status,priority:1" json:"user_id"`
	CustomerData datatypes.JSON `gorm:"type:text;not null" json:"-"`
	CartContents datatypes.JSON `gorm:"type:text;not null" json:"-"`
	CheckoutTime time.Time      `gorm:"not null;index:idx_abandoned_carts_checkout_time" json:"checkout_time"`
	Status       CartStatus     `gorm:"type:varchar(50);not null;default:'abandoned';index:idx_abandoned_carts_session_status,priority:2;index:idx_abandoned_carts_user_status,priority:2;index:idx_abandoned_carts_status_viewed,priority:1" json:"status"`
	IsViewed     bool           `gorm:"not null;default:false;index:idx_abandoned_carts_status_viewed,priority:2" json:"is_viewed"`
}

func (AbandonedCart) TableName() string {
	return "abandoned_carts"
}

// Identity returns the identity the record was captured under.
func (c *AbandonedCart) Identity() Identity {
	return Identity{UserID: c.UserID, SessionID: c.SessionID}
}

// Customer decodes the customer snapshot, tolerating malformed data.
func (c *AbandonedCart) Customer() CustomerSnapshot {
	return DecodeCustomerSnapshot(c.CustomerData)
}

// Items decodes the cart snapshot, tolerating malformed data.
func (c *AbandonedCart) Items() []CartLine {
	return DecodeCartSnapshot(c.CartContents)
}
