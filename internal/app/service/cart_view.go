package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/ikkim/cart-recovery-backend/internal/app/model"
	"github.com/shopspring/decimal"
)

// CartLineView is a captured line with its line total.
type CartLineView struct {
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// CartSummary is one row of the admin list.
type CartSummary struct {
	ID           uint             `json:"id"`
	UserID       uint             `json:"user_id"`
	SessionID    string           `json:"session_id"`
	CustomerName string           `json:"customer_name"`
	Email        string           `json:"email"`
	Phone        string           `json:"phone"`
	ItemCount    int              `json:"item_count"`
	Total        decimal.Decimal  `json:"total"`
	Status       model.CartStatus `json:"status"`
	IsViewed     bool             `json:"is_viewed"`
	CheckoutTime time.Time        `json:"checkout_time"`
	TimeAgo      string           `json:"time_ago"`
}

// CartDetail is the admin detail view of one capture.
type CartDetail struct {
	CartSummary
	Customer model.CustomerSnapshot `json:"customer"`
	Lines    []CartLineView         `json:"lines"`
}

func lineViews(lines []model.CartLine) ([]CartLineView, decimal.Decimal) {
	views := make([]CartLineView, 0, len(lines))
	total := decimal.Zero
	for _, line := range lines {
		price := decimal.NewFromFloat(line.Price).Round(2)
		lineTotal := price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		total = total.Add(lineTotal)
		views = append(views, CartLineView{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			Price:       price,
			LineTotal:   lineTotal,
		})
	}
	return views, total
}

func summarize(cart *model.AbandonedCart, now time.Time) CartSummary {
	customer := cart.Customer()
	lines := cart.Items()
	_, total := lineViews(lines)

	items := 0
	for _, line := range lines {
		items += line.Quantity
	}

	return CartSummary{
		ID:           cart.ID,
		UserID:       cart.UserID,
		SessionID:    cart.SessionID,
		CustomerName: customer.FullName(),
		Email:        customer.Get("billing_email"),
		Phone:        customer.Get("billing_phone"),
		ItemCount:    items,
		Total:        total,
		Status:       cart.Status,
		IsViewed:     cart.IsViewed,
		CheckoutTime: cart.CheckoutTime,
		TimeAgo:      timeAgo(cart.CheckoutTime, now),
	}
}

func detail(cart *model.AbandonedCart, now time.Time) *CartDetail {
	views, _ := lineViews(cart.Items())
	return &CartDetail{
		CartSummary: summarize(cart, now),
		Customer:    cart.Customer(),
		Lines:       views,
	}
}

// productList renders lines as "Widget x2, Gadget x1".
func productList(lines []model.CartLine) string {
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		parts = append(parts, fmt.Sprintf("%s x%d", line.ProductName, line.Quantity))
	}
	return strings.Join(parts, ", ")
}

// timeAgo renders the distance between t and now the way admin lists show
// it: "5 mins ago", "1 hour ago", "3 weeks ago".
func timeAgo(t, now time.Time) string {
	d := now.Sub(t)
	if d < 0 {
		d = 0
	}

	const (
		day   = 24 * time.Hour
		week  = 7 * day
		month = 30 * day
		year  = 365 * day
	)

	var n int64
	var unit string
	switch {
	case d < time.Hour:
		n, unit = int64(d/time.Minute), "min"
		if n < 1 {
			n = 1
		}
	case d < day:
		n, unit = int64(d/time.Hour), "hour"
	case d < week:
		n, unit = int64(d/day), "day"
	case d < month:
		n, unit = int64(d/week), "week"
	case d < year:
		n, unit = int64(d/month), "month"
	default:
		n, unit = int64(d/year), "year"
	}
	if n != 1 {
		unit += "s"
	}
	return fmt.Sprintf("%d %s ago", n, unit)
}
