package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ikkim/cart-recovery-backend/internal/app/model"
	"github.com/ikkim/cart-recovery-backend/pkg/logger"
)

// CustomerFields lists the checkout fields kept in a customer snapshot.
var CustomerFields = []string{
	"billing_first_name",
	"billing_last_name",
	"billing_company",
	"billing_address_1",
	"billing_address_2",
	"billing_city",
	"billing_state",
	"billing_postcode",
	"billing_country",
	"billing_email",
	"billing_phone",
	"shipping_first_name",
	"shipping_last_name",
	"shipping_company",
	"shipping_address_1",
	"shipping_address_2",
	"shipping_city",
	"shipping_state",
	"shipping_postcode",
	"shipping_country",
}

// CartSource reads the live storefront cart of an identity.
type CartSource interface {
	FindByIdentity(ctx context.Context, identity model.Identity) ([]model.CartItem, error)
}

// ProductCatalog resolves product ids to the current catalog entries.
type ProductCatalog interface {
	FindByIDs(ctx context.Context, ids []uint) (map[uint]model.Product, error)
}

type SnapshotBuilder interface {
	BuildCustomerSnapshot(raw map[string]string) model.CustomerSnapshot
	BuildCartSnapshot(ctx context.Context, identity model.Identity) ([]model.CartLine, error)
}

type snapshotBuilder struct {
	cartSource CartSource
	catalog    ProductCatalog
	validate   *validator.Validate
}

// NewSnapshotBuilder wires the builder. Either dependency may be nil, in which
// case every cart snapshot comes back empty and captures turn into no-ops.
func NewSnapshotBuilder(cartSource CartSource, catalog ProductCatalog) SnapshotBuilder {
	return &snapshotBuilder{
		cartSource: cartSource,
		catalog:    catalog,
		validate:   validator.New(),
	}
}

func (b *snapshotBuilder) BuildCustomerSnapshot(raw map[string]string) model.CustomerSnapshot {
	snapshot := make(model.CustomerSnapshot, len(CustomerFields))
	for _, field := range CustomerFields {
		value := raw[field]
		if strings.Contains(field, "email") {
			snapshot[field] = b.sanitizeEmail(value)
			continue
		}
		snapshot[field] = sanitizeText(value)
	}
	return snapshot
}

func (b *snapshotBuilder) BuildCartSnapshot(ctx context.Context, identity model.Identity) ([]model.CartLine, error) {
	lines := []model.CartLine{}
	if b.cartSource == nil || b.catalog == nil {
		logger.Warn("Cart snapshot skipped: cart source unavailable", identity.LogFields())
		return lines, nil
	}
	if identity.IsEmpty() {
		return lines, nil
	}

	items, err := b.cartSource.FindByIdentity(ctx, identity)
	if err != nil {
		logger.Error("Failed to read live cart for snapshot", err, identity.LogFields())
		return nil, err
	}
	if len(items) == 0 {
		return lines, nil
	}

	ids := make([]uint, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := b.catalog.FindByIDs(ctx, ids)
	if err != nil {
		logger.Error("Failed to resolve products for snapshot", err, identity.LogFields())
		return nil, err
	}

	for _, item := range items {
		product, ok := products[item.ProductID]
		if !ok {
			logger.Debug("Skipping cart line with unresolved product", map[string]interface{}{
				"identity":   identity.String(),
				"product_id": item.ProductID,
			})
			continue
		}
		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		price, _ := product.Price.Float64()
		lines = append(lines, model.CartLine{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    quantity,
			Price:       price,
		})
	}

	logger.Debug("Cart snapshot built", map[string]interface{}{
		"identity": identity.String(),
		"lines":    len(lines),
	})
	return lines, nil
}

func (b *snapshotBuilder) sanitizeEmail(value string) string {
	value = strings.TrimSpace(sanitizeText(value))
	if value == "" {
		return ""
	}
	if err := b.validate.Var(value, "required,email"); err != nil {
		return ""
	}
	return value
}

var (
	tagPattern     = regexp.MustCompile(`<[^>]*>?`)
	octetPattern   = regexp.MustCompile(`%[a-fA-F0-9]{2}`)
	spacingPattern = regexp.MustCompile(`\s+`)
)

// sanitizeText reduces free-form input to a single trimmed line of plain
// text: invalid UTF-8, markup, percent-encoded octets and runs of whitespace
// are removed.
func sanitizeText(value string) string {
	value = strings.ToValidUTF8(value, "")
	value = tagPattern.ReplaceAllString(value, "")
	value = octetPattern.ReplaceAllString(value, "")
	value = spacingPattern.ReplaceAllString(value, " ")
	return strings.TrimSpace(value)
}
