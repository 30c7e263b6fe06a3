package service

import (
	"fmt"
	"time"

	"github.com/ikkim/cart-recovery-backend/internal/app/model"
	"github.com/xuri/excelize/v2"
)

const cartSheet = "Abandoned carts"

type columnRenderer struct {
	header string
	render func(cart *model.AbandonedCart) interface{}
}

// cartColumns maps a column id to its header and cell renderer.
var cartColumns = map[string]columnRenderer{
	"id": {"ID", func(c *model.AbandonedCart) interface{} { return c.ID }},
	"customer": {"Customer", func(c *model.AbandonedCart) interface{} {
		return c.Customer().FullName()
	}},
	"email": {"Email", func(c *model.AbandonedCart) interface{} {
		return c.Customer().Get("billing_email")
	}},
	"phone": {"Phone", func(c *model.AbandonedCart) interface{} {
		return c.Customer().Get("billing_phone")
	}},
	"products": {"Products", func(c *model.AbandonedCart) interface{} {
		return productList(c.Items())
	}},
	"total": {"Total", func(c *model.AbandonedCart) interface{} {
		_, total := lineViews(c.Items())
		f, _ := total.Float64()
		return f
	}},
	"checkout_time": {"Checkout time", func(c *model.AbandonedCart) interface{} {
		return c.CheckoutTime.UTC().Format(time.RFC3339)
	}},
	"status": {"Status", func(c *model.AbandonedCart) interface{} { return string(c.Status) }},
}

// DefaultExportColumns is the column order of exports and archives.
var DefaultExportColumns = []string{"id", "customer", "email", "phone", "products", "total", "checkout_time", "status"}

// renderCartWorkbook writes carts as one XLSX sheet. Unknown column ids are
// rejected.
func renderCartWorkbook(carts []model.AbandonedCart, columns []string) ([]byte, error) {
	if len(columns) == 0 {
		columns = DefaultExportColumns
	}
	renderers := make([]columnRenderer, 0, len(columns))
	for _, id := range columns {
		r, ok := cartColumns[id]
		if !ok {
			return nil, fmt.Errorf("unknown export column %q", id)
		}
		renderers = append(renderers, r)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", cartSheet); err != nil {
		return nil, err
	}

	header := make([]interface{}, len(renderers))
	for i, r := range renderers {
		header[i] = r.header
	}
	if err := f.SetSheetRow(cartSheet, "A1", &header); err != nil {
		return nil, err
	}

	for i := range carts {
		row := make([]interface{}, len(renderers))
		for j, r := range renderers {
			row[j] = r.render(&carts[i])
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(cartSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
