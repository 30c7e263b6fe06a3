package model

import (
	"bytes"
	"encoding/json"
	"sort"

	"gorm.io/datatypes"
)

// SnapshotVersion is written into every customer/cart envelope.
const SnapshotVersion = 1

// CustomerSnapshot maps checkout field names (billing_email, ...) to values.
type CustomerSnapshot map[string]string

// Get returns the value for key, or "" when absent.
func (s CustomerSnapshot) Get(key string) string {
	if s == nil {
		return ""
	}
	return s[key]
}

// FullName joins the billing first and last name.
func (s CustomerSnapshot) FullName() string {
	first, last := s.Get("billing_first_name"), s.Get("billing_last_name")
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}

// Keys returns the field names in sorted order.
func (s CustomerSnapshot) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CartLine is one product line of a captured cart.
type CartLine struct {
	ProductID   uint    `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

// LineTotal is price times quantity.
func (l CartLine) LineTotal() float64 {
	return l.Price * float64(l.Quantity)
}

type customerEnvelope struct {
	Version int                        `json:"v"`
	Fields  map[string]json.RawMessage `json:"fields"`
}

type cartEnvelope struct {
	Version int               `json:"v"`
	Items   []json.RawMessage `json:"items"`
}

// EncodeCustomerSnapshot wraps the snapshot in a versioned envelope.
func EncodeCustomerSnapshot(s CustomerSnapshot) (datatypes.JSON, error) {
	if s == nil {
		s = CustomerSnapshot{}
	}
	return encodeEnvelope(struct {
		Version int              `json:"v"`
		Fields  CustomerSnapshot `json:"fields"`
	}{SnapshotVersion, s})
}

// EncodeCartSnapshot wraps the cart lines in a versioned envelope.
func EncodeCartSnapshot(lines []CartLine) (datatypes.JSON, error) {
	if lines == nil {
		lines = []CartLine{}
	}
	return encodeEnvelope(struct {
		Version int        `json:"v"`
		Items   []CartLine `json:"items"`
	}{SnapshotVersion, lines})
}

// encodeEnvelope keeps &, < and > literal so admin LIKE searches match what
// the shopper typed.
func encodeEnvelope(v interface{}) (datatypes.JSON, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return datatypes.JSON(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// DecodeCustomerSnapshot reads an envelope written by EncodeCustomerSnapshot.
// Unreadable envelopes yield an empty snapshot and non-string values are
// dropped, so a single corrupt row never breaks a listing.
func DecodeCustomerSnapshot(raw datatypes.JSON) CustomerSnapshot {
	out := CustomerSnapshot{}
	if len(raw) == 0 {
		return out
	}
	var env customerEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return out
	}
	for k, v := range env.Fields {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			continue
		}
		out[k] = s
	}
	return out
}

// DecodeCartSnapshot reads an envelope written by EncodeCartSnapshot. Lines
// that do not decode or carry no product id are skipped; a non-positive
// quantity reads back as 1.
func DecodeCartSnapshot(raw datatypes.JSON) []CartLine {
	lines := []CartLine{}
	if len(raw) == 0 {
		return lines
	}
	var env cartEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return lines
	}
	for _, item := range env.Items {
		var line CartLine
		if err := json.Unmarshal(item, &line); err != nil {
			continue
		}
		if line.ProductID == 0 {
			continue
		}
		if line.Quantity <= 0 {
			line.Quantity = 1
		}
		lines = append(lines, line)
	}
	return lines
}
