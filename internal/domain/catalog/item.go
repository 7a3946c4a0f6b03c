// Package catalog models the catalog items ("models"), their category and
// brand references, and the text-backed draft used to create new items.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Ref is a reference entity (category or brand): an identifier and a name.
type Ref struct {
	ID   string `json:"_id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// UnmarshalJSON accepts a populated object keyed by _id or id, or a bare id string.
func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = Ref{ID: id}
		return nil
	}

	var raw struct {
		MongoID string `json:"_id"`
		ID      string `json:"id"`
		Name    string `json:"name"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("catalog: decoding reference: %w", err)
	}
	r.ID = raw.MongoID
	if r.ID == "" {
		r.ID = raw.ID
	}
	r.Name = raw.Name
	return nil
}

// Item is a catalog item. Prices are GST-inclusive.
type Item struct {
	ID            string          `json:"_id" yaml:"id"`
	Name          string          `json:"name" yaml:"name"`
	Category      *Ref            `json:"category,omitempty" yaml:"category,omitempty"`
	Brand         *Ref            `json:"brand,omitempty" yaml:"brand,omitempty"`
	HSN           string          `json:"hsn" yaml:"hsn"`
	Warranty      string          `json:"warranty" yaml:"warranty"`
	PurchasePrice decimal.Decimal `json:"purchasePrice" yaml:"purchase_price"`
	SalesPrice    decimal.Decimal `json:"salesPrice" yaml:"sales_price"`
	GSTRate       decimal.Decimal `json:"gstRate" yaml:"gst_rate"`
}

// UnmarshalJSON decodes an item, accepting id as an alternative to _id.
func (it *Item) UnmarshalJSON(data []byte) error {
	type alias Item
	aux := struct {
		*alias
		AltID string `json:"id"`
	}{alias: (*alias)(it)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if it.ID == "" {
		it.ID = aux.AltID
	}
	return nil
}

// CategoryName returns the category name, or "" when the item has none
func (it Item) CategoryName() string {
	if it.Category == nil {
		return ""
	}
	return it.Category.Name
}

// BrandName returns the brand name, or "" when the item has none
func (it Item) BrandName() string {
	if it.Brand == nil {
		return ""
	}
	return it.Brand.Name
}

// NameRequest is the body of the category and brand create endpoints
type NameRequest struct {
	Name string `json:"name" validate:"required"`
}
