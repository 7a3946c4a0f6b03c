// Package quotation models the read-only quotation views exposed by the backend.
package quotation

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Status of a quotation
type Status string

const (
	StatusDraft    Status = "draft"
	StatusSent     Status = "sent"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// PartyRef is the party a quotation was issued to, populated or as a bare id.
type PartyRef struct {
	ID    string `json:"_id" yaml:"id"`
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	Phone string `json:"phone,omitempty" yaml:"phone,omitempty"`
}

// UnmarshalJSON accepts a populated object or a bare id string
func (p *PartyRef) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		*p = PartyRef{ID: id}
		return nil
	}
	type alias PartyRef
	aux := struct {
		*alias
		AltID string `json:"id"`
	}{alias: (*alias)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = aux.AltID
	}
	return nil
}

// LineItem is one priced catalog item on a quotation
type LineItem struct {
	Model       string          `json:"model,omitempty" yaml:"model,omitempty"`
	Description string          `json:"description" yaml:"description"`
	HSN         string          `json:"hsn,omitempty" yaml:"hsn,omitempty"`
	Warranty    string          `json:"warranty,omitempty" yaml:"warranty,omitempty"`
	Quantity    int             `json:"quantity" yaml:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice" yaml:"unit_price"`
	GSTRate     decimal.Decimal `json:"gstRate" yaml:"gst_rate"`
}

// Total returns quantity times the GST-inclusive unit price
func (l LineItem) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// TaxAmount returns the GST portion contained in Total
func (l LineItem) TaxAmount() decimal.Decimal {
	total := l.Total()
	if l.GSTRate.IsZero() {
		return decimal.Zero
	}
	hundred := decimal.NewFromInt(100)
	base := total.Mul(hundred).Div(hundred.Add(l.GSTRate))
	return total.Sub(base).Round(2)
}

// Quotation is a priced offer to a party
type Quotation struct {
	ID             string          `json:"_id" yaml:"id"`
	QuotationID    string          `json:"quotationId,omitempty" yaml:"quotation_id,omitempty"`
	Party          *PartyRef       `json:"party,omitempty" yaml:"party,omitempty"`
	Items          []LineItem      `json:"items" yaml:"items"`
	Status         Status          `json:"status,omitempty" yaml:"status,omitempty"`
	GrandTotal     decimal.Decimal `json:"grandTotal" yaml:"grand_total"`
	TotalTax       decimal.Decimal `json:"totalTax,omitempty" yaml:"total_tax,omitempty"`
	ValidUntil     *time.Time      `json:"validUntil,omitempty" yaml:"valid_until,omitempty"`
	CreatedAt      *time.Time      `json:"createdAt,omitempty" yaml:"created_at,omitempty"`
	RevisionNumber int             `json:"revisionNumber,omitempty" yaml:"revision_number,omitempty"`
}

// UnmarshalJSON decodes a quotation, accepting id as an alternative to _id.
func (q *Quotation) UnmarshalJSON(data []byte) error {
	type alias Quotation
	aux := struct {
		*alias
		AltID string `json:"id"`
	}{alias: (*alias)(q)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if q.ID == "" {
		q.ID = aux.AltID
	}
	return nil
}

// PartyName returns the party name, or the party id when the party is not populated
func (q Quotation) PartyName() string {
	if q.Party == nil {
		return ""
	}
	if q.Party.Name != "" {
		return q.Party.Name
	}
	return q.Party.ID
}

// ComputeTotals fills GrandTotal and TotalTax from the line items
func (q *Quotation) ComputeTotals() {
	total := decimal.Zero
	tax := decimal.Zero
	for _, l := range q.Items {
		total = total.Add(l.Total())
		tax = tax.Add(l.TaxAmount())
	}
	q.GrandTotal = total
	q.TotalTax = tax
}
