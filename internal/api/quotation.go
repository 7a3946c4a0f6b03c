package api

import (
	"context"
	"net/http"

	"github.com/yashgupta8707/jubilant-system/internal/domain/quotation"
)

// QuotationService reads quotations
type QuotationService struct {
	c *Client
}

// Quotations returns the quotation endpoints of c
func (c *Client) Quotations() *QuotationService {
	return &QuotationService{c: c}
}

// List fetches every quotation
func (s *QuotationService) List(ctx context.Context) ([]quotation.Quotation, error) {
	return call[[]quotation.Quotation](ctx, s.c, Request{Op: "quotations.list", Method: http.MethodGet, Path: "/quotations"})
}

// ListByParty fetches the quotations issued to a party
func (s *QuotationService) ListByParty(ctx context.Context, partyID string) ([]quotation.Quotation, error) {
	return call[[]quotation.Quotation](ctx, s.c, Request{
		Op:     "quotations.by_party",
		Method: http.MethodGet,
		Path:   "/quotations/party/" + escape(partyID),
	})
}

// Get fetches a single quotation
func (s *QuotationService) Get(ctx context.Context, id string) (quotation.Quotation, error) {
	return call[quotation.Quotation](ctx, s.c, Request{Op: "quotations.get", Method: http.MethodGet, Path: "/quotations/" + escape(id)})
}
