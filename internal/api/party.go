package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/yashgupta8707/jubilant-system/internal/domain/party"
)

// PartyService accesses the party (client) endpoints
type PartyService struct {
	c *Client
}

// Parties returns the party endpoints of c
func (c *Client) Parties() *PartyService {
	return &PartyService{c: c}
}

// Get fetches a single party
func (s *PartyService) Get(ctx context.Context, id string) (party.Record, error) {
	return call[party.Record](ctx, s.c, Request{Op: "parties.get", Method: http.MethodGet, Path: "/parties/" + escape(id)})
}

// List fetches parties, optionally narrowed by a search term
func (s *PartyService) List(ctx context.Context, search string) ([]party.Record, error) {
	var q url.Values
	if search != "" {
		q = url.Values{"search": []string{search}}
	}
	return call[[]party.Record](ctx, s.c, Request{Op: "parties.list", Method: http.MethodGet, Path: "/parties", Query: q})
}

// Create creates a party
func (s *PartyService) Create(ctx context.Context, req party.CreateRequest) (party.Record, error) {
	return call[party.Record](ctx, s.c, Request{Op: "parties.create", Method: http.MethodPost, Path: "/parties", Body: req})
}

// Update replaces the fields of party id
func (s *PartyService) Update(ctx context.Context, id string, req party.UpdateRequest) (party.Record, error) {
	return call[party.Record](ctx, s.c, Request{Op: "parties.update", Method: http.MethodPut, Path: "/parties/" + escape(id), Body: req})
}

// Delete removes party id
func (s *PartyService) Delete(ctx context.Context, id string) error {
	_, err := s.c.Do(ctx, Request{Op: "parties.delete", Method: http.MethodDelete, Path: "/parties/" + escape(id)})
	return err
}

// AddComment attaches a note to party id and returns the updated party
func (s *PartyService) AddComment(ctx context.Context, id, text string) (party.Record, error) {
	return call[party.Record](ctx, s.c, Request{
		Op:     "parties.comment",
		Method: http.MethodPost,
		Path:   "/parties/" + escape(id) + "/comments",
		Body:   party.CommentRequest{Text: text},
	})
}
