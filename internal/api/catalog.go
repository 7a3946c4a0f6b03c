package api

import (
	"context"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/yashgupta8707/jubilant-system/internal/domain/catalog"
)

// CatalogService accesses models, categories and brands
type CatalogService struct {
	c *Client
}

// Catalog returns the catalog endpoints of c
func (c *Client) Catalog() *CatalogService {
	return &CatalogService{c: c}
}

// ListCategories fetches every category
func (s *CatalogService) ListCategories(ctx context.Context) ([]catalog.Ref, error) {
	return call[[]catalog.Ref](ctx, s.c, Request{Op: "categories.list", Method: http.MethodGet, Path: "/categories"})
}

// ListBrands fetches every brand
func (s *CatalogService) ListBrands(ctx context.Context) ([]catalog.Ref, error) {
	return call[[]catalog.Ref](ctx, s.c, Request{Op: "brands.list", Method: http.MethodGet, Path: "/brands"})
}

// ListModels fetches the full catalog from /models, falling back to the
// legacy /components listing when /models fails. An unauthorized response or
// a cancelled ctx is returned as is.
func (s *CatalogService) ListModels(ctx context.Context) ([]catalog.Item, error) {
	return Attempt(func() ([]catalog.Item, error) {
		return call[[]catalog.Item](ctx, s.c, Request{Op: "models.list", Method: http.MethodGet, Path: "/models"})
	}).OrElse(func(err error) Result[[]catalog.Item] {
		if StatusCode(err) == http.StatusUnauthorized || ctx.Err() != nil {
			return Fail[[]catalog.Item](err)
		}
		s.c.logger.Warn("model listing failed, trying components", zap.Error(err))
		return Attempt(func() ([]catalog.Item, error) {
			return call[[]catalog.Item](ctx, s.c, Request{Op: "components.list", Method: http.MethodGet, Path: "/components"})
		})
	}).Get()
}

// SearchModels runs the server-side catalog search for term
func (s *CatalogService) SearchModels(ctx context.Context, term string) ([]catalog.Item, error) {
	return call[[]catalog.Item](ctx, s.c, Request{
		Op:     "models.search",
		Method: http.MethodGet,
		Path:   "/models/search",
		Query:  url.Values{"term": []string{term}},
	})
}

// CreateModel creates a catalog item
func (s *CatalogService) CreateModel(ctx context.Context, req catalog.CreateRequest) (catalog.Item, error) {
	return call[catalog.Item](ctx, s.c, Request{Op: "models.create", Method: http.MethodPost, Path: "/models", Body: req})
}

// CreateCategory creates a category named name
func (s *CatalogService) CreateCategory(ctx context.Context, name string) (catalog.Ref, error) {
	return call[catalog.Ref](ctx, s.c, Request{
		Op:     "categories.create",
		Method: http.MethodPost,
		Path:   "/categories",
		Body:   catalog.NameRequest{Name: name},
	})
}

// CreateBrand creates a brand named name
func (s *CatalogService) CreateBrand(ctx context.Context, name string) (catalog.Ref, error) {
	return call[catalog.Ref](ctx, s.c, Request{
		Op:     "brands.create",
		Method: http.MethodPost,
		Path:   "/brands",
		Body:   catalog.NameRequest{Name: name},
	})
}
