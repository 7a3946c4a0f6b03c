package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yashgupta8707/jubilant-system/internal/domain/catalog"
	"github.com/yashgupta8707/jubilant-system/internal/domain/party"
	"github.com/yashgupta8707/jubilant-system/internal/route"
	"github.com/yashgupta8707/jubilant-system/internal/session"
)

func TestCatalogService(t *testing.T) {
	t.Run("search sends the term query parameter", func(t *testing.T) {
		var term string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/models/search", r.URL.Path)
			term = r.URL.Query().Get("term")
			writeJSON(w, http.StatusOK, []map[string]any{{"_id": "m1", "name": "Acme Router"}})
		}))
		defer srv.Close()

		items, err := newTestClient(t, srv, Config{}).Catalog().SearchModels(context.Background(), "acme & co")
		require.NoError(t, err)
		assert.Equal(t, "acme & co", term)
		require.Len(t, items, 1)
		assert.Equal(t, "m1", items[0].ID)
	})

	t.Run("list models falls back to components", func(t *testing.T) {
		var paths []string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			paths = append(paths, r.URL.Path)
			if r.URL.Path == "/api/models" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			writeJSON(w, http.StatusOK, []map[string]any{{"_id": "c1", "name": "Legacy"}})
		}))
		defer srv.Close()

		items, err := newTestClient(t, srv, Config{}).Catalog().ListModels(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"/api/models", "/api/components"}, paths)
		require.Len(t, items, 1)
		assert.Equal(t, "Legacy", items[0].Name)
	})

	t.Run("list models reports both failures", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := newTestClient(t, srv, Config{}).Catalog().ListModels(context.Background())
		require.Error(t, err)
		assert.Equal(t, http.StatusInternalServerError, StatusCode(err))
	})

	t.Run("list models does not fall back after 401", func(t *testing.T) {
		var paths []string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			paths = append(paths, r.URL.Path)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Token expired"})
		}))
		defer srv.Close()

		nav := &route.Recorder{}
		sess := session.New(session.NewMemoryStore("stale"), session.WithNavigator(nav))
		require.NoError(t, sess.Init())
		c := newTestClient(t, srv, Config{}, WithSession(sess))

		_, err := c.Catalog().ListModels(context.Background())
		assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
		assert.Equal(t, []string{"/api/models"}, paths)
		assert.Equal(t, []string{route.Login}, nav.Paths())
	})

	t.Run("list models does not fall back once cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		var paths []string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			paths = append(paths, r.URL.Path)
			cancel()
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		_, err := newTestClient(t, srv, Config{}).Catalog().ListModels(ctx)
		require.Error(t, err)
		srv.Close()
		assert.Equal(t, []string{"/api/models"}, paths)
	})

	t.Run("create model posts the coerced draft", func(t *testing.T) {
		var body map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			writeJSON(w, http.StatusCreated, map[string]any{"_id": "new", "name": body["name"]})
		}))
		defer srv.Close()

		req := catalog.CreateRequest{
			Name: "X", Category: "c", Brand: "b", HSN: "1", Warranty: "1y",
			PurchasePrice: decimal.Zero, SalesPrice: decimal.NewFromInt(10), GSTRate: decimal.NewFromInt(18),
		}
		item, err := newTestClient(t, srv, Config{}).Catalog().CreateModel(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "new", item.ID)
		assert.Equal(t, "0", body["purchasePrice"])
		assert.Equal(t, "18", body["gstRate"])
	})

	t.Run("create category posts the name", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req catalog.NameRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "/api/categories", r.URL.Path)
			writeJSON(w, http.StatusCreated, map[string]any{"_id": "c9", "name": req.Name})
		}))
		defer srv.Close()

		ref, err := newTestClient(t, srv, Config{}).Catalog().CreateCategory(context.Background(), "Storage")
		require.NoError(t, err)
		assert.Equal(t, catalog.Ref{ID: "c9", Name: "Storage"}, ref)
	})
}

func TestPartyService(t *testing.T) {
	t.Run("update keys the request by id", func(t *testing.T) {
		var got map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "/api/parties/P-1001", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			writeJSON(w, http.StatusOK, map[string]any{"_id": "P-1001", "name": got["name"], "tags": got["tags"]})
		}))
		defer srv.Close()

		rec, err := newTestClient(t, srv, Config{}).Parties().Update(context.Background(), "P-1001", party.UpdateRequest{
			Name: "Acme", Phone: "1", Address: "a", Tags: party.NewTagSet("VIP"),
		})
		require.NoError(t, err)
		assert.Equal(t, []any{"VIP"}, got["tags"])
		assert.NotContains(t, got, "changeComment")
		assert.Equal(t, []string{"VIP"}, rec.Tags.Values())
	})

	t.Run("list passes search", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "acme", r.URL.Query().Get("search"))
			writeJSON(w, http.StatusOK, []map[string]any{{"_id": "1", "name": "Acme"}})
		}))
		defer srv.Close()

		recs, err := newTestClient(t, srv, Config{}).Parties().List(context.Background(), "acme")
		require.NoError(t, err)
		assert.Len(t, recs, 1)
	})

	t.Run("delete and comment", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.Method == http.MethodDelete:
				w.WriteHeader(http.StatusNoContent)
			case r.URL.Path == "/api/parties/P-1/comments":
				var req party.CommentRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				writeJSON(w, http.StatusCreated, map[string]any{
					"_id":      "P-1",
					"comments": []map[string]any{{"text": req.Text, "createdAt": "2026-01-02T03:04:05Z"}},
				})
			}
		}))
		defer srv.Close()

		svc := newTestClient(t, srv, Config{}).Parties()
		require.NoError(t, svc.Delete(context.Background(), "P-1"))

		rec, err := svc.AddComment(context.Background(), "P-1", "called back")
		require.NoError(t, err)
		require.Len(t, rec.Comments, 1)
		assert.Equal(t, "called back", rec.Comments[0].Text)
	})
}

func TestQuotationService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/quotations/party/P-1":
			writeJSON(w, http.StatusOK, []map[string]any{{"_id": "q1", "party": "P-1"}})
		case "/api/quotations/q1":
			writeJSON(w, http.StatusOK, map[string]any{"_id": "q1", "grandTotal": 100})
		default:
			writeJSON(w, http.StatusOK, []any{})
		}
	}))
	defer srv.Close()

	svc := newTestClient(t, srv, Config{}).Quotations()

	list, err := svc.ListByParty(context.Background(), "P-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "P-1", list[0].PartyName())

	q, err := svc.Get(context.Background(), "q1")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(q.GrandTotal))

	all, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestAuthService(t *testing.T) {
	tests := []struct {
		name string
		body any
		want string
	}{
		{"token", map[string]any{"token": "t1"}, "t1"},
		{"accessToken", map[string]any{"accessToken": "t2"}, "t2"},
		{"nested token", map[string]any{"data": map[string]any{"token": "t3"}}, "t3"},
		{"nested access_token", map[string]any{"success": true, "data": map[string]any{"token": map[string]any{"access_token": "t4"}}}, "t4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/auth/login", r.URL.Path)
				writeJSON(w, http.StatusOK, tt.body)
			}))
			defer srv.Close()

			sess := session.New(nil)
			tok, err := newTestClient(t, srv, Config{}, WithSession(sess)).Auth().Login(context.Background(), "admin", "admin")
			require.NoError(t, err)
			assert.Equal(t, tt.want, tok)
			assert.Equal(t, tt.want, sess.Token())
		})
	}

	t.Run("missing token", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		}))
		defer srv.Close()

		_, err := newTestClient(t, srv, Config{}).Auth().Login(context.Background(), "a", "b")
		assert.ErrorIs(t, err, ErrNoToken)
	})

	t.Run("logout clears the session even when the call fails", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		sess := session.New(session.NewMemoryStore("tok"))
		require.NoError(t, sess.Init())
		require.NoError(t, newTestClient(t, srv, Config{}, WithSession(sess)).Auth().Logout(context.Background()))
		assert.False(t, sess.IsAuthenticated())
	})
}

func TestResult(t *testing.T) {
	primaryErr := errors.New("primary")

	t.Run("success skips the fallback", func(t *testing.T) {
		called := false
		r := Ok(1).OrElse(func(error) Result[int] {
			called = true
			return Ok(2)
		})
		v, err := r.Get()
		require.NoError(t, err)
		assert.Equal(t, 1, v)
		assert.False(t, called)
	})

	t.Run("failure runs the fallback with the primary error", func(t *testing.T) {
		var seen error
		r := Attempt(func() (int, error) { return 0, primaryErr }).OrElse(func(err error) Result[int] {
			seen = err
			return Ok(2)
		})
		assert.True(t, r.OK())
		assert.Equal(t, 2, r.ValueOr(-1))
		assert.ErrorIs(t, seen, primaryErr)
	})

	t.Run("both failing keeps both errors", func(t *testing.T) {
		fallbackErr := errors.New("fallback")
		r := Fail[int](primaryErr).OrElse(func(error) Result[int] { return Fail[int](fallbackErr) })
		assert.False(t, r.OK())
		assert.ErrorIs(t, r.Err(), primaryErr)
		assert.ErrorIs(t, r.Err(), fallbackErr)
		assert.Equal(t, -1, r.ValueOr(-1))
	})
}
