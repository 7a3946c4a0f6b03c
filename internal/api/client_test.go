package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/yashgupta8707/jubilant-system/internal/metrics"
	"github.com/yashgupta8707/jubilant-system/internal/route"
	"github.com/yashgupta8707/jubilant-system/internal/session"
	"github.com/yashgupta8707/jubilant-system/internal/validation"
)

func newTestClient(t *testing.T, srv *httptest.Server, cfg Config, opts ...Option) *Client {
	t.Helper()
	cfg.BaseURL = srv.URL
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Millisecond
	}
	c, err := NewClient(cfg, opts...)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestNewClient(t *testing.T) {
	t.Run("requires base url", func(t *testing.T) {
		_, err := NewClient(Config{})
		assert.Error(t, err)
	})

	t.Run("rejects unparsable base url", func(t *testing.T) {
		_, err := NewClient(Config{BaseURL: "http://[::1"})
		assert.Error(t, err)
	})
}

func TestClient_Do(t *testing.T) {
	t.Run("sends json headers, request id and bearer token under the api prefix", func(t *testing.T) {
		var got *http.Request
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.Clone(context.Background())
			writeJSON(w, http.StatusOK, map[string]string{"ok": "yes"})
		}))
		defer srv.Close()

		sess := session.New(session.NewMemoryStore("tok-123"))
		require.NoError(t, sess.Init())
		c := newTestClient(t, srv, Config{}, WithSession(sess))

		resp, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/parties/P-1"})
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "/api/parties/P-1", got.URL.Path)
		assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer tok-123", got.Header.Get("Authorization"))
		assert.NotEmpty(t, got.Header.Get(RequestIDHeader))
		assert.Equal(t, resp.RequestID, got.Header.Get(RequestIDHeader))
	})

	t.Run("omits authorization without a token", func(t *testing.T) {
		var auth string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth = r.Header.Get("Authorization")
			writeJSON(w, http.StatusOK, []any{})
		}))
		defer srv.Close()

		c := newTestClient(t, srv, Config{}, WithSession(session.New(nil)))
		_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/brands"})
		require.NoError(t, err)
		assert.Empty(t, auth)
	})

	t.Run("401 clears the session and navigates to login", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Token expired"})
		}))
		defer srv.Close()

		nav := &route.Recorder{}
		store := session.NewMemoryStore("stale")
		sess := session.New(store, session.WithNavigator(nav))
		require.NoError(t, sess.Init())
		c := newTestClient(t, srv, Config{}, WithSession(sess))

		_, err := c.Parties().Get(context.Background(), "P-1")
		require.Error(t, err)

		assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
		assert.False(t, sess.IsAuthenticated())
		persisted, _ := store.Load()
		assert.Empty(t, persisted)
		assert.Equal(t, []string{route.Login}, nav.Paths())
	})

	t.Run("late 401 for a replaced token keeps the new session", func(t *testing.T) {
		sent := make(chan struct{})
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer old", r.Header.Get("Authorization"))
			close(sent)
			<-release
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Token expired"})
		}))
		defer srv.Close()

		nav := &route.Recorder{}
		store := session.NewMemoryStore("old")
		sess := session.New(store, session.WithNavigator(nav))
		require.NoError(t, sess.Init())
		c := newTestClient(t, srv, Config{}, WithSession(sess))

		errc := make(chan error, 1)
		go func() {
			_, err := c.Parties().Get(context.Background(), "P-1")
			errc <- err
		}()
		<-sent
		require.NoError(t, sess.SetToken("new"))
		close(release)

		err := <-errc
		assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
		assert.Equal(t, "new", sess.Token())
		persisted, _ := store.Load()
		assert.Equal(t, "new", persisted)
		assert.Empty(t, nav.Paths())
	})

	t.Run("retries GET on 5xx", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			writeJSON(w, http.StatusOK, []any{})
		}))
		defer srv.Close()

		c := newTestClient(t, srv, Config{MaxRetries: 2})
		_, err := c.Catalog().ListBrands(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("does not retry POST", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		c := newTestClient(t, srv, Config{MaxRetries: 3})
		_, err := c.Catalog().CreateBrand(context.Background(), "Acme")
		require.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())
		assert.Equal(t, http.StatusServiceUnavailable, StatusCode(err))
	})

	t.Run("transport failures wrap ErrTransport", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()

		c := newTestClient(t, srv, Config{})
		_, err := c.Catalog().ListCategories(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTransport)
		assert.Equal(t, 0, StatusCode(err))
	})

	t.Run("malformed bodies wrap ErrMalformedResponse", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "<html>oops</html>")
		}))
		defer srv.Close()

		c := newTestClient(t, srv, Config{})
		_, err := c.Catalog().SearchModels(context.Background(), "acme")
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("unwraps success envelopes", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"success": true,
				"data":    []map[string]string{{"_id": "c1", "name": "Networking"}},
			})
		}))
		defer srv.Close()

		c := newTestClient(t, srv, Config{})
		cats, err := c.Catalog().ListCategories(context.Background())
		require.NoError(t, err)
		require.Len(t, cats, 1)
		assert.Equal(t, "Networking", cats[0].Name)
	})

	t.Run("records metrics and spans", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Party not found"})
		}))
		defer srv.Close()

		recorder := tracetest.NewSpanRecorder()
		tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
		m := metrics.New()
		c := newTestClient(t, srv, Config{}, WithMetrics(m), WithTracerProvider(tp))

		_, err := c.Parties().Get(context.Background(), "missing")
		require.Error(t, err)
		assert.True(t, IsNotFound(err))

		spans := recorder.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, "parties.get", spans[0].Name())
		assert.Equal(t, "Error", spans[0].Status().Code.String())

		families, err := m.Registry().Gather()
		require.NoError(t, err)
		var found bool
		for _, mf := range families {
			if mf.GetName() == metrics.MetricRequestsTotal {
				found = true
			}
		}
		assert.True(t, found)
	})

	t.Run("rate limiter honours context cancellation", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, []any{})
		}))
		defer srv.Close()

		c := newTestClient(t, srv, Config{RateLimitQPS: 0.001, RateLimitBurst: 1})
		_, err := c.Catalog().ListBrands(context.Background())
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err = c.Catalog().ListBrands(ctx)
		assert.ErrorIs(t, err, ErrTransport)
	})
}

func TestParseError(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantMsg    string
		wantFields int
	}{
		{"message", `{"message":"Phone already exists"}`, "Phone already exists", 0},
		{"field errors", `{"errors":[{"field":"name","message":"required"},{"field":"phone","message":"invalid"}]}`, "", 2},
		{"error string", `{"error":"boom"}`, "boom", 0},
		{"error object", `{"success":false,"error":{"code":"VALIDATION","message":"Request validation failed","details":[{"field":"name","message":"x"}]}}`, "Request validation failed", 1},
		{"not json", `Internal Server Error`, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := parseError("op", &Response{StatusCode: 400, Body: []byte(tt.body)})
			assert.Equal(t, tt.wantMsg, e.Message)
			assert.Len(t, e.Errors, tt.wantFields)
			assert.Equal(t, 400, e.StatusCode)
		})
	}
}

func TestDisplayMessage(t *testing.T) {
	const fallback = "Failed to save client. Please try again."

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, fallback},
		{"server message", &Error{Message: "Duplicate phone"}, "Duplicate phone"},
		{
			"field errors joined",
			&Error{Errors: []validation.FieldError{{Field: "name", Message: "is required"}, {Field: "phone", Message: "is invalid"}}},
			"name: is required, phone: is invalid",
		},
		{"unstructured server error", &Error{StatusCode: 500}, fallback},
		{"other error", errors.New("network down"), "network down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayMessage(tt.err, fallback))
		})
	}
}
