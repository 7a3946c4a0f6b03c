// Package mockapi is an in-memory gin backend implementing the CRM HTTP
// contract. It backs the CLI's serve-mock command and the end-to-end tests.
package mockapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Context keys set by the middleware
const (
	RequestIDKey = "request_id"
	UsernameKey  = "username"
)

const (
	requestIDHeader = "X-Request-ID"
	bearerPrefix    = "Bearer "
	apiPrefix       = "/api"
)

// ErrInvalidToken is returned for bearer tokens that do not verify
var ErrInvalidToken = errors.New("mockapi: invalid token")

// Config configures a Server
type Config struct {
	// RequireAuth rejects API calls without a valid bearer token.
	RequireAuth bool
	JWTSecret   string
	TokenTTL    time.Duration
	Username    string
	Password    string
	Logger      *zap.Logger
}

// DefaultConfig returns an open server with admin/admin credentials
func DefaultConfig() Config {
	return Config{
		JWTSecret: "crm-mock-secret",
		TokenTTL:  24 * time.Hour,
		Username:  "admin",
		Password:  "admin",
	}
}

// Fault is a canned response injected in place of a route's handler
type Fault struct {
	Status int
	Body   any
	Delay  time.Duration
}

// Server is the mock backend.
//
// Thread Safety: Safe for concurrent use by multiple goroutines.
type Server struct {
	cfg      Config
	store    *Store
	engine   *gin.Engine
	logger   *zap.Logger
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	mu     sync.RWMutex
	faults map[string]Fault
}

// New creates a server over store
func New(store *Store, cfg Config) *Server {
	def := DefaultConfig()
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = def.JWTSecret
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = def.TokenTTL
	}
	if cfg.Username == "" {
		cfg.Username, cfg.Password = def.Username, def.Password
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		store = NewStore()
	}

	s := &Server{
		cfg:      cfg,
		store:    store,
		logger:   logger.Named("mockapi"),
		registry: prometheus.NewRegistry(),
		faults:   make(map[string]Fault),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crm_mock_http_requests_total",
			Help: "Requests served by the mock backend",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "crm_mock_http_request_duration_seconds",
			Help:    "Latency of mock backend requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	s.registry.MustRegister(s.requestsTotal, s.requestDuration)
	s.engine = s.routes()
	return s
}

// Store returns the backing store
func (s *Server) Store() *Store { return s.store }

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler { return s.engine }

// Registry returns the metrics registry served on /metrics
func (s *Server) Registry() *prometheus.Registry { return s.registry }

// SetFault makes the route matching method and path (the route pattern,
// e.g. "/api/models/search") answer with f until cleared.
func (s *Server) SetFault(method, path string, f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[method+" "+path] = f
}

// ClearFaults removes every injected fault
func (s *Server) ClearFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.faults)
}

// IssueToken signs an HS256 token for username
func (s *Server) IssueToken(username string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
}

// VerifyToken validates a token issued by IssueToken and returns its subject
func (s *Server) VerifyToken(token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", errors.Join(ErrInvalidToken, err)
	}
	return claims.Subject, nil
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("mock backend listening", zap.String("addr", addr), zap.Bool("require_auth", s.cfg.RequireAuth))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestID(), s.accessLog(), s.observe())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	api := r.Group(apiPrefix, s.inject(), s.authenticate())
	{
		api.POST("/auth/login", s.login)
		api.POST("/auth/logout", s.logout)

		api.GET("/categories", s.listCategories)
		api.POST("/categories", s.createCategory)
		api.GET("/brands", s.listBrands)
		api.POST("/brands", s.createBrand)

		api.GET("/models", s.listModels)
		api.GET("/components", s.listModels)
		api.GET("/models/search", s.searchModels)
		api.POST("/models", s.createModel)

		api.GET("/parties", s.listParties)
		api.POST("/parties", s.createParty)
		api.GET("/parties/:id", s.getParty)
		api.PUT("/parties/:id", s.updateParty)
		api.DELETE("/parties/:id", s.deleteParty)
		api.POST("/parties/:id/comments", s.addComment)

		api.GET("/quotations", s.listQuotations)
		api.GET("/quotations/party/:partyId", s.listPartyQuotations)
		api.GET("/quotations/:id", s.getQuotation)
	}
	return r
}

// requestID echoes the caller's X-Request-ID or assigns a new one
func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDKey, id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("query", c.Request.URL.RawQuery),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString(RequestIDKey)),
		)
	}
}

func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.requestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		s.requestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// inject answers with an injected fault for the matched route
func (s *Server) inject() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.RLock()
		f, ok := s.faults[c.Request.Method+" "+c.FullPath()]
		s.mu.RUnlock()
		if !ok {
			c.Next()
			return
		}

		if f.Delay > 0 {
			select {
			case <-time.After(f.Delay):
			case <-c.Request.Context().Done():
				c.Abort()
				return
			}
		}
		if f.Status == 0 {
			c.Next()
			return
		}
		if f.Body == nil {
			c.AbortWithStatus(f.Status)
			return
		}
		if raw, ok := f.Body.(string); ok {
			c.Data(f.Status, "application/json", []byte(raw))
			c.Abort()
			return
		}
		c.AbortWithStatusJSON(f.Status, f.Body)
	}
}

func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasSuffix(c.FullPath(), "/auth/login") {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			if s.cfg.RequireAuth {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Authentication required"})
				return
			}
			c.Next()
			return
		}

		username, err := s.VerifyToken(strings.TrimPrefix(header, bearerPrefix))
		if err != nil {
			s.logger.Debug("token rejected", zap.Error(err))
			if s.cfg.RequireAuth {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token"})
				return
			}
			c.Next()
			return
		}
		c.Set(UsernameKey, username)
		c.Next()
	}
}
