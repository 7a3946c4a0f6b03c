// Package session holds the process-wide authentication state: the bearer
// token, its persistence, and the teardown triggered by a 401 response.
package session

import (
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/yashgupta8707/jubilant-system/internal/route"
)

// Session is the bearer-token context shared by every API call.
type Session struct {
	mu     sync.RWMutex
	token  string
	store  TokenStore
	nav    route.Navigator
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Session
type Option func(*Session)

// WithNavigator sets where HandleUnauthorized sends the user
func WithNavigator(nav route.Navigator) Option {
	return func(s *Session) { s.nav = nav }
}

// WithLogger sets the session logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) { s.logger = logger.Named("session") }
}

// WithClock overrides the clock used for token expiry checks
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// New creates a session backed by store. A nil store keeps the token in memory.
func New(store TokenStore, opts ...Option) *Session {
	if store == nil {
		store = NewMemoryStore("")
	}
	s := &Session{
		store:  store,
		nav:    route.Discard,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init reads the persisted token. An expired JWT is discarded and removed from the store.
func (s *Session) Init() error {
	token, err := s.store.Load()
	if err != nil {
		return err
	}

	if exp, ok := expiry(token); ok && !exp.After(s.now()) {
		s.logger.Info("discarding expired token", zap.Time("expired_at", exp))
		if err := s.store.Clear(); err != nil {
			return err
		}
		token = ""
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

// Token returns the current bearer token, or "" when unauthenticated
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// IsAuthenticated reports whether a token is present
func (s *Session) IsAuthenticated() bool {
	return s.Token() != ""
}

// ExpiresAt returns the exp claim of the current token, if it is a JWT carrying one.
func (s *Session) ExpiresAt() (time.Time, bool) {
	return expiry(s.Token())
}

// SetToken replaces the token and persists it
func (s *Session) SetToken(token string) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return s.store.Save(token)
}

// Clear drops the token from memory and from the store
func (s *Session) Clear() error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	return s.store.Clear()
}

// HandleUnauthorized tears the session down after a 401 and navigates to the login entry point.
func (s *Session) HandleUnauthorized() {
	s.HandleUnauthorizedFor(s.Token())
}

// HandleUnauthorizedFor is HandleUnauthorized for a 401 answering a request
// sent with token. It does nothing once token has been replaced, and reports
// whether the session was torn down.
func (s *Session) HandleUnauthorizedFor(token string) bool {
	s.mu.Lock()
	if s.token != token {
		s.mu.Unlock()
		s.logger.Debug("ignoring unauthorized response for a replaced token")
		return false
	}
	s.token = ""
	err := s.store.Clear()
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("failed to clear persisted token", zap.Error(err))
	}
	s.logger.Info("session cleared after unauthorized response")
	s.nav.Navigate(route.Login)
	return true
}

// Authenticate attaches the bearer token to req when one is present and
// returns the token it attached.
func (s *Session) Authenticate(req *http.Request) string {
	token := s.Token()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return token
}

// expiry reads the exp claim without verifying the signature.
func expiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
