package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// ErrNoToken is returned when a login response carries no token
var ErrNoToken = errors.New("api: login response contained no token")

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse accepts {"token"}, {"accessToken"} and the same keys nested under "data".
type loginResponse struct {
	Token       string `json:"token"`
	AccessToken string `json:"accessToken"`
	Data        *struct {
		Token       json.RawMessage `json:"token"`
		AccessToken string          `json:"accessToken"`
	} `json:"data"`
}

func (r loginResponse) token() string {
	if r.Token != "" {
		return r.Token
	}
	if r.AccessToken != "" {
		return r.AccessToken
	}
	if r.Data == nil {
		return ""
	}
	if r.Data.AccessToken != "" {
		return r.Data.AccessToken
	}
	var s string
	if json.Unmarshal(r.Data.Token, &s) == nil {
		return s
	}
	var nested struct {
		AccessToken string `json:"access_token"`
	}
	if json.Unmarshal(r.Data.Token, &nested) == nil {
		return nested.AccessToken
	}
	return ""
}

// AuthService handles login and logout
type AuthService struct {
	c *Client
}

// Auth returns the auth endpoints of c
func (c *Client) Auth() *AuthService {
	return &AuthService{c: c}
}

// Login exchanges credentials for a bearer token and stores it in the session.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	resp, err := s.c.Do(ctx, Request{
		Op:     "auth.login",
		Method: http.MethodPost,
		Path:   "/auth/login",
		Body:   LoginRequest{Username: username, Password: password},
	})
	if err != nil {
		return "", err
	}

	var body loginResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	token := body.token()
	if token == "" {
		return "", ErrNoToken
	}

	if s.c.session != nil {
		if err := s.c.session.SetToken(token); err != nil {
			return "", err
		}
	}
	s.c.logger.Info("logged in", zap.String("user", username))
	return token, nil
}

// Logout notifies the backend and clears the local session. The session is
// cleared even when the backend call fails.
func (s *AuthService) Logout(ctx context.Context) error {
	_, err := s.c.Do(ctx, Request{Op: "auth.logout", Method: http.MethodPost, Path: "/auth/logout"})
	if err != nil {
		s.c.logger.Warn("logout request failed", zap.Error(err))
	}
	if s.c.session != nil {
		return s.c.session.Clear()
	}
	return nil
}
