// ABOUTME: Bearer session lifecycle against the directory backend
// ABOUTME: Performs login and keeps the token fresh with a background re-login loop

package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// minRefreshInterval is the lowest re-login interval the session will run with.
const minRefreshInterval = 15 * time.Second

// loginPath is the backend's simple-login endpoint.
const loginPath = "/auth/simple/login"

// Session owns the bearer token for the directory backend. It is the only
// component holding directory credentials; clients borrow the token per call
// via Token.
type Session struct {
	baseURL  string
	username string
	password string
	interval time.Duration
	http     *http.Client
	logger   *slog.Logger

	mu    sync.RWMutex
	token string
}

// NewSession creates a session for the given backend and credentials.
// The refresh interval is clamped to the 15 second minimum.
func NewSession(baseURL, username, password string, interval time.Duration, logger *slog.Logger) *Session {
	if interval < minRefreshInterval {
		interval = minRefreshInterval
	}
	return &Session{
		baseURL:  baseURL,
		username: username,
		password: password,
		interval: interval,
		http:     &http.Client{},
		logger:   logger,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login authenticates against the backend and replaces the session token.
// On any failure the previous token (if any) is left untouched.
func (s *Session) Login(ctx context.Context) error {
	body, err := json.Marshal(loginRequest{Username: s.username, Password: s.password})
	if err != nil {
		return fmt.Errorf("encoding login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+loginPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: login request: %v", ErrAuth, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: login returned %d: %s", ErrAuth, resp.StatusCode, bytes.TrimSpace(msg))
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("%w: decoding login response: %v", ErrAuth, err)
	}
	if lr.Token == "" {
		return fmt.Errorf("%w: login response carried no token", ErrAuth)
	}

	s.mu.Lock()
	s.token = lr.Token
	s.mu.Unlock()

	s.logTokenExpiry(lr.Token)
	return nil
}

// Token returns the current bearer token. It fails with ErrNotAuthenticated
// until the first successful Login and never blocks on the network.
func (s *Session) Token() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", ErrNotAuthenticated
	}
	return s.token, nil
}

// RefreshLoop re-logs-in every refresh interval until ctx is cancelled.
// A login failure ends the loop with an error: the session is considered
// unrecoverable and the process is expected to exit. Cancellation returns nil.
func (s *Session) RefreshLoop(ctx context.Context) error {
	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			if err := s.Login(ctx); err != nil {
				return fmt.Errorf("session refresh: %w", err)
			}
			s.logger.Debug("session token refreshed", "interval", s.interval)
			timer.Reset(s.interval)
		}
	}
}

// logTokenExpiry inspects the bearer token as an unverified JWT and logs
// its expiry. The signature belongs to the backend; we only read claims.
func (s *Session) logTokenExpiry(token string) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		s.logger.Debug("session token is not a JWT", "error", err)
		return
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return
	}
	s.logger.Info("logged in to directory", "token_expires", exp.Time)
	if ttl := time.Until(exp.Time); ttl < s.interval {
		s.logger.Warn("refresh interval exceeds token validity",
			"interval", s.interval,
			"token_ttl", ttl,
		)
	}
}
