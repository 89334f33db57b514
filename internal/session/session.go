package session

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ExpirySoonWindow is how far ahead WillExpireSoon looks.
const ExpirySoonWindow = 5 * time.Minute

// Errors
var (
	ErrMalformedToken = errors.New("malformed token")
)

// claims is the decoded JWT payload issued by the server.
type claims struct {
	Exp  int64             `json:"exp"`
	Usn  string            `json:"usn"`
	UID  string            `json:"uid"`
	Vars map[string]string `json:"vrs"`
}

// Session holds an access/refresh token pair and the metadata decoded from it.
//
// Token payloads are decoded without verifying the signature. The tokens are
// trusted because they were just issued by the server over the same channel
// the client authenticated on; a Session must never be built from a token
// received from anywhere else.
type Session struct {
	mu sync.RWMutex

	authToken    string
	refreshToken string

	expiresAt        time.Time
	refreshExpiresAt time.Time
	username         string
	userID           string
	vars             map[string]string

	autoRefresh bool
	now         func() time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithClock sets the time source used by the expiry predicates.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// WithAutoRefresh enables or disables proactive refresh. Enabled by default.
func WithAutoRefresh(enabled bool) Option {
	return func(s *Session) {
		s.autoRefresh = enabled
	}
}

// New decodes authToken (and refreshToken, when non-empty) into a Session.
func New(authToken, refreshToken string, opts ...Option) (*Session, error) {
	s := &Session{
		autoRefresh: true,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.set(authToken, refreshToken); err != nil {
		return nil, err
	}
	return s, nil
}

// Replace swaps both tokens and recomputes the decoded metadata. The previous
// tokens must be treated as invalid afterwards. On error the session is left
// unchanged.
func (s *Session) Replace(authToken, refreshToken string) error {
	return s.set(authToken, refreshToken)
}

func (s *Session) set(authToken, refreshToken string) error {
	access, err := decodeClaims(authToken)
	if err != nil {
		return fmt.Errorf("decode auth token: %w", err)
	}

	var refreshExp time.Time
	if refreshToken != "" {
		refresh, err := decodeClaims(refreshToken)
		if err != nil {
			return fmt.Errorf("decode refresh token: %w", err)
		}
		refreshExp = time.Unix(refresh.Exp, 0)
	}

	vars := make(map[string]string, len(access.Vars))
	for k, v := range access.Vars {
		vars[k] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.authToken = authToken
	s.refreshToken = refreshToken
	s.expiresAt = time.Unix(access.Exp, 0)
	s.refreshExpiresAt = refreshExp
	s.username = access.Usn
	s.userID = access.UID
	s.vars = vars
	return nil
}

// decodeClaims decodes the middle segment of a three-part JWT.
func decodeClaims(token string) (claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return claims{}, fmt.Errorf("%w: expected 3 segments, got %d", ErrMalformedToken, len(parts))
	}

	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return claims{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	var c claims
	if err := json.Unmarshal(payload, &c); err != nil {
		return claims{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return c, nil
}

// AuthToken returns the current access token.
func (s *Session) AuthToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authToken
}

// RefreshToken returns the current refresh token, if one was issued.
func (s *Session) RefreshToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken, s.refreshToken != ""
}

func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// Vars returns a copy of the variables embedded in the access token.
func (s *Session) Vars() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.vars))
	for k, v := range s.vars {
		out[k] = v
	}
	return out
}

func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// RefreshExpiresAt returns the zero time when no refresh token is held.
func (s *Session) RefreshExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshExpiresAt
}

func (s *Session) AutoRefresh() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.autoRefresh
}

// SetAutoRefresh toggles proactive refresh.
func (s *Session) SetAutoRefresh(enabled bool) {
	s.mu.Lock()
	s.autoRefresh = enabled
	s.mu.Unlock()
}

// IsExpired reports whether the access token has expired.
func (s *Session) IsExpired() bool {
	return s.IsExpiredAt(s.now())
}

// IsExpiredAt reports whether the access token is expired at t.
func (s *Session) IsExpiredAt(t time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !t.Before(s.expiresAt)
}

// WillExpireSoon reports whether the access token expires within
// ExpirySoonWindow.
func (s *Session) WillExpireSoon() bool {
	return s.WillExpireSoonAt(s.now())
}

func (s *Session) WillExpireSoonAt(t time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !t.Add(ExpirySoonWindow).Before(s.expiresAt)
}

// IsRefreshExpired reports whether the refresh token has expired. It is
// always false when no refresh token is held.
func (s *Session) IsRefreshExpired() bool {
	return s.IsRefreshExpiredAt(s.now())
}

func (s *Session) IsRefreshExpiredAt(t time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.refreshToken == "" {
		return false
	}
	return !t.Before(s.refreshExpiresAt)
}

// NeedsRefresh reports whether a refresh exchange should run before the
// next authenticated request.
func (s *Session) NeedsRefresh() bool {
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.autoRefresh && s.refreshToken != "" && !now.Add(ExpirySoonWindow).Before(s.expiresAt)
}
