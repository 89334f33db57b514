package session

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

// makeToken builds an unsigned JWT carrying the given claims.
func makeToken(t *testing.T, payload map[string]any) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return header + "." + base64.RawURLEncoding.EncodeToString(body) + ".signature"
}

var baseTime = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNew(t *testing.T) {
	exp := baseTime.Add(time.Hour)
	auth := makeToken(t, map[string]any{
		"exp": exp.Unix(),
		"usn": "player1",
		"uid": "3c2f6a8e-user",
		"vrs": map[string]string{"region": "eu"},
	})
	refresh := makeToken(t, map[string]any{"exp": baseTime.Add(24 * time.Hour).Unix()})

	s, err := New(auth, refresh)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if s.AuthToken() != auth {
		t.Errorf("AuthToken() = %q, want %q", s.AuthToken(), auth)
	}
	if rt, ok := s.RefreshToken(); !ok || rt != refresh {
		t.Errorf("RefreshToken() = %q, %v, want %q, true", rt, ok, refresh)
	}
	if s.Username() != "player1" {
		t.Errorf("Username() = %q, want %q", s.Username(), "player1")
	}
	if s.UserID() != "3c2f6a8e-user" {
		t.Errorf("UserID() = %q, want %q", s.UserID(), "3c2f6a8e-user")
	}
	if s.Vars()["region"] != "eu" {
		t.Errorf("Vars()[region] = %q, want %q", s.Vars()["region"], "eu")
	}
	if !s.ExpiresAt().Equal(exp) {
		t.Errorf("ExpiresAt() = %v, want %v", s.ExpiresAt(), exp)
	}
	if !s.RefreshExpiresAt().Equal(baseTime.Add(24 * time.Hour)) {
		t.Errorf("RefreshExpiresAt() = %v, want %v", s.RefreshExpiresAt(), baseTime.Add(24*time.Hour))
	}
	if !s.AutoRefresh() {
		t.Error("AutoRefresh() = false, want true by default")
	}
}

func TestNew_NoRefreshToken(t *testing.T) {
	auth := makeToken(t, map[string]any{"exp": baseTime.Unix()})

	s, err := New(auth, "", WithClock(fixedClock(baseTime.Add(time.Hour))))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if _, ok := s.RefreshToken(); ok {
		t.Error("RefreshToken() ok = true, want false")
	}
	if s.IsRefreshExpired() {
		t.Error("IsRefreshExpired() = true without a refresh token")
	}
	if s.NeedsRefresh() {
		t.Error("NeedsRefresh() = true without a refresh token")
	}
}

func TestNew_Malformed(t *testing.T) {
	valid := makeToken(t, map[string]any{"exp": baseTime.Unix()})

	tests := []struct {
		name    string
		auth    string
		refresh string
	}{
		{"two segments", "abc.def", ""},
		{"bad base64", "abc.!!!.def", ""},
		{"not json", "abc." + base64.RawURLEncoding.EncodeToString([]byte("nope")) + ".def", ""},
		{"bad refresh", valid, "only-one-segment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.auth, tt.refresh)
			if !errors.Is(err, ErrMalformedToken) {
				t.Errorf("New() error = %v, want ErrMalformedToken", err)
			}
		})
	}
}

func TestExpiryPredicates(t *testing.T) {
	exp := baseTime
	auth := makeToken(t, map[string]any{"exp": exp.Unix()})
	s, err := New(auth, "")
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	tests := []struct {
		name    string
		at      time.Time
		expired bool
		soon    bool
	}{
		{"well before", exp.Add(-time.Hour), false, false},
		{"just outside window", exp.Add(-5*time.Minute - time.Second), false, false},
		{"window edge", exp.Add(-5 * time.Minute), false, true},
		{"inside window", exp.Add(-time.Minute), false, true},
		{"one before expiry", exp.Add(-time.Second), false, true},
		{"at expiry", exp, true, true},
		{"after expiry", exp.Add(time.Hour), true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.IsExpiredAt(tt.at); got != tt.expired {
				t.Errorf("IsExpiredAt() = %v, want %v", got, tt.expired)
			}
			if got := s.WillExpireSoonAt(tt.at); got != tt.soon {
				t.Errorf("WillExpireSoonAt() = %v, want %v", got, tt.soon)
			}
		})
	}
}

func TestIsRefreshExpired(t *testing.T) {
	auth := makeToken(t, map[string]any{"exp": baseTime.Unix()})
	refresh := makeToken(t, map[string]any{"exp": baseTime.Add(time.Hour).Unix()})

	s, err := New(auth, refresh)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if s.IsRefreshExpiredAt(baseTime) {
		t.Error("IsRefreshExpiredAt(before) = true, want false")
	}
	if !s.IsRefreshExpiredAt(baseTime.Add(time.Hour)) {
		t.Error("IsRefreshExpiredAt(at expiry) = false, want true")
	}
}

func TestNeedsRefresh(t *testing.T) {
	auth := makeToken(t, map[string]any{"exp": baseTime.Unix()})
	refresh := makeToken(t, map[string]any{"exp": baseTime.Add(time.Hour).Unix()})

	tests := []struct {
		name        string
		now         time.Time
		refresh     string
		autoRefresh bool
		want        bool
	}{
		{"expiring with refresh", baseTime.Add(-time.Minute), refresh, true, true},
		{"not expiring", baseTime.Add(-time.Hour), refresh, true, false},
		{"auto refresh disabled", baseTime.Add(-time.Minute), refresh, false, false},
		{"no refresh token", baseTime.Add(-time.Minute), "", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(auth, tt.refresh,
				WithClock(fixedClock(tt.now)),
				WithAutoRefresh(tt.autoRefresh),
			)
			if err != nil {
				t.Fatalf("New() error: %v", err)
			}
			if got := s.NeedsRefresh(); got != tt.want {
				t.Errorf("NeedsRefresh() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReplace(t *testing.T) {
	oldAuth := makeToken(t, map[string]any{"exp": baseTime.Unix(), "usn": "old"})
	s, err := New(oldAuth, "", WithClock(fixedClock(baseTime)))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if !s.IsExpired() {
		t.Fatal("IsExpired() = false before replace, want true")
	}

	newAuth := makeToken(t, map[string]any{
		"exp": baseTime.Add(2 * time.Hour).Unix(),
		"usn": "new",
		"vrs": map[string]string{"k": "v"},
	})
	newRefresh := makeToken(t, map[string]any{"exp": baseTime.Add(48 * time.Hour).Unix()})

	if err := s.Replace(newAuth, newRefresh); err != nil {
		t.Fatalf("Replace() error: %v", err)
	}

	if s.AuthToken() != newAuth {
		t.Error("AuthToken() not replaced")
	}
	if rt, ok := s.RefreshToken(); !ok || rt != newRefresh {
		t.Error("RefreshToken() not replaced")
	}
	if s.Username() != "new" {
		t.Errorf("Username() = %q, want %q", s.Username(), "new")
	}
	if s.Vars()["k"] != "v" {
		t.Error("Vars() not recomputed")
	}
	if s.IsExpired() {
		t.Error("IsExpired() = true after replace, want false")
	}
}

func TestReplace_InvalidKeepsState(t *testing.T) {
	auth := makeToken(t, map[string]any{"exp": baseTime.Unix(), "usn": "keep"})
	s, err := New(auth, "")
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if err := s.Replace("garbage", ""); !errors.Is(err, ErrMalformedToken) {
		t.Errorf("Replace() error = %v, want ErrMalformedToken", err)
	}
	if s.AuthToken() != auth || s.Username() != "keep" {
		t.Error("session changed after failed replace")
	}
}

func TestVars_ReturnsCopy(t *testing.T) {
	auth := makeToken(t, map[string]any{"exp": baseTime.Unix(), "vrs": map[string]string{"a": "1"}})
	s, _ := New(auth, "")

	vars := s.Vars()
	vars["a"] = "changed"

	if s.Vars()["a"] != "1" {
		t.Error("mutating Vars() result changed session state")
	}
}

func TestConcurrentAccess(t *testing.T) {
	tokens := []string{
		makeToken(t, map[string]any{"exp": baseTime.Unix(), "usn": "a"}),
		makeToken(t, map[string]any{"exp": baseTime.Add(time.Hour).Unix(), "usn": "b"}),
	}
	s, _ := New(tokens[0], "")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			s.Replace(tokens[i%2], "")
		}(i)
		go func() {
			defer wg.Done()
			tok := s.AuthToken()
			if tok != tokens[0] && tok != tokens[1] {
				t.Errorf("AuthToken() = %q, want one of the issued tokens", tok)
			}
			s.WillExpireSoon()
		}()
	}
	wg.Wait()
}
