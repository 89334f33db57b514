package refresher

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rickgao/nakama-client/internal/api"
	"github.com/rickgao/nakama-client/internal/session"
)

func makeToken(t *testing.T, exp time.Time, n int) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	body, err := json.Marshal(map[string]any{"exp": exp.Unix(), "uid": "user-1", "n": n})
	if err != nil {
		t.Fatalf("marshal claims: %v", err)
	}
	return header + "." + base64.RawURLEncoding.EncodeToString(body) + ".sig"
}

// mockClient swaps in a fresh token pair on every call.
type mockClient struct {
	t     *testing.T
	calls atomic.Int32
	err   error
}

func (m *mockClient) RefreshIfNeeded(_ context.Context, sess *session.Session) error {
	n := m.calls.Add(1)
	if m.err != nil {
		return m.err
	}
	refresh, _ := sess.RefreshToken()
	return sess.Replace(makeToken(m.t, time.Now().Add(time.Hour), int(n)), refresh)
}

func expiringSession(t *testing.T) *session.Session {
	t.Helper()
	sess, err := session.New(
		makeToken(t, time.Now().Add(time.Minute), 0),
		makeToken(t, time.Now().Add(24*time.Hour), 0),
	)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	return sess
}

func TestRefresher_Check(t *testing.T) {
	client := &mockClient{t: t}
	sess := expiringSession(t)

	var handled atomic.Int32
	handler := HandlerFunc(func(_ context.Context, s *session.Session) error {
		handled.Add(1)
		return nil
	})

	r := New(DefaultConfig(), client, sess, handler, nil)
	r.ctx = context.Background()

	if !r.check() {
		t.Fatal("check() = false, want true for an expiring session")
	}
	if got := handled.Load(); got != 1 {
		t.Errorf("handled = %d, want 1", got)
	}

	// Fresh token now, nothing to do.
	if r.check() {
		t.Error("check() = true after refresh, want false")
	}
	if got := client.calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
	if stats := r.Stats(); stats.Refreshed != 1 || stats.Failed != 0 {
		t.Errorf("Stats() = %+v, want 1 refreshed", stats)
	}
}

func TestRefresher_CheckFailure(t *testing.T) {
	client := &mockClient{t: t, err: errors.New("server unavailable")}
	sess := expiringSession(t)

	var handled atomic.Int32
	r := New(DefaultConfig(), client, sess, HandlerFunc(func(context.Context, *session.Session) error {
		handled.Add(1)
		return nil
	}), nil)
	r.ctx = context.Background()

	if r.check() {
		t.Error("check() = true, want false on failure")
	}
	if handled.Load() != 0 {
		t.Error("handler should not run when the refresh fails")
	}
	if stats := r.Stats(); stats.Failed != 1 {
		t.Errorf("Stats().Failed = %d, want 1", stats.Failed)
	}
}

func TestRefresher_AutoRefreshDisabled(t *testing.T) {
	client := &mockClient{t: t}
	sess := expiringSession(t)
	sess.SetAutoRefresh(false)

	r := New(DefaultConfig(), client, sess, nil, nil)
	r.ctx = context.Background()

	if r.check() {
		t.Error("check() = true, want false with auto refresh off")
	}
	if client.calls.Load() != 0 {
		t.Error("client should not be called with auto refresh off")
	}
}

func TestRefresher_StartStop(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/account/session/refresh" {
			http.NotFound(w, r)
			return
		}
		n := hits.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"token": makeToken(t, time.Now().Add(time.Hour), int(n)),
		})
	}))
	defer server.Close()

	client := api.NewClient(server.URL, "defaultkey", api.WithTimeout(5*time.Second))
	sess := expiringSession(t)

	var called atomic.Bool
	handler := HandlerFunc(func(context.Context, *session.Session) error {
		called.Store(true)
		return nil
	})

	cfg := Config{
		Interval: 50 * time.Millisecond,
		Timeout:  5 * time.Second,
	}
	r := New(cfg, client, sess, handler, nil)

	ctx := context.Background()
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Wait for the initial check and a few ticks.
	time.Sleep(200 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := r.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if !called.Load() {
		t.Error("handler was never called")
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("refresh requests = %d, want 1", got)
	}
	if sess.WillExpireSoon() {
		t.Error("session should hold a fresh token after Start")
	}
}
