package socket

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/nakama-client/internal/backoff"
	"github.com/rickgao/nakama-client/internal/matchmaker"
	"github.com/rickgao/nakama-client/internal/session"
	"github.com/rickgao/nakama-client/internal/transport"
)

func testSession(t *testing.T) *session.Session {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	body := base64.RawURLEncoding.EncodeToString([]byte(`{"exp":4102444800,"usn":"player1","uid":"u1"}`))
	sess, err := session.New(header+"."+body+".sig", "")
	if err != nil {
		t.Fatalf("session.New() error = %v", err)
	}
	return sess
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestConnect_WaitsForConnected(t *testing.T) {
	fa := &fakeAdapter{}
	s := New(fa, WithServer("example.test", 7351, true))
	runTicks(t, s)

	if err := s.Connect(testCtx(t), testSession(t), true); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if !s.IsConnected() {
		t.Error("IsConnected() = false after Connect")
	}

	fa.mu.Lock()
	dial := fa.dials[0]
	fa.mu.Unlock()
	if !strings.HasPrefix(dial, "wss://example.test:7351/ws?lang=en&status=true&token=") {
		t.Errorf("dial url = %q", dial)
	}
}

// redialFake records the address function handed to ConnectFunc.
type redialFake struct {
	*fakeAdapter
	addr func() string
}

func (r *redialFake) ConnectFunc(addr func() string, timeout time.Duration) {
	r.addr = addr
	r.fakeAdapter.Connect(addr(), timeout)
}

func TestConnect_RedialUsesReplacedToken(t *testing.T) {
	rf := &redialFake{fakeAdapter: &fakeAdapter{}}
	s := New(rf, WithServer("example.test", 7350, false))
	runTicks(t, s)

	sess := testSession(t)
	oldToken := sess.AuthToken()
	if err := s.Connect(testCtx(t), sess, false); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if rf.addr == nil {
		t.Fatal("ConnectFunc was not used")
	}
	if got := rf.addr(); !strings.HasSuffix(got, "token="+url.QueryEscape(oldToken)) {
		t.Errorf("addr() = %q, want old token", got)
	}

	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	body := base64.RawURLEncoding.EncodeToString([]byte(`{"exp":4102444900,"usn":"player1","uid":"u1"}`))
	newToken := header + "." + body + ".sig2"
	if err := sess.Replace(newToken, ""); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	got := rf.addr()
	if !strings.HasSuffix(got, "token="+url.QueryEscape(newToken)) {
		t.Errorf("addr() after Replace = %q, want new token", got)
	}
	if !strings.HasPrefix(got, "ws://example.test:7350/ws?") {
		t.Errorf("addr() after Replace = %q, want same host and port", got)
	}
}

func TestConnect_ContextDone(t *testing.T) {
	s, _ := newTestSocket(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// Nothing ticks, so the connected callback never fires.
	if err := s.Connect(ctx, testSession(t), false); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Connect() error = %v, want DeadlineExceeded", err)
	}
}

func TestJoinMatch_ByToken(t *testing.T) {
	s, fa := newTestSocket(t)
	fa.reply = func(req *Envelope) string {
		return `{"cid":"` + req.CID + `","match":{"match_id":"m1","self":{"user_id":"u1"}}}`
	}
	runTicks(t, s)

	m, err := s.JoinMatch(testCtx(t), MatchmakerMatched{Ticket: "t", Token: "mm-token"})
	if err != nil {
		t.Fatalf("JoinMatch() error = %v", err)
	}
	if m.MatchID != "m1" {
		t.Errorf("MatchID = %q, want m1", m.MatchID)
	}

	sent := fa.frames()[0]
	if sent.MatchJoin == nil || sent.MatchJoin.Token != "mm-token" || sent.MatchJoin.MatchID != "" {
		t.Errorf("sent match_join = %+v, want token only", sent.MatchJoin)
	}
}

func TestAddMatchmaker_SendsCompiledQuery(t *testing.T) {
	s, fa := newTestSocket(t)
	fa.reply = func(req *Envelope) string {
		return `{"cid":"` + req.CID + `","matchmaker_ticket":{"ticket":"tkt"}}`
	}
	runTicks(t, s)

	mm := matchmaker.New().Min(2).Max(4).AddStringProperty("region", "europe")
	if err := mm.Add(matchmaker.NewQueryItem("region").Term("europe").Required()); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	ticket, err := s.AddMatchmaker(testCtx(t), mm)
	if err != nil {
		t.Fatalf("AddMatchmaker() error = %v", err)
	}
	if ticket.Ticket != "tkt" {
		t.Errorf("Ticket = %q, want tkt", ticket.Ticket)
	}

	add := fa.frames()[0].MatchmakerAdd
	if add == nil {
		t.Fatal("no matchmaker_add sent")
	}
	if add.Query != "+properties.region:europe" {
		t.Errorf("Query = %q", add.Query)
	}
	if add.MinCount != 2 || add.MaxCount != 4 {
		t.Errorf("counts = %d..%d, want 2..4", add.MinCount, add.MaxCount)
	}
	if add.StringProperties["region"] != "europe" {
		t.Errorf("StringProperties = %v", add.StringProperties)
	}
}

func TestRPC_UnexpectedResponse(t *testing.T) {
	s, fa := newTestSocket(t)
	fa.reply = func(req *Envelope) string {
		return `{"cid":"` + req.CID + `"}`
	}
	runTicks(t, s)

	_, err := s.RPC(testCtx(t), "fn", "{}")
	if !errors.Is(err, ErrUnexpectedResponse) {
		t.Errorf("RPC() error = %v, want ErrUnexpectedResponse", err)
	}
}

func TestPartyAck(t *testing.T) {
	s, fa := newTestSocket(t)
	fa.reply = func(req *Envelope) string {
		return `{"cid":"` + req.CID + `"}`
	}
	runTicks(t, s)

	if err := s.JoinParty(testCtx(t), "p1"); err != nil {
		t.Fatalf("JoinParty() error = %v", err)
	}
	if got := fa.frames()[0].PartyJoin; got == nil || got.PartyID != "p1" {
		t.Errorf("sent party_join = %+v", got)
	}
}

func TestFireAndForget_NoCID(t *testing.T) {
	s, fa := newTestSocket(t)

	if err := s.SendPartyData("p1", 7, []byte("hello")); err != nil {
		t.Fatalf("SendPartyData() error = %v", err)
	}
	if err := s.LeaveMatch("m1"); err != nil {
		t.Fatalf("LeaveMatch() error = %v", err)
	}
	if err := s.UpdateStatus("busy"); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}

	raw := fa.raw(0)
	if strings.Contains(raw, `"cid"`) {
		t.Errorf("fire-and-forget frame has a cid: %s", raw)
	}
	if !strings.Contains(raw, `"op_code":"7"`) || !strings.Contains(raw, `"data":"aGVsbG8="`) {
		t.Errorf("party_data_send wire format = %s", raw)
	}
	if got := s.PendingCount(); got != 0 {
		t.Errorf("PendingCount() = %d, want 0", got)
	}
	if n := len(fa.frames()); n != 3 {
		t.Errorf("frames sent = %d, want 3", n)
	}
}

func TestRPCBytes_Base64Payload(t *testing.T) {
	s, fa := newTestSocket(t)
	fa.reply = func(req *Envelope) string {
		return `{"cid":"` + req.CID + `","rpc":{"id":"fn","payload":"ok"}}`
	}
	runTicks(t, s)

	if _, err := s.RPCBytes(testCtx(t), "fn", []byte{0xff, 0x00}); err != nil {
		t.Fatalf("RPCBytes() error = %v", err)
	}
	if got := fa.frames()[0].RPC.Payload; got != "/wA=" {
		t.Errorf("payload = %q, want /wA=", got)
	}
}

// TestSocket_OverWebSocket runs requests and pushes through a real adapter.
func TestSocket_OverWebSocket(t *testing.T) {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws" || r.URL.Query().Get("token") == "" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"notifications":{"notifications":[{"id":"n1"},{"id":"n2"}]}}`))
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var req Envelope
			if err := json.Unmarshal(data, &req); err != nil || req.RPC == nil {
				continue
			}
			resp, _ := json.Marshal(&Envelope{CID: req.CID, RPC: &RPC{ID: req.RPC.ID, Payload: "echo:" + req.RPC.Payload}})
			_ = conn.WriteMessage(websocket.TextMessage, resp)
		}
	}))
	defer server.Close()

	host, port := splitHostPort(t, server.URL)

	cfg := transport.DefaultConfig()
	cfg.PingInterval = 0
	cfg.Retry = backoff.Config{BaseDelay: time.Millisecond, MaxAttempts: 1, Delayer: backoff.NoopDelayer{}}
	adapter := transport.NewWebSocketAdapter(cfg, nil)
	s := New(adapter, WithServer(host, port, false))

	notes := make(chan string, 2)
	s.OnNotification(func(n Notification) { notes <- n.ID })
	runTicks(t, s)
	defer s.Close()

	ctx := testCtx(t)
	if err := s.Connect(ctx, testSession(t), true); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	rpc, err := s.RPC(ctx, "echo", "hi")
	if err != nil {
		t.Fatalf("RPC() error = %v", err)
	}
	if rpc.Payload != "echo:hi" {
		t.Errorf("Payload = %q, want echo:hi", rpc.Payload)
	}

	for _, want := range []string{"n1", "n2"} {
		select {
		case got := <-notes:
			if got != want {
				t.Errorf("notification = %q, want %q", got, want)
			}
		case <-ctx.Done():
			t.Fatal("timed out waiting for notifications")
		}
	}
}

func splitHostPort(t *testing.T, rawURL string) (string, int) {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatalf("split host: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}
	return host, port
}
