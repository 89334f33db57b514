package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"

	"github.com/rickgao/nakama-client/internal/backoff"
)

// WebSocketAdapter is an Adapter over a gorilla/websocket connection that
// reconnects with jittered exponential backoff after abnormal closes.
type WebSocketAdapter struct {
	cfg    Config
	logger *slog.Logger
	dialer *websocket.Dialer

	// Written by connection goroutines, drained only by Tick.
	events chan event

	history backoff.History

	// State
	mu         sync.RWMutex
	state      State
	conn       *websocket.Conn
	gen        uint64
	ctx        context.Context
	cancel     context.CancelFunc
	addr       func() string
	timeout    time.Duration
	lastPongAt time.Time
	closed     bool // Close ran; reported on the next Tick

	// Write serialization
	writeMu sync.Mutex

	cbMu        sync.RWMutex
	onConnected func()
	onClosed    func(error)
	onReceived  func([]byte, error)
}

var (
	_ Adapter  = (*WebSocketAdapter)(nil)
	_ Redialer = (*WebSocketAdapter)(nil)
)

// NewWebSocketAdapter creates an adapter. Nothing is dialed until Connect.
func NewWebSocketAdapter(cfg Config, logger *slog.Logger) *WebSocketAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.EventBufferSize <= 0 {
		cfg.EventBufferSize = DefaultConfig().EventBufferSize
	}

	return &WebSocketAdapter{
		cfg:    cfg,
		logger: logger,
		dialer: &websocket.Dialer{},
		events: make(chan event, cfg.EventBufferSize),
	}
}

func (a *WebSocketAdapter) OnConnected(fn func()) {
	a.cbMu.Lock()
	a.onConnected = fn
	a.cbMu.Unlock()
}

func (a *WebSocketAdapter) OnClosed(fn func(err error)) {
	a.cbMu.Lock()
	a.onClosed = fn
	a.cbMu.Unlock()
}

func (a *WebSocketAdapter) OnReceived(fn func(data []byte, err error)) {
	a.cbMu.Lock()
	a.onReceived = fn
	a.cbMu.Unlock()
}

// Connect starts a new connection cycle to addr. It is a no-op while a
// connection is being established or is open. Retry history from any
// previous cycle is discarded.
func (a *WebSocketAdapter) Connect(addr string, timeout time.Duration) {
	a.ConnectFunc(func() string { return addr }, timeout)
}

// ConnectFunc is like Connect but calls addr before every dial, so
// reconnects pick up credentials that changed after the first dial.
func (a *WebSocketAdapter) ConnectFunc(addr func() string, timeout time.Duration) {
	a.mu.Lock()
	if a.state == StateConnecting || a.state == StateConnected {
		state := a.state
		a.mu.Unlock()
		a.logger.Debug("connect ignored", "state", state)
		return
	}
	a.addr = addr
	a.timeout = timeout
	gen, ctx := a.newCycleLocked()
	a.state = StateConnecting
	a.mu.Unlock()

	a.history.Reset()
	a.logger.Debug("connecting", "timeout", timeout)

	go a.dial(ctx, gen, addr, timeout)
}

// newCycleLocked cancels the current cycle and starts a new one. Events
// tagged with an older generation are ignored by Tick.
func (a *WebSocketAdapter) newCycleLocked() (uint64, context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
	a.gen++
	a.ctx, a.cancel = context.WithCancel(context.Background())
	return a.gen, a.ctx
}

// Close gracefully closes the connection and stops any pending reconnect.
func (a *WebSocketAdapter) Close() error {
	a.mu.Lock()
	if a.state == StateDisconnected {
		a.mu.Unlock()
		return nil
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	notify := a.state != StateClosedClean
	a.gen++
	conn := a.conn
	a.conn = nil
	a.state = StateDisconnected
	if notify {
		a.closed = true
	}
	a.mu.Unlock()

	if conn == nil {
		return nil
	}

	a.writeMu.Lock()
	conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	a.writeMu.Unlock()
	return conn.Close()
}

// Send writes one text frame.
func (a *WebSocketAdapter) Send(data []byte, _ bool) error {
	a.mu.RLock()
	if a.state != StateConnected || a.conn == nil {
		a.mu.RUnlock()
		return ErrNotConnected
	}
	conn := a.conn
	a.mu.RUnlock()

	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(a.cfg.WriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

func (a *WebSocketAdapter) IsConnected() bool {
	return a.State() == StateConnected
}

// IsConnecting reports whether a dial is in progress or scheduled.
func (a *WebSocketAdapter) IsConnecting() bool {
	s := a.State()
	return s == StateConnecting || s == StateReconnectScheduled
}

// State returns the current lifecycle state.
func (a *WebSocketAdapter) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// RetryHistory returns the number of reconnect attempts in the current
// failure episode.
func (a *WebSocketAdapter) RetryHistory() int {
	return a.history.Len()
}

// Tick dispatches the events buffered since the last call.
func (a *WebSocketAdapter) Tick() {
	a.mu.Lock()
	closed := a.closed
	a.closed = false
	a.mu.Unlock()
	if closed {
		a.logger.Info("websocket closed")
		a.fireClosed(nil)
	}

	for n := len(a.events); n > 0; n-- {
		select {
		case ev := <-a.events:
			a.handle(ev)
		default:
			return
		}
	}
}

// handle applies one event. Every case checks the generation under the same
// lock that it mutates state with, since Close may run between events.
func (a *WebSocketAdapter) handle(ev event) {
	switch ev.kind {
	case eventConnected:
		a.mu.Lock()
		if ev.gen != a.gen || a.conn == nil {
			a.mu.Unlock()
			return
		}
		a.state = StateConnected
		a.mu.Unlock()
		a.history.Reset()
		a.logger.Info("websocket connected")

		a.cbMu.RLock()
		fn := a.onConnected
		a.cbMu.RUnlock()
		if fn != nil {
			fn()
		}

	case eventMessage, eventInvalid:
		if !a.current(ev.gen) {
			return
		}
		a.cbMu.RLock()
		fn := a.onReceived
		a.cbMu.RUnlock()
		if fn != nil {
			fn(ev.data, ev.err)
		}

	case eventFailed:
		a.fail(ev.gen, ev.err)

	case eventReconnect:
		a.mu.Lock()
		if ev.gen != a.gen || a.state != StateReconnectScheduled {
			a.mu.Unlock()
			return
		}
		a.state = StateConnecting
		ctx, gen, addr, timeout := a.ctx, a.gen, a.addr, a.timeout
		a.mu.Unlock()

		a.logger.Info("reconnecting", "attempt", a.history.Len())
		go a.dial(ctx, gen, addr, timeout)

	case eventExhausted:
		a.mu.Lock()
		if ev.gen != a.gen {
			a.mu.Unlock()
			return
		}
		if a.cancel != nil {
			a.cancel()
			a.cancel = nil
		}
		a.state = StateDisconnected
		a.mu.Unlock()

		a.logger.Error("giving up on reconnect", "attempts", a.history.Len())
		a.fireClosed(ErrReconnectExhausted)
	}
}

func (a *WebSocketAdapter) current(gen uint64) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return gen == a.gen
}

// fail tears down the connection of generation gen. Abnormal closes schedule
// a reconnect; a normal closure from the server does not. Failures from a
// superseded generation are ignored.
func (a *WebSocketAdapter) fail(gen uint64, err error) {
	clean := websocket.IsCloseError(err, websocket.CloseNormalClosure)

	a.mu.Lock()
	if gen != a.gen {
		a.mu.Unlock()
		return
	}
	conn := a.conn
	a.conn = nil
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if clean {
		a.state = StateClosedClean
	} else {
		a.state = StateClosedError
	}
	a.mu.Unlock()

	if conn != nil {
		conn.Close()
	}

	if clean {
		a.logger.Info("websocket closed by server")
		a.fireClosed(nil)
		return
	}

	a.logger.Warn("websocket closed with error", "error", err)
	a.fireClosed(err)
	a.scheduleReconnect()
}

func (a *WebSocketAdapter) fireClosed(err error) {
	a.cbMu.RLock()
	fn := a.onClosed
	a.cbMu.RUnlock()
	if fn != nil {
		fn(err)
	}
}

// scheduleReconnect records the next backoff attempt and posts a reconnect
// event once its delay elapses.
func (a *WebSocketAdapter) scheduleReconnect() {
	a.mu.Lock()
	// The closed callback may have called Close or Connect.
	if a.state != StateClosedError {
		a.mu.Unlock()
		return
	}
	gen, ctx := a.newCycleLocked()
	a.state = StateReconnectScheduled
	a.mu.Unlock()

	go func() {
		r, err := backoff.Backoff(ctx, a.cfg.Retry, &a.history)
		switch {
		case errors.Is(err, backoff.ErrMaxAttempts):
			a.push(ctx, event{kind: eventExhausted, gen: gen})
		case err != nil:
			return
		default:
			a.logger.Debug("reconnect delay elapsed", "delay", r.Jittered)
			a.push(ctx, event{kind: eventReconnect, gen: gen})
		}
	}()
}

func (a *WebSocketAdapter) dial(ctx context.Context, gen uint64, addrFn func() string, timeout time.Duration) {
	addr := addrFn()
	a.logger.Debug("dialing", "url", redact(addr))

	dialCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	conn, _, err := a.dialer.DialContext(dialCtx, addr, a.cfg.Header)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		a.push(ctx, event{kind: eventFailed, gen: gen, err: fmt.Errorf("dial %s: %w", redact(addr), err)})
		return
	}

	a.mu.Lock()
	if gen != a.gen || ctx.Err() != nil {
		a.mu.Unlock()
		conn.Close()
		return
	}
	a.conn = conn
	a.lastPongAt = time.Now()
	a.mu.Unlock()

	// Server sends ping, we respond with pong
	conn.SetPingHandler(func(data string) error {
		a.touch()
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})
	conn.SetPongHandler(func(string) error {
		a.touch()
		return nil
	})

	a.push(ctx, event{kind: eventConnected, gen: gen})

	go a.readLoop(ctx, gen, conn)
	if a.cfg.PingInterval > 0 {
		go a.heartbeatLoop(ctx, gen, conn)
	}
}

func (a *WebSocketAdapter) touch() {
	a.mu.Lock()
	a.lastPongAt = time.Now()
	a.mu.Unlock()
}

// push delivers a lifecycle event, waiting for buffer space unless the
// cycle is cancelled first.
func (a *WebSocketAdapter) push(ctx context.Context, ev event) {
	select {
	case a.events <- ev:
	case <-ctx.Done():
	}
}

// readLoop forwards text frames into the event channel.
func (a *WebSocketAdapter) readLoop(ctx context.Context, gen uint64, conn *websocket.Conn) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			// Ignore errors after the cycle was cancelled
			if ctx.Err() != nil {
				return
			}
			a.push(ctx, event{kind: eventFailed, gen: gen, err: err})
			return
		}

		if msgType != websocket.TextMessage {
			a.logger.Debug("ignoring binary frame", "size", len(data))
			continue
		}

		ev := event{kind: eventMessage, gen: gen, data: data}
		if !utf8.Valid(data) {
			ev = event{kind: eventInvalid, gen: gen, err: ErrInvalidUTF8}
		}

		// Blocks until Tick makes room so no frame is lost.
		a.push(ctx, ev)
		if ctx.Err() != nil {
			return
		}
	}
}

// redact strips the query and credentials from addr. The session token
// travels in the query string and must not reach logs or errors.
func redact(addr string) string {
	u, err := url.Parse(addr)
	if err != nil {
		return "<invalid url>"
	}
	return (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: u.Path}).String()
}

// heartbeatLoop pings the server and reports stale connections.
func (a *WebSocketAdapter) heartbeatLoop(ctx context.Context, gen uint64, conn *websocket.Conn) {
	ticker := time.NewTicker(a.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(a.cfg.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
				a.logger.Debug("failed to send ping", "error", err)
			}

			a.mu.RLock()
			lastPong := a.lastPongAt
			a.mu.RUnlock()

			if a.cfg.PingTimeout > 0 && time.Since(lastPong) > a.cfg.PingTimeout {
				a.logger.Warn("no pong received, connection stale",
					"last_pong", lastPong,
					"timeout", a.cfg.PingTimeout,
				)
				a.push(ctx, event{kind: eventFailed, gen: gen, err: ErrStaleConnection})
				return
			}
		}
	}
}
