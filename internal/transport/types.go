package transport

import (
	"errors"
	"net/http"
	"time"

	"github.com/rickgao/nakama-client/internal/backoff"
)

// Errors
var (
	ErrNotConnected       = errors.New("not connected")
	ErrStaleConnection    = errors.New("connection stale (no pong)")
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")
	ErrInvalidUTF8        = errors.New("text frame is not valid utf-8")
)

// Adapter owns one physical connection and reports on it through callbacks.
// Callbacks only ever run inside Tick, on the goroutine calling it.
type Adapter interface {
	// Connect starts dialing addr in the background. The outcome is reported
	// through OnConnected or OnClosed during a later Tick.
	Connect(addr string, timeout time.Duration)

	// Send writes one text frame. reliable is accepted for transports that
	// distinguish delivery modes; WebSocket frames are always reliable.
	Send(data []byte, reliable bool) error

	// Close shuts the connection down without scheduling a reconnect.
	Close() error

	// Tick drains buffered connection events and dispatches callbacks.
	Tick()

	IsConnected() bool
	IsConnecting() bool

	OnConnected(fn func())
	// OnClosed receives nil for a clean close and the cause otherwise.
	OnClosed(fn func(err error))
	OnReceived(fn func(data []byte, err error))
}

// Redialer is implemented by adapters that redial on their own after an
// abnormal close. addr is called before every dial.
type Redialer interface {
	ConnectFunc(addr func() string, timeout time.Duration)
}

// State is the lifecycle state of an adapter.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosedClean
	StateClosedError
	StateReconnectScheduled
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosedClean:
		return "closed_clean"
	case StateClosedError:
		return "closed_error"
	case StateReconnectScheduled:
		return "reconnect_scheduled"
	default:
		return "unknown"
	}
}

// DefaultMaxReconnectDelay caps a single reconnect wait.
const DefaultMaxReconnectDelay = 30 * time.Second

// Config configures a WebSocketAdapter.
type Config struct {
	PingInterval    time.Duration // How often to ping the server
	PingTimeout     time.Duration // Max time without a pong before the connection is stale
	WriteTimeout    time.Duration // Write deadline for sends
	EventBufferSize int           // Capacity of the event channel drained by Tick
	Header          http.Header   // Extra handshake headers
	Retry           backoff.Config
}

// DefaultConfig returns sensible defaults. Reconnect waits are clamped to
// DefaultMaxReconnectDelay since base^attempt grows past hours by the
// third attempt.
func DefaultConfig() Config {
	retry := backoff.DefaultConfig()
	retry.MaxDelay = DefaultMaxReconnectDelay

	return Config{
		PingInterval:    15 * time.Second,
		PingTimeout:     60 * time.Second,
		WriteTimeout:    5 * time.Second,
		EventBufferSize: 1024,
		Retry:           retry,
	}
}

type eventKind int

const (
	eventConnected eventKind = iota
	eventMessage
	eventInvalid
	eventFailed
	eventReconnect
	eventExhausted
)

// event crosses from connection goroutines into Tick.
type event struct {
	kind eventKind
	gen  uint64
	data []byte
	err  error
}
