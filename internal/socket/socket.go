package socket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/nakama-client/internal/session"
	"github.com/rickgao/nakama-client/internal/transport"
)

const (
	DefaultRequestTimeout = 2000 * time.Millisecond
	DefaultTickInterval   = 16 * time.Millisecond
	DefaultConnectTimeout = 30 * time.Second
	DefaultHost           = "127.0.0.1"
	DefaultPort           = 7350
)

// Socket correlates requests with responses over a transport.Adapter and
// routes server pushes to handlers.
//
// Any close, clean or not, fails every pending request. Requests do not
// survive a reconnect; callers resend them once OnConnected fires again.
type Socket struct {
	adapter transport.Adapter
	codec   Codec
	logger  *slog.Logger
	id      uuid.UUID

	host           string
	port           int
	useSSL         bool
	requestTimeout time.Duration
	tickInterval   time.Duration
	connectTimeout time.Duration

	// mu guards everything below. It is never held while user code runs.
	mu          sync.Mutex
	cid         int64
	pending     map[int64]*Pending
	ttl         map[int64]time.Duration
	handlers    [numEvents]func(env *Envelope)
	waiters     []chan error
	onConnected func()
	onClosed    func(error)
}

// Option configures a Socket.
type Option func(*Socket)

// WithCodec replaces the JSON wire codec.
func WithCodec(c Codec) Option {
	return func(s *Socket) {
		s.codec = c
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Socket) {
		s.logger = logger
	}
}

// WithRequestTimeout sets how long a request may stay pending. The budget is
// consumed by Tick, not by wall time.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Socket) {
		s.requestTimeout = d
	}
}

// WithTickInterval sets how much request budget each Tick consumes.
func WithTickInterval(d time.Duration) Option {
	return func(s *Socket) {
		s.tickInterval = d
	}
}

// WithConnectTimeout sets the dial timeout passed to the adapter.
func WithConnectTimeout(d time.Duration) Option {
	return func(s *Socket) {
		s.connectTimeout = d
	}
}

// WithServer sets the realtime endpoint used by Connect.
func WithServer(host string, port int, useSSL bool) Option {
	return func(s *Socket) {
		s.host = host
		s.port = port
		s.useSSL = useSSL
	}
}

// New creates a Socket over adapter and installs itself as the adapter's
// callback target.
func New(adapter transport.Adapter, opts ...Option) *Socket {
	s := &Socket{
		adapter:        adapter,
		codec:          JSONCodec{},
		id:             uuid.New(),
		host:           DefaultHost,
		port:           DefaultPort,
		requestTimeout: DefaultRequestTimeout,
		tickInterval:   DefaultTickInterval,
		connectTimeout: DefaultConnectTimeout,
		pending:        make(map[int64]*Pending),
		ttl:            make(map[int64]time.Duration),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("socket_id", s.id.String())

	adapter.OnConnected(s.handleConnected)
	adapter.OnClosed(s.handleClosed)
	adapter.OnReceived(func(data []byte, err error) {
		if err != nil {
			s.logger.Warn("receive error", "error", err)
			return
		}
		s.HandleFrame(data)
	})
	return s
}

// ID identifies this socket in logs.
func (s *Socket) ID() string {
	return s.id.String()
}

func (s *Socket) IsConnected() bool {
	return s.adapter.IsConnected()
}

func (s *Socket) IsConnecting() bool {
	return s.adapter.IsConnecting()
}

// PendingCount returns the number of requests awaiting a response.
func (s *Socket) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// URL builds the realtime endpoint for token.
func URL(host string, port int, useSSL bool, token string, appearOnline bool) string {
	scheme := "ws"
	if useSSL {
		scheme = "wss"
	}
	q := url.Values{}
	q.Set("lang", "en")
	q.Set("status", strconv.FormatBool(appearOnline))
	q.Set("token", token)
	u := url.URL{
		Scheme:   scheme,
		Host:     net.JoinHostPort(host, strconv.Itoa(port)),
		Path:     "/ws",
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Connect dials the configured server with the session's token and blocks
// until the connection is up or ctx is done. Tick must be driven from another
// goroutine while Connect waits.
func (s *Socket) Connect(ctx context.Context, sess *session.Session, appearOnline bool) error {
	if s.adapter.IsConnected() {
		return nil
	}
	// Rebuilt per dial so reconnects carry the current token.
	addr := func() string {
		return URL(s.host, s.port, s.useSSL, sess.AuthToken(), appearOnline)
	}

	done := make(chan error, 1)
	s.mu.Lock()
	s.waiters = append(s.waiters, done)
	s.mu.Unlock()

	s.logger.Info("connecting", "host", s.host, "port", s.port, "ssl", s.useSSL)
	if r, ok := s.adapter.(transport.Redialer); ok {
		r.ConnectFunc(addr, s.connectTimeout)
	} else {
		s.adapter.Connect(addr(), s.connectTimeout)
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		s.removeWaiter(done)
		return ctx.Err()
	}
}

func (s *Socket) removeWaiter(w chan error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.waiters {
		if c == w {
			s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
			return
		}
	}
}

func (s *Socket) releaseWaiters(err error) {
	s.mu.Lock()
	waiters := s.waiters
	s.waiters = nil
	s.mu.Unlock()
	for _, w := range waiters {
		w <- err
	}
}

// Close closes the transport and fails every pending request with ErrClosed.
func (s *Socket) Close() error {
	err := s.adapter.Close()
	s.failAll(ErrClosed)
	s.releaseWaiters(ErrClosed)
	if err != nil {
		return fmt.Errorf("close transport: %w", err)
	}
	return nil
}

func (s *Socket) handleConnected() {
	s.logger.Info("socket connected")
	s.releaseWaiters(nil)

	s.mu.Lock()
	fn := s.onConnected
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// handleClosed fails outstanding requests, since responses for them can not
// arrive on a later connection.
func (s *Socket) handleClosed(err error) {
	switch {
	case err == nil:
		s.logger.Info("socket closed")
		s.failAll(ErrClosed)
	case errors.Is(err, transport.ErrReconnectExhausted):
		s.logger.Error("socket reconnect exhausted", "error", err)
		s.failAll(&TransportError{Op: "reconnect", Err: err})
		s.releaseWaiters(&TransportError{Op: "connect", Err: err})
	default:
		s.logger.Warn("socket closed with error", "error", err)
		s.failAll(&TransportError{Op: "read", Err: err})
	}

	s.mu.Lock()
	fn := s.onClosed
	s.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

// SendRequest stamps env with a fresh correlation id, registers it as pending
// and writes it. The returned Pending completes exactly once.
func (s *Socket) SendRequest(env *Envelope) (*Pending, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cid++
	cid := s.cid
	p := newPending(cid)
	s.pending[cid] = p
	s.ttl[cid] = s.requestTimeout
	s.mu.Unlock()

	env.CID = strconv.FormatInt(cid, 10)
	data, err := s.codec.Encode(env)
	if err != nil {
		err = fmt.Errorf("encode envelope: %w", err)
		s.fail(cid, err)
		return nil, err
	}
	if err := s.adapter.Send(data, true); err != nil {
		terr := &TransportError{Op: "send", Err: err}
		s.fail(cid, terr)
		return nil, terr
	}

	s.logger.Debug("request sent", "cid", cid, "kinds", env.Kinds())
	return p, nil
}

// SendAsync writes env without a correlation id. No response is expected.
func (s *Socket) SendAsync(env *Envelope) error {
	if err := env.Validate(); err != nil {
		return err
	}
	env.CID = ""
	data, err := s.codec.Encode(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	if err := s.adapter.Send(data, true); err != nil {
		return &TransportError{Op: "send", Err: err}
	}
	return nil
}

// request sends env and waits for its response.
func (s *Socket) request(ctx context.Context, env *Envelope) (*Envelope, error) {
	p, err := s.SendRequest(env)
	if err != nil {
		return nil, err
	}
	return p.Wait(ctx)
}

// take removes cid from both tables. Only the caller that gets a non-nil
// Pending may complete it.
func (s *Socket) take(cid int64) *Pending {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[cid]
	if !ok {
		return nil
	}
	delete(s.pending, cid)
	delete(s.ttl, cid)
	return p
}

func (s *Socket) fail(cid int64, err error) {
	if p := s.take(cid); p != nil {
		p.complete(nil, err)
	}
}

func (s *Socket) failAll(err error) {
	s.mu.Lock()
	pending := s.pending
	s.pending = make(map[int64]*Pending)
	s.ttl = make(map[int64]time.Duration)
	s.mu.Unlock()

	for _, p := range pending {
		p.complete(nil, err)
	}
}

// HandleFrame processes one inbound text frame. Responses complete their
// pending request; frames without a cid are dispatched as pushes.
func (s *Socket) HandleFrame(data []byte) {
	var env Envelope
	if err := s.codec.Decode(data, &env); err != nil {
		s.handleUndecodable(data, err)
		return
	}

	if env.CID == "" {
		s.dispatch(&env)
		return
	}

	cid, err := strconv.ParseInt(env.CID, 10, 64)
	if err != nil {
		s.logger.Warn("dropping response with malformed cid", "cid", env.CID)
		return
	}
	p := s.take(cid)
	if p == nil {
		s.logger.Debug("dropping response for unknown cid", "cid", cid)
		return
	}
	if env.Error != nil {
		p.complete(nil, newServerError(env.Error))
		return
	}
	p.complete(&env, nil)
}

// handleUndecodable fails the request a broken frame answers, if its cid can
// still be read.
func (s *Socket) handleUndecodable(data []byte, decodeErr error) {
	raw, err := s.codec.DecodeCID(data)
	if err == nil && raw != "" {
		if cid, err := strconv.ParseInt(raw, 10, 64); err == nil {
			if p := s.take(cid); p != nil {
				p.complete(nil, &DecodeError{Err: decodeErr})
				return
			}
		}
	}
	s.logger.Error("failed to decode frame", "error", decodeErr, "size", len(data))
}

func (s *Socket) dispatch(env *Envelope) {
	ev, ok := classify(env)
	if !ok {
		s.logger.Debug("ignoring push", "kinds", env.Kinds())
		return
	}
	fn := s.handler(ev)
	if fn == nil {
		s.logger.Debug("no handler for push", "event", ev)
		return
	}
	fn(env)
}

// Tick drains the transport and then ages every pending request by the tick
// interval. Requests whose budget reaches zero fail with ErrTimeout.
func (s *Socket) Tick() {
	s.adapter.Tick()

	var expired []*Pending
	s.mu.Lock()
	for cid, left := range s.ttl {
		left -= s.tickInterval
		if left > 0 {
			s.ttl[cid] = left
			continue
		}
		delete(s.ttl, cid)
		if p, ok := s.pending[cid]; ok {
			delete(s.pending, cid)
			expired = append(expired, p)
		}
	}
	s.mu.Unlock()

	for _, p := range expired {
		s.logger.Debug("request timed out", "cid", p.cid)
		p.complete(nil, ErrTimeout)
	}
}

// Run calls Tick every tick interval until ctx is done.
func (s *Socket) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Pending is the handle for one in-flight request.
type Pending struct {
	cid  int64
	done chan struct{}
	env  *Envelope
	err  error
}

func newPending(cid int64) *Pending {
	return &Pending{cid: cid, done: make(chan struct{})}
}

func (p *Pending) complete(env *Envelope, err error) {
	p.env = env
	p.err = err
	close(p.done)
}

// CID returns the correlation id the request was sent with.
func (p *Pending) CID() int64 {
	return p.cid
}

// Done is closed once the request has completed.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the response arrives or ctx is done. Abandoning the wait
// does not cancel the request; it still ages out through Tick.
func (p *Pending) Wait(ctx context.Context) (*Envelope, error) {
	select {
	case <-p.done:
		return p.env, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
