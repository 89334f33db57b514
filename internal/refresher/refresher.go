package refresher

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/nakama-client/internal/session"
)

// TokenClient performs the refresh exchange. *api.Client implements it.
type TokenClient interface {
	RefreshIfNeeded(ctx context.Context, sess *session.Session) error
}

// Handler receives a session after its tokens were replaced.
type Handler interface {
	HandleRefresh(ctx context.Context, sess *session.Session) error
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(context.Context, *session.Session) error

func (f HandlerFunc) HandleRefresh(ctx context.Context, sess *session.Session) error {
	return f(ctx, sess)
}

// Config holds refresher configuration.
type Config struct {
	Interval time.Duration // How often to check the session (default: 1m)
	Timeout  time.Duration // Per-exchange timeout (default: 10s)
}

// DefaultConfig returns sensible defaults. The interval is well inside the
// session's refresh window so a check always lands before expiry.
func DefaultConfig() Config {
	return Config{
		Interval: time.Minute,
		Timeout:  10 * time.Second,
	}
}

// Stats counts refresh outcomes.
type Stats struct {
	Refreshed int64
	Failed    int64
}

// Refresher periodically refreshes one session.
type Refresher struct {
	cfg     Config
	client  TokenClient
	sess    *session.Session
	handler Handler
	logger  *slog.Logger

	refreshed atomic.Int64
	failed    atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Refresher. handler may be nil.
func New(cfg Config, client TokenClient, sess *session.Session, handler Handler, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		cfg:     cfg,
		client:  client,
		sess:    sess,
		handler: handler,
		logger:  logger,
	}
}

// Start begins the refresh loop.
func (r *Refresher) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.run()

	r.logger.Info("session refresher started", "interval", r.cfg.Interval)
	return nil
}

// Stop shuts down the refresher, waiting for an in-flight exchange.
func (r *Refresher) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("session refresher stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns the refresh counters.
func (r *Refresher) Stats() Stats {
	return Stats{
		Refreshed: r.refreshed.Load(),
		Failed:    r.failed.Load(),
	}
}

func (r *Refresher) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	// Check immediately on start.
	r.check()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.check()
		}
	}
}

// check refreshes the session if it is due and reports whether the tokens
// were replaced.
func (r *Refresher) check() bool {
	if !r.sess.NeedsRefresh() {
		return false
	}

	ctx, cancel := context.WithTimeout(r.ctx, r.cfg.Timeout)
	defer cancel()

	before := r.sess.AuthToken()
	if err := r.client.RefreshIfNeeded(ctx, r.sess); err != nil {
		r.failed.Add(1)
		r.logger.Warn("session refresh failed",
			"user_id", r.sess.UserID(),
			"err", err,
		)
		return false
	}
	if r.sess.AuthToken() == before {
		return false
	}

	r.refreshed.Add(1)
	r.logger.Info("session refreshed",
		"user_id", r.sess.UserID(),
		"expires_at", r.sess.ExpiresAt(),
	)

	if r.handler != nil {
		if err := r.handler.HandleRefresh(ctx, r.sess); err != nil {
			r.logger.Warn("refresh handler failed", "err", err)
		}
	}
	return true
}
