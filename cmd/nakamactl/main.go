// nakamactl connects a device account to a game server over the realtime
// socket and logs every push it receives.
// Usage: go run ./cmd/nakamactl --config configs/client.example.yaml --room lobby
//
// Optional environment variables override the config file, for example:
//
//	NAKAMA_SERVER_HOST       - Server host name
//	NAKAMA_SERVER_SERVER_KEY - Server key used for device authentication
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/nakama-client/internal/api"
	"github.com/rickgao/nakama-client/internal/config"
	"github.com/rickgao/nakama-client/internal/database"
	"github.com/rickgao/nakama-client/internal/matchmaker"
	"github.com/rickgao/nakama-client/internal/refresher"
	"github.com/rickgao/nakama-client/internal/session"
	"github.com/rickgao/nakama-client/internal/sessionstore"
	"github.com/rickgao/nakama-client/internal/socket"
	"github.com/rickgao/nakama-client/internal/transport"
	"github.com/rickgao/nakama-client/internal/version"
)

type options struct {
	configPath string
	deviceID   string
	username   string
	room       string
	matchmake  string
	minCount   int
	maxCount   int
	verbose    bool
}

func main() {
	var opts options
	flags := pflag.NewFlagSet("nakamactl", pflag.ExitOnError)
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to config file")
	flags.StringVar(&opts.deviceID, "device-id", "", "device id to authenticate with (generated when empty)")
	flags.StringVar(&opts.username, "username", "", "username to create the account with")
	flags.StringVar(&opts.room, "room", "", "chat room to join")
	flags.StringVar(&opts.matchmake, "matchmake", "", "join the matchmaker for this region")
	flags.IntVar(&opts.minCount, "min", matchmaker.DefaultMinCount, "matchmaker minimum players")
	flags.IntVar(&opts.maxCount, "max", matchmaker.DefaultMaxCount, "matchmaker maximum players")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	showVersion := flags.Bool("version", false, "print version and exit")
	_ = flags.Parse(os.Args[1:])

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := config.LoadAndValidate(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log, opts.verbose)
	logger.Info("starting nakamactl", "version", version.Version, "server", cfg.Server.HTTPURL())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	if err := run(ctx, cfg, opts, logger); err != nil {
		logger.Error("nakamactl failed", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func newLogger(cfg config.LogConfig, verbose bool) *slog.Logger {
	level := cfg.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, handlerOpts))
}

func run(ctx context.Context, cfg *config.ClientConfig, opts options, logger *slog.Logger) error {
	client := api.NewClient(cfg.Server.HTTPURL(), cfg.Server.ServerKey,
		api.WithTimeout(cfg.Server.Timeout),
		api.WithRetry(cfg.Retry.Backoff()),
		api.WithServerPassword(cfg.Server.ServerPassword),
		api.WithLogger(logger),
	)

	if err := client.Healthcheck(ctx); err != nil {
		return fmt.Errorf("healthcheck: %w", err)
	}

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	deviceID := opts.deviceID
	if deviceID == "" {
		deviceID = uuid.NewString()
		logger.Info("generated device id", "device_id", deviceID)
	}

	sess, err := obtainSession(ctx, client, store, deviceID, opts.username, cfg.Session.AutoRefreshEnabled(), logger)
	if err != nil {
		return err
	}
	logger.Info("session ready",
		"user_id", sess.UserID(),
		"username", sess.Username(),
		"expires_at", sess.ExpiresAt(),
	)

	refresh := refresher.New(refresher.DefaultConfig(), client, sess,
		refresher.HandlerFunc(func(ctx context.Context, s *session.Session) error {
			return saveSession(ctx, store, deviceID, s)
		}), logger)
	if err := refresh.Start(ctx); err != nil {
		return fmt.Errorf("start refresher: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = refresh.Stop(stopCtx)
	}()

	tcfg := transport.DefaultConfig()
	tcfg.PingInterval = cfg.Socket.PingInterval
	tcfg.PingTimeout = cfg.Socket.PingTimeout
	tcfg.WriteTimeout = cfg.Socket.WriteTimeout
	tcfg.EventBufferSize = cfg.Socket.EventBufferSize
	tcfg.Retry = cfg.Retry.Backoff()

	sock := socket.New(transport.NewWebSocketAdapter(tcfg, logger),
		socket.WithLogger(logger),
		socket.WithServer(cfg.Server.Host, cfg.Server.Port, cfg.Server.SSL),
		socket.WithConnectTimeout(cfg.Socket.ConnectTimeout),
		socket.WithRequestTimeout(cfg.Socket.RequestTimeout),
		socket.WithTickInterval(cfg.Socket.TickInterval),
	)

	matched := make(chan socket.MatchmakerMatched, 1)
	registerHandlers(sock, matched, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sock.Run(gctx)
	})
	g.Go(func() error {
		defer sock.Close()
		return play(gctx, sock, sess, cfg, opts, matched, logger)
	})

	err = g.Wait()
	if store != nil {
		if saveErr := sessionstore.Save(context.Background(), store, deviceID, sess); saveErr != nil {
			logger.Warn("failed to save session", "error", saveErr)
		}
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// openStore returns a nil store when persistence is disabled.
func openStore(ctx context.Context, cfg *config.ClientConfig, logger *slog.Logger) (sessionstore.Store, func(), error) {
	switch cfg.Session.Store {
	case config.StoreFile:
		return sessionstore.NewFileStore(cfg.Session.Path), func() {}, nil
	case config.StorePostgres:
		pool, err := database.Connect(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connect session database: %w", err)
		}
		store := sessionstore.NewPostgresStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil
	default:
		return nil, func() {}, nil
	}
}

func obtainSession(ctx context.Context, client *api.Client, store sessionstore.Store, deviceID, username string, autoRefresh bool, logger *slog.Logger) (*session.Session, error) {
	var sess *session.Session
	if store != nil {
		restored, err := sessionstore.Restore(ctx, store, deviceID, session.WithAutoRefresh(autoRefresh))
		switch {
		case err == nil:
			logger.Info("restored session", "device_id", deviceID)
			sess = restored
		case errors.Is(err, sessionstore.ErrNotFound), errors.Is(err, sessionstore.ErrExpired):
			logger.Debug("no usable stored session", "reason", err)
		default:
			logger.Warn("failed to restore session", "error", err)
		}
	}

	if sess != nil {
		err := client.RefreshIfNeeded(ctx, sess)
		if err == nil && !sess.IsExpired() {
			return sess, saveSession(ctx, store, deviceID, sess)
		}
		logger.Warn("stored session unusable, authenticating", "error", err)
	}

	sess, err := client.AuthenticateDevice(ctx, deviceID, username, true, nil)
	if err != nil {
		return nil, fmt.Errorf("authenticate device: %w", err)
	}
	sess.SetAutoRefresh(autoRefresh)
	return sess, saveSession(ctx, store, deviceID, sess)
}

func saveSession(ctx context.Context, store sessionstore.Store, key string, sess *session.Session) error {
	if store == nil {
		return nil
	}
	if err := sessionstore.Save(ctx, store, key, sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// registerHandlers logs pushes. Handlers run on the tick goroutine so
// anything that issues a request is handed off through matched.
func registerHandlers(sock *socket.Socket, matched chan<- socket.MatchmakerMatched, logger *slog.Logger) {
	sock.OnConnected(func() {
		logger.Info("socket connected", "socket_id", sock.ID())
	})
	sock.OnClosed(func(err error) {
		if err != nil {
			logger.Warn("socket closed", "error", err)
			return
		}
		logger.Info("socket closed")
	})
	sock.OnError(func(err *socket.ServerError) {
		logger.Warn("server error", "code", err.Code, "message", err.Message)
	})
	sock.OnChannelMessage(func(msg socket.ChannelMessage) {
		logger.Info("chat message",
			"channel_id", msg.ChannelID,
			"from", msg.Username,
			"content", msg.Content,
		)
	})
	sock.OnChannelPresence(func(evt socket.ChannelPresenceEvent) {
		logger.Info("channel presence",
			"channel_id", evt.ChannelID,
			"joins", len(evt.Joins),
			"leaves", len(evt.Leaves),
		)
	})
	sock.OnNotification(func(n socket.Notification) {
		logger.Info("notification", "id", n.ID, "subject", n.Subject, "code", n.Code)
	})
	sock.OnStatusPresence(func(evt socket.StatusPresenceEvent) {
		logger.Debug("status presence", "joins", len(evt.Joins), "leaves", len(evt.Leaves))
	})
	sock.OnMatchPresence(func(evt socket.MatchPresenceEvent) {
		logger.Info("match presence",
			"match_id", evt.MatchID,
			"joins", len(evt.Joins),
			"leaves", len(evt.Leaves),
		)
	})
	sock.OnMatchState(func(data socket.MatchData) {
		logger.Debug("match data", "match_id", data.MatchID, "op_code", data.OpCode, "bytes", len(data.Data))
	})
	sock.OnMatchmakerMatched(func(m socket.MatchmakerMatched) {
		logger.Info("matchmaker matched", "ticket", m.Ticket, "users", len(m.Users))
		select {
		case matched <- m:
		default:
			logger.Warn("dropping matchmaker result, previous one not handled", "ticket", m.Ticket)
		}
	})
}

// play connects, joins the requested room and matchmaker queue, then
// joins matches as they are found until ctx is done.
func play(ctx context.Context, sock *socket.Socket, sess *session.Session, cfg *config.ClientConfig, opts options, matched <-chan socket.MatchmakerMatched, logger *slog.Logger) error {
	if err := sock.Connect(ctx, sess, cfg.Socket.AppearOnline); err != nil {
		return fmt.Errorf("connect socket: %w", err)
	}

	if opts.room != "" {
		ch, err := sock.JoinChat(ctx, opts.room, socket.ChannelTypeRoom, false, false)
		if err != nil {
			return fmt.Errorf("join room %q: %w", opts.room, err)
		}
		logger.Info("joined room", "channel_id", ch.ID, "presences", len(ch.Presences))
	}

	if opts.matchmake != "" {
		m := matchmaker.New().
			Min(opts.minCount).
			Max(opts.maxCount).
			AddStringProperty("region", opts.matchmake)
		if err := m.Add(matchmaker.NewQueryItem("region").Term(opts.matchmake).Required()); err != nil {
			return fmt.Errorf("build matchmaker query: %w", err)
		}
		ticket, err := sock.AddMatchmaker(ctx, m)
		if err != nil {
			return fmt.Errorf("add matchmaker: %w", err)
		}
		logger.Info("matchmaker ticket", "ticket", ticket.Ticket, "query", m.Query())
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m := <-matched:
			match, err := sock.JoinMatch(ctx, m)
			if err != nil {
				logger.Warn("failed to join match", "ticket", m.Ticket, "error", err)
				continue
			}
			logger.Info("joined match", "match_id", match.MatchID, "size", match.Size)
		}
	}
}
