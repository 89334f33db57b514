package config

import (
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/rickgao/nakama-client/internal/backoff"
)

// ClientConfig is the root configuration for a realtime client.
type ClientConfig struct {
	Server   ServerConfig  `yaml:"server"`
	Socket   SocketConfig  `yaml:"socket"`
	Retry    RetryConfig   `yaml:"retry"`
	Session  SessionConfig `yaml:"session"`
	Database DBConfig      `yaml:"database"`
	Log      LogConfig     `yaml:"log"`
}

// ServerConfig locates the game server.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	SSL            bool          `yaml:"ssl"`
	ServerKey      string        `yaml:"server_key" split_words:"true"`
	ServerPassword string        `yaml:"server_password" split_words:"true"`
	Timeout        time.Duration `yaml:"timeout"` // REST request timeout
}

// HTTPURL returns the REST base URL.
func (s ServerConfig) HTTPURL() string {
	scheme := "http"
	if s.SSL {
		scheme = "https"
	}
	return scheme + "://" + net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// SocketConfig holds realtime socket settings.
type SocketConfig struct {
	AppearOnline    bool          `yaml:"appear_online" split_words:"true"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout" split_words:"true"`
	RequestTimeout  time.Duration `yaml:"request_timeout" split_words:"true"`
	TickInterval    time.Duration `yaml:"tick_interval" split_words:"true"`
	PingInterval    time.Duration `yaml:"ping_interval" split_words:"true"`
	PingTimeout     time.Duration `yaml:"ping_timeout" split_words:"true"`
	WriteTimeout    time.Duration `yaml:"write_timeout" split_words:"true"`
	EventBufferSize int           `yaml:"event_buffer_size" split_words:"true"`
}

// RetryConfig holds the backoff policy shared by reconnects and REST calls.
type RetryConfig struct {
	BaseDelay   time.Duration `yaml:"base_delay" split_words:"true"`
	MaxAttempts int           `yaml:"max_attempts" split_words:"true"`
	MaxDelay    time.Duration `yaml:"max_delay" split_words:"true"`
}

// Backoff converts the policy into a backoff.Config with full jitter.
func (r RetryConfig) Backoff() backoff.Config {
	return backoff.Config{
		BaseDelay:   r.BaseDelay,
		Jitter:      backoff.FullJitter,
		MaxAttempts: r.MaxAttempts,
		MaxDelay:    r.MaxDelay,
	}
}

// Session store kinds.
const (
	StoreNone     = "none"
	StoreFile     = "file"
	StorePostgres = "postgres"
)

// SessionConfig controls where credentials are persisted between runs.
type SessionConfig struct {
	Store       string `yaml:"store"`
	Path        string `yaml:"path"`
	AutoRefresh *bool  `yaml:"auto_refresh" split_words:"true"`
}

// AutoRefreshEnabled reports the auto refresh setting, which defaults to on.
func (s SessionConfig) AutoRefreshEnabled() bool {
	return s.AutoRefresh == nil || *s.AutoRefresh
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode" split_words:"true"`
	MaxConns int    `yaml:"max_conns" split_words:"true"`
	MinConns int    `yaml:"min_conns" split_words:"true"`
}

// LogConfig selects log level and output format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// SlogLevel maps Level onto slog. Unknown levels map to info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
