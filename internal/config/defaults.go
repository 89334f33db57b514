package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultHost            = "127.0.0.1"
	DefaultPort            = 7350
	DefaultServerKey       = "defaultkey"
	DefaultAPITimeout      = 30 * time.Second
	DefaultConnectTimeout  = 30 * time.Second
	DefaultRequestTimeout  = 2000 * time.Millisecond
	DefaultTickInterval    = 16 * time.Millisecond
	DefaultPingInterval    = 15 * time.Second
	DefaultPingTimeout     = 60 * time.Second
	DefaultWriteTimeout    = 5 * time.Second
	DefaultEventBufferSize = 1024
	DefaultRetryBaseDelay  = 500 * time.Millisecond
	DefaultRetryAttempts   = 4
	DefaultRetryMaxDelay   = 30 * time.Second
	DefaultSessionStore    = StoreFile
	DefaultSessionPath     = ".nakama/sessions"
	DefaultDBPort          = 5432
	DefaultDBSSLMode       = "prefer"
	DefaultMaxConns        = 4
	DefaultMinConns        = 1
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
)

// Default returns a config with every default applied.
func Default() *ClientConfig {
	cfg := &ClientConfig{}
	cfg.applyDefaults()
	return cfg
}

func (c *ClientConfig) applyDefaults() {
	// Server defaults
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.ServerKey == "" {
		c.Server.ServerKey = DefaultServerKey
	}
	if c.Server.Timeout == 0 {
		c.Server.Timeout = DefaultAPITimeout
	}

	// Socket defaults
	if c.Socket.ConnectTimeout == 0 {
		c.Socket.ConnectTimeout = DefaultConnectTimeout
	}
	if c.Socket.RequestTimeout == 0 {
		c.Socket.RequestTimeout = DefaultRequestTimeout
	}
	if c.Socket.TickInterval == 0 {
		c.Socket.TickInterval = DefaultTickInterval
	}
	if c.Socket.PingInterval == 0 {
		c.Socket.PingInterval = DefaultPingInterval
	}
	if c.Socket.PingTimeout == 0 {
		c.Socket.PingTimeout = DefaultPingTimeout
	}
	if c.Socket.WriteTimeout == 0 {
		c.Socket.WriteTimeout = DefaultWriteTimeout
	}
	if c.Socket.EventBufferSize == 0 {
		c.Socket.EventBufferSize = DefaultEventBufferSize
	}

	// Retry defaults
	if c.Retry.BaseDelay == 0 {
		c.Retry.BaseDelay = DefaultRetryBaseDelay
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = DefaultRetryAttempts
	}
	if c.Retry.MaxDelay == 0 {
		c.Retry.MaxDelay = DefaultRetryMaxDelay
	}

	// Session defaults
	if c.Session.Store == "" {
		c.Session.Store = DefaultSessionStore
	}
	if c.Session.Store == StoreFile && c.Session.Path == "" {
		c.Session.Path = DefaultSessionPath
	}

	applyDBDefaults(&c.Database)

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
