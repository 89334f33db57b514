package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validate checks that all required fields are set and values are valid.
func (c *ClientConfig) Validate() error {
	if c.Server.Host == "" {
		return errors.New("server.host is required")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ServerKey == "" {
		return errors.New("server.server_key is required")
	}

	if c.Socket.TickInterval <= 0 {
		return errors.New("socket.tick_interval must be > 0")
	}
	if c.Socket.RequestTimeout < c.Socket.TickInterval {
		return fmt.Errorf("socket.request_timeout (%v) must be >= socket.tick_interval (%v)",
			c.Socket.RequestTimeout, c.Socket.TickInterval)
	}
	if c.Socket.ConnectTimeout <= 0 {
		return errors.New("socket.connect_timeout must be > 0")
	}
	if c.Socket.PingInterval > 0 && c.Socket.PingTimeout < c.Socket.PingInterval {
		return fmt.Errorf("socket.ping_timeout (%v) must be >= socket.ping_interval (%v)",
			c.Socket.PingTimeout, c.Socket.PingInterval)
	}
	if c.Socket.EventBufferSize < 1 {
		return errors.New("socket.event_buffer_size must be >= 1")
	}

	if c.Retry.BaseDelay < time.Millisecond {
		return errors.New("retry.base_delay must be >= 1ms")
	}
	if c.Retry.MaxAttempts < 0 {
		return errors.New("retry.max_attempts must be >= 0")
	}

	switch c.Session.Store {
	case StoreNone:
	case StoreFile:
		if c.Session.Path == "" {
			return errors.New("session.path is required for the file store")
		}
	case StorePostgres:
		if err := c.Database.validate("database"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("session.store must be one of none, file, postgres, got %q", c.Session.Store)
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
