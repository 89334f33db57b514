package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/rickgao/nakama-client/internal/backoff"
)

// DefaultRetryMaxDelay caps a single retry wait for REST calls.
const DefaultRetryMaxDelay = 10 * time.Second

// Client provides access to the server's REST API.
type Client struct {
	baseURL        string
	serverKey      string
	serverPassword string
	httpClient     *http.Client
	logger         *slog.Logger

	retry backoff.Config
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new REST API client. serverKey authenticates the
// unauthenticated endpoints.
func NewClient(baseURL, serverKey string, opts ...ClientOption) *Client {
	retry := backoff.DefaultConfig()
	retry.MaxDelay = DefaultRetryMaxDelay

	c := &Client{
		baseURL:   baseURL,
		serverKey: serverKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: slog.Default(),
		retry:  retry,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetry sets the retry configuration.
func WithRetry(cfg backoff.Config) ClientOption {
	return func(c *Client) {
		c.retry = cfg
	}
}

// WithServerPassword sets the password half of the server key credentials.
func WithServerPassword(password string) ClientOption {
	return func(c *Client) {
		c.serverPassword = password
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}
