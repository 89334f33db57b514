package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rickgao/nakama-client/internal/session"
)

// Errors
var (
	ErrNoRefreshToken   = errors.New("session has no refresh token")
	ErrRefreshExpired   = errors.New("refresh token expired")
	ErrEmptySessionResp = errors.New("empty session response")
)

// AuthenticateDevice logs in with a device id, creating the account when
// create is set.
func (c *Client) AuthenticateDevice(ctx context.Context, id, username string, create bool, vars map[string]string) (*session.Session, error) {
	query := url.Values{}
	query.Set("create", strconv.FormatBool(create))
	if username != "" {
		query.Set("username", username)
	}

	var resp SessionResponse
	err := c.call(ctx, request{
		method: http.MethodPost,
		path:   "/v2/account/authenticate/device",
		query:  query,
		body:   DeviceAuthRequest{ID: id, Vars: vars},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("authenticate device: %w", err)
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("authenticate device: %w", ErrEmptySessionResp)
	}

	sess, err := session.New(resp.Token, resp.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("authenticate device: %w", err)
	}

	c.logger.Info("authenticated",
		"user_id", sess.UserID(),
		"username", sess.Username(),
		"created", resp.Created,
	)
	return sess, nil
}

// SessionRefresh exchanges the refresh token for a new token pair and swaps
// it into sess. On failure sess is left unchanged.
func (c *Client) SessionRefresh(ctx context.Context, sess *session.Session, vars map[string]string) error {
	refresh, ok := sess.RefreshToken()
	if !ok {
		return ErrNoRefreshToken
	}

	var resp SessionResponse
	err := c.call(ctx, request{
		method: http.MethodPost,
		path:   "/v2/account/session/refresh",
		body:   SessionRefreshRequest{Token: refresh, Vars: vars},
	}, &resp)
	if err != nil {
		return fmt.Errorf("refresh session: %w", err)
	}
	if resp.Token == "" {
		return fmt.Errorf("refresh session: %w", ErrEmptySessionResp)
	}

	if resp.RefreshToken == "" {
		resp.RefreshToken = refresh
	}
	if err := sess.Replace(resp.Token, resp.RefreshToken); err != nil {
		return fmt.Errorf("refresh session: %w", err)
	}

	c.logger.Debug("session refreshed", "user_id", sess.UserID(), "expires_at", sess.ExpiresAt())
	return nil
}

// RefreshIfNeeded refreshes sess when auto refresh is on and the access
// token expires within the session's refresh window. It returns
// ErrRefreshExpired when a refresh is needed but no longer possible.
func (c *Client) RefreshIfNeeded(ctx context.Context, sess *session.Session) error {
	if !sess.AutoRefresh() || !sess.WillExpireSoon() {
		return nil
	}
	if _, ok := sess.RefreshToken(); !ok {
		return nil
	}
	if sess.IsRefreshExpired() {
		return ErrRefreshExpired
	}
	return c.SessionRefresh(ctx, sess, nil)
}

// SessionLogout invalidates both tokens of sess on the server.
func (c *Client) SessionLogout(ctx context.Context, sess *session.Session) error {
	refresh, _ := sess.RefreshToken()
	err := c.call(ctx, request{
		method: http.MethodPost,
		path:   "/v2/session/logout",
		body:   SessionLogoutRequest{Token: sess.AuthToken(), RefreshToken: refresh},
		bearer: sess.AuthToken(),
	}, nil)
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Healthcheck reports whether the server is reachable and healthy.
func (c *Client) Healthcheck(ctx context.Context) error {
	return c.call(ctx, request{method: http.MethodGet, path: "/healthcheck"}, nil)
}
