// Package refresher keeps a long-lived session usable.
//
// The Refresher:
//   - Checks the session on a fixed interval and once at start
//   - Exchanges the refresh token shortly before the access token expires
//   - Hands every refreshed session to a handler, usually a session store
package refresher
