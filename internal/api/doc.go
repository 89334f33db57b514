// Package api provides the REST client used to obtain and maintain sessions.
//
// Endpoints:
//   - POST /v2/account/authenticate/device (server key auth)
//   - POST /v2/account/session/refresh (server key auth)
//   - POST /v2/session/logout (bearer auth)
//   - GET /healthcheck
//
// The default server listens on http://127.0.0.1:7350 with server key
// "defaultkey".
package api
