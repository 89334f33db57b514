// Package session tracks a bearer access token and its refresh token.
//
// A Session answers expiry questions locally from the decoded token payload
// (exp, usn, uid, vrs claims) and is updated in place when a refresh
// exchange issues new tokens.
package session
