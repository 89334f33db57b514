// Package sessionstore persists session token pairs between runs so a client
// can restore its session instead of authenticating again.
//
// Two backends are provided: FileStore writes one CBOR file per key and
// PostgresStore keeps rows in a client_sessions table.
package sessionstore
