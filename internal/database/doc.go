// Package database provides the PostgreSQL connection pool used to persist
// client sessions across machines.
package database
