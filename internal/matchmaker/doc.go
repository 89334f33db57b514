// Package matchmaker compiles matchmaking tickets into the query dialect of
// the server's matchmaker index.
//
// Clauses render as {modifier}properties.{name}:{predicate}{^boost} and are
// joined with a single space in the order they were added.
package matchmaker
