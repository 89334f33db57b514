// Package socket multiplexes requests and server pushes over one realtime
// connection.
//
// Every request is stamped with a correlation id and parked until a response
// with the same id arrives, the request ages out, or the connection fails.
// Frames without an id are server pushes and are routed to at most one
// registered handler, chosen by payload kind.
//
// A Socket does no work on its own. The owner calls Tick at a steady cadence
// (16ms by default); Tick drains the transport and ages pending requests,
// and all handlers and completions run on the ticking goroutine.
package socket
