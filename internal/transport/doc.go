// Package transport implements the connection layer under the realtime
// socket.
//
// The Adapter:
//   - Dials and reads on background goroutines
//   - Buffers connection events in one bounded channel
//   - Dispatches callbacks only from Tick
//   - Reconnects after abnormal closes using internal/backoff
package transport
