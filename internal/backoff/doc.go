// Package backoff computes reconnect and retry delays.
//
// An attempt N waits base^N (base expressed in milliseconds) scaled by a
// pluggable jitter function. The wait itself goes through a Delayer so the
// policy can run without real sleeps in tests.
package backoff
