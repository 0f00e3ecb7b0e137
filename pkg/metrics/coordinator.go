package metrics

import "time"

// CoordinatorMetrics provides observability for the coordinator's session
// server: request throughput and latency per message tag, session lifecycle,
// and gauges sampled from the lock table, node registry and user set.
//
// This interface is optional - pass nil to disable metrics collection with
// zero overhead.
type CoordinatorMetrics interface {
	// RecordRequest records a completed request with its wire tag, the error
	// code of the response, and the time spent in the dispatcher.
	RecordRequest(tag string, code uint32, duration time.Duration)

	// RecordRequestStart increments the in-flight request counter.
	RecordRequestStart(tag string)

	// RecordRequestEnd decrements the in-flight request counter.
	RecordRequestEnd(tag string)

	// RecordSessionOpened increments the accepted session counter.
	RecordSessionOpened(kind string)

	// RecordSessionClosed increments the closed session counter.
	RecordSessionClosed(kind string)

	// SetActiveSessions updates the current session count.
	SetActiveSessions(count int)

	// SetActiveLocks updates the sentence lock gauge.
	SetActiveLocks(count int)

	// SetNodesAlive updates the alive storage node gauge.
	SetNodesAlive(count int)

	// SetUsersRegistered updates the registered user gauge.
	SetUsersRegistered(count int)
}
