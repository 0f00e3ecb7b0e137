package metrics

import "time"

// NodeMetrics provides observability for a storage node: request throughput
// and latency per wire tag, content bytes moved, and the stored file count.
//
// This interface is optional - pass nil to disable metrics collection with
// zero overhead.
type NodeMetrics interface {
	// RecordRequest records a completed request with its wire tag, the error
	// code of the response, and the handler duration.
	RecordRequest(tag string, code uint32, duration time.Duration)

	// RecordBytesTransferred records content bytes moved through a handler.
	// Direction is "read" or "write".
	RecordBytesTransferred(direction string, bytes uint64)

	// RecordStreamWord increments the streamed word counter.
	RecordStreamWord()

	// SetFilesStored updates the stored file gauge.
	SetFilesStored(count int)
}
