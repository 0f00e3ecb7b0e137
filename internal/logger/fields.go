package logger

import "log/slog"

// Standard field keys for structured logging. Use these keys consistently
// across all log statements so that coordinator, storage node and client logs
// can be aggregated and queried together.
const (
	// Distributed tracing
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// Protocol & operation
	KeyTag       = "tag"        // Wire message tag: CREATE, READ, WRITE_LOCK, ...
	KeyStatus    = "status"     // Wire error code of the response
	KeyStatusMsg = "status_msg" // Human-readable status message

	// Catalog entities
	KeyFile     = "file"       // File or folder name
	KeyFolder   = "folder"     // Folder name where distinct from the file
	KeyOwner    = "owner"      // Owning user of a file
	KeySentence = "sentence"   // 0-based sentence index
	KeyTagName  = "checkpoint" // Checkpoint tag

	// Peers
	KeyUser     = "user"      // Requesting user name
	KeyTarget   = "target"    // Target user of a grant/revoke
	KeyClientIP = "client_ip" // Remote address of the connection
	KeySession  = "session"   // Opaque session token
	KeyNodeID   = "node_id"   // Storage node id assigned at registration
	KeyNodeAddr = "node_addr" // Storage node advertise address

	// Operation metadata
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyErrorCode  = "error_code"  // Numeric error code
	KeyCount      = "count"       // Generic count (files, locks, words, ...)
	KeyBytes      = "bytes"       // Payload size in bytes
	KeyComponent  = "component"   // Subsystem: coordinator, node, admin_api, ...
	KeyAddress    = "address"     // Listen or dial address
)

// ----------------------------------------------------------------------------
// Field constructors for type safety
// ----------------------------------------------------------------------------

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// Tag returns a slog.Attr for a wire message tag
func Tag(tag string) slog.Attr {
	return slog.String(KeyTag, tag)
}

// Status returns a slog.Attr for a wire error code
func Status(code uint32) slog.Attr {
	return slog.Any(KeyStatus, code)
}

// StatusMsg returns a slog.Attr for a human-readable status message
func StatusMsg(msg string) slog.Attr {
	return slog.String(KeyStatusMsg, msg)
}

// File returns a slog.Attr for a file or folder name
func File(name string) slog.Attr {
	return slog.String(KeyFile, name)
}

// Folder returns a slog.Attr for a folder name
func Folder(name string) slog.Attr {
	return slog.String(KeyFolder, name)
}

// Owner returns a slog.Attr for a file's owning user
func Owner(name string) slog.Attr {
	return slog.String(KeyOwner, name)
}

// Sentence returns a slog.Attr for a 0-based sentence index
func Sentence(idx int) slog.Attr {
	return slog.Int(KeySentence, idx)
}

// Checkpoint returns a slog.Attr for a checkpoint tag
func Checkpoint(tag string) slog.Attr {
	return slog.String(KeyTagName, tag)
}

// User returns a slog.Attr for the requesting user
func User(name string) slog.Attr {
	return slog.String(KeyUser, name)
}

// Target returns a slog.Attr for the target user of a grant or revoke
func Target(name string) slog.Attr {
	return slog.String(KeyTarget, name)
}

// ClientIP returns a slog.Attr for a connection's remote address
func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

// Session returns a slog.Attr for an opaque session token
func Session(token string) slog.Attr {
	return slog.String(KeySession, token)
}

// NodeID returns a slog.Attr for a storage node id
func NodeID(id int) slog.Attr {
	return slog.Int(KeyNodeID, id)
}

// NodeAddr returns a slog.Attr for a storage node advertise address
func NodeAddr(addr string) slog.Attr {
	return slog.String(KeyNodeAddr, addr)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for a numeric error code
func ErrorCode(code int) slog.Attr {
	return slog.Int(KeyErrorCode, code)
}

// Count returns a slog.Attr for a generic count
func Count(n int) slog.Attr {
	return slog.Int(KeyCount, n)
}

// Bytes returns a slog.Attr for a payload size in bytes
func Bytes(n int) slog.Attr {
	return slog.Int(KeyBytes, n)
}

// Component returns a slog.Attr for a subsystem name
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// Address returns a slog.Attr for a listen or dial address
func Address(addr string) slog.Attr {
	return slog.String(KeyAddress, addr)
}
