package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context
type LogContext struct {
	TraceID   string    // OpenTelemetry trace ID
	SpanID    string    // OpenTelemetry span ID
	Tag       string    // Wire message tag (CREATE, READ, WRITE_LOCK, ...)
	User      string    // Requesting user name
	File      string    // File or folder name the request refers to
	Session   string    // Opaque session token
	ClientIP  string    // Client remote address (without port)
	StartTime time.Time // For duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext with the given client IP
func NewLogContext(clientIP string) *LogContext {
	return &LogContext{
		ClientIP:  clientIP,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	clone := *lc
	return &clone
}

// WithTag returns a copy with the message tag set
func (lc *LogContext) WithTag(tag string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Tag = tag
	}
	return clone
}

// WithRequest returns a copy with the requesting user and file set
func (lc *LogContext) WithRequest(user, file string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.User = user
		clone.File = file
	}
	return clone
}

// WithSession returns a copy with the session token set
func (lc *LogContext) WithSession(token string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Session = token
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
