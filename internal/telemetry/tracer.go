package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys. Request spans carry the wire tag and the identity
// fields of the envelope; content spans add the counters the storage node
// observes.
const (
	// AttrClientAddr is the remote address of the session.
	AttrClientAddr = "scribe.client.addr"

	// AttrRequestTag is the wire tag of the request (CREATE, READ, ...).
	AttrRequestTag = "scribe.request.tag"

	// AttrUser is the username in the request envelope.
	AttrUser = "scribe.user"

	// AttrFile is the file name in the request envelope.
	AttrFile = "scribe.file"

	// AttrSession is the coordinator session token.
	AttrSession = "scribe.session"

	// AttrSentence is the 0-based sentence index of a lock or commit.
	AttrSentence = "scribe.sentence"

	// AttrErrorCode is the wire error code of the response.
	AttrErrorCode = "scribe.error.code"

	// AttrNodeID is the coordinator-assigned storage node id.
	AttrNodeID = "scribe.node.id"

	// AttrNodeAddr is the advertised address of a storage node.
	AttrNodeAddr = "scribe.node.addr"

	// AttrCheckpointTag is the tag of a checkpoint operation.
	AttrCheckpointTag = "scribe.checkpoint.tag"

	// AttrContentBytes is the content size moved by the operation.
	AttrContentBytes = "scribe.content.bytes"

	// AttrStreamWords is the number of words sent by a stream.
	AttrStreamWords = "scribe.stream.words"
)

// ClientAddr creates a client address attribute.
func ClientAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr)
}

// RequestTag creates a wire tag attribute.
func RequestTag(tag string) attribute.KeyValue {
	return attribute.String(AttrRequestTag, tag)
}

// Username creates a username attribute.
func Username(user string) attribute.KeyValue {
	return attribute.String(AttrUser, user)
}

// Filename creates a file name attribute.
func Filename(name string) attribute.KeyValue {
	return attribute.String(AttrFile, name)
}

// SessionToken creates a session token attribute.
func SessionToken(token string) attribute.KeyValue {
	return attribute.String(AttrSession, token)
}

// SentenceIndex creates a sentence index attribute.
func SentenceIndex(idx int) attribute.KeyValue {
	return attribute.Int(AttrSentence, idx)
}

// ErrorCode creates a wire error code attribute.
func ErrorCode(code int) attribute.KeyValue {
	return attribute.Int(AttrErrorCode, code)
}

// NodeID creates a storage node id attribute.
func NodeID(id int) attribute.KeyValue {
	return attribute.Int(AttrNodeID, id)
}

// NodeAddr creates a storage node address attribute.
func NodeAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrNodeAddr, addr)
}

// CheckpointTag creates a checkpoint tag attribute.
func CheckpointTag(tag string) attribute.KeyValue {
	return attribute.String(AttrCheckpointTag, tag)
}

// ContentBytes creates a content size attribute.
func ContentBytes(n int) attribute.KeyValue {
	return attribute.Int64(AttrContentBytes, int64(n))
}

// StreamWords creates a streamed word count attribute.
func StreamWords(n int) attribute.KeyValue {
	return attribute.Int(AttrStreamWords, n)
}

// StartCoordinatorSpan starts a span for one coordinator request. The span
// is named after the wire tag under the coordinator namespace and always
// carries the tag attribute.
func StartCoordinatorSpan(ctx context.Context, tag string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := make([]attribute.KeyValue, 0, len(attrs)+1)
	all = append(all, RequestTag(tag))
	all = append(all, attrs...)
	return StartSpan(ctx, "coordinator."+tag, trace.WithAttributes(all...))
}

// StartNodeSpan starts a span for one storage node content operation.
func StartNodeSpan(ctx context.Context, tag string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := make([]attribute.KeyValue, 0, len(attrs)+1)
	all = append(all, RequestTag(tag))
	all = append(all, attrs...)
	return StartSpan(ctx, "node."+tag, trace.WithAttributes(all...))
}

// EndRequestSpan records the outcome on a request span and ends it. The wire
// code is attached either way; a non-nil err additionally marks the span
// failed.
func EndRequestSpan(span trace.Span, code int, err error) {
	span.SetAttributes(ErrorCode(code))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
