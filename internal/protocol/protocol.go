// Package protocol defines the framed message envelope spoken on every
// connection in the system: client to coordinator, client to storage node,
// and storage node to coordinator. This is a leaf package with no internal
// dependencies so that all three peers (and their tests) can import it
// without cycles.
//
// Each frame on the wire is a 32-bit big-endian byte length followed by the
// XDR encoding (RFC 4506) of a Message. XDR keeps every integer big-endian
// and every string length-prefixed, so the only framing the transport adds
// is the outer length prefix.
package protocol

// Message is the single envelope used for every request and response.
//
// Requests carry Type, Username, Filename and Payload; responses echo the
// request Type (streaming responses use the STREAM_* types) and carry
// ErrorCode plus either a Payload or a human-readable ErrorMsg.
type Message struct {
	Type      string
	Username  string
	Filename  string
	Payload   []byte
	ErrorCode uint32
	ErrorMsg  string
}

// Wire type tags. The tag set is fixed protocol surface; responses echo the
// request tag except where a streaming tag is documented.
const (
	TagRegisterNode   = "REGISTER_SS"
	TagRegisterClient = "REGISTER_CLIENT"
	TagCreate         = "CREATE"
	TagCreateFolder   = "CREATEFOLDER"
	TagRead           = "READ"
	TagWrite          = "WRITE"
	TagWriteLock      = "WRITE_LOCK"
	TagWriteCommit    = "ETIRW"
	TagDelete         = "DELETE"
	TagView           = "VIEW"
	TagList           = "LIST"
	TagInfo           = "INFO"
	TagStream         = "STREAM"
	TagStreamStart    = "STREAM_START"
	TagStreamWord     = "STREAM_WORD"
	TagStreamEnd      = "STREAM_END"
	TagUndo           = "UNDO"
	TagAddAccess      = "ADDACCESS"
	TagRemAccess      = "REMACCESS"
	TagRequestAccess  = "REQUESTACCESS"
	TagViewRequests   = "VIEWREQUESTS"
	TagCheckpoint     = "CHECKPOINT"
	TagListCheckpts   = "LISTCHECKPOINTS"
	TagRevert         = "REVERT"
	TagReplicate      = "REPLICATE"
	TagHeartbeat      = "HEARTBEAT"
)

// Access permission bits carried in ADDACCESS payloads and grant records.
const (
	PermRead  = 1
	PermWrite = 2
)

// MaxNameLength bounds usernames and filenames on every name-bearing
// operation.
const MaxNameLength = 255

// DefaultMaxPayloadSize is the default bound for the Payload field of a
// single message. Deployments raise or lower it through configuration; both
// ends of a connection must agree.
const DefaultMaxPayloadSize = 64 << 10

// Response constructs a success response echoing the request tag.
func Response(req *Message, payload string) *Message {
	return &Message{
		Type:      req.Type,
		Username:  req.Username,
		Filename:  req.Filename,
		Payload:   []byte(payload),
		ErrorCode: uint32(CodeSuccess),
	}
}

// ErrorResponse constructs a failure response from err, collapsing
// unrecognized errors to CodeServerError.
func ErrorResponse(req *Message, err error) *Message {
	code := CodeOf(err)
	msg := MessageOf(err)
	return &Message{
		Type:      req.Type,
		Username:  req.Username,
		Filename:  req.Filename,
		ErrorCode: uint32(code),
		ErrorMsg:  msg,
	}
}
