package protocol

// Code is the stable integer error code carried in every response envelope.
// The values are wire contract and must not be renumbered.
type Code uint32

const (
	// CodeSuccess indicates the request succeeded.
	CodeSuccess Code = 0

	// CodeFileNotFound indicates the named file does not exist.
	CodeFileNotFound Code = 1

	// CodeFileExists indicates a create collided with an existing name.
	CodeFileExists Code = 2

	// CodePermissionDenied indicates the caller lacks the required
	// permission bit for the file.
	CodePermissionDenied Code = 3

	// CodeLocked indicates the sentence is locked by another session.
	CodeLocked Code = 4

	// CodeInvalidParam indicates a malformed name, payload, or integer.
	CodeInvalidParam Code = 5

	// CodeServerError indicates an internal failure (database error,
	// exhausted lock table, exhausted user slots).
	CodeServerError Code = 6

	// CodeNotOwner indicates an owner-only operation was attempted by a
	// non-owner.
	CodeNotOwner Code = 7

	// CodeUserNotFound indicates the target user is not registered.
	CodeUserNotFound Code = 8

	// CodeStorageUnavailable indicates no live storage node can serve the
	// request (none registered, none alive, or node slots exhausted).
	CodeStorageUnavailable Code = 9

	// CodeConnectionFailed indicates a transport-level failure. It is
	// reported by clients; servers never emit it in a response envelope.
	CodeConnectionFailed Code = 10

	// CodeFolderNotFound indicates the named folder does not exist. The
	// value is reserved on the wire; no current handler emits it.
	CodeFolderNotFound Code = 11

	// CodeCheckpointNotFound indicates the named checkpoint tag does not
	// exist for the file.
	CodeCheckpointNotFound Code = 12
)

// String returns the human-readable description for the code.
func (c Code) String() string {
	switch c {
	case CodeSuccess:
		return "Success"
	case CodeFileNotFound:
		return "File not found"
	case CodeFileExists:
		return "File already exists"
	case CodePermissionDenied:
		return "Permission denied"
	case CodeLocked:
		return "Resource is locked"
	case CodeInvalidParam:
		return "Invalid parameters"
	case CodeServerError:
		return "Server error"
	case CodeNotOwner:
		return "Not file owner"
	case CodeUserNotFound:
		return "User not found"
	case CodeStorageUnavailable:
		return "Storage server not found"
	case CodeConnectionFailed:
		return "Connection failed"
	case CodeFolderNotFound:
		return "Folder not found"
	case CodeCheckpointNotFound:
		return "Checkpoint not found"
	default:
		return "Unknown error"
	}
}
