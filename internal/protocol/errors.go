package protocol

import (
	"errors"
	"fmt"
)

// Error is a protocol error carrying the wire code alongside the
// human-readable message placed in the response envelope. Handlers return
// *Error for every enumerated failure; anything else that escapes a handler
// is collapsed to CodeServerError by the dispatcher.
type Error struct {
	// Code is the stable wire code.
	Code Code

	// Message is the text sent to the peer in ErrorMsg.
	Message string

	// File is the file name the error refers to, when there is one.
	File string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: %s (file: %s)", e.Code, e.Message, e.File)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeOf extracts the wire code from err. Nil maps to CodeSuccess and
// unrecognized errors map to CodeServerError.
func CodeOf(err error) Code {
	if err == nil {
		return CodeSuccess
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return CodeServerError
}

// MessageOf extracts the peer-visible message from err. Unrecognized errors
// yield a generic message; their cause belongs in the local log, not on the
// wire.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Message
	}
	return CodeServerError.String()
}

// NewFileNotFound creates a CodeFileNotFound error for the given file.
func NewFileNotFound(file string) *Error {
	return &Error{Code: CodeFileNotFound, Message: "File not found", File: file}
}

// NewFileExists creates a CodeFileExists error for the given file.
func NewFileExists(file string) *Error {
	return &Error{Code: CodeFileExists, Message: "File already exists", File: file}
}

// NewPermissionDenied creates a CodePermissionDenied error.
func NewPermissionDenied(file string) *Error {
	return &Error{Code: CodePermissionDenied, Message: "Permission denied", File: file}
}

// NewLocked creates a CodeLocked error naming the holder's user, matching
// the message format clients display.
func NewLocked(file string, sentence int, holder string) *Error {
	return &Error{
		Code:    CodeLocked,
		Message: fmt.Sprintf("Sentence %d locked by %s (different session)", sentence, holder),
		File:    file,
	}
}

// NewInvalidParam creates a CodeInvalidParam error with a caller-supplied
// message.
func NewInvalidParam(message string) *Error {
	return &Error{Code: CodeInvalidParam, Message: message}
}

// NewServerError creates a CodeServerError error with a caller-supplied
// message.
func NewServerError(message string) *Error {
	return &Error{Code: CodeServerError, Message: message}
}

// NewNotOwner creates a CodeNotOwner error with a caller-supplied message
// ("Only owner can delete file", "Only owner can grant access", ...).
func NewNotOwner(file, message string) *Error {
	return &Error{Code: CodeNotOwner, Message: message, File: file}
}

// NewUserNotFound creates a CodeUserNotFound error for the target user.
func NewUserNotFound(user string) *Error {
	return &Error{Code: CodeUserNotFound, Message: fmt.Sprintf("User %q not found", user)}
}

// NewStorageUnavailable creates a CodeStorageUnavailable error with a
// caller-supplied message.
func NewStorageUnavailable(message string) *Error {
	return &Error{Code: CodeStorageUnavailable, Message: message}
}

// NewCheckpointNotFound creates a CodeCheckpointNotFound error for the given
// tag.
func NewCheckpointNotFound(file, tag string) *Error {
	return &Error{
		Code:    CodeCheckpointNotFound,
		Message: fmt.Sprintf("Checkpoint '%s' not found", tag),
		File:    file,
	}
}

// ResponseError converts a received response envelope into an error, or nil
// for a success response. Clients use it to surface server-side failures.
func ResponseError(msg *Message) error {
	if msg == nil {
		return &Error{Code: CodeConnectionFailed, Message: "Connection failed"}
	}
	if Code(msg.ErrorCode) == CodeSuccess {
		return nil
	}
	text := msg.ErrorMsg
	if text == "" {
		text = Code(msg.ErrorCode).String()
	}
	return &Error{Code: Code(msg.ErrorCode), Message: text, File: msg.Filename}
}
