package serviceerr

import "errors"

// Code classifies a failure so callers can branch on the kind of error
// without inspecting messages.
type Code string

const (
	CodeUnknown           Code = "unknown"
	CodeNotFound          Code = "not_found"
	CodeRemoteUnavailable Code = "remote_unavailable"
	CodeRemoteRejected    Code = "remote_rejected"
	CodeMalformedEvent    Code = "malformed_event"
	CodeUnknownState      Code = "unknown_state"
)

type Error struct {
	Err         Code
	Description string
}

var (
	ErrUnknown           = &Error{Err: CodeUnknown, Description: "unknown error"}
	ErrNotFound          = &Error{Err: CodeNotFound, Description: "not found"}
	ErrRemoteUnavailable = &Error{Err: CodeRemoteUnavailable, Description: "remote service unavailable"}
	ErrRemoteRejected    = &Error{Err: CodeRemoteRejected, Description: "remote service rejected the request"}
	ErrMalformedEvent    = &Error{Err: CodeMalformedEvent, Description: "event does not match the conversation state"}
	ErrUnknownState      = &Error{Err: CodeUnknownState, Description: "unknown conversation state"}
)

func (e *Error) Error() string {
	if e.Description == "" {
		return string(e.Err)
	}

	return string(e.Err) + ": " + e.Description
}

// Is reports errors of the same code as equal, so a freshly described
// error still matches the predefined sentinel.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}

	return e.Err == t.Err
}

// New returns an error of the given code with a specific description.
func New(code Code, description string) *Error {
	return &Error{Err: code, Description: description}
}

// CodeOf returns the code of the first *Error found in the chain of err.
// Joined errors are searched in order.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Err
	}

	return CodeUnknown
}
