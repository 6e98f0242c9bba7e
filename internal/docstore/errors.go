package docstore

import (
	"errors"
	"fmt"
)

// Code categorizes a document store failure.
type Code int

const (
	// Unknown covers failures with no more specific category
	Unknown Code = iota
	// NotFound means the requested document does not exist
	NotFound
	// PermissionDenied means the caller may not access the data
	PermissionDenied
	// Unavailable means a network or transient backend failure
	Unavailable
	// MalformedData means stored data failed validation
	MalformedData
	// InvalidArgument means a required argument was missing or invalid
	InvalidArgument
)

func (c Code) String() string {
	switch c {
	case NotFound:
		return "not-found"
	case PermissionDenied:
		return "permission-denied"
	case Unavailable:
		return "unavailable"
	case MalformedData:
		return "malformed-data"
	case InvalidArgument:
		return "invalid-argument"
	default:
		return "unknown"
	}
}

// Error is a categorized document store error. The underlying cause, when
// present, is preserved for diagnostics and available through Unwrap.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a categorized error wrapping cause (which may be nil).
func NewError(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Err: cause}
}

// Errorf creates a categorized error with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the category of err, Unknown for uncategorized errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Unknown
}

// IsNotFound reports whether err is a NotFound document store error.
func IsNotFound(err error) bool {
	return CodeOf(err) == NotFound
}
