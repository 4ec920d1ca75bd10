package wiretap

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies failures reported by browsing and transfer operations.
type ErrorCode int

const (
	// ErrConnection indicates the directory service or a server could not
	// be reached.
	ErrConnection ErrorCode = iota

	// ErrInvalidHostname indicates a hostname that is not in the discovered
	// server list.
	ErrInvalidHostname

	// ErrInvalidPath indicates a malformed path or one with the wrong number
	// of segments.
	ErrInvalidPath

	// ErrNodeAccess indicates a node could not be read, created or deleted.
	ErrNodeAccess

	// ErrFormat indicates a clip format could not be read or applied.
	ErrFormat

	// ErrEmptyRange indicates a transfer with nothing to copy.
	ErrEmptyRange

	// ErrFrameIO indicates a frame read or write failure.
	ErrFrameIO

	// ErrPartialCleanup indicates some duplicate clips survived an
	// overwrite.
	ErrPartialCleanup
)

func (c ErrorCode) String() string {
	switch c {
	case ErrConnection:
		return "ConnectionError"
	case ErrInvalidHostname:
		return "InvalidHostname"
	case ErrInvalidPath:
		return "InvalidPath"
	case ErrNodeAccess:
		return "NodeAccessError"
	case ErrFormat:
		return "FormatError"
	case ErrEmptyRange:
		return "EmptyRangeError"
	case ErrFrameIO:
		return "FrameIOError"
	case ErrPartialCleanup:
		return "PartialCleanupError"
	default:
		return fmt.Sprintf("ErrorCode(%d)", int(c))
	}
}

// Error is the error type returned across the Wiretap packages.
type Error struct {
	Code    ErrorCode
	Message string

	// Path is the hostname, node path or node ID the error refers to.
	Path string

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code.String()
	}
	if e.Path != "" {
		msg = msg + ": " + e.Path
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCode returns the code of the error.
func (e *Error) ErrorCode() ErrorCode {
	return e.Code
}

// NewError builds an *Error.
func NewError(code ErrorCode, message, path string, cause error) *Error {
	return &Error{Code: code, Message: message, Path: path, Err: cause}
}

// Errorf builds an *Error without a cause, formatting the message.
func Errorf(code ErrorCode, path, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Path: path}
}

// CleanupFailure records one duplicate clip that could not be deleted.
type CleanupFailure struct {
	NodeID string
	Err    error
}

// PartialCleanupError reports duplicate clips that survived an overwrite.
// The transfer that produced it still completes.
type PartialCleanupError struct {
	Parent string
	Name   string
	Failed []CleanupFailure
}

func (e *PartialCleanupError) Error() string {
	ids := make([]string, len(e.Failed))
	for i, f := range e.Failed {
		ids[i] = f.NodeID
	}
	return fmt.Sprintf("failed to delete %d duplicate clip(s) named %q under %s: %s",
		len(e.Failed), e.Name, e.Parent, strings.Join(ids, ", "))
}

// ErrorCode returns ErrPartialCleanup.
func (e *PartialCleanupError) ErrorCode() ErrorCode {
	return ErrPartialCleanup
}

// NodeIDs returns the IDs of the clips that were not deleted.
func (e *PartialCleanupError) NodeIDs() []string {
	ids := make([]string, len(e.Failed))
	for i, f := range e.Failed {
		ids[i] = f.NodeID
	}
	return ids
}

type coded interface {
	ErrorCode() ErrorCode
}

// CodeOf returns the code of the first coded error in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var c coded
	if errors.As(err, &c) {
		return c.ErrorCode(), true
	}
	return 0, false
}

// IsCode reports whether err's chain carries the given code.
func IsCode(err error, code ErrorCode) bool {
	got, ok := CodeOf(err)
	return ok && got == code
}
