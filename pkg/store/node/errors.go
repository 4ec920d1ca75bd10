package node

import "errors"

// StoreError represents a domain error from node store operations.
//
// The Wiretap service layer translates these codes into the wiretap error
// taxonomy; callers outside the service should not depend on them.
type StoreError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// ID is the node the error refers to (if applicable)
	ID string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.ID != "" {
		return e.Message + ": " + e.ID
	}
	return e.Message
}

// ErrorCode represents the category of a store error.
type ErrorCode int

const (
	// ErrNotFound indicates the node does not exist
	ErrNotFound ErrorCode = iota

	// ErrAlreadyExists indicates a node with the same ID exists
	ErrAlreadyExists

	// ErrNotEmpty indicates an attempt to delete a node with children
	ErrNotEmpty

	// ErrInvalidArgument indicates a malformed record
	ErrInvalidArgument
)

// NewNotFoundError creates a StoreError for a missing node.
func NewNotFoundError(id string) *StoreError {
	return &StoreError{Code: ErrNotFound, Message: "node not found", ID: id}
}

// NewAlreadyExistsError creates a StoreError for a duplicate node ID.
func NewAlreadyExistsError(id string) *StoreError {
	return &StoreError{Code: ErrAlreadyExists, Message: "node already exists", ID: id}
}

// NewNotEmptyError creates a StoreError for a node that still has children.
func NewNotEmptyError(id string) *StoreError {
	return &StoreError{Code: ErrNotEmpty, Message: "node has children", ID: id}
}

// NewInvalidArgumentError creates a StoreError for a malformed record.
func NewInvalidArgumentError(message, id string) *StoreError {
	return &StoreError{Code: ErrInvalidArgument, Message: message, ID: id}
}

// IsCode reports whether err is a StoreError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Code == code
}

// ValidateRecord checks the fields every backend requires on Create.
func ValidateRecord(rec *Record) error {
	switch {
	case rec == nil:
		return NewInvalidArgumentError("nil record", "")
	case rec.ID == "" || rec.ID[0] != '/':
		return NewInvalidArgumentError("node id must start with a slash", rec.ID)
	case rec.ID != "/" && rec.Parent == "":
		return NewInvalidArgumentError("node has no parent", rec.ID)
	case rec.Type == "":
		return NewInvalidArgumentError("node has no type", rec.ID)
	}
	return nil
}
