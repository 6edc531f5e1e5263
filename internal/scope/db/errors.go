package db

import (
	"errors"
	"fmt"
)

// Sentinel errors for the storage error kinds. Typed errors below match them via errors.Is.
var (
	// ErrConnection is returned when a storage session could not be established
	ErrConnection = errors.New("storage connection failed")

	// ErrQuery is returned when a statement could not be executed
	ErrQuery = errors.New("storage query failed")

	// ErrRelease is logged when a session could not be closed cleanly
	ErrRelease = errors.New("storage release failed")

	// ErrHandleClosed is returned when a closed or nil handle is used
	ErrHandleClosed = errors.New("connection handle is closed")

	// ErrInvalidCollection is returned for collection names that are not plain identifiers
	ErrInvalidCollection = errors.New("invalid collection name")
)

// ErrorKind classifies storage failures for callers that map them to responses
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindConnection
	KindQuery
	KindRelease
)

func (k ErrorKind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindQuery:
		return "query"
	case KindRelease:
		return "release"
	default:
		return "unknown"
	}
}

// ConnectionError represents a failure to open a storage session
type ConnectionError struct {
	Driver string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrConnection, e.Driver, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnection
}

// QueryError represents a failure while executing a statement
type QueryError struct {
	Statement string
	Err       error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: %v", ErrQuery, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

func (e *QueryError) Is(target error) bool {
	return target == ErrQuery
}

// ReleaseError represents a failure while closing a session.
// It is only ever logged; Close never returns it.
type ReleaseError struct {
	Driver string
	Err    error
}

func (e *ReleaseError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrRelease, e.Driver, e.Err)
}

func (e *ReleaseError) Unwrap() error { return e.Err }

func (e *ReleaseError) Is(target error) bool {
	return target == ErrRelease
}

// Kind returns the storage error kind carried by err, or KindUnknown
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrConnection):
		return KindConnection
	case errors.Is(err, ErrQuery):
		return KindQuery
	case errors.Is(err, ErrRelease):
		return KindRelease
	default:
		return KindUnknown
	}
}
