package client

import (
	"errors"
	"fmt"
)

// Kind separates failures the caller should retry via the offline queue
// from terminal protocol failures that retrying cannot fix.
type Kind int

const (
	// KindTransient covers network errors, timeouts, and 5xx responses.
	KindTransient Kind = iota
	// KindProtocol covers 4xx responses: bad credential, validation error,
	// unknown resource.
	KindProtocol
)

type Error struct {
	Kind   Kind
	Status int
	Op     string
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func transient(op string, err error) *Error {
	return &Error{Kind: KindTransient, Op: op, Err: err}
}

func protocol(op string, status int, err error) *Error {
	return &Error{Kind: KindProtocol, Status: status, Op: op, Err: err}
}

// IsTransient reports whether err is a retryable delivery failure.
func IsTransient(err error) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind == KindTransient
	}
	// Unclassified errors are treated as transient: queueing is the safe
	// default for telemetry.
	return true
}
