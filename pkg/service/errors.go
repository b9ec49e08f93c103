package service

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a request failure for callers and observability.
type ErrorKind string

const (
	// KindClientInput covers invalid or unfetchable identifiers,
	// including fetcher failures.
	KindClientInput ErrorKind = "client_input"

	// KindUpstream covers generator failures, including unparseable
	// model output.
	KindUpstream ErrorKind = "upstream"

	// KindInfrastructure covers cache and repository I/O failures.
	KindInfrastructure ErrorKind = "infrastructure"
)

// Error wraps a failure with its classification and the operation that
// produced it.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the classification of err, or "" for unclassified errors.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
