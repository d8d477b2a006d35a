package core

import (
	"errors"
	"strings"
)

// ErrorKind classifies failures for the user-facing surface.
type ErrorKind string

const (
	KindInputAbsent        ErrorKind = "input_absent"
	KindUnsupportedFormat  ErrorKind = "unsupported_format"
	KindReadFailure        ErrorKind = "read_failure"
	KindMissingFile        ErrorKind = "missing_file"
	KindComputationFailure ErrorKind = "computation_failure"
)

var ErrEmptyTable = errors.New("table has no rows")

// Error carries a kind, a user-facing message and the underlying cause.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a classified error.
func NewError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the kind of the first *Error in the chain. Unclassified
// errors are computation failures, and ErrEmptyTable maps to the input prompt.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, ErrEmptyTable) {
		return KindInputAbsent
	}
	return KindComputationFailure
}

// MissingColumnsError lists the required headers absent from a source.
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return "missing required columns: " + strings.Join(e.Missing, ", ")
}
