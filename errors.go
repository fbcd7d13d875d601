package main

import "errors"

// ErrURLRequired is returned when a check request carries no URL.
var ErrURLRequired = errors.New("URL is required")

// InputError is a malformed request. The audit is never started.
type InputError struct {
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}

// ParseError wraps failures turning a fetched body into a document tree.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "parse page: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
