// Package apperr defines the business error type that maps onto the standard
// API error envelope.
package apperr

import "fmt"

// Error carries a stable machine-readable code alongside the HTTP status the
// handler layer should answer with.
type Error struct {
	Code    string
	Message string
	Status  int
	Details any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New builds an Error with the given code, message and HTTP status.
func New(code, message string, status int) *Error {
	return &Error{Code: code, Message: message, Status: status}
}

// WithDetails attaches structured details to a copy of the error.
func (e *Error) WithDetails(details any) *Error {
	out := *e
	out.Details = details
	return &out
}
