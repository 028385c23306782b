package api

import (
	"github.com/cockroachdb/errors"
)

const DefaultErrorCode = ErrorCode("unknown_error")

type ErrorCode string

// Error carries a stable code and a user presentable message alongside
// the underlying error chain. The code is what the HTTP layer maps to a
// status code.
type Error struct {
	ErrorCode   ErrorCode
	UserMessage string
	wrappedErr  error
}

func (e *Error) Error() string {
	return e.wrappedErr.Error()
}

func (e *Error) Unwrap() error {
	return e.wrappedErr
}

// CommitError decides the code and user message for an error chain.
// Once committed, further wraps only add context.
func CommitError(err error, errorCode ErrorCode, userMessage string) *Error {
	return &Error{
		ErrorCode:   errorCode,
		UserMessage: userMessage,
		wrappedErr:  err,
	}
}

func WrapError(apiErr *Error, msg string) *Error {
	return &Error{
		ErrorCode:   apiErr.ErrorCode,
		UserMessage: apiErr.UserMessage,
		wrappedErr:  errors.Wrap(apiErr.wrappedErr, msg),
	}
}
