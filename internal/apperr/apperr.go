// Package apperr defines the status-coded errors that business code returns
// for expected failure conditions. Handlers let them bubble up; the fiber
// error handler maps them onto the response envelope.
package apperr

import "fmt"

// Error is a business failure carrying an HTTP-numbered status code.
type Error struct {
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status returns the HTTP status code for the error.
func (e *Error) Status() int {
	return e.Code
}

func newError(code int, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// BadRequest signals malformed or invalid input.
func BadRequest(format string, args ...interface{}) *Error {
	return newError(400, format, args...)
}

// Unauthorized signals missing or invalid credentials.
func Unauthorized(format string, args ...interface{}) *Error {
	return newError(401, format, args...)
}

// Forbidden signals an authenticated but disallowed request.
func Forbidden(format string, args ...interface{}) *Error {
	return newError(403, format, args...)
}

// NotFound signals a missing entity.
func NotFound(format string, args ...interface{}) *Error {
	return newError(404, format, args...)
}

// Conflict signals a duplicate (name, badge assignment, same-type
// conversion).
func Conflict(format string, args ...interface{}) *Error {
	return newError(409, format, args...)
}

// Unprocessable signals a semantically invalid combination.
func Unprocessable(format string, args ...interface{}) *Error {
	return newError(422, format, args...)
}

// Internal wraps an unexpected error.
func Internal(err error) *Error {
	return &Error{Code: 500, Message: "internal error", Err: err}
}
