package render

import "fmt"

// ErrorCode classifies render-pipeline failures, following the same small
// registry-plus-AppError shape used for HTTP errors elsewhere in the
// service, adapted here for errors that are rendered inline into the body
// stream instead of serialized as a JSON envelope.
type ErrorCode int

const (
	ErrUnknown ErrorCode = iota + 1
	ErrComponentNotFound
	ErrTemplateCompile
	ErrInvalidHeaderValue
	ErrHeaderAfterBody
	ErrRecursionExceeded
	ErrInvalidDynamicProperties
	ErrUnsupportedTopLevelDynamic
	ErrWriterFailed
)

var errorMessages = map[ErrorCode]string{
	ErrUnknown:                    "unknown render error",
	ErrComponentNotFound:          "component not found",
	ErrTemplateCompile:            "template failed to compile",
	ErrInvalidHeaderValue:         "http header values must be strings",
	ErrHeaderAfterBody:            "the http_header component can not be used in the body of the page, the headers have already been sent",
	ErrRecursionExceeded:          "maximum recursion depth exceeded in the dynamic component",
	ErrInvalidDynamicProperties:   "expected dynamic properties to be an array, object, or JSON string parsing to either",
	ErrUnsupportedTopLevelDynamic: "dynamic components at the top level are not supported, except for setting the shell component properties",
	ErrWriterFailed:               "writing to the response failed",
}

// AppError is a render-pipeline error carrying a stable code alongside the
// underlying cause, so callers can distinguish protocol violations from
// writer failures without string matching.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// NewError builds an AppError from a known code with its default message.
func NewError(code ErrorCode) *AppError {
	return &AppError{Code: code, Message: errorMessages[code]}
}

// NewErrorWithDetail builds an AppError whose message is the default message
// followed by detail, e.g. to name the unresolved component.
func NewErrorWithDetail(code ErrorCode, detail string) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf("%s: %s", errorMessages[code], detail)}
}

// NewErrorWithErr wraps an existing error under a known code.
func NewErrorWithErr(code ErrorCode, err error) *AppError {
	return &AppError{Code: code, Message: errorMessages[code], Err: err}
}

// Error returns the top-level message only. The wrapped cause, if any, is
// reached through Unwrap rather than folded into this string, so a caller
// walking the chain with errors.Unwrap (as backtrace does) never sees the
// same text appear twice.
func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }
