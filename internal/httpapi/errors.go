package httpapi

import (
	"fmt"
	"net/http"
)

// ErrorCode represents an error code returned by the admin JSON API, kept
// distinct from render.ErrorCode because this registry backs serialized
// error envelopes rather than inline-rendered body fragments.
type ErrorCode int

const (
	ErrUnknown        ErrorCode = 1000
	ErrInvalidParam   ErrorCode = 1001
	ErrUnauthorized   ErrorCode = 1002
	ErrNotFound       ErrorCode = 1004
	ErrInternalServer ErrorCode = 1007

	ErrTemplateNotFound ErrorCode = 4000
	ErrTemplateInvalid  ErrorCode = 4003
)

var errorMessages = map[ErrorCode]string{
	ErrUnknown:        "unknown error",
	ErrInvalidParam:   "invalid parameter",
	ErrUnauthorized:   "unauthorized",
	ErrNotFound:       "not found",
	ErrInternalServer: "internal server error",

	ErrTemplateNotFound: "template not found",
	ErrTemplateInvalid:  "template content is invalid",
}

var errorHTTPStatus = map[ErrorCode]int{
	ErrUnknown:        http.StatusInternalServerError,
	ErrInvalidParam:   http.StatusBadRequest,
	ErrUnauthorized:   http.StatusUnauthorized,
	ErrNotFound:       http.StatusNotFound,
	ErrInternalServer: http.StatusInternalServerError,

	ErrTemplateNotFound: http.StatusNotFound,
	ErrTemplateInvalid:  http.StatusBadRequest,
}

// AppError is a JSON-serializable error returned by the admin API.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Detail  string    `json:"detail,omitempty"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("[%d] %s: %s", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// HTTPStatus returns the HTTP status code for this error.
func (e *AppError) HTTPStatus() int {
	if status, ok := errorHTTPStatus[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// NewError builds an AppError from a known code with its default message.
func NewError(code ErrorCode) *AppError {
	msg := errorMessages[code]
	if msg == "" {
		msg = errorMessages[ErrUnknown]
	}
	return &AppError{Code: code, Message: msg}
}

// NewErrorWithDetail builds an AppError whose detail names the specifics.
func NewErrorWithDetail(code ErrorCode, detail string) *AppError {
	err := NewError(code)
	err.Detail = detail
	return err
}

// NewErrorWithErr wraps an existing error under a known code.
func NewErrorWithErr(code ErrorCode, err error) *AppError {
	appErr := NewError(code)
	if err != nil {
		appErr.Err = err
		appErr.Detail = err.Error()
	}
	return appErr
}

// GetAppError extracts an *AppError from err, or nil if it is not one.
func GetAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return nil
}
