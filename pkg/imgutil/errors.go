package imgutil

import (
	"errors"
	"fmt"
)

// Code is a machine-readable failure category.
type Code string

const (
	ErrCodeIO          Code = "IO_ERROR"
	ErrCodeDecode      Code = "DECODE_ERROR"
	ErrCodeEncode      Code = "ENCODE_ERROR"
	ErrCodeAllocation  Code = "ALLOCATION_ERROR"
	ErrCodeTracing     Code = "TRACING_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
	ErrCodeInvalidPath Code = "INVALID_PATH"
)

// Sentinels carried as the cause of a DECODE_ERROR.
var (
	ErrParse          = errors.New("document could not be parsed")
	ErrEmptyContainer = errors.New("icon container has no entries")
)

// Error is a coded error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether the outermost *Error in err's chain has the given code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode returns the code of the outermost *Error, or "" for plain errors.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
