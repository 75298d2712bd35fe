// Package apperror defines the coded error type shared by every context.
package apperror

import (
	"errors"
	"fmt"
)

// AppError carries a stable Code plus optional context and cause.
// errors.Is matches two AppErrors by code alone, so a bare New(code) works
// as a package-level sentinel.
type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Context string `json:"context,omitempty"`
	cause   error
}

// Error renders "CODE: message [context]: cause".
func (e *AppError) Error() string {
	s := string(e.Code) + ": " + e.Message
	if e.Context != "" {
		s += " [" + e.Context + "]"
	}
	if e.cause != nil {
		s += ": " + e.cause.Error()
	}
	return s
}

func (e *AppError) Unwrap() error { return e.cause }

func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && e.Code == t.Code
}

type Option func(*AppError)

func WithMessage(message string) Option {
	return func(e *AppError) { e.Message = message }
}

func WithContext(context string) Option {
	return func(e *AppError) { e.Context = context }
}

func WithContextf(format string, args ...any) Option {
	return func(e *AppError) { e.Context = fmt.Sprintf(format, args...) }
}

func WithCause(cause error) Option {
	return func(e *AppError) { e.cause = cause }
}

// New builds an error whose message comes from the code table unless
// WithMessage overrides it. Codes missing from the table use the code text.
func New(code Code, opts ...Option) *AppError {
	e := &AppError{Code: code, Message: messages[code]}
	for _, opt := range opts {
		opt(e)
	}
	if e.Message == "" {
		e.Message = string(code)
	}
	return e
}

// Validation is an input error with context naming the offending value.
func Validation(code Code, context string) *AppError {
	return New(code, WithContext(context))
}

// External is a failed call to an outside system.
func External(code Code, context string, cause error) *AppError {
	return New(code, WithContext(context), WithCause(cause))
}

// Wrap converts err into an AppError with code. An error that already is an
// AppError keeps its own code; when it has no context a copy carrying
// context is returned so shared sentinels are never modified.
func Wrap(err error, code Code, context string) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return New(code, WithContext(context), WithCause(err))
	}
	if context == "" || appErr.Context != "" {
		return appErr
	}
	cp := *appErr
	cp.Context = context
	return &cp
}

// IsCode reports whether any AppError in err's chain carries code.
func IsCode(err error, code Code) bool {
	return errors.Is(err, &AppError{Code: code})
}

// GetCode returns the code of the outermost AppError in err's chain.
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknownError
}
