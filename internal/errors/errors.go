package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches sentinel errors by code, so errors.Is(err, ErrConfig) holds for
// any CONFIG_ERROR in the chain.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	if t.Message == "" && t.Cause == nil {
		return e.Code == t.Code
	}
	return e == t
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context, keeping its code
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   appErr,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Cause:   appErr.Cause,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// IsAppError checks if an error is, or wraps, an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetCode returns the code of the outermost AppError in the chain, otherwise "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// Predefined error codes
const (
	CodeDataError        = "DATA_ERROR"
	CodeConfigError      = "CONFIG_ERROR"
	CodeModelError       = "MODEL_ERROR"
	CodeStatisticalError = "STATISTICAL_ERROR"
	CodeDatabaseError    = "DATABASE_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeInternalError    = "INTERNAL_ERROR"
)

// Sentinels for errors.Is checks
var (
	ErrData        = &AppError{Code: CodeDataError}
	ErrConfig      = &AppError{Code: CodeConfigError}
	ErrModel       = &AppError{Code: CodeModelError}
	ErrStatistical = &AppError{Code: CodeStatisticalError}
	ErrDatabase    = &AppError{Code: CodeDatabaseError}
	ErrNotFound    = &AppError{Code: CodeNotFound}
)

// DataError reports missing columns, empty or degenerate arms.
func DataError(format string, args ...interface{}) *AppError {
	return New(CodeDataError, fmt.Sprintf(format, args...))
}

// ConfigError reports invalid parameters: k outside (0,1], bad economics,
// bad train fraction, absent covariates.
func ConfigError(format string, args ...interface{}) *AppError {
	return New(CodeConfigError, fmt.Sprintf(format, args...))
}

// ModelError reports single-class training subsets and fit failures.
func ModelError(format string, args ...interface{}) *AppError {
	return New(CodeModelError, fmt.Sprintf(format, args...))
}

// StatisticalError reports an indeterminate statistic such as zero pooled variance.
func StatisticalError(format string, args ...interface{}) *AppError {
	return New(CodeStatisticalError, fmt.Sprintf(format, args...))
}

func DatabaseError(message string, cause error) *AppError {
	return &AppError{
		Code:    CodeDatabaseError,
		Message: message,
		Cause:   cause,
	}
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}
