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

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context, keeping the code of the
// outermost AppError in its chain.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   err,
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

// IsAppError checks if an error is or wraps an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetCode returns the code of the outermost AppError in the chain, or "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// GetMessage returns the message of the outermost AppError in the chain, or
// err.Error() when there is none.
func GetMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// HasCode reports whether any AppError in the chain carries code.
func HasCode(err error, code string) bool {
	for err != nil {
		if appErr, ok := err.(*AppError); ok && appErr.Code == code {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// RootMessage returns the message of the innermost error in the chain.
// Provider failures are recorded with this so the stored text matches what
// the provider reported.
func RootMessage(err error) string {
	if err == nil {
		return ""
	}
	for {
		next := stderrors.Unwrap(err)
		if next == nil {
			if appErr, ok := err.(*AppError); ok {
				return appErr.Message
			}
			return err.Error()
		}
		err = next
	}
}

// Predefined error codes
const (
	CodeConfigInvalid   = "CONFIG_INVALID"
	CodeDatabaseError   = "DATABASE_ERROR"
	CodeValidationError = "VALIDATION_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeInternalError   = "INTERNAL_ERROR"
	CodeExternalService = "EXTERNAL_SERVICE_ERROR"
	CodeInvalidInput    = "INVALID_INPUT"

	// Source parsing and validation
	CodeEmptyInput        = "EMPTY_INPUT"
	CodeEmptyDataset      = "EMPTY_DATASET"
	CodeNoColumns         = "NO_COLUMNS"
	CodeEmptySheet        = "EMPTY_SHEET"
	CodeNoSheets          = "NO_SHEETS"
	CodeInvalidSyntax     = "INVALID_SYNTAX"
	CodeUnsupportedFormat = "UNSUPPORTED_FORMAT"

	// Generation stages
	CodeInsightGeneration = "INSIGHT_GENERATION"
	CodeStoryGeneration   = "STORY_GENERATION"
)

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func DatabaseError(message string) *AppError {
	return New(CodeDatabaseError, message)
}

func ValidationError(message string) *AppError {
	return New(CodeValidationError, message)
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}

func ExternalServiceError(service string, cause error) *AppError {
	return &AppError{
		Code:    CodeExternalService,
		Message: fmt.Sprintf("%s service error", service),
		Cause:   cause,
	}
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

func EmptyInput(message string) *AppError {
	return New(CodeEmptyInput, message)
}

func EmptyDataset() *AppError {
	return New(CodeEmptyDataset, "dataset has no rows")
}

func NoColumns() *AppError {
	return New(CodeNoColumns, "dataset has no columns")
}

func EmptySheet(sheet string) *AppError {
	return New(CodeEmptySheet, fmt.Sprintf("sheet %q has no data rows", sheet))
}

func NoSheets() *AppError {
	return New(CodeNoSheets, "workbook has no sheets")
}

func InvalidSyntax(cause error) *AppError {
	return &AppError{
		Code:    CodeInvalidSyntax,
		Message: "invalid structured record syntax",
		Cause:   cause,
	}
}

func UnsupportedFormat(mimeType string) *AppError {
	return New(CodeUnsupportedFormat, fmt.Sprintf("unsupported file type %q", mimeType))
}

// InsightGeneration wraps a single-attempt provider failure.
func InsightGeneration(cause error) *AppError {
	return &AppError{
		Code:    CodeInsightGeneration,
		Message: "insight generation failed",
		Cause:   cause,
	}
}

// StoryGeneration is returned once every provider in the story chain has
// failed. The message carries the primary provider's failure.
func StoryGeneration(primary error, cause error) *AppError {
	msg := "story generation failed"
	if primary != nil {
		msg = fmt.Sprintf("%s: %s", msg, primary.Error())
	}
	return &AppError{
		Code:    CodeStoryGeneration,
		Message: msg,
		Cause:   cause,
	}
}
