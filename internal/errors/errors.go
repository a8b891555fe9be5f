// Package errors provides structured error types for tasksync.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
)

// Code represents a unique error code.
type Code string

// Error codes for tasksync.
const (
	// Initialization errors
	CodeNotInitialized     Code = "NOT_INITIALIZED"
	CodeAlreadyInitialized Code = "ALREADY_INITIALIZED"

	// Task errors
	CodeTaskNotFound Code = "TASK_NOT_FOUND"

	// Data source errors
	CodeDataNotAvailable Code = "DATA_NOT_AVAILABLE"
	CodeWriteFailed      Code = "WRITE_FAILED"

	// Config errors
	CodeConfigInvalid Code = "CONFIG_INVALID"
	CodeConfigMissing Code = "CONFIG_MISSING"
)

// Category groups error codes for HTTP status mapping.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryNotFound
	CategoryBadRequest
	CategoryConflict
	CategoryInternal
	CategoryUnavailable
)

var codeCategories = map[Code]Category{
	CodeNotInitialized:     CategoryBadRequest,
	CodeAlreadyInitialized: CategoryConflict,
	CodeTaskNotFound:       CategoryNotFound,
	CodeDataNotAvailable:   CategoryUnavailable,
	CodeWriteFailed:        CategoryInternal,
	CodeConfigInvalid:      CategoryBadRequest,
	CodeConfigMissing:      CategoryBadRequest,
}

// HTTPStatus returns the HTTP status code for a category.
func (c Category) HTTPStatus() int {
	switch c {
	case CategoryNotFound:
		return 404
	case CategoryBadRequest:
		return 400
	case CategoryConflict:
		return 409
	case CategoryUnavailable:
		return 503
	default:
		return 500
	}
}

// SyncError is the structured error type for tasksync.
type SyncError struct {
	Code  Code   `json:"code"`
	What  string `json:"what"`
	Why   string `json:"why,omitempty"`
	Fix   string `json:"fix,omitempty"`
	Cause error  `json:"-"`
}

// Error implements the error interface.
func (e *SyncError) Error() string {
	var b strings.Builder
	b.WriteString(e.What)
	if e.Why != "" {
		b.WriteString(": ")
		b.WriteString(e.Why)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *SyncError) Unwrap() error {
	return e.Cause
}

// UserMessage returns a user-friendly message for CLI output.
func (e *SyncError) UserMessage() string {
	var b strings.Builder
	b.WriteString("Error: ")
	b.WriteString(e.What)
	if e.Why != "" {
		b.WriteString("\n\nWhy: ")
		b.WriteString(e.Why)
	}
	if e.Fix != "" {
		b.WriteString("\n\nFix: ")
		b.WriteString(e.Fix)
	}
	return b.String()
}

// Category returns the error category for HTTP status mapping.
func (e *SyncError) Category() Category {
	if cat, ok := codeCategories[e.Code]; ok {
		return cat
	}
	return CategoryUnknown
}

// HTTPStatus returns the appropriate HTTP status code for this error.
func (e *SyncError) HTTPStatus() int {
	return e.Category().HTTPStatus()
}

// MarshalJSON implements json.Marshaler.
func (e *SyncError) MarshalJSON() ([]byte, error) {
	type alias SyncError
	aux := struct {
		*alias
		CauseMsg string `json:"cause,omitempty"`
	}{
		alias: (*alias)(e),
	}
	if e.Cause != nil {
		aux.CauseMsg = e.Cause.Error()
	}
	return json.Marshal(aux)
}

// Is reports whether target is a SyncError with the same code.
func (e *SyncError) Is(target error) bool {
	t, ok := target.(*SyncError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a copy of the error with the given cause.
func (e *SyncError) WithCause(err error) *SyncError {
	return &SyncError{
		Code:  e.Code,
		What:  e.What,
		Why:   e.Why,
		Fix:   e.Fix,
		Cause: err,
	}
}

// --- Error constructors ---

// ErrNotInitialized returns an error for a missing .tasksync directory.
func ErrNotInitialized() *SyncError {
	return &SyncError{
		Code: CodeNotInitialized,
		What: "tasksync is not initialized in this directory",
		Why:  "No .tasksync/ directory found in the current path",
		Fix:  "Run 'tasksync init' to initialize",
	}
}

// ErrAlreadyInitialized returns an error when tasksync is already initialized.
func ErrAlreadyInitialized(path string) *SyncError {
	return &SyncError{
		Code: CodeAlreadyInitialized,
		What: "tasksync is already initialized",
		Why:  fmt.Sprintf("Found existing .tasksync/ directory at %s", path),
		Fix:  "Use 'tasksync init --force' to reinitialize",
	}
}

// ErrTaskNotFound returns an error when a task can't be resolved.
func ErrTaskNotFound(id string) *SyncError {
	return &SyncError{
		Code: CodeTaskNotFound,
		What: fmt.Sprintf("task %s not found", id),
		Why:  "No task with this ID is known",
		Fix:  "Run 'tasksync list' to see available tasks",
	}
}

// ErrDataNotAvailable returns the "not available" outcome of a data source.
// It is the only failure a read can report; callers match it with errors.Is.
func ErrDataNotAvailable(source string) *SyncError {
	return &SyncError{
		Code: CodeDataNotAvailable,
		What: fmt.Sprintf("%s data not available", source),
	}
}

// ErrWriteFailed returns an error when a write could not be applied to
// every data source.
func ErrWriteFailed(op string, cause error) *SyncError {
	return &SyncError{
		Code:  CodeWriteFailed,
		What:  fmt.Sprintf("%s failed", op),
		Why:   "At least one data source rejected the write; the others were still attempted",
		Cause: cause,
	}
}

// ErrConfigInvalid returns an error for invalid configuration.
func ErrConfigInvalid(field, reason string) *SyncError {
	return &SyncError{
		Code: CodeConfigInvalid,
		What: fmt.Sprintf("invalid configuration: %s", field),
		Why:  reason,
		Fix:  "Check .tasksync/config.yaml and fix the invalid field",
	}
}

// ErrConfigMissing returns an error for missing configuration.
func ErrConfigMissing(field string) *SyncError {
	return &SyncError{
		Code: CodeConfigMissing,
		What: fmt.Sprintf("missing required configuration: %s", field),
		Why:  "This field is required but not set in configuration",
		Fix:  fmt.Sprintf("Add '%s' to .tasksync/config.yaml", field),
	}
}

// IsNotAvailable reports whether err is a data-not-available outcome.
func IsNotAvailable(err error) bool {
	return stderrors.Is(err, &SyncError{Code: CodeDataNotAvailable})
}

// IsTaskNotFound reports whether err is a task-not-found error.
func IsTaskNotFound(err error) bool {
	return stderrors.Is(err, &SyncError{Code: CodeTaskNotFound})
}

// AsSyncError attempts to convert an error to a SyncError.
// Returns nil if the error is not a SyncError.
func AsSyncError(err error) *SyncError {
	var syncErr *SyncError
	if stderrors.As(err, &syncErr) {
		return syncErr
	}
	return nil
}

// Wrap wraps a generic error into a SyncError with unknown code.
func Wrap(err error, what string) *SyncError {
	return &SyncError{
		Code:  Code("UNKNOWN"),
		What:  what,
		Cause: err,
	}
}
