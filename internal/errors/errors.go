package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a tabstash error code.
type ErrorCode string

const (
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"    // 400
	ErrNotFound          ErrorCode = "NOT_FOUND"          // 404
	ErrFileNotFound      ErrorCode = "FILE_NOT_FOUND"     // 404
	ErrInvalidDocument   ErrorCode = "INVALID_DOCUMENT"   // 422
	ErrInternal          ErrorCode = "INTERNAL"           // 500
	ErrExternalService   ErrorCode = "EXTERNAL_SERVICE"   // 502
	ErrWindowUnavailable ErrorCode = "WINDOW_UNAVAILABLE" // 503
)

// StashError represents a structured error with code, status, and details.
type StashError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	cause error
}

// Error implements the error interface.
func (e *StashError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the collaborator error behind EXTERNAL_SERVICE and friends.
func (e *StashError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *StashError {
	return &StashError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewGroupNotFound creates a 404 error for a group title missing from the
// snapshot or from the live browser.
func NewGroupNotFound(where, title string) *StashError {
	return &StashError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s group not found: %q", where, title),
		Details: map[string]any{"title": title, "where": where},
	}
}

// NewTabNotFound creates a 404 error for a URL missing from the saved ungrouped tabs.
func NewTabNotFound(url string) *StashError {
	return &StashError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("saved ungrouped tab not found: %s", url),
		Details: map[string]any{"url": url},
	}
}

// NewSnapshotNotFound creates a 404 error for operations that need a saved document.
func NewSnapshotNotFound() *StashError {
	return &StashError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "no snapshot has been saved",
	}
}

// NewFileNotFound creates a 404 error for missing import files.
func NewFileNotFound(path string) *StashError {
	return &StashError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewInvalidDocument creates a 422 error for documents that break snapshot invariants.
func NewInvalidDocument(problems []string) *StashError {
	return &StashError{
		Code:    ErrInvalidDocument,
		Status:  422,
		Message: fmt.Sprintf("snapshot document is invalid: %v", problems),
		Details: map[string]any{"problems": problems},
	}
}

// NewExternalService creates a 502 error for a failed store or browser call.
// op names the collaborator call, e.g. "browser.create_tab".
func NewExternalService(op string, err error) *StashError {
	msg := op + " failed"
	if err != nil {
		msg = fmt.Sprintf("%s failed: %v", op, err)
	}
	return &StashError{
		Code:    ErrExternalService,
		Status:  502,
		Message: msg,
		Details: map[string]any{"operation": op},
		cause:   err,
	}
}

// NewWindowUnavailable creates a 503 error when no target window can be resolved.
func NewWindowUnavailable(err error) *StashError {
	msg := "no active browser window"
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &StashError{
		Code:    ErrWindowUnavailable,
		Status:  503,
		Message: msg,
		cause:   err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *StashError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &StashError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// Is checks if err is, or wraps, a StashError with the given code.
func Is(err error, code ErrorCode) bool {
	var sErr *StashError
	if stderrors.As(err, &sErr) {
		return sErr.Code == code
	}
	return false
}

// Wrap returns err unchanged if it is already a StashError, otherwise it
// wraps it as an EXTERNAL_SERVICE failure of op.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var sErr *StashError
	if stderrors.As(err, &sErr) {
		return err
	}
	return NewExternalService(op, err)
}
