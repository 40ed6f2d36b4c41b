package models

import (
	"errors"
	"fmt"
)

// Error codes carried by RunError. Every one of them aborts the run.
const (
	ErrCodeDownload     = "ORDERS_DOWNLOAD_FAILED"
	ErrCodeParse        = "ORDERS_PARSE_FAILED"
	ErrCodeNoOrders     = "NO_ORDERS"
	ErrCodeInvalidOrder = "INVALID_ORDER"
	ErrCodeBrowserCrash = "BROWSER_CRASH"
	ErrCodeNavigation   = "NAVIGATION_FAILED"
	ErrCodeElement      = "ELEMENT_NOT_FOUND"
	ErrCodeTimeout      = "TIMEOUT"
	ErrCodeSubmit       = "SUBMIT_FAILED"
	ErrCodeCapture      = "CAPTURE_FAILED"
	ErrCodeCompose      = "COMPOSE_FAILED"
	ErrCodeArchive      = "ARCHIVE_FAILED"
	ErrCodeCleanup      = "CLEANUP_FAILED"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// RunError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type RunError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *RunError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// NewRunError creates a new RunError.
func NewRunError(code, message string, err error) *RunError {
	return &RunError{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the first RunError in err's chain, or "" if
// there is none.
func CodeOf(err error) string {
	var re *RunError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}
