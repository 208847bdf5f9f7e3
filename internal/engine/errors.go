package engine

import (
	"errors"
	"fmt"

	"github.com/Easy-Rad/wally/internal/model"
	"github.com/Easy-Rad/wally/internal/reporting"
	"github.com/Easy-Rad/wally/internal/store"
)

// SyncErrorCode categorizes failures of the sync loops.
type SyncErrorCode string

const (
	// ErrCodeAuthentication indicates the remote system rejected the
	// service credentials.
	ErrCodeAuthentication SyncErrorCode = "AUTHENTICATION_FAILURE"

	// ErrCodeTransient indicates a network or server failure worth retrying
	// after the fixed backoff.
	ErrCodeTransient SyncErrorCode = "TRANSIENT_NETWORK_FAILURE"

	// ErrCodeDataMapping indicates a remote value that has no local
	// representation.
	ErrCodeDataMapping SyncErrorCode = "DATA_MAPPING_FAILURE"

	// ErrCodeNotFound indicates a lookup that matched nothing.
	ErrCodeNotFound SyncErrorCode = "NOT_FOUND"
)

// SyncError wraps a failure with its category and the operation that
// produced it.
type SyncError struct {
	Code SyncErrorCode
	Op   string
	Err  error
}

// Error implements the error interface.
func (e *SyncError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *SyncError) Unwrap() error {
	return e.Err
}

// Classify maps an error onto a SyncErrorCode. Anything not recognised is
// treated as transient.
func Classify(err error) SyncErrorCode {
	var se *SyncError
	switch {
	case errors.As(err, &se):
		return se.Code
	case reporting.IsAuthError(err):
		return ErrCodeAuthentication
	case errors.Is(err, model.ErrUnknownEventKind):
		return ErrCodeDataMapping
	case errors.Is(err, store.ErrNotFound):
		return ErrCodeNotFound
	default:
		return ErrCodeTransient
	}
}

// wrap classifies err and attaches op. nil stays nil.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &SyncError{Code: Classify(err), Op: op, Err: err}
}

func hasCode(err error, code SyncErrorCode) bool {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// IsAuthError returns true if err is a SyncError with ErrCodeAuthentication.
func IsAuthError(err error) bool {
	return hasCode(err, ErrCodeAuthentication)
}

// IsTransient returns true if err is a SyncError with ErrCodeTransient.
func IsTransient(err error) bool {
	return hasCode(err, ErrCodeTransient)
}

// IsDataMapping returns true if err is a SyncError with ErrCodeDataMapping.
func IsDataMapping(err error) bool {
	return hasCode(err, ErrCodeDataMapping)
}

// IsNotFound returns true if err is a SyncError with ErrCodeNotFound.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}
