package reporting

import (
	"errors"
	"fmt"
)

// ErrNoSession is returned by session-bearing calls made before Login or
// after Logout.
var ErrNoSession = errors.New("no active reporting session")

// AuthError reports a rejected sign-in.
type AuthError struct {
	Login  string
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sign-in as %q failed: %s: %v", e.Login, e.Reason, e.Err)
	}
	return fmt.Sprintf("sign-in as %q failed: %s", e.Login, e.Reason)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// IsAuthError returns true if err is or wraps an *AuthError.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// Fault is a SOAP 1.2 fault returned by the server.
type Fault struct {
	Operation string
	Code      string
	Reason    string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: soap fault %s: %s", f.Operation, f.Code, f.Reason)
}

// HTTPError reports a non-2xx response that carried no SOAP fault.
type HTTPError struct {
	Operation  string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: unexpected HTTP status %d", e.Operation, e.StatusCode)
}
