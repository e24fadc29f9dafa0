package worker

import (
	"errors"
	"fmt"
)

var (
	// ErrPermissionDenied means notification permission is not granted. Expected and non-fatal.
	ErrPermissionDenied = errors.New("notification permission not granted")
	// ErrUnsupported means the host lacks the capability (e.g. badges). Expected and non-fatal.
	ErrUnsupported = errors.New("capability not supported on this host")
)

// PlatformError wraps a failure of the underlying host call.
type PlatformError struct {
	Op  string
	Err error
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PlatformError) Unwrap() error {
	return e.Err
}

// IsFailure reports whether err is a real failure rather than an expected outcome.
func IsFailure(err error) bool {
	return err != nil && !errors.Is(err, ErrPermissionDenied) && !errors.Is(err, ErrUnsupported)
}
