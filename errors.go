package filemagic

import (
	"errors"
	"fmt"
)

// Detection errors
var (
	// ErrInvalidArgument is returned when no source is supplied.
	ErrInvalidArgument = errors.New("source is nil")

	// ErrInvalidState is returned for a forward-only source that has
	// already been read from.
	ErrInvalidState = errors.New("cannot detect on unseekable source not at offset 0")

	// ErrNotSupported is returned by sources that cannot perform an operation,
	// such as seeking a pipe.
	ErrNotSupported = errors.New("operation not supported")

	// ErrInvalidConfig is returned by New for unusable configuration values.
	ErrInvalidConfig = errors.New("invalid config")
)

// DetectError records a failure of one step of detection and the
// underlying error. Container parse failures are reported with
// Op "container" and are never downgraded to a generic zip result.
type DetectError struct {
	Op  string
	Err error
}

// Error implements the error interface
func (e *DetectError) Error() string {
	return fmt.Sprintf("filemagic: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *DetectError) Unwrap() error {
	return e.Err
}

func opError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &DetectError{Op: op, Err: err}
}

// IsInvalidArgument reports whether err was caused by a nil source
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

// IsInvalidState reports whether err was caused by a forward-only source
// that was not at its start
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// ErrorOp returns the failing step recorded in a DetectError, or an empty
// string if err is not one.
func ErrorOp(err error) string {
	var detectErr *DetectError
	if errors.As(err, &detectErr) {
		return detectErr.Op
	}
	return ""
}
