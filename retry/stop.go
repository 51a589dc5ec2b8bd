package retry

import "errors"

// Stop wraps an error to signal that it should not be retried.
// The retry loop will immediately return the unwrapped error.
func Stop(err error) error {
	if err == nil {
		return nil
	}
	return &stopError{err: err}
}

// stopError wraps an error that should not be retried.
type stopError struct {
	err error
}

func (e *stopError) Error() string {
	return e.err.Error()
}

func (e *stopError) Unwrap() error {
	return e.err
}

// StatusCoder is implemented by errors that carry a numeric status, such as
// the HTTP status of a failed request.
type StatusCoder interface {
	StatusCode() int
}

// StatusCode returns the status of the first error in err's chain that
// implements StatusCoder.
func StatusCode(err error) (int, bool) {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode(), true
	}
	return 0, false
}
