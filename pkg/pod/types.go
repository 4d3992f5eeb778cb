package pod

import (
	"errors"
	"fmt"
)

// Resource is the decoded content of a pod resource.
type Resource struct {
	URL   string
	Items []string
	ETag  string
}

// Response is what a Transport reports for a successful exchange.
type Response struct {
	StatusCode int
	Body       []byte
	ETag       string
}

// StatusError reports a non-2xx status returned by the pod.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if len(e.Body) == 0 {
		return fmt.Sprintf("pod: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("pod: unexpected status %d: %s", e.StatusCode, string(e.Body))
}

var (
	// ErrNotFound is returned when a resource does not exist.
	ErrNotFound = errors.New("pod: not found")
	// ErrPreconditionFailed signals that a conditional write lost a race.
	ErrPreconditionFailed = errors.New("pod: precondition failed")
	// ErrUnexpectedStatus is returned for 2xx statuses an operation does not accept.
	ErrUnexpectedStatus = errors.New("pod: unexpected status")
	// ErrInvalidName is returned for empty or malformed container and resource names.
	ErrInvalidName = errors.New("pod: invalid name")
)

// StatusCode extracts the HTTP status carried by err, if any.
func StatusCode(err error) (int, bool) {
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr != nil {
		return statusErr.StatusCode, true
	}
	return 0, false
}
