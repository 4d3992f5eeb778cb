package httpx

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError represents a non-2xx HTTP response returned by the remote service.
type HTTPError struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if len(e.Body) == 0 {
		return fmt.Sprintf("http error: status=%d", e.StatusCode)
	}
	return fmt.Sprintf("http error: status=%d body=%s", e.StatusCode, string(e.Body))
}

// Retryable reports whether the error should be considered transient.
func (e *HTTPError) Retryable() bool {
	if e == nil {
		return false
	}
	return e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode == http.StatusRequestTimeout ||
		(e.StatusCode >= 500 && e.StatusCode <= 599)
}

// StatusCode returns the HTTP status carried by err, if any.
func StatusCode(err error) (int, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr != nil {
		return httpErr.StatusCode, true
	}
	return 0, false
}
