package pod

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/Ratio1/pod_sdk_go/internal/httpx"
)

//go:generate mockgen -destination=../../internal/mock/pod/transport.go -package=mock_pod github.com/Ratio1/pod_sdk_go/pkg/pod Transport

// Transport performs the three HTTP exchanges the pod protocol needs. URLs are
// absolute. Implementations return *StatusError for non-2xx statuses.
type Transport interface {
	// Probe issues a HEAD and reports true only for a 200 response. Failures
	// are swallowed: this is a best-effort existence check.
	Probe(ctx context.Context, url string) bool
	// Put stores body at url with the supplied headers.
	Put(ctx context.Context, url string, body []byte, header http.Header) (*Response, error)
	// Get fetches url asking for the accept media type.
	Get(ctx context.Context, url string, accept string) (*Response, error)
}

type httpTransport struct {
	client *httpx.Client
	logger *slog.Logger
}

// NewHTTPTransport returns a Transport sending requests through client.
func NewHTTPTransport(client *httpx.Client, logger *slog.Logger) Transport {
	if logger == nil {
		logger = discardLogger()
	}
	return &httpTransport{client: client, logger: logger}
}

func (t *httpTransport) Probe(ctx context.Context, url string) bool {
	resp, err := t.client.Do(ctx, &httpx.Request{
		Method:       http.MethodHead,
		Path:         url,
		DisableRetry: true,
	})
	if err != nil {
		t.logger.DebugContext(ctx, "probe failed", "url", url, "err", err)
		return false
	}
	closeResponse(resp)
	return resp.StatusCode == http.StatusOK
}

func (t *httpTransport) Put(ctx context.Context, url string, body []byte, header http.Header) (*Response, error) {
	resp, err := t.client.Do(ctx, &httpx.Request{
		Method: http.MethodPut,
		Path:   url,
		Header: header,
		Body:   bytes.NewReader(body),
		GetBody: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		},
	})
	if err != nil {
		return nil, convertError(err)
	}
	closeResponse(resp)
	return &Response{
		StatusCode: resp.StatusCode,
		ETag:       resp.Header.Get("ETag"),
	}, nil
}

func (t *httpTransport) Get(ctx context.Context, url string, accept string) (*Response, error) {
	req := &httpx.Request{
		Method: http.MethodGet,
		Path:   url,
	}
	if accept != "" {
		req.Header = http.Header{"Accept": []string{accept}}
	}
	resp, err := t.client.Do(ctx, req)
	if err != nil {
		return nil, convertError(err)
	}
	data, err := httpx.ReadAllAndClose(resp.Body)
	if err != nil {
		return nil, err
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Body:       data,
		ETag:       resp.Header.Get("ETag"),
	}, nil
}

func convertError(err error) error {
	var httpErr *httpx.HTTPError
	if errors.As(err, &httpErr) {
		return &StatusError{StatusCode: httpErr.StatusCode, Body: httpErr.Body}
	}
	return err
}

func closeResponse(resp *http.Response) {
	if resp != nil && resp.Body != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}
}
