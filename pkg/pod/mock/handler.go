package mock

import (
	"errors"
	"io"
	"net/http"
)

const defaultMaxBodyBytes = 8 << 20

// Handler serves the pod over HTTP: HEAD/GET/PUT on containers (paths ending
// with "/") and resources. Bodies over the WithMaxBodyBytes limit are answered
// with 413 and never stored.
func (p *Pod) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, p.maxBody))
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
					return
				}
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			body = data
		}

		res := p.exchange(r.Method, r.URL.Path, r.Header, body)
		for k, values := range res.header {
			for _, v := range values {
				w.Header().Add(k, v)
			}
		}
		w.WriteHeader(res.status)
		if r.Method != http.MethodHead && len(res.body) > 0 {
			_, _ = w.Write(res.body)
		}
	})
}
