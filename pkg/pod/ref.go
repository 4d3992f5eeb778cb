package pod

import (
	"fmt"
	"net/url"
	"strings"
)

// Ref identifies the root of a pod. The zero value is not usable; build one
// with ParseRef. Ref is immutable and safe to share.
type Ref struct {
	base string
}

// ParseRef validates raw and returns a Ref whose base URL ends with "/".
func ParseRef(raw string) (Ref, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Ref{}, fmt.Errorf("pod: pod URL is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return Ref{}, fmt.Errorf("pod: invalid pod URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Ref{}, fmt.Errorf("pod: invalid pod URL %q: scheme must be http or https", raw)
	}
	if parsed.Host == "" {
		return Ref{}, fmt.Errorf("pod: invalid pod URL %q: missing host", raw)
	}
	if parsed.RawQuery != "" || parsed.Fragment != "" {
		return Ref{}, fmt.Errorf("pod: invalid pod URL %q: query and fragment are not allowed", raw)
	}
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	return Ref{base: raw}, nil
}

// MustParseRef is like ParseRef but panics on error.
func MustParseRef(raw string) Ref {
	ref, err := ParseRef(raw)
	if err != nil {
		panic(err)
	}
	return ref
}

// String returns the pod base URL, always ending with "/".
func (r Ref) String() string {
	return r.base
}

// IsZero reports whether r was never initialised.
func (r Ref) IsZero() bool {
	return r.base == ""
}

// ContainerURL returns <pod>/<name>/.
func (r Ref) ContainerURL(name string) (string, error) {
	if r.IsZero() {
		return "", fmt.Errorf("pod: pod reference is not set")
	}
	segment, err := containerSegment(name)
	if err != nil {
		return "", err
	}
	return r.base + segment + "/", nil
}

// ResourceURL returns <pod>/<container>/<name>.
func (r Ref) ResourceURL(container, name string) (string, error) {
	containerURL, err := r.ContainerURL(container)
	if err != nil {
		return "", err
	}
	segment, err := pathSegment("resource", name)
	if err != nil {
		return "", err
	}
	return containerURL + segment, nil
}

func containerSegment(name string) (string, error) {
	return pathSegment("container", strings.TrimSuffix(strings.TrimSpace(name), "/"))
}

func pathSegment(kind, name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	switch {
	case trimmed == "":
		return "", fmt.Errorf("%w: %s name is required", ErrInvalidName, kind)
	case trimmed == "." || trimmed == "..":
		return "", fmt.Errorf("%w: %s name %q", ErrInvalidName, kind, name)
	case strings.ContainsAny(trimmed, "/\r\n"):
		return "", fmt.Errorf("%w: %s name %q must be a single path segment", ErrInvalidName, kind, name)
	}
	return url.PathEscape(trimmed), nil
}
