package ldpapi

import (
	"mime"
	"strings"
)

const (
	// ContentTypeTurtle is sent when creating containers.
	ContentTypeTurtle = "text/turtle"
	// ContentTypeText is the representation of every resource.
	ContentTypeText = "text/plain"

	// PersonalDataType marks a container as a personal-data container.
	PersonalDataType = "http://www.w3.org/ns/ldp#personal-data"
	// BasicContainerType is the plain LDP basic container type.
	BasicContainerType = "http://www.w3.org/ns/ldp#BasicContainer"
)

// TypeLink renders a Link header value declaring the resource type.
func TypeLink(typeURI string) string {
	return "<" + typeURI + `>; rel="type"`
}

// ParseLinkTypes returns the targets of every rel="type" entry found in the
// supplied Link header values, in order of appearance.
func ParseLinkTypes(values []string) []string {
	var types []string
	for _, value := range values {
		for _, entry := range splitOutsideAngles(value) {
			entry = strings.TrimSpace(entry)
			if !strings.HasPrefix(entry, "<") {
				continue
			}
			end := strings.Index(entry, ">")
			if end < 0 {
				continue
			}
			target := entry[1:end]
			for _, param := range strings.Split(entry[end+1:], ";") {
				key, val, ok := strings.Cut(strings.TrimSpace(param), "=")
				if !ok || !strings.EqualFold(strings.TrimSpace(key), "rel") {
					continue
				}
				for _, rel := range strings.Fields(strings.Trim(strings.TrimSpace(val), `"`)) {
					if strings.EqualFold(rel, "type") {
						types = append(types, target)
					}
				}
			}
		}
	}
	return types
}

// IsContainerLink reports whether the Link header values declare a container type.
func IsContainerLink(values []string) bool {
	for _, t := range ParseLinkTypes(values) {
		if t == PersonalDataType || t == BasicContainerType || strings.HasSuffix(t, "#Container") {
			return true
		}
	}
	return false
}

// MediaType strips parameters from a Content-Type value and lowercases it.
func MediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		if idx := strings.Index(contentType, ";"); idx >= 0 {
			contentType = contentType[:idx]
		}
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

// MatchETag reports whether an If-Match style header value matches etag.
// "*" matches any existing representation; an empty etag never matches.
func MatchETag(header, etag string) bool {
	if etag == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		if stripWeak(candidate) == stripWeak(etag) {
			return true
		}
	}
	return false
}

func stripWeak(tag string) string {
	return strings.TrimPrefix(strings.TrimSpace(tag), "W/")
}

func splitOutsideAngles(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
