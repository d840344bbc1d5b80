package utils

import (
	"net/url"
	"strings"
)

// IsHTTPURL checks if a URL uses HTTP or HTTPS scheme
func IsHTTPURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// TrimBaseURL strips surrounding whitespace and every trailing slash so
// resource paths can be appended with a single "/".
func TrimBaseURL(base string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/")
}

// JoinURL appends path segments to base, skipping empty segments
func JoinURL(base string, segments ...string) string {
	var b strings.Builder
	b.WriteString(TrimBaseURL(base))
	for _, s := range segments {
		s = strings.Trim(s, "/")
		if s == "" {
			continue
		}
		b.WriteByte('/')
		b.WriteString(s)
	}
	return b.String()
}
