package http

import (
	"net/http"
	"path/filepath"
	"strings"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// uploadName reduces a client-supplied filename to its base name. The
// extension is kept intact since it selects the decoder.
func uploadName(name string) string {
	name = sanitizeInput(name)
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// isHTMX reports whether the request came from htmx rather than a plain
// form post or navigation.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
