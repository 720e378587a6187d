package handler

import (
	"strings"

	httputil "sonna/internal/pkg/http"
)

// ErrorResponse error envelope type alias (shared http.ErrorResponse)
type ErrorResponse = httputil.ErrorResponse

// headerTextLimit caps transcript and reply text carried in headers.
const headerTextLimit = 500

// headerText makes free text usable as an HTTP header value: line
// breaks become spaces and the result is capped at headerTextLimit
// runes.
func headerText(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '\r' || r == '\n' {
			return ' '
		}
		return r
	}, s)
	if runes := []rune(s); len(runes) > headerTextLimit {
		return string(runes[:headerTextLimit])
	}
	return s
}
