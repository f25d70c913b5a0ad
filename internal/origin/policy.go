package origin

import (
	"net/http"
	"strings"
)

// Policy applies an allow-list to incoming requests. An empty allow-list means
// same-host only.
type Policy struct {
	AllowedOrigins []string
}

// Check validates a raw Origin header for a request addressed to requestHost.
// Requests without an Origin header come from non-browser clients and pass
// with an empty normalized origin.
func (p Policy) Check(originHeader, requestHost string) (normalizedOrigin string, ok bool) {
	if strings.TrimSpace(originHeader) == "" {
		return "", true
	}
	normalizedOrigin, originHost, ok := NormalizeHeader(originHeader)
	if !ok || !IsAllowed(normalizedOrigin, originHost, requestHost, p.AllowedOrigins) {
		return "", false
	}
	return normalizedOrigin, true
}

// CheckOrigin matches the websocket.Upgrader.CheckOrigin signature.
func (p Policy) CheckOrigin(r *http.Request) bool {
	_, ok := p.Check(r.Header.Get("Origin"), r.Host)
	return ok
}
