package httpserver

import (
	"net/http"
	"strings"

	"github.com/KevinRamirezAmaya/webRTC/internal/metrics"
)

// originMiddleware rejects browser requests from origins outside the policy and
// adds CORS headers for the ones it lets through. Requests without an Origin
// header are passed unchanged.
func (s *Server) originMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			normalizedOrigin, ok := s.policy.Check(r.Header.Get("Origin"), r.Host)
			if !ok {
				s.metrics.Inc(metrics.OriginRejected)
				s.log.Warn("rejected request origin",
					"origin", r.Header.Get("Origin"),
					"host", r.Host,
					"path", r.URL.Path,
					"request_id", r.Header.Get("X-Request-ID"),
				)
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			if normalizedOrigin == "" {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", normalizedOrigin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")
			w.Header().Add("Vary", "Origin")

			// Preflight never reaches the route handler.
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
				if requestHeaders := strings.TrimSpace(r.Header.Get("Access-Control-Request-Headers")); requestHeaders != "" {
					w.Header().Set("Access-Control-Allow-Headers", requestHeaders)
				}
				w.Header().Set("Access-Control-Max-Age", "600")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
