package middleware

import (
	"net/http"
	"strings"
)

// The widget sends X-Conversation-Id on every call and the dashboard sends
// bearer tokens; the router never mounts PUT or DELETE.
const (
	corsAllowedHeaders = "Authorization, Content-Type, X-Conversation-Id"
	corsAllowedMethods = "GET, POST, PATCH, OPTIONS"
	corsMaxAge         = "600"
)

// CORS provides a simple allowlist-based CORS middleware for the embeddable
// chat widget and the admin dashboard. If allowedOrigins contains "*", any
// Origin is echoed back; clinics embedding the widget on their own site get
// listed explicitly.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowAny := false
	allow := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "" {
			continue
		}
		if origin == "*" {
			allowAny = true
			continue
		}
		allow[origin] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin != "" {
				_, listed := allow[strings.TrimRight(origin, "/")]
				if allowAny || listed {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Add("Vary", "Origin")
					w.Header().Set("Access-Control-Allow-Headers", corsAllowedHeaders)
					w.Header().Set("Access-Control-Allow-Methods", corsAllowedMethods)
					w.Header().Set("Access-Control-Max-Age", corsMaxAge)
				}
			}

			if r.Method == http.MethodOptions && origin != "" && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
