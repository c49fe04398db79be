package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

var (
	corsMethods = []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions}
	corsHeaders = []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"}
	corsExpose  = []string{"X-Request-Id", "Retry-After"}
	corsMaxAge  = time.Hour
)

// CORS echoes an allowed Origin and short-circuits preflight requests.
// A "*" entry allows any origin but never with credentials.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimSuffix(o, "/")] = true
	}
	wildcard := allowed["*"]

	methods := strings.Join(corsMethods, ", ")
	headers := strings.Join(corsHeaders, ", ")
	expose := strings.Join(corsExpose, ", ")
	maxAge := strconv.Itoa(int(corsMaxAge.Seconds()))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Add("Vary", "Origin")
			switch {
			case allowed[origin]:
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
			case wildcard:
				h.Set("Access-Control-Allow-Origin", "*")
			default:
				next.ServeHTTP(w, r)
				return
			}
			h.Set("Access-Control-Expose-Headers", expose)

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", methods)
				h.Set("Access-Control-Allow-Headers", headers)
				h.Set("Access-Control-Max-Age", maxAge)
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
