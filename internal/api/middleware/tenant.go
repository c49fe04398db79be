package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/schoolhub/membership/internal/tenant"
)

// SchoolScope copies the {schoolID} route parameter into the request context.
func SchoolScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := chi.URLParam(r, "schoolID"); id != "" {
			r = r.WithContext(tenant.WithSchoolID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}
