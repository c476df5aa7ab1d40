package middleware

import (
	"net/http"

	"github.com/gorilla/csrf"
)

// CSRF protects form posts with gorilla/csrf. Over plain HTTP the request is
// marked as such so the origin check does not demand TLS.
func CSRF(authKey []byte, secure bool, onFailure http.Handler) func(http.Handler) http.Handler {
	protect := csrf.Protect(authKey,
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.FieldName("csrf_token"),
		csrf.ErrorHandler(onFailure),
	)

	return func(next http.Handler) http.Handler {
		protected := protect(next)
		if secure {
			return protected
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			protected.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}
}
