package middleware

import (
	"net/http"
	"time"

	"github.com/hugh/adopt-a-pet/internal/session"
)

const (
	MsgUnauthorized      = "Access unauthorized."
	MsgLoginFirst        = "Please login first!"
	MsgCredentialExpired = "Your catalog session has expired. Please log in again."
)

// LoadSession reads the session once and puts its State in the request
// context.
func LoadSession(m *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state := m.Load(r)
			next.ServeHTTP(w, r.WithContext(session.WithState(r.Context(), state)))
		})
	}
}

// RequireUser redirects logged-out visitors to target with a danger flash.
func RequireUser(m *session.Manager, target, message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if session.FromContext(r.Context()).LoggedIn() {
				next.ServeHTTP(w, r)
				return
			}

			_ = m.AddFlash(w, r, "danger", message)
			http.Redirect(w, r, target, http.StatusFound)
		})
	}
}

// RequireCredential checks the catalog credential lazily on each request.
// An absent or expired credential is dropped and the user is sent to log in
// again.
func RequireCredential(m *session.Manager, now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state := session.FromContext(r.Context())
			if state.Credential.Valid(now()) {
				next.ServeHTTP(w, r)
				return
			}

			ExpireCredential(m, w, r)
		})
	}
}

// ExpireCredential clears the stored credential and redirects to /login.
// Handlers call it when the catalog rejects a token.
func ExpireCredential(m *session.Manager, w http.ResponseWriter, r *http.Request) {
	_ = m.ClearCredential(w, r)
	_ = m.AddFlash(w, r, "danger", MsgCredentialExpired)
	http.Redirect(w, r, "/login", http.StatusFound)
}
