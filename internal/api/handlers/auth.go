package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hugh/adopt-a-pet/internal/api/dto"
	"github.com/hugh/adopt-a-pet/internal/auth"
	"github.com/hugh/adopt-a-pet/internal/petfinder"
	"github.com/hugh/adopt-a-pet/internal/session"
)

// TokenSource issues catalog credentials. *petfinder.Client implements it.
type TokenSource interface {
	FetchToken(ctx context.Context) (petfinder.Credential, error)
}

type AuthHandler struct {
	accounts auth.Accounts
	tokens   TokenSource
	sessions *session.Manager
	render   *Renderer
	logger   *slog.Logger
}

func NewAuthHandler(accounts auth.Accounts, tokens TokenSource, sessions *session.Manager, render *Renderer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		tokens:   tokens,
		sessions: sessions,
		render:   render,
		logger:   logger,
	}
}

func (h *AuthHandler) SignupPage(w http.ResponseWriter, r *http.Request) {
	h.render.HTML(w, r, http.StatusOK, "signup.html", &Page{Title: "Sign up", Form: dto.SignupForm{}})
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	form := dto.ParseSignupForm(r)
	if errors := form.Validate(); len(errors) > 0 {
		h.render.HTML(w, r, http.StatusBadRequest, "signup.html", &Page{Title: "Sign up", Form: form, Errors: errors})
		return
	}

	user, err := h.accounts.Signup(r.Context(), auth.SignupInput{
		Username: form.Username,
		Password: form.Password,
		Email:    form.Email,
	})
	if err != nil {
		switch err {
		case auth.ErrUserExists:
			h.render.HTML(w, r, http.StatusConflict, "signup.html", &Page{
				Title:  "Sign up",
				Form:   form,
				Errors: map[string]string{"form": "Username or email already taken"},
			})
		default:
			h.render.ServerError(w, r, err)
		}
		return
	}

	// The account stands even if the catalog is unreachable.
	cred := h.fetchToken(r.Context())
	if err := h.sessions.Login(w, r, user.ID, cred); err != nil {
		h.render.ServerError(w, r, err)
		return
	}
	h.logger.Info("user signed up", "user_id", user.ID, "username", user.Username)

	h.render.Flash(w, r, "success", "Welcome, "+user.Username+"!")
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.render.HTML(w, r, http.StatusOK, "login.html", &Page{Title: "Log in", Form: dto.LoginForm{}})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	form := dto.ParseLoginForm(r)
	if errors := form.Validate(); len(errors) > 0 {
		h.render.HTML(w, r, http.StatusBadRequest, "login.html", &Page{Title: "Log in", Form: form, Errors: errors})
		return
	}

	user, err := h.accounts.Login(r.Context(), auth.LoginInput{
		Username: form.Username,
		Password: form.Password,
	})
	if err != nil {
		switch err {
		case auth.ErrInvalidCredentials:
			h.render.Flash(w, r, "danger", "Invalid credentials.")
			h.render.HTML(w, r, http.StatusUnauthorized, "login.html", &Page{Title: "Log in", Form: dto.LoginForm{Username: form.Username}})
		default:
			h.render.ServerError(w, r, err)
		}
		return
	}

	cred := h.fetchToken(r.Context())
	if err := h.sessions.Login(w, r, user.ID, cred); err != nil {
		h.render.ServerError(w, r, err)
		return
	}
	h.logger.Info("user logged in", "user_id", user.ID)

	h.render.Flash(w, r, "success", "Hello, "+user.Username+"!")
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if !session.FromContext(r.Context()).LoggedIn() {
		h.render.Flash(w, r, "info", "You are already logged out!")
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	if err := h.sessions.Logout(w, r); err != nil {
		h.render.ServerError(w, r, err)
		return
	}

	h.render.Flash(w, r, "info", "Logged out successfully")
	http.Redirect(w, r, "/login", http.StatusFound)
}

// fetchToken returns a fresh credential, or an empty one when the catalog
// cannot be reached. Catalog pages then ask the user to log in again.
func (h *AuthHandler) fetchToken(ctx context.Context) petfinder.Credential {
	cred, err := h.tokens.FetchToken(ctx)
	if err != nil {
		h.logger.Warn("could not obtain catalog token", "error", err)
		return petfinder.Credential{}
	}
	return cred
}
