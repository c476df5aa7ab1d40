package handlers

import (
	"bytes"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/csrf"
	"github.com/hugh/adopt-a-pet/internal/api/middleware"
	"github.com/hugh/adopt-a-pet/internal/auth"
	"github.com/hugh/adopt-a-pet/internal/database/models"
	"github.com/hugh/adopt-a-pet/internal/petfinder"
	"github.com/hugh/adopt-a-pet/internal/session"
	"github.com/hugh/adopt-a-pet/internal/web"
)

const msgUnexpected = "An unexpected error occurred."

// Page is the data every template receives.
type Page struct {
	Title       string
	CurrentUser *models.User
	Flashes     []session.Flash
	CSRFField   template.HTML
	Form        interface{}
	Errors      map[string]string
	Data        interface{}
}

// Renderer fills in the per-request parts of a Page and writes HTML.
type Renderer struct {
	templates *web.Templates
	sessions  *session.Manager
	accounts  auth.Accounts
	logger    *slog.Logger
}

func NewRenderer(templates *web.Templates, sessions *session.Manager, accounts auth.Accounts, logger *slog.Logger) *Renderer {
	return &Renderer{
		templates: templates,
		sessions:  sessions,
		accounts:  accounts,
		logger:    logger,
	}
}

func (rd *Renderer) HTML(w http.ResponseWriter, r *http.Request, status int, name string, page *Page) {
	if rd.templates == nil {
		http.Error(w, "Templates not loaded", http.StatusInternalServerError)
		return
	}
	if page == nil {
		page = &Page{}
	}

	if state := session.FromContext(r.Context()); state.LoggedIn() && page.CurrentUser == nil {
		if user, err := rd.accounts.GetUserByID(r.Context(), state.UserID); err == nil {
			page.CurrentUser = user
		}
	}
	page.Flashes = rd.sessions.Flashes(w, r)
	page.CSRFField = csrf.TemplateField(r)

	var buf bytes.Buffer
	if err := rd.templates.Render(&buf, name, page); err != nil {
		rd.logger.Error("failed to render template", "template", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (rd *Renderer) NotFound(w http.ResponseWriter, r *http.Request, message string) {
	rd.HTML(w, r, http.StatusNotFound, "not_found.html", &Page{Title: "Not found", Data: message})
}

func (rd *Renderer) ServerError(w http.ResponseWriter, r *http.Request, err error) {
	rd.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	rd.HTML(w, r, http.StatusInternalServerError, "error.html", &Page{Title: "Error"})
}

// Forbidden answers CSRF failures.
func (rd *Renderer) Forbidden(w http.ResponseWriter, r *http.Request) {
	rd.logger.Warn("csrf check failed", "path", r.URL.Path, "reason", csrf.FailureReason(r))
	rd.HTML(w, r, http.StatusForbidden, "error.html", &Page{
		Title: "Forbidden",
		Data:  "Your form expired or was tampered with. Please go back and try again.",
	})
}

func (rd *Renderer) Flash(w http.ResponseWriter, r *http.Request, category, message string) {
	if err := rd.sessions.AddFlash(w, r, category, message); err != nil {
		rd.logger.Warn("failed to store flash", "error", err)
	}
}

// CatalogError answers a failed catalog call: a rejected token sends the
// user to log in again, a missing item is a 404, anything else is flashed.
func (rd *Renderer) CatalogError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, petfinder.ErrUnauthorized):
		middleware.ExpireCredential(rd.sessions, w, r)
	case errors.Is(err, petfinder.ErrNotFound):
		rd.NotFound(w, r, "We couldn't find that in the catalog.")
	default:
		rd.logger.Error("catalog request failed", "path", r.URL.Path, "error", err)
		rd.Flash(w, r, "danger", msgUnexpected)
		http.Redirect(w, r, fallback, http.StatusFound)
	}
}

// redirectBack sends the user to the referring page on this host, or "/".
func redirectBack(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, refererPath(r), http.StatusFound)
}

func refererPath(r *http.Request) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Path == "" {
		return "/"
	}
	if ref.Host != "" && ref.Host != r.Host {
		return "/"
	}
	if !strings.HasPrefix(ref.Path, "/") || strings.HasPrefix(ref.Path, "//") {
		return "/"
	}

	target := ref.Path
	if ref.RawQuery != "" {
		target += "?" + ref.RawQuery
	}
	return target
}
