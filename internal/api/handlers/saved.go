package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/adopt-a-pet/internal/api/middleware"
	"github.com/hugh/adopt-a-pet/internal/api/validation"
	"github.com/hugh/adopt-a-pet/internal/petfinder"
	"github.com/hugh/adopt-a-pet/internal/saved"
	"github.com/hugh/adopt-a-pet/internal/session"
)

type SavedHandler struct {
	saved    *saved.Service
	sessions *session.Manager
	render   *Renderer
	logger   *slog.Logger
}

func NewSavedHandler(savedService *saved.Service, sessions *session.Manager, render *Renderer, logger *slog.Logger) *SavedHandler {
	return &SavedHandler{
		saved:    savedService,
		sessions: sessions,
		render:   render,
		logger:   logger,
	}
}

func (h *SavedHandler) ToggleAnimal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validation.IsValidAnimalID(id) {
		h.render.NotFound(w, r, "No such animal.")
		return
	}

	state := session.FromContext(r.Context())
	_, err := h.saved.ToggleAnimal(r.Context(), state.UserID, state.Credential, id)
	h.finish(w, r, err)
}

func (h *SavedHandler) ToggleOrganization(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validation.IsValidOrganizationID(id) {
		h.render.NotFound(w, r, "No such organization.")
		return
	}

	state := session.FromContext(r.Context())
	_, err := h.saved.ToggleOrganization(r.Context(), state.UserID, state.Credential, id)
	h.finish(w, r, err)
}

func (h *SavedHandler) finish(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case err == nil:
		redirectBack(w, r)
	case errors.Is(err, saved.ErrUserNotFound):
		_ = h.sessions.Logout(w, r)
		h.render.Flash(w, r, "danger", middleware.MsgUnauthorized)
		http.Redirect(w, r, "/", http.StatusFound)
	case errors.Is(err, petfinder.ErrUnauthorized), errors.Is(err, petfinder.ErrNotFound):
		h.render.CatalogError(w, r, err, "/")
	default:
		h.logger.Error("toggle failed", "path", r.URL.Path, "error", err)
		h.render.Flash(w, r, "danger", msgUnexpected)
		redirectBack(w, r)
	}
}
