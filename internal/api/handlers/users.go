package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hugh/adopt-a-pet/internal/api/dto"
	"github.com/hugh/adopt-a-pet/internal/api/middleware"
	"github.com/hugh/adopt-a-pet/internal/api/validation"
	"github.com/hugh/adopt-a-pet/internal/auth"
	"github.com/hugh/adopt-a-pet/internal/database/models"
	"github.com/hugh/adopt-a-pet/internal/saved"
	"github.com/hugh/adopt-a-pet/internal/session"
)

type UserHandler struct {
	accounts auth.Accounts
	saved    *saved.Service
	sessions *session.Manager
	render   *Renderer
	logger   *slog.Logger
}

func NewUserHandler(accounts auth.Accounts, savedService *saved.Service, sessions *session.Manager, render *Renderer, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		accounts: accounts,
		saved:    savedService,
		sessions: sessions,
		render:   render,
		logger:   logger,
	}
}

type usersIndexData struct {
	Users []models.User
	Query string
}

type userShowData struct {
	Profile *models.User
	IsOwner bool
}

type savedOrganizationsData struct {
	Owner         *models.User
	Organizations []models.Organization
	SavedIDs      map[string]bool
}

type savedAnimalsData struct {
	Owner    *models.User
	Animals  []models.Animal
	SavedIDs map[string]bool
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	query := validation.SanitizeString(strings.TrimSpace(r.URL.Query().Get("q")))

	users, err := h.accounts.ListUsers(r.Context(), query)
	if err != nil {
		h.render.ServerError(w, r, err)
		return
	}

	h.render.HTML(w, r, http.StatusOK, "users_index.html", &Page{
		Title: "Users",
		Data:  usersIndexData{Users: users, Query: query},
	})
}

func (h *UserHandler) Show(w http.ResponseWriter, r *http.Request) {
	user, ok := h.userFromPath(w, r)
	if !ok {
		return
	}

	state := session.FromContext(r.Context())
	h.render.HTML(w, r, http.StatusOK, "user_show.html", &Page{
		Title: user.Username,
		Data:  userShowData{Profile: user, IsOwner: state.UserID == user.ID},
	})
}

func (h *UserHandler) EditPage(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	h.render.HTML(w, r, http.StatusOK, "user_edit.html", &Page{
		Title:       "Edit profile",
		CurrentUser: user,
		Form:        dto.ProfileForm{Username: user.Username, Email: user.Email},
	})
}

func (h *UserHandler) Edit(w http.ResponseWriter, r *http.Request) {
	state := session.FromContext(r.Context())

	form := dto.ParseProfileForm(r)
	if errors := form.Validate(); len(errors) > 0 {
		h.render.HTML(w, r, http.StatusBadRequest, "user_edit.html", &Page{Title: "Edit profile", Form: form, Errors: errors})
		return
	}

	user, err := h.accounts.UpdateProfile(r.Context(), state.UserID, auth.UpdateProfileInput{
		Password: form.Password,
		Username: form.Username,
		Email:    form.Email,
	})
	if err != nil {
		switch err {
		case auth.ErrInvalidCredentials:
			h.render.Flash(w, r, "danger", "Invalid credentials.")
			http.Redirect(w, r, "/", http.StatusFound)
		case auth.ErrUserExists:
			h.render.HTML(w, r, http.StatusConflict, "user_edit.html", &Page{
				Title:  "Edit profile",
				Form:   form,
				Errors: map[string]string{"form": "Username or email already taken"},
			})
		case auth.ErrUserNotFound:
			h.forgetStaleUser(w, r)
		default:
			h.render.ServerError(w, r, err)
		}
		return
	}

	h.render.Flash(w, r, "success", "Your profile was edited")
	http.Redirect(w, r, "/users/"+user.ID.String(), http.StatusFound)
}

// Delete logs the user out, then removes the account and its saved items.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	state := session.FromContext(r.Context())

	if err := h.sessions.Logout(w, r); err != nil {
		h.render.ServerError(w, r, err)
		return
	}

	if err := h.accounts.DeleteUser(r.Context(), state.UserID); err != nil && err != auth.ErrUserNotFound {
		h.render.ServerError(w, r, err)
		return
	}
	h.logger.Info("user deleted", "user_id", state.UserID)

	h.render.Flash(w, r, "info", "Your account has been deleted.")
	http.Redirect(w, r, "/signup", http.StatusFound)
}

func (h *UserHandler) SavedOrganizations(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.userFromPath(w, r)
	if !ok {
		return
	}

	orgs, err := h.saved.Organizations(r.Context(), owner.ID)
	if err != nil {
		h.render.ServerError(w, r, err)
		return
	}
	ids, err := h.saved.OrganizationIDs(r.Context(), session.FromContext(r.Context()).UserID)
	if err != nil {
		h.render.ServerError(w, r, err)
		return
	}

	h.render.HTML(w, r, http.StatusOK, "saved_organizations.html", &Page{
		Title: "Saved organizations",
		Data:  savedOrganizationsData{Owner: owner, Organizations: orgs, SavedIDs: ids},
	})
}

func (h *UserHandler) SavedAnimals(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.userFromPath(w, r)
	if !ok {
		return
	}

	animals, err := h.saved.Animals(r.Context(), owner.ID)
	if err != nil {
		h.render.ServerError(w, r, err)
		return
	}
	ids, err := h.saved.AnimalIDs(r.Context(), session.FromContext(r.Context()).UserID)
	if err != nil {
		h.render.ServerError(w, r, err)
		return
	}

	h.render.HTML(w, r, http.StatusOK, "saved_animals.html", &Page{
		Title: "Saved animals",
		Data:  savedAnimalsData{Owner: owner, Animals: animals, SavedIDs: ids},
	})
}

func (h *UserHandler) userFromPath(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	raw := chi.URLParam(r, "id")
	if !validation.IsValidUUID(raw) {
		h.render.NotFound(w, r, "No such user.")
		return nil, false
	}

	user, err := h.accounts.GetUserByID(r.Context(), uuid.MustParse(raw))
	if err != nil {
		if err == auth.ErrUserNotFound {
			h.render.NotFound(w, r, "No such user.")
		} else {
			h.render.ServerError(w, r, err)
		}
		return nil, false
	}
	return user, true
}

func (h *UserHandler) currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, err := h.accounts.GetUserByID(r.Context(), session.FromContext(r.Context()).UserID)
	if err != nil {
		if err == auth.ErrUserNotFound {
			h.forgetStaleUser(w, r)
		} else {
			h.render.ServerError(w, r, err)
		}
		return nil, false
	}
	return user, true
}

// forgetStaleUser handles a session whose user no longer exists.
func (h *UserHandler) forgetStaleUser(w http.ResponseWriter, r *http.Request) {
	_ = h.sessions.Logout(w, r)
	h.render.Flash(w, r, "danger", middleware.MsgUnauthorized)
	http.Redirect(w, r, "/", http.StatusFound)
}
