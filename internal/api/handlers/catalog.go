package handlers

import (
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/adopt-a-pet/internal/api/dto"
	"github.com/hugh/adopt-a-pet/internal/api/validation"
	"github.com/hugh/adopt-a-pet/internal/petfinder"
	"github.com/hugh/adopt-a-pet/internal/saved"
	"github.com/hugh/adopt-a-pet/internal/session"
)

var genders = []string{"Male", "Female", "Unknown"}

type CatalogHandler struct {
	client *petfinder.Client
	saved  *saved.Service
	render *Renderer
	logger *slog.Logger
}

func NewCatalogHandler(client *petfinder.Client, savedService *saved.Service, render *Renderer, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		client: client,
		saved:  savedService,
		render: render,
		logger: logger,
	}
}

type organizationsData struct {
	Organizations []petfinder.Organization
	Pager         dto.Pager
	SavedIDs      map[string]bool
	Filter        petfinder.OrganizationFilter
	Query         template.URL
}

type animalsData struct {
	Animals  []petfinder.Animal
	Types    []petfinder.AnimalType
	Genders  []string
	Pager    dto.Pager
	SavedIDs map[string]bool
	Filter   petfinder.AnimalFilter
	Query    template.URL
}

type organizationDetailsData struct {
	Organization *petfinder.Organization
	Saved        bool
}

type animalDetailsData struct {
	Animal *petfinder.Animal
	Saved  bool
}

func (h *CatalogHandler) Organizations(w http.ResponseWriter, r *http.Request) {
	state := session.FromContext(r.Context())
	page := dto.ParsePage(chi.URLParam(r, "page"))

	q := r.URL.Query()
	filter := petfinder.OrganizationFilter{
		Location: strings.TrimSpace(q.Get("location")),
		State:    strings.ToUpper(strings.TrimSpace(q.Get("state"))),
	}
	if filter.State != "" && !validation.IsValidState(filter.State) {
		filter.State = ""
	}

	result, err := h.client.ListOrganizations(r.Context(), state.Credential, page, filter)
	if err != nil {
		h.render.CatalogError(w, r, err, "/")
		return
	}

	ids, err := h.saved.OrganizationIDs(r.Context(), state.UserID)
	if err != nil {
		h.render.ServerError(w, r, err)
		return
	}

	h.render.HTML(w, r, http.StatusOK, "organizations_index.html", &Page{
		Title: "Organizations",
		Data: organizationsData{
			Organizations: result.Organizations,
			Pager:         dto.NewPager(page, result.Pagination),
			SavedIDs:      ids,
			Filter:        filter,
			Query:         filterQuery("location", filter.Location, "state", filter.State),
		},
	})
}

// Animals lists one page of animals. The type list is fetched on every call
// to fill the filter form.
func (h *CatalogHandler) Animals(w http.ResponseWriter, r *http.Request) {
	state := session.FromContext(r.Context())
	page := dto.ParsePage(chi.URLParam(r, "page"))

	q := r.URL.Query()
	filter := petfinder.AnimalFilter{
		Name:   strings.TrimSpace(q.Get("name")),
		Type:   strings.TrimSpace(q.Get("type")),
		Gender: strings.TrimSpace(q.Get("gender")),
	}

	types, err := h.client.ListTypes(r.Context(), state.Credential)
	if err != nil {
		h.render.CatalogError(w, r, err, "/")
		return
	}

	result, err := h.client.ListAnimals(r.Context(), state.Credential, page, filter)
	if err != nil {
		h.render.CatalogError(w, r, err, "/")
		return
	}

	ids, err := h.saved.AnimalIDs(r.Context(), state.UserID)
	if err != nil {
		h.render.ServerError(w, r, err)
		return
	}

	h.render.HTML(w, r, http.StatusOK, "animals_index.html", &Page{
		Title: "Animals",
		Data: animalsData{
			Animals:  result.Animals,
			Types:    types,
			Genders:  genders,
			Pager:    dto.NewPager(page, result.Pagination),
			SavedIDs: ids,
			Filter:   filter,
			Query:    filterQuery("name", filter.Name, "type", filter.Type, "gender", filter.Gender),
		},
	})
}

func (h *CatalogHandler) AnimalDetails(w http.ResponseWriter, r *http.Request) {
	state := session.FromContext(r.Context())

	id := chi.URLParam(r, "id")
	if !validation.IsValidAnimalID(id) {
		h.render.NotFound(w, r, "No such animal.")
		return
	}

	animal, err := h.client.GetAnimal(r.Context(), state.Credential, id)
	if err != nil {
		h.render.CatalogError(w, r, err, "/animals/1")
		return
	}

	ids, err := h.saved.AnimalIDs(r.Context(), state.UserID)
	if err != nil {
		h.render.ServerError(w, r, err)
		return
	}

	h.render.HTML(w, r, http.StatusOK, "animal_details.html", &Page{
		Title: animal.Name,
		Data:  animalDetailsData{Animal: animal, Saved: ids[id]},
	})
}

func (h *CatalogHandler) OrganizationDetails(w http.ResponseWriter, r *http.Request) {
	state := session.FromContext(r.Context())

	id := chi.URLParam(r, "id")
	if !validation.IsValidOrganizationID(id) {
		h.render.NotFound(w, r, "No such organization.")
		return
	}

	org, err := h.client.GetOrganization(r.Context(), state.Credential, id)
	if err != nil {
		h.render.CatalogError(w, r, err, "/organizations/1")
		return
	}

	ids, err := h.saved.OrganizationIDs(r.Context(), state.UserID)
	if err != nil {
		h.render.ServerError(w, r, err)
		return
	}

	h.render.HTML(w, r, http.StatusOK, "organization_details.html", &Page{
		Title: org.Name,
		Data:  organizationDetailsData{Organization: org, Saved: ids[id]},
	})
}

// filterQuery encodes the non-empty filters for the pager links.
func filterQuery(pairs ...string) template.URL {
	v := url.Values{}
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] != "" {
			v.Set(pairs[i], pairs[i+1])
		}
	}
	return template.URL(v.Encode())
}
