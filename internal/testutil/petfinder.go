package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/hugh/adopt-a-pet/internal/petfinder"
	"github.com/hugh/adopt-a-pet/pkg/config"
)

const (
	FakeClientID     = "fake-client-id"
	FakeClientSecret = "fake-client-secret"
)

// FakePetfinder is an in-process stand-in for the Petfinder v2 API. It
// issues tokens for the fake client credentials and serves catalog data
// from its maps.
type FakePetfinder struct {
	Server *httptest.Server

	mu            sync.Mutex
	animals       map[string]petfinder.Animal
	organizations map[string]petfinder.Organization
	types         []petfinder.AnimalType
	tokens        map[string]bool
	tokenCount    int
	expiresIn     int
	failStatus    int
	queries       []url.Values
}

func NewFakePetfinder(t *testing.T) *FakePetfinder {
	t.Helper()

	f := &FakePetfinder{
		animals:       map[string]petfinder.Animal{},
		organizations: map[string]petfinder.Organization{},
		types: []petfinder.AnimalType{
			{Name: "Dog", Genders: []string{"Male", "Female"}},
			{Name: "Cat", Genders: []string{"Male", "Female"}},
		},
		tokens:    map[string]bool{},
		expiresIn: 3600,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth2/token", f.handleToken)
	mux.HandleFunc("GET /animals", f.authorized(f.handleAnimals))
	mux.HandleFunc("GET /animals/{id}", f.authorized(f.handleAnimal))
	mux.HandleFunc("GET /organizations", f.authorized(f.handleOrganizations))
	mux.HandleFunc("GET /organizations/{id}", f.authorized(f.handleOrganization))
	mux.HandleFunc("GET /types", f.authorized(f.handleTypes))

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

// Config returns client settings pointing at the fake server.
func (f *FakePetfinder) Config() config.PetfinderConfig {
	return config.PetfinderConfig{
		BaseURL:        f.Server.URL,
		ClientID:       FakeClientID,
		ClientSecret:   FakeClientSecret,
		PageLimit:      42,
		TimeoutSeconds: 5,
	}
}

func (f *FakePetfinder) AddAnimal(a petfinder.Animal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.animals[a.Key()] = a
}

func (f *FakePetfinder) AddOrganization(o petfinder.Organization) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.organizations[o.ID] = o
}

// FailWith makes every catalog endpoint answer with status until reset with 0.
func (f *FakePetfinder) FailWith(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failStatus = status
}

// SetExpiresIn changes the expires_in reported for new tokens.
func (f *FakePetfinder) SetExpiresIn(seconds int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expiresIn = seconds
}

// RevokeTokens forgets every issued token.
func (f *FakePetfinder) RevokeTokens() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = map[string]bool{}
}

func (f *FakePetfinder) TokenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokenCount
}

// LastQuery returns the query string of the most recent catalog request.
func (f *FakePetfinder) LastQuery() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queries) == 0 {
		return nil
	}
	return f.queries[len(f.queries)-1]
}

func (f *FakePetfinder) RequestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func (f *FakePetfinder) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeFakeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}
	if r.PostForm.Get("grant_type") != "client_credentials" ||
		r.PostForm.Get("client_id") != FakeClientID ||
		r.PostForm.Get("client_secret") != FakeClientSecret {
		writeFakeJSON(w, http.StatusUnauthorized, map[string]string{
			"error":             "invalid_client",
			"error_description": "Client authentication failed",
		})
		return
	}

	f.mu.Lock()
	f.tokenCount++
	token := fmt.Sprintf("fake-token-%d", f.tokenCount)
	f.tokens[token] = true
	expiresIn := f.expiresIn
	f.mu.Unlock()

	writeFakeJSON(w, http.StatusOK, map[string]interface{}{
		"token_type":   "Bearer",
		"expires_in":   expiresIn,
		"access_token": token,
	})
}

func (f *FakePetfinder) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

		f.mu.Lock()
		f.queries = append(f.queries, r.URL.Query())
		known := f.tokens[token]
		failStatus := f.failStatus
		f.mu.Unlock()

		if !known {
			writeProblem(w, http.StatusUnauthorized, "Unauthorized", "Access token invalid or expired")
			return
		}
		if failStatus != 0 {
			writeProblem(w, failStatus, http.StatusText(failStatus), "Injected failure")
			return
		}
		next(w, r)
	}
}

func (f *FakePetfinder) handleAnimals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f.mu.Lock()
	var out []petfinder.Animal
	for _, a := range f.animals {
		if v := q.Get("gender"); v != "" && !strings.EqualFold(a.Gender, v) {
			continue
		}
		if v := q.Get("name"); v != "" && !strings.Contains(strings.ToLower(a.Name), strings.ToLower(v)) {
			continue
		}
		if v := q.Get("type"); v != "" && !strings.EqualFold(a.Type, v) {
			continue
		}
		out = append(out, a)
	}
	f.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeFakeJSON(w, http.StatusOK, petfinder.AnimalPage{
		Animals:    out,
		Pagination: pagination(q, len(out)),
	})
}

func (f *FakePetfinder) handleAnimal(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	a, ok := f.animals[r.PathValue("id")]
	f.mu.Unlock()

	if !ok {
		writeProblem(w, http.StatusNotFound, "Not Found", "Animal not found")
		return
	}
	writeFakeJSON(w, http.StatusOK, map[string]interface{}{"animal": a})
}

func (f *FakePetfinder) handleOrganizations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f.mu.Lock()
	var out []petfinder.Organization
	for _, o := range f.organizations {
		if v := q.Get("state"); v != "" && !strings.EqualFold(o.Address.State, v) {
			continue
		}
		if v := q.Get("location"); v != "" &&
			!strings.EqualFold(o.Address.City, v) && o.Address.Postcode != v {
			continue
		}
		out = append(out, o)
	}
	f.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeFakeJSON(w, http.StatusOK, petfinder.OrganizationPage{
		Organizations: out,
		Pagination:    pagination(q, len(out)),
	})
}

func (f *FakePetfinder) handleOrganization(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	o, ok := f.organizations[r.PathValue("id")]
	f.mu.Unlock()

	if !ok {
		writeProblem(w, http.StatusNotFound, "Not Found", "Organization not found")
		return
	}
	writeFakeJSON(w, http.StatusOK, map[string]interface{}{"organization": o})
}

func (f *FakePetfinder) handleTypes(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	types := f.types
	f.mu.Unlock()
	writeFakeJSON(w, http.StatusOK, map[string]interface{}{"types": types})
}

func pagination(q url.Values, total int) petfinder.Pagination {
	limit, _ := strconv.Atoi(q.Get("limit"))
	page, _ := strconv.Atoi(q.Get("page"))
	if limit < 1 {
		limit = 20
	}
	if page < 1 {
		page = 1
	}
	return petfinder.Pagination{
		CountPerPage: limit,
		TotalCount:   total,
		CurrentPage:  page,
		TotalPages:   (total + limit - 1) / limit,
	}
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"type":   "https://www.petfinder.com/developers/v2/docs/errors/",
		"status": status,
		"title":  title,
		"detail": detail,
	})
}

func writeFakeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
