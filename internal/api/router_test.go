package api_test

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hugh/adopt-a-pet/internal/api"
	"github.com/hugh/adopt-a-pet/internal/auth"
	"github.com/hugh/adopt-a-pet/internal/database/models"
	"github.com/hugh/adopt-a-pet/internal/petfinder"
	"github.com/hugh/adopt-a-pet/internal/saved"
	"github.com/hugh/adopt-a-pet/internal/session"
	"github.com/hugh/adopt-a-pet/internal/testutil"
	"github.com/hugh/adopt-a-pet/internal/web"
	"github.com/hugh/adopt-a-pet/pkg/metrics"
	"github.com/hugh/adopt-a-pet/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "a-very-long-secret-key-for-testing-only"

var csrfFieldRe = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

type testApp struct {
	t      *testing.T
	db     *gorm.DB
	pf     *testutil.FakePetfinder
	server *httptest.Server
	client *http.Client
	skew   atomic.Int64
}

type appOption func(*api.RouterConfig)

func withCSRF() appOption {
	return func(cfg *api.RouterConfig) {
		cfg.CSRFKey = api.CSRFKey(testSecret)
	}
}

func withRateLimit(reqs int) appOption {
	return func(cfg *api.RouterConfig) {
		cfg.RateLimitReqs = reqs
		cfg.RateLimitSecs = 60
	}
}

func withOrigins(origins ...string) appOption {
	return func(cfg *api.RouterConfig) {
		cfg.AllowedOrigins = origins
	}
}

func newTestApp(t *testing.T, opts ...appOption) *testApp {
	t.Helper()

	app := &testApp{
		t:  t,
		db: testutil.SetupTestDB(t),
		pf: testutil.NewFakePetfinder(t),
	}

	logger := util.NewDiscardLogger()
	templates, err := web.LoadTemplates()
	require.NoError(t, err)
	staticFS, err := web.GetStaticFS()
	require.NoError(t, err)

	m := metrics.New()
	client := petfinder.NewClient(app.pf.Config(), logger, m)
	store := session.NewCookieStore(testSecret, session.Options(24*time.Hour, false))

	cfg := api.RouterConfig{
		DB:        app.db,
		Logger:    logger,
		Accounts:  auth.NewService(app.db),
		Petfinder: client,
		Saved:     saved.NewService(app.db, client, logger),
		Sessions:  session.NewManager(store, logger),
		Templates: templates,
		StaticFS:  staticFS,
		Metrics:   m,
		Now: func() time.Time {
			return time.Now().Add(time.Duration(app.skew.Load()))
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	router := api.NewRouter(cfg)
	t.Cleanup(router.Close)

	app.server = httptest.NewServer(router)
	t.Cleanup(app.server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	app.client = &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return app
}

// advance moves the session clock forward without touching the catalog.
func (a *testApp) advance(d time.Duration) {
	a.skew.Add(int64(d))
}

type page struct {
	Status   int
	Location string
	Body     string
}

func (a *testApp) do(req *http.Request) page {
	a.t.Helper()

	resp, err := a.client.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)

	return page{Status: resp.StatusCode, Location: resp.Header.Get("Location"), Body: string(body)}
}

func (a *testApp) get(path string) page {
	a.t.Helper()
	req, err := http.NewRequest(http.MethodGet, a.server.URL+path, nil)
	require.NoError(a.t, err)
	return a.do(req)
}

func (a *testApp) post(path string, form url.Values) page {
	a.t.Helper()
	return a.postFrom(path, form, "")
}

func (a *testApp) postFrom(path string, form url.Values, referer string) page {
	a.t.Helper()
	req, err := http.NewRequest(http.MethodPost, a.server.URL+path, strings.NewReader(form.Encode()))
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if referer != "" {
		req.Header.Set("Referer", a.server.URL+referer)
	}
	return a.do(req)
}

func (a *testApp) signup(username, password, email string) page {
	a.t.Helper()
	return a.post("/signup", url.Values{
		"username": {username},
		"password": {password},
		"email":    {email},
	})
}

func (a *testApp) user(username string) *models.User {
	a.t.Helper()
	var user models.User
	require.NoError(a.t, a.db.Where("username = ?", username).First(&user).Error)
	return &user
}

func (a *testApp) addAnimal(id int64, name string) {
	a.pf.AddAnimal(petfinder.Animal{
		ID:     id,
		Name:   name,
		Type:   "Dog",
		Gender: "Female",
		Breeds: petfinder.Breeds{Primary: "Beagle"},
		Photos: []petfinder.Photo{{Medium: "https://photos.example/" + name + ".jpg"}},
	})
}

func TestSignupLoginLogout(t *testing.T) {
	app := newTestApp(t)

	res := app.signup("alice", "pw123456", "a@x.com")
	require.Equal(t, http.StatusFound, res.Status)
	assert.Equal(t, "/", res.Location)

	home := app.get("/")
	assert.Equal(t, http.StatusOK, home.Status)
	assert.Contains(t, home.Body, "Welcome, alice!")
	assert.Contains(t, home.Body, "Welcome back, alice")
	assert.Equal(t, 1, app.pf.TokenCount(), "signup obtains a catalog token")

	res = app.get("/logout")
	assert.Equal(t, http.StatusFound, res.Status)
	assert.Equal(t, "/login", res.Location)
	assert.Contains(t, app.get("/login").Body, "Logged out successfully")

	res = app.get("/logout")
	assert.Equal(t, "/", res.Location)
	assert.Contains(t, app.get("/").Body, "You are already logged out!")

	res = app.post("/login", url.Values{"username": {"alice"}, "password": {"pw123456"}})
	require.Equal(t, http.StatusFound, res.Status)
	assert.Equal(t, "/", res.Location)
	assert.Contains(t, app.get("/").Body, "Hello, alice!")
	assert.Equal(t, 2, app.pf.TokenCount())
}

func TestSignup_DuplicateConflict(t *testing.T) {
	app := newTestApp(t)

	require.Equal(t, http.StatusFound, app.signup("alice", "pw123456", "a@x.com").Status)
	app.get("/logout")

	res := app.signup("alice", "another1", "b@x.com")
	assert.Equal(t, http.StatusConflict, res.Status)
	assert.Contains(t, res.Body, "Username or email already taken")

	res = app.signup("bob", "another1", "a@x.com")
	assert.Equal(t, http.StatusConflict, res.Status)

	assert.Equal(t, int64(1), testutil.CountRows(t, app.db, &models.User{}))
}

func TestSignup_ValidationErrors(t *testing.T) {
	app := newTestApp(t)

	res := app.signup("", "pw", "not-an-email")
	assert.Equal(t, http.StatusBadRequest, res.Status)
	assert.Equal(t, int64(0), testutil.CountRows(t, app.db, &models.User{}))
}

func TestLogin_InvalidCredentials(t *testing.T) {
	app := newTestApp(t)
	testutil.CreateTestUser(t, app.db, "alice")

	res := app.post("/login", url.Values{"username": {"alice"}, "password": {"wrong-password"}})
	assert.Equal(t, http.StatusUnauthorized, res.Status)
	assert.Contains(t, res.Body, "Invalid credentials.")

	res = app.post("/login", url.Values{"username": {"nobody"}, "password": {"wrong-password"}})
	assert.Equal(t, http.StatusUnauthorized, res.Status)
	assert.Equal(t, 0, app.pf.TokenCount())
}

func TestSignup_CatalogDownStillCreatesAccount(t *testing.T) {
	app := newTestApp(t)
	app.pf.Server.Close()

	res := app.signup("alice", "pw123456", "a@x.com")
	require.Equal(t, http.StatusFound, res.Status)
	assert.Equal(t, int64(1), testutil.CountRows(t, app.db, &models.User{}))

	res = app.get("/animals/1")
	assert.Equal(t, http.StatusFound, res.Status)
	assert.Equal(t, "/login", res.Location)
}

func TestSavedListings_RequireLogin(t *testing.T) {
	app := newTestApp(t)
	owner := testutil.CreateTestUser(t, app.db, "owner")

	for _, path := range []string{
		"/users/" + owner.ID.String() + "/organizations",
		"/users/" + owner.ID.String() + "/animals",
		"/users/profile",
	} {
		res := app.get(path)
		assert.Equal(t, http.StatusFound, res.Status, path)
		assert.Equal(t, "/", res.Location, path)
	}
	assert.Contains(t, app.get("/").Body, "Access unauthorized.")

	res := app.post("/users/delete", url.Values{})
	assert.Equal(t, "/", res.Location)
	assert.Equal(t, int64(1), testutil.CountRows(t, app.db, &models.User{}))
}

func TestCatalog_RequiresLogin(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/animals/1", "/organizations/1", "/animals/details/1", "/organizations/details/NJ1"} {
		res := app.get(path)
		assert.Equal(t, http.StatusFound, res.Status, path)
		assert.Equal(t, "/login", res.Location, path)
	}
	assert.Contains(t, app.get("/login").Body, "Please login first!")
	assert.Equal(t, 0, app.pf.RequestCount())
}

func TestToggleAnimal_TwiceRestoresState(t *testing.T) {
	app := newTestApp(t)
	app.addAnimal(123, "Rex")
	require.Equal(t, http.StatusFound, app.signup("alice", "pw123456", "a@x.com").Status)
	alice := app.user("alice")

	res := app.postFrom("/animal/save/123", url.Values{}, "/animals/1?type=Dog")
	require.Equal(t, http.StatusFound, res.Status)
	assert.Equal(t, "/animals/1?type=Dog", res.Location)

	listing := app.get("/users/" + alice.ID.String() + "/animals")
	assert.Equal(t, http.StatusOK, listing.Status)
	assert.Contains(t, listing.Body, "Rex")
	assert.Equal(t, int64(1), testutil.CountRows(t, app.db, &models.Animal{}))

	res = app.post("/animal/save/123", url.Values{})
	require.Equal(t, http.StatusFound, res.Status)
	assert.Equal(t, "/", res.Location, "no referer falls back to home")

	listing = app.get("/users/" + alice.ID.String() + "/animals")
	assert.NotContains(t, listing.Body, "Rex")
	assert.Contains(t, listing.Body, "No saved animals yet.")
	assert.Equal(t, int64(0), testutil.CountRows(t, app.db, &models.SavedAnimal{}))
	assert.Equal(t, int64(1), testutil.CountRows(t, app.db, &models.Animal{}), "cached entity stays")
}

func TestToggleOrganization_ShowsInListing(t *testing.T) {
	app := newTestApp(t)
	app.pf.AddOrganization(petfinder.Organization{ID: "NJ333", Name: "Happy Tails", Email: "hi@tails.example"})
	require.Equal(t, http.StatusFound, app.signup("alice", "pw123456", "a@x.com").Status)
	alice := app.user("alice")

	res := app.post("/organization/save/NJ333", url.Values{})
	require.Equal(t, http.StatusFound, res.Status)

	listing := app.get("/users/" + alice.ID.String() + "/organizations")
	assert.Equal(t, http.StatusOK, listing.Status)
	assert.Contains(t, listing.Body, "Happy Tails")
	assert.Contains(t, listing.Body, "Unlike")
}

func TestToggle_UpstreamFailureLeavesNoRows(t *testing.T) {
	app := newTestApp(t)
	require.Equal(t, http.StatusFound, app.signup("alice", "pw123456", "a@x.com").Status)
	app.pf.FailWith(http.StatusInternalServerError)

	res := app.postFrom("/animal/save/999", url.Values{}, "/animals/1")
	assert.Equal(t, http.StatusFound, res.Status)
	assert.Equal(t, "/animals/1", res.Location)
	assert.Equal(t, int64(0), testutil.CountRows(t, app.db, &models.Animal{}))
	assert.Equal(t, int64(0), testutil.CountRows(t, app.db, &models.SavedAnimal{}))
}

func TestToggle_UnknownAnimalIsNotFound(t *testing.T) {
	app := newTestApp(t)
	require.Equal(t, http.StatusFound, app.signup("alice", "pw123456", "a@x.com").Status)

	res := app.post("/animal/save/999", url.Values{})
	assert.Equal(t, http.StatusNotFound, res.Status)

	res = app.post("/animal/save/not-a-number", url.Values{})
	assert.Equal(t, http.StatusNotFound, res.Status)
	assert.Equal(t, int64(0), testutil.CountRows(t, app.db, &models.SavedAnimal{}))
}

func TestCatalog_ExpiredCredentialForcesRelogin(t *testing.T) {
	app := newTestApp(t)
	app.addAnimal(123, "Rex")
	require.Equal(t, http.StatusFound, app.signup("alice", "pw123456", "a@x.com").Status)

	require.Equal(t, http.StatusOK, app.get("/animals/1").Status)
	calls := app.pf.RequestCount()

	app.advance(2 * time.Hour)

	res := app.get("/animals/1")
	assert.Equal(t, http.StatusFound, res.Status)
	assert.Equal(t, "/login", res.Location)
	assert.Equal(t, calls, app.pf.RequestCount(), "no catalog call with an expired token")
	assert.Contains(t, app.get("/login").Body, "Your catalog session has expired. Please log in again.")

	res = app.post("/animal/save/123", url.Values{})
	assert.Equal(t, "/login", res.Location)
	assert.Equal(t, int64(0), testutil.CountRows(t, app.db, &models.SavedAnimal{}))
}

func TestCatalog_RevokedTokenForcesRelogin(t *testing.T) {
	app := newTestApp(t)
	require.Equal(t, http.StatusFound, app.signup("alice", "pw123456", "a@x.com").Status)
	app.pf.RevokeTokens()

	res := app.get("/organizations/1")
	assert.Equal(t, http.StatusFound, res.Status)
	assert.Equal(t, "/login", res.Location)

	// The credential was dropped, so the next visit never reaches the catalog.
	calls := app.pf.RequestCount()
	res = app.get("/organizations/1")
	assert.Equal(t, "/login", res.Location)
	assert.Equal(t, calls, app.pf.RequestCount())
}

func TestAnimals_FiltersAndPaging(t *testing.T) {
	app := newTestApp(t)
	app.addAnimal(1, "Rex")
	app.pf.AddAnimal(petfinder.Animal{ID: 2, Name: "Tom", Type: "Cat", Gender: "Male"})
	require.Equal(t, http.StatusFound, app.signup("alice", "pw123456", "a@x.com").Status)

	res := app.get("/animals/1")
	require.Equal(t, http.StatusOK, res.Status)
	assert.Contains(t, res.Body, "Rex")
	assert.Contains(t, res.Body, "Tom")
	assert.Contains(t, res.Body, `<option value="Dog"`)

	res = app.get("/animals/0?gender=Male&name=Rex&type=Dog")
	require.Equal(t, http.StatusOK, res.Status)
	q := app.pf.LastQuery()
	assert.Equal(t, "Male", q.Get("gender"))
	assert.Empty(t, q.Get("name"))
	assert.Empty(t, q.Get("type"))
	assert.Equal(t, "1", q.Get("page"))
	assert.Equal(t, "42", q.Get("limit"))
	assert.Contains(t, res.Body, "Tom")
	assert.NotContains(t, res.Body, ">Rex<")
}

func TestOrganizations_StateWinsOverLocation(t *testing.T) {
	app := newTestApp(t)
	app.pf.AddOrganization(petfinder.Organization{ID: "NJ1", Name: "Shelter One", Address: petfinder.Address{State: "NJ"}})
	require.Equal(t, http.StatusFound, app.signup("alice", "pw123456", "a@x.com").Status)

	res := app.get("/organizations/2?location=Boston&state=nj")
	require.Equal(t, http.StatusOK, res.Status)
	q := app.pf.LastQuery()
	assert.Equal(t, "NJ", q.Get("state"))
	assert.Empty(t, q.Get("location"))
	assert.Equal(t, "2", q.Get("page"))
}

func TestDetails(t *testing.T) {
	app := newTestApp(t)
	app.addAnimal(123, "Rex")
	app.pf.AddOrganization(petfinder.Organization{ID: "NJ333", Name: "Happy Tails"})
	require.Equal(t, http.StatusFound, app.signup("alice", "pw123456", "a@x.com").Status)

	res := app.get("/animals/details/123")
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Contains(t, res.Body, "Rex")

	res = app.get("/organizations/details/NJ333")
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Contains(t, res.Body, "Happy Tails")

	assert.Equal(t, http.StatusNotFound, app.get("/animals/details/404").Status)
	assert.Equal(t, http.StatusNotFound, app.get("/organizations/details/NOPE1").Status)
}

func TestProfileEdit(t *testing.T) {
	app := newTestApp(t)
	require.Equal(t, http.StatusFound, app.signup("alice", "pw123456", "a@x.com").Status)
	alice := app.user("alice")

	assert.Equal(t, http.StatusOK, app.get("/users/profile").Status)

	res := app.post("/users/profile", url.Values{
		"username": {"alicia"},
		"email":    {"alicia@x.com"},
		"password": {"wrong-password"},
	})
	assert.Equal(t, http.StatusFound, res.Status)
	assert.Equal(t, "/", res.Location)
	assert.Equal(t, "alice", app.user("alice").Username)

	res = app.post("/users/profile", url.Values{
		"username": {"alicia"},
		"email":    {"alicia@x.com"},
		"password": {"pw123456"},
	})
	require.Equal(t, http.StatusFound, res.Status)
	assert.Equal(t, "/users/"+alice.ID.String(), res.Location)

	show := app.get(res.Location)
	assert.Contains(t, show.Body, "Your profile was edited")
	assert.Contains(t, show.Body, "alicia@x.com")
}

func TestDeleteAccount(t *testing.T) {
	app := newTestApp(t)
	app.addAnimal(123, "Rex")
	require.Equal(t, http.StatusFound, app.signup("alice", "pw123456", "a@x.com").Status)
	require.Equal(t, http.StatusFound, app.post("/animal/save/123", url.Values{}).Status)

	res := app.post("/users/delete", url.Values{})
	assert.Equal(t, http.StatusFound, res.Status)
	assert.Equal(t, "/signup", res.Location)
	assert.Contains(t, app.get("/signup").Body, "Your account has been deleted.")

	assert.Equal(t, int64(0), testutil.CountRows(t, app.db, &models.User{}))
	assert.Equal(t, int64(0), testutil.CountRows(t, app.db, &models.SavedAnimal{}))

	res = app.get("/users/profile")
	assert.Equal(t, "/", res.Location, "session no longer holds a user")
}

func TestUsersDirectory(t *testing.T) {
	app := newTestApp(t)
	bob := testutil.CreateTestUser(t, app.db, "bob")
	testutil.CreateTestUser(t, app.db, "carol")

	res := app.get("/users")
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Contains(t, res.Body, "bob")
	assert.Contains(t, res.Body, "carol")

	res = app.get("/users?q=car")
	assert.Contains(t, res.Body, "carol")
	assert.NotContains(t, res.Body, ">bob<")

	res = app.get("/users?q=%20car%07%00")
	assert.Contains(t, res.Body, "carol", "control characters are dropped from the search term")
	assert.NotContains(t, res.Body, ">bob<")

	assert.Equal(t, http.StatusOK, app.get("/users/"+bob.ID.String()).Status)
	assert.Equal(t, http.StatusNotFound, app.get("/users/not-a-uuid").Status)
	assert.Equal(t, http.StatusNotFound, app.get("/users/urn:uuid:"+bob.ID.String()).Status)
}

func TestCSRF_RejectsFormsWithoutToken(t *testing.T) {
	app := newTestApp(t, withCSRF())
	testutil.CreateTestUser(t, app.db, "alice")

	res := app.post("/login", url.Values{"username": {"alice"}, "password": {testutil.TestPassword}})
	assert.Equal(t, http.StatusForbidden, res.Status)

	form := app.get("/login")
	require.Equal(t, http.StatusOK, form.Status)
	match := csrfFieldRe.FindStringSubmatch(form.Body)
	require.Len(t, match, 2, "login form carries a csrf field")

	res = app.post("/login", url.Values{
		"username":   {"alice"},
		"password":   {testutil.TestPassword},
		"csrf_token": {match[1]},
	})
	assert.Equal(t, http.StatusFound, res.Status)
	assert.Equal(t, "/", res.Location)
}

func TestRateLimit_TooManyRequests(t *testing.T) {
	app := newTestApp(t, withRateLimit(3))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, app.get("/ready").Status)
	}
	assert.Equal(t, http.StatusTooManyRequests, app.get("/ready").Status)
}

func TestHealthMetricsAndStatic(t *testing.T) {
	app := newTestApp(t)

	res := app.get("/health")
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Contains(t, res.Body, `"status":"healthy"`)

	assert.Equal(t, http.StatusOK, app.get("/ready").Status)
	assert.Equal(t, http.StatusOK, app.get("/static/css/app.css").Status)

	metricsPage := app.get("/metrics")
	assert.Equal(t, http.StatusOK, metricsPage.Status)
	assert.Contains(t, metricsPage.Body, "adopt_http_requests_total")

	missing := app.get("/no/such/page")
	assert.Equal(t, http.StatusNotFound, missing.Status)
}

func TestCORS_ConfiguredOrigins(t *testing.T) {
	app := newTestApp(t, withOrigins("https://pets.example"))

	allowOrigin := func(origin string) string {
		req, err := http.NewRequest(http.MethodGet, app.server.URL+"/ready", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", origin)
		resp, err := app.client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.Header.Get("Access-Control-Allow-Origin")
	}

	assert.Equal(t, "https://pets.example", allowOrigin("https://pets.example"))
	assert.Empty(t, allowOrigin("http://localhost:8080"), "the development default is replaced")
}
