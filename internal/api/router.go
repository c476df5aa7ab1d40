package api

import (
	"crypto/sha256"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hugh/adopt-a-pet/internal/api/handlers"
	"github.com/hugh/adopt-a-pet/internal/api/middleware"
	"github.com/hugh/adopt-a-pet/internal/auth"
	"github.com/hugh/adopt-a-pet/internal/petfinder"
	"github.com/hugh/adopt-a-pet/internal/saved"
	"github.com/hugh/adopt-a-pet/internal/session"
	"github.com/hugh/adopt-a-pet/internal/web"
	"github.com/hugh/adopt-a-pet/pkg/metrics"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
	limiters []*middleware.RateLimiter
}

type RouterConfig struct {
	DB             *gorm.DB
	Logger         *slog.Logger
	Accounts       auth.Accounts
	Petfinder      *petfinder.Client
	Saved          *saved.Service
	Sessions       *session.Manager
	SessionStore   handlers.Pinger // nil with the cookie store
	Templates      *web.Templates
	StaticFS       fs.FS
	Metrics        *metrics.Metrics
	CSRFKey        []byte // nil disables CSRF protection
	Secure         bool
	AllowedOrigins []string // CORS allowed origins
	TrustProxy     bool     // take the client address from forwarding headers
	RateLimitReqs  int      // Rate limit requests per window
	RateLimitSecs  int      // Rate limit window in seconds
	Now            func() time.Time
}

// CSRFKey derives the 32-byte CSRF key from the session secret.
func CSRFKey(secret string) []byte {
	sum := sha256.Sum256([]byte("csrf:" + secret))
	return sum[:]
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()
	router := &Router{Router: r}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	// Global middleware
	if cfg.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	// Rate limiting - applied globally to prevent abuse
	if cfg.RateLimitReqs > 0 {
		limiter := middleware.NewRateLimiter(cfg.RateLimitReqs, cfg.RateLimitSecs)
		router.limiters = append(router.limiters, limiter)
		r.Use(middleware.RateLimit(limiter))
	}

	// CORS - restrict to configured origins, or allow localhost in development
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	render := handlers.NewRenderer(cfg.Templates, cfg.Sessions, cfg.Accounts, cfg.Logger)

	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.SessionStore)
	homeHandler := handlers.NewHomeHandler(render)
	authHandler := handlers.NewAuthHandler(cfg.Accounts, cfg.Petfinder, cfg.Sessions, render, cfg.Logger)
	userHandler := handlers.NewUserHandler(cfg.Accounts, cfg.Saved, cfg.Sessions, render, cfg.Logger)
	catalogHandler := handlers.NewCatalogHandler(cfg.Petfinder, cfg.Saved, render, cfg.Logger)
	savedHandler := handlers.NewSavedHandler(cfg.Saved, cfg.Sessions, render, cfg.Logger)

	// Health endpoints (no session)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler())
	}

	// Static files
	if cfg.StaticFS != nil {
		fileServer := http.FileServer(http.FS(cfg.StaticFS))
		r.Handle("/static/*", http.StripPrefix("/static/", fileServer))
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.NoCache)
		if cfg.CSRFKey != nil {
			r.Use(middleware.CSRF(cfg.CSRFKey, cfg.Secure, http.HandlerFunc(render.Forbidden)))
		}
		r.Use(middleware.LoadSession(cfg.Sessions))

		r.Get("/", homeHandler.Index)

		r.Get("/signup", authHandler.SignupPage)
		r.Post("/signup", authHandler.Signup)
		r.Get("/login", authHandler.LoginPage)
		r.Post("/login", authHandler.Login)
		r.Get("/logout", authHandler.Logout)

		r.Get("/users", userHandler.List)
		r.Get("/users/{id}", userHandler.Show)

		// Account pages
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser(cfg.Sessions, "/", middleware.MsgUnauthorized))

			r.Get("/users/profile", userHandler.EditPage)
			r.Post("/users/profile", userHandler.Edit)
			r.Post("/users/delete", userHandler.Delete)
			r.Get("/users/{id}/organizations", userHandler.SavedOrganizations)
			r.Get("/users/{id}/animals", userHandler.SavedAnimals)
		})

		// Catalog pages need a live catalog credential
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser(cfg.Sessions, "/login", middleware.MsgLoginFirst))
			r.Use(middleware.RequireCredential(cfg.Sessions, now))

			r.Get("/organizations/{page}", catalogHandler.Organizations)
			r.Get("/organizations/details/{id}", catalogHandler.OrganizationDetails)
			r.Get("/animals/{page}", catalogHandler.Animals)
			r.Get("/animals/details/{id}", catalogHandler.AnimalDetails)

			r.Group(func(r chi.Router) {
				if cfg.RateLimitReqs > 0 {
					limiter := middleware.NewRateLimiter(cfg.RateLimitReqs, cfg.RateLimitSecs)
					router.limiters = append(router.limiters, limiter)
					r.Use(middleware.RateLimitByUser(limiter))
				}

				r.Post("/animal/save/{id}", savedHandler.ToggleAnimal)
				r.Post("/organization/save/{id}", savedHandler.ToggleOrganization)
			})
		})
	})

	r.NotFound(homeHandler.NotFound)

	return router
}

// Close stops the rate limiter cleanup goroutines.
func (rt *Router) Close() {
	for _, l := range rt.limiters {
		l.Stop()
	}
}
