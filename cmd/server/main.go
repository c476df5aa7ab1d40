package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/sessions"
	"github.com/hugh/adopt-a-pet/internal/api"
	"github.com/hugh/adopt-a-pet/internal/api/handlers"
	"github.com/hugh/adopt-a-pet/internal/auth"
	"github.com/hugh/adopt-a-pet/internal/database"
	"github.com/hugh/adopt-a-pet/internal/petfinder"
	"github.com/hugh/adopt-a-pet/internal/saved"
	"github.com/hugh/adopt-a-pet/internal/session"
	"github.com/hugh/adopt-a-pet/internal/web"
	"github.com/hugh/adopt-a-pet/pkg/config"
	"github.com/hugh/adopt-a-pet/pkg/crypto"
	"github.com/hugh/adopt-a-pet/pkg/metrics"
	"github.com/hugh/adopt-a-pet/pkg/util"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting adopt-a-pet server",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
	)

	if !cfg.Server.IsDevelopment() && !cfg.Session.Secure {
		logger.Warn("SESSION_SECURE is off outside development; session cookies will be sent over plain HTTP")
	}

	// Connect to database. Schema changes go through cmd/migrate.
	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	// Session store: Redis when reachable, signed cookies otherwise
	sessionOpts := session.Options(cfg.Session.MaxAge(), cfg.Session.Secure)
	var store sessions.Store
	var storePinger handlers.Pinger

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warn("failed to connect to Redis, falling back to cookie sessions", "error", err)
		redisClient.Close()
		redisClient = nil
		store = session.NewCookieStore(cfg.Session.SecretKey, sessionOpts)
	} else {
		encryptor, err := crypto.NewEncryptor(cfg.Session.EncryptionKey)
		if err != nil {
			logger.Error("failed to create encryptor", "error", err)
			os.Exit(1)
		}
		if encryptor.Ephemeral() {
			logger.Warn("SESSION_ENCRYPTION_KEY not set, using generated key - sessions will be lost on restart")
		}
		redisStore := session.NewRedisStore(redisClient, encryptor, sessionOpts, []byte(cfg.Session.SecretKey))
		store = redisStore
		storePinger = redisStore
	}
	sessionManager := session.NewManager(store, logger)

	// Initialize services
	m := metrics.New()
	pf := petfinder.NewClient(cfg.Petfinder, logger, m)
	authService := auth.NewService(db)
	savedService := saved.NewService(db, pf, logger)

	// Load templates
	templates, err := web.LoadTemplates()
	if err != nil {
		logger.Error("failed to load templates", "error", err)
		os.Exit(1)
	}

	// Get static file system
	staticFS, err := web.GetStaticFS()
	if err != nil {
		logger.Error("failed to get static fs", "error", err)
		os.Exit(1)
	}

	var csrfKey []byte
	if cfg.Session.CSRFEnabled {
		csrfKey = api.CSRFKey(cfg.Session.SecretKey)
	}

	// Create router
	router := api.NewRouter(api.RouterConfig{
		DB:             db,
		Logger:         logger,
		Accounts:       authService,
		Petfinder:      pf,
		Saved:          savedService,
		Sessions:       sessionManager,
		SessionStore:   storePinger,
		Templates:      templates,
		StaticFS:       staticFS,
		Metrics:        m,
		CSRFKey:        csrfKey,
		Secure:         cfg.Session.Secure,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		TrustProxy:     cfg.Server.TrustProxy,
		RateLimitReqs:  cfg.RateLimit.Requests,
		RateLimitSecs:  cfg.RateLimit.WindowSeconds,
	})
	defer router.Close()

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// Close Redis connection
	if redisClient != nil {
		redisClient.Close()
	}

	// Close database connection
	if err := database.Close(db); err != nil {
		logger.Error("closing database", "error", err)
	}

	logger.Info("server stopped")
}
