package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Session   SessionConfig
	Petfinder PetfinderConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	Env            string
	AllowedOrigins []string // CORS origins
	TrustProxy     bool     // honor X-Forwarded-For / X-Real-IP
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

type SessionConfig struct {
	SecretKey     string
	EncryptionKey string
	Secure        bool
	MaxAgeSeconds int
	CSRFEnabled   bool
}

type PetfinderConfig struct {
	BaseURL        string
	ClientID       string
	ClientSecret   string
	PageLimit      int
	TimeoutSeconds int
	RateLimit      int
}

type RateLimitConfig struct {
	Requests      int
	WindowSeconds int
}

// DSN returns a connection string accepted by the postgres driver.
// DATABASE_URL wins over the individual parts.
func (d *DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// MigrationURL returns the URL form golang-migrate expects.
func (d *DatabaseConfig) MigrationURL() string {
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func (s *SessionConfig) MaxAge() time.Duration {
	return time.Duration(s.MaxAgeSeconds) * time.Second
}

func (p *PetfinderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s *ServerConfig) IsDevelopment() bool {
	return s.Env == "development"
}

// Validate rejects configurations that are missing secrets. Secrets have no
// defaults and must come from the environment.
func (c *Config) Validate() error {
	var missing []string
	if c.Session.SecretKey == "" {
		missing = append(missing, "SECRET_KEY")
	}
	if c.Petfinder.ClientID == "" {
		missing = append(missing, "PETFINDER_CLIENT_ID")
	}
	if c.Petfinder.ClientSecret == "" {
		missing = append(missing, "PETFINDER_CLIENT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	if c.Petfinder.PageLimit < 1 {
		return errors.New("PETFINDER_PAGE_LIMIT must be positive")
	}
	return nil
}

// splitList parses a comma-separated setting, dropping empty entries.
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:8080")
	v.SetDefault("TRUST_PROXY", false)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "adopt")
	v.SetDefault("DATABASE_PASSWORD", "adopt")
	v.SetDefault("DATABASE_NAME", "adopt_a_pet")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("SECRET_KEY", "")
	v.SetDefault("SESSION_ENCRYPTION_KEY", "")
	v.SetDefault("SESSION_SECURE", false)
	v.SetDefault("SESSION_MAX_AGE_SECONDS", 86400)
	v.SetDefault("CSRF_ENABLED", true)
	v.SetDefault("PETFINDER_BASE_URL", "https://api.petfinder.com/v2")
	v.SetDefault("PETFINDER_CLIENT_ID", "")
	v.SetDefault("PETFINDER_CLIENT_SECRET", "")
	v.SetDefault("PETFINDER_PAGE_LIMIT", 42)
	v.SetDefault("PETFINDER_TIMEOUT_SECONDS", 10)
	v.SetDefault("PETFINDER_RATE_LIMIT", 10)
	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)

	// Load from .env file if present
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// Override with environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		Server: ServerConfig{
			Host:           v.GetString("SERVER_HOST"),
			Port:           v.GetInt("SERVER_PORT"),
			Env:            v.GetString("SERVER_ENV"),
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
			TrustProxy:     v.GetBool("TRUST_PROXY"),
		},
		Database: DatabaseConfig{
			URL:      v.GetString("DATABASE_URL"),
			Host:     v.GetString("DATABASE_HOST"),
			Port:     v.GetInt("DATABASE_PORT"),
			User:     v.GetString("DATABASE_USER"),
			Password: v.GetString("DATABASE_PASSWORD"),
			Name:     v.GetString("DATABASE_NAME"),
			SSLMode:  v.GetString("DATABASE_SSLMODE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
		},
		Session: SessionConfig{
			SecretKey:     v.GetString("SECRET_KEY"),
			EncryptionKey: v.GetString("SESSION_ENCRYPTION_KEY"),
			Secure:        v.GetBool("SESSION_SECURE"),
			MaxAgeSeconds: v.GetInt("SESSION_MAX_AGE_SECONDS"),
			CSRFEnabled:   v.GetBool("CSRF_ENABLED"),
		},
		Petfinder: PetfinderConfig{
			BaseURL:        strings.TrimRight(v.GetString("PETFINDER_BASE_URL"), "/"),
			ClientID:       v.GetString("PETFINDER_CLIENT_ID"),
			ClientSecret:   v.GetString("PETFINDER_CLIENT_SECRET"),
			PageLimit:      v.GetInt("PETFINDER_PAGE_LIMIT"),
			TimeoutSeconds: v.GetInt("PETFINDER_TIMEOUT_SECONDS"),
			RateLimit:      v.GetInt("PETFINDER_RATE_LIMIT"),
		},
		RateLimit: RateLimitConfig{
			Requests:      v.GetInt("RATE_LIMIT_REQUESTS"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
