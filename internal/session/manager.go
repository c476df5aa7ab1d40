package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/hugh/adopt-a-pet/internal/petfinder"
)

const (
	Name = "adopt-session"

	userIDKey    = "user_id"
	tokenKey     = "pf_token"
	expiresAtKey = "pf_expires_at"
)

// Destroyer is implemented by stores that keep data under the session id.
// The Manager calls it to drop the old record when the id rotates.
type Destroyer interface {
	Destroy(ctx context.Context, id string) error
}

// Manager reads and writes the session through any gorilla sessions.Store.
type Manager struct {
	store  sessions.Store
	logger *slog.Logger
}

func NewManager(store sessions.Store, logger *slog.Logger) *Manager {
	return &Manager{store: store, logger: logger}
}

// Options builds the cookie options shared by every store.
func Options(maxAge time.Duration, secure bool) *sessions.Options {
	opts := &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return opts
}

// NewCookieStore is the fallback store used when Redis is unavailable.
func NewCookieStore(secretKey string, opts *sessions.Options) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secretKey))
	store.Options = opts
	store.MaxAge(opts.MaxAge)
	return store
}

func (m *Manager) get(r *http.Request) *sessions.Session {
	sess, err := m.store.Get(r, Name)
	if err != nil {
		// Undecodable or missing server-side data: start over with the fresh
		// session gorilla returns alongside the error.
		m.logger.Debug("discarding unreadable session", "error", err)
	}
	return sess
}

// Load reads the State for r. A broken session yields a logged-out State.
func (m *Manager) Load(r *http.Request) *State {
	sess := m.get(r)
	state := &State{}

	if raw, ok := sess.Values[userIDKey].(string); ok {
		if id, err := uuid.Parse(raw); err == nil {
			state.UserID = id
		}
	}
	if token, ok := sess.Values[tokenKey].(string); ok {
		state.Credential.AccessToken = token
	}
	if exp, ok := sess.Values[expiresAtKey].(int64); ok {
		state.Credential.ExpiresAt = time.Unix(exp, 0)
	}

	return state
}

// Login records the user and a fresh credential. The session id is rotated.
func (m *Manager) Login(w http.ResponseWriter, r *http.Request, userID uuid.UUID, cred petfinder.Credential) error {
	sess := m.get(r)
	oldID := sess.ID
	sess.ID = ""
	sess.Values[userIDKey] = userID.String()
	setCredential(sess, cred)
	if err := m.save(w, r, sess); err != nil {
		return err
	}

	if d, ok := m.store.(Destroyer); ok && oldID != "" {
		if err := d.Destroy(r.Context(), oldID); err != nil {
			m.logger.Warn("failed to drop rotated session", "error", err)
		}
	}
	return nil
}

func (m *Manager) ClearCredential(w http.ResponseWriter, r *http.Request) error {
	sess := m.get(r)
	delete(sess.Values, tokenKey)
	delete(sess.Values, expiresAtKey)
	return m.save(w, r, sess)
}

// Logout drops the user and credential but keeps pending flashes.
func (m *Manager) Logout(w http.ResponseWriter, r *http.Request) error {
	sess := m.get(r)
	delete(sess.Values, userIDKey)
	delete(sess.Values, tokenKey)
	delete(sess.Values, expiresAtKey)
	return m.save(w, r, sess)
}

func (m *Manager) AddFlash(w http.ResponseWriter, r *http.Request, category, message string) error {
	sess := m.get(r)
	sess.AddFlash(Flash{Category: category, Message: message})
	return m.save(w, r, sess)
}

// Flashes returns and consumes pending flash messages.
func (m *Manager) Flashes(w http.ResponseWriter, r *http.Request) []Flash {
	sess := m.get(r)
	raw := sess.Flashes()
	if len(raw) == 0 {
		return nil
	}

	flashes := make([]Flash, 0, len(raw))
	for _, v := range raw {
		if f, ok := v.(Flash); ok {
			flashes = append(flashes, f)
		}
	}
	if err := m.save(w, r, sess); err != nil {
		m.logger.Warn("failed to save session after reading flashes", "error", err)
	}
	return flashes
}

func (m *Manager) save(w http.ResponseWriter, r *http.Request, sess *sessions.Session) error {
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

func setCredential(sess *sessions.Session, cred petfinder.Credential) {
	sess.Values[tokenKey] = cred.AccessToken
	sess.Values[expiresAtKey] = cred.ExpiresAt.Unix()
}
