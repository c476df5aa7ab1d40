package session

import (
	"context"
	"encoding/gob"

	"github.com/google/uuid"
	"github.com/hugh/adopt-a-pet/internal/petfinder"
)

// State is the per-request view of the session, loaded once by middleware
// and read by handlers through the request context.
type State struct {
	UserID     uuid.UUID
	Credential petfinder.Credential
}

func (s *State) LoggedIn() bool {
	return s != nil && s.UserID != uuid.Nil
}

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Category string
	Message  string
}

func init() {
	gob.Register(Flash{})
}

type ctxKey string

const stateKey ctxKey = "sessionState"

func WithState(ctx context.Context, s *State) context.Context {
	return context.WithValue(ctx, stateKey, s)
}

// FromContext returns the request's State, or an empty logged-out State.
func FromContext(ctx context.Context) *State {
	if s, ok := ctx.Value(stateKey).(*State); ok && s != nil {
		return s
	}
	return &State{}
}
