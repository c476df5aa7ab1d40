package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/hugh/adopt-a-pet/internal/database/models"
)

// Accounts defines the user account operations the web handlers depend on.
type Accounts interface {
	Signup(ctx context.Context, input SignupInput) (*models.User, error)
	Login(ctx context.Context, input LoginInput) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListUsers(ctx context.Context, search string) ([]models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, input UpdateProfileInput) (*models.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// Compile-time interface satisfaction checks
var _ Accounts = (*Service)(nil)
