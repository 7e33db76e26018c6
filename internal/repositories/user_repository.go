package repositories

import (
	"context"

	"github.com/SAP-F-2025/course-marketplace/internal/models"
)

// UserRepository is read-mostly access to accounts owned by Casdoor
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.User, error)

	ExistsByEmail(ctx context.Context, email string) (bool, error)
	HasRole(ctx context.Context, id string, role models.UserRole) (bool, error)

	// InvalidateCache drops cached copies after a write through the auth provider.
	InvalidateCache(ctx context.Context, user *models.User)
}

// SignUpInput is the account data sent to the auth provider on registration.
type SignUpInput struct {
	Email    string
	Password string
	Name     string
}

// AuthProvider wraps session issuance and password management of the managed auth service.
type AuthProvider interface {
	SignIn(ctx context.Context, email, password string) (*models.AuthToken, error)
	SignUp(ctx context.Context, input SignUpInput) (*models.User, error)
	AuthCodeURL(provider, state string) string
	Exchange(ctx context.Context, code string) (*models.AuthToken, error)
	Refresh(ctx context.Context, refreshToken string) (*models.AuthToken, error)
	SetPassword(ctx context.Context, user *models.User, oldPassword, newPassword string) error
}
