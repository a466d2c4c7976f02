package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/hugh/fieldops/internal/database/models"
)

// Authenticator defines the interface for user authentication operations.
type Authenticator interface {
	Login(ctx context.Context, input LoginInput) (*AuthResponse, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	CreateUser(ctx context.Context, input CreateUserInput) (*models.User, error)
}

// TokenService defines the interface for JWT token operations.
type TokenService interface {
	GenerateToken(userID uuid.UUID, email, role string) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// MembershipResolver resolves the caller's membership in an organization.
type MembershipResolver interface {
	ActiveMember(ctx context.Context, userID uuid.UUID, slug string) (*models.Organization, *models.Member, error)
}

// Compile-time interface satisfaction checks
var (
	_ Authenticator      = (*Service)(nil)
	_ TokenService       = (*JWTService)(nil)
	_ MembershipResolver = (*OrgService)(nil)
)
