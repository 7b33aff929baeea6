package ports

import (
	"context"

	"github.com/teqbay/accounts-api/internal/core/domain"
)

// ReasonEmailTaken is the rejection reason a store reports when the unique
// email constraint catches a duplicate at write time.
const ReasonEmailTaken = "email already taken"

// StoreResult is the outcome of a credential-store write: either it
// succeeded, or it was rejected with one or more human-readable reasons.
type StoreResult struct {
	Succeeded bool
	Errors    []string
}

// CredentialStore is the identity-credential capability the auth core
// consumes. It owns password hashing and email uniqueness; lookups report
// absence with domain.ErrUserNotFound, never a generic error.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User, rawPassword string) (StoreResult, error)
	Update(ctx context.Context, user *domain.User) (StoreResult, error)
	Delete(ctx context.Context, user *domain.User) (StoreResult, error)
	VerifyPassword(ctx context.Context, user *domain.User, rawPassword string) (bool, error)
	RolesOf(ctx context.Context, user *domain.User) ([]string, error)
	AddRole(ctx context.Context, user *domain.User, role string) (StoreResult, error)
}
