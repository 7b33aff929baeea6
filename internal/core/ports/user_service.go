package ports

import (
	"context"

	"github.com/teqbay/accounts-api/internal/core/domain"
)

// RegisterInput carries the data needed to create a new account.
type RegisterInput struct {
	Email       string
	Username    string
	Password    string
	PhoneNumber string
}

// UpdateUserInput holds the mutable profile fields. Empty values leave the
// current field unchanged.
type UpdateUserInput struct {
	Username    string
	PhoneNumber string
}

// UserPage is one page of a user listing.
type UserPage struct {
	Items      []domain.User
	Total      int
	Page       int
	PerPage    int
	TotalPages int
}

// UserService defines the user-management use cases.
type UserService interface {
	Get(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context, page, perPage int) (*UserPage, error)
	Search(ctx context.Context, term string, page, perPage int) (*UserPage, error)
	Register(ctx context.Context, input RegisterInput) (*domain.User, error)
	Update(ctx context.Context, p domain.Principal, id string, input UpdateUserInput) (*domain.User, error)
	Delete(ctx context.Context, p domain.Principal, id string) error
	SetPhoto(ctx context.Context, p domain.Principal, id, filename string, data []byte) (*domain.User, error)
	RemovePhoto(ctx context.Context, p domain.Principal, id string) (*domain.User, error)
}
