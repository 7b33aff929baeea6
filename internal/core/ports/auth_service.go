package ports

import (
	"context"
	"time"

	"github.com/teqbay/accounts-api/internal/core/domain"
)

// TokenResult is a freshly signed bearer token and its expiry.
type TokenResult struct {
	Token     string
	ExpiresAt time.Time
}

// LoginResult bundles the issued token with enough identity metadata for the
// transport layer to render a response without a second lookup.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	UserID    string
	Username  string
	Email     string
	Roles     []string
}

// AuthService is the only component permitted to assert who a caller is and
// what they may do.
type AuthService interface {
	// Login verifies credentials and issues a token. Unknown email and wrong
	// password both yield domain.ErrInvalidCredentials with no distinguishing
	// signal; any other error is an infrastructure failure.
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	// GenerateToken signs a token binding the user's id, role claims, any
	// extra claims and an expiry of issue time plus the configured window.
	GenerateToken(user *domain.User, roles []string, extraClaims map[string]string) (*TokenResult, error)
	// ValidateCallerAuthorization decides whether the principal may act on the
	// resource owned by targetID: allowed for the owner or an admin. Pure
	// decision, no I/O; returns domain.ErrForbidden otherwise.
	ValidateCallerAuthorization(p domain.Principal, targetID string) error
}
