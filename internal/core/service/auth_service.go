package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/teqbay/accounts-api/internal/core/domain"
	"github.com/teqbay/accounts-api/internal/core/ports"
)

// AuthService implements credential verification, token issuance and the
// caller-authorization decision.
type AuthService struct {
	store     ports.CredentialStore
	jwtSecret string
	tokenTTL  time.Duration
	logger    zerolog.Logger
}

func NewAuthService(store ports.CredentialStore, jwtSecret string, tokenTTL time.Duration, logger zerolog.Logger) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 2 * time.Hour
	}
	return &AuthService{store: store, jwtSecret: jwtSecret, tokenTTL: tokenTTL, logger: logger}
}

// Login looks up the identity by email and verifies the password. Unknown
// email and wrong password collapse into the same ErrInvalidCredentials so
// the response carries no account-enumeration signal.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := s.store.VerifyPassword(ctx, user, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}

	roles, err := s.store.RolesOf(ctx, user)
	if err != nil {
		return nil, err
	}

	token, err := s.GenerateToken(user, roles, map[string]string{"email": user.Email})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID).Msg("user logged in")

	return &ports.LoginResult{
		Token:     token.Token,
		ExpiresAt: token.ExpiresAt,
		UserID:    user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Roles:     roles,
	}, nil
}

// GenerateToken signs an HS256 JWT with claims sub, role (one entry per
// role), exp and iat, plus any extra claims. Reserved claim names cannot be
// overridden by extras.
func (s *AuthService) GenerateToken(user *domain.User, roles []string, extraClaims map[string]string) (*ports.TokenResult, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(s.tokenTTL)

	claims := jwt.MapClaims{}
	for k, v := range extraClaims {
		claims[k] = v
	}
	claims["sub"] = user.ID
	claims["role"] = roles
	claims["iat"] = now.Unix()
	claims["exp"] = expiresAt.Unix()

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &ports.TokenResult{Token: signed, ExpiresAt: expiresAt}, nil
}

// ValidateCallerAuthorization is a pure decision: the caller may act on the
// target identity when it is the owner or holds the admin role. Signature
// and expiry verification happen upstream at the transport boundary.
func (s *AuthService) ValidateCallerAuthorization(p domain.Principal, targetID string) error {
	if p.Subject == "" {
		return domain.ErrUnauthenticated
	}
	if p.Subject == targetID || p.HasRole(domain.RoleAdmin) {
		return nil
	}
	return fmt.Errorf("%w: caller may only act on its own record", domain.ErrForbidden)
}
