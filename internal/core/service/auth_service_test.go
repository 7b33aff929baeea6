package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/teqbay/accounts-api/internal/core/domain"
	"github.com/teqbay/accounts-api/internal/core/ports"
)

type stubCredStore struct {
	users     map[string]*domain.User // keyed by normalized email
	passwords map[string]string       // user id → raw password
	failWith  error
}

func newStubCredStore() *stubCredStore {
	return &stubCredStore{
		users:     make(map[string]*domain.User),
		passwords: make(map[string]string),
	}
}

func (s *stubCredStore) add(user *domain.User, rawPassword string) {
	s.users[user.Email] = user
	s.passwords[user.ID] = rawPassword
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.Roles = append([]string(nil), u.Roles...)
	return &clone
}

func (s *stubCredStore) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	if u, ok := s.users[email]; ok {
		return cloneUser(u), nil
	}
	return nil, domain.ErrUserNotFound
}

func (s *stubCredStore) FindByID(_ context.Context, id string) (*domain.User, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	for _, u := range s.users {
		if u.ID == id {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *stubCredStore) Create(_ context.Context, _ *domain.User, _ string) (ports.StoreResult, error) {
	return ports.StoreResult{Succeeded: true}, nil
}

func (s *stubCredStore) Update(_ context.Context, _ *domain.User) (ports.StoreResult, error) {
	return ports.StoreResult{Succeeded: true}, nil
}

func (s *stubCredStore) Delete(_ context.Context, _ *domain.User) (ports.StoreResult, error) {
	return ports.StoreResult{Succeeded: true}, nil
}

func (s *stubCredStore) VerifyPassword(_ context.Context, user *domain.User, rawPassword string) (bool, error) {
	if s.failWith != nil {
		return false, s.failWith
	}
	return s.passwords[user.ID] == rawPassword, nil
}

func (s *stubCredStore) RolesOf(_ context.Context, user *domain.User) ([]string, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	return append([]string(nil), user.Roles...), nil
}

func (s *stubCredStore) AddRole(_ context.Context, user *domain.User, role string) (ports.StoreResult, error) {
	user.Roles = append(user.Roles, role)
	return ports.StoreResult{Succeeded: true}, nil
}

func decodeClaims(t *testing.T, token, secret string) jwt.MapClaims {
	t.Helper()
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token invalid: %v", err)
	}
	return claims
}

func TestAuthService_Login_Success(t *testing.T) {
	store := newStubCredStore()
	store.add(&domain.User{
		ID:       "user_1",
		Email:    "carol@example.com",
		Username: "carol",
		Roles:    []string{domain.RoleRegular, domain.RoleAdmin},
	}, "s3cret-pass")
	svc := NewAuthService(store, "secret", 2*time.Hour, zerolog.Nop())

	result, err := svc.Login(context.Background(), "carol@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if result.Token == "" {
		t.Fatalf("expected token, got empty")
	}
	if result.UserID != "user_1" || result.Username != "carol" {
		t.Fatalf("unexpected identity metadata: %+v", result)
	}

	claims := decodeClaims(t, result.Token, "secret")
	if claims["sub"] != "user_1" {
		t.Fatalf("expected sub user_1, got %v", claims["sub"])
	}
	if claims["email"] != "carol@example.com" {
		t.Fatalf("expected email claim, got %v", claims["email"])
	}

	roles, ok := claims["role"].([]interface{})
	if !ok || len(roles) != 2 {
		t.Fatalf("expected 2 role claims, got %v", claims["role"])
	}
	if roles[0] != domain.RoleRegular || roles[1] != domain.RoleAdmin {
		t.Fatalf("unexpected role claims: %v", roles)
	}
}

func TestAuthService_Login_EmailIsNormalized(t *testing.T) {
	store := newStubCredStore()
	store.add(&domain.User{ID: "user_1", Email: "carol@example.com", Roles: []string{domain.RoleRegular}}, "s3cret-pass")
	svc := NewAuthService(store, "secret", time.Hour, zerolog.Nop())

	if _, err := svc.Login(context.Background(), "  Carol@Example.COM ", "s3cret-pass"); err != nil {
		t.Fatalf("login with unnormalized email failed: %v", err)
	}
}

func TestAuthService_Login_NoEnumerationSignal(t *testing.T) {
	store := newStubCredStore()
	store.add(&domain.User{ID: "user_1", Email: "dave@example.com", Roles: []string{domain.RoleRegular}}, "goodpass")
	svc := NewAuthService(store, "secret", time.Hour, zerolog.Nop())

	_, wrongPassErr := svc.Login(context.Background(), "dave@example.com", "badpass")
	_, noUserErr := svc.Login(context.Background(), "ghost@example.com", "whatever")

	if !errors.Is(wrongPassErr, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", wrongPassErr)
	}
	if !errors.Is(noUserErr, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", noUserErr)
	}
	// Identical outcomes: a caller must not be able to tell the cases apart.
	if wrongPassErr.Error() != noUserErr.Error() {
		t.Fatalf("login failures are distinguishable: %q vs %q", wrongPassErr, noUserErr)
	}
}

func TestAuthService_Login_EmptyInput(t *testing.T) {
	svc := NewAuthService(newStubCredStore(), "secret", time.Hour, zerolog.Nop())

	if _, err := svc.Login(context.Background(), "", "pass"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(context.Background(), "a@b.com", ""); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Login_StoreFailureIsNotInvalidCredentials(t *testing.T) {
	store := newStubCredStore()
	storeErr := errors.New("connection reset")
	store.failWith = storeErr
	svc := NewAuthService(store, "secret", time.Hour, zerolog.Nop())

	_, err := svc.Login(context.Background(), "carol@example.com", "pass")
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected store error to propagate, got %v", err)
	}
	if errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("infrastructure failure must not be downgraded to invalid credentials")
	}
}

func TestAuthService_GenerateToken_ExpiryWindow(t *testing.T) {
	svc := NewAuthService(newStubCredStore(), "secret", 2*time.Hour, zerolog.Nop())
	user := &domain.User{ID: "user_1", Email: "a@b.com"}

	result, err := svc.GenerateToken(user, []string{domain.RoleRegular}, nil)
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}

	claims := decodeClaims(t, result.Token, "secret")
	iat, ok := claims["iat"].(float64)
	if !ok {
		t.Fatalf("missing iat claim")
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		t.Fatalf("missing exp claim")
	}
	if exp-iat != (2 * time.Hour).Seconds() {
		t.Fatalf("expected expiry exactly issue time + 2h, got %v seconds", exp-iat)
	}
	if result.ExpiresAt.Unix() != int64(exp) {
		t.Fatalf("reported expiry %d does not match exp claim %v", result.ExpiresAt.Unix(), exp)
	}
}

func TestAuthService_GenerateToken_ExtrasCannotOverrideReservedClaims(t *testing.T) {
	svc := NewAuthService(newStubCredStore(), "secret", time.Hour, zerolog.Nop())
	user := &domain.User{ID: "user_1"}

	result, err := svc.GenerateToken(user, nil, map[string]string{"sub": "spoofed", "locale": "en"})
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}

	claims := decodeClaims(t, result.Token, "secret")
	if claims["sub"] != "user_1" {
		t.Fatalf("extra claims overrode sub: %v", claims["sub"])
	}
	if claims["locale"] != "en" {
		t.Fatalf("extra claim dropped: %v", claims["locale"])
	}
}

func TestAuthService_ValidateCallerAuthorization(t *testing.T) {
	svc := NewAuthService(newStubCredStore(), "secret", time.Hour, zerolog.Nop())

	owner := domain.Principal{Subject: "user_a", Roles: []string{domain.RoleRegular}}
	other := domain.Principal{Subject: "user_b", Roles: []string{domain.RoleRegular}}
	admin := domain.Principal{Subject: "user_c", Roles: []string{domain.RoleAdmin}}
	anon := domain.Principal{}

	cases := []struct {
		name     string
		caller   domain.Principal
		targetID string
		want     error
	}{
		{"owner on own record", owner, "user_a", nil},
		{"regular on another record", other, "user_a", domain.ErrForbidden},
		{"admin on another record", admin, "user_a", nil},
		{"admin on own record", admin, "user_c", nil},
		{"anonymous caller", anon, "user_a", domain.ErrUnauthenticated},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.ValidateCallerAuthorization(tc.caller, tc.targetID)
			if tc.want == nil {
				if err != nil {
					t.Fatalf("expected authorized, got %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
