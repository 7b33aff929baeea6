package domain

import (
	"errors"
	"strings"
	"time"
)

var ErrUserNotFound = errors.New("user not found")
var ErrEmailTaken = errors.New("email already taken")
var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrUnauthenticated = errors.New("unauthenticated")
var ErrForbidden = errors.New("access forbidden")

// ValidationError aggregates the human-readable reasons a store rejected a
// write (duplicate email, weak password, malformed field). It is a business
// outcome, not an infrastructure failure.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Reasons, "; ")
}

// User is the identity aggregate: credentials, role memberships and profile
// metadata, including the external photo reference.
type User struct {
	ID            string    `json:"id" bson:"_id,omitempty"`
	Email         string    `json:"email" bson:"email"`
	Username      string    `json:"username" bson:"username"`
	PhoneNumber   string    `json:"phone_number,omitempty" bson:"phone_number,omitempty"`
	PasswordHash  string    `json:"-" bson:"password_hash"`
	Roles         []string  `json:"roles" bson:"roles"`
	PhotoURL      string    `json:"photo_url,omitempty" bson:"photo_url,omitempty"`
	PhotoPublicID string    `json:"-" bson:"photo_public_id,omitempty"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" bson:"updated_at"`
}

// EntityID satisfies the repository entity contract.
func (u User) EntityID() string { return u.ID }

// Principal carries the identity claims extracted from an already-verified
// bearer token. It is threaded explicitly through every authorization check;
// there is no ambient current-user state.
type Principal struct {
	Subject string
	Email   string
	Roles   []string
}

// HasRole reports whether the principal holds the named role.
func (p Principal) HasRole(name string) bool {
	for _, r := range p.Roles {
		if r == name {
			return true
		}
	}
	return false
}

// NormalizeEmail canonicalizes an email address for lookups and uniqueness.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
