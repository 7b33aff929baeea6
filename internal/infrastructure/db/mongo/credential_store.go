package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"github.com/teqbay/accounts-api/internal/core/domain"
	"github.com/teqbay/accounts-api/internal/core/ports"
)

const usersCollection = "users"

const minPasswordLength = 8

// CredentialStore persists identities in the users collection and owns
// password hashing and email uniqueness.
type CredentialStore struct {
	coll *mongo.Collection
}

func NewCredentialStore(db *mongo.Database) *CredentialStore {
	return &CredentialStore{coll: db.Collection(usersCollection)}
}

// EnsureIndexes creates the unique email index. Safe to call on every start.
func (s *CredentialStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("ensure user indexes: %w", err)
	}
	return nil
}

func (s *CredentialStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findOne(ctx, bson.M{"email": domain.NormalizeEmail(email)})
}

func (s *CredentialStore) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *CredentialStore) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var user domain.User
	if err := s.coll.FindOne(ctx, filter).Decode(&user); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// Create validates the raw password, hashes it and inserts the identity.
// Policy violations and duplicate emails come back as a rejected StoreResult
// with aggregated reasons, never as an error.
func (s *CredentialStore) Create(ctx context.Context, user *domain.User, rawPassword string) (ports.StoreResult, error) {
	var reasons []string
	if len(rawPassword) < minPasswordLength {
		reasons = append(reasons, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	user.Email = domain.NormalizeEmail(user.Email)
	if user.Email == "" {
		reasons = append(reasons, "email is required")
	}
	if len(reasons) > 0 {
		return ports.StoreResult{Errors: reasons}, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(rawPassword), bcrypt.DefaultCost)
	if err != nil {
		return ports.StoreResult{}, fmt.Errorf("hash password: %w", err)
	}

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.PasswordHash = string(hash)
	user.CreatedAt = now
	user.UpdatedAt = now

	if _, err := s.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ports.StoreResult{Errors: []string{ports.ReasonEmailTaken}}, nil
		}
		return ports.StoreResult{}, fmt.Errorf("insert user: %w", err)
	}
	return ports.StoreResult{Succeeded: true}, nil
}

func (s *CredentialStore) Update(ctx context.Context, user *domain.User) (ports.StoreResult, error) {
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ports.StoreResult{Errors: []string{ports.ReasonEmailTaken}}, nil
		}
		return ports.StoreResult{}, fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return ports.StoreResult{Errors: []string{"no record found for user"}}, nil
	}
	return ports.StoreResult{Succeeded: true}, nil
}

func (s *CredentialStore) Delete(ctx context.Context, user *domain.User) (ports.StoreResult, error) {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": user.ID})
	if err != nil {
		return ports.StoreResult{}, fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return ports.StoreResult{Errors: []string{"no record found for user"}}, nil
	}
	return ports.StoreResult{Succeeded: true}, nil
}

// VerifyPassword compares the raw password against the stored bcrypt hash.
// Only a genuine mismatch is a false result; a hash that cannot be compared
// (corrupt or truncated) is an infrastructure error, not bad credentials.
func (s *CredentialStore) VerifyPassword(_ context.Context, user *domain.User, rawPassword string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(rawPassword))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("verify password: %w", err)
	}
}

func (s *CredentialStore) RolesOf(_ context.Context, user *domain.User) ([]string, error) {
	roles := make([]string, len(user.Roles))
	copy(roles, user.Roles)
	return roles, nil
}

// AddRole attaches the role to the stored membership set ($addToSet keeps it
// duplicate-free) and mirrors the change on the in-memory identity.
func (s *CredentialStore) AddRole(ctx context.Context, user *domain.User, role string) (ports.StoreResult, error) {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": user.ID},
		bson.M{"$addToSet": bson.M{"roles": role}},
	)
	if err != nil {
		return ports.StoreResult{}, fmt.Errorf("add role: %w", err)
	}
	if res.MatchedCount == 0 {
		return ports.StoreResult{Errors: []string{"no record found for user"}}, nil
	}

	for _, r := range user.Roles {
		if r == role {
			return ports.StoreResult{Succeeded: true}, nil
		}
	}
	user.Roles = append(user.Roles, role)
	return ports.StoreResult{Succeeded: true}, nil
}
