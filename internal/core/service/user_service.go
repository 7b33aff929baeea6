package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/teqbay/accounts-api/internal/core/domain"
	"github.com/teqbay/accounts-api/internal/core/ports"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// UserService orchestrates user reads through the generic repository and
// identity mutations through the credential store.
type UserService struct {
	store  ports.CredentialStore
	repo   ports.Repository[domain.User]
	photos ports.PhotoManager
	auth   ports.AuthService
	logger zerolog.Logger
}

func NewUserService(store ports.CredentialStore, repo ports.Repository[domain.User], photos ports.PhotoManager, auth ports.AuthService, logger zerolog.Logger) *UserService {
	return &UserService{store: store, repo: repo, photos: photos, auth: auth, logger: logger}
}

func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	user, found, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrUserNotFound
	}
	return &user, nil
}

// List returns one page of all users, streamed through the repository cursor
// so the full set is never materialized.
func (s *UserService) List(ctx context.Context, page, perPage int) (*ports.UserPage, error) {
	return s.page(ctx, func(domain.User) bool { return true }, page, perPage)
}

// Search matches users whose email, username or id equals the term.
func (s *UserService) Search(ctx context.Context, term string, page, perPage int) (*ports.UserPage, error) {
	return s.page(ctx, func(u domain.User) bool {
		return u.Email == term || u.Username == term || u.ID == term
	}, page, perPage)
}

func (s *UserService) page(ctx context.Context, match func(domain.User) bool, page, perPage int) (*ports.UserPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	cur, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	start := (page - 1) * perPage
	total := 0
	items := make([]domain.User, 0, perPage)
	for cur.Next(ctx) {
		u := cur.Item()
		if !match(u) {
			continue
		}
		if total >= start && len(items) < perPage {
			items = append(items, u)
		}
		total++
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}

	totalPages := (total + perPage - 1) / perPage
	return &ports.UserPage{
		Items:      items,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
	}, nil
}

// Register creates a new identity through the credential store and attaches
// the regular role implicitly.
func (s *UserService) Register(ctx context.Context, input ports.RegisterInput) (*domain.User, error) {
	email := domain.NormalizeEmail(input.Email)

	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	user := &domain.User{
		Email:       email,
		Username:    input.Username,
		PhoneNumber: input.PhoneNumber,
	}

	res, err := s.store.Create(ctx, user, input.Password)
	if err != nil {
		return nil, err
	}
	if !res.Succeeded {
		// The pre-check above can miss an insert that lands between the
		// lookup and the write; the unique index is the backstop and its
		// rejection is the same business outcome.
		for _, reason := range res.Errors {
			if reason == ports.ReasonEmailTaken {
				return nil, domain.ErrEmailTaken
			}
		}
		return nil, &domain.ValidationError{Reasons: res.Errors}
	}

	roleRes, err := s.store.AddRole(ctx, user, domain.RoleRegular)
	if err != nil {
		return nil, err
	}
	if !roleRes.Succeeded {
		return nil, fmt.Errorf("attach default role: %v", roleRes.Errors)
	}

	s.logger.Info().Str("user_id", user.ID).Msg("user registered")
	return user, nil
}

// Update mutates profile fields after an owner-or-admin check.
func (s *UserService) Update(ctx context.Context, p domain.Principal, id string, input ports.UpdateUserInput) (*domain.User, error) {
	user, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.auth.ValidateCallerAuthorization(p, user.ID); err != nil {
		return nil, err
	}

	if input.Username != "" {
		user.Username = input.Username
	}
	if input.PhoneNumber != "" {
		user.PhoneNumber = input.PhoneNumber
	}
	user.UpdatedAt = time.Now().UTC()

	res, err := s.store.Update(ctx, user)
	if err != nil {
		return nil, err
	}
	if !res.Succeeded {
		return nil, &domain.ValidationError{Reasons: res.Errors}
	}

	return user, nil
}

// Delete removes an identity. Admin only; route-level RBAC enforces the same
// rule, this keeps the invariant even for future call sites.
func (s *UserService) Delete(ctx context.Context, p domain.Principal, id string) error {
	if !p.HasRole(domain.RoleAdmin) {
		return fmt.Errorf("%w: only admins may delete users", domain.ErrForbidden)
	}

	user, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}

	res, err := s.store.Delete(ctx, user)
	if err != nil {
		return err
	}
	if !res.Succeeded {
		return domain.ErrUserNotFound
	}

	s.logger.Info().Str("user_id", id).Str("deleted_by", p.Subject).Msg("user deleted")
	return nil
}

// SetPhoto uploads the image through the photo manager and stores the
// returned url and public id on the identity.
func (s *UserService) SetPhoto(ctx context.Context, p domain.Principal, id, filename string, data []byte) (*domain.User, error) {
	user, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.auth.ValidateCallerAuthorization(p, user.ID); err != nil {
		return nil, err
	}

	uploaded, err := s.photos.Upload(ctx, filename, data)
	if err != nil {
		return nil, err
	}
	if !uploaded.Success {
		return nil, &domain.ValidationError{Reasons: []string{uploaded.Message}}
	}

	user.PhotoURL = uploaded.URL
	user.PhotoPublicID = uploaded.PublicID
	user.UpdatedAt = time.Now().UTC()

	res, err := s.store.Update(ctx, user)
	if err != nil {
		return nil, err
	}
	if !res.Succeeded {
		return nil, &domain.ValidationError{Reasons: res.Errors}
	}

	return user, nil
}

// RemovePhoto deletes the hosted image and clears the photo reference.
func (s *UserService) RemovePhoto(ctx context.Context, p domain.Principal, id string) (*domain.User, error) {
	user, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.auth.ValidateCallerAuthorization(p, user.ID); err != nil {
		return nil, err
	}

	if user.PhotoPublicID == "" {
		return nil, &domain.ValidationError{Reasons: []string{"user has no photo"}}
	}

	ok, err := s.photos.Delete(ctx, user.PhotoPublicID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &domain.ValidationError{Reasons: []string{"failed to delete photo"}}
	}

	user.PhotoURL = ""
	user.PhotoPublicID = ""
	user.UpdatedAt = time.Now().UTC()

	res, err := s.store.Update(ctx, user)
	if err != nil {
		return nil, err
	}
	if !res.Succeeded {
		return nil, &domain.ValidationError{Reasons: res.Errors}
	}

	return user, nil
}
