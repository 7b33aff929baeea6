package service

import (
	"context"
	"fmt"

	"github.com/teqbay/accounts-api/internal/core/domain"
	"github.com/teqbay/accounts-api/internal/core/ports"
)

// SeedRoles inserts the fixed role set if missing. Idempotent: re-running
// against an already-seeded store is a no-op.
func SeedRoles(ctx context.Context, repo ports.Repository[domain.Role]) error {
	seed := []domain.Role{
		{ID: domain.RoleRegularID, Name: domain.RoleRegular},
		{ID: domain.RoleAdminID, Name: domain.RoleAdmin},
	}

	for _, role := range seed {
		_, found, err := repo.GetByID(ctx, role.ID)
		if err != nil {
			return fmt.Errorf("seed roles: %w", err)
		}
		if found {
			continue
		}
		if _, err := repo.Add(ctx, role); err != nil {
			return fmt.Errorf("seed roles: %w", err)
		}
	}
	return nil
}
