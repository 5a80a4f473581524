package impl

import (
	"context"
	"strings"

	"tenantauth/internal/domain/entity"
	"tenantauth/internal/domain/repository"
	"tenantauth/internal/util"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	fallbackSlug       = "workspace"
	slugSuffixLength   = 8
	maxSlugAttempts    = 5
	oauthWorkspaceName = "%s's Workspace"
)

// createTenant provisions an active tenant. The slug is derived from slugSource and
// gets a random suffix while it collides with an existing tenant.
func createTenant(ctx context.Context, tenantRepo repository.TenantRepository, name, slugSource string) (*entity.Tenant, error) {
	slug, err := uniqueSlug(ctx, tenantRepo, slugSource)
	if err != nil {
		return nil, err
	}

	tenant := &entity.Tenant{
		Name:     strings.TrimSpace(name),
		Slug:     slug,
		IsActive: true,
	}
	if err := tenantRepo.Create(ctx, tenant); err != nil {
		return nil, errors.Wrap(err, "failed to create tenant")
	}

	return tenant, nil
}

func uniqueSlug(ctx context.Context, tenantRepo repository.TenantRepository, source string) (string, error) {
	base := util.GenerateSlug(source)
	if base == "" {
		base = fallbackSlug
	}

	candidate := base
	for range maxSlugAttempts {
		exists, err := tenantRepo.SlugExists(ctx, candidate)
		if err != nil {
			return "", errors.Wrap(err, "failed to check tenant slug")
		}
		if !exists {
			return candidate, nil
		}
		candidate = withSlugSuffix(base)
	}

	return "", errors.Wrapf(repository.ErrTenantSlugTaken, "no free slug for %q after %d attempts", base, maxSlugAttempts)
}

func withSlugSuffix(base string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:slugSuffixLength]
	if maxBase := util.MaxSlugLength - slugSuffixLength - 1; len(base) > maxBase {
		base = strings.TrimRight(base[:maxBase], "-")
	}

	return base + "-" + suffix
}
