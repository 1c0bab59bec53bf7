// Package tenant resolves inbound webhook events to their owning tenant.
package tenant

import (
	"context"
	"fmt"
	"strings"

	"github.com/northpages/contentsync/internal/logger"
	"github.com/northpages/contentsync/internal/models"
	"github.com/northpages/contentsync/internal/repository"
)

// Directory is the tenant lookup surface the resolver needs.
type Directory interface {
	GetByID(ctx context.Context, id string) (*models.Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	List(ctx context.Context) ([]*models.Tenant, error)
}

// Resolver maps event identifiers to tenant profiles. There is no
// dedicated database-id-to-tenant mapping table; resolution scans the
// tenant list, which stays cheap at low tenant counts.
type Resolver struct {
	tenants Directory
	logger  logger.Logger
}

// NewResolver creates a tenant resolver.
func NewResolver(tenants Directory, log logger.Logger) *Resolver {
	return &Resolver{tenants: tenants, logger: log}
}

// Resolve finds the owning tenant. An explicit tenant identifier (carried
// as a query parameter on the delivery address) is the fast path and is
// how provider verification challenges resolve; otherwise the source
// database id embedded in the payload is matched against each tenant's
// configured database id, ignoring punctuation, since providers format
// identifiers inconsistently.
func (r *Resolver) Resolve(ctx context.Context, explicitTenant, sourceDatabaseID string) (*models.Tenant, error) {
	if explicitTenant != "" {
		if t, err := r.tenants.GetByID(ctx, explicitTenant); err == nil {
			return t, nil
		}
		// The delivery-address parameter may carry a slug instead of an id.
		if t, err := r.tenants.GetBySlug(ctx, explicitTenant); err == nil {
			return t, nil
		}
	}

	if sourceDatabaseID == "" {
		return nil, repository.ErrTenantNotFound
	}

	tenants, err := r.tenants.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}

	want := canonicalID(sourceDatabaseID)
	for _, t := range tenants {
		if canonicalID(t.SourceDatabaseID) == want {
			return t, nil
		}
	}

	r.logger.Debug("No tenant for source database",
		logger.String("source_database_id", sourceDatabaseID),
	)
	return nil, repository.ErrTenantNotFound
}

// SameSourceDatabase reports whether two provider database identifiers
// refer to the same database, ignoring formatting differences.
func SameSourceDatabase(a, b string) bool {
	return a != "" && canonicalID(a) == canonicalID(b)
}

// canonicalID normalizes a provider identifier for comparison: lowercase
// with hyphens and underscores dropped.
func canonicalID(id string) string {
	id = strings.ToLower(id)
	id = strings.ReplaceAll(id, "-", "")
	id = strings.ReplaceAll(id, "_", "")
	return id
}
