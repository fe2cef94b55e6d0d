package v1

import (
	"context"

	"github.com/google/uuid"

	"github.com/gosuda/tenantry/internal/domain"
	"github.com/gosuda/tenantry/internal/orgs"
)

// OrgService abstracts the organization lifecycle for handler testing.
// *orgs.Service satisfies this interface.
type OrgService interface {
	Create(ctx context.Context, name, email, password string) (*domain.Organization, error)
	Get(ctx context.Context, name string) (*domain.Organization, error)
	Update(ctx context.Context, name string, params orgs.UpdateParams) (*domain.Organization, error)
	Delete(ctx context.Context, name string, requestingAdminID uuid.UUID) error
	IssueToken(ctx context.Context, adminID uuid.UUID) (string, error)
}

// AuthService abstracts administrator login for handler testing.
// *orgs.Service satisfies this interface.
type AuthService interface {
	Login(ctx context.Context, email, password string) (string, error)
}
