package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const RoleAdmin = "admin"

type Administrator struct {
	ID             uuid.UUID
	Email          string
	PasswordHash   string     // opaque, produced by the identity service
	OrganizationID *uuid.UUID // nil only while the organization is being created
	Role           string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// BelongsTo reports whether the administrator is scoped to orgID.
func (a *Administrator) BelongsTo(orgID uuid.UUID) bool {
	return a.OrganizationID != nil && *a.OrganizationID == orgID
}

// AdministratorUpdate carries the fields to change; nil fields are left as is.
type AdministratorUpdate struct {
	Email          *string
	PasswordHash   *string
	OrganizationID *uuid.UUID
}

// AdministratorRepository is the administrator half of the master directory.
// Lookups that find nothing return a nil record and a nil error.
type AdministratorRepository interface {
	Create(ctx context.Context, email, passwordHash string, orgID *uuid.UUID) (*Administrator, error)
	FindByEmail(ctx context.Context, email string) (*Administrator, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Administrator, error)
	Update(ctx context.Context, id uuid.UUID, upd AdministratorUpdate) (*Administrator, error)
	DeleteByOrganization(ctx context.Context, orgID uuid.UUID) (int64, error)

	// ListDangling returns administrators created before cutoff whose
	// organization reference is nil or points at no existing organization.
	// Administrators that an organization names as owner are excluded.
	ListDangling(ctx context.Context, cutoff time.Time) ([]*Administrator, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}
