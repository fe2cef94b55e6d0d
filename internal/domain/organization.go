package domain

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CollectionPrefix namespaces tenant collections away from system tables.
const CollectionPrefix = "org_"

type Organization struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"organization_name"`
	CollectionName string    `json:"collection_name"`
	AdminID        uuid.UUID `json:"admin_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// OrganizationUpdate carries the fields to change; nil fields are left as is.
type OrganizationUpdate struct {
	Name           *string
	CollectionName *string
	AdminID        *uuid.UUID
}

// OrganizationRepository is the organization half of the master directory.
// Lookups that find nothing return a nil record and a nil error.
type OrganizationRepository interface {
	FindByName(ctx context.Context, name string) (*Organization, error)
	FindByCollection(ctx context.Context, collection string) (*Organization, error)
	Create(ctx context.Context, name, collection string, adminID uuid.UUID) (*Organization, error)
	Update(ctx context.Context, name string, upd OrganizationUpdate) (*Organization, error)
	Delete(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) ([]*Organization, error)
}

var nonSlugRun = regexp.MustCompile(`[^a-z0-9_]+`)

// ResolveCollectionName maps a display name to its storage-safe collection
// name. Distinct names can collapse to the same result.
func ResolveCollectionName(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = nonSlugRun.ReplaceAllString(slug, "_")
	if slug == "" {
		slug = "_"
	}
	return CollectionPrefix + slug
}

// IsTenantCollection reports whether a collection name lives in the tenant namespace.
func IsTenantCollection(name string) bool {
	return strings.HasPrefix(name, CollectionPrefix)
}
