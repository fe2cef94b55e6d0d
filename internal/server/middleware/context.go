package middleware

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	ContextKeyAdminID contextKey = "admin_id"
	ContextKeyOrgID   contextKey = "org_id"
)

func AdminIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(ContextKeyAdminID).(uuid.UUID)
	return v, ok
}

func OrgIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(ContextKeyOrgID).(uuid.UUID)
	return v, ok
}

// WithIdentity returns ctx carrying the authenticated administrator and organization.
func WithIdentity(ctx context.Context, adminID, orgID uuid.UUID) context.Context {
	ctx = context.WithValue(ctx, ContextKeyAdminID, adminID)
	return context.WithValue(ctx, ContextKeyOrgID, orgID)
}
