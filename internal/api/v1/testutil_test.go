package v1_test

import (
	"context"

	"github.com/google/uuid"

	"github.com/gosuda/tenantry/internal/domain"
	"github.com/gosuda/tenantry/internal/orgs"
	"github.com/gosuda/tenantry/internal/server/middleware"
)

// ---------------------------------------------------------------------------
// Context helpers: inject the authenticated identity for DoCtx
// ---------------------------------------------------------------------------

func adminCtx(adminID, orgID uuid.UUID) context.Context {
	return middleware.WithIdentity(context.Background(), adminID, orgID)
}

// ---------------------------------------------------------------------------
// Mock OrgService
// ---------------------------------------------------------------------------

type mockOrgService struct {
	createFunc     func(ctx context.Context, name, email, password string) (*domain.Organization, error)
	getFunc        func(ctx context.Context, name string) (*domain.Organization, error)
	updateFunc     func(ctx context.Context, name string, params orgs.UpdateParams) (*domain.Organization, error)
	deleteFunc     func(ctx context.Context, name string, requestingAdminID uuid.UUID) error
	issueTokenFunc func(ctx context.Context, adminID uuid.UUID) (string, error)
}

func (m *mockOrgService) Create(ctx context.Context, name, email, password string) (*domain.Organization, error) {
	return m.createFunc(ctx, name, email, password)
}

func (m *mockOrgService) Get(ctx context.Context, name string) (*domain.Organization, error) {
	return m.getFunc(ctx, name)
}

func (m *mockOrgService) Update(ctx context.Context, name string, params orgs.UpdateParams) (*domain.Organization, error) {
	return m.updateFunc(ctx, name, params)
}

func (m *mockOrgService) Delete(ctx context.Context, name string, requestingAdminID uuid.UUID) error {
	return m.deleteFunc(ctx, name, requestingAdminID)
}

func (m *mockOrgService) IssueToken(ctx context.Context, adminID uuid.UUID) (string, error) {
	return m.issueTokenFunc(ctx, adminID)
}

// ---------------------------------------------------------------------------
// Mock AuthService
// ---------------------------------------------------------------------------

type mockAuthService struct {
	loginFunc func(ctx context.Context, email, password string) (string, error)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (string, error) {
	return m.loginFunc(ctx, email, password)
}
