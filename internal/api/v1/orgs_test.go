package v1_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/gosuda/tenantry/internal/api/v1"
	"github.com/gosuda/tenantry/internal/domain"
	"github.com/gosuda/tenantry/internal/orgs"
)

func fixtureOrg() *domain.Organization {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.Organization{
		ID:             uuid.New(),
		Name:           "Acme Corp",
		CollectionName: "org_acme_corp",
		AdminID:        uuid.New(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// ---------------------------------------------------------------------------
// POST /org/create
// ---------------------------------------------------------------------------

func TestCreateOrg(t *testing.T) {
	t.Parallel()

	validBody := map[string]any{
		"organization_name": "Acme Corp",
		"email":             "owner@acme.io",
		"password":          "secretpw1",
	}

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		org := fixtureOrg()
		_, api := humatest.New(t)
		v1.RegisterPublicOrgRoutes(api, &mockOrgService{
			createFunc: func(_ context.Context, name, email, password string) (*domain.Organization, error) {
				assert.Equal(t, "Acme Corp", name)
				assert.Equal(t, "owner@acme.io", email)
				assert.Equal(t, "secretpw1", password)
				return org, nil
			},
		})

		resp := api.Post("/org/create", validBody)
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

		var body v1.OrgBody
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, org.Name, body.Name)
		assert.Equal(t, org.CollectionName, body.CollectionName)
		assert.Equal(t, org.AdminID, body.AdminID)
		assert.True(t, org.CreatedAt.Equal(body.CreatedAt))
	})

	errorCases := []struct {
		name       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{name: "already_exists", err: domain.ErrAlreadyExists, wantStatus: http.StatusBadRequest, wantDetail: "Organization already exists"},
		{name: "collection_conflict", err: domain.ErrCollectionConflict, wantStatus: http.StatusConflict},
		{name: "locked", err: domain.ErrLocked, wantStatus: http.StatusConflict},
		{name: "store_unavailable", err: domain.ErrStoreUnavailable, wantStatus: http.StatusServiceUnavailable},
		{name: "unexpected", err: errors.New("pq: secret detail"), wantStatus: http.StatusInternalServerError},
	}

	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, api := humatest.New(t)
			v1.RegisterPublicOrgRoutes(api, &mockOrgService{
				createFunc: func(context.Context, string, string, string) (*domain.Organization, error) {
					return nil, fmt.Errorf("orgs.Service.Create: %w", tc.err)
				},
			})

			resp := api.Post("/org/create", validBody)
			require.Equal(t, tc.wantStatus, resp.Code)
			assert.NotContains(t, resp.Body.String(), "secret detail")
			if tc.wantDetail != "" {
				assert.Contains(t, resp.Body.String(), tc.wantDetail)
			}
		})
	}

	validationCases := []struct {
		name string
		body map[string]any
	}{
		{name: "name_too_short", body: map[string]any{"organization_name": "A", "email": "a@b.io", "password": "secretpw1"}},
		{name: "name_too_long", body: map[string]any{"organization_name": strings.Repeat("a", 51), "email": "a@b.io", "password": "secretpw1"}},
		{name: "bad_email", body: map[string]any{"organization_name": "Acme", "email": "nope", "password": "secretpw1"}},
		{name: "short_password", body: map[string]any{"organization_name": "Acme", "email": "a@b.io", "password": "short"}},
		{name: "missing_password", body: map[string]any{"organization_name": "Acme", "email": "a@b.io"}},
	}

	for _, tc := range validationCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, api := humatest.New(t)
			v1.RegisterPublicOrgRoutes(api, &mockOrgService{})

			resp := api.Post("/org/create", tc.body)
			assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
		})
	}
}

// ---------------------------------------------------------------------------
// GET /org/get
// ---------------------------------------------------------------------------

func TestGetOrg(t *testing.T) {
	t.Parallel()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		org := fixtureOrg()
		_, api := humatest.New(t)
		v1.RegisterPublicOrgRoutes(api, &mockOrgService{
			getFunc: func(_ context.Context, name string) (*domain.Organization, error) {
				assert.Equal(t, "Acme Corp", name)
				return org, nil
			},
		})

		resp := api.Get("/org/get?organization_name=Acme%20Corp")
		require.Equal(t, http.StatusOK, resp.Code)

		var body v1.OrgBody
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, org.ID, body.ID)
		assert.Equal(t, "org_acme_corp", body.CollectionName)
	})

	t.Run("not_found", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterPublicOrgRoutes(api, &mockOrgService{
			getFunc: func(context.Context, string) (*domain.Organization, error) {
				return nil, fmt.Errorf("orgs.Service.Get: %w", domain.ErrNotFound)
			},
		})

		resp := api.Get("/org/get?organization_name=Ghost")
		assert.Equal(t, http.StatusNotFound, resp.Code)
		assert.Contains(t, resp.Body.String(), "Organization not found")
	})

	t.Run("missing_query", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterPublicOrgRoutes(api, &mockOrgService{})

		resp := api.Get("/org/get")
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	})
}

// ---------------------------------------------------------------------------
// PUT /org/update
// ---------------------------------------------------------------------------

func TestUpdateOrg(t *testing.T) {
	t.Parallel()

	t.Run("happy_path_returns_fresh_token", func(t *testing.T) {
		t.Parallel()

		org := fixtureOrg()
		renamed := *org
		renamed.Name = "Acme International"
		renamed.CollectionName = "org_acme_international"

		_, api := humatest.New(t)
		v1.RegisterOrgRoutes(api, &mockOrgService{
			getFunc: func(context.Context, string) (*domain.Organization, error) { return org, nil },
			updateFunc: func(_ context.Context, name string, params orgs.UpdateParams) (*domain.Organization, error) {
				assert.Equal(t, "Acme Corp", name)
				require.NotNil(t, params.NewName)
				assert.Equal(t, "Acme International", *params.NewName)
				require.NotNil(t, params.Password)
				assert.Equal(t, "rotated-pw", *params.Password)
				assert.Nil(t, params.Email)
				return &renamed, nil
			},
			issueTokenFunc: func(_ context.Context, adminID uuid.UUID) (string, error) {
				assert.Equal(t, org.AdminID, adminID)
				return "fresh-tok", nil
			},
		})

		resp := api.PutCtx(adminCtx(org.AdminID, org.ID), "/org/update", map[string]any{
			"organization_name":     "Acme Corp",
			"new_organization_name": "Acme International",
			"password":              "rotated-pw",
		})
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

		var body struct {
			Detail       string     `json:"detail"`
			Organization v1.OrgBody `json:"organization"`
			AccessToken  string     `json:"access_token"`
			TokenType    string     `json:"token_type"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "Organization updated successfully", body.Detail)
		assert.Equal(t, "org_acme_international", body.Organization.CollectionName)
		assert.Equal(t, "fresh-tok", body.AccessToken)
		assert.Equal(t, "bearer", body.TokenType)
	})

	t.Run("other_organization_is_forbidden", func(t *testing.T) {
		t.Parallel()

		org := fixtureOrg()
		_, api := humatest.New(t)
		v1.RegisterOrgRoutes(api, &mockOrgService{
			getFunc: func(context.Context, string) (*domain.Organization, error) { return org, nil },
		})

		resp := api.PutCtx(adminCtx(uuid.New(), uuid.New()), "/org/update", map[string]any{
			"organization_name": "Acme Corp",
			"password":          "rotated-pw",
		})
		assert.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterOrgRoutes(api, &mockOrgService{})

		resp := api.Put("/org/update", map[string]any{"organization_name": "Acme Corp"})
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	errorCases := []struct {
		name       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{name: "not_found", err: domain.ErrNotFound, wantStatus: http.StatusNotFound},
		{name: "name_conflict", err: domain.ErrNameConflict, wantStatus: http.StatusConflict, wantDetail: "Organization name conflict"},
		{name: "collection_conflict", err: domain.ErrCollectionConflict, wantStatus: http.StatusConflict},
		{name: "email_taken", err: domain.ErrAlreadyExists, wantStatus: http.StatusConflict},
		{name: "locked", err: domain.ErrLocked, wantStatus: http.StatusConflict},
		{name: "store_unavailable", err: domain.ErrStoreUnavailable, wantStatus: http.StatusServiceUnavailable},
	}

	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			org := fixtureOrg()
			_, api := humatest.New(t)
			v1.RegisterOrgRoutes(api, &mockOrgService{
				getFunc: func(context.Context, string) (*domain.Organization, error) { return org, nil },
				updateFunc: func(context.Context, string, orgs.UpdateParams) (*domain.Organization, error) {
					return nil, fmt.Errorf("orgs.Service.Update: %w", tc.err)
				},
			})

			resp := api.PutCtx(adminCtx(org.AdminID, org.ID), "/org/update", map[string]any{
				"organization_name":     "Acme Corp",
				"new_organization_name": "Globex",
			})
			require.Equal(t, tc.wantStatus, resp.Code)
			if tc.wantDetail != "" {
				assert.Contains(t, resp.Body.String(), tc.wantDetail)
			}
		})
	}

	t.Run("validation", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterOrgRoutes(api, &mockOrgService{})
		ctx := adminCtx(uuid.New(), uuid.New())

		resp := api.PutCtx(ctx, "/org/update", map[string]any{"organization_name": "Acme", "password": "short"})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

		resp = api.PutCtx(ctx, "/org/update", map[string]any{"organization_name": "Acme", "email": "nope"})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	})
}

// ---------------------------------------------------------------------------
// DELETE /org/delete
// ---------------------------------------------------------------------------

func TestDeleteOrg(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{name: "happy_path", wantStatus: http.StatusOK, wantDetail: "Organization deleted successfully"},
		{name: "not_found", err: domain.ErrNotFound, wantStatus: http.StatusNotFound, wantDetail: "Organization not found"},
		{name: "forbidden", err: domain.ErrForbidden, wantStatus: http.StatusForbidden, wantDetail: "Not authorized to delete"},
		{name: "locked", err: domain.ErrLocked, wantStatus: http.StatusConflict},
		{name: "store_unavailable", err: domain.ErrStoreUnavailable, wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			adminID := uuid.New()
			_, api := humatest.New(t)
			v1.RegisterOrgRoutes(api, &mockOrgService{
				deleteFunc: func(_ context.Context, name string, requester uuid.UUID) error {
					assert.Equal(t, "Acme Corp", name)
					assert.Equal(t, adminID, requester)
					if tt.err != nil {
						return fmt.Errorf("orgs.Service.Delete: %w", tt.err)
					}
					return nil
				},
			})

			resp := api.DeleteCtx(adminCtx(adminID, uuid.New()), "/org/delete", map[string]any{
				"organization_name": "Acme Corp",
			})
			require.Equal(t, tt.wantStatus, resp.Code, resp.Body.String())
			if tt.wantDetail != "" {
				assert.Contains(t, resp.Body.String(), tt.wantDetail)
			}
		})
	}

	t.Run("unauthenticated", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterOrgRoutes(api, &mockOrgService{})

		resp := api.Delete("/org/delete", map[string]any{"organization_name": "Acme Corp"})
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})
}
