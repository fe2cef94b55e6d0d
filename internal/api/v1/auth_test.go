package v1_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/gosuda/tenantry/internal/api/v1"
	"github.com/gosuda/tenantry/internal/domain"
)

// ---------------------------------------------------------------------------
// POST /admin/login
// ---------------------------------------------------------------------------

func TestLogin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       map[string]any
		loginErr   error
		wantStatus int
	}{
		{
			name:       "happy_path",
			body:       map[string]any{"email": "owner@acme.io", "password": "secretpw1"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "invalid_credentials",
			body:       map[string]any{"email": "owner@acme.io", "password": "wrong"},
			loginErr:   fmt.Errorf("orgs.Service.Login: %w", domain.ErrInvalidCredentials),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "store_unavailable",
			body:       map[string]any{"email": "owner@acme.io", "password": "secretpw1"},
			loginErr:   fmt.Errorf("orgs.Service.Login: %w", domain.ErrStoreUnavailable),
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "unexpected_error",
			body:       map[string]any{"email": "owner@acme.io", "password": "secretpw1"},
			loginErr:   errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "malformed_email",
			body:       map[string]any{"email": "not-an-email", "password": "secretpw1"},
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, api := humatest.New(t)
			svc := &mockAuthService{
				loginFunc: func(_ context.Context, email, password string) (string, error) {
					assert.Equal(t, tt.body["email"], email)
					assert.Equal(t, tt.body["password"], password)
					if tt.loginErr != nil {
						return "", tt.loginErr
					}
					return "access-tok", nil
				},
			}
			v1.RegisterAuthRoutes(api, svc)

			resp := api.Post("/admin/login", tt.body)
			require.Equal(t, tt.wantStatus, resp.Code, resp.Body.String())

			if tt.wantStatus != http.StatusOK {
				assert.NotContains(t, resp.Body.String(), "boom", "internal detail must not leak")
				return
			}

			var body v1.TokenBody
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, "access-tok", body.AccessToken)
			assert.Equal(t, "bearer", body.TokenType)
		})
	}
}
