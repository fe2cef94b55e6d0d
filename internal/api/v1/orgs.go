package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/tenantry/internal/domain"
	"github.com/gosuda/tenantry/internal/orgs"
	"github.com/gosuda/tenantry/internal/server/middleware"
)

type OrgBody struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"organization_name"`
	CollectionName string    `json:"collection_name"`
	AdminID        uuid.UUID `json:"admin_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func orgBody(org *domain.Organization) OrgBody {
	return OrgBody{
		ID:             org.ID,
		Name:           org.Name,
		CollectionName: org.CollectionName,
		AdminID:        org.AdminID,
		CreatedAt:      org.CreatedAt,
		UpdatedAt:      org.UpdatedAt,
	}
}

type CreateOrgInput struct {
	Body struct {
		Name     string `json:"organization_name" minLength:"2" maxLength:"50" doc:"Display name"`
		Email    string `json:"email" format:"email" maxLength:"255" doc:"Administrator email"`
		Password string `json:"password" minLength:"8" maxLength:"128" doc:"Administrator password"` //nolint:gosec // G117: credential DTO
	}
}

type OrgOutput struct {
	Body OrgBody
}

type GetOrgInput struct {
	Name string `query:"organization_name" required:"true" minLength:"1" maxLength:"50" doc:"Display name"`
}

type UpdateOrgInput struct {
	Body struct {
		Name     string  `json:"organization_name" minLength:"2" maxLength:"50" doc:"Current display name"`
		NewName  *string `json:"new_organization_name,omitempty" required:"false" minLength:"2" maxLength:"50" doc:"New display name"`
		Email    *string `json:"email,omitempty" required:"false" format:"email" maxLength:"255" doc:"New administrator email"`
		Password *string `json:"password,omitempty" required:"false" minLength:"8" maxLength:"128" doc:"New administrator password"` //nolint:gosec // G117: credential DTO
	}
}

type UpdateOrgOutput struct {
	Body struct {
		Detail       string  `json:"detail"`
		Organization OrgBody `json:"organization"`
		TokenBody
	}
}

type DeleteOrgInput struct {
	Body struct {
		Name string `json:"organization_name" minLength:"2" maxLength:"50" doc:"Display name"`
	}
}

type DetailOutput struct {
	Body struct {
		Detail string `json:"detail"`
	}
}

// RegisterPublicOrgRoutes mounts the routes that need no credentials.
func RegisterPublicOrgRoutes(api huma.API, svc OrgService) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-organization",
		Method:        http.MethodPost,
		Path:          "/org/create",
		Summary:       "Create an organization with its administrator",
		Tags:          []string{"Organizations"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateOrgInput) (*OrgOutput, error) {
		org, err := svc.Create(ctx, input.Body.Name, input.Body.Email, input.Body.Password)
		if err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				return nil, huma.Error400BadRequest("Organization already exists")
			}
			return nil, orgError("create", err)
		}
		return &OrgOutput{Body: orgBody(org)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-organization",
		Method:      http.MethodGet,
		Path:        "/org/get",
		Summary:     "Get an organization by name",
		Tags:        []string{"Organizations"},
	}, func(ctx context.Context, input *GetOrgInput) (*OrgOutput, error) {
		org, err := svc.Get(ctx, input.Name)
		if err != nil {
			return nil, orgError("get", err)
		}
		return &OrgOutput{Body: orgBody(org)}, nil
	})
}

// RegisterOrgRoutes mounts the routes that require an authenticated
// administrator.
func RegisterOrgRoutes(api huma.API, svc OrgService) {
	huma.Register(api, huma.Operation{
		OperationID: "update-organization",
		Method:      http.MethodPut,
		Path:        "/org/update",
		Summary:     "Rename an organization or change its administrator credentials",
		Tags:        []string{"Organizations"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, func(ctx context.Context, input *UpdateOrgInput) (*UpdateOrgOutput, error) {
		adminID, ok := middleware.AdminIDFromContext(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("authentication required")
		}
		orgID, _ := middleware.OrgIDFromContext(ctx)

		current, err := svc.Get(ctx, input.Body.Name)
		if err != nil {
			return nil, orgError("update", err)
		}
		if current.ID != orgID {
			return nil, huma.Error403Forbidden("Not authorized to update")
		}

		org, err := svc.Update(ctx, input.Body.Name, orgs.UpdateParams{
			NewName:  input.Body.NewName,
			Email:    input.Body.Email,
			Password: input.Body.Password,
		})
		if err != nil {
			return nil, orgError("update", err)
		}

		token, err := svc.IssueToken(ctx, adminID)
		if err != nil {
			return nil, orgError("update", err)
		}

		out := &UpdateOrgOutput{}
		out.Body.Detail = "Organization updated successfully"
		out.Body.Organization = orgBody(org)
		out.Body.AccessToken = token
		out.Body.TokenType = "bearer"
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-organization",
		Method:      http.MethodDelete,
		Path:        "/org/delete",
		Summary:     "Delete an organization with its data and administrators",
		Tags:        []string{"Organizations"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, func(ctx context.Context, input *DeleteOrgInput) (*DetailOutput, error) {
		adminID, ok := middleware.AdminIDFromContext(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("authentication required")
		}

		if err := svc.Delete(ctx, input.Body.Name, adminID); err != nil {
			return nil, orgError("delete", err)
		}

		out := &DetailOutput{}
		out.Body.Detail = "Organization deleted successfully"
		return out, nil
	})
}
