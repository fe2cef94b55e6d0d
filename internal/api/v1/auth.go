package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/tenantry/internal/domain"
)

type LoginInput struct {
	Body struct {
		Email    string `json:"email" format:"email" maxLength:"255" doc:"Administrator email"`
		Password string `json:"password" minLength:"1" maxLength:"128" doc:"Password"` //nolint:gosec // G117: login credential DTO
	}
}

type TokenBody struct {
	AccessToken string `json:"access_token"` //nolint:gosec // G117: auth response DTO
	TokenType   string `json:"token_type"`
}

type LoginOutput struct {
	Body TokenBody
}

func RegisterAuthRoutes(api huma.API, authSvc AuthService) {
	huma.Register(api, huma.Operation{
		OperationID: "admin-login",
		Method:      http.MethodPost,
		Path:        "/admin/login",
		Summary:     "Login as an organization administrator",
		Tags:        []string{"Admin"},
	}, func(ctx context.Context, input *LoginInput) (*LoginOutput, error) {
		token, err := authSvc.Login(ctx, input.Body.Email, input.Body.Password)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidCredentials) {
				return nil, huma.Error401Unauthorized("Invalid credentials")
			}
			return nil, orgError("login", err)
		}

		out := &LoginOutput{}
		out.Body.AccessToken = token
		out.Body.TokenType = "bearer"
		return out, nil
	})
}
