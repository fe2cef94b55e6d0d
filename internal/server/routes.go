package server

import (
	"github.com/danielgtaylor/huma/v2"

	v1 "github.com/gosuda/tenantry/internal/api/v1"
	"github.com/gosuda/tenantry/internal/orgs"
)

func registerPublicRoutes(api huma.API, svc *orgs.Service) {
	v1.RegisterAuthRoutes(api, svc)
	v1.RegisterPublicOrgRoutes(api, svc)
}

func registerAdminRoutes(api huma.API, svc *orgs.Service) {
	v1.RegisterOrgRoutes(api, svc)
}
