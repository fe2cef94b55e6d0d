package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/tenantry/internal/auth"
	"github.com/gosuda/tenantry/internal/domain"
)

const unauthorizedBody = `{"title":"Unauthorized","status":401,"detail":"could not validate credentials"}`

// TokenDecoder turns a bearer token into the identity it was issued for.
type TokenDecoder interface {
	DecodeToken(token string) (*auth.Identity, error)
}

// AdministratorLookup loads an administrator by id; nil when absent.
type AdministratorLookup interface {
	Administrator(ctx context.Context, id uuid.UUID) (*domain.Administrator, error)
}

// Auth requires a bearer token whose administrator still exists and still
// belongs to the organization named in the token.
func Auth(tokens TokenDecoder, admins AdministratorLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := extractBearer(r)
			if tok == "" {
				unauthorized(w)
				return
			}

			identity, err := tokens.DecodeToken(tok)
			if err != nil {
				unauthorized(w)
				return
			}

			admin, err := admins.Administrator(r.Context(), identity.AdminID)
			if err != nil {
				log.Error().Err(err).Str("admin_id", identity.AdminID.String()).Msg("auth: failed to load administrator")
				http.Error(w, `{"title":"Service Unavailable","status":503,"detail":"storage unavailable"}`, http.StatusServiceUnavailable)
				return
			}
			if admin == nil || !admin.BelongsTo(identity.OrgID) {
				unauthorized(w)
				return
			}

			ctx := WithIdentity(r.Context(), admin.ID, identity.OrgID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	http.Error(w, unauthorizedBody, http.StatusUnauthorized)
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
