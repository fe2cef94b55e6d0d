package v1

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/tenantry/internal/domain"
)

// orgError maps lifecycle failures to HTTP errors. Storage detail never
// reaches the client; it is logged instead.
func orgError(op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return huma.Error404NotFound("Organization not found")
	case errors.Is(err, domain.ErrForbidden):
		return huma.Error403Forbidden("Not authorized to delete")
	case errors.Is(err, domain.ErrNameConflict):
		return huma.Error409Conflict("Organization name conflict")
	case errors.Is(err, domain.ErrCollectionConflict):
		return huma.Error409Conflict("Organization name collides with an existing organization")
	case errors.Is(err, domain.ErrLocked):
		return huma.Error409Conflict("Organization is being modified, retry later")
	case errors.Is(err, domain.ErrAlreadyExists):
		return huma.Error409Conflict("Email already in use")
	case errors.Is(err, domain.ErrStoreUnavailable):
		log.Error().Err(err).Str("op", op).Msg("storage unavailable")
		return huma.Error503ServiceUnavailable("Storage unavailable")
	default:
		log.Error().Err(err).Str("op", op).Msg("request failed")
		return huma.Error500InternalServerError("Internal server error")
	}
}
