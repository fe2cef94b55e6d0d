package domain

import "errors"

// Sentinel errors for the domain layer.
var (
	ErrNotFound           = errors.New("domain: not found")
	ErrAlreadyExists      = errors.New("domain: already exists")
	ErrNameConflict       = errors.New("domain: organization name conflict")
	ErrCollectionConflict = errors.New("domain: collection name conflict")
	ErrForbidden          = errors.New("domain: forbidden")
	ErrStoreUnavailable   = errors.New("domain: store unavailable")
	ErrLocked             = errors.New("domain: operation in progress")
	ErrInvalidCredentials = errors.New("domain: invalid credentials")

	// ErrRenameUnsupported is returned by document stores without a native rename.
	ErrRenameUnsupported = errors.New("domain: native rename unsupported")
)

// IsKnown reports whether err carries one of the lifecycle error kinds, as
// opposed to an unclassified storage failure.
func IsKnown(err error) bool {
	for _, k := range []error{
		ErrNotFound, ErrAlreadyExists, ErrNameConflict, ErrCollectionConflict,
		ErrForbidden, ErrStoreUnavailable, ErrLocked, ErrInvalidCredentials,
	} {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}
