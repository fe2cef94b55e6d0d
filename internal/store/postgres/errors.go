package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gosuda/tenantry/internal/domain"
)

const constraintOrgCollection = "organizations_collection_name_key"

// mapPostgresError maps driver errors onto domain sentinels while keeping the
// original error in the chain. Errors it does not recognise pass through.
func mapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		if pgErr.ConstraintName == constraintOrgCollection {
			return fmt.Errorf("%w: %w", domain.ErrCollectionConflict, err)
		}
		return fmt.Errorf("%w: %s: %w", domain.ErrAlreadyExists, pgErr.ConstraintName, err)

	case pgerrcode.DuplicateTable:
		return fmt.Errorf("%w: %w", domain.ErrAlreadyExists, err)

	case pgerrcode.UndefinedTable:
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)

	case pgerrcode.ConnectionException,
		pgerrcode.ConnectionDoesNotExist,
		pgerrcode.ConnectionFailure,
		pgerrcode.CannotConnectNow,
		pgerrcode.SQLClientUnableToEstablishSQLConnection,
		pgerrcode.AdminShutdown,
		pgerrcode.CrashShutdown,
		pgerrcode.TooManyConnections:
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)

	default:
		return fmt.Errorf("postgres error [%s]: %s (detail: %s): %w",
			pgErr.Code, pgErr.Message, pgErr.Detail, err)
	}
}
