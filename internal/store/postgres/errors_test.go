package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/tenantry/internal/domain"
)

func TestMapPostgresError(t *testing.T) {
	t.Parallel()

	plain := errors.New("plain failure")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "duplicate organization name",
			err:  &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "organizations_name_key"},
			want: domain.ErrAlreadyExists,
		},
		{
			name: "duplicate collection name",
			err:  &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: constraintOrgCollection},
			want: domain.ErrCollectionConflict,
		},
		{
			name: "duplicate email",
			err:  fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "administrators_email_key"}),
			want: domain.ErrAlreadyExists,
		},
		{
			name: "table exists",
			err:  &pgconn.PgError{Code: pgerrcode.DuplicateTable},
			want: domain.ErrAlreadyExists,
		},
		{
			name: "table missing",
			err:  &pgconn.PgError{Code: pgerrcode.UndefinedTable},
			want: domain.ErrNotFound,
		},
		{
			name: "server shutting down",
			err:  &pgconn.PgError{Code: pgerrcode.AdminShutdown},
			want: domain.ErrStoreUnavailable,
		},
		{
			name: "too many connections",
			err:  &pgconn.PgError{Code: pgerrcode.TooManyConnections},
			want: domain.ErrStoreUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := mapPostgresError(tt.err)
			require.Error(t, got)
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.err, "original error must stay in the chain")
		})
	}

	t.Run("nil", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, mapPostgresError(nil))
	})

	t.Run("non-postgres error passes through", func(t *testing.T) {
		t.Parallel()
		assert.Same(t, plain, mapPostgresError(plain))
	})

	t.Run("unknown code keeps details", func(t *testing.T) {
		t.Parallel()

		err := mapPostgresError(&pgconn.PgError{Code: pgerrcode.CheckViolation, Message: "bad kind"})
		assert.False(t, domain.IsKnown(err))
		assert.Contains(t, err.Error(), "bad kind")
	})
}

func TestLoadMigrations(t *testing.T) {
	t.Parallel()

	migrations, err := loadMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	for i, m := range migrations {
		assert.Equal(t, i+1, m.version, "migrations must be contiguous from 1")
		assert.NotEmpty(t, m.content, m.name)
	}
	assert.Contains(t, migrations[0].content, constraintOrgCollection)
}
