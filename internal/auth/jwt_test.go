package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/tenantry/internal/auth"
)

func TestJWT_IssueAndValidateRoundTrip(t *testing.T) {
	t.Parallel()

	secret := "test-secret-key-very-long-and-secure"
	adminID := uuid.New()
	orgID := uuid.New()

	token, err := auth.IssueAccessToken(secret, adminID, orgID, 5*time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := auth.ValidateToken(secret, token)
	require.NoError(t, err)
	require.NotNil(t, claims)

	assert.Equal(t, adminID.String(), claims.Subject)
	assert.Equal(t, orgID.String(), claims.OrgID)
	assert.Equal(t, "tenantry", claims.Issuer)
	assert.NotNil(t, claims.IssuedAt)
	assert.NotNil(t, claims.ExpiresAt)
}

func TestJWT_ExpiredTokenRejected(t *testing.T) {
	t.Parallel()

	secret := "test-secret-key"

	// Issue a token that has already expired (negative TTL).
	token, err := auth.IssueAccessToken(secret, uuid.New(), uuid.New(), -1*time.Second)
	require.NoError(t, err)

	claims, err := auth.ValidateToken(secret, token)
	require.Error(t, err)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestJWT_InvalidSecretRejected(t *testing.T) {
	t.Parallel()

	token, err := auth.IssueAccessToken("correct-secret", uuid.New(), uuid.New(), 5*time.Minute)
	require.NoError(t, err)

	claims, err := auth.ValidateToken("wrong-secret", token)
	require.Error(t, err)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestJWT_MalformedTokenRejected(t *testing.T) {
	t.Parallel()

	claims, err := auth.ValidateToken("secret", "not.a.valid.jwt.token")
	require.Error(t, err)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestJWT_ForeignIssuerRejected(t *testing.T) {
	t.Parallel()

	secret := "shared-secret"
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
		OrgID: uuid.NewString(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	_, err = auth.ValidateToken(secret, token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestDecodeIdentity(t *testing.T) {
	t.Parallel()

	secret := "decode-identity-secret"

	t.Run("valid", func(t *testing.T) {
		t.Parallel()

		adminID, orgID := uuid.New(), uuid.New()
		token, err := auth.IssueAccessToken(secret, adminID, orgID, time.Minute)
		require.NoError(t, err)

		id, err := auth.DecodeIdentity(secret, token)
		require.NoError(t, err)
		assert.Equal(t, adminID, id.AdminID)
		assert.Equal(t, orgID, id.OrgID)
	})

	t.Run("non-uuid subject", func(t *testing.T) {
		t.Parallel()

		claims := auth.Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "not-a-uuid",
				Issuer:    "tenantry",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
			OrgID: uuid.NewString(),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)

		_, err = auth.DecodeIdentity(secret, token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})
}
