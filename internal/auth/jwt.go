package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "tenantry"

// Claims holds the JWT token payload: the administrator as subject and the
// organization it was scoped to when the token was issued.
type Claims struct {
	jwt.RegisteredClaims
	OrgID string `json:"org_id"`
}

// Identity is the decoded, validated content of a token.
type Identity struct {
	AdminID uuid.UUID
	OrgID   uuid.UUID
}

// ErrInvalidToken is returned when a JWT cannot be parsed or has expired.
var ErrInvalidToken = errors.New("auth: invalid or expired token")

// IssueAccessToken creates a signed HS256 token for adminID scoped to orgID.
func IssueAccessToken(secret string, adminID, orgID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   adminID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
		OrgID: orgID.String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("auth.IssueAccessToken: %w", err)
	}

	return signed, nil
}

// ValidateToken parses and validates a JWT token string. Returns the embedded claims.
func ValidateToken(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithIssuer(issuer))
	if err != nil {
		return nil, fmt.Errorf("auth.ValidateToken: %w", ErrInvalidToken)
	}

	if !token.Valid {
		return nil, fmt.Errorf("auth.ValidateToken: %w", ErrInvalidToken)
	}

	return claims, nil
}

// DecodeIdentity validates tokenString and parses its subject and organization.
func DecodeIdentity(secret, tokenString string) (*Identity, error) {
	claims, err := ValidateToken(secret, tokenString)
	if err != nil {
		return nil, err
	}

	adminID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("auth.DecodeIdentity: subject: %w", ErrInvalidToken)
	}

	orgID, err := uuid.Parse(claims.OrgID)
	if err != nil {
		return nil, fmt.Errorf("auth.DecodeIdentity: org_id: %w", ErrInvalidToken)
	}

	return &Identity{AdminID: adminID, OrgID: orgID}, nil
}
