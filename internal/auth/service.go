package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
)

// argon2id parameters following OWASP recommendations.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024 // 64 MiB
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16
)

// Service is the identity and access collaborator: it hashes and verifies
// administrator passwords and issues and decodes access tokens.
type Service struct {
	jwtSecret string
	accessTTL time.Duration
}

// NewService creates a new auth service.
func NewService(jwtSecret string, accessTTL time.Duration) *Service {
	return &Service{
		jwtSecret: jwtSecret,
		accessTTL: accessTTL,
	}
}

// HashPassword returns an opaque argon2id credential for password.
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return "", fmt.Errorf("auth.Service.HashPassword: %w", err)
	}
	return hash, nil
}

// VerifyPassword reports whether password matches the stored credential.
func (s *Service) VerifyPassword(password, credential string) bool {
	return verifyPassword(password, credential)
}

// IssueToken creates an access token for adminID scoped to orgID.
func (s *Service) IssueToken(adminID, orgID uuid.UUID) (string, error) {
	return IssueAccessToken(s.jwtSecret, adminID, orgID, s.accessTTL)
}

// DecodeToken validates token and returns the identity it carries.
func (s *Service) DecodeToken(token string) (*Identity, error) {
	return DecodeIdentity(s.jwtSecret, token)
}

// hashPassword generates an argon2id hash with a random salt.
// Format: hex(salt) + "$" + hex(hash)
func hashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(hash), nil
}

// verifyPassword checks a password against an argon2id hash.
func verifyPassword(password, encoded string) bool {
	saltHex, hashHex, ok := strings.Cut(encoded, "$")
	if !ok || saltHex == "" || hashHex == "" {
		return false
	}

	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}

	expectedHash, err := hex.DecodeString(hashHex)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return subtle.ConstantTimeCompare(computed, expectedHash) == 1
}
