package domain

import (
	"context"
	"crypto/rsa"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/oklog/ulid/v2"
)

// Signing constants
const (
	RSAKeySize        = 2048
	JWKSCacheDuration = 5 * time.Minute
)

// Claims are the access token claims. Audience doubles the client_id claim
// for verifiers that only look at aud.
type Claims struct {
	jwt.RegisteredClaims
	ClientID string   `json:"client_id,omitempty"`
	Scope    string   `json:"scope,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

// Valid implements additional claim checks beyond signature verification
func (c *Claims) Valid() error {
	now := time.Now()
	if c.ExpiresAt != nil && c.ExpiresAt.Before(now) {
		return ErrTokenExpired
	}
	if c.IssuedAt != nil && c.IssuedAt.After(now) {
		return ErrInvalidClaims
	}
	if c.NotBefore != nil && c.NotBefore.After(now) {
		return ErrInvalidClaims
	}
	if c.Subject == "" {
		return ErrInvalidClaims
	}
	return nil
}

// Scopes returns the parsed scope claim
func (c *Claims) Scopes() []string {
	return ParseScopes(c.Scope)
}

// IDTokenClaims are the OpenID Connect ID token claims. Profile fields are
// gated by the granted scope at issuance time; the token is never persisted.
type IDTokenClaims struct {
	jwt.RegisteredClaims
	Name          string `json:"name,omitempty"`
	Email         string `json:"email,omitempty"`
	EmailVerified *bool  `json:"email_verified,omitempty"`
}

// SigningStrategy defines the interface for JWT signing backends. The
// private key never leaves the strategy; it is the only component permitted
// to produce signatures.
type SigningStrategy interface {
	// Sign signs the claims, embedding the current kid in the header
	Sign(claims jwt.Claims) (string, error)
	// GetPublicKey returns the active public key
	GetPublicKey() *rsa.PublicKey
	// GetKeyID returns the active key ID
	GetKeyID() string
	// PublicKeys returns all verification keys by kid, including the
	// previous key retained through rotation
	PublicKeys() map[string]*rsa.PublicKey
	// RotateKey rotates the key pair, retaining the prior public key for
	// verification until outstanding tokens expire
	RotateKey() error
	// GetLastRotation returns the last key rotation time
	GetLastRotation() time.Time
}

// JWTService defines the interface for token issuance and verification
type JWTService interface {
	// SignAccessToken issues a signed access token and returns it with its jti
	SignAccessToken(userID ulid.ULID, clientID string, scopes, roles []string) (string, string, error)

	// SignIDToken issues a signed ID token with profile claims gated by scope
	SignIDToken(user *User, clientID string, scopes []string) (string, error)

	// ValidateToken verifies signature and claims, resolving the key by kid
	ValidateToken(token string) (*Claims, error)

	// GetJWKS returns the public key set for /.well-known/jwks.json
	GetJWKS(ctx context.Context) (jwk.Set, error)

	// AccessTokenDuration returns the configured access token lifetime
	AccessTokenDuration() time.Duration
}

// LocalConfig holds the configuration for local key storage
type LocalConfig struct {
	KeyPath string
}

// VaultConfig holds the configuration for Vault transit signing
type VaultConfig struct {
	Address    string
	Token      string
	MountPath  string
	KeyName    string
	RetryCount int
	Timeout    time.Duration
}
