package domain

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// Default token lifetimes
const (
	DefaultAccessTokenDuration  = time.Hour
	DefaultRefreshTokenDuration = 30 * 24 * time.Hour
)

// RefreshToken is the persisted record behind an opaque refresh token. Only
// the SHA-256 digest of the presented value is stored. Rotation links
// successors through RotatedFrom; Code ties the whole family back to the
// authorization code that minted it so code replay can revoke everything.
type RefreshToken struct {
	ID          ulid.ULID  `json:"id"`
	TokenHash   string     `json:"-"`
	UserID      ulid.ULID  `json:"user_id"`
	ClientID    string     `json:"client_id"`
	Scopes      []string   `json:"scopes"`
	Code        string     `json:"-"`
	RotatedFrom *ulid.ULID `json:"rotated_from,omitempty"`
	Revoked     bool       `json:"revoked"`
	ExpiresAt   time.Time  `json:"expires_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Expired reports whether the refresh token is past its expiry
func (t *RefreshToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// TokenResponse is the token endpoint response body
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// AuthorizationCodeGrant is the validated shape of an authorization_code
// token request
type AuthorizationCodeGrant struct {
	Credentials  ClientCredentials
	Code         string
	RedirectURI  string
	CodeVerifier string
}

// RefreshTokenGrant is the validated shape of a refresh_token token request
type RefreshTokenGrant struct {
	Credentials  ClientCredentials
	RefreshToken string
	Scope        string // optional narrowing, never widening
}

// TokenRepository defines the interface for refresh token data access.
// RedeemCode and Rotate are the two transitions the concurrency model cares
// about: both are single conditional updates so two racing requests cannot
// both succeed.
type TokenRepository interface {
	// RedeemCode atomically marks the authorization code consumed and stores
	// the refresh token minted from it in the same transaction. Returns
	// ErrAuthorizationCodeReplayed when the conditional consume finds the
	// code already consumed, ErrInvalidAuthorizationCode when it is absent
	// or expired.
	RedeemCode(ctx context.Context, code string, token *RefreshToken) error

	// FindByTokenHash returns the refresh token record for the digest
	FindByTokenHash(ctx context.Context, hash string) (*RefreshToken, error)

	// Rotate revokes the current token and stores its successor in one
	// transaction. Returns ErrRefreshTokenReused when the conditional revoke
	// finds the token already revoked.
	Rotate(ctx context.Context, currentID ulid.ULID, successor *RefreshToken) error

	// RevokeFamily revokes every token reachable from the given one through
	// the rotation chain, in both directions. Returns the number revoked.
	RevokeFamily(ctx context.Context, id ulid.ULID) (int64, error)

	// RevokeByCode revokes every token minted from the given authorization
	// code. Used when a consumed code is replayed.
	RevokeByCode(ctx context.Context, code string) (int64, error)

	// DeleteExpired removes tokens past their expiry, returning the number removed
	DeleteExpired(ctx context.Context) (int64, error)
}

// TokenService defines the interface for the token endpoint grants
type TokenService interface {
	// Exchange redeems an authorization code for tokens
	Exchange(ctx context.Context, grant AuthorizationCodeGrant) (*TokenResponse, error)

	// Refresh rotates a refresh token and issues a new access token
	Refresh(ctx context.Context, grant RefreshTokenGrant) (*TokenResponse, error)
}
