package domain

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// AuthorizationCodeTTL bounds the authorize-to-token window. Deliberately
// short; expiry is the only garbage-collection signal.
const AuthorizationCodeTTL = 60 * time.Second

// AuthorizationCode is a single-use credential binding a client, user,
// scope, redirect URI and PKCE challenge for the duration of the exchange
type AuthorizationCode struct {
	Code                string    `json:"code"`
	ClientID            string    `json:"client_id"`
	UserID              ulid.ULID `json:"user_id"`
	RedirectURI         string    `json:"redirect_uri"`
	Scopes              []string  `json:"scopes"`
	CodeChallenge       string    `json:"code_challenge"`
	CodeChallengeMethod string    `json:"code_challenge_method"`
	Consumed            bool      `json:"consumed"`
	ExpiresAt           time.Time `json:"expires_at"`
	CreatedAt           time.Time `json:"created_at"`
}

// Expired reports whether the code is past its expiry
func (c *AuthorizationCode) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// AuthorizationCodeRepository defines the interface for authorization code
// data access. Consumption is delegated to TokenRepository.RedeemCode so the
// consumed flip and the refresh token insert share one transaction.
type AuthorizationCodeRepository interface {
	// Create stores a new authorization code
	Create(ctx context.Context, code *AuthorizationCode) error

	// Get returns the code record regardless of consumption state
	Get(ctx context.Context, code string) (*AuthorizationCode, error)

	// DeleteExpired removes codes past their expiry, returning the number removed
	DeleteExpired(ctx context.Context) (int64, error)
}
