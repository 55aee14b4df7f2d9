package domain

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// AuthorizationRequestTTL bounds how long a pending authorization request
// survives the login/consent round trips
const AuthorizationRequestTTL = 10 * time.Minute

// AuthorizationRequest is the persisted continuation of an in-flight
// /oauth/authorize request. The flow suspends at login and consent; the
// request ID is the correlation token round-tripped through those redirects.
type AuthorizationRequest struct {
	ID                  ulid.ULID  `json:"id"`
	ClientID            string     `json:"client_id"`
	RedirectURI         string     `json:"redirect_uri"`
	Scopes              []string   `json:"scopes"`
	State               string     `json:"state"`
	CodeChallenge       string     `json:"code_challenge"`
	CodeChallengeMethod string     `json:"code_challenge_method"`
	UserID              *ulid.ULID `json:"user_id,omitempty"` // set once the user authenticates
	CreatedAt           time.Time  `json:"created_at"`
	ExpiresAt           time.Time  `json:"expires_at"`
}

// Expired reports whether the pending request is past its expiry
func (r *AuthorizationRequest) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// AuthorizationRequestRepository defines the interface for pending
// authorization request data access
type AuthorizationRequestRepository interface {
	// Create stores a new pending request
	Create(ctx context.Context, request *AuthorizationRequest) error

	// Find returns the pending request by its correlation token
	Find(ctx context.Context, id ulid.ULID) (*AuthorizationRequest, error)

	// AttachUser binds the authenticated user to the pending request
	AttachUser(ctx context.Context, id ulid.ULID, userID ulid.ULID) error

	// Delete removes a pending request once it resolves
	Delete(ctx context.Context, id ulid.ULID) error

	// DeleteExpired removes requests past their expiry, returning the number removed
	DeleteExpired(ctx context.Context) (int64, error)
}
