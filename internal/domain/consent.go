package domain

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// Consent records which scopes a user has granted to a client. At most one
// active record exists per (user, client) pair; re-approval unions scopes.
type Consent struct {
	UserID        ulid.ULID `json:"user_id"`
	ClientID      string    `json:"client_id"`
	GrantedScopes []string  `json:"granted_scopes"`
	GrantedAt     time.Time `json:"granted_at"`
}

// Covers reports whether the requested scopes are already granted
func (c *Consent) Covers(requested []string) bool {
	return ScopesCovered(c.GrantedScopes, requested)
}

// ConsentRepository defines the interface for consent data access
type ConsentRepository interface {
	// Find returns the consent record for the user/client pair, or
	// ErrConsentNotFound
	Find(ctx context.Context, userID ulid.ULID, clientID string) (*Consent, error)

	// Upsert creates or replaces the consent record for the pair
	Upsert(ctx context.Context, consent *Consent) error

	// Delete removes the consent record for the pair
	Delete(ctx context.Context, userID ulid.ULID, clientID string) error
}

// ErrConsentNotFound is returned when no consent exists for the pair.
// Not an OAuth wire error; callers fall through to the consent prompt.
var ErrConsentNotFound = NewError(CodeServerError, "consent not found")

// ConsentPrompt is the data the external consent page needs to render
type ConsentPrompt struct {
	RequestID   string        `json:"request_id"`
	ClientID    string        `json:"client_id"`
	ClientName  string        `json:"client_name"`
	RedirectURI string        `json:"redirect_uri"`
	Scopes      []ScopeDetail `json:"scopes"`
}

// ConsentService defines the interface for the consent surface
type ConsentService interface {
	// Prompt returns rendering data for a pending authorization request
	Prompt(ctx context.Context, requestID string) (*ConsentPrompt, error)

	// Decide records approval or denial and returns the redirect URL the
	// consent page must send the browser to
	Decide(ctx context.Context, requestID string, userID ulid.ULID, approved bool) (string, error)
}
