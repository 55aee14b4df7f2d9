package domain

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// Supported grant types
const (
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeRefreshToken      = "refresh_token"
)

// Client represents a registered OAuth client
type Client struct {
	ID           ulid.ULID `json:"id"`
	ClientID     string    `json:"client_id"`
	SecretHash   string    `json:"-"` // empty for public clients
	Name         string    `json:"name"`
	RedirectURIs []string  `json:"redirect_uris"`
	GrantTypes   []string  `json:"grant_types"`
	PKCERequired bool      `json:"pkce_required"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Public reports whether the client holds no secret. Public clients must
// always complete PKCE.
func (c *Client) Public() bool {
	return c.SecretHash == ""
}

// AllowsGrantType reports whether the client may use the given grant type
func (c *Client) AllowsGrantType(grantType string) bool {
	for _, gt := range c.GrantTypes {
		if gt == grantType {
			return true
		}
	}
	return false
}

// AllowsRedirectURI matches the URI against the registered set. Exact string
// match only; anything looser opens the redirect to attacker-chosen targets.
func (c *Client) AllowsRedirectURI(uri string) bool {
	for _, registered := range c.RedirectURIs {
		if registered == uri {
			return true
		}
	}
	return false
}

// ClientRepository defines the interface for OAuth client data access
type ClientRepository interface {
	// Create creates a new OAuth client
	Create(ctx context.Context, client *Client) error

	// FindByClientID finds a client by its public client_id
	FindByClientID(ctx context.Context, clientID string) (*Client, error)

	// Update updates an existing client
	Update(ctx context.Context, client *Client) error

	// Delete deletes a client
	Delete(ctx context.Context, clientID string) error

	// List lists all registered clients
	List(ctx context.Context) ([]*Client, error)
}

// ClientCredentials is the raw client authentication material extracted at
// the HTTP boundary (POST body or Basic header)
type ClientCredentials struct {
	ClientID       string
	Secret         string
	SecretProvided bool
}

// ClientService defines the interface for client registry operations
type ClientService interface {
	// Authenticate verifies the presented credentials. Confidential clients
	// must present a matching secret; public clients authenticate with none
	// and a secret presented anyway is ignored.
	Authenticate(ctx context.Context, creds ClientCredentials) (*Client, error)

	// Create registers a new client and returns the plaintext secret exactly
	// once (empty for public clients)
	Create(ctx context.Context, name string, redirectURIs, grantTypes []string, public bool) (*Client, string, error)

	// RotateSecret replaces a confidential client's secret, returning the
	// new plaintext exactly once
	RotateSecret(ctx context.Context, clientID string) (string, error)

	// Get returns a client by its public id
	Get(ctx context.Context, clientID string) (*Client, error)

	// List lists all registered clients
	List(ctx context.Context) ([]*Client, error)

	// Delete removes a client
	Delete(ctx context.Context, clientID string) error
}
