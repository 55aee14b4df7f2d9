package domain

import "context"

// OIDCService defines the interface for the metadata surface
type OIDCService interface {
	// GetUserInfo returns the profile claims for the subject, filtered by
	// the scopes granted to the presenting token
	GetUserInfo(ctx context.Context, claims *Claims) (map[string]interface{}, error)

	// GetOpenIDConfiguration returns the discovery document
	GetOpenIDConfiguration(ctx context.Context) map[string]interface{}
}
