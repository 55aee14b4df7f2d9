package domain

import (
	"context"

	"github.com/oklog/ulid/v2"
)

// ResponseTypeCode is the only supported response type
const ResponseTypeCode = "code"

// AuthorizeParams are the raw /oauth/authorize query parameters
type AuthorizeParams struct {
	ClientID            string
	RedirectURI         string
	ResponseType        string
	Scope               string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
}

// AuthorizeResult is the outcome of advancing an authorization request.
// Exactly one of the two fields is set: either the flow suspends at consent
// or it terminates with a redirect carrying the code.
type AuthorizeResult struct {
	// ConsentRequired signals the caller to send the browser to the consent page
	ConsentRequired bool
	// RedirectURL is the terminal redirect, set when consent already covers
	// the requested scopes
	RedirectURL string
}

// RedirectableError wraps an OAuth error that is safe to deliver as query
// parameters on the validated redirect URI. Errors raised before the client
// and redirect URI check out must never take this form.
type RedirectableError struct {
	Err         Error
	RedirectURI string
	State       string
}

func (e *RedirectableError) Error() string {
	return e.Err.Error()
}

func (e *RedirectableError) Unwrap() error {
	return e.Err
}

// AuthorizeService drives the /oauth/authorize state machine
type AuthorizeService interface {
	// Begin validates the request and persists the pending continuation.
	// Validation failures here must be rendered directly, never redirected:
	// the redirect target is not yet trusted.
	Begin(ctx context.Context, params AuthorizeParams) (*AuthorizationRequest, error)

	// Advance resumes a pending request for an authenticated user: either
	// the stored consent covers it and a code is issued, or the flow
	// suspends at the consent prompt
	Advance(ctx context.Context, request *AuthorizationRequest, userID ulid.ULID) (*AuthorizeResult, error)

	// Resume loads a pending request by its correlation token
	Resume(ctx context.Context, requestID string) (*AuthorizationRequest, error)

	// IssueCode mints the single-use authorization code for a resolved
	// request and returns the terminal redirect URL
	IssueCode(ctx context.Context, request *AuthorizationRequest, userID ulid.ULID) (string, error)
}
