package domain

import "fmt"

// Error is the domain error contract. Code carries the OAuth 2.1 wire code
// so the HTTP layer can project it straight into an error response.
type Error interface {
	error
	GetCode() string
	GetMessage() string
}

type oauthError struct {
	code    string
	message string
}

// NewError creates a new domain error with the given OAuth code and message
func NewError(code, message string) Error {
	return &oauthError{code: code, message: message}
}

func (e *oauthError) Error() string {
	return e.message
}

func (e *oauthError) GetCode() string {
	return e.code
}

func (e *oauthError) GetMessage() string {
	return e.message
}

// OAuth 2.1 error codes
const (
	CodeInvalidRequest          = "invalid_request"
	CodeInvalidClient           = "invalid_client"
	CodeInvalidGrant            = "invalid_grant"
	CodeInvalidScope            = "invalid_scope"
	CodeUnauthorizedClient      = "unauthorized_client"
	CodeUnsupportedGrantType    = "unsupported_grant_type"
	CodeUnsupportedResponseType = "unsupported_response_type"
	CodeAccessDenied            = "access_denied"
	CodeInvalidToken            = "invalid_token"
	CodeServerError             = "server_error"
)

var (
	// ErrInvalidRequest is returned when the request is malformed or missing parameters
	ErrInvalidRequest = NewError(CodeInvalidRequest, "the request is missing a required parameter or is otherwise malformed")

	// ErrInvalidClient is returned when client authentication fails
	ErrInvalidClient = NewError(CodeInvalidClient, "client authentication failed")

	// ErrClientNotFound is returned when the client does not exist
	ErrClientNotFound = NewError(CodeInvalidClient, "client not found")

	// ErrDuplicateClientCredentials is returned when body and Basic auth credentials disagree
	ErrDuplicateClientCredentials = NewError(CodeInvalidRequest, "client credentials supplied through multiple mechanisms disagree")

	// ErrInvalidRedirectURI is returned when the redirect URI is not registered for the client
	ErrInvalidRedirectURI = NewError(CodeInvalidRequest, "redirect_uri is not registered for this client")

	// ErrUnsupportedResponseType is returned for any response_type other than "code"
	ErrUnsupportedResponseType = NewError(CodeUnsupportedResponseType, "only the code response type is supported")

	// ErrUnsupportedGrantType is returned for any grant type outside the supported set
	ErrUnsupportedGrantType = NewError(CodeUnsupportedGrantType, "unsupported grant type")

	// ErrUnauthorizedClient is returned when the client may not use the requested grant
	ErrUnauthorizedClient = NewError(CodeUnauthorizedClient, "client is not authorized for this grant type")

	// ErrCodeChallengeRequired is returned when a public client omits the PKCE challenge
	ErrCodeChallengeRequired = NewError(CodeInvalidRequest, "code_challenge is required for this client")

	// ErrInvalidCodeChallengeMethod is returned for any challenge method other than S256
	ErrInvalidCodeChallengeMethod = NewError(CodeInvalidRequest, "only the S256 code_challenge_method is supported")

	// ErrPKCEVerificationFailed is returned when the code_verifier does not match the stored challenge
	ErrPKCEVerificationFailed = NewError(CodeInvalidGrant, "PKCE verification failed")

	// ErrInvalidAuthorizationCode is returned when the code is unknown or expired
	ErrInvalidAuthorizationCode = NewError(CodeInvalidGrant, "authorization code is invalid or expired")

	// ErrAuthorizationCodeReplayed is returned when a consumed code is presented again
	ErrAuthorizationCodeReplayed = NewError(CodeInvalidGrant, "authorization code has already been redeemed")

	// ErrInvalidRefreshToken is returned when the refresh token is unknown or expired
	ErrInvalidRefreshToken = NewError(CodeInvalidGrant, "refresh token is invalid or expired")

	// ErrRefreshTokenReused is returned when a revoked refresh token is presented again
	ErrRefreshTokenReused = NewError(CodeInvalidGrant, "refresh token has been revoked")

	// ErrInvalidScope is returned when the requested scope exceeds what was granted
	ErrInvalidScope = NewError(CodeInvalidScope, "requested scope exceeds the granted scope")

	// ErrAccessDenied is returned when the resource owner declines consent
	ErrAccessDenied = NewError(CodeAccessDenied, "the resource owner denied the request")

	// ErrAuthorizationRequestNotFound is returned when the pending request is unknown or expired
	ErrAuthorizationRequestNotFound = NewError(CodeInvalidRequest, "authorization request is unknown or expired")

	// ErrUserNotFound is returned when the subject cannot be resolved
	ErrUserNotFound = NewError(CodeServerError, "user not found")

	// ErrUnauthorized is returned when no valid credentials accompany the request
	ErrUnauthorized = NewError(CodeInvalidToken, "missing or invalid credentials")

	// ErrForbidden is returned when the caller lacks the required role
	ErrForbidden = NewError("forbidden", "insufficient permissions")

	// ErrInvalidToken is returned when a bearer token fails verification
	ErrInvalidToken = NewError(CodeInvalidToken, "token is invalid")

	// ErrTokenExpired is returned when a bearer token is past its expiry
	ErrTokenExpired = NewError(CodeInvalidToken, "token has expired")

	// ErrInvalidClaims is returned when token claims fail validation
	ErrInvalidClaims = NewError(CodeInvalidToken, "token claims are invalid")

	// ErrInvalidSigningMethod is returned when a token is signed with an unexpected algorithm
	ErrInvalidSigningMethod = NewError(CodeInvalidToken, "unexpected token signing method")

	// ErrInvalidSignature is returned when a produced signature fails verification
	ErrInvalidSignature = NewError(CodeServerError, "invalid token signature")

	// ErrTokenGeneration is returned when signing fails
	ErrTokenGeneration = NewError(CodeServerError, "failed to generate token")

	// ErrInvalidKeyConfig is returned when signing key material cannot be loaded
	ErrInvalidKeyConfig = NewError(CodeServerError, "invalid signing key configuration")

	// ErrDatabaseQuery is returned on unexpected persistence failures
	ErrDatabaseQuery = NewError(CodeServerError, "database query failed")

	// ErrInternal is returned on unexpected internal failures
	ErrInternal = NewError(CodeServerError, "internal server error")
)

// NewJWTError wraps a signing error with the failing operation
func NewJWTError(op string, err error) error {
	return fmt.Errorf("jwt %s: %w", op, err)
}
