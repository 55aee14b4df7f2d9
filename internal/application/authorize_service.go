package application

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/ipede/authorization-server/internal/domain"
	"github.com/ipede/authorization-server/internal/infrastructure/secret"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

type AuthorizeService struct {
	clientRepo  domain.ClientRepository
	requestRepo domain.AuthorizationRequestRepository
	codeRepo    domain.AuthorizationCodeRepository
	consentRepo domain.ConsentRepository
	logger      *zap.Logger
}

func NewAuthorizeService(
	clientRepo domain.ClientRepository,
	requestRepo domain.AuthorizationRequestRepository,
	codeRepo domain.AuthorizationCodeRepository,
	consentRepo domain.ConsentRepository,
	logger *zap.Logger,
) *AuthorizeService {
	return &AuthorizeService{
		clientRepo:  clientRepo,
		requestRepo: requestRepo,
		codeRepo:    codeRepo,
		consentRepo: consentRepo,
		logger:      logger,
	}
}

// Begin validates an incoming authorization request and persists it as a
// pending continuation. Unknown client, unregistered redirect URI, bad
// response type and missing PKCE all fail here before any redirect exists;
// failures past that point come back wrapped as RedirectableError so the
// handler can deliver them on the now-trusted redirect URI.
func (s *AuthorizeService) Begin(ctx context.Context, params domain.AuthorizeParams) (*domain.AuthorizationRequest, error) {
	if params.ClientID == "" || params.RedirectURI == "" {
		return nil, domain.ErrInvalidRequest
	}

	client, err := s.clientRepo.FindByClientID(ctx, params.ClientID)
	if err != nil {
		return nil, err
	}

	if !client.AllowsRedirectURI(params.RedirectURI) {
		s.logger.Warn("authorization request with unregistered redirect URI",
			zap.String("clientId", params.ClientID),
			zap.String("redirectUri", params.RedirectURI))
		return nil, domain.ErrInvalidRedirectURI
	}

	if params.ResponseType != domain.ResponseTypeCode {
		return nil, domain.ErrUnsupportedResponseType
	}

	if params.CodeChallengeMethod != "" && params.CodeChallengeMethod != domain.CodeChallengeMethodS256 {
		return nil, domain.ErrInvalidCodeChallengeMethod
	}
	if params.CodeChallenge != "" && params.CodeChallengeMethod == "" {
		return nil, domain.ErrInvalidCodeChallengeMethod
	}
	if (client.Public() || client.PKCERequired) && params.CodeChallenge == "" {
		return nil, domain.ErrCodeChallengeRequired
	}

	// Everything below is deliverable on the redirect URI
	if !client.AllowsGrantType(domain.GrantTypeAuthorizationCode) {
		return nil, s.redirectable(domain.ErrUnauthorizedClient, params)
	}

	scopes := domain.ParseScopes(params.Scope)
	for _, scope := range scopes {
		if !domain.KnownScope(scope) {
			return nil, s.redirectable(domain.ErrInvalidScope, params)
		}
	}

	now := time.Now()
	request := &domain.AuthorizationRequest{
		ID:                  ulid.Make(),
		ClientID:            params.ClientID,
		RedirectURI:         params.RedirectURI,
		Scopes:              scopes,
		State:               params.State,
		CodeChallenge:       params.CodeChallenge,
		CodeChallengeMethod: params.CodeChallengeMethod,
		CreatedAt:           now,
		ExpiresAt:           now.Add(domain.AuthorizationRequestTTL),
	}

	if err := s.requestRepo.Create(ctx, request); err != nil {
		s.logger.Error("failed to persist authorization request", zap.Error(err))
		return nil, s.redirectable(domain.ErrInternal, params)
	}

	return request, nil
}

// Advance resumes a pending request for the authenticated user. When the
// stored consent already covers the requested scopes the flow skips the
// prompt and terminates with a code redirect.
func (s *AuthorizeService) Advance(ctx context.Context, request *domain.AuthorizationRequest, userID ulid.ULID) (*domain.AuthorizeResult, error) {
	if request.Expired(time.Now()) {
		return nil, domain.ErrAuthorizationRequestNotFound
	}

	if request.UserID == nil || *request.UserID != userID {
		if err := s.requestRepo.AttachUser(ctx, request.ID, userID); err != nil {
			return nil, err
		}
		request.UserID = &userID
	}

	consent, err := s.consentRepo.Find(ctx, userID, request.ClientID)
	if err != nil {
		if errors.Is(err, domain.ErrConsentNotFound) {
			return &domain.AuthorizeResult{ConsentRequired: true}, nil
		}
		return nil, err
	}
	if !consent.Covers(request.Scopes) {
		return &domain.AuthorizeResult{ConsentRequired: true}, nil
	}

	redirectURL, err := s.IssueCode(ctx, request, userID)
	if err != nil {
		return nil, err
	}
	return &domain.AuthorizeResult{RedirectURL: redirectURL}, nil
}

// Resume loads a pending request by its correlation token
func (s *AuthorizeService) Resume(ctx context.Context, requestID string) (*domain.AuthorizationRequest, error) {
	id, err := domain.ParseULID(requestID)
	if err != nil {
		return nil, domain.ErrAuthorizationRequestNotFound
	}

	request, err := s.requestRepo.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Expired(time.Now()) {
		return nil, domain.ErrAuthorizationRequestNotFound
	}
	return request, nil
}

// IssueCode mints the single-use authorization code, retires the pending
// request and returns the terminal redirect URL with code and state.
func (s *AuthorizeService) IssueCode(ctx context.Context, request *domain.AuthorizationRequest, userID ulid.ULID) (string, error) {
	value, err := secret.Generate()
	if err != nil {
		s.logger.Error("failed to generate authorization code", zap.Error(err))
		return "", domain.ErrInternal
	}

	now := time.Now()
	code := &domain.AuthorizationCode{
		Code:                value,
		ClientID:            request.ClientID,
		UserID:              userID,
		RedirectURI:         request.RedirectURI,
		Scopes:              request.Scopes,
		CodeChallenge:       request.CodeChallenge,
		CodeChallengeMethod: request.CodeChallengeMethod,
		ExpiresAt:           now.Add(domain.AuthorizationCodeTTL),
		CreatedAt:           now,
	}

	if err := s.codeRepo.Create(ctx, code); err != nil {
		s.logger.Error("failed to store authorization code", zap.Error(err))
		return "", domain.ErrInternal
	}

	if err := s.requestRepo.Delete(ctx, request.ID); err != nil {
		s.logger.Warn("failed to delete resolved authorization request",
			zap.String("requestId", request.ID.String()), zap.Error(err))
	}

	return RedirectWithCode(request.RedirectURI, value, request.State), nil
}

func (s *AuthorizeService) redirectable(err domain.Error, params domain.AuthorizeParams) error {
	return &domain.RedirectableError{
		Err:         err,
		RedirectURI: params.RedirectURI,
		State:       params.State,
	}
}

// RedirectWithCode builds the terminal success redirect. State is echoed
// verbatim when present, never synthesized.
func RedirectWithCode(redirectURI, code, state string) string {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return redirectURI
	}
	q := u.Query()
	q.Set("code", code)
	if state != "" {
		q.Set("state", state)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// RedirectWithError builds an error redirect carrying the OAuth error code
func RedirectWithError(redirectURI string, err domain.Error, state string) string {
	u, parseErr := url.Parse(redirectURI)
	if parseErr != nil {
		return redirectURI
	}
	q := u.Query()
	q.Set("error", err.GetCode())
	q.Set("error_description", err.GetMessage())
	if state != "" {
		q.Set("state", state)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
