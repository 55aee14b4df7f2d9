package application

import (
	"context"
	"errors"
	"time"

	"github.com/ipede/authorization-server/internal/domain"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

type ConsentService struct {
	authorize   domain.AuthorizeService
	requestRepo domain.AuthorizationRequestRepository
	clientRepo  domain.ClientRepository
	consentRepo domain.ConsentRepository
	logger      *zap.Logger
}

func NewConsentService(
	authorize domain.AuthorizeService,
	requestRepo domain.AuthorizationRequestRepository,
	clientRepo domain.ClientRepository,
	consentRepo domain.ConsentRepository,
	logger *zap.Logger,
) *ConsentService {
	return &ConsentService{
		authorize:   authorize,
		requestRepo: requestRepo,
		clientRepo:  clientRepo,
		consentRepo: consentRepo,
		logger:      logger,
	}
}

// Prompt returns the rendering data for the consent page
func (s *ConsentService) Prompt(ctx context.Context, requestID string) (*domain.ConsentPrompt, error) {
	request, err := s.authorize.Resume(ctx, requestID)
	if err != nil {
		return nil, err
	}

	client, err := s.clientRepo.FindByClientID(ctx, request.ClientID)
	if err != nil {
		return nil, err
	}

	return &domain.ConsentPrompt{
		RequestID:   request.ID.String(),
		ClientID:    client.ClientID,
		ClientName:  client.Name,
		RedirectURI: request.RedirectURI,
		Scopes:      domain.DescribeScopes(request.Scopes),
	}, nil
}

// Decide records the user's decision and returns the redirect URL the
// consent page must send the browser to. Approval unions the requested
// scopes into the stored grant; denial retires the request and carries
// access_denied back to the client.
func (s *ConsentService) Decide(ctx context.Context, requestID string, userID ulid.ULID, approved bool) (string, error) {
	request, err := s.authorize.Resume(ctx, requestID)
	if err != nil {
		return "", err
	}

	if !approved {
		if err := s.requestRepo.Delete(ctx, request.ID); err != nil {
			s.logger.Warn("failed to delete denied authorization request",
				zap.String("requestId", requestID), zap.Error(err))
		}
		s.logger.Info("consent denied",
			zap.String("clientId", request.ClientID),
			zap.String("userId", userID.String()))
		return RedirectWithError(request.RedirectURI, domain.ErrAccessDenied, request.State), nil
	}

	granted := request.Scopes
	existing, err := s.consentRepo.Find(ctx, userID, request.ClientID)
	if err != nil && !errors.Is(err, domain.ErrConsentNotFound) {
		return "", err
	}
	if existing != nil {
		granted = domain.UnionScopes(existing.GrantedScopes, request.Scopes)
	}

	consent := &domain.Consent{
		UserID:        userID,
		ClientID:      request.ClientID,
		GrantedScopes: granted,
		GrantedAt:     time.Now(),
	}
	if err := s.consentRepo.Upsert(ctx, consent); err != nil {
		return "", err
	}

	s.logger.Info("consent granted",
		zap.String("clientId", request.ClientID),
		zap.String("userId", userID.String()),
		zap.Strings("scopes", granted))

	return s.authorize.IssueCode(ctx, request, userID)
}
