package application

import (
	"context"
	"time"

	"github.com/ipede/authorization-server/internal/domain"
	"github.com/ipede/authorization-server/internal/infrastructure/secret"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

type ClientService struct {
	clientRepo domain.ClientRepository
	logger     *zap.Logger
}

func NewClientService(clientRepo domain.ClientRepository, logger *zap.Logger) *ClientService {
	return &ClientService{
		clientRepo: clientRepo,
		logger:     logger,
	}
}

// Authenticate verifies the presented client credentials. Confidential
// clients must present a matching secret. Public clients hold none; a secret
// presented anyway is ignored since PKCE is their proof of possession.
func (s *ClientService) Authenticate(ctx context.Context, creds domain.ClientCredentials) (*domain.Client, error) {
	if creds.ClientID == "" {
		return nil, domain.ErrInvalidClient
	}

	client, err := s.clientRepo.FindByClientID(ctx, creds.ClientID)
	if err != nil {
		return nil, domain.ErrInvalidClient
	}

	if client.Public() {
		return client, nil
	}

	if !creds.SecretProvided {
		return nil, domain.ErrInvalidClient
	}
	if err := secret.Check(creds.Secret, client.SecretHash); err != nil {
		s.logger.Warn("client secret verification failed", zap.String("clientId", creds.ClientID))
		return nil, domain.ErrInvalidClient
	}

	return client, nil
}

// Create registers a new client. The plaintext secret is returned exactly
// once for confidential clients and never stored.
func (s *ClientService) Create(ctx context.Context, name string, redirectURIs, grantTypes []string, public bool) (*domain.Client, string, error) {
	if name == "" || len(redirectURIs) == 0 {
		return nil, "", domain.ErrInvalidRequest
	}
	if len(grantTypes) == 0 {
		grantTypes = []string{domain.GrantTypeAuthorizationCode, domain.GrantTypeRefreshToken}
	}
	for _, gt := range grantTypes {
		if gt != domain.GrantTypeAuthorizationCode && gt != domain.GrantTypeRefreshToken {
			return nil, "", domain.ErrUnsupportedGrantType
		}
	}

	clientID, err := secret.Generate()
	if err != nil {
		return nil, "", domain.ErrInternal
	}

	var plaintext, hash string
	if !public {
		plaintext, err = secret.Generate()
		if err != nil {
			return nil, "", domain.ErrInternal
		}
		hash, err = secret.Hash(plaintext)
		if err != nil {
			s.logger.Error("failed to hash client secret", zap.Error(err))
			return nil, "", domain.ErrInternal
		}
	}

	now := time.Now()
	client := &domain.Client{
		ID:           ulid.Make(),
		ClientID:     clientID,
		SecretHash:   hash,
		Name:         name,
		RedirectURIs: redirectURIs,
		GrantTypes:   grantTypes,
		PKCERequired: public,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.clientRepo.Create(ctx, client); err != nil {
		return nil, "", err
	}

	s.logger.Info("client registered",
		zap.String("clientId", client.ClientID),
		zap.String("name", name),
		zap.Bool("public", public))

	return client, plaintext, nil
}

// RotateSecret replaces a confidential client's secret
func (s *ClientService) RotateSecret(ctx context.Context, clientID string) (string, error) {
	client, err := s.clientRepo.FindByClientID(ctx, clientID)
	if err != nil {
		return "", err
	}
	if client.Public() {
		return "", domain.NewError(domain.CodeInvalidRequest, "public clients hold no secret")
	}

	plaintext, err := secret.Generate()
	if err != nil {
		return "", domain.ErrInternal
	}
	hash, err := secret.Hash(plaintext)
	if err != nil {
		s.logger.Error("failed to hash client secret", zap.Error(err))
		return "", domain.ErrInternal
	}

	client.SecretHash = hash
	client.UpdatedAt = time.Now()
	if err := s.clientRepo.Update(ctx, client); err != nil {
		return "", err
	}

	s.logger.Info("client secret rotated", zap.String("clientId", clientID))
	return plaintext, nil
}

func (s *ClientService) Get(ctx context.Context, clientID string) (*domain.Client, error) {
	return s.clientRepo.FindByClientID(ctx, clientID)
}

func (s *ClientService) List(ctx context.Context) ([]*domain.Client, error) {
	return s.clientRepo.List(ctx)
}

func (s *ClientService) Delete(ctx context.Context, clientID string) error {
	if _, err := s.clientRepo.FindByClientID(ctx, clientID); err != nil {
		return err
	}
	return s.clientRepo.Delete(ctx, clientID)
}
