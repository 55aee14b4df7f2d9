package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/ipede/authorization-server/internal/domain"
	"github.com/ipede/authorization-server/internal/infrastructure/secret"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

type TokenService struct {
	clientService        domain.ClientService
	codeRepo             domain.AuthorizationCodeRepository
	tokenRepo            domain.TokenRepository
	userRepo             domain.UserRepository
	jwtService           domain.JWTService
	refreshTokenDuration time.Duration
	logger               *zap.Logger
}

func NewTokenService(
	clientService domain.ClientService,
	codeRepo domain.AuthorizationCodeRepository,
	tokenRepo domain.TokenRepository,
	userRepo domain.UserRepository,
	jwtService domain.JWTService,
	refreshTokenDuration time.Duration,
	logger *zap.Logger,
) *TokenService {
	return &TokenService{
		clientService:        clientService,
		codeRepo:             codeRepo,
		tokenRepo:            tokenRepo,
		userRepo:             userRepo,
		jwtService:           jwtService,
		refreshTokenDuration: refreshTokenDuration,
		logger:               logger,
	}
}

// Exchange redeems an authorization code for tokens. The code is consumed
// atomically together with the refresh token insert; a consumed code showing
// up again is treated as theft and revokes every token the code ever minted.
func (s *TokenService) Exchange(ctx context.Context, grant domain.AuthorizationCodeGrant) (*domain.TokenResponse, error) {
	client, err := s.clientService.Authenticate(ctx, grant.Credentials)
	if err != nil {
		return nil, err
	}
	if !client.AllowsGrantType(domain.GrantTypeAuthorizationCode) {
		return nil, domain.ErrUnauthorizedClient
	}
	if grant.Code == "" {
		return nil, domain.ErrInvalidRequest
	}

	code, err := s.codeRepo.Get(ctx, grant.Code)
	if err != nil {
		return nil, err
	}
	// A consumed code showing up again is theft regardless of whether it has
	// since expired; tokens minted from it may still be live and must go.
	if code.Consumed {
		s.revokeReplayedCode(ctx, code.Code, client.ClientID)
		return nil, domain.ErrAuthorizationCodeReplayed
	}
	if code.ClientID != client.ClientID {
		s.logger.Warn("authorization code presented by a different client",
			zap.String("clientId", client.ClientID))
		return nil, domain.ErrInvalidAuthorizationCode
	}
	if code.RedirectURI != grant.RedirectURI {
		return nil, domain.NewError(domain.CodeInvalidGrant, "redirect_uri does not match the authorization request")
	}
	if code.Expired(time.Now()) {
		return nil, domain.ErrInvalidAuthorizationCode
	}

	// Public clients have no secret, so a verified PKCE exchange is the only
	// proof of possession. A public-client code without a challenge, or an
	// exchange without a verifier, never yields tokens.
	if client.Public() && code.CodeChallenge == "" {
		return nil, domain.ErrPKCEVerificationFailed
	}
	if code.CodeChallenge != "" {
		if grant.CodeVerifier == "" {
			if client.Public() {
				return nil, domain.ErrPKCEVerificationFailed
			}
			return nil, domain.NewError(domain.CodeInvalidRequest, "code_verifier is required")
		}
		if !domain.ValidCodeVerifier(grant.CodeVerifier) ||
			!domain.VerifyPKCE(grant.CodeVerifier, code.CodeChallenge, code.CodeChallengeMethod) {
			return nil, domain.ErrPKCEVerificationFailed
		}
	}

	user, err := s.userRepo.FindByID(ctx, code.UserID)
	if err != nil {
		return nil, err
	}

	// Sign before touching state so a signing failure leaves nothing consumed
	accessToken, _, err := s.jwtService.SignAccessToken(user.ID, client.ClientID, code.Scopes, user.Roles)
	if err != nil {
		return nil, err
	}

	var idToken string
	if domain.ContainsScope(code.Scopes, domain.ScopeOpenID) {
		idToken, err = s.jwtService.SignIDToken(user, client.ClientID, code.Scopes)
		if err != nil {
			return nil, err
		}
	}

	refreshValue, err := secret.Generate()
	if err != nil {
		s.logger.Error("failed to generate refresh token", zap.Error(err))
		return nil, domain.ErrInternal
	}

	now := time.Now()
	refresh := &domain.RefreshToken{
		ID:        ulid.Make(),
		TokenHash: hashToken(refreshValue),
		UserID:    user.ID,
		ClientID:  client.ClientID,
		Scopes:    code.Scopes,
		Code:      code.Code,
		ExpiresAt: now.Add(s.refreshTokenDuration),
		CreatedAt: now,
	}

	if err := s.tokenRepo.RedeemCode(ctx, code.Code, refresh); err != nil {
		if errors.Is(err, domain.ErrAuthorizationCodeReplayed) {
			s.revokeReplayedCode(ctx, code.Code, client.ClientID)
		}
		return nil, err
	}

	return &domain.TokenResponse{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.jwtService.AccessTokenDuration().Seconds()),
		RefreshToken: refreshValue,
		IDToken:      idToken,
		Scope:        domain.FormatScopes(code.Scopes),
	}, nil
}

// Refresh rotates the presented refresh token. A revoked token showing up is
// the rotation breach signal: the whole family is revoked before answering.
func (s *TokenService) Refresh(ctx context.Context, grant domain.RefreshTokenGrant) (*domain.TokenResponse, error) {
	client, err := s.clientService.Authenticate(ctx, grant.Credentials)
	if err != nil {
		return nil, err
	}
	if !client.AllowsGrantType(domain.GrantTypeRefreshToken) {
		return nil, domain.ErrUnauthorizedClient
	}
	if grant.RefreshToken == "" {
		return nil, domain.ErrInvalidRequest
	}

	current, err := s.tokenRepo.FindByTokenHash(ctx, hashToken(grant.RefreshToken))
	if err != nil {
		return nil, err
	}
	if current.ClientID != client.ClientID {
		s.logger.Warn("refresh token presented by a different client",
			zap.String("clientId", client.ClientID))
		return nil, domain.ErrInvalidRefreshToken
	}
	if current.Revoked {
		revoked, revokeErr := s.tokenRepo.RevokeFamily(ctx, current.ID)
		if revokeErr != nil {
			s.logger.Error("failed to revoke token family after reuse", zap.Error(revokeErr))
		}
		s.logger.Warn("refresh token reuse detected, family revoked",
			zap.String("clientId", client.ClientID),
			zap.Int64("revoked", revoked))
		return nil, domain.ErrRefreshTokenReused
	}
	if current.Expired(time.Now()) {
		return nil, domain.ErrInvalidRefreshToken
	}

	// A scope parameter may narrow the grant, never widen it
	scopes := current.Scopes
	if grant.Scope != "" {
		requested := domain.ParseScopes(grant.Scope)
		if !domain.ScopesCovered(current.Scopes, requested) {
			return nil, domain.ErrInvalidScope
		}
		scopes = requested
	}

	user, err := s.userRepo.FindByID(ctx, current.UserID)
	if err != nil {
		return nil, err
	}

	// Only the access token is reissued here. The ID token is an
	// authentication artifact of the original authorization and is never
	// reissued on refresh.
	accessToken, _, err := s.jwtService.SignAccessToken(user.ID, client.ClientID, scopes, user.Roles)
	if err != nil {
		return nil, err
	}

	refreshValue, err := secret.Generate()
	if err != nil {
		s.logger.Error("failed to generate refresh token", zap.Error(err))
		return nil, domain.ErrInternal
	}

	now := time.Now()
	currentID := current.ID
	successor := &domain.RefreshToken{
		ID:          ulid.Make(),
		TokenHash:   hashToken(refreshValue),
		UserID:      current.UserID,
		ClientID:    current.ClientID,
		Scopes:      current.Scopes,
		Code:        current.Code,
		RotatedFrom: &currentID,
		ExpiresAt:   now.Add(s.refreshTokenDuration),
		CreatedAt:   now,
	}

	if err := s.tokenRepo.Rotate(ctx, current.ID, successor); err != nil {
		if errors.Is(err, domain.ErrRefreshTokenReused) {
			revoked, revokeErr := s.tokenRepo.RevokeFamily(ctx, current.ID)
			if revokeErr != nil {
				s.logger.Error("failed to revoke token family after reuse", zap.Error(revokeErr))
			}
			s.logger.Warn("concurrent refresh token use detected, family revoked",
				zap.String("clientId", client.ClientID),
				zap.Int64("revoked", revoked))
		}
		return nil, err
	}

	return &domain.TokenResponse{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.jwtService.AccessTokenDuration().Seconds()),
		RefreshToken: refreshValue,
		Scope:        domain.FormatScopes(scopes),
	}, nil
}

func (s *TokenService) revokeReplayedCode(ctx context.Context, code, clientID string) {
	revoked, err := s.tokenRepo.RevokeByCode(ctx, code)
	if err != nil {
		s.logger.Error("failed to revoke tokens after code replay", zap.Error(err))
	}
	s.logger.Warn("authorization code replay detected, tokens revoked",
		zap.String("clientId", clientID),
		zap.Int64("revoked", revoked))
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
