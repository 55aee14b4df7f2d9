package application

import (
	"context"

	"github.com/ipede/authorization-server/internal/domain"
	"go.uber.org/zap"
)

type OIDCService struct {
	userRepo domain.UserRepository
	issuer   string
	logger   *zap.Logger
}

func NewOIDCService(userRepo domain.UserRepository, issuer string, logger *zap.Logger) *OIDCService {
	return &OIDCService{
		userRepo: userRepo,
		issuer:   issuer,
		logger:   logger,
	}
}

// GetUserInfo returns the subject's profile claims filtered by the scopes
// the presenting access token carries
func (s *OIDCService) GetUserInfo(ctx context.Context, claims *domain.Claims) (map[string]interface{}, error) {
	id, err := domain.ParseULID(claims.Subject)
	if err != nil {
		s.logger.Error("Failed to parse subject claim",
			zap.String("sub", claims.Subject),
			zap.Error(err))
		return nil, domain.ErrInvalidClaims
	}

	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to find user",
			zap.String("sub", claims.Subject),
			zap.Error(err))
		return nil, err
	}

	scopes := claims.Scopes()
	info := map[string]interface{}{
		"sub": user.ID.String(),
	}
	if domain.ContainsScope(scopes, domain.ScopeProfile) {
		info["name"] = user.Name
		info["company"] = user.Company
		info["job_title"] = user.JobTitle
	}
	if domain.ContainsScope(scopes, domain.ScopeEmail) {
		info["email"] = user.Email
		info["email_verified"] = user.EmailVerified
	}
	if domain.ContainsScope(scopes, domain.ScopeRoles) {
		info["roles"] = user.Roles
	}

	return info, nil
}

// GetOpenIDConfiguration returns the discovery document
func (s *OIDCService) GetOpenIDConfiguration(ctx context.Context) map[string]interface{} {
	return map[string]interface{}{
		"issuer":                                s.issuer,
		"authorization_endpoint":                s.issuer + "/oauth/authorize",
		"token_endpoint":                        s.issuer + "/oauth/token",
		"userinfo_endpoint":                     s.issuer + "/oauth/userinfo",
		"jwks_uri":                              s.issuer + "/.well-known/jwks.json",
		"response_types_supported":              []string{domain.ResponseTypeCode},
		"grant_types_supported":                 []string{domain.GrantTypeAuthorizationCode, domain.GrantTypeRefreshToken},
		"subject_types_supported":               []string{"public"},
		"id_token_signing_alg_values_supported": []string{"RS256"},
		"scopes_supported":                      []string{domain.ScopeOpenID, domain.ScopeProfile, domain.ScopeEmail, domain.ScopeRoles},
		"token_endpoint_auth_methods_supported": []string{"client_secret_basic", "client_secret_post", "none"},
		"code_challenge_methods_supported":      []string{domain.CodeChallengeMethodS256},
	}
}
