package jwt

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ipede/authorization-server/internal/domain"
	"github.com/ipede/authorization-server/internal/infrastructure/config"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

type jwtService struct {
	strategy domain.SigningStrategy
	cfg      *config.Config
	logger   *zap.Logger
	cache    *jwksCache
}

type jwksCache struct {
	set      jwk.Set
	lastSync time.Time
	mu       sync.RWMutex
}

// NewJWTService creates the token signer backed by the given strategy
func NewJWTService(strategy domain.SigningStrategy, cfg *config.Config, logger *zap.Logger) domain.JWTService {
	return &jwtService{
		strategy: strategy,
		cfg:      cfg,
		logger:   logger,
		cache:    &jwksCache{},
	}
}

// SignAccessToken issues a signed access token and returns it with its jti
func (j *jwtService) SignAccessToken(userID ulid.ULID, clientID string, scopes, roles []string) (string, string, error) {
	now := time.Now()
	jti := ulid.Make().String()

	claims := &domain.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.cfg.Issuer,
			Subject:   userID.String(),
			Audience:  jwt.ClaimStrings{clientID},
			ExpiresAt: jwt.NewNumericDate(now.Add(j.cfg.AccessTokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        jti,
		},
		ClientID: clientID,
		Scope:    domain.FormatScopes(scopes),
		Roles:    roles,
	}

	token, err := j.strategy.Sign(claims)
	if err != nil {
		j.logger.Error("Failed to sign access token",
			zap.Error(err),
			zap.String("token_id", jti),
			zap.String("user_id", userID.String()),
			zap.String("client_id", clientID))
		return "", "", domain.ErrTokenGeneration
	}

	j.logger.Debug("Signed access token",
		zap.String("token_id", jti),
		zap.String("user_id", userID.String()),
		zap.String("client_id", clientID),
		zap.String("key_id", j.strategy.GetKeyID()))

	return token, jti, nil
}

// SignIDToken issues a signed ID token with scope-gated profile claims
func (j *jwtService) SignIDToken(user *domain.User, clientID string, scopes []string) (string, error) {
	now := time.Now()

	claims := &domain.IDTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.cfg.Issuer,
			Subject:   user.ID.String(),
			Audience:  jwt.ClaimStrings{clientID},
			ExpiresAt: jwt.NewNumericDate(now.Add(j.cfg.AccessTokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        ulid.Make().String(),
		},
	}

	if domain.ContainsScope(scopes, domain.ScopeProfile) {
		claims.Name = user.Name
	}
	if domain.ContainsScope(scopes, domain.ScopeEmail) {
		claims.Email = user.Email
		verified := user.EmailVerified
		claims.EmailVerified = &verified
	}

	token, err := j.strategy.Sign(claims)
	if err != nil {
		j.logger.Error("Failed to sign ID token",
			zap.Error(err),
			zap.String("user_id", user.ID.String()),
			zap.String("client_id", clientID))
		return "", domain.ErrTokenGeneration
	}
	return token, nil
}

// ValidateToken verifies signature and claims, resolving the key by kid.
// Tokens signed with a retained previous key keep verifying until expiry.
func (j *jwtService) ValidateToken(tokenString string) (*domain.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &domain.Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, domain.ErrInvalidSigningMethod
		}

		kid, _ := token.Header["kid"].(string)
		if kid != "" {
			if key, ok := j.strategy.PublicKeys()[kid]; ok {
				return key, nil
			}
			j.logger.Warn("Token signed with unknown key", zap.String("key_id", kid))
			return nil, domain.ErrInvalidToken
		}

		publicKey := j.strategy.GetPublicKey()
		if publicKey == nil {
			return nil, domain.ErrInvalidToken
		}
		return publicKey, nil
	})

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, domain.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, domain.ErrInvalidToken
		default:
			j.logger.Debug("Failed to parse token", zap.Error(err))
			return nil, domain.ErrInvalidToken
		}
	}

	claims, ok := token.Claims.(*domain.Claims)
	if !ok || !token.Valid {
		return nil, domain.ErrInvalidToken
	}

	if err := claims.Valid(); err != nil {
		return nil, err
	}

	return claims, nil
}

// GetJWKS returns the public key set, active and previous keys included
func (j *jwtService) GetJWKS(ctx context.Context) (jwk.Set, error) {
	j.cache.mu.RLock()
	if j.cache.set != nil && time.Since(j.cache.lastSync) < domain.JWKSCacheDuration {
		set := j.cache.set
		j.cache.mu.RUnlock()
		return set, nil
	}
	j.cache.mu.RUnlock()

	publicKeys := j.strategy.PublicKeys()
	if len(publicKeys) == 0 {
		j.logger.Error("No public keys available for JWKS")
		return nil, domain.ErrInvalidKeyConfig
	}

	set := jwk.NewSet()
	for kid, publicKey := range publicKeys {
		key, err := jwk.FromRaw(publicKey)
		if err != nil {
			j.logger.Error("Failed to convert public key to JWK",
				zap.String("key_id", kid),
				zap.Error(err))
			return nil, domain.ErrInvalidKeyConfig
		}
		if err := key.Set(jwk.KeyIDKey, kid); err != nil {
			return nil, domain.ErrInvalidKeyConfig
		}
		if err := key.Set(jwk.KeyUsageKey, "sig"); err != nil {
			return nil, domain.ErrInvalidKeyConfig
		}
		if err := key.Set(jwk.AlgorithmKey, jwa.RS256); err != nil {
			return nil, domain.ErrInvalidKeyConfig
		}
		if err := set.AddKey(key); err != nil {
			return nil, domain.ErrInvalidKeyConfig
		}
	}

	j.cache.mu.Lock()
	j.cache.set = set
	j.cache.lastSync = time.Now()
	j.cache.mu.Unlock()

	return set, nil
}

// AccessTokenDuration returns the configured access token lifetime
func (j *jwtService) AccessTokenDuration() time.Duration {
	return j.cfg.AccessTokenDuration
}
