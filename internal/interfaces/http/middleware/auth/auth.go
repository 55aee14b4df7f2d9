package auth

import (
	"net/http"
	"strings"

	"github.com/ipede/authorization-server/internal/domain"
	httperrors "github.com/ipede/authorization-server/internal/interfaces/http/errors"
	"go.uber.org/zap"
)

// SessionCookie carries the platform session token minted by the external
// login page. It is a JWT signed by the same signer as access tokens.
const SessionCookie = "session"

type AuthMiddleware struct {
	jwtService domain.JWTService
	logger     *zap.Logger
}

func NewAuthMiddleware(jwtService domain.JWTService, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{jwtService: jwtService, logger: logger}
}

// Authenticator guards API routes with a Bearer access token. Verified
// claims land in the request context.
func (m *AuthMiddleware) Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearer(r)
		if token == "" {
			httperrors.RespondWithBearerError(w, domain.ErrUnauthorized)
			return
		}

		claims, err := m.jwtService.ValidateToken(token)
		if err != nil {
			m.logger.Debug("token validation failed", zap.Error(err))
			httperrors.RespondWithBearerError(w, err)
			return
		}

		ctx := domain.WithClaims(r.Context(), claims)
		ctx = domain.WithSubject(ctx, claims.Subject)
		ctx = domain.WithRoles(ctx, claims.Roles)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole restricts a route to bearers holding the given role claim
func (m *AuthMiddleware) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			roles, ok := domain.GetRoles(r.Context())
			if !ok {
				httperrors.RespondWithError(w, domain.ErrForbidden)
				return
			}

			for _, userRole := range roles {
				if userRole == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			httperrors.RespondWithError(w, domain.ErrForbidden)
		})
	}
}

// SessionUser resolves the authenticated user from the session cookie.
// Returns false when no valid session is present; the caller decides whether
// that means a login redirect or a 401.
func (m *AuthMiddleware) SessionUser(r *http.Request) (*domain.Claims, bool) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return nil, false
	}

	claims, err := m.jwtService.ValidateToken(cookie.Value)
	if err != nil {
		m.logger.Debug("session cookie validation failed", zap.Error(err))
		return nil, false
	}
	return claims, true
}

func extractBearer(r *http.Request) string {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
