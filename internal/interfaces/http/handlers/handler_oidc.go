package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ipede/authorization-server/internal/domain"
	httperrors "github.com/ipede/authorization-server/internal/interfaces/http/errors"
	"go.uber.org/zap"
)

type OIDCHandler struct {
	oidcService domain.OIDCService
	jwtService  domain.JWTService
	logger      *zap.Logger
}

func NewOIDCHandler(oidcService domain.OIDCService, jwtService domain.JWTService, logger *zap.Logger) *OIDCHandler {
	return &OIDCHandler{
		oidcService: oidcService,
		jwtService:  jwtService,
		logger:      logger,
	}
}

// GetUserInfoHandler handles GET /oauth/userinfo. The claims were placed in
// the context by the Bearer authenticator.
func (h *OIDCHandler) GetUserInfoHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := domain.GetClaims(r.Context())
	if !ok {
		httperrors.RespondWithBearerError(w, domain.ErrUnauthorized)
		return
	}

	userInfo, err := h.oidcService.GetUserInfo(r.Context(), claims)
	if err != nil {
		h.logger.Error("Failed to get user info", zap.Error(err))
		httperrors.RespondWithError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(userInfo); err != nil {
		h.logger.Error("Failed to encode user info response", zap.Error(err))
	}
}

// GetOpenIDConfigurationHandler handles GET /.well-known/openid-configuration
func (h *OIDCHandler) GetOpenIDConfigurationHandler(w http.ResponseWriter, r *http.Request) {
	config := h.oidcService.GetOpenIDConfiguration(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(config); err != nil {
		h.logger.Error("Failed to encode discovery document", zap.Error(err))
	}
}

// GetJWKSHandler handles GET /.well-known/jwks.json
func (h *OIDCHandler) GetJWKSHandler(w http.ResponseWriter, r *http.Request) {
	jwks, err := h.jwtService.GetJWKS(r.Context())
	if err != nil {
		h.logger.Error("Failed to get JWKS", zap.Error(err))
		httperrors.RespondWithError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=300")
	if err := json.NewEncoder(w).Encode(jwks); err != nil {
		h.logger.Error("Failed to encode JWKS response", zap.Error(err))
	}
}
