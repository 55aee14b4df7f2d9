package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ipede/authorization-server/internal/domain"
	httperrors "github.com/ipede/authorization-server/internal/interfaces/http/errors"
	"github.com/ipede/authorization-server/internal/interfaces/http/middleware/auth"
	"go.uber.org/zap"
)

// ConsentHandler serves the external consent page. GET returns what to
// render; POST records the decision and returns the terminal redirect URL
// for the page to follow. No server-side redirect happens here.
type ConsentHandler struct {
	consentService domain.ConsentService
	authMiddleware *auth.AuthMiddleware
	logger         *zap.Logger
}

func NewConsentHandler(consentService domain.ConsentService, authMiddleware *auth.AuthMiddleware, logger *zap.Logger) *ConsentHandler {
	return &ConsentHandler{
		consentService: consentService,
		authMiddleware: authMiddleware,
		logger:         logger,
	}
}

// GetConsentHandler handles GET /api/oauth/consent?request=<id>
func (h *ConsentHandler) GetConsentHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authMiddleware.SessionUser(r); !ok {
		httperrors.RespondWithError(w, domain.ErrUnauthorized)
		return
	}

	requestID := r.URL.Query().Get("request")
	if requestID == "" {
		httperrors.RespondWithError(w, domain.ErrInvalidRequest)
		return
	}

	prompt, err := h.consentService.Prompt(r.Context(), requestID)
	if err != nil {
		httperrors.RespondWithError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(prompt); err != nil {
		h.logger.Error("Failed to encode consent prompt", zap.Error(err))
	}
}

// DecideConsentHandler handles POST /api/oauth/consent
func (h *ConsentHandler) DecideConsentHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.authMiddleware.SessionUser(r)
	if !ok {
		httperrors.RespondWithError(w, domain.ErrUnauthorized)
		return
	}

	var req struct {
		RequestID string `json:"request_id"`
		Approved  bool   `json:"approved"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RequestID == "" {
		httperrors.RespondWithError(w, domain.ErrInvalidRequest)
		return
	}

	userID, err := domain.ParseULID(claims.Subject)
	if err != nil {
		h.logger.Error("session subject is not a valid user id", zap.String("sub", claims.Subject))
		httperrors.RespondWithError(w, domain.ErrInternal)
		return
	}

	redirectURL, err := h.consentService.Decide(r.Context(), req.RequestID, userID, req.Approved)
	if err != nil {
		httperrors.RespondWithError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"redirect_url": redirectURL}); err != nil {
		h.logger.Error("Failed to encode consent decision response", zap.Error(err))
	}
}
