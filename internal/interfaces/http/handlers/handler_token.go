package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ipede/authorization-server/internal/domain"
	httperrors "github.com/ipede/authorization-server/internal/interfaces/http/errors"
	"go.uber.org/zap"
)

// TokenHandler drives the token endpoint
type TokenHandler struct {
	tokenService domain.TokenService
	logger       *zap.Logger
}

func NewTokenHandler(tokenService domain.TokenService, logger *zap.Logger) *TokenHandler {
	return &TokenHandler{
		tokenService: tokenService,
		logger:       logger,
	}
}

// TokenHandler handles POST /oauth/token
func (h *TokenHandler) TokenHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httperrors.RespondWithError(w, domain.ErrInvalidRequest)
		return
	}

	creds, err := extractClientCredentials(r)
	if err != nil {
		httperrors.RespondWithError(w, err)
		return
	}

	var response *domain.TokenResponse
	switch r.PostForm.Get("grant_type") {
	case domain.GrantTypeAuthorizationCode:
		response, err = h.tokenService.Exchange(r.Context(), domain.AuthorizationCodeGrant{
			Credentials:  creds,
			Code:         r.PostForm.Get("code"),
			RedirectURI:  r.PostForm.Get("redirect_uri"),
			CodeVerifier: r.PostForm.Get("code_verifier"),
		})
	case domain.GrantTypeRefreshToken:
		response, err = h.tokenService.Refresh(r.Context(), domain.RefreshTokenGrant{
			Credentials:  creds,
			RefreshToken: r.PostForm.Get("refresh_token"),
			Scope:        r.PostForm.Get("scope"),
		})
	default:
		err = domain.ErrUnsupportedGrantType
	}
	if err != nil {
		httperrors.RespondWithError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Failed to encode token response", zap.Error(err))
	}
}

// extractClientCredentials reads client authentication from the Basic header
// and the form body. Both at once is tolerated only when they agree exactly;
// any disagreement rejects the request rather than guessing which to trust.
func extractClientCredentials(r *http.Request) (domain.ClientCredentials, error) {
	bodyID := r.PostForm.Get("client_id")
	bodySecret := r.PostForm.Get("client_secret")
	_, bodySecretSet := r.PostForm["client_secret"]

	basicID, basicSecret, basicSet := r.BasicAuth()

	if basicSet {
		if bodyID != "" && bodyID != basicID {
			return domain.ClientCredentials{}, domain.ErrDuplicateClientCredentials
		}
		if bodySecretSet && bodySecret != basicSecret {
			return domain.ClientCredentials{}, domain.ErrDuplicateClientCredentials
		}
		return domain.ClientCredentials{
			ClientID:       basicID,
			Secret:         basicSecret,
			SecretProvided: true,
		}, nil
	}

	if bodyID == "" {
		return domain.ClientCredentials{}, domain.ErrInvalidClient
	}
	return domain.ClientCredentials{
		ClientID:       bodyID,
		Secret:         bodySecret,
		SecretProvided: bodySecretSet && bodySecret != "",
	}, nil
}
