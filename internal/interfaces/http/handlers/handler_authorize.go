package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/ipede/authorization-server/internal/application"
	"github.com/ipede/authorization-server/internal/domain"
	httperrors "github.com/ipede/authorization-server/internal/interfaces/http/errors"
	"github.com/ipede/authorization-server/internal/interfaces/http/middleware/auth"
	"go.uber.org/zap"
)

// AuthorizeHandler drives the browser-facing authorization endpoint
type AuthorizeHandler struct {
	authorizeService domain.AuthorizeService
	authMiddleware   *auth.AuthMiddleware
	loginURL         string
	consentURL       string
	logger           *zap.Logger
}

func NewAuthorizeHandler(
	authorizeService domain.AuthorizeService,
	authMiddleware *auth.AuthMiddleware,
	loginURL, consentURL string,
	logger *zap.Logger,
) *AuthorizeHandler {
	return &AuthorizeHandler{
		authorizeService: authorizeService,
		authMiddleware:   authMiddleware,
		loginURL:         loginURL,
		consentURL:       consentURL,
		logger:           logger,
	}
}

// AuthorizeHandler handles GET /oauth/authorize. Pre-redirect validation
// failures render a direct error page; anything later travels back to the
// client on the redirect URI.
func (h *AuthorizeHandler) AuthorizeHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := domain.AuthorizeParams{
		ClientID:            q.Get("client_id"),
		RedirectURI:         q.Get("redirect_uri"),
		ResponseType:        q.Get("response_type"),
		Scope:               q.Get("scope"),
		State:               q.Get("state"),
		CodeChallenge:       q.Get("code_challenge"),
		CodeChallengeMethod: q.Get("code_challenge_method"),
	}

	request, err := h.authorizeService.Begin(r.Context(), params)
	if err != nil {
		h.respondAuthorizeError(w, r, err)
		return
	}

	claims, ok := h.authMiddleware.SessionUser(r)
	if !ok {
		http.Redirect(w, r, h.continueURL(h.loginURL, request.ID.String()), http.StatusFound)
		return
	}

	h.advance(w, r, request, claims)
}

// ResumeHandler handles GET /oauth/authorize/resume, the return leg from the
// external login page
func (h *AuthorizeHandler) ResumeHandler(w http.ResponseWriter, r *http.Request) {
	requestID := r.URL.Query().Get("request")
	if requestID == "" {
		httperrors.RespondWithError(w, domain.ErrInvalidRequest)
		return
	}

	request, err := h.authorizeService.Resume(r.Context(), requestID)
	if err != nil {
		h.respondAuthorizeError(w, r, err)
		return
	}

	claims, ok := h.authMiddleware.SessionUser(r)
	if !ok {
		http.Redirect(w, r, h.continueURL(h.loginURL, request.ID.String()), http.StatusFound)
		return
	}

	h.advance(w, r, request, claims)
}

func (h *AuthorizeHandler) advance(w http.ResponseWriter, r *http.Request, request *domain.AuthorizationRequest, claims *domain.Claims) {
	userID, err := domain.ParseULID(claims.Subject)
	if err != nil {
		h.logger.Error("session subject is not a valid user id", zap.String("sub", claims.Subject))
		h.respondAuthorizeError(w, r, domain.ErrInternal)
		return
	}

	result, err := h.authorizeService.Advance(r.Context(), request, userID)
	if err != nil {
		// The redirect URI was validated at Begin, so errors from here on
		// travel back to the client
		http.Redirect(w, r, application.RedirectWithError(request.RedirectURI, asDomainError(err), request.State), http.StatusFound)
		return
	}

	if result.ConsentRequired {
		http.Redirect(w, r, h.continueURL(h.consentURL, request.ID.String()), http.StatusFound)
		return
	}

	http.Redirect(w, r, result.RedirectURL, http.StatusFound)
}

// respondAuthorizeError delivers the error on the redirect URI when it is
// wrapped as redirectable, and as a direct JSON page otherwise
func (h *AuthorizeHandler) respondAuthorizeError(w http.ResponseWriter, r *http.Request, err error) {
	var re *domain.RedirectableError
	if errors.As(err, &re) {
		http.Redirect(w, r, application.RedirectWithError(re.RedirectURI, re.Err, re.State), http.StatusFound)
		return
	}
	httperrors.RespondWithError(w, err)
}

func (h *AuthorizeHandler) continueURL(base, requestID string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set("request", requestID)
	u.RawQuery = q.Encode()
	return u.String()
}

func asDomainError(err error) domain.Error {
	var domainErr domain.Error
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return domain.ErrInternal
}
