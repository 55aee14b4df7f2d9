package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ipede/authorization-server/internal/domain"
	"github.com/ipede/authorization-server/internal/interfaces/http/middleware/auth"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testLoginURL   = "https://ui.example.com/login"
	testConsentURL = "https://ui.example.com/consent"
)

func newAuthorizeFixture(jwtService *MockJWTService) (*AuthorizeHandler, *MockAuthorizeService) {
	service := new(MockAuthorizeService)
	middleware := auth.NewAuthMiddleware(jwtService, zap.NewNop())
	handler := NewAuthorizeHandler(service, middleware, testLoginURL, testConsentURL, zap.NewNop())
	return handler, service
}

func sessionClaims(userID ulid.ULID) *domain.Claims {
	return &domain.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func authorizeRequest(session string) *http.Request {
	req := httptest.NewRequest(http.MethodGet,
		"/oauth/authorize?client_id=web-app&redirect_uri=https%3A%2F%2Fapp.example.com%2Fcallback&response_type=code&scope=openid&state=xyz&code_challenge=abc&code_challenge_method=S256", nil)
	if session != "" {
		req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: session})
	}
	return req
}

func TestAuthorizeHandler_RedirectsToLoginWithoutSession(t *testing.T) {
	jwtService := new(MockJWTService)
	handler, service := newAuthorizeFixture(jwtService)

	pending := &domain.AuthorizationRequest{ID: ulid.Make()}
	service.On("Begin", mock.Anything, mock.AnythingOfType("domain.AuthorizeParams")).Return(pending, nil)

	w := httptest.NewRecorder()
	handler.AuthorizeHandler(w, authorizeRequest(""))

	require.Equal(t, http.StatusFound, w.Code)
	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "ui.example.com", location.Host)
	assert.Equal(t, "/login", location.Path)
	assert.Equal(t, pending.ID.String(), location.Query().Get("request"))
}

func TestAuthorizeHandler_DirectErrorForUnknownClient(t *testing.T) {
	jwtService := new(MockJWTService)
	handler, service := newAuthorizeFixture(jwtService)

	service.On("Begin", mock.Anything, mock.Anything).Return(nil, domain.ErrClientNotFound)

	w := httptest.NewRecorder()
	handler.AuthorizeHandler(w, authorizeRequest(""))

	// Never redirect to an unverified URI
	assert.NotEqual(t, http.StatusFound, w.Code)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuthorizeHandler_RedirectableErrorGoesBackToClient(t *testing.T) {
	jwtService := new(MockJWTService)
	handler, service := newAuthorizeFixture(jwtService)

	service.On("Begin", mock.Anything, mock.Anything).Return(nil, &domain.RedirectableError{
		Err:         domain.ErrUnauthorizedClient,
		RedirectURI: "https://app.example.com/callback",
		State:       "xyz",
	})

	w := httptest.NewRecorder()
	handler.AuthorizeHandler(w, authorizeRequest(""))

	require.Equal(t, http.StatusFound, w.Code)
	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "app.example.com", location.Host)
	assert.Equal(t, "unauthorized_client", location.Query().Get("error"))
	assert.Equal(t, "xyz", location.Query().Get("state"))
}

func TestAuthorizeHandler_SessionAdvancesToConsent(t *testing.T) {
	userID := ulid.Make()
	jwtService := new(MockJWTService)
	jwtService.On("ValidateToken", "session-jwt").Return(sessionClaims(userID), nil)

	handler, service := newAuthorizeFixture(jwtService)

	pending := &domain.AuthorizationRequest{ID: ulid.Make(), RedirectURI: "https://app.example.com/callback"}
	service.On("Begin", mock.Anything, mock.Anything).Return(pending, nil)
	service.On("Advance", mock.Anything, pending, userID).Return(&domain.AuthorizeResult{ConsentRequired: true}, nil)

	w := httptest.NewRecorder()
	handler.AuthorizeHandler(w, authorizeRequest("session-jwt"))

	require.Equal(t, http.StatusFound, w.Code)
	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/consent", location.Path)
	assert.Equal(t, pending.ID.String(), location.Query().Get("request"))
}

func TestAuthorizeHandler_SessionWithCoveredConsentRedirectsWithCode(t *testing.T) {
	userID := ulid.Make()
	jwtService := new(MockJWTService)
	jwtService.On("ValidateToken", "session-jwt").Return(sessionClaims(userID), nil)

	handler, service := newAuthorizeFixture(jwtService)

	pending := &domain.AuthorizationRequest{ID: ulid.Make(), RedirectURI: "https://app.example.com/callback"}
	service.On("Begin", mock.Anything, mock.Anything).Return(pending, nil)
	service.On("Advance", mock.Anything, pending, userID).Return(&domain.AuthorizeResult{
		RedirectURL: "https://app.example.com/callback?code=abc&state=xyz",
	}, nil)

	w := httptest.NewRecorder()
	handler.AuthorizeHandler(w, authorizeRequest("session-jwt"))

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://app.example.com/callback?code=abc&state=xyz", w.Header().Get("Location"))
}

func TestAuthorizeHandler_InvalidSessionFallsBackToLogin(t *testing.T) {
	jwtService := new(MockJWTService)
	jwtService.On("ValidateToken", "stale-jwt").Return(nil, domain.ErrTokenExpired)

	handler, service := newAuthorizeFixture(jwtService)

	pending := &domain.AuthorizationRequest{ID: ulid.Make()}
	service.On("Begin", mock.Anything, mock.Anything).Return(pending, nil)

	w := httptest.NewRecorder()
	handler.AuthorizeHandler(w, authorizeRequest("stale-jwt"))

	require.Equal(t, http.StatusFound, w.Code)
	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/login", location.Path)
}

func TestResumeHandler(t *testing.T) {
	t.Run("missing request token", func(t *testing.T) {
		handler, _ := newAuthorizeFixture(new(MockJWTService))

		req := httptest.NewRequest(http.MethodGet, "/oauth/authorize/resume", nil)
		w := httptest.NewRecorder()
		handler.ResumeHandler(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("resumes after login", func(t *testing.T) {
		userID := ulid.Make()
		jwtService := new(MockJWTService)
		jwtService.On("ValidateToken", "session-jwt").Return(sessionClaims(userID), nil)

		handler, service := newAuthorizeFixture(jwtService)

		pending := &domain.AuthorizationRequest{ID: ulid.Make(), RedirectURI: "https://app.example.com/callback"}
		service.On("Resume", mock.Anything, pending.ID.String()).Return(pending, nil)
		service.On("Advance", mock.Anything, pending, userID).Return(&domain.AuthorizeResult{
			RedirectURL: "https://app.example.com/callback?code=abc",
		}, nil)

		req := httptest.NewRequest(http.MethodGet, "/oauth/authorize/resume?request="+pending.ID.String(), nil)
		req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: "session-jwt"})
		w := httptest.NewRecorder()
		handler.ResumeHandler(w, req)

		require.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "https://app.example.com/callback?code=abc", w.Header().Get("Location"))
	})
}
