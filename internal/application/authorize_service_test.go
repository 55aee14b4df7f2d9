package application

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/ipede/authorization-server/internal/domain"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testChallenge = "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"

func testClient() *domain.Client {
	return &domain.Client{
		ID:           ulid.Make(),
		ClientID:     "web-app",
		SecretHash:   "$2a$10$hash",
		Name:         "Web App",
		RedirectURIs: []string{"https://app.example.com/callback"},
		GrantTypes:   []string{domain.GrantTypeAuthorizationCode, domain.GrantTypeRefreshToken},
	}
}

func validParams() domain.AuthorizeParams {
	return domain.AuthorizeParams{
		ClientID:            "web-app",
		RedirectURI:         "https://app.example.com/callback",
		ResponseType:        "code",
		Scope:               "openid profile",
		State:               "xyz",
		CodeChallenge:       testChallenge,
		CodeChallengeMethod: "S256",
	}
}

func TestAuthorizeService_Begin(t *testing.T) {
	tests := []struct {
		name         string
		params       func() domain.AuthorizeParams
		setupClient  func(*MockClientRepository)
		wantErr      error
		wantRedirect bool
	}{
		{
			name:   "valid request persists continuation",
			params: validParams,
			setupClient: func(m *MockClientRepository) {
				m.On("FindByClientID", mock.Anything, "web-app").Return(testClient(), nil)
			},
		},
		{
			name: "unknown client fails before redirect",
			params: func() domain.AuthorizeParams {
				p := validParams()
				p.ClientID = "ghost"
				return p
			},
			setupClient: func(m *MockClientRepository) {
				m.On("FindByClientID", mock.Anything, "ghost").Return(nil, domain.ErrClientNotFound)
			},
			wantErr: domain.ErrClientNotFound,
		},
		{
			name: "unregistered redirect URI fails before redirect",
			params: func() domain.AuthorizeParams {
				p := validParams()
				p.RedirectURI = "https://evil.example.com/callback"
				return p
			},
			setupClient: func(m *MockClientRepository) {
				m.On("FindByClientID", mock.Anything, "web-app").Return(testClient(), nil)
			},
			wantErr: domain.ErrInvalidRedirectURI,
		},
		{
			name: "missing redirect URI",
			params: func() domain.AuthorizeParams {
				p := validParams()
				p.RedirectURI = ""
				return p
			},
			setupClient: func(m *MockClientRepository) {},
			wantErr:     domain.ErrInvalidRequest,
		},
		{
			name: "unsupported response type fails before redirect",
			params: func() domain.AuthorizeParams {
				p := validParams()
				p.ResponseType = "token"
				return p
			},
			setupClient: func(m *MockClientRepository) {
				m.On("FindByClientID", mock.Anything, "web-app").Return(testClient(), nil)
			},
			wantErr: domain.ErrUnsupportedResponseType,
		},
		{
			name: "plain challenge method rejected",
			params: func() domain.AuthorizeParams {
				p := validParams()
				p.CodeChallengeMethod = "plain"
				return p
			},
			setupClient: func(m *MockClientRepository) {
				m.On("FindByClientID", mock.Anything, "web-app").Return(testClient(), nil)
			},
			wantErr: domain.ErrInvalidCodeChallengeMethod,
		},
		{
			name: "public client must send a challenge",
			params: func() domain.AuthorizeParams {
				p := validParams()
				p.CodeChallenge = ""
				p.CodeChallengeMethod = ""
				return p
			},
			setupClient: func(m *MockClientRepository) {
				client := testClient()
				client.SecretHash = ""
				client.PKCERequired = true
				m.On("FindByClientID", mock.Anything, "web-app").Return(client, nil)
			},
			wantErr: domain.ErrCodeChallengeRequired,
		},
		{
			name: "client without the grant gets a redirectable error",
			params: func() domain.AuthorizeParams {
				return validParams()
			},
			setupClient: func(m *MockClientRepository) {
				client := testClient()
				client.GrantTypes = []string{domain.GrantTypeRefreshToken}
				m.On("FindByClientID", mock.Anything, "web-app").Return(client, nil)
			},
			wantErr:      domain.ErrUnauthorizedClient,
			wantRedirect: true,
		},
		{
			name: "unknown scope gets a redirectable error",
			params: func() domain.AuthorizeParams {
				p := validParams()
				p.Scope = "openid payments"
				return p
			},
			setupClient: func(m *MockClientRepository) {
				m.On("FindByClientID", mock.Anything, "web-app").Return(testClient(), nil)
			},
			wantErr:      domain.ErrInvalidScope,
			wantRedirect: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clientRepo := new(MockClientRepository)
			requestRepo := new(MockAuthorizationRequestRepository)
			tt.setupClient(clientRepo)
			requestRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.AuthorizationRequest")).Return(nil).Maybe()

			service := NewAuthorizeService(clientRepo, requestRepo, new(MockCodeRepository), new(MockConsentRepository), zap.NewNop())
			request, err := service.Begin(context.Background(), tt.params())

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)

				var redirectErr *domain.RedirectableError
				if tt.wantRedirect {
					require.ErrorAs(t, err, &redirectErr)
					assert.Equal(t, "https://app.example.com/callback", redirectErr.RedirectURI)
					assert.Equal(t, "xyz", redirectErr.State)
				} else {
					assert.False(t, errors.As(err, &redirectErr))
				}
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "web-app", request.ClientID)
			assert.Equal(t, []string{"openid", "profile"}, request.Scopes)
			assert.Equal(t, testChallenge, request.CodeChallenge)
			assert.WithinDuration(t, time.Now().Add(domain.AuthorizationRequestTTL), request.ExpiresAt, 2*time.Second)
			requestRepo.AssertCalled(t, "Create", mock.Anything, mock.AnythingOfType("*domain.AuthorizationRequest"))
		})
	}
}

func TestAuthorizeService_Advance(t *testing.T) {
	userID := ulid.Make()

	pending := func() *domain.AuthorizationRequest {
		return &domain.AuthorizationRequest{
			ID:                  ulid.Make(),
			ClientID:            "web-app",
			RedirectURI:         "https://app.example.com/callback",
			Scopes:              []string{"openid", "profile"},
			State:               "xyz",
			CodeChallenge:       testChallenge,
			CodeChallengeMethod: "S256",
			CreatedAt:           time.Now(),
			ExpiresAt:           time.Now().Add(domain.AuthorizationRequestTTL),
		}
	}

	t.Run("covered consent skips the prompt and issues a code", func(t *testing.T) {
		request := pending()
		requestRepo := new(MockAuthorizationRequestRepository)
		codeRepo := new(MockCodeRepository)
		consentRepo := new(MockConsentRepository)

		requestRepo.On("AttachUser", mock.Anything, request.ID, userID).Return(nil)
		consentRepo.On("Find", mock.Anything, userID, "web-app").Return(&domain.Consent{
			UserID:        userID,
			ClientID:      "web-app",
			GrantedScopes: []string{"openid", "profile", "email"},
		}, nil)

		var stored *domain.AuthorizationCode
		codeRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.AuthorizationCode")).
			Run(func(args mock.Arguments) {
				stored = args.Get(1).(*domain.AuthorizationCode)
			}).Return(nil)
		requestRepo.On("Delete", mock.Anything, request.ID).Return(nil)

		service := NewAuthorizeService(new(MockClientRepository), requestRepo, codeRepo, consentRepo, zap.NewNop())
		result, err := service.Advance(context.Background(), request, userID)

		require.NoError(t, err)
		assert.False(t, result.ConsentRequired)

		redirect, err := url.Parse(result.RedirectURL)
		require.NoError(t, err)
		assert.Equal(t, "app.example.com", redirect.Host)
		assert.Equal(t, stored.Code, redirect.Query().Get("code"))
		assert.Equal(t, "xyz", redirect.Query().Get("state"))

		require.NotNil(t, stored)
		assert.Equal(t, userID, stored.UserID)
		assert.Equal(t, []string{"openid", "profile"}, stored.Scopes)
		assert.False(t, stored.Consumed)
		assert.WithinDuration(t, time.Now().Add(domain.AuthorizationCodeTTL), stored.ExpiresAt, 2*time.Second)
	})

	t.Run("missing consent suspends at the prompt", func(t *testing.T) {
		request := pending()
		requestRepo := new(MockAuthorizationRequestRepository)
		consentRepo := new(MockConsentRepository)

		requestRepo.On("AttachUser", mock.Anything, request.ID, userID).Return(nil)
		consentRepo.On("Find", mock.Anything, userID, "web-app").Return(nil, domain.ErrConsentNotFound)

		service := NewAuthorizeService(new(MockClientRepository), requestRepo, new(MockCodeRepository), consentRepo, zap.NewNop())
		result, err := service.Advance(context.Background(), request, userID)

		require.NoError(t, err)
		assert.True(t, result.ConsentRequired)
		assert.Empty(t, result.RedirectURL)
	})

	t.Run("partial consent suspends at the prompt", func(t *testing.T) {
		request := pending()
		requestRepo := new(MockAuthorizationRequestRepository)
		consentRepo := new(MockConsentRepository)

		requestRepo.On("AttachUser", mock.Anything, request.ID, userID).Return(nil)
		consentRepo.On("Find", mock.Anything, userID, "web-app").Return(&domain.Consent{
			UserID:        userID,
			ClientID:      "web-app",
			GrantedScopes: []string{"openid"},
		}, nil)

		service := NewAuthorizeService(new(MockClientRepository), requestRepo, new(MockCodeRepository), consentRepo, zap.NewNop())
		result, err := service.Advance(context.Background(), request, userID)

		require.NoError(t, err)
		assert.True(t, result.ConsentRequired)
	})

	t.Run("expired request is rejected", func(t *testing.T) {
		request := pending()
		request.ExpiresAt = time.Now().Add(-time.Minute)

		service := NewAuthorizeService(new(MockClientRepository), new(MockAuthorizationRequestRepository), new(MockCodeRepository), new(MockConsentRepository), zap.NewNop())
		_, err := service.Advance(context.Background(), request, userID)

		assert.ErrorIs(t, err, domain.ErrAuthorizationRequestNotFound)
	})
}

func TestAuthorizeService_Resume(t *testing.T) {
	t.Run("garbage token is not found", func(t *testing.T) {
		service := NewAuthorizeService(new(MockClientRepository), new(MockAuthorizationRequestRepository), new(MockCodeRepository), new(MockConsentRepository), zap.NewNop())
		_, err := service.Resume(context.Background(), "not-a-ulid")
		assert.ErrorIs(t, err, domain.ErrAuthorizationRequestNotFound)
	})

	t.Run("expired pending request is not found", func(t *testing.T) {
		id := ulid.Make()
		requestRepo := new(MockAuthorizationRequestRepository)
		requestRepo.On("Find", mock.Anything, id).Return(&domain.AuthorizationRequest{
			ID:        id,
			ExpiresAt: time.Now().Add(-time.Minute),
		}, nil)

		service := NewAuthorizeService(new(MockClientRepository), requestRepo, new(MockCodeRepository), new(MockConsentRepository), zap.NewNop())
		_, err := service.Resume(context.Background(), id.String())
		assert.ErrorIs(t, err, domain.ErrAuthorizationRequestNotFound)
	})
}

func TestRedirectWithCode(t *testing.T) {
	redirect := RedirectWithCode("https://app.example.com/callback", "abc", "s1")
	u, err := url.Parse(redirect)
	require.NoError(t, err)
	assert.Equal(t, "abc", u.Query().Get("code"))
	assert.Equal(t, "s1", u.Query().Get("state"))

	// Absent state stays absent
	redirect = RedirectWithCode("https://app.example.com/callback", "abc", "")
	u, err = url.Parse(redirect)
	require.NoError(t, err)
	_, hasState := u.Query()["state"]
	assert.False(t, hasState)
}
