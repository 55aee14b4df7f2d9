package handlers

import (
	"context"
	"time"

	"github.com/ipede/authorization-server/internal/domain"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"
)

// MockAuthorizeService is a mock implementation of domain.AuthorizeService
type MockAuthorizeService struct {
	mock.Mock
}

func (m *MockAuthorizeService) Begin(ctx context.Context, params domain.AuthorizeParams) (*domain.AuthorizationRequest, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuthorizationRequest), args.Error(1)
}

func (m *MockAuthorizeService) Advance(ctx context.Context, request *domain.AuthorizationRequest, userID ulid.ULID) (*domain.AuthorizeResult, error) {
	args := m.Called(ctx, request, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuthorizeResult), args.Error(1)
}

func (m *MockAuthorizeService) Resume(ctx context.Context, requestID string) (*domain.AuthorizationRequest, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuthorizationRequest), args.Error(1)
}

func (m *MockAuthorizeService) IssueCode(ctx context.Context, request *domain.AuthorizationRequest, userID ulid.ULID) (string, error) {
	args := m.Called(ctx, request, userID)
	return args.String(0), args.Error(1)
}

// MockTokenService is a mock implementation of domain.TokenService
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) Exchange(ctx context.Context, grant domain.AuthorizationCodeGrant) (*domain.TokenResponse, error) {
	args := m.Called(ctx, grant)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TokenResponse), args.Error(1)
}

func (m *MockTokenService) Refresh(ctx context.Context, grant domain.RefreshTokenGrant) (*domain.TokenResponse, error) {
	args := m.Called(ctx, grant)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TokenResponse), args.Error(1)
}

// MockConsentService is a mock implementation of domain.ConsentService
type MockConsentService struct {
	mock.Mock
}

func (m *MockConsentService) Prompt(ctx context.Context, requestID string) (*domain.ConsentPrompt, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ConsentPrompt), args.Error(1)
}

func (m *MockConsentService) Decide(ctx context.Context, requestID string, userID ulid.ULID, approved bool) (string, error) {
	args := m.Called(ctx, requestID, userID, approved)
	return args.String(0), args.Error(1)
}

// MockOIDCService is a mock implementation of domain.OIDCService
type MockOIDCService struct {
	mock.Mock
}

func (m *MockOIDCService) GetUserInfo(ctx context.Context, claims *domain.Claims) (map[string]interface{}, error) {
	args := m.Called(ctx, claims)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]interface{}), args.Error(1)
}

func (m *MockOIDCService) GetOpenIDConfiguration(ctx context.Context) map[string]interface{} {
	args := m.Called(ctx)
	return args.Get(0).(map[string]interface{})
}

// MockJWTService is a mock implementation of domain.JWTService
type MockJWTService struct {
	mock.Mock
}

func (m *MockJWTService) SignAccessToken(userID ulid.ULID, clientID string, scopes, roles []string) (string, string, error) {
	args := m.Called(userID, clientID, scopes, roles)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockJWTService) SignIDToken(user *domain.User, clientID string, scopes []string) (string, error) {
	args := m.Called(user, clientID, scopes)
	return args.String(0), args.Error(1)
}

func (m *MockJWTService) ValidateToken(token string) (*domain.Claims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Claims), args.Error(1)
}

func (m *MockJWTService) GetJWKS(ctx context.Context) (jwk.Set, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(jwk.Set), args.Error(1)
}

func (m *MockJWTService) AccessTokenDuration() time.Duration {
	args := m.Called()
	return args.Get(0).(time.Duration)
}

// MockClientService is a mock implementation of domain.ClientService
type MockClientService struct {
	mock.Mock
}

func (m *MockClientService) Authenticate(ctx context.Context, creds domain.ClientCredentials) (*domain.Client, error) {
	args := m.Called(ctx, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Client), args.Error(1)
}

func (m *MockClientService) Create(ctx context.Context, name string, redirectURIs, grantTypes []string, public bool) (*domain.Client, string, error) {
	args := m.Called(ctx, name, redirectURIs, grantTypes, public)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(*domain.Client), args.String(1), args.Error(2)
}

func (m *MockClientService) RotateSecret(ctx context.Context, clientID string) (string, error) {
	args := m.Called(ctx, clientID)
	return args.String(0), args.Error(1)
}

func (m *MockClientService) Get(ctx context.Context, clientID string) (*domain.Client, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Client), args.Error(1)
}

func (m *MockClientService) List(ctx context.Context) ([]*domain.Client, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Client), args.Error(1)
}

func (m *MockClientService) Delete(ctx context.Context, clientID string) error {
	args := m.Called(ctx, clientID)
	return args.Error(0)
}
