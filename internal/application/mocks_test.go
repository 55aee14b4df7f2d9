package application

import (
	"context"
	"time"

	"github.com/ipede/authorization-server/internal/domain"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"
)

// MockClientRepository is a mock implementation of domain.ClientRepository
type MockClientRepository struct {
	mock.Mock
}

func (m *MockClientRepository) Create(ctx context.Context, client *domain.Client) error {
	args := m.Called(ctx, client)
	return args.Error(0)
}

func (m *MockClientRepository) FindByClientID(ctx context.Context, clientID string) (*domain.Client, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Client), args.Error(1)
}

func (m *MockClientRepository) Update(ctx context.Context, client *domain.Client) error {
	args := m.Called(ctx, client)
	return args.Error(0)
}

func (m *MockClientRepository) Delete(ctx context.Context, clientID string) error {
	args := m.Called(ctx, clientID)
	return args.Error(0)
}

func (m *MockClientRepository) List(ctx context.Context) ([]*domain.Client, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Client), args.Error(1)
}

// MockAuthorizationRequestRepository is a mock implementation of domain.AuthorizationRequestRepository
type MockAuthorizationRequestRepository struct {
	mock.Mock
}

func (m *MockAuthorizationRequestRepository) Create(ctx context.Context, request *domain.AuthorizationRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockAuthorizationRequestRepository) Find(ctx context.Context, id ulid.ULID) (*domain.AuthorizationRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuthorizationRequest), args.Error(1)
}

func (m *MockAuthorizationRequestRepository) AttachUser(ctx context.Context, id ulid.ULID, userID ulid.ULID) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *MockAuthorizationRequestRepository) Delete(ctx context.Context, id ulid.ULID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAuthorizationRequestRepository) DeleteExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockCodeRepository is a mock implementation of domain.AuthorizationCodeRepository
type MockCodeRepository struct {
	mock.Mock
}

func (m *MockCodeRepository) Create(ctx context.Context, code *domain.AuthorizationCode) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func (m *MockCodeRepository) Get(ctx context.Context, code string) (*domain.AuthorizationCode, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuthorizationCode), args.Error(1)
}

func (m *MockCodeRepository) DeleteExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockConsentRepository is a mock implementation of domain.ConsentRepository
type MockConsentRepository struct {
	mock.Mock
}

func (m *MockConsentRepository) Find(ctx context.Context, userID ulid.ULID, clientID string) (*domain.Consent, error) {
	args := m.Called(ctx, userID, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Consent), args.Error(1)
}

func (m *MockConsentRepository) Upsert(ctx context.Context, consent *domain.Consent) error {
	args := m.Called(ctx, consent)
	return args.Error(0)
}

func (m *MockConsentRepository) Delete(ctx context.Context, userID ulid.ULID, clientID string) error {
	args := m.Called(ctx, userID, clientID)
	return args.Error(0)
}

// MockTokenRepository is a mock implementation of domain.TokenRepository
type MockTokenRepository struct {
	mock.Mock
}

func (m *MockTokenRepository) RedeemCode(ctx context.Context, code string, token *domain.RefreshToken) error {
	args := m.Called(ctx, code, token)
	return args.Error(0)
}

func (m *MockTokenRepository) FindByTokenHash(ctx context.Context, hash string) (*domain.RefreshToken, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RefreshToken), args.Error(1)
}

func (m *MockTokenRepository) Rotate(ctx context.Context, currentID ulid.ULID, successor *domain.RefreshToken) error {
	args := m.Called(ctx, currentID, successor)
	return args.Error(0)
}

func (m *MockTokenRepository) RevokeFamily(ctx context.Context, id ulid.ULID) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTokenRepository) RevokeByCode(ctx context.Context, code string) (int64, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockUserRepository is a mock implementation of domain.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByID(ctx context.Context, id ulid.ULID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
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
