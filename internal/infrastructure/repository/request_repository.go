package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/ipede/authorization-server/internal/domain"
	"github.com/ipede/authorization-server/internal/infrastructure/database"
	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// PostgresAuthorizationRequestRepository implements AuthorizationRequestRepository using PostgreSQL
type PostgresAuthorizationRequestRepository struct {
	db     *database.Postgres
	logger *zap.Logger
}

// NewAuthorizationRequestRepository creates a new PostgresAuthorizationRequestRepository
func NewAuthorizationRequestRepository(db *database.Postgres, logger *zap.Logger) domain.AuthorizationRequestRepository {
	return &PostgresAuthorizationRequestRepository{
		db:     db,
		logger: logger,
	}
}

func (r *PostgresAuthorizationRequestRepository) Create(ctx context.Context, request *domain.AuthorizationRequest) error {
	scopes, err := json.Marshal(request.Scopes)
	if err != nil {
		return err
	}

	var userID *string
	if request.UserID != nil {
		s := request.UserID.String()
		userID = &s
	}

	err = r.db.Exec(ctx, `
		INSERT INTO authorization_requests (id, client_id, redirect_uri, scopes, state, code_challenge, code_challenge_method, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, request.ID.String(), request.ClientID, request.RedirectURI, scopes, request.State,
		request.CodeChallenge, request.CodeChallengeMethod, userID, request.CreatedAt, request.ExpiresAt)
	if err != nil {
		r.logger.Error("Failed to create authorization request", zap.Error(err))
		return domain.ErrDatabaseQuery
	}
	return nil
}

func (r *PostgresAuthorizationRequestRepository) Find(ctx context.Context, id ulid.ULID) (*domain.AuthorizationRequest, error) {
	request := &domain.AuthorizationRequest{}
	var requestID string
	var userID *string
	var scopes []byte

	err := r.db.QueryRow(ctx, `
		SELECT id, client_id, redirect_uri, scopes, state, code_challenge, code_challenge_method, user_id, created_at, expires_at
		FROM authorization_requests WHERE id = $1
	`, id.String()).Scan(&requestID, &request.ClientID, &request.RedirectURI, &scopes, &request.State,
		&request.CodeChallenge, &request.CodeChallengeMethod, &userID, &request.CreatedAt, &request.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAuthorizationRequestNotFound
		}
		r.logger.Error("Failed to find authorization request", zap.Error(err))
		return nil, domain.ErrDatabaseQuery
	}

	request.ID, err = domain.ParseULID(requestID)
	if err != nil {
		return nil, domain.ErrDatabaseQuery
	}
	if userID != nil {
		parsed, err := domain.ParseULID(*userID)
		if err != nil {
			return nil, domain.ErrDatabaseQuery
		}
		request.UserID = &parsed
	}
	if err := json.Unmarshal(scopes, &request.Scopes); err != nil {
		return nil, domain.ErrDatabaseQuery
	}

	return request, nil
}

func (r *PostgresAuthorizationRequestRepository) AttachUser(ctx context.Context, id ulid.ULID, userID ulid.ULID) error {
	tag, err := r.db.ExecRaw(ctx, `
		UPDATE authorization_requests SET user_id = $2 WHERE id = $1
	`, id.String(), userID.String())
	if err != nil {
		r.logger.Error("Failed to attach user to authorization request", zap.Error(err))
		return domain.ErrDatabaseQuery
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAuthorizationRequestNotFound
	}
	return nil
}

func (r *PostgresAuthorizationRequestRepository) Delete(ctx context.Context, id ulid.ULID) error {
	err := r.db.Exec(ctx, "DELETE FROM authorization_requests WHERE id = $1", id.String())
	if err != nil {
		r.logger.Error("Failed to delete authorization request", zap.Error(err))
		return domain.ErrDatabaseQuery
	}
	return nil
}

func (r *PostgresAuthorizationRequestRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.ExecRaw(ctx, "DELETE FROM authorization_requests WHERE expires_at < now()")
	if err != nil {
		return 0, domain.ErrDatabaseQuery
	}
	return tag.RowsAffected(), nil
}
