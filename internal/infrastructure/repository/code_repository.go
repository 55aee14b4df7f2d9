package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/ipede/authorization-server/internal/domain"
	"github.com/ipede/authorization-server/internal/infrastructure/database"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// PostgresCodeRepository implements AuthorizationCodeRepository using PostgreSQL
type PostgresCodeRepository struct {
	db     *database.Postgres
	logger *zap.Logger
}

// NewCodeRepository creates a new PostgresCodeRepository
func NewCodeRepository(db *database.Postgres, logger *zap.Logger) domain.AuthorizationCodeRepository {
	return &PostgresCodeRepository{
		db:     db,
		logger: logger,
	}
}

func (r *PostgresCodeRepository) Create(ctx context.Context, code *domain.AuthorizationCode) error {
	scopes, err := json.Marshal(code.Scopes)
	if err != nil {
		return err
	}

	return r.db.Exec(ctx, `
		INSERT INTO authorization_codes (code, client_id, user_id, redirect_uri, scopes, code_challenge, code_challenge_method, consumed, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, code.Code, code.ClientID, code.UserID.String(), code.RedirectURI, scopes,
		code.CodeChallenge, code.CodeChallengeMethod, code.Consumed, code.ExpiresAt, code.CreatedAt)
}

func (r *PostgresCodeRepository) Get(ctx context.Context, code string) (*domain.AuthorizationCode, error) {
	authCode := &domain.AuthorizationCode{}
	var userID string
	var scopes []byte

	err := r.db.QueryRow(ctx, `
		SELECT code, client_id, user_id, redirect_uri, scopes, code_challenge, code_challenge_method, consumed, expires_at, created_at
		FROM authorization_codes WHERE code = $1
	`, code).Scan(&authCode.Code, &authCode.ClientID, &userID, &authCode.RedirectURI, &scopes,
		&authCode.CodeChallenge, &authCode.CodeChallengeMethod, &authCode.Consumed, &authCode.ExpiresAt, &authCode.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInvalidAuthorizationCode
		}
		r.logger.Error("Failed to find authorization code", zap.Error(err))
		return nil, domain.ErrDatabaseQuery
	}

	authCode.UserID, err = domain.ParseULID(userID)
	if err != nil {
		return nil, domain.ErrDatabaseQuery
	}

	if err := json.Unmarshal(scopes, &authCode.Scopes); err != nil {
		return nil, domain.ErrDatabaseQuery
	}

	return authCode, nil
}

func (r *PostgresCodeRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.ExecRaw(ctx, "DELETE FROM authorization_codes WHERE expires_at < now()")
	if err != nil {
		return 0, domain.ErrDatabaseQuery
	}
	return tag.RowsAffected(), nil
}
