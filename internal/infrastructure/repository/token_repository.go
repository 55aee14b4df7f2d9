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

// PostgresTokenRepository implements TokenRepository using PostgreSQL
type PostgresTokenRepository struct {
	db     *database.Postgres
	logger *zap.Logger
}

// NewTokenRepository creates a new PostgresTokenRepository
func NewTokenRepository(db *database.Postgres, logger *zap.Logger) domain.TokenRepository {
	return &PostgresTokenRepository{
		db:     db,
		logger: logger,
	}
}

// RedeemCode flips the code to consumed and stores the refresh token minted
// from it in one transaction. The consume is a conditional update so two
// racing exchanges cannot both pass; the loser sees zero rows.
func (r *PostgresTokenRepository) RedeemCode(ctx context.Context, code string, token *domain.RefreshToken) error {
	scopes, err := json.Marshal(token.Scopes)
	if err != nil {
		return err
	}

	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE authorization_codes
			SET consumed = true
			WHERE code = $1 AND NOT consumed AND expires_at > now()
		`, code)
		if err != nil {
			r.logger.Error("Failed to consume authorization code", zap.Error(err))
			return domain.ErrDatabaseQuery
		}

		if tag.RowsAffected() == 0 {
			// Either consumed already (replay) or absent/expired
			var consumed bool
			err := tx.QueryRow(ctx,
				"SELECT consumed FROM authorization_codes WHERE code = $1", code,
			).Scan(&consumed)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return domain.ErrInvalidAuthorizationCode
				}
				return domain.ErrDatabaseQuery
			}
			if consumed {
				return domain.ErrAuthorizationCodeReplayed
			}
			return domain.ErrInvalidAuthorizationCode
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO refresh_tokens (id, token_hash, user_id, client_id, scopes, code, rotated_from, revoked, expires_at, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, token.ID.String(), token.TokenHash, token.UserID.String(), token.ClientID, scopes,
			token.Code, rotatedFrom(token), token.Revoked, token.ExpiresAt, token.CreatedAt)
		if err != nil {
			r.logger.Error("Failed to store refresh token", zap.Error(err))
			return domain.ErrDatabaseQuery
		}
		return nil
	})
}

func (r *PostgresTokenRepository) FindByTokenHash(ctx context.Context, hash string) (*domain.RefreshToken, error) {
	token := &domain.RefreshToken{}
	var id, userID string
	var rotated *string
	var scopes []byte

	err := r.db.QueryRow(ctx, `
		SELECT id, token_hash, user_id, client_id, scopes, code, rotated_from, revoked, expires_at, created_at
		FROM refresh_tokens WHERE token_hash = $1
	`, hash).Scan(&id, &token.TokenHash, &userID, &token.ClientID, &scopes, &token.Code,
		&rotated, &token.Revoked, &token.ExpiresAt, &token.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInvalidRefreshToken
		}
		r.logger.Error("Failed to find refresh token", zap.Error(err))
		return nil, domain.ErrDatabaseQuery
	}

	token.ID, err = domain.ParseULID(id)
	if err != nil {
		return nil, domain.ErrDatabaseQuery
	}
	token.UserID, err = domain.ParseULID(userID)
	if err != nil {
		return nil, domain.ErrDatabaseQuery
	}
	if rotated != nil {
		parsed, err := domain.ParseULID(*rotated)
		if err != nil {
			return nil, domain.ErrDatabaseQuery
		}
		token.RotatedFrom = &parsed
	}

	if err := json.Unmarshal(scopes, &token.Scopes); err != nil {
		return nil, domain.ErrDatabaseQuery
	}

	return token, nil
}

// Rotate revokes the current token and inserts its successor in one
// transaction. The revoke is conditional on the token being live, so a
// concurrent refresh with the same token loses and surfaces as reuse.
func (r *PostgresTokenRepository) Rotate(ctx context.Context, currentID ulid.ULID, successor *domain.RefreshToken) error {
	scopes, err := json.Marshal(successor.Scopes)
	if err != nil {
		return err
	}

	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE refresh_tokens SET revoked = true WHERE id = $1 AND NOT revoked
		`, currentID.String())
		if err != nil {
			r.logger.Error("Failed to revoke refresh token", zap.Error(err))
			return domain.ErrDatabaseQuery
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrRefreshTokenReused
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO refresh_tokens (id, token_hash, user_id, client_id, scopes, code, rotated_from, revoked, expires_at, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, successor.ID.String(), successor.TokenHash, successor.UserID.String(), successor.ClientID, scopes,
			successor.Code, rotatedFrom(successor), successor.Revoked, successor.ExpiresAt, successor.CreatedAt)
		if err != nil {
			r.logger.Error("Failed to store rotated refresh token", zap.Error(err))
			return domain.ErrDatabaseQuery
		}
		return nil
	})
}

// RevokeFamily revokes every token reachable through the rotation chain.
// Walks up to the root first, then down over every descendant.
func (r *PostgresTokenRepository) RevokeFamily(ctx context.Context, id ulid.ULID) (int64, error) {
	tag, err := r.db.ExecRaw(ctx, `
		WITH RECURSIVE up AS (
			SELECT id, rotated_from FROM refresh_tokens WHERE id = $1
			UNION
			SELECT t.id, t.rotated_from FROM refresh_tokens t
			JOIN up ON up.rotated_from = t.id
		), family AS (
			SELECT id FROM up
			UNION
			SELECT t.id FROM refresh_tokens t
			JOIN family ON t.rotated_from = family.id
		)
		UPDATE refresh_tokens SET revoked = true
		WHERE id IN (SELECT id FROM family) AND NOT revoked
	`, id.String())
	if err != nil {
		r.logger.Error("Failed to revoke token family", zap.Error(err))
		return 0, domain.ErrDatabaseQuery
	}
	return tag.RowsAffected(), nil
}

// RevokeByCode revokes every token minted from the given authorization code
func (r *PostgresTokenRepository) RevokeByCode(ctx context.Context, code string) (int64, error) {
	tag, err := r.db.ExecRaw(ctx, `
		UPDATE refresh_tokens SET revoked = true WHERE code = $1 AND NOT revoked
	`, code)
	if err != nil {
		r.logger.Error("Failed to revoke tokens by code", zap.Error(err))
		return 0, domain.ErrDatabaseQuery
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.ExecRaw(ctx, "DELETE FROM refresh_tokens WHERE expires_at < now()")
	if err != nil {
		return 0, domain.ErrDatabaseQuery
	}
	return tag.RowsAffected(), nil
}

func rotatedFrom(token *domain.RefreshToken) *string {
	if token.RotatedFrom == nil {
		return nil
	}
	s := token.RotatedFrom.String()
	return &s
}
