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

// PostgresConsentRepository implements ConsentRepository using PostgreSQL
type PostgresConsentRepository struct {
	db     *database.Postgres
	logger *zap.Logger
}

// NewConsentRepository creates a new PostgresConsentRepository
func NewConsentRepository(db *database.Postgres, logger *zap.Logger) domain.ConsentRepository {
	return &PostgresConsentRepository{
		db:     db,
		logger: logger,
	}
}

func (r *PostgresConsentRepository) Find(ctx context.Context, userID ulid.ULID, clientID string) (*domain.Consent, error) {
	consent := &domain.Consent{ClientID: clientID}
	var id string
	var scopes []byte

	err := r.db.QueryRow(ctx, `
		SELECT user_id, granted_scopes, granted_at
		FROM consents WHERE user_id = $1 AND client_id = $2
	`, userID.String(), clientID).Scan(&id, &scopes, &consent.GrantedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrConsentNotFound
		}
		r.logger.Error("Failed to find consent", zap.Error(err))
		return nil, domain.ErrDatabaseQuery
	}

	consent.UserID, err = domain.ParseULID(id)
	if err != nil {
		return nil, domain.ErrDatabaseQuery
	}
	if err := json.Unmarshal(scopes, &consent.GrantedScopes); err != nil {
		return nil, domain.ErrDatabaseQuery
	}

	return consent, nil
}

// Upsert replaces the stored grant for the user/client pair. Callers pass the
// union of old and new scopes, so the stored set only ever grows.
func (r *PostgresConsentRepository) Upsert(ctx context.Context, consent *domain.Consent) error {
	scopes, err := json.Marshal(consent.GrantedScopes)
	if err != nil {
		return err
	}

	err = r.db.Exec(ctx, `
		INSERT INTO consents (user_id, client_id, granted_scopes, granted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, client_id)
		DO UPDATE SET granted_scopes = EXCLUDED.granted_scopes, granted_at = EXCLUDED.granted_at
	`, consent.UserID.String(), consent.ClientID, scopes, consent.GrantedAt)
	if err != nil {
		r.logger.Error("Failed to upsert consent", zap.Error(err))
		return domain.ErrDatabaseQuery
	}
	return nil
}

func (r *PostgresConsentRepository) Delete(ctx context.Context, userID ulid.ULID, clientID string) error {
	err := r.db.Exec(ctx, `
		DELETE FROM consents WHERE user_id = $1 AND client_id = $2
	`, userID.String(), clientID)
	if err != nil {
		r.logger.Error("Failed to delete consent", zap.Error(err))
		return domain.ErrDatabaseQuery
	}
	return nil
}
