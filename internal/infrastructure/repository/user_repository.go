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

// PostgresUserRepository implements UserRepository using PostgreSQL
type PostgresUserRepository struct {
	db     *database.Postgres
	logger *zap.Logger
}

// NewUserRepository creates a new PostgresUserRepository
func NewUserRepository(db *database.Postgres, logger *zap.Logger) domain.UserRepository {
	return &PostgresUserRepository{
		db:     db,
		logger: logger,
	}
}

func (r *PostgresUserRepository) FindByID(ctx context.Context, id ulid.ULID) (*domain.User, error) {
	user := &domain.User{}
	var userID string
	var roles []byte

	err := r.db.QueryRow(ctx, `
		SELECT id, name, email, email_verified, company, job_title, roles, created_at, updated_at
		FROM users WHERE id = $1
	`, id.String()).Scan(&userID, &user.Name, &user.Email, &user.EmailVerified,
		&user.Company, &user.JobTitle, &roles, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		r.logger.Error("Failed to find user", zap.Error(err))
		return nil, domain.ErrDatabaseQuery
	}

	user.ID, err = domain.ParseULID(userID)
	if err != nil {
		return nil, domain.ErrDatabaseQuery
	}
	if err := json.Unmarshal(roles, &user.Roles); err != nil {
		return nil, domain.ErrDatabaseQuery
	}

	return user, nil
}
