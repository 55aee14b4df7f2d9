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

// PostgresClientRepository implements ClientRepository using PostgreSQL
type PostgresClientRepository struct {
	db     *database.Postgres
	logger *zap.Logger
}

// NewClientRepository creates a new PostgresClientRepository
func NewClientRepository(db *database.Postgres, logger *zap.Logger) domain.ClientRepository {
	return &PostgresClientRepository{
		db:     db,
		logger: logger,
	}
}

func (r *PostgresClientRepository) Create(ctx context.Context, client *domain.Client) error {
	redirectURIs, err := json.Marshal(client.RedirectURIs)
	if err != nil {
		return err
	}

	grantTypes, err := json.Marshal(client.GrantTypes)
	if err != nil {
		return err
	}

	return r.db.Exec(ctx, `
		INSERT INTO oauth_clients (id, client_id, secret_hash, name, redirect_uris, grant_types, pkce_required, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, client.ID.String(), client.ClientID, client.SecretHash, client.Name, redirectURIs, grantTypes,
		client.PKCERequired, client.CreatedAt, client.UpdatedAt)
}

func (r *PostgresClientRepository) FindByClientID(ctx context.Context, clientID string) (*domain.Client, error) {
	client := &domain.Client{}
	var id string
	var redirectURIs, grantTypes []byte

	err := r.db.QueryRow(ctx, `
		SELECT id, client_id, secret_hash, name, redirect_uris, grant_types, pkce_required, created_at, updated_at
		FROM oauth_clients WHERE client_id = $1
	`, clientID).Scan(&id, &client.ClientID, &client.SecretHash, &client.Name, &redirectURIs, &grantTypes,
		&client.PKCERequired, &client.CreatedAt, &client.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrClientNotFound
		}
		r.logger.Error("Failed to find client", zap.String("client_id", clientID), zap.Error(err))
		return nil, domain.ErrDatabaseQuery
	}

	client.ID, err = domain.ParseULID(id)
	if err != nil {
		return nil, domain.ErrDatabaseQuery
	}

	if err := json.Unmarshal(redirectURIs, &client.RedirectURIs); err != nil {
		return nil, domain.ErrDatabaseQuery
	}
	if err := json.Unmarshal(grantTypes, &client.GrantTypes); err != nil {
		return nil, domain.ErrDatabaseQuery
	}

	return client, nil
}

func (r *PostgresClientRepository) Update(ctx context.Context, client *domain.Client) error {
	redirectURIs, err := json.Marshal(client.RedirectURIs)
	if err != nil {
		return err
	}

	grantTypes, err := json.Marshal(client.GrantTypes)
	if err != nil {
		return err
	}

	return r.db.Exec(ctx, `
		UPDATE oauth_clients
		SET secret_hash = $1, name = $2, redirect_uris = $3, grant_types = $4, pkce_required = $5, updated_at = $6
		WHERE client_id = $7
	`, client.SecretHash, client.Name, redirectURIs, grantTypes, client.PKCERequired, client.UpdatedAt, client.ClientID)
}

func (r *PostgresClientRepository) Delete(ctx context.Context, clientID string) error {
	return r.db.Exec(ctx, "DELETE FROM oauth_clients WHERE client_id = $1", clientID)
}

func (r *PostgresClientRepository) List(ctx context.Context) ([]*domain.Client, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, client_id, secret_hash, name, redirect_uris, grant_types, pkce_required, created_at, updated_at
		FROM oauth_clients
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, domain.ErrDatabaseQuery
	}
	defer rows.Close()

	var clients []*domain.Client
	for rows.Next() {
		client := &domain.Client{}
		var id string
		var redirectURIs, grantTypes []byte

		err := rows.Scan(&id, &client.ClientID, &client.SecretHash, &client.Name, &redirectURIs, &grantTypes,
			&client.PKCERequired, &client.CreatedAt, &client.UpdatedAt)
		if err != nil {
			return nil, domain.ErrDatabaseQuery
		}

		client.ID, err = domain.ParseULID(id)
		if err != nil {
			return nil, domain.ErrDatabaseQuery
		}

		if err := json.Unmarshal(redirectURIs, &client.RedirectURIs); err != nil {
			return nil, domain.ErrDatabaseQuery
		}
		if err := json.Unmarshal(grantTypes, &client.GrantTypes); err != nil {
			return nil, domain.ErrDatabaseQuery
		}

		clients = append(clients, client)
	}
	return clients, rows.Err()
}
