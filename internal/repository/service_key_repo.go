package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/csvtree/csvtree-api/internal/models"
)

// SQLiteServiceKeyRepository implements ServiceKeyRepository for SQLite.
type SQLiteServiceKeyRepository struct {
	db *sql.DB
}

// NewSQLiteServiceKeyRepository creates a new SQLite service key repository.
func NewSQLiteServiceKeyRepository(db *sql.DB) *SQLiteServiceKeyRepository {
	return &SQLiteServiceKeyRepository{db: db}
}

func (r *SQLiteServiceKeyRepository) Upsert(ctx context.Context, key *models.ServiceKey) error {
	query := `
		INSERT INTO service_keys (provider, api_key_encrypted, is_enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(provider) DO UPDATE SET
			api_key_encrypted = excluded.api_key_encrypted,
			is_enabled = excluded.is_enabled,
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		key.Provider,
		key.APIKeyEncrypted,
		boolToInt(key.IsEnabled),
		key.CreatedAt.Format(time.RFC3339),
		key.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert service key: %w", err)
	}
	return nil
}

func (r *SQLiteServiceKeyRepository) Get(ctx context.Context, provider string) (*models.ServiceKey, error) {
	query := `
		SELECT provider, api_key_encrypted, is_enabled, created_at, updated_at
		FROM service_keys WHERE provider = ?
	`
	key, err := scanServiceKeyFields(r.db.QueryRowContext(ctx, query, provider))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan service key: %w", err)
	}
	return key, nil
}

func (r *SQLiteServiceKeyRepository) List(ctx context.Context) ([]*models.ServiceKey, error) {
	query := `
		SELECT provider, api_key_encrypted, is_enabled, created_at, updated_at
		FROM service_keys ORDER BY provider ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query service keys: %w", err)
	}
	defer rows.Close()

	var keys []*models.ServiceKey
	for rows.Next() {
		key, err := scanServiceKeyFields(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan service key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (r *SQLiteServiceKeyRepository) Delete(ctx context.Context, provider string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM service_keys WHERE provider = ?", provider)
	if err != nil {
		return fmt.Errorf("failed to delete service key: %w", err)
	}
	return nil
}

func scanServiceKeyFields(s rowScanner) (*models.ServiceKey, error) {
	var key models.ServiceKey
	var isEnabled int
	var createdAt, updatedAt string

	err := s.Scan(&key.Provider, &key.APIKeyEncrypted, &isEnabled, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	key.IsEnabled = isEnabled != 0
	key.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	key.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return &key, nil
}
