package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/csvtree/csvtree-api/internal/models"
)

// SQLiteProviderKeyRepository implements ProviderKeyRepository for SQLite.
type SQLiteProviderKeyRepository struct {
	db *sql.DB
}

// NewSQLiteProviderKeyRepository creates a new SQLite provider key repository.
func NewSQLiteProviderKeyRepository(db *sql.DB) *SQLiteProviderKeyRepository {
	return &SQLiteProviderKeyRepository{db: db}
}

// Upsert inserts or replaces a user's key for one provider. A user holds at
// most one key per provider, enforced by the UNIQUE(user_id, provider) index.
func (r *SQLiteProviderKeyRepository) Upsert(ctx context.Context, key *models.ProviderKey) error {
	query := `
		INSERT INTO provider_keys (id, user_id, provider, api_key_encrypted, is_enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, provider) DO UPDATE SET
			api_key_encrypted = excluded.api_key_encrypted,
			is_enabled = excluded.is_enabled,
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		key.ID,
		key.UserID,
		key.Provider,
		key.APIKeyEncrypted,
		boolToInt(key.IsEnabled),
		key.CreatedAt.Format(time.RFC3339),
		key.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert provider key: %w", err)
	}
	return nil
}

func (r *SQLiteProviderKeyRepository) GetByUserAndProvider(ctx context.Context, userID, provider string) (*models.ProviderKey, error) {
	query := `
		SELECT id, user_id, provider, api_key_encrypted, is_enabled, created_at, updated_at
		FROM provider_keys WHERE user_id = ? AND provider = ?
	`
	key, err := scanProviderKeyFields(r.db.QueryRowContext(ctx, query, userID, provider))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan provider key: %w", err)
	}
	return key, nil
}

func (r *SQLiteProviderKeyRepository) GetByUserID(ctx context.Context, userID string) ([]*models.ProviderKey, error) {
	query := `
		SELECT id, user_id, provider, api_key_encrypted, is_enabled, created_at, updated_at
		FROM provider_keys WHERE user_id = ? ORDER BY provider ASC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query provider keys: %w", err)
	}
	defer rows.Close()

	var keys []*models.ProviderKey
	for rows.Next() {
		key, err := scanProviderKeyFields(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan provider key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (r *SQLiteProviderKeyRepository) Delete(ctx context.Context, userID, provider string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM provider_keys WHERE user_id = ? AND provider = ?",
		userID, provider,
	)
	if err != nil {
		return fmt.Errorf("failed to delete provider key: %w", err)
	}
	return nil
}

func scanProviderKeyFields(s rowScanner) (*models.ProviderKey, error) {
	var key models.ProviderKey
	var isEnabled int
	var createdAt, updatedAt string

	err := s.Scan(
		&key.ID, &key.UserID, &key.Provider, &key.APIKeyEncrypted,
		&isEnabled, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	key.IsEnabled = isEnabled != 0
	key.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	key.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return &key, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
