package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/csvtree/csvtree-api/internal/models"
)

// SQLiteBatchRepository implements BatchRepository for SQLite.
type SQLiteBatchRepository struct {
	db *sql.DB
}

// NewSQLiteBatchRepository creates a new SQLite batch repository.
func NewSQLiteBatchRepository(db *sql.DB) *SQLiteBatchRepository {
	return &SQLiteBatchRepository{db: db}
}

const batchColumns = `id, user_id, status, settings_json, total_records, completed_count,
	failed_count, halt_reason, halt_message, started_at, completed_at, created_at, updated_at`

func (r *SQLiteBatchRepository) Create(ctx context.Context, batch *models.Batch) error {
	query := `
		INSERT INTO batches (id, user_id, status, settings_json, total_records, completed_count,
			failed_count, halt_reason, halt_message, started_at, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		batch.ID,
		batch.UserID,
		batch.Status,
		batch.SettingsJSON,
		batch.TotalRecords,
		batch.CompletedCount,
		batch.FailedCount,
		nullString(batch.HaltReason),
		nullString(batch.HaltMessage),
		nullTime(batch.StartedAt),
		nullTime(batch.CompletedAt),
		batch.CreatedAt.Format(time.RFC3339),
		batch.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to create batch: %w", err)
	}
	return nil
}

func (r *SQLiteBatchRepository) GetByID(ctx context.Context, id string) (*models.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM batches WHERE id = ?`
	return scanBatch(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteBatchRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM batches WHERE user_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer rows.Close()

	var batches []*models.Batch
	for rows.Next() {
		batch, err := scanBatchFields(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		batches = append(batches, batch)
	}
	return batches, rows.Err()
}

func (r *SQLiteBatchRepository) Update(ctx context.Context, batch *models.Batch) error {
	query := `
		UPDATE batches SET status = ?, completed_count = ?, failed_count = ?,
			halt_reason = ?, halt_message = ?, started_at = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
	`
	_, err := r.db.ExecContext(ctx, query,
		batch.Status,
		batch.CompletedCount,
		batch.FailedCount,
		nullString(batch.HaltReason),
		nullString(batch.HaltMessage),
		nullTime(batch.StartedAt),
		nullTime(batch.CompletedAt),
		time.Now().Format(time.RFC3339),
		batch.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update batch: %w", err)
	}
	return nil
}

func (r *SQLiteBatchRepository) ClaimPending(ctx context.Context) (*models.Batch, error) {
	// Begin transaction (SQLite/libsql doesn't support custom isolation levels)
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	// Use UPDATE ... RETURNING to atomically claim and fetch in one statement
	now := time.Now().Format(time.RFC3339)
	query := `
		UPDATE batches
		SET status = 'running', started_at = ?, updated_at = ?
		WHERE id = (
			SELECT id FROM batches
			WHERE status = 'pending'
			ORDER BY created_at ASC
			LIMIT 1
		)
		RETURNING ` + batchColumns

	batch, err := scanBatch(tx.QueryRowContext(ctx, query, now, now))
	if err == sql.ErrNoRows || batch == nil {
		// No pending batches - this is normal, not an error
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim batch: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true

	return batch, nil
}

// MarkStaleRunningHalted halts batches left in running state longer than
// maxAge, used to recover after a restart mid-run.
func (r *SQLiteBatchRepository) MarkStaleRunningHalted(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge).Format(time.RFC3339)
	now := time.Now().Format(time.RFC3339)

	query := `
		UPDATE batches
		SET status = ?, halt_reason = ?, halt_message = ?, completed_at = ?, updated_at = ?
		WHERE status = ? AND started_at < ?
	`
	result, err := r.db.ExecContext(ctx, query,
		models.BatchStatusHalted,
		models.HaltReasonRestart,
		"Batch terminated: server restart or timeout",
		now,
		now,
		models.BatchStatusRunning,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark stale batches halted: %w", err)
	}

	count, _ := result.RowsAffected()
	return count, nil
}

func scanBatchFields(s rowScanner) (*models.Batch, error) {
	var batch models.Batch
	var createdAt, updatedAt string
	var haltReason, haltMessage, startedAt, completedAt sql.NullString

	err := s.Scan(
		&batch.ID, &batch.UserID, &batch.Status, &batch.SettingsJSON,
		&batch.TotalRecords, &batch.CompletedCount, &batch.FailedCount,
		&haltReason, &haltMessage, &startedAt, &completedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	batch.HaltReason = haltReason.String
	batch.HaltMessage = haltMessage.String
	batch.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	batch.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	if startedAt.Valid {
		t, _ := time.Parse(time.RFC3339, startedAt.String)
		batch.StartedAt = &t
	}
	if completedAt.Valid {
		t, _ := time.Parse(time.RFC3339, completedAt.String)
		batch.CompletedAt = &t
	}

	return &batch, nil
}

func scanBatch(row *sql.Row) (*models.Batch, error) {
	batch, err := scanBatchFields(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan batch: %w", err)
	}
	return batch, nil
}
