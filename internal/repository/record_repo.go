package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/csvtree/csvtree-api/internal/models"
)

// SQLiteRecordRepository implements RecordRepository for SQLite.
type SQLiteRecordRepository struct {
	db *sql.DB
}

// NewSQLiteRecordRepository creates a new SQLite record repository.
func NewSQLiteRecordRepository(db *sql.DB) *SQLiteRecordRepository {
	return &SQLiteRecordRepository{db: db}
}

const recordColumns = `id, user_id, batch_id, file_name, thumbnail, storage_key, status,
	title, keywords_json, categories_json, description, prompt, engine, error_message,
	created_at, updated_at`

func (r *SQLiteRecordRepository) Create(ctx context.Context, record *models.Record) error {
	keywordsJSON, err := marshalList(record.Keywords)
	if err != nil {
		return err
	}
	categoriesJSON, err := marshalList(record.Categories)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO records (id, user_id, batch_id, file_name, thumbnail, storage_key, status,
			title, keywords_json, categories_json, description, prompt, engine, error_message,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		record.ID,
		record.UserID,
		record.BatchID,
		record.FileName,
		nullString(record.Thumbnail),
		nullString(record.StorageKey),
		record.Status,
		nullString(record.Title),
		nullString(keywordsJSON),
		nullString(categoriesJSON),
		nullString(record.Description),
		nullString(record.Prompt),
		nullString(record.Engine),
		nullString(record.ErrorMessage),
		record.CreatedAt.Format(time.RFC3339),
		record.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to create record: %w", err)
	}
	return nil
}

func (r *SQLiteRecordRepository) GetByID(ctx context.Context, id string) (*models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE id = ?`
	return scanRecord(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteRecordRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE user_id = ? ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

func (r *SQLiteRecordRepository) GetByBatchID(ctx context.Context, batchID string) ([]*models.Record, error) {
	// ULIDs are time-ordered, so id ASC preserves submission order
	query := `SELECT ` + recordColumns + ` FROM records WHERE batch_id = ? ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query batch records: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

func (r *SQLiteRecordRepository) GetCompletedByBatchID(ctx context.Context, batchID string) ([]*models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE batch_id = ? AND status = 'completed' ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query completed records: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

func (r *SQLiteRecordRepository) Update(ctx context.Context, record *models.Record) error {
	keywordsJSON, err := marshalList(record.Keywords)
	if err != nil {
		return err
	}
	categoriesJSON, err := marshalList(record.Categories)
	if err != nil {
		return err
	}

	query := `
		UPDATE records SET status = ?, thumbnail = ?, storage_key = ?, title = ?,
			keywords_json = ?, categories_json = ?, description = ?, prompt = ?,
			engine = ?, error_message = ?, updated_at = ?
		WHERE id = ?
	`
	_, err = r.db.ExecContext(ctx, query,
		record.Status,
		nullString(record.Thumbnail),
		nullString(record.StorageKey),
		nullString(record.Title),
		nullString(keywordsJSON),
		nullString(categoriesJSON),
		nullString(record.Description),
		nullString(record.Prompt),
		nullString(record.Engine),
		nullString(record.ErrorMessage),
		time.Now().Format(time.RFC3339),
		record.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	return nil
}

func (r *SQLiteRecordRepository) ClaimForProcessing(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE records SET status = 'processing', error_message = NULL, updated_at = ? WHERE id = ? AND status = 'pending'",
		time.Now().Format(time.RFC3339),
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return affected > 0, nil
}

// ResetProcessingToPending reopens records stranded in processing state.
// Called on startup, when no runner is live, so every processing row is an
// orphan from an interrupted run.
func (r *SQLiteRecordRepository) ResetProcessingToPending(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE records SET status = 'pending', error_message = NULL, updated_at = ? WHERE status = 'processing'",
		time.Now().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to reset processing records: %w", err)
	}
	return result.RowsAffected()
}

func (r *SQLiteRecordRepository) ErrorPendingByBatchID(ctx context.Context, batchID, message string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE records SET status = 'error', error_message = ?, updated_at = ? WHERE batch_id = ? AND status = 'pending'",
		message,
		time.Now().Format(time.RFC3339),
		batchID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to error pending records: %w", err)
	}
	return result.RowsAffected()
}

func (r *SQLiteRecordRepository) Requeue(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE records SET status = 'pending', error_message = NULL, updated_at = ? WHERE id = ? AND status = 'error'",
		time.Now().Format(time.RFC3339),
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to requeue record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return affected > 0, nil
}

func (r *SQLiteRecordRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM records WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

func (r *SQLiteRecordRepository) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM records WHERE user_id = ?", userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user records: %w", err)
	}
	count, _ := result.RowsAffected()
	return count, nil
}

func (r *SQLiteRecordRepository) CountByBatchID(ctx context.Context, batchID string, status models.RecordStatus) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM records WHERE batch_id = ? AND status = ?",
		batchID, status,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecordFields(s rowScanner) (*models.Record, error) {
	var record models.Record
	var createdAt, updatedAt string
	var thumbnail, storageKey, title, keywordsJSON, categoriesJSON sql.NullString
	var description, prompt, engine, errorMessage sql.NullString

	err := s.Scan(
		&record.ID, &record.UserID, &record.BatchID, &record.FileName,
		&thumbnail, &storageKey, &record.Status,
		&title, &keywordsJSON, &categoriesJSON, &description, &prompt,
		&engine, &errorMessage, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Thumbnail = thumbnail.String
	record.StorageKey = storageKey.String
	record.Title = title.String
	record.Description = description.String
	record.Prompt = prompt.String
	record.Engine = engine.String
	record.ErrorMessage = errorMessage.String
	record.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	record.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	if keywordsJSON.Valid {
		if err := json.Unmarshal([]byte(keywordsJSON.String), &record.Keywords); err != nil {
			return nil, fmt.Errorf("failed to decode keywords: %w", err)
		}
	}
	if categoriesJSON.Valid {
		if err := json.Unmarshal([]byte(categoriesJSON.String), &record.Categories); err != nil {
			return nil, fmt.Errorf("failed to decode categories: %w", err)
		}
	}

	return &record, nil
}

func scanRecord(row *sql.Row) (*models.Record, error) {
	record, err := scanRecordFields(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan record: %w", err)
	}
	return record, nil
}

func collectRecords(rows *sql.Rows) ([]*models.Record, error) {
	var records []*models.Record
	for rows.Next() {
		record, err := scanRecordFields(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func marshalList(list []string) (string, error) {
	if len(list) == 0 {
		return "", nil
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("failed to encode list: %w", err)
	}
	return string(b), nil
}

// Helper functions
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339), Valid: true}
}
