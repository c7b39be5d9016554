package repository

import (
	"database/sql"
	"testing"
	"time"

	"github.com/csvtree/csvtree-api/internal/database/migrations"
	"github.com/csvtree/csvtree-api/internal/models"
	_ "github.com/tursodatabase/go-libsql"
)

// setupTestDB creates an in-memory SQLite database for testing.
// It runs migrations and returns a database connection that will be cleaned up
// when the test completes.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("libsql", ":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if err := migrations.Run(db, nil); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// setupTestRepos creates all repositories using a test database.
func setupTestRepos(t *testing.T) *Repositories {
	t.Helper()
	db := setupTestDB(t)
	return NewRepositories(db)
}

// InsertTestProfile is a helper to insert a test user profile directly.
func InsertTestProfile(t *testing.T, db *sql.DB, userID string, credits int, tier string) {
	t.Helper()
	query := `
		INSERT INTO user_profiles (user_id, email, credits, max_credits, tier, last_reset_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, datetime('now'), datetime('now'), datetime('now'))
	`
	if _, err := db.Exec(query, userID, userID+"@example.com", credits, credits, tier); err != nil {
		t.Fatalf("failed to insert test profile: %v", err)
	}
}

// InsertTestBatch is a helper to insert a test batch directly.
func InsertTestBatch(t *testing.T, db *sql.DB, id, userID, status string, total int) {
	t.Helper()
	query := `
		INSERT INTO batches (id, user_id, status, settings_json, total_records, created_at, updated_at)
		VALUES (?, ?, ?, '{}', ?, datetime('now'), datetime('now'))
	`
	if _, err := db.Exec(query, id, userID, status, total); err != nil {
		t.Fatalf("failed to insert test batch: %v", err)
	}
}

// InsertTestRecord is a helper to insert a test record directly.
func InsertTestRecord(t *testing.T, db *sql.DB, id, userID, batchID, status string) {
	t.Helper()
	query := `
		INSERT INTO records (id, user_id, batch_id, file_name, thumbnail, status, created_at, updated_at)
		VALUES (?, ?, ?, 'photo.jpg', 'data:image/jpeg;base64,abc', ?, datetime('now'), datetime('now'))
	`
	if _, err := db.Exec(query, id, userID, batchID, status); err != nil {
		t.Fatalf("failed to insert test record: %v", err)
	}
}

// newTestRecord returns a record with the timestamps set, for Create tests.
func newTestRecord(id, userID, batchID string) *models.Record {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.Record{
		ID:        id,
		UserID:    userID,
		BatchID:   batchID,
		FileName:  "photo.jpg",
		Thumbnail: "data:image/jpeg;base64,abc",
		Status:    models.RecordStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
