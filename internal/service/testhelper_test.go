package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/csvtree/csvtree-api/internal/config"
	"github.com/csvtree/csvtree-api/internal/database/migrations"
	"github.com/csvtree/csvtree-api/internal/engine"
	"github.com/csvtree/csvtree-api/internal/models"
	"github.com/csvtree/csvtree-api/internal/repository"
)

// discardLogger silences service logging in tests.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupTestDB creates an in-memory SQLite database with migrations applied.
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
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// setupTestRepos creates repositories backed by an in-memory database.
func setupTestRepos(t *testing.T) *repository.Repositories {
	t.Helper()
	return repository.NewRepositories(setupTestDB(t))
}

// testConfig returns a minimal config for service construction in tests.
func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:          "test-secret",
		EncryptionKey:      make([]byte, 32),
		MaxRecordsPerBatch: 100,
		MaxThumbnailBytes:  1 << 20,
	}
}

// insertProfile seeds a user profile with the given balance.
func insertProfile(t *testing.T, repos *repository.Repositories, userID string, credits int, tier string) {
	t.Helper()
	now := time.Now().UTC()
	err := repos.Profiles.Create(context.Background(), &models.UserProfile{
		UserID:        userID,
		Credits:       credits,
		MaxCredits:    credits,
		Tier:          tier,
		LastResetDate: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		t.Fatalf("failed to insert profile: %v", err)
	}
}

// insertBatchWithRecords seeds a pending batch with n pending records and
// returns the batch. Record ids are zero-padded so they sort in insert order.
func insertBatchWithRecords(t *testing.T, repos *repository.Repositories, batchID, userID string, n int, settings models.AppSettings) *models.Batch {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	settingsJSON, err := models.MarshalSettings(settings)
	if err != nil {
		t.Fatal(err)
	}
	batch := &models.Batch{
		ID:           batchID,
		UserID:       userID,
		Status:       models.BatchStatusPending,
		SettingsJSON: settingsJSON,
		TotalRecords: n,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repos.Batches.Create(ctx, batch); err != nil {
		t.Fatalf("failed to insert batch: %v", err)
	}

	for i := 0; i < n; i++ {
		record := &models.Record{
			ID:        batchID + "-rec-" + string(rune('a'+i)),
			UserID:    userID,
			BatchID:   batchID,
			FileName:  "photo-" + string(rune('a'+i)) + ".jpg",
			Thumbnail: "data:image/jpeg;base64,dGVzdA==",
			Status:    models.RecordStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := repos.Records.Create(ctx, record); err != nil {
			t.Fatalf("failed to insert record: %v", err)
		}
	}
	return batch
}

// mockProcessor is a scripted RecordProcessor. Results are consumed in call
// order; the last entry repeats once the script runs out. onProcess, when
// set, runs before each scripted result is returned.
type mockProcessor struct {
	mu        sync.Mutex
	results   []mockResult
	calls     int
	onProcess func(call int)
}

type mockResult struct {
	result *models.ExtractionResult
	err    error
}

func (m *mockProcessor) Process(ctx context.Context, cred engine.Credential, thumbnail string, settings models.AppSettings) (*models.ExtractionResult, error) {
	m.mu.Lock()
	idx := m.calls
	if idx >= len(m.results) {
		idx = len(m.results) - 1
	}
	m.calls++
	hook := m.onProcess
	m.mu.Unlock()

	if hook != nil {
		hook(idx)
	}
	r := m.results[idx]
	return r.result, r.err
}

func (m *mockProcessor) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func okResult(title string) mockResult {
	return mockResult{result: &models.ExtractionResult{
		Title:       title,
		Keywords:    models.FlexStringList{"sunset", "ocean"},
		Categories:  models.FlexStringList{"Nature"},
		Description: "A warm evening scene.",
	}}
}
