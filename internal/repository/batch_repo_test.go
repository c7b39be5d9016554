package repository

import (
	"context"
	"testing"
	"time"

	"github.com/csvtree/csvtree-api/internal/models"
)

func TestBatchCreateAndGet(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	batch := &models.Batch{
		ID:           "batch-1",
		UserID:       "user-1",
		Status:       models.BatchStatusPending,
		SettingsJSON: `{"mode":"Metadata"}`,
		TotalRecords: 5,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repos.Batches.Create(ctx, batch); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	got, err := repos.Batches.GetByID(ctx, "batch-1")
	if err != nil {
		t.Fatalf("GetByID() error: %v", err)
	}
	if got == nil {
		t.Fatal("expected batch, got nil")
	}
	if got.TotalRecords != 5 || got.SettingsJSON != `{"mode":"Metadata"}` {
		t.Errorf("unexpected batch: %+v", got)
	}
}

func TestBatchClaimPending(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteBatchRepository(db)
	ctx := context.Background()

	got, err := repo.ClaimPending(ctx)
	if err != nil {
		t.Fatalf("ClaimPending() error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil with no pending batches, got %+v", got)
	}

	InsertTestBatch(t, db, "batch-old", "user-1", "pending", 1)
	time.Sleep(1100 * time.Millisecond) // created_at has second resolution
	InsertTestBatch(t, db, "batch-new", "user-2", "pending", 1)

	got, err = repo.ClaimPending(ctx)
	if err != nil {
		t.Fatalf("ClaimPending() error: %v", err)
	}
	if got == nil {
		t.Fatal("expected to claim a batch")
	}
	if got.ID != "batch-old" {
		t.Errorf("claimed %q, want oldest batch-old", got.ID)
	}
	if got.Status != models.BatchStatusRunning {
		t.Errorf("status = %q, want running", got.Status)
	}
	if got.StartedAt == nil {
		t.Error("started_at not set on claim")
	}

	// The claimed batch must not be claimable again.
	got, err = repo.ClaimPending(ctx)
	if err != nil {
		t.Fatalf("ClaimPending() error: %v", err)
	}
	if got == nil || got.ID != "batch-new" {
		t.Errorf("second claim = %+v, want batch-new", got)
	}
}

func TestBatchUpdateHalt(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteBatchRepository(db)
	ctx := context.Background()

	InsertTestBatch(t, db, "batch-1", "user-1", "running", 3)

	batch, _ := repo.GetByID(ctx, "batch-1")
	now := time.Now()
	batch.Status = models.BatchStatusHalted
	batch.HaltReason = models.HaltReasonCredits
	batch.HaltMessage = "Out of credits"
	batch.CompletedAt = &now
	if err := repo.Update(ctx, batch); err != nil {
		t.Fatalf("Update() error: %v", err)
	}

	got, _ := repo.GetByID(ctx, "batch-1")
	if got.Status != models.BatchStatusHalted || got.HaltReason != models.HaltReasonCredits {
		t.Errorf("halt not persisted: %+v", got)
	}
	if got.CompletedAt == nil {
		t.Error("completed_at not persisted")
	}
}

func TestMarkStaleRunningHalted(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteBatchRepository(db)
	ctx := context.Background()

	stale := time.Now().Add(-2 * time.Hour).Format(time.RFC3339)
	if _, err := db.Exec(
		`INSERT INTO batches (id, user_id, status, settings_json, total_records, started_at, created_at, updated_at)
		 VALUES ('batch-stale', 'user-1', 'running', '{}', 1, ?, ?, ?)`,
		stale, stale, stale,
	); err != nil {
		t.Fatal(err)
	}
	InsertTestBatch(t, db, "batch-fresh", "user-1", "pending", 1)

	count, err := repo.MarkStaleRunningHalted(ctx, time.Hour)
	if err != nil {
		t.Fatalf("MarkStaleRunningHalted() error: %v", err)
	}
	if count != 1 {
		t.Errorf("halted %d batches, want 1", count)
	}

	got, _ := repo.GetByID(ctx, "batch-stale")
	if got.Status != models.BatchStatusHalted {
		t.Errorf("stale batch status = %q, want halted", got.Status)
	}
	if got.HaltReason != models.HaltReasonRestart {
		t.Errorf("halt reason = %q, want %q", got.HaltReason, models.HaltReasonRestart)
	}
	if got.HaltMessage == "" {
		t.Error("halt message not set")
	}
	fresh, _ := repo.GetByID(ctx, "batch-fresh")
	if fresh.Status != models.BatchStatusPending {
		t.Errorf("fresh batch status = %q, want pending", fresh.Status)
	}
}
