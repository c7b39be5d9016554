package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/csvtree/csvtree-api/internal/config"
	"github.com/csvtree/csvtree-api/internal/models"
	"github.com/csvtree/csvtree-api/internal/repository"
)

// Errors returned by record submission and lookup.
var (
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("not owned by user")
	ErrEmptyBatch      = errors.New("batch contains no files")
	ErrBatchTooLarge   = errors.New("batch exceeds the record limit")
	ErrThumbnailSize   = errors.New("thumbnail too large")
	ErrInvalidSettings = errors.New("invalid settings")
	ErrInvalidUpload   = errors.New("invalid upload")
	ErrNotRequeueable  = errors.New("record is not in error state")
)

// RecordUpload is one file in a batch submission.
type RecordUpload struct {
	FileName  string
	Thumbnail string // data URI
}

// RecordService manages record and batch lifecycle outside the worker.
type RecordService struct {
	cfg     *config.Config
	repos   *repository.Repositories
	storage *StorageService
	logger  *slog.Logger
}

// NewRecordService creates a new record service.
func NewRecordService(cfg *config.Config, repos *repository.Repositories, storage *StorageService, logger *slog.Logger) *RecordService {
	return &RecordService{cfg: cfg, repos: repos, storage: storage, logger: logger}
}

// SubmitBatch creates a batch and its records in pending state. The settings
// snapshot is stored on the batch so later settings edits never touch a
// queued run. Records keep their submission order via ULID ids.
func (s *RecordService) SubmitBatch(ctx context.Context, userID string, uploads []RecordUpload, settings models.AppSettings) (*models.Batch, error) {
	if len(uploads) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(uploads) > s.cfg.MaxRecordsPerBatch {
		return nil, fmt.Errorf("%w: %d files, limit %d", ErrBatchTooLarge, len(uploads), s.cfg.MaxRecordsPerBatch)
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	for _, u := range uploads {
		if u.FileName == "" || u.Thumbnail == "" {
			return nil, fmt.Errorf("%w: every file needs a name and a thumbnail", ErrInvalidUpload)
		}
		if len(u.Thumbnail) > s.cfg.MaxThumbnailBytes {
			return nil, fmt.Errorf("%w: %s", ErrThumbnailSize, u.FileName)
		}
	}

	settingsJSON, err := models.MarshalSettings(settings)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	batch := &models.Batch{
		ID:           ulid.Make().String(),
		UserID:       userID,
		Status:       models.BatchStatusPending,
		SettingsJSON: settingsJSON,
		TotalRecords: len(uploads),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repos.Batches.Create(ctx, batch); err != nil {
		return nil, err
	}

	for _, u := range uploads {
		record := &models.Record{
			ID:        ulid.Make().String(),
			UserID:    userID,
			BatchID:   batch.ID,
			FileName:  u.FileName,
			Thumbnail: u.Thumbnail,
			Status:    models.RecordStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}

		// Offload the thumbnail when object storage is available; the
		// worker pulls it back for the provider call.
		if s.storage.IsEnabled() {
			key, err := s.storage.StoreThumbnail(ctx, record.ID, u.Thumbnail)
			if err != nil {
				s.logger.Warn("thumbnail offload failed, keeping inline", "record_id", record.ID, "error", err)
			} else {
				record.StorageKey = key
				record.Thumbnail = ""
			}
		}

		if err := s.repos.Records.Create(ctx, record); err != nil {
			return nil, err
		}
	}

	s.logger.Info("batch submitted", "batch_id", batch.ID, "user_id", userID, "records", len(uploads))
	return batch, nil
}

// GetRecord returns one record, enforcing ownership.
func (s *RecordService) GetRecord(ctx context.Context, userID, recordID string) (*models.Record, error) {
	record, err := s.repos.Records.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrNotFound
	}
	if record.UserID != userID {
		return nil, ErrForbidden
	}
	return record, nil
}

// ListRecords returns a user's records, newest batch first within the page.
func (s *RecordService) ListRecords(ctx context.Context, userID string, limit, offset int) ([]*models.Record, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.repos.Records.GetByUserID(ctx, userID, limit, offset)
}

// DeleteRecord removes a record and its offloaded thumbnail.
func (s *RecordService) DeleteRecord(ctx context.Context, userID, recordID string) error {
	record, err := s.GetRecord(ctx, userID, recordID)
	if err != nil {
		return err
	}
	if record.StorageKey != "" {
		if err := s.storage.DeleteThumbnail(ctx, record.StorageKey); err != nil {
			s.logger.Warn("failed to delete offloaded thumbnail", "record_id", recordID, "error", err)
		}
	}
	return s.repos.Records.Delete(ctx, recordID)
}

// ClearRecords removes all of a user's records.
func (s *RecordService) ClearRecords(ctx context.Context, userID string) (int64, error) {
	return s.repos.Records.DeleteByUserID(ctx, userID)
}

// RequeueRecord puts an errored record back to pending and reopens its batch
// so the worker picks it up again.
func (s *RecordService) RequeueRecord(ctx context.Context, userID, recordID string) error {
	record, err := s.GetRecord(ctx, userID, recordID)
	if err != nil {
		return err
	}

	ok, err := s.repos.Records.Requeue(ctx, recordID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRequeueable, recordID)
	}

	batch, err := s.repos.Batches.GetByID(ctx, record.BatchID)
	if err != nil {
		return err
	}
	if batch != nil && (batch.Status == models.BatchStatusCompleted || batch.Status == models.BatchStatusHalted) {
		batch.Status = models.BatchStatusPending
		batch.HaltReason = ""
		batch.HaltMessage = ""
		batch.CompletedAt = nil
		if err := s.repos.Batches.Update(ctx, batch); err != nil {
			return err
		}
	}

	s.logger.Info("record requeued", "record_id", recordID, "batch_id", record.BatchID)
	return nil
}

// GetBatch returns a batch with ownership enforced.
func (s *RecordService) GetBatch(ctx context.Context, userID, batchID string) (*models.Batch, error) {
	batch, err := s.repos.Batches.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, ErrNotFound
	}
	if batch.UserID != userID {
		return nil, ErrForbidden
	}
	return batch, nil
}

// ListBatches returns a user's batches, newest first.
func (s *RecordService) ListBatches(ctx context.Context, userID string, limit, offset int) ([]*models.Batch, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repos.Batches.GetByUserID(ctx, userID, limit, offset)
}

// BatchRecords returns the records of a batch with ownership enforced.
func (s *RecordService) BatchRecords(ctx context.Context, userID, batchID string) ([]*models.Record, error) {
	if _, err := s.GetBatch(ctx, userID, batchID); err != nil {
		return nil, err
	}
	return s.repos.Records.GetByBatchID(ctx, batchID)
}
