package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/csvtree/csvtree-api/internal/constants"
	"github.com/csvtree/csvtree-api/internal/engine"
	"github.com/csvtree/csvtree-api/internal/models"
	"github.com/csvtree/csvtree-api/internal/repository"
)

// BatchRunner processes a claimed batch: one record at a time, in submission
// order, charging one credit per record on provider success.
//
// Halt policy: a credential-class failure stops the run immediately and the
// remaining records stay pending, to be picked up unchanged once the user
// fixes their keys and requeues. An empty balance also stops the run, but
// errors the remaining records since no top-up is guaranteed to come.

// RecordProcessor is the provider call seam. *VisionClient is the production
// implementation.
type RecordProcessor interface {
	Process(ctx context.Context, cred engine.Credential, thumbnail string, settings models.AppSettings) (*models.ExtractionResult, error)
}

type BatchRunner struct {
	repos   *repository.Repositories
	client  RecordProcessor
	keys    *ProviderKeyService
	credits *CreditService
	storage *StorageService
	logger  *slog.Logger
}

// NewBatchRunner creates a new batch runner.
func NewBatchRunner(repos *repository.Repositories, client RecordProcessor, keys *ProviderKeyService, credits *CreditService, storage *StorageService, logger *slog.Logger) *BatchRunner {
	return &BatchRunner{
		repos:   repos,
		client:  client,
		keys:    keys,
		credits: credits,
		storage: storage,
		logger:  logger,
	}
}

// Run processes every pending record of an already-claimed batch. It always
// leaves the batch in a terminal state (completed or halted) unless the
// context is cancelled mid-run.
func (r *BatchRunner) Run(ctx context.Context, batch *models.Batch) error {
	logger := r.logger.With("batch_id", batch.ID, "user_id", batch.UserID)

	settings, err := models.UnmarshalSettings(batch.SettingsJSON)
	if err != nil {
		return r.halt(ctx, batch, models.HaltReasonCredentials, "Batch settings could not be read.")
	}

	creds, err := r.keys.ResolveCredentials(ctx, batch.UserID)
	if err != nil {
		return err
	}
	cred, err := engine.Select(creds)
	if err != nil {
		if errors.Is(err, engine.ErrNoCredentials) {
			logger.Warn("no provider credentials for batch")
			return r.halt(ctx, batch, models.HaltReasonCredentials,
				"No vision provider key is configured. Add your own key or contact support.")
		}
		return err
	}
	logger.Info("batch run starting", "provider", cred.Provider, "byok", cred.UserOwned)

	records, err := r.repos.Records.GetByBatchID(ctx, batch.ID)
	if err != nil {
		return err
	}

	for _, record := range records {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if record.Status != models.RecordStatusPending {
			continue
		}

		// An empty balance is checked before any claim or provider call.
		// The current record and every record still waiting error out and
		// the run halts.
		balance, _, err := r.credits.Balance(ctx, batch.UserID)
		if err != nil {
			return err
		}
		if balance < constants.CreditCostPerRecord {
			logger.Warn("balance exhausted mid-batch", "record_id", record.ID)
			return r.haltOutOfCredits(ctx, batch)
		}

		claimed, err := r.repos.Records.ClaimForProcessing(ctx, record.ID)
		if err != nil {
			return err
		}
		if !claimed {
			continue
		}

		if err := r.processRecord(ctx, record, cred, settings); err != nil {
			// A concurrent run drained the balance between the check and the
			// charge. The provider result cannot be paid for, so it is
			// discarded rather than given away.
			if errors.Is(err, ErrInsufficientCredits) {
				record.Status = models.RecordStatusError
				record.ErrorMessage = "Out of credits"
				if uerr := r.repos.Records.Update(ctx, record); uerr != nil {
					logger.Error("failed to persist record error", "record_id", record.ID, "error", uerr)
				}
				logger.Warn("balance drained during provider call", "record_id", record.ID)
				return r.haltOutOfCredits(ctx, batch)
			}

			var perr *engine.ProviderError
			if errors.As(err, &perr) && perr.Halt {
				record.Status = models.RecordStatusError
				record.ErrorMessage = perr.UserMessage
				if uerr := r.repos.Records.Update(ctx, record); uerr != nil {
					logger.Error("failed to persist record error", "record_id", record.ID, "error", uerr)
				}
				logger.Warn("credential failure, halting batch",
					"record_id", record.ID,
					"provider", perr.Provider,
					"status_code", perr.StatusCode,
				)
				return r.halt(ctx, batch, models.HaltReasonCredentials, perr.UserMessage)
			}

			// Per-record failure: record the error, keep going.
			record.Status = models.RecordStatusError
			record.ErrorMessage = err.Error()
			if uerr := r.repos.Records.Update(ctx, record); uerr != nil {
				logger.Error("failed to persist record error", "record_id", record.ID, "error", uerr)
			}
			logger.Warn("record failed", "record_id", record.ID, "error", err)
			continue
		}
	}

	return r.finish(ctx, batch, logger)
}

// processRecord runs the provider call for one claimed record and persists
// the outcome on success.
func (r *BatchRunner) processRecord(ctx context.Context, record *models.Record, cred engine.Credential, settings models.AppSettings) error {
	thumbnail := record.Thumbnail
	if thumbnail == "" && record.StorageKey != "" {
		var err error
		thumbnail, err = r.storage.GetThumbnail(ctx, record.StorageKey)
		if err != nil {
			return err
		}
	}

	result, err := r.client.Process(ctx, cred, thumbnail, settings)
	if err != nil {
		return err
	}

	// Charge only for work that can be delivered. A refused charge means a
	// concurrent run won the last credit; the result is discarded.
	if err := r.credits.SpendForRecord(ctx, record.UserID); err != nil {
		return err
	}

	if settings.Mode == models.ModeImageToPrompt {
		record.Prompt = result.Prompt
	} else {
		record.Title = result.Title
		record.Keywords = result.Keywords
		record.Categories = result.Categories
		record.Description = result.Description
	}
	record.Engine = cred.Provider
	record.Status = models.RecordStatusCompleted
	record.ErrorMessage = ""
	return r.repos.Records.Update(ctx, record)
}

// finish moves the batch to completed and refreshes its counters.
func (r *BatchRunner) finish(ctx context.Context, batch *models.Batch, logger *slog.Logger) error {
	completed, err := r.repos.Records.CountByBatchID(ctx, batch.ID, models.RecordStatusCompleted)
	if err != nil {
		return err
	}
	failed, err := r.repos.Records.CountByBatchID(ctx, batch.ID, models.RecordStatusError)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	batch.Status = models.BatchStatusCompleted
	batch.CompletedCount = completed
	batch.FailedCount = failed
	batch.HaltReason = ""
	batch.HaltMessage = ""
	batch.CompletedAt = &now
	if err := r.repos.Batches.Update(ctx, batch); err != nil {
		return err
	}

	logger.Info("batch run finished", "completed", completed, "failed", failed)
	return nil
}

// haltOutOfCredits errors every record still pending and halts the batch.
func (r *BatchRunner) haltOutOfCredits(ctx context.Context, batch *models.Batch) error {
	if _, err := r.repos.Records.ErrorPendingByBatchID(ctx, batch.ID, "Out of credits"); err != nil {
		r.logger.Error("failed to error remaining records", "batch_id", batch.ID, "error", err)
	}
	return r.halt(ctx, batch, models.HaltReasonCredits,
		"You ran out of credits. Upgrade or wait for your credits to reset.")
}

// halt moves the batch to halted with a reason; unprocessed records keep
// their pending status.
func (r *BatchRunner) halt(ctx context.Context, batch *models.Batch, reason, message string) error {
	completed, err := r.repos.Records.CountByBatchID(ctx, batch.ID, models.RecordStatusCompleted)
	if err != nil {
		return err
	}
	failed, err := r.repos.Records.CountByBatchID(ctx, batch.ID, models.RecordStatusError)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	batch.Status = models.BatchStatusHalted
	batch.CompletedCount = completed
	batch.FailedCount = failed
	batch.HaltReason = reason
	batch.HaltMessage = message
	batch.CompletedAt = &now
	return r.repos.Batches.Update(ctx, batch)
}
