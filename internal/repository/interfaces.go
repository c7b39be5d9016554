// Package repository defines repository interfaces for data access.
// Note: identity and sign-in are handled by the auth provider. The user_id
// fields store the token subject.
package repository

import (
	"context"
	"time"

	"github.com/csvtree/csvtree-api/internal/models"
)

// RecordRepository defines methods for record data access.
type RecordRepository interface {
	Create(ctx context.Context, record *models.Record) error
	GetByID(ctx context.Context, id string) (*models.Record, error)
	GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.Record, error)
	GetByBatchID(ctx context.Context, batchID string) ([]*models.Record, error)
	// GetCompletedByBatchID returns completed records in submission order for export.
	GetCompletedByBatchID(ctx context.Context, batchID string) ([]*models.Record, error)
	Update(ctx context.Context, record *models.Record) error
	// ClaimForProcessing flips pending -> processing, returning false when the
	// record was already taken or no longer pending.
	ClaimForProcessing(ctx context.Context, id string) (bool, error)
	// ErrorPendingByBatchID errors every still-pending record of a batch,
	// used when a run halts on an empty balance.
	ErrorPendingByBatchID(ctx context.Context, batchID, message string) (int64, error)
	// ResetProcessingToPending reopens records a crashed run left in
	// processing state. Startup recovery only.
	ResetProcessingToPending(ctx context.Context) (int64, error)
	// Requeue flips error -> pending so the record is retried on the next run.
	Requeue(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
	DeleteByUserID(ctx context.Context, userID string) (int64, error)
	CountByBatchID(ctx context.Context, batchID string, status models.RecordStatus) (int, error)
}

// BatchRepository defines methods for batch data access.
type BatchRepository interface {
	Create(ctx context.Context, batch *models.Batch) error
	GetByID(ctx context.Context, id string) (*models.Batch, error)
	GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.Batch, error)
	Update(ctx context.Context, batch *models.Batch) error
	// ClaimPending atomically claims the oldest pending batch and returns it.
	// Returns nil when no batch is waiting.
	ClaimPending(ctx context.Context) (*models.Batch, error)
	// MarkStaleRunningHalted halts batches left running longer than maxAge,
	// used on startup after an unclean shutdown.
	MarkStaleRunningHalted(ctx context.Context, maxAge time.Duration) (int64, error)
}

// ProfileRepository defines methods for user profile data access.
type ProfileRepository interface {
	Get(ctx context.Context, userID string) (*models.UserProfile, error)
	Create(ctx context.Context, profile *models.UserProfile) error
	Update(ctx context.Context, profile *models.UserProfile) error
	// DecrementCredits atomically spends credits, returning false when the
	// balance is too low. Never lets the balance go negative.
	DecrementCredits(ctx context.Context, userID string, amount int) (bool, error)
	// SetTier switches the tier and resets credits to the tier allocation.
	SetTier(ctx context.Context, userID, tier string, credits int) error
	// SetCredits overwrites the balance and ceiling (admin operation).
	SetCredits(ctx context.Context, userID string, credits, maxCredits int) error
	List(ctx context.Context, limit, offset int) ([]*models.UserProfile, error)
	Delete(ctx context.Context, userID string) error
}

// ProviderKeyRepository defines methods for user BYOK key data access.
type ProviderKeyRepository interface {
	Upsert(ctx context.Context, key *models.ProviderKey) error
	GetByUserAndProvider(ctx context.Context, userID, provider string) (*models.ProviderKey, error)
	GetByUserID(ctx context.Context, userID string) ([]*models.ProviderKey, error)
	Delete(ctx context.Context, userID, provider string) error
}

// ServiceKeyRepository defines methods for system-wide provider key data access.
type ServiceKeyRepository interface {
	Upsert(ctx context.Context, key *models.ServiceKey) error
	Get(ctx context.Context, provider string) (*models.ServiceKey, error)
	List(ctx context.Context) ([]*models.ServiceKey, error)
	Delete(ctx context.Context, provider string) error
}

// Repositories bundles every repository for service wiring.
type Repositories struct {
	Records      RecordRepository
	Batches      BatchRepository
	Profiles     ProfileRepository
	ProviderKeys ProviderKeyRepository
	ServiceKeys  ServiceKeyRepository
}
