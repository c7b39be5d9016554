// Package service contains the business logic layer.
// Note: identity and sign-in are handled by the auth provider.
// The UserID in services is the auth token subject.
package service

import (
	"fmt"
	"log/slog"

	"github.com/csvtree/csvtree-api/internal/config"
	"github.com/csvtree/csvtree-api/internal/crypto"
	"github.com/csvtree/csvtree-api/internal/repository"
)

// Services holds all service instances.
type Services struct {
	Profile     *ProfileService
	Credit      *CreditService
	Record      *RecordService
	ProviderKey *ProviderKeyService
	Batch       *BatchRunner
	Export      *ExportService
	Storage     *StorageService
	Admin       *AdminService
}

// NewServices creates all service instances.
func NewServices(cfg *config.Config, repos *repository.Repositories, logger *slog.Logger) (*Services, error) {
	// Create encryptor first - needed for provider key storage
	encryptor, err := crypto.NewEncryptor(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create encryptor: %w", err)
	}

	// Storage is optional; when unconfigured thumbnails stay in the database
	storageSvc, err := NewStorageService(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage service: %w", err)
	}

	profileSvc := NewProfileService(repos, logger)
	creditSvc := NewCreditService(repos, logger)
	providerKeySvc := NewProviderKeyService(cfg, repos, encryptor, logger)
	recordSvc := NewRecordService(cfg, repos, storageSvc, logger)
	exportSvc := NewExportService(repos, storageSvc, logger)

	visionClient := NewVisionClient(logger, cfg.ProviderTimeout)
	batchRunner := NewBatchRunner(repos, visionClient, providerKeySvc, creditSvc, storageSvc, logger)

	adminSvc := NewAdminService(repos, providerKeySvc, logger)

	return &Services{
		Profile:     profileSvc,
		Credit:      creditSvc,
		Record:      recordSvc,
		ProviderKey: providerKeySvc,
		Batch:       batchRunner,
		Export:      exportSvc,
		Storage:     storageSvc,
		Admin:       adminSvc,
	}, nil
}
