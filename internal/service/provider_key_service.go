package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/csvtree/csvtree-api/internal/config"
	"github.com/csvtree/csvtree-api/internal/crypto"
	"github.com/csvtree/csvtree-api/internal/engine"
	"github.com/csvtree/csvtree-api/internal/models"
	"github.com/csvtree/csvtree-api/internal/repository"
)

// ProviderKeyService manages user and system provider API keys. Keys are
// stored AES-256-GCM encrypted and only decrypted at call time.
type ProviderKeyService struct {
	cfg       *config.Config
	repos     *repository.Repositories
	encryptor *crypto.Encryptor
	logger    *slog.Logger
}

// NewProviderKeyService creates a new provider key service.
func NewProviderKeyService(cfg *config.Config, repos *repository.Repositories, encryptor *crypto.Encryptor, logger *slog.Logger) *ProviderKeyService {
	return &ProviderKeyService{cfg: cfg, repos: repos, encryptor: encryptor, logger: logger}
}

// SetUserKey stores (or replaces) a user's key for a provider.
func (s *ProviderKeyService) SetUserKey(ctx context.Context, userID, provider, apiKey string) (*models.ProviderKey, error) {
	if !engine.ValidProvider(provider) {
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("api key must not be empty")
	}

	encrypted, err := s.encryptor.Encrypt(apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt key: %w", err)
	}

	now := time.Now().UTC()
	key := &models.ProviderKey{
		ID:              ulid.Make().String(),
		UserID:          userID,
		Provider:        provider,
		APIKeyEncrypted: encrypted,
		IsEnabled:       true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repos.ProviderKeys.Upsert(ctx, key); err != nil {
		return nil, err
	}
	s.logger.Info("provider key stored", "user_id", userID, "provider", provider)
	return key, nil
}

// ListUserKeys returns a user's keys. Key material stays encrypted; callers
// render only provider and enabled state.
func (s *ProviderKeyService) ListUserKeys(ctx context.Context, userID string) ([]*models.ProviderKey, error) {
	return s.repos.ProviderKeys.GetByUserID(ctx, userID)
}

// DeleteUserKey removes a user's key for a provider.
func (s *ProviderKeyService) DeleteUserKey(ctx context.Context, userID, provider string) error {
	if !engine.ValidProvider(provider) {
		return fmt.Errorf("unknown provider %q", provider)
	}
	if err := s.repos.ProviderKeys.Delete(ctx, userID, provider); err != nil {
		return err
	}
	s.logger.Info("provider key deleted", "user_id", userID, "provider", provider)
	return nil
}

// SetServiceKey stores (or replaces) the system-wide key for a provider.
func (s *ProviderKeyService) SetServiceKey(ctx context.Context, provider, apiKey string) error {
	if !engine.ValidProvider(provider) {
		return fmt.Errorf("unknown provider %q", provider)
	}
	if apiKey == "" {
		return fmt.Errorf("api key must not be empty")
	}

	encrypted, err := s.encryptor.Encrypt(apiKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt key: %w", err)
	}

	now := time.Now().UTC()
	key := &models.ServiceKey{
		Provider:        provider,
		APIKeyEncrypted: encrypted,
		IsEnabled:       true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repos.ServiceKeys.Upsert(ctx, key); err != nil {
		return err
	}
	s.logger.Info("service key stored", "provider", provider)
	return nil
}

// ListServiceKeys returns the configured system-wide keys.
func (s *ProviderKeyService) ListServiceKeys(ctx context.Context) ([]*models.ServiceKey, error) {
	return s.repos.ServiceKeys.List(ctx)
}

// DeleteServiceKey removes the system-wide key for a provider.
func (s *ProviderKeyService) DeleteServiceKey(ctx context.Context, provider string) error {
	return s.repos.ServiceKeys.Delete(ctx, provider)
}

// ResolveCredentials gathers every usable key for a user's batch run:
// the user's own enabled keys, plus system keys from the database with the
// environment keys as a final fallback.
func (s *ProviderKeyService) ResolveCredentials(ctx context.Context, userID string) (engine.CredentialSet, error) {
	var creds engine.CredentialSet

	userKeys, err := s.repos.ProviderKeys.GetByUserID(ctx, userID)
	if err != nil {
		return creds, err
	}
	for _, key := range userKeys {
		if !key.IsEnabled {
			continue
		}
		decrypted, err := s.encryptor.Decrypt(key.APIKeyEncrypted)
		if err != nil {
			// A key that fails to decrypt (rotated master key) is skipped,
			// not fatal: the run can still use other credentials.
			s.logger.Warn("failed to decrypt provider key", "user_id", userID, "provider", key.Provider, "error", err)
			continue
		}
		switch key.Provider {
		case engine.ProviderGemini:
			creds.UserGeminiKey = decrypted
		case engine.ProviderGroq:
			creds.UserGroqKey = decrypted
		}
	}

	serviceKeys, err := s.repos.ServiceKeys.List(ctx)
	if err != nil {
		return creds, err
	}
	for _, key := range serviceKeys {
		if !key.IsEnabled {
			continue
		}
		decrypted, err := s.encryptor.Decrypt(key.APIKeyEncrypted)
		if err != nil {
			s.logger.Warn("failed to decrypt service key", "provider", key.Provider, "error", err)
			continue
		}
		switch key.Provider {
		case engine.ProviderGemini:
			creds.SystemGeminiKey = decrypted
		case engine.ProviderGroq:
			creds.SystemGroqKey = decrypted
		}
	}

	// Environment keys back up the database-held service keys
	if creds.SystemGeminiKey == "" {
		creds.SystemGeminiKey = s.cfg.ServiceGeminiKey
	}
	if creds.SystemGroqKey == "" {
		creds.SystemGroqKey = s.cfg.ServiceGroqKey
	}

	return creds, nil
}
