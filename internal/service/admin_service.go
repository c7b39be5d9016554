package service

import (
	"context"
	"log/slog"

	"github.com/csvtree/csvtree-api/internal/models"
	"github.com/csvtree/csvtree-api/internal/repository"
)

// AdminService exposes the operations behind the admin console.
type AdminService struct {
	repos  *repository.Repositories
	keys   *ProviderKeyService
	logger *slog.Logger
}

// NewAdminService creates a new admin service.
func NewAdminService(repos *repository.Repositories, keys *ProviderKeyService, logger *slog.Logger) *AdminService {
	return &AdminService{repos: repos, keys: keys, logger: logger}
}

// ListUsers returns a page of user profiles.
func (s *AdminService) ListUsers(ctx context.Context, limit, offset int) ([]*models.UserProfile, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.repos.Profiles.List(ctx, limit, offset)
}

// GetUser returns one user profile.
func (s *AdminService) GetUser(ctx context.Context, userID string) (*models.UserProfile, error) {
	profile, err := s.repos.Profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrNotFound
	}
	return profile, nil
}

// SetServiceKey stores the system-wide key for a provider.
func (s *AdminService) SetServiceKey(ctx context.Context, provider, apiKey string) error {
	return s.keys.SetServiceKey(ctx, provider, apiKey)
}

// ListServiceKeys returns configured system-wide keys (encrypted at rest;
// handlers must not render key material).
func (s *AdminService) ListServiceKeys(ctx context.Context) ([]*models.ServiceKey, error) {
	return s.keys.ListServiceKeys(ctx)
}

// DeleteServiceKey removes the system-wide key for a provider.
func (s *AdminService) DeleteServiceKey(ctx context.Context, provider string) error {
	return s.keys.DeleteServiceKey(ctx, provider)
}
