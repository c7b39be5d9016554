package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/csvtree/csvtree-api/internal/constants"
	"github.com/csvtree/csvtree-api/internal/engine"
	"github.com/csvtree/csvtree-api/internal/models"
	"github.com/csvtree/csvtree-api/internal/repository"
)

// ProfileService manages user profiles and tier changes.
type ProfileService struct {
	repos  *repository.Repositories
	logger *slog.Logger
}

// NewProfileService creates a new profile service.
func NewProfileService(repos *repository.Repositories, logger *slog.Logger) *ProfileService {
	return &ProfileService{repos: repos, logger: logger}
}

// EnsureProfile fetches the profile for a user, creating it with the free
// tier allocation on first sight. Called on every authenticated profile read
// so signup needs no separate endpoint.
func (s *ProfileService) EnsureProfile(ctx context.Context, userID, email, name string) (*models.UserProfile, error) {
	profile, err := s.repos.Profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile != nil {
		return profile, nil
	}

	credits := constants.CreditsForTier(constants.TierFree)
	now := time.Now().UTC()
	profile = &models.UserProfile{
		UserID:        userID,
		Email:         email,
		DisplayName:   name,
		Credits:       credits,
		MaxCredits:    credits,
		Tier:          constants.TierFree,
		LastResetDate: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repos.Profiles.Create(ctx, profile); err != nil {
		// Lost a race with a concurrent first request; read the winner's row
		if existing, getErr := s.repos.Profiles.Get(ctx, userID); getErr == nil && existing != nil {
			return existing, nil
		}
		return nil, err
	}

	s.logger.Info("created user profile", "user_id", userID, "tier", profile.Tier, "credits", credits)
	return profile, nil
}

// Resync restores a profile to its tier definition: balance and ceiling
// are both reset to the tier allocation regardless of the current values.
// An unknown tier falls back to free. Returns the reset profile.
func (s *ProfileService) Resync(ctx context.Context, userID string) (*models.UserProfile, error) {
	profile, err := s.repos.Profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("profile not found: %s", userID)
	}

	if !constants.ValidTier(profile.Tier) {
		profile.Tier = constants.TierFree
	}
	allocation := constants.CreditsForTier(profile.Tier)
	profile.Credits = allocation
	profile.MaxCredits = allocation
	profile.LastResetDate = time.Now().UTC()

	if err := s.repos.Profiles.Update(ctx, profile); err != nil {
		return nil, err
	}
	s.logger.Info("resynced profile", "user_id", userID, "tier", profile.Tier, "credits", profile.Credits)
	return profile, nil
}

// SetTier switches a user's tier. Credits are reset to the new tier's
// allocation; the previous balance is discarded, not carried over.
func (s *ProfileService) SetTier(ctx context.Context, userID, tier string) error {
	if !constants.ValidTier(tier) {
		return fmt.Errorf("unknown tier %q", tier)
	}
	credits := constants.CreditsForTier(tier)
	if err := s.repos.Profiles.SetTier(ctx, userID, tier, credits); err != nil {
		return err
	}
	s.logger.Info("tier changed", "user_id", userID, "tier", tier, "credits", credits)
	return nil
}

// DeleteAccount removes a user's profile, records, and provider keys.
func (s *ProfileService) DeleteAccount(ctx context.Context, userID string) error {
	deleted, err := s.repos.Records.DeleteByUserID(ctx, userID)
	if err != nil {
		return err
	}
	for _, provider := range engine.Providers {
		if err := s.repos.ProviderKeys.Delete(ctx, userID, provider); err != nil {
			return err
		}
	}
	if err := s.repos.Profiles.Delete(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("deleted account", "user_id", userID, "records_deleted", deleted)
	return nil
}
