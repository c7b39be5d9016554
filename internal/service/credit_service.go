package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/csvtree/csvtree-api/internal/constants"
	"github.com/csvtree/csvtree-api/internal/repository"
)

// ErrInsufficientCredits is returned when a spend would overdraw the balance.
var ErrInsufficientCredits = errors.New("insufficient credits")

// CreditService owns credit spending. Balance mutation goes through the
// repository's guarded UPDATE, so concurrent batch runs cannot overdraw.
type CreditService struct {
	repos  *repository.Repositories
	logger *slog.Logger
}

// NewCreditService creates a new credit service.
func NewCreditService(repos *repository.Repositories, logger *slog.Logger) *CreditService {
	return &CreditService{repos: repos, logger: logger}
}

// SpendForRecord deducts the per-record cost for a delivered result.
// Returns ErrInsufficientCredits when the balance is too low.
func (s *CreditService) SpendForRecord(ctx context.Context, userID string) error {
	ok, err := s.repos.Profiles.DecrementCredits(ctx, userID, constants.CreditCostPerRecord)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInsufficientCredits
	}
	return nil
}

// Balance returns the current credit balance for a user.
func (s *CreditService) Balance(ctx context.Context, userID string) (credits, maxCredits int, err error) {
	profile, err := s.repos.Profiles.Get(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	if profile == nil {
		return 0, 0, errors.New("profile not found")
	}
	return profile.Credits, profile.MaxCredits, nil
}

// Grant sets a user's balance and ceiling (admin operation).
func (s *CreditService) Grant(ctx context.Context, userID string, credits, maxCredits int) error {
	if credits < 0 || maxCredits < 0 {
		return errors.New("credits must be non-negative")
	}
	if err := s.repos.Profiles.SetCredits(ctx, userID, credits, maxCredits); err != nil {
		return err
	}
	s.logger.Info("credits granted", "user_id", userID, "credits", credits, "max_credits", maxCredits)
	return nil
}
