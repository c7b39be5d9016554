package handlers

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/csvtree/csvtree-api/internal/http/mw"
	"github.com/csvtree/csvtree-api/internal/models"
	"github.com/csvtree/csvtree-api/internal/service"
)

// ProfileHandler handles profile and credit endpoints.
type ProfileHandler struct {
	profiles *service.ProfileService
	credits  *service.CreditService
}

// ProfileResponse is the client-facing profile representation.
type ProfileResponse struct {
	UserID        string    `json:"user_id"`
	Email         string    `json:"email,omitempty"`
	DisplayName   string    `json:"display_name,omitempty"`
	Tier          string    `json:"tier"`
	Credits       int       `json:"credits"`
	MaxCredits    int       `json:"max_credits"`
	LastResetDate time.Time `json:"last_reset_date"`
	CreatedAt     time.Time `json:"created_at"`
}

func toProfileResponse(p *models.UserProfile) ProfileResponse {
	return ProfileResponse{
		UserID:        p.UserID,
		Email:         p.Email,
		DisplayName:   p.DisplayName,
		Tier:          p.Tier,
		Credits:       p.Credits,
		MaxCredits:    p.MaxCredits,
		LastResetDate: p.LastResetDate,
		CreatedAt:     p.CreatedAt,
	}
}

// GetProfileOutput represents a profile response.
type GetProfileOutput struct {
	Body ProfileResponse
}

// GetProfile returns the caller's profile, creating it on first sight.
func (h *ProfileHandler) GetProfile(ctx context.Context, input *struct{}) (*GetProfileOutput, error) {
	claims := mw.GetUserClaims(ctx)
	if claims == nil {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	profile, err := h.profiles.EnsureProfile(ctx, claims.UserID, claims.Email, claims.Name)
	if err != nil {
		return nil, serviceError(err)
	}
	return &GetProfileOutput{Body: toProfileResponse(profile)}, nil
}

// Resync restores the caller's balance and ceiling to their tier allocation.
func (h *ProfileHandler) Resync(ctx context.Context, input *struct{}) (*GetProfileOutput, error) {
	claims := mw.GetUserClaims(ctx)
	if claims == nil {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	// Ensure the profile exists before reconciling it.
	if _, err := h.profiles.EnsureProfile(ctx, claims.UserID, claims.Email, claims.Name); err != nil {
		return nil, serviceError(err)
	}
	profile, err := h.profiles.Resync(ctx, claims.UserID)
	if err != nil {
		return nil, serviceError(err)
	}
	return &GetProfileOutput{Body: toProfileResponse(profile)}, nil
}

// BalanceOutput represents a credit balance response.
type BalanceOutput struct {
	Body struct {
		Credits    int `json:"credits"`
		MaxCredits int `json:"max_credits"`
	}
}

// GetBalance returns the caller's credit balance.
func (h *ProfileHandler) GetBalance(ctx context.Context, input *struct{}) (*BalanceOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	credits, maxCredits, err := h.credits.Balance(ctx, userID)
	if err != nil {
		return nil, serviceError(err)
	}
	out := &BalanceOutput{}
	out.Body.Credits = credits
	out.Body.MaxCredits = maxCredits
	return out, nil
}

// DeleteAccountOutput represents an account deletion response.
type DeleteAccountOutput struct {
	Body struct {
		Deleted bool `json:"deleted"`
	}
}

// DeleteAccount removes the caller's profile, records, and provider keys.
func (h *ProfileHandler) DeleteAccount(ctx context.Context, input *struct{}) (*DeleteAccountOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	if err := h.profiles.DeleteAccount(ctx, userID); err != nil {
		return nil, serviceError(err)
	}
	out := &DeleteAccountOutput{}
	out.Body.Deleted = true
	return out, nil
}
