package handlers

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/csvtree/csvtree-api/internal/constants"
	"github.com/csvtree/csvtree-api/internal/engine"
	"github.com/csvtree/csvtree-api/internal/service"
)

// AdminHandler handles the admin console endpoints. Routes are mounted
// behind the admin middleware; these handlers assume an admin caller.
type AdminHandler struct {
	admin    *service.AdminService
	profiles *service.ProfileService
	credits  *service.CreditService
}

// ListUsersInput represents a user listing request.
type ListUsersInput struct {
	Limit  int `query:"limit" default:"100" minimum:"1" maximum:"500" doc:"Page size"`
	Offset int `query:"offset" default:"0" minimum:"0" doc:"Page offset"`
}

// ListUsersOutput represents a user listing response.
type ListUsersOutput struct {
	Body struct {
		Users []ProfileResponse `json:"users"`
	}
}

// ListUsers returns a page of user profiles.
func (h *AdminHandler) ListUsers(ctx context.Context, input *ListUsersInput) (*ListUsersOutput, error) {
	users, err := h.admin.ListUsers(ctx, input.Limit, input.Offset)
	if err != nil {
		return nil, serviceError(err)
	}

	out := &ListUsersOutput{}
	out.Body.Users = make([]ProfileResponse, len(users))
	for i, u := range users {
		out.Body.Users[i] = toProfileResponse(u)
	}
	return out, nil
}

// GetUserInput identifies one user.
type GetUserInput struct {
	UserID string `path:"userID" doc:"User ID"`
}

// GetUserOutput represents a single user response.
type GetUserOutput struct {
	Body ProfileResponse
}

// GetUser returns one user profile.
func (h *AdminHandler) GetUser(ctx context.Context, input *GetUserInput) (*GetUserOutput, error) {
	user, err := h.admin.GetUser(ctx, input.UserID)
	if err != nil {
		return nil, serviceError(err)
	}
	return &GetUserOutput{Body: toProfileResponse(user)}, nil
}

// SetTierInput represents a tier change request.
type SetTierInput struct {
	UserID string `path:"userID" doc:"User ID"`
	Body   struct {
		Tier string `json:"tier" enum:"Free,Premium" doc:"Target tier; credits reset to the tier allocation"`
	}
}

// SetTier switches a user's tier, replacing their credit balance.
func (h *AdminHandler) SetTier(ctx context.Context, input *SetTierInput) (*GetUserOutput, error) {
	if !constants.ValidTier(input.Body.Tier) {
		return nil, huma.Error400BadRequest("unknown tier")
	}
	if err := h.profiles.SetTier(ctx, input.UserID, input.Body.Tier); err != nil {
		return nil, serviceError(err)
	}
	user, err := h.admin.GetUser(ctx, input.UserID)
	if err != nil {
		return nil, serviceError(err)
	}
	return &GetUserOutput{Body: toProfileResponse(user)}, nil
}

// GrantCreditsInput represents a manual credit adjustment.
type GrantCreditsInput struct {
	UserID string `path:"userID" doc:"User ID"`
	Body   struct {
		Credits    int `json:"credits" minimum:"0" doc:"New credit balance"`
		MaxCredits int `json:"max_credits" minimum:"0" doc:"New credit ceiling"`
	}
}

// GrantCredits overwrites a user's credit balance and ceiling.
func (h *AdminHandler) GrantCredits(ctx context.Context, input *GrantCreditsInput) (*GetUserOutput, error) {
	if err := h.credits.Grant(ctx, input.UserID, input.Body.Credits, input.Body.MaxCredits); err != nil {
		return nil, serviceError(err)
	}
	user, err := h.admin.GetUser(ctx, input.UserID)
	if err != nil {
		return nil, serviceError(err)
	}
	return &GetUserOutput{Body: toProfileResponse(user)}, nil
}

// DeleteUserOutput represents a user deletion response.
type DeleteUserOutput struct {
	Body struct {
		Deleted bool `json:"deleted"`
	}
}

// DeleteUser removes a user's profile, records, and provider keys.
func (h *AdminHandler) DeleteUser(ctx context.Context, input *GetUserInput) (*DeleteUserOutput, error) {
	if _, err := h.admin.GetUser(ctx, input.UserID); err != nil {
		return nil, serviceError(err)
	}
	if err := h.profiles.DeleteAccount(ctx, input.UserID); err != nil {
		return nil, serviceError(err)
	}
	out := &DeleteUserOutput{}
	out.Body.Deleted = true
	return out, nil
}

// ServiceKeyResponse is the client-facing service key representation.
type ServiceKeyResponse struct {
	Provider  string    `json:"provider"`
	IsEnabled bool      `json:"is_enabled"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListServiceKeysOutput represents a service key listing response.
type ListServiceKeysOutput struct {
	Body struct {
		Keys []ServiceKeyResponse `json:"keys"`
	}
}

// ListServiceKeys returns the configured system-wide provider keys.
func (h *AdminHandler) ListServiceKeys(ctx context.Context, input *struct{}) (*ListServiceKeysOutput, error) {
	keys, err := h.admin.ListServiceKeys(ctx)
	if err != nil {
		return nil, serviceError(err)
	}

	out := &ListServiceKeysOutput{}
	out.Body.Keys = make([]ServiceKeyResponse, len(keys))
	for i, k := range keys {
		out.Body.Keys[i] = ServiceKeyResponse{
			Provider:  k.Provider,
			IsEnabled: k.IsEnabled,
			UpdatedAt: k.UpdatedAt,
		}
	}
	return out, nil
}

// UpsertServiceKeyInput represents a service key upsert request.
type UpsertServiceKeyInput struct {
	Body struct {
		Provider string `json:"provider" enum:"gemini,groq" doc:"Vision provider"`
		APIKey   string `json:"api_key" minLength:"1" doc:"Provider API key, stored encrypted"`
	}
}

// UpsertServiceKeyOutput represents a service key upsert response.
type UpsertServiceKeyOutput struct {
	Body struct {
		Provider string `json:"provider"`
	}
}

// UpsertServiceKey stores or replaces the system-wide key for a provider.
func (h *AdminHandler) UpsertServiceKey(ctx context.Context, input *UpsertServiceKeyInput) (*UpsertServiceKeyOutput, error) {
	if !engine.ValidProvider(input.Body.Provider) {
		return nil, huma.Error400BadRequest("unknown provider")
	}
	if err := h.admin.SetServiceKey(ctx, input.Body.Provider, input.Body.APIKey); err != nil {
		return nil, serviceError(err)
	}
	out := &UpsertServiceKeyOutput{}
	out.Body.Provider = input.Body.Provider
	return out, nil
}

// DeleteServiceKeyInput identifies a service key.
type DeleteServiceKeyInput struct {
	Provider string `path:"provider" enum:"gemini,groq" doc:"Vision provider"`
}

// DeleteServiceKeyOutput represents a service key deletion response.
type DeleteServiceKeyOutput struct {
	Body struct {
		Deleted bool `json:"deleted"`
	}
}

// DeleteServiceKey removes the system-wide key for a provider.
func (h *AdminHandler) DeleteServiceKey(ctx context.Context, input *DeleteServiceKeyInput) (*DeleteServiceKeyOutput, error) {
	if err := h.admin.DeleteServiceKey(ctx, input.Provider); err != nil {
		return nil, serviceError(err)
	}
	out := &DeleteServiceKeyOutput{}
	out.Body.Deleted = true
	return out, nil
}
