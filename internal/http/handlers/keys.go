package handlers

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/csvtree/csvtree-api/internal/engine"
	"github.com/csvtree/csvtree-api/internal/service"
)

// KeyHandler handles user provider key endpoints. Key material is accepted
// on write and never returned.
type KeyHandler struct {
	keys *service.ProviderKeyService
}

// ProviderKeyResponse is the client-facing key representation.
type ProviderKeyResponse struct {
	Provider  string    `json:"provider"`
	IsEnabled bool      `json:"is_enabled"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListKeysOutput represents a key listing response.
type ListKeysOutput struct {
	Body struct {
		Keys []ProviderKeyResponse `json:"keys"`
	}
}

// ListKeys returns the caller's configured provider keys.
func (h *KeyHandler) ListKeys(ctx context.Context, input *struct{}) (*ListKeysOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	keys, err := h.keys.ListUserKeys(ctx, userID)
	if err != nil {
		return nil, serviceError(err)
	}

	out := &ListKeysOutput{}
	out.Body.Keys = make([]ProviderKeyResponse, len(keys))
	for i, k := range keys {
		out.Body.Keys[i] = ProviderKeyResponse{
			Provider:  k.Provider,
			IsEnabled: k.IsEnabled,
			UpdatedAt: k.UpdatedAt,
		}
	}
	return out, nil
}

// UpsertKeyInput represents a key upsert request.
type UpsertKeyInput struct {
	Body struct {
		Provider string `json:"provider" enum:"gemini,groq" doc:"Vision provider"`
		APIKey   string `json:"api_key" minLength:"1" doc:"Provider API key, stored encrypted"`
	}
}

// UpsertKeyOutput represents a key upsert response.
type UpsertKeyOutput struct {
	Body ProviderKeyResponse
}

// UpsertKey stores or replaces the caller's key for a provider.
func (h *KeyHandler) UpsertKey(ctx context.Context, input *UpsertKeyInput) (*UpsertKeyOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}
	if !engine.ValidProvider(input.Body.Provider) {
		return nil, huma.Error400BadRequest("unknown provider")
	}

	key, err := h.keys.SetUserKey(ctx, userID, input.Body.Provider, input.Body.APIKey)
	if err != nil {
		return nil, serviceError(err)
	}
	return &UpsertKeyOutput{Body: ProviderKeyResponse{
		Provider:  key.Provider,
		IsEnabled: key.IsEnabled,
		UpdatedAt: key.UpdatedAt,
	}}, nil
}

// DeleteKeyInput identifies a provider key.
type DeleteKeyInput struct {
	Provider string `path:"provider" enum:"gemini,groq" doc:"Vision provider"`
}

// DeleteKeyOutput represents a key deletion response.
type DeleteKeyOutput struct {
	Body struct {
		Deleted bool `json:"deleted"`
	}
}

// DeleteKey removes the caller's key for a provider.
func (h *KeyHandler) DeleteKey(ctx context.Context, input *DeleteKeyInput) (*DeleteKeyOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	if err := h.keys.DeleteUserKey(ctx, userID, input.Provider); err != nil {
		return nil, serviceError(err)
	}
	out := &DeleteKeyOutput{}
	out.Body.Deleted = true
	return out, nil
}
