package repository

import (
	"context"
	"testing"
	"time"

	"github.com/csvtree/csvtree-api/internal/models"
)

func TestProviderKeyUpsert(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	key := &models.ProviderKey{
		ID:              "key-1",
		UserID:          "user-1",
		Provider:        "gemini",
		APIKeyEncrypted: "enc-v1",
		IsEnabled:       true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := repos.ProviderKeys.Upsert(ctx, key); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}

	got, err := repos.ProviderKeys.GetByUserAndProvider(ctx, "user-1", "gemini")
	if err != nil {
		t.Fatalf("GetByUserAndProvider() error: %v", err)
	}
	if got == nil || got.APIKeyEncrypted != "enc-v1" || !got.IsEnabled {
		t.Errorf("unexpected key: %+v", got)
	}

	// Upserting the same provider replaces the key, never duplicates it.
	key.ID = "key-2"
	key.APIKeyEncrypted = "enc-v2"
	key.IsEnabled = false
	if err := repos.ProviderKeys.Upsert(ctx, key); err != nil {
		t.Fatalf("second Upsert() error: %v", err)
	}

	keys, err := repos.ProviderKeys.GetByUserID(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetByUserID() error: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("got %d keys, want 1", len(keys))
	}
	if keys[0].APIKeyEncrypted != "enc-v2" || keys[0].IsEnabled {
		t.Errorf("upsert did not replace: %+v", keys[0])
	}
}

func TestProviderKeyDelete(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	now := time.Now().UTC()
	for _, provider := range []string{"gemini", "groq"} {
		key := &models.ProviderKey{
			ID: "key-" + provider, UserID: "user-1", Provider: provider,
			APIKeyEncrypted: "enc", IsEnabled: true, CreatedAt: now, UpdatedAt: now,
		}
		if err := repos.ProviderKeys.Upsert(ctx, key); err != nil {
			t.Fatal(err)
		}
	}

	if err := repos.ProviderKeys.Delete(ctx, "user-1", "gemini"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	got, _ := repos.ProviderKeys.GetByUserAndProvider(ctx, "user-1", "gemini")
	if got != nil {
		t.Error("deleted key still present")
	}
	remaining, _ := repos.ProviderKeys.GetByUserID(ctx, "user-1")
	if len(remaining) != 1 || remaining[0].Provider != "groq" {
		t.Errorf("unexpected remaining keys: %+v", remaining)
	}
}

func TestServiceKeyUpsertAndList(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	now := time.Now().UTC()
	key := &models.ServiceKey{
		Provider: "gemini", APIKeyEncrypted: "enc-sys", IsEnabled: true,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := repos.ServiceKeys.Upsert(ctx, key); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}

	got, err := repos.ServiceKeys.Get(ctx, "gemini")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got == nil || got.APIKeyEncrypted != "enc-sys" {
		t.Errorf("unexpected key: %+v", got)
	}

	key.APIKeyEncrypted = "enc-sys-2"
	if err := repos.ServiceKeys.Upsert(ctx, key); err != nil {
		t.Fatal(err)
	}
	keys, err := repos.ServiceKeys.List(ctx)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(keys) != 1 || keys[0].APIKeyEncrypted != "enc-sys-2" {
		t.Errorf("unexpected keys: %+v", keys)
	}

	if err := repos.ServiceKeys.Delete(ctx, "gemini"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if got, _ := repos.ServiceKeys.Get(ctx, "gemini"); got != nil {
		t.Error("deleted service key still present")
	}
}
