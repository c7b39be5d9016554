package service

import (
	"context"
	"testing"

	"github.com/csvtree/csvtree-api/internal/constants"
	"github.com/csvtree/csvtree-api/internal/engine"
	"github.com/csvtree/csvtree-api/internal/models"
)

func TestEnsureProfileCreatesOnFirstSight(t *testing.T) {
	ctx := context.Background()
	repos := setupTestRepos(t)
	svc := NewProfileService(repos, discardLogger())

	profile, err := svc.EnsureProfile(ctx, "user-1", "u@example.com", "Pat")
	if err != nil {
		t.Fatalf("EnsureProfile failed: %v", err)
	}
	if profile.Tier != constants.TierFree {
		t.Errorf("tier = %q, want Free", profile.Tier)
	}
	if profile.Credits != 100 || profile.MaxCredits != 100 {
		t.Errorf("credits = %d/%d, want 100/100", profile.Credits, profile.MaxCredits)
	}

	// Second call returns the existing row untouched.
	again, err := svc.EnsureProfile(ctx, "user-1", "other@example.com", "Other")
	if err != nil {
		t.Fatalf("EnsureProfile failed: %v", err)
	}
	if again.Email != "u@example.com" {
		t.Errorf("email = %q, existing profile must win", again.Email)
	}
}

func TestSetTierReplacesCredits(t *testing.T) {
	ctx := context.Background()
	repos := setupTestRepos(t)
	svc := NewProfileService(repos, discardLogger())
	insertProfile(t, repos, "user-1", 37, constants.TierFree)

	if err := svc.SetTier(ctx, "user-1", constants.TierPremium); err != nil {
		t.Fatalf("SetTier failed: %v", err)
	}

	profile, err := repos.Profiles.Get(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	// The old balance is discarded, not added to.
	if profile.Credits != 6000 || profile.MaxCredits != 6000 {
		t.Errorf("credits = %d/%d, want 6000/6000", profile.Credits, profile.MaxCredits)
	}
	if profile.Tier != constants.TierPremium {
		t.Errorf("tier = %q, want Premium", profile.Tier)
	}

	// Downgrade replaces again, even though the balance shrinks.
	if err := svc.SetTier(ctx, "user-1", constants.TierFree); err != nil {
		t.Fatalf("SetTier failed: %v", err)
	}
	profile, _ = repos.Profiles.Get(ctx, "user-1")
	if profile.Credits != 100 {
		t.Errorf("credits after downgrade = %d, want 100", profile.Credits)
	}
}

func TestSetTierRejectsUnknown(t *testing.T) {
	repos := setupTestRepos(t)
	svc := NewProfileService(repos, discardLogger())
	if err := svc.SetTier(context.Background(), "user-1", "Platinum"); err == nil {
		t.Error("expected error for unknown tier")
	}
}

func TestResyncResetsBalanceToTierAllocation(t *testing.T) {
	ctx := context.Background()
	repos := setupTestRepos(t)
	svc := NewProfileService(repos, discardLogger())

	insertProfile(t, repos, "user-1", 100, constants.TierFree)
	stored, _ := repos.Profiles.Get(ctx, "user-1")
	stored.Credits = 9999
	stored.MaxCredits = 9999
	if err := repos.Profiles.Update(ctx, stored); err != nil {
		t.Fatal(err)
	}

	profile, err := svc.Resync(ctx, "user-1")
	if err != nil {
		t.Fatalf("Resync failed: %v", err)
	}
	if profile.Credits != 100 || profile.MaxCredits != 100 {
		t.Errorf("credits = %d/%d, want reset to 100/100", profile.Credits, profile.MaxCredits)
	}
}

func TestResyncRefillsSpentBalance(t *testing.T) {
	ctx := context.Background()
	repos := setupTestRepos(t)
	svc := NewProfileService(repos, discardLogger())

	// A partially spent balance within range is still reset, not kept.
	insertProfile(t, repos, "user-1", 100, constants.TierFree)
	if _, err := repos.Profiles.DecrementCredits(ctx, "user-1", 70); err != nil {
		t.Fatal(err)
	}

	profile, err := svc.Resync(ctx, "user-1")
	if err != nil {
		t.Fatalf("Resync failed: %v", err)
	}
	if profile.Credits != 100 || profile.MaxCredits != 100 {
		t.Errorf("credits = %d/%d, want full refill to 100/100", profile.Credits, profile.MaxCredits)
	}

	stored, err := repos.Profiles.Get(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if stored.Credits != 100 {
		t.Errorf("stored credits = %d, want 100", stored.Credits)
	}
}

func TestResyncFixesInvalidTier(t *testing.T) {
	ctx := context.Background()
	repos := setupTestRepos(t)
	svc := NewProfileService(repos, discardLogger())

	insertProfile(t, repos, "user-1", 50, "Legacy")

	profile, err := svc.Resync(ctx, "user-1")
	if err != nil {
		t.Fatalf("Resync failed: %v", err)
	}
	if profile.Tier != constants.TierFree {
		t.Errorf("tier = %q, want Free fallback", profile.Tier)
	}
}

func TestDeleteAccount(t *testing.T) {
	ctx := context.Background()
	repos := setupTestRepos(t)
	svc := NewProfileService(repos, discardLogger())

	insertProfile(t, repos, "user-1", 100, constants.TierFree)
	insertBatchWithRecords(t, repos, "batch-1", "user-1", 2, models.DefaultSettings())

	if err := svc.DeleteAccount(ctx, "user-1"); err != nil {
		t.Fatalf("DeleteAccount failed: %v", err)
	}

	profile, err := repos.Profiles.Get(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if profile != nil {
		t.Error("profile should be gone")
	}
	records, err := repos.Records.GetByUserID(ctx, "user-1", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records, want 0", len(records))
	}
}

func TestCreditServiceSpend(t *testing.T) {
	ctx := context.Background()
	repos := setupTestRepos(t)
	svc := NewCreditService(repos, discardLogger())
	insertProfile(t, repos, "user-1", 2, constants.TierFree)

	if err := svc.SpendForRecord(ctx, "user-1"); err != nil {
		t.Fatalf("first spend failed: %v", err)
	}
	if err := svc.SpendForRecord(ctx, "user-1"); err != nil {
		t.Fatalf("second spend failed: %v", err)
	}
	if err := svc.SpendForRecord(ctx, "user-1"); err != ErrInsufficientCredits {
		t.Errorf("err = %v, want ErrInsufficientCredits", err)
	}

	credits, maxCredits, err := svc.Balance(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if credits != 0 || maxCredits != 2 {
		t.Errorf("balance = %d/%d, want 0/2", credits, maxCredits)
	}
}

func TestProviderKeyRoundTrip(t *testing.T) {
	ctx := context.Background()
	repos := setupTestRepos(t)
	runner := newTestRunner(t, repos, &mockProcessor{results: []mockResult{okResult("x")}})
	keys := runner.keys

	if _, err := keys.SetUserKey(ctx, "user-1", engine.ProviderGemini, "sk-user"); err != nil {
		t.Fatalf("SetUserKey failed: %v", err)
	}

	stored, err := keys.ListUserKeys(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 1 {
		t.Fatalf("got %d keys, want 1", len(stored))
	}
	if stored[0].APIKeyEncrypted == "sk-user" {
		t.Error("key must not be stored in the clear")
	}

	creds, err := keys.ResolveCredentials(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if creds.UserGeminiKey != "sk-user" {
		t.Errorf("resolved key = %q, want decrypted original", creds.UserGeminiKey)
	}

	if err := keys.DeleteUserKey(ctx, "user-1", engine.ProviderGemini); err != nil {
		t.Fatalf("DeleteUserKey failed: %v", err)
	}
	creds, err = keys.ResolveCredentials(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if creds.UserGeminiKey != "" {
		t.Error("deleted key must not resolve")
	}
}

func TestServiceKeyResolution(t *testing.T) {
	ctx := context.Background()
	repos := setupTestRepos(t)
	runner := newTestRunner(t, repos, &mockProcessor{results: []mockResult{okResult("x")}})
	keys := runner.keys
	keys.cfg.ServiceGeminiKey = ""

	if err := keys.SetServiceKey(ctx, engine.ProviderGroq, "sk-system"); err != nil {
		t.Fatalf("SetServiceKey failed: %v", err)
	}

	creds, err := keys.ResolveCredentials(ctx, "anyone")
	if err != nil {
		t.Fatal(err)
	}
	if creds.SystemGroqKey != "sk-system" {
		t.Errorf("system key = %q, want decrypted original", creds.SystemGroqKey)
	}
}
