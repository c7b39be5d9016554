package constants

import "testing"

func TestGetTierLimits(t *testing.T) {
	tests := []struct {
		tier        string
		wantCredits int
	}{
		{TierFree, 100},
		{TierPremium, 6000},
		{"nonexistent", 100}, // unknown tiers fall back to free
		{"", 100},
	}

	for _, tt := range tests {
		t.Run(tt.tier, func(t *testing.T) {
			got := GetTierLimits(tt.tier)
			if got.Credits != tt.wantCredits {
				t.Errorf("GetTierLimits(%q).Credits = %d, want %d", tt.tier, got.Credits, tt.wantCredits)
			}
		})
	}
}

func TestValidTier(t *testing.T) {
	if !ValidTier(TierFree) || !ValidTier(TierPremium) {
		t.Error("expected defined tiers to be valid")
	}
	if ValidTier("enterprise") {
		t.Error("expected unknown tier to be invalid")
	}
}

func TestTierOrdering(t *testing.T) {
	if Tiers[TierFree].Order >= Tiers[TierPremium].Order {
		t.Error("free tier should sort before premium")
	}
}
