// Package constants defines centralized configuration for tier limits,
// rate limits, and user-facing messages. Change values here to update
// limits across the entire application.
package constants

// Tier names as stored on user profiles.
const (
	TierFree    = "Free"
	TierPremium = "Premium"
)

// TierLimits defines the numeric limits for a subscription tier.
type TierLimits struct {
	// DisplayName is the user-facing name for this tier.
	DisplayName string
	// Order controls the display order in pricing tables (lower = first).
	Order int
	// Credits is the credit allocation granted on signup, tier change, and reset.
	Credits int
	// RequestsPerMinute is the rate limit for API requests (0 = unlimited).
	RequestsPerMinute int
}

// Tiers defines limits for each subscription tier.
// To change tier limits, modify this map.
var Tiers = map[string]TierLimits{
	TierFree: {
		DisplayName:       "Free",
		Order:             0,
		Credits:           100,
		RequestsPerMinute: 30,
	},
	TierPremium: {
		DisplayName:       "Premium",
		Order:             1,
		Credits:           6000,
		RequestsPerMinute: 120,
	},
}

// GetTierLimits returns the limits for the given tier, falling back to the
// free tier for unknown names so a bad row never grants unlimited access.
func GetTierLimits(tier string) TierLimits {
	if limits, ok := Tiers[tier]; ok {
		return limits
	}
	return Tiers[TierFree]
}

// ValidTier reports whether the name is a recognized tier.
func ValidTier(tier string) bool {
	_, ok := Tiers[tier]
	return ok
}

// CreditsForTier returns the credit allocation for a tier.
func CreditsForTier(tier string) int {
	return GetTierLimits(tier).Credits
}

// CreditCostPerRecord is the number of credits consumed per processed record.
const CreditCostPerRecord = 1
