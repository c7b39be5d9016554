// Package engine decides which vision provider handles a record and
// classifies provider failures so the batch runner can react correctly.
package engine

import "errors"

// Provider identifiers. Stored on records and provider key rows.
const (
	ProviderGemini = "gemini"
	ProviderGroq   = "groq"
)

// Providers lists the supported providers in selection priority order.
var Providers = []string{ProviderGemini, ProviderGroq}

// ValidProvider reports whether the name is a supported provider.
func ValidProvider(name string) bool {
	for _, p := range Providers {
		if p == name {
			return true
		}
	}
	return false
}

// ErrNoCredentials is returned when neither the user nor the system has a
// usable key for any provider.
var ErrNoCredentials = errors.New("no vision provider credentials available")

// Credential is a resolved provider API key plus its origin.
type Credential struct {
	Provider string
	APIKey   string
	// UserOwned is true for BYOK keys. System key failures are reported
	// differently since the user cannot fix them.
	UserOwned bool
}

// CredentialSet holds every key available to a user for one batch run.
// Empty strings mean "not configured".
type CredentialSet struct {
	UserGeminiKey   string
	UserGroqKey     string
	SystemGeminiKey string
	SystemGroqKey   string
}

// Select picks the credential for a run. User keys always win over system
// keys, and Gemini wins over Groq within each group. The order is fixed so
// a batch is deterministic given the same configured keys.
func Select(creds CredentialSet) (Credential, error) {
	switch {
	case creds.UserGeminiKey != "":
		return Credential{Provider: ProviderGemini, APIKey: creds.UserGeminiKey, UserOwned: true}, nil
	case creds.UserGroqKey != "":
		return Credential{Provider: ProviderGroq, APIKey: creds.UserGroqKey, UserOwned: true}, nil
	case creds.SystemGeminiKey != "":
		return Credential{Provider: ProviderGemini, APIKey: creds.SystemGeminiKey}, nil
	case creds.SystemGroqKey != "":
		return Credential{Provider: ProviderGroq, APIKey: creds.SystemGroqKey}, nil
	default:
		return Credential{}, ErrNoCredentials
	}
}
