package engine

import (
	"errors"
	"net/http"
	"strings"
)

// Sentinel errors for vision provider operations.
var (
	// ErrInvalidAPIKey indicates the API key is invalid, expired, or lacks access.
	ErrInvalidAPIKey = errors.New("invalid API key")

	// ErrQuotaExhausted indicates the key's provider-side quota or billing is exhausted.
	ErrQuotaExhausted = errors.New("provider quota exhausted")

	// ErrProviderUnavailable indicates a transient provider-side failure.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrMalformedResponse indicates the provider replied but the payload
	// could not be parsed into an extraction result.
	ErrMalformedResponse = errors.New("malformed provider response")
)

// Error categories for classification.
const (
	CategoryCredential = "credential"
	CategoryTransient  = "transient"
	CategoryParse      = "parse"
)

// ProviderError represents a failure from a vision provider call.
// Halt tells the batch runner to stop the whole run instead of marking a
// single record failed: further calls with the same credential cannot succeed.
type ProviderError struct {
	// Original error from the provider
	Err error

	// HTTP status code (if applicable)
	StatusCode int

	// Provider name (gemini, groq)
	Provider string

	// Error category (credential, transient, parse)
	Category string

	// User-friendly message to display
	UserMessage string

	// Raw error message (for admin visibility and logs)
	RawMessage string

	// Whether the batch run should halt rather than continue
	Halt bool
}

func (e *ProviderError) Error() string {
	if e.UserMessage != "" {
		return e.UserMessage
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown provider error"
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsCredentialError returns true if the failure means the credential itself
// is bad or spent and retrying other records would also fail.
func (e *ProviderError) IsCredentialError() bool {
	return e.Category == CategoryCredential
}

// Classify analyzes an error from a provider call and returns a classified
// ProviderError. Status code wins where it is unambiguous; otherwise the
// error message is inspected, since providers put key and quota problems
// behind generic 400s often enough.
func Classify(err error, provider string, statusCode int) *ProviderError {
	if err == nil {
		return nil
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}

	errStr := strings.ToLower(err.Error())
	perr := &ProviderError{
		Err:        err,
		StatusCode: statusCode,
		Provider:   provider,
		RawMessage: err.Error(),
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden: // 401, 403
		perr.Err = ErrInvalidAPIKey
		perr.Category = CategoryCredential
		perr.UserMessage = "Invalid API key. Check the configured key for " + provider + "."
		perr.Halt = true
		return perr

	case http.StatusPaymentRequired: // 402
		perr.Err = ErrQuotaExhausted
		perr.Category = CategoryCredential
		perr.UserMessage = "Provider quota exhausted. Check billing for the " + provider + " key."
		perr.Halt = true
		return perr

	case http.StatusTooManyRequests: // 429
		// Rate limits recover; a daily quota does not. Distinguish by message.
		if strings.Contains(errStr, "quota") || strings.Contains(errStr, "billing") {
			perr.Err = ErrQuotaExhausted
			perr.Category = CategoryCredential
			perr.UserMessage = "Provider quota exhausted. Check billing for the " + provider + " key."
			perr.Halt = true
			return perr
		}
		perr.Err = ErrProviderUnavailable
		perr.Category = CategoryTransient
		perr.UserMessage = "Rate limit exceeded. The record can be requeued."
		return perr

	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout: // 502, 503, 504
		perr.Err = ErrProviderUnavailable
		perr.Category = CategoryTransient
		perr.UserMessage = "The provider is temporarily unavailable. The record can be requeued."
		return perr
	}

	// Message-based classification for ambiguous status codes
	switch {
	case strings.Contains(errStr, "api key") || strings.Contains(errStr, "api_key") ||
		strings.Contains(errStr, "unauthorized") || strings.Contains(errStr, "permission"):
		perr.Err = ErrInvalidAPIKey
		perr.Category = CategoryCredential
		perr.UserMessage = "Invalid API key. Check the configured key for " + provider + "."
		perr.Halt = true

	case strings.Contains(errStr, "quota") || strings.Contains(errStr, "billing"):
		perr.Err = ErrQuotaExhausted
		perr.Category = CategoryCredential
		perr.UserMessage = "Provider quota exhausted. Check billing for the " + provider + " key."
		perr.Halt = true

	case errors.Is(err, ErrMalformedResponse):
		perr.Category = CategoryParse
		perr.UserMessage = "The provider returned an unreadable response for this file."

	default:
		perr.Err = ErrProviderUnavailable
		perr.Category = CategoryTransient
		perr.UserMessage = "The provider request failed. The record can be requeued."
	}

	return perr
}
