// Package models defines the domain models for the application.
// User identity comes from the auth token (sub claim); the UserID fields
// reference that identifier.
package models

import (
	"time"
)

// RecordStatus represents the lifecycle status of a metadata record.
type RecordStatus string

const (
	RecordStatusPending    RecordStatus = "pending"
	RecordStatusProcessing RecordStatus = "processing"
	RecordStatusCompleted  RecordStatus = "completed"
	RecordStatusError      RecordStatus = "error"
)

// Record represents one uploaded asset and its extraction result.
// Title/Keywords/Categories/Description are populated in metadata mode,
// Prompt in image-to-prompt mode; the two sets are mutually exclusive.
type Record struct {
	ID           string       `json:"id"`
	UserID       string       `json:"user_id"`
	BatchID      string       `json:"batch_id"`
	FileName     string       `json:"file_name"`
	Thumbnail    string       `json:"thumbnail,omitempty"` // data URI; empty when offloaded to object storage
	StorageKey   string       `json:"storage_key,omitempty"`
	Status       RecordStatus `json:"status"`
	Title        string       `json:"title,omitempty"`
	Keywords     []string     `json:"keywords,omitempty"`
	Categories   []string     `json:"categories,omitempty"`
	Description  string       `json:"description,omitempty"`
	Prompt       string       `json:"prompt,omitempty"`
	Engine       string       `json:"engine,omitempty"` // provider that produced the result
	ErrorMessage string       `json:"error_message,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// BatchStatus represents the status of a batch run.
type BatchStatus string

const (
	BatchStatusPending   BatchStatus = "pending"
	BatchStatusRunning   BatchStatus = "running"
	BatchStatusCompleted BatchStatus = "completed"
	BatchStatusHalted    BatchStatus = "halted"
)

// Halt reasons surfaced on a batch. The distinction matters to the caller:
// a credential halt needs a key fix, a credit halt needs a refill or upgrade,
// and a restart halt means the server died mid-run and nothing is wrong with
// the batch itself.
const (
	HaltReasonCredentials = "credentials"
	HaltReasonCredits     = "credits"
	HaltReasonRestart     = "restart"
)

// Batch represents an ordered set of records submitted for processing together.
// SettingsJSON is the AppSettings snapshot the whole batch runs under.
type Batch struct {
	ID             string      `json:"id"`
	UserID         string      `json:"user_id"`
	Status         BatchStatus `json:"status"`
	SettingsJSON   string      `json:"settings_json"`
	TotalRecords   int         `json:"total_records"`
	CompletedCount int         `json:"completed_count"`
	FailedCount    int         `json:"failed_count"`
	HaltReason     string      `json:"halt_reason,omitempty"`
	HaltMessage    string      `json:"halt_message,omitempty"`
	StartedAt      *time.Time  `json:"started_at,omitempty"`
	CompletedAt    *time.Time  `json:"completed_at,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// UserProfile holds a user's account data and credit ledger state.
// Credits are mutated only through the atomic repository operations,
// never by direct field overwrite.
type UserProfile struct {
	UserID        string    `json:"user_id"`
	Email         string    `json:"email,omitempty"`
	DisplayName   string    `json:"display_name,omitempty"`
	Credits       int       `json:"credits"`
	MaxCredits    int       `json:"max_credits"`
	Tier          string    `json:"tier"`
	LastResetDate time.Time `json:"last_reset_date"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ProviderKey represents a user-configured vision provider API key (BYOK).
type ProviderKey struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Provider        string    `json:"provider"` // gemini, groq
	APIKeyEncrypted string    `json:"-"`
	IsEnabled       bool      `json:"is_enabled"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ServiceKey represents a system-wide provider API key (admin-configured).
// Used as the default credential for users without a key of their own.
type ServiceKey struct {
	Provider        string    `json:"provider"`
	APIKeyEncrypted string    `json:"-"`
	IsEnabled       bool      `json:"is_enabled"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
