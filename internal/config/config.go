// Package config handles application configuration.
package config

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/hkdf"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port    int
	BaseURL string

	// Database
	DatabaseURL string

	// Authentication
	JWTSecret     string
	EncryptionKey []byte // 32-byte key for AES-256-GCM encryption

	// Stripe
	StripeSecretKey     string
	StripeWebhookSecret string
	StripePremiumPrice  string // price ID that maps a checkout to the Premium tier

	// Service vision keys (defaults for users without their own keys)
	ServiceGeminiKey string
	ServiceGroqKey   string

	// Admin
	AdminEnabled bool
	AdminUserIDs []string // user IDs granted admin access in addition to token claims

	// CORS
	CORSOrigins []string

	// Object Storage (Tigris/S3-compatible), used for thumbnail offload
	// and export archival when configured
	StorageEnabled   bool
	StorageEndpoint  string // AWS_ENDPOINT_URL_S3 for Tigris
	StorageAccessKey string // AWS_ACCESS_KEY_ID
	StorageSecretKey string // AWS_SECRET_ACCESS_KEY
	StorageBucket    string
	StorageRegion    string

	// Worker
	WorkerPollInterval        time.Duration // How often to poll for pending batches (default 2s)
	WorkerShutdownGracePeriod time.Duration // Max time to wait for a running batch during shutdown (default 2m)

	// Provider call settings
	ProviderTimeout time.Duration // Per-record provider request timeout (default 90s)

	// Upload limits
	MaxRecordsPerBatch int
	MaxThumbnailBytes  int // max size of a base64 thumbnail payload

	// Idle shutdown settings (for scale-to-zero on Fly.io)
	IdleTimeout time.Duration // Time before shutting down when idle (0 = disabled)
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnvInt("PORT", 8080),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		DatabaseURL: getEnv("DATABASE_URL", "file:csvtree.db?_journal=WAL&_timeout=5000"),
		JWTSecret:   getEnv("JWT_SECRET", ""),

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripePremiumPrice:  getEnv("STRIPE_PREMIUM_PRICE_ID", ""),

		ServiceGeminiKey: getEnv("SERVICE_GEMINI_KEY", ""),
		ServiceGroqKey:   getEnv("SERVICE_GROQ_KEY", ""),

		AdminEnabled: getEnvBool("ADMIN_ENABLED", true),
		AdminUserIDs: getEnvSlice("ADMIN_USER_IDS", nil),

		CORSOrigins: getEnvSlice("CORS_ORIGINS", []string{"http://localhost:3000"}),

		// Object Storage (Tigris/S3-compatible) - uses Fly's standard env vars
		// BUCKET_NAME is set automatically by `fly storage create`
		StorageEndpoint:  getEnv("AWS_ENDPOINT_URL_S3", ""),
		StorageAccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
		StorageSecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		StorageBucket:    getEnvWithFallback("BUCKET_NAME", "STORAGE_BUCKET", ""),
		StorageRegion:    getEnv("AWS_REGION", "auto"),
	}

	// Enable storage if bucket is configured
	cfg.StorageEnabled = cfg.StorageBucket != "" && cfg.StorageEndpoint != ""

	// Worker configuration
	cfg.WorkerPollInterval = getEnvDuration("WORKER_POLL_INTERVAL", 2*time.Second)
	cfg.WorkerShutdownGracePeriod = getEnvDuration("WORKER_SHUTDOWN_GRACE_PERIOD", 2*time.Minute)

	// Provider call configuration
	cfg.ProviderTimeout = getEnvDuration("PROVIDER_TIMEOUT", 90*time.Second)

	// Upload limits
	cfg.MaxRecordsPerBatch = getEnvInt("MAX_RECORDS_PER_BATCH", 500)
	cfg.MaxThumbnailBytes = getEnvInt("MAX_THUMBNAIL_BYTES", 512*1024)

	// Idle shutdown configuration (for Fly.io scale-to-zero)
	cfg.IdleTimeout = getEnvDuration("IDLE_TIMEOUT", 0) // 0 = disabled

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	// Set up encryption key (derive from JWT secret if not explicitly set)
	encKeyStr := getEnv("ENCRYPTION_KEY", "")
	if encKeyStr != "" {
		// Decode base64 key if provided
		decoded, err := base64.StdEncoding.DecodeString(encKeyStr)
		if err != nil || len(decoded) != 32 {
			return nil, fmt.Errorf("ENCRYPTION_KEY must be a base64-encoded 32-byte key")
		}
		cfg.EncryptionKey = decoded
	} else {
		cfg.EncryptionKey = deriveEncryptionKey(cfg.JWTSecret)
	}

	return cfg, nil
}

// HasServiceKeys returns true if at least one system-wide provider key is set.
func (c *Config) HasServiceKeys() bool {
	return c.ServiceGeminiKey != "" || c.ServiceGroqKey != ""
}

// IsAdminUser returns true if the user ID is in the configured admin list.
func (c *Config) IsAdminUser(userID string) bool {
	for _, id := range c.AdminUserIDs {
		if strings.TrimSpace(id) == userID {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "true" || lower == "1" || lower == "yes"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

func getEnvWithFallback(primary, fallback, defaultValue string) string {
	if value := os.Getenv(primary); value != "" {
		return value
	}
	if value := os.Getenv(fallback); value != "" {
		return value
	}
	return defaultValue
}

// deriveEncryptionKey creates a 32-byte AES-256 key from a secret string using HKDF.
// HKDF (HMAC-based Key Derivation Function) is appropriate for deriving keys from
// high-entropy secrets like JWT secrets. For low-entropy passwords, use Argon2 instead.
func deriveEncryptionKey(secret string) []byte {
	// Use HKDF with SHA-256
	// - Salt: fixed but unique to this application
	// - Info: context string to bind the key to its purpose
	salt := []byte("csvtree-api-encryption-key-v1")
	info := []byte("aes-256-gcm-encryption")

	hkdfReader := hkdf.New(sha256.New, []byte(secret), salt, info)

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdfReader, key); err != nil {
		// This should never happen with valid inputs
		panic("hkdf: failed to derive key: " + err.Error())
	}

	return key
}
