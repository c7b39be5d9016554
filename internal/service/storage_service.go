package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "github.com/csvtree/csvtree-api/internal/config"
)

// StorageService handles object storage operations (Tigris/S3-compatible).
// It offloads record thumbnails out of the database and archives CSV exports.
// When no bucket is configured every operation degrades gracefully.
type StorageService struct {
	client  *s3.Client
	bucket  string
	enabled bool
	logger  *slog.Logger
}

// NewStorageService creates a new storage service.
func NewStorageService(cfg *appconfig.Config, logger *slog.Logger) (*StorageService, error) {
	if !cfg.StorageEnabled {
		logger.Info("storage service disabled - no bucket configured")
		return &StorageService{
			enabled: false,
			logger:  logger,
		}, nil
	}

	// Load AWS config with static credentials
	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(cfg.StorageRegion),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.StorageAccessKey,
			cfg.StorageSecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Create S3 client with custom endpoint for S3-compatible storage (Tigris, MinIO, etc.)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.StorageEndpoint)
		o.UsePathStyle = true // Required for some S3-compatible services
	})

	logger.Info("storage service initialized",
		"bucket", cfg.StorageBucket,
		"endpoint", cfg.StorageEndpoint,
	)

	return &StorageService{
		client:  client,
		bucket:  cfg.StorageBucket,
		enabled: true,
		logger:  logger,
	}, nil
}

// IsEnabled returns true if object storage is configured.
func (s *StorageService) IsEnabled() bool {
	return s.enabled
}

// StoreThumbnail uploads a record's thumbnail and returns the object key.
// The thumbnail is stored as raw image bytes; the data URI wrapper is shed.
func (s *StorageService) StoreThumbnail(ctx context.Context, recordID, dataURI string) (string, error) {
	if !s.enabled {
		return "", fmt.Errorf("storage not configured")
	}

	mimeType, payload, ok := strings.Cut(strings.TrimPrefix(dataURI, "data:"), ",")
	if !ok {
		return "", fmt.Errorf("thumbnail is not a data URI")
	}
	mimeType = strings.TrimSuffix(mimeType, ";base64")

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("failed to decode thumbnail: %w", err)
	}

	key := fmt.Sprintf("thumbnails/%s", recordID)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(raw),
		ContentType: aws.String(mimeType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to store thumbnail: %w", err)
	}

	s.logger.Debug("stored thumbnail", "record_id", recordID, "bytes", len(raw))
	return key, nil
}

// GetThumbnail fetches a thumbnail by object key and rebuilds the data URI.
func (s *StorageService) GetThumbnail(ctx context.Context, key string) (string, error) {
	if !s.enabled {
		return "", fmt.Errorf("storage not configured")
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get thumbnail: %w", err)
	}
	defer func() { _ = out.Body.Close() }()

	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read thumbnail: %w", err)
	}

	mimeType := "image/jpeg"
	if out.ContentType != nil && *out.ContentType != "" {
		mimeType = *out.ContentType
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(raw)), nil
}

// DeleteThumbnail removes a thumbnail object. Missing objects are not an error.
func (s *StorageService) DeleteThumbnail(ctx context.Context, key string) error {
	if !s.enabled || key == "" {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete thumbnail: %w", err)
	}
	return nil
}

// ArchiveExport stores a generated CSV so past exports can be re-downloaded.
func (s *StorageService) ArchiveExport(ctx context.Context, batchID string, csvData []byte) error {
	if !s.enabled {
		return nil
	}
	key := fmt.Sprintf("exports/csvtree_%s.csv", batchID)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(csvData),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return fmt.Errorf("failed to archive export: %w", err)
	}
	s.logger.Debug("archived export", "batch_id", batchID, "bytes", len(csvData))
	return nil
}
