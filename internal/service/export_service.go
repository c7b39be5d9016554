package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/csvtree/csvtree-api/internal/models"
	"github.com/csvtree/csvtree-api/internal/repository"
)

// ErrNoCompletedRecords is returned when an export has nothing to write.
var ErrNoCompletedRecords = errors.New("batch has no completed records")

// Export is a rendered CSV ready to stream to the client.
type Export struct {
	FileName string
	Data     []byte
}

// ExportService renders completed batch records as platform-shaped CSV files.
type ExportService struct {
	repos   *repository.Repositories
	storage *StorageService
	logger  *slog.Logger
}

// NewExportService creates a new export service.
func NewExportService(repos *repository.Repositories, storage *StorageService, logger *slog.Logger) *ExportService {
	return &ExportService{repos: repos, storage: storage, logger: logger}
}

// ExportBatch renders the CSV for a batch. Only completed records are
// included, in submission order. The column layout follows the batch's
// platform; prompt-mode batches always use the two-column prompt layout.
func (s *ExportService) ExportBatch(ctx context.Context, userID, batchID string) (*Export, error) {
	batch, err := s.repos.Batches.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, ErrNotFound
	}
	if batch.UserID != userID {
		return nil, ErrForbidden
	}

	settings, err := models.UnmarshalSettings(batch.SettingsJSON)
	if err != nil {
		return nil, err
	}

	records, err := s.repos.Records.GetCompletedByBatchID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoCompletedRecords
	}

	data := []byte(BuildCSV(records, settings))

	// Best effort: a failed archive never blocks the download.
	if err := s.storage.ArchiveExport(ctx, batchID, data); err != nil {
		s.logger.Warn("failed to archive export", "batch_id", batchID, "error", err)
	}

	s.logger.Info("export generated", "batch_id", batchID, "records", len(records), "bytes", len(data))
	return &Export{
		FileName: fmt.Sprintf("csvtree_%s.csv", batchID),
		Data:     data,
	}, nil
}

// BuildCSV renders records into CSV text. Every cell is quoted, embedded
// quotes are doubled, list cells join with ", ", rows join with "\n".
func BuildCSV(records []*models.Record, settings models.AppSettings) string {
	var rows [][]string

	if settings.Mode == models.ModeImageToPrompt {
		rows = append(rows, []string{"Filename", "Prompt"})
		for _, r := range records {
			rows = append(rows, []string{r.FileName, r.Prompt})
		}
		return renderCSV(rows)
	}

	switch settings.Platform {
	case models.PlatformAdobeStock:
		rows = append(rows, []string{"Filename", "Title", "Keywords"})
		for _, r := range records {
			rows = append(rows, []string{r.FileName, r.Title, joinList(r.Keywords)})
		}
	case models.PlatformShutterstock:
		rows = append(rows, []string{"Filename", "Description", "Keywords", "Categories"})
		for _, r := range records {
			rows = append(rows, []string{r.FileName, r.Description, joinList(r.Keywords), joinList(r.Categories)})
		}
	default:
		rows = append(rows, []string{"Filename", "Title", "Keywords", "Description", "Categories"})
		for _, r := range records {
			rows = append(rows, []string{r.FileName, r.Title, joinList(r.Keywords), r.Description, joinList(r.Categories)})
		}
	}
	return renderCSV(rows)
}

func renderCSV(rows [][]string) string {
	var sb strings.Builder
	for i, row := range rows {
		if i > 0 {
			sb.WriteByte('\n')
		}
		for j, cell := range row {
			if j > 0 {
				sb.WriteByte(',')
			}
			sb.WriteByte('"')
			sb.WriteString(strings.ReplaceAll(cell, `"`, `""`))
			sb.WriteByte('"')
		}
	}
	return sb.String()
}

func joinList(list []string) string {
	return strings.Join(list, ", ")
}
