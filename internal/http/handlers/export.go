package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/csvtree/csvtree-api/internal/http/mw"
	"github.com/csvtree/csvtree-api/internal/service"
)

// ExportHandler streams CSV exports. This is a raw chi handler because the
// response is a file download, not a JSON body.
type ExportHandler struct {
	export *service.ExportService
	logger *slog.Logger
}

// NewExportHandler creates a new export handler.
func NewExportHandler(export *service.ExportService, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{export: export, logger: logger}
}

// Download renders and streams the CSV for a batch.
func (h *ExportHandler) Download(w http.ResponseWriter, r *http.Request) {
	claims := mw.GetUserClaims(r.Context())
	if claims == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	batchID := chi.URLParam(r, "id")

	export, err := h.export.ExportBatch(r.Context(), claims.UserID, batchID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrForbidden):
			http.Error(w, "not found", http.StatusNotFound)
		case errors.Is(err, service.ErrNoCompletedRecords):
			http.Error(w, "batch has no completed records", http.StatusNotFound)
		default:
			if h.logger != nil {
				h.logger.Error("export failed", "batch_id", batchID, "error", err)
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(export.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(export.Data)
}
