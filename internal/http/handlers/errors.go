package handlers

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/csvtree/csvtree-api/internal/service"
)

// serviceError maps service-layer sentinels onto HTTP status errors. Unknown
// errors become opaque 500s so internals never leak to clients.
func serviceError(err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return huma.Error404NotFound("not found")
	case errors.Is(err, service.ErrForbidden):
		return huma.Error404NotFound("not found")
	case errors.Is(err, service.ErrEmptyBatch):
		return huma.Error400BadRequest("batch contains no files")
	case errors.Is(err, service.ErrBatchTooLarge):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, service.ErrThumbnailSize):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, service.ErrInvalidSettings):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, service.ErrInvalidUpload):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, service.ErrNotRequeueable):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, service.ErrInsufficientCredits):
		return huma.NewError(http.StatusPaymentRequired, "insufficient credits")
	case errors.Is(err, service.ErrNoCompletedRecords):
		return huma.Error404NotFound("batch has no completed records")
	default:
		return huma.Error500InternalServerError("internal error")
	}
}
