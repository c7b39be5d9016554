package handlers

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/csvtree/csvtree-api/internal/models"
	"github.com/csvtree/csvtree-api/internal/service"
)

// BatchHandler handles batch endpoints.
type BatchHandler struct {
	records *service.RecordService
}

// BatchResponse is the client-facing batch representation.
type BatchResponse struct {
	ID             string     `json:"id"`
	Status         string     `json:"status"`
	TotalRecords   int        `json:"total_records"`
	CompletedCount int        `json:"completed_count"`
	FailedCount    int        `json:"failed_count"`
	HaltReason     string     `json:"halt_reason,omitempty"`
	HaltMessage    string     `json:"halt_message,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func toBatchResponse(b *models.Batch) BatchResponse {
	return BatchResponse{
		ID:             b.ID,
		Status:         string(b.Status),
		TotalRecords:   b.TotalRecords,
		CompletedCount: b.CompletedCount,
		FailedCount:    b.FailedCount,
		HaltReason:     b.HaltReason,
		HaltMessage:    b.HaltMessage,
		StartedAt:      b.StartedAt,
		CompletedAt:    b.CompletedAt,
		CreatedAt:      b.CreatedAt,
	}
}

// ListBatchesInput represents a batch listing request.
type ListBatchesInput struct {
	Limit  int `query:"limit" default:"50" minimum:"1" maximum:"200" doc:"Page size"`
	Offset int `query:"offset" default:"0" minimum:"0" doc:"Page offset"`
}

// ListBatchesOutput represents a batch listing response.
type ListBatchesOutput struct {
	Body struct {
		Batches []BatchResponse `json:"batches"`
	}
}

// ListBatches returns the caller's batches, newest first.
func (h *BatchHandler) ListBatches(ctx context.Context, input *ListBatchesInput) (*ListBatchesOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	batches, err := h.records.ListBatches(ctx, userID, input.Limit, input.Offset)
	if err != nil {
		return nil, serviceError(err)
	}

	out := &ListBatchesOutput{}
	out.Body.Batches = make([]BatchResponse, len(batches))
	for i, b := range batches {
		out.Body.Batches[i] = toBatchResponse(b)
	}
	return out, nil
}

// GetBatchInput identifies one batch.
type GetBatchInput struct {
	ID string `path:"id" doc:"Batch ID"`
}

// GetBatchOutput represents a single batch response.
type GetBatchOutput struct {
	Body BatchResponse
}

// GetBatch returns one batch.
func (h *BatchHandler) GetBatch(ctx context.Context, input *GetBatchInput) (*GetBatchOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	batch, err := h.records.GetBatch(ctx, userID, input.ID)
	if err != nil {
		return nil, serviceError(err)
	}
	return &GetBatchOutput{Body: toBatchResponse(batch)}, nil
}

// BatchRecordsOutput represents a batch's records.
type BatchRecordsOutput struct {
	Body struct {
		Records []RecordResponse `json:"records"`
	}
}

// BatchRecords returns the records of one batch, in submission order.
func (h *BatchHandler) BatchRecords(ctx context.Context, input *GetBatchInput) (*BatchRecordsOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	records, err := h.records.BatchRecords(ctx, userID, input.ID)
	if err != nil {
		return nil, serviceError(err)
	}

	out := &BatchRecordsOutput{}
	out.Body.Records = make([]RecordResponse, len(records))
	for i, r := range records {
		out.Body.Records[i] = toRecordResponse(r)
	}
	return out, nil
}
