package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/csvtree/csvtree-api/internal/models"
	"github.com/csvtree/csvtree-api/internal/service"
)

// RecordHandler handles record endpoints.
type RecordHandler struct {
	records *service.RecordService
}

// RecordResponse is the client-facing record representation. The thumbnail
// is omitted from list responses to keep payloads small.
type RecordResponse struct {
	ID           string     `json:"id"`
	BatchID      string     `json:"batch_id"`
	FileName     string     `json:"file_name"`
	Status       string     `json:"status"`
	Title        string     `json:"title,omitempty"`
	Keywords     []string   `json:"keywords,omitempty"`
	Categories   []string   `json:"categories,omitempty"`
	Description  string     `json:"description,omitempty"`
	Prompt       string     `json:"prompt,omitempty"`
	Engine       string     `json:"engine,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toRecordResponse(r *models.Record) RecordResponse {
	return RecordResponse{
		ID:           r.ID,
		BatchID:      r.BatchID,
		FileName:     r.FileName,
		Status:       string(r.Status),
		Title:        r.Title,
		Keywords:     r.Keywords,
		Categories:   r.Categories,
		Description:  r.Description,
		Prompt:       r.Prompt,
		Engine:       r.Engine,
		ErrorMessage: r.ErrorMessage,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// FileUpload is one file in a batch submission.
type FileUpload struct {
	FileName  string `json:"file_name" minLength:"1" doc:"Original file name, used in the CSV export"`
	Thumbnail string `json:"thumbnail" minLength:"1" doc:"Scaled-down preview as a base64 data URI"`
}

// SubmitBatchInput represents a batch submission request.
type SubmitBatchInput struct {
	Body struct {
		Files    []FileUpload       `json:"files" minItems:"1" doc:"Files to process, in submission order"`
		Settings models.AppSettings `json:"settings" doc:"Generation settings, snapshotted for this batch"`
	}
}

// SubmitBatchOutput represents a batch submission response.
type SubmitBatchOutput struct {
	Status int
	Body   BatchResponse
}

// SubmitBatch accepts a batch of files. Records are queued pending; the
// worker picks the batch up on its next poll.
func (h *RecordHandler) SubmitBatch(ctx context.Context, input *SubmitBatchInput) (*SubmitBatchOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	uploads := make([]service.RecordUpload, len(input.Body.Files))
	for i, f := range input.Body.Files {
		uploads[i] = service.RecordUpload{FileName: f.FileName, Thumbnail: f.Thumbnail}
	}

	batch, err := h.records.SubmitBatch(ctx, userID, uploads, input.Body.Settings)
	if err != nil {
		return nil, serviceError(err)
	}
	return &SubmitBatchOutput{
		Status: http.StatusCreated,
		Body:   toBatchResponse(batch),
	}, nil
}

// ListRecordsInput represents a record listing request.
type ListRecordsInput struct {
	Limit  int `query:"limit" default:"100" minimum:"1" maximum:"500" doc:"Page size"`
	Offset int `query:"offset" default:"0" minimum:"0" doc:"Page offset"`
}

// ListRecordsOutput represents a record listing response.
type ListRecordsOutput struct {
	Body struct {
		Records []RecordResponse `json:"records"`
	}
}

// ListRecords returns the caller's records.
func (h *RecordHandler) ListRecords(ctx context.Context, input *ListRecordsInput) (*ListRecordsOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	records, err := h.records.ListRecords(ctx, userID, input.Limit, input.Offset)
	if err != nil {
		return nil, serviceError(err)
	}

	out := &ListRecordsOutput{}
	out.Body.Records = make([]RecordResponse, len(records))
	for i, r := range records {
		out.Body.Records[i] = toRecordResponse(r)
	}
	return out, nil
}

// GetRecordInput identifies one record.
type GetRecordInput struct {
	ID string `path:"id" doc:"Record ID"`
}

// GetRecordOutput represents a single record response.
type GetRecordOutput struct {
	Body RecordResponse
}

// GetRecord returns one record.
func (h *RecordHandler) GetRecord(ctx context.Context, input *GetRecordInput) (*GetRecordOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	record, err := h.records.GetRecord(ctx, userID, input.ID)
	if err != nil {
		return nil, serviceError(err)
	}
	return &GetRecordOutput{Body: toRecordResponse(record)}, nil
}

// DeleteRecordOutput represents a record deletion response.
type DeleteRecordOutput struct {
	Body struct {
		Deleted bool `json:"deleted"`
	}
}

// DeleteRecord removes one record.
func (h *RecordHandler) DeleteRecord(ctx context.Context, input *GetRecordInput) (*DeleteRecordOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	if err := h.records.DeleteRecord(ctx, userID, input.ID); err != nil {
		return nil, serviceError(err)
	}
	out := &DeleteRecordOutput{}
	out.Body.Deleted = true
	return out, nil
}

// RequeueRecordOutput represents a requeue response.
type RequeueRecordOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

// RequeueRecord puts an errored record back in the queue and reopens its
// batch.
func (h *RecordHandler) RequeueRecord(ctx context.Context, input *GetRecordInput) (*RequeueRecordOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	if err := h.records.RequeueRecord(ctx, userID, input.ID); err != nil {
		return nil, serviceError(err)
	}
	out := &RequeueRecordOutput{}
	out.Body.Status = string(models.RecordStatusPending)
	return out, nil
}

// ClearRecordsOutput represents a clear-all response.
type ClearRecordsOutput struct {
	Body struct {
		Deleted int64 `json:"deleted"`
	}
}

// ClearRecords removes every record owned by the caller.
func (h *RecordHandler) ClearRecords(ctx context.Context, input *struct{}) (*ClearRecordsOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	deleted, err := h.records.ClearRecords(ctx, userID)
	if err != nil {
		return nil, serviceError(err)
	}
	out := &ClearRecordsOutput{}
	out.Body.Deleted = deleted
	return out, nil
}
