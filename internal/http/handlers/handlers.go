// Package handlers contains HTTP handlers for the API.
package handlers

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/csvtree/csvtree-api/internal/config"
	"github.com/csvtree/csvtree-api/internal/http/mw"
	"github.com/csvtree/csvtree-api/internal/service"
	"github.com/csvtree/csvtree-api/internal/version"
)

// Handlers bundles every handler group for route registration.
type Handlers struct {
	Record  *RecordHandler
	Batch   *BatchHandler
	Export  *ExportHandler
	Profile *ProfileHandler
	Keys    *KeyHandler
	Admin   *AdminHandler
	Stripe  *StripeWebhookHandler

	db *sql.DB
}

// New creates the handler set from the service layer.
func New(cfg *config.Config, services *service.Services, db *sql.DB, logger *slog.Logger) *Handlers {
	return &Handlers{
		Record:  &RecordHandler{records: services.Record},
		Batch:   &BatchHandler{records: services.Record},
		Export:  NewExportHandler(services.Export, logger),
		Profile: &ProfileHandler{profiles: services.Profile, credits: services.Credit},
		Keys:    &KeyHandler{keys: services.ProviderKey},
		Admin:   &AdminHandler{admin: services.Admin, profiles: services.Profile, credits: services.Credit},
		Stripe:  NewStripeWebhookHandler(cfg, services.Profile, logger),
		db:      db,
	}
}

// HealthCheckOutput represents the health check response.
type HealthCheckOutput struct {
	Body struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
}

// HealthCheck returns the health status of the API.
func (h *Handlers) HealthCheck(ctx context.Context, input *struct{}) (*HealthCheckOutput, error) {
	out := &HealthCheckOutput{}
	out.Body.Status = "healthy"
	out.Body.Version = version.Get().Short()
	return out, nil
}

// ProbeOutput is the body for the kubernetes-style probes.
type ProbeOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

// Livez reports process liveness.
func (h *Handlers) Livez(ctx context.Context, input *struct{}) (*ProbeOutput, error) {
	out := &ProbeOutput{}
	out.Body.Status = "ok"
	return out, nil
}

// Readyz reports readiness, checking the database connection.
func (h *Handlers) Readyz(ctx context.Context, input *struct{}) (*ProbeOutput, error) {
	if err := h.db.PingContext(ctx); err != nil {
		return nil, huma.Error503ServiceUnavailable("database not reachable")
	}
	out := &ProbeOutput{}
	out.Body.Status = "ok"
	return out, nil
}

// getUserID extracts the authenticated user ID from context.
func getUserID(ctx context.Context) string {
	claims := mw.GetUserClaims(ctx)
	if claims == nil {
		return ""
	}
	return claims.UserID
}
