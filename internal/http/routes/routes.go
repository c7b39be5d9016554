// Package routes wires handlers to API paths.
package routes

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/csvtree/csvtree-api/internal/http/handlers"
	"github.com/csvtree/csvtree-api/internal/http/mw"
)

// Register registers all JSON API routes with the given Huma API instance.
// Raw endpoints (CSV download, Stripe webhook) are mounted on the chi router
// directly by the server setup. Admin routes are skipped entirely when the
// admin console is disabled.
func Register(api huma.API, h *handlers.Handlers, adminEnabled bool) {
	// Public routes
	mw.PublicGet(api, "/api/v1/health", h.HealthCheck,
		mw.WithTags("Health"),
		mw.WithSummary("Health check"),
		mw.WithOperationID("healthCheck"))

	// Kubernetes-style probes, hidden from docs
	mw.HiddenGet(api, "/healthz", h.Livez)
	mw.HiddenGet(api, "/readyz", h.Readyz)

	// Records
	mw.ProtectedPost(api, "/api/v1/records", h.Record.SubmitBatch,
		mw.WithTags("Records"),
		mw.WithSummary("Submit a batch of files"),
		mw.WithOperationID("submitBatch"))
	mw.ProtectedGet(api, "/api/v1/records", h.Record.ListRecords,
		mw.WithTags("Records"),
		mw.WithSummary("List records"),
		mw.WithOperationID("listRecords"))
	mw.ProtectedDelete(api, "/api/v1/records", h.Record.ClearRecords,
		mw.WithTags("Records"),
		mw.WithSummary("Delete all records"),
		mw.WithOperationID("clearRecords"))
	mw.ProtectedGet(api, "/api/v1/records/{id}", h.Record.GetRecord,
		mw.WithTags("Records"),
		mw.WithSummary("Get record"),
		mw.WithOperationID("getRecord"))
	mw.ProtectedDelete(api, "/api/v1/records/{id}", h.Record.DeleteRecord,
		mw.WithTags("Records"),
		mw.WithSummary("Delete record"),
		mw.WithOperationID("deleteRecord"))
	mw.ProtectedPost(api, "/api/v1/records/{id}/requeue", h.Record.RequeueRecord,
		mw.WithTags("Records"),
		mw.WithSummary("Requeue an errored record"),
		mw.WithOperationID("requeueRecord"))

	// Batches
	mw.ProtectedGet(api, "/api/v1/batches", h.Batch.ListBatches,
		mw.WithTags("Batches"),
		mw.WithSummary("List batches"),
		mw.WithOperationID("listBatches"))
	mw.ProtectedGet(api, "/api/v1/batches/{id}", h.Batch.GetBatch,
		mw.WithTags("Batches"),
		mw.WithSummary("Get batch"),
		mw.WithOperationID("getBatch"))
	mw.ProtectedGet(api, "/api/v1/batches/{id}/records", h.Batch.BatchRecords,
		mw.WithTags("Batches"),
		mw.WithSummary("List batch records"),
		mw.WithOperationID("listBatchRecords"))

	// Profile and credits
	mw.ProtectedGet(api, "/api/v1/profile", h.Profile.GetProfile,
		mw.WithTags("Profile"),
		mw.WithSummary("Get profile"),
		mw.WithOperationID("getProfile"))
	mw.ProtectedPost(api, "/api/v1/profile/resync", h.Profile.Resync,
		mw.WithTags("Profile"),
		mw.WithSummary("Resync credits against tier"),
		mw.WithOperationID("resyncProfile"))
	mw.ProtectedDelete(api, "/api/v1/profile", h.Profile.DeleteAccount,
		mw.WithTags("Profile"),
		mw.WithSummary("Delete account"),
		mw.WithOperationID("deleteAccount"))
	mw.ProtectedGet(api, "/api/v1/credits", h.Profile.GetBalance,
		mw.WithTags("Profile"),
		mw.WithSummary("Get credit balance"),
		mw.WithOperationID("getBalance"))

	// Provider keys (BYOK)
	mw.ProtectedGet(api, "/api/v1/keys", h.Keys.ListKeys,
		mw.WithTags("Provider Keys"),
		mw.WithSummary("List provider keys"),
		mw.WithOperationID("listKeys"))
	mw.ProtectedPut(api, "/api/v1/keys", h.Keys.UpsertKey,
		mw.WithTags("Provider Keys"),
		mw.WithSummary("Upsert provider key"),
		mw.WithOperationID("upsertKey"))
	mw.ProtectedDelete(api, "/api/v1/keys/{provider}", h.Keys.DeleteKey,
		mw.WithTags("Provider Keys"),
		mw.WithSummary("Delete provider key"),
		mw.WithOperationID("deleteKey"))

	// Admin console, hidden from docs
	if !adminEnabled {
		return
	}
	mw.ProtectedGet(api, "/api/v1/admin/users", h.Admin.ListUsers,
		mw.WithTags("Admin"),
		mw.WithSummary("List users"),
		mw.WithOperationID("adminListUsers"),
		mw.WithAdmin(),
		mw.WithHidden())
	mw.ProtectedGet(api, "/api/v1/admin/users/{userID}", h.Admin.GetUser,
		mw.WithTags("Admin"),
		mw.WithSummary("Get user"),
		mw.WithOperationID("adminGetUser"),
		mw.WithAdmin(),
		mw.WithHidden())
	mw.ProtectedDelete(api, "/api/v1/admin/users/{userID}", h.Admin.DeleteUser,
		mw.WithTags("Admin"),
		mw.WithSummary("Delete user"),
		mw.WithOperationID("adminDeleteUser"),
		mw.WithAdmin(),
		mw.WithHidden())
	mw.ProtectedPut(api, "/api/v1/admin/users/{userID}/tier", h.Admin.SetTier,
		mw.WithTags("Admin"),
		mw.WithSummary("Set user tier"),
		mw.WithOperationID("adminSetTier"),
		mw.WithAdmin(),
		mw.WithHidden())
	mw.ProtectedPut(api, "/api/v1/admin/users/{userID}/credits", h.Admin.GrantCredits,
		mw.WithTags("Admin"),
		mw.WithSummary("Set user credits"),
		mw.WithOperationID("adminGrantCredits"),
		mw.WithAdmin(),
		mw.WithHidden())
	mw.ProtectedGet(api, "/api/v1/admin/service-keys", h.Admin.ListServiceKeys,
		mw.WithTags("Admin"),
		mw.WithSummary("List service keys"),
		mw.WithOperationID("adminListServiceKeys"),
		mw.WithAdmin(),
		mw.WithHidden())
	mw.ProtectedPut(api, "/api/v1/admin/service-keys", h.Admin.UpsertServiceKey,
		mw.WithTags("Admin"),
		mw.WithSummary("Upsert service key"),
		mw.WithOperationID("adminUpsertServiceKey"),
		mw.WithAdmin(),
		mw.WithHidden())
	mw.ProtectedDelete(api, "/api/v1/admin/service-keys/{provider}", h.Admin.DeleteServiceKey,
		mw.WithTags("Admin"),
		mw.WithSummary("Delete service key"),
		mw.WithOperationID("adminDeleteServiceKey"),
		mw.WithAdmin(),
		mw.WithHidden())
}
