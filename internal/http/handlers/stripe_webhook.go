package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/csvtree/csvtree-api/internal/config"
	"github.com/csvtree/csvtree-api/internal/constants"
	"github.com/csvtree/csvtree-api/internal/service"
)

// StripeWebhookHandler handles Stripe webhook events.
type StripeWebhookHandler struct {
	cfg      *config.Config
	profiles *service.ProfileService
	logger   *slog.Logger
}

// NewStripeWebhookHandler creates a new Stripe webhook handler.
func NewStripeWebhookHandler(cfg *config.Config, profiles *service.ProfileService, logger *slog.Logger) *StripeWebhookHandler {
	stripe.Key = cfg.StripeSecretKey

	return &StripeWebhookHandler{
		cfg:      cfg,
		profiles: profiles,
		logger:   logger,
	}
}

// HandleWebhook processes incoming Stripe webhooks. This is a raw HTTP
// handler because signature verification needs the unparsed body.
func (h *StripeWebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	const maxBodySize = 65536 // 64KB

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err)
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	event, err := webhook.ConstructEvent(payload, sigHeader, h.cfg.StripeWebhookSecret)
	if err != nil {
		h.logger.Error("failed to verify webhook signature", "error", err)
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	if err := h.handleEvent(r.Context(), event); err != nil {
		h.logger.Error("failed to handle webhook event", "type", event.Type, "error", err)
		// Return 200 anyway so Stripe does not retry an event we cannot
		// process; the log line carries the details.
		w.WriteHeader(http.StatusOK)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *StripeWebhookHandler) handleEvent(ctx context.Context, event stripe.Event) error {
	h.logger.Info("received Stripe webhook", "type", event.Type, "id", event.ID)

	switch event.Type {
	case "checkout.session.completed":
		return h.handleCheckoutComplete(ctx, event)
	case "customer.subscription.deleted":
		return h.handleSubscriptionCanceled(ctx, event)
	default:
		h.logger.Debug("unhandled webhook event type", "type", event.Type)
		return nil
	}
}

// handleCheckoutComplete upgrades the purchasing user to the Premium tier.
// The credit balance is replaced with the tier allocation.
func (h *StripeWebhookHandler) handleCheckoutComplete(ctx context.Context, event stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return fmt.Errorf("failed to unmarshal checkout session: %w", err)
	}

	userID, ok := session.Metadata["user_id"]
	if !ok || userID == "" {
		userID = session.ClientReferenceID
	}
	if userID == "" {
		h.logger.Warn("checkout session carries no user reference", "session_id", session.ID)
		return nil
	}

	if err := h.profiles.SetTier(ctx, userID, constants.TierPremium); err != nil {
		return fmt.Errorf("failed to upgrade user %s: %w", userID, err)
	}

	h.logger.Info("user upgraded", "user_id", userID, "tier", constants.TierPremium, "session_id", session.ID)
	return nil
}

// handleSubscriptionCanceled drops the user back to the free tier.
func (h *StripeWebhookHandler) handleSubscriptionCanceled(ctx context.Context, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("failed to unmarshal subscription: %w", err)
	}

	userID := sub.Metadata["user_id"]
	if userID == "" {
		h.logger.Warn("subscription carries no user reference", "subscription_id", sub.ID)
		return nil
	}

	if err := h.profiles.SetTier(ctx, userID, constants.TierFree); err != nil {
		return fmt.Errorf("failed to downgrade user %s: %w", userID, err)
	}

	h.logger.Info("user downgraded", "user_id", userID, "tier", constants.TierFree, "subscription_id", sub.ID)
	return nil
}
