package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	svix "github.com/svix/svix-webhooks/go"

	"github.com/gorilla/mux"
	"github.com/skillsync/skillsync-backend/internal/infrastructure/observability"
	"github.com/skillsync/skillsync-backend/internal/infrastructure/payments"
	"github.com/skillsync/skillsync-backend/internal/models"
)

const maxWebhookBody = 1 << 16

// WebhookHandler terminates the two inbound webhook surfaces: the
// payment gateway and the identity provider. Both verify signatures on
// the raw body before anything is parsed.
type WebhookHandler struct {
	gateway        payments.Gateway
	purchases      purchaseReconciler
	users          userSyncer
	identityVerify *svix.Webhook
}

// purchaseReconciler and userSyncer narrow the handler's dependencies
// to what the webhook paths actually call.
type purchaseReconciler interface {
	Finalize(ctx context.Context, purchaseID string) error
	Fail(ctx context.Context, purchaseID string) error
}

type userSyncer interface {
	SyncUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, userID string) error
}

func NewWebhookHandler(gateway payments.Gateway, purchases purchaseReconciler, users userSyncer, identitySecret string) (*WebhookHandler, error) {
	wh, err := svix.NewWebhook(identitySecret)
	if err != nil {
		return nil, err
	}
	return &WebhookHandler{
		gateway:        gateway,
		purchases:      purchases,
		users:          users,
		identityVerify: wh,
	}, nil
}

func (h *WebhookHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/payments", h.HandlePaymentEvent).Methods("POST")
	r.HandleFunc("/identity", h.HandleIdentityEvent).Methods("POST")
}

// HandlePaymentEvent reconciles purchase state from gateway deliveries.
// The gateway redelivers on any non-2xx, so the only 5xx here is a real
// processing fault; unknown event types and unknown purchase ids are
// acknowledged.
func (h *WebhookHandler) HandlePaymentEvent(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	event, err := h.gateway.ConstructEvent(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		observability.WebhookEvents.WithLabelValues("payments", "unknown", "rejected").Inc()
		slog.Warn("payment webhook signature verification failed", "error", err)
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	var object payments.EventObject
	if err := json.Unmarshal(event.Object, &object); err != nil {
		observability.WebhookEvents.WithLabelValues("payments", event.Type, "rejected").Inc()
		slog.Error("failed to decode payment event object", "type", event.Type, "error", err)
		http.Error(w, "malformed event", http.StatusBadRequest)
		return
	}
	purchaseID := object.PurchaseID()

	var procErr error
	switch event.Type {
	case payments.EventCheckoutCompleted,
		payments.EventAsyncPaymentSucceeded,
		payments.EventPaymentIntentSucceeded:
		procErr = h.purchases.Finalize(r.Context(), purchaseID)
	case payments.EventCheckoutExpired,
		payments.EventAsyncPaymentFailed:
		procErr = h.purchases.Fail(r.Context(), purchaseID)
	default:
		observability.WebhookEvents.WithLabelValues("payments", event.Type, "ignored").Inc()
		slog.Info("ignoring unhandled payment event", "type", event.Type)
		h.writeReceived(w)
		return
	}

	if procErr != nil {
		observability.WebhookEvents.WithLabelValues("payments", event.Type, "failed").Inc()
		slog.Error("payment event processing failed",
			"type", event.Type, "purchase_id", purchaseID, "error", procErr)
		http.Error(w, "processing failed", http.StatusInternalServerError)
		return
	}

	observability.WebhookEvents.WithLabelValues("payments", event.Type, "processed").Inc()
	h.writeReceived(w)
}

type identityEvent struct {
	Type string `json:"type"`
	Data struct {
		ID             string `json:"id"`
		Email          string `json:"email"`
		Name           string `json:"name"`
		ImageURL       string `json:"image_url"`
		PublicMetadata struct {
			Role string `json:"role"`
		} `json:"public_metadata"`
	} `json:"data"`
}

// HandleIdentityEvent keeps the local users table in sync with the
// identity provider.
func (h *WebhookHandler) HandleIdentityEvent(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if err := h.identityVerify.Verify(payload, r.Header); err != nil {
		observability.WebhookEvents.WithLabelValues("identity", "unknown", "rejected").Inc()
		slog.Warn("identity webhook signature verification failed", "error", err)
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	var event identityEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		observability.WebhookEvents.WithLabelValues("identity", "unknown", "rejected").Inc()
		http.Error(w, "malformed event", http.StatusBadRequest)
		return
	}

	var procErr error
	switch event.Type {
	case "user.created", "user.updated":
		role := models.Role(event.Data.PublicMetadata.Role)
		if role == "" {
			role = models.RoleStudent
		}
		procErr = h.users.SyncUser(r.Context(), &models.User{
			ID:       event.Data.ID,
			Email:    event.Data.Email,
			Name:     event.Data.Name,
			ImageURL: event.Data.ImageURL,
			Role:     role,
		})
	case "user.deleted":
		procErr = h.users.DeleteUser(r.Context(), event.Data.ID)
	default:
		observability.WebhookEvents.WithLabelValues("identity", event.Type, "ignored").Inc()
		slog.Info("ignoring unhandled identity event", "type", event.Type)
		h.writeReceived(w)
		return
	}

	if procErr != nil && !errors.Is(procErr, context.Canceled) {
		observability.WebhookEvents.WithLabelValues("identity", event.Type, "failed").Inc()
		slog.Error("identity event processing failed", "type", event.Type, "user_id", event.Data.ID, "error", procErr)
		http.Error(w, "processing failed", http.StatusInternalServerError)
		return
	}

	observability.WebhookEvents.WithLabelValues("identity", event.Type, "processed").Inc()
	h.writeReceived(w)
}

func (h *WebhookHandler) writeReceived(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"received": true})
}
