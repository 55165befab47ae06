package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/skillsync/skillsync-backend/internal/infrastructure/payments"
	paymentsmocks "github.com/skillsync/skillsync-backend/internal/infrastructure/payments/mocks"
	"github.com/skillsync/skillsync-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

const testIdentitySecret = "whsec_dGVzdHNlY3JldHRlc3RzZWNyZXQ="

type fakeReconciler struct {
	finalized []string
	failed    []string
	err       error
}

func (f *fakeReconciler) Finalize(_ context.Context, id string) error {
	f.finalized = append(f.finalized, id)
	return f.err
}

func (f *fakeReconciler) Fail(_ context.Context, id string) error {
	f.failed = append(f.failed, id)
	return f.err
}

type fakeUserSyncer struct {
	synced  []*models.User
	deleted []string
	err     error
}

func (f *fakeUserSyncer) SyncUser(_ context.Context, user *models.User) error {
	f.synced = append(f.synced, user)
	return f.err
}

func (f *fakeUserSyncer) DeleteUser(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return f.err
}

func newTestWebhookHandler(t *testing.T, gateway payments.Gateway) (*WebhookHandler, *fakeReconciler, *fakeUserSyncer) {
	t.Helper()
	reconciler := &fakeReconciler{}
	users := &fakeUserSyncer{}
	wh, err := NewWebhookHandler(gateway, reconciler, users, testIdentitySecret)
	assert.NoError(t, err)
	return wh, reconciler, users
}

func TestWebhookHandler_HandlePaymentEvent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	post := func(wh *WebhookHandler, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", strings.NewReader(body))
		req.Header.Set("Stripe-Signature", "t=1,v1=sig")
		rec := httptest.NewRecorder()
		wh.HandlePaymentEvent(rec, req)
		return rec
	}

	t.Run("invalid signature is rejected without mutation", func(t *testing.T) {
		gateway := paymentsmocks.NewMockGateway(ctrl)
		wh, reconciler, _ := newTestWebhookHandler(t, gateway)

		gateway.EXPECT().ConstructEvent(gomock.Any(), gomock.Any()).
			Return(payments.Event{}, errors.New("bad signature"))

		rec := post(wh, `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, reconciler.finalized)
		assert.Empty(t, reconciler.failed)
	})

	t.Run("completed session finalizes via metadata", func(t *testing.T) {
		gateway := paymentsmocks.NewMockGateway(ctrl)
		wh, reconciler, _ := newTestWebhookHandler(t, gateway)

		gateway.EXPECT().ConstructEvent(gomock.Any(), gomock.Any()).Return(payments.Event{
			Type:   payments.EventCheckoutCompleted,
			Object: []byte(`{"metadata":{"purchaseId":"p-1"},"client_reference_id":"ignored"}`),
		}, nil)

		rec := post(wh, `{}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"received": true}`, rec.Body.String())
		assert.Equal(t, []string{"p-1"}, reconciler.finalized)
	})

	t.Run("client reference is the fallback correlation id", func(t *testing.T) {
		gateway := paymentsmocks.NewMockGateway(ctrl)
		wh, reconciler, _ := newTestWebhookHandler(t, gateway)

		gateway.EXPECT().ConstructEvent(gomock.Any(), gomock.Any()).Return(payments.Event{
			Type:   payments.EventCheckoutExpired,
			Object: []byte(`{"client_reference_id":"p-2"}`),
		}, nil)

		rec := post(wh, `{}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"p-2"}, reconciler.failed)
	})

	t.Run("payment intent success finalizes", func(t *testing.T) {
		gateway := paymentsmocks.NewMockGateway(ctrl)
		wh, reconciler, _ := newTestWebhookHandler(t, gateway)

		gateway.EXPECT().ConstructEvent(gomock.Any(), gomock.Any()).Return(payments.Event{
			Type:   payments.EventPaymentIntentSucceeded,
			Object: []byte(`{"metadata":{"purchaseId":"p-3"}}`),
		}, nil)

		rec := post(wh, `{}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"p-3"}, reconciler.finalized)
	})

	t.Run("unknown event type is acknowledged and ignored", func(t *testing.T) {
		gateway := paymentsmocks.NewMockGateway(ctrl)
		wh, reconciler, _ := newTestWebhookHandler(t, gateway)

		gateway.EXPECT().ConstructEvent(gomock.Any(), gomock.Any()).Return(payments.Event{
			Type:   "invoice.paid",
			Object: []byte(`{}`),
		}, nil)

		rec := post(wh, `{}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, reconciler.finalized)
		assert.Empty(t, reconciler.failed)
	})

	t.Run("processing fault returns 5xx so the gateway redelivers", func(t *testing.T) {
		gateway := paymentsmocks.NewMockGateway(ctrl)
		wh, reconciler, _ := newTestWebhookHandler(t, gateway)
		reconciler.err = errors.New("db down")

		gateway.EXPECT().ConstructEvent(gomock.Any(), gomock.Any()).Return(payments.Event{
			Type:   payments.EventCheckoutCompleted,
			Object: []byte(`{"metadata":{"purchaseId":"p-1"}}`),
		}, nil)

		rec := post(wh, `{}`)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func signIdentityPayload(t *testing.T, payload string) http.Header {
	t.Helper()
	secret, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(testIdentitySecret, "whsec_"))
	assert.NoError(t, err)

	msgID := "msg_test"
	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(msgID + "." + timestamp + "." + payload))
	signature := "v1," + base64.StdEncoding.EncodeToString(mac.Sum(nil))

	header := http.Header{}
	header.Set("svix-id", msgID)
	header.Set("svix-timestamp", timestamp)
	header.Set("svix-signature", signature)
	return header
}

func TestWebhookHandler_HandleIdentityEvent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	post := func(wh *WebhookHandler, body string, header http.Header) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/identity", strings.NewReader(body))
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Set(k, v)
			}
		}
		rec := httptest.NewRecorder()
		wh.HandleIdentityEvent(rec, req)
		return rec
	}

	t.Run("user.created upserts with the student default", func(t *testing.T) {
		gateway := paymentsmocks.NewMockGateway(ctrl)
		wh, _, users := newTestWebhookHandler(t, gateway)

		payload := `{"type":"user.created","data":{"id":"user-1","email":"a@example.com","name":"Ada"}}`
		rec := post(wh, payload, signIdentityPayload(t, payload))

		assert.Equal(t, http.StatusOK, rec.Code)
		if assert.Len(t, users.synced, 1) {
			assert.Equal(t, "user-1", users.synced[0].ID)
			assert.Equal(t, models.RoleStudent, users.synced[0].Role)
		}
	})

	t.Run("user.deleted removes the local row", func(t *testing.T) {
		gateway := paymentsmocks.NewMockGateway(ctrl)
		wh, _, users := newTestWebhookHandler(t, gateway)

		payload := `{"type":"user.deleted","data":{"id":"user-1"}}`
		rec := post(wh, payload, signIdentityPayload(t, payload))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"user-1"}, users.deleted)
	})

	t.Run("bad signature is rejected", func(t *testing.T) {
		gateway := paymentsmocks.NewMockGateway(ctrl)
		wh, _, users := newTestWebhookHandler(t, gateway)

		payload := `{"type":"user.created","data":{"id":"user-1"}}`
		header := signIdentityPayload(t, `{"tampered":true}`)
		rec := post(wh, payload, header)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, users.synced)
	})
}
