//go:generate mockgen -source=gateway.go -destination=mocks/payments_mocks.go -package=mocks

package payments

import (
	"context"
	"encoding/json"
)

// Gateway event kinds the reconciliation flow understands. Anything
// else is acknowledged and ignored.
const (
	EventCheckoutCompleted      = "checkout.session.completed"
	EventAsyncPaymentSucceeded  = "checkout.session.async_payment_succeeded"
	EventPaymentIntentSucceeded = "payment_intent.succeeded"
	EventCheckoutExpired        = "checkout.session.expired"
	EventAsyncPaymentFailed     = "checkout.session.async_payment_failed"
)

// CheckoutInput opens one hosted checkout for one purchase. PurchaseID
// is stamped into the session metadata, the client reference and the
// payment intent metadata so any webhook shape can correlate back.
type CheckoutInput struct {
	PurchaseID  string
	CourseTitle string
	// Amount in whole currency units; converted to minor units for the
	// gateway after flooring, matching how the amount was advertised.
	Amount     float64
	Currency   string
	SuccessURL string
	CancelURL  string
}

type CheckoutSession struct {
	ID  string
	URL string
}

// Event is a verified gateway webhook envelope. Object is the raw
// session or payment-intent payload.
type Event struct {
	Type   string
	Object json.RawMessage
}

// EventObject is the subset of the session/payment-intent payload the
// reconciliation flow reads.
type EventObject struct {
	Metadata          map[string]string `json:"metadata"`
	ClientReferenceID string            `json:"client_reference_id"`
}

// PurchaseID resolves the correlating purchase id: metadata first, then
// the client reference. Different gateway delivery modes surface the id
// in different fields.
func (o *EventObject) PurchaseID() string {
	if id, ok := o.Metadata["purchaseId"]; ok && id != "" {
		return id
	}
	return o.ClientReferenceID
}

// Gateway is the payment provider boundary. ConstructEvent verifies the
// webhook signature before any payload field is trusted.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, in CheckoutInput) (*CheckoutSession, error)
	ConstructEvent(payload []byte, signatureHeader string) (Event, error)
}
