// Package gateway holds the clients for external payment providers. Both
// clients take a context so request deadlines set by the HTTP layer bound
// every provider call.
package gateway

import (
	"context"

	"github.com/google/uuid"

	"github.com/careconnect/careconnect/internal/platform/money"
)

// CheckoutSession is the result of starting a hosted card payment.
type CheckoutSession struct {
	ID  string
	URL string
}

// CardEvent is a verified event delivered by the card provider's webhook.
type CardEvent struct {
	Type          string
	AppointmentID string
	TransactionID string
	Amount        money.Amount
}

// CardCompleted is the event type reported when a hosted checkout finishes
// successfully.
const CardCompleted = "checkout.session.completed"

// CardGateway starts hosted card payments and verifies webhook deliveries.
type CardGateway interface {
	CreateCheckoutSession(ctx context.Context, appointmentID uuid.UUID, description string, amount money.Amount) (*CheckoutSession, error)
	ParseWebhook(payload []byte, signature string) (*CardEvent, error)
}

// PushRequest is an outgoing mobile money payment prompt.
type PushRequest struct {
	Phone         string
	Amount        money.Amount
	AccountRef    string
	AppointmentID string
}

// PushResponse identifies an accepted payment prompt.
type PushResponse struct {
	CheckoutRequestID string
	MerchantRequestID string
}

// MobileGateway initiates STK push payments.
type MobileGateway interface {
	RequestPush(ctx context.Context, req PushRequest) (*PushResponse, error)
}
