package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/careconnect/careconnect/internal/platform/errs"
	"github.com/careconnect/careconnect/internal/platform/money"
)

const checkoutCurrency = "kes"

// StripeGateway drives hosted checkout sessions through the Stripe API.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
	successURL    string
	cancelURL     string
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	// ClientURL is the browser origin the customer returns to after checkout.
	ClientURL string
}

func NewStripe(cfg StripeConfig) *StripeGateway {
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)
	return &StripeGateway{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
		successURL:    cfg.ClientURL + "/payment/success",
		cancelURL:     cfg.ClientURL + "/payment/cancel",
	}
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, appointmentID uuid.UUID, description string, amount money.Amount) (*CheckoutSession, error) {
	if !amount.IsPositive() {
		return nil, errs.Invalidf("charge amount must be positive, got %s", amount)
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(checkoutCurrency),
				UnitAmount: stripe.Int64(amount.Cents()),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(description),
				},
			},
			Quantity: stripe.Int64(1),
		}},
		SuccessURL: stripe.String(g.successURL),
		CancelURL:  stripe.String(g.cancelURL),
	}
	params.Context = ctx
	params.AddMetadata("appointment_id", appointmentID.String())

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// ParseWebhook verifies the provider signature and extracts the completed
// checkout event. Event types other than checkout completion return a
// CardEvent with only Type set so callers can acknowledge and skip them.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*CardEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		return nil, errs.Invalidf("webhook signature verification failed: %v", err)
	}

	if event.Type != stripe.EventType(CardCompleted) {
		return &CardEvent{Type: string(event.Type)}, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, errs.Invalidf("decode checkout session: %v", err)
	}

	appointmentID, err := uuid.Parse(sess.Metadata["appointment_id"])
	if err != nil {
		return nil, errs.Invalidf("webhook session missing appointment_id metadata")
	}

	txnID := sess.ID
	if sess.PaymentIntent != nil && sess.PaymentIntent.ID != "" {
		txnID = sess.PaymentIntent.ID
	}

	amount, err := money.Parse(fmt.Sprintf("%d.%02d", sess.AmountTotal/100, sess.AmountTotal%100))
	if err != nil {
		return nil, errs.Invalidf("invalid webhook amount %d", sess.AmountTotal)
	}

	return &CardEvent{
		Type:          CardCompleted,
		AppointmentID: appointmentID.String(),
		TransactionID: txnID,
		Amount:        amount,
	}, nil
}
