package gateway

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v78/webhook"
)

const webhookSecret = "whsec_test_secret"

func signedHeader(t *testing.T, payload []byte) string {
	t.Helper()
	now := time.Now()
	sig := webhook.ComputeSignature(now, payload, webhookSecret)
	return fmt.Sprintf("t=%d,v1=%x", now.Unix(), sig)
}

func TestParseWebhook_Completed(t *testing.T) {
	g := NewStripe(StripeConfig{
		SecretKey:     "sk_test_x",
		WebhookSecret: webhookSecret,
		ClientURL:     "http://localhost:3000",
	})

	apptID := uuid.New()
	payload := []byte(fmt.Sprintf(`{
  "id": "evt_1",
  "api_version": "2024-04-10",
  "type": "checkout.session.completed",
  "data": {
    "object": {
      "id": "cs_test_1",
      "amount_total": 134999,
      "payment_intent": "pi_abc123",
      "metadata": {"appointment_id": "%s"}
    }
  }
}`, apptID))

	event, err := g.ParseWebhook(payload, signedHeader(t, payload))
	if err != nil {
		t.Fatalf("ParseWebhook() error: %v", err)
	}

	if event.Type != CardCompleted {
		t.Errorf("type = %q", event.Type)
	}
	if event.AppointmentID != apptID.String() {
		t.Errorf("appointment id = %s, want %s", event.AppointmentID, apptID)
	}
	if event.TransactionID != "pi_abc123" {
		t.Errorf("transaction id = %q, want payment intent id", event.TransactionID)
	}
	if event.Amount.String() != "1349.99" {
		t.Errorf("amount = %s, want 1349.99", event.Amount)
	}
}

func TestParseWebhook_OtherEventType(t *testing.T) {
	g := NewStripe(StripeConfig{WebhookSecret: webhookSecret})

	payload := []byte(`{"id": "evt_2", "api_version": "2024-04-10", "type": "payment_intent.created", "data": {"object": {}}}`)
	event, err := g.ParseWebhook(payload, signedHeader(t, payload))
	if err != nil {
		t.Fatalf("ParseWebhook() error: %v", err)
	}
	if event.Type != "payment_intent.created" {
		t.Errorf("type = %q", event.Type)
	}
	if event.TransactionID != "" {
		t.Error("non-completion events must not carry a transaction id")
	}
}

func TestParseWebhook_BadSignature(t *testing.T) {
	g := NewStripe(StripeConfig{WebhookSecret: webhookSecret})

	payload := []byte(`{"id": "evt_3", "type": "checkout.session.completed"}`)
	if _, err := g.ParseWebhook(payload, "t=123,v1=deadbeef"); err == nil {
		t.Error("expected error for invalid signature")
	}
}

func TestParseWebhook_MissingMetadata(t *testing.T) {
	g := NewStripe(StripeConfig{WebhookSecret: webhookSecret})

	payload := []byte(`{
  "id": "evt_4",
  "api_version": "2024-04-10",
  "type": "checkout.session.completed",
  "data": {"object": {"id": "cs_test_2", "amount_total": 1000}}
}`)
	if _, err := g.ParseWebhook(payload, signedHeader(t, payload)); err == nil {
		t.Error("expected error for session without appointment metadata")
	}
}
