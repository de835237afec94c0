package mail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClientSend(t *testing.T) {
	var got sendRequest
	var apiKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("api-key")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"messageId":"msg-1"}`))
	}))
	defer srv.Close()

	c := NewClient("key-123", "no-reply@careconnect.local", "CareConnect")
	c.endpoint = srv.URL

	err := c.Send(context.Background(), "amina@example.com", "Amina", "Verify your CareConnect account", "<p>hi</p>")
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	if apiKey != "key-123" {
		t.Errorf("api-key header = %q", apiKey)
	}
	if len(got.To) != 1 || got.To[0].Email != "amina@example.com" {
		t.Errorf("recipient = %+v", got.To)
	}
	if got.Sender.Email != "no-reply@careconnect.local" {
		t.Errorf("sender = %+v", got.Sender)
	}
}

func TestClientSend_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"bad key"}`))
	}))
	defer srv.Close()

	c := NewClient("bad", "no-reply@careconnect.local", "")
	c.endpoint = srv.URL

	err := c.Send(context.Background(), "amina@example.com", "", "subject", "body")
	if err == nil {
		t.Fatal("expected error for provider failure")
	}
	if !strings.Contains(err.Error(), "status=401") {
		t.Errorf("error should carry provider status, got %v", err)
	}
}

func TestClientSend_Validation(t *testing.T) {
	c := NewClient("key", "no-reply@careconnect.local", "")
	if err := c.Send(context.Background(), "", "", "subject", "body"); err == nil {
		t.Error("expected error for missing recipient")
	}
	if err := c.Send(context.Background(), "a@b.c", "", "", "body"); err == nil {
		t.Error("expected error for missing subject")
	}
}

func TestVerificationEmail(t *testing.T) {
	subject, html := VerificationEmail("Amina", "482913")
	if subject == "" {
		t.Error("expected subject")
	}
	if !strings.Contains(html, "482913") {
		t.Error("expected code in body")
	}
	if !strings.Contains(html, "Amina") {
		t.Error("expected name in body")
	}
}
