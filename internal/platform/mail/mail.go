// Package mail sends transactional email through the Brevo HTTP API.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultEndpoint = "https://api.brevo.com/v3/smtp/email"

// Sender delivers transactional mail. The zero-configuration implementation
// is NoopSender so local development works without an API key.
type Sender interface {
	Send(ctx context.Context, toEmail, toName, subject, htmlBody string) error
}

// NoopSender drops all mail.
type NoopSender struct{}

func (NoopSender) Send(ctx context.Context, toEmail, toName, subject, htmlBody string) error {
	return nil
}

type Client struct {
	apiKey      string
	senderEmail string
	senderName  string
	endpoint    string
	httpClient  *http.Client
}

func NewClient(apiKey, senderEmail, senderName string) *Client {
	if strings.TrimSpace(senderName) == "" {
		senderName = senderEmail
	}
	return &Client{
		apiKey:      apiKey,
		senderEmail: senderEmail,
		senderName:  senderName,
		endpoint:    defaultEndpoint,
		httpClient:  &http.Client{Timeout: 8 * time.Second},
	}
}

func (c *Client) Send(ctx context.Context, toEmail, toName, subject, htmlBody string) error {
	if strings.TrimSpace(toEmail) == "" {
		return errors.New("missing recipient email")
	}
	if strings.TrimSpace(subject) == "" {
		return errors.New("missing subject")
	}

	payload := sendRequest{
		Sender:      sender{Name: c.senderName, Email: c.senderEmail},
		To:          []recipient{{Email: toEmail, Name: toName}},
		Subject:     subject,
		HtmlContent: htmlBody,
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("mail marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("mail create request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("content-type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mail request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("mail send failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

type sendRequest struct {
	Sender      sender      `json:"sender"`
	To          []recipient `json:"to"`
	Subject     string      `json:"subject"`
	HtmlContent string      `json:"htmlContent,omitempty"`
}

type sender struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type recipient struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}
