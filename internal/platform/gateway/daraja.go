package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/careconnect/careconnect/internal/platform/errs"
	"github.com/careconnect/careconnect/internal/platform/money"
)

// DarajaGateway initiates M-Pesa STK push payments through the Safaricom
// Daraja API. All outbound calls run behind a circuit breaker so a degraded
// provider fails fast instead of tying up request handlers.
type DarajaGateway struct {
	cfg        DarajaConfig
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	now        func() time.Time

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

type DarajaConfig struct {
	ConsumerKey    string
	ConsumerSecret string
	Shortcode      string
	Passkey        string
	BaseURL        string
	CallbackURL    string
}

func NewDaraja(cfg DarajaConfig) *DarajaGateway {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "daraja",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &DarajaGateway{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		breaker:    breaker,
		now:        time.Now,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// token returns a cached OAuth access token, fetching a fresh one when the
// cached token is within a minute of expiry.
func (g *DarajaGateway) token(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.accessToken != "" && g.now().Before(g.tokenExpiry.Add(-time.Minute)) {
		return g.accessToken, nil
	}

	url := g.cfg.BaseURL + "/oauth/v1/generate?grant_type=client_credentials"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("daraja token request: %w", err)
	}
	req.SetBasicAuth(g.cfg.ConsumerKey, g.cfg.ConsumerSecret)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("daraja token fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("daraja token fetch: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("daraja token decode: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("daraja token response missing access_token")
	}

	ttl := time.Hour
	if secs, err := time.ParseDuration(tok.ExpiresIn + "s"); err == nil {
		ttl = secs
	}
	g.accessToken = tok.AccessToken
	g.tokenExpiry = g.now().Add(ttl)

	return g.accessToken, nil
}

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
}

// stkPassword derives the API password for a push request: the base64 of
// shortcode, passkey and timestamp concatenated.
func stkPassword(shortcode, passkey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortcode + passkey + timestamp))
}

func (g *DarajaGateway) RequestPush(ctx context.Context, push PushRequest) (*PushResponse, error) {
	phone := normalizePhone(push.Phone)
	if phone == "" {
		return nil, errs.Invalidf("phone number is required")
	}
	if !push.Amount.IsPositive() {
		return nil, errs.Invalidf("push amount must be positive, got %s", push.Amount)
	}

	timestamp := g.now().Format("20060102150405")
	body := stkPushRequest{
		BusinessShortCode: g.cfg.Shortcode,
		Password:          stkPassword(g.cfg.Shortcode, g.cfg.Passkey, timestamp),
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            push.Amount.Units(),
		PartyA:            phone,
		PartyB:            g.cfg.Shortcode,
		PhoneNumber:       phone,
		CallBackURL:       fmt.Sprintf("%s/%s", strings.TrimRight(g.cfg.CallbackURL, "/"), push.AppointmentID),
		AccountReference:  push.AccountRef,
		TransactionDesc:   "CareConnect appointment payment",
	}

	result, err := g.breaker.Execute(func() (interface{}, error) {
		return g.doPush(ctx, body)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, fmt.Errorf("mpesa unavailable: %w", err)
		}
		return nil, err
	}
	return result.(*PushResponse), nil
}

func (g *DarajaGateway) doPush(ctx context.Context, body stkPushRequest) (*PushResponse, error) {
	token, err := g.token(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("daraja marshal push: %w", err)
	}

	url := g.cfg.BaseURL + "/mpesa/stkpush/v1/processrequest"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("daraja push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("daraja push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("daraja push: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var out stkPushResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("daraja push decode: %w", err)
	}
	if out.ResponseCode != "0" {
		return nil, fmt.Errorf("daraja push rejected: code=%s desc=%s", out.ResponseCode, out.ResponseDescription)
	}

	return &PushResponse{
		CheckoutRequestID: out.CheckoutRequestID,
		MerchantRequestID: out.MerchantRequestID,
	}, nil
}

// normalizePhone converts local Kenyan formats (07..., +254...) to the
// 254-prefixed form the API requires. Returns "" when the input cannot be a
// phone number.
func normalizePhone(phone string) string {
	p := strings.TrimSpace(phone)
	p = strings.TrimPrefix(p, "+")
	if strings.HasPrefix(p, "0") {
		p = "254" + p[1:]
	}
	if len(p) != 12 || !strings.HasPrefix(p, "254") {
		return ""
	}
	for _, r := range p {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return p
}

// StkCallback is the result Safaricom posts to the callback URL after the
// customer responds to the push prompt.
type StkCallback struct {
	CheckoutRequestID string
	MerchantRequestID string
	ResultCode        int
	ResultDesc        string
	ReceiptNumber     string
	Amount            money.Amount
	Phone             string
}

// Succeeded reports whether the customer completed the payment.
func (c *StkCallback) Succeeded() bool { return c.ResultCode == 0 }

type stkCallbackEnvelope struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []struct {
					Name  string          `json:"Name"`
					Value json.RawMessage `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// ParseStkCallback decodes a callback delivery. Metadata items are only
// present on success.
func ParseStkCallback(payload []byte) (*StkCallback, error) {
	var env stkCallbackEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, errs.Invalidf("decode mpesa callback: %v", err)
	}

	cb := env.Body.StkCallback
	if cb.CheckoutRequestID == "" {
		return nil, errs.Invalidf("mpesa callback missing CheckoutRequestID")
	}

	out := &StkCallback{
		CheckoutRequestID: cb.CheckoutRequestID,
		MerchantRequestID: cb.MerchantRequestID,
		ResultCode:        cb.ResultCode,
		ResultDesc:        cb.ResultDesc,
	}

	for _, item := range cb.CallbackMetadata.Item {
		switch item.Name {
		case "MpesaReceiptNumber":
			var s string
			if err := json.Unmarshal(item.Value, &s); err == nil {
				out.ReceiptNumber = s
			}
		case "Amount":
			var f float64
			if err := json.Unmarshal(item.Value, &f); err == nil {
				amt, perr := money.Parse(fmt.Sprintf("%.2f", f))
				if perr == nil {
					out.Amount = amt
				}
			}
		case "PhoneNumber":
			var n json.Number
			if err := json.Unmarshal(item.Value, &n); err == nil {
				out.Phone = n.String()
			}
		}
	}

	if out.Succeeded() && out.ReceiptNumber == "" {
		return nil, errs.Invalidf("mpesa callback success without receipt number")
	}

	return out, nil
}
