package utils

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"lms/config"
	courseModels "lms/models/course"
)

// PaymentMetadata is attached to every initialized transaction and echoed
// back by the gateway in verify responses and webhook payloads. The webhook
// has no authenticated session, so it relies entirely on this copy of the
// identifiers.
type PaymentMetadata struct {
	CourseID uint   `json:"course_id"`
	UserID   uint   `json:"user_id"`
	Email    string `json:"email,omitempty"`
}

// InitializeRequest is the body for POST /transaction/initialize
type InitializeRequest struct {
	Email       string          `json:"email"`
	Amount      int64           `json:"amount"` // minor units (kobo)
	Currency    string          `json:"currency"`
	CallbackURL string          `json:"callback_url"`
	Metadata    PaymentMetadata `json:"metadata"`
}

// InitializeData is the usable part of a successful initialize response
type InitializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// VerifyData is the transaction snapshot returned by the gateway
type VerifyData struct {
	Status          string          `json:"status"`
	Reference       string          `json:"reference"`
	Amount          int64           `json:"amount"`
	PaidAt          string          `json:"paid_at"`
	GatewayResponse string          `json:"gateway_response"`
	Metadata        PaymentMetadata `json:"metadata"`

	// Raw is the untouched data object, retained for the payment audit trail
	Raw json.RawMessage `json:"-"`
}

type gatewayEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// PaystackClient talks to the Paystack transaction API
type PaystackClient struct {
	http      *resty.Client
	secretKey string
}

// NewPaystackClient builds a client from the loaded application config
func NewPaystackClient() *PaystackClient {
	cfg := config.AppConfig
	return NewPaystackClientWith(cfg.PaystackBaseURL, cfg.PaystackSecretKey,
		time.Duration(cfg.PaystackTimeoutSeconds)*time.Second)
}

// NewPaystackClientWith builds a client against an explicit base URL. The
// per-attempt timeout bounds each network call independently of the outer
// retry loop's backoff.
func NewPaystackClientWith(baseURL, secretKey string, timeout time.Duration) *PaystackClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetAuthToken(secretKey).
		SetHeader("Content-Type", "application/json")
	return &PaystackClient{http: client, secretKey: secretKey}
}

// InitializeTransaction starts a checkout session for the given amount
func (p *PaystackClient) InitializeTransaction(req InitializeRequest) (*InitializeData, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("invalid transaction amount: %d", req.Amount)
	}

	resp, err := p.http.R().SetBody(req).Post("/transaction/initialize")
	if err != nil {
		return nil, fmt.Errorf("paystack initialize: %v", err)
	}

	var envelope gatewayEnvelope
	if jsonErr := json.Unmarshal(resp.Body(), &envelope); jsonErr != nil {
		return nil, fmt.Errorf("paystack initialize: unexpected response (HTTP %d)", resp.StatusCode())
	}
	if resp.IsError() || !envelope.Status {
		msg := envelope.Message
		if msg == "" {
			msg = fmt.Sprintf("gateway error (HTTP %d)", resp.StatusCode())
		}
		return nil, fmt.Errorf("paystack initialize: %s", msg)
	}

	var data InitializeData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, fmt.Errorf("paystack initialize: malformed data: %v", err)
	}
	if data.AuthorizationURL == "" {
		return nil, fmt.Errorf("paystack initialize: no authorization URL returned")
	}
	return &data, nil
}

// VerifyTransaction fetches the current state of one transaction by its
// gateway reference. A non-success transaction status is not an error here;
// callers inspect VerifyData.Status.
func (p *PaystackClient) VerifyTransaction(reference string) (*VerifyData, error) {
	resp, err := p.http.R().Get("/transaction/verify/" + url.PathEscape(reference))
	if err != nil {
		return nil, fmt.Errorf("paystack verify: %v", err)
	}

	var envelope gatewayEnvelope
	if jsonErr := json.Unmarshal(resp.Body(), &envelope); jsonErr != nil {
		return nil, fmt.Errorf("paystack verify: unexpected response (HTTP %d)", resp.StatusCode())
	}
	if resp.IsError() || !envelope.Status {
		msg := envelope.Message
		if msg == "" {
			msg = fmt.Sprintf("gateway error (HTTP %d)", resp.StatusCode())
		}
		return nil, fmt.Errorf("paystack verify: %s", msg)
	}

	var data VerifyData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, fmt.Errorf("paystack verify: malformed data: %v", err)
	}
	data.Raw = envelope.Data
	return &data, nil
}

// RetryPolicy bounds the synchronous verification poll. Sleep is injectable
// so tests run without real waits.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration // attempt is 1-based
	Sleep       func(time.Duration)
}

// DefaultRetryPolicy waits attempt-number seconds between attempts
// (1s, 2s, 3s, ...), matching the gateway's settlement latency profile.
func DefaultRetryPolicy(maxAttempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		Backoff: func(attempt int) time.Duration {
			return time.Duration(attempt) * time.Second
		},
		Sleep: time.Sleep,
	}
}

// VerifyWithRetry polls the gateway until the transaction reports success or
// the attempt ceiling is reached. On failure it returns the most specific
// last-known gateway message for user-facing reporting; network errors,
// gateway rejections and still-pending statuses each update that message.
func (p *PaystackClient) VerifyWithRetry(reference string, policy RetryPolicy) (*VerifyData, string) {
	lastErrMsg := "Payment verification failed. Please contact support."

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		data, err := p.VerifyTransaction(reference)
		if err != nil {
			lastErrMsg = err.Error()
		} else if courseModels.IsSuccessStatus(data.Status) {
			return data, ""
		} else {
			if data.GatewayResponse != "" {
				lastErrMsg = data.GatewayResponse
			} else {
				lastErrMsg = "Payment not successful or pending."
			}
		}

		if attempt < policy.MaxAttempts {
			policy.Sleep(policy.Backoff(attempt))
		}
	}
	return nil, lastErrMsg
}

// WebhookSignature computes the hex HMAC-SHA512 of a raw webhook body
func WebhookSignature(body []byte, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// ValidWebhookSignature checks a webhook signature header in constant time
func ValidWebhookSignature(body []byte, signature, secret string) bool {
	expected := WebhookSignature(body, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
