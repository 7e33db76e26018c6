package mercadopago

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/SAP-F-2025/course-marketplace/internal/config"
)

// ErrProvider wraps every failed call to the MercadoPago API
var ErrProvider = errors.New("mercadopago request failed")

// APIError is the error body returned by MercadoPago
type APIError struct {
	StatusCode int    `json:"status"`
	Code       string `json:"error"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mercadopago %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Client is a thin REST client over the preferences and payments endpoints
type Client struct {
	http *resty.Client
}

func NewClient(cfg config.MercadoPagoConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetAuthToken(cfg.AccessToken).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(300 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})

	return &Client{http: httpClient}
}

// ===== PREFERENCES =====

type PreferenceItem struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	CurrencyID string  `json:"currency_id"`
	UnitPrice  float64 `json:"unit_price"`
}

type Payer struct {
	Email string `json:"email"`
}

type BackURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

type PreferenceRequest struct {
	Items             []PreferenceItem       `json:"items"`
	Payer             *Payer                 `json:"payer,omitempty"`
	BackURLs          BackURLs               `json:"back_urls"`
	AutoReturn        string                 `json:"auto_return,omitempty"`
	NotificationURL   string                 `json:"notification_url,omitempty"`
	ExternalReference string                 `json:"external_reference,omitempty"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
}

type Preference struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// CreatePreference creates a checkout preference. idempotencyKey may be empty.
func (c *Client) CreatePreference(ctx context.Context, req PreferenceRequest, idempotencyKey string) (*Preference, error) {
	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}

	var pref Preference
	var apiErr APIError
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-Idempotency-Key", idempotencyKey).
		SetBody(req).
		SetResult(&pref).
		SetError(&apiErr).
		Post("/checkout/preferences")
	if err := checkResponse(resp, err, &apiErr); err != nil {
		return nil, fmt.Errorf("create preference: %w", err)
	}
	if pref.ID == "" || pref.InitPoint == "" {
		return nil, fmt.Errorf("create preference: empty response: %w", ErrProvider)
	}
	return &pref, nil
}

// ===== PAYMENTS =====

type Payment struct {
	ID                int64                  `json:"id"`
	Status            string                 `json:"status"`
	StatusDetail      string                 `json:"status_detail"`
	TransactionAmount float64                `json:"transaction_amount"`
	CurrencyID        string                 `json:"currency_id"`
	DateApproved      *time.Time             `json:"date_approved"`
	DateCreated       *time.Time             `json:"date_created"`
	ExternalReference string                 `json:"external_reference"`
	Metadata          map[string]interface{} `json:"metadata"`
	Payer             Payer                  `json:"payer"`

	// Raw is the unmodified response body
	Raw json.RawMessage `json:"-"`
}

func (p *Payment) IDString() string {
	return fmt.Sprintf("%d", p.ID)
}

func (c *Client) GetPayment(ctx context.Context, id string) (*Payment, error) {
	var payment Payment
	var apiErr APIError
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&payment).
		SetError(&apiErr).
		Get("/v1/payments/{id}")
	if err := checkResponse(resp, err, &apiErr); err != nil {
		return nil, fmt.Errorf("get payment %s: %w", id, err)
	}
	payment.Raw = json.RawMessage(resp.Body())
	return &payment, nil
}

func checkResponse(resp *resty.Response, err error, apiErr *APIError) error {
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProvider, err)
	}
	if resp.IsError() {
		if apiErr.StatusCode == 0 {
			apiErr.StatusCode = resp.StatusCode()
		}
		return fmt.Errorf("%w: %w", ErrProvider, apiErr)
	}
	return nil
}
