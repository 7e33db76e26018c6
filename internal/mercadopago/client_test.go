package mercadopago

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/course-marketplace/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.MercadoPagoConfig{
		AccessToken: "TEST-token",
		BaseURL:     srv.URL,
		Timeout:     2 * time.Second,
	})
}

func TestClient_CreatePreference(t *testing.T) {
	var got PreferenceRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/checkout/preferences", r.URL.Path)
		assert.Equal(t, "Bearer TEST-token", r.Header.Get("Authorization"))
		assert.Equal(t, "key-1", r.Header.Get("X-Idempotency-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"pref-1","init_point":"https://mp/init","sandbox_init_point":"https://mp/sandbox"}`))
	})

	pref, err := client.CreatePreference(context.Background(), PreferenceRequest{
		Items:      []PreferenceItem{{ID: "3", Title: "Go", Quantity: 1, CurrencyID: "ARS", UnitPrice: 100}},
		AutoReturn: "approved",
		Metadata:   map[string]interface{}{"course_id": 3, "user_id": "u1"},
	}, "key-1")
	require.NoError(t, err)
	assert.Equal(t, "pref-1", pref.ID)
	assert.Equal(t, "https://mp/init", pref.InitPoint)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "approved", got.AutoReturn)
	assert.Equal(t, "u1", got.Metadata["user_id"])
}

func TestClient_GetPayment(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/123", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": 123,
			"status": "approved",
			"transaction_amount": 1500.5,
			"currency_id": "ARS",
			"date_approved": "2024-05-01T10:00:00.000-03:00",
			"metadata": {"course_id": 3, "user_id": "u1"},
			"payer": {"email": "ana@example.com"}
		}`))
	})

	payment, err := client.GetPayment(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, "123", payment.IDString())
	assert.Equal(t, "approved", payment.Status)
	assert.InDelta(t, 1500.5, payment.TransactionAmount, 0.001)
	assert.Equal(t, "ana@example.com", payment.Payer.Email)
	require.NotNil(t, payment.DateApproved)
	assert.Equal(t, 2024, payment.DateApproved.Year())
	assert.NotEmpty(t, payment.Raw)
}

func TestClient_ProviderErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path == "/v1/payments/404" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"status":404,"error":"not_found","message":"Payment not found"}`))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.GetPayment(context.Background(), "404")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProvider))
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "not_found", apiErr.Code)
	assert.Equal(t, int32(1), calls.Load())

	calls.Store(0)
	_, err = client.GetPayment(context.Background(), "500")
	assert.True(t, errors.Is(err, ErrProvider))
	assert.Equal(t, int32(3), calls.Load())
}

func TestVerifySignature(t *testing.T) {
	secret := "whsec"
	v1 := Sign(secret, "1704908010", "req-1", "123")

	tests := []struct {
		name   string
		header string
		reqID  string
		dataID string
		want   bool
	}{
		{"valid", "ts=1704908010,v1=" + v1, "req-1", "123", true},
		{"valid with spaces", " ts=1704908010 , v1=" + v1, "req-1", "123", true},
		{"wrong request id", "ts=1704908010,v1=" + v1, "req-2", "123", false},
		{"wrong ts", "ts=1704908011,v1=" + v1, "req-1", "123", false},
		{"missing v1", "ts=1704908010", "req-1", "123", false},
		{"garbage", "nope", "req-1", "123", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerifySignature(secret, tt.header, tt.reqID, tt.dataID))
		})
	}
}
