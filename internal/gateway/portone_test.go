package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"insightmarket/payments-service/internal/order"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/payments/ORD-abc12345", r.URL.Path)
		assert.Equal(t, "PortOne test-secret", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":     "PAID",
			"amount":     map[string]any{"total": 15000, "vat": 1364, "currency": "KRW"},
			"receiptUrl": "https://x",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-secret", time.Second)
	payment, err := c.GetPayment(context.Background(), "ORD-abc12345")
	require.NoError(t, err)

	assert.Equal(t, "PAID", payment.Status)
	assert.Equal(t, 15000, payment.Amount.Total)
	assert.Equal(t, "https://x", payment.ReceiptURL)
}

func TestGetPayment_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "s", time.Second)
	_, err := c.GetPayment(context.Background(), "ORD-missing")
	assert.ErrorIs(t, err, order.ErrPaymentNotFound)
}

func TestGetPayment_ServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "s", time.Second)
	_, err := c.GetPayment(context.Background(), "ORD-abc")
	assert.ErrorIs(t, err, order.ErrGatewayUnavailable)
}

func TestGetPayment_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused from here on

	c := NewClient(srv.URL, "s", time.Second)
	_, err := c.GetPayment(context.Background(), "ORD-abc")
	assert.ErrorIs(t, err, order.ErrGatewayUnavailable)
}

func TestGetPayment_Timeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-block
	}))
	defer func() {
		close(block)
		srv.Close()
	}()

	c := NewClient(srv.URL, "s", 50*time.Millisecond)
	_, err := c.GetPayment(context.Background(), "ORD-abc")
	assert.ErrorIs(t, err, order.ErrGatewayUnavailable)
}

func TestCancel(t *testing.T) {
	var gotReason string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/payments/ORD-abc12345/cancel", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotReason = body["reason"]
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "s", time.Second)
	err := c.Cancel(context.Background(), "ORD-abc12345", "paid amount does not match order total")
	require.NoError(t, err)
	assert.Equal(t, "paid amount does not match order total", gotReason)
}

func TestCancel_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "s", time.Second)
	err := c.Cancel(context.Background(), "ORD-abc", "reason")
	assert.ErrorIs(t, err, order.ErrGatewayUnavailable)
}
