// Package gateway implements the PortOne V2 payment API client used for
// post-payment verification and compensating cancellations.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"insightmarket/payments-service/internal/order"
)

type Client struct {
	baseURL string
	secret  string
	http    *http.Client
}

// NewClient builds a client with a per-call timeout. Timeouts and transport
// failures surface as order.ErrGatewayUnavailable and are never retried here.
func NewClient(baseURL, secret string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		secret:  secret,
		http:    &http.Client{Timeout: timeout},
	}
}

// GetPayment fetches the gateway's authoritative record for a correlation id.
func (c *Client) GetPayment(ctx context.Context, correlationID string) (order.Payment, error) {
	endpoint := c.baseURL + "/payments/" + url.PathEscape(correlationID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return order.Payment{}, fmt.Errorf("build payment request: %w", err)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return order.Payment{}, fmt.Errorf("%w: get payment: %v", order.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return order.Payment{}, fmt.Errorf("%w: %s", order.ErrPaymentNotFound, correlationID)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return order.Payment{}, fmt.Errorf("%w: get payment: status %d", order.ErrGatewayUnavailable, resp.StatusCode)
	}

	var payment order.Payment
	if err := json.NewDecoder(resp.Body).Decode(&payment); err != nil {
		return order.Payment{}, fmt.Errorf("%w: decode payment: %v", order.ErrGatewayUnavailable, err)
	}
	return payment, nil
}

// Cancel asks the gateway to cancel a captured payment. Best effort: the
// caller escalates a failure instead of retrying.
func (c *Client) Cancel(ctx context.Context, correlationID, reason string) error {
	endpoint := c.baseURL + "/payments/" + url.PathEscape(correlationID) + "/cancel"

	body, err := json.Marshal(map[string]string{"reason": reason})
	if err != nil {
		return fmt.Errorf("marshal cancel body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build cancel request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: cancel payment: %v", order.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: cancel payment: status %d", order.ErrGatewayUnavailable, resp.StatusCode)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "PortOne "+c.secret)
}
