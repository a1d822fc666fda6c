package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prepnest/billing/pkg/currency"
)

// Client wraps the payment provider's REST API. It holds no state
// beyond the fixed credentials; errors are never retried here.
type Client struct {
	keyID      string
	keySecret  string
	baseURL    string
	httpClient *http.Client
}

type Options struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	Timeout   time.Duration
	// HTTPClient overrides the default client; used by tests.
	HTTPClient *http.Client
}

func NewClient(opts *Options) (*Client, error) {
	if opts == nil || opts.KeyID == "" || opts.KeySecret == "" {
		return nil, fmt.Errorf("razorpay: key id and secret are required")
	}
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("razorpay: base URL is required")
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{keyID: opts.KeyID, keySecret: opts.KeySecret, baseURL: opts.BaseURL, httpClient: hc}, nil
}

// CreateOrder creates a gateway order. amount is in major currency
// units and is transmitted in the provider's minor unit.
func (c *Client) CreateOrder(ctx context.Context, amount float64, curr, receipt string) (*Order, error) {
	body := map[string]any{
		"amount":   currency.ToMinorUnits(amount),
		"currency": curr,
	}
	if receipt != "" {
		body["receipt"] = receipt
	}
	var order Order
	if err := c.do(ctx, http.MethodPost, "/orders", body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderDetails fetches an order together with its payment attempts.
func (c *Client) GetOrderDetails(ctx context.Context, orderID string) (*OrderDetails, error) {
	var order Order
	if err := c.do(ctx, http.MethodGet, "/orders/"+orderID, nil, &order); err != nil {
		return nil, err
	}
	var payments paymentCollection
	if err := c.do(ctx, http.MethodGet, "/orders/"+orderID+"/payments", nil, &payments); err != nil {
		return nil, err
	}
	return &OrderDetails{Order: &order, Payments: payments.Items}, nil
}

// GetPaymentDetails fetches a single payment by gateway payment id.
func (c *Client) GetPaymentDetails(ctx context.Context, paymentID string) (*Payment, error) {
	var payment Payment
	if err := c.do(ctx, http.MethodGet, "/payments/"+paymentID, nil, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// SubscriptionParams describes a recurring-billing registration.
// Amount is in major currency units.
type SubscriptionParams struct {
	PlanID        string
	UserID        string
	Amount        float64
	Currency      string
	TotalCycles   int
	CustomerEmail string
	CustomerName  string
}

// CreateSubscription registers a recurring-billing subscription at the
// gateway. Not used for one-off purchases.
func (c *Client) CreateSubscription(ctx context.Context, p *SubscriptionParams) (*Subscription, error) {
	body := map[string]any{
		"plan_id":         p.PlanID,
		"amount":          currency.ToMinorUnits(p.Amount),
		"currency":        p.Currency,
		"total_count":     p.TotalCycles,
		"customer_notify": 1,
		"notes": map[string]string{
			"user_id":        p.UserID,
			"customer_email": p.CustomerEmail,
			"customer_name":  p.CustomerName,
		},
	}
	var sub Subscription
	if err := c.do(ctx, http.MethodPost, "/subscriptions", body, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// CancelSubscription cancels a recurring-billing subscription.
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) error {
	var sub Subscription
	return c.do(ctx, http.MethodPost, "/subscriptions/"+subscriptionID+"/cancel", map[string]any{}, &sub)
}

// CreateRefund refunds amount (major units) against a captured payment.
// Partial refunds are allowed; the gateway tracks the running total.
func (c *Client) CreateRefund(ctx context.Context, paymentID string, amount float64) (*Refund, error) {
	body := map[string]any{
		"amount": currency.ToMinorUnits(amount),
	}
	var refund Refund
	if err := c.do(ctx, http.MethodPost, "/payments/"+paymentID+"/refund", body, &refund); err != nil {
		return nil, err
	}
	return &refund, nil
}

// VerifyPaymentSignature checks the HMAC the gateway attached to a
// checkout callback. Pure local computation; see signature.go.
func (c *Client) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return VerifySignature(orderID+"|"+paymentID, signature, c.keySecret)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("razorpay: marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("razorpay: build request: %w", err)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("razorpay: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("razorpay: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		gerr := &GatewayError{StatusCode: resp.StatusCode, Body: string(raw)}
		var eb gatewayErrorBody
		if json.Unmarshal(raw, &eb) == nil {
			gerr.Code = eb.Error.Code
			gerr.Description = eb.Error.Description
		}
		return gerr
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("razorpay: decode response: %w", err)
		}
	}
	return nil
}
