package razorpay

import "fmt"

// Order mirrors the gateway's order entity. Amounts are in the minor
// currency unit (paise for INR).
type Order struct {
	ID         string `json:"id"`
	Amount     int64  `json:"amount"`
	AmountPaid int64  `json:"amount_paid"`
	AmountDue  int64  `json:"amount_due"`
	Currency   string `json:"currency"`
	Receipt    string `json:"receipt"`
	Status     string `json:"status"`
	Attempts   int    `json:"attempts"`
	CreatedAt  int64  `json:"created_at"`
}

// Payment is one payment attempt against an order.
type Payment struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	Method           string `json:"method"`
	Email            string `json:"email"`
	Contact          string `json:"contact"`
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
	CreatedAt        int64  `json:"created_at"`
}

// OrderDetails is an order together with its payment attempts.
type OrderDetails struct {
	Order    *Order     `json:"order"`
	Payments []*Payment `json:"payments"`
}

// Refund mirrors the gateway's refund entity.
type Refund struct {
	ID        string `json:"id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

// Subscription mirrors the gateway's recurring-billing entity.
type Subscription struct {
	ID         string `json:"id"`
	PlanID     string `json:"plan_id"`
	CustomerID string `json:"customer_id"`
	Status     string `json:"status"`
	TotalCount int    `json:"total_count"`
	PaidCount  int    `json:"paid_count"`
	ShortURL   string `json:"short_url"`
	CreatedAt  int64  `json:"created_at"`
}

type paymentCollection struct {
	Count int        `json:"count"`
	Items []*Payment `json:"items"`
}

// GatewayError is a non-2xx response from the provider. The raw body is
// kept for logging; callers decide retry policy.
type GatewayError struct {
	StatusCode  int
	Code        string
	Description string
	Body        string
}

func (e *GatewayError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("gateway error %d (%s): %s", e.StatusCode, e.Code, e.Description)
	}
	return fmt.Sprintf("gateway error %d: %s", e.StatusCode, e.Body)
}

type gatewayErrorBody struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}
