package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/prepnest/billing/internal/models"
	"github.com/prepnest/billing/internal/platform/razorpay"
)

var (
	// ErrSubscriptionNotFound is returned when no subscription matches
	// the given order or subscription id.
	ErrSubscriptionNotFound = errors.New("subscription not found")
	// ErrSubscriptionNotActive guards renew/cancel, which only apply to
	// active subscriptions.
	ErrSubscriptionNotActive = errors.New("subscription is not active")
)

// Gateway is the slice of the payment provider the lifecycle manager
// uses. *razorpay.Client satisfies it.
type Gateway interface {
	CreateOrder(ctx context.Context, amount float64, currency, receipt string) (*razorpay.Order, error)
	GetPaymentDetails(ctx context.Context, paymentID string) (*razorpay.Payment, error)
	CreateSubscription(ctx context.Context, p *razorpay.SubscriptionParams) (*razorpay.Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string) error
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
}

// ActivationRequest carries the checkout callback. Customer fields are
// optional; when present they are frozen onto the invoice.
type ActivationRequest struct {
	OrderID        string `json:"order_id"`
	PaymentID      string `json:"payment_id"`
	Signature      string `json:"signature"`
	CustomerName   string `json:"customer_name,omitempty"`
	CustomerEmail  string `json:"customer_email,omitempty"`
	BillingAddress string `json:"billing_address,omitempty"`
}

// ActivationResult reports the settlement outcome. A failed signature
// is a non-success result, not an error: the subscription stays
// pending and the caller may retry with a different payment id.
type ActivationResult struct {
	Success       bool                     `json:"success"`
	AlreadyActive bool                     `json:"already_active"`
	Message       string                   `json:"message,omitempty"`
	Subscription  *models.UserSubscription `json:"subscription,omitempty"`
	Invoice       *models.Invoice          `json:"invoice,omitempty"`
}

// computeRenewalEnd extends a validity window by validityDays from the
// later of now and the current end. Renewing an unexpired subscription
// therefore never shortens the period already paid for.
func computeRenewalEnd(now time.Time, currentEnd *time.Time, validityDays int) time.Time {
	base := now
	if currentEnd != nil && currentEnd.After(now) {
		base = *currentEnd
	}
	return base.AddDate(0, 0, validityDays)
}
