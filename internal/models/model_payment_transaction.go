package models

import (
	"time"

	"github.com/prepnest/billing/pkg/types"
	"gorm.io/datatypes"
)

// PaymentTransaction records one settlement attempt against a
// subscription. A subscription accumulates transactions across retries
// and renewals; Amount always equals the subscription's FinalAmount.
type PaymentTransaction struct {
	ID             string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	SubscriptionID string `gorm:"column:subscription_id;type:uuid;not null;index" json:"subscription_id"`
	// TransactionID is our internal id, used as the idempotency key for
	// caller-driven retries against the gateway.
	TransactionID    string                  `gorm:"column:transaction_id;type:varchar(64);not null;uniqueIndex" json:"transaction_id"`
	GatewayOrderID   string                  `gorm:"column:gateway_order_id;type:varchar(128);not null;index" json:"gateway_order_id"`
	GatewayPaymentID *string                 `gorm:"column:gateway_payment_id;type:varchar(128);index" json:"gateway_payment_id"`
	GatewaySignature *string                 `gorm:"column:gateway_signature;type:varchar(256)" json:"gateway_signature"`
	Amount           float64                 `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Currency         string                  `gorm:"column:currency;type:varchar(8);not null" json:"currency"`
	Status           types.TransactionStatus `gorm:"column:status;type:varchar(32);not null;index" json:"status"`
	Method           string                  `gorm:"column:method;type:varchar(32)" json:"method"`
	// GatewayResponse keeps the provider's raw payload for audit/debugging.
	GatewayResponse datatypes.JSON `gorm:"column:gateway_response;type:jsonb" json:"gateway_response"`
	FailureReason   *string        `gorm:"column:failure_reason;type:varchar(256)" json:"failure_reason"`
	CompletedAt     *time.Time     `gorm:"column:completed_at" json:"completed_at"`
	RefundedAt      *time.Time     `gorm:"column:refunded_at" json:"refunded_at"`
	RefundAmount    float64        `gorm:"column:refund_amount;type:numeric(12,2);default:0" json:"refund_amount"`
	RefundID        *string        `gorm:"column:refund_id;type:varchar(128)" json:"refund_id"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (PaymentTransaction) TableName() string {
	return "payment_transactions"
}

// RefundableAmount is what may still be refunded against this transaction.
func (t *PaymentTransaction) RefundableAmount() float64 {
	if t == nil {
		return 0
	}
	remaining := t.Amount - t.RefundAmount
	if remaining < 0 {
		return 0
	}
	return remaining
}
