package models

import (
	"time"

	"github.com/prepnest/billing/pkg/types"
)

// UserSubscription is the entitlement record for one purchase.
// Status transitions: pending -> active (verified payment),
// active -> cancelled (explicit), active -> active (renewal, EndDate
// extended). Expiry is never written; it is computed from EndDate by
// readers (see IsExpired).
type UserSubscription struct {
	ID     string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID string `gorm:"column:user_id;type:varchar(64);not null;index" json:"user_id"`
	PlanID string `gorm:"column:plan_id;type:uuid;not null" json:"plan_id"`
	Plan   *SubscriptionPlan `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
	// GatewayOrderID is the mutation boundary for activation; one order
	// settles at most one subscription.
	GatewayOrderID   string  `gorm:"column:gateway_order_id;type:varchar(128);not null;uniqueIndex" json:"gateway_order_id"`
	GatewayPaymentID *string `gorm:"column:gateway_payment_id;type:varchar(128)" json:"gateway_payment_id"`
	GatewaySignature *string `gorm:"column:gateway_signature;type:varchar(256)" json:"gateway_signature"`
	// GatewaySubscriptionID is set only when recurring billing is enabled.
	GatewaySubscriptionID *string `gorm:"column:gateway_subscription_id;type:varchar(128)" json:"gateway_subscription_id"`
	// OriginalAmount is the plan price at purchase; FinalAmount is what
	// the user actually pays after discount.
	OriginalAmount     float64                  `gorm:"column:original_amount;type:numeric(12,2);not null" json:"original_amount"`
	FinalAmount        float64                  `gorm:"column:final_amount;type:numeric(12,2);not null" json:"final_amount"`
	StartDate          *time.Time               `gorm:"column:start_date" json:"start_date"`
	EndDate            *time.Time               `gorm:"column:end_date;index" json:"end_date"`
	Status             types.SubscriptionStatus `gorm:"column:status;type:varchar(32);not null;index" json:"status"`
	AutoRenew          bool                     `gorm:"column:auto_renew;default:false" json:"auto_renew"`
	LastRenewalDate    *time.Time               `gorm:"column:last_renewal_date" json:"last_renewal_date"`
	CancellationReason *string                  `gorm:"column:cancellation_reason;type:varchar(256)" json:"cancellation_reason"`
	CancelledDate      *time.Time               `gorm:"column:cancelled_date" json:"cancelled_date"`
	CreatedAt          time.Time                `json:"created_at"`
	UpdatedAt          time.Time                `json:"updated_at"`
}

func (UserSubscription) TableName() string {
	return "user_subscriptions"
}

// IsExpired reports lazy expiry: an active record whose EndDate has
// passed is expired for every reader even though the row still says
// active.
func (s *UserSubscription) IsExpired(now time.Time) bool {
	return s != nil && s.EndDate != nil && !s.EndDate.After(now)
}

// Valid reports whether the subscription grants access at now.
func (s *UserSubscription) Valid(now time.Time) bool {
	return s != nil &&
		s.Status == types.SubscriptionStatusActive &&
		s.EndDate != nil &&
		s.EndDate.After(now)
}
