package validation

import (
	"encoding/json"
	"time"

	"github.com/prepnest/billing/internal/models"
	"github.com/prepnest/billing/pkg/types"
)

// Result is the entitlement decision every content-serving service
// consumes before releasing paid material.
type Result struct {
	IsValid               bool       `json:"is_valid"`
	HasActiveSubscription bool       `json:"has_active_subscription"`
	IsExpired             bool       `json:"is_expired"`
	IsCancelled           bool       `json:"is_cancelled"`
	RequiresRenewal       bool       `json:"requires_renewal"`
	Message               string     `json:"message,omitempty"`
	SubscriptionID        string     `json:"subscription_id,omitempty"`
	PlanName              string     `json:"plan_name,omitempty"`
	Features              []string   `json:"features,omitempty"`
	DaysUntilExpiry       int        `json:"days_until_expiry"`
	ExpiryDate            *time.Time `json:"expiry_date,omitempty"`
}

// evaluate turns a fetched subscription row into an entitlement
// decision. It never mutates the row: an active record past its
// EndDate is reported expired, the stored status stays untouched.
func evaluate(sub *models.UserSubscription, contentCategory string, now time.Time) *Result {
	if sub == nil {
		return &Result{
			IsValid:         false,
			RequiresRenewal: true,
			Message:         "no active subscription",
		}
	}

	res := &Result{SubscriptionID: sub.ID}
	if sub.Plan != nil {
		res.PlanName = sub.Plan.Name
		res.Features = planFeatures(sub.Plan)
	}
	if sub.EndDate != nil {
		res.ExpiryDate = sub.EndDate
		if days := int(sub.EndDate.Sub(now).Hours() / 24); days > 0 {
			res.DaysUntilExpiry = days
		}
	}

	switch {
	case sub.Status == types.SubscriptionStatusCancelled:
		res.IsCancelled = true
		res.Message = "subscription was cancelled"
	case sub.Status != types.SubscriptionStatusActive:
		res.RequiresRenewal = true
		res.Message = "no active subscription"
	case sub.IsExpired(now):
		res.IsExpired = true
		res.RequiresRenewal = true
		res.Message = "subscription has expired"
	default:
		res.HasActiveSubscription = true
		res.IsValid = true
		// A plan scoped to one exam category only entitles that category.
		if contentCategory != "" && sub.Plan != nil &&
			sub.Plan.ExamCategory != "" && sub.Plan.ExamCategory != contentCategory {
			res.IsValid = false
			res.Message = "subscription does not cover category " + contentCategory
		}
	}
	return res
}

func planFeatures(p *models.SubscriptionPlan) []string {
	if len(p.Features) == 0 {
		return nil
	}
	var features []string
	if err := json.Unmarshal(p.Features, &features); err != nil {
		return nil
	}
	return features
}
