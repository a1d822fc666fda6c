package models

import (
	"time"

	"github.com/prepnest/billing/pkg/types"
	"gorm.io/datatypes"
)

// SubscriptionPlan is a purchasable plan. Rows referenced by a live
// subscription are treated as immutable: price edits only apply to new
// purchases because the subscription snapshots Original/Final amounts
// at order time.
type SubscriptionPlan struct {
	ID          string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Name        string `gorm:"column:name;type:varchar(128);not null" json:"name"`
	Description string `gorm:"column:description;type:text" json:"description"`
	// Price is in major currency units (rupees, not paise).
	Price           float64            `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	Currency        string             `gorm:"column:currency;type:varchar(8);not null;default:'INR'" json:"currency"`
	DiscountPercent float64            `gorm:"column:discount_percent;type:numeric(5,2);default:0" json:"discount_percent"`
	DurationCount   int                `gorm:"column:duration_count;not null" json:"duration_count"`
	DurationUnit    types.DurationUnit `gorm:"column:duration_unit;type:varchar(16);not null" json:"duration_unit"`
	// ExamCategory scopes the plan to one content category (e.g. "JEE").
	// Empty means the plan covers all categories.
	ExamCategory  string         `gorm:"column:exam_category;type:varchar(64);index" json:"exam_category"`
	Features      datatypes.JSON `gorm:"column:features;type:jsonb;default:'[]'" json:"features"`
	IsPopular     bool           `gorm:"column:is_popular;default:false" json:"is_popular"`
	IsRecommended bool           `gorm:"column:is_recommended;default:false" json:"is_recommended"`
	IsActive      bool           `gorm:"column:is_active;default:true;index" json:"is_active"`
	DisplayOrder  int            `gorm:"column:display_order;default:0" json:"display_order"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func (SubscriptionPlan) TableName() string {
	return "subscription_plans"
}

// ValidityDays is the plan's entitlement window in whole days.
func (p *SubscriptionPlan) ValidityDays() int {
	if p == nil {
		return 0
	}
	return types.ValidityDays(p.DurationCount, p.DurationUnit)
}

// FinalPrice is the price after the plan-level discount.
func (p *SubscriptionPlan) FinalPrice() float64 {
	if p == nil {
		return 0
	}
	return p.Price - p.Price*p.DiscountPercent/100
}
