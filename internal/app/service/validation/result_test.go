package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/prepnest/billing/internal/models"
	"github.com/prepnest/billing/pkg/types"
)

func activeSub(endIn time.Duration, now time.Time, plan *models.SubscriptionPlan) *models.UserSubscription {
	end := now.Add(endIn)
	start := now.Add(-24 * time.Hour)
	return &models.UserSubscription{
		ID:        "sub-1",
		UserID:    "user-1",
		Status:    types.SubscriptionStatusActive,
		StartDate: &start,
		EndDate:   &end,
		Plan:      plan,
	}
}

func TestEvaluate_NoSubscription(t *testing.T) {
	res := evaluate(nil, "", time.Now())
	require.False(t, res.IsValid)
	require.False(t, res.HasActiveSubscription)
	require.True(t, res.RequiresRenewal)
}

func TestEvaluate_ActiveSubscription(t *testing.T) {
	now := time.Now()
	plan := &models.SubscriptionPlan{Name: "JEE Yearly", Features: datatypes.JSON(`["mock_tests","solutions"]`)}
	res := evaluate(activeSub(10*24*time.Hour, now, plan), "", now)

	require.True(t, res.IsValid)
	require.True(t, res.HasActiveSubscription)
	require.False(t, res.RequiresRenewal)
	assert.Equal(t, "JEE Yearly", res.PlanName)
	assert.Equal(t, []string{"mock_tests", "solutions"}, res.Features)
	assert.Equal(t, 10, res.DaysUntilExpiry)
	require.NotNil(t, res.ExpiryDate)
}

func TestEvaluate_ExpiredIsReportedNotMutated(t *testing.T) {
	now := time.Now()
	sub := activeSub(-24*time.Hour, now, &models.SubscriptionPlan{Name: "NEET Monthly"})
	res := evaluate(sub, "", now)

	require.False(t, res.IsValid)
	require.True(t, res.IsExpired)
	require.True(t, res.RequiresRenewal)
	assert.Equal(t, 0, res.DaysUntilExpiry)
	// the stored record is not touched
	assert.Equal(t, types.SubscriptionStatusActive, sub.Status)
}

func TestEvaluate_EndDateExactlyNowIsExpired(t *testing.T) {
	now := time.Now()
	res := evaluate(activeSub(0, now, nil), "", now)
	require.True(t, res.IsExpired)
	require.False(t, res.IsValid)
}

func TestEvaluate_Cancelled(t *testing.T) {
	now := time.Now()
	sub := activeSub(10*24*time.Hour, now, nil)
	sub.Status = types.SubscriptionStatusCancelled
	res := evaluate(sub, "", now)

	require.True(t, res.IsCancelled)
	require.False(t, res.IsValid)
	require.False(t, res.IsExpired)
}

func TestEvaluate_PendingRequiresRenewal(t *testing.T) {
	now := time.Now()
	sub := activeSub(10*24*time.Hour, now, nil)
	sub.Status = types.SubscriptionStatusPending
	res := evaluate(sub, "", now)

	require.False(t, res.IsValid)
	require.True(t, res.RequiresRenewal)
}

func TestEvaluate_CategoryScope(t *testing.T) {
	now := time.Now()
	scoped := &models.SubscriptionPlan{Name: "JEE Only", ExamCategory: "JEE"}
	unscoped := &models.SubscriptionPlan{Name: "All Access"}

	tests := []struct {
		name      string
		plan      *models.SubscriptionPlan
		category  string
		wantValid bool
	}{
		{name: "scoped plan matching category", plan: scoped, category: "JEE", wantValid: true},
		{name: "scoped plan different category", plan: scoped, category: "NEET", wantValid: false},
		{name: "scoped plan no category asked", plan: scoped, category: "", wantValid: true},
		{name: "unscoped plan any category", plan: unscoped, category: "NEET", wantValid: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := evaluate(activeSub(5*24*time.Hour, now, tt.plan), tt.category, now)
			require.Equal(t, tt.wantValid, res.IsValid)
			// a category mismatch downgrades validity but the
			// subscription itself is still reported active
			require.True(t, res.HasActiveSubscription)
		})
	}
}
