package invoice

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/prepnest/billing/internal/models"
	"github.com/prepnest/billing/pkg/config"
	"github.com/prepnest/billing/pkg/tool"
)

func setupInvoiceDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.Invoice{}, &models.InvoiceSequence{})
	require.NoError(t, err)

	return db
}

func newTestService(db *gorm.DB) *Service {
	cfg := &config.Config{}
	cfg.Billing.Currency = "INR"
	cfg.Billing.TaxRatePercent = 18
	return NewService(db, cfg, zap.NewNop().Sugar())
}

func pendingSub(amount float64) *models.UserSubscription {
	return &models.UserSubscription{
		ID:             tool.GenerateUUIDV7(),
		UserID:         "user-1",
		PlanID:         tool.GenerateUUIDV7(),
		GatewayOrderID: "order_" + tool.GenerateUUIDV7()[:8],
		OriginalAmount: amount,
		FinalAmount:    amount,
	}
}

func TestCreateInvoice_AllocatesDistinctSequentialNumbers(t *testing.T) {
	db := setupInvoiceDB(t)
	svc := newTestService(db)
	ctx := context.Background()

	prefix := monthPrefix(time.Now())
	seen := map[string]bool{}
	for i := 1; i <= 3; i++ {
		inv, err := svc.CreateInvoice(ctx, pendingSub(1000), Customer{Name: "A", Email: "a@example.com"})
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("%s%05d", prefix, i), inv.InvoiceNumber)
		assert.False(t, seen[inv.InvoiceNumber], "invoice number %s allocated twice", inv.InvoiceNumber)
		seen[inv.InvoiceNumber] = true
	}
}

func TestCreateInvoice_SecondCallReturnsExistingInvoice(t *testing.T) {
	db := setupInvoiceDB(t)
	svc := newTestService(db)
	ctx := context.Background()

	sub := pendingSub(500)
	first, err := svc.CreateInvoice(ctx, sub, Customer{Name: "B", Email: "b@example.com"})
	require.NoError(t, err)

	second, err := svc.CreateInvoice(ctx, sub, Customer{Name: "B", Email: "b@example.com"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.InvoiceNumber, second.InvoiceNumber)

	var count int64
	require.NoError(t, db.Model(&models.Invoice{}).Where("subscription_id = ?", sub.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	// The early return must not burn a sequence slot.
	var seq models.InvoiceSequence
	require.NoError(t, db.First(&seq).Error)
	assert.Equal(t, 1, seq.LastSequence)
}

func TestNextInvoiceNumber_CountsPerMonth(t *testing.T) {
	db := setupInvoiceDB(t)

	jan := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	var got []string
	err := db.Transaction(func(tx *gorm.DB) error {
		for _, at := range []time.Time{jan, jan, feb, jan} {
			n, err := nextInvoiceNumber(tx, at)
			if err != nil {
				return err
			}
			got = append(got, n)
		}
		return nil
	})
	require.NoError(t, err)

	// Each month counts independently; a new month starts back at 00001.
	assert.Equal(t, []string{
		"INV-202601-00001",
		"INV-202601-00002",
		"INV-202602-00001",
		"INV-202601-00003",
	}, got)
}

func TestCreateInvoice_ComputesTaxOnDiscountedSubtotal(t *testing.T) {
	db := setupInvoiceDB(t)
	svc := newTestService(db)

	sub := pendingSub(1000)
	sub.FinalAmount = 800 // 20% discount applied at order time

	inv, err := svc.CreateInvoice(context.Background(), sub, Customer{Name: "C", Email: "c@example.com"})
	require.NoError(t, err)

	assert.Equal(t, 1000.0, inv.Subtotal)
	assert.Equal(t, 200.0, inv.DiscountAmount)
	assert.InDelta(t, 144.0, inv.TaxAmount, 0.001)
	assert.InDelta(t, 944.0, inv.TotalAmount, 0.001)
	assert.Equal(t, "INR", inv.Currency)
}
