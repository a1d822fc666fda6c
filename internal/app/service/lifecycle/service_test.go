package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/prepnest/billing/internal/app/service/invoice"
	"github.com/prepnest/billing/internal/app/service/plan"
	"github.com/prepnest/billing/internal/app/service/validation"
	"github.com/prepnest/billing/internal/models"
	"github.com/prepnest/billing/internal/platform/razorpay"
	"github.com/prepnest/billing/pkg/config"
	"github.com/prepnest/billing/pkg/currency"
	"github.com/prepnest/billing/pkg/tool"
	"github.com/prepnest/billing/pkg/types"
)

// stubGateway fakes the payment provider: orders always succeed and a
// signature verifies iff it equals goodSignature.
type stubGateway struct {
	orders int
}

const goodSignature = "sig-valid"

func (g *stubGateway) CreateOrder(ctx context.Context, amount float64, curr, receipt string) (*razorpay.Order, error) {
	g.orders++
	return &razorpay.Order{
		ID:       "order_test_" + tool.GenerateUUIDV7()[:8],
		Amount:   currency.ToMinorUnits(amount),
		Currency: curr,
		Receipt:  receipt,
		Status:   "created",
	}, nil
}

func (g *stubGateway) GetPaymentDetails(ctx context.Context, paymentID string) (*razorpay.Payment, error) {
	return nil, errors.New("not reachable in tests")
}

func (g *stubGateway) CreateSubscription(ctx context.Context, p *razorpay.SubscriptionParams) (*razorpay.Subscription, error) {
	return nil, errors.New("not reachable in tests")
}

func (g *stubGateway) CancelSubscription(ctx context.Context, subscriptionID string) error {
	return nil
}

func (g *stubGateway) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return signature == goodSignature
}

func setupLifecycleDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.SubscriptionPlan{},
		&models.UserSubscription{},
		&models.PaymentTransaction{},
		&models.Invoice{},
		&models.InvoiceSequence{},
	)
	require.NoError(t, err)

	return db
}

func newLifecycleService(t *testing.T, db *gorm.DB) (*Service, *stubGateway) {
	cfg := &config.Config{}
	cfg.Billing.Currency = "INR"
	cfg.Billing.TaxRatePercent = 18
	cfg.Billing.ValidationCacheTTLSeconds = 60

	log := zap.NewNop().Sugar()
	gw := &stubGateway{}

	// Cache misses and scan failures are soft in the validation layer,
	// so an unreachable address is fine here.
	cache := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { _ = cache.Close() })

	planSvc := plan.NewService(db, log)
	invSvc := invoice.NewService(db, cfg, log)
	valSvc := validation.NewService(db, cache, cfg, log)

	return NewService(db, cfg, gw, planSvc, invSvc, valSvc, log), gw
}

func seedPlan(t *testing.T, db *gorm.DB) *models.SubscriptionPlan {
	p := &models.SubscriptionPlan{
		ID:            tool.GenerateUUIDV7(),
		Name:          "Monthly Pro",
		Price:         999,
		Currency:      "INR",
		DurationCount: 1,
		DurationUnit:  types.DurationUnitMonths,
		IsActive:      true,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func TestActivateSubscription_DuplicateCallbackIsIdempotent(t *testing.T) {
	db := setupLifecycleDB(t)
	svc, _ := newLifecycleService(t, db)
	ctx := context.Background()
	p := seedPlan(t, db)

	sub, order, err := svc.CreatePendingSubscription(ctx, "user-77", p.ID)
	require.NoError(t, err)
	require.Equal(t, types.SubscriptionStatusPending, sub.Status)

	req := &ActivationRequest{
		OrderID:       order.ID,
		PaymentID:     "pay_dup_1",
		Signature:     goodSignature,
		CustomerName:  "Asha",
		CustomerEmail: "asha@example.com",
	}

	first, err := svc.ActivateSubscription(ctx, req)
	require.NoError(t, err)
	require.True(t, first.Success)
	assert.False(t, first.AlreadyActive)
	require.NotNil(t, first.Invoice)

	// Webhook delivery racing the client callback replays the same order.
	second, err := svc.ActivateSubscription(ctx, req)
	require.NoError(t, err)
	require.True(t, second.Success)
	assert.True(t, second.AlreadyActive)
	require.NotNil(t, second.Invoice)
	assert.Equal(t, first.Invoice.InvoiceNumber, second.Invoice.InvoiceNumber)

	var invCount int64
	require.NoError(t, db.Model(&models.Invoice{}).Where("subscription_id = ?", sub.ID).Count(&invCount).Error)
	assert.EqualValues(t, 1, invCount)

	var stored models.UserSubscription
	require.NoError(t, db.First(&stored, "id = ?", sub.ID).Error)
	assert.Equal(t, types.SubscriptionStatusActive, stored.Status)
	require.NotNil(t, stored.EndDate)
	assert.True(t, stored.EndDate.After(*stored.StartDate))
}

func TestActivateSubscription_BadSignatureLeavesSubscriptionPending(t *testing.T) {
	db := setupLifecycleDB(t)
	svc, _ := newLifecycleService(t, db)
	ctx := context.Background()
	p := seedPlan(t, db)

	_, order, err := svc.CreatePendingSubscription(ctx, "user-78", p.ID)
	require.NoError(t, err)

	res, err := svc.ActivateSubscription(ctx, &ActivationRequest{
		OrderID:   order.ID,
		PaymentID: "pay_forged",
		Signature: "sig-forged",
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Nil(t, res.Invoice)

	var stored models.UserSubscription
	require.NoError(t, db.First(&stored, "gateway_order_id = ?", order.ID).Error)
	assert.Equal(t, types.SubscriptionStatusPending, stored.Status)

	var txn models.PaymentTransaction
	require.NoError(t, db.First(&txn, "gateway_order_id = ?", order.ID).Error)
	assert.Equal(t, types.TransactionStatusFailed, txn.Status)
	require.NotNil(t, txn.FailureReason)
	assert.Equal(t, "signature mismatch", *txn.FailureReason)
}

func TestActivateSubscription_DistinctOrdersGetDistinctInvoiceNumbers(t *testing.T) {
	db := setupLifecycleDB(t)
	svc, _ := newLifecycleService(t, db)
	ctx := context.Background()
	p := seedPlan(t, db)

	numbers := map[string]bool{}
	for i := 0; i < 3; i++ {
		_, order, err := svc.CreatePendingSubscription(ctx, "user-80", p.ID)
		require.NoError(t, err)

		res, err := svc.ActivateSubscription(ctx, &ActivationRequest{
			OrderID:   order.ID,
			PaymentID: "pay_batch_" + order.ID,
			Signature: goodSignature,
		})
		require.NoError(t, err)
		require.True(t, res.Success)
		require.NotNil(t, res.Invoice)
		assert.False(t, numbers[res.Invoice.InvoiceNumber], "invoice number %s issued twice", res.Invoice.InvoiceNumber)
		numbers[res.Invoice.InvoiceNumber] = true
	}
	assert.Len(t, numbers, 3)
}
