package refund

import (
	"context"
	"errors"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/prepnest/billing/internal/models"
	"github.com/prepnest/billing/internal/platform/razorpay"
	"github.com/prepnest/billing/pkg/currency"
	"github.com/prepnest/billing/pkg/tool"
	"github.com/prepnest/billing/pkg/types"
)

func completedTxn(amount, alreadyRefunded float64) *models.PaymentTransaction {
	status := types.TransactionStatusCompleted
	if alreadyRefunded > 0 {
		status = types.TransactionStatusPartiallyRefunded
	}
	return &models.PaymentTransaction{
		Amount:       amount,
		RefundAmount: alreadyRefunded,
		Status:       status,
	}
}

func TestCheckRefundable(t *testing.T) {
	tests := []struct {
		name    string
		txn     *models.PaymentTransaction
		amount  float64
		wantErr error
	}{
		{name: "full refund allowed", txn: completedTxn(499, 0), amount: 499},
		{name: "partial refund allowed", txn: completedTxn(499, 0), amount: 100},
		{name: "second partial within balance", txn: completedTxn(499, 100), amount: 399},
		{name: "exceeds original amount", txn: completedTxn(499, 0), amount: 500, wantErr: ErrRefundExceedsPayment},
		{name: "exceeds remaining balance", txn: completedTxn(499, 400), amount: 100, wantErr: ErrRefundExceedsPayment},
		{
			name: "already fully refunded",
			txn: &models.PaymentTransaction{
				Amount: 499, RefundAmount: 499, Status: types.TransactionStatusRefunded,
			},
			amount:  1,
			wantErr: ErrRefundExceedsPayment,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkRefundable(tt.txn, tt.amount)
			if tt.wantErr != nil {
				require.Error(t, err)
				require.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestCheckRefundable_RejectsUnsettledTransactions(t *testing.T) {
	for _, status := range []types.TransactionStatus{
		types.TransactionStatusPending,
		types.TransactionStatusFailed,
	} {
		txn := &models.PaymentTransaction{Amount: 499, Status: status}
		require.Error(t, checkRefundable(txn, 100), "status %s must not be refundable", status)
	}
}

func TestRefundableAmount_NeverNegative(t *testing.T) {
	txn := &models.PaymentTransaction{Amount: 100, RefundAmount: 150}
	require.Equal(t, 0.0, txn.RefundableAmount())
}

func TestErrRefundExceedsPayment_IsWrapFriendly(t *testing.T) {
	err := checkRefundable(completedTxn(10, 0), 20)
	require.True(t, errors.Is(err, ErrRefundExceedsPayment))
}

func setupRefundDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.PaymentTransaction{}))
	return db
}

func seedCompletedTxn(t *testing.T, db *gorm.DB, paymentID string, amount float64) *models.PaymentTransaction {
	txn := &models.PaymentTransaction{
		ID:               tool.GenerateUUIDV7(),
		SubscriptionID:   tool.GenerateUUIDV7(),
		TransactionID:    tool.GenerateUUIDV7(),
		GatewayOrderID:   "order_rf_1",
		GatewayPaymentID: lo.ToPtr(paymentID),
		Amount:           amount,
		Currency:         "INR",
		Status:           types.TransactionStatusCompleted,
	}
	require.NoError(t, db.Create(txn).Error)
	return txn
}

// okGateway always accepts the refund.
type okGateway struct{}

func (okGateway) CreateRefund(ctx context.Context, paymentID string, amount float64) (*razorpay.Refund, error) {
	return &razorpay.Refund{
		ID:        "rfnd_ok",
		PaymentID: paymentID,
		Amount:    currency.ToMinorUnits(amount),
		Status:    "processed",
	}, nil
}

// racingGateway mutates the transaction row while the gateway call is
// in flight, the way a concurrent refund committing in that window
// would.
type racingGateway struct {
	db    *gorm.DB
	txnID string
}

func (g *racingGateway) CreateRefund(ctx context.Context, paymentID string, amount float64) (*razorpay.Refund, error) {
	err := g.db.Model(&models.PaymentTransaction{}).Where("id = ?", g.txnID).Updates(map[string]any{
		"refund_amount": amount,
		"status":        types.TransactionStatusRefunded,
	}).Error
	if err != nil {
		return nil, err
	}
	return &razorpay.Refund{ID: "rfnd_race", PaymentID: paymentID, Amount: currency.ToMinorUnits(amount), Status: "processed"}, nil
}

func TestRefund_PartialThenFull(t *testing.T) {
	db := setupRefundDB(t)
	svc := NewService(db, okGateway{}, zap.NewNop().Sugar())
	ctx := context.Background()
	seedCompletedTxn(t, db, "pay_rf_1", 500)

	res, err := svc.Refund(ctx, "pay_rf_1", 200, "duplicate charge")
	require.NoError(t, err)
	assert.Equal(t, 200.0, res.TotalRefunded)
	assert.Equal(t, types.TransactionStatusPartiallyRefunded, res.Status)

	res, err = svc.Refund(ctx, "pay_rf_1", 300, "remainder")
	require.NoError(t, err)
	assert.Equal(t, 500.0, res.TotalRefunded)
	assert.Equal(t, types.TransactionStatusRefunded, res.Status)

	_, err = svc.Refund(ctx, "pay_rf_1", 1, "over")
	require.ErrorIs(t, err, ErrRefundExceedsPayment)
}

func TestRefund_ConcurrentRefundCaughtUnderLock(t *testing.T) {
	db := setupRefundDB(t)
	ctx := context.Background()
	txn := seedCompletedTxn(t, db, "pay_rf_2", 500)

	svc := NewService(db, &racingGateway{db: db, txnID: txn.ID}, zap.NewNop().Sugar())

	// The pre-call guard passes, then the full balance is consumed
	// while the gateway call is in flight. The locked re-check must
	// refuse to book the second refund on top of it.
	_, err := svc.Refund(ctx, "pay_rf_2", 500, "race")
	require.ErrorIs(t, err, ErrRefundExceedsPayment)
	assert.Contains(t, err.Error(), "manual reconciliation")

	// Local books keep the concurrent writer's state untouched.
	var stored models.PaymentTransaction
	require.NoError(t, db.First(&stored, "id = ?", txn.ID).Error)
	assert.Equal(t, 500.0, stored.RefundAmount)
	assert.Equal(t, types.TransactionStatusRefunded, stored.Status)
}
