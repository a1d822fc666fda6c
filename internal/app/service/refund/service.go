package refund

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/prepnest/billing/internal/models"
	"github.com/prepnest/billing/internal/platform/razorpay"
	"github.com/prepnest/billing/pkg/logctx"
	"github.com/prepnest/billing/pkg/types"
)

var (
	// ErrPaymentNotFound is returned when no completed transaction
	// matches the gateway payment id.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrRefundExceedsPayment rejects refunds beyond the amount still
	// refundable on the transaction. Checked before the gateway call.
	ErrRefundExceedsPayment = errors.New("refund amount exceeds refundable balance")
	// ErrInvalidRefundAmount rejects zero or negative amounts.
	ErrInvalidRefundAmount = errors.New("refund amount must be positive")
)

// Gateway is the slice of the payment provider the refund processor
// uses. *razorpay.Client satisfies it.
type Gateway interface {
	CreateRefund(ctx context.Context, paymentID string, amount float64) (*razorpay.Refund, error)
}

// Result reports a processed refund.
type Result struct {
	RefundID       string                  `json:"refund_id"`
	PaymentID      string                  `json:"payment_id"`
	Amount         float64                 `json:"amount"`
	TotalRefunded  float64                 `json:"total_refunded"`
	Status         types.TransactionStatus `json:"status"`
	TransactionRef string                  `json:"transaction_ref"`
}

type Service struct {
	db      *gorm.DB
	gateway Gateway
	log     *zap.SugaredLogger
}

func NewService(db *gorm.DB, gateway Gateway, log *zap.SugaredLogger) *Service {
	return &Service{db: db, gateway: gateway, log: log}
}

// Refund issues a full or partial refund against a completed payment.
// The over-limit guard runs before any gateway call: local books are
// the source of truth for what is still refundable.
func (s *Service) Refund(ctx context.Context, gatewayPaymentID string, amount float64, reason string) (*Result, error) {
	if amount <= 0 {
		return nil, ErrInvalidRefundAmount
	}

	txn, err := s.loadTransaction(ctx, gatewayPaymentID)
	if err != nil {
		return nil, err
	}
	if err := checkRefundable(txn, amount); err != nil {
		return nil, err
	}

	gwRefund, err := s.gateway.CreateRefund(ctx, gatewayPaymentID, amount)
	if err != nil {
		return nil, fmt.Errorf("gateway refund failed: %w", err)
	}

	var result *Result
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Re-read under lock: a concurrent refund may have landed
		// between the guard and the gateway call.
		var locked models.PaymentTransaction
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", txn.ID).First(&locked).Error; err != nil {
			return fmt.Errorf("failed to reload transaction: %w", err)
		}

		// The guard must hold against the fresh row too: a concurrent
		// refund may have consumed the balance while the gateway call
		// was in flight. The gateway refund already happened, so this
		// is a reconciliation failure, not a rejection the caller can
		// simply retry.
		if err := checkRefundable(&locked, amount); err != nil {
			return fmt.Errorf("refund %s accepted by gateway but exceeds local books, manual reconciliation required: %w", gwRefund.ID, err)
		}

		now := time.Now()
		locked.RefundAmount += amount
		locked.RefundedAt = &now
		locked.RefundID = lo.ToPtr(gwRefund.ID)
		if locked.RefundAmount >= locked.Amount {
			locked.Status = types.TransactionStatusRefunded
		} else {
			locked.Status = types.TransactionStatusPartiallyRefunded
		}
		if err := tx.Save(&locked).Error; err != nil {
			return fmt.Errorf("failed to record refund: %w", err)
		}

		result = &Result{
			RefundID:       gwRefund.ID,
			PaymentID:      gatewayPaymentID,
			Amount:         amount,
			TotalRefunded:  locked.RefundAmount,
			Status:         locked.Status,
			TransactionRef: locked.TransactionID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logctx.FromCtx(ctx, s.log).Infow("refund_processed",
		"payment_id", gatewayPaymentID, "refund_id", gwRefund.ID,
		"amount", amount, "reason", reason, "status", result.Status)
	return result, nil
}

// checkRefundable enforces the over-limit guard against local books.
func checkRefundable(txn *models.PaymentTransaction, amount float64) error {
	switch txn.Status {
	case types.TransactionStatusCompleted, types.TransactionStatusPartiallyRefunded:
	case types.TransactionStatusRefunded:
		return fmt.Errorf("%w: already fully refunded", ErrRefundExceedsPayment)
	default:
		return fmt.Errorf("cannot refund transaction in status %s", txn.Status)
	}
	if amount > txn.RefundableAmount() {
		return fmt.Errorf("%w: requested %.2f, refundable %.2f",
			ErrRefundExceedsPayment, amount, txn.RefundableAmount())
	}
	return nil
}

func (s *Service) loadTransaction(ctx context.Context, gatewayPaymentID string) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	err := s.db.WithContext(ctx).
		Where("gateway_payment_id = ?", gatewayPaymentID).
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPaymentNotFound, gatewayPaymentID)
		}
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	return &txn, nil
}
