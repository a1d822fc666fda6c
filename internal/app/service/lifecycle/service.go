package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/prepnest/billing/internal/app/service/invoice"
	"github.com/prepnest/billing/internal/app/service/plan"
	"github.com/prepnest/billing/internal/app/service/validation"
	"github.com/prepnest/billing/internal/models"
	"github.com/prepnest/billing/internal/platform/razorpay"
	"github.com/prepnest/billing/pkg/config"
	"github.com/prepnest/billing/pkg/logctx"
	"github.com/prepnest/billing/pkg/tool"
	"github.com/prepnest/billing/pkg/types"
)

// recurring subscriptions are registered at the gateway for a year of
// monthly charges before requiring re-authorization
const defaultAutoRenewCycles = 12

// Service owns the UserSubscription state machine: creation, verified
// activation, renewal and cancellation. Expiry is computed lazily by
// readers, never written here.
type Service struct {
	db      *gorm.DB
	cfg     *config.Config
	gateway Gateway
	planSvc *plan.Service
	invSvc  *invoice.Service
	valSvc  *validation.Service
	log     *zap.SugaredLogger
}

func NewService(db *gorm.DB, cfg *config.Config, gateway Gateway, planSvc *plan.Service, invSvc *invoice.Service, valSvc *validation.Service, log *zap.SugaredLogger) *Service {
	return &Service{db: db, cfg: cfg, gateway: gateway, planSvc: planSvc, invSvc: invSvc, valSvc: valSvc, log: log}
}

// CreatePendingSubscription issues a gateway order for the plan and
// persists the subscription and its first transaction, both pending.
func (s *Service) CreatePendingSubscription(ctx context.Context, userID, planID string) (*models.UserSubscription, *razorpay.Order, error) {
	p, err := s.planSvc.GetPlan(ctx, planID)
	if err != nil {
		return nil, nil, err
	}

	txnID := tool.GenerateUUIDV7()
	order, err := s.gateway.CreateOrder(ctx, p.FinalPrice(), s.cfg.Billing.Currency, "sub-"+txnID[:18])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create gateway order: %w", err)
	}

	sub := &models.UserSubscription{
		ID:             tool.GenerateUUIDV7(),
		UserID:         userID,
		PlanID:         p.ID,
		GatewayOrderID: order.ID,
		OriginalAmount: p.Price,
		FinalAmount:    p.FinalPrice(),
		Status:         types.SubscriptionStatusPending,
	}
	txn := &models.PaymentTransaction{
		ID:             tool.GenerateUUIDV7(),
		SubscriptionID: sub.ID,
		TransactionID:  txnID,
		GatewayOrderID: order.ID,
		Amount:         sub.FinalAmount,
		Currency:       s.cfg.Billing.Currency,
		Status:         types.TransactionStatusPending,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(sub).Error; err != nil {
			return fmt.Errorf("failed to create subscription: %w", err)
		}
		if err := tx.Create(txn).Error; err != nil {
			return fmt.Errorf("failed to create payment transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	logctx.FromCtx(ctx, s.log).Infow("subscription_created",
		"subscription_id", sub.ID, "user_id", userID, "plan_id", planID,
		"order_id", order.ID, "amount", sub.FinalAmount)

	sub.Plan = p
	return sub, order, nil
}

// ActivateSubscription settles a checkout callback. The subscription
// row is locked for the duration so concurrent duplicate callbacks
// (webhook racing the client) cannot both perform the Pending->Active
// transition or double-issue invoices; the loser observes the settled
// state and returns it.
func (s *Service) ActivateSubscription(ctx context.Context, req *ActivationRequest) (*ActivationResult, error) {
	var result *ActivationResult
	var ownerID string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub models.UserSubscription
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("gateway_order_id = ?", req.OrderID).
			First(&sub).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: order %s", ErrSubscriptionNotFound, req.OrderID)
			}
			return fmt.Errorf("failed to load subscription: %w", err)
		}
		ownerID = sub.UserID

		if sub.Status == types.SubscriptionStatusActive {
			// Duplicate callback for a settled order: return the
			// existing outcome instead of re-activating.
			inv, _ := s.invoiceFor(tx, sub.ID)
			result = &ActivationResult{
				Success:       true,
				AlreadyActive: true,
				Message:       "subscription already active",
				Subscription:  &sub,
				Invoice:       inv,
			}
			return nil
		}
		if sub.Status != types.SubscriptionStatusPending {
			return fmt.Errorf("cannot activate subscription in status %s", sub.Status)
		}

		p, err := s.planFor(tx, sub.PlanID)
		if err != nil {
			return err
		}
		sub.Plan = p

		txn, err := s.pendingTransaction(tx, &sub)
		if err != nil {
			return err
		}

		if !s.gateway.VerifyPaymentSignature(req.OrderID, req.PaymentID, req.Signature) {
			// Security failure, not a transient error: record the
			// failed attempt, leave the subscription pending.
			now := time.Now()
			updates := map[string]any{
				"status":             types.TransactionStatusFailed,
				"failure_reason":     "signature mismatch",
				"gateway_payment_id": req.PaymentID,
				"gateway_signature":  req.Signature,
				"updated_at":         now,
			}
			if err := tx.Model(txn).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to mark transaction failed: %w", err)
			}
			logctx.FromCtx(ctx, s.log).Warnw("payment_signature_mismatch",
				"order_id", req.OrderID, "payment_id", req.PaymentID, "subscription_id", sub.ID)
			result = &ActivationResult{
				Success: false,
				Message: "payment could not be verified",
			}
			return nil
		}

		now := time.Now()
		end := now.AddDate(0, 0, p.ValidityDays())
		sub.Status = types.SubscriptionStatusActive
		sub.StartDate = &now
		sub.EndDate = &end
		sub.GatewayPaymentID = lo.ToPtr(req.PaymentID)
		sub.GatewaySignature = lo.ToPtr(req.Signature)
		if err := tx.Save(&sub).Error; err != nil {
			return fmt.Errorf("failed to activate subscription: %w", err)
		}

		txn.Status = types.TransactionStatusCompleted
		txn.GatewayPaymentID = lo.ToPtr(req.PaymentID)
		txn.GatewaySignature = lo.ToPtr(req.Signature)
		txn.CompletedAt = &now
		if err := tx.Save(txn).Error; err != nil {
			return fmt.Errorf("failed to complete transaction: %w", err)
		}

		inv, err := s.invSvc.CreateInvoiceTx(ctx, tx, &sub, invoice.Customer{
			Name:           req.CustomerName,
			Email:          req.CustomerEmail,
			BillingAddress: req.BillingAddress,
		})
		if err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}

		result = &ActivationResult{
			Success:      true,
			Message:      "subscription activated",
			Subscription: &sub,
			Invoice:      inv,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Success && !result.AlreadyActive {
		s.valSvc.InvalidateUser(ctx, ownerID)
		go s.enrichTransaction(req.OrderID, req.PaymentID)
		logctx.FromCtx(ctx, s.log).Infow("subscription_activated",
			"subscription_id", result.Subscription.ID, "order_id", req.OrderID,
			"payment_id", req.PaymentID, "invoice_number", result.Invoice.InvoiceNumber)
	}
	return result, nil
}

// RenewSubscription extends an active subscription by one plan window
// from the later of now and the current EndDate.
func (s *Service) RenewSubscription(ctx context.Context, subscriptionID string, autoRenew bool) (*models.UserSubscription, error) {
	var sub models.UserSubscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lockSubscription(tx, subscriptionID, &sub); err != nil {
			return err
		}
		if sub.Status != types.SubscriptionStatusActive {
			return fmt.Errorf("%w: status %s", ErrSubscriptionNotActive, sub.Status)
		}

		p, err := s.planFor(tx, sub.PlanID)
		if err != nil {
			return err
		}

		now := time.Now()
		end := computeRenewalEnd(now, sub.EndDate, p.ValidityDays())
		sub.EndDate = &end
		sub.LastRenewalDate = &now
		sub.AutoRenew = autoRenew
		sub.Plan = p
		if err := tx.Save(&sub).Error; err != nil {
			return fmt.Errorf("failed to renew subscription: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.valSvc.InvalidateUser(ctx, sub.UserID)
	logctx.FromCtx(ctx, s.log).Infow("subscription_renewed",
		"subscription_id", sub.ID, "end_date", sub.EndDate, "auto_renew", autoRenew)
	return &sub, nil
}

// CancelSubscription moves an active subscription to cancelled. No
// refund is issued here; refunds are an explicit, separate operation.
func (s *Service) CancelSubscription(ctx context.Context, subscriptionID, reason string) (*models.UserSubscription, error) {
	var sub models.UserSubscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lockSubscription(tx, subscriptionID, &sub); err != nil {
			return err
		}
		if sub.Status != types.SubscriptionStatusActive {
			return fmt.Errorf("%w: status %s", ErrSubscriptionNotActive, sub.Status)
		}

		now := time.Now()
		sub.Status = types.SubscriptionStatusCancelled
		sub.CancelledDate = &now
		sub.AutoRenew = false
		if reason != "" {
			sub.CancellationReason = lo.ToPtr(reason)
		}
		if err := tx.Save(&sub).Error; err != nil {
			return fmt.Errorf("failed to cancel subscription: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.valSvc.InvalidateUser(ctx, sub.UserID)

	// Recurring billing is stopped best-effort after the local cancel;
	// a gateway rejection is logged for manual reconciliation, never
	// retried automatically.
	if sub.GatewaySubscriptionID != nil {
		if err := s.gateway.CancelSubscription(ctx, *sub.GatewaySubscriptionID); err != nil {
			logctx.FromCtx(ctx, s.log).Errorw("gateway_subscription_cancel_failed",
				"subscription_id", sub.ID, "gateway_subscription_id", *sub.GatewaySubscriptionID, "err", err)
		}
	}

	logctx.FromCtx(ctx, s.log).Infow("subscription_cancelled",
		"subscription_id", sub.ID, "reason", reason)
	return &sub, nil
}

// EnableAutoRenew registers a recurring-billing subscription at the
// gateway and attaches it to an active subscription.
func (s *Service) EnableAutoRenew(ctx context.Context, subscriptionID, customerEmail, customerName string) (*models.UserSubscription, error) {
	var sub models.UserSubscription
	if err := s.lockFree(ctx, subscriptionID, &sub); err != nil {
		return nil, err
	}
	if sub.Status != types.SubscriptionStatusActive {
		return nil, fmt.Errorf("%w: status %s", ErrSubscriptionNotActive, sub.Status)
	}

	gwSub, err := s.gateway.CreateSubscription(ctx, &razorpay.SubscriptionParams{
		PlanID:        sub.PlanID,
		UserID:        sub.UserID,
		Amount:        sub.FinalAmount,
		Currency:      s.cfg.Billing.Currency,
		TotalCycles:   defaultAutoRenewCycles,
		CustomerEmail: customerEmail,
		CustomerName:  customerName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway subscription: %w", err)
	}

	err = s.db.WithContext(ctx).Model(&sub).Updates(map[string]any{
		"gateway_subscription_id": gwSub.ID,
		"auto_renew":              true,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to store gateway subscription: %w", err)
	}
	sub.GatewaySubscriptionID = lo.ToPtr(gwSub.ID)
	sub.AutoRenew = true

	s.valSvc.InvalidateUser(ctx, sub.UserID)
	logctx.FromCtx(ctx, s.log).Infow("auto_renew_enabled",
		"subscription_id", sub.ID, "gateway_subscription_id", gwSub.ID)
	return &sub, nil
}

// MarkPaymentFailed records a gateway-reported payment failure against
// the order's open transaction. The subscription stays pending so the
// user can retry checkout on the same order.
func (s *Service) MarkPaymentFailed(ctx context.Context, orderID, paymentID, reason string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub models.UserSubscription
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("gateway_order_id = ?", orderID).
			First(&sub).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: order %s", ErrSubscriptionNotFound, orderID)
			}
			return fmt.Errorf("failed to load subscription: %w", err)
		}
		if sub.Status != types.SubscriptionStatusPending {
			// Settled orders keep their outcome; a late failure event
			// for an already-active subscription is informational only.
			logctx.FromCtx(ctx, s.log).Infow("payment_failed_ignored",
				"order_id", orderID, "status", sub.Status)
			return nil
		}

		txn, err := s.pendingTransaction(tx, &sub)
		if err != nil {
			return err
		}
		if reason == "" {
			reason = "payment failed at gateway"
		}
		updates := map[string]any{
			"status":         types.TransactionStatusFailed,
			"failure_reason": reason,
			"updated_at":     time.Now(),
		}
		if paymentID != "" {
			updates["gateway_payment_id"] = paymentID
		}
		if err := tx.Model(txn).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to mark transaction failed: %w", err)
		}
		logctx.FromCtx(ctx, s.log).Infow("payment_failed",
			"order_id", orderID, "payment_id", paymentID, "reason", reason)
		return nil
	})
}

// GetByOrderID loads a subscription by its gateway order id.
func (s *Service) GetByOrderID(ctx context.Context, orderID string) (*models.UserSubscription, error) {
	var sub models.UserSubscription
	err := s.db.WithContext(ctx).Preload("Plan").
		Where("gateway_order_id = ?", orderID).
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %s", ErrSubscriptionNotFound, orderID)
		}
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	return &sub, nil
}

func (s *Service) lockSubscription(tx *gorm.DB, subscriptionID string, out *models.UserSubscription) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", subscriptionID).
		First(out).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrSubscriptionNotFound, subscriptionID)
		}
		return fmt.Errorf("failed to load subscription: %w", err)
	}
	return nil
}

func (s *Service) lockFree(ctx context.Context, subscriptionID string, out *models.UserSubscription) error {
	err := s.db.WithContext(ctx).Where("id = ?", subscriptionID).First(out).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrSubscriptionNotFound, subscriptionID)
		}
		return fmt.Errorf("failed to load subscription: %w", err)
	}
	return nil
}

func (s *Service) planFor(tx *gorm.DB, planID string) (*models.SubscriptionPlan, error) {
	var p models.SubscriptionPlan
	if err := tx.Where("id = ?", planID).First(&p).Error; err != nil {
		return nil, fmt.Errorf("failed to load plan %s: %w", planID, err)
	}
	return &p, nil
}

// pendingTransaction finds the open transaction for an order, creating
// a fresh one when earlier verification attempts already consumed it
// (retries on the same order are expected).
func (s *Service) pendingTransaction(tx *gorm.DB, sub *models.UserSubscription) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	err := tx.Where("gateway_order_id = ? AND status = ?", sub.GatewayOrderID, types.TransactionStatusPending).
		Order("created_at desc").
		First(&txn).Error
	if err == nil {
		return &txn, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load pending transaction: %w", err)
	}

	fresh := &models.PaymentTransaction{
		ID:             tool.GenerateUUIDV7(),
		SubscriptionID: sub.ID,
		TransactionID:  tool.GenerateUUIDV7(),
		GatewayOrderID: sub.GatewayOrderID,
		Amount:         sub.FinalAmount,
		Currency:       s.cfg.Billing.Currency,
		Status:         types.TransactionStatusPending,
	}
	if err := tx.Create(fresh).Error; err != nil {
		return nil, fmt.Errorf("failed to create retry transaction: %w", err)
	}
	return fresh, nil
}

func (s *Service) invoiceFor(tx *gorm.DB, subscriptionID string) (*models.Invoice, error) {
	var inv models.Invoice
	if err := tx.Where("subscription_id = ?", subscriptionID).First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

// enrichTransaction backfills payment method and the gateway's raw
// payload after settlement. Best-effort; runs outside the settlement
// transaction because it is a network call.
func (s *Service) enrichTransaction(orderID, paymentID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	payment, err := s.gateway.GetPaymentDetails(ctx, paymentID)
	if err != nil {
		s.log.Warnw("payment_details_fetch_failed", "order_id", orderID, "payment_id", paymentID, "err", err)
		return
	}
	raw, err := json.Marshal(payment)
	if err != nil {
		return
	}
	err = s.db.Model(&models.PaymentTransaction{}).
		Where("gateway_order_id = ? AND gateway_payment_id = ?", orderID, paymentID).
		Updates(map[string]any{
			"method":           payment.Method,
			"gateway_response": datatypes.JSON(raw),
		}).Error
	if err != nil {
		s.log.Warnw("payment_details_store_failed", "order_id", orderID, "err", err)
	}
}
