package webhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/prepnest/billing/internal/app/service/lifecycle"
	"github.com/prepnest/billing/internal/models"
	"github.com/prepnest/billing/internal/platform/razorpay"
	"github.com/prepnest/billing/pkg/config"
	"github.com/prepnest/billing/pkg/logctx"
	"github.com/prepnest/billing/pkg/tool"
)

var ErrInvalidWebhookSignature = fmt.Errorf("invalid webhook signature")

// Service verifies and settles gateway webhook deliveries. Every
// delivery is logged; only recognized events change billing state.
type Service struct {
	cfg          *config.Config
	db           *gorm.DB
	lifecycleSvc *lifecycle.Service
	log          *zap.SugaredLogger
}

func NewService(cfg *config.Config, db *gorm.DB, lc *lifecycle.Service, log *zap.SugaredLogger) *Service {
	return &Service{cfg: cfg, db: db, lifecycleSvc: lc, log: log}
}

// HandleDelivery authenticates the raw body against the webhook MAC,
// persists a 'received' log row and dispatches the event. The handled
// or handle_failed outcome is appended as a second log row so the
// delivery history is never overwritten.
func (s *Service) HandleDelivery(ctx context.Context, body []byte, signature, traceID string) (resErr error) {
	if !razorpay.VerifyWebhookSignature(body, signature, s.cfg.Razorpay.WebhookSecret) {
		logctx.FromCtx(ctx, s.log).Warnw("webhook_signature_rejected", "trace_id", traceID)
		return ErrInvalidWebhookSignature
	}

	ev, err := parseEvent(body)
	if err != nil {
		return err
	}

	orderID := ev.Payload.Payment.Entity.OrderID
	paymentID := ev.Payload.Payment.Entity.ID
	s.save(ctx, &models.GatewayWebhookLog{
		Event:            ev.Name,
		GatewayOrderID:   emptyToNil(orderID),
		GatewayPaymentID: emptyToNil(paymentID),
		TraceID:          traceID,
		Payload:          datatypes.JSON(body),
		Status:           models.GatewayWebhookLogStatusReceived,
	})

	defer func() {
		resMap := map[string]any{"event": ev.Name}
		if resErr != nil {
			resMap["error"] = resErr.Error()
		}
		resBytes, _ := json.Marshal(resMap)
		status := models.GatewayWebhookLogStatusHandled
		if resErr != nil {
			status = models.GatewayWebhookLogStatusHandleFailed
		}
		s.save(ctx, &models.GatewayWebhookLog{
			Event:            ev.Name,
			GatewayOrderID:   emptyToNil(orderID),
			GatewayPaymentID: emptyToNil(paymentID),
			TraceID:          traceID,
			Payload:          datatypes.JSON(body),
			Result:           lo.ToPtr(datatypes.JSON(resBytes)),
			Status:           status,
		})
	}()

	switch ev.Name {
	case EventPaymentCaptured:
		resErr = s.handleCaptured(ctx, ev)
	case EventPaymentFailed:
		resErr = s.lifecycleSvc.MarkPaymentFailed(ctx, orderID, paymentID, ev.Payload.Payment.Entity.ErrorDescription)
	case EventRefundProcessed:
		// Refunds are initiated server-side and settled synchronously;
		// the gateway confirmation only needs the delivery log.
		logctx.FromCtx(ctx, s.log).Infow("refund_processed_ack",
			"refund_id", ev.Payload.Refund.Entity.ID,
			"payment_id", ev.Payload.Refund.Entity.PaymentID)
	default:
		logctx.FromCtx(ctx, s.log).Infow("webhook_event_ignored", "event", ev.Name)
	}
	return resErr
}

// handleCaptured funnels a server-to-server capture into the same
// settlement path the client callback uses. The checkout signature is
// derived locally since the webhook MAC already authenticated the body.
func (s *Service) handleCaptured(ctx context.Context, ev *Event) error {
	orderID := ev.Payload.Payment.Entity.OrderID
	paymentID := ev.Payload.Payment.Entity.ID
	if orderID == "" || paymentID == "" {
		return fmt.Errorf("capture event missing order or payment id")
	}

	sig := razorpay.SignPayload(orderID+"|"+paymentID, s.cfg.Razorpay.KeySecret)
	res, err := s.lifecycleSvc.ActivateSubscription(ctx, &lifecycle.ActivationRequest{
		OrderID:   orderID,
		PaymentID: paymentID,
		Signature: sig,
	})
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("capture settlement rejected: %s", res.Message)
	}
	logctx.FromCtx(ctx, s.log).Infow("webhook_capture_settled",
		"order_id", orderID, "payment_id", paymentID, "already_active", res.AlreadyActive)
	return nil
}

// save asynchronously persists a webhook log row. Delivery handling
// must not fail because the audit write did.
func (s *Service) save(ctx context.Context, row *models.GatewayWebhookLog) {
	go func() {
		if row.ID == "" {
			row.ID = tool.GenerateUUIDV7()
		}
		if err := s.db.Save(row).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to save webhook log: %v", err)
		}
	}()
}

func emptyToNil(s string) *string {
	if s == "" {
		return nil
	}
	return lo.ToPtr(s)
}
