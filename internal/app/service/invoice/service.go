package invoice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/prepnest/billing/internal/models"
	"github.com/prepnest/billing/pkg/config"
	"github.com/prepnest/billing/pkg/logctx"
	"github.com/prepnest/billing/pkg/tool"
	"github.com/prepnest/billing/pkg/types"
)

// ErrInvoiceNotFound is returned when no invoice exists for a subscription.
var ErrInvoiceNotFound = errors.New("invoice not found")

// Customer is the billing snapshot frozen onto the invoice.
type Customer struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	BillingAddress string `json:"billing_address"`
}

type Service struct {
	db  *gorm.DB
	cfg *config.Config
	log *zap.SugaredLogger
}

func NewService(db *gorm.DB, cfg *config.Config, log *zap.SugaredLogger) *Service {
	return &Service{db: db, cfg: cfg, log: log}
}

// CreateInvoice issues the single invoice for a subscription. Calling
// it again for the same subscription returns the existing invoice
// unchanged.
func (s *Service) CreateInvoice(ctx context.Context, sub *models.UserSubscription, customer Customer) (*models.Invoice, error) {
	var inv *models.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := s.CreateInvoiceTx(ctx, tx, sub, customer)
		inv = created
		return err
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// CreateInvoiceTx is CreateInvoice running inside the caller's
// transaction; the lifecycle manager uses it so activation and
// invoicing commit together.
func (s *Service) CreateInvoiceTx(ctx context.Context, tx *gorm.DB, sub *models.UserSubscription, customer Customer) (*models.Invoice, error) {
	// One invoice per subscription.
	var existing models.Invoice
	err := tx.Where("subscription_id = ?", sub.ID).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing invoice: %w", err)
	}

	subtotal := sub.OriginalAmount
	discount := sub.OriginalAmount - sub.FinalAmount
	tax := sub.FinalAmount * s.cfg.Billing.TaxRatePercent / 100
	now := time.Now()

	number, err := nextInvoiceNumber(tx, now)
	if err != nil {
		return nil, err
	}

	inv := &models.Invoice{
		ID:             tool.GenerateUUIDV7(),
		SubscriptionID: sub.ID,
		InvoiceNumber:  number,
		InvoiceDate:    now,
		Subtotal:       subtotal,
		DiscountAmount: discount,
		TaxAmount:      tax,
		TotalAmount:    subtotal - discount + tax,
		Currency:       s.cfg.Billing.Currency,
		Status:         types.InvoiceStatusGenerated,
		CustomerName:   customer.Name,
		CustomerEmail:  customer.Email,
		BillingAddress: customer.BillingAddress,
	}
	// The insert runs under a savepoint so a unique-index rejection
	// (a concurrent invoice for the same subscription) leaves the
	// surrounding transaction usable for the re-read; without it the
	// failed insert aborts the whole transaction on Postgres.
	if err := tx.SavePoint("invoice_create").Error; err != nil {
		return nil, fmt.Errorf("failed to create savepoint: %w", err)
	}
	if err := tx.Create(inv).Error; err != nil {
		if isDuplicateKey(err) {
			if rberr := tx.RollbackTo("invoice_create").Error; rberr != nil {
				return nil, fmt.Errorf("failed to roll back to savepoint: %w", rberr)
			}
			// Re-read and return rather than erroring.
			if rerr := tx.Where("subscription_id = ?", sub.ID).First(&existing).Error; rerr == nil {
				return &existing, nil
			}
		}
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}
	logctx.FromCtx(ctx, s.log).Infow("invoice_created",
		"invoice_number", inv.InvoiceNumber, "subscription_id", sub.ID, "total", inv.TotalAmount)
	return inv, nil
}

// GetBySubscription returns the invoice issued for a subscription.
func (s *Service) GetBySubscription(ctx context.Context, subscriptionID string) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).Where("subscription_id = ?", subscriptionID).First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: subscription %s", ErrInvoiceNotFound, subscriptionID)
		}
		return nil, fmt.Errorf("failed to load invoice: %w", err)
	}
	return &inv, nil
}

// MarkSent progresses a generated invoice to sent. Status only moves
// forward; later states are left untouched.
func (s *Service) MarkSent(ctx context.Context, invoiceID string) error {
	now := time.Now()
	return s.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("id = ? AND status = ?", invoiceID, types.InvoiceStatusGenerated).
		Updates(map[string]any{"status": types.InvoiceStatusSent, "sent_at": now}).Error
}

// MarkDownloaded records the first download of an invoice.
func (s *Service) MarkDownloaded(ctx context.Context, invoiceID string) error {
	now := time.Now()
	return s.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("id = ? AND status IN ?", invoiceID, []types.InvoiceStatus{types.InvoiceStatusGenerated, types.InvoiceStatusSent}).
		Updates(map[string]any{"status": types.InvoiceStatusDownloaded, "downloaded_at": now}).Error
}

func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "duplicate key")
}
