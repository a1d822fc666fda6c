package models

import (
	"time"

	"github.com/prepnest/billing/pkg/types"
)

// Invoice is the append-only billing document for one subscription.
// InvoiceNumber is the only user-facing formatted identifier in the
// system and must never change once issued.
type Invoice struct {
	ID             string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	SubscriptionID string `gorm:"column:subscription_id;type:uuid;not null;uniqueIndex" json:"subscription_id"`
	// InvoiceNumber format: INV-YYYYMM-NNNNN, allocated serially per month.
	InvoiceNumber  string              `gorm:"column:invoice_number;type:varchar(32);not null;uniqueIndex" json:"invoice_number"`
	InvoiceDate    time.Time           `gorm:"column:invoice_date;not null" json:"invoice_date"`
	Subtotal       float64             `gorm:"column:subtotal;type:numeric(12,2);not null" json:"subtotal"`
	DiscountAmount float64             `gorm:"column:discount_amount;type:numeric(12,2);default:0" json:"discount_amount"`
	TaxAmount      float64             `gorm:"column:tax_amount;type:numeric(12,2);default:0" json:"tax_amount"`
	TotalAmount    float64             `gorm:"column:total_amount;type:numeric(12,2);not null" json:"total_amount"`
	Currency       string              `gorm:"column:currency;type:varchar(8);not null" json:"currency"`
	Status         types.InvoiceStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	// Customer snapshot: billing details frozen at issue time.
	CustomerName   string     `gorm:"column:customer_name;type:varchar(128)" json:"customer_name"`
	CustomerEmail  string     `gorm:"column:customer_email;type:varchar(128)" json:"customer_email"`
	BillingAddress string     `gorm:"column:billing_address;type:text" json:"billing_address"`
	Notes          *string    `gorm:"column:notes;type:text" json:"notes"`
	SentAt         *time.Time `gorm:"column:sent_at" json:"sent_at"`
	DownloadedAt   *time.Time `gorm:"column:downloaded_at" json:"downloaded_at"`
	FilePath       *string    `gorm:"column:file_path;type:varchar(256)" json:"file_path"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (Invoice) TableName() string {
	return "invoices"
}
