package models

// InvoiceSequence is the per-month allocation counter behind invoice
// numbers. One row per month prefix; the row is upserted atomically so
// concurrent allocators serialize on it instead of re-reading invoices.
type InvoiceSequence struct {
	MonthPrefix  string `gorm:"column:month_prefix;type:varchar(16);primary_key" json:"month_prefix"`
	LastSequence int    `gorm:"column:last_sequence;not null" json:"last_sequence"`
}

func (InvoiceSequence) TableName() string {
	return "invoice_sequences"
}
