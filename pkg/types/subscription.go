package types

type SubscriptionStatus string

const (
	SubscriptionStatusPending   SubscriptionStatus = "pending"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

type TransactionStatus string

const (
	TransactionStatusPending           TransactionStatus = "pending"
	TransactionStatusCompleted         TransactionStatus = "completed"
	TransactionStatusFailed            TransactionStatus = "failed"
	TransactionStatusRefunded          TransactionStatus = "refunded"
	TransactionStatusPartiallyRefunded TransactionStatus = "partially_refunded"
)

type InvoiceStatus string

const (
	InvoiceStatusGenerated  InvoiceStatus = "generated"
	InvoiceStatusSent       InvoiceStatus = "sent"
	InvoiceStatusDownloaded InvoiceStatus = "downloaded"
	InvoiceStatusFailed     InvoiceStatus = "failed"
)

type DurationUnit string

const (
	DurationUnitDays   DurationUnit = "days"
	DurationUnitMonths DurationUnit = "months"
	DurationUnitYears  DurationUnit = "years"
)

// ValidityDays converts a plan duration to a whole number of days.
// Months and years use the fixed 30/365-day convention the invoicing
// side relies on; validity windows are not calendar-aware.
func ValidityDays(count int, unit DurationUnit) int {
	switch unit {
	case DurationUnitMonths:
		return count * 30
	case DurationUnitYears:
		return count * 365
	default:
		return count
	}
}
