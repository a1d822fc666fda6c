package invoice

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Invoice numbers look like INV-202601-00042: a month prefix plus a
// 5-digit sequence that restarts at 00001 each calendar month.

func monthPrefix(at time.Time) string {
	return fmt.Sprintf("INV-%04d%02d-", at.Year(), int(at.Month()))
}

// nextInvoiceNumber allocates the next number for the month of `at`
// inside the caller's transaction. Allocation goes through a per-month
// counter row upserted in a single statement: the first caller of a
// month inserts the row, every later caller's DO UPDATE locks it and
// increments against the committed value, so concurrent allocators
// serialize and each receives a distinct consecutive sequence. Reading
// the max existing invoice number instead would race: a transaction
// woken from a lock wait cannot see the winner's freshly committed row
// in its statement snapshot and would re-issue the same sequence.
func nextInvoiceNumber(tx *gorm.DB, at time.Time) (string, error) {
	prefix := monthPrefix(at)

	var seq int
	err := tx.Raw(`INSERT INTO invoice_sequences (month_prefix, last_sequence)
		VALUES (?, 1)
		ON CONFLICT (month_prefix) DO UPDATE SET last_sequence = invoice_sequences.last_sequence + 1
		RETURNING last_sequence`, prefix).Scan(&seq).Error
	if err != nil {
		return "", fmt.Errorf("failed to allocate invoice sequence for %s: %w", prefix, err)
	}
	if seq < 1 {
		return "", fmt.Errorf("invoice sequence allocation for %s returned nothing", prefix)
	}

	return formatNumber(prefix, seq), nil
}

func formatNumber(prefix string, seq int) string {
	return fmt.Sprintf("%s%05d", prefix, seq)
}
