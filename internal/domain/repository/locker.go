package repository

import "context"

// InvoiceLocker serializes work on a single invoice across processes, so two
// concurrent submissions of the same invoice cannot race past the
// already-passed check.
type InvoiceLocker interface {
	// WithInvoiceLock runs fn while holding an exclusive lock on the invoice.
	WithInvoiceLock(ctx context.Context, invoiceID int64, fn func() error) error
}
