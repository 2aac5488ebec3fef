package repository

import (
	"time"

	"github.com/albadr/zatca-integration/internal/domain/entity"
)

// SubmissionRepository is the port for the per-invoice submission audit rows.
type SubmissionRepository interface {
	// Upsert writes the record keyed by invoice id, replacing any prior
	// attempt for the same invoice.
	Upsert(rec *entity.SubmissionRecord) error
	// HasPassed reports whether a PASS record exists for the invoice.
	HasPassed(invoiceID int64) (bool, error)
	// LatestByStore returns the most recently inserted record for the store,
	// or domain.ErrNotFound. Used for the previous-invoice-hash chain.
	LatestByStore(storeID, shopID int64) (*entity.SubmissionRecord, error)
	// GetByInvoice returns the record for an invoice, or domain.ErrNotFound.
	GetByInvoice(invoiceID int64) (*entity.SubmissionRecord, error)
	// LastSyncTime returns the update time of the store's newest record, or
	// domain.ErrNotFound when nothing was ever submitted.
	LastSyncTime(storeID, shopID int64) (time.Time, error)
}
