package repository

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/albadr/zatca-integration/internal/domain/entity"
)

// List filters for the invoice listing: "sync" selects invoices that were
// never submitted, "review" selects invoices submitted without a PASS yet.
const (
	ListFilterSync   = "sync"
	ListFilterReview = "review"
)

// InvoiceSummary is the listing read model: one submittable invoice with its
// computed tax sum and the joined client and store names.
type InvoiceSummary struct {
	ID         int64
	Number     string
	Type       string
	Date       time.Time
	Net        decimal.Decimal
	VATSum     decimal.Decimal
	ClientName string
	StoreName  string
}

// InvoiceRepository defines the persistence port for invoices as the
// submission flow needs them: loaded with buyer, lines, tax components and
// the parent-sale reference.
type InvoiceRepository interface {
	// GetForSubmission loads the invoice with all relations, or
	// domain.ErrInvoiceNotFound.
	GetForSubmission(invoiceID, shopID int64) (*entity.Invoice, error)
	// ListPendingIDs returns the ids of submittable sales and sales-return
	// invoices that have no PASS submission record yet, ordered by id across
	// both types.
	ListPendingIDs(storeID, shopID int64) ([]int64, error)
	// ListSummaries returns the store's submittable invoices matching the
	// list filter, dated on or after syncStart, ordered by id.
	ListSummaries(storeID, shopID int64, filter string, syncStart time.Time) ([]*InvoiceSummary, error)
	// CountByFilter counts the invoices ListSummaries would return.
	CountByFilter(storeID, shopID int64, filter string, syncStart time.Time) (int64, error)
	// SetUUID persists a freshly assigned invoice UUID.
	SetUUID(invoiceID int64, uuid string) error
	// SetQRCode persists the generated QR payload on the invoice row.
	SetQRCode(invoiceID int64, qr string) error
}
