package zatca

import (
	"time"

	"github.com/albadr/zatca-integration/internal/domain/entity"
	domzatca "github.com/albadr/zatca-integration/internal/domain/zatca"
)

// DocumentBuildContext carries everything the XML builder needs for one
// document. Totals are computed once by the caller so that every rendering of
// a monetary value comes from the same rounded figures.
type DocumentBuildContext struct {
	Invoice *entity.Invoice
	Profile entity.TaxpayerProfile
	Totals  domzatca.InvoiceTotals

	// PreviousInvoiceHash is the PIH chain value resolved by the caller
	// (ZeroInvoiceHash when the store has no submission yet).
	PreviousInvoiceHash string

	// SigningTime stamps the XAdES signed properties; defaults to now.
	SigningTime time.Time
}

// DocumentPayload is the submittable outcome of a document build.
type DocumentPayload struct {
	InvoiceHash  string // Base64 SHA-256 of the canonical hashable XML
	UUID         string
	Invoice      string // Base64 of the signed XML
	QR           string // Base64 TLV payload
	HashXML      string
	SignXML      string
	InvoiceType  int
	DocumentType string
}
