package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction types eligible for submission to ZATCA.
const (
	TransactionSales       = "sales"
	TransactionSalesReturn = "sales_return"
)

// UBL invoice type codes (UN/CEFACT 1001 subset used by ZATCA).
const (
	TypeCodeInvoice    = 388 // standard sale
	TypeCodeCreditNote = 381 // same-side correction of a prior sale
	TypeCodeDebitNote  = 383 // sales return
)

// Document classifications. Standard documents go through clearance,
// simplified ones through reporting.
const (
	DocumentStandard   = "standard"
	DocumentSimplified = "simplified"
)

// Transaction-name codes carried in the cbc:InvoiceTypeCode name attribute.
const (
	TypeNameStandard   = "0100000"
	TypeNameSimplified = "0200000"
)

// Buyer is the invoice counterparty. A buyer without a tax number makes the
// document simplified.
type Buyer struct {
	Name               string
	TaxNumber          string
	StreetName         string
	BuildingNumber     string
	PlotIdentification string
	CityName           string
	PostalNumber       string
}

// TaxComponent is one tax applied to a line item.
type TaxComponent struct {
	Percentage decimal.Decimal // e.g. 15 for 15% VAT
	Value      decimal.Decimal // declared tax amount; zero means "compute from percentage"
	Category   string          // UBL tax category code, e.g. "S"
	Type       string          // exemption type, if any
	Reason     string          // exemption reason, if any
}

// Discount is a line-level allowance.
type Discount struct {
	Amount decimal.Decimal
	Reason string
}

// LineItem is one invoice line. Tax amounts either come declared on the
// components or are computed as price x quantity x sum(percentage)/100.
type LineItem struct {
	ID        int64
	Name      string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Taxes     []TaxComponent
	Discounts []Discount
}

// Invoice is a sales or sales-return transaction as loaded for submission.
// Once the signed XML has been produced the invoice must not be mutated.
type Invoice struct {
	ID      int64
	StoreID int64
	ShopID  int64

	Number  string
	UUID    string // generated once, then fixed for the invoice's lifetime
	Counter int64  // invoice counter value (ICV)

	Date            time.Time
	TransactionType string
	ReferenceID     *int64 // parent invoice id for credit/debit notes
	ReferenceNumber string // parent invoice number for the billing reference

	Buyer *Buyer
	Lines []*LineItem

	QRCode string // set after document generation

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TypeCode resolves the UBL type code: 381 for a sale that corrects a prior
// invoice, 383 for a sales return, 388 otherwise.
func (inv *Invoice) TypeCode() int {
	switch {
	case inv.TransactionType == TransactionSales && inv.ReferenceID != nil:
		return TypeCodeCreditNote
	case inv.TransactionType == TransactionSalesReturn:
		return TypeCodeDebitNote
	default:
		return TypeCodeInvoice
	}
}

// IsSimplified reports whether the invoice is a simplified document: the
// buyer is absent or has no tax number.
func (inv *Invoice) IsSimplified() bool {
	return inv.Buyer == nil || inv.Buyer.TaxNumber == ""
}

// DocumentType returns "standard" or "simplified".
func (inv *Invoice) DocumentType() string {
	if inv.IsSimplified() {
		return DocumentSimplified
	}
	return DocumentStandard
}

// TypeName returns the transaction-name code for the document classification.
func (inv *Invoice) TypeName() string {
	if inv.IsSimplified() {
		return TypeNameSimplified
	}
	return TypeNameStandard
}

// IssueDate formats the issue date the way the authority expects it.
func (inv *Invoice) IssueDate() string {
	return inv.Date.Format("2006-01-02")
}

// IssueTime formats the issue time the way the authority expects it.
func (inv *Invoice) IssueTime() string {
	return inv.Date.Format("15:04:05")
}
