package entity

import "time"

// Submission statuses as classified from the authority's validation results.
const (
	SubmissionPass    = "PASS"
	SubmissionWarning = "WARNING"
	SubmissionError   = "ERROR"
)

// SubmissionRecord is the audit row for one invoice submission, upserted by
// invoice id. It is written on every attempt, including failures, so that
// retries leave a trail. An invoice recorded with status PASS may never be
// resubmitted.
type SubmissionRecord struct {
	ID        int64
	InvoiceID int64
	StoreID   int64
	ShopID    int64

	QRCode       string
	InvoiceHash  string // base64 SHA-256 of the canonical hashable XML; next invoice's PIH
	SignedXML    string
	Status       string
	InvoiceType  int    // 388 / 381 / 383
	DocumentType string // standard | simplified
	Response     string // raw authority response body

	CreatedAt time.Time
	UpdatedAt time.Time
}
