package domain

import "errors"

// Domain errors (no external dependencies).
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("access denied")
	ErrInvoiceNotFound    = errors.New("invoice not found")
	ErrInvalidInvoiceType = errors.New("invoice is not a sales or sales-return transaction")
	ErrAlreadySubmitted   = errors.New("invoice was already submitted and accepted")
	ErrCertificateMissing = errors.New("certificate missing, generate one first")
	ErrCertificateRenewal = errors.New("signing certificate rejected by the authority, renew it")
	ErrInvoiceBeforeCert  = errors.New("invoice date precedes the certificate validity start date")
	ErrSettingsMissing    = errors.New("tax integration settings not configured for this store")
	ErrPrivateKeyMissing  = errors.New("private key file not found")
)
