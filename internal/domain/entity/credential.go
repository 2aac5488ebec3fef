package entity

import "time"

// CredentialBundle is the mutable credential state of a store, kept apart
// from the immutable TaxpayerProfile. All secret material is persisted as
// path-addressed files under the store's credential area; the bundle only
// carries the paths.
//
// Lifecycle: created empty -> compliance exchange fills SecretPath and
// CSIDPath -> production exchange fills CertificatePath and rewrites
// SecretPath -> renewal regenerates the key pair and CSR wholesale,
// re-authenticating with the existing certificate.
type CredentialBundle struct {
	PrivateKeyPath  string // PEM-encoded EC private key
	CSRPath         string // PEM-encoded certificate signing request
	CertificatePath string // binary security token (compliance or production)
	SecretPath      string
	CSIDPath        string // compliance request id returned by the authority

	OTP           string    // one-time passcode used for the last issuance
	SyncStartDate time.Time // invoices dated before this cannot be submitted

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasCertificate reports whether a certificate path has been recorded.
// Whether the file actually exists is the credential store's call.
func (c CredentialBundle) HasCertificate() bool {
	return c.CertificatePath != ""
}
