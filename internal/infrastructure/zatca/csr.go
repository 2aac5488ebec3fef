// Package zatca implements the ZATCA (Saudi tax authority) integration
// machinery: CSR generation, document hashing and signing, the UBL XML
// builder and the gateway HTTP client.
package zatca

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"fmt"

	"github.com/albadr/zatca-integration/internal/domain/entity"
)

// MaxOrganizationNameLen is the authority's limit on the organization name in
// the CSR subject.
const MaxOrganizationNameLen = 115

// Certificate template names per environment; the gateway rejects a CSR whose
// template does not match the portal it is submitted to.
const (
	templateSandbox    = "TSTZATCA-Code-Signing"
	templateSimulation = "PREZATCA-Code-Signing"
	templateProduction = "ZATCA-Code-Signing"
)

// Attribute OIDs for the custom subject-alternative-name block. The order in
// sanAttributeOrder is part of the authority's schema: reordering the
// attributes invalidates the CSR.
var (
	oidSerialNumber       = asn1.ObjectIdentifier{2, 5, 4, 4}
	oidUID                = asn1.ObjectIdentifier{0, 9, 2342, 19200300, 100, 1, 1}
	oidOrganizationalUnit = asn1.ObjectIdentifier{2, 5, 4, 11}
	oidOrganization       = asn1.ObjectIdentifier{2, 5, 4, 10}
	oidTitle              = asn1.ObjectIdentifier{2, 5, 4, 12}
	oidRegisteredAddress  = asn1.ObjectIdentifier{2, 5, 4, 26}
	oidBusinessCategory   = asn1.ObjectIdentifier{2, 5, 4, 15}

	oidSubjectAltName          = asn1.ObjectIdentifier{2, 5, 29, 17}
	oidCertificateTemplateName = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 311, 20, 2}
)

// CSRValidationError reports a malformed CSR request. It is raised before any
// key material is generated.
type CSRValidationError struct {
	Code    int
	Message string
}

func (e *CSRValidationError) Error() string {
	return fmt.Sprintf("the given data was invalid: %s", e.Message)
}

// CSRBundle is the outcome of a CSR build: the PEM-encoded request, the
// PEM-encoded private key and the in-memory key. Persisting them is the
// caller's responsibility.
type CSRBundle struct {
	CSRPEM        []byte
	PrivateKeyPEM []byte
	PrivateKey    *ecdsa.PrivateKey
}

// InvoiceCapabilities are the two capability bits advertised in the CSR's
// title attribute.
type InvoiceCapabilities struct {
	Standard   bool
	Simplified bool
}

// Flags renders the capability bits in the authority's 4-character form,
// e.g. "1100" for a unit issuing both standard and simplified invoices.
func (c InvoiceCapabilities) Flags() string {
	flags := []byte{'0', '0', '0', '0'}
	if c.Standard {
		flags[0] = '1'
	}
	if c.Simplified {
		flags[1] = '1'
	}
	return string(flags)
}

// CSRBuilder produces PKCS#10 requests with the authority's custom subject
// alternative name attributes.
type CSRBuilder struct{}

// NewCSRBuilder creates the builder.
func NewCSRBuilder() *CSRBuilder {
	return &CSRBuilder{}
}

// Build validates the profile and produces a fresh EC P-256 key pair plus the
// signed CSR. Every call generates new key material; renewal must never reuse
// the previous key.
func (b *CSRBuilder) Build(profile entity.TaxpayerProfile, caps InvoiceCapabilities) (*CSRBundle, error) {
	if err := b.validate(profile); err != nil {
		return nil, err
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("zatca: generate key pair: %w", err)
	}

	sanExt, err := buildSubjectAltName(profile, caps)
	if err != nil {
		return nil, err
	}
	templateExt, err := buildTemplateNameExtension(profile.Environment)
	if err != nil {
		return nil, err
	}

	tmpl := &x509.CertificateRequest{
		SignatureAlgorithm: x509.ECDSAWithSHA256,
		Subject: pkix.Name{
			CommonName:         profile.CommonName,
			Organization:       []string{profile.Name},
			OrganizationalUnit: []string{profile.CommonName},
			Country:            []string{"SA"},
			Locality:           []string{profile.StreetName},
		},
		ExtraExtensions: []pkix.Extension{templateExt, sanExt},
	}

	csrDER, err := x509.CreateCertificateRequest(rand.Reader, tmpl, key)
	if err != nil {
		return nil, fmt.Errorf("zatca: create CSR: %w", err)
	}

	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("zatca: marshal private key: %w", err)
	}

	return &CSRBundle{
		CSRPEM:        pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE REQUEST", Bytes: csrDER}),
		PrivateKeyPEM: pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}),
		PrivateKey:    key,
	}, nil
}

// validate checks the request fields before any key material is touched.
func (b *CSRBuilder) validate(profile entity.TaxpayerProfile) error {
	switch {
	case profile.CommonName == "":
		return &CSRValidationError{Code: 422, Message: "common name is required"}
	case profile.Name == "":
		return &CSRValidationError{Code: 422, Message: "organization name is required"}
	case len(profile.Name) > MaxOrganizationNameLen:
		return &CSRValidationError{Code: 422, Message: fmt.Sprintf("organization name must not exceed %d characters", MaxOrganizationNameLen)}
	case profile.TaxNumber == "":
		return &CSRValidationError{Code: 422, Message: "tax number is required"}
	case profile.OrganizationUnit == "":
		return &CSRValidationError{Code: 422, Message: "organization unit is required"}
	case profile.BusinessCategory == "":
		return &CSRValidationError{Code: 422, Message: "business category is required"}
	}
	return nil
}

// buildSubjectAltName encodes the custom attributes as a directoryName
// general name, one RDN per attribute, in the authority's fixed order.
func buildSubjectAltName(profile entity.TaxpayerProfile, caps InvoiceCapabilities) (pkix.Extension, error) {
	attrs := []struct {
		oid   asn1.ObjectIdentifier
		value string
	}{
		{oidSerialNumber, profile.EGSSerialNumber()},
		{oidUID, profile.TaxNumber},
		{oidOrganizationalUnit, profile.OrganizationUnit},
		{oidOrganization, profile.Name},
		{oidTitle, caps.Flags()},
		{oidRegisteredAddress, profile.StreetName},
		{oidBusinessCategory, profile.BusinessCategory},
	}

	var rdns pkix.RDNSequence
	for _, a := range attrs {
		rdns = append(rdns, []pkix.AttributeTypeAndValue{{Type: a.oid, Value: a.value}})
	}
	nameDER, err := asn1.Marshal(rdns)
	if err != nil {
		return pkix.Extension{}, fmt.Errorf("zatca: marshal SAN directory name: %w", err)
	}

	// GeneralName directoryName is CHOICE alternative [4], explicitly tagged.
	dirName := asn1.RawValue{
		Class:      asn1.ClassContextSpecific,
		Tag:        4,
		IsCompound: true,
		Bytes:      nameDER,
	}
	sanDER, err := asn1.Marshal([]asn1.RawValue{dirName})
	if err != nil {
		return pkix.Extension{}, fmt.Errorf("zatca: marshal SAN: %w", err)
	}

	return pkix.Extension{Id: oidSubjectAltName, Value: sanDER}, nil
}

// buildTemplateNameExtension selects the certificate template for the
// environment the CSR will be submitted to.
func buildTemplateNameExtension(env string) (pkix.Extension, error) {
	var name string
	switch env {
	case entity.EnvProduction:
		name = templateProduction
	case entity.EnvSimulation:
		name = templateSimulation
	default:
		name = templateSandbox
	}
	der, err := asn1.MarshalWithParams(name, "utf8")
	if err != nil {
		return pkix.Extension{}, fmt.Errorf("zatca: marshal template name: %w", err)
	}
	return pkix.Extension{Id: oidCertificateTemplateName, Value: der}, nil
}
