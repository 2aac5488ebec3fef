package zatca

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"strings"
	"time"

	"github.com/albadr/zatca-integration/internal/domain"
)

// Signing modes. A compliance context authenticates sample invoices during
// onboarding with the compliance CSID; a production context signs and submits
// real invoices. The mode decides how the stored security token is decoded.
const (
	ModeCompliance = "compliance"
	ModeProduction = "production"
)

// ParsedCertificate wraps the credential certificate with the fields the
// signature block and the QR payload need.
type ParsedCertificate struct {
	// Body is the certificate as Base64 DER text, exactly as embedded in the
	// ds:X509Certificate element and hashed for the signed properties.
	Body string
	Cert *x509.Certificate
}

// ParseCertificate parses the stored security token. The compliance exchange
// stores the token verbatim (Base64 of the certificate text), so it is
// decoded once first; the production exchange stores the certificate text
// directly.
func ParseCertificate(content []byte, mode string) (*ParsedCertificate, error) {
	body := strings.TrimSpace(string(content))
	if mode == ModeCompliance {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return nil, fmt.Errorf("zatca: decode compliance security token: %w", err)
		}
		body = strings.TrimSpace(string(decoded))
	}

	der, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("zatca: decode certificate body: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("zatca: parse certificate: %w", err)
	}

	return &ParsedCertificate{Body: body, Cert: cert}, nil
}

// HashEncoded returns the certificate digest for the signed properties
// block: Base64 of the lowercase hex SHA-256 of the certificate text.
func (p *ParsedCertificate) HashEncoded() string {
	sum := sha256.Sum256([]byte(p.Body))
	return base64.StdEncoding.EncodeToString([]byte(hex.EncodeToString(sum[:])))
}

// IssuerName returns the issuer distinguished name as embedded in the
// signed properties.
func (p *ParsedCertificate) IssuerName() string {
	return p.Cert.Issuer.String()
}

// SerialNumber returns the certificate serial as a decimal string.
func (p *ParsedCertificate) SerialNumber() string {
	return p.Cert.SerialNumber.String()
}

// PublicKeyDER returns the SubjectPublicKeyInfo bytes (QR tag 8).
func (p *ParsedCertificate) PublicKeyDER() []byte {
	return p.Cert.RawSubjectPublicKeyInfo
}

// SignatureBytes returns the certificate's own signature (QR tag 9).
func (p *ParsedCertificate) SignatureBytes() []byte {
	return p.Cert.Signature
}

// NotBefore is the start of the certificate's validity window.
func (p *ParsedCertificate) NotBefore() time.Time {
	return p.Cert.NotBefore
}

// SigningContext selects once, at the top of a build, which credential signs
// the document. It replaces re-checking a compliance/production flag at every
// call site.
type SigningContext struct {
	Mode        string
	Certificate *ParsedCertificate
	PrivateKey  *ecdsa.PrivateKey
}

// NewSigningContext parses the token and the PEM private key into a ready
// context.
func NewSigningContext(mode string, token, privateKeyPEM []byte) (*SigningContext, error) {
	cert, err := ParseCertificate(token, mode)
	if err != nil {
		return nil, err
	}
	key, err := ParsePrivateKeyPEM(privateKeyPEM)
	if err != nil {
		return nil, err
	}
	return &SigningContext{Mode: mode, Certificate: cert, PrivateKey: key}, nil
}

// AuthUsername returns the basic-auth username for gateway calls made with
// this credential: the Base64 form of the certificate text.
func (c *SigningContext) AuthUsername() string {
	return base64.StdEncoding.EncodeToString([]byte(c.Certificate.Body))
}

// ParsePrivateKeyPEM decodes an EC private key from PEM (SEC 1 or PKCS#8).
func ParsePrivateKeyPEM(data []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, domain.ErrPrivateKeyMissing
	}
	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("zatca: parse private key: %w", err)
	}
	key, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("zatca: private key is not an EC key")
	}
	return key, nil
}
