package zatca

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/beevik/etree"

	domzatca "github.com/albadr/zatca-integration/internal/domain/zatca"
	"github.com/albadr/zatca-integration/pkg/qr"
)

// The signed properties block is hashed exactly as embedded, so the template
// is a single line: any re-serialization must reproduce it byte for byte.
const signedPropertiesTemplate = `<xades:SignedProperties xmlns:xades="http://uri.etsi.org/01903/v1.3.2#" Id="xadesSignedProperties"><xades:SignedSignatureProperties><xades:SigningTime>%s</xades:SigningTime><xades:SigningCertificate><xades:Cert><xades:CertDigest><ds:DigestMethod xmlns:ds="http://www.w3.org/2000/09/xmldsig#" Algorithm="http://www.w3.org/2001/04/xmlenc#sha256"/><ds:DigestValue xmlns:ds="http://www.w3.org/2000/09/xmldsig#">%s</ds:DigestValue></xades:CertDigest><xades:IssuerSerial><ds:X509IssuerName xmlns:ds="http://www.w3.org/2000/09/xmldsig#">%s</ds:X509IssuerName><ds:X509SerialNumber xmlns:ds="http://www.w3.org/2000/09/xmldsig#">%s</ds:X509SerialNumber></xades:IssuerSerial></xades:Cert></xades:SigningCertificate></xades:SignedSignatureProperties></xades:SignedProperties>`

// ublExtensionsTemplate is the enveloped XAdES signature carried in
// ext:UBLExtensions. Placeholders, in order: invoice hash, signed properties
// hash, signature value, certificate body, signed properties block.
const ublExtensionsTemplate = `<ext:UBLExtensions xmlns:ext="urn:oasis:names:specification:ubl:schema:xsd:CommonExtensionComponents-2"><ext:UBLExtension><ext:ExtensionURI>urn:oasis:names:specification:ubl:dsig:enveloped:xades</ext:ExtensionURI><ext:ExtensionContent><sig:UBLDocumentSignatures xmlns:sig="urn:oasis:names:specification:ubl:schema:xsd:CommonSignatureComponents-2" xmlns:sac="urn:oasis:names:specification:ubl:schema:xsd:SignatureAggregateComponents-2" xmlns:sbc="urn:oasis:names:specification:ubl:schema:xsd:SignatureBasicComponents-2"><sac:SignatureInformation><cbc:ID xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2">urn:oasis:names:specification:ubl:signature:1</cbc:ID><sbc:ReferencedSignatureID>urn:oasis:names:specification:ubl:signature:Invoice</sbc:ReferencedSignatureID><ds:Signature xmlns:ds="http://www.w3.org/2000/09/xmldsig#" Id="signature"><ds:SignedInfo><ds:CanonicalizationMethod Algorithm="http://www.w3.org/2006/12/xml-c14n11"/><ds:SignatureMethod Algorithm="http://www.w3.org/2001/04/xmldsig-more#ecdsa-sha256"/><ds:Reference Id="invoiceSignedData" URI=""><ds:Transforms><ds:Transform Algorithm="http://www.w3.org/TR/1999/REC-xpath-19991116"><ds:XPath>not(//ancestor-or-self::ext:UBLExtensions)</ds:XPath></ds:Transform><ds:Transform Algorithm="http://www.w3.org/TR/1999/REC-xpath-19991116"><ds:XPath>not(//ancestor-or-self::cac:Signature)</ds:XPath></ds:Transform><ds:Transform Algorithm="http://www.w3.org/TR/1999/REC-xpath-19991116"><ds:XPath>not(//ancestor-or-self::cac:AdditionalDocumentReference[cbc:ID='QR'])</ds:XPath></ds:Transform><ds:Transform Algorithm="http://www.w3.org/2006/12/xml-c14n11"/></ds:Transforms><ds:DigestMethod Algorithm="http://www.w3.org/2001/04/xmlenc#sha256"/><ds:DigestValue>%s</ds:DigestValue></ds:Reference><ds:Reference Type="http://www.w3.org/2000/09/xmldsig#SignatureProperties" URI="#xadesSignedProperties"><ds:DigestMethod Algorithm="http://www.w3.org/2001/04/xmlenc#sha256"/><ds:DigestValue>%s</ds:DigestValue></ds:Reference></ds:SignedInfo><ds:SignatureValue>%s</ds:SignatureValue><ds:KeyInfo><ds:X509Data><ds:X509Certificate>%s</ds:X509Certificate></ds:X509Data></ds:KeyInfo><ds:Object><xades:QualifyingProperties xmlns:xades="http://uri.etsi.org/01903/v1.3.2#" Target="signature">%s</xades:QualifyingProperties></ds:Object></ds:Signature></sac:SignatureInformation></sig:UBLDocumentSignatures></ext:ExtensionContent></ext:UBLExtension></ext:UBLExtensions>`

// SignedDocuments is the full signing outcome for one invoice.
type SignedDocuments struct {
	HashXML     []byte
	SignXML     []byte
	InvoiceHash string
	Signature   string
	QR          string
}

// Signer turns a build context plus a signing credential into the hashable
// and signed documents and the QR payload.
type Signer struct {
	builder *XMLBuilder
}

// NewSigner creates a signer around the given XML builder.
func NewSigner(builder *XMLBuilder) *Signer {
	return &Signer{builder: builder}
}

// Build renders the hashable document, hashes and signs it, then decorates a
// copy with the signature extension, the QR reference and the signature
// placeholder block.
func (s *Signer) Build(bctx *DocumentBuildContext, sctx *SigningContext) (*SignedDocuments, error) {
	doc, err := s.builder.BuildHashable(bctx)
	if err != nil {
		return nil, err
	}
	hashXML, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("zatca: serialize hashable XML: %w", err)
	}

	digest, err := InvoiceDigest(hashXML)
	if err != nil {
		return nil, err
	}
	invoiceHash := base64.StdEncoding.EncodeToString(digest)

	signature, err := SignDigest(sctx.PrivateKey, digest)
	if err != nil {
		return nil, err
	}

	signingTime := bctx.SigningTime
	if signingTime.IsZero() {
		signingTime = time.Now()
	}
	signedProps := buildSignedProperties(signingTime, sctx.Certificate)
	extXML := fmt.Sprintf(ublExtensionsTemplate,
		invoiceHash,
		SignedPropertiesHash(signedProps),
		signature,
		sctx.Certificate.Body,
		signedProps,
	)

	qrPayload, err := buildQRPayload(bctx, invoiceHash, signature, sctx.Certificate)
	if err != nil {
		return nil, err
	}

	if err := injectSignature(doc, extXML, qrPayload); err != nil {
		return nil, err
	}
	signXML, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("zatca: serialize signed XML: %w", err)
	}

	return &SignedDocuments{
		HashXML:     hashXML,
		SignXML:     signXML,
		InvoiceHash: invoiceHash,
		Signature:   signature,
		QR:          qrPayload,
	}, nil
}

// buildSignedProperties renders the XAdES signed properties for the signing
// certificate at the given time.
func buildSignedProperties(signingTime time.Time, cert *ParsedCertificate) string {
	return fmt.Sprintf(signedPropertiesTemplate,
		signingTime.UTC().Format("2006-01-02T15:04:05Z"),
		cert.HashEncoded(),
		cert.IssuerName(),
		cert.SerialNumber(),
	)
}

// SignedPropertiesHash digests the signed properties block the way the
// authority verifies it: Base64 of the lowercase hex SHA-256 of the bytes.
func SignedPropertiesHash(signedProperties string) string {
	sum := sha256.Sum256([]byte(signedProperties))
	return base64.StdEncoding.EncodeToString([]byte(hex.EncodeToString(sum[:])))
}

// buildQRPayload encodes the nine TLV fields of the invoice QR.
func buildQRPayload(bctx *DocumentBuildContext, invoiceHash, signature string, cert *ParsedCertificate) (string, error) {
	inv := bctx.Invoice
	values := [][]byte{
		[]byte(bctx.Profile.Name),
		[]byte(bctx.Profile.TaxNumber),
		[]byte(inv.IssueDate() + "T" + inv.IssueTime()),
		[]byte(domzatca.Amount(bctx.Totals.Net)),
		[]byte(domzatca.Amount(bctx.Totals.Tax)),
		[]byte(invoiceHash),
		[]byte(signature),
		cert.PublicKeyDER(),
		cert.SignatureBytes(),
	}
	payload, err := qr.EncodeTLVBase64(values)
	if err != nil {
		return "", fmt.Errorf("zatca: encode QR payload: %w", err)
	}
	return payload, nil
}

// injectSignature adds the three signature artifacts to the document:
// ext:UBLExtensions as the first child, the QR document reference after the
// PIH reference, and the cac:Signature block before the supplier party.
func injectSignature(doc *etree.Document, extXML, qrPayload string) error {
	root := doc.Root()
	if root == nil {
		return fmt.Errorf("zatca: inject signature: empty document")
	}

	extDoc := etree.NewDocument()
	if err := extDoc.ReadFromString(extXML); err != nil {
		return fmt.Errorf("zatca: parse signature extension: %w", err)
	}
	root.InsertChildAt(0, extDoc.Root())

	supplier := root.SelectElement("cac:AccountingSupplierParty")
	if supplier == nil {
		return fmt.Errorf("zatca: inject signature: no supplier party")
	}

	qrRef := etree.NewElement("cac:AdditionalDocumentReference")
	qrRef.CreateElement("cbc:ID").SetText("QR")
	obj := qrRef.CreateElement("cac:Attachment").CreateElement("cbc:EmbeddedDocumentBinaryObject")
	obj.CreateAttr("mimeCode", "text/plain")
	obj.SetText(qrPayload)
	root.InsertChildAt(supplier.Index(), qrRef)

	sig := etree.NewElement("cac:Signature")
	sig.CreateElement("cbc:ID").SetText("urn:oasis:names:specification:ubl:signature:Invoice")
	sig.CreateElement("cbc:SignatureMethod").SetText("urn:oasis:names:specification:ubl:dsig:enveloped:xades")
	root.InsertChildAt(supplier.Index(), sig)

	return nil
}

// ExtractQRCode pulls the QR payload back out of a signed document, the same
// way a verifier would read it.
func ExtractQRCode(signXML []byte) (string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(signXML); err != nil {
		return "", fmt.Errorf("zatca: parse signed XML: %w", err)
	}
	el := doc.FindElement("//cac:AdditionalDocumentReference[cbc:ID='QR']/cac:Attachment/cbc:EmbeddedDocumentBinaryObject")
	if el == nil {
		return "", fmt.Errorf("zatca: signed XML has no QR reference")
	}
	return el.Text(), nil
}
