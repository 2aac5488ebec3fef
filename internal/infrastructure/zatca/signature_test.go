package zatca

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testCredential produces a self-signed EC certificate and its key, encoded
// the way the production exchange stores them.
func testCredential(t *testing.T) (body string, keyPEM []byte, key *ecdsa.PrivateKey) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(982345),
		Subject:      pkix.Name{CommonName: "Albadr-POS-1"},
		Issuer:       pkix.Name{CommonName: "TSTZATCA-CA"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})

	return base64.StdEncoding.EncodeToString(der), keyPEM, key
}

func testSigningContext(t *testing.T) *SigningContext {
	t.Helper()
	body, keyPEM, _ := testCredential(t)
	sctx, err := NewSigningContext(ModeProduction, []byte(body), keyPEM)
	require.NoError(t, err)
	return sctx
}

func TestParseCertificateModes(t *testing.T) {
	body, _, _ := testCredential(t)

	prod, err := ParseCertificate([]byte(body), ModeProduction)
	require.NoError(t, err)
	assert.Equal(t, body, prod.Body)

	// The compliance exchange stores the token Base64-wrapped once more.
	wrapped := base64.StdEncoding.EncodeToString([]byte(body))
	comp, err := ParseCertificate([]byte(wrapped), ModeCompliance)
	require.NoError(t, err)
	assert.Equal(t, body, comp.Body)

	assert.Equal(t, prod.HashEncoded(), comp.HashEncoded())
	assert.Equal(t, "982345", prod.SerialNumber())
}

func TestAuthUsernameIsEncodedBody(t *testing.T) {
	sctx := testSigningContext(t)
	want := base64.StdEncoding.EncodeToString([]byte(sctx.Certificate.Body))
	assert.Equal(t, want, sctx.AuthUsername())
}

func TestSignerBuild(t *testing.T) {
	sctx := testSigningContext(t)
	bctx := buildContext(testInvoice())

	docs, err := NewSigner(NewXMLBuilder()).Build(bctx, sctx)
	require.NoError(t, err)

	// The reported hash is the hash of the hashable document.
	wantHash, err := InvoiceHash(docs.HashXML)
	require.NoError(t, err)
	assert.Equal(t, wantHash, docs.InvoiceHash)

	// The signature verifies against the double-hashed digest.
	digest, err := InvoiceDigest(docs.HashXML)
	require.NoError(t, err)
	sig, err := base64.StdEncoding.DecodeString(docs.Signature)
	require.NoError(t, err)
	sum := sha256.Sum256(digest)
	assert.True(t, ecdsa.VerifyASN1(&sctx.PrivateKey.PublicKey, sum[:], sig))

	signed := etree.NewDocument()
	require.NoError(t, signed.ReadFromBytes(docs.SignXML))
	root := signed.Root()

	// Extensions come first, then the QR reference is the third additional
	// document reference, then the signature placeholder block.
	assert.Equal(t, "UBLExtensions", firstChildElement(signed).Tag)
	refs := root.SelectElements("cac:AdditionalDocumentReference")
	require.Len(t, refs, 3)
	assert.Equal(t, "QR", refs[2].SelectElement("cbc:ID").Text())
	require.NotNil(t, root.SelectElement("cac:Signature"))

	// The embedded invoice hash and certificate match the signing credential.
	hashEl := signed.FindElement("//ds:Reference[@Id='invoiceSignedData']/ds:DigestValue")
	require.NotNil(t, hashEl)
	assert.Equal(t, docs.InvoiceHash, hashEl.Text())
	certEl := signed.FindElement("//ds:X509Certificate")
	require.NotNil(t, certEl)
	assert.Equal(t, sctx.Certificate.Body, certEl.Text())
}

func TestSignerSignedPropertiesHash(t *testing.T) {
	sctx := testSigningContext(t)
	bctx := buildContext(testInvoice())

	docs, err := NewSigner(NewXMLBuilder()).Build(bctx, sctx)
	require.NoError(t, err)

	props := buildSignedProperties(bctx.SigningTime, sctx.Certificate)
	assert.Contains(t, props, "2026-03-15T14:30:06Z")

	signed := etree.NewDocument()
	require.NoError(t, signed.ReadFromBytes(docs.SignXML))
	spDigest := signed.FindElement("//ds:Reference[@Type='http://www.w3.org/2000/09/xmldsig#SignatureProperties']/ds:DigestValue")
	require.NotNil(t, spDigest)
	assert.Equal(t, SignedPropertiesHash(props), spDigest.Text())
}

func TestSignerQRPayload(t *testing.T) {
	sctx := testSigningContext(t)
	bctx := buildContext(testInvoice())

	docs, err := NewSigner(NewXMLBuilder()).Build(bctx, sctx)
	require.NoError(t, err)

	extracted, err := ExtractQRCode(docs.SignXML)
	require.NoError(t, err)
	assert.Equal(t, docs.QR, extracted)

	raw, err := base64.StdEncoding.DecodeString(docs.QR)
	require.NoError(t, err)

	fields := map[byte][]byte{}
	for i := 0; i < len(raw); {
		tag, length := raw[i], int(raw[i+1])
		fields[tag] = raw[i+2 : i+2+length]
		i += 2 + length
	}
	assert.Equal(t, "Albadr Trading Co", string(fields[1]))
	assert.Equal(t, "399999999900003", string(fields[2]))
	assert.Equal(t, "2026-03-15T14:30:05", string(fields[3]))
	assert.Equal(t, "230.00", string(fields[4]))
	assert.Equal(t, "30.00", string(fields[5]))
	assert.Equal(t, docs.InvoiceHash, string(fields[6]))
	assert.Equal(t, docs.Signature, string(fields[7]))
	assert.Equal(t, sctx.Certificate.PublicKeyDER(), fields[8])
	assert.Equal(t, sctx.Certificate.SignatureBytes(), fields[9])
}

func TestSignerHashableUnchangedBySigning(t *testing.T) {
	sctx := testSigningContext(t)
	bctx := buildContext(testInvoice())

	reference, err := NewXMLBuilder().BuildHashable(buildContext(testInvoice()))
	require.NoError(t, err)
	want, err := reference.WriteToBytes()
	require.NoError(t, err)

	docs, err := NewSigner(NewXMLBuilder()).Build(bctx, sctx)
	require.NoError(t, err)
	assert.Equal(t, want, docs.HashXML)
}
