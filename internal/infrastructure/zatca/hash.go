package zatca

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/xml"
	"fmt"

	"github.com/ucarion/c14n"
)

// CanonicalizeXML produces the canonical form (C14N 2001/0315) of the
// document. The authority hashes the canonical bytes, so the output must be
// reproducible byte for byte.
func CanonicalizeXML(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	out, err := c14n.Canonicalize(dec)
	if err != nil {
		return nil, fmt.Errorf("zatca: canonicalize XML: %w", err)
	}
	return out, nil
}

// InvoiceDigest canonicalizes the hashable XML and returns the binary
// SHA-256 digest.
func InvoiceDigest(hashXML []byte) ([]byte, error) {
	canon, err := CanonicalizeXML(hashXML)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(canon)
	return sum[:], nil
}

// InvoiceHash is the Base64 form of the canonical digest, the value the
// authority validates and the next invoice chains on.
func InvoiceHash(hashXML []byte) (string, error) {
	digest, err := InvoiceDigest(hashXML)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(digest), nil
}

// ZeroInvoiceHash is the chain seed: the Base64 SHA-256 of the literal byte
// "0", used as the previous-invoice hash when no submission exists yet.
func ZeroInvoiceHash() string {
	sum := sha256.Sum256([]byte("0"))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// SignDigest signs the binary invoice digest with ECDSA over SHA-256 and
// returns the Base64 signature. The digest itself is hashed again before
// signing, matching how the authority verifies it.
func SignDigest(key *ecdsa.PrivateKey, digest []byte) (string, error) {
	if key == nil {
		return "", fmt.Errorf("zatca: nil private key")
	}
	sum := sha256.Sum256(digest)
	sig, err := ecdsa.SignASN1(rand.Reader, key, sum[:])
	if err != nil {
		return "", fmt.Errorf("zatca: sign digest: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}
