// Package qr implements the compact TLV encoding used for the ZATCA invoice QR payload.
package qr

import (
	"encoding/base64"
	"fmt"
)

// maxValueLen is the largest value a single TLV field can carry: the length
// occupies one byte on the wire.
const maxValueLen = 255

// EncodeTLV encodes the ordered values as tag-length-value: for the value at
// 1-based position i it emits one byte for tag i, one byte for the byte
// length, then the raw bytes. Field order is part of the QR contract and must
// not be changed by callers.
func EncodeTLV(values [][]byte) ([]byte, error) {
	var out []byte
	for i, v := range values {
		if len(v) > maxValueLen {
			return nil, fmt.Errorf("qr: field %d is %d bytes, exceeds the single-byte TLV length limit", i+1, len(v))
		}
		out = append(out, byte(i+1), byte(len(v)))
		out = append(out, v...)
	}
	return out, nil
}

// EncodeTLVBase64 encodes the values as TLV and returns the blob in Base64,
// the form embedded in the invoice XML and rendered as a QR code.
func EncodeTLVBase64(values [][]byte) (string, error) {
	raw, err := EncodeTLV(values)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// EncodeStrings is a convenience wrapper for callers holding string fields.
func EncodeStrings(values []string) (string, error) {
	bs := make([][]byte, len(values))
	for i, v := range values {
		bs[i] = []byte(v)
	}
	return EncodeTLVBase64(bs)
}
