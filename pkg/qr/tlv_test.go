package qr_test

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albadr/zatca-integration/pkg/qr"
)

// decodeTLV is a test-only helper that walks the tag-length-value blob and
// recovers the values in tag order. It fails the test on a truncated blob.
func decodeTLV(t *testing.T, blob []byte) []string {
	t.Helper()
	var values []string
	for i := 0; i < len(blob); {
		require.Less(t, i+1, len(blob), "truncated TLV header at offset %d", i)
		tag := int(blob[i])
		length := int(blob[i+1])
		require.LessOrEqual(t, i+2+length, len(blob), "truncated TLV value for tag %d", tag)
		require.Equal(t, len(values)+1, tag, "tags must be sequential and 1-based")
		values = append(values, string(blob[i+2:i+2+length]))
		i += 2 + length
	}
	return values
}

func TestEncodeTLV_ExactBytes(t *testing.T) {
	blob, err := qr.EncodeTLV([][]byte{[]byte("A"), []byte("BB"), []byte("CCC")})
	require.NoError(t, err)

	expected := []byte{
		0x01, 0x01, 'A',
		0x02, 0x02, 'B', 'B',
		0x03, 0x03, 'C', 'C', 'C',
	}
	assert.Equal(t, expected, blob)
}

func TestEncodeTLV_RoundTrip(t *testing.T) {
	in := []string{"Albadr Trading Est.", "399999999900003", "2024-06-01T14:30:00", "115.00", "15.00"}
	bs := make([][]byte, len(in))
	for i, v := range in {
		bs[i] = []byte(v)
	}

	blob, err := qr.EncodeTLV(bs)
	require.NoError(t, err)
	assert.Equal(t, in, decodeTLV(t, blob))
}

func TestEncodeTLV_ValueTooLong(t *testing.T) {
	_, err := qr.EncodeTLV([][]byte{[]byte(strings.Repeat("x", 256))})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestEncodeTLV_BoundaryLength(t *testing.T) {
	blob, err := qr.EncodeTLV([][]byte{[]byte(strings.Repeat("x", 255))})
	require.NoError(t, err)
	assert.Equal(t, byte(0xFF), blob[1])
	assert.Len(t, blob, 257)
}

func TestEncodeTLVBase64(t *testing.T) {
	b64, err := qr.EncodeStrings([]string{"A", "BB"})
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(b64)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "BB"}, decodeTLV(t, raw))
}

func TestEncodeTLV_EmptyValueKeepsSlot(t *testing.T) {
	blob, err := qr.EncodeTLV([][]byte{[]byte(""), []byte("Z")})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x00, 0x02, 0x01, 'Z'}, blob)
}
