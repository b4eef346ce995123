package sevenzip

import (
	"math/bits"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNumberRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 0x7F, 0x80, 0x3FFF, 0x4000, 0x1FFFFF, 0x200000,
		1<<28 - 1, 1 << 28, 1<<35 - 1, 1 << 35, 1 << 42, 1 << 49, 1 << 56,
		1<<63 - 1, 1 << 63, ^uint64(0)}
	for _, v := range values {
		buf := AppendNumber(nil, v)
		got, n, err := ReadNumber(buf)
		require.NoError(t, err, "value %#x", v)
		require.Equal(t, v, got, "value %#x", v)
		require.Equal(t, len(buf), n, "value %#x", v)
	}
}

// The count of leading 1-bits the decoder sees must equal the extra-byte
// count the encoder chose.
func TestNumberLeadingBitsMatchEncoding(t *testing.T) {
	for _, v := range []uint64{0, 0x7F, 0x80, 0x3FFF, 0x4000, 1 << 40, ^uint64(0)} {
		buf := AppendNumber(nil, v)
		require.Equal(t, numberExtraBytes(v), bits.LeadingZeros8(^buf[0]))
		require.Len(t, buf, numberExtraBytes(v)+1)
	}
}

func TestNumberMinimalEncoding(t *testing.T) {
	// Boundary pairs around each extra-byte step.
	type step struct {
		v     uint64
		bytes int
	}
	steps := []step{
		{0x7F, 1}, {0x80, 2},
		{0x3FFF, 2}, {0x4000, 3},
		{0x1FFFFF, 3}, {0x200000, 4},
	}
	for _, s := range steps {
		require.Len(t, AppendNumber(nil, s.v), s.bytes, "value %#x", s.v)
	}
}

func TestNumberTruncated(t *testing.T) {
	_, _, err := ReadNumber(nil)
	require.Error(t, err)
	_, _, err = ReadNumber([]byte{0x80})
	require.Error(t, err)
	_, _, err = ReadNumber([]byte{0xFF, 1, 2, 3})
	require.Error(t, err)
}
