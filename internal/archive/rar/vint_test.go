package rar

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 0x7F, 0x80, 0x3FFF, 0x4000, 0x1FFFFF, 1 << 32, 1<<63 - 1, 1 << 63, ^uint64(0)}
	for _, v := range values {
		buf := AppendVint(nil, v)
		require.Len(t, buf, VintLen(v))
		got, n, err := ReadVint(buf)
		require.NoError(t, err)
		require.Equal(t, v, got)
		require.Equal(t, len(buf), n)
	}
}

func TestVintMinimalEncoding(t *testing.T) {
	// A value must never encode with a redundant trailing byte.
	for _, v := range []uint64{0, 0x7F, 0x80, 0x3FFF, 0x4000} {
		buf := AppendVint(nil, v)
		require.Zero(t, buf[len(buf)-1]&0x80, "last byte must clear the continuation bit")
		if len(buf) > 1 {
			require.NotZero(t, buf[len(buf)-1], "minimal encoding has no zero tail byte")
		}
	}
}

func TestVintTruncated(t *testing.T) {
	_, _, err := ReadVint([]byte{0x80, 0x80})
	require.Error(t, err)
	_, _, err = ReadVint(nil)
	require.Error(t, err)
}

func TestVintTooLong(t *testing.T) {
	buf := make([]byte, 11)
	for i := range buf {
		buf[i] = 0x80
	}
	_, _, err := ReadVint(buf)
	require.Error(t, err)
}
