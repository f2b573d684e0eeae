package bits_test

import (
	"testing"

	"github.com/bramburn/t018beacon/pkg/beacon/bits"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGetRoundTrip(t *testing.T) {
	cases := []struct {
		start, n int
		value    uint64
	}{
		{0, 1, 1},
		{0, 8, 0xAB},
		{3, 5, 0x1F},
		{7, 1, 1},
		{8, 16, 0xBEEF},
		{0, 64, 0xFFFFFFFFFFFFFFFF},
		{100, 23, 0x7FFFFF},
		{202, 48, 0x492A4FC57A49 & ((1 << 48) - 1)},
	}
	for _, c := range cases {
		buf := make([]byte, 32)
		require.NoError(t, bits.Set(buf, c.start, c.n, c.value))
		got, err := bits.Get(buf, c.start, c.n)
		require.NoError(t, err)
		want := c.value
		if c.n < 64 {
			want &= (uint64(1) << uint(c.n)) - 1
		}
		assert.Equal(t, want, got, "start=%d n=%d", c.start, c.n)
	}
}

func TestSetLeavesOutsideBitsUnchanged(t *testing.T) {
	buf := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	require.NoError(t, bits.Set(buf, 8, 8, 0x00))
	assert.Equal(t, byte(0xFF), buf[0])
	assert.Equal(t, byte(0x00), buf[1])
	assert.Equal(t, byte(0xFF), buf[2])
}

func TestZeroWidthIsNoOp(t *testing.T) {
	buf := []byte{0xAA, 0xAA}
	require.NoError(t, bits.Set(buf, 3, 0, 0xFF))
	assert.Equal(t, []byte{0xAA, 0xAA}, buf)

	v, err := bits.Get(buf, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), v)
}

func TestRangeOverrunIsRejected(t *testing.T) {
	buf := make([]byte, 2) // 16 bits
	assert.ErrorIs(t, bits.Set(buf, 10, 8, 1), bits.ErrRange)

	_, err := bits.Get(buf, 10, 8)
	assert.ErrorIs(t, err, bits.ErrRange)
}

func TestCopyWideField(t *testing.T) {
	src := make([]byte, 26) // 202+ bits
	for i := range src {
		src[i] = byte(i*37 + 1)
	}
	dst := make([]byte, 32)
	require.NoError(t, bits.Copy(dst, 2, src, 0, 202))

	for i := 0; i < 202; i++ {
		want, err := bits.Get(src, i, 1)
		require.NoError(t, err)
		got, err := bits.Get(dst, 2+i, 1)
		require.NoError(t, err)
		assert.Equal(t, want, got, "bit %d", i)
	}
}

func TestMSBFirstPacking(t *testing.T) {
	buf := make([]byte, 1)
	require.NoError(t, bits.Set(buf, 0, 4, 0b1010))
	// MSB of the 4-bit field lands at bit 0 (the buffer's top bit).
	assert.Equal(t, byte(0b10100000), buf[0])
}
