package bch_test

import (
	"math/rand"
	"testing"

	"github.com/bramburn/t018beacon/pkg/beacon/bch"
	"github.com/bramburn/t018beacon/pkg/beacon/bits"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelfTestPasses(t *testing.T) {
	require.NoError(t, bch.SelfTest())
}

func TestParityIsWithin48Bits(t *testing.T) {
	info := make([]byte, 26)
	p := bch.ParityOf(info)
	assert.Less(t, p, uint64(1)<<48)
}

func TestParityOfZeroIsZero(t *testing.T) {
	info := make([]byte, 26)
	assert.Equal(t, uint64(0), bch.ParityOf(info))
}

// BCH linearity: parity_of(a XOR b) == parity_of(a) XOR parity_of(b), since
// polynomial division over GF(2) is linear.
func TestParityIsLinear(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 200; trial++ {
		a := randomInfoBits(rng)
		b := randomInfoBits(rng)
		ab := make([]byte, 26)
		for i := range ab {
			ab[i] = a[i] ^ b[i]
		}
		pa := bch.ParityOf(a)
		pb := bch.ParityOf(b)
		pab := bch.ParityOf(ab)
		assert.Equal(t, pa^pb, pab, "trial %d", trial)
	}
}

func TestParityIsDeterministic(t *testing.T) {
	info := randomInfoBits(rand.New(rand.NewSource(7)))
	first := bch.ParityOf(info)
	second := bch.ParityOf(info)
	assert.Equal(t, first, second)
}

func randomInfoBits(rng *rand.Rand) []byte {
	buf := make([]byte, 26)
	for i := 0; i < bch.InfoBits; i++ {
		if rng.Intn(2) == 1 {
			_ = bits.Set(buf, i, 1, 1)
		}
	}
	return buf
}
