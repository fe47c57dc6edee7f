package sm2

import (
	"crypto/rand"
	"io"
	"math/big"

	"github.com/pkg/errors"
)

// maxDraws bounds rejection sampling so a broken source fails instead of
// spinning.
const maxDraws = 64

// randomScalar draws a uniform integer in [1, upper] by rejection sampling.
func randomScalar(r io.Reader, upper *big.Int) (*big.Int, error) {
	if r == nil {
		r = rand.Reader
	}
	bits := upper.BitLen()
	buf := make([]byte, (bits+7)/8)
	defer wipeBytes(buf)
	excess := uint(len(buf)*8 - bits)
	for i := 0; i < maxDraws; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, errors.Wrap(err, "sm2: reading randomness")
		}
		buf[0] &= byte(0xff >> excess)
		k := new(big.Int).SetBytes(buf)
		if k.Sign() > 0 && k.Cmp(upper) <= 0 {
			return k, nil
		}
	}
	return nil, errors.New("sm2: randomness source keeps producing out-of-range values")
}

func wipeBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// RandomScalar draws a nonce uniformly from [1, n-1]. A nil r uses
// crypto/rand.
func (d *Domain) RandomScalar(r io.Reader) (*big.Int, error) {
	return randomScalar(r, new(big.Int).Sub(d.curve.N, big.NewInt(1)))
}
