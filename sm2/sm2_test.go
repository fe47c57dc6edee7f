package sm2

import (
	"bytes"
	"encoding/hex"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TheusHen/SM2/sm2/ec"
)

// Known-answer material from the standard's worked examples on the
// recommended curve.
const (
	katD    = "3945208F7B2144B13F36E38AC6D39F95889393692860B51A42FB81EF4DF7C5B8"
	katPx   = "09F9DF311E5421A150DD7D161E4BC5C672179FAD1833FC076BB08FF356F35020"
	katPy   = "CCEA490CE26775A52DC6EA718CC1AA600AED05FBF35E084A6632F6072DA9AD13"
	katK    = "59276E27D506861A16680F3AD9C02DCCEF3CC1FA3CDBE4CE6D54B80DEAC1BC21"
	katZA   = "b2e14c5c79c6df5b85f4fe7ed8db7a262b9da7e07ccb0ea9f4747b8ccda8a4f3"
	katR    = "F5A03B0648D2C4630EEAC513E1BB81A15944DA3827D5B74143AC7EACEEE720B3"
	katS    = "B1B6AA29DF212FD8763182BC0D421CA1BB9038FD1F7F42D4840B69C485BBC1AA"
	katMsg  = "message digest"
	katPT   = "encryption standard"
	katUID  = "1234567812345678"
	katC1C3 = "04ebfc718e8d1798620432268e77feb6415e2ede0e073c0f4f640ecd2e149a73" +
		"e858f9d81e5430a57b36daab8f950a3c64e6ee6a63094d99283aff767e124df0" +
		"59983c18f809e262923c53aec295d30383b54e39d609d160afcb1908d0bd8766" +
		"21886ca989ca9c7d58087307ca93092d651efa"
)

func mustHex(t testing.TB, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 16)
	require.True(t, ok, s)
	return v
}

func mustBytes(t testing.TB, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

// domains returns one Domain per arithmetic backend.
func domains(t testing.TB) map[string]*Domain {
	t.Helper()
	out := make(map[string]*Domain)
	for _, name := range []string{ec.BackendGeneric, ec.BackendAccelerated} {
		d, err := NewDomain(WithBackend(name))
		require.NoError(t, err)
		out[name] = d
	}
	return out
}

func katKey(t testing.TB, d *Domain) *PrivateKey {
	t.Helper()
	key, err := GenerateKeyPair(d, mustHex(t, katD))
	require.NoError(t, err)
	return key
}

// fixedReader yields the same bytes on every Read.
type fixedReader struct{ b []byte }

func (r fixedReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r.b[i%len(r.b)]
	}
	return len(p), nil
}

// scriptedReader serves consecutive chunks, one per Read call.
type scriptedReader struct{ chunks [][]byte }

func (r *scriptedReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, errors.New("scripted reader exhausted")
	}
	n := copy(p, r.chunks[0])
	r.chunks = r.chunks[1:]
	return n, nil
}

func repeat(b byte, n int) []byte { return bytes.Repeat([]byte{b}, n) }

func hexString(b []byte) string { return hex.EncodeToString(b) }
