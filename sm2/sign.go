package sm2

import (
	"crypto"
	"errors"
	"io"
	"math/big"

	"github.com/TheusHen/SM2/sm2/ec"
)

const SignatureSize = 2 * ec.CoordinateSize

// Signature is the pair (r, s).
type Signature struct {
	R, S *big.Int
}

// Bytes encodes r ‖ s as two 32-byte big-endian integers.
func (sig *Signature) Bytes() []byte {
	out := make([]byte, SignatureSize)
	sig.R.FillBytes(out[:ec.CoordinateSize])
	sig.S.FillBytes(out[ec.CoordinateSize:])
	return out
}

// ParseSignature decodes r ‖ s. Range checks are left to Verify.
func ParseSignature(b []byte) (*Signature, error) {
	if len(b) != SignatureSize {
		return nil, NewError(ErrInvalidLength, "sm2: signature must be 64 bytes")
	}
	return &Signature{
		R: new(big.Int).SetBytes(b[:ec.CoordinateSize]),
		S: new(big.Int).SetBytes(b[ec.CoordinateSize:]),
	}, nil
}

// digest computes e = Hash(ZA ‖ M) as an integer.
func (d *Domain) digest(za, msg []byte) *big.Int {
	return new(big.Int).SetBytes(d.Hash(za, msg))
}

// SignWithNonce signs msg under the signer's Z-value za with the caller's k
// in [1, n-1]. ErrGenerateR and ErrGenerateS mean k was degenerate and a
// fresh one must be drawn.
func SignWithNonce(priv *PrivateKey, za, msg []byte, k *big.Int) (*Signature, error) {
	d := priv.dom
	n := d.curve.N
	if k == nil || k.Sign() <= 0 || k.Cmp(n) >= 0 {
		return nil, NewError(ErrInvalidNonce, "sm2: k must be in [1, n-1]")
	}
	sk, err := priv.scalar()
	if err != nil {
		return nil, err
	}

	e := d.digest(za, msg)
	kg := d.arith.ScalarBaseMult(k)
	defer kg.Zeroize()

	r := new(big.Int).Add(e, kg.X)
	r.Mod(r, n)
	if r.Sign() == 0 || new(big.Int).Add(r, k).Cmp(n) == 0 {
		return nil, NewError(ErrGenerateR, "sm2: nonce yields r = 0 or r + k = n")
	}

	// s = (1 + d)⁻¹ · (k − r·d) mod n
	inv := new(big.Int).Add(sk, big.NewInt(1))
	inv.ModInverse(inv, n)
	s := new(big.Int).Mul(r, sk)
	s.Sub(k, s)
	s.Mul(s, inv)
	s.Mod(s, n)
	ec.Wipe(inv)
	if s.Sign() == 0 {
		return nil, NewError(ErrGenerateS, "sm2: nonce yields s = 0")
	}
	return &Signature{R: r, S: s}, nil
}

// Sign draws k from rand (crypto/rand when nil) and retries degenerate
// nonces up to the domain's attempt limit.
func Sign(rand io.Reader, priv *PrivateKey, za, msg []byte) (*Signature, error) {
	d := priv.dom
	var err error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		var k *big.Int
		k, err = d.RandomScalar(rand)
		if err != nil {
			return nil, err
		}
		var sig *Signature
		sig, err = SignWithNonce(priv, za, msg, k)
		ec.Wipe(k)
		if !errors.Is(err, ErrGenerateR) && !errors.Is(err, ErrGenerateS) {
			return sig, err
		}
		d.log.Debug().Int("attempt", attempt).Err(err).Msg("degenerate signing nonce, retrying")
	}
	return nil, err
}

// Verify checks sig over msg for the signer's public key and Z-value za.
func Verify(pub *PublicKey, za, msg []byte, sig *Signature) error {
	d := pub.dom
	n := d.curve.N
	if sig == nil || sig.R == nil || sig.S == nil {
		return NewError(ErrInvalidLength, "sm2: missing signature")
	}
	if sig.R.Sign() <= 0 || sig.R.Cmp(n) >= 0 {
		return NewError(ErrOutOfRangeR, "sm2: r is not in [1, n-1]")
	}
	if sig.S.Sign() <= 0 || sig.S.Cmp(n) >= 0 {
		return NewError(ErrOutOfRangeS, "sm2: s is not in [1, n-1]")
	}

	e := d.digest(za, msg)
	t := new(big.Int).Add(sig.R, sig.S)
	t.Mod(t, n)
	if t.Sign() == 0 {
		return NewError(ErrGenerateT, "sm2: (r + s) mod n = 0")
	}

	pt := d.arith.Add(d.arith.ScalarBaseMult(sig.S), d.arith.ScalarMult(pub.pt, t))
	if pt.IsInfinity() {
		return NewError(ErrVerificationFailed, "sm2: signature verification failed")
	}
	r := new(big.Int).Add(e, pt.X)
	r.Mod(r, n)
	if r.Cmp(sig.R) != 0 {
		return NewError(ErrVerificationFailed, "sm2: signature verification failed")
	}
	return nil
}

// SignerOpts carries the signer's distinguishing identifier for the
// crypto.Signer interface. A nil UID means DefaultUID.
type SignerOpts struct {
	UID []byte
}

// HashFunc returns zero: the message is hashed together with Z internally.
func (o *SignerOpts) HashFunc() crypto.Hash { return 0 }

// Sign implements crypto.Signer. msg is the full message, not a digest, and
// the result is the 64-byte r ‖ s encoding.
func (priv *PrivateKey) Sign(rand io.Reader, msg []byte, opts crypto.SignerOpts) ([]byte, error) {
	uid := []byte(DefaultUID)
	if o, ok := opts.(*SignerOpts); ok && o != nil && o.UID != nil {
		uid = o.UID
	}
	za, err := ComputeZ(&priv.PublicKey, uid)
	if err != nil {
		return nil, err
	}
	sig, err := Sign(rand, priv, za, msg)
	if err != nil {
		return nil, err
	}
	return sig.Bytes(), nil
}
