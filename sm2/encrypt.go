package sm2

import (
	"crypto/subtle"
	"errors"
	"io"
	"math/big"

	"github.com/TheusHen/SM2/sm2/ec"
	"github.com/TheusHen/SM2/sm2/kdf"
)

// EncryptWithNonce encrypts msg to pub using the caller-supplied k in
// [1, n-1] and returns C1 ‖ C3 ‖ C2. It fails with ErrKDFZero when k yields
// an all-zero keystream; the caller must then retry with a fresh k.
func EncryptWithNonce(pub *PublicKey, k *big.Int, msg []byte) ([]byte, error) {
	d := pub.dom
	if k == nil || k.Sign() <= 0 || k.Cmp(d.curve.N) >= 0 {
		return nil, NewError(ErrInvalidNonce, "sm2: k must be in [1, n-1]")
	}
	if len(msg) == 0 {
		return nil, NewError(ErrInvalidLength, "sm2: plaintext is empty")
	}

	c1 := d.arith.ScalarBaseMult(k)
	if d.arith.ScalarMult(pub.pt, d.curve.H).IsInfinity() {
		return nil, NewError(ErrInfinityPoint, "sm2: [h]P is the point at infinity")
	}
	kp := d.arith.ScalarMult(pub.pt, k)
	if kp.IsInfinity() {
		return nil, NewError(ErrInfinityPoint, "sm2: [k]P is the point at infinity")
	}
	defer kp.Zeroize()
	xy := kp.Bytes()
	defer wipeBytes(xy)
	x2, y2 := xy[:ec.CoordinateSize], xy[ec.CoordinateSize:]

	t, err := kdf.DeriveWith(d.newHash, xy, len(msg))
	if err != nil {
		return nil, NewError(ErrInvalidLength, "sm2: "+err.Error())
	}
	defer wipeBytes(t)
	if kdf.IsZero(t) {
		return nil, NewError(ErrKDFZero, "sm2: key derivation produced an all-zero keystream")
	}

	c2 := make([]byte, len(msg))
	subtle.XORBytes(c2, msg, t)
	ct := Ciphertext{C1: c1, C3: d.Hash(x2, msg, y2), C2: c2}
	return ct.Bytes(), nil
}

// Encrypt draws k from rand (crypto/rand when nil) and retries after a
// degenerate keystream, up to the domain's attempt limit.
func Encrypt(rand io.Reader, pub *PublicKey, msg []byte) ([]byte, error) {
	d := pub.dom
	var err error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		var k *big.Int
		k, err = d.RandomScalar(rand)
		if err != nil {
			return nil, err
		}
		var out []byte
		out, err = EncryptWithNonce(pub, k, msg)
		ec.Wipe(k)
		if !errors.Is(err, ErrKDFZero) {
			return out, err
		}
		d.log.Warn().Int("attempt", attempt).Msg("encryption nonce produced zero keystream, retrying")
	}
	return nil, err
}

// Decrypt recovers the plaintext from C1 ‖ C3 ‖ C2. On ErrIntegrity no
// plaintext is returned.
func Decrypt(priv *PrivateKey, b []byte) ([]byte, error) {
	ct, err := ParseCiphertext(priv.dom, b)
	if err != nil {
		return nil, err
	}
	return DecryptCiphertext(priv, ct)
}

// DecryptCiphertext is Decrypt over an already parsed ciphertext.
func DecryptCiphertext(priv *PrivateKey, ct *Ciphertext) ([]byte, error) {
	d := priv.dom
	if len(ct.C2) == 0 || len(ct.C3) != d.hashSize {
		return nil, NewError(ErrInvalidLength, "sm2: malformed ciphertext")
	}
	sk, err := priv.scalar()
	if err != nil {
		return nil, err
	}
	if !d.curve.IsOnCurve(ct.C1) {
		return nil, NewError(ErrNotValidPoint, "sm2: C1 is not on the curve")
	}
	if d.arith.ScalarMult(ct.C1, d.curve.H).IsInfinity() {
		return nil, NewError(ErrInfinityPoint, "sm2: [h]C1 is the point at infinity")
	}

	dc := d.arith.ScalarMult(ct.C1, sk)
	if dc.IsInfinity() {
		return nil, NewError(ErrInfinityPoint, "sm2: [d]C1 is the point at infinity")
	}
	defer dc.Zeroize()
	xy := dc.Bytes()
	defer wipeBytes(xy)
	x2, y2 := xy[:ec.CoordinateSize], xy[ec.CoordinateSize:]

	t, err := kdf.DeriveWith(d.newHash, xy, len(ct.C2))
	if err != nil {
		return nil, NewError(ErrInvalidLength, "sm2: "+err.Error())
	}
	defer wipeBytes(t)
	if kdf.IsZero(t) {
		return nil, NewError(ErrKDFZero, "sm2: key derivation produced an all-zero keystream")
	}

	msg := make([]byte, len(ct.C2))
	subtle.XORBytes(msg, ct.C2, t)
	u := d.Hash(x2, msg, y2)
	if subtle.ConstantTimeCompare(u, ct.C3) != 1 {
		wipeBytes(msg)
		return nil, NewError(ErrIntegrity, "sm2: ciphertext check value mismatch")
	}
	return msg, nil
}
