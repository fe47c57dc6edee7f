package sm2

import (
	"crypto"
	"io"
	"math/big"

	"github.com/TheusHen/SM2/sm2/ec"
)

const (
	PrivateKeySize = ec.CoordinateSize
	PublicKeySize  = ec.PointSize
)

// PublicKey is a validated curve point bound to its Domain.
type PublicKey struct {
	dom *Domain
	pt  ec.Point
}

// NewPublicKey validates pt against dom.
func NewPublicKey(dom *Domain, pt ec.Point) (*PublicKey, error) {
	if err := dom.ValidatePublicKey(pt); err != nil {
		return nil, err
	}
	return &PublicKey{dom: dom, pt: pt.Clone()}, nil
}

// ParsePublicKey decodes x‖y, optionally preceded by the 0x04 uncompressed
// tag, and validates the point.
func ParsePublicKey(dom *Domain, b []byte) (*PublicKey, error) {
	if len(b) == PublicKeySize+1 && b[0] == 0x04 {
		b = b[1:]
	}
	pt, err := ec.ParsePoint(b)
	if err != nil {
		return nil, NewError(ErrInvalidLength, "sm2: public key must be 64 bytes")
	}
	return NewPublicKey(dom, pt)
}

func (pub *PublicKey) Domain() *Domain { return pub.dom }

// Point returns a copy of the underlying point.
func (pub *PublicKey) Point() ec.Point { return pub.pt.Clone() }

func (pub *PublicKey) X() *big.Int { return new(big.Int).Set(pub.pt.X) }
func (pub *PublicKey) Y() *big.Int { return new(big.Int).Set(pub.pt.Y) }

// Bytes returns x‖y without a format tag.
func (pub *PublicKey) Bytes() []byte { return pub.pt.Bytes() }

// Equal reports whether x is a *PublicKey for the same point.
func (pub *PublicKey) Equal(x crypto.PublicKey) bool {
	other, ok := x.(*PublicKey)
	if !ok {
		return false
	}
	return pub.pt.Equal(other.pt)
}

// PrivateKey holds the secret scalar d and its public point.
type PrivateKey struct {
	PublicKey
	d *big.Int
}

// GenerateKeyPair derives P = [d]G for a caller-chosen d in [1, n-2] and
// validates P.
func GenerateKeyPair(dom *Domain, d *big.Int) (*PrivateKey, error) {
	upper := new(big.Int).Sub(dom.curve.N, big.NewInt(2))
	if d == nil || d.Sign() <= 0 || d.Cmp(upper) > 0 {
		return nil, NewError(ErrInvalidPrivateKey, "sm2: private key must be in [1, n-2]")
	}
	pt := dom.arith.ScalarBaseMult(d)
	if err := dom.ValidatePublicKey(pt); err != nil {
		return nil, err
	}
	return &PrivateKey{
		PublicKey: PublicKey{dom: dom, pt: pt},
		d:         new(big.Int).Set(d),
	}, nil
}

// GenerateKey draws d uniformly from [1, n-2]. A nil rand uses crypto/rand.
func GenerateKey(dom *Domain, rand io.Reader) (*PrivateKey, error) {
	upper := new(big.Int).Sub(dom.curve.N, big.NewInt(2))
	d, err := randomScalar(rand, upper)
	if err != nil {
		return nil, err
	}
	defer ec.Wipe(d)
	return GenerateKeyPair(dom, d)
}

// NewPrivateKey imports a 32-byte big-endian scalar.
func NewPrivateKey(dom *Domain, b []byte) (*PrivateKey, error) {
	if len(b) != PrivateKeySize {
		return nil, NewError(ErrInvalidLength, "sm2: private key must be 32 bytes")
	}
	d := new(big.Int).SetBytes(b)
	defer ec.Wipe(d)
	return GenerateKeyPair(dom, d)
}

// D returns a copy of the secret scalar.
func (priv *PrivateKey) D() *big.Int { return new(big.Int).Set(priv.d) }

// Bytes returns the 32-byte big-endian scalar.
func (priv *PrivateKey) Bytes() []byte { return field(priv.d) }

// Public implements crypto.Signer.
func (priv *PrivateKey) Public() crypto.PublicKey { return &priv.PublicKey }

// Destroy overwrites the secret scalar. The key is unusable afterwards.
func (priv *PrivateKey) Destroy() {
	ec.Wipe(priv.d)
}

func (priv *PrivateKey) scalar() (*big.Int, error) {
	if priv.d == nil || priv.d.Sign() == 0 {
		return nil, NewError(ErrInvalidPrivateKey, "sm2: private key has been destroyed")
	}
	return priv.d, nil
}
