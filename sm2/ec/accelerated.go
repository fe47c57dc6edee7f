package ec

import (
	"crypto/elliptic"
	"errors"
	"math/big"

	"github.com/emmansun/gmsm/sm2/sm2ec"
)

var ErrUnsupportedCurve = errors.New("ec: accelerated backend only supports the SM2 recommended curve")

// Accelerated delegates to the optimised SM2 field implementation from gmsm.
// Operands the optimised curve cannot take (off-curve points, oversized or
// negative scalars) are handed to a Generic fallback instead of panicking.
type Accelerated struct {
	c        *Curve
	curve    elliptic.Curve
	fallback *Generic
}

// NewAccelerated binds the gmsm SM2 curve. c must carry the recommended
// SM2 parameters.
func NewAccelerated(c *Curve) (*Accelerated, error) {
	curve := sm2ec.P256()
	params := curve.Params()
	aWant := new(big.Int).Sub(params.P, big.NewInt(3))
	if c.P.Cmp(params.P) != 0 || c.N.Cmp(params.N) != 0 || c.B.Cmp(params.B) != 0 ||
		c.A.Cmp(aWant) != 0 || c.Gx.Cmp(params.Gx) != 0 || c.Gy.Cmp(params.Gy) != 0 {
		return nil, ErrUnsupportedCurve
	}
	return &Accelerated{c: c, curve: curve, fallback: NewGeneric(c)}, nil
}

func (a *Accelerated) Name() string  { return BackendAccelerated }
func (a *Accelerated) Curve() *Curve { return a.c }

func (a *Accelerated) usable(p Point) bool {
	return !p.IsInfinity() && a.c.IsOnCurve(p)
}

func (a *Accelerated) scalarBytes(k *big.Int) ([]byte, bool) {
	if k.Sign() < 0 || k.BitLen() > 8*CoordinateSize {
		return nil, false
	}
	return k.FillBytes(make([]byte, CoordinateSize)), true
}

func fromAffine(x, y *big.Int) Point {
	if x.Sign() == 0 && y.Sign() == 0 {
		return Infinity()
	}
	return Point{X: x, Y: y}
}

func (a *Accelerated) Add(p, q Point) Point {
	if p.IsInfinity() {
		return q.Clone()
	}
	if q.IsInfinity() {
		return p.Clone()
	}
	if !a.usable(p) || !a.usable(q) {
		return a.fallback.Add(p, q)
	}
	return fromAffine(a.curve.Add(p.X, p.Y, q.X, q.Y))
}

func (a *Accelerated) Double(p Point) Point {
	if p.IsInfinity() {
		return Infinity()
	}
	if !a.usable(p) {
		return a.fallback.Double(p)
	}
	return fromAffine(a.curve.Double(p.X, p.Y))
}

func (a *Accelerated) ScalarMult(p Point, k *big.Int) Point {
	if p.IsInfinity() || k.Sign() == 0 {
		return Infinity()
	}
	kb, ok := a.scalarBytes(k)
	if !ok || !a.usable(p) {
		return a.fallback.ScalarMult(p, k)
	}
	return fromAffine(a.curve.ScalarMult(p.X, p.Y, kb))
}

func (a *Accelerated) ScalarBaseMult(k *big.Int) Point {
	if k.Sign() == 0 {
		return Infinity()
	}
	kb, ok := a.scalarBytes(k)
	if !ok {
		return a.fallback.ScalarBaseMult(k)
	}
	return fromAffine(a.curve.ScalarBaseMult(kb))
}
