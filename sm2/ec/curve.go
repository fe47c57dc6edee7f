// Package ec isolates the elliptic-curve group law behind a small interface so
// protocol code does not depend on a particular big-number implementation.
package ec

import (
	"fmt"
	"math/big"
)

// Curve holds short-Weierstrass parameters y² = x³ + ax + b over F_p.
type Curve struct {
	Name    string
	P       *big.Int
	A       *big.Int
	B       *big.Int
	N       *big.Int
	Gx, Gy  *big.Int
	H       *big.Int
	BitSize int
}

// Generator returns a copy of the base point.
func (c *Curve) Generator() Point { return NewPoint(c.Gx, c.Gy) }

// IsOnCurve reports whether p is an affine point with canonical coordinates
// in [0, p) that satisfies the curve equation.
func (c *Curve) IsOnCurve(pt Point) bool {
	if pt.IsInfinity() {
		return false
	}
	if pt.X.Sign() < 0 || pt.X.Cmp(c.P) >= 0 || pt.Y.Sign() < 0 || pt.Y.Cmp(c.P) >= 0 {
		return false
	}
	// y²
	lhs := new(big.Int).Mul(pt.Y, pt.Y)
	lhs.Mod(lhs, c.P)
	// x³ + ax + b
	rhs := new(big.Int).Mul(pt.X, pt.X)
	rhs.Mul(rhs, pt.X)
	ax := new(big.Int).Mul(c.A, pt.X)
	rhs.Add(rhs, ax)
	rhs.Add(rhs, c.B)
	rhs.Mod(rhs, c.P)
	return lhs.Cmp(rhs) == 0
}

// Arithmetic is the group law over a fixed curve. Implementations must accept
// the point at infinity as an operand and return it as a result.
type Arithmetic interface {
	Name() string
	Curve() *Curve
	Add(p, q Point) Point
	Double(p Point) Point
	ScalarMult(p Point, k *big.Int) Point
	ScalarBaseMult(k *big.Int) Point
}

const (
	BackendGeneric     = "generic"
	BackendAccelerated = "accelerated"

	// DefaultBackend is the constant-time gmsm backend. Generic is opt-in
	// and must not be used with secret scalars in production.
	DefaultBackend = BackendAccelerated
)

// New returns the named backend bound to c. An empty name selects
// DefaultBackend.
func New(backend string, c *Curve) (Arithmetic, error) {
	switch backend {
	case "", BackendAccelerated:
		return NewAccelerated(c)
	case BackendGeneric:
		return NewGeneric(c), nil
	default:
		return nil, fmt.Errorf("ec: unknown arithmetic backend %q", backend)
	}
}
