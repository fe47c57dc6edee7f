package ec

import "math/big"

// Generic implements the group law for any short-Weierstrass curve using
// math/big and Jacobian coordinates. It is not constant time.
type Generic struct {
	c *Curve
}

func NewGeneric(c *Curve) *Generic { return &Generic{c: c} }

func (g *Generic) Name() string  { return BackendGeneric }
func (g *Generic) Curve() *Curve { return g.c }

type jacobian struct {
	x, y, z *big.Int
	inf     bool
}

func (g *Generic) toJacobian(p Point) jacobian {
	if p.IsInfinity() {
		return jacobian{inf: true}
	}
	return jacobian{
		x: new(big.Int).Mod(p.X, g.c.P),
		y: new(big.Int).Mod(p.Y, g.c.P),
		z: big.NewInt(1),
	}
}

func (g *Generic) toAffine(j jacobian) Point {
	if j.inf || j.z.Sign() == 0 {
		return Infinity()
	}
	P := g.c.P
	zinv := new(big.Int).ModInverse(j.z, P)
	zinv2 := new(big.Int).Mul(zinv, zinv)
	zinv2.Mod(zinv2, P)
	x := new(big.Int).Mul(j.x, zinv2)
	x.Mod(x, P)
	zinv2.Mul(zinv2, zinv)
	y := new(big.Int).Mul(j.y, zinv2)
	y.Mod(y, P)
	return Point{X: x, Y: y}
}

func (g *Generic) double(j jacobian) jacobian {
	if j.inf || j.y.Sign() == 0 {
		return jacobian{inf: true}
	}
	P := g.c.P
	mod := func(v *big.Int) *big.Int { return v.Mod(v, P) }

	xx := mod(new(big.Int).Mul(j.x, j.x))
	yy := mod(new(big.Int).Mul(j.y, j.y))
	yyyy := mod(new(big.Int).Mul(yy, yy))
	zz := mod(new(big.Int).Mul(j.z, j.z))

	// S = 4·X·YY
	s := new(big.Int).Mul(j.x, yy)
	s.Lsh(s, 2)
	mod(s)
	// M = 3·XX + a·ZZ²
	m := new(big.Int).Mul(zz, zz)
	m.Mul(m, g.c.A)
	m.Add(m, new(big.Int).Mul(xx, big.NewInt(3)))
	mod(m)

	x3 := new(big.Int).Mul(m, m)
	x3.Sub(x3, new(big.Int).Lsh(s, 1))
	mod(x3)

	y3 := new(big.Int).Sub(s, x3)
	y3.Mul(y3, m)
	y3.Sub(y3, new(big.Int).Lsh(yyyy, 3))
	mod(y3)

	z3 := new(big.Int).Mul(j.y, j.z)
	z3.Lsh(z3, 1)
	mod(z3)

	return jacobian{x: x3, y: y3, z: z3}
}

func (g *Generic) add(a, b jacobian) jacobian {
	if a.inf {
		return b
	}
	if b.inf {
		return a
	}
	P := g.c.P
	mod := func(v *big.Int) *big.Int { return v.Mod(v, P) }

	z1z1 := mod(new(big.Int).Mul(a.z, a.z))
	z2z2 := mod(new(big.Int).Mul(b.z, b.z))
	u1 := mod(new(big.Int).Mul(a.x, z2z2))
	u2 := mod(new(big.Int).Mul(b.x, z1z1))
	s1 := new(big.Int).Mul(a.y, b.z)
	s1 = mod(s1.Mul(s1, z2z2))
	s2 := new(big.Int).Mul(b.y, a.z)
	s2 = mod(s2.Mul(s2, z1z1))

	if u1.Cmp(u2) == 0 {
		if s1.Cmp(s2) == 0 {
			return g.double(a)
		}
		return jacobian{inf: true}
	}

	h := mod(new(big.Int).Sub(u2, u1))
	r := mod(new(big.Int).Sub(s2, s1))
	hh := mod(new(big.Int).Mul(h, h))
	hhh := mod(new(big.Int).Mul(h, hh))
	v := mod(new(big.Int).Mul(u1, hh))

	x3 := new(big.Int).Mul(r, r)
	x3.Sub(x3, hhh)
	x3.Sub(x3, new(big.Int).Lsh(v, 1))
	mod(x3)

	y3 := new(big.Int).Sub(v, x3)
	y3.Mul(y3, r)
	y3.Sub(y3, new(big.Int).Mul(s1, hhh))
	mod(y3)

	z3 := new(big.Int).Mul(a.z, b.z)
	z3.Mul(z3, h)
	mod(z3)

	return jacobian{x: x3, y: y3, z: z3}
}

func (g *Generic) Add(p, q Point) Point {
	return g.toAffine(g.add(g.toJacobian(p), g.toJacobian(q)))
}

func (g *Generic) Double(p Point) Point {
	return g.toAffine(g.double(g.toJacobian(p)))
}

// ScalarMult computes [k]p by left-to-right double-and-add. k is used as
// given, without reduction, so [n]G can be evaluated for order checks.
func (g *Generic) ScalarMult(p Point, k *big.Int) Point {
	if p.IsInfinity() || k.Sign() <= 0 {
		return Infinity()
	}
	base := g.toJacobian(p)
	acc := jacobian{inf: true}
	for i := k.BitLen() - 1; i >= 0; i-- {
		acc = g.double(acc)
		if k.Bit(i) == 1 {
			acc = g.add(acc, base)
		}
	}
	return g.toAffine(acc)
}

func (g *Generic) ScalarBaseMult(k *big.Int) Point {
	return g.ScalarMult(g.c.Generator(), k)
}
