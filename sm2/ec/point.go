package ec

import (
	"errors"
	"math/big"
)

// PointSize is the length of an uncompressed affine point without a format
// tag: 32 bytes of x followed by 32 bytes of y.
const PointSize = 64

// CoordinateSize is the fixed big-endian width of one coordinate.
const CoordinateSize = 32

var ErrPointLength = errors.New("ec: encoded point must be 64 bytes")

// Point is an affine point. The zero value is the point at infinity.
type Point struct {
	X, Y *big.Int
}

// Infinity returns the identity element.
func Infinity() Point { return Point{} }

// NewPoint copies x and y into a new Point.
func NewPoint(x, y *big.Int) Point {
	return Point{X: new(big.Int).Set(x), Y: new(big.Int).Set(y)}
}

func (p Point) IsInfinity() bool { return p.X == nil || p.Y == nil }

// Equal reports whether p and q are the same point.
func (p Point) Equal(q Point) bool {
	if p.IsInfinity() || q.IsInfinity() {
		return p.IsInfinity() && q.IsInfinity()
	}
	return p.X.Cmp(q.X) == 0 && p.Y.Cmp(q.Y) == 0
}

// Clone returns a deep copy.
func (p Point) Clone() Point {
	if p.IsInfinity() {
		return Infinity()
	}
	return NewPoint(p.X, p.Y)
}

// Bytes encodes x‖y, each left-padded to 32 bytes. The point at infinity and
// coordinates wider than 256 bits encode as nil.
func (p Point) Bytes() []byte {
	if p.IsInfinity() || p.X.Sign() < 0 || p.Y.Sign() < 0 ||
		p.X.BitLen() > 8*CoordinateSize || p.Y.BitLen() > 8*CoordinateSize {
		return nil
	}
	out := make([]byte, PointSize)
	p.X.FillBytes(out[:CoordinateSize])
	p.Y.FillBytes(out[CoordinateSize:])
	return out
}

// ParsePoint decodes x‖y. It does not check curve membership.
func ParsePoint(b []byte) (Point, error) {
	if len(b) != PointSize {
		return Infinity(), ErrPointLength
	}
	return Point{
		X: new(big.Int).SetBytes(b[:CoordinateSize]),
		Y: new(big.Int).SetBytes(b[CoordinateSize:]),
	}, nil
}

// Zeroize overwrites the coordinate words in place.
func (p *Point) Zeroize() {
	wipe(p.X)
	wipe(p.Y)
	p.X, p.Y = nil, nil
}

func wipe(x *big.Int) {
	if x == nil {
		return
	}
	words := x.Bits()
	for i := range words {
		words[i] = 0
	}
	x.SetInt64(0)
}

// Wipe overwrites the words of a secret scalar and sets it to zero.
func Wipe(x *big.Int) { wipe(x) }
