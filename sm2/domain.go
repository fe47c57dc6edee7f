package sm2

import (
	"hash"
	"math/big"
	"sync"

	"github.com/emmansun/gmsm/sm3"
	"github.com/rs/zerolog"

	"github.com/TheusHen/SM2/sm2/ec"
	"github.com/TheusHen/SM2/sm2/logging"
)

// Recommended 256-bit curve parameters.
const (
	curveP  = "FFFFFFFEFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF00000000FFFFFFFFFFFFFFFF"
	curveA  = "FFFFFFFEFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF00000000FFFFFFFFFFFFFFFC"
	curveB  = "28E9FA9E9D9F5E344D5A9E4BCF6509A7F39789F515AB8F92DDBCBD414D940E93"
	curveN  = "FFFFFFFEFFFFFFFFFFFFFFFFFFFFFFFF7203DF6B21C6052B53BBF40939D54123"
	curveGx = "32C4AE2C1F1981195F9904466A39C9948FE30BBFF2660BE1715A4589334C74C7"
	curveGy = "BC3736A2F4F6779C59BDCEE36B692153D0A9877CC62A474002DF32E52139F0A0"
)

// DefaultMaxAttempts bounds how often the randomised Encrypt and Sign redraw
// k after a degenerate nonce.
const DefaultMaxAttempts = 16

func hexParam(s string) (*big.Int, bool) {
	return new(big.Int).SetString(s, 16)
}

func recommendedCurve() (*ec.Curve, error) {
	c := &ec.Curve{Name: "SM2-P-256", H: big.NewInt(1), BitSize: 256}
	for _, f := range []struct {
		dst **big.Int
		hex string
	}{
		{&c.P, curveP}, {&c.A, curveA}, {&c.B, curveB},
		{&c.N, curveN}, {&c.Gx, curveGx}, {&c.Gy, curveGy},
	} {
		v, ok := hexParam(f.hex)
		if !ok {
			return nil, NewError(ErrCurveInit, "sm2: malformed curve constant")
		}
		*f.dst = v
	}
	return c, nil
}

// Domain is the immutable set of curve parameters, group arithmetic and hash
// every operation in this module runs against. It is safe for concurrent use.
type Domain struct {
	curve       *ec.Curve
	arith       ec.Arithmetic
	newHash     func() hash.Hash
	hashSize    int
	w           uint
	maxAttempts int
	zParams     []byte // a‖b‖Gx‖Gy
	log         zerolog.Logger
}

type domainOptions struct {
	backend     string
	arith       func(*ec.Curve) (ec.Arithmetic, error)
	newHash     func() hash.Hash
	maxAttempts int
	log         zerolog.Logger
}

// Option configures NewDomain.
type Option func(*domainOptions)

// WithBackend selects an ec backend by name. The default is
// ec.BackendAccelerated; ec.BackendGeneric is a variable-time math/big
// implementation kept for cross-checking.
func WithBackend(name string) Option {
	return func(o *domainOptions) { o.backend = name }
}

// WithArithmetic installs a custom group-law implementation constructor.
func WithArithmetic(fn func(*ec.Curve) (ec.Arithmetic, error)) Option {
	return func(o *domainOptions) { o.arith = fn }
}

// WithHash replaces SM3 as the hash behind Z-values, KDF, C3 and e.
func WithHash(newHash func() hash.Hash) Option {
	return func(o *domainOptions) { o.newHash = newHash }
}

func WithMaxAttempts(n int) Option {
	return func(o *domainOptions) { o.maxAttempts = n }
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *domainOptions) { o.log = l }
}

// NewDomain loads the recommended curve and checks that G lies on it with
// order n.
func NewDomain(opts ...Option) (*Domain, error) {
	o := domainOptions{
		backend:     ec.DefaultBackend,
		newHash:     sm3.New,
		maxAttempts: DefaultMaxAttempts,
		log:         logging.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxAttempts < 1 {
		o.maxAttempts = 1
	}

	c, err := recommendedCurve()
	if err != nil {
		return nil, err
	}

	var arith ec.Arithmetic
	if o.arith != nil {
		arith, err = o.arith(c)
	} else {
		arith, err = ec.New(o.backend, c)
	}
	if err != nil {
		return nil, Error{Err: ErrCurveInit, Description: "sm2: " + err.Error()}
	}

	g := c.Generator()
	if !c.IsOnCurve(g) {
		return nil, NewError(ErrCurveInit, "sm2: base point is not on the curve")
	}
	if !arith.ScalarBaseMult(c.N).IsInfinity() {
		return nil, NewError(ErrCurveInit, "sm2: [n]G is not the point at infinity")
	}

	zp := make([]byte, 0, 4*ec.CoordinateSize)
	for _, v := range []*big.Int{c.A, c.B, c.Gx, c.Gy} {
		zp = append(zp, v.FillBytes(make([]byte, ec.CoordinateSize))...)
	}

	d := &Domain{
		curve:       c,
		arith:       arith,
		newHash:     o.newHash,
		hashSize:    o.newHash().Size(),
		w:           uint((c.N.BitLen()+1)/2 - 1),
		maxAttempts: o.maxAttempts,
		zParams:     zp,
		log:         o.log,
	}
	d.log.Debug().Str("curve", c.Name).Str("backend", arith.Name()).Msg("domain initialised")
	return d, nil
}

var (
	initOnce      sync.Once
	defaultDomain *Domain
	initErr       error
)

// Initialize returns the process-wide default Domain, building it on first
// use. Later calls return the same value.
func Initialize() (*Domain, error) {
	initOnce.Do(func() {
		defaultDomain, initErr = NewDomain()
	})
	return defaultDomain, initErr
}

// MustInitialize is Initialize for package-level variables and tests.
func MustInitialize() *Domain {
	d, err := Initialize()
	if err != nil {
		panic(err)
	}
	return d
}

func (d *Domain) P() *big.Int  { return new(big.Int).Set(d.curve.P) }
func (d *Domain) A() *big.Int  { return new(big.Int).Set(d.curve.A) }
func (d *Domain) B() *big.Int  { return new(big.Int).Set(d.curve.B) }
func (d *Domain) N() *big.Int  { return new(big.Int).Set(d.curve.N) }
func (d *Domain) H() *big.Int  { return new(big.Int).Set(d.curve.H) }
func (d *Domain) G() ec.Point  { return d.curve.Generator() }
func (d *Domain) Name() string { return d.curve.Name }

// W is the truncation width used by key exchange, ⌈⌈log2 n⌉/2⌉ − 1.
func (d *Domain) W() uint { return d.w }

func (d *Domain) Arithmetic() ec.Arithmetic { return d.arith }
func (d *Domain) Logger() zerolog.Logger    { return d.log }
func (d *Domain) MaxAttempts() int          { return d.maxAttempts }

// NewHash returns a fresh instance of the domain hash.
func (d *Domain) NewHash() hash.Hash { return d.newHash() }

// HashFunc returns the constructor of the domain hash.
func (d *Domain) HashFunc() func() hash.Hash { return d.newHash }

// HashSize is the digest length in bytes.
func (d *Domain) HashSize() int { return d.hashSize }

// Hash digests the concatenation of parts.
func (d *Domain) Hash(parts ...[]byte) []byte {
	h := d.newHash()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// IsOnCurve reports whether pt has coordinates in [0, p) and satisfies the
// curve equation.
func (d *Domain) IsOnCurve(pt ec.Point) bool { return d.curve.IsOnCurve(pt) }

// ValidatePublicKey runs the four public-key checks in order: not infinity,
// coordinates are field elements, on the curve, order n.
func (d *Domain) ValidatePublicKey(pt ec.Point) error {
	if pt.IsInfinity() {
		return NewError(ErrInfinityPoint, "sm2: public key is the point at infinity")
	}
	p := d.curve.P
	if pt.X.Sign() < 0 || pt.X.Cmp(p) >= 0 || pt.Y.Sign() < 0 || pt.Y.Cmp(p) >= 0 {
		return NewError(ErrNotValidElement, "sm2: public key coordinate is not a field element")
	}
	if !d.curve.IsOnCurve(pt) {
		return NewError(ErrNotValidPoint, "sm2: public key is not on the curve")
	}
	if !d.arith.ScalarMult(pt, d.curve.N).IsInfinity() {
		return NewError(ErrOrder, "sm2: public key does not have order n")
	}
	return nil
}

// field encodes v as a fixed-width big-endian coordinate.
func field(v *big.Int) []byte {
	return v.FillBytes(make([]byte, ec.CoordinateSize))
}
