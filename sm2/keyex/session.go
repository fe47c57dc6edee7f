// Package keyex implements the three-pass SM2 key agreement between an
// initiator (A) and a responder (B), with optional key confirmation.
//
// The initiator calls Start and sends the EphemeralMessage; the responder
// answers it with Respond; the initiator completes with Finish and, when
// confirmation is on, sends the ConfirmMessage which the responder checks
// with Confirm. Both sides then read the agreed key with Key.
package keyex

import (
	"crypto/subtle"
	"io"
	"math/big"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/TheusHen/SM2/sm2"
	"github.com/TheusHen/SM2/sm2/ec"
	"github.com/TheusHen/SM2/sm2/identity"
	"github.com/TheusHen/SM2/sm2/kdf"
)

// DefaultKeyLength is the agreed key size in bytes.
const DefaultKeyLength = 16

const (
	tagPrefixResponder = 0x02 // SB, S1
	tagPrefixInitiator = 0x03 // SA, S2
)

type Role uint8

const (
	RoleInitiator Role = 1
	RoleResponder Role = 2
)

func (r Role) String() string {
	switch r {
	case RoleInitiator:
		return "initiator"
	case RoleResponder:
		return "responder"
	default:
		return "unknown"
	}
}

type State uint8

const (
	StateIdle State = iota
	StateEphemeralSent
	StateKeyDerived
	StateConfirmed
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEphemeralSent:
		return "ephemeral-sent"
	case StateKeyDerived:
		return "key-derived"
	case StateConfirmed:
		return "confirmed"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type config struct {
	keyLen  int
	confirm bool
	rand    io.Reader
	log     *zerolog.Logger
}

type Option func(*config)

// WithKeyLength sets the agreed key size in bytes.
func WithKeyLength(n int) Option {
	return func(c *config) { c.keyLen = n }
}

// WithConfirmation toggles the SB/SA confirmation tags. It is on by default.
// Both parties must agree on the setting.
func WithConfirmation(on bool) Option {
	return func(c *config) { c.confirm = on }
}

// WithRand sets the source for ephemeral scalars.
func WithRand(r io.Reader) Option {
	return func(c *config) { c.rand = r }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *config) { c.log = &l }
}

// Session is one party's view of a single key exchange. Sessions are
// single-use.
type Session struct {
	mu    sync.Mutex
	id    uuid.UUID
	role  Role
	state State
	dom   *sm2.Domain
	self  identity.KeyPair
	peer  identity.Peer
	cfg   config
	log   zerolog.Logger

	r      *big.Int // own ephemeral scalar
	own    ec.Point // own ephemeral point
	key    []byte
	expect []byte // responder: the SA it will accept
}

func newSession(role Role, self identity.KeyPair, peer identity.Peer, opts []Option) (*Session, error) {
	if self.PrivateKey == nil || peer.PublicKey == nil {
		return nil, sm2.NewError(sm2.ErrInvalidPrivateKey, "keyex: missing static key")
	}
	dom := self.PrivateKey.Domain()
	if peer.PublicKey.Domain() != dom {
		return nil, sm2.NewError(sm2.ErrCurveInit, "keyex: parties use different domains")
	}
	cfg := config{keyLen: DefaultKeyLength, confirm: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.keyLen <= 0 || uint64(cfg.keyLen) > kdf.MaxLength(dom.HashSize()) {
		return nil, sm2.NewError(sm2.ErrInvalidLength, "keyex: key length out of range")
	}
	base := dom.Logger()
	if cfg.log != nil {
		base = *cfg.log
	}
	id := uuid.New()
	return &Session{
		id:   id,
		role: role,
		dom:  dom,
		self: self,
		peer: peer,
		cfg:  cfg,
		log: base.With().
			Str("component", "keyex").
			Str("session", id.String()).
			Stringer("role", role).
			Logger(),
	}, nil
}

// NewInitiator prepares party A.
func NewInitiator(self identity.KeyPair, peer identity.Peer, opts ...Option) (*Session, error) {
	return newSession(RoleInitiator, self, peer, opts)
}

// NewResponder prepares party B.
func NewResponder(self identity.KeyPair, peer identity.Peer, opts ...Option) (*Session, error) {
	return newSession(RoleResponder, self, peer, opts)
}

func (s *Session) ID() uuid.UUID { return s.id }
func (s *Session) Role() Role    { return s.role }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Complete reports whether this side has finished: StateConfirmed for the
// initiator, StateDone for the responder.
func (s *Session) Complete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.role == RoleInitiator {
		return s.state == StateConfirmed
	}
	return s.state == StateDone
}

// Key returns a copy of the agreed key once it has been derived. A responder
// running with confirmation should wait for Confirm before using it.
func (s *Session) Key() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == nil {
		return nil, s.stateError("no key has been derived")
	}
	out := make([]byte, len(s.key))
	copy(out, s.key)
	return out, nil
}

// Destroy wipes the agreed key and any ephemeral material.
func (s *Session) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wipeEphemeral()
	wipe(s.key)
	s.key = nil
}

func (s *Session) transition(next State) {
	s.log.Debug().Stringer("from", s.state).Stringer("to", next).Msg("key exchange state")
	s.state = next
}

func (s *Session) stateError(desc string) error {
	return sm2.NewError(sm2.ErrSessionState, "keyex: "+desc+" (state "+s.state.String()+")")
}

// fail discards ephemeral material and parks the session in StateFailed.
func (s *Session) fail(err error) error {
	s.wipeEphemeral()
	wipe(s.key)
	s.key = nil
	s.transition(StateFailed)
	s.log.Warn().Err(err).Msg("key exchange failed")
	return err
}

func (s *Session) wipeEphemeral() {
	ec.Wipe(s.r)
	s.r = nil
	wipe(s.expect)
	s.expect = nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func (s *Session) checkEphemeral(r *big.Int) error {
	if r == nil || r.Sign() <= 0 || r.Cmp(s.dom.N()) >= 0 {
		return sm2.NewError(sm2.ErrInvalidNonce, "keyex: ephemeral scalar must be in [1, n-1]")
	}
	return nil
}

func (s *Session) drawEphemeral() (*big.Int, error) {
	return s.dom.RandomScalar(s.cfg.rand)
}

// truncate maps x to 2^w + (x mod 2^w).
func (s *Session) truncate(x *big.Int) *big.Int {
	two := new(big.Int).Lsh(big.NewInt(1), s.dom.W())
	mask := new(big.Int).Sub(two, big.NewInt(1))
	v := new(big.Int).And(x, mask)
	return v.Add(v, two)
}

// agree computes t = (d + x̄·r) mod n for the own ephemeral point and then
// [h·t](Ppeer + [x̄peer]Rpeer).
func (s *Session) agree(peerEph ec.Point) (ec.Point, error) {
	arith := s.dom.Arithmetic()
	n := s.dom.N()

	d := s.self.PrivateKey.D()
	defer ec.Wipe(d)
	t := s.truncate(s.own.X)
	t.Mul(t, s.r)
	t.Add(t, d)
	t.Mod(t, n)
	defer ec.Wipe(t)

	sum := arith.Add(s.peer.PublicKey.Point(), arith.ScalarMult(peerEph, s.truncate(peerEph.X)))
	t.Mul(t, s.dom.H())
	shared := arith.ScalarMult(sum, t)
	if shared.IsInfinity() {
		return ec.Infinity(), sm2.NewError(sm2.ErrKeyEx, "keyex: shared point is the point at infinity")
	}
	return shared, nil
}

// zs returns ZA, ZB in protocol order.
func (s *Session) zs() ([]byte, []byte) {
	if s.role == RoleInitiator {
		return s.self.Z, s.peer.Z
	}
	return s.peer.Z, s.self.Z
}

// derive produces the key and, with confirmation on, the responder and
// initiator tags from the shared point and both ephemeral points.
func (s *Session) derive(shared, ra, rb ec.Point) (key, tagB, tagA []byte, err error) {
	xy := shared.Bytes()
	defer wipe(xy)
	x, y := xy[:ec.CoordinateSize], xy[ec.CoordinateSize:]
	za, zb := s.zs()

	seed := make([]byte, 0, len(xy)+len(za)+len(zb))
	seed = append(seed, xy...)
	seed = append(seed, za...)
	seed = append(seed, zb...)
	defer wipe(seed)

	key, err = kdf.DeriveWith(s.dom.HashFunc(), seed, s.cfg.keyLen)
	if err != nil {
		return nil, nil, nil, sm2.NewError(sm2.ErrInvalidLength, "keyex: "+err.Error())
	}
	if !s.cfg.confirm {
		return key, nil, nil, nil
	}
	inner := s.dom.Hash(x, za, zb, ra.Bytes(), rb.Bytes())
	tagB = s.dom.Hash([]byte{tagPrefixResponder}, y, inner)
	tagA = s.dom.Hash([]byte{tagPrefixInitiator}, y, inner)
	return key, tagB, tagA, nil
}

func (s *Session) validPeerEphemeral(pt ec.Point, name string) error {
	if !s.dom.IsOnCurve(pt) {
		return sm2.NewError(sm2.ErrNotValidPoint, "keyex: "+name+" is not on the curve")
	}
	return nil
}

// Start draws rA and returns RA for the responder.
func (s *Session) Start() (*EphemeralMessage, error) {
	r, err := s.drawEphemeral()
	if err != nil {
		return nil, err
	}
	defer ec.Wipe(r)
	return s.StartWithEphemeral(r)
}

// StartWithEphemeral is Start with a caller-chosen rA in [1, n-1].
func (s *Session) StartWithEphemeral(r *big.Int) (*EphemeralMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.role != RoleInitiator || s.state != StateIdle {
		return nil, s.stateError("Start requires an idle initiator")
	}
	if err := s.checkEphemeral(r); err != nil {
		return nil, err
	}
	s.r = new(big.Int).Set(r)
	s.own = s.dom.Arithmetic().ScalarBaseMult(s.r)
	s.transition(StateEphemeralSent)
	return &EphemeralMessage{R: s.own.Clone()}, nil
}

// Respond validates RA, derives the key and returns RB (and SB).
func (s *Session) Respond(msg *EphemeralMessage) (*ResponseMessage, error) {
	r, err := s.drawEphemeral()
	if err != nil {
		return nil, err
	}
	defer ec.Wipe(r)
	return s.RespondWithEphemeral(msg, r)
}

// RespondWithEphemeral is Respond with a caller-chosen rB in [1, n-1].
func (s *Session) RespondWithEphemeral(msg *EphemeralMessage, r *big.Int) (*ResponseMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.role != RoleResponder || s.state != StateIdle {
		return nil, s.stateError("Respond requires an idle responder")
	}
	if err := s.checkEphemeral(r); err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, s.fail(malformed("missing ephemeral message"))
	}
	ra := msg.R
	if err := s.validPeerEphemeral(ra, "RA"); err != nil {
		return nil, s.fail(err)
	}

	s.r = new(big.Int).Set(r)
	s.own = s.dom.Arithmetic().ScalarBaseMult(s.r)

	shared, err := s.agree(ra)
	if err != nil {
		return nil, s.fail(err)
	}
	defer shared.Zeroize()

	key, tagB, tagA, err := s.derive(shared, ra, s.own)
	ec.Wipe(s.r)
	s.r = nil
	if err != nil {
		return nil, s.fail(err)
	}
	s.key = key
	s.transition(StateKeyDerived)

	resp := &ResponseMessage{R: s.own.Clone(), S: tagB}
	if s.cfg.confirm {
		s.expect = tagA
	} else {
		s.transition(StateDone)
	}
	return resp, nil
}

// Finish validates RB, derives the key and checks SB. With confirmation on
// it returns SA for the responder; otherwise the returned message is nil.
func (s *Session) Finish(msg *ResponseMessage) (*ConfirmMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.role != RoleInitiator || s.state != StateEphemeralSent {
		return nil, s.stateError("Finish requires an initiator awaiting a response")
	}
	if msg == nil {
		return nil, s.fail(malformed("missing response message"))
	}
	rb := msg.R
	if err := s.validPeerEphemeral(rb, "RB"); err != nil {
		return nil, s.fail(err)
	}

	shared, err := s.agree(rb)
	if err != nil {
		return nil, s.fail(err)
	}
	defer shared.Zeroize()

	key, tagB, tagA, err := s.derive(shared, s.own, rb)
	ec.Wipe(s.r)
	s.r = nil
	if err != nil {
		return nil, s.fail(err)
	}
	s.key = key
	s.transition(StateKeyDerived)

	if !s.cfg.confirm {
		s.transition(StateConfirmed)
		return nil, nil
	}
	if subtle.ConstantTimeCompare(tagB, msg.S) != 1 {
		return nil, s.fail(sm2.NewError(sm2.ErrEqualS1SB, "keyex: responder confirmation tag mismatch"))
	}
	s.transition(StateConfirmed)
	return &ConfirmMessage{S: tagA}, nil
}

// Confirm checks the initiator's SA.
func (s *Session) Confirm(msg *ConfirmMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.role != RoleResponder || s.state != StateKeyDerived || !s.cfg.confirm {
		return s.stateError("Confirm requires a responder awaiting confirmation")
	}
	if msg == nil || subtle.ConstantTimeCompare(s.expect, msg.S) != 1 {
		return s.fail(sm2.NewError(sm2.ErrEqualS2SA, "keyex: initiator confirmation tag mismatch"))
	}
	wipe(s.expect)
	s.expect = nil
	s.transition(StateDone)
	return nil
}
