package identity

import (
	"bytes"
	"io"

	"github.com/TheusHen/SM2/sm2"
)

// KeyPair binds an SM2 key to the distinguishing identifier it signs and
// exchanges keys under, together with its precomputed Z-value.
type KeyPair struct {
	PrivateKey *sm2.PrivateKey
	UID        []byte
	Z          []byte
}

func normaliseUID(uid []byte) []byte {
	if uid == nil {
		return []byte(sm2.DefaultUID)
	}
	return bytes.Clone(uid)
}

// GenerateKeyPair creates a fresh key for uid. A nil uid means
// sm2.DefaultUID.
func GenerateKeyPair(dom *sm2.Domain, rand io.Reader, uid []byte) (KeyPair, error) {
	key, err := sm2.GenerateKey(dom, rand)
	if err != nil {
		return KeyPair{}, err
	}
	return FromPrivateKey(key, uid)
}

// NewKeyPair imports a 32-byte private scalar.
func NewKeyPair(dom *sm2.Domain, privateKey, uid []byte) (KeyPair, error) {
	key, err := sm2.NewPrivateKey(dom, privateKey)
	if err != nil {
		return KeyPair{}, err
	}
	return FromPrivateKey(key, uid)
}

// FromPrivateKey wraps an existing key.
func FromPrivateKey(key *sm2.PrivateKey, uid []byte) (KeyPair, error) {
	uid = normaliseUID(uid)
	z, err := sm2.ComputeZ(&key.PublicKey, uid)
	if err != nil {
		return KeyPair{}, err
	}
	return KeyPair{PrivateKey: key, UID: uid, Z: z}, nil
}

func (kp KeyPair) PublicKey() *sm2.PublicKey { return &kp.PrivateKey.PublicKey }

func (kp KeyPair) PeerID() PeerID {
	return PeerIDFromPublicKey(kp.PublicKey())
}

// Peer is the public view other parties need.
func (kp KeyPair) Peer() Peer {
	return Peer{PublicKey: kp.PublicKey(), UID: bytes.Clone(kp.UID), Z: bytes.Clone(kp.Z)}
}

// Sign returns the 64-byte r ‖ s signature of message under kp.Z.
func (kp KeyPair) Sign(rand io.Reader, message []byte) ([]byte, error) {
	sig, err := sm2.Sign(rand, kp.PrivateKey, kp.Z, message)
	if err != nil {
		return nil, err
	}
	return sig.Bytes(), nil
}

// Destroy wipes the private scalar.
func (kp KeyPair) Destroy() {
	kp.PrivateKey.Destroy()
}

// Peer is a remote party: its validated public key, identifier and Z-value.
type Peer struct {
	PublicKey *sm2.PublicKey
	UID       []byte
	Z         []byte
}

// NewPeer computes the Z-value for pub under uid.
func NewPeer(pub *sm2.PublicKey, uid []byte) (Peer, error) {
	uid = normaliseUID(uid)
	z, err := sm2.ComputeZ(pub, uid)
	if err != nil {
		return Peer{}, err
	}
	return Peer{PublicKey: pub, UID: uid, Z: z}, nil
}

// ParsePeer decodes and validates a 64-byte public key.
func ParsePeer(dom *sm2.Domain, publicKey, uid []byte) (Peer, error) {
	pub, err := sm2.ParsePublicKey(dom, publicKey)
	if err != nil {
		return Peer{}, err
	}
	return NewPeer(pub, uid)
}

func (p Peer) PeerID() PeerID {
	return PeerIDFromPublicKey(p.PublicKey)
}

// Verify reports whether signature is p's signature over message.
func Verify(p Peer, message, signature []byte) bool {
	sig, err := sm2.ParseSignature(signature)
	if err != nil {
		return false
	}
	return sm2.Verify(p.PublicKey, p.Z, message, sig) == nil
}
