package ratchet

import (
	"encoding/binary"
	"errors"
	"sync"

	"github.com/TheusHen/SM2/sm2/kdf"
)

var (
	ErrRatchetExhausted  = errors.New("ratchet: maximum generation reached")
	ErrInvalidGeneration = errors.New("ratchet: invalid generation number")
	ErrKeySize           = errors.New("ratchet: initial key must be 32 bytes")
	ErrMessageTooShort   = errors.New("ratchet: message too short")
)

const (
	// KeySize is the chain and message key length.
	KeySize = 32

	// MaxGeneration is the number of steps before re-keying is required.
	MaxGeneration = 1 << 32
)

type chainKey [KeySize]byte

func (k *chainKey) wipe() {
	for i := range k {
		k[i] = 0
	}
}

// step splits KDF(chainKey, 64) into the message key and the next chain key.
func step(ck chainKey) (next, message chainKey) {
	out, err := kdf.Derive(ck[:], 2*KeySize)
	if err != nil {
		// 64 bytes is always in range.
		panic(err)
	}
	copy(message[:], out[:KeySize])
	copy(next[:], out[KeySize:])
	for i := range out {
		out[i] = 0
	}
	return next, message
}

// Chain is the sending half of a ratchet.
type Chain struct {
	mu         sync.Mutex
	key        chainKey
	generation uint64
}

// NewChain creates a chain from a 32-byte key.
func NewChain(initialKey []byte) (*Chain, error) {
	if len(initialKey) != KeySize {
		return nil, ErrKeySize
	}
	c := &Chain{}
	copy(c.key[:], initialKey)
	return c, nil
}

// advance returns the message key for the current generation and
// overwrites the chain key with its successor.
func (c *Chain) advance() (chainKey, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation >= MaxGeneration {
		return chainKey{}, 0, ErrRatchetExhausted
	}
	next, msgKey := step(c.key)
	gen := c.generation
	c.key.wipe()
	c.key = next
	c.generation++
	return msgKey, gen, nil
}

func (c *Chain) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Wipe destroys the chain key; later Steps fail with ErrRatchetExhausted.
func (c *Chain) Wipe() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.key.wipe()
	c.generation = MaxGeneration
}

// EncryptedMessage is a ratcheted ciphertext tagged with its generation.
type EncryptedMessage struct {
	Generation uint64
	Ciphertext []byte
}

// Seal encrypts plaintext under the next message key.
func (c *Chain) Seal(plaintext, ad []byte) (EncryptedMessage, error) {
	msgKey, gen, err := c.advance()
	if err != nil {
		return EncryptedMessage{}, err
	}
	ct, err := sealMessage(msgKey, gen, plaintext, ad)
	if err != nil {
		return EncryptedMessage{}, err
	}
	return EncryptedMessage{Generation: gen, Ciphertext: ct}, nil
}

// Receiver is the receiving half. It tolerates up to maxSkip messages
// arriving out of order.
type Receiver struct {
	mu         sync.Mutex
	skipped    map[uint64]*chainKey
	current    chainKey
	currentGen uint64
	maxSkip    int
}

func NewReceiver(initialKey []byte, maxSkip int) (*Receiver, error) {
	if len(initialKey) != KeySize {
		return nil, ErrKeySize
	}
	r := &Receiver{
		skipped: make(map[uint64]*chainKey),
		maxSkip: maxSkip,
	}
	copy(r.current[:], initialKey)
	return r, nil
}

func openWith(ck chainKey, msg EncryptedMessage, ad []byte) ([]byte, chainKey, error) {
	next, msgKey := step(ck)
	pt, err := openMessage(msgKey, msg.Generation, msg.Ciphertext, ad)
	return pt, next, err
}

// Open decrypts msg. A message that fails authentication does not advance
// the receiver.
func (r *Receiver) Open(msg EncryptedMessage, ad []byte) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	gen := msg.Generation

	if gen == r.currentGen {
		pt, next, err := openWith(r.current, msg, ad)
		if err != nil {
			next.wipe()
			return nil, err
		}
		r.current.wipe()
		r.current = next
		r.currentGen++
		return pt, nil
	}

	if cached, ok := r.skipped[gen]; ok {
		pt, next, err := openWith(*cached, msg, ad)
		next.wipe()
		if err != nil {
			return nil, err
		}
		cached.wipe()
		delete(r.skipped, gen)
		return pt, nil
	}

	if gen > r.currentGen {
		if gen-r.currentGen > uint64(r.maxSkip) {
			return nil, ErrInvalidGeneration
		}
		ck := r.current
		skipped := make(map[uint64]*chainKey, gen-r.currentGen)
		for i := r.currentGen; i < gen; i++ {
			k := ck
			skipped[i] = &k
			next, msgKey := step(ck)
			msgKey.wipe()
			ck.wipe()
			ck = next
		}
		pt, next, err := openWith(ck, msg, ad)
		ck.wipe()
		if err != nil {
			next.wipe()
			for _, k := range skipped {
				k.wipe()
			}
			return nil, err
		}
		for i, k := range skipped {
			r.skipped[i] = k
		}
		r.current.wipe()
		r.current = next
		r.currentGen = gen + 1
		return pt, nil
	}

	return nil, ErrInvalidGeneration
}

// Wipe destroys the current and all cached chain keys.
func (r *Receiver) Wipe() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current.wipe()
	for _, k := range r.skipped {
		k.wipe()
	}
	clear(r.skipped)
}

// Encode serializes an EncryptedMessage: 8-byte big-endian generation
// followed by the ciphertext.
func (m EncryptedMessage) Encode() []byte {
	out := make([]byte, 8+len(m.Ciphertext))
	binary.BigEndian.PutUint64(out[:8], m.Generation)
	copy(out[8:], m.Ciphertext)
	return out
}

func DecodeEncryptedMessage(data []byte) (EncryptedMessage, error) {
	if len(data) < 8 {
		return EncryptedMessage{}, ErrMessageTooShort
	}
	return EncryptedMessage{
		Generation: binary.BigEndian.Uint64(data[:8]),
		Ciphertext: data[8:],
	}, nil
}
