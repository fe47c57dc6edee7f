// Package channel turns the key agreed by an SM2 key exchange into a
// bidirectional encrypted channel with per-message forward secrecy.
package channel

import (
	"errors"
	"sync"

	"github.com/TheusHen/SM2/sm2/channel/ratchet"
	"github.com/TheusHen/SM2/sm2/keyex"
)

// KeyLength is the key-exchange output a channel needs: one 32-byte chain
// key per direction.
const KeyLength = 2 * ratchet.KeySize

// DefaultMaxSkip is how many out-of-order messages a receiver tolerates.
const DefaultMaxSkip = 1000

var (
	ErrChannelNotEstablished = errors.New("channel: secure channel not established")
	ErrKeyTooShort           = errors.New("channel: key exchange must agree at least 64 bytes")
	ErrSessionIncomplete     = errors.New("channel: key exchange has not completed")
)

// SecureChannel encrypts in both directions. The first 32 bytes of the key
// seed the initiator-to-responder chain, the next 32 the reverse.
type SecureChannel struct {
	mu        sync.Mutex
	closed    bool
	initiator bool
	sendChain *ratchet.Chain
	recvChain *ratchet.Receiver
}

// Establish builds the channel from a finished key exchange run with
// keyex.WithKeyLength(KeyLength) or longer.
func Establish(sess *keyex.Session) (*SecureChannel, error) {
	if !sess.Complete() {
		return nil, ErrSessionIncomplete
	}
	key, err := sess.Key()
	if err != nil {
		return nil, err
	}
	defer wipe(key)
	return New(key, sess.Role() == keyex.RoleInitiator)
}

// New builds the channel directly from agreed key material.
func New(key []byte, initiator bool) (*SecureChannel, error) {
	if len(key) < KeyLength {
		return nil, ErrKeyTooShort
	}
	forward, backward := key[:ratchet.KeySize], key[ratchet.KeySize:KeyLength]
	mine, theirs := forward, backward
	if !initiator {
		mine, theirs = backward, forward
	}

	send, err := ratchet.NewChain(mine)
	if err != nil {
		return nil, err
	}
	recv, err := ratchet.NewReceiver(theirs, DefaultMaxSkip)
	if err != nil {
		return nil, err
	}
	return &SecureChannel{initiator: initiator, sendChain: send, recvChain: recv}, nil
}

func (sc *SecureChannel) IsEstablished() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return !sc.closed
}

// Encrypt seals plaintext under the next send key.
func (sc *SecureChannel) Encrypt(plaintext, ad []byte) ([]byte, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.closed {
		return nil, ErrChannelNotEstablished
	}
	msg, err := sc.sendChain.Seal(plaintext, ad)
	if err != nil {
		return nil, err
	}
	return msg.Encode(), nil
}

// Decrypt opens a message from the peer.
func (sc *SecureChannel) Decrypt(ciphertext, ad []byte) ([]byte, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.closed {
		return nil, ErrChannelNotEstablished
	}
	msg, err := ratchet.DecodeEncryptedMessage(ciphertext)
	if err != nil {
		return nil, err
	}
	return sc.recvChain.Open(msg, ad)
}

// SendGeneration returns the number of messages sent so far.
func (sc *SecureChannel) SendGeneration() uint64 {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sendChain.Generation()
}

// Close wipes both chains.
func (sc *SecureChannel) Close() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.sendChain.Wipe()
	sc.recvChain.Wipe()
	sc.closed = true
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
