package ratchet

import (
	"encoding/binary"
	"errors"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrCiphertextTooShort = errors.New("ratchet: ciphertext too short")
	ErrDecryptionFailed   = errors.New("ratchet: decryption failed")
)

// Overhead is the Poly1305 tag carried by every ratchet ciphertext.
const Overhead = chacha20poly1305.Overhead

// generationNonce puts gen in the low 64 bits of the ChaCha20-Poly1305
// nonce. A message key seals exactly one message, so a nonce never repeats
// under the same key.
func generationNonce(gen uint64) []byte {
	nonce := make([]byte, chacha20poly1305.NonceSize)
	binary.BigEndian.PutUint64(nonce[chacha20poly1305.NonceSize-8:], gen)
	return nonce
}

// sealMessage encrypts plaintext under a one-shot message key and wipes it.
func sealMessage(key chainKey, gen uint64, plaintext, ad []byte) ([]byte, error) {
	defer key.wipe()
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, generationNonce(gen), plaintext, ad), nil
}

// openMessage reverses sealMessage and wipes the key.
func openMessage(key chainKey, gen uint64, ciphertext, ad []byte) ([]byte, error) {
	defer key.wipe()
	if len(ciphertext) < Overhead {
		return nil, ErrCiphertextTooShort
	}
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, err
	}
	pt, err := aead.Open(nil, generationNonce(gen), ciphertext, ad)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return pt, nil
}
