// Package ratchet provides a symmetric key ratchet: every message is sealed
// under a fresh key stepped out of a chain key with the SM3 KDF, and the
// chain key is overwritten as it advances.
package ratchet
