// Package kdf implements the SM2 key derivation function: the concatenation
// of Hash(Z ‖ ct) for a 32-bit big-endian counter starting at 1, truncated to
// the requested length.
package kdf

import (
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"hash"
	"io"
	"math"

	"github.com/emmansun/gmsm/sm3"
)

var (
	ErrKeyLength = errors.New("kdf: requested key length out of range")
	ErrExhausted = errors.New("kdf: counter exhausted")
)

// Derive returns klen bytes of SM3-based key material for z.
func Derive(z []byte, klen int) ([]byte, error) {
	return DeriveWith(sm3.New, z, klen)
}

// DeriveWith is Derive over an arbitrary hash.
func DeriveWith(newHash func() hash.Hash, z []byte, klen int) ([]byte, error) {
	if klen < 0 || uint64(klen) > MaxLength(newHash().Size()) {
		return nil, ErrKeyLength
	}
	out := make([]byte, klen)
	r := NewReader(newHash, z)
	defer r.Wipe()
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}

// MaxLength is the largest output, in bytes, the 32-bit counter can address
// for a hash of the given size.
func MaxLength(size int) uint64 {
	return uint64(math.MaxUint32) * uint64(size)
}

// Reader streams the key material block by block.
type Reader struct {
	h     hash.Hash
	z     []byte
	ct    uint32
	block []byte
	off   int
	done  bool
}

// NewReader copies z; the caller may wipe its own copy afterwards.
func NewReader(newHash func() hash.Hash, z []byte) *Reader {
	return &Reader{h: newHash(), z: append([]byte(nil), z...)}
}

func (r *Reader) next() {
	r.ct++
	var ct [4]byte
	binary.BigEndian.PutUint32(ct[:], r.ct)
	r.h.Reset()
	r.h.Write(r.z)
	r.h.Write(ct[:])
	r.block = r.h.Sum(r.block[:0])
	r.off = 0
	if r.ct == math.MaxUint32 {
		r.done = true
	}
}

func (r *Reader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if r.off == len(r.block) {
			if r.done {
				return n, ErrExhausted
			}
			r.next()
		}
		c := copy(p[n:], r.block[r.off:])
		r.off += c
		n += c
	}
	return n, nil
}

// Wipe clears the retained seed and the current block.
func (r *Reader) Wipe() {
	for i := range r.z {
		r.z[i] = 0
	}
	for i := range r.block {
		r.block[i] = 0
	}
	r.off = len(r.block)
}

// IsZero reports whether every byte of b is zero, in time independent of
// the contents. An empty slice is all-zero.
func IsZero(b []byte) bool {
	var acc byte
	for _, v := range b {
		acc |= v
	}
	return subtle.ConstantTimeByteEq(acc, 0) == 1
}
