package sm2

import (
	"encoding/binary"
	"math"
)

// DefaultUID is the distinguishing identifier used when the caller has none.
const DefaultUID = "1234567812345678"

// MaxUIDLength is the longest identifier whose bit length fits ENTL.
const MaxUIDLength = math.MaxUint16 / 8

// ComputeZ returns Hash(ENTL ‖ uid ‖ a ‖ b ‖ Gx ‖ Gy ‖ Px ‖ Py), where ENTL
// is the bit length of uid as a 16-bit big-endian integer.
func ComputeZ(pub *PublicKey, uid []byte) ([]byte, error) {
	if len(uid) > MaxUIDLength {
		return nil, NewError(ErrInvalidIdentity, "sm2: identifier longer than 8191 bytes")
	}
	var entl [2]byte
	binary.BigEndian.PutUint16(entl[:], uint16(len(uid)*8))

	d := pub.dom
	return d.Hash(entl[:], uid, d.zParams, pub.pt.Bytes()), nil
}
