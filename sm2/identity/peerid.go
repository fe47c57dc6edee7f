package identity

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/emmansun/gmsm/sm3"

	"github.com/TheusHen/SM2/sm2"
)

var ErrInvalidPeerID = errors.New("identity: invalid peer id")

// PeerID is SM3(Px ‖ Py) of a peer's public key.
type PeerID [sm3.Size]byte

func PeerIDFromPublicKey(pub *sm2.PublicKey) PeerID {
	return PeerID(sm3.Sum(pub.Bytes()))
}

// ParsePeerIDHex reads the 64-character form produced by String.
func ParsePeerIDHex(s string) (PeerID, error) {
	var id PeerID
	if len(s) != hex.EncodedLen(len(id)) {
		return PeerID{}, fmt.Errorf("%w: %d hex characters, want %d", ErrInvalidPeerID, len(s), hex.EncodedLen(len(id)))
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return PeerID{}, fmt.Errorf("%w: %v", ErrInvalidPeerID, err)
	}
	return id, nil
}

func (id PeerID) String() string { return fmt.Sprintf("%x", id[:]) }
