package identity

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheusHen/SM2/sm2"
)

func TestPeerIDDerivationStable(t *testing.T) {
	kp, err := GenerateKeyPair(sm2.MustInitialize(), rand.Reader, nil)
	require.NoError(t, err, "GenerateKeyPair")

	id1 := kp.PeerID()
	id2 := PeerIDFromPublicKey(kp.PublicKey())
	require.Equal(t, id1, id2, "PeerID mismatch")
	require.Equal(t, id1, kp.Peer().PeerID())

	parsed, err := ParsePeerIDHex(id1.String())
	require.NoError(t, err, "ParsePeerIDHex")
	require.Equal(t, id1, parsed, "ParsePeerIDHex mismatch")

	_, err = ParsePeerIDHex("abcd")
	assert.ErrorIs(t, err, ErrInvalidPeerID)
	_, err = ParsePeerIDHex(strings.Repeat("zz", len(id1)))
	assert.ErrorIs(t, err, ErrInvalidPeerID)
}

func TestDefaultUIDAndZ(t *testing.T) {
	dom := sm2.MustInitialize()
	d, _ := hex.DecodeString("3945208F7B2144B13F36E38AC6D39F95889393692860B51A42FB81EF4DF7C5B8")
	kp, err := NewKeyPair(dom, d, nil)
	require.NoError(t, err)

	assert.Equal(t, []byte(sm2.DefaultUID), kp.UID)
	assert.Equal(t, "b2e14c5c79c6df5b85f4fe7ed8db7a262b9da7e07ccb0ea9f4747b8ccda8a4f3", hex.EncodeToString(kp.Z))

	_, err = NewKeyPair(dom, d[:10], nil)
	assert.ErrorIs(t, err, sm2.ErrInvalidLength)
}

func TestSignVerify(t *testing.T) {
	dom := sm2.MustInitialize()
	kp, err := GenerateKeyPair(dom, rand.Reader, []byte("alice"))
	require.NoError(t, err, "GenerateKeyPair")

	msg := []byte("hello")
	sig, err := kp.Sign(rand.Reader, msg)
	require.NoError(t, err)
	require.Len(t, sig, sm2.SignatureSize)

	peer := kp.Peer()
	assert.True(t, Verify(peer, msg, sig), "signature verification failed")
	assert.False(t, Verify(peer, []byte("tampered"), sig), "expected verification to fail for tampered message")
	assert.False(t, Verify(peer, msg, sig[:10]))

	// Same key announced under another identifier must not verify.
	renamed, err := NewPeer(kp.PublicKey(), []byte("mallory"))
	require.NoError(t, err)
	assert.False(t, Verify(renamed, msg, sig))

	kp2, _ := GenerateKeyPair(dom, rand.Reader, []byte("alice"))
	assert.False(t, Verify(kp2.Peer(), msg, sig), "expected verification to fail with different public key")

	// signature bytes are not expected to be all zero
	assert.False(t, bytes.Equal(sig, make([]byte, len(sig))), "unexpected zeroed signature")
}

func TestParsePeer(t *testing.T) {
	dom := sm2.MustInitialize()
	kp, err := GenerateKeyPair(dom, nil, []byte("bob"))
	require.NoError(t, err)

	p, err := ParsePeer(dom, kp.PublicKey().Bytes(), []byte("bob"))
	require.NoError(t, err)
	assert.Equal(t, kp.Z, p.Z)
	assert.Equal(t, kp.PeerID(), p.PeerID())

	_, err = ParsePeer(dom, make([]byte, 64), nil)
	assert.Error(t, err)
}

func TestDestroy(t *testing.T) {
	kp, err := GenerateKeyPair(sm2.MustInitialize(), nil, nil)
	require.NoError(t, err)
	kp.Destroy()
	_, err = kp.Sign(rand.Reader, []byte("m"))
	assert.ErrorIs(t, err, sm2.ErrInvalidPrivateKey)
}

func TestDirectoryAnnounceLookup(t *testing.T) {
	dom := sm2.MustInitialize()
	kp, err := GenerateKeyPair(dom, nil, []byte("seed"))
	require.NoError(t, err, "GenerateKeyPair")

	dir := NewDirectory()
	require.NoError(t, dir.Announce(kp.Peer()), "Announce")

	got, err := dir.Lookup(kp.PeerID())
	require.NoError(t, err, "Lookup")
	assert.Equal(t, kp.UID, got.UID)
	assert.True(t, got.PublicKey.Equal(kp.PublicKey()))

	// Mutating a returned copy does not leak into the directory.
	got.UID[0] = 'X'
	again, _ := dir.Lookup(kp.PeerID())
	assert.Equal(t, []byte("seed"), again.UID)

	assert.Len(t, dir.List(), 1)

	dir.Remove(kp.PeerID())
	_, err = dir.Lookup(kp.PeerID())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Error(t, dir.Announce(Peer{}))
}
