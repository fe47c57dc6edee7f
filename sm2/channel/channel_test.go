package channel

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheusHen/SM2/sm2"
	"github.com/TheusHen/SM2/sm2/identity"
	"github.com/TheusHen/SM2/sm2/keyex"
)

func exchange(t *testing.T, klen int) (*keyex.Session, *keyex.Session) {
	t.Helper()
	dom := sm2.MustInitialize()
	a, err := identity.GenerateKeyPair(dom, nil, []byte("alice"))
	require.NoError(t, err)
	b, err := identity.GenerateKeyPair(dom, nil, []byte("bob"))
	require.NoError(t, err)

	ini, err := keyex.NewInitiator(a, b.Peer(), keyex.WithKeyLength(klen))
	require.NoError(t, err)
	res, err := keyex.NewResponder(b, a.Peer(), keyex.WithKeyLength(klen))
	require.NoError(t, err)

	m1, err := ini.Start()
	require.NoError(t, err)
	m2, err := res.Respond(m1)
	require.NoError(t, err)
	m3, err := ini.Finish(m2)
	require.NoError(t, err)
	require.NoError(t, res.Confirm(m3))
	return ini, res
}

func TestSecureChannelRoundTrip(t *testing.T) {
	ini, res := exchange(t, KeyLength)

	initiator, err := Establish(ini)
	require.NoError(t, err, "Establish initiator")
	responder, err := Establish(res)
	require.NoError(t, err, "Establish responder")
	assert.True(t, initiator.IsEstablished())

	messages := [][]byte{
		[]byte("hello from initiator"),
		[]byte("hello from responder"),
		[]byte("another message"),
	}

	// Initiator -> Responder
	for _, msg := range messages {
		ct, err := initiator.Encrypt(msg, nil)
		require.NoError(t, err, "initiator.Encrypt")
		pt, err := responder.Decrypt(ct, nil)
		require.NoError(t, err, "responder.Decrypt")
		assert.True(t, bytes.Equal(pt, msg), "message mismatch")
	}

	// Responder -> Initiator
	for _, msg := range messages {
		ct, err := responder.Encrypt(msg, []byte("ad"))
		require.NoError(t, err, "responder.Encrypt")
		pt, err := initiator.Decrypt(ct, []byte("ad"))
		require.NoError(t, err, "initiator.Decrypt")
		assert.True(t, bytes.Equal(pt, msg), "message mismatch")
	}
	assert.EqualValues(t, len(messages), initiator.SendGeneration())

	// A party cannot decrypt its own traffic: directions use distinct chains.
	ct, err := initiator.Encrypt([]byte("loopback"), nil)
	require.NoError(t, err)
	_, err = initiator.Decrypt(ct, nil)
	assert.Error(t, err)
}

func TestEstablishRequiresLongKey(t *testing.T) {
	ini, _ := exchange(t, 16)
	_, err := Establish(ini)
	assert.ErrorIs(t, err, ErrKeyTooShort)
}

func TestEstablishRequiresFinishedExchange(t *testing.T) {
	dom := sm2.MustInitialize()
	a, _ := identity.GenerateKeyPair(dom, nil, nil)
	b, _ := identity.GenerateKeyPair(dom, nil, nil)
	ini, err := keyex.NewInitiator(a, b.Peer(), keyex.WithKeyLength(KeyLength))
	require.NoError(t, err)
	_, err = ini.Start()
	require.NoError(t, err)

	_, err = Establish(ini)
	assert.ErrorIs(t, err, ErrSessionIncomplete)
}

func TestEstablishWaitsForResponderConfirmation(t *testing.T) {
	dom := sm2.MustInitialize()
	a, _ := identity.GenerateKeyPair(dom, nil, nil)
	b, _ := identity.GenerateKeyPair(dom, nil, nil)
	ini, err := keyex.NewInitiator(a, b.Peer(), keyex.WithKeyLength(KeyLength))
	require.NoError(t, err)
	res, err := keyex.NewResponder(b, a.Peer(), keyex.WithKeyLength(KeyLength))
	require.NoError(t, err)

	m1, err := ini.Start()
	require.NoError(t, err)
	m2, err := res.Respond(m1)
	require.NoError(t, err)
	m3, err := ini.Finish(m2)
	require.NoError(t, err)

	// The initiator is finished once SB checks out; the responder still
	// needs SA.
	_, err = Establish(ini)
	require.NoError(t, err)
	_, err = Establish(res)
	assert.ErrorIs(t, err, ErrSessionIncomplete)

	require.NoError(t, res.Confirm(m3))
	_, err = Establish(res)
	assert.NoError(t, err)
}

func TestClose(t *testing.T) {
	ini, res := exchange(t, KeyLength)
	a, err := Establish(ini)
	require.NoError(t, err)
	b, err := Establish(res)
	require.NoError(t, err)

	ct, err := a.Encrypt([]byte("before close"), nil)
	require.NoError(t, err)
	b.Close()
	assert.False(t, b.IsEstablished())
	_, err = b.Decrypt(ct, nil)
	assert.ErrorIs(t, err, ErrChannelNotEstablished)
	_, err = b.Encrypt([]byte("x"), nil)
	assert.ErrorIs(t, err, ErrChannelNotEstablished)
}

func TestNewFromRawKey(t *testing.T) {
	key := bytes.Repeat([]byte{7}, KeyLength)
	a, err := New(key, true)
	require.NoError(t, err)
	b, err := New(key, false)
	require.NoError(t, err)

	ct, err := b.Encrypt([]byte("pong"), nil)
	require.NoError(t, err)
	pt, err := a.Decrypt(ct, nil)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(pt))

	_, err = New(key[:63], true)
	assert.ErrorIs(t, err, ErrKeyTooShort)
}
