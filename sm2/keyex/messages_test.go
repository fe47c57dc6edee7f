package keyex

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheusHen/SM2/sm2"
	"github.com/TheusHen/SM2/sm2/ec"
)

func TestMessagesOverTheWire(t *testing.T) {
	dom := sm2.MustInitialize()
	ini, res := randomSessions(t, dom)

	m1, err := ini.Start()
	require.NoError(t, err)
	wire1, err := m1.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, wire1, 65)
	typ, err := PeekType(wire1)
	require.NoError(t, err)
	assert.Equal(t, MessageTypeEphemeral, typ)

	var got1 EphemeralMessage
	require.NoError(t, got1.UnmarshalBinary(wire1))
	m2, err := res.Respond(&got1)
	require.NoError(t, err)

	wire2, err := m2.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, wire2, 1+64+32)
	var got2 ResponseMessage
	require.NoError(t, got2.UnmarshalBinary(wire2))
	m3, err := ini.Finish(&got2)
	require.NoError(t, err)

	wire3, err := m3.MarshalBinary()
	require.NoError(t, err)
	var got3 ConfirmMessage
	require.NoError(t, got3.UnmarshalBinary(wire3))
	require.NoError(t, res.Confirm(&got3))
}

func TestMessageDecodeErrors(t *testing.T) {
	var e EphemeralMessage
	assert.ErrorIs(t, e.UnmarshalBinary(nil), sm2.ErrInvalidLength)
	assert.ErrorIs(t, e.UnmarshalBinary([]byte{byte(MessageTypeEphemeral), 1, 2}), sm2.ErrInvalidLength)
	assert.ErrorIs(t, e.UnmarshalBinary(make([]byte, 65)), sm2.ErrInvalidLength, "type 0")

	var r ResponseMessage
	short := append([]byte{byte(MessageTypeResponse)}, make([]byte, 63)...)
	assert.ErrorIs(t, r.UnmarshalBinary(short), sm2.ErrInvalidLength)
	long := append([]byte{byte(MessageTypeResponse)}, make([]byte, 64+MaxTagSize+1)...)
	assert.ErrorIs(t, r.UnmarshalBinary(long), sm2.ErrInvalidLength)

	bare := append([]byte{byte(MessageTypeResponse)}, make([]byte, 64)...)
	require.NoError(t, r.UnmarshalBinary(bare))
	assert.Nil(t, r.S)

	var c ConfirmMessage
	assert.ErrorIs(t, c.UnmarshalBinary([]byte{byte(MessageTypeConfirm)}), sm2.ErrInvalidLength)
	assert.ErrorIs(t, c.UnmarshalBinary([]byte{byte(MessageTypeEphemeral), 1}), sm2.ErrInvalidLength)

	_, err := EphemeralMessage{R: ec.Infinity()}.MarshalBinary()
	assert.Error(t, err)
	_, err = ResponseMessage{R: ec.Point{X: big.NewInt(1), Y: big.NewInt(2)}, S: make([]byte, MaxTagSize+1)}.MarshalBinary()
	assert.Error(t, err)
	_, err = ConfirmMessage{}.MarshalBinary()
	assert.Error(t, err)
}

func TestMessageTypeString(t *testing.T) {
	assert.Equal(t, "EPHEMERAL", MessageTypeEphemeral.String())
	assert.Equal(t, "RESPONSE", MessageTypeResponse.String())
	assert.Equal(t, "CONFIRM", MessageTypeConfirm.String())
	assert.Equal(t, "UNKNOWN", MessageType(0).String())
}
