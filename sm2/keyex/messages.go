package keyex

import (
	"bytes"

	"github.com/TheusHen/SM2/sm2"
	"github.com/TheusHen/SM2/sm2/ec"
)

type MessageType uint8

const (
	MessageTypeEphemeral MessageType = 1
	MessageTypeResponse  MessageType = 2
	MessageTypeConfirm   MessageType = 3
)

// MaxTagSize bounds the confirmation tag carried in a message.
const MaxTagSize = 64

func (t MessageType) String() string {
	switch t {
	case MessageTypeEphemeral:
		return "EPHEMERAL"
	case MessageTypeResponse:
		return "RESPONSE"
	case MessageTypeConfirm:
		return "CONFIRM"
	default:
		return "UNKNOWN"
	}
}

func malformed(desc string) error {
	return sm2.NewError(sm2.ErrInvalidLength, "keyex: "+desc)
}

// PeekType returns the type byte of an encoded message.
func PeekType(b []byte) (MessageType, error) {
	if len(b) == 0 {
		return 0, malformed("empty message")
	}
	return MessageType(b[0]), nil
}

func header(b []byte, want MessageType) ([]byte, error) {
	t, err := PeekType(b)
	if err != nil {
		return nil, err
	}
	if t != want {
		return nil, malformed("expected " + want.String() + " message, got " + t.String())
	}
	return b[1:], nil
}

// EphemeralMessage carries the initiator's RA.
//
// Format:
//
//	1 byte: type
//	64 bytes: x ‖ y
type EphemeralMessage struct {
	R ec.Point
}

func (m EphemeralMessage) MarshalBinary() ([]byte, error) {
	enc := m.R.Bytes()
	if enc == nil {
		return nil, malformed("ephemeral point is not encodable")
	}
	return append([]byte{byte(MessageTypeEphemeral)}, enc...), nil
}

func (m *EphemeralMessage) UnmarshalBinary(b []byte) error {
	body, err := header(b, MessageTypeEphemeral)
	if err != nil {
		return err
	}
	pt, err := ec.ParsePoint(body)
	if err != nil {
		return malformed("ephemeral point must be 64 bytes")
	}
	m.R = pt
	return nil
}

// ResponseMessage carries the responder's RB and, when confirmation is on,
// the tag SB.
//
// Format:
//
//	1 byte: type
//	64 bytes: x ‖ y
//	0..64 bytes: SB
type ResponseMessage struct {
	R ec.Point
	S []byte
}

func (m ResponseMessage) MarshalBinary() ([]byte, error) {
	enc := m.R.Bytes()
	if enc == nil {
		return nil, malformed("ephemeral point is not encodable")
	}
	if len(m.S) > MaxTagSize {
		return nil, malformed("confirmation tag too long")
	}
	out := make([]byte, 0, 1+len(enc)+len(m.S))
	out = append(out, byte(MessageTypeResponse))
	out = append(out, enc...)
	return append(out, m.S...), nil
}

func (m *ResponseMessage) UnmarshalBinary(b []byte) error {
	body, err := header(b, MessageTypeResponse)
	if err != nil {
		return err
	}
	if len(body) < ec.PointSize || len(body) > ec.PointSize+MaxTagSize {
		return malformed("response has bad length")
	}
	pt, _ := ec.ParsePoint(body[:ec.PointSize])
	m.R = pt
	m.S = nil
	if tag := body[ec.PointSize:]; len(tag) > 0 {
		m.S = bytes.Clone(tag)
	}
	return nil
}

// ConfirmMessage carries the initiator's tag SA.
//
// Format:
//
//	1 byte: type
//	N bytes: SA
type ConfirmMessage struct {
	S []byte
}

func (m ConfirmMessage) MarshalBinary() ([]byte, error) {
	if len(m.S) == 0 || len(m.S) > MaxTagSize {
		return nil, malformed("confirmation tag has bad length")
	}
	return append([]byte{byte(MessageTypeConfirm)}, m.S...), nil
}

func (m *ConfirmMessage) UnmarshalBinary(b []byte) error {
	body, err := header(b, MessageTypeConfirm)
	if err != nil {
		return err
	}
	if len(body) == 0 || len(body) > MaxTagSize {
		return malformed("confirmation tag has bad length")
	}
	m.S = bytes.Clone(body)
	return nil
}
