package types

import (
	"encoding/binary"
	"fmt"

	"github.com/ehrlich-b/microkernel/internal/constants"
)

// MsgType is the closed enumeration of message variants an endpoint can
// carry.
type MsgType uint32

const (
	MsgNone MsgType = iota
	MsgLog
	MsgEcho
	MsgEchoReply
	MsgTimerTick
	MsgHeartbeat
	MsgCrash
)

func (t MsgType) String() string {
	switch t {
	case MsgNone:
		return "NONE"
	case MsgLog:
		return "LOG"
	case MsgEcho:
		return "ECHO"
	case MsgEchoReply:
		return "ECHO_REPLY"
	case MsgTimerTick:
		return "TIMER_TICK"
	case MsgHeartbeat:
		return "HEARTBEAT"
	case MsgCrash:
		return "CRASH"
	default:
		return fmt.Sprintf("MsgType(%d)", uint32(t))
	}
}

// Message is the fixed-layout IPC record. Messages are value-copied at every
// hop: there is no aliasing between a sender's message and what a receiver
// observes.
//
// Wire layout (76 bytes total). Marshal and Unmarshal always use
// little-endian integers, whatever the host byte order:
//
//	offset 0   size 4   type
//	offset 4   size 4   sender
//	offset 8   size 4   payload_len
//	offset 12  size 64  payload
type Message struct {
	Type       MsgType
	Sender     EndpointID
	PayloadLen uint32
	Payload    [constants.MaxPayload]byte
}

// WireSize is the byte-exact size of a marshaled Message.
const WireSize = 4 + 4 + 4 + constants.MaxPayload

// NewMessage builds a Message from a type, sender and payload. A payload
// longer than constants.MaxPayload is a programming error, so it returns an
// error rather than truncating silently.
func NewMessage(t MsgType, sender EndpointID, payload []byte) (Message, error) {
	var m Message
	if len(payload) > constants.MaxPayload {
		return m, fmt.Errorf("payload length %d exceeds max %d", len(payload), constants.MaxPayload)
	}
	m.Type = t
	m.Sender = sender
	m.PayloadLen = uint32(len(payload))
	copy(m.Payload[:], payload)
	return m, nil
}

// PayloadBytes returns the valid prefix of the payload buffer.
func (m *Message) PayloadBytes() []byte {
	n := m.PayloadLen
	if n > constants.MaxPayload {
		n = constants.MaxPayload
	}
	return m.Payload[:n]
}

// Marshal encodes a Message into its 76-byte wire layout.
func Marshal(m *Message) []byte {
	buf := make([]byte, WireSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(m.Type))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(m.Sender))
	binary.LittleEndian.PutUint32(buf[8:12], m.PayloadLen)
	copy(buf[12:12+constants.MaxPayload], m.Payload[:])
	return buf
}

// Unmarshal decodes a 76-byte wire buffer into a Message.
func Unmarshal(data []byte) (Message, error) {
	var m Message
	if len(data) < WireSize {
		return m, fmt.Errorf("message buffer too short: got %d want %d", len(data), WireSize)
	}
	m.Type = MsgType(binary.LittleEndian.Uint32(data[0:4]))
	m.Sender = EndpointID(binary.LittleEndian.Uint32(data[4:8]))
	m.PayloadLen = binary.LittleEndian.Uint32(data[8:12])
	copy(m.Payload[:], data[12:12+constants.MaxPayload])
	return m, nil
}
