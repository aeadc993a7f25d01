package frame

import (
	"errors"
	"fmt"
)

const (
	HeaderLen = 3

	// MessageBit is set on every board->host message type byte.
	MessageBit byte = 0x80

	// MaxDeclaredLen is the largest total length two 7-bit bytes can carry.
	MaxDeclaredLen = 0x3fff

	ClockMessage byte = 0x2b
	ClockStart   byte = 0x03
	ClockEnd     byte = 0x00
)

var (
	ErrInvalidType     = errors.New("frame: type byte missing message bit")
	ErrInvalidLength   = errors.New("frame: length byte has high bit set")
	ErrLengthTooSmall  = errors.New("frame: declared length smaller than header")
	ErrPayloadTooLarge = errors.New("frame: payload too large")
	ErrLengthMismatch  = errors.New("frame: payload length does not match message type")
)

// Frame is one complete board message: type byte plus payload, header stripped.
type Frame struct {
	Type    byte
	Payload []byte
}

func (f Frame) String() string {
	return fmt.Sprintf("frame{type=0x%02x len=%d}", f.Type, len(f.Payload))
}

// Limits constrains what the decoder accepts as a header.
type Limits struct {
	MaxPayloadBytes int
	// Expected reports the fixed payload size for a message type, if it has one.
	Expected func(msgType byte) (int, bool)
}

func DefaultLimits() Limits {
	return Limits{MaxPayloadBytes: 1024}
}

// ProtocolError describes one byte discarded while resynchronizing.
type ProtocolError struct {
	Offset int64
	Byte   byte
	Err    error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("frame: dropped byte 0x%02x at offset %d: %v", e.Byte, e.Offset, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// DeclaredLen returns the total message length (header included) carried by
// the two length bytes.
func DeclaredLen(hi, lo byte) int {
	return int(hi)<<7 | int(lo)
}

// Encode renders f in wire form. It is the inverse of the decoder and is used
// to simulate the board side.
func Encode(f Frame) []byte {
	total := HeaderLen + len(f.Payload)
	buf := make([]byte, 0, total)
	buf = append(buf, f.Type, byte(total>>7)&0x7f, byte(total)&0x7f)
	return append(buf, f.Payload...)
}

// Command renders a single-byte host command.
func Command(code byte) []byte {
	return []byte{code}
}

// ClockCommand wraps body in the clock message envelope.
func ClockCommand(body ...byte) []byte {
	buf := make([]byte, 0, len(body)+4)
	buf = append(buf, ClockMessage, byte(len(body)+2), ClockStart)
	buf = append(buf, body...)
	return append(buf, ClockEnd)
}
