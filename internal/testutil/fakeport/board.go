package fakeport

import (
	"time"

	"github.com/danmuck/dgtctl/internal/board"
	"github.com/danmuck/dgtctl/internal/protocol"
	"github.com/danmuck/dgtctl/internal/protocol/frame"
)

// Device is the state a simulated board answers queries from.
type Device struct {
	Board        board.Board
	Version      protocol.Version
	Serial       string
	LongSerial   string
	Battery      string
	Trademark    string
	ClockVersion *protocol.Version
	Silent       map[byte]bool
}

// Responder answers board commands from d. Commands listed in Silent get no
// reply, and clock commands are only acknowledged when a clock is present.
func (d *Device) Responder() Responder {
	return func(cmd []byte) [][]byte {
		if len(cmd) == 0 || d.Silent[cmd[0]] {
			return nil
		}
		switch cmd[0] {
		case protocol.CmdSendBoard:
			return [][]byte{BoardDump(d.Board)}
		case protocol.CmdSendVersion:
			return [][]byte{Message(protocol.MsgVersion, byte(d.Version.Major), byte(d.Version.Minor))}
		case protocol.CmdReturnSerialNr:
			return [][]byte{Message(protocol.MsgSerialNr, []byte(d.Serial)...)}
		case protocol.CmdReturnLongSerialNr:
			return [][]byte{Message(protocol.MsgLongSerialNr, []byte(d.LongSerial)...)}
		case protocol.CmdSendBatteryStatus:
			return [][]byte{Message(protocol.MsgBatteryStatus, []byte(d.Battery)...)}
		case protocol.CmdSendTrademark:
			return [][]byte{Message(protocol.MsgTrademark, []byte(d.Trademark)...)}
		case frame.ClockMessage:
			if d.ClockVersion == nil || len(cmd) < 4 {
				return nil
			}
			sub := cmd[3]
			if sub == protocol.ClockSendVersion {
				v := byte(d.ClockVersion.Major<<4 | d.ClockVersion.Minor&0x0f)
				return [][]byte{ClockAck(sub, v, 0)}
			}
			return [][]byte{ClockAck(sub, 0, 0)}
		}
		return nil
	}
}

// Message encodes one board-to-host frame.
func Message(msgType byte, payload ...byte) []byte {
	return frame.Encode(frame.Frame{Type: msgType, Payload: payload})
}

func BoardDump(b board.Board) []byte {
	payload := make([]byte, board.Squares)
	for i, p := range b {
		payload[i] = byte(p)
	}
	return Message(protocol.MsgBoardDump, payload...)
}

func FieldUpdate(square int, p board.Piece) []byte {
	return Message(protocol.MsgFieldUpdate, byte(square), byte(p))
}

// ClockAck encodes a clock acknowledgement for the given ack bytes, with the
// high bits folded into the nibble positions the board uses.
func ClockAck(ack1, ack2, ack3 byte) []byte {
	const ack0 byte = 0x10
	m := make([]byte, 7)
	m[0] = 0x0a | (ack2&0x80)>>3 | (ack3&0x80)>>2
	m[1] = ack0 & 0x7f
	m[2] = ack1 & 0x7f
	m[3] = 0x0a | (ack0&0x80)>>3 | (ack1&0x80)>>2
	m[4] = ack2 & 0x7f
	m[5] = ack3 & 0x7f
	return Message(protocol.MsgBWTime, m...)
}

// ButtonPress encodes a clock button ack for button n.
func ButtonPress(n int) []byte {
	return ClockAck(0x88, 0, byte('0'+n))
}

// ClockTime encodes a running clock reading.
func ClockTime(left, right time.Duration, leftUp bool) []byte {
	m := make([]byte, 7)
	encodeTime(m[0:3], right)
	encodeTime(m[3:6], left)
	if leftUp {
		m[6] = 0x10
	}
	return Message(protocol.MsgBWTime, m...)
}

func encodeTime(dst []byte, d time.Duration) {
	secs := int(d / time.Second)
	dst[0] = byte(secs / 3600 % 10)
	dst[1] = bcd(secs / 60 % 60)
	dst[2] = bcd(secs % 60)
}

func bcd(n int) byte {
	return byte(n/10<<4 | n%10)
}
