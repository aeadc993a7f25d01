package protocol

import (
	"fmt"
	"time"

	"github.com/danmuck/dgtctl/internal/board"
	"github.com/danmuck/dgtctl/internal/protocol/frame"
)

// Message is one interpreted board message.
type Message interface {
	// Tag names the query this message answers, TagNone if it is push-only.
	Tag() ReplyTag
}

type BoardDump struct {
	Board board.Board
}

type FieldUpdate struct {
	Square int
	Piece  board.Piece
}

type VersionReply struct {
	Version Version
}

type SerialNumber struct {
	Value string
}

type LongSerialNumber struct {
	Value string
}

type BatteryStatus struct {
	Value string
}

type Trademark struct {
	Value string
}

// Clock is the time shown on a DGT clock attached to the board.
type Clock struct {
	LeftTime  time.Duration
	RightTime time.Duration
	LeftUp    bool
}

type ClockTime struct {
	Clock Clock
}

// ClockAck acknowledges a clock command; Version is set for version acks.
type ClockAck struct {
	Command byte
	Version Version
}

type ButtonPress struct {
	Button int
}

// Ignored is any frame that carries nothing this client acts on.
type Ignored struct {
	Type   byte
	Reason error
}

func (BoardDump) Tag() ReplyTag        { return TagBoard }
func (FieldUpdate) Tag() ReplyTag      { return TagNone }
func (VersionReply) Tag() ReplyTag     { return TagVersion }
func (SerialNumber) Tag() ReplyTag     { return TagSerialNumber }
func (LongSerialNumber) Tag() ReplyTag { return TagLongSerialNumber }
func (BatteryStatus) Tag() ReplyTag    { return TagBatteryStatus }
func (Trademark) Tag() ReplyTag        { return TagTrademark }
func (ClockTime) Tag() ReplyTag        { return TagNone }
func (ButtonPress) Tag() ReplyTag      { return TagNone }
func (Ignored) Tag() ReplyTag          { return TagNone }

func (a ClockAck) Tag() ReplyTag {
	if a.Command == ClockSendVersion {
		return TagClockVersion
	}
	return TagClockAck
}

func (i Ignored) String() string {
	return fmt.Sprintf("ignored{type=0x%02x reason=%v}", i.Type, i.Reason)
}

// Interpret maps a frame to its typed message. It never fails: anything it
// cannot use comes back as Ignored with the reason attached.
func Interpret(f frame.Frame) Message {
	p := f.Payload
	switch f.Type {
	case MsgBoardDump:
		b, err := board.FromBytes(p)
		if err != nil {
			return Ignored{Type: f.Type, Reason: fmt.Errorf("%w: %v", ErrTruncated, err)}
		}
		return BoardDump{Board: b}
	case MsgFieldUpdate:
		if len(p) < 2 {
			return Ignored{Type: f.Type, Reason: ErrTruncated}
		}
		if int(p[0]) >= board.Squares {
			return Ignored{Type: f.Type, Reason: fmt.Errorf("%w: %d", ErrInvalidSquare, p[0])}
		}
		return FieldUpdate{Square: int(p[0]), Piece: board.Piece(p[1])}
	case MsgVersion:
		if len(p) < 2 {
			return Ignored{Type: f.Type, Reason: ErrTruncated}
		}
		return VersionReply{Version: Version{Major: int(p[0]), Minor: int(p[1])}}
	case MsgSerialNr:
		return SerialNumber{Value: ascii(p, false)}
	case MsgLongSerialNr:
		return LongSerialNumber{Value: ascii(p, false)}
	case MsgBatteryStatus:
		return BatteryStatus{Value: ascii(p, true)}
	case MsgTrademark:
		return Trademark{Value: ascii(p, false)}
	case MsgBWTime:
		return interpretBWTime(p)
	default:
		return Ignored{Type: f.Type, Reason: ErrUnknownType}
	}
}

func interpretBWTime(m []byte) Message {
	if len(m) < 7 {
		return Ignored{Type: MsgBWTime, Reason: ErrTruncated}
	}

	if m[0]&0x0f == 0x0a || m[3] == 0x0a {
		ack0 := (m[1] & 0x7f) | (m[3]<<3)&0x80
		ack1 := (m[2] & 0x7f) | (m[3]<<2)&0x80
		ack2 := (m[4] & 0x7f) | (m[0]<<3)&0x80
		ack3 := (m[5] & 0x7f) | (m[0]<<2)&0x80
		if ack0 != 0x10 {
			return Ignored{Type: MsgBWTime, Reason: fmt.Errorf("%w: ack0=0x%02x", ErrClockAck, ack0)}
		}
		switch ack1 {
		case clockButtonAck:
			if ack3 < '0' || ack3 > '9' {
				return Ignored{Type: MsgBWTime, Reason: fmt.Errorf("%w: button=0x%02x", ErrClockAck, ack3)}
			}
			return ButtonPress{Button: int(ack3 - '0')}
		case ClockSendVersion:
			return ClockAck{Command: ack1, Version: Version{Major: int(ack2 >> 4), Minor: int(ack2 & 0x0f)}}
		default:
			return ClockAck{Command: ack1}
		}
	}

	if !anyNonZero(m[:6]) {
		return Ignored{Type: MsgBWTime, Reason: ErrUnknownClockMsg}
	}
	right := clockTime(m[0], m[1], m[2])
	left := clockTime(m[3], m[4], m[5])
	return ClockTime{Clock: Clock{
		LeftTime:  left,
		RightTime: right,
		LeftUp:    m[6]&0x10 != 0,
	}}
}

func clockTime(hours, mins, secs byte) time.Duration {
	h := int(hours & 0x0f)
	return time.Duration(h)*time.Hour +
		time.Duration(bcd(mins))*time.Minute +
		time.Duration(bcd(secs))*time.Second
}

func bcd(b byte) int {
	return int(b>>4)*10 + int(b&0x0f)
}

func anyNonZero(p []byte) bool {
	for _, c := range p {
		if c != 0 {
			return true
		}
	}
	return false
}

func ascii(p []byte, dropNUL bool) string {
	out := make([]byte, 0, len(p))
	for _, c := range p {
		if dropNUL && c == 0 {
			continue
		}
		out = append(out, c)
	}
	return string(out)
}
