package protocol

import (
	"fmt"

	"github.com/danmuck/dgtctl/internal/protocol/frame"
)

// Host -> board commands.
const (
	CmdSendReset          byte = 0x40
	CmdSendBoard          byte = 0x42
	CmdSendUpdateBoard    byte = 0x44
	CmdReturnSerialNr     byte = 0x45
	CmdSendTrademark      byte = 0x47
	CmdSendUpdateNice     byte = 0x4b
	CmdSendBatteryStatus  byte = 0x4c
	CmdSendVersion        byte = 0x4d
	CmdReturnLongSerialNr byte = 0x55
)

// Clock sub-commands carried inside frame.ClockCommand.
const (
	ClockDisplay     byte = 0x01
	ClockSendVersion byte = 0x09
	ClockBeep        byte = 0x0b
	ClockASCII       byte = 0x0c

	clockButtonAck byte = 0x88
)

// Board -> host message types, message bit included.
const (
	MsgBoardDump     = frame.MessageBit | 0x06
	MsgBWTime        = frame.MessageBit | 0x0d
	MsgFieldUpdate   = frame.MessageBit | 0x0e
	MsgEEMoves       = frame.MessageBit | 0x0f
	MsgBusAddress    = frame.MessageBit | 0x10
	MsgSerialNr      = frame.MessageBit | 0x11
	MsgTrademark     = frame.MessageBit | 0x12
	MsgVersion       = frame.MessageBit | 0x13
	MsgBoardDump50B  = frame.MessageBit | 0x14
	MsgBoardDump50W  = frame.MessageBit | 0x15
	MsgBatteryStatus = frame.MessageBit | 0x20
	MsgLongSerialNr  = frame.MessageBit | 0x22
)

var fixedPayload = map[byte]int{
	MsgBoardDump:   64,
	MsgBWTime:      7,
	MsgFieldUpdate: 2,
	MsgVersion:     2,
}

// FrameLimits returns decoder limits that know the fixed-size DGT messages.
func FrameLimits() frame.Limits {
	limits := frame.DefaultLimits()
	limits.Expected = func(msgType byte) (int, bool) {
		n, ok := fixedPayload[msgType]
		return n, ok
	}
	return limits
}

// ReplyTag names the query a message can answer.
type ReplyTag int

const (
	TagNone ReplyTag = iota
	TagBoard
	TagVersion
	TagSerialNumber
	TagLongSerialNumber
	TagBatteryStatus
	TagTrademark
	TagClockVersion
	TagClockAck
)

var tagNames = map[ReplyTag]string{
	TagNone:             "none",
	TagBoard:            "board",
	TagVersion:          "version",
	TagSerialNumber:     "serialnr",
	TagLongSerialNumber: "long_serialnr",
	TagBatteryStatus:    "battery_status",
	TagTrademark:        "trademark",
	TagClockVersion:     "clock_version",
	TagClockAck:         "clock_ack",
}

func (t ReplyTag) String() string {
	if s, ok := tagNames[t]; ok {
		return s
	}
	return fmt.Sprintf("tag(%d)", int(t))
}

// Version is a board or clock firmware version.
type Version struct {
	Major int
	Minor int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}
