package protocol

import "errors"

var (
	ErrTruncated       = errors.New("protocol: truncated payload")
	ErrUnknownType     = errors.New("protocol: unknown message type")
	ErrClockAck        = errors.New("protocol: clock ack error")
	ErrUnknownClockMsg = errors.New("protocol: unknown clock message")
	ErrInvalidSquare   = errors.New("protocol: field update square out of range")
)
