package dgt

import "errors"

var (
	ErrNotConnected = errors.New("dgt: not connected")
	ErrClosed       = errors.New("dgt: connection closed")
	ErrClockText    = errors.New("dgt: clock text must be printable ascii")
	ErrUnexpected   = errors.New("dgt: unexpected reply")
)
