package session

import "errors"

var (
	ErrBusy          = errors.New("session: query already pending for reply tag")
	ErrQueryTimeout  = errors.New("session: query timed out")
	ErrDisconnected  = errors.New("session: disconnected")
	ErrSessionClosed = errors.New("session: closed")
	ErrWriteStalled  = errors.New("session: write stalled")
)
