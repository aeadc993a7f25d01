// Package transport opens DGT boards on serial devices.
package transport

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.bug.st/serial"
)

const DefaultBaudRate = 9600

// Opener opens one device path as a byte stream.
type Opener interface {
	Open(path string) (io.ReadWriteCloser, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(path string) (io.ReadWriteCloser, error)

func (f OpenerFunc) Open(path string) (io.ReadWriteCloser, error) {
	return f(path)
}

// Error is a transport level failure on one device.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// SerialOpener opens devices with go.bug.st/serial at 8N1.
type SerialOpener struct {
	BaudRate int
}

func (o SerialOpener) Open(path string) (io.ReadWriteCloser, error) {
	baud := o.BaudRate
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	port, err := serial.Open(path, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, &Error{Op: "open", Path: path, Err: err}
	}
	if err := port.ResetInputBuffer(); err != nil {
		_ = port.Close()
		return nil, &Error{Op: "open", Path: path, Err: err}
	}
	return &serialPort{port: port, path: path}, nil
}

// serialPort maps the library's quiet end-of-stream onto io.EOF. With no read
// timeout set, a zero byte read only happens once the device is gone.
type serialPort struct {
	port      serial.Port
	path      string
	closeOnce sync.Once
	closeErr  error
}

func (p *serialPort) Read(b []byte) (int, error) {
	n, err := p.port.Read(b)
	if err != nil {
		return n, &Error{Op: "read", Path: p.path, Err: err}
	}
	if n == 0 && len(b) > 0 {
		return 0, &Error{Op: "read", Path: p.path, Err: io.EOF}
	}
	return n, nil
}

func (p *serialPort) Write(b []byte) (int, error) {
	n, err := p.port.Write(b)
	if err != nil {
		return n, &Error{Op: "write", Path: p.path, Err: err}
	}
	return n, nil
}

func (p *serialPort) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.port.Close()
	})
	return p.closeErr
}

// IsDisconnect reports whether err means the device went away rather than a
// configuration or permission problem.
func IsDisconnect(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	var portErrPtr *serial.PortError
	if errors.As(err, &portErrPtr) {
		return disconnectCode(portErrPtr.Code())
	}
	var portErr serial.PortError
	if errors.As(err, &portErr) {
		return disconnectCode(portErr.Code())
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "input/output error") ||
		strings.Contains(msg, "no such device") ||
		strings.Contains(msg, "device not configured") ||
		strings.Contains(msg, "broken pipe")
}

func disconnectCode(code serial.PortErrorCode) bool {
	switch code {
	case serial.PortNotFound, serial.PortClosed, serial.InvalidSerialPort:
		return true
	default:
		return false
	}
}
