// Package fakeport simulates a DGT board on an in-memory byte stream.
package fakeport

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"time"
)

// Responder answers one written command with zero or more raw frames.
type Responder func(cmd []byte) [][]byte

// Port is an io.ReadWriteCloser backed by an in-memory read buffer.
// Reads block until bytes are pushed, the port is unplugged, or closed.
type Port struct {
	mu        sync.Mutex
	cond      *sync.Cond
	buf       bytes.Buffer
	chunk     int
	writes    [][]byte
	respond   Responder
	writeErr  error
	stall     bool
	unplugErr error
	closed    bool
}

func New() *Port {
	p := &Port{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// SetResponder installs r; it runs on the writer's goroutine.
func (p *Port) SetResponder(r Responder) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.respond = r
}

// SetChunk caps how many bytes one Read returns, 0 for no cap.
func (p *Port) SetChunk(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chunk = n
}

// FailWrites makes every later Write return err.
func (p *Port) FailWrites(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeErr = err
}

// StallWrites makes later Writes block until the port is closed or the
// stall is lifted.
func (p *Port) StallWrites(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stall = on
	p.cond.Broadcast()
}

// Push queues raw bytes for the reader.
func (p *Port) Push(frames ...[]byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, f := range frames {
		p.buf.Write(f)
	}
	p.cond.Broadcast()
}

// Unplug ends the stream: once buffered bytes are drained, Read returns err
// (io.EOF when err is nil).
func (p *Port) Unplug(err error) {
	if err == nil {
		err = io.EOF
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.unplugErr == nil {
		p.unplugErr = err
	}
	p.cond.Broadcast()
}

func (p *Port) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.buf.Len() == 0 && p.unplugErr == nil && !p.closed {
		p.cond.Wait()
	}
	if p.closed {
		return 0, io.ErrClosedPipe
	}
	if p.buf.Len() == 0 {
		return 0, p.unplugErr
	}
	if p.chunk > 0 && len(b) > p.chunk {
		b = b[:p.chunk]
	}
	return p.buf.Read(b)
}

func (p *Port) Write(b []byte) (int, error) {
	p.mu.Lock()
	for p.stall && !p.closed {
		p.cond.Wait()
	}
	if p.closed {
		p.mu.Unlock()
		return 0, io.ErrClosedPipe
	}
	if p.writeErr != nil {
		err := p.writeErr
		p.mu.Unlock()
		return 0, err
	}
	if p.unplugErr != nil {
		err := p.unplugErr
		p.mu.Unlock()
		return 0, err
	}
	cmd := append([]byte(nil), b...)
	p.writes = append(p.writes, cmd)
	respond := p.respond
	p.cond.Broadcast()
	p.mu.Unlock()

	if respond != nil {
		p.Push(respond(cmd)...)
	}
	return len(b), nil
}

func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.cond.Broadcast()
	return nil
}

func (p *Port) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Writes returns a copy of every command written so far.
func (p *Port) Writes() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.writes))
	copy(out, p.writes)
	return out
}

// WaitWrites polls until at least n commands were written or timeout passes.
func (p *Port) WaitWrites(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		p.mu.Lock()
		got := len(p.writes)
		p.mu.Unlock()
		if got >= n {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
}

var ErrNoDevice = errors.New("fakeport: no such device")
