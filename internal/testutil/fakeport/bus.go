package fakeport

import (
	"io"
	"sync"

	"github.com/danmuck/dgtctl/internal/transport"
)

// Bus maps device paths to ports and opens them like transport.Opener.
// Each attached port can be opened once; reattach to simulate a replug.
type Bus struct {
	mu    sync.Mutex
	ports map[string]*Port
	fails map[string]error
	opens []string
}

func NewBus() *Bus {
	return &Bus{
		ports: make(map[string]*Port),
		fails: make(map[string]error),
	}
}

func (b *Bus) Attach(path string, p *Port) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.fails, path)
	b.ports[path] = p
}

// Fail makes opening path return err until a port is attached.
func (b *Bus) Fail(path string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.ports, path)
	b.fails[path] = err
}

func (b *Bus) Open(path string) (io.ReadWriteCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opens = append(b.opens, path)
	if err, ok := b.fails[path]; ok {
		return nil, &transport.Error{Op: "open", Path: path, Err: err}
	}
	p, ok := b.ports[path]
	if !ok {
		return nil, &transport.Error{Op: "open", Path: path, Err: ErrNoDevice}
	}
	delete(b.ports, path)
	return p, nil
}

// Opens lists every path an open was attempted on, in order.
func (b *Bus) Opens() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.opens))
	copy(out, b.opens)
	return out
}

var _ transport.Opener = (*Bus)(nil)
