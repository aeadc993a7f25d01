package session

import (
	"sort"
	"sync"
	"time"

	"github.com/danmuck/dgtctl/internal/protocol"
	"github.com/google/uuid"
)

// PendingRequest tracks one query awaiting its tagged reply.
type PendingRequest struct {
	ID        string
	Tag       protocol.ReplyTag
	StartedAt time.Time

	done chan result
}

type result struct {
	msg protocol.Message
	err error
}

// PendingTable stores at most one outstanding request per reply tag.
type PendingTable struct {
	mu     sync.Mutex
	items  map[protocol.ReplyTag]*PendingRequest
	closed error
}

func NewPendingTable() *PendingTable {
	return &PendingTable{
		items: make(map[protocol.ReplyTag]*PendingRequest),
	}
}

// Register claims tag for a new request. It fails with ErrBusy while another
// request holds the tag, and with the failure cause once FailAll has run.
func (t *PendingTable) Register(tag protocol.ReplyTag, now time.Time) (*PendingRequest, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed != nil {
		return nil, t.closed
	}
	if _, ok := t.items[tag]; ok {
		return nil, ErrBusy
	}
	req := &PendingRequest{
		ID:        uuid.NewString(),
		Tag:       tag,
		StartedAt: now,
		done:      make(chan result, 1),
	}
	t.items[tag] = req
	return req, nil
}

// Resolve hands msg to the request registered for its tag.
func (t *PendingTable) Resolve(msg protocol.Message) bool {
	tag := msg.Tag()
	if tag == protocol.TagNone {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	req, ok := t.items[tag]
	if !ok {
		return false
	}
	delete(t.items, tag)
	req.done <- result{msg: msg}
	return true
}

// Remove drops req if it still owns its tag.
func (t *PendingTable) Remove(req *PendingRequest) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.items[req.Tag]; ok && cur == req {
		delete(t.items, req.Tag)
	}
}

// FailAll fails every outstanding request with err and refuses new ones.
func (t *PendingTable) FailAll(err error) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed == nil {
		t.closed = err
	}
	n := 0
	for tag, req := range t.items {
		req.done <- result{err: err}
		delete(t.items, tag)
		n++
	}
	return n
}

// List returns a snapshot ordered by start time.
func (t *PendingTable) List() []PendingRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]PendingRequest, 0, len(t.items))
	for _, req := range t.items {
		out = append(out, PendingRequest{ID: req.ID, Tag: req.Tag, StartedAt: req.StartedAt})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}
