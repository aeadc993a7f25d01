package dgt

import (
	"context"
	"sync"
	"time"

	"github.com/danmuck/dgtctl/internal/board"
	"github.com/danmuck/dgtctl/internal/events"
	"github.com/danmuck/dgtctl/internal/observability"
	"github.com/danmuck/dgtctl/internal/protocol"
	"github.com/danmuck/dgtctl/internal/protocol/frame"
	"github.com/danmuck/dgtctl/internal/protocol/session"
	"github.com/danmuck/dgtctl/internal/transport"
	"github.com/rs/zerolog"
)

const inboxSize = 64

// Connection is an auto-reconnecting board handle.
type Connection struct {
	patterns []string
	opts     options
	pub      *events.Publisher
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// runMu is held by the supervisor except while handlers run.
	runMu sync.Mutex

	mu           sync.RWMutex
	state        State
	sess         *session.Session
	opening      *session.Session
	clock        *protocol.Clock
	clockVersion *protocol.Version

	clockMu   sync.Mutex
	closeOnce sync.Once
}

// AutoConnect starts a supervisor that keeps one board from patterns
// connected until Close. It never fails: missing boards are retried with
// backoff.
func AutoConnect(patterns []string, opts ...Option) *Connection {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.cfg = o.cfg.WithDefaults()

	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		patterns: append([]string(nil), patterns...),
		opts:     o,
		pub:      events.New(o.logger),
		logger:   o.logger,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		state:    StateIdle,
	}
	for _, reg := range o.handlers {
		c.pub.On(reg.name, reg.h)
	}
	go c.run()
	return c
}

// On registers h for event name. Handlers run on the supervisor goroutine.
func (c *Connection) On(name string, h events.Handler) {
	c.pub.On(name, h)
}

func (c *Connection) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Port returns the connected device path, empty while disconnected.
func (c *Connection) Port() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.sess == nil {
		return ""
	}
	return c.sess.Path()
}

// Board returns the last known position, empty while disconnected.
func (c *Connection) Board() board.Board {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.sess == nil {
		return board.Board{}
	}
	return c.sess.Board()
}

// Clock returns the last clock reading, if one arrived on this connection.
func (c *Connection) Clock() (protocol.Clock, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.clock == nil {
		return protocol.Clock{}, false
	}
	return *c.clock, true
}

// Done is closed once the supervisor has exited. After Close it may still be
// finishing a handler that was running when Close was called.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Close stops reconnecting and releases the board, including one that is
// still handshaking. Pending queries fail with ErrClosed. When Close returns
// the supervisor has either exited or is parked in a handler, and no handler
// starts afterwards. Handlers may call Close.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		c.mu.Lock()
		sess := c.sess
		if sess == nil {
			sess = c.opening
		}
		c.state = StateClosed
		c.mu.Unlock()
		if sess != nil {
			err = sess.CloseWithError(ErrClosed)
		}
		c.logger.Info().Msg("dgt.Connection.Close")
	})
	c.runMu.Lock()
	c.runMu.Unlock()
	return err
}

func (c *Connection) run() {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	defer close(c.done)
	backoff := session.NewBackoff(c.opts.cfg.Backoff)
	for c.ctx.Err() == nil {
		c.setState(StateConnecting)
		sess, inbox := c.connect()
		if sess != nil {
			backoff.Reset()
			c.serve(sess, inbox)
		}
		if c.ctx.Err() != nil {
			return
		}
		c.setState(StateDisconnected)
		delay := backoff.Next()
		c.logger.Debug().
			Dur("delay", delay).
			Int("attempt", backoff.Attempt()).
			Msg("dgt.Connection.run backoff")
		if !sleep(c.ctx, delay) {
			return
		}
	}
}

// connect tries every candidate once and returns the first live session.
func (c *Connection) connect() (*session.Session, chan protocol.Message) {
	candidates := c.opts.discoverer.Discover(c.patterns)
	if len(candidates) == 0 {
		c.logger.Debug().Strs("patterns", c.patterns).Msg("dgt.Connection.connect no candidates")
	}
	for _, path := range candidates {
		if c.ctx.Err() != nil {
			return nil, nil
		}
		sess, inbox, err := c.open(path)
		if err != nil && c.ctx.Err() != nil {
			return nil, nil
		}
		if err != nil {
			observability.RecordOpenFailure(path)
			c.logger.Warn().Err(err).Str("path", path).Msg("dgt.Connection.connect open failed")
			continue
		}

		c.mu.Lock()
		if c.ctx.Err() != nil {
			c.mu.Unlock()
			_ = sess.CloseWithError(ErrClosed)
			<-sess.Done()
			return nil, nil
		}
		c.sess = sess
		c.state = StateConnected
		c.mu.Unlock()

		observability.RecordConnect(path)
		c.logger.Info().Str("path", path).Msg("dgt.Connection.connect connected")
		c.emit(EventConnected, path)
		return sess, inbox
	}
	return nil, nil
}

func (c *Connection) open(path string) (*session.Session, chan protocol.Message, error) {
	port, err := c.opts.opener.Open(path)
	if err != nil {
		return nil, nil, err
	}
	inbox := make(chan protocol.Message, inboxSize)
	sess := session.Start(path, port, c.opts.cfg, func(m protocol.Message) {
		select {
		case inbox <- m:
		case <-c.ctx.Done():
		}
	})
	c.mu.Lock()
	if c.ctx.Err() != nil {
		c.mu.Unlock()
		_ = sess.CloseWithError(ErrClosed)
		<-sess.Done()
		return nil, nil, ErrClosed
	}
	c.opening = sess
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.opening = nil
		c.mu.Unlock()
	}()

	for _, cmd := range [][]byte{
		frame.Command(protocol.CmdSendUpdateNice),
		frame.Command(protocol.CmdSendBoard),
	} {
		if err := sess.Send(c.ctx, cmd); err != nil {
			_ = sess.Close()
			<-sess.Done()
			return nil, nil, err
		}
	}
	return sess, inbox, nil
}

// serve dispatches unsolicited messages until the session ends.
func (c *Connection) serve(sess *session.Session, inbox chan protocol.Message) {
	for {
		select {
		case m := <-inbox:
			c.handle(m)
		case <-sess.Done():
			c.drain(inbox)
			c.mu.Lock()
			c.sess = nil
			c.clock = nil
			c.clockVersion = nil
			if c.state != StateClosed {
				c.state = StateDisconnected
			}
			c.mu.Unlock()
			reason := disconnectReason(sess.Err())
			observability.RecordDisconnect(reason)
			c.logger.Info().
				Err(sess.Err()).
				Str("path", sess.Path()).
				Str("reason", reason).
				Msg("dgt.Connection.serve disconnected")
			c.emit(EventDisconnected)
			return
		case <-c.ctx.Done():
			<-sess.Done()
			c.mu.Lock()
			c.sess = nil
			c.mu.Unlock()
			return
		}
	}
}

func (c *Connection) drain(inbox chan protocol.Message) {
	for {
		select {
		case m := <-inbox:
			c.handle(m)
		default:
			return
		}
	}
}

func (c *Connection) handle(msg protocol.Message) {
	switch m := msg.(type) {
	case protocol.BoardDump:
		c.emit(EventBoard, m.Board)
	case protocol.ClockTime:
		c.mu.Lock()
		changed := c.clock == nil || *c.clock != m.Clock
		if changed {
			clk := m.Clock
			c.clock = &clk
		}
		c.mu.Unlock()
		if changed {
			c.emit(EventClock, m.Clock)
		}
	case protocol.ButtonPress:
		c.emit(EventButtonPressed, m.Button)
	case protocol.ClockAck:
		if m.Command == protocol.ClockSendVersion {
			c.cacheClockVersion(nil, m.Version)
		}
		c.logger.Debug().Uint8("command", m.Command).Msg("dgt.Connection.handle clock ack")
	default:
		c.logger.Debug().Str("tag", msg.Tag().String()).Msg("dgt.Connection.handle unsolicited reply")
	}
}

func (c *Connection) emit(name string, args ...any) {
	if c.ctx.Err() != nil {
		return
	}
	c.runMu.Unlock()
	defer c.runMu.Lock()
	c.pub.Emit(c.ctx, name, args...)
}

func disconnectReason(err error) string {
	if transport.IsDisconnect(err) {
		return "unplugged"
	}
	return "error"
}

func (c *Connection) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateClosed {
		c.state = s
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
