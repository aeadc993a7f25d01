package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/danmuck/dgtctl/internal/board"
	"github.com/danmuck/dgtctl/internal/observability"
	"github.com/danmuck/dgtctl/internal/protocol"
	"github.com/danmuck/dgtctl/internal/protocol/frame"
	"github.com/rs/zerolog"
)

// Session is one live connection to a board. It owns the port until Done.
type Session struct {
	path    string
	port    io.ReadWriteCloser
	cfg     Config
	deliver func(protocol.Message)
	pending *PendingTable
	logger  zerolog.Logger

	writeSem chan struct{}

	mu    sync.RWMutex
	board board.Board

	closeOnce sync.Once
	errOnce   sync.Once
	err       error
	done      chan struct{}
}

// Start takes ownership of port and starts its read loop. deliver receives
// every message that does not answer a pending query, in arrival order, on
// the read loop goroutine.
func Start(path string, port io.ReadWriteCloser, cfg Config, deliver func(protocol.Message)) *Session {
	if deliver == nil {
		deliver = func(protocol.Message) {}
	}
	s := &Session{
		path:     path,
		port:     port,
		cfg:      cfg.WithDefaults(),
		deliver:  deliver,
		pending:  NewPendingTable(),
		logger:   observability.Component("session").With().Str("path", path).Logger(),
		writeSem: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go s.readLoop()
	return s
}

func (s *Session) Path() string {
	return s.path
}

// Done is closed once the read loop has exited and the port is closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err reports why the session ended, nil while it is live.
func (s *Session) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Board returns the board as last reported by dumps and field updates.
func (s *Session) Board() board.Board {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.board
}

// Pending lists outstanding queries.
func (s *Session) Pending() []PendingRequest {
	return s.pending.List()
}

// Close ends the session. Pending queries fail with ErrDisconnected.
func (s *Session) Close() error {
	return s.CloseWithError(ErrSessionClosed)
}

// CloseWithError ends the session with cause attached to the failures it
// hands to pending queries. Only the first call has any effect.
func (s *Session) CloseWithError(cause error) error {
	var err error
	s.closeOnce.Do(func() {
		s.fail(cause)
		err = s.port.Close()
	})
	return err
}

// Send writes one command. Writes never interleave. A write that fails or
// does not finish within WriteTimeout ends the session.
func (s *Session) Send(ctx context.Context, cmd []byte) error {
	return s.send(ctx, cmd, s.cfg.WriteTimeout)
}

func (s *Session) send(ctx context.Context, cmd []byte, limit time.Duration) error {
	if limit <= 0 || limit > s.cfg.WriteTimeout {
		limit = s.cfg.WriteTimeout
	}
	wctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	select {
	case <-s.done:
		return s.endErr()
	default:
	}

	select {
	case s.writeSem <- struct{}{}:
	case <-s.done:
		return s.endErr()
	case <-wctx.Done():
		return fmt.Errorf("session: write %s: %w", s.path, wctx.Err())
	}

	result := make(chan error, 1)
	go func() {
		_, err := s.port.Write(cmd)
		<-s.writeSem
		result <- err
	}()

	select {
	case err := <-result:
		if err != nil {
			return s.writeFailed(err)
		}
		return nil
	case <-s.done:
		return s.endErr()
	case <-wctx.Done():
		if errors.Is(ctx.Err(), context.Canceled) {
			go s.watchWrite(result, s.cfg.WriteTimeout)
			return ctx.Err()
		}
		return s.writeFailed(fmt.Errorf("%w after %s", ErrWriteStalled, limit))
	}
}

// watchWrite keeps bounding a write whose caller gave up.
func (s *Session) watchWrite(result <-chan error, limit time.Duration) {
	timer := time.NewTimer(limit)
	defer timer.Stop()
	select {
	case err := <-result:
		if err != nil {
			_ = s.writeFailed(err)
		}
	case <-timer.C:
		_ = s.writeFailed(fmt.Errorf("%w after %s", ErrWriteStalled, limit))
	case <-s.done:
	}
}

// writeFailed tears the session down; the port cannot be trusted after a
// failed or partial write.
func (s *Session) writeFailed(err error) error {
	s.logger.Info().Err(err).Msg("session.Session.Send write failed")
	_ = s.CloseWithError(fmt.Errorf("write: %w", err))
	return s.endErr()
}

// Query sends cmd and waits for the reply tagged tag. The request is
// registered before the write so a fast reply is never lost.
func (s *Session) Query(ctx context.Context, cmd []byte, tag protocol.ReplyTag) (protocol.Message, error) {
	return s.QueryWithin(ctx, cmd, tag, s.cfg.QueryTimeout)
}

// QueryWithin is Query with an explicit reply timeout. The timeout runs from
// registration and also bounds the write.
func (s *Session) QueryWithin(ctx context.Context, cmd []byte, tag protocol.ReplyTag, timeout time.Duration) (protocol.Message, error) {
	if timeout <= 0 {
		timeout = s.cfg.QueryTimeout
	}
	start := time.Now()
	msg, err := s.query(ctx, cmd, tag, timeout)
	observability.RecordQuery(tag.String(), queryResult(err), time.Since(start))
	return msg, err
}

func (s *Session) query(ctx context.Context, cmd []byte, tag protocol.ReplyTag, timeout time.Duration) (protocol.Message, error) {
	req, err := s.pending.Register(tag, time.Now())
	if err != nil {
		return nil, err
	}
	defer s.pending.Remove(req)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	if err := s.send(ctx, cmd, timeout); err != nil {
		return nil, err
	}

	select {
	case res := <-req.done:
		return res.msg, res.err
	case <-timer.C:
		s.logger.Debug().Str("tag", tag.String()).Str("request", req.ID).Msg("session.Session.Query timed out")
		return nil, fmt.Errorf("%w: %s after %s", ErrQueryTimeout, tag, timeout)
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s: %w", ErrQueryTimeout, tag, ctx.Err())
		}
		return nil, ctx.Err()
	}
}

func (s *Session) readLoop() {
	dec := frame.NewDecoder(s.cfg.Limits)
	buf := make([]byte, s.cfg.ReadBuffer)
	for {
		n, err := s.port.Read(buf)
		if n > 0 {
			frames, perr := dec.Feed(buf[:n])
			if perr != nil {
				count := protocolErrorCount(perr)
				observability.RecordProtocolErrors(count)
				s.logger.Debug().Err(perr).Int("count", count).Msg("session.Session.readLoop resync")
			}
			for _, f := range frames {
				observability.RecordFrame(f.Type)
				s.route(protocol.Interpret(f))
			}
		}
		if err != nil {
			s.logger.Info().Err(err).Msg("session.Session.readLoop ended")
			s.fail(err)
			_ = s.port.Close()
			close(s.done)
			return
		}
	}
}

func (s *Session) route(msg protocol.Message) {
	switch m := msg.(type) {
	case protocol.Ignored:
		s.logger.Debug().Str("message", m.String()).Msg("session.Session.route ignored")
		return
	case protocol.FieldUpdate:
		s.mu.Lock()
		s.board.Set(m.Square, m.Piece)
		snap := s.board
		s.mu.Unlock()
		s.deliver(protocol.BoardDump{Board: snap})
		return
	case protocol.BoardDump:
		s.mu.Lock()
		s.board = m.Board
		s.mu.Unlock()
	}
	if s.pending.Resolve(msg) {
		return
	}
	s.deliver(msg)
}

// fail records the first end cause and fails every pending query with it.
func (s *Session) fail(cause error) {
	s.errOnce.Do(func() {
		s.err = cause
	})
	s.pending.FailAll(fmt.Errorf("%w: %w", ErrDisconnected, s.err))
}

func (s *Session) endErr() error {
	return fmt.Errorf("%w: %w", ErrDisconnected, s.err)
}

func queryResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrBusy):
		return "busy"
	case errors.Is(err, ErrQueryTimeout):
		return "timeout"
	case errors.Is(err, ErrDisconnected):
		return "disconnected"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

func protocolErrorCount(err error) int {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return len(joined.Unwrap())
	}
	return 1
}
