// Package events dispatches named notifications to registered handlers.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

var ErrHandlerPanic = errors.New("events: handler panic")

// Handler receives the positional arguments of one emission.
type Handler func(args ...any) error

// Publisher maps event names to handlers kept in registration order.
// Handler failures are logged and never reach the emitter.
type Publisher struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   zerolog.Logger
}

func New(logger zerolog.Logger) *Publisher {
	return &Publisher{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

func (p *Publisher) On(name string, h Handler) {
	if h == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[name] = append(p.handlers[name], h)
}

// Count reports how many handlers are registered for name.
func (p *Publisher) Count(name string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.handlers[name])
}

// Emit calls every handler for name synchronously and returns how many ran.
// Dispatch stops before the next handler once ctx is done.
func (p *Publisher) Emit(ctx context.Context, name string, args ...any) int {
	p.mu.RLock()
	list := make([]Handler, len(p.handlers[name]))
	copy(list, p.handlers[name])
	p.mu.RUnlock()

	ran := 0
	for i, h := range list {
		if ctx.Err() != nil {
			break
		}
		ran++
		if err := call(h, args); err != nil {
			p.logger.Warn().
				Err(err).
				Str("event", name).
				Int("handler", i).
				Msg("events.Publisher.Emit handler failed")
		}
	}
	return ran
}

func call(h Handler, args []any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return h(args...)
}
