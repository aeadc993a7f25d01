package dgt

import (
	"github.com/danmuck/dgtctl/internal/events"
	"github.com/danmuck/dgtctl/internal/observability"
	"github.com/danmuck/dgtctl/internal/protocol/session"
	"github.com/danmuck/dgtctl/internal/transport"
	"github.com/rs/zerolog"
)

// Option configures a Connection before its supervisor starts.
type Option func(*options)

type handlerReg struct {
	name string
	h    events.Handler
}

type options struct {
	opener     transport.Opener
	discoverer transport.Discoverer
	cfg        session.Config
	logger     zerolog.Logger
	handlers   []handlerReg
}

func defaultOptions() options {
	return options{
		opener:     transport.SerialOpener{BaudRate: transport.DefaultBaudRate},
		discoverer: transport.DefaultDiscoverer(),
		cfg:        session.DefaultConfig(),
		logger:     observability.Component("dgt"),
	}
}

// WithOpener replaces the serial opener, mostly for tests.
func WithOpener(o transport.Opener) Option {
	return func(opts *options) {
		opts.opener = o
	}
}

// WithDiscoverer expands patterns with d instead of the default discoverer.
func WithDiscoverer(d transport.Discoverer) Option {
	return func(opts *options) {
		opts.discoverer = d
	}
}

func WithConfig(cfg session.Config) Option {
	return func(opts *options) {
		opts.cfg = cfg
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(opts *options) {
		opts.logger = l
	}
}

// WithHandler registers h before the supervisor starts, so no early
// connected event is missed.
func WithHandler(name string, h events.Handler) Option {
	return func(opts *options) {
		opts.handlers = append(opts.handlers, handlerReg{name: name, h: h})
	}
}
