package session

import (
	"time"

	"github.com/danmuck/dgtctl/internal/protocol"
	"github.com/danmuck/dgtctl/internal/protocol/frame"
)

// BackoffConfig defines retry backoff behavior.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Config defines session timeouts and reconnect defaults.
type Config struct {
	QueryTimeout time.Duration
	WriteTimeout time.Duration
	ReadBuffer   int
	Limits       frame.Limits
	Backoff      BackoffConfig
}

// DefaultConfig mirrors the board's 9600 baud pace: replies land well inside
// a second, reconnects back off from 500ms to 10s.
func DefaultConfig() Config {
	return Config{
		QueryTimeout: 5 * time.Second,
		WriteTimeout: 2 * time.Second,
		ReadBuffer:   256,
		Limits:       protocol.FrameLimits(),
		Backoff: BackoffConfig{
			InitialDelay: 500 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     10 * time.Second,
			Jitter:       false,
		},
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = def.QueryTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.ReadBuffer <= 0 {
		c.ReadBuffer = def.ReadBuffer
	}
	if c.Limits.MaxPayloadBytes <= 0 {
		c.Limits = def.Limits
	}
	if c.Backoff.InitialDelay <= 0 {
		c.Backoff.InitialDelay = def.Backoff.InitialDelay
	}
	if c.Backoff.Multiplier <= 0 {
		c.Backoff.Multiplier = def.Backoff.Multiplier
	}
	if c.Backoff.MaxDelay <= 0 {
		c.Backoff.MaxDelay = def.Backoff.MaxDelay
	}
	return c
}
