package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/dgtctl/internal/protocol/session"
	"github.com/danmuck/dgtctl/internal/transport"
)

var ErrInvalid = errors.New("config: invalid")

// DefaultPorts covers USB-serial and CDC-ACM boards on Linux and macOS.
var DefaultPorts = []string{
	"/dev/ttyACM*",
	"/dev/ttyUSB*",
	"/dev/tty.usbmodem*",
}

// Config is the resolved dgtctl configuration.
type Config struct {
	Ports       []string
	BaudRate    int
	Session     session.Config
	StatusAddr  string
	StatusToken string

	StatusCORSOrigins []string
}

type fileConfig struct {
	Ports             []string `toml:"ports"`
	BaudRate          int      `toml:"baud_rate"`
	QueryTimeout      string   `toml:"query_timeout"`
	WriteTimeout      string   `toml:"write_timeout"`
	BackoffInitial    string   `toml:"backoff_initial"`
	BackoffMax        string   `toml:"backoff_max"`
	BackoffMultiplier float64  `toml:"backoff_multiplier"`
	StatusAddr        string   `toml:"status_addr"`
	StatusToken       string   `toml:"status_token"`
	StatusCORSOrigins []string `toml:"status_cors_origins"`
}

func Default() Config {
	return Config{
		Ports:    append([]string(nil), DefaultPorts...),
		BaudRate: transport.DefaultBaudRate,
		Session:  session.DefaultConfig(),
	}
}

// Load reads path over the defaults. Only keys present in the file override.
func Load(path string) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	cfg, err := apply(Default(), raw, meta)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML text over the defaults.
func Parse(data string) (Config, error) {
	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config parse failed: %w", err)
	}
	return apply(Default(), raw, meta)
}

func apply(cfg Config, raw fileConfig, meta toml.MetaData) (Config, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%w: unknown key %q", ErrInvalid, undecoded[0].String())
	}

	if meta.IsDefined("ports") {
		cfg.Ports = normalizeList(raw.Ports)
	}
	if meta.IsDefined("baud_rate") {
		cfg.BaudRate = raw.BaudRate
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"query_timeout", raw.QueryTimeout, &cfg.Session.QueryTimeout},
		{"write_timeout", raw.WriteTimeout, &cfg.Session.WriteTimeout},
		{"backoff_initial", raw.BackoffInitial, &cfg.Session.Backoff.InitialDelay},
		{"backoff_max", raw.BackoffMax, &cfg.Session.Backoff.MaxDelay},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if meta.IsDefined("backoff_multiplier") {
		cfg.Session.Backoff.Multiplier = raw.BackoffMultiplier
	}
	if meta.IsDefined("status_addr") {
		cfg.StatusAddr = strings.TrimSpace(raw.StatusAddr)
	}
	if meta.IsDefined("status_token") {
		cfg.StatusToken = strings.TrimSpace(raw.StatusToken)
	}
	if meta.IsDefined("status_cors_origins") {
		cfg.StatusCORSOrigins = normalizeList(raw.StatusCORSOrigins)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if len(cfg.Ports) == 0 {
		return fmt.Errorf("%w: ports must not be empty", ErrInvalid)
	}
	if cfg.BaudRate <= 0 {
		return fmt.Errorf("%w: baud_rate must be positive", ErrInvalid)
	}
	if cfg.Session.QueryTimeout <= 0 {
		return fmt.Errorf("%w: query_timeout must be positive", ErrInvalid)
	}
	if cfg.Session.WriteTimeout <= 0 {
		return fmt.Errorf("%w: write_timeout must be positive", ErrInvalid)
	}
	b := cfg.Session.Backoff
	if b.InitialDelay <= 0 {
		return fmt.Errorf("%w: backoff_initial must be positive", ErrInvalid)
	}
	if b.MaxDelay < b.InitialDelay {
		return fmt.Errorf("%w: backoff_max below backoff_initial", ErrInvalid)
	}
	if b.Multiplier < 1.0 {
		return fmt.Errorf("%w: backoff_multiplier must be at least 1", ErrInvalid)
	}
	if cfg.StatusToken != "" && cfg.StatusAddr == "" {
		return fmt.Errorf("%w: status_token set without status_addr", ErrInvalid)
	}
	return nil
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		v := strings.TrimSpace(p)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
