package session

import (
	"math/rand"
	"testing"
	"time"

	"github.com/danmuck/dgtctl/internal/testutil/testlog"
)

func TestNextBackoffDelayDeterministicNoJitter(t *testing.T) {
	testlog.Start(t)
	cfg := BackoffConfig{
		InitialDelay: 250 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     5 * time.Second,
		Jitter:       false,
	}
	if got := NextBackoffDelay(cfg, 1, nil); got != 250*time.Millisecond {
		t.Fatalf("attempt1 got=%v", got)
	}
	if got := NextBackoffDelay(cfg, 2, nil); got != 500*time.Millisecond {
		t.Fatalf("attempt2 got=%v", got)
	}
	if got := NextBackoffDelay(cfg, 3, nil); got != time.Second {
		t.Fatalf("attempt3 got=%v", got)
	}
	if got := NextBackoffDelay(cfg, 6, nil); got != 5*time.Second {
		t.Fatalf("attempt6 got=%v", got)
	}
}

func TestNextBackoffDelayJitterRange(t *testing.T) {
	testlog.Start(t)
	cfg := BackoffConfig{
		InitialDelay: 250 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     5 * time.Second,
		Jitter:       true,
	}
	rng := rand.New(rand.NewSource(7))
	got := NextBackoffDelay(cfg, 1, rng)
	if got < 125*time.Millisecond || got > 375*time.Millisecond {
		t.Fatalf("jitter out of range: %v", got)
	}
}

func TestBackoffDefaultsAndReset(t *testing.T) {
	testlog.Start(t)
	b := NewBackoff(DefaultConfig().Backoff)
	want := []time.Duration{
		500 * time.Millisecond,
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		10 * time.Second,
		10 * time.Second,
	}
	for i, w := range want {
		if got := b.Next(); got != w {
			t.Fatalf("attempt%d got=%v want=%v", i+1, got, w)
		}
	}
	b.Reset()
	if b.Attempt() != 0 {
		t.Fatalf("unexpected attempt after reset=%d", b.Attempt())
	}
	if got := b.Next(); got != 500*time.Millisecond {
		t.Fatalf("after reset got=%v", got)
	}
}

func TestConfigWithDefaults(t *testing.T) {
	testlog.Start(t)
	cfg := Config{QueryTimeout: time.Second}.WithDefaults()
	if cfg.QueryTimeout != time.Second {
		t.Fatalf("query timeout overwritten: %v", cfg.QueryTimeout)
	}
	if cfg.WriteTimeout <= 0 || cfg.ReadBuffer <= 0 || cfg.Limits.Expected == nil {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Backoff.InitialDelay != 500*time.Millisecond || cfg.Backoff.MaxDelay != 10*time.Second {
		t.Fatalf("unexpected backoff defaults: %+v", cfg.Backoff)
	}
}
