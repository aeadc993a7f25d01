package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/dgtctl/internal/board"
	"github.com/danmuck/dgtctl/internal/protocol"
	"github.com/danmuck/dgtctl/internal/testutil/fakeport"
	"github.com/danmuck/dgtctl/internal/testutil/testlog"
	"github.com/danmuck/dgtctl/internal/transport"
	"gopkg.in/yaml.v3"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func startPosition(t *testing.T) board.Board {
	t.Helper()
	b, err := board.ParseFEN("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1")
	if err != nil {
		t.Fatalf("parse fen: %v", err)
	}
	return b
}

func simulatedApp(t *testing.T, out *syncBuffer, dev *fakeport.Device) (*app, *fakeport.Port) {
	t.Helper()
	bus := fakeport.NewBus()
	port := fakeport.New()
	port.SetResponder(dev.Responder())
	bus.Attach("/dev/ttyACM0", port)

	a := newApp(out)
	a.opener = bus
	a.discoverer = transport.Discoverer{
		PortsList: func() ([]string, error) { return []string{"/dev/ttyACM0", "/dev/ttyS0"}, nil },
	}
	return a, port
}

func fullDevice(t *testing.T) *fakeport.Device {
	return &fakeport.Device{
		Board:        startPosition(t),
		Version:      protocol.Version{Major: 1, Minor: 7},
		Serial:       "12345",
		LongSerial:   "3.1 12345",
		Battery:      "ok",
		Trademark:    "Digital Game Technology",
		ClockVersion: &protocol.Version{Major: 2, Minor: 1},
	}
}

func run(t *testing.T, a *app, args ...string) error {
	t.Helper()
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetErr(&bytes.Buffer{})
	return root.Execute()
}

func TestInfoJSON(t *testing.T) {
	testlog.Start(t)
	out := &syncBuffer{}
	a, _ := simulatedApp(t, out, fullDevice(t))
	if err := run(t, a, "info", "-o", "json", "-p", "/dev/ttyACM0", "--wait", "2s"); err != nil {
		t.Fatalf("info: %v", err)
	}
	var report infoReport
	if err := json.Unmarshal([]byte(out.String()), &report); err != nil {
		t.Fatalf("decode: %v output=%s", err, out.String())
	}
	if report.Port != "/dev/ttyACM0" || report.Version != "1.7" || report.SerialNumber != "12345" {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.FEN != "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR" || report.ClockVersion != "2.1" {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestInfoYAMLAndText(t *testing.T) {
	testlog.Start(t)
	out := &syncBuffer{}
	a, _ := simulatedApp(t, out, fullDevice(t))
	if err := run(t, a, "info", "-o", "yaml", "/dev/ttyACM0"); err != nil {
		t.Fatalf("info: %v", err)
	}
	var report infoReport
	if err := yaml.Unmarshal([]byte(out.String()), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.LongSerialNumber != "3.1 12345" || report.Trademark != "Digital Game Technology" {
		t.Fatalf("unexpected report: %+v", report)
	}

	text := formatFields(report.fields())
	for _, want := range []string{"version", "1.7", "long serial", "fen"} {
		if !strings.Contains(text, want) {
			t.Fatalf("text output missing %q:\n%s", want, text)
		}
	}
}

func TestInfoWithoutBoard(t *testing.T) {
	testlog.Start(t)
	a := newApp(&syncBuffer{})
	a.opener = fakeport.NewBus()
	a.discoverer = transport.Discoverer{}
	err := run(t, a, "info", "-p", "/dev/ttyACM0", "--wait", "50ms")
	if err == nil || !strings.Contains(err.Error(), "no board") {
		t.Fatalf("expected no board error, got %v", err)
	}
}

func TestPortsCommand(t *testing.T) {
	testlog.Start(t)
	out := &syncBuffer{}
	a, _ := simulatedApp(t, out, &fakeport.Device{})
	if err := run(t, a, "ports", "-o", "json", "/dev/ttyACM0", "/dev/ttyACM1"); err != nil {
		t.Fatalf("ports: %v", err)
	}
	var report portsReport
	if err := json.Unmarshal([]byte(out.String()), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(report.Candidates) != 2 || len(report.Available) != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestConfigInitValidate(t *testing.T) {
	testlog.Start(t)
	out := &syncBuffer{}
	a := newApp(out)
	path := filepath.Join(t.TempDir(), "dgtctl.toml")
	if err := run(t, a, "config", "init", path); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stat: %v", err)
	}
	if err := run(t, newApp(out), "config", "init", path); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
	if err := run(t, newApp(out), "config", "validate", path); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out.String(), "query timeout") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestUnknownOutputFormat(t *testing.T) {
	testlog.Start(t)
	a := newApp(&syncBuffer{})
	a.discoverer = transport.Discoverer{}
	if err := run(t, a, "ports", "-o", "xml"); err == nil {
		t.Fatalf("expected output format error")
	}
}

func TestWatchPrintsEvents(t *testing.T) {
	testlog.Start(t)
	out := &syncBuffer{}
	a, port := simulatedApp(t, out, fullDevice(t))
	a.ports = []string{"/dev/ttyACM0"}
	if err := a.loadConfig(); err != nil {
		t.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.watch(ctx, a.cfg.Ports, true) }()

	waitFor := func(want string) {
		t.Helper()
		deadline := time.Now().Add(2 * time.Second)
		for !strings.Contains(out.String(), want) {
			if time.Now().After(deadline) {
				t.Fatalf("output missing %q:\n%s", want, out.String())
			}
			time.Sleep(5 * time.Millisecond)
		}
	}
	waitFor("/dev/ttyACM0")
	waitFor("RNBQKBNR")

	port.Push(fakeport.ButtonPress(2), fakeport.ClockTime(5*time.Minute, 3*time.Minute, true))
	waitFor("button")
	waitFor("0:05:00")

	port.Unplug(errors.New("input/output error"))
	waitFor("disconnected")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("watch: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("watch did not stop")
	}
}

func TestRenderBoard(t *testing.T) {
	testlog.Start(t)
	text := renderBoard(startPosition(t))
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) != 9 {
		t.Fatalf("unexpected line count=%d:\n%s", len(lines), text)
	}
	if !strings.HasPrefix(strings.TrimSpace(lines[0]), "8") || !strings.Contains(lines[0], "r") {
		t.Fatalf("unexpected top rank: %q", lines[0])
	}
	if !strings.Contains(lines[7], "K") || !strings.Contains(lines[8], "h") {
		t.Fatalf("unexpected bottom rows: %q %q", lines[7], lines[8])
	}
	if got := clockTime(time.Hour + 2*time.Minute + 3*time.Second); got != "1:02:03" {
		t.Fatalf("clockTime got=%s", got)
	}
}
