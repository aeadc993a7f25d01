package fakeport

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/danmuck/dgtctl/internal/protocol"
	"github.com/danmuck/dgtctl/internal/protocol/frame"
	"github.com/danmuck/dgtctl/internal/testutil/testlog"
)

func interpret(t *testing.T, raw []byte) protocol.Message {
	t.Helper()
	frames, err := frame.NewDecoder(protocol.FrameLimits()).Feed(raw)
	if err != nil || len(frames) != 1 {
		t.Fatalf("unexpected decode frames=%d err=%v", len(frames), err)
	}
	return protocol.Interpret(frames[0])
}

func TestClockEncodersInterpret(t *testing.T) {
	testlog.Start(t)
	if bp, ok := interpret(t, ButtonPress(3)).(protocol.ButtonPress); !ok || bp.Button != 3 {
		t.Fatalf("unexpected button press: %#v", bp)
	}
	ack, ok := interpret(t, ClockAck(protocol.ClockSendVersion, 0x21, 0)).(protocol.ClockAck)
	if !ok || ack.Tag() != protocol.TagClockVersion || ack.Version.String() != "2.1" {
		t.Fatalf("unexpected version ack: %#v", ack)
	}
	ct, ok := interpret(t, ClockTime(5*time.Minute+3*time.Second, time.Hour+59*time.Second, true)).(protocol.ClockTime)
	if !ok {
		t.Fatalf("expected clock time")
	}
	if ct.Clock.LeftTime != 5*time.Minute+3*time.Second || ct.Clock.RightTime != time.Hour+59*time.Second || !ct.Clock.LeftUp {
		t.Fatalf("unexpected clock: %+v", ct.Clock)
	}
}

func TestPortReadWriteUnplug(t *testing.T) {
	testlog.Start(t)
	p := New()
	p.SetChunk(2)
	p.SetResponder(func(cmd []byte) [][]byte { return [][]byte{{0xaa, 0xbb, 0xcc}} })
	if _, err := p.Write([]byte{0x42}); err != nil {
		t.Fatalf("write: %v", err)
	}
	buf := make([]byte, 8)
	n, err := p.Read(buf)
	if err != nil || n != 2 {
		t.Fatalf("unexpected read n=%d err=%v", n, err)
	}
	p.Unplug(nil)
	if n, err = p.Read(buf); n != 1 || err != nil {
		t.Fatalf("buffered bytes must drain first n=%d err=%v", n, err)
	}
	if _, err = p.Read(buf); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
	if len(p.Writes()) != 1 {
		t.Fatalf("unexpected writes=%d", len(p.Writes()))
	}
}

func TestBusOpensOnce(t *testing.T) {
	testlog.Start(t)
	bus := NewBus()
	bus.Attach("/dev/ttyACM1", New())
	if _, err := bus.Open("/dev/ttyACM0"); !errors.Is(err, ErrNoDevice) {
		t.Fatalf("expected ErrNoDevice, got %v", err)
	}
	if _, err := bus.Open("/dev/ttyACM1"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := bus.Open("/dev/ttyACM1"); err == nil {
		t.Fatalf("second open should fail")
	}
	if got := bus.Opens(); len(got) != 3 {
		t.Fatalf("unexpected opens=%v", got)
	}
}

func TestStalledWriteReleasedByClose(t *testing.T) {
	testlog.Start(t)
	p := New()
	p.StallWrites(true)
	result := make(chan error, 1)
	go func() {
		_, err := p.Write([]byte{0x45})
		result <- err
	}()
	select {
	case err := <-result:
		t.Fatalf("unexpected write return while stalled: %v", err)
	case <-time.After(30 * time.Millisecond):
	}
	_ = p.Close()
	select {
	case err := <-result:
		if !errors.Is(err, io.ErrClosedPipe) {
			t.Fatalf("write err got=%v want=%v", err, io.ErrClosedPipe)
		}
	case <-time.After(time.Second):
		t.Fatalf("write still blocked after close")
	}
	if len(p.Writes()) != 0 {
		t.Fatalf("unexpected recorded writes: %v", p.Writes())
	}
}
