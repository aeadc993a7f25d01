package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/dgtctl/internal/board"
	"github.com/danmuck/dgtctl/internal/dgt"
	"github.com/danmuck/dgtctl/internal/protocol"
	"github.com/danmuck/dgtctl/internal/protocol/session"
	"github.com/danmuck/dgtctl/internal/testutil/testlog"
	"github.com/gin-gonic/gin"
)

type fakeSource struct {
	state      dgt.State
	board      board.Board
	clock      *protocol.Clock
	version    protocol.Version
	versionErr error
}

func (f *fakeSource) State() dgt.State { return f.state }

func (f *fakeSource) Port() string {
	if f.state != dgt.StateConnected {
		return ""
	}
	return "/dev/ttyACM0"
}

func (f *fakeSource) Board() board.Board { return f.board }

func (f *fakeSource) Clock() (protocol.Clock, bool) {
	if f.clock == nil {
		return protocol.Clock{}, false
	}
	return *f.clock, true
}

func (f *fakeSource) GetVersion(ctx context.Context) (protocol.Version, error) {
	return f.version, f.versionErr
}

func init() {
	gin.SetMode(gin.TestMode)
}

func do(t *testing.T, s *Server, path, token string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	body := map[string]any{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return rec, body
}

func TestHealthAndReady(t *testing.T) {
	testlog.Start(t)
	src := &fakeSource{state: dgt.StateConnecting}
	s := New(Config{}, src)

	if rec, body := do(t, s, "/health", ""); rec.Code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("unexpected health code=%d body=%v", rec.Code, body)
	}
	if rec, body := do(t, s, "/ready", ""); rec.Code != http.StatusServiceUnavailable || body["state"] != "connecting" {
		t.Fatalf("unexpected ready code=%d body=%v", rec.Code, body)
	}
	src.state = dgt.StateConnected
	if rec, body := do(t, s, "/ready", ""); rec.Code != http.StatusOK || body["port"] != "/dev/ttyACM0" {
		t.Fatalf("unexpected ready code=%d body=%v", rec.Code, body)
	}
}

func TestBoardRoute(t *testing.T) {
	testlog.Start(t)
	b, err := board.ParseFEN("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR")
	if err != nil {
		t.Fatalf("parse fen: %v", err)
	}
	src := &fakeSource{state: dgt.StateConnected, board: b, clock: &protocol.Clock{LeftTime: time.Minute, LeftUp: true}}
	s := New(Config{}, src)

	rec, body := do(t, s, "/board", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected code=%d", rec.Code)
	}
	if body["fen"] != b.FEN() {
		t.Fatalf("unexpected fen=%v", body["fen"])
	}
	clock, ok := body["clock"].(map[string]any)
	if !ok || clock["left"] != "1m0s" || clock["left_up"] != true {
		t.Fatalf("unexpected clock=%v", body["clock"])
	}

	src.state = dgt.StateDisconnected
	if rec, _ := do(t, s, "/board", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unexpected disconnected code=%d", rec.Code)
	}
}

func TestVersionRouteMapsErrors(t *testing.T) {
	testlog.Start(t)
	src := &fakeSource{state: dgt.StateConnected, version: protocol.Version{Major: 1, Minor: 7}}
	s := New(Config{}, src)

	if rec, body := do(t, s, "/version", ""); rec.Code != http.StatusOK || body["version"] != "1.7" {
		t.Fatalf("unexpected version code=%d body=%v", rec.Code, body)
	}
	cases := map[error]int{
		dgt.ErrNotConnected:     http.StatusServiceUnavailable,
		session.ErrQueryTimeout: http.StatusGatewayTimeout,
		session.ErrBusy:         http.StatusTooManyRequests,
		session.ErrDisconnected: http.StatusServiceUnavailable,
		protocol.ErrUnknownType: http.StatusBadGateway,
	}
	for err, want := range cases {
		src.versionErr = err
		if rec, _ := do(t, s, "/version", ""); rec.Code != want {
			t.Fatalf("error %v got=%d want=%d", err, rec.Code, want)
		}
	}
}

func TestTokenGuardsBoardRoutes(t *testing.T) {
	testlog.Start(t)
	src := &fakeSource{state: dgt.StateConnected}
	s := New(Config{Token: "secret"}, src)

	for _, path := range []string{"/board", "/version", "/metrics"} {
		if rec, _ := do(t, s, path, ""); rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s without token got=%d", path, rec.Code)
		}
		if rec, _ := do(t, s, path, "wrong"); rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s with wrong token got=%d", path, rec.Code)
		}
	}
	if rec, _ := do(t, s, "/board", "secret"); rec.Code != http.StatusOK {
		t.Fatalf("board with token got=%d", rec.Code)
	}
	if rec, _ := do(t, s, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("health must stay open, got=%d", rec.Code)
	}
}

func TestMetricsExposed(t *testing.T) {
	testlog.Start(t)
	s := New(Config{}, &fakeSource{})
	do(t, s, "/health", "")
	rec, _ := do(t, s, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "dgtctl_http_requests_total") {
		t.Fatalf("unexpected metrics code=%d", rec.Code)
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	testlog.Start(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := New(Config{}, &fakeSource{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = resp.Body.Close()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not shut down")
	}
}
