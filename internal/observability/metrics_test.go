package observability

import (
	"testing"
	"time"

	"github.com/danmuck/dgtctl/internal/testutil/testlog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("GET", "/board", 200, 12*time.Millisecond)
	RecordFrame(0x86)
	RecordProtocolErrors(2)
	RecordProtocolErrors(0)
	RecordConnect("/dev/ttyACM0")
	RecordOpenFailure("/dev/ttyACM1")
	RecordDisconnect("unplugged")
	RecordQuery("version", "ok", 3*time.Millisecond)

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, fam := range families {
		if fam.GetName() == "dgtctl_serial_frames_total" {
			found = true
		}
	}
	if !found {
		t.Fatalf("frames metric not registered")
	}

	log.Info().Msg("observability/metrics: registration idempotent and recording paths executed")
}
