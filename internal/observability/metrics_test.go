package observability

import (
	"testing"
	"time"

	"github.com/rs/zerolog/log"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	RecordFrameSent("iridium", "status")
	RecordFrameReceived("iridium", "status")
	SetQueueDepth("status", 3)
	RecordAckRoundTrip("status", 150*time.Millisecond)
	RecordSBDBadPacket("modem-7")
	RecordHTTPRequest("GET", "/queues", 200, 12*time.Millisecond)

	log.Info().Msg("observability/metrics: registration idempotent and recording paths executed")
}
