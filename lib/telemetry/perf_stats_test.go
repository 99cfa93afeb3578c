package telemetry

import (
	"context"
	"testing"
	"time"
)

func TestInstrumentPerfStats(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	InstrumentPerfStats(ctx)

	// the collector goroutine must exit once the context ends
	cancel()
	time.Sleep(time.Millisecond * 10)
}
