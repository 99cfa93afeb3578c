package main

import (
	"merinfo-backend/cmd/merinfo-cli/commands"
	"merinfo-backend/lib/serviceutil"
	"merinfo-backend/lib/telemetry"
)

func main() {
	ctx := serviceutil.SignalContext()

	telemetry.SetupFromEnv(ctx, "merinfo-cli")
	telemetry.InstrumentPerfStats(ctx)

	commands.ExecuteContext(ctx)
}
