package main

import (
	"context"

	"mensahub-backend/cmd/mensa-cli/commands"
	"mensahub-backend/lib/telemetry"
)

func main() {
	telemetry.InitSlog(true)
	commands.ExecuteContext(context.Background())
}
