package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"pkt.systems/pslog"
)

func main() {
	os.Exit(run())
}

func run() int {
	logger := pslog.LoggerFromEnv(
		pslog.WithEnvPrefix("SMARTDOOR_LOG_"),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeStructured, MinLevel: pslog.InfoLevel}),
		pslog.WithEnvWriter(os.Stderr),
	).With("app", "smartdoor")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand(logger)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if err != context.Canceled {
			logger.Error("command failed", "error", err)
		}
		return 1
	}
	return 0
}
