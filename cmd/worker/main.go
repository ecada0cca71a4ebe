package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/briangreenhill/researchdata/internal/app"
	"github.com/briangreenhill/researchdata/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("load config")
	}
	logger := app.NewLogger(os.Stdout, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Work(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("worker stopped")
	}
}
