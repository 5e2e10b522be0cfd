package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/okonma/trendminer/internal/app"
	"github.com/okonma/trendminer/internal/config"
	"github.com/okonma/trendminer/internal/core/domain"
)

// Exit codes.
const (
	exitOK       = 0
	exitFailed   = 1
	exitDegraded = 2
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration file")

	flag.Parse()

	if flag.NArg() > 0 && flag.Arg(0) != "run" {
		log.Fatalf("Usage: %s [run] -config=config.yaml", os.Args[0])
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.Env.AppEnv, cfg.Env.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application := app.New(cfg, &logger)

	run, err := application.Run(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("run failed")
		os.Exit(exitFailed)
	}

	if run.Status == domain.StatusDegraded {
		os.Exit(exitDegraded)
	}

	os.Exit(exitOK)
}

func newLogger(appEnv, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	if appEnv == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(lvl).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}
