package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"event-radar/ingester/internal/config"
	"event-radar/ingester/internal/logging"
	"event-radar/ingester/internal/metrics"
	"event-radar/ingester/internal/pipeline"
	"event-radar/ingester/internal/store"
)

// Version is set at build time via -ldflags "-X main.Version=..."
var Version = "dev"

func main() {
	var (
		cfgPath  = flag.String("config", "/config.yml", "path to YAML config")
		interval = flag.Duration("interval", 30*time.Minute, "run interval")
		once     = flag.Bool("once", false, "run a single cycle then exit")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logging.Error().Err(err).Msg("load config")
		os.Exit(1)
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	log := logging.L()
	log.Info().Str("version", Version).Int("sources", len(cfg.Sources)).Msg("ingester starting")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	release, err := pipeline.AcquireLock(ctx, cfg.Sync.LockPath)
	if err != nil {
		log.Error().Err(err).Msg("acquire lock")
		os.Exit(1)
	}
	defer release()

	events, err := store.NewPGStore(ctx, cfg.Store)
	if err != nil {
		log.Error().Err(err).Msg("connect event store")
		os.Exit(1)
	}
	defer events.Close()
	if err := events.EnsureSchema(ctx); err != nil {
		log.Error().Err(err).Msg("ensure schema")
		os.Exit(1)
	}

	orch, err := pipeline.New(cfg, events)
	if err != nil {
		log.Error().Err(err).Msg("build pipeline")
		os.Exit(1)
	}

	metrics.Serve(cfg.Metrics.ListenAddress)

	runOnce := func() {
		if _, err := orch.RunOnce(ctx); err != nil {
			log.Error().Err(err).Msg("run failed")
		}
	}

	runOnce()
	if *once {
		return
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("stopping")
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
