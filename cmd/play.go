package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"firestige.xyz/rtpreplay/internal/config"
	"firestige.xyz/rtpreplay/internal/log"
	"firestige.xyz/rtpreplay/internal/metrics"
	"firestige.xyz/rtpreplay/internal/replay"
	"firestige.xyz/rtpreplay/internal/scheduler"
	"firestige.xyz/rtpreplay/internal/sink/console"
	"firestige.xyz/rtpreplay/internal/sink/udp"
	"firestige.xyz/rtpreplay/internal/source/file"
)

// runPlay replays the capture until it is exhausted, a fatal error occurs,
// or SIGINT/SIGTERM arrives. An interrupted run is not an error.
func runPlay(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := log.Init(&cfg.Log); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	runID := uuid.NewString()
	logger := log.GetLogger().WithField("run", runID)

	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
		if err := srv.Start(ctx); err != nil {
			return err
		}
		defer srv.Stop(context.Background())
	}

	src, err := file.Open(cfg.Capture.Config)
	if err != nil {
		return err
	}
	defer src.Close()

	var sink replay.Sink
	if cfg.Replay.DryRun {
		cs := console.NewSink(logger)
		defer cs.Close()
		sink = cs
	} else {
		us, err := udp.New(cfg.Destination)
		if err != nil {
			return err
		}
		defer us.Close()
		sink = us
	}

	loop := scheduler.New()
	player := replay.NewPlayer(src, sink, loop, replay.Options{
		PayloadOffset: cfg.Capture.PayloadOffset,
		PlayCount:     cfg.PlayCount(),
		RunID:         runID,
	})

	logger.WithFields(map[string]interface{}{
		"capture": cfg.Capture.Path,
		"dest":    fmt.Sprintf("%s:%d", cfg.Destination.Address, cfg.Destination.Port),
		"loops":   cfg.Replay.Loops,
		"dry_run": cfg.Replay.DryRun,
	}).Info("starting replay")

	player.Start()
	if err := loop.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			s := player.Stats()
			logger.Infof("interrupted after %d packets, stopping", s.Packets)
			return nil
		}
		return err
	}
	return player.Err()
}
