// Command simrunner drives a Simulator headlessly: load a scene, tick it
// at a fixed rate, and log track-stream summaries. Grounded on the
// teacher's cmd/dragonfly entrypoint (viper-backed config file discovery,
// errgroup-coordinated signal handling around a long-running server
// loop).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/retailsim/simcore/sim"
	"github.com/retailsim/simcore/sim/scene"
)

func main() {
	if err := run(); err != nil {
		slog.Error("simrunner exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	v := viper.New()
	v.SetConfigName("simrunner")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.SetDefault("scene_path", "scene.toml")
	v.SetDefault("tick_hz", 10.0)
	v.SetDefault("duration_secs", 0.0) // 0 = run until interrupted
	v.SetDefault("max_occupancy", 200)
	v.SetDefault("seed", int64(0))
	v.SetDefault("device_id", "sim-device-1")
	v.SetDefault("venue_id", "venue-1")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return fmt.Errorf("read config: %w", err)
		}
	}

	sc, err := scene.Load(v.GetString("scene_path"))
	if err != nil {
		return fmt.Errorf("load scene: %w", err)
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))
	cfg := sim.DefaultConfig()
	cfg.Log = log
	cfg.MaxOccupancy = v.GetInt("max_occupancy")
	if seed := v.GetInt64("seed"); seed != 0 {
		cfg.Seed, cfg.HasSeed = seed, true
	}

	s := sim.New(sc, cfg)
	if _, ok := s.SpawnAgent(); !ok {
		log.Warn("initial spawn_agent rejected: max_occupancy reached at startup")
	}

	hz := v.GetFloat64("tick_hz")
	if hz <= 0 {
		hz = 10
	}
	dt := 1.0 / hz

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return tickLoop(gctx, s, dt, v.GetFloat64("duration_secs"), v.GetString("device_id"), v.GetString("venue_id"), log) })

	return g.Wait()
}

func tickLoop(ctx context.Context, s *sim.Simulator, dt, durationSecs float64, deviceID, venueID string, log *slog.Logger) error {
	ticker := time.NewTicker(time.Duration(dt * float64(time.Second)))
	defer ticker.Stop()

	elapsed := 0.0
	for {
		select {
		case <-ctx.Done():
			log.Info("simrunner stopping", "elapsed_s", elapsed)
			return nil
		case <-ticker.C:
			s.Update(dt)
			elapsed += dt
			msgs := s.TrackMessages(deviceID, venueID)
			d := s.GetDiagnostics()
			log.Info("tick", "elapsed_s", fmt.Sprintf("%.1f", elapsed),
				"live_shoppers", d.LiveShoppers, "live_cashiers", d.LiveCashiers,
				"total_exited", d.TotalExited, "tracks", len(msgs))
			if durationSecs > 0 && elapsed >= durationSecs {
				return nil
			}
		}
	}
}
