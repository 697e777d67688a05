package main

import (
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/pthm-cable/froth/config"
	"github.com/pthm-cable/froth/sim"
	"github.com/pthm-cable/froth/state"
	"github.com/pthm-cable/froth/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	frames := flag.Int("frames", 100, "Number of frames to simulate")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs, config snapshot and frames")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for binary frames (empty = <output-dir>/frames)")
	replayDir := flag.String("replay-dir", "", "Replay velocity and surface from frames saved in this directory")
	seed := flag.Int64("seed", 0, "Particle RNG seed (0 = config value, -1 = time-based)")
	workers := flag.Int("workers", 0, "Worker goroutines (0 = GOMAXPROCS)")
	logStats := flag.Bool("log-stats", false, "Log perf stats via slog every perf window")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	switch {
	case *seed > 0:
		cfg.Particles.Seed = *seed
	case *seed < 0:
		cfg.Particles.Seed = time.Now().UnixNano()
	}

	out, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output", "error", err)
		os.Exit(1)
	}
	defer out.Close()
	if err := out.WriteConfig(cfg); err != nil {
		slog.Warn("failed to write config snapshot", "error", err)
	}

	frameDir := *snapshotDir
	if frameDir == "" {
		frameDir = out.SnapshotDir()
	}

	s, err := sim.FromConfig(cfg, *workers)
	if err != nil {
		slog.Error("failed to build simulation", "error", err)
		os.Exit(1)
	}
	defer s.Close()

	perf := telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow)
	s.SetPerf(perf)

	s.OnFrame(func(st *state.State, stats sim.StepStats) {
		if err := out.WriteFrame(s.Record(stats)); err != nil {
			slog.Warn("failed to write frame stats", "frame", stats.Frame, "error", err)
		}
		if every := cfg.Telemetry.SnapshotEvery; every > 0 && frameDir != "" && int(stats.Frame)%every == 0 {
			if _, err := st.SaveFrame(frameDir); err != nil {
				slog.Warn("failed to save frame", "frame", stats.Frame, "error", err)
			}
		}
	})

	slog.Info("starting simulation",
		"grid", []int{cfg.Grid.Width, cfg.Grid.Height, cfg.Grid.Depth},
		"scene", cfg.Scene.Kind,
		"solver", cfg.Pressure.Solver,
		"frames", *frames,
		"seed", cfg.Particles.Seed,
		"replay", *replayDir != "",
	)

	cached := state.Blank(cfg.Grid.CellSize, cfg.Derived.Bound32)
	for f := 1; f <= *frames; f++ {
		stats, err := advance(s, cached, *replayDir, int32(f))
		if err != nil {
			slog.Error("replay failed", "frame", f, "error", err)
			os.Exit(1)
		}

		if every := cfg.Telemetry.LogEvery; every > 0 && f%every == 0 {
			slog.Info("frame", "stats", stats, "time", s.Time())
		}
		if window := cfg.Telemetry.PerfWindow; window > 0 && f%window == 0 {
			ps := perf.Stats()
			if *logStats {
				ps.LogStats()
			}
			if err := out.WritePerf(ps, int32(f)); err != nil {
				slog.Warn("failed to write perf stats", "error", err)
			}
		}
	}

	slog.Info("simulation finished", "frames", *frames, "time", s.Time())
}

// advance replays frame from dir when a saved copy exists and steps otherwise.
func advance(s *sim.Simulation, cached *state.State, dir string, frame int32) (sim.StepStats, error) {
	if dir == "" {
		return s.Step(), nil
	}
	err := cached.LoadFrame(state.FramePath(dir, frame))
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("no cached frame, stepping", "frame", frame)
		return s.Step(), nil
	}
	if err != nil {
		return sim.StepStats{}, err
	}
	return s.Replay(cached)
}
