package main

import (
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/pthm-cable/drape/cloth"
	"github.com/pthm-cable/drape/config"
	"github.com/pthm-cable/drape/telemetry"
	"github.com/pthm-cable/drape/viewer"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Log perf windows via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxSteps := flag.Uint64("max-steps", 0, "Stop after N steps in headless mode (0 = unlimited)")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// Override CSV output dir from CLI
	if *outputDir != "" {
		cfg.Telemetry.OutputDir = *outputDir
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	output, err := telemetry.NewOutputManager(cfg.Telemetry.OutputDir)
	if err != nil {
		slog.Error("failed to create output dir", "error", err)
		os.Exit(1)
	}
	defer output.Close()
	if err := output.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
		os.Exit(1)
	}

	mesh := cloth.NewMesh(cfg, rand.New(rand.NewSource(rngSeed)))
	perf := telemetry.NewPerfCollector(cfg.Telemetry.Window)
	mesh.SetPerfCollector(perf)

	slog.Info("cloth built",
		"seed", rngSeed,
		"columns", cfg.Grid.Columns,
		"rows", cfg.Grid.Rows,
		"springs", len(mesh.Springs()),
		"batches", cfg.Derived.BatchCount,
	)

	if *headless {
		runHeadless(mesh, cfg, perf, output, *logStats, *maxSteps)
		return
	}

	runner := cloth.NewRunner(mesh)
	runner.Start()
	defer func() {
		if err := runner.Stop(); err != nil {
			slog.Error("shutdown", "error", err)
		}
	}()

	if err := viewer.Run(mesh, runner, cfg); err != nil {
		slog.Error("viewer failed", "error", err)
		os.Exit(1)
	}
}

// runHeadless steps the mesh as fast as possible on the calling goroutine.
func runHeadless(mesh *cloth.Mesh, cfg *config.Config, perf *telemetry.PerfCollector, output *telemetry.OutputManager, logStats bool, maxSteps uint64) {
	defer func() {
		if err := mesh.Close(); err != nil {
			slog.Error("shutdown", "error", err)
		}
	}()

	window := uint64(cfg.Telemetry.Window)
	if window == 0 {
		window = 1
	}
	var timer telemetry.StepTimer
	for step := uint64(1); maxSteps == 0 || step <= maxSteps; step++ {
		start := time.Now()
		if err := mesh.Step(); err != nil {
			slog.Error("simulation step failed", "step", step, "error", err)
			os.Exit(1)
		}
		timer.Record(time.Since(start))

		if step%window == 0 {
			stats := perf.Stats()
			if logStats {
				stats.LogStats(step)
			}
			if err := output.WritePerf(stats.ToRecord(step, len(mesh.Springs()))); err != nil {
				slog.Error("writing perf record", "error", err)
				os.Exit(1)
			}
		}
	}
	timer.Summary().Log(timer.Steps())
}
