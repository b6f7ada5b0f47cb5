package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/rendercal/internal/capture"
	"github.com/coreman2200/rendercal/internal/config"
	"github.com/coreman2200/rendercal/internal/experiment"
	"github.com/coreman2200/rendercal/internal/lut"
	"github.com/coreman2200/rendercal/internal/monitor"
	"github.com/coreman2200/rendercal/internal/render"
	"github.com/coreman2200/rendercal/internal/render/scenes/plane"
	"github.com/coreman2200/rendercal/internal/sampler"
	"github.com/coreman2200/rendercal/internal/stimulus"
	"github.com/coreman2200/rendercal/internal/sweep"
	"github.com/coreman2200/rendercal/internal/trials"
)

func main() {
	// ---- Flags (config.yaml overrides the defaults, flags override config) ----
	var (
		configPath = flag.String("config", "config.yaml", "path to config.yaml")
		mode       = flag.String("mode", "", "sweep | direct | target")
		samples    = flag.Int("samples", -1, "trial budget (0 runs until interrupted)")
		seed       = flag.Int64("seed", 0, "sampler seed (used when -fixed is set)")
		fixed      = flag.Bool("fixed", false, "use -seed instead of the clock")
		out        = flag.String("out", "", "CSV output path (default derives from the run toggles)")
		sqlitePath = flag.String("sqlite", "", "also write trials to this SQLite database")
		addr       = flag.String("addr", "", "monitor listen address, e.g. :8080")
		lutDir     = flag.String("lut-dir", "", "directory of delta_NN.cube tables (default: generated)")
		knotsPath  = flag.String("knots", "", "knot table for a knot-mode sweep")
		rate       physic.Frequency
	)
	flag.Var(&rate, "rate", "frame rate cap, e.g. 60Hz (default unpaced)")
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	// ---- Config ----
	cfg := config.Default()
	if c, err := config.Load(*configPath); err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; proceeding with defaults")
	} else {
		cfg = *c
	}
	if *mode != "" {
		cfg.Mode = *mode
	}
	if *samples >= 0 {
		cfg.Samples = *samples
	}
	if *fixed {
		cfg.Seed = seed
	}
	if *out != "" {
		cfg.Output.CSV = *out
	}
	if *sqlitePath != "" {
		cfg.Output.SQLite = *sqlitePath
	}
	if *addr != "" {
		cfg.Monitor.Addr = *addr
	}
	if *lutDir != "" {
		cfg.LUTDir = *lutDir
	}
	if *knotsPath != "" {
		cfg.Sweep.Knots = *knotsPath
	}
	if rate > 0 {
		cfg.Rate = rate.String()
	}
	if cfg.Mode == "sweep" {
		cfg.Material = "lambertian"
		cfg.Tonemap = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	runID := uuid.NewString()
	logger := log.With().Str("run_id", runID).Str("mode", cfg.Mode).Logger()
	log.Logger = logger

	if err := run(&cfg, runID); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("run failed")
	}
}

func run(cfg *config.Config, runID string) error {
	// ---- Lookup tables ----
	lib, err := lookups(cfg)
	if err != nil {
		return err
	}

	// ---- Render host ----
	reg := render.NewRegistry()
	plane.Register(reg)
	eng, err := render.NewEngine(cfg.Dimensions(), plane.Lambertian{}, lib)
	if err != nil {
		return err
	}
	if err := eng.SetRenderer(cfg.Material, reg); err != nil {
		return err
	}
	eng.Tonemap = cfg.Tonemap

	ccfg, err := cfg.CaptureConfig()
	if err != nil {
		return err
	}
	machine, err := capture.New(ccfg, eng)
	if err != nil {
		return err
	}

	// ---- Planner ----
	hub := monitor.NewHub(runID, cfg.Mode)
	hub.FrameStats = eng.Stats
	planner, err := newPlanner(cfg, hub)
	if err != nil {
		return err
	}

	// ---- Trial log ----
	sinks, err := openSinks(cfg, runID)
	if err != nil {
		return err
	}
	tl, err := trials.NewLogger(planner.Schema(), sinks...)
	if err != nil {
		for _, s := range sinks {
			_ = s.Close()
		}
		return err
	}
	defer func() {
		if err := tl.Close(); err != nil {
			log.Error().Err(err).Msg("close trial log")
		}
	}()

	runner := experiment.NewRunner(planner, eng.Hooks(), machine, tl)
	runner.Observe(hub)
	if runner.Pace, err = cfg.Pace(); err != nil {
		return err
	}

	// ---- Monitor ----
	if cfg.Monitor.Addr != "" {
		srv := &http.Server{
			Addr:         cfg.Monitor.Addr,
			Handler:      hub.Routes(),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			log.Info().Str("addr", cfg.Monitor.Addr).Msg("monitor starting")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("monitor server stopped")
			}
		}()
		defer srv.Close()
	}

	// ---- Run until done or interrupted ----
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	log.Info().
		Str("material", cfg.Material).
		Bool("tonemap", cfg.Tonemap).
		Int("samples", cfg.Samples).
		Dur("pace", runner.Pace).
		Msg("run starting")
	return runner.Run(ctx, eng)
}

func lookups(cfg *config.Config) (*lut.Library, error) {
	if cfg.LUTDir != "" {
		return lut.LoadDir(cfg.LUTDir, lut.DefaultKnots, sweep.MaxDelta)
	}
	return lut.DeltaLibrary(lut.DefaultKnots)
}

func newPlanner(cfg *config.Config, hub *monitor.Hub) (experiment.Planner, error) {
	if cfg.Mode == "sweep" {
		scfg, err := cfg.SweepConfig()
		if err != nil {
			return nil, err
		}
		log.Info().Int("bound", scfg.Bound()).Bool("knots", scfg.Knots != nil).Msg("sweep configured")
		return sweep.New(scfg)
	}

	scfg, err := cfg.StimulusConfig()
	if err != nil {
		return nil, err
	}
	st, err := sampler.ParseStrategy(cfg.Sampler)
	if err != nil {
		return nil, err
	}
	seed := time.Now().UnixNano()
	if cfg.Seed != nil {
		seed = *cfg.Seed
	}
	s := sampler.New(seed, st)
	s.Symmetric = cfg.Symmetric
	p, err := stimulus.NewPlanner(scfg, s)
	if err != nil {
		return nil, err
	}
	p.Report = hub.OnDiagnostic
	log.Info().Int64("seed", seed).Str("sampler", st.String()).Msg("stimulus configured")
	return p, nil
}

func openSinks(cfg *config.Config, runID string) ([]trials.Sink, error) {
	path := cfg.Output.CSV
	if path == "" {
		path = filepath.Join(cfg.Output.Dir, cfg.OutputName())
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	csv, err := trials.CreateCSV(path)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", path).Msg("writing trials")
	sinks := []trials.Sink{csv}

	if cfg.Output.SQLite != "" {
		db, err := trials.OpenSQLite(cfg.Output.SQLite, runID)
		if err != nil {
			_ = csv.Close()
			return nil, err
		}
		sinks = append(sinks, db)
	}
	return sinks, nil
}
