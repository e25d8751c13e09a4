package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/banshee-data/plate.report/internal/alpr"
	"github.com/banshee-data/plate.report/internal/alpr/annotate"
	"github.com/banshee-data/plate.report/internal/alpr/associate"
	"github.com/banshee-data/plate.report/internal/alpr/cv"
	"github.com/banshee-data/plate.report/internal/alpr/enhance"
	"github.com/banshee-data/plate.report/internal/alpr/export"
	"github.com/banshee-data/plate.report/internal/alpr/live"
	"github.com/banshee-data/plate.report/internal/alpr/pipeline"
	"github.com/banshee-data/plate.report/internal/alpr/report"
	"github.com/banshee-data/plate.report/internal/alpr/results"
	"github.com/banshee-data/plate.report/internal/alpr/storage"
	"github.com/banshee-data/plate.report/internal/alpr/tracking"
	"github.com/banshee-data/plate.report/internal/config"
	"github.com/banshee-data/plate.report/internal/security"
	"github.com/banshee-data/plate.report/internal/timeutil"
)

// runOptions are the flags of the run command. Flags that were not given
// leave the loaded configuration untouched.
type runOptions struct {
	configPath  string
	envFile     string
	source      string
	mode        string
	maxFrames   int
	output      string
	database    string
	reportDir   string
	annotateDir string
	liveAddr    string
	verbose     bool
	trace       bool

	set map[string]bool
}

func parseRunFlags(args []string) (*runOptions, error) {
	o := &runOptions{set: make(map[string]bool)}
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", "", "run configuration JSON file")
	fs.StringVar(&o.envFile, "env", ".env", "optional .env file with PLATE_* overrides")
	fs.StringVar(&o.source, "source", "", "video file path or device:N (required)")
	fs.StringVar(&o.mode, "mode", "", "with-vehicle-association or plate-only")
	fs.IntVar(&o.maxFrames, "max-frames", 0, "stop after this many frames (0 = no limit)")
	fs.StringVar(&o.output, "output", "", "CSV output path (default plates.csv)")
	fs.StringVar(&o.database, "db", "", "SQLite database to record the run in")
	fs.StringVar(&o.reportDir, "report-dir", "", "directory for summary.json, frames.png and report.html")
	fs.StringVar(&o.annotateDir, "annotate-dir", "", "directory for recognizer overlay PNGs")
	fs.StringVar(&o.liveAddr, "live", "", "serve /ws and /api/results on this address during the run")
	fs.BoolVar(&o.verbose, "v", false, "log per-frame diagnostics")
	fs.BoolVar(&o.trace, "trace", false, "log per-candidate telemetry")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	if o.source == "" {
		return nil, errors.New("-source is required")
	}
	return o, nil
}

func (o *runOptions) logLevel() pipeline.Level {
	switch {
	case o.trace:
		return pipeline.LevelTrace
	case o.verbose:
		return pipeline.LevelDiag
	}
	return pipeline.LevelOps
}

// apply overlays the flags that were given onto cfg.
func (o *runOptions) apply(cfg *config.RunConfig) error {
	if o.set["mode"] {
		cfg.Mode = &o.mode
	}
	if o.set["max-frames"] {
		cfg.MaxFrames = &o.maxFrames
	}
	if o.set["output"] {
		cfg.Output = &o.output
	}
	if o.set["db"] {
		cfg.Database = &o.database
	}
	if o.set["report-dir"] {
		cfg.ReportDir = &o.reportDir
	}
	if o.set["annotate-dir"] {
		cfg.AnnotateDir = &o.annotateDir
	}
	if o.set["live"] {
		cfg.LiveAddr = &o.liveAddr
	}
	return cfg.Validate()
}

func loadRunConfig(o *runOptions) (*config.RunConfig, error) {
	if err := config.LoadEnv(o.envFile); err != nil {
		return nil, err
	}
	cfg := &config.RunConfig{}
	if o.configPath != "" {
		var err error
		if cfg, err = config.LoadRunConfig(o.configPath); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := o.apply(cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.CheckBackends()
}

func runCommand(args []string) error {
	opts, err := parseRunFlags(args)
	if err != nil {
		return err
	}
	cfg, err := loadRunConfig(opts)
	if err != nil {
		return err
	}

	pipeline.SetLogLevel(os.Stderr, opts.logLevel())

	if err := security.ValidateOutputPath(cfg.GetOutput()); err != nil {
		return err
	}

	mode := cfg.GetMode()
	models, err := openBackends(cfg, mode == alpr.ModeWithVehicleAssociation)
	if err != nil {
		return err
	}
	defer models.Close()

	clock := timeutil.RealClock{}
	src, err := cv.Open(opts.source, clock)
	if err != nil {
		return err
	}
	defer src.Close()

	var sinks []pipeline.Sink
	if dir := cfg.GetAnnotateDir(); dir != "" {
		w, err := annotate.NewWriter(dir)
		if err != nil {
			return err
		}
		sinks = append(sinks, w)
	}
	var hub *live.Hub
	if addr := cfg.GetLiveAddr(); addr != "" {
		hub = live.NewHub(live.WithClock(clock))
		sinks = append(sinks, hub)
		srv := &http.Server{Addr: addr, Handler: hub.Handler(), ReadHeaderTimeout: 10 * time.Second}
		go func() {
			log.Printf("live server listening on %s", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("live server: %v", err)
			}
		}()
		defer func() {
			hub.Close()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	deps := pipeline.Deps{
		Plates:     models.plates,
		Associator: associate.Associator{Tolerance: cfg.GetContainmentTolerance()},
		Enhance:    enhance.Enhance,
		Recognizer: models.recognizer,
		Store:      results.NewStore(),
		Clock:      clock,
		Sinks:      sinks,
	}
	if mode == alpr.ModeWithVehicleAssociation {
		deps.Vehicles = models.vehicles
		deps.Tracker = tracking.NewSORT(tracking.Config{
			MaxAge:       cfg.GetTrackerMaxAge(),
			MinHits:      cfg.GetTrackerMinHits(),
			IoUThreshold: cfg.GetTrackerIoUThreshold(),
		})
	}
	orch, err := pipeline.New(pipeline.Config{
		Mode:           mode,
		VehicleClasses: cfg.GetVehicleClasses(),
		MinConfidence:  cfg.GetMinTextConfidence(),
	}, deps)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runID := storage.NewRunID()
	log.Printf("run %s: source=%s mode=%s max_frames=%d", runID, opts.source, mode, cfg.GetMaxFrames())
	summary, runErr := orch.Run(ctx, src, cfg.GetMaxFrames())
	log.Printf("run %s: stopped (%s) after %d frames in %s, %d candidates, %d stored",
		runID, summary.Stop, summary.Frames, summary.Duration().Round(time.Millisecond),
		summary.Candidates(), summary.Stored)

	// Committed frames are written even when the run failed or was
	// interrupted.
	if err := writeOutputs(cfg, opts.source, runID, summary, orch.Store()); err != nil {
		return err
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

func writeOutputs(cfg *config.RunConfig, source, runID string, summary pipeline.RunSummary, store *results.Store) error {
	rows, err := export.WriteCSVFile(cfg.GetOutput(), store)
	if err != nil {
		return err
	}
	log.Printf("wrote %d rows to %s", rows, cfg.GetOutput())

	if path := cfg.GetDatabase(); path != "" {
		if err := persistRun(path, cfg, source, runID, summary, store); err != nil {
			return err
		}
		log.Printf("recorded run %s in %s", runID, path)
	}

	if dir := cfg.GetReportDir(); dir != "" {
		if err := writeReport(dir, report.Meta{RunID: runID, Source: source, Mode: string(cfg.GetMode())}, summary, store); err != nil {
			return err
		}
		log.Printf("wrote report to %s", dir)
	}
	return nil
}

func persistRun(path string, cfg *config.RunConfig, source, runID string, summary pipeline.RunSummary, store *results.Store) error {
	db, err := storage.OpenAndMigrate(path)
	if err != nil {
		return err
	}
	defer db.Close()

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	counts := make(map[string]int, len(summary.ByStatus))
	for st, n := range summary.ByStatus {
		counts[st.String()] = n
	}
	run := storage.Run{
		ID:           runID,
		Source:       source,
		Mode:         cfg.GetMode(),
		MaxFrames:    cfg.GetMaxFrames(),
		ConfigJSON:   string(cfgJSON),
		StartedAt:    summary.Started,
		FinishedAt:   summary.Finished,
		Frames:       summary.Frames,
		Candidates:   summary.Candidates(),
		Stored:       summary.Stored,
		StopReason:   string(summary.Stop),
		StatusCounts: counts,
	}
	return db.SaveRun(context.Background(), run, store.Entries())
}

func writeReport(dir string, meta report.Meta, summary pipeline.RunSummary, store *results.Store) error {
	if err := security.ValidateOutputPath(dir); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	s := report.Build(meta, summary, store)
	if err := s.WriteJSON(filepath.Join(dir, "summary.json")); err != nil {
		return err
	}
	if len(summary.PerFrame) > 0 {
		if err := report.SavePlot(filepath.Join(dir, "frames.png"), summary.PerFrame); err != nil {
			return err
		}
	}
	f, err := os.Create(filepath.Join(dir, "report.html"))
	if err != nil {
		return fmt.Errorf("create report.html: %w", err)
	}
	defer f.Close()
	return report.RenderHTML(f, s)
}
