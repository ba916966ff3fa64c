package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"route2lnm/internal/archive"
	"route2lnm/internal/config"
	"route2lnm/internal/daemon"
	"route2lnm/internal/database"
	"route2lnm/internal/dataset"
	"route2lnm/internal/directory"
	"route2lnm/internal/lnmpln"
	"route2lnm/internal/models"
	"route2lnm/internal/planner"
	"route2lnm/internal/resolver"
	"route2lnm/internal/route"
	"route2lnm/internal/scheduler"
	"route2lnm/internal/server"
	"route2lnm/internal/tasks"

	"github.com/pkg/browser"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	programName   = "route2lnm"
	documentation = "https://www.littlenavmap.org/lnmpln.html"
)

// Set at build time with -ldflags "-X main.version=..."
var version = "dev"

func initLogger(cfg *config.Config) {
	var logLevel slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	var w io.Writer = os.Stderr
	if cfg.Log.File != "" {
		w = &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    32, // MB
			MaxBackups: 3,
			MaxAge:     14,
			Compress:   true,
		}
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
}

type options struct {
	serve    bool
	sim      string
	rules    string
	alt      int
	aircraft string
	out      string
	recent   bool
	forget   string
	open     bool
}

func main() {
	configPath := flag.String("config", "", "Path to config file (YAML)")

	var opts options
	flag.BoolVar(&opts.serve, "serve", false, "Serve the HTTP API instead of converting a single route")
	flag.StringVar(&opts.sim, "sim", "", "Simulator: fsx, msfs or xplane11 (default from config)")
	flag.StringVar(&opts.rules, "rules", "", "Flight rules: VFR or IFR (default from config)")
	flag.IntVar(&opts.alt, "alt", 0, "Cruising altitude in feet (default from config)")
	flag.StringVar(&opts.aircraft, "aircraft", "", "Aircraft ICAO type designator (default from config)")
	flag.StringVar(&opts.out, "out", "", "Directory the route archive is written to (default from config)")
	flag.BoolVar(&opts.recent, "recent", false, "List recent routes and exit")
	flag.StringVar(&opts.forget, "forget", "", "Comma-separated recent route ids to remove")
	flag.BoolVar(&opts.open, "open", false, "Open the archive after it is written")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] ICAO ICAO [ICAO...]\n\n", os.Args[0])
		fmt.Fprintln(flag.CommandLine.Output(), "Without identifiers on the command line, the route is read from stdin.")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *configPath != "" {
		os.Setenv("ROUTE2LNM_CONFIG_PATH", *configPath)
	}

	cfg, err := config.Load()
	if err != nil {
		// Use basic logging for config errors since logger isn't initialized yet
		basicLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		basicLogger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if opts.out != "" {
		cfg.OutputDir = opts.out
	}

	initLogger(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, opts, flag.Args())
	cancel()

	if err != nil {
		var resErr *resolver.ResolutionError
		var valErr *planner.ValidationError
		switch {
		case errors.As(err, &resErr), errors.As(err, &valErr):
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		default:
			slog.Error("route2lnm failed", "error", err)
			os.Exit(1)
		}
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, args []string) error {
	// Initialize database
	db, err := database.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	recentRepo := db.RecentRouteRepository(cfg.Recent.Max)

	if opts.recent {
		return listRecent(recentRepo, os.Stdout)
	}
	if opts.forget != "" {
		return forgetRecent(recentRepo, opts.forget, os.Stdout)
	}

	dir, err := loadDirectory(ctx, cfg, db.AirportRepository())
	if err != nil {
		return err
	}

	sink, err := archive.NewDirectorySink(cfg.OutputDir)
	if err != nil {
		return err
	}

	recorder := tasks.NewRecentRouteRecorder(recentRepo)

	p, err := planner.New(planner.Config{
		Resolver:  resolver.New(dir, cfg.Directory.World),
		Routes:    route.New(dir, cfg.Directory.Label),
		Generator: lnmpln.NewGenerator(programName, version, documentation),
		Sink:      sink,
		Listener:  recorder,
	})
	if err != nil {
		return fmt.Errorf("failed to create planner: %w", err)
	}

	defaults := applyFlags(cfg.PlanSettings(), opts)

	if opts.serve {
		return serve(ctx, cfg, p, dir, recentRepo, recorder, defaults)
	}

	text := strings.Join(args, " ")
	if strings.TrimSpace(text) == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read route from stdin: %w", err)
		}
		text = string(data)
	}

	return convert(ctx, p, recorder, sink, planner.Request{Text: text, Settings: defaults}, opts.open, os.Stdout)
}

// loadDirectory imports the dataset on first start and builds the in-memory directory
func loadDirectory(ctx context.Context, cfg *config.Config, airports database.AirportRepository) (*directory.Directory, error) {
	populated, err := airports.IsTablePopulated()
	if err != nil {
		return nil, fmt.Errorf("failed to check airports table: %w", err)
	}

	if !populated {
		if cfg.Dataset.URL != "" {
			fetcher := dataset.NewFetcher(cfg.Dataset.URL, cfg.Dataset.Path)
			if _, err := fetcher.Ensure(ctx); err != nil {
				return nil, err
			}
		}

		slog.Info("Airports table is empty, loading dataset", "path", cfg.Dataset.Path)
		if err := airports.LoadFromFiles([]string{cfg.Dataset.Path}, cfg.Dataset.BatchSize); err != nil {
			return nil, fmt.Errorf("failed to load airport dataset: %w", err)
		}
		slog.Info("Successfully loaded airport dataset")
	} else {
		slog.Debug("Airports table is already populated")
	}

	dir, err := directory.Load(airports)
	if err != nil {
		return nil, err
	}
	slog.Info("Airport directory ready", "airports", dir.Len())
	return dir, nil
}

func applyFlags(settings models.PlanSettings, opts options) models.PlanSettings {
	if opts.sim != "" {
		settings.Simulator = models.Simulator(opts.sim)
	}
	if opts.rules != "" {
		settings.Rule = models.FlightRule(opts.rules)
	}
	if opts.alt != 0 {
		settings.Altitude = opts.alt
	}
	if opts.aircraft != "" {
		settings.AircraftType = opts.aircraft
	}
	return settings
}

func convert(ctx context.Context, p *planner.Planner, recorder *tasks.RecentRouteRecorder, sink *archive.DirectorySink, req planner.Request, open bool, out io.Writer) error {
	recorderDone := make(chan struct{})
	go func() {
		defer close(recorderDone)
		if err := recorder.Start(context.Background()); err != nil {
			slog.Error("Recent route recorder stopped", "error", err)
		}
	}()

	result, err := p.Generate(ctx, req)

	// Flush the recent route before exiting
	recorder.Close()
	<-recorderDone

	if err != nil {
		return err
	}

	fmt.Fprintln(out, result.Summary.Comment())
	path := sink.Path(result.ArchiveName)
	fmt.Fprintln(out, path)

	if open {
		if err := browser.OpenFile(path); err != nil {
			slog.Warn("Failed to open archive", "path", path, "error", err)
		}
	}
	return nil
}

func serve(ctx context.Context, cfg *config.Config, p *planner.Planner, dir directory.Lookup, recentRepo database.RecentRouteRepository, recorder *tasks.RecentRouteRecorder, defaults models.PlanSettings) error {
	if err := defaults.Normalize().Validate(); err != nil {
		return &planner.ValidationError{Field: "settings", Err: err}
	}

	srv := server.New(p, dir, recentRepo, defaults)

	d, err := daemon.New(daemon.Config{
		Addr:     cfg.HTTP.Addr,
		Handler:  srv.NewRouter(),
		Recorder: recorder,
		Tasks: []scheduler.Task{
			tasks.NewOutputCleanup(cfg.OutputDir, cfg.Retention(), cfg.CleanupInterval()),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	return d.Run(ctx)
}

func listRecent(repo database.RecentRouteRepository, out io.Writer) error {
	routes, err := repo.List()
	if err != nil {
		return err
	}
	if len(routes) == 0 {
		fmt.Fprintln(out, "No recent routes")
		return nil
	}
	for _, r := range routes {
		fmt.Fprintf(out, "%s  %s  %s\n", r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Route)
	}
	return nil
}

func forgetRecent(repo database.RecentRouteRepository, ids string, out io.Writer) error {
	var list []string
	for _, id := range strings.Split(ids, ",") {
		if id = strings.TrimSpace(id); id != "" {
			list = append(list, id)
		}
	}

	removed, err := repo.Remove(list)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Removed %d recent route(s)\n", removed)
	return nil
}
