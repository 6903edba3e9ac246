package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/Vodeneev/sharpedge/internal/calculator"
	"github.com/Vodeneev/sharpedge/internal/orchestrator"
	"github.com/Vodeneev/sharpedge/internal/parser/parsers"
	"github.com/Vodeneev/sharpedge/internal/pipeline"
	"github.com/Vodeneev/sharpedge/internal/pkg/alias"
	pkgconfig "github.com/Vodeneev/sharpedge/internal/pkg/config"
	"github.com/Vodeneev/sharpedge/internal/pkg/enums"
	"github.com/Vodeneev/sharpedge/internal/pkg/health"
	"github.com/Vodeneev/sharpedge/internal/pkg/logging"
	"github.com/Vodeneev/sharpedge/internal/pkg/metrics"
	"github.com/Vodeneev/sharpedge/internal/pkg/notify"
	"github.com/Vodeneev/sharpedge/internal/pkg/storage"
	"github.com/Vodeneev/sharpedge/internal/resolver"

	// Register all supported adapters via init().
	_ "github.com/Vodeneev/sharpedge/internal/parser/parsers/all"
)

const (
	defaultConfigPath = "configs/pipeline.yaml"
	serviceName       = "pipeline"
)

type flags struct {
	configPath string
	runFor     time.Duration
	once       bool
	parser     string // override enabled_parsers, comma separated
}

func main() {
	if err := run(); err != nil {
		slog.Error("Pipeline failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	f := parseFlags()
	appConfig, err := pkgconfig.Load(f.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if _, err := logging.SetupLogger(&appConfig.Logging, serviceName); err != nil {
		slog.Warn("Failed to setup logging, continuing with default logger", "error", err)
	}
	slog.Info("Config loaded", "path", f.configPath, "sharp_book", appConfig.Pipeline.SharpBook)

	if f.parser != "" {
		appConfig.Parser.EnabledParsers = strings.Split(f.parser, ",")
	}

	ctx, cancel := createContext(f.runFor)
	defer cancel()
	setupSignalHandler(ctx, cancel)

	m := metrics.NewPipelineMetrics()

	deps, cleanup, err := buildDeps(ctx, appConfig, m)
	if err != nil {
		return err
	}
	defer cleanup()

	coord, err := pipeline.NewCoordinator(deps, coordinatorOptions(appConfig))
	if err != nil {
		return err
	}

	var ops *health.Server
	if appConfig.Health.Port > 0 {
		addr, err := health.AddrFor(appConfig.Health.Port)
		if err != nil {
			return err
		}
		ops = health.NewServer(serviceName, deps.Aliases, m.Handler())
		go func() {
			if err := ops.Run(ctx, addr, appConfig.Health.ReadHeaderTimeout); err != nil {
				slog.Error("Health server stopped", "error", err)
			}
		}()
	}

	trigger := func() {
		report, err := coord.RunCycle(ctx)
		if ops != nil {
			ops.SetLastReport(report)
		}
		if err != nil && !errors.Is(err, pipeline.ErrCycleInProgress) {
			slog.Error("Cycle failed", "error", err)
		}
	}

	if f.once {
		report, err := coord.RunCycle(ctx)
		if report != nil {
			printSummary(report)
		}
		return err
	}

	return runLoop(ctx, appConfig.Pipeline.Interval, trigger)
}

func parseFlags() flags {
	var f flags

	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = defaultConfigPath
	}

	flag.StringVar(&f.configPath, "config", defaultConfig, "Path to config file (can be set via CONFIG_PATH env var)")
	flag.DurationVar(&f.runFor, "run-for", 0, "Auto-stop after duration (e.g. 10m). 0 = run until SIGINT/SIGTERM")
	flag.BoolVar(&f.once, "once", false, "Run a single cycle, print its summary and exit")
	flag.StringVar(&f.parser, "parser", "", "Override enabled_parsers (e.g. 'pinnacle,crabsports'). Empty = use config")
	flag.Parse()
	return f
}

// buildDeps wires the collaborators. Storage, Redis and Telegram are optional: without them
// rows and unresolved reports go to the log.
func buildDeps(ctx context.Context, cfg *pkgconfig.Config, m *metrics.PipelineMetrics) (pipeline.Deps, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (pipeline.Deps, func(), error) {
		cleanup()
		return pipeline.Deps{}, func() {}, err
	}

	names := cfg.Parser.EnabledParsers
	if len(names) == 0 {
		names = parsers.AvailableNames()
	}
	adapters, err := parsers.Build(cfg, names)
	if err != nil {
		return fail(err)
	}
	if len(adapters) == 0 {
		return fail(fmt.Errorf("no parsers selected (available: %v)", parsers.AvailableNames()))
	}
	orch := orchestrator.New(adapters, orchestrator.Options{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BackoffUnit: cfg.Retry.BackoffUnit,
		Timeout:     cfg.Pipeline.CycleTimeout,
	}, m)
	slog.Info("Using parsers", "parsers", strings.Join(orch.Books(), ", "))

	deps := pipeline.Deps{
		Fetcher:    orch,
		Emitter:    storage.LogEmitter{},
		Unresolved: storage.LogUnresolvedReporter{},
		Metrics:    m,
	}

	source := alias.FileSource{Path: cfg.Aliases.Path}
	if cfg.Redis.Addr != "" {
		client, err := storage.NewRedisClient(&cfg.Redis)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { _ = client.Close() })
		deps.Unresolved = storage.NewRedisUnresolvedReporter(client, cfg.Redis.ReportKey, cfg.Redis.ReportMaxSize)
		if cfg.Aliases.RedisOverlay {
			source.Overlay = alias.NewRedisOverlay(client, cfg.Redis.AliasPrefix)
		}
	}

	deps.Aliases = alias.NewStore(source)
	if _, err := deps.Aliases.Reload(ctx); err != nil {
		return fail(fmt.Errorf("failed to load alias table: %w", err))
	}

	if cfg.Postgres.DSN != "" {
		pg, err := storage.NewPostgresComparisonStorage(&cfg.Postgres)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { _ = pg.Close() })
		deps.Emitter = pg
	} else {
		slog.Warn("postgres.dsn not set, comparisons are logged only")
	}

	if cfg.Telegram.BotToken != "" {
		n, err := notify.NewTelegramNotifier(cfg.Telegram)
		if err != nil {
			slog.Warn("Telegram alerts disabled", "error", err)
		} else {
			closers = append(closers, n.Stop)
			deps.Notifier = n
		}
	}

	calc, err := calculator.New(cfg.Calculator.VigMethod, cfg.Calculator.KellyFractionCap)
	if err != nil {
		return fail(err)
	}
	deps.Calculator = calc

	return deps, cleanup, nil
}

func coordinatorOptions(cfg *pkgconfig.Config) pipeline.Options {
	scope := parsers.Scope{}
	for _, l := range cfg.Pipeline.Leagues {
		if league, ok := enums.ParseLeague(l); ok {
			scope.Leagues = append(scope.Leagues, league)
		} else {
			slog.Warn("Unknown league in pipeline.leagues, skipping", "league", l)
		}
	}
	for _, mt := range cfg.Pipeline.MarketTypes {
		if t, ok := enums.ParseMarketType(mt); ok {
			scope.MarketTypes = append(scope.MarketTypes, t)
		} else {
			slog.Warn("Unknown market type in pipeline.market_types, skipping", "market_type", mt)
		}
	}

	return pipeline.Options{
		SharpBook:   cfg.Pipeline.SharpBook,
		TargetBooks: cfg.Pipeline.TargetBooks,
		Scope:       scope,
		Resolver: resolver.Options{
			Threshold: cfg.Resolver.FuzzyThreshold,
			Margin:    cfg.Resolver.FuzzyMargin,
		},
		Bucket:        cfg.Resolver.Bucket,
		GameTolerance: cfg.Resolver.GameTolerance,
		EmitTimeout:   cfg.Pipeline.EmitTimeout,
		MinEV:         decimal.NewFromFloat(cfg.Calculator.MinEVThreshold),
	}
}

// runLoop fires trigger immediately and then on every tick. Each trigger runs in its own
// goroutine so a slow cycle makes the next trigger skip instead of queueing behind it.
func runLoop(ctx context.Context, interval time.Duration, trigger func()) error {
	var wg sync.WaitGroup
	fire := func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			trigger()
		}()
	}

	slog.Info("Starting periodic cycles", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	fire()
	for {
		select {
		case <-ctx.Done():
			slog.Info("Stopping, waiting for the running cycle...")
			wg.Wait()
			slog.Info("Pipeline stopped gracefully")
			return nil
		case <-ticker.C:
			fire()
		}
	}
}

func printSummary(r *pipeline.CycleReport) {
	fmt.Printf("cycle %s: state=%s degraded=%v observations=%d resolved=%d games=%d comparisons=%d positive_ev=%d\n",
		r.ID, r.State, r.Degraded, r.Observations, r.Resolved, r.Games, r.ComparisonCount, r.PositiveEV)
	for _, b := range r.Books {
		if b.Failure != nil {
			fmt.Printf("  %-12s FAILED %s after %d attempts: %v\n", b.Book, b.Failure.Kind, b.Attempts, b.Failure)
			continue
		}
		fmt.Printf("  %-12s %d observations in %s\n", b.Book, b.Observations, b.Took.Round(time.Millisecond))
	}
	for reason, n := range r.Drops {
		fmt.Printf("  dropped %-26s %d\n", reason, n)
	}
	for _, c := range r.Comparisons {
		if c.ExpectedValue.IsPositive() {
			fmt.Printf("  +EV %s %s @ %s  ev=%s kelly=%s\n", c.TargetBook, c.MarketKey.String(), c.TargetPrice, c.ExpectedValue.StringFixed(4), c.KellyFraction.StringFixed(4))
		}
	}
}

func createContext(runFor time.Duration) (context.Context, context.CancelFunc) {
	if runFor > 0 {
		return context.WithTimeout(context.Background(), runFor)
	}
	return context.WithCancel(context.Background())
}

func setupSignalHandler(ctx context.Context, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("Received shutdown signal, stopping pipeline...", "signal", sig.String())
			cancel()
		case <-ctx.Done():
			signal.Stop(sigChan)
		}
	}()
}
