// Package pipeline sequences one odds cycle: fetch, resolve, calculate, emit.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Vodeneev/sharpedge/internal/calculator"
	"github.com/Vodeneev/sharpedge/internal/orchestrator"
	"github.com/Vodeneev/sharpedge/internal/parser/parsers"
	"github.com/Vodeneev/sharpedge/internal/pkg/alias"
	"github.com/Vodeneev/sharpedge/internal/pkg/metrics"
	"github.com/Vodeneev/sharpedge/internal/pkg/models"
	"github.com/Vodeneev/sharpedge/internal/pkg/storage"
	"github.com/Vodeneev/sharpedge/internal/resolver"
)

var (
	// ErrCycleInProgress is returned when a trigger fires while a cycle is still running.
	ErrCycleInProgress = errors.New("cycle already in progress")
	// ErrAllBooksFailed is returned together with the report of a cycle in which no book produced data.
	ErrAllBooksFailed = errors.New("all books failed")
	ErrNoAliasTable   = errors.New("no alias table loaded")
)

// Fetcher runs the adapters for one cycle. *orchestrator.Orchestrator implements it.
type Fetcher interface {
	Run(ctx context.Context, scope parsers.Scope) orchestrator.Result
}

// Notifier sends alerts for stored rows. *notify.TelegramNotifier implements it.
type Notifier interface {
	NotifyComparisons(ctx context.Context, rows []models.OddsComparison, minEV decimal.Decimal) (int, error)
}

type Options struct {
	SharpBook     string
	TargetBooks   []string // empty means every book except the sharp one
	Scope         parsers.Scope
	Resolver      resolver.Options
	Bucket        time.Duration
	GameTolerance time.Duration
	EmitTimeout   time.Duration
	MinEV         decimal.Decimal // alert threshold
}

type Deps struct {
	Fetcher    Fetcher
	Aliases    *alias.Store
	Calculator *calculator.Calculator
	Emitter    storage.ComparisonEmitter
	Unresolved storage.UnresolvedReporter // optional
	Notifier   Notifier                   // optional
	Metrics    *metrics.PipelineMetrics   // optional
}

// Coordinator runs at most one cycle at a time.
type Coordinator struct {
	fetcher    Fetcher
	aliases    *alias.Store
	calc       *calculator.Calculator
	emitter    storage.ComparisonEmitter
	unresolved storage.UnresolvedReporter
	notifier   Notifier
	metrics    *metrics.PipelineMetrics

	opts    Options
	targets map[string]bool

	running atomic.Bool
	last    atomic.Pointer[CycleReport]
}

func NewCoordinator(deps Deps, opts Options) (*Coordinator, error) {
	if deps.Fetcher == nil || deps.Aliases == nil || deps.Calculator == nil || deps.Emitter == nil {
		return nil, fmt.Errorf("fetcher, aliases, calculator and emitter are required")
	}
	opts.SharpBook = strings.ToLower(strings.TrimSpace(opts.SharpBook))
	if opts.SharpBook == "" {
		return nil, fmt.Errorf("sharp book is required")
	}
	if opts.EmitTimeout <= 0 {
		opts.EmitTimeout = 10 * time.Second
	}

	targets := make(map[string]bool, len(opts.TargetBooks))
	for _, b := range opts.TargetBooks {
		b = strings.ToLower(strings.TrimSpace(b))
		if b == opts.SharpBook {
			return nil, fmt.Errorf("target book %q is the sharp book", b)
		}
		targets[b] = true
	}

	return &Coordinator{
		fetcher:    deps.Fetcher,
		aliases:    deps.Aliases,
		calc:       deps.Calculator,
		emitter:    deps.Emitter,
		unresolved: deps.Unresolved,
		notifier:   deps.Notifier,
		metrics:    deps.Metrics,
		opts:       opts,
		targets:    targets,
	}, nil
}

// LastReport returns the report of the most recent finished cycle, nil before the first one.
func (c *Coordinator) LastReport() *CycleReport {
	return c.last.Load()
}

// RunCycle runs one full cycle. A trigger that arrives while a cycle is running is skipped
// with ErrCycleInProgress, never queued. When every book fails the cycle stops at RESOLVING
// and the report comes back with ErrAllBooksFailed.
func (c *Coordinator) RunCycle(ctx context.Context) (*CycleReport, error) {
	if !c.running.CompareAndSwap(false, true) {
		slog.Warn("Cycle trigger skipped, previous cycle still running")
		if c.metrics != nil {
			c.metrics.SkippedTriggers.Inc()
		}
		return nil, ErrCycleInProgress
	}
	defer c.running.Store(false)

	report := &CycleReport{
		ID:        uuid.NewString(),
		State:     StateFetching,
		StartedAt: time.Now().UTC(),
	}
	defer c.finish(report)

	log := slog.With("cycle_id", report.ID)

	table, err := c.aliases.Reload(ctx)
	if err != nil {
		report.AliasReloadError = err.Error()
	}
	if table == nil {
		return report, fmt.Errorf("%w: %v", ErrNoAliasTable, err)
	}
	report.AliasVersion = table.Version()

	stage := time.Now()
	result := c.fetcher.Run(ctx, c.opts.Scope)
	c.observeStage(StateFetching, stage)

	for _, s := range result.Successes {
		report.Books = append(report.Books, BookReport{Book: s.Book, Observations: len(s.Observations), Attempts: s.Attempts, Took: s.Took})
	}
	for _, f := range result.Failures {
		report.Books = append(report.Books, BookReport{Book: f.Book, Attempts: f.Attempts, Failure: f})
		if c.metrics != nil {
			c.metrics.BookFailures.WithLabelValues(f.Book, string(f.Kind)).Inc()
		}
	}
	report.Degraded = result.Degraded()
	report.State = StateResolving

	if len(result.Successes) == 0 {
		log.Error("Cycle failed, no book produced data", "books", len(result.Failures))
		return report, ErrAllBooksFailed
	}

	stage = time.Now()
	events := &collector{}
	quotes := c.resolve(report, table, result.Successes, events)
	c.observeStage(StateResolving, stage)

	report.State = StateCalculating
	stage = time.Now()
	rows := c.compare(report, quotes)
	c.observeStage(StateCalculating, stage)

	report.Comparisons = rows
	report.ComparisonCount = len(rows)
	for _, r := range rows {
		if r.ExpectedValue.IsPositive() {
			report.PositiveEV++
		}
	}

	report.State = StateEmitting
	stage = time.Now()
	c.emit(ctx, report, rows)
	c.notify(ctx, report, rows)
	c.flushUnresolved(ctx, report, events.drain(report.ID))
	c.observeStage(StateEmitting, stage)

	report.State = StateDone
	return report, nil
}

// emit hands every row to storage once. A failure is logged and counted; the cycle still finishes.
func (c *Coordinator) emit(ctx context.Context, report *CycleReport, rows []models.OddsComparison) {
	if len(rows) == 0 {
		return
	}
	emitCtx, cancel := context.WithTimeout(ctx, c.opts.EmitTimeout)
	defer cancel()

	if err := c.emitter.Emit(emitCtx, rows); err != nil {
		report.EmitError = err.Error()
		slog.Error("Failed to emit comparisons", "cycle_id", report.ID, "rows", len(rows), "error", err)
		if c.metrics != nil {
			c.metrics.EmitFailures.Inc()
		}
		return
	}
	if c.metrics != nil {
		for _, r := range rows {
			c.metrics.ObserveComparison(r)
		}
	}
}

func (c *Coordinator) notify(ctx context.Context, report *CycleReport, rows []models.OddsComparison) {
	if c.notifier == nil || report.PositiveEV == 0 {
		return
	}
	n, err := c.notifier.NotifyComparisons(ctx, rows, c.opts.MinEV)
	report.Alerts = n
	if err != nil {
		slog.Warn("Failed to queue alerts", "cycle_id", report.ID, "queued", n, "error", err)
	}
}

func (c *Coordinator) flushUnresolved(ctx context.Context, report *CycleReport, events []models.UnresolvedEvent) {
	report.UnresolvedEvents = len(events)
	if len(events) == 0 {
		return
	}
	if c.metrics != nil {
		for _, ev := range events {
			c.metrics.UnresolvedEvents.WithLabelValues(string(ev.Kind), string(ev.Outcome)).Inc()
		}
	}
	if c.unresolved == nil {
		return
	}
	reportCtx, cancel := context.WithTimeout(ctx, c.opts.EmitTimeout)
	defer cancel()
	if err := c.unresolved.ReportUnresolved(reportCtx, events); err != nil {
		slog.Warn("Failed to report unresolved entities", "cycle_id", report.ID, "events", len(events), "error", err)
	}
}

func (c *Coordinator) observeStage(s State, started time.Time) {
	if c.metrics != nil {
		c.metrics.ObserveStage(strings.ToLower(string(s)), time.Since(started))
	}
}

func (c *Coordinator) finish(report *CycleReport) {
	report.FinishedAt = time.Now().UTC()
	c.last.Store(report)

	took := report.FinishedAt.Sub(report.StartedAt)
	if c.metrics != nil {
		c.metrics.CyclesTotal.WithLabelValues(report.Outcome()).Inc()
		c.metrics.CycleDuration.Observe(took.Seconds())
		c.metrics.SetAliasVersion(report.AliasVersion)
		for reason, n := range report.Drops {
			c.metrics.Drops.WithLabelValues(reason).Add(float64(n))
		}
	}

	level := slog.LevelInfo
	if report.Degraded || report.State != StateDone {
		level = slog.LevelWarn
	}
	slog.Log(context.Background(), level, "Cycle finished",
		"cycle_id", report.ID,
		"state", report.State,
		"degraded", report.Degraded,
		"took", took,
		"alias_version", report.AliasVersion,
		"books", len(report.Books),
		"failed_books", len(report.Failures()),
		"observations", report.Observations,
		"resolved", report.Resolved,
		"games", report.Games,
		"dropped", report.Drops,
		"comparisons", report.ComparisonCount,
		"positive_ev", report.PositiveEV,
		"alerts", report.Alerts,
	)
}
