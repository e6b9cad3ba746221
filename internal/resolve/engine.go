package resolve

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/dshills/mender/internal/cache"
	"github.com/dshills/mender/internal/finding"
	"github.com/dshills/mender/internal/providers"
)

const (
	// DefaultMargin is the number of lines on each side sent to the resolver.
	DefaultMargin = 10
	// KeyMargin is the narrower window used for the cache key, so edits
	// further away do not invalidate cached answers.
	KeyMargin = 3

	// ReportVersion is the version of the Report document format.
	ReportVersion = "1.0"
)

// Store is the subset of cache.Cache the engine needs.
type Store interface {
	Lookup(key string, dst any) bool
	Store(key string, payload any) error
}

// Options configures an Engine. Use DefaultOptions as a starting point.
type Options struct {
	// Root is the directory finding paths are relative to.
	Root string
	// MarginLines is the query window margin. Values below 1 use DefaultMargin.
	MarginLines int
	// OnlyNew drops cached results from the output.
	OnlyNew bool
	// Jobs bounds how many groups are resolved at once.
	Jobs int
	// Retries is how many more times an unusable answer is re-queried.
	Retries int
	Logger  zerolog.Logger
	Tracer  trace.Tracer
	// Meter records per-group outcome counts and resolver latency.
	Meter metric.Meter
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// DefaultOptions returns options for a sequential run with one retry.
func DefaultOptions() Options {
	return Options{
		MarginLines: DefaultMargin,
		Jobs:        1,
		Retries:     1,
		Logger:      zerolog.Nop(),
	}
}

// Engine resolves aggregated findings, consulting the cache before the resolver.
type Engine struct {
	store    Store
	resolver Resolver
	opts     Options
	log      zerolog.Logger
	tracer   trace.Tracer

	groupCounter   metric.Int64Counter
	resolveLatency metric.Float64Histogram
}

// NewEngine creates an engine. store and resolver must be non-nil.
func NewEngine(store Store, resolver Resolver, opts Options) *Engine {
	if opts.MarginLines < 1 {
		opts.MarginLines = DefaultMargin
	}
	if opts.Jobs < 1 {
		opts.Jobs = 1
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(instrumentationName)
	}
	if opts.Meter == nil {
		opts.Meter = otel.Meter(instrumentationName)
	}
	e := &Engine{
		store:    store,
		resolver: resolver,
		opts:     opts,
		log:      opts.Logger,
		tracer:   opts.Tracer,
	}
	e.initMetrics()
	return e
}

const instrumentationName = "github.com/dshills/mender/internal/resolve"

// initMetrics creates the engine's instruments. An instrument that cannot be
// created falls back to a no-op one.
func (e *Engine) initMetrics() {
	var err error
	e.groupCounter, err = e.opts.Meter.Int64Counter(
		"mender.resolve.groups",
		metric.WithDescription("Finding groups processed, by outcome status"),
		metric.WithUnit("{group}"),
	)
	if err != nil {
		e.log.Debug().Err(err).Msg("group counter unavailable")
		e.groupCounter = noop.Int64Counter{}
	}
	e.resolveLatency, err = e.opts.Meter.Float64Histogram(
		"mender.resolve.latency",
		metric.WithDescription("Time spent in the resolver per group"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		e.log.Debug().Err(err).Msg("latency histogram unavailable")
		e.resolveLatency = noop.Float64Histogram{}
	}
}

func (e *Engine) record(ctx context.Context, o outcome) {
	status := attribute.String("status", string(o.status))
	e.groupCounter.Add(ctx, 1, metric.WithAttributes(status))
	if o.calls > 0 {
		e.resolveLatency.Record(ctx, float64(o.took.Microseconds())/1000, metric.WithAttributes(status))
	}
}

// task is one group with its source lines.
type task struct {
	group *finding.Group
	lines []string
	// readErr is set when the source file could not be read.
	readErr error
}

type outcome struct {
	status Status
	output Output
	calls  int
	took   time.Duration
}

// Run resolves every group in idx. The returned report lists outputs sorted
// by filename and position. Only authentication failures and cancellation
// abort the run; other resolver errors are counted as failed groups.
func (e *Engine) Run(ctx context.Context, idx *finding.Index) (*Report, error) {
	start := e.opts.Now()
	ctx, span := e.tracer.Start(ctx, "resolve.Run", trace.WithAttributes(
		attribute.Int("groups", idx.Len()),
		attribute.Bool("only_new", e.opts.OnlyNew),
		attribute.Int("jobs", e.opts.Jobs),
	))
	defer span.End()

	tasks := e.plan(idx)
	outcomes := make([]outcome, len(tasks))
	var resolverNanos atomic.Int64

	p := pool.New().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError().
		WithMaxGoroutines(e.opts.Jobs)
	for i, t := range tasks {
		p.Go(func(ctx context.Context) error {
			o, err := e.resolveGroup(ctx, t)
			outcomes[i] = o
			if err == nil {
				e.record(ctx, o)
			}
			resolverNanos.Add(int64(o.took))
			return err
		})
	}
	if err := p.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	report := &Report{
		Tool:    "mender",
		Version: ReportVersion,
		RunID:   uuid.NewString(),
		Results: []Output{},
		Summary: Summary{Groups: len(tasks)},
	}
	for _, o := range outcomes {
		report.Summary.count(o.status)
		report.Summary.ResolverCalls += o.calls
		if o.status == StatusResolved || o.status == StatusUnresolved || o.status == StatusHit {
			report.Results = append(report.Results, o.output)
		}
	}
	sort.SliceStable(report.Results, func(i, j int) bool {
		a, b := report.Results[i], report.Results[j]
		if a.Filename != b.Filename {
			return a.Filename < b.Filename
		}
		return a.Pos < b.Pos
	})
	report.Timing = Timing{
		ResolverMs: time.Duration(resolverNanos.Load()).Milliseconds(),
		TotalMs:    e.opts.Now().Sub(start).Milliseconds(),
	}

	span.SetAttributes(
		attribute.Int("hits", report.Summary.Hits),
		attribute.Int("resolver_calls", report.Summary.ResolverCalls),
	)
	e.log.Info().
		Int("groups", report.Summary.Groups).
		Int("hits", report.Summary.Hits).
		Int("resolved", report.Summary.Resolved).
		Int("unresolved", report.Summary.Unresolved).
		Int("failed", report.Summary.Failed).
		Msg("resolve finished")
	return report, nil
}

// plan reads each source file once and pairs every group with its lines.
func (e *Engine) plan(idx *finding.Index) []task {
	files := make(map[string]task)
	tasks := make([]task, 0, idx.Len())
	for _, g := range idx.Groups() {
		src, ok := files[g.File]
		if !ok {
			data, err := os.ReadFile(filepath.Join(e.opts.Root, filepath.FromSlash(g.File)))
			if err != nil {
				src.readErr = err
			} else {
				src.lines = SplitLines(string(data))
			}
			files[g.File] = src
		}
		tasks = append(tasks, task{group: g, lines: src.lines, readErr: src.readErr})
	}
	return tasks
}

// Key returns the cache key for a group given its file's lines.
func Key(g *finding.Group, lines []string) string {
	window, offset := Window(lines, g.Line-1, KeyMargin)
	return cache.BudgetKey(g.File, strings.Join(window, "\n"), offset, g.Signature())
}

func (e *Engine) resolveGroup(ctx context.Context, t task) (outcome, error) {
	g := t.group
	ctx, span := e.tracer.Start(ctx, "resolve.Group", trace.WithAttributes(
		attribute.String("file", g.File),
		attribute.Int("line", g.Line),
		attribute.String("signature", g.Signature()),
	))
	defer span.End()
	log := e.log.With().Str("file", g.File).Int("line", g.Line).Logger()

	if t.readErr != nil {
		log.Warn().Err(t.readErr).Msg("cannot read source, skipping")
		span.SetAttributes(attribute.String("status", string(StatusFailed)))
		return outcome{status: StatusFailed}, nil
	}

	key := Key(g, t.lines)
	var cached Output
	if e.store.Lookup(key, &cached) {
		st := StatusHit
		if e.opts.OnlyNew {
			st = StatusSuppressed
		}
		log.Debug().Str("status", string(st)).Msg("cache hit")
		span.SetAttributes(attribute.String("status", string(st)))
		return outcome{status: st, output: cached}, nil
	}

	window, offset := Window(t.lines, g.Line-1, e.opts.MarginLines)
	q := Query{
		File:    g.File,
		Line:    g.Line,
		Context: window,
		Offset:  offset,
		Message: g.Text(),
	}
	out := Output{Filename: g.File, Pos: g.Line, Message: q.Message}

	var o outcome
	started := time.Now()
	for attempt := 0; attempt <= e.opts.Retries; attempt++ {
		answer, err := e.resolver.Query(ctx, q)
		o.calls++
		if err != nil {
			o.took = time.Since(started)
			span.RecordError(err)
			if providers.IsAuthError(err) || ctx.Err() != nil {
				span.SetStatus(codes.Error, err.Error())
				return o, fmt.Errorf("resolving %s:%d: %w", g.File, g.Line, err)
			}
			log.Warn().Err(err).Msg("resolver failed, skipping")
			span.SetAttributes(attribute.String("status", string(StatusFailed)))
			o.status = StatusFailed
			return o, nil
		}
		if IsUsable(answer) {
			out.Resolution = answer
			break
		}
		log.Debug().Int("attempt", attempt+1).Msg("resolver returned an empty answer")
	}
	o.took = time.Since(started)
	o.output = out

	if out.Resolution == "" {
		log.Warn().Int("attempts", o.calls).Msg("no usable answer, not caching")
		o.status = StatusUnresolved
		span.SetAttributes(attribute.String("status", string(o.status)))
		return o, nil
	}

	if err := e.store.Store(key, out); err != nil {
		log.Warn().Err(err).Msg("cannot store resolution")
	}
	o.status = StatusResolved
	span.SetAttributes(attribute.String("status", string(o.status)))
	return o, nil
}
