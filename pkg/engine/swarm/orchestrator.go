// Package swarm schedules finding sources in bounded concurrent batches
// under per-source and global time budgets.
package swarm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DrSkyle/assetpulse/pkg/config"
	"github.com/DrSkyle/assetpulse/pkg/engine/sources"
	"github.com/DrSkyle/assetpulse/pkg/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Orchestrator runs sources batch by batch. The zero value is not usable;
// construct with New.
type Orchestrator struct {
	cfg    config.OrchestratorConfig
	logger *slog.Logger
	tracer trace.Tracer
	meter  metric.Meter

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)

	findingsCounter metric.Int64Counter
	outcomeCounter  metric.Int64Counter
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithMeter sets the meter used for source counters.
func WithMeter(m metric.Meter) Option {
	return func(o *Orchestrator) {
		if m != nil {
			o.meter = m
		}
	}
}

// WithClock replaces the wall clock and the cooldown sleep.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration)) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
		if sleep != nil {
			o.sleep = sleep
		}
	}
}

// New builds an orchestrator. cfg is normalized.
func New(cfg config.OrchestratorConfig, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:    cfg.Normalize(),
		logger: slog.Default(),
		tracer: otel.Tracer("assetpulse/swarm"),
		meter:  otel.Meter("assetpulse/swarm"),
		now:    time.Now,
		sleep:  sleepCtx,
	}
	for _, opt := range opts {
		opt(o)
	}

	var err error
	if o.findingsCounter, err = o.meter.Int64Counter("assetpulse.sources.findings",
		metric.WithDescription("Findings produced per source")); err != nil {
		o.logger.Warn("failed to create findings counter", "error", err)
	}
	if o.outcomeCounter, err = o.meter.Int64Counter("assetpulse.sources.outcomes",
		metric.WithDescription("Source runs by outcome")); err != nil {
		o.logger.Warn("failed to create outcome counter", "error", err)
	}
	return o
}

// Config returns the effective configuration.
func (o *Orchestrator) Config() config.OrchestratorConfig { return o.cfg }

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Outcome is the result of one orchestrated run.
type Outcome struct {
	// Findings are flattened in source registration order.
	Findings []model.Finding
	// Statuses has exactly one entry per source, in registration order.
	Statuses  []model.SourceStatus
	Batches   int
	Cooldowns int
	Elapsed   time.Duration
}

// Counts tallies statuses by outcome.
func (o Outcome) Counts() map[model.Outcome]int {
	out := make(map[model.Outcome]int)
	for _, s := range o.Statuses {
		out[s.Outcome]++
	}
	return out
}

// Run schedules srcs in batches of BatchSize. Sources in a batch run
// concurrently, each under SourceTimeout. The batch itself waits at most
// max(MinBatchBudget, GlobalTimeout-elapsed); when that expires the
// unfinished sources are cancelled and marked timed out, and every later
// source is left not run. The MinBatchBudget floor applies only to batches
// that start with global budget left: once GlobalTimeout has elapsed no
// further batch is launched and its sources are reported not run. Failed
// or timed-out sources contribute their fallback findings when they
// implement sources.Fallbacker.
func (o *Orchestrator) Run(ctx context.Context, srcs []sources.Source, req sources.Request) Outcome {
	ctx, span := o.tracer.Start(ctx, "Orchestrator.Run", trace.WithAttributes(
		attribute.Int("sources", len(srcs)),
		attribute.Int("batch_size", o.cfg.BatchSize),
	))
	defer span.End()

	start := o.now()
	out := Outcome{Statuses: make([]model.SourceStatus, len(srcs))}
	perSource := make([][]model.Finding, len(srcs))
	for i, s := range srcs {
		out.Statuses[i] = model.SourceStatus{
			Name:        s.Name(),
			Perspective: s.Perspective(),
			Outcome:     model.OutcomeNotRun,
		}
	}

	for bi, b := range partition(len(srcs), o.cfg.BatchSize) {
		if ctx.Err() != nil {
			break
		}
		if bi > 0 {
			if o.remaining(start) <= 0 {
				break
			}
			if o.cfg.BatchCooldown > 0 {
				o.sleep(ctx, o.cfg.BatchCooldown)
				out.Cooldowns++
			}
		}
		remaining := o.remaining(start)
		if remaining <= 0 {
			o.logger.Warn("global source budget exhausted", "batch", bi+1, "not_run", len(srcs)-b.lo)
			break
		}
		wait := max(o.cfg.MinBatchBudget, remaining)

		completed := o.runBatch(ctx, bi, srcs[b.lo:b.hi], req, wait, out.Statuses[b.lo:b.hi], perSource[b.lo:b.hi])
		out.Batches++
		if !completed {
			o.logger.Warn("batch budget exhausted, remaining sources not run", "batch", bi+1, "not_run", len(srcs)-b.hi)
			span.AddEvent("global budget exhausted")
			break
		}
	}

	for _, f := range perSource {
		out.Findings = append(out.Findings, f...)
	}
	out.Elapsed = o.now().Sub(start)

	counts := out.Counts()
	span.SetAttributes(
		attribute.Int("findings", len(out.Findings)),
		attribute.Int("batches", out.Batches),
		attribute.Int("timed_out", counts[model.OutcomeTimedOut]),
		attribute.Int("not_run", counts[model.OutcomeNotRun]),
	)
	o.logger.Info("source run complete",
		"sources", len(srcs),
		"findings", len(out.Findings),
		"batches", out.Batches,
		"succeeded", counts[model.OutcomeSuccess],
		"failed", counts[model.OutcomeError],
		"timed_out", counts[model.OutcomeTimedOut],
		"not_run", counts[model.OutcomeNotRun])
	return out
}

func (o *Orchestrator) remaining(start time.Time) time.Duration {
	return o.cfg.GlobalTimeout - o.now().Sub(start)
}

type batchResult struct {
	idx int
	res Result[[]model.Finding]
}

// runBatch reports whether every source in the batch finished before the
// batch deadline. statuses and findings are written only after the batch
// has been joined.
func (o *Orchestrator) runBatch(ctx context.Context, index int, batch []sources.Source, req sources.Request,
	wait time.Duration, statuses []model.SourceStatus, findings [][]model.Finding) bool {
	ctx, span := o.tracer.Start(ctx, fmt.Sprintf("Batch.%d", index+1), trace.WithAttributes(
		attribute.Int("batch.size", len(batch)),
		attribute.Int64("batch.wait_ms", wait.Milliseconds()),
	))
	defer span.End()

	bctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := make(chan batchResult, len(batch))
	for i, s := range batch {
		go func() {
			sctx, sspan := o.tracer.Start(bctx, "Source."+s.Name())
			defer sspan.End()
			r := WithTimeout(sctx, o.cfg.SourceTimeout, func(c context.Context) ([]model.Finding, error) {
				return s.Analyze(c, req)
			})
			if r.Err != nil {
				sspan.RecordError(r.Err)
				sspan.SetStatus(codes.Error, r.Err.Error())
			}
			ch <- batchResult{idx: i, res: r}
		}()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	results := make([]*Result[[]model.Finding], len(batch))
	batchStart := time.Now()
	received := 0
collect:
	for received < len(batch) {
		select {
		case br := <-ch:
			results[br.idx] = &br.res
			received++
		case <-timer.C:
			break collect
		case <-ctx.Done():
			break collect
		}
	}
	cancel()

	for i, s := range batch {
		st := &statuses[i]
		r := results[i]
		if r == nil {
			st.Outcome = model.OutcomeTimedOut
			st.Message = "batch budget exhausted"
			st.Duration = time.Since(batchStart)
			findings[i] = o.fallback(s, req, st)
		} else {
			st.Duration = r.Elapsed
			o.apply(s, req, *r, st, &findings[i])
		}
		st.Count = len(findings[i])
		o.record(ctx, st)
	}
	span.SetAttributes(attribute.Int("batch.completed", received))
	o.logger.Debug("batch complete", "batch", index+1, "completed", received, "size", len(batch))
	return received == len(batch)
}

func (o *Orchestrator) apply(s sources.Source, req sources.Request, r Result[[]model.Finding], st *model.SourceStatus, out *[]model.Finding) {
	var perr *PanicError
	switch {
	case r.Err == nil:
		st.Outcome = model.OutcomeSuccess
		*out = r.Value
		return
	case errors.Is(r.Err, ErrTimeout):
		st.Outcome = model.OutcomeTimedOut
	case errors.As(r.Err, &perr):
		st.Outcome = model.OutcomeError
		o.logger.Error("source panicked", "source", s.Name(), "error", perr.Value, "stack", string(perr.Stack))
	default:
		st.Outcome = model.OutcomeError
	}
	st.Message = r.Err.Error()
	o.logger.Warn("source failed", "source", s.Name(), "outcome", st.Outcome, "error", r.Err)
	*out = o.fallback(s, req, st)
}

func (o *Orchestrator) fallback(s sources.Source, req sources.Request, st *model.SourceStatus) (out []model.Finding) {
	fb, ok := s.(sources.Fallbacker)
	if !ok {
		return nil
	}
	st.UsedFallback = true
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("source fallback panicked", "source", s.Name(), "error", r)
			out = nil
		}
	}()
	return fb.Fallback(req)
}

func (o *Orchestrator) record(ctx context.Context, st *model.SourceStatus) {
	attrs := metric.WithAttributes(
		attribute.String("source", st.Name),
		attribute.String("outcome", string(st.Outcome)),
	)
	if o.outcomeCounter != nil {
		o.outcomeCounter.Add(ctx, 1, attrs)
	}
	if o.findingsCounter != nil && st.Count > 0 {
		o.findingsCounter.Add(ctx, int64(st.Count), metric.WithAttributes(attribute.String("source", st.Name)))
	}
}

type batchRange struct{ lo, hi int }

// partition splits n items into consecutive runs of at most size.
func partition(n, size int) []batchRange {
	if size <= 0 {
		size = n
	}
	var out []batchRange
	for lo := 0; lo < n; lo += size {
		out = append(out, batchRange{lo: lo, hi: min(lo+size, n)})
	}
	return out
}
