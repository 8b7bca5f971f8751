package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"time"

	"github.com/DrSkyle/assetpulse/pkg/config"
	"github.com/DrSkyle/assetpulse/pkg/domain"
	"github.com/DrSkyle/assetpulse/pkg/engine/detect"
	"github.com/DrSkyle/assetpulse/pkg/engine/health"
	"github.com/DrSkyle/assetpulse/pkg/engine/report"
	"github.com/DrSkyle/assetpulse/pkg/engine/sources"
	"github.com/DrSkyle/assetpulse/pkg/engine/swarm"
	"github.com/DrSkyle/assetpulse/pkg/engine/unify"
	"github.com/DrSkyle/assetpulse/pkg/model"
	"github.com/DrSkyle/assetpulse/pkg/profile"
	"github.com/DrSkyle/assetpulse/pkg/telemetry"
	"github.com/DrSkyle/assetpulse/pkg/version"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrPartialResult indicates the analysis completed but some finding
// sources failed, timed out or never ran.
var ErrPartialResult = errors.New("analysis completed with partial results")

// ErrPanic is returned when Analyze recovered from a panic.
var ErrPanic = errors.New("analysis aborted by panic")

// Config holds engine settings.
type Config struct {
	Analysis config.Config

	// StrictMode turns a partial source run into ErrPartialResult.
	StrictMode bool

	// Telemetry config.
	OtelEndpoint  string // "http://localhost:4318" or via env
	SkipTelemetry bool   // Set true if embedding in an app that already has OTEL

	Logger *slog.Logger
}

// Request is one analysis job.
type Request struct {
	SystemType string
	SystemName string
	Dataset    *profile.Dataset
	Context    map[string]string
}

// Engine runs the full analysis: detection pipeline, finding sources,
// unification and health scoring.
type Engine struct {
	Logger *slog.Logger
	Tracer trace.Tracer

	Domains  *domain.Registry
	Sources  *sources.Registry
	Enricher swarm.Enricher

	config   Config
	shutdown func(context.Context) error
}

// Option defines a functional configuration override.
type Option func(*Engine)

// New initializes the Engine. Without WithSources the built-in catalog is
// registered in offline mode, serving only fallback findings.
func New(ctx context.Context, opts ...Option) (*Engine, error) {
	e := &Engine{
		Logger: NewLogger(os.Stdout, slog.LevelInfo),
		Tracer: otel.Tracer("assetpulse/engine"),
		config: Config{Analysis: config.Default()},
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.Domains == nil {
		reg, err := domain.NewRegistry()
		if err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
		e.Domains = reg
	}
	if e.Sources == nil {
		e.Sources = sources.NewCatalogRegistry(nil, e.Logger)
	}

	if !e.config.SkipTelemetry {
		shutdown, err := telemetry.Init(ctx, version.AppName, version.Current, e.config.OtelEndpoint)
		if err != nil {
			e.Logger.Warn("Telemetry failed", "error", err)
		} else {
			e.shutdown = shutdown
		}
	}

	return e, nil
}

// NewLogger returns a JSON logger that redacts credentials.
func NewLogger(w io.Writer, level slog.Leveler) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: redactSensitiveData,
	}))
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.Logger = l
		}
	}
}

// WithConfig sets raw config. Unset analysis settings take their defaults.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		cfg.Analysis = cfg.Analysis.Normalize()
		e.config = cfg
		if cfg.Logger != nil {
			e.Logger = cfg.Logger
		}
	}
}

// WithDomains replaces the built-in domain registry.
func WithDomains(r *domain.Registry) Option {
	return func(e *Engine) {
		e.Domains = r
	}
}

// WithSources sets the finding sources to orchestrate.
func WithSources(r *sources.Registry) Option {
	return func(e *Engine) {
		e.Sources = r
	}
}

// WithEnricher enables enrichment of the most impactful source findings.
func WithEnricher(en swarm.Enricher) Option {
	return func(e *Engine) {
		e.Enricher = en
	}
}

// WithTracer sets the tracer.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.Tracer = t
		}
	}
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.config }

// Close flushes telemetry.
func (e *Engine) Close(ctx context.Context) error {
	if e.shutdown == nil {
		return nil
	}
	return e.shutdown(ctx)
}

// Analyze runs one analysis. The returned result is always usable when err
// is nil or ErrPartialResult.
func (e *Engine) Analyze(ctx context.Context, req Request) (res *model.AnalysisResult, err error) {
	ctx, span := e.Tracer.Start(ctx, "Engine.Analyze", trace.WithAttributes(
		attribute.String("system.type", req.SystemType),
		attribute.String("system.name", req.SystemName),
	))
	defer span.End()

	defer e.recoverPanic(ctx, &err)

	start := time.Now()
	analysis := e.config.Analysis
	knowledge, found := e.Domains.Lookup(req.SystemType)
	systemType := req.SystemType
	if !found {
		systemType = knowledge.SystemType
	}

	e.Logger.Info("Starting analysis",
		"system_type", systemType,
		"system_name", req.SystemName,
		"records", req.Dataset.Rows(),
		"sources", e.Sources.Len())

	prof := profile.Build(req.Dataset)
	pipe := detect.NewPipeline(analysis.Detection, detect.WithLogger(e.Logger)).Run(ctx, req.Dataset, knowledge)

	srcReq := sources.Request{
		SystemType: systemType,
		SystemName: req.SystemName,
		Profile:    prof,
		Context:    req.Context,
	}
	statuses, findings := e.runSources(ctx, srcReq)

	all := unify.FromAnomalies(pipe.Anomalies, unify.PipelineSource)
	all = append(all, findings...)
	unified := unify.New(analysis.Unify).Unify(all)

	score := health.Score(pipe.Anomalies, pipe.Margins, analysis.Health)

	res = &model.AnalysisResult{
		ID:              uuid.NewString(),
		SystemType:      systemType,
		SystemName:      req.SystemName,
		HealthScore:     score,
		HealthState:     health.State(score),
		Anomalies:       pipe.Anomalies,
		Unified:         unified,
		Margins:         pipe.Margins,
		BlindSpots:      pipe.BlindSpots,
		Correlations:    pipe.Correlations,
		Trends:          pipe.Trends,
		Insights:        pipe.Insights,
		Recommendations: pipe.Recommendations,
		Sources:         statuses,
		Timestamp:       time.Now().UTC(),
	}
	res.Summary = summaryLine(report.Summarize(res))

	span.SetAttributes(
		attribute.Float64("health.score", score),
		attribute.Int("anomalies", len(res.Anomalies)),
		attribute.Int("unified", len(res.Unified)),
	)
	e.Logger.Info("Analysis complete",
		"id", res.ID,
		"health_score", score,
		"anomalies", len(res.Anomalies),
		"unified", len(res.Unified),
		"duration_ms", time.Since(start).Milliseconds())

	if partial(statuses) {
		span.SetAttributes(attribute.Bool("analysis.partial", true))
		if e.config.StrictMode {
			e.Logger.Error("Strict Mode: Failing due to partial source results")
			return res, ErrPartialResult
		}
		e.Logger.Warn("Analysis finished with partial source results (StrictMode=false)")
	}
	return res, nil
}

// runSources orchestrates the registered sources. Sources are not called
// for an empty dataset; they are reported as not run.
func (e *Engine) runSources(ctx context.Context, req sources.Request) ([]model.SourceStatus, []model.Finding) {
	srcs := e.Sources.Sources()
	if req.Profile.RecordCount == 0 {
		statuses := make([]model.SourceStatus, len(srcs))
		for i, s := range srcs {
			statuses[i] = model.SourceStatus{
				Name:        s.Name(),
				Perspective: s.Perspective(),
				Outcome:     model.OutcomeNotRun,
				Message:     "no data",
			}
		}
		return statuses, nil
	}

	orch := swarm.New(e.config.Analysis.Orchestrator,
		swarm.WithLogger(e.Logger),
		swarm.WithTracer(e.Tracer),
	)
	out := orch.Run(ctx, srcs, req)
	findings := orch.Enrich(ctx, out.Findings, req, e.Enricher)
	return out.Statuses, findings
}

func partial(statuses []model.SourceStatus) bool {
	for _, s := range statuses {
		if s.Outcome != model.OutcomeSuccess && s.Message != "no data" {
			return true
		}
	}
	return false
}

func summaryLine(s report.Summary) string {
	name := s.SystemName
	if name == "" {
		name = s.SystemType
	}
	return fmt.Sprintf("%s health %.1f/100 (%s): %d anomalies, %d unified (%d critical, %d high); sources %d ok, %d failed, %d not run.",
		name, s.HealthScore, s.HealthState, s.Anomalies, s.Unified, s.Critical, s.High,
		s.SourcesOK, s.SourcesFailed, s.SourcesNotRun)
}

// recoverPanic handles failures.
func (e *Engine) recoverPanic(ctx context.Context, err *error) {
	if r := recover(); r != nil {
		tr := otel.Tracer("assetpulse/engine")
		_, span := tr.Start(ctx, "CriticalPanic")

		stack := debug.Stack()

		span.RecordError(fmt.Errorf("%v", r), trace.WithStackTrace(true))
		span.SetStatus(codes.Error, "CRITICAL FAILURE")
		span.SetAttributes(
			attribute.String("crash.stack", string(stack)),
			attribute.String("crash.reason", fmt.Sprintf("%v", r)),
		)
		span.End()

		e.Logger.Error("CRITICAL FAILURE", "error", r, "stack", string(stack))

		// Not fatal: library callers decide what to do with the error.
		*err = fmt.Errorf("%w: %v", ErrPanic, r)
	}
}

// redactSensitiveData scrubs sensitive keys from logs.
func redactSensitiveData(groups []string, a slog.Attr) slog.Attr {
	sensitiveKeys := map[string]bool{
		"password": true, "token": true, "secret": true, "api_key": true,
		"apikey": true, "authorization": true, "webhook": true,
		"slack_webhook": true, "auth_token": true, "credential": true,
		"access_key": true, "connection_string": true,
	}

	if sensitiveKeys[a.Key] {
		return slog.Attr{
			Key:   a.Key,
			Value: slog.StringValue("[REDACTED]"),
		}
	}
	return a
}
