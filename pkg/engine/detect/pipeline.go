// Package detect implements the six-layer statistical detection pipeline:
// outliers, threshold breaches, trend changes, correlation breaks, pattern
// anomalies and rate-of-change events, plus engineering margins, blind
// spots and insights derived from the same dataset.
package detect

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/DrSkyle/assetpulse/pkg/config"
	"github.com/DrSkyle/assetpulse/pkg/domain"
	"github.com/DrSkyle/assetpulse/pkg/model"
	"github.com/DrSkyle/assetpulse/pkg/profile"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Layer is one independent detector over the shared input.
type Layer interface {
	Name() string
	Detect(ctx context.Context, in *Input) []model.Anomaly
}

// Input is the read-only view every layer receives.
type Input struct {
	Dataset   *profile.Dataset
	Knowledge *domain.Knowledge
	Config    config.DetectionConfig

	// fields lists numeric columns in dataset order; series holds each
	// one with nulls removed.
	fields       []string
	series       map[string][]float64
	correlations map[string]float64
}

// NewInput prepares the shared, precomputed view of ds.
func NewInput(ds *profile.Dataset, k *domain.Knowledge, cfg config.DetectionConfig) *Input {
	in := &Input{
		Dataset:   ds,
		Knowledge: k,
		Config:    cfg,
		series:    make(map[string][]float64),
	}
	for _, c := range ds.NumericColumns() {
		in.fields = append(in.fields, c.Name)
		in.series[c.Name] = profile.Clean(c.Numeric)
	}
	if ds != nil {
		in.correlations = profile.CorrelationMatrix(ds)
	} else {
		in.correlations = map[string]float64{}
	}
	return in
}

// Fields returns the numeric field names in dataset order.
func (in *Input) Fields() []string { return in.fields }

// Series returns the null-free values of field.
func (in *Input) Series(field string) []float64 { return in.series[field] }

// usable returns the series of field when it has enough samples.
func (in *Input) usable(field string) ([]float64, bool) {
	x := in.series[field]
	return x, len(x) >= in.Config.MinSamples && len(x) > 0
}

// Result is the full output of one pipeline run.
type Result struct {
	Anomalies       []model.Anomaly
	Margins         []model.EngineeringMargin
	BlindSpots      []model.BlindSpot
	Correlations    map[string]float64
	Trends          map[string]model.TrendInfo
	Insights        []string
	Recommendations []model.Recommendation
	Layers          []LayerStat
}

// LayerStat records what one layer produced.
type LayerStat struct {
	Name      string
	Anomalies int
	Duration  time.Duration
	Panicked  bool
}

// Pipeline runs registered layers concurrently.
type Pipeline struct {
	layers []Layer
	cfg    config.DetectionConfig
	logger *slog.Logger
	tracer trace.Tracer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithLayers replaces the default layers.
func WithLayers(layers ...Layer) Option {
	return func(p *Pipeline) {
		p.layers = layers
	}
}

// DefaultLayers returns the six layers in reporting order.
func DefaultLayers() []Layer {
	return []Layer{
		OutlierLayer{},
		ThresholdLayer{},
		TrendLayer{},
		CorrelationLayer{},
		PatternLayer{},
		RateLayer{},
	}
}

// NewPipeline builds a pipeline with the default layers. Unset fields of
// cfg take their defaults.
func NewPipeline(cfg config.DetectionConfig, opts ...Option) *Pipeline {
	p := &Pipeline{
		layers: DefaultLayers(),
		cfg:    cfg.Normalize(),
		logger: slog.Default(),
		tracer: otel.Tracer("assetpulse/detect"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Register appends a layer.
func (p *Pipeline) Register(l Layer) {
	p.layers = append(p.layers, l)
}

// RunPipeline runs the default pipeline once.
func RunPipeline(ctx context.Context, ds *profile.Dataset, k *domain.Knowledge, cfg config.DetectionConfig) *Result {
	return NewPipeline(cfg).Run(ctx, ds, k)
}

// Run executes every layer over ds. Layer output order is the registration
// order regardless of completion order. A panicking layer contributes no
// anomalies.
func (p *Pipeline) Run(ctx context.Context, ds *profile.Dataset, k *domain.Knowledge) *Result {
	ctx, span := p.tracer.Start(ctx, "Pipeline.Run")
	defer span.End()

	in := NewInput(ds, k, p.cfg)
	slots := make([][]model.Anomaly, len(p.layers))
	stats := make([]LayerStat, len(p.layers))

	g, gctx := errgroup.WithContext(ctx)
	for i, l := range p.layers {
		g.Go(func() error {
			slots[i], stats[i] = p.runLayer(gctx, l, in)
			return nil
		})
	}
	_ = g.Wait()

	res := &Result{
		Correlations: in.correlations,
		Trends:       Trends(in),
		Layers:       stats,
	}
	for _, anoms := range slots {
		for _, a := range strongestPerField(anoms) {
			enrich(&a, k)
			res.Anomalies = append(res.Anomalies, a)
		}
	}
	res.Margins = Margins(in)
	res.BlindSpots = BlindSpots(in)
	res.Recommendations = Recommendations(res.Anomalies)
	res.Insights = Insights(in, res)

	span.SetAttributes(
		attribute.Int("pipeline.records", ds.Rows()),
		attribute.Int("pipeline.anomalies", len(res.Anomalies)),
		attribute.Int("pipeline.margins", len(res.Margins)),
	)
	p.logger.Debug("pipeline complete",
		"records", ds.Rows(),
		"anomalies", len(res.Anomalies),
		"blind_spots", len(res.BlindSpots))
	return res
}

func (p *Pipeline) runLayer(ctx context.Context, l Layer, in *Input) (out []model.Anomaly, stat LayerStat) {
	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "Layer."+l.Name())
	defer span.End()

	stat.Name = l.Name()
	defer func() {
		if r := recover(); r != nil {
			out = nil
			stat.Panicked = true
			span.RecordError(fmt.Errorf("%v", r))
			p.logger.Error("detection layer panicked", "layer", l.Name(), "error", r, "stack", string(debug.Stack()))
		}
		stat.Duration = time.Since(start)
		stat.Anomalies = len(out)
		span.SetAttributes(
			attribute.String("layer", l.Name()),
			attribute.Int("anomalies", len(out)),
			attribute.Int64("duration_ms", stat.Duration.Milliseconds()),
		)
	}()

	return l.Detect(ctx, in), stat
}

// strongestPerField keeps one anomaly per (kind, field): the highest
// severity, first seen on ties.
func strongestPerField(in []model.Anomaly) []model.Anomaly {
	type key struct {
		kind  model.Kind
		field string
	}
	idx := make(map[key]int)
	var out []model.Anomaly
	for _, a := range in {
		k := key{a.Kind, a.Field}
		if i, ok := idx[k]; ok {
			if a.Severity > out[i].Severity {
				out[i] = a
			}
			continue
		}
		idx[k] = len(out)
		out = append(out, a)
	}
	return out
}
