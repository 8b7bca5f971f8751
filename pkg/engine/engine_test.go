package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DrSkyle/assetpulse/pkg/config"
	"github.com/DrSkyle/assetpulse/pkg/engine/sources"
	"github.com/DrSkyle/assetpulse/pkg/engine/unify"
	"github.com/DrSkyle/assetpulse/pkg/model"
	"github.com/DrSkyle/assetpulse/pkg/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	name string
	err  error
}

func (s stubSource) Name() string        { return s.name }
func (s stubSource) Perspective() string { return "stub " + s.name }

func (s stubSource) Analyze(ctx context.Context, req sources.Request) ([]model.Finding, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []model.Finding{{
		Anomaly: model.Anomaly{
			Kind:        model.KindThresholdBreach,
			Severity:    model.SeverityMedium,
			Field:       "pressure_psi",
			Title:       "Pressure running hot",
			ImpactScore: 20,
			Confidence:  0.5,
		},
		SourceName: s.name,
	}}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(strict bool) Config {
	analysis := config.Default()
	analysis.Orchestrator.BatchCooldown = 0
	analysis.Orchestrator.SourceTimeout = time.Second
	analysis.Orchestrator.GlobalTimeout = 5 * time.Second
	analysis.Orchestrator.MinBatchBudget = 0
	return Config{
		Analysis:      analysis,
		StrictMode:    strict,
		SkipTelemetry: true,
		Logger:        quietLogger(),
	}
}

func newEngine(t *testing.T, strict bool, srcs ...sources.Source) *Engine {
	t.Helper()
	reg := sources.NewRegistry()
	for _, s := range srcs {
		reg.Register(s)
	}
	e, err := New(context.Background(), WithConfig(testConfig(strict)), WithSources(reg))
	require.NoError(t, err)
	return e
}

func pressureDataset() *profile.Dataset {
	x := make([]float64, 0, 200)
	for i := 0; i < 160; i++ {
		x = append(x, 100+float64(i%10))
	}
	for i := 0; i < 40; i++ {
		x = append(x, 200-float64(i))
	}
	return profile.NewNumeric([]string{"pressure_psi"}, map[string][]float64{"pressure_psi": x})
}

func TestEngineInitialization(t *testing.T) {
	eng, err := New(context.Background(), WithConfig(testConfig(false)))
	require.NoError(t, err)
	require.NotNil(t, eng)

	assert.NotNil(t, eng.Logger)
	assert.NotNil(t, eng.Domains)
	assert.Equal(t, len(sources.Catalog()), eng.Sources.Len())
}

func TestAnalyze_MergesPipelineAndSources(t *testing.T) {
	e := newEngine(t, false, stubSource{name: "stub"})

	res, err := e.Analyze(context.Background(), Request{
		SystemType: "hydraulic_press",
		SystemName: "press-7",
		Dataset:    pressureDataset(),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "hydraulic_press", res.SystemType)
	assert.NotEmpty(t, res.Anomalies)
	assert.Less(t, res.HealthScore, 100.0)
	assert.Contains(t, res.Summary, "press-7")

	require.Len(t, res.Sources, 1)
	assert.Equal(t, model.OutcomeSuccess, res.Sources[0].Outcome)

	var corroborated bool
	for _, u := range res.Unified {
		if len(u.ContributingSources) > 1 {
			assert.Equal(t, unify.PipelineSource, u.ContributingSources[0])
			assert.Contains(t, u.ContributingSources, "stub")
			corroborated = true
		}
	}
	assert.True(t, corroborated, "source finding should merge with pipeline anomalies on the same field")
}

func TestAnalyze_ZeroConfigUsesDefaults(t *testing.T) {
	x := make([]float64, 1000)
	for i := range x {
		x[i] = 100 + float64(i%10)
		if i%25 == 0 {
			x[i] = 200
		}
	}
	ds := profile.NewNumeric([]string{"pressure_psi"}, map[string][]float64{"pressure_psi": x})

	e, err := New(context.Background(),
		WithConfig(Config{SkipTelemetry: true, Logger: quietLogger()}),
		WithSources(sources.NewRegistry()))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultDetectionConfig(), e.Config().Analysis.Detection)

	res, err := e.Analyze(context.Background(), Request{SystemType: "hydraulic_press", Dataset: ds})
	require.NoError(t, err)

	kinds := map[model.Kind]model.Severity{}
	for _, a := range res.Anomalies {
		kinds[a.Kind] = a.Severity
	}
	assert.Contains(t, kinds, model.KindStatisticalOutlier)
	assert.Equal(t, model.SeverityHigh, kinds[model.KindThresholdBreach])
	assert.Less(t, res.HealthScore, 100.0)
}

func TestAnalyze_UnknownSystemTypeUsesGeneric(t *testing.T) {
	e := newEngine(t, false)

	res, err := e.Analyze(context.Background(), Request{SystemType: "submarine", Dataset: pressureDataset()})
	require.NoError(t, err)
	assert.Equal(t, "generic", res.SystemType)
}

func TestAnalyze_EmptyDataset(t *testing.T) {
	e := newEngine(t, true, stubSource{name: "stub"})

	res, err := e.Analyze(context.Background(), Request{SystemType: "hydraulic_press"})
	require.NoError(t, err)

	assert.Equal(t, 100.0, res.HealthScore)
	assert.Equal(t, "healthy", res.HealthState)
	assert.Empty(t, res.Anomalies)
	require.NotEmpty(t, res.Insights)
	assert.Contains(t, res.Insights[0], "Insufficient data")
	require.Len(t, res.Sources, 1)
	assert.Equal(t, model.OutcomeNotRun, res.Sources[0].Outcome)
}

func TestAnalyze_StrictModePartialResult(t *testing.T) {
	failing := stubSource{name: "broken", err: errors.New("upstream unavailable")}

	lenient := newEngine(t, false, failing)
	res, err := lenient.Analyze(context.Background(), Request{SystemType: "hydraulic_press", Dataset: pressureDataset()})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeError, res.Sources[0].Outcome)

	strict := newEngine(t, true, failing)
	res, err = strict.Analyze(context.Background(), Request{SystemType: "hydraulic_press", Dataset: pressureDataset()})
	assert.ErrorIs(t, err, ErrPartialResult)
	require.NotNil(t, res)
	assert.NotEmpty(t, res.Anomalies)
}

func TestRecoverPanic(t *testing.T) {
	e := &Engine{Logger: quietLogger()}

	err := func() (err error) {
		defer e.recoverPanic(context.Background(), &err)
		panic("boom")
	}()
	assert.ErrorIs(t, err, ErrPanic)
	assert.Contains(t, err.Error(), "boom")
}

func TestRedactSensitiveData(t *testing.T) {
	got := redactSensitiveData(nil, slog.String("api_key", "sk-123"))
	assert.Equal(t, "[REDACTED]", got.Value.String())

	got = redactSensitiveData(nil, slog.String("system_type", "hvac"))
	assert.Equal(t, "hvac", got.Value.String())
}
