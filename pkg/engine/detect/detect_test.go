package detect

import (
	"context"
	"math"
	"testing"

	"github.com/DrSkyle/assetpulse/pkg/config"
	"github.com/DrSkyle/assetpulse/pkg/domain"
	"github.com/DrSkyle/assetpulse/pkg/model"
	"github.com/DrSkyle/assetpulse/pkg/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hydraulic(t *testing.T) *domain.Knowledge {
	t.Helper()
	r, err := domain.NewRegistry()
	require.NoError(t, err)
	k, found := r.Lookup("hydraulic_press")
	require.True(t, found)
	return k
}

func input(t *testing.T, k *domain.Knowledge, series map[string][]float64, names ...string) *Input {
	t.Helper()
	return NewInput(profile.NewNumeric(names, series), k, config.DefaultDetectionConfig())
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestThresholdLayer_PressureAboveMax(t *testing.T) {
	x := make([]float64, 0, 200)
	for i := 0; i < 160; i++ {
		x = append(x, 100+float64(i%10))
	}
	for i := 0; i < 40; i++ {
		x = append(x, 200-float64(i))
	}
	in := input(t, hydraulic(t), map[string][]float64{"pressure_psi": x}, "pressure_psi")

	got := ThresholdLayer{}.Detect(context.Background(), in)
	require.Len(t, got, 1)

	a := got[0]
	assert.Equal(t, model.KindThresholdBreach, a.Kind)
	assert.Equal(t, model.SeverityHigh, a.Severity)
	assert.Equal(t, "pressure_psi", a.Field)

	p, ok := a.Value.(model.ThresholdPayload)
	require.True(t, ok)
	assert.Equal(t, 40, p.Count)
	assert.Equal(t, model.DirectionAbove, p.Direction)
	assert.InDelta(t, 33.33, p.Pct, 0.01)
	assert.Equal(t, 150.0, p.Limit)
	assert.Equal(t, &model.Range{Min: 0, Max: 150}, a.ExpectedRange)
}

func TestThresholdLayer_ReportsWorseDirectionOnly(t *testing.T) {
	x := constant(50, 75)
	x[3] = -100 // 66% of the range width below a zero limit
	x[7] = 160  // 6.7% above max
	in := input(t, hydraulic(t), map[string][]float64{"pressure": x}, "pressure")

	got := ThresholdLayer{}.Detect(context.Background(), in)
	require.Len(t, got, 1)
	assert.Equal(t, model.SeverityCritical, got[0].Severity)
	assert.Equal(t, model.DirectionBelow, got[0].Value.(model.ThresholdPayload).Direction)
}

func TestBreachSeverity_BandsAreExclusive(t *testing.T) {
	cfg := config.DefaultDetectionConfig()
	cases := []struct {
		pct  float64
		want model.Severity
	}{
		{50.01, model.SeverityCritical},
		{50, model.SeverityHigh},
		{30, model.SeverityMedium},
		{15.5, model.SeverityMedium},
		{15, model.SeverityLow},
		{0.1, model.SeverityLow},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, breachSeverity(tc.pct, cfg), "pct=%v", tc.pct)
	}
}

func TestOutlierLayer_FirstThresholdWins(t *testing.T) {
	x := make([]float64, 100)
	for i := range x {
		x[i] = 10 + float64(i%2)
	}
	x[50] = 100
	in := input(t, nil, map[string][]float64{"signal": x}, "signal")

	got := OutlierLayer{}.Detect(context.Background(), in)
	require.Len(t, got, 1)
	assert.Equal(t, model.SeverityCritical, got[0].Severity)
	p := got[0].Value.(model.OutlierPayload)
	assert.Equal(t, 1, p.Count)
	assert.Greater(t, p.MaxZ, 4.0)
}

func TestOutlierLayer_SkipsConstantAndShortSeries(t *testing.T) {
	in := input(t, nil, map[string][]float64{
		"flat":  constant(50, 3),
		"short": {1, 2, 100},
	}, "flat", "short")
	assert.Empty(t, OutlierLayer{}.Detect(context.Background(), in))
}

func TestPatternLayer_StuckSensor(t *testing.T) {
	in := input(t, hydraulic(t), map[string][]float64{"vibration_mm_s": constant(500, 2.0)}, "vibration_mm_s")

	got := PatternLayer{}.Detect(context.Background(), in)
	require.Len(t, got, 1)
	assert.Equal(t, model.SeverityHigh, got[0].Severity)
	assert.Equal(t, 0.9, got[0].Confidence)
	assert.Equal(t, model.PatternStuck, got[0].Value.(model.PatternPayload).Pattern)

	assert.Empty(t, OutlierLayer{}.Detect(context.Background(), in))
}

// wavy returns a smooth signal with many distinct values.
func wavy(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 2*math.Sin(float64(i)/5)
	}
	return out
}

// spiked adds a single-sample +40 spike at each index, giving two jumps per spike.
func spiked(x []float64, at ...int) []float64 {
	for _, i := range at {
		x[i] += 40
	}
	return x
}

func TestPatternLayer_RareJumps(t *testing.T) {
	tests := []struct {
		name      string
		field     string
		series    []float64
		wantJumps int
		wantStuck bool
	}{
		{"critical field", "jumpy_pressure", spiked(wavy(500), 120, 340), 4, false},
		{"non-critical field", "ambient_humidity", spiked(wavy(500), 120, 340), 0, false},
		{"frequent jumps suppressed", "jumpy_pressure", spiked(wavy(500), 50, 130, 210, 290, 370), 0, false},
		{"stuck sensor wins", "jumpy_pressure", spiked(constant(500, 80), 250), 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := input(t, hydraulic(t), map[string][]float64{tt.field: tt.series}, tt.field)
			got := PatternLayer{}.Detect(context.Background(), in)

			switch {
			case tt.wantStuck:
				require.Len(t, got, 1)
				assert.Equal(t, model.PatternStuck, got[0].Value.(model.PatternPayload).Pattern)
				assert.Equal(t, model.SeverityHigh, got[0].Severity)
			case tt.wantJumps > 0:
				require.Len(t, got, 1)
				p := got[0].Value.(model.PatternPayload)
				assert.Equal(t, model.PatternJump, p.Pattern)
				assert.Equal(t, tt.wantJumps, p.Count)
				assert.Equal(t, model.SeverityMedium, got[0].Severity)
				assert.Equal(t, tt.field, got[0].Field)
			default:
				assert.Empty(t, got)
			}
		})
	}
}

func TestTrendLayer_CriticalParameterShift(t *testing.T) {
	x := append(constant(100, 50), constant(100, 80)...)
	in := input(t, hydraulic(t), map[string][]float64{"pressure": x, "ambient": x}, "pressure", "ambient")

	got := TrendLayer{}.Detect(context.Background(), in)
	require.Len(t, got, 1, "only critical parameters produce trend anomalies")
	assert.Equal(t, "pressure", got[0].Field)
	assert.Equal(t, model.SeverityHigh, got[0].Severity)
	p := got[0].Value.(model.TrendPayload)
	assert.InDelta(t, 60, p.ChangePct, 1e-9)
	assert.Equal(t, model.DirectionIncreasing, p.Direction)

	trends := Trends(in)
	assert.Equal(t, model.DirectionIncreasing, trends["ambient"].Direction)
}

func TestTrends_Volatility(t *testing.T) {
	x := make([]float64, 40)
	for i := range x {
		if i < 20 {
			x[i] = 10 + float64(i%2)*0.1
		} else {
			x[i] = 10 + float64(i%2)*5
		}
	}
	in := input(t, nil, map[string][]float64{"load": x}, "load")
	assert.True(t, Trends(in)["load"].Volatile)
}

func TestCorrelationLayer_InvertedPositivePair(t *testing.T) {
	p, o := make([]float64, 50), make([]float64, 50)
	for i := range p {
		p[i] = float64(i)
		o[i] = 100 - float64(i)
	}
	in := input(t, hydraulic(t), map[string][]float64{"pressure": p, "oil_temp": o}, "pressure", "oil_temp")

	got := CorrelationLayer{}.Detect(context.Background(), in)
	require.Len(t, got, 1)
	assert.Equal(t, model.SeverityHigh, got[0].Severity)
	assert.Equal(t, "pressure", got[0].Field)
	assert.Equal(t, []string{"oil_temp"}, got[0].RelatedFields)
	assert.InDelta(t, -1, got[0].Value.(model.CorrelationPayload).Observed, 1e-9)
}

func TestRateLayer_RequiresFrequentEvents(t *testing.T) {
	x := make([]float64, 200)
	for i := range x {
		x[i] = 50
		if i%20 == 0 {
			x[i] = 90
		}
	}
	in := input(t, hydraulic(t), map[string][]float64{"flow_rate": x}, "flow_rate")
	got := RateLayer{}.Detect(context.Background(), in)
	require.Len(t, got, 1)
	assert.Equal(t, model.SeverityMedium, got[0].Severity)
}

func TestMargins_NearMaxDegrading(t *testing.T) {
	x := append(constant(50, 100), constant(50, 140)...)
	in := input(t, hydraulic(t), map[string][]float64{"pressure": x}, "pressure")

	m := Margins(in)
	require.Len(t, m, 1)
	assert.Equal(t, "pressure", m[0].Component)
	assert.Equal(t, 140.0, m[0].CurrentValue)
	assert.Equal(t, 150.0, m[0].DesignLimit)
	assert.InDelta(t, 6.67, m[0].MarginPercentage, 0.01)
	assert.Equal(t, model.TrendDegrading, m[0].Trend)
	assert.True(t, m[0].SafetyCritical)
}

func TestMargins_ClampedToZero(t *testing.T) {
	in := input(t, hydraulic(t), map[string][]float64{"pressure": constant(20, 180)}, "pressure")
	m := Margins(in)
	require.Len(t, m, 1)
	assert.Equal(t, 0.0, m[0].MarginPercentage)
	assert.Equal(t, model.TrendStable, m[0].Trend)
}

func TestBlindSpots(t *testing.T) {
	gappy := constant(10, 1)
	for i := 0; i < 6; i++ {
		gappy[i] = math.NaN()
	}
	in := input(t, hydraulic(t), map[string][]float64{"pressure": constant(10, 1), "aux": gappy}, "pressure", "aux")

	spots := BlindSpots(in)
	var missing []string
	for _, s := range spots {
		if s.Kind == model.BlindSpotMissingParameter {
			missing = append(missing, s.Parameter)
			assert.Equal(t, model.SeverityHigh, s.Severity)
		}
	}
	assert.ElementsMatch(t, []string{"oil_temp", "flow_rate", "vibration"}, missing)

	last := spots[len(spots)-1]
	assert.Equal(t, model.BlindSpotDataQuality, last.Kind)
	assert.Equal(t, "aux", last.Parameter)
	assert.Equal(t, model.SeverityHigh, last.Severity)
	assert.InDelta(t, 60, last.NullPercentage, 1e-9)
}

func TestPipeline_InsufficientData(t *testing.T) {
	ds := profile.NewNumeric([]string{"pressure"}, map[string][]float64{"pressure": {900, 1, 2, 3, 4}})
	res := RunPipeline(context.Background(), ds, hydraulic(t), config.DefaultDetectionConfig())

	assert.Empty(t, res.Anomalies)
	require.NotEmpty(t, res.Insights)
	assert.Contains(t, res.Insights[0], "Insufficient data")
}

func TestPipeline_DeterministicAndEnriched(t *testing.T) {
	x := make([]float64, 0, 200)
	for i := 0; i < 160; i++ {
		x = append(x, 100+float64(i%10))
	}
	for i := 0; i < 40; i++ {
		x = append(x, 200-float64(i))
	}
	ds := profile.NewNumeric([]string{"pressure_psi", "vibration"}, map[string][]float64{
		"pressure_psi": x,
		"vibration":    constant(200, 2),
	})
	k := hydraulic(t)
	cfg := config.DefaultDetectionConfig()

	first := RunPipeline(context.Background(), ds, k, cfg)
	second := RunPipeline(context.Background(), ds, k, cfg)
	assert.Equal(t, first.Anomalies, second.Anomalies)
	require.NotEmpty(t, first.Anomalies)

	order := map[model.Kind]int{}
	for i, kd := range model.Kinds {
		order[kd] = i
	}
	for i, a := range first.Anomalies {
		assert.NotEmpty(t, a.ID)
		assert.NotEmpty(t, a.PossibleCauses)
		assert.NotEmpty(t, a.Recommendations)
		if i > 0 {
			assert.LessOrEqual(t, order[first.Anomalies[i-1].Kind], order[a.Kind])
		}
	}
	require.NotEmpty(t, first.Recommendations)
	assert.Len(t, first.Layers, 6)
}

type panicLayer struct{}

func (panicLayer) Name() string { return "Broken" }
func (panicLayer) Detect(context.Context, *Input) []model.Anomaly {
	panic("boom")
}

func TestPipeline_PanickingLayerIsSkipped(t *testing.T) {
	x := make([]float64, 100)
	for i := range x {
		x[i] = 10 + float64(i%2)
	}
	x[10] = 100
	ds := profile.NewNumeric([]string{"signal"}, map[string][]float64{"signal": x})

	p := NewPipeline(config.DefaultDetectionConfig(), WithLayers(panicLayer{}, OutlierLayer{}))
	res := p.Run(context.Background(), ds, nil)

	require.Len(t, res.Anomalies, 1)
	assert.True(t, res.Layers[0].Panicked)
	assert.False(t, res.Layers[1].Panicked)
}

func TestRecommendations_SortedByPriority(t *testing.T) {
	recs := Recommendations([]model.Anomaly{
		{Field: "a", Severity: model.SeverityLow, Recommendations: []string{"check a"}},
		{Field: "b", Severity: model.SeverityCritical, Recommendations: []string{"stop b"}},
		{Field: "b", Severity: model.SeverityCritical, Recommendations: []string{"stop b"}},
	})
	require.Len(t, recs, 2)
	assert.Equal(t, model.PriorityImmediate, recs[0].Priority)
	assert.Equal(t, model.PriorityLow, recs[1].Priority)
}
