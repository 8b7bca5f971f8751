package profile

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `timestamp,pressure_psi,temperature_c,mode
2026-01-01T00:00:00Z,100,40,auto
2026-01-01T00:01:00Z,110,42,auto
2026-01-01T00:02:00Z,NA,44,manual
2026-01-01T00:03:00Z,130,46,auto
`

func TestLoadCSV_InfersColumnTypes(t *testing.T) {
	ds, err := LoadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, ds.Columns, 4)

	assert.False(t, ds.Columns[0].IsNumeric, "timestamp should stay text")
	assert.True(t, ds.Columns[1].IsNumeric)
	assert.True(t, ds.Columns[2].IsNumeric)
	assert.False(t, ds.Columns[3].IsNumeric)

	pressure := ds.Columns[1]
	assert.Equal(t, 4, pressure.Len())
	assert.True(t, math.IsNaN(pressure.Numeric[2]))
	assert.Equal(t, 1, pressure.NullCount())
	assert.InDelta(t, 0.25, pressure.NullFraction(), 1e-9)
}

func TestLoadCSV_EmptyInput(t *testing.T) {
	_, err := LoadCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestBuild_ComputesFieldStatistics(t *testing.T) {
	ds, err := LoadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	p := Build(ds)
	assert.Equal(t, 4, p.RecordCount)
	assert.Equal(t, 4, p.FieldCount)
	assert.Len(t, p.SampleRows, 4)

	temp, ok := p.Field("temperature_c")
	require.True(t, ok)
	require.NotNil(t, temp.Mean)
	assert.InDelta(t, 43, *temp.Mean, 1e-9)
	assert.InDelta(t, 40, *temp.Min, 1e-9)
	assert.InDelta(t, 46, *temp.Max, 1e-9)
	assert.InDelta(t, 43, *temp.Median, 1e-9)
	assert.Equal(t, 4, *temp.UniqueCount)

	mode, ok := p.Field("mode")
	require.True(t, ok)
	assert.Equal(t, TypeText, mode.Type)
	assert.Equal(t, []string{"auto", "manual"}, mode.TopValues)

	assert.Len(t, p.NumericFields(), 2)
}

func TestBuild_NilDataset(t *testing.T) {
	p := Build(nil)
	assert.Zero(t, p.RecordCount)
	assert.NotNil(t, p.Correlations)
}

func TestCorrelation(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5}
	b := []float64{2, 4, 6, 8, 10}
	c := []float64{5, 4, 3, 2, 1}

	r, ok := Correlation(a, b)
	require.True(t, ok)
	assert.InDelta(t, 1.0, r, 1e-9)

	r, ok = Correlation(a, c)
	require.True(t, ok)
	assert.InDelta(t, -1.0, r, 1e-9)

	_, ok = Correlation(a, []float64{1, 1, 1, 1, 1})
	assert.False(t, ok, "constant series has no correlation")
}

func TestCorrelationMatrix_Keys(t *testing.T) {
	ds := NewNumeric([]string{"a", "b"}, map[string][]float64{
		"a": {1, 2, 3, 4},
		"b": {1, 3, 2, 4},
	})
	m := CorrelationMatrix(ds)
	_, ok := m["a vs b"]
	assert.True(t, ok)
	assert.Len(t, m, 1)
}

func TestStatsHelpers(t *testing.T) {
	assert.Equal(t, []float64{1, 3}, Clean([]float64{1, math.NaN(), 3}))
	assert.Equal(t, []float64{1, 2}, Diff([]float64{1, 2, 4}))
	assert.Equal(t, 0.0, StdDev([]float64{7}))
	assert.True(t, math.IsNaN(Mean(nil)))
	assert.Equal(t, 2, UniqueCount([]float64{1, 1, 2}))
}
