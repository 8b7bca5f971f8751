package domain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/DrSkyle/assetpulse/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_LoadsBuiltins(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	types := r.Types()
	for _, want := range []string{"generic", "hydraulic_press", "electric_vehicle", "industrial_robot", "hvac", "wind_turbine"} {
		assert.Contains(t, types, want)
	}
}

func TestLookup_UnknownTypeDegradesToGeneric(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	k, found := r.Lookup("submarine")
	assert.False(t, found)
	require.NotNil(t, k)
	assert.Equal(t, GenericSystemType, k.SystemType)

	k, found = r.Lookup("Hydraulic Press")
	assert.True(t, found)
	assert.Equal(t, "hydraulic_press", k.SystemType)
}

func TestKnowledgeMatchers(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)
	k, _ := r.Lookup("hydraulic_press")

	param, rg, ok := k.RangeFor("Pressure_PSI")
	require.True(t, ok)
	assert.Equal(t, "pressure", param)
	assert.Equal(t, model.Range{Min: 0, Max: 150}, rg)

	assert.True(t, k.IsCritical("main_pressure"))
	assert.False(t, k.IsCritical("ambient_humidity"))

	assert.Contains(t, k.CausesFor("pressure_psi"), "Relief valve malfunction")

	rec, ok := k.RecommendationFor("oil_temp_c")
	require.True(t, ok)
	assert.Contains(t, rec, "oil cooler")

	col, ok := ColumnFor("flow_rate", []string{"timestamp", "pump_flow_rate_lpm"})
	require.True(t, ok)
	assert.Equal(t, "pump_flow_rate_lpm", col)
}

func TestNilKnowledgeIsSafe(t *testing.T) {
	var k *Knowledge
	_, _, ok := k.RangeFor("x")
	assert.False(t, ok)
	assert.False(t, k.IsCritical("x"))
	assert.Nil(t, k.CausesFor("x"))
}

func TestLoadFile_OverridesAndValidates(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte(`
systems:
  - system_type: conveyor
    critical_parameters: [belt_speed]
    normal_ranges:
      belt_speed: {min: 0, max: 3}
`), 0o600))
	require.NoError(t, r.LoadFile(good))

	k, found := r.Lookup("conveyor")
	require.True(t, found)
	assert.Equal(t, []string{"belt_speed"}, k.CriticalParameters)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte(`
systems:
  - system_type: broken
    correlations:
      - {a: x, b: y, sign: 0}
`), 0o600))
	assert.Error(t, r.LoadFile(bad))

	assert.Error(t, r.LoadFile(filepath.Join(dir, "missing.yaml")))
}
