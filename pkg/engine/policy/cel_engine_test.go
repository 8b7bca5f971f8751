package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/DrSkyle/assetpulse/pkg/engine/sources"
	"github.com/DrSkyle/assetpulse/pkg/model"
	"github.com/DrSkyle/assetpulse/pkg/profile"
)

func TestCELEngine(t *testing.T) {
	engine, err := NewCELEngine()
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	rules := []Rule{
		{ID: "hot", Condition: "max > 100.0"},
		{ID: "noisy", Condition: "std > 10.0 && name.startsWith('vib')"},
	}
	if err := engine.Compile(rules); err != nil {
		t.Fatalf("Compilation failed: %v", err)
	}

	ctx := context.Background()
	hi, std := 120.0, 2.0
	matches := engine.Evaluate(ctx, FieldVars(profile.FieldProfile{Name: "temp", Max: &hi, Std: &std}, 10))
	if len(matches) != 1 || matches[0].ID != "hot" {
		t.Errorf("Expected ['hot'], got %v", matches)
	}

	hi, std = 5, 12
	matches = engine.Evaluate(ctx, FieldVars(profile.FieldProfile{Name: "vibration", Max: &hi, Std: &std}, 10))
	if len(matches) != 1 || matches[0].ID != "noisy" {
		t.Errorf("Expected ['noisy'], got %v", matches)
	}
}

func TestCELEngine_RejectsNonBoolean(t *testing.T) {
	engine, err := NewCELEngine()
	if err != nil {
		t.Fatal(err)
	}
	if err := engine.Compile([]Rule{{ID: "bad", Condition: "max + 1.0"}}); err == nil {
		t.Error("Expected error for non-boolean condition")
	}
	if err := engine.Compile([]Rule{{ID: "typo", Condition: "maxx > 1.0"}}); err == nil {
		t.Error("Expected error for undeclared variable")
	}
}

func TestRuleSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	content := `
name: site-rules
rules:
  - id: overpressure
    title: Pressure above site limit
    kind: threshold_breach
    severity: critical
    fields: [pressure]
    condition: "max > 140.0"
    recommendation: Reduce system pressure.
  - id: any-nulls
    condition: "null_count > 0"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	f, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules failed: %v", err)
	}
	src, err := NewRuleSource(f)
	if err != nil {
		t.Fatalf("NewRuleSource failed: %v", err)
	}

	ds := profile.NewNumeric([]string{"pressure", "inlet_pressure_backup", "temp"}, map[string][]float64{
		"pressure":              {100, 120, 150},
		"inlet_pressure_backup": {10, 11, 12},
		"temp":                  {200, 210, 220},
	})
	req := sources.Request{Profile: profile.Build(ds)}

	findings, err := src.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("Expected 1 finding, got %d: %+v", len(findings), findings)
	}
	got := findings[0]
	if got.Field != "pressure" || got.Severity != model.SeverityCritical || got.Kind != model.KindThresholdBreach {
		t.Errorf("Unexpected finding: %+v", got)
	}
	if got.SourceName != "site-rules" || len(got.Recommendations) != 1 {
		t.Errorf("Expected source name and recommendation, got %+v", got)
	}
	if len(src.Fallback(req)) != 1 {
		t.Error("Expected fallback to mirror Analyze")
	}
}

func TestLoadRules_Validation(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"noid.yaml":  "rules:\n  - condition: \"max > 1.0\"\n",
		"kind.yaml":  "rules:\n  - id: x\n    kind: bogus\n    condition: \"max > 1.0\"\n",
		"empty.yaml": "rules:\n  - id: x\n",
	}
	for name, body := range cases {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadRules(path); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}
