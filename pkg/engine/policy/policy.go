// Package policy turns user-defined CEL rules over field statistics into a
// finding source.
package policy

import (
	"fmt"
	"os"

	"github.com/DrSkyle/assetpulse/pkg/model"
	"gopkg.in/yaml.v3"
)

// Rule is one user-defined check, evaluated once per numeric field.
type Rule struct {
	ID             string   `yaml:"id"`
	Title          string   `yaml:"title"`
	Kind           string   `yaml:"kind"`
	Severity       string   `yaml:"severity"`
	Fields         []string `yaml:"fields"`    // substring filter; empty matches all
	Condition      string   `yaml:"condition"` // CEL: "max > 100.0 && std > 5.0"
	Description    string   `yaml:"description"`
	Recommendation string   `yaml:"recommendation"`
}

// RuleFile is the on-disk layout.
type RuleFile struct {
	Name        string `yaml:"name"`
	Perspective string `yaml:"perspective"`
	Rules       []Rule `yaml:"rules"`
}

// LoadRules reads and validates a YAML rule file.
func LoadRules(path string) (*RuleFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules: %w", err)
	}
	var f RuleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse rules %s: %w", path, err)
	}
	if f.Name == "" {
		f.Name = "rules"
	}
	if f.Perspective == "" {
		f.Perspective = "Operator-defined rules."
	}
	for i := range f.Rules {
		if err := f.Rules[i].validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return &f, nil
}

func (r *Rule) validate() error {
	if r.ID == "" {
		return fmt.Errorf("rule without id")
	}
	if r.Condition == "" {
		return fmt.Errorf("rule %s: condition is required", r.ID)
	}
	if r.Kind == "" {
		r.Kind = string(model.KindThresholdBreach)
	}
	if _, err := model.ParseKind(r.Kind); err != nil {
		return fmt.Errorf("rule %s: %w", r.ID, err)
	}
	if r.Severity == "" {
		r.Severity = model.SeverityMedium.String()
	}
	if _, err := model.ParseSeverity(r.Severity); err != nil {
		return fmt.Errorf("rule %s: %w", r.ID, err)
	}
	if r.Title == "" {
		r.Title = r.ID
	}
	return nil
}
