// Package domain holds the read-only, system-type keyed knowledge tables
// consumed by the detection pipeline: critical parameters, normal ranges,
// expected correlation signs, failure modes and maintenance advice.
package domain

import (
	"sort"
	"strings"

	"github.com/DrSkyle/assetpulse/pkg/model"
)

// GenericSystemType is served for unknown system types.
const GenericSystemType = "generic"

// ExpectedCorrelation declares that A and B should move together (Sign 1)
// or against each other (Sign -1).
type ExpectedCorrelation struct {
	A    string `yaml:"a" json:"a"`
	B    string `yaml:"b" json:"b"`
	Sign int    `yaml:"sign" json:"sign"`
}

// Knowledge is the domain table of one system type.
type Knowledge struct {
	SystemType                 string                 `yaml:"system_type" json:"system_type"`
	Description                string                 `yaml:"description" json:"description,omitempty"`
	CriticalParameters         []string               `yaml:"critical_parameters" json:"critical_parameters"`
	NormalRanges               map[string]model.Range `yaml:"normal_ranges" json:"normal_ranges"`
	Correlations               []ExpectedCorrelation  `yaml:"correlations" json:"correlations"`
	FailureModes               map[string][]string    `yaml:"failure_modes" json:"failure_modes"`
	MaintenanceRecommendations map[string]string      `yaml:"maintenance_recommendations" json:"maintenance_recommendations"`
}

// matches reports whether a column name refers to a parameter. Matching is
// case-insensitive substring containment of the parameter in the field.
func matches(field, param string) bool {
	if param == "" {
		return false
	}
	return strings.Contains(strings.ToLower(field), strings.ToLower(param))
}

// orderedKeys sorts keys longest first, then alphabetically, so the most
// specific parameter wins a substring match deterministically.
func orderedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}

// RangeFor returns the normal range whose parameter matches field.
func (k *Knowledge) RangeFor(field string) (param string, r model.Range, ok bool) {
	if k == nil {
		return "", model.Range{}, false
	}
	for _, p := range orderedKeys(k.NormalRanges) {
		if matches(field, p) {
			return p, k.NormalRanges[p], true
		}
	}
	return "", model.Range{}, false
}

// IsCritical reports whether field matches a critical parameter.
func (k *Knowledge) IsCritical(field string) bool {
	if k == nil {
		return false
	}
	for _, p := range k.CriticalParameters {
		if matches(field, p) {
			return true
		}
	}
	return false
}

// CausesFor collects failure-mode causes whose keyword occurs in field.
func (k *Knowledge) CausesFor(field string) []string {
	if k == nil {
		return nil
	}
	var out []string
	for _, kw := range orderedKeys(k.FailureModes) {
		if matches(field, kw) {
			out = append(out, k.FailureModes[kw]...)
		}
	}
	return out
}

// RecommendationFor returns the maintenance advice for field, if any.
func (k *Knowledge) RecommendationFor(field string) (string, bool) {
	if k == nil {
		return "", false
	}
	for _, p := range orderedKeys(k.MaintenanceRecommendations) {
		if matches(field, p) {
			return k.MaintenanceRecommendations[p], true
		}
	}
	return "", false
}

// ColumnFor returns the first column that matches param.
func ColumnFor(param string, columns []string) (string, bool) {
	for _, c := range columns {
		if matches(c, param) {
			return c, true
		}
	}
	return "", false
}
