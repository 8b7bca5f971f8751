package profile

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Field types reported in FieldProfile.Type.
const (
	TypeNumeric = "numeric"
	TypeText    = "text"
)

// FieldProfile summarises one column. Numeric statistics are nil for text
// columns and for numeric columns without data.
type FieldProfile struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Mean        *float64 `json:"mean,omitempty"`
	Std         *float64 `json:"std,omitempty"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	Median      *float64 `json:"median,omitempty"`
	UniqueCount *int     `json:"unique_count,omitempty"`
	NullCount   int      `json:"null_count"`
	TopValues   []string `json:"top_values,omitempty"`
}

// DataProfile is the precomputed summary handed to finding sources.
type DataProfile struct {
	RecordCount  int                 `json:"record_count"`
	FieldCount   int                 `json:"field_count"`
	Fields       []FieldProfile      `json:"fields"`
	Correlations map[string]float64  `json:"correlations"`
	SampleRows   []map[string]string `json:"sample_rows"`
}

// Field returns the profile of the named field.
func (p DataProfile) Field(name string) (FieldProfile, bool) {
	for _, f := range p.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldProfile{}, false
}

// NumericFields returns the numeric field profiles that carry statistics.
func (p DataProfile) NumericFields() []FieldProfile {
	var out []FieldProfile
	for _, f := range p.Fields {
		if f.Type == TypeNumeric && f.Mean != nil {
			out = append(out, f)
		}
	}
	return out
}

const (
	sampleRowCount = 5
	topValueCount  = 5
)

// Build computes the DataProfile of ds. A nil dataset yields an empty
// profile.
func Build(ds *Dataset) DataProfile {
	p := DataProfile{Correlations: map[string]float64{}}
	if ds == nil {
		return p
	}
	p.RecordCount = ds.Rows()
	p.FieldCount = len(ds.Columns)

	for _, c := range ds.Columns {
		p.Fields = append(p.Fields, profileColumn(c))
	}
	for k, v := range CorrelationMatrix(ds) {
		p.Correlations[k] = v
	}

	rows := sampleRowCount
	if p.RecordCount < rows {
		rows = p.RecordCount
	}
	for i := 0; i < rows; i++ {
		row := make(map[string]string, len(ds.Columns))
		for _, c := range ds.Columns {
			row[c.Name] = cellString(c, i)
		}
		p.SampleRows = append(p.SampleRows, row)
	}
	return p
}

// CorrelationMatrix computes Pearson's r for every pair of numeric columns,
// keyed "A vs B" in column order. Pairs without a defined r are omitted.
func CorrelationMatrix(ds *Dataset) map[string]float64 {
	out := map[string]float64{}
	cols := ds.NumericColumns()
	for i := 0; i < len(cols); i++ {
		for j := i + 1; j < len(cols); j++ {
			if r, ok := Correlation(cols[i].Numeric, cols[j].Numeric); ok {
				out[PairKey(cols[i].Name, cols[j].Name)] = r
			}
		}
	}
	return out
}

func profileColumn(c Column) FieldProfile {
	fp := FieldProfile{Name: c.Name, NullCount: c.NullCount()}
	if !c.IsNumeric {
		fp.Type = TypeText
		fp.TopValues = topValues(c.Text)
		distinct := map[string]bool{}
		for _, v := range c.Text {
			if v != "" {
				distinct[v] = true
			}
		}
		u := len(distinct)
		fp.UniqueCount = &u
		return fp
	}

	fp.Type = TypeNumeric
	x := Clean(c.Numeric)
	if len(x) == 0 {
		return fp
	}
	mean, std, med := Mean(x), StdDev(x), Median(x)
	lo, hi := MinMax(x)
	u := UniqueCount(x)
	fp.Mean, fp.Std, fp.Median = &mean, &std, &med
	fp.Min, fp.Max = &lo, &hi
	fp.UniqueCount = &u
	return fp
}

func topValues(values []string) []string {
	counts := map[string]int{}
	for _, v := range values {
		if v != "" {
			counts[v]++
		}
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > topValueCount {
		keys = keys[:topValueCount]
	}
	return keys
}

func cellString(c Column, i int) string {
	if i >= c.Len() {
		return ""
	}
	if c.IsNumeric {
		v := c.Numeric[i]
		if math.IsNaN(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return c.Text[i]
}

// Describe renders a compact one-line summary of a numeric field.
func (f FieldProfile) Describe() string {
	if f.Mean == nil {
		return fmt.Sprintf("%s (%s, %d nulls)", f.Name, f.Type, f.NullCount)
	}
	return fmt.Sprintf("%s: mean=%.3g std=%.3g min=%.3g max=%.3g median=%.3g nulls=%d",
		f.Name, *f.Mean, *f.Std, *f.Min, *f.Max, *f.Median, f.NullCount)
}
