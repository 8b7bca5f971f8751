// Package profile holds the tabular dataset consumed by the detection
// pipeline and the DataProfile summary handed to finding sources.
package profile

import "math"

// Column is one field of the dataset. Numeric columns store null cells as
// NaN; text columns keep the raw strings.
type Column struct {
	Name      string
	IsNumeric bool
	Numeric   []float64
	Text      []string
}

// Len returns the number of rows in the column.
func (c Column) Len() int {
	if c.IsNumeric {
		return len(c.Numeric)
	}
	return len(c.Text)
}

// NullCount counts NaN numeric cells or empty text cells.
func (c Column) NullCount() int {
	n := 0
	if c.IsNumeric {
		for _, v := range c.Numeric {
			if math.IsNaN(v) {
				n++
			}
		}
		return n
	}
	for _, v := range c.Text {
		if v == "" {
			n++
		}
	}
	return n
}

// NullFraction is NullCount over Len; 0 for empty columns.
func (c Column) NullFraction() float64 {
	if c.Len() == 0 {
		return 0
	}
	return float64(c.NullCount()) / float64(c.Len())
}

// Dataset is a column-oriented table.
type Dataset struct {
	Columns []Column
}

// NewNumeric builds a dataset from named numeric series. Column order
// follows names.
func NewNumeric(names []string, series map[string][]float64) *Dataset {
	ds := &Dataset{}
	for _, n := range names {
		ds.Columns = append(ds.Columns, Column{Name: n, IsNumeric: true, Numeric: series[n]})
	}
	return ds
}

// Rows returns the longest column length.
func (d *Dataset) Rows() int {
	if d == nil {
		return 0
	}
	n := 0
	for _, c := range d.Columns {
		if c.Len() > n {
			n = c.Len()
		}
	}
	return n
}

// Names returns every column name in order.
func (d *Dataset) Names() []string {
	if d == nil {
		return nil
	}
	out := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		out[i] = c.Name
	}
	return out
}

// NumericColumns returns only the numeric columns.
func (d *Dataset) NumericColumns() []Column {
	if d == nil {
		return nil
	}
	var out []Column
	for _, c := range d.Columns {
		if c.IsNumeric {
			out = append(out, c)
		}
	}
	return out
}

// Column looks a column up by exact name.
func (d *Dataset) Column(name string) (Column, bool) {
	if d == nil {
		return Column{}, false
	}
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}
