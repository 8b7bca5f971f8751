package profile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// numericShare is the fraction of non-empty cells that must parse as a
// float for a column to be treated as numeric.
const numericShare = 0.8

// LoadCSV reads a header-first CSV table. Columns whose non-empty cells are
// mostly numeric become numeric columns; unparseable cells become NaN.
func LoadCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("csv: empty input")
		}
		return nil, fmt.Errorf("csv: read header: %w", err)
	}

	raw := make([][]string, len(header))
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: read row: %w", err)
		}
		for i := range header {
			cell := ""
			if i < len(rec) {
				cell = strings.TrimSpace(rec[i])
			}
			raw[i] = append(raw[i], cell)
		}
	}

	ds := &Dataset{}
	for i, name := range header {
		ds.Columns = append(ds.Columns, inferColumn(strings.TrimSpace(name), raw[i]))
	}
	return ds, nil
}

func inferColumn(name string, cells []string) Column {
	parsed := make([]float64, len(cells))
	var filled, ok int
	for i, c := range cells {
		if isNullCell(c) {
			parsed[i] = math.NaN()
			continue
		}
		filled++
		v, err := strconv.ParseFloat(c, 64)
		if err != nil {
			parsed[i] = math.NaN()
			continue
		}
		parsed[i] = v
		ok++
	}
	if filled > 0 && float64(ok)/float64(filled) >= numericShare {
		return Column{Name: name, IsNumeric: true, Numeric: parsed}
	}
	text := make([]string, len(cells))
	for i, c := range cells {
		if !isNullCell(c) {
			text[i] = c
		}
	}
	return Column{Name: name, Text: text}
}

func isNullCell(c string) bool {
	switch strings.ToLower(c) {
	case "", "na", "nan", "null", "none", "n/a":
		return true
	}
	return false
}
