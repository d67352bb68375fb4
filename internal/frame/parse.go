package frame

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// numericRegex matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// naTokens are the cell spellings read as missing values.
var naTokens = map[string]bool{
	"":         true,
	"#N/A":     true,
	"#N/A N/A": true,
	"#NA":      true,
	"-1.#IND":  true,
	"-1.#QNAN": true,
	"-NaN":     true,
	"-nan":     true,
	"1.#IND":   true,
	"1.#QNAN":  true,
	"<NA>":     true,
	"N/A":      true,
	"NA":       true,
	"NULL":     true,
	"NaN":      true,
	"None":     true,
	"n/a":      true,
	"nan":      true,
	"null":     true,
}

// IsMissingToken reports whether s is read as a missing value.
func IsMissingToken(s string) bool {
	return naTokens[s]
}

// ParseNumber parses a decimal number cell. Surrounding whitespace is
// ignored; inf and -inf are accepted.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "inf", "+inf", "infinity", "+infinity", "-inf", "-infinity":
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	if !numericRegex.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// out of range values still parse to ±Inf with an error
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return f, true
		}
		return 0, false
	}
	return f, true
}

// UniqueNames makes header names unique. Blank names become
// "Unnamed: <index>" and repeats are suffixed ".1", ".2", ...
func UniqueNames(header []string) []string {
	out := make([]string, len(header))
	used := make(map[string]bool, len(header))
	counts := make(map[string]int, len(header))

	for i, h := range header {
		name := h
		if strings.TrimSpace(name) == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		base := name
		for used[name] {
			counts[base]++
			name = fmt.Sprintf("%s.%d", base, counts[base])
		}
		used[name] = true
		out[i] = name
	}
	return out
}

// FromRecords builds a table from a header and raw string records.
//
// Short records are padded with missing cells; a record longer than the
// header fails with ErrRaggedRow. A column is typed as number when every
// present cell parses as a number, otherwise text.
func FromRecords(header []string, records [][]string) (*Table, error) {
	names := UniqueNames(header)
	width := len(names)

	for i, rec := range records {
		if len(rec) > width {
			return nil, fmt.Errorf("%w: line %d has %d fields, expected %d", ErrRaggedRow, i+2, len(rec), width)
		}
	}

	cols := make([]*Column, width)
	for j, name := range names {
		cols[j] = buildColumn(name, j, records)
	}
	return &Table{Columns: cols}, nil
}

func buildColumn(name string, j int, records [][]string) *Column {
	raw := make([]string, len(records))
	present := make([]bool, len(records))
	numeric := true

	for i, rec := range records {
		if j >= len(rec) || IsMissingToken(rec[j]) {
			continue
		}
		raw[i] = rec[j]
		present[i] = true
		if numeric {
			if _, ok := ParseNumber(rec[j]); !ok {
				numeric = false
			}
		}
	}

	col := &Column{Name: name, Kind: KindText, Values: make([]Value, len(records))}
	// an all-missing column is numeric, unless there are no rows at all
	if numeric && len(records) > 0 {
		col.Kind = KindNumber
	}

	for i := range records {
		if !present[i] {
			continue
		}
		if col.Kind == KindNumber {
			f, _ := ParseNumber(raw[i])
			col.Values[i] = Number(f)
		} else {
			col.Values[i] = Text(raw[i])
		}
	}
	return col
}
