// Package frame implements the in-memory working table that every data
// sweeper operation reads and transforms.
//
// A Table is an ordered list of uniquely named columns. Each column has a
// Kind (number or text) fixed at load time and one Value per row; a value
// may be missing. Operations either return a new table (Head, Select,
// OuterMerge) or mutate the receiver in place (DropDuplicates,
// FillMissingMode, NormalizeText).
package frame

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
)

var (
	// ErrUnknownColumn is returned when a column name is not in the table.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrNoColumns is returned by operations that need at least one column.
	ErrNoColumns = errors.New("table has no columns")

	// ErrRaggedRow is returned when a record has more fields than the header.
	ErrRaggedRow = errors.New("invalid csv: row has more fields than header")
)

// Kind is the inferred type of a column.
type Kind int

const (
	KindText Kind = iota
	KindNumber
)

func (k Kind) String() string {
	if k == KindNumber {
		return "number"
	}
	return "text"
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "number":
		*k = KindNumber
	case "text":
		*k = KindText
	default:
		return fmt.Errorf("unknown column kind %q", b)
	}
	return nil
}

// Float is a float64 that encodes NaN and infinities as JSON null.
type Float float64

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// Valid reports whether f is a finite number.
func (f Float) Valid() bool {
	v := float64(f)
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Value is a single cell. Num is set for number columns, Str for text
// columns. Missing cells have Valid == false.
type Value struct {
	Num   float64
	Str   string
	Valid bool
}

// Missing returns a missing cell.
func Missing() Value { return Value{} }

// Number returns a present numeric cell.
func Number(f float64) Value { return Value{Num: f, Valid: true} }

// Text returns a present text cell.
func Text(s string) Value { return Value{Str: s, Valid: true} }

// Column is a named, typed vector of cells.
type Column struct {
	Name   string
	Kind   Kind
	Values []Value
}

// Format renders cell i the way it is written to CSV.
// Missing cells render as the empty string.
func (c *Column) Format(i int) string {
	return formatValue(c.Kind, c.Values[i])
}

// Interface returns cell i as nil, Float or string.
func (c *Column) Interface(i int) any {
	v := c.Values[i]
	if !v.Valid {
		return nil
	}
	if c.Kind == KindNumber {
		return Float(v.Num)
	}
	return v.Str
}

// Missing returns the number of missing cells.
func (c *Column) Missing() int {
	n := 0
	for _, v := range c.Values {
		if !v.Valid {
			n++
		}
	}
	return n
}

func (c *Column) clone() *Column {
	vals := make([]Value, len(c.Values))
	copy(vals, c.Values)
	return &Column{Name: c.Name, Kind: c.Kind, Values: vals}
}

func formatValue(k Kind, v Value) string {
	if !v.Valid {
		return ""
	}
	if k == KindNumber {
		return formatNumber(v.Num)
	}
	return v.Str
}

func formatNumber(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Table is an ordered set of uniquely named columns of equal length.
type Table struct {
	Columns []*Column
}

// New builds a table from columns. Column names must be unique and all
// columns must have the same number of values.
func New(cols ...*Column) (*Table, error) {
	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		if seen[c.Name] {
			return nil, fmt.Errorf("duplicate column name %q", c.Name)
		}
		seen[c.Name] = true
		if len(c.Values) != len(cols[0].Values) {
			return nil, fmt.Errorf("column %q has %d rows, want %d", c.Name, len(c.Values), len(cols[0].Values))
		}
	}
	return &Table{Columns: cols}, nil
}

// Rows returns the number of rows.
func (t *Table) Rows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Values)
}

// Names returns the column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column or nil.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	cols := make([]*Column, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = c.clone()
	}
	return &Table{Columns: cols}
}

// Head returns a copy holding the first n rows.
func (t *Table) Head(n int) *Table {
	if n < 0 {
		n = 0
	}
	if n > t.Rows() {
		n = t.Rows()
	}
	cols := make([]*Column, len(t.Columns))
	for i, c := range t.Columns {
		vals := make([]Value, n)
		copy(vals, c.Values[:n])
		cols[i] = &Column{Name: c.Name, Kind: c.Kind, Values: vals}
	}
	return &Table{Columns: cols}
}

// Select returns a table with the named columns in the given order.
// The returned table shares no cell storage with t.
func (t *Table) Select(names []string) (*Table, error) {
	cols := make([]*Column, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		c := t.Column(name)
		if c == nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
		}
		cols = append(cols, c.clone())
	}
	return &Table{Columns: cols}, nil
}

// NumericColumns returns the number columns in order.
func (t *Table) NumericColumns() []*Column {
	var out []*Column
	for _, c := range t.Columns {
		if c.Kind == KindNumber {
			out = append(out, c)
		}
	}
	return out
}

// Row returns row i as a slice of nil, Float or string values.
func (t *Table) Row(i int) []any {
	row := make([]any, len(t.Columns))
	for j, c := range t.Columns {
		row[j] = c.Interface(i)
	}
	return row
}

// Records returns the header followed by every row formatted as text.
func (t *Table) Records() [][]string {
	out := make([][]string, 0, t.Rows()+1)
	out = append(out, t.Names())
	for i := 0; i < t.Rows(); i++ {
		rec := make([]string, len(t.Columns))
		for j, c := range t.Columns {
			rec[j] = c.Format(i)
		}
		out = append(out, rec)
	}
	return out
}

// ValueCount is one entry of a value frequency table.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ValueCounts counts the present values of the named column, most frequent
// first. Ties keep first-occurrence order.
func (t *Table) ValueCounts(name string) ([]ValueCount, error) {
	c := t.Column(name)
	if c == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	return valueCounts(c), nil
}

func valueCounts(c *Column) []ValueCount {
	idx := make(map[string]int)
	var out []ValueCount
	for i, v := range c.Values {
		if !v.Valid {
			continue
		}
		s := c.Format(i)
		if j, ok := idx[s]; ok {
			out[j].Count++
			continue
		}
		idx[s] = len(out)
		out = append(out, ValueCount{Value: s, Count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}
