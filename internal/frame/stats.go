package frame

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ErrNoNumericColumns is returned by Correlate when no column can take part
// in a correlation, even after category encoding.
var ErrNoNumericColumns = errors.New("no numerical columns available for correlation analysis even after conversion")

// ColumnStats is the descriptive summary of one column. Text columns carry
// Unique/Top/Freq, number columns carry the moments and quantiles.
type ColumnStats struct {
	Name    string `json:"name"`
	Kind    Kind   `json:"kind"`
	Count   int    `json:"count"`
	Missing int    `json:"missing"`

	Unique *int    `json:"unique,omitempty"`
	Top    *string `json:"top,omitempty"`
	Freq   *int    `json:"freq,omitempty"`

	Mean   *Float `json:"mean,omitempty"`
	Std    *Float `json:"std,omitempty"`
	Min    *Float `json:"min,omitempty"`
	Q1     *Float `json:"25%,omitempty"`
	Median *Float `json:"50%,omitempty"`
	Q3     *Float `json:"75%,omitempty"`
	Max    *Float `json:"max,omitempty"`
}

// StatNames lists the rows of a summary in display order.
var StatNames = []string{"count", "missing", "unique", "top", "freq", "mean", "std", "min", "25%", "50%", "75%", "max"}

// Stat returns the named statistic formatted for display, or "" when it does
// not apply to the column.
func (s ColumnStats) Stat(name string) string {
	fl := func(f *Float) string {
		if f == nil || !f.Valid() {
			return ""
		}
		return formatNumber(float64(*f))
	}
	in := func(i *int) string {
		if i == nil {
			return ""
		}
		return formatNumber(float64(*i))
	}

	switch name {
	case "count":
		return formatNumber(float64(s.Count))
	case "missing":
		return formatNumber(float64(s.Missing))
	case "unique":
		return in(s.Unique)
	case "top":
		if s.Top == nil {
			return ""
		}
		return *s.Top
	case "freq":
		return in(s.Freq)
	case "mean":
		return fl(s.Mean)
	case "std":
		return fl(s.Std)
	case "min":
		return fl(s.Min)
	case "25%":
		return fl(s.Q1)
	case "50%":
		return fl(s.Median)
	case "75%":
		return fl(s.Q3)
	case "max":
		return fl(s.Max)
	}
	return ""
}

// Describe summarizes every column of the table.
func (t *Table) Describe() []ColumnStats {
	out := make([]ColumnStats, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = describeColumn(c)
	}
	return out
}

func describeColumn(c *Column) ColumnStats {
	missing := c.Missing()
	st := ColumnStats{
		Name:    c.Name,
		Kind:    c.Kind,
		Count:   len(c.Values) - missing,
		Missing: missing,
	}

	if c.Kind == KindText {
		vc := valueCounts(c)
		unique := len(vc)
		st.Unique = &unique
		if len(vc) > 0 {
			top, freq := vc[0].Value, vc[0].Count
			st.Top = &top
			st.Freq = &freq
		}
		return st
	}

	vals := presentNumbers(c)
	if len(vals) == 0 {
		return st
	}
	sort.Float64s(vals)

	st.Mean = floatPtr(stat.Mean(vals, nil))
	st.Std = floatPtr(sampleStd(vals))
	st.Min = floatPtr(vals[0])
	st.Q1 = floatPtr(Quantile(vals, 0.25))
	st.Median = floatPtr(Quantile(vals, 0.5))
	st.Q3 = floatPtr(Quantile(vals, 0.75))
	st.Max = floatPtr(vals[len(vals)-1])
	return st
}

func floatPtr(f float64) *Float {
	v := Float(f)
	return &v
}

func presentNumbers(c *Column) []float64 {
	out := make([]float64, 0, len(c.Values))
	for _, v := range c.Values {
		if v.Valid {
			out = append(out, v.Num)
		}
	}
	return out
}

// sampleStd is the standard deviation with n-1 degrees of freedom.
func sampleStd(vals []float64) float64 {
	if len(vals) < 2 {
		return math.NaN()
	}
	return stat.StdDev(vals, nil)
}

// Quantile returns the q-th quantile of sorted values using linear
// interpolation between closest ranks, at position q*(n-1).
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Correlation is a symmetric Pearson correlation matrix.
type Correlation struct {
	Columns []string  `json:"columns"`
	Matrix  [][]Float `json:"matrix"`

	// Encoded is set when text columns were recoded to category codes
	// because the table had no number columns.
	Encoded bool `json:"encoded"`
}

// Correlate computes pairwise-complete Pearson correlations over the number
// columns. A table without number columns is correlated over the category
// codes of its text columns instead; the table itself is not modified.
func (t *Table) Correlate() (*Correlation, error) {
	cols := t.NumericColumns()
	encoded := false
	if len(cols) == 0 {
		for _, c := range t.Columns {
			cols = append(cols, CategoryCodes(c))
		}
		encoded = true
	}
	if len(cols) == 0 {
		return nil, ErrNoNumericColumns
	}

	n := len(cols)
	res := &Correlation{
		Columns: make([]string, n),
		Matrix:  make([][]Float, n),
		Encoded: encoded,
	}
	for i := range cols {
		res.Columns[i] = cols[i].Name
		res.Matrix[i] = make([]Float, n)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			r := pearson(cols[i], cols[j], i == j)
			res.Matrix[i][j] = Float(r)
			res.Matrix[j][i] = Float(r)
		}
	}
	return res, nil
}

// CategoryCodes returns a number column holding the category code of each
// cell of c: distinct present values in sorted order map to 0..n-1 and
// missing cells map to -1.
func CategoryCodes(c *Column) *Column {
	distinct := make(map[string]struct{})
	for i, v := range c.Values {
		if v.Valid {
			distinct[c.Format(i)] = struct{}{}
		}
	}
	keys := make([]string, 0, len(distinct))
	for k := range distinct {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	codes := make(map[string]int, len(keys))
	for i, k := range keys {
		codes[k] = i
	}

	out := &Column{Name: c.Name, Kind: KindNumber, Values: make([]Value, len(c.Values))}
	for i, v := range c.Values {
		if v.Valid {
			out.Values[i] = Number(float64(codes[c.Format(i)]))
		} else {
			out.Values[i] = Number(-1)
		}
	}
	return out
}

func pearson(a, b *Column, diagonal bool) float64 {
	var xs, ys []float64
	for i := range a.Values {
		if a.Values[i].Valid && b.Values[i].Valid {
			xs = append(xs, a.Values[i].Num)
			ys = append(ys, b.Values[i].Num)
		}
	}
	if len(xs) < 2 {
		return math.NaN()
	}

	if stat.StdDev(xs, nil) == 0 || stat.StdDev(ys, nil) == 0 {
		return math.NaN()
	}
	if diagonal {
		return 1
	}
	r := stat.Correlation(xs, ys, nil)
	return math.Max(-1, math.Min(1, r))
}
