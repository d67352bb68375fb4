package frame

import (
	"regexp"
	"sort"
	"strings"
)

// DropDuplicates removes rows identical to an earlier row, keeping the first
// occurrence. Missing cells compare equal to each other.
// Returns the number of rows removed.
func (t *Table) DropDuplicates() int {
	rows := t.Rows()
	if rows == 0 {
		return 0
	}

	seen := make(map[string]struct{}, rows)
	keep := make([]int, 0, rows)
	for i := 0; i < rows; i++ {
		k := t.rowKey(i)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keep = append(keep, i)
	}

	removed := rows - len(keep)
	if removed == 0 {
		return 0
	}
	for _, c := range t.Columns {
		vals := make([]Value, len(keep))
		for j, i := range keep {
			vals[j] = c.Values[i]
		}
		c.Values = vals
	}
	return removed
}

// rowKey encodes row i so that equal rows produce equal keys.
func (t *Table) rowKey(i int) string {
	var b strings.Builder
	for _, c := range t.Columns {
		v := c.Values[i]
		switch {
		case !v.Valid:
			b.WriteByte(0)
		case c.Kind == KindNumber && v.Num == 0:
			// -0 equals 0
			b.WriteString("\x010")
		default:
			b.WriteByte(1)
			b.WriteString(c.Format(i))
		}
		b.WriteByte(0x1f)
	}
	return b.String()
}

// FillMissingMode replaces missing cells of each column with the column's
// most frequent present value. Ties resolve to the smallest value, numeric
// order for number columns and lexical order for text. Columns with no
// present value are left untouched.
// Returns the number of cells filled.
func (t *Table) FillMissingMode() int {
	filled := 0
	for _, c := range t.Columns {
		mode, ok := columnMode(c)
		if !ok {
			continue
		}
		for i, v := range c.Values {
			if !v.Valid {
				c.Values[i] = mode
				filled++
			}
		}
	}
	return filled
}

func columnMode(c *Column) (Value, bool) {
	counts := make(map[string]int)
	first := make(map[string]Value)
	for i, v := range c.Values {
		if !v.Valid {
			continue
		}
		k := c.Format(i)
		counts[k]++
		if _, ok := first[k]; !ok {
			first[k] = v
		}
	}
	if len(counts) == 0 {
		return Value{}, false
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		if c.Kind == KindNumber {
			return first[keys[i]].Num < first[keys[j]].Num
		}
		return keys[i] < keys[j]
	})
	return first[keys[0]], true
}

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9 ]`)

// NormalizeOptions controls NormalizeText.
type NormalizeOptions struct {
	// FoldAccents maps letters with diacritics to their base letter before
	// non-alphanumeric characters are removed.
	FoldAccents bool
}

// NormalizeText standardizes every text column: characters outside
// [a-zA-Z0-9 ] are removed, surrounding whitespace is trimmed and the
// result is lowercased. Missing cells stay missing. Applying it twice is
// the same as applying it once.
// Returns the number of cells whose value changed.
func (t *Table) NormalizeText(opts NormalizeOptions) int {
	changed := 0
	for _, c := range t.Columns {
		if c.Kind != KindText {
			continue
		}
		for i, v := range c.Values {
			if !v.Valid {
				continue
			}
			s := NormalizeString(v.Str, opts)
			if s != v.Str {
				c.Values[i] = Text(s)
				changed++
			}
		}
	}
	return changed
}

// NormalizeString applies the NormalizeText transform to one value.
func NormalizeString(s string, opts NormalizeOptions) string {
	if opts.FoldAccents {
		s = FoldAccents(s)
	}
	s = nonAlphanumeric.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	return strings.ToLower(s)
}
