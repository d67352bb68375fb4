package frame

import (
	"errors"
	"fmt"
	"sort"
)

// ErrMergeKey is returned when the merge key is missing from either table.
var ErrMergeKey = errors.New("merge key not found")

// Merge suffixes applied to non-key columns present in both tables.
const (
	LeftSuffix  = "_x"
	RightSuffix = "_y"
)

type mergeGroup struct {
	key   Value
	left  []int
	right []int
}

// OuterMerge joins left and right on the key column, keeping rows from both
// sides. The key appears once, at its position among the left columns,
// followed by the remaining right columns. Rows are sorted by key (numeric
// order when both keys are numbers, lexical otherwise) with missing keys
// last; missing keys match each other. A key value present several times on
// both sides yields every left/right pairing.
func OuterMerge(left, right *Table, key string) (*Table, error) {
	lk := left.Column(key)
	if lk == nil {
		return nil, fmt.Errorf("%w: %q is not a column of the merged table", ErrMergeKey, key)
	}
	rk := right.Column(key)
	if rk == nil {
		return nil, fmt.Errorf("%w: %q is not a column of the joined file", ErrMergeKey, key)
	}

	kind := KindText
	if lk.Kind == KindNumber && rk.Kind == KindNumber {
		kind = KindNumber
	}

	groups := make(map[string]*mergeGroup)
	var order []*mergeGroup
	add := func(c *Column, i int, right bool) {
		v := coerce(c, i, kind)
		id := "\x00"
		if v.Valid {
			id = "v" + formatValue(kind, v)
		}
		g, ok := groups[id]
		if !ok {
			g = &mergeGroup{key: v}
			groups[id] = g
			order = append(order, g)
		}
		if right {
			g.right = append(g.right, i)
		} else {
			g.left = append(g.left, i)
		}
	}
	for i := range lk.Values {
		add(lk, i, false)
	}
	for i := range rk.Values {
		add(rk, i, true)
	}

	sort.SliceStable(order, func(i, j int) bool {
		a, b := order[i].key, order[j].key
		if !a.Valid || !b.Valid {
			return a.Valid && !b.Valid
		}
		if kind == KindNumber {
			return a.Num < b.Num
		}
		return a.Str < b.Str
	})

	type pair struct{ l, r int }
	var pairs []pair
	for _, g := range order {
		switch {
		case len(g.left) > 0 && len(g.right) > 0:
			for _, l := range g.left {
				for _, r := range g.right {
					pairs = append(pairs, pair{l, r})
				}
			}
		case len(g.left) > 0:
			for _, l := range g.left {
				pairs = append(pairs, pair{l, -1})
			}
		default:
			for _, r := range g.right {
				pairs = append(pairs, pair{-1, r})
			}
		}
	}

	shared := make(map[string]bool)
	for _, c := range right.Columns {
		if c.Name != key && left.Column(c.Name) != nil {
			shared[c.Name] = true
		}
	}

	var cols []*Column
	var names []string
	for _, c := range left.Columns {
		if c.Name == key {
			out := &Column{Name: key, Kind: kind, Values: make([]Value, len(pairs))}
			for i, p := range pairs {
				if p.l >= 0 {
					out.Values[i] = coerce(lk, p.l, kind)
				} else {
					out.Values[i] = coerce(rk, p.r, kind)
				}
			}
			cols = append(cols, out)
			names = append(names, key)
			continue
		}
		name := c.Name
		if shared[name] {
			name += LeftSuffix
		}
		cols = append(cols, pick(c, pairs, func(p pair) int { return p.l }))
		names = append(names, name)
	}
	for _, c := range right.Columns {
		if c.Name == key {
			continue
		}
		name := c.Name
		if shared[name] {
			name += RightSuffix
		}
		cols = append(cols, pick(c, pairs, func(p pair) int { return p.r }))
		names = append(names, name)
	}

	for i, name := range UniqueNames(names) {
		cols[i].Name = name
	}
	return &Table{Columns: cols}, nil
}

// pick gathers the cells of c at the row chosen by idx for each pair;
// a negative row yields a missing cell.
func pick[P any](c *Column, pairs []P, idx func(P) int) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind, Values: make([]Value, len(pairs))}
	for i, p := range pairs {
		if r := idx(p); r >= 0 {
			out.Values[i] = c.Values[r]
		}
	}
	return out
}

// coerce returns cell i of c as a value of the given kind.
func coerce(c *Column, i int, kind Kind) Value {
	v := c.Values[i]
	if !v.Valid || c.Kind == kind {
		return v
	}
	if kind == KindText {
		return Text(c.Format(i))
	}
	if f, ok := ParseNumber(v.Str); ok {
		return Number(f)
	}
	return Missing()
}
