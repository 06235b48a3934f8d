package model

import (
	"errors"
	"fmt"
	"sort"
)

// Group is the partition of one heading group's rows.
type Group struct {
	Index   int
	Heading int   // row index, -1 if missing
	Items   []int // row indices in ledger order
	Total   int   // row index, -1 if the group has no total row
}

// Groups partitions rows by GroupIndex. Indices refer into rows.
func Groups(rows []Row) []Group {
	byIdx := make(map[int]*Group)
	var order []int
	for i, r := range rows {
		g, ok := byIdx[r.GroupIndex]
		if !ok {
			g = &Group{Index: r.GroupIndex, Heading: -1, Total: -1}
			byIdx[r.GroupIndex] = g
			order = append(order, r.GroupIndex)
		}
		switch r.Kind {
		case KindHeading:
			if g.Heading < 0 {
				g.Heading = i
			}
		case KindGroupTotal:
			if g.Total < 0 {
				g.Total = i
			}
		default:
			g.Items = append(g.Items, i)
		}
	}
	sort.Ints(order)
	out := make([]Group, 0, len(order))
	for _, idx := range order {
		out = append(out, *byIdx[idx])
	}
	return out
}

// ErrStructure reports a ledger that breaks the one-heading, at-most-one-total
// rule.
var ErrStructure = errors.New("ledger structure")

// Validate checks that every group has exactly one heading and at most one
// total row, and that row ids are unique.
func Validate(rows []Row) error {
	seen := make(map[string]bool, len(rows))
	headings := make(map[int]int)
	totals := make(map[int]int)
	for _, r := range rows {
		if r.ID == "" {
			return fmt.Errorf("%w: row %q has no id", ErrStructure, r.Name)
		}
		if seen[r.ID] {
			return fmt.Errorf("%w: duplicate row id %q", ErrStructure, r.ID)
		}
		seen[r.ID] = true
		switch r.Kind {
		case KindHeading:
			headings[r.GroupIndex]++
		case KindGroupTotal:
			totals[r.GroupIndex]++
		}
	}
	for _, g := range Groups(rows) {
		if headings[g.Index] != 1 {
			return fmt.Errorf("%w: group %d has %d heading rows", ErrStructure, g.Index, headings[g.Index])
		}
		if totals[g.Index] > 1 {
			return fmt.Errorf("%w: group %d has %d total rows", ErrStructure, g.Index, totals[g.Index])
		}
	}
	return nil
}

// SortRows orders rows by group, then heading first, items by SortOrder,
// and the total row last.
func SortRows(rows []Row) {
	rank := func(k Kind) int {
		switch k {
		case KindHeading:
			return 0
		case KindGroupTotal:
			return 2
		default:
			return 1
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.GroupIndex != b.GroupIndex {
			return a.GroupIndex < b.GroupIndex
		}
		if rank(a.Kind) != rank(b.Kind) {
			return rank(a.Kind) < rank(b.Kind)
		}
		return a.SortOrder < b.SortOrder
	})
}

// Merge overlays persisted rows onto the seeded defaults. A persisted row
// replaces the seed row with the same id, or failing that the seed row with
// the same group, kind and name. Unmatched persisted rows are appended.
// The persisted row keeps its own id so later writes stay keyed to it.
func Merge(seed, persisted []Row) []Row {
	out := CloneRows(seed)
	byID := make(map[string]int, len(out))
	type nameKey struct {
		group int
		kind  Kind
		name  string
	}
	byName := make(map[nameKey]int, len(out))
	for i, r := range out {
		byID[r.ID] = i
		byName[nameKey{r.GroupIndex, r.Kind, r.Name}] = i
	}
	for _, p := range persisted {
		p = p.Clone()
		if i, ok := byID[p.ID]; ok {
			out[i] = p
			continue
		}
		k := nameKey{p.GroupIndex, p.Kind, p.Name}
		if i, ok := byName[k]; ok {
			delete(byID, out[i].ID)
			out[i] = p
			byID[p.ID] = i
			continue
		}
		byID[p.ID] = len(out)
		byName[k] = len(out)
		out = append(out, p)
	}
	SortRows(out)
	return out
}

// IndexByID maps row ids to their slice index.
func IndexByID(rows []Row) map[string]int {
	out := make(map[string]int, len(rows))
	for i, r := range rows {
		out[r.ID] = i
	}
	return out
}
