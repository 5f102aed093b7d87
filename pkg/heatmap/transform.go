package heatmap

import (
	"cmp"
	"math"
	"slices"
	"strconv"
)

// Rejection records a dropped record and why it was dropped.
type Rejection struct {
	Record Record
	Reason string
}

// Sanitize splits records into those the layout can place and those it
// cannot: negative, NaN or infinite revenue, or a non-finite change.
func Sanitize(records []Record) (kept []Record, rejected []Rejection) {
	kept = make([]Record, 0, len(records))
	for _, r := range records {
		switch {
		case math.IsNaN(r.Revenue) || math.IsInf(r.Revenue, 0):
			rejected = append(rejected, Rejection{Record: r, Reason: "non-finite revenue"})
		case r.Revenue < 0:
			rejected = append(rejected, Rejection{Record: r, Reason: "negative revenue"})
		case math.IsNaN(r.ChangePct) || math.IsInf(r.ChangePct, 0):
			rejected = append(rejected, Rejection{Record: r, Reason: "non-finite change"})
		default:
			kept = append(kept, r)
		}
	}
	return kept, rejected
}

// Top keeps the n records with the highest revenue, largest first. With
// rollup set, the remaining records are merged into a single [OtherID]
// record, suffixed ("other-2", ...) if a kept record already uses that id.
// n <= 0 keeps everything.
func Top(records []Record, n int, rollup bool) []Record {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b Record) int {
		return cmp.Compare(b.Revenue, a.Revenue)
	})
	if n <= 0 || len(sorted) <= n {
		return sorted
	}

	top, rest := sorted[:n], sorted[n:]
	if !rollup {
		return top
	}
	other := merge(unusedID(OtherID, top), "Other", "", rest)
	return append(top, other)
}

// unusedID returns base, or base with the first numeric suffix no record
// in records uses.
func unusedID(base string, records []Record) string {
	taken := make(map[string]bool, len(records))
	for _, r := range records {
		taken[r.ID] = true
	}
	id := base
	for i := 2; taken[id]; i++ {
		id = base + "-" + strconv.Itoa(i)
	}
	return id
}

// GroupByCategory merges records that share a category into one record per
// category, in order of first appearance. Records without a category form
// the [UncategorizedLabel] group.
func GroupByCategory(records []Record) []Record {
	var order []string
	groups := make(map[string][]Record)
	for _, r := range records {
		name := r.Category
		if name == "" {
			name = UncategorizedLabel
		}
		if _, ok := groups[name]; !ok {
			order = append(order, name)
		}
		groups[name] = append(groups[name], r)
	}

	out := make([]Record, 0, len(order))
	for _, name := range order {
		out = append(out, merge("category:"+name, name, name, groups[name]))
	}
	return out
}

// merge sums revenue and orders; the change is the revenue-weighted mean
// change of the members.
func merge(id, label, category string, records []Record) Record {
	m := Record{ID: id, Label: label, Category: category}
	var weighted float64
	for _, r := range records {
		m.Revenue += r.Revenue
		m.Orders += r.Orders
		weighted += r.Revenue * r.ChangePct
	}
	if m.Revenue > 0 {
		m.ChangePct = weighted / m.Revenue
	}
	return m
}
