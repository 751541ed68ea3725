package domain

import "sort"

// Frontier is the evolving set of discovered items across rounds.
//
// It only grows: Merge never removes an item, so Len is non-decreasing.
// A Frontier is owned by a single aggregator and is not safe for concurrent use.
type Frontier struct {
	items      map[string]struct{}
	dispatched map[string]struct{}
	history    []int
}

func NewFrontier() *Frontier {
	return &Frontier{
		items:      map[string]struct{}{},
		dispatched: map[string]struct{}{},
	}
}

// Merge adds the candidates that are not already present and returns the
// number of unique items after the merge. Blank candidates are ignored.
func (f *Frontier) Merge(candidates []string) int {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		f.items[c] = struct{}{}
	}
	f.history = append(f.history, len(f.items))
	return len(f.items)
}

func (f *Frontier) Len() int { return len(f.items) }

func (f *Frontier) Contains(item string) bool {
	_, ok := f.items[item]
	return ok
}

// Items returns a sorted copy of the frontier.
func (f *Frontier) Items() []string {
	out := make([]string, 0, len(f.items))
	for it := range f.items {
		out = append(out, it)
	}
	sort.Strings(out)
	return out
}

// Pending returns, sorted, the items that have not been dispatched yet.
func (f *Frontier) Pending() []string {
	out := make([]string, 0, len(f.items))
	for it := range f.items {
		if _, done := f.dispatched[it]; !done {
			out = append(out, it)
		}
	}
	sort.Strings(out)
	return out
}

// MarkDispatched records items as already queried. Items not merged yet are
// recorded too, so a later Merge of them never makes them pending.
func (f *Frontier) MarkDispatched(items []string) {
	for _, it := range items {
		if it != "" {
			f.dispatched[it] = struct{}{}
		}
	}
}

// History returns the frontier size recorded after each merge.
func (f *Frontier) History() []int {
	out := make([]int, len(f.history))
	copy(out, f.history)
	return out
}
