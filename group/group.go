// Package group walks test records in nested groups so that the outermost
// dimensions, the expensive ones, change least often.
//
// Grouping is materialized up front. A Grouping is a replayable view: every
// call to All starts from the first group again.
package group

import (
	"fmt"
	"iter"

	"github.com/perfgo/benchcamp/model"
)

// Keyed is anything whose dimension values can be looked up by name, for
// example model.Record and model.Run.
type Keyed interface {
	Get(name string) (model.Value, bool)
}

// Group is one innermost group: the items sharing Values for every grouping
// dimension.
type Group[T Keyed] struct {
	// Values holds one value per grouping dimension, outermost first.
	Values []model.Value
	Items  []T
	// Changed is the index of the outermost dimension whose value differs
	// from the previous group. It is 0 for the first group, so callers that
	// reconfigure when Changed < len(key) always reconfigure before the first
	// group.
	Changed int
}

// Only returns the single item of the group. It fails when the grouping
// dimensions did not fully distinguish the items.
func (g Group[T]) Only() (T, error) {
	if len(g.Items) != 1 {
		var zero T
		return zero, fmt.Errorf("expected exactly one item in group %v, got %d", g.Values, len(g.Items))
	}
	return g.Items[0], nil
}

// Grouping is the precomputed nested grouping of a list of items.
type Grouping[T Keyed] struct {
	dims   []string
	groups []Group[T]
}

// New groups items by dims. Items are first grouped by the first dimension's
// distinct values in order of first appearance, then within each such group
// by the second dimension, and so on. Every item lands in exactly one
// innermost group. A dimension missing from any item is a configuration
// error.
func New[T Keyed](items []T, dims []string) (*Grouping[T], error) {
	for _, it := range items {
		for _, d := range dims {
			if _, ok := it.Get(d); !ok {
				return nil, model.Configf(d, "grouping dimension is not present in every record")
			}
		}
	}

	g := &Grouping[T]{dims: append([]string(nil), dims...)}
	g.split(items, 0, nil)

	for i := range g.groups {
		if i == 0 {
			continue
		}
		prev, cur := g.groups[i-1].Values, g.groups[i].Values
		g.groups[i].Changed = len(dims)
		for d := range dims {
			if prev[d] != cur[d] {
				g.groups[i].Changed = d
				break
			}
		}
	}
	return g, nil
}

func (g *Grouping[T]) split(items []T, level int, prefix []model.Value) {
	if len(items) == 0 {
		return
	}
	if level == len(g.dims) {
		g.groups = append(g.groups, Group[T]{
			Values: append([]model.Value(nil), prefix...),
			Items:  items,
		})
		return
	}

	var order []model.Value
	buckets := map[model.Value][]T{}
	for _, it := range items {
		v, _ := it.Get(g.dims[level])
		if _, ok := buckets[v]; !ok {
			order = append(order, v)
		}
		buckets[v] = append(buckets[v], it)
	}
	for _, v := range order {
		g.split(buckets[v], level+1, append(prefix, v))
	}
}

// Dimensions returns the grouping dimensions, outermost first.
func (g *Grouping[T]) Dimensions() []string {
	return append([]string(nil), g.dims...)
}

// Groups returns the innermost groups in visiting order.
func (g *Grouping[T]) Groups() []Group[T] {
	return append([]Group[T](nil), g.groups...)
}

// Len is the number of innermost groups.
func (g *Grouping[T]) Len() int {
	return len(g.groups)
}

// All yields every innermost group as (values, items), outermost dimensions
// varying slowest. It can be ranged over any number of times.
func (g *Grouping[T]) All() iter.Seq2[[]model.Value, []T] {
	return func(yield func([]model.Value, []T) bool) {
		for _, grp := range g.groups {
			if !yield(grp.Values, grp.Items) {
				return
			}
		}
	}
}

// Order returns items in the visiting order of their grouping by dims.
func Order[T Keyed](items []T, dims []string) ([]T, error) {
	g, err := New(items, dims)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(items))
	for _, grp := range g.groups {
		out = append(out, grp.Items...)
	}
	return out, nil
}
