package lineage

import (
	"cmp"
	"slices"
)

// Sort returns entities in deletion order: within each lineage the most
// recent member comes first, and lineages follow each other by root id.
// The result is the same for every permutation of the input.
func Sort[E Entity](entities []E) ([]E, error) {
	o, err := NewOrder(entities)
	if err != nil {
		return nil, err
	}
	return o.Sorted(), nil
}

// Order is a computed deletion order.
type Order[E Entity] struct {
	sorted   []E
	position map[string]int
	lineage  map[string]int
	lineages int
}

// NewOrder groups entities and computes their deletion order.
func NewOrder[E Entity](entities []E) (*Order[E], error) {
	lineages, err := Group(entities)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(lineages, func(a, b Lineage[E]) int {
		return compareIDs(a.RootID(), b.RootID())
	})

	o := &Order[E]{
		sorted:   make([]E, 0, len(entities)),
		position: make(map[string]int, len(entities)),
		lineage:  make(map[string]int, len(entities)),
		lineages: len(lineages),
	}
	for li, l := range lineages {
		for k := len(l.Members) - 1; k >= 0; k-- {
			e := l.Members[k]
			o.position[e.EntityID()] = len(o.sorted)
			o.lineage[e.EntityID()] = li
			o.sorted = append(o.sorted, e)
		}
	}
	return o, nil
}

// Sorted returns a copy of the deletion order.
func (o *Order[E]) Sorted() []E {
	return slices.Clone(o.sorted)
}

// Len returns the number of entities in the order.
func (o *Order[E]) Len() int { return len(o.sorted) }

// Lineages returns the number of lineages the entities formed.
func (o *Order[E]) Lineages() int { return o.lineages }

// Compare reports which of two entities is deleted first. It only answers
// for entities in the same lineage; ok is false for entities in different
// lineages or unknown ids, which are incomparable.
//
// Compare is not a total order over the whole set and must not be passed to
// a sort function; use Sorted for the full order.
func (o *Order[E]) Compare(a, b string) (c int, ok bool) {
	la, okA := o.lineage[a]
	lb, okB := o.lineage[b]
	if !okA || !okB || la != lb {
		return 0, false
	}
	return cmp.Compare(o.position[a], o.position[b]), true
}
