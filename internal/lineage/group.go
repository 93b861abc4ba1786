package lineage

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// Entity is an element of a predecessor chain.
type Entity interface {
	// EntityID returns the entity's id. It must be non-empty and unique
	// within a working set.
	EntityID() string
	// PreviousEntityID returns the predecessor's id, or "" if there is none.
	PreviousEntityID() string
}

// Ref is the minimal Entity: an id and an optional predecessor id.
type Ref struct {
	ID                string `json:"id" yaml:"id"`
	PreviousVersionID string `json:"previousVersionId,omitempty" yaml:"previousVersionId,omitempty"`
}

// EntityID implements Entity.
func (r Ref) EntityID() string { return r.ID }

// PreviousEntityID implements Entity.
func (r Ref) PreviousEntityID() string { return r.PreviousVersionID }

// Lineage is one predecessor chain ordered root first.
//
// When several entities name the same predecessor the lineage forks; its
// members are then listed depth first with siblings in ascending id order,
// so every member still follows its predecessor.
type Lineage[E Entity] struct {
	Members []E
}

// Root returns the earliest member.
func (l Lineage[E]) Root() E { return l.Members[0] }

// RootID returns the id of the earliest member.
func (l Lineage[E]) RootID() string { return l.Members[0].EntityID() }

// Head returns the last member.
func (l Lineage[E]) Head() E { return l.Members[len(l.Members)-1] }

// Len returns the number of members.
func (l Lineage[E]) Len() int { return len(l.Members) }

// Group partitions entities into lineages ordered by root id. Nil entries
// are ignored.
//
// Group fails with a *CyclicChainError when predecessor references form a
// cycle; no lineages are returned in that case.
func Group[E Entity](entities []E) ([]Lineage[E], error) {
	nodes := make([]E, 0, len(entities))
	ids := make([]string, 0, len(entities))
	index := make(map[string]int, len(entities))

	for _, e := range entities {
		if isNil(e) {
			continue
		}
		id := e.EntityID()
		if id == "" {
			return nil, ErrMissingEntityID
		}
		if _, dup := index[id]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateEntity, id)
		}
		index[id] = len(nodes)
		nodes = append(nodes, e)
		ids = append(ids, id)
	}

	// Reverse adjacency: predecessor -> successors present in the set.
	successors := make([][]int, len(nodes))
	var roots []int
	for i, e := range nodes {
		p, ok := index[e.PreviousEntityID()]
		if !ok {
			roots = append(roots, i)
			continue
		}
		successors[p] = append(successors[p], i)
	}

	byID := func(a, b int) int { return compareIDs(ids[a], ids[b]) }
	slices.SortFunc(roots, byID)
	for _, succ := range successors {
		slices.SortFunc(succ, byID)
	}

	visited := make([]bool, len(nodes))
	lineages := make([]Lineage[E], 0, len(roots))

	for _, root := range roots {
		var members []E
		stack := []int{root}
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if visited[i] {
				return nil, &CyclicChainError{IDs: []string{ids[i]}}
			}
			visited[i] = true
			members = append(members, nodes[i])

			// Push in reverse so the smallest id is walked first.
			succ := successors[i]
			for k := len(succ) - 1; k >= 0; k-- {
				stack = append(stack, succ[k])
			}
		}
		lineages = append(lineages, Lineage[E]{Members: members})
	}

	// Anything not reachable from a root has a predecessor in the set but
	// no root above it, which only happens on a cycle.
	var stranded []string
	for i, seen := range visited {
		if !seen {
			stranded = append(stranded, ids[i])
		}
	}
	if len(stranded) > 0 {
		slices.SortFunc(stranded, compareIDs)
		return nil, &CyclicChainError{IDs: stranded}
	}

	return lineages, nil
}

// compareIDs is the ordinal comparison used for all id ordering.
func compareIDs(a, b string) int {
	return strings.Compare(a, b)
}

// isNil reports whether e is a nil pointer, interface, map, slice, func or
// channel.
func isNil[E any](e E) bool {
	v := reflect.ValueOf(any(e))
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	default:
		return false
	}
}
