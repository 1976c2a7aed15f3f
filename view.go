package sqlrow

import (
	"fmt"
	"iter"
	"slices"
)

// View is an ordered collection materialized from a RowMapping at the time
// Keys, Values or Items was called.
//
// Although keys and items views read like sets, equality is order-sensitive
// list comparison: a keys view equals ["a", "b"] but not ["b", "a"].
type View[T any] struct {
	mapping RowMapping
	items   []T
}

func (v View[T]) Mapping() RowMapping { return v.mapping }
func (v View[T]) Len() int            { return len(v.items) }
func (v View[T]) All() iter.Seq[T]    { return slices.Values(v.items) }
func (v View[T]) Slice() []T          { return slices.Clone(v.items) }

func (v View[T]) Contains(elem T) bool {
	for _, it := range v.items {
		if elemEqual(it, elem) {
			return true
		}
	}
	return false
}

// Equal compares against another View[T], a []T, a []any or an iter.Seq[T]
// element by element in order.
func (v View[T]) Equal(other any) bool {
	switch o := other.(type) {
	case View[T]:
		return listEqual(v.items, o.items)
	case []T:
		return listEqual(v.items, o)
	case iter.Seq[T]:
		return listEqual(v.items, slices.Collect(o))
	case []any:
		if len(o) != len(v.items) {
			return false
		}
		for i, it := range v.items {
			if !valuesEqual(toAny(it), o[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func (v View[T]) NotEqual(other any) bool {
	return !v.Equal(other)
}

func (v View[T]) String() string {
	return fmt.Sprintf("View(%v)", v.mapping)
}

func listEqual[T any](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !elemEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func elemEqual[T any](a, b T) bool {
	return valuesEqual(toAny(a), toAny(b))
}

// toAny lets items compare by their parts; everything else compares as a
// column value.
func toAny[T any](v T) any {
	if it, ok := any(v).(Item); ok {
		return []any{it.Key, it.Value}
	}
	return v
}
