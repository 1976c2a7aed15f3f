package sqlrow

import (
	"fmt"
	"iter"
)

// RowMapping is a read-only dictionary view of a row. It has no storage of
// its own.
//
// Len counts every storage slot of the row, while All, Keys and Items only
// visit labeled columns; the two disagree when the result has unlabeled or
// deduplicated columns.
type RowMapping struct {
	row *Row
}

// Item is a label/value pair produced by RowMapping.Items.
type Item struct {
	Key   string
	Value any
}

func (it Item) String() string {
	return fmt.Sprintf("(%q, %s)", it.Key, formatValue(it.Value))
}

func (m RowMapping) Row() *Row { return m.row }
func (m RowMapping) Len() int  { return m.row.Len() }

// Get resolves any key variant without raising the non-integer key warning.
func (m RowMapping) Get(key Key) (any, error) {
	return m.row.resolve(key, true)
}

// Lookup returns the value of the column with the given label, or false if
// there is no such column or the label is ambiguous.
func (m RowMapping) Lookup(label string) (any, bool) {
	v, err := m.row.resolve(Name(label), true)
	if err != nil {
		return nil, false
	}
	return v, true
}

// Contains reports whether key resolves in the row, as decided by the
// metadata.
func (m RowMapping) Contains(key Key) bool {
	return m.row.md.HasKey(key)
}

// All yields labels in storage order, skipping unlabeled columns.
func (m RowMapping) All() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, k := range m.row.md.Keys() {
			if k == "" {
				continue
			}
			if !yield(k) {
				return
			}
		}
	}
}

func (m RowMapping) Keys() View[string] {
	return View[string]{m, nonEmptyKeys(m.row.md.Keys())}
}

func (m RowMapping) Values() View[any] {
	return View[any]{m, m.row.Values()}
}

// Items pairs each label with the value at the label's own position, so
// duplicate labels do not fail the way Get would.
func (m RowMapping) Items() View[Item] {
	keys := m.row.md.Keys()
	items := make([]Item, 0, len(keys))
	for i, k := range keys {
		if k != "" {
			items = append(items, Item{k, m.row.data[i]})
		}
	}
	return View[Item]{m, items}
}

func (m RowMapping) String() string {
	return fmt.Sprintf("RowMapping%v", m.Items().items)
}

// Get returns the value for key converted to T, resolving the key the way
// RowMapping.Get does. A nil value yields the zero T.
func Get[T any](r *Row, key Key) (T, error) {
	var zero T
	v, err := r.resolve(key, true)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, &TypeMismatchError{Key: key, Value: v, Want: fmt.Sprintf("%T", zero)}
	}
	return t, nil
}
