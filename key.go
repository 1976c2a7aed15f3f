package sqlrow

import (
	"fmt"
	"math"
	"strconv"
)

type keyKind uint8

const (
	keyInvalid keyKind = iota
	keyIndex
	keySlice
	keyName
	keyCol
)

// Key addresses a row value. It is one of Index, Slice, Name or Col, and is
// comparable, so it can be used as a map key.
type Key struct {
	kind   keyKind
	open   bool // slice without an upper bound
	i, j   int
	name   string
	column *Column
}

// Column is a column-identity token. Two columns are the same column only if
// they are the same pointer; Name is used by fallback lookups.
type Column struct {
	Name  string
	Table string
}

func (c *Column) String() string {
	if c == nil {
		return "<nil column>"
	}
	if c.Table == "" {
		return c.Name
	}
	return c.Table + "." + c.Name
}

// Index addresses a single storage position.
func Index(i int) Key { return Key{kind: keyIndex, i: i} }

// Slice addresses positions [lo, hi). Negative bounds count from the end, and
// out-of-range bounds are clamped.
func Slice(lo, hi int) Key { return Key{kind: keySlice, i: lo, j: hi} }

// SliceFrom addresses positions from lo to the end of the row.
func SliceFrom(lo int) Key { return Key{kind: keySlice, i: lo, open: true} }

// Name addresses a column by its label.
func Name(name string) Key { return Key{kind: keyName, name: name} }

// Col addresses a column by identity.
func Col(c *Column) Key {
	if c == nil {
		panic("sqlrow: Col(nil)")
	}
	return Key{kind: keyCol, column: c}
}

func (k Key) IsIndex() bool { return k.kind == keyIndex }
func (k Key) IsSlice() bool { return k.kind == keySlice }
func (k Key) IsName() bool  { return k.kind == keyName }
func (k Key) IsCol() bool   { return k.kind == keyCol }
func (k Key) IsZero() bool  { return k.kind == keyInvalid }

// IsPositional reports whether the key is an Index or a Slice, the only keys
// a strict row accepts for subscription.
func (k Key) IsPositional() bool { return k.kind == keyIndex || k.kind == keySlice }

// Pos returns the position of an Index key.
func (k Key) Pos() (int, bool) {
	if k.kind != keyIndex {
		return 0, false
	}
	return k.i, true
}

// Label returns the label of a Name key.
func (k Key) Label() (string, bool) {
	if k.kind != keyName {
		return "", false
	}
	return k.name, true
}

// Column returns the column of a Col key.
func (k Key) Column() (*Column, bool) {
	if k.kind != keyCol {
		return nil, false
	}
	return k.column, true
}

// bounds resolves a Slice key against a sequence of length n.
func (k Key) bounds(n int) (int, int) {
	lo, hi := k.i, k.j
	if k.open {
		hi = n
	}
	lo, hi = clampBound(lo, n), clampBound(hi, n)
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

func clampBound(v, n int) int {
	if v < 0 {
		v += n
		if v < 0 {
			return 0
		}
	}
	if v > n {
		return n
	}
	return v
}

func (k Key) String() string {
	switch k.kind {
	case keyIndex:
		return strconv.Itoa(k.i)
	case keySlice:
		if k.open {
			return fmt.Sprintf("[%d:]", k.i)
		}
		return fmt.Sprintf("[%d:%d]", k.i, k.j)
	case keyName:
		return strconv.Quote(k.name)
	case keyCol:
		return "col(" + k.column.String() + ")"
	default:
		return "<invalid key>"
	}
}

// keyOf converts loosely typed legacy containment arguments into a key.
func keyOf(v any) (Key, bool) {
	switch v := v.(type) {
	case Key:
		return v, !v.IsZero()
	case string:
		return Name(v), true
	case *Column:
		if v == nil {
			return Key{}, false
		}
		return Col(v), true
	}
	// any Go integer addresses a position, as long as it fits an int
	switch n := asNumber(v); n.class {
	case signedNum:
		if n.i >= math.MinInt && n.i <= math.MaxInt {
			return Index(int(n.i)), true
		}
	case unsignedNum:
		if n.u <= math.MaxInt {
			return Index(int(n.u)), true
		}
	}
	return Key{}, false
}
