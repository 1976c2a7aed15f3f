package sqlrow

import (
	"bytes"
	"cmp"
	"math"
	"reflect"
	"strings"
	"time"
)

type numClass uint8

const (
	notNumber numClass = iota
	signedNum
	unsignedNum
	floatNum
)

type number struct {
	class numClass
	i     int64
	u     uint64
	f     float64
}

func asNumber(v any) number {
	switch v := v.(type) {
	case int:
		return number{class: signedNum, i: int64(v)}
	case int8:
		return number{class: signedNum, i: int64(v)}
	case int16:
		return number{class: signedNum, i: int64(v)}
	case int32:
		return number{class: signedNum, i: int64(v)}
	case int64:
		return number{class: signedNum, i: v}
	case uint:
		return number{class: unsignedNum, u: uint64(v)}
	case uint8:
		return number{class: unsignedNum, u: uint64(v)}
	case uint16:
		return number{class: unsignedNum, u: uint64(v)}
	case uint32:
		return number{class: unsignedNum, u: uint64(v)}
	case uint64:
		return number{class: unsignedNum, u: v}
	case float32:
		return number{class: floatNum, f: float64(v)}
	case float64:
		return number{class: floatNum, f: v}
	}
	return number{}
}

// compare orders two numbers by value. ok is false when either is NaN.
// Integers are never rounded through float64.
func (a number) compare(b number) (int, bool) {
	switch {
	case a.class == signedNum && b.class == signedNum:
		return cmp.Compare(a.i, b.i), true
	case a.class == unsignedNum && b.class == unsignedNum:
		return cmp.Compare(a.u, b.u), true
	case a.class == signedNum && b.class == unsignedNum:
		if a.i < 0 {
			return -1, true
		}
		return cmp.Compare(uint64(a.i), b.u), true
	case a.class == unsignedNum && b.class == signedNum:
		if b.i < 0 {
			return 1, true
		}
		return cmp.Compare(a.u, uint64(b.i)), true
	case a.class == floatNum && b.class == floatNum:
		if math.IsNaN(a.f) || math.IsNaN(b.f) {
			return 0, false
		}
		return cmp.Compare(a.f, b.f), true
	case a.class == floatNum:
		c, ok := b.compareFloat(a.f)
		return -c, ok
	default:
		return a.compareFloat(b.f)
	}
}

const (
	twoTo63 = 1 << 63
	twoTo64 = 1 << 64
)

// compareFloat orders the integer n against f exactly.
func (n number) compareFloat(f float64) (int, bool) {
	if math.IsNaN(f) {
		return 0, false
	}
	t := math.Trunc(f)
	// decides when n equals the integer part of f
	frac := cmp.Compare(0, f-t)
	if math.IsInf(f, 0) {
		frac = 0
	}
	if n.class == signedNum {
		switch {
		case t < -twoTo63:
			return 1, true
		case t >= twoTo63:
			return -1, true
		}
		if c := cmp.Compare(n.i, int64(t)); c != 0 {
			return c, true
		}
		return frac, true
	}
	switch {
	case t < 0:
		return 1, true
	case t >= twoTo64:
		return -1, true
	}
	if c := cmp.Compare(n.u, uint64(t)); c != 0 {
		return c, true
	}
	return frac, true
}

// integral returns f as an exact int64 or uint64 number, if f is a whole
// number within their range.
func integral(f float64) (number, bool) {
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return number{}, false
	}
	switch {
	case f >= -twoTo63 && f < twoTo63:
		return number{class: signedNum, i: int64(f)}, true
	case f >= twoTo63 && f < twoTo64:
		return number{class: unsignedNum, u: uint64(f)}, true
	}
	return number{}, false
}

// valuesEqual reports whether two column values are equal. Numbers are equal
// by value regardless of their Go type; sequences compare element-wise.
func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if na, nb := asNumber(a), asNumber(b); na.class != notNumber || nb.class != notNumber {
		if na.class == notNumber || nb.class == notNumber {
			return false
		}
		c, ok := na.compare(nb)
		return ok && c == 0
	}
	switch a := a.(type) {
	case string:
		b, ok := b.(string)
		return ok && a == b
	case bool:
		b, ok := b.(bool)
		return ok && a == b
	case []byte:
		b, ok := b.([]byte)
		return ok && bytes.Equal(a, b)
	case time.Time:
		b, ok := b.(time.Time)
		return ok && a.Equal(b)
	case *Row:
		return a.Equal(b)
	}
	if sa, ok := sequenceOf(a); ok {
		sb, ok := sequenceOf(b)
		if !ok || len(sa) != len(sb) {
			return false
		}
		for i := range sa {
			if !valuesEqual(sa[i], sb[i]) {
				return false
			}
		}
		return true
	}
	if ma, mb := reflect.ValueOf(a), reflect.ValueOf(b); ma.Kind() == reflect.Map && mb.Kind() == reflect.Map {
		return mapsEqual(ma, mb)
	}
	return reflect.DeepEqual(a, b)
}

// mapsEqual compares maps entry by entry with valuesEqual, so a map decoded
// with different key or value types still equals the original.
func mapsEqual(ma, mb reflect.Value) bool {
	if ma.Len() != mb.Len() {
		return false
	}
	it := ma.MapRange()
	for it.Next() {
		vb, ok := mapLookup(mb, it.Key())
		if !ok || !valuesEqual(it.Value().Interface(), vb.Interface()) {
			return false
		}
	}
	return true
}

func mapLookup(m, key reflect.Value) (reflect.Value, bool) {
	if key.Type().AssignableTo(m.Type().Key()) {
		if v := m.MapIndex(key); v.IsValid() {
			return v, true
		}
	}
	k := key.Interface()
	it := m.MapRange()
	for it.Next() {
		if valuesEqual(k, it.Key().Interface()) {
			return it.Value(), true
		}
	}
	return reflect.Value{}, false
}

// compareValues orders two column values. It fails with *CompareError for
// values without a natural order, including nil against anything.
func compareValues(a, b any) (int, error) {
	if a == nil || b == nil {
		return 0, &CompareError{a, b}
	}
	if na, nb := asNumber(a), asNumber(b); na.class != notNumber && nb.class != notNumber {
		if c, ok := na.compare(nb); ok {
			return c, nil
		}
		return 0, &CompareError{a, b}
	}
	switch a := a.(type) {
	case string:
		if b, ok := b.(string); ok {
			return strings.Compare(a, b), nil
		}
	case bool:
		if b, ok := b.(bool); ok {
			return cmp.Compare(boolInt(a), boolInt(b)), nil
		}
	case []byte:
		if b, ok := b.([]byte); ok {
			return bytes.Compare(a, b), nil
		}
	case time.Time:
		if b, ok := b.(time.Time); ok {
			return a.Compare(b), nil
		}
	default:
		if sa, ok := sequenceOf(a); ok {
			if sb, ok := sequenceOf(b); ok {
				return compareSequences(sa, sb)
			}
		}
	}
	return 0, &CompareError{a, b}
}

// compareSequences compares lexicographically: the first differing position
// decides, and a strict prefix is less.
func compareSequences(a, b []any) (int, error) {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if valuesEqual(a[i], b[i]) {
			continue
		}
		return compareValues(a[i], b[i])
	}
	return cmp.Compare(len(a), len(b)), nil
}

func sequencesEqual(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !valuesEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// sequenceOf returns the elements of rows, slices and arrays. Byte slices and
// strings are scalars.
func sequenceOf(v any) ([]any, bool) {
	switch v := v.(type) {
	case nil, []byte, string:
		return nil, false
	case []any:
		return v, true
	case *Row:
		if v == nil {
			return nil, false
		}
		return v.data, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, true
	}
	return nil, false
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
