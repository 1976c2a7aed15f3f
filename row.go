package sqlrow

import (
	"fmt"
	"iter"
	"slices"
	"strings"
)

// Mode selects the behavioral contract of a row. The numeric values are part
// of the serialized row format and must not change.
type Mode uint8

const (
	// Strict rows behave like tuples: subscription is positional and
	// containment tests values.
	Strict Mode = 1
	// Legacy rows keep the mapping-first behavior: subscription accepts
	// names and column objects, and containment tests keys.
	Legacy Mode = 2
)

func (m Mode) Valid() bool {
	return m == Strict || m == Legacy
}

func (m Mode) String() string {
	switch m {
	case Strict:
		return "strict"
	case Legacy:
		return "legacy"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// Converter turns a raw column value into its final form. A nil Converter
// passes values through.
type Converter func(v any) any

// Row is an immutable snapshot of one result record. It can be read from
// multiple goroutines without synchronization.
type Row struct {
	md     Metadata
	keymap KeyMap
	data   []any
	mode   Mode
}

// New builds a strict row. See Construct.
func New(md Metadata, converters []Converter, keymap KeyMap, raw []any) (*Row, error) {
	return Construct(Strict, md, converters, keymap, raw)
}

// NewLegacy builds a legacy row. See Construct.
func NewLegacy(md Metadata, converters []Converter, keymap KeyMap, raw []any) (*Row, error) {
	return Construct(Legacy, md, converters, keymap, raw)
}

// Construct builds a row by passing each raw value through its converter.
// converters is either nil or has one (possibly nil) entry per value, raw has
// one value per metadata column, and a nil keymap means md.KeyMap().
func Construct(mode Mode, md Metadata, converters []Converter, keymap KeyMap, raw []any) (*Row, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("row construction: invalid %v", mode)
	}
	if md == nil {
		return nil, fmt.Errorf("row construction: nil metadata")
	}
	n := len(md.Keys())
	if len(raw) != n {
		return nil, &ShapeError{"values", len(raw), n}
	}
	if converters != nil && len(converters) != n {
		return nil, &ShapeError{"converters", len(converters), n}
	}
	if keymap == nil {
		keymap = md.KeyMap()
	}

	data := make([]any, n)
	for i, v := range raw {
		if converters != nil && converters[i] != nil {
			v = converters[i](v)
		}
		data[i] = v
	}
	return &Row{md: md, keymap: keymap, data: data, mode: mode}, nil
}

func (r *Row) Mode() Mode          { return r.mode }
func (r *Row) Metadata() Metadata  { return r.md }
func (r *Row) Len() int            { return len(r.data) }
func (r *Row) Values() []any       { return slices.Clone(r.data) }
func (r *Row) Hash() uint64        { return hashValues(r.data) }
func (r *Row) Mapping() RowMapping { return RowMapping{r} }
func (r *Row) All() iter.Seq[any]  { return slices.Values(r.data) }

func (r *Row) Enumerate() iter.Seq2[int, any] {
	return slices.All(r.data)
}

// AsMode returns a row sharing this row's storage with a different contract.
func (r *Row) AsMode(mode Mode) *Row {
	if mode == r.mode || !mode.Valid() {
		return r
	}
	return &Row{md: r.md, keymap: r.keymap, data: r.data, mode: mode}
}

// resolve is the single lookup path for every addressing mode. mapping is
// true when called through RowMapping, which suppresses the non-integer key
// warning.
func (r *Row) resolve(key Key, mapping bool) (any, error) {
	switch key.kind {
	case keyIndex:
		return r.at(key.i)
	case keySlice:
		lo, hi := key.bounds(len(r.data))
		return slices.Clone(r.data[lo:hi]), nil
	case keyName, keyCol:
		rec, ok := r.keymap.lookup(key)
		if !ok {
			var err error
			rec, err = r.md.KeyFallback(key)
			if err != nil {
				return nil, err
			}
		}
		if rec.IsAmbiguous() {
			return nil, r.md.AmbiguousError(rec)
		}
		if !mapping && Index(rec.Pos) != key && !key.IsIndex() {
			r.md.Warn(nonIntKeyWarning(key))
		}
		return r.at(rec.Pos)
	default:
		return nil, &KeyNotFoundError{Key: key}
	}
}

func (r *Row) at(i int) (any, error) {
	if i < 0 || i >= len(r.data) {
		return nil, &IndexError{Index: i, Len: len(r.data)}
	}
	return r.data[i], nil
}

// Get subscripts the row. Strict rows accept Index and Slice keys only;
// legacy rows also accept Name and Col keys. Slice keys yield []any.
func (r *Row) Get(key Key) (any, error) {
	if r.mode == Strict && !key.IsPositional() {
		return nil, &KeyTypeError{Key: key, Mode: r.mode}
	}
	return r.resolve(key, false)
}

func (r *Row) At(i int) (any, error) {
	return r.at(i)
}

func (r *Row) Slice(lo, hi int) []any {
	lo, hi = Slice(lo, hi).bounds(len(r.data))
	return slices.Clone(r.data[lo:hi])
}

// Contains tests values on strict rows and delegates to the metadata's
// legacy key-or-value test on legacy rows.
func (r *Row) Contains(v any) bool {
	if r.mode == Legacy {
		return r.md.Contains(v, r)
	}
	return r.containsValue(v)
}

func (r *Row) containsValue(v any) bool {
	for _, d := range r.data {
		if valuesEqual(d, v) {
			return true
		}
	}
	return false
}

// Fields returns the non-empty column labels in storage order.
func (r *Row) Fields() []string {
	return nonEmptyKeys(r.md.Keys())
}

// AsDict builds a label-to-value map. Later columns win on duplicate labels.
func (r *Row) AsDict() map[string]any {
	keys := r.md.Keys()
	m := make(map[string]any, len(keys))
	for i, k := range keys {
		if k != "" {
			m[k] = r.data[i]
		}
	}
	return m
}

// Replace is not supported: rows carry no defaults that would make a
// partial replacement well-defined.
func (r *Row) Replace(changes map[string]any) (*Row, error) {
	return nil, fmt.Errorf("Row.Replace: %w", ErrUnsupported)
}

func (r *Row) FieldDefaults() (map[string]any, error) {
	return nil, fmt.Errorf("Row.FieldDefaults: %w", ErrUnsupported)
}

// Equal compares the value sequence against another *Row, a []any, or any
// other slice or array, position by position.
func (r *Row) Equal(other any) bool {
	if r == nil {
		o, _ := other.(*Row)
		return o == nil
	}
	seq, ok := sequenceOf(other)
	if !ok {
		return false
	}
	return sequencesEqual(r.data, seq)
}

// Compare orders the row lexicographically against another sequence. Rows of
// different shapes are still compared by position.
func (r *Row) Compare(other any) (int, error) {
	seq, ok := sequenceOf(other)
	if !ok {
		return 0, &CompareError{r, other}
	}
	return compareSequences(r.data, seq)
}

// Less reports whether r orders before other; false if they are not
// comparable.
func (r *Row) Less(other any) bool {
	c, err := r.Compare(other)
	return err == nil && c < 0
}

func (r *Row) String() string {
	var buf strings.Builder
	buf.WriteByte('(')
	for i, v := range r.data {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(formatValue(v))
	}
	buf.WriteByte(')')
	return buf.String()
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "nil"
	case string:
		return fmt.Sprintf("%q", v)
	case []byte:
		return fmt.Sprintf("%x", v)
	default:
		return fmt.Sprint(v)
	}
}

// The accessors below date from legacy rows. They behave the same in both
// modes and always raise WarnDeprecatedAccessor.

// Keys returns the column labels.
//
// Deprecated: use Fields or Mapping().Keys().
func (r *Row) Keys() []string {
	r.md.Warn(deprecatedAccessorWarning("Keys", "row.Fields() or row.Mapping().Keys()"))
	return r.Mapping().Keys().Slice()
}

// ValuesList returns the values as a list.
//
// Deprecated: use Mapping().Values() or Values.
func (r *Row) ValuesList() []any {
	r.md.Warn(deprecatedAccessorWarning("ValuesList", "row.Mapping().Values()"))
	return r.Mapping().Values().Slice()
}

// Items returns label/value pairs.
//
// Deprecated: use Mapping().Items().
func (r *Row) Items() []Item {
	r.md.Warn(deprecatedAccessorWarning("Items", "row.Mapping().Items()"))
	return r.Mapping().Items().Slice()
}

// HasKey reports whether key resolves in this row.
//
// Deprecated: use Mapping().Contains().
func (r *Row) HasKey(key Key) bool {
	r.md.Warn(deprecatedAccessorWarning("HasKey", "row.Mapping().Contains()"))
	return r.md.HasKey(key)
}

func nonEmptyKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}
