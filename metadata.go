package sqlrow

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// Metadata describes the columns of one result and resolves keys against
// them. It is shared by every row of the result and must be complete before
// the first row is constructed; rows never modify it.
type Metadata interface {
	// Keys returns the column labels in storage order. An empty label marks
	// an unlabeled or deduplicated column.
	Keys() []string

	// KeyMap returns the precomputed key map of the result.
	KeyMap() KeyMap

	// KeyFallback resolves keys missing from the key map. Returns
	// *KeyNotFoundError if the key cannot be located.
	KeyFallback(key Key) (Record, error)

	// AmbiguousError returns the error reported for an ambiguous record.
	AmbiguousError(rec Record) error

	// HasKey reports whether key resolves, either through the key map or the
	// fallback. Ambiguous keys are present.
	HasKey(key Key) bool

	// Contains implements the legacy containment test for row.
	Contains(v any, row *Row) bool

	// Warn delivers a compatibility warning.
	Warn(w *CompatWarning)
}

// PortableMetadata is metadata that can be written alongside serialized rows.
type PortableMetadata interface {
	Metadata
	MetadataState() MetadataState
}

// ColumnDesc describes one result column. Label may be empty for an
// unlabeled column; Column may be nil when the column has no identity token.
type ColumnDesc struct {
	Label  string
	Column *Column
}

type MetadataOpts struct {
	Logger *slog.Logger

	// OnWarning receives compatibility warnings instead of the logger.
	OnWarning func(w *CompatWarning)

	// CaseInsensitive enables case-insensitive label lookups.
	CaseInsensitive bool

	// DedupeLabels keeps only the first of several columns with the same
	// label; the others become unlabeled rather than ambiguous.
	DedupeLabels bool
}

// ResultMetadata is the stock Metadata implementation built from column
// descriptions. It is immutable once built.
type ResultMetadata struct {
	descs  []ColumnDesc
	keys   []string
	keymap KeyMap
	lower  KeyMap // lowercased labels, when case-insensitive

	caseInsensitive bool
	dedupe          bool
	logger          *slog.Logger
	onWarning       func(w *CompatWarning)
}

var _ PortableMetadata = (*ResultMetadata)(nil)

func NewMetadata(cols []ColumnDesc, opt MetadataOpts) *ResultMetadata {
	logger := opt.Logger
	if logger == nil {
		logger = slog.Default()
	}
	md := &ResultMetadata{
		descs:           slices.Clone(cols),
		keys:            make([]string, len(cols)),
		keymap:          make(KeyMap, 3*len(cols)),
		caseInsensitive: opt.CaseInsensitive,
		dedupe:          opt.DedupeLabels,
		logger:          logger,
		onWarning:       opt.OnWarning,
	}
	if opt.CaseInsensitive {
		md.lower = make(KeyMap, len(cols))
	}

	seen := make(map[string]bool, len(cols))
	for i, cd := range cols {
		md.keymap.add(Index(i), i)

		label := cd.Label
		if label != "" && opt.DedupeLabels && seen[label] {
			label = ""
		}
		if label != "" {
			seen[label] = true
			md.keys[i] = label
			md.keymap.add(Name(label), i)
			if md.lower != nil {
				md.lower.add(Name(strings.ToLower(label)), i)
			}
		}
		if cd.Column != nil {
			md.keymap.add(Col(cd.Column), i)
		}
	}
	return md
}

// Labels is a shorthand for metadata of plainly labeled columns.
func Labels(labels ...string) *ResultMetadata {
	cols := make([]ColumnDesc, len(labels))
	for i, l := range labels {
		cols[i].Label = l
	}
	return NewMetadata(cols, MetadataOpts{})
}

func (md *ResultMetadata) Keys() []string          { return md.keys }
func (md *ResultMetadata) KeyMap() KeyMap          { return md.keymap }
func (md *ResultMetadata) Len() int                { return len(md.descs) }
func (md *ResultMetadata) Columns() []ColumnDesc   { return slices.Clone(md.descs) }
func (md *ResultMetadata) Logger() *slog.Logger    { return md.logger }
func (md *ResultMetadata) String() string          { return fmt.Sprintf("ResultMetadata%q", md.keys) }
func (md *ResultMetadata) IsCaseInsensitive() bool { return md.caseInsensitive }

func (md *ResultMetadata) KeyFallback(key Key) (Record, error) {
	rec, ok := md.fallback(key)
	if !ok {
		return Record{}, &KeyNotFoundError{Key: key}
	}
	if key.IsCol() {
		md.Warn(&CompatWarning{
			Kind: WarnColumnFallback,
			Key:  key,
			Msg:  fmt.Sprintf("column %v is not part of this result; matched by name %q", key.column, key.column.Name),
		})
	}
	return rec, nil
}

func (md *ResultMetadata) fallback(key Key) (Record, bool) {
	switch key.kind {
	case keyName:
		return md.lowerLookup(key.name)
	case keyCol:
		name := key.column.Name
		if name == "" {
			return Record{}, false
		}
		if rec, ok := md.keymap.lookup(Name(name)); ok {
			return rec, true
		}
		return md.lowerLookup(name)
	}
	return Record{}, false
}

func (md *ResultMetadata) lowerLookup(label string) (Record, bool) {
	if md.lower == nil {
		return Record{}, false
	}
	return md.lower.lookup(Name(strings.ToLower(label)))
}

func (md *ResultMetadata) AmbiguousError(rec Record) error {
	return &AmbiguousColumnError{Key: rec.Key}
}

func (md *ResultMetadata) HasKey(key Key) bool {
	if _, ok := md.keymap.lookup(key); ok {
		return true
	}
	_, ok := md.fallback(key)
	return ok
}

// Contains reports whether v is a key of the row or one of its values. A key
// match is the deprecated behavior and raises WarnKeyContainment.
func (md *ResultMetadata) Contains(v any, row *Row) bool {
	if key, ok := keyOf(v); ok && md.HasKey(key) {
		md.Warn(&CompatWarning{
			Kind: WarnKeyContainment,
			Key:  key,
			Msg:  "using 'in' to test for keys in a row is deprecated; use row.Mapping().Contains() or row.Fields()",
		})
		return true
	}
	return row != nil && row.containsValue(v)
}

func (md *ResultMetadata) Warn(w *CompatWarning) {
	if md.onWarning != nil {
		md.onWarning(w)
		return
	}
	md.logger.Warn(w.Msg, w.attrs()...)
}

// MetadataState is the portable form of ResultMetadata. Column identity
// tokens are written once and referenced by position, so columns shared by
// several descriptions stay shared after a round trip.
type MetadataState struct {
	Descs           []DescState   `msgpack:"d"`
	Columns         []ColumnState `msgpack:"c,omitempty"`
	CaseInsensitive bool          `msgpack:"ci,omitempty"`
	DedupeLabels    bool          `msgpack:"dd,omitempty"`
}

type DescState struct {
	Label  string `msgpack:"l"`
	Column int    `msgpack:"c,omitempty"` // 1-based index into Columns, 0 if none
}

type ColumnState struct {
	Name  string `msgpack:"n"`
	Table string `msgpack:"t,omitempty"`
}

func (md *ResultMetadata) MetadataState() MetadataState {
	st := MetadataState{
		Descs:           make([]DescState, len(md.descs)),
		CaseInsensitive: md.caseInsensitive,
		DedupeLabels:    md.dedupe,
	}
	refs := make(map[*Column]int)
	for i, cd := range md.descs {
		st.Descs[i].Label = cd.Label
		if cd.Column == nil {
			continue
		}
		ref := refs[cd.Column]
		if ref == 0 {
			st.Columns = append(st.Columns, ColumnState{Name: cd.Column.Name, Table: cd.Column.Table})
			ref = len(st.Columns)
			refs[cd.Column] = ref
		}
		st.Descs[i].Column = ref
	}
	return st
}

// MetadataFromState rebuilds metadata from its portable form. Lookup flags
// come from the state; opt supplies logging and warning delivery.
func MetadataFromState(st MetadataState, opt MetadataOpts) (*ResultMetadata, error) {
	cols := make([]*Column, len(st.Columns))
	for i, cs := range st.Columns {
		cols[i] = &Column{Name: cs.Name, Table: cs.Table}
	}
	descs := make([]ColumnDesc, len(st.Descs))
	for i, ds := range st.Descs {
		descs[i].Label = ds.Label
		if ds.Column != 0 {
			if ds.Column < 0 || ds.Column > len(cols) {
				return nil, stateErrf(nil, "column %d references unknown column object %d", i, ds.Column)
			}
			descs[i].Column = cols[ds.Column-1]
		}
	}
	opt.CaseInsensitive = st.CaseInsensitive
	opt.DedupeLabels = st.DedupeLabels
	return NewMetadata(descs, opt), nil
}
