package sqlrow

import "slices"

// State is the portable form of a row: its metadata reference and stored
// values. It is independent of the row's Mode.
type State struct {
	Metadata Metadata
	Values   []any
}

func (r *Row) State() State {
	return State{Metadata: r.md, Values: slices.Clone(r.data)}
}

// Reconstruct rebuilds a row of the given mode from a State. The state must
// be complete: a metadata reference with a key map and one value per column.
// Values are taken as already converted.
func Reconstruct(mode Mode, st State) (*Row, error) {
	if !mode.Valid() {
		return nil, stateErrf(nil, "unknown row kind %v", mode)
	}
	if st.Metadata == nil {
		return nil, stateErrf(nil, "missing metadata")
	}
	if st.Values == nil {
		return nil, stateErrf(nil, "missing values")
	}
	keymap := st.Metadata.KeyMap()
	if keymap == nil {
		return nil, stateErrf(nil, "metadata has no key map")
	}
	if n := len(st.Metadata.Keys()); len(st.Values) != n {
		return nil, stateErrf(&ShapeError{"values", len(st.Values), n}, "value count mismatch")
	}
	return &Row{
		md:     st.Metadata,
		keymap: keymap,
		data:   slices.Clone(st.Values),
		mode:   mode,
	}, nil
}
