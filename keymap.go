package sqlrow

// Ambiguous is the Record.Pos of a key shared by two or more columns.
const Ambiguous = -1

// Record is the resolution of a lookup key: the key the column was
// registered under, and its storage position or Ambiguous.
type Record struct {
	Key Key
	Pos int
}

func (rec Record) IsAmbiguous() bool {
	return rec.Pos == Ambiguous
}

// KeyMap maps lookup keys to resolution records. It is built once per result
// by the metadata and shared by every row of that result; it must not be
// modified after the first row is constructed.
type KeyMap map[Key]Record

func (km KeyMap) lookup(key Key) (Record, bool) {
	rec, ok := km[key]
	return rec, ok
}

// add registers key for position pos, turning it into an ambiguous record if
// the key is already taken by another position.
func (km KeyMap) add(key Key, pos int) {
	if prior, found := km[key]; found && prior.Pos != pos {
		km[key] = Record{Key: key, Pos: Ambiguous}
		return
	}
	km[key] = Record{Key: key, Pos: pos}
}
