package sqlrow

import (
	"fmt"
	"iter"
	"maps"
	"slices"
	"sync"
)

// memStore keeps results in memory. Readers work on the snapshot current
// when they began; a single writer at a time builds the next snapshot and
// publishes it on commit.
type memStore struct {
	writer sync.Mutex // held by the open write transaction

	mu     sync.Mutex
	snap   *memSnapshot
	closed bool
}

// memSnapshot is immutable once published.
type memSnapshot struct {
	entries map[string][]byte
	rows    map[string][][]byte // rows[name][seq-1]
}

func newMemStore() *memStore {
	return &memStore{snap: &memSnapshot{
		entries: make(map[string][]byte),
		rows:    make(map[string][][]byte),
	}}
}

func (s *memStore) current() (*memSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("spool closed")
	}
	return s.snap, nil
}

func (s *memStore) Begin(writable bool) (storeTx, error) {
	if !writable {
		snap, err := s.current()
		if err != nil {
			return nil, err
		}
		return &memStoreTx{snap: snap}, nil
	}

	s.writer.Lock()
	snap, err := s.current()
	if err != nil {
		s.writer.Unlock()
		return nil, err
	}
	next := &memSnapshot{
		entries: maps.Clone(snap.entries),
		rows:    make(map[string][][]byte, len(snap.rows)),
	}
	for name, rows := range snap.rows {
		// clipped, so appends never write into a published array
		next.rows[name] = slices.Clip(rows)
	}
	return &memStoreTx{store: s, snap: next, writable: true}, nil
}

func (s *memStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.snap = nil
	return nil
}

type memStoreTx struct {
	store    *memStore // nil for read transactions
	snap     *memSnapshot
	writable bool
	done     bool
}

func (tx *memStoreTx) checkWritable() error {
	if tx.done {
		return fmt.Errorf("transaction closed")
	}
	if !tx.writable {
		return fmt.Errorf("transaction not writable")
	}
	return nil
}

func (tx *memStoreTx) Entry(name string) []byte {
	return tx.snap.entries[name]
}

func (tx *memStoreTx) PutEntry(name string, raw []byte) error {
	if err := tx.checkWritable(); err != nil {
		return err
	}
	tx.snap.entries[name] = slices.Clone(raw)
	return nil
}

func (tx *memStoreTx) DeleteResult(name string) error {
	if err := tx.checkWritable(); err != nil {
		return err
	}
	delete(tx.snap.entries, name)
	delete(tx.snap.rows, name)
	return nil
}

func (tx *memStoreTx) Entries() iter.Seq2[string, []byte] {
	return func(yield func(string, []byte) bool) {
		for _, name := range slices.Sorted(maps.Keys(tx.snap.entries)) {
			if !yield(name, tx.snap.entries[name]) {
				return
			}
		}
	}
}

func (tx *memStoreTx) Row(name string, seq uint64) []byte {
	rows := tx.snap.rows[name]
	if seq == 0 || seq > uint64(len(rows)) {
		return nil
	}
	return rows[seq-1]
}

// PutRow appends the next row of a result or replaces an existing one.
func (tx *memStoreTx) PutRow(name string, seq uint64, raw []byte) error {
	if err := tx.checkWritable(); err != nil {
		return err
	}
	rows := tx.snap.rows[name]
	switch {
	case seq == uint64(len(rows))+1:
		tx.snap.rows[name] = append(rows, slices.Clone(raw))
	case seq >= 1 && seq <= uint64(len(rows)):
		rows = slices.Clone(rows)
		rows[seq-1] = slices.Clone(raw)
		tx.snap.rows[name] = rows
	default:
		return fmt.Errorf("%s: row %d out of sequence, have %d rows", name, seq, len(rows))
	}
	return nil
}

func (tx *memStoreTx) RowsFrom(name string, from uint64) iter.Seq2[uint64, []byte] {
	return func(yield func(uint64, []byte) bool) {
		rows := tx.snap.rows[name]
		for i := max(from, 1); i <= uint64(len(rows)); i++ {
			if !yield(i, rows[i-1]) {
				return
			}
		}
	}
}

func (tx *memStoreTx) RowStats(name string) rowStats {
	rows := tx.snap.rows[name]
	st := rowStats{Rows: len(rows)}
	for _, raw := range rows {
		st.DataSize += int64(8 + len(raw))
	}
	st.DataAlloc = st.DataSize
	return st
}

func (tx *memStoreTx) Size() int64 { return 0 }

func (tx *memStoreTx) Commit() error {
	if err := tx.checkWritable(); err != nil {
		return err
	}
	tx.done = true
	defer tx.store.writer.Unlock()

	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	if tx.store.closed {
		return fmt.Errorf("spool closed")
	}
	tx.store.snap = tx.snap
	return nil
}

func (tx *memStoreTx) Rollback() error {
	if tx.done {
		return nil
	}
	tx.done = true
	if tx.writable {
		tx.store.writer.Unlock()
	}
	return nil
}
