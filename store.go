package sqlrow

import "iter"

// resultStore is the backend of a Spool: a catalog of named results, and for
// each result a sequence of encoded rows numbered from 1.
type resultStore interface {
	Begin(writable bool) (storeTx, error)
	Close() error
}

// storeTx is a transaction over a resultStore. Byte slices it returns are
// valid until the transaction ends.
type storeTx interface {
	// Entry returns the catalog entry of a result, or nil.
	Entry(name string) []byte
	PutEntry(name string, raw []byte) error
	// DeleteResult removes the catalog entry and all rows of a result.
	DeleteResult(name string) error
	// Entries yields catalog entries in name order.
	Entries() iter.Seq2[string, []byte]

	Row(name string, seq uint64) []byte
	PutRow(name string, seq uint64, raw []byte) error
	// RowsFrom yields the rows of a result with sequence numbers >= from.
	RowsFrom(name string, from uint64) iter.Seq2[uint64, []byte]
	RowStats(name string) rowStats

	// Size is the size of the backing file, 0 if there is none.
	Size() int64

	Commit() error
	Rollback() error
}

type rowStats struct {
	Rows      int
	DataSize  int64
	DataAlloc int64
}

func seqKey(seq uint64) []byte {
	return appendFixedUint64(nil, seq)
}
