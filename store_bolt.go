package sqlrow

import (
	"encoding/binary"
	"iter"
	"unsafe"

	"go.etcd.io/bbolt"
)

// Bolt layout: the catalog bucket maps result names to catalog entries; the
// rows bucket holds one nested bucket per result, keyed by big-endian seq.
var (
	boltCatalogBucket = []byte("results")
	boltRowsBucket    = []byte("rows")
)

type boltStore struct {
	bdb *bbolt.DB
}

func (s *boltStore) Begin(writable bool) (storeTx, error) {
	btx, err := s.bdb.Begin(writable)
	if err != nil {
		return nil, err
	}
	return &boltStoreTx{btx: btx}, nil
}

func (s *boltStore) Close() error {
	return s.bdb.Close()
}

type boltStoreTx struct {
	btx *bbolt.Tx
}

func (tx *boltStoreTx) catalog() *bbolt.Bucket {
	return tx.btx.Bucket(boltCatalogBucket)
}

func (tx *boltStoreTx) rows(name string) *bbolt.Bucket {
	root := tx.btx.Bucket(boltRowsBucket)
	if root == nil {
		return nil
	}
	return root.Bucket(unsafeBytesFromString(name))
}

func (tx *boltStoreTx) Entry(name string) []byte {
	cat := tx.catalog()
	if cat == nil {
		return nil
	}
	return cat.Get(unsafeBytesFromString(name))
}

func (tx *boltStoreTx) PutEntry(name string, raw []byte) error {
	cat, err := tx.btx.CreateBucketIfNotExists(boltCatalogBucket)
	if err != nil {
		return err
	}
	return cat.Put([]byte(name), raw)
}

func (tx *boltStoreTx) DeleteResult(name string) error {
	if cat := tx.catalog(); cat != nil {
		if err := cat.Delete(unsafeBytesFromString(name)); err != nil {
			return err
		}
	}
	root := tx.btx.Bucket(boltRowsBucket)
	if root == nil {
		return nil
	}
	err := root.DeleteBucket(unsafeBytesFromString(name))
	if err == bbolt.ErrBucketNotFound {
		return nil
	}
	return err
}

func (tx *boltStoreTx) Entries() iter.Seq2[string, []byte] {
	return func(yield func(string, []byte) bool) {
		cat := tx.catalog()
		if cat == nil {
			return
		}
		c := cat.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if !yield(string(k), v) {
				return
			}
		}
	}
}

func (tx *boltStoreTx) Row(name string, seq uint64) []byte {
	rb := tx.rows(name)
	if rb == nil {
		return nil
	}
	return rb.Get(seqKey(seq))
}

func (tx *boltStoreTx) PutRow(name string, seq uint64, raw []byte) error {
	root, err := tx.btx.CreateBucketIfNotExists(boltRowsBucket)
	if err != nil {
		return err
	}
	// bbolt keeps bucket names, so they must not alias the caller's string
	rb, err := root.CreateBucketIfNotExists([]byte(name))
	if err != nil {
		return err
	}
	return rb.Put(seqKey(seq), raw)
}

func (tx *boltStoreTx) RowsFrom(name string, from uint64) iter.Seq2[uint64, []byte] {
	return func(yield func(uint64, []byte) bool) {
		rb := tx.rows(name)
		if rb == nil {
			return
		}
		c := rb.Cursor()
		for k, v := c.Seek(seqKey(from)); k != nil; k, v = c.Next() {
			if !yield(binary.BigEndian.Uint64(k), v) {
				return
			}
		}
	}
}

func (tx *boltStoreTx) RowStats(name string) rowStats {
	rb := tx.rows(name)
	if rb == nil {
		return rowStats{}
	}
	s := rb.Stats()
	// small results live inline in the parent page
	return rowStats{
		Rows:      s.KeyN,
		DataSize:  int64(s.LeafInuse + s.InlineBucketInuse),
		DataAlloc: int64(s.LeafAlloc + s.BranchAlloc),
	}
}

func (tx *boltStoreTx) Size() int64 { return tx.btx.Size() }

func (tx *boltStoreTx) Commit() error { return tx.btx.Commit() }

func (tx *boltStoreTx) Rollback() error {
	err := tx.btx.Rollback()
	if err == bbolt.ErrTxClosed {
		return nil
	}
	return err
}

func unsafeBytesFromString(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
