package sqlrow

import (
	"bytes"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.etcd.io/bbolt"
)

var errStopIteration = errors.New("stop iteration")

// Spool persists named results so that their rows can be moved between
// processes. Each result stores its metadata once, followed by its rows in
// the order they were put.
type Spool struct {
	st     resultStore
	logger *slog.Logger
	mdOpts MetadataOpts
	now    func() time.Time
}

type SpoolOptions struct {
	Logger *slog.Logger

	// Metadata configures the metadata rebuilt for loaded rows.
	Metadata MetadataOpts

	IsTesting bool
	MmapSize  int
	Timeout   time.Duration
}

// ResultInfo describes a spooled result.
type ResultInfo struct {
	Name    string
	Columns []string
	Rows    uint64
	Created time.Time
	Updated time.Time
}

type resultRecord struct {
	Meta        []byte    `msgpack:"m"`
	Fingerprint uint64    `msgpack:"f"`
	Rows        uint64    `msgpack:"n"`
	Created     time.Time `msgpack:"c"`
	Updated     time.Time `msgpack:"u"`
}

// OpenSpool opens (creating if needed) a Bolt-backed spool file.
func OpenSpool(path string, opt SpoolOptions) (*Spool, error) {
	bopt := *bbolt.DefaultOptions
	bopt.Timeout = 10 * time.Second
	if opt.Timeout != 0 {
		bopt.Timeout = opt.Timeout
	}
	if opt.IsTesting {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
		bopt.InitialMmapSize = 1024 * 1024
	} else {
		bopt.FreelistType = bbolt.FreelistMapType
	}
	if opt.MmapSize != 0 {
		bopt.InitialMmapSize = opt.MmapSize
	}

	bdb, err := bbolt.Open(path, 0666, &bopt)
	if err != nil {
		return nil, fmt.Errorf("spool: %w", err)
	}
	return newSpool(&boltStore{bdb: bdb}, opt), nil
}

// NewMemSpool returns a spool that lives in memory only.
func NewMemSpool(opt SpoolOptions) *Spool {
	return newSpool(newMemStore(), opt)
}

func newSpool(st resultStore, opt SpoolOptions) *Spool {
	logger := opt.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mdOpts := opt.Metadata
	if mdOpts.Logger == nil {
		mdOpts.Logger = logger
	}
	return &Spool{st: st, logger: logger, mdOpts: mdOpts, now: time.Now}
}

func (s *Spool) Close() error {
	return s.st.Close()
}

func (s *Spool) update(f func(tx storeTx) error) error {
	tx, err := s.st.Begin(true)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := f(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Spool) view(f func(tx storeTx) error) error {
	tx, err := s.st.Begin(false)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	return f(tx)
}

// Put appends rows to the named result, creating it on first use. All rows
// of a result must have equivalent, portable metadata.
func (s *Spool) Put(name string, rows ...*Row) error {
	if name == "" {
		return fmt.Errorf("spool: empty result name")
	}
	if len(rows) == 0 {
		return nil
	}
	meta, err := encodeRowsMetadata(rows)
	if err != nil {
		return resultErrf(name, 0, err, "encoding metadata")
	}
	fp := xxhash.Sum64(meta)

	var total uint64
	err = s.update(func(tx storeTx) error {
		rec, found, err := loadResultRecord(tx, name)
		if err != nil {
			return err
		}
		now := s.now()
		if found {
			if rec.Fingerprint != fp || !bytes.Equal(rec.Meta, meta) {
				return resultErrf(name, 0, ErrMetadataMismatch, "")
			}
		} else {
			rec = resultRecord{Meta: meta, Fingerprint: fp, Created: now}
		}

		for _, row := range rows {
			rec.Rows++
			val, err := encodeRow(nil, row, nil)
			if err != nil {
				return resultErrf(name, rec.Rows, err, "encoding row")
			}
			if err := tx.PutRow(name, rec.Rows, val); err != nil {
				return resultErrf(name, rec.Rows, err, "writing row")
			}
		}
		rec.Updated = now
		total = rec.Rows
		return saveResultRecord(tx, name, &rec)
	})
	if err != nil {
		return err
	}
	s.logger.Debug("spooled rows", "result", name, "rows", len(rows), "total", total)
	return nil
}

// Load reads every row of the named result. The rows share one metadata
// reference. A zero mode keeps the mode each row was stored with.
func (s *Spool) Load(name string, mode Mode) ([]*Row, error) {
	var rows []*Row
	for row, err := range s.Rows(name, mode) {
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Rows iterates over the rows of the named result inside a single read
// transaction. Iteration stops after the first error.
func (s *Spool) Rows(name string, mode Mode) iter.Seq2[*Row, error] {
	return s.RowsFrom(name, 1, mode)
}

// RowsFrom is like Rows, but starts at the row with sequence number from.
func (s *Spool) RowsFrom(name string, from uint64, mode Mode) iter.Seq2[*Row, error] {
	return func(yield func(*Row, error) bool) {
		err := s.view(func(tx storeTx) error {
			rec, err := s.mustLoadResultRecord(tx, name)
			if err != nil {
				return err
			}
			md, err := decodeMetadata(rec.Meta, s.mdOpts)
			if err != nil {
				return resultErrf(name, 0, err, "decoding metadata")
			}
			for seq, raw := range tx.RowsFrom(name, from) {
				row, err := decodeRow(raw, md, s.mdOpts)
				if err != nil {
					return resultErrf(name, seq, err, "decoding row")
				}
				if mode.Valid() {
					row = row.AsMode(mode)
				}
				if !yield(row, nil) {
					return errStopIteration
				}
			}
			return nil
		})
		if err != nil && err != errStopIteration {
			yield(nil, err)
		}
	}
}

// Row returns the row with the given 1-based sequence number.
func (s *Spool) Row(name string, seq uint64, mode Mode) (*Row, error) {
	var row *Row
	err := s.view(func(tx storeTx) error {
		rec, err := s.mustLoadResultRecord(tx, name)
		if err != nil {
			return err
		}
		v := tx.Row(name, seq)
		if v == nil {
			return resultErrf(name, seq, ErrKeyNotFound, "no such row")
		}
		md, err := decodeMetadata(rec.Meta, s.mdOpts)
		if err != nil {
			return resultErrf(name, 0, err, "decoding metadata")
		}
		row, err = decodeRow(v, md, s.mdOpts)
		if err != nil {
			return resultErrf(name, seq, err, "decoding row")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if mode.Valid() {
		row = row.AsMode(mode)
	}
	return row, nil
}

func (s *Spool) Results() ([]ResultInfo, error) {
	var out []ResultInfo
	err := s.view(func(tx storeTx) error {
		for name, raw := range tx.Entries() {
			var rec resultRecord
			if err := decodeMsgpackInto(raw, &rec); err != nil {
				return resultErrf(name, 0, err, "decoding catalog entry")
			}
			info, err := rec.info(name)
			if err != nil {
				return err
			}
			out = append(out, info)
		}
		return nil
	})
	return out, err
}

func (s *Spool) Result(name string) (ResultInfo, error) {
	var info ResultInfo
	err := s.view(func(tx storeTx) error {
		rec, err := s.mustLoadResultRecord(tx, name)
		if err != nil {
			return err
		}
		info, err = rec.info(name)
		return err
	})
	return info, err
}

// Drop removes the named result and its rows.
func (s *Spool) Drop(name string) error {
	err := s.update(func(tx storeTx) error {
		if tx.Entry(name) == nil {
			return resultErrf(name, 0, ErrResultNotFound, "")
		}
		return tx.DeleteResult(name)
	})
	if err != nil {
		return err
	}
	s.logger.Debug("dropped result", "result", name)
	return nil
}

func (s *Spool) mustLoadResultRecord(tx storeTx, name string) (resultRecord, error) {
	rec, found, err := loadResultRecord(tx, name)
	if err != nil {
		return rec, err
	}
	if !found {
		return rec, resultErrf(name, 0, ErrResultNotFound, "")
	}
	return rec, nil
}

func loadResultRecord(tx storeTx, name string) (resultRecord, bool, error) {
	var rec resultRecord
	raw := tx.Entry(name)
	if raw == nil {
		return rec, false, nil
	}
	if err := decodeMsgpackInto(raw, &rec); err != nil {
		return rec, false, resultErrf(name, 0, err, "decoding catalog entry")
	}
	return rec, true, nil
}

func saveResultRecord(tx storeTx, name string, rec *resultRecord) error {
	raw, err := appendMsgpack(nil, rec)
	if err != nil {
		return resultErrf(name, 0, err, "encoding catalog entry")
	}
	return tx.PutEntry(name, raw)
}

func (rec *resultRecord) info(name string) (ResultInfo, error) {
	var st MetadataState
	if err := decodeMsgpackInto(rec.Meta, &st); err != nil {
		return ResultInfo{}, resultErrf(name, 0, err, "decoding metadata")
	}
	cols := make([]string, len(st.Descs))
	for i, d := range st.Descs {
		cols[i] = d.Label
	}
	return ResultInfo{
		Name:    name,
		Columns: cols,
		Rows:    rec.Rows,
		Created: rec.Created,
		Updated: rec.Updated,
	}, nil
}

// encodeRowsMetadata returns the shared metadata encoding of rows, failing
// unless every row's metadata encodes identically.
func encodeRowsMetadata(rows []*Row) ([]byte, error) {
	var meta []byte
	var last Metadata
	for _, row := range rows {
		if meta != nil && row.md == last {
			continue
		}
		pm, ok := row.md.(PortableMetadata)
		if !ok {
			return nil, fmt.Errorf("%w: %T", ErrNotPortable, row.md)
		}
		m, err := appendMsgpack(nil, pm.MetadataState())
		if err != nil {
			return nil, err
		}
		if meta != nil && !bytes.Equal(meta, m) {
			return nil, ErrMetadataMismatch
		}
		meta, last = m, row.md
	}
	return meta, nil
}
