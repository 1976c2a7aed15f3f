package sqlrow

import (
	"fmt"
	"strings"
)

type DumpFlags uint64

const (
	DumpHeaders = DumpFlags(1 << iota)
	DumpStats
	DumpRows

	DumpAll = DumpFlags(0xFFFFFFFFFFFFFFFF)
)

var (
	dumpSep1 = strings.Repeat("=", 80)
	dumpSep2 = strings.Repeat("-", 60)
)

func (f DumpFlags) Contains(v DumpFlags) bool {
	return (f & v) == v
}

// Dump renders the spool's results for debugging.
func (s *Spool) Dump(f DumpFlags) (string, error) {
	infos, err := s.Results()
	if err != nil {
		return "", err
	}
	var buf strings.Builder
	for _, info := range infos {
		if err := s.dumpResult(&buf, f, info); err != nil {
			return buf.String(), err
		}
	}
	return buf.String(), nil
}

func (s *Spool) dumpResult(w *strings.Builder, f DumpFlags, info ResultInfo) error {
	prefix := info.Name
	if f.Contains(DumpHeaders) {
		fmt.Fprintln(w, dumpSep1)
		fmt.Fprintf(w, "%s (%d rows) %q\n", prefix, info.Rows, info.Columns)
	}
	if f.Contains(DumpStats) {
		st, err := s.Stats(info.Name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s.stats: rows = %d, data_size = %d, data_alloc = %d\n", prefix, st.Rows, st.DataSize, st.DataAlloc)
	}
	if f.Contains(DumpRows) {
		if f.Contains(DumpStats) {
			fmt.Fprintln(w, dumpSep2)
		}
		return s.view(func(tx storeTx) error {
			rec, err := s.mustLoadResultRecord(tx, info.Name)
			if err != nil {
				return err
			}
			md, err := decodeMetadata(rec.Meta, s.mdOpts)
			if err != nil {
				return err
			}
			for seq, raw := range tx.RowsFrom(info.Name, 1) {
				row, err := decodeRow(raw, md, s.mdOpts)
				if err != nil {
					fmt.Fprintf(w, "%s.%d = ** ERROR: %v\n", prefix, seq, err)
					continue
				}
				fmt.Fprintf(w, "%s.%d = (%v) %s\n", prefix, seq, row.Mode(), loggableRow(row))
			}
			return nil
		})
	}
	return nil
}
