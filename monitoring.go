package sqlrow

type ResultStats struct {
	Rows int

	DataSize  int64
	DataAlloc int64

	// SpoolSize is the size of the whole spool file, 0 for in-memory spools.
	SpoolSize int64
}

func (s *Spool) Stats(name string) (ResultStats, error) {
	var result ResultStats
	err := s.view(func(tx storeTx) error {
		if _, err := s.mustLoadResultRecord(tx, name); err != nil {
			return err
		}
		rs := tx.RowStats(name)
		result.Rows = rs.Rows
		result.DataSize = rs.DataSize
		result.DataAlloc = rs.DataAlloc
		result.SpoolSize = tx.Size()
		return nil
	})
	return result, err
}

// loggableRow renders a row for logs and dumps.
func loggableRow(row *Row) string {
	if row == nil {
		return "<none>"
	}
	return row.String()
}
