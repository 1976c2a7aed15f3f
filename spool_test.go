package sqlrow

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func forEachSpool(t *testing.T, f func(t *testing.T, s *Spool)) {
	t.Run("bolt", func(t *testing.T) {
		f(t, setupSpool(t))
	})
	t.Run("mem", func(t *testing.T) {
		s := NewMemSpool(SpoolOptions{})
		t.Cleanup(func() { s.Close() })
		f(t, s)
	})
}

func TestSpool_PutLoad(t *testing.T) {
	forEachSpool(t, func(t *testing.T, s *Spool) {
		md, _ := setupMeta("id", "email")
		noErr(t, s.Put("users", mustRow(t, Strict, md, 1, "a@example.com"), mustRow(t, Legacy, md, 2, "b@example.com")))
		noErr(t, s.Put("users", mustRow(t, Strict, md, 3, nil)))

		rows := must(s.Load("users", 0))
		eq(t, len(rows), 3)
		eq(t, rows[0].Equal([]any{1, "a@example.com"}), true)
		eq(t, rows[1].Equal([]any{2, "b@example.com"}), true)
		eq(t, rows[2].Equal([]any{3, nil}), true)
		eq(t, rows[0].Mode(), Strict)
		eq(t, rows[1].Mode(), Legacy)
		eq(t, rows[0].Metadata(), rows[2].Metadata())
		eq(t, must(rows[1].Mapping().Get(Name("email"))), any("b@example.com"))

		for _, row := range must(s.Load("users", Legacy)) {
			eq(t, row.Mode(), Legacy)
		}

		row := must(s.Row("users", 2, Strict))
		eq(t, row.Mode(), Strict)
		eq(t, row.Equal(rows[1]), true)

		_, err := s.Row("users", 4, 0)
		if !errors.Is(err, ErrKeyNotFound) {
			t.Errorf("** Row(4) err = %v, wanted ErrKeyNotFound", err)
		}
	})
}

func TestSpool_RowsIteration(t *testing.T) {
	forEachSpool(t, func(t *testing.T, s *Spool) {
		md, _ := setupMeta("n")
		for i := 1; i <= 5; i++ {
			noErr(t, s.Put("nums", mustRow(t, Strict, md, i)))
		}

		var got []any
		for row, err := range s.Rows("nums", 0) {
			noErr(t, err)
			got = append(got, must(row.At(0)))
			if len(got) == 3 {
				break
			}
		}
		deepEqual(t, got, []any{int64(1), int64(2), int64(3)})

		got = nil
		for row, err := range s.RowsFrom("nums", 4, 0) {
			noErr(t, err)
			got = append(got, must(row.At(0)))
		}
		deepEqual(t, got, []any{int64(4), int64(5)})

		var n int
		for _, err := range s.Rows("missing", 0) {
			n++
			if !errors.Is(err, ErrResultNotFound) {
				t.Errorf("** err = %v, wanted ErrResultNotFound", err)
			}
		}
		eq(t, n, 1)
	})
}

func TestSpool_Catalog(t *testing.T) {
	forEachSpool(t, func(t *testing.T, s *Spool) {
		now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		s.now = func() time.Time { return now }

		noErr(t, s.Put("b", mustRow(t, Strict, Labels("x"), 1)))
		noErr(t, s.Put("a", mustRow(t, Strict, Labels("p", "q"), 1, 2), mustRow(t, Strict, Labels("p", "q"), 3, 4)))
		now = now.Add(time.Hour)
		noErr(t, s.Put("a", mustRow(t, Strict, Labels("p", "q"), 5, 6)))

		infos := must(s.Results())
		eq(t, len(infos), 2)
		eq(t, infos[0].Name, "a")
		eq(t, infos[1].Name, "b")
		eq(t, infos[0].Rows, uint64(3))
		deepEqual(t, infos[0].Columns, []string{"p", "q"})
		eq(t, infos[0].Created.Equal(now.Add(-time.Hour)), true)
		eq(t, infos[0].Updated.Equal(now), true)

		info := must(s.Result("b"))
		eq(t, info.Rows, uint64(1))

		_, err := s.Result("c")
		if !errors.Is(err, ErrResultNotFound) {
			t.Errorf("** Result(c) err = %v, wanted ErrResultNotFound", err)
		}
	})
}

func TestSpool_Drop(t *testing.T) {
	forEachSpool(t, func(t *testing.T, s *Spool) {
		noErr(t, s.Put("r", mustRow(t, Strict, Labels("x"), 1)))
		noErr(t, s.Drop("r"))

		_, err := s.Load("r", 0)
		if !errors.Is(err, ErrResultNotFound) {
			t.Errorf("** Load after Drop err = %v, wanted ErrResultNotFound", err)
		}
		err = s.Drop("r")
		if !errors.Is(err, ErrResultNotFound) {
			t.Errorf("** second Drop err = %v, wanted ErrResultNotFound", err)
		}

		// a dropped name starts over with new metadata
		noErr(t, s.Put("r", mustRow(t, Strict, Labels("y", "z"), 1, 2)))
		eq(t, must(s.Result("r")).Rows, uint64(1))
	})
}

func TestSpool_RejectsMismatchedMetadata(t *testing.T) {
	forEachSpool(t, func(t *testing.T, s *Spool) {
		noErr(t, s.Put("r", mustRow(t, Strict, Labels("x"), 1)))

		err := s.Put("r", mustRow(t, Strict, Labels("y"), 2))
		if !errors.Is(err, ErrMetadataMismatch) {
			t.Errorf("** Put err = %v, wanted ErrMetadataMismatch", err)
		}
		err = s.Put("q", mustRow(t, Strict, Labels("x"), 1), mustRow(t, Strict, Labels("x", "y"), 1, 2))
		if !errors.Is(err, ErrMetadataMismatch) {
			t.Errorf("** Put err = %v, wanted ErrMetadataMismatch", err)
		}

		// equivalent metadata from another object is fine
		noErr(t, s.Put("r", mustRow(t, Legacy, Labels("x"), 3)))
		eq(t, must(s.Result("r")).Rows, uint64(2))
		_, err = s.Result("q")
		if !errors.Is(err, ErrResultNotFound) {
			t.Errorf("** failed Put left result q behind: %v", err)
		}
	})
}

func TestSpool_RejectsBadInput(t *testing.T) {
	forEachSpool(t, func(t *testing.T, s *Spool) {
		md, _ := setupMeta("x")
		if err := s.Put("", mustRow(t, Strict, md, 1)); err == nil {
			t.Errorf("** Put with empty name succeeded")
		}
		err := s.Put("r", mustRow(t, Strict, opaqueMeta{md}, 1))
		if !errors.Is(err, ErrNotPortable) {
			t.Errorf("** Put err = %v, wanted ErrNotPortable", err)
		}
		err = s.Put("r", mustRow(t, Strict, md, func() {}))
		isErr[*ResultError](t, err)
		noErr(t, s.Put("r"))
	})
}

func TestSpool_StatsAndDump(t *testing.T) {
	forEachSpool(t, func(t *testing.T, s *Spool) {
		noErr(t, s.Put("users", mustRow(t, Strict, Labels("id", "email"), 1, "a@example.com"), mustRow(t, Legacy, Labels("id", "email"), 2, nil)))

		st := must(s.Stats("users"))
		eq(t, st.Rows, 2)
		if st.DataSize <= 0 {
			t.Errorf("** DataSize = %d, wanted > 0", st.DataSize)
		}

		out := must(s.Dump(DumpAll))
		for _, want := range []string{
			`users (2 rows) ["id" "email"]`,
			"users.stats: rows = 2",
			`users.1 = (strict) (1, "a@example.com")`,
			"users.2 = (legacy) (2, nil)",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("** Dump output missing %q:\n%s", want, out)
			}
		}

		out = must(s.Dump(DumpRows))
		if strings.Contains(out, "stats") {
			t.Errorf("** Dump(DumpRows) includes stats:\n%s", out)
		}
	})
}

func TestSpool_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spool.db")
	s := must(OpenSpool(path, SpoolOptions{IsTesting: true}))
	col := &Column{Name: "id", Table: "users"}
	md := NewMetadata([]ColumnDesc{{"id", col}, {"Name", nil}}, MetadataOpts{CaseInsensitive: true})
	noErr(t, s.Put("users", mustRow(t, Legacy, md, 1, "alice")))
	noErr(t, s.Close())

	wl := &warnLog{}
	s = must(OpenSpool(path, SpoolOptions{IsTesting: true, Metadata: MetadataOpts{OnWarning: wl.add}}))
	defer s.Close()

	rows := must(s.Load("users", 0))
	eq(t, len(rows), 1)
	eq(t, rows[0].Mode(), Legacy)
	eq(t, must(rows[0].Mapping().Get(Name("name"))), any("alice"))
	eq(t, must(rows[0].Mapping().Get(Col(col))), any(int64(1)))
	deepEqual(t, wl.kinds(), []WarningKind{WarnColumnFallback})

	st := must(s.Stats("users"))
	if st.SpoolSize <= 0 {
		t.Errorf("** SpoolSize = %d, wanted > 0", st.SpoolSize)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal(err)
	}
}
