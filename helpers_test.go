package sqlrow

import (
	"errors"
	"os"
	"reflect"
	"sync"
	"testing"
)

func eq[T comparable](t testing.TB, a, e T) {
	if a != e {
		t.Helper()
		t.Fatalf("** got %v, wanted %v", a, e)
	}
}

func deepEqual[T any](t testing.TB, a, e T) {
	if !reflect.DeepEqual(a, e) {
		t.Helper()
		t.Errorf("** got %v, wanted %v", a, e)
	}
}

func isErr[E error](t testing.TB, err error) E {
	t.Helper()
	var target E
	if !errors.As(err, &target) {
		t.Fatalf("** got error %v (%T), wanted %T", err, err, target)
	}
	return target
}

func noErr(t testing.TB, err error) {
	if err != nil {
		t.Helper()
		t.Fatalf("** unexpected error: %v", err)
	}
}

type warnLog struct {
	mu sync.Mutex
	ws []*CompatWarning
}

func (l *warnLog) add(w *CompatWarning) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ws = append(l.ws, w)
}

func (l *warnLog) kinds() []WarningKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []WarningKind
	for _, w := range l.ws {
		out = append(out, w.Kind)
	}
	return out
}

func (l *warnLog) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ws = nil
}

// setupMeta builds metadata of plainly labeled columns and records its
// warnings.
func setupMeta(labels ...string) (*ResultMetadata, *warnLog) {
	wl := &warnLog{}
	cols := make([]ColumnDesc, len(labels))
	for i, l := range labels {
		cols[i].Label = l
	}
	return NewMetadata(cols, MetadataOpts{OnWarning: wl.add}), wl
}

func mustRow(t testing.TB, mode Mode, md Metadata, values ...any) *Row {
	t.Helper()
	row, err := Construct(mode, md, nil, nil, values)
	if err != nil {
		t.Fatalf("** Construct: %v", err)
	}
	return row
}

func setupSpool(t testing.TB) *Spool {
	t.Helper()

	f := must(os.CreateTemp("", "spool_test_*.db"))
	t.Logf("spool: %s", f.Name())
	f.Close()

	s := must(OpenSpool(f.Name(), SpoolOptions{IsTesting: true}))
	t.Cleanup(func() {
		s.Close()
		os.Remove(f.Name())
	})
	return s
}
