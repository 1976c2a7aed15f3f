package sqlrow

import (
	"fmt"
	"log/slog"
)

type WarningKind int

const (
	// WarnNonIntKey: a row was subscripted by name or column object rather
	// than through its mapping.
	WarnNonIntKey WarningKind = iota + 1
	// WarnDeprecatedAccessor: a legacy accessor (Keys, ValuesList, Items,
	// HasKey) was called on a row.
	WarnDeprecatedAccessor
	// WarnKeyContainment: legacy containment matched a key rather than a
	// value.
	WarnKeyContainment
	// WarnColumnFallback: a column object was matched by its name only.
	WarnColumnFallback
)

func (k WarningKind) String() string {
	switch k {
	case WarnNonIntKey:
		return "non_int_key"
	case WarnDeprecatedAccessor:
		return "deprecated_accessor"
	case WarnKeyContainment:
		return "key_containment"
	case WarnColumnFallback:
		return "column_fallback"
	default:
		return fmt.Sprintf("warning(%d)", int(k))
	}
}

// CompatWarning is a non-fatal notice about a backward-compatible behavior
// that is scheduled for removal. It never changes the result of the call
// that raised it.
type CompatWarning struct {
	Kind WarningKind
	Key  Key
	Msg  string
}

func (w *CompatWarning) String() string {
	return w.Kind.String() + ": " + w.Msg
}

func (w *CompatWarning) attrs() []any {
	attrs := []any{slog.String("kind", w.Kind.String())}
	if !w.Key.IsZero() {
		attrs = append(attrs, slog.String("key", w.Key.String()))
	}
	return attrs
}

func nonIntKeyWarning(key Key) *CompatWarning {
	return &CompatWarning{
		Kind: WarnNonIntKey,
		Key:  key,
		Msg:  fmt.Sprintf("using non-integer key %v to subscript a row is deprecated; use row.Mapping().Get()", key),
	}
}

func deprecatedAccessorWarning(name, alternative string) *CompatWarning {
	return &CompatWarning{
		Kind: WarnDeprecatedAccessor,
		Msg:  fmt.Sprintf("Row.%s is deprecated; use %s", name, alternative),
	}
}
