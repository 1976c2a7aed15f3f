package sqlrow

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrKeyNotFound      = errors.New("key not found")
	ErrAmbiguousColumn  = errors.New("ambiguous column name")
	ErrIndexOutOfRange  = errors.New("row index out of range")
	ErrUnsupported      = errors.New("operation not supported by rows")
	ErrNotPortable      = errors.New("metadata is not portable")
	ErrMetadataMismatch = errors.New("metadata does not match the stored result")
	ErrResultNotFound   = errors.New("result not found")
)

type KeyNotFoundError struct {
	Key Key
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("could not locate column in row for key %v", e.Key)
}

func (e *KeyNotFoundError) Unwrap() error { return ErrKeyNotFound }

type AmbiguousColumnError struct {
	Key Key
}

func (e *AmbiguousColumnError) Error() string {
	return fmt.Sprintf("ambiguous column name %v in result set column descriptions", e.Key)
}

func (e *AmbiguousColumnError) Unwrap() error { return ErrAmbiguousColumn }

type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("row index %d out of range [0, %d)", e.Index, e.Len)
}

func (e *IndexError) Unwrap() error { return ErrIndexOutOfRange }

// KeyTypeError is returned when a key variant is not accepted by the
// operation, e.g. a Name key used to subscript a strict row.
type KeyTypeError struct {
	Key  Key
	Mode Mode
}

func (e *KeyTypeError) Error() string {
	return fmt.Sprintf("%v row indices must be integers or slices, not %v", e.Mode, e.Key)
}

type TypeMismatchError struct {
	Key   Key
	Value any
	Want  string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("value %v of type %T for key %v is not %s", e.Value, e.Value, e.Key, e.Want)
}

type CompareError struct {
	A, B any
}

func (e *CompareError) Error() string {
	return fmt.Sprintf("cannot order %T and %T", e.A, e.B)
}

// ShapeError reports construction input whose lengths do not line up.
type ShapeError struct {
	What string
	Got  int
	Want int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("row construction: got %d %s, wanted %d", e.Got, e.What, e.Want)
}

// StateError reports a serialized state that cannot produce a complete row.
type StateError struct {
	Msg string
	Err error
}

func stateErrf(err error, format string, args ...any) error {
	return &StateError{fmt.Sprintf(format, args...), err}
}

func (e *StateError) Unwrap() error {
	return e.Err
}

func (e *StateError) Error() string {
	if e.Err != nil {
		return "invalid row state: " + e.Msg + ": " + e.Err.Error()
	}
	return "invalid row state: " + e.Msg
}

type DataError struct {
	Data []byte
	Off  int
	Err  error
	Msg  string
}

func dataErrf(data []byte, off int, err error, format string, args ...any) error {
	return &DataError{data, off, err, fmt.Sprintf(format, args...)}
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func (e *DataError) Error() string {
	const prefixLen = 64
	const suffixLen = 32
	n := len(e.Data)
	if n <= prefixLen+suffixLen {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v: (%d) %x", e.Msg, e.Err, n, e.Data)
		} else {
			return fmt.Sprintf("%s: (%d) %x", e.Msg, n, e.Data)
		}
	} else {
		p, s := e.Data[:prefixLen], e.Data[n-suffixLen:]
		if e.Err != nil {
			return fmt.Sprintf("%s: %v: (%d) %x...%x", e.Msg, e.Err, n, p, s)
		} else {
			return fmt.Sprintf("%s: (%d) %x...%x", e.Msg, n, p, s)
		}
	}
}

// ResultError describes a failure reading or writing a spooled result.
type ResultError struct {
	Result string
	Seq    uint64
	Msg    string
	Err    error
}

func resultErrf(result string, seq uint64, err error, format string, args ...any) error {
	return &ResultError{result, seq, fmt.Sprintf(format, args...), err}
}

func (e *ResultError) Unwrap() error {
	return e.Err
}

func (e *ResultError) Error() string {
	var buf strings.Builder
	buf.WriteString(e.Result)
	if e.Seq != 0 {
		fmt.Fprintf(&buf, "#%d", e.Seq)
	}
	if e.Msg != "" {
		buf.WriteString(": ")
		buf.WriteString(e.Msg)
		if e.Err != nil {
			buf.WriteString(": ")
			buf.WriteString(e.Err.Error())
		}
	} else if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}
