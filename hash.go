package sqlrow

import (
	"fmt"
	"reflect"
	"slices"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// hashValues hashes a value sequence. Values that are equal according to
// valuesEqual produce the same hash: numbers are written by value, so
// int8(1), uint64(1) and 1.0 hash alike.
func hashValues(values []any) uint64 {
	d := xxhash.New()
	enc := msgpack.GetEncoder()
	enc.Reset(d)
	enc.SetSortMapKeys(true)
	enc.UseCompactInts(true)
	enc.UseCompactFloats(true)

	writeHashSeq(enc, d, values)

	msgpack.PutEncoder(enc)
	return d.Sum64()
}

func writeHashSeq(enc *msgpack.Encoder, d *xxhash.Digest, values []any) {
	ensure(enc.EncodeArrayLen(len(values)))
	for _, v := range values {
		writeHashValue(enc, d, v)
	}
}

func writeHashValue(enc *msgpack.Encoder, d *xxhash.Digest, v any) {
	if n := asNumber(v); n.class != notNumber {
		ensure(encodeNumber(enc, n))
		return
	}
	switch v := v.(type) {
	case nil:
		ensure(enc.EncodeNil())
	case string:
		ensure(enc.EncodeString(v))
	case []byte:
		ensure(enc.EncodeBytes(v))
	case bool:
		ensure(enc.EncodeBool(v))
	case time.Time:
		ensure(enc.EncodeTime(v))
	default:
		if seq, ok := sequenceOf(v); ok {
			writeHashSeq(enc, d, seq)
			return
		}
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Map {
			writeHashMap(enc, rv)
			return
		}
		if err := enc.Encode(v); err != nil {
			// not encodable (funcs, channels); hash the printed form
			fmt.Fprintf(d, "%T:%#v", v, v)
		}
	}
}

// writeHashMap hashes each entry separately and writes the sorted entry
// hashes, so the result depends neither on iteration order nor on the Go
// types of keys and values.
func writeHashMap(enc *msgpack.Encoder, rv reflect.Value) {
	sums := make([]uint64, 0, rv.Len())
	it := rv.MapRange()
	for it.Next() {
		sums = append(sums, hashValues([]any{it.Key().Interface(), it.Value().Interface()}))
	}
	slices.Sort(sums)
	ensure(enc.EncodeMapLen(len(sums)))
	for _, sum := range sums {
		ensure(enc.EncodeUint(sum))
	}
}

// encodeNumber writes numbers so that equal values encode alike: whole
// floats are written as integers, and non-negative integers as unsigned.
func encodeNumber(enc *msgpack.Encoder, n number) error {
	if n.class == floatNum {
		if in, ok := integral(n.f); ok {
			n = in
		}
	}
	switch n.class {
	case signedNum:
		if n.i >= 0 {
			return enc.EncodeUint(uint64(n.i))
		}
		return enc.EncodeInt(n.i)
	case unsignedNum:
		return enc.EncodeUint(n.u)
	}
	return enc.EncodeFloat64(n.f)
}
