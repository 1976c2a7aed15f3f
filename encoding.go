package sqlrow

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// appendMsgpack encodes v onto buf. Integers and integral floats use the
// compact encoding, so the encoded form does not depend on the Go numeric
// type of the value.
func appendMsgpack(buf []byte, v any) ([]byte, error) {
	bb := bytesBuilder{buf}
	enc := msgpack.GetEncoder()
	enc.Reset(&bb)
	enc.SetSortMapKeys(true)
	enc.UseCompactInts(true)
	enc.UseCompactFloats(true)
	err := enc.Encode(v)
	msgpack.PutEncoder(enc)
	if err != nil {
		return buf, fmt.Errorf("failed to encode %T using MsgPack: %w", v, err)
	}
	return bb.Buf, nil
}

// decodeMsgpackValue decodes a single column value. Numbers come back as
// int64, uint64 or float64.
func decodeMsgpackValue(buf []byte) (any, error) {
	var r bytes.Reader
	r.Reset(buf)
	dec := msgpack.GetDecoder()
	dec.Reset(&r)
	v, err := dec.DecodeInterfaceLoose()
	msgpack.PutDecoder(dec)
	if err != nil {
		return nil, dataErrf(buf, 0, err, "failed to decode msgpack value")
	}
	if r.Len() != 0 {
		return nil, dataErrf(buf, len(buf)-r.Len(), nil, "trailing data after msgpack value")
	}
	return v, nil
}

func decodeMsgpackInto(buf []byte, ptr any) error {
	var r bytes.Reader
	r.Reset(buf)
	dec := msgpack.GetDecoder()
	dec.Reset(&r)
	err := dec.Decode(ptr)
	msgpack.PutDecoder(dec)
	if err != nil {
		return dataErrf(buf, 0, err, "failed to decode msgpack into %T", ptr)
	}
	return nil
}
