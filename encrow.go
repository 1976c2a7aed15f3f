package sqlrow

import (
	"fmt"
)

// Encoded row:
//
//	flags (uvarint), then a tuple [metadata | value1 | ... | valueN]
//
// The metadata element is the msgpack-encoded MetadataState, or empty when
// the metadata is stored elsewhere (see Spool). Each value is msgpack. Rows
// written by any supported format version must stay readable.

type rowFlags uint64

const (
	rfVerBit0 = rowFlags(1 << iota)
	rfVerBit1
	rfVerBit2
	rfVerBit3
	rfLegacy
	rfHasMetadata

	rfVerMask       = (rfVerBit0 | rfVerBit1 | rfVerBit2 | rfVerBit3)
	rfVer1          = rfVerBit0
	rfSupportedMask = (rfVerMask | rfLegacy | rfHasMetadata)
	rfDefault       = rfVer1
)

func (rf rowFlags) ver() rowFlags {
	return rf & rfVerMask
}

func (rf rowFlags) mode() Mode {
	if rf&rfLegacy != 0 {
		return Legacy
	}
	return Strict
}

// MarshalBinary encodes the row together with its metadata. The metadata
// must implement PortableMetadata.
func (r *Row) MarshalBinary() ([]byte, error) {
	pm, ok := r.md.(PortableMetadata)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNotPortable, r.md)
	}
	meta, err := appendMsgpack(nil, pm.MetadataState())
	if err != nil {
		return nil, err
	}
	return encodeRow(nil, r, meta)
}

// UnmarshalRow decodes a row written by MarshalBinary. The row gets fresh
// metadata configured by opt; Col keys of the original columns keep working
// through the by-name fallback.
func UnmarshalRow(data []byte, opt MetadataOpts) (*Row, error) {
	return decodeRow(data, nil, opt)
}

func encodeRow(buf []byte, r *Row, meta []byte) ([]byte, error) {
	flags := rfDefault
	if r.mode == Legacy {
		flags |= rfLegacy
	}
	if meta != nil {
		flags |= rfHasMetadata
	}
	buf = appendUvarint(buf, uint64(flags))

	var tb tupleEncoder
	tb.begin(buf)
	buf = appendRaw(buf, meta)
	for i, v := range r.data {
		tb.begin(buf)
		var err error
		buf, err = appendMsgpack(buf, v)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}
	}
	return tb.finalize(buf), nil
}

// decodeRow decodes an encoded row. md is used when the encoding carries no
// metadata of its own.
func decodeRow(data []byte, md Metadata, opt MetadataOpts) (*Row, error) {
	d := makeByteDecoder(data)
	v, err := d.Uvarint()
	if err != nil {
		return nil, err
	}
	flags := rowFlags(v)
	if (flags &^ rfSupportedMask) != 0 {
		return nil, dataErrf(data, 0, nil, "invalid row: unsupported flags %x", v)
	}
	if flags.ver() != rfVer1 {
		return nil, dataErrf(data, 0, nil, "invalid row: unsupported format version %d", flags.ver())
	}

	tup, err := decodeTuple(d.Buf)
	if err != nil {
		return nil, dataErrf(data, d.Off(), err, "invalid row")
	}
	if len(tup) == 0 {
		return nil, dataErrf(data, d.Off(), nil, "invalid row: missing metadata element")
	}

	if flags&rfHasMetadata != 0 {
		md, err = decodeMetadata(tup[0], opt)
		if err != nil {
			return nil, err
		}
	} else if len(tup[0]) != 0 {
		return nil, dataErrf(data, d.Off(), nil, "invalid row: metadata element present without metadata flag")
	}
	if md == nil {
		return nil, stateErrf(nil, "row was encoded without metadata and none was supplied")
	}

	values := make([]any, len(tup)-1)
	for i, raw := range tup[1:] {
		values[i], err = decodeMsgpackValue(raw)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}
	}
	return Reconstruct(flags.mode(), State{Metadata: md, Values: values})
}

func decodeMetadata(raw []byte, opt MetadataOpts) (*ResultMetadata, error) {
	var st MetadataState
	if err := decodeMsgpackInto(raw, &st); err != nil {
		return nil, err
	}
	return MetadataFromState(st, opt)
}
