package sqlrow

import (
	"encoding/binary"
	"reflect"
	"testing"
)

func TestBytesBuilder_Basics(t *testing.T) {
	var bb bytesBuilder
	_, _ = bb.Write([]byte{1, 2})
	_ = bb.WriteByte(3)
	_, _ = bb.WriteString("hi")
	if !reflect.DeepEqual(bb.Buf, []byte{1, 2, 3, 'h', 'i'}) {
		t.Fatalf("bb.Buf = %x, wanted 010203 6869", bb.Buf)
	}
}

func TestByteUtil_AppendHelpers(t *testing.T) {
	src := []byte{0xAA, 0xBB, 0xCC}
	buf := appendRaw(nil, src)
	if !reflect.DeepEqual(buf, src) {
		t.Fatalf("appendRaw = %x, wanted %x", buf, src)
	}

	buf = appendFixedUint64(nil, 0x0102030405060708)
	var u64 [8]byte
	binary.BigEndian.PutUint64(u64[:], 0x0102030405060708)
	if !reflect.DeepEqual(buf, u64[:]) {
		t.Fatalf("appendFixedUint64 = %x, wanted %x", buf, u64[:])
	}

	buf = appendUvarint([]byte{0xFF}, 300)
	d := makeByteDecoder(buf[1:])
	v, err := d.Uvarint()
	noErr(t, err)
	eq(t, v, uint64(300))
	eq(t, d.Off(), 2)
	eq(t, len(d.Buf), 0)
}

func TestByteUtil_Grow(t *testing.T) {
	buf := make([]byte, 3, 3)
	off, buf := grow(buf, 40)
	eq(t, off, 3)
	eq(t, len(buf), 43)
	if cap(buf) < 43 {
		t.Fatalf("cap = %d, wanted >= 43", cap(buf))
	}
}

func TestByteDecoder_Errors(t *testing.T) {
	d := makeByteDecoder([]byte{0x80}) // continuation bit with no terminator
	_, err := d.Uvarint()
	isErr[*DataError](t, err)

	d = makeByteDecoder(nil)
	_, err = d.Uvarint()
	isErr[*DataError](t, err)
}
