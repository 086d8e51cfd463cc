/*
NAME
  box.go

AUTHOR
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package fmp4 builds fragmented MP4: an init segment (ftyp/moov) and a
// sequence of media segments (styp/emsg/moof/mdat), grounded on
// ISO/IEC 14496-12 and the DASH/HLS conventions layered on top of it.
package fmp4

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/ausocean/hlsmux/container/audio/bits"
)

// entry records where a box's 4-byte size field was written, and the
// box's 4-byte type, so that end can back-patch the size once the
// box's content is known.
type entry struct {
	offset int
	typ    string
}

// builder accumulates a nested sequence of ISO-BMFF boxes into a
// single buffer. begin/end must balance; mismatched types panic since
// that can only be a programming error in this package.
type builder struct {
	buf   bytes.Buffer
	stack []entry
}

// begin reserves 4 bytes for the box size, writes the 4-byte type, and
// pushes the box onto the stack.
func (b *builder) begin(typ string) {
	if len(typ) != 4 {
		panic("fmp4: box type must be 4 bytes: " + typ)
	}
	b.stack = append(b.stack, entry{offset: b.buf.Len(), typ: typ})
	b.buf.Write([]byte{0, 0, 0, 0})
	b.buf.WriteString(typ)
}

// end pops the top box and back-patches its size field with the
// number of bytes written since begin.
func (b *builder) end(typ string) {
	n := len(b.stack)
	if n == 0 {
		panic("fmp4: end called with an empty box stack")
	}
	e := b.stack[n-1]
	b.stack = b.stack[:n-1]
	if e.typ != typ {
		panic(fmt.Sprintf("fmp4: box stack mismatch: began %q, ended %q", e.typ, typ))
	}
	size := uint32(b.buf.Len() - e.offset)
	out := b.buf.Bytes()
	binary.BigEndian.PutUint32(out[e.offset:e.offset+4], size)
}

// u8 writes one byte.
func (b *builder) u8(v uint8) { b.buf.WriteByte(v) }

// u16 writes a big-endian 16-bit word.
func (b *builder) u16(v uint16) {
	var tmp [2]byte
	b.buf.Write(bits.PutUint16BE(tmp[:0], v))
}

// u24 writes a big-endian 24-bit word.
func (b *builder) u24(v uint32) {
	var tmp [3]byte
	b.buf.Write(bits.PutUint24BE(tmp[:0], v))
}

// u32 writes a big-endian 32-bit word.
func (b *builder) u32(v uint32) {
	var tmp [4]byte
	b.buf.Write(bits.PutUint32BE(tmp[:0], v))
}

// u64 writes a big-endian 64-bit word.
func (b *builder) u64(v uint64) {
	var tmp [8]byte
	b.buf.Write(bits.PutUint64BE(tmp[:0], v))
}

// raw writes data verbatim, e.g. a codec's opaque decoder-specific
// info or a fixed box body.
func (b *builder) raw(data []byte) { b.buf.Write(data) }

// cstring writes a NUL-terminated string, as used by hdlr's name
// field and emsg's scheme/value.
func (b *builder) cstring(s string) {
	b.buf.WriteString(s)
	b.buf.WriteByte(0)
}

// fullBoxHeader writes the version/flags word shared by every
// "full box" (anything with FullBox semantics in ISO/IEC 14496-12).
func (b *builder) fullBoxHeader(version uint8, flags uint32) {
	b.u8(version)
	b.u24(flags)
}

// box wraps typ's content, produced by fn, in a size-prefixed box.
func (b *builder) box(typ string, fn func()) {
	b.begin(typ)
	fn()
	b.end(typ)
}

// bytes returns the accumulated buffer; the stack must be empty.
func (b *builder) bytes() []byte {
	if len(b.stack) != 0 {
		panic("fmp4: bytes called with unbalanced box stack")
	}
	return b.buf.Bytes()
}

// patchOffset returns the buffer offset the next write will land at,
// used to compute trun's data_offset after mdat begins.
func (b *builder) patchOffset() int { return b.buf.Len() }

// patchUint32At overwrites the 4 bytes at offset with v, used to
// back-patch trun.data_offset once mdat's body start is known.
func (b *builder) patchUint32At(offset int, v uint32) {
	out := b.buf.Bytes()
	binary.BigEndian.PutUint32(out[offset:offset+4], v)
}
