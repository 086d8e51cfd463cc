/*
NAME
  page.go

AUTHOR
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package ogg builds Ogg pages and the Ogg-FLAC / Ogg-Opus media
// muxers that chain them into logical streams.
package ogg

import (
	"fmt"

	"github.com/ausocean/hlsmux/container/audio/bits"
)

// MaxBodySize is the largest body a single page can carry: 255 lacing
// segments of up to 255 bytes each.
const MaxBodySize = 255 * 255

const headerSize = 27

// Flag bits in the page header's type byte.
const (
	flagContinuation byte = 1 << 0
	flagBOS          byte = 1 << 1
	flagEOS          byte = 1 << 2
)

// MaxGranulePos is the reserved granule position used on a page that
// contains only a continuation of an earlier packet.
const MaxGranulePos uint64 = 0xFFFFFFFFFFFFFFFF

// Page builds one Ogg page's lacing table and body incrementally, and
// tracks the running state (serial number, page sequence, flags) a
// logical stream needs across pages.
type Page struct {
	Serial uint32

	seq          uint32
	bos          bool
	continuation bool
	lacing       []byte
	body         []byte
	granule      uint64
	lastEndedFull bool // did the previous finished page's lacing table end with a 255?
}

// NewPage starts a fresh logical stream at the given serial number.
// The first page built will carry the BOS flag.
func NewPage(serial uint32) *Page {
	return &Page{Serial: serial, bos: true, granule: 0}
}

// AddPacket appends packet to the current page, encoding its length as
// a sequence of 255-valued lacing bytes plus a final remainder byte.
// The page's recorded granule position is updated to granulepos, since
// it is the granule of the last packet that finishes on the page. It
// reports full once the lacing table has saturated (reached 255
// entries); the caller must call FinishPage before adding another
// packet.
//
// Packets must fit within a single page's 65025-byte body cap; this
// module's muxers only ever hand it one compressed audio access unit
// at a time, which never approaches that size, so mid-packet page
// splitting (a packet continued across page boundaries) is not
// implemented, matching the Ogg reference this package is grounded on.
func (p *Page) AddPacket(data []byte, granulepos uint64) (full bool, err error) {
	if len(data) > MaxBodySize {
		return false, fmt.Errorf("ogg: packet of %d bytes exceeds the single-page body cap of %d", len(data), MaxBodySize)
	}
	segs := len(data)/255 + 1
	if len(data)+len(p.body) > MaxBodySize || len(p.lacing)+segs > 255 {
		return true, fmt.Errorf("ogg: page is full, call FinishPage before adding another packet")
	}
	n := len(data)
	for n >= 255 {
		p.lacing = append(p.lacing, 255)
		n -= 255
	}
	p.lacing = append(p.lacing, byte(n))
	p.body = append(p.body, data...)
	p.granule = granulepos
	if len(p.lacing) >= 255 {
		return true, nil
	}
	return false, nil
}

// FinishPage composes the 27-byte header, computes the Ogg CRC-32 over
// header+body with the checksum field zeroed, and returns the
// complete page. It advances the page sequence number, sets the
// continuation flag on the *next* page iff this page's lacing table
// ends with a 255-valued byte (meaning the last packet straddles the
// page boundary), and clears the BOS/EOS flags and accumulators for
// the page that follows.
func (p *Page) FinishPage() ([]byte, error) {
	headerType := byte(0)
	if p.bos {
		headerType |= flagBOS
	}
	if p.continuation {
		headerType |= flagContinuation
	}

	out := make([]byte, 0, headerSize+len(p.lacing)+len(p.body))
	out = append(out, 'O', 'g', 'g', 'S')
	out = append(out, 0) // version
	out = append(out, headerType)
	out = bits.PutUint64LE(out, p.granule)
	out = bits.PutUint32LE(out, p.Serial)
	out = bits.PutUint32LE(out, p.seq)
	crcOffset := len(out)
	out = bits.PutUint32LE(out, 0) // CRC placeholder
	out = append(out, byte(len(p.lacing)))
	out = append(out, p.lacing...)
	out = append(out, p.body...)

	crc := bits.CRC32Ogg(out)
	crcBytes := bits.PutUint32LE(nil, crc)
	copy(out[crcOffset:crcOffset+4], crcBytes)

	p.lastEndedFull = len(p.lacing) > 0 && p.lacing[len(p.lacing)-1] == 255
	p.seq++
	p.bos = false
	p.continuation = p.lastEndedFull
	p.lacing = p.lacing[:0]
	p.body = p.body[:0]

	return out, nil
}

// EOS sets the end-of-stream flag and finishes the page.
func (p *Page) EOS() ([]byte, error) {
	headerType := byte(flagEOS)
	if p.bos {
		headerType |= flagBOS
	}
	if p.continuation {
		headerType |= flagContinuation
	}

	out := make([]byte, 0, headerSize+len(p.lacing)+len(p.body))
	out = append(out, 'O', 'g', 'g', 'S')
	out = append(out, 0)
	out = append(out, headerType)
	out = bits.PutUint64LE(out, p.granule)
	out = bits.PutUint32LE(out, p.Serial)
	out = bits.PutUint32LE(out, p.seq)
	crcOffset := len(out)
	out = bits.PutUint32LE(out, 0)
	out = append(out, byte(len(p.lacing)))
	out = append(out, p.lacing...)
	out = append(out, p.body...)

	crc := bits.CRC32Ogg(out)
	crcBytes := bits.PutUint32LE(nil, crc)
	copy(out[crcOffset:crcOffset+4], crcBytes)

	p.seq++
	p.bos = false
	p.lacing = p.lacing[:0]
	p.body = p.body[:0]

	return out, nil
}

// Empty reports whether the page currently has no buffered packet
// data.
func (p *Page) Empty() bool { return len(p.body) == 0 }

// SequenceNumber returns the page sequence number that will be used by
// the next call to FinishPage or EOS.
func (p *Page) SequenceNumber() uint32 { return p.seq }
