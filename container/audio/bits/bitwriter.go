/*
NAME
  bitwriter.go

AUTHOR
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package bits provides the bit-level and integer-packing helpers
// shared by every muxer package: a capacity-bounded bitwriter and
// CRC-8/16/32 tables.
package bits

import (
	"bytes"
	"fmt"

	"github.com/icza/bitio"
)

// ErrOverflow is returned by every Writer method once the caller's
// capacity would be exceeded.
var ErrOverflow = fmt.Errorf("bits: buffer would overflow")

// Writer accumulates bits MSB-first into a capacity-bounded buffer. It
// wraps bitio.Writer, which already flushes each completed byte to its
// underlying io.Writer (here, a bytes.Buffer) as soon as 8 bits have
// accumulated; Writer's job on top of that is enforcing the maximum
// legal size for the container format in use.
type Writer struct {
	buf    *bytes.Buffer
	bw     *bitio.Writer
	max    int
	nbits  int // total bits written, used to compute Align's padding.
}

// NewWriter returns a Writer that fails any operation that would grow
// its backing buffer past max bytes. max <= 0 means unbounded.
func NewWriter(max int) *Writer {
	buf := new(bytes.Buffer)
	return &Writer{buf: buf, bw: bitio.NewWriter(buf), max: max}
}

func (w *Writer) checkOverflow() error {
	if w.max > 0 && w.buf.Len() > w.max {
		return ErrOverflow
	}
	return nil
}

// Add appends the n lowest bits of value, MSB-first, flushing full
// bytes to the backing buffer. n must be in [0, 64].
func (w *Writer) Add(n int, value uint64) error {
	if n == 0 {
		return nil
	}
	if n < 0 || n > 64 {
		return fmt.Errorf("bits: invalid bit count %d", n)
	}
	for n > 56 {
		if err := w.Add(32, value>>uint(n-32)); err != nil {
			return err
		}
		n -= 32
	}
	if err := w.bw.WriteBits(value&mask(n), uint8(n)); err != nil {
		return err
	}
	w.nbits += n
	return w.checkOverflow()
}

func mask(n int) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(n)) - 1
}

// Zeroes is a fast path equivalent to Add(n, 0).
func (w *Writer) Zeroes(n int) error {
	for n > 32 {
		if err := w.Add(32, 0); err != nil {
			return err
		}
		n -= 32
	}
	return w.Add(n, 0)
}

// Align pads the accumulator with 0 bits up to the next byte boundary.
func (w *Writer) Align() error {
	pad := (8 - w.nbits%8) % 8
	if pad == 0 {
		return nil
	}
	return w.Add(pad, 0)
}

// Flush commits any whole bytes and returns the buffer written so far.
// The caller may continue to Add after Flush; the returned slice
// aliases the Writer's internal buffer and should be copied if it
// must outlive the next Add call.
func (w *Writer) Flush() ([]byte, error) {
	if err := w.checkOverflow(); err != nil {
		return nil, err
	}
	return w.buf.Bytes(), nil
}

// Len returns the number of whole bytes committed so far.
func (w *Writer) Len() int { return w.buf.Len() }

// Bytes returns the committed bytes. Equivalent to the result of the
// last successful Flush.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }
