/*
NAME
  descriptor.go

AUTHOR
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package fmp4

import "fmt"

// MPEG-4 descriptor tags used inside mp4a's esds box (ISO/IEC
// 14496-1 §8.3).
const (
	tagESDescriptor               = 0x03
	tagDecoderConfigDescriptor    = 0x04
	tagDecoderSpecificInfo        = 0x05
	tagSLConfigDescriptor         = 0x06
	maxDescriptorLen              = 1<<28 - 1
	streamTypeAudio               = 5
)

// descriptorLen appends a descriptor's length using MPEG-4's
// 1-byte-per-7-bits scheme: up to three continuation bytes with the
// top bit set, then one terminating byte with the top bit clear.
// Lengths above maxDescriptorLen aren't representable in this scheme.
func descriptorLen(b *builder, n int) error {
	if n < 0 || n > maxDescriptorLen {
		return fmt.Errorf("fmp4: descriptor length %d exceeds %d", n, maxDescriptorLen)
	}
	shifts := []uint{21, 14, 7}
	started := false
	for _, s := range shifts {
		v := byte((n >> s) & 0x7f)
		if v != 0 || started {
			b.u8(v | 0x80)
			started = true
		}
	}
	b.u8(byte(n & 0x7f))
	return nil
}

// descriptor writes tag, its 1-to-4-byte length, then fn's output,
// matching the esds box's descriptor nesting.
func descriptor(b *builder, tag byte, fn func(*builder)) error {
	var body builder
	fn(&body)
	content := body.buf.Bytes()
	b.u8(tag)
	if err := descriptorLen(b, len(content)); err != nil {
		return err
	}
	b.raw(content)
	return nil
}
