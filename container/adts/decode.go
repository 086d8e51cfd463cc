/*
NAME
  decode.go

AUTHOR
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package adts

import (
	"encoding/binary"
	"fmt"
)

// Header is the parsed form of a 7-byte ADTS header, used only to
// verify the Packer's own output in tests (the muxers in this module
// never decode ADTS).
type Header struct {
	MPEGVersion  uint8
	Profile      uint8
	SampleRateIdx uint8
	ChannelConfig uint8
	FrameLength  uint16
}

// ParseHeader parses the 7-byte ADTS header at the start of frame.
// Adapted from the donor's decode-side ADTS lexer, reversed here to
// check a just-packed frame rather than a received bitstream.
func ParseHeader(frame []byte) (Header, error) {
	if len(frame) < HeaderSize {
		return Header{}, fmt.Errorf("adts: frame too short for header: %d bytes", len(frame))
	}
	fixed := binary.BigEndian.Uint32(frame[0:4])
	sync := uint16((fixed & 0xFFF00000) >> 20)
	if sync != 0xFFF {
		return Header{}, fmt.Errorf("adts: bad syncword %#x", sync)
	}
	var h Header
	h.MPEGVersion = uint8((fixed & 0x00080000) >> 19)
	h.Profile = uint8((fixed & 0x0000C000) >> 14)
	h.SampleRateIdx = uint8((fixed & 0x00003C00) >> 10)

	chanCfg := (frame[2] & 0x01) << 2
	chanCfg |= (frame[3] & 0xC0) >> 6
	h.ChannelConfig = chanCfg

	frameLen := uint16(frame[3]&0x03) << 11
	frameLen |= uint16(frame[4]) << 3
	frameLen |= uint16(frame[5]&0xE0) >> 5
	h.FrameLength = frameLen

	return h, nil
}

// SampleRate returns the sample rate named by idx, or 0 if idx doesn't
// name one of the 13 supported rates.
func SampleRate(idx uint8) uint32 {
	if int(idx) >= len(sampleRates) {
		return 0
	}
	return sampleRates[idx]
}
