/*
NAME
  opus.go

AUTHOR
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package ogg

import (
	"github.com/ausocean/hlsmux/container/audio/bits"
)

// opusHeadSignature and opusTagsSignature are the fixed 8-byte magic
// strings that open the two Ogg-Opus header packets (RFC 7845 §5.1,
// §5.2).
var (
	opusHeadSignature = []byte("OpusHead")
	opusTagsSignature = []byte("OpusTags")
)

const opusVersion = 1

// BuildOpusHead constructs the OpusHead packet body: 8-byte magic,
// version 1, channel count, 2-byte LE pre-skip, 4-byte LE input
// sample rate, 2-byte LE signed output gain, 1-byte channel mapping
// family. Channel mapping families other than 0 (which this module
// does not produce) would also carry a channel mapping table; omitted
// here since every packet source this module emits uses family 0.
func BuildOpusHead(channels uint8, preSkip uint16, sampleRate uint32, outputGain int16, mappingFamily uint8) []byte {
	out := make([]byte, 0, 19)
	out = append(out, opusHeadSignature...)
	out = append(out, opusVersion)
	out = append(out, channels)
	out = bits.PutUint16LE(out, preSkip)
	out = bits.PutUint32LE(out, sampleRate)
	out = bits.PutUint16LE(out, uint16(outputGain))
	out = append(out, mappingFamily)
	return out
}

// opusTOCDuration returns the frame duration in 48kHz samples encoded
// by an Opus packet's TOC byte, used only for the granule-position
// lookback in GranuleLookback. Table ported from RFC 6716 §3.1.
func opusTOCDuration(toc byte) uint64 {
	config := toc >> 3
	var frameMS float64
	switch {
	case config < 12: // SILK-only
		durations := []float64{10, 20, 40, 60}
		frameMS = durations[config%4]
	case config < 16: // hybrid
		if config < 14 {
			frameMS = 10
		} else {
			frameMS = 20
		}
	default: // CELT-only
		durations := []float64{2.5, 5, 10, 20}
		frameMS = durations[(config-16)%4]
	}

	code := toc & 0x03
	frameCount := 1
	switch code {
	case 1, 2:
		frameCount = 2
	case 3:
		// Frame-count byte holds the count in its low 6 bits; callers
		// needing exact counts for code-3 packets must inspect the
		// packet body themselves. This module's muxers always submit
		// one Opus packet per audio access unit, so code-3 packing
		// (multiple frames per Opus packet) does not occur on the
		// encode path this package drives.
		frameCount = 1
	}
	return uint64(frameMS * 48 * float64(frameCount))
}

// GranuleLookback implements the Ogg granule-position lookback design
// note: when the first page of an Opus stream carries a non-maximum
// granule position, walk its packets backward, summing their Opus
// durations from the TOC byte, and return the granule offset such
// that subsequent PTS reporting matches the real stream position
// (page granule position minus the summed durations).
func GranuleLookback(firstPageGranule uint64, packets [][]byte) uint64 {
	var sum uint64
	for i := len(packets) - 1; i >= 0; i-- {
		if len(packets[i]) == 0 {
			continue
		}
		sum += opusTOCDuration(packets[i][0])
	}
	if sum > firstPageGranule {
		return 0
	}
	return firstPageGranule - sum
}
