/*
NAME
  adts.go

AUTHOR
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package adts prepends 7-byte ADTS headers to raw AAC payloads.
package adts

import (
	"fmt"

	"github.com/ausocean/hlsmux/container/audio"
	"github.com/ausocean/hlsmux/container/audio/bits"
)

// HeaderSize is the fixed ADTS header length (protection_absent=1, no
// CRC).
const HeaderSize = 7

// MaxPayload is the largest AAC payload that fits the 13-bit frame
// length field alongside the 7-byte header (8191 - 7).
const MaxPayload = 8184

// sampleRates is the standard ADTS sampling-frequency-index table,
// descending from 96000 to 7350; indices 13 and 14 are reserved and
// 15 is the explicit-frequency escape, neither supported here.
var sampleRates = [13]uint32{
	96000, 88200, 64000, 48000, 44100, 32000,
	24000, 22050, 16000, 12000, 11025, 8000, 7350,
}

// Kind enumerates the ADTS packer's error conditions.
type Kind int

// Error kinds.
const (
	ErrInvalidSampleRate Kind = iota
	ErrInvalidChannelLayout
	ErrInvalidProfile
	ErrPacketTooLarge
)

// Error is returned by Packer.Pack.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func newErr(k Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

func sampleRateIndex(rate uint32) (int, bool) {
	for i, r := range sampleRates {
		if r == rate {
			return i, true
		}
	}
	return 0, false
}

// Packer prepends ADTS headers for one fixed (profile, sample rate,
// channel layout) combination, as given to NewPacker.
type Packer struct {
	freqIdx int
	chanCfg int
}

// NewPacker constructs a Packer for the given AAC profile, sample
// rate and channel layout. HE-AAC profiles collapse to LC: HE halves
// the sample rate (the SBR extension doubles it back on decode), HEv2
// downmixes stereo to the mono channel config.
func NewPacker(profile audio.Profile, sampleRate uint32, layout audio.ChannelLayout) (*Packer, error) {
	switch profile {
	case audio.ProfileAACLC:
	case audio.ProfileAACHE:
		sampleRate /= 2
	case audio.ProfileAACHEv2:
		sampleRate /= 2
		layout = audio.LayoutMono
	default:
		return nil, newErr(ErrInvalidProfile, "adts: unsupported AAC profile %d", profile)
	}

	idx, ok := sampleRateIndex(sampleRate)
	if !ok {
		return nil, newErr(ErrInvalidSampleRate, "adts: unsupported sample rate %d", sampleRate)
	}
	cfg, err := audio.ADTSChannelConfig(layout)
	if err != nil {
		return nil, newErr(ErrInvalidChannelLayout, "%v", err)
	}
	return &Packer{freqIdx: idx, chanCfg: cfg}, nil
}

// Pack prepends a 7-byte ADTS header to payload and returns the full
// ADTS frame. The returned slice aliases neither the Packer nor the
// input payload's backing array beyond what's appended.
func (p *Packer) Pack(payload []byte) ([]byte, error) {
	if len(payload) > MaxPayload {
		return nil, newErr(ErrPacketTooLarge, "adts: payload of %d bytes exceeds max %d", len(payload), MaxPayload)
	}
	frameLen := HeaderSize + len(payload)

	w := bits.NewWriter(HeaderSize)
	w.Add(12, 0xFFF)       // syncword
	w.Add(1, 0)            // MPEG version
	w.Add(2, 0)            // layer
	w.Add(1, 1)            // protection absent
	w.Add(2, 1)             // profile (AOT-1; AAC-LC = object type 2)
	w.Add(4, uint64(p.freqIdx))
	w.Add(1, 0) // private bit
	w.Add(3, uint64(p.chanCfg))
	w.Add(4, 0) // originality, home, copyright, copyright-start
	w.Add(13, uint64(frameLen))
	w.Add(11, 0x7FF) // buffer fullness, VBR
	w.Add(2, 0)      // number of frames - 1

	hdr, err := w.Flush()
	if err != nil {
		return nil, newErr(ErrPacketTooLarge, "adts: header assembly failed: %v", err)
	}

	out := make([]byte, 0, frameLen)
	out = append(out, hdr...)
	out = append(out, payload...)
	return out, nil
}
