/*
NAME
  types.go

AUTHOR
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package audio holds the data model and interfaces shared by every
// muxer in this module: the upstream packet/packet-source contract,
// the downstream segment contract, and the ordered tag list carried
// alongside media.
package audio

// CodecTag identifies the compressed format of a packet's payload.
type CodecTag int

// Recognised codec tags.
const (
	CodecUnknown CodecTag = iota
	CodecAAC
	CodecALAC
	CodecFLAC
	CodecOpus
	CodecMP3
	CodecAC3
	CodecEAC3
)

func (c CodecTag) String() string {
	switch c {
	case CodecAAC:
		return "aac"
	case CodecALAC:
		return "alac"
	case CodecFLAC:
		return "flac"
	case CodecOpus:
		return "opus"
	case CodecMP3:
		return "mp3"
	case CodecAC3:
		return "ac-3"
	case CodecEAC3:
		return "e-ac-3"
	default:
		return "unknown"
	}
}

// Profile refines a CodecTag, currently only meaningful for AAC.
type Profile int

// AAC profiles.
const (
	ProfileNone Profile = iota
	ProfileAACLC
	ProfileAACHE
	ProfileAACHEv2
	ProfileUSAC
)

// Channel position bitmask, one bit per CHANNEL_* position. Values
// follow the common MPEG/Vorbis ordering: front-left is bit 0,
// front-right bit 1, and so on, so that popcount(ChannelLayout) gives
// the channel count.
type ChannelLayout uint64

// Channel position bits.
const (
	ChannelFL ChannelLayout = 1 << iota
	ChannelFR
	ChannelFC
	ChannelLFE
	ChannelBL
	ChannelBR
	ChannelFLC
	ChannelFRC
	ChannelBC
	ChannelSL
	ChannelSR
)

// Common layouts.
const (
	LayoutMono    = ChannelFC
	LayoutStereo  = ChannelFL | ChannelFR
	Layout3_0     = ChannelFL | ChannelFR | ChannelFC
	Layout4_0     = ChannelFL | ChannelFR | ChannelFC | ChannelBC
	Layout5_0     = ChannelFL | ChannelFR | ChannelFC | ChannelBL | ChannelBR
	Layout5_1     = ChannelFL | ChannelFR | ChannelFC | ChannelLFE | ChannelBL | ChannelBR
	Layout7_1     = ChannelFL | ChannelFR | ChannelFC | ChannelLFE | ChannelBL | ChannelBR | ChannelFLC | ChannelFRC
)

// Channels returns the number of channels set in the layout.
func (c ChannelLayout) Channels() int {
	n := 0
	for v := uint64(c); v != 0; v &= v - 1 {
		n++
	}
	return n
}

// RollType distinguishes the two seek-roll semantics a codec may
// declare in its PacketSource.
type RollType int

// Roll types.
const (
	RollNone RollType = iota
	RollRoll          // "roll": pre-roll needed before the target frame is clean.
	RollProl          // "prol": post-roll, priming samples come after.
)

// PacketSource describes an elementary stream. It is sent once, before
// any Packet, and locks the stream description for the lifetime of a
// muxer instance (until Reset).
type PacketSource struct {
	Codec         CodecTag
	Profile       Profile
	ChannelLayout ChannelLayout
	SampleRate    uint32
	FrameLen      uint32 // Samples per packet when fixed, 0 otherwise.
	BitRate       uint32
	SyncFlag      bool // True iff every packet is independently decodable.
	Padding       uint32
	RollDistance  int16
	RollType      RollType
	DSI           []byte // Opaque decoder-specific init, codec-dependent.
}

// Packet is one compressed audio access unit submitted to a muxer.
type Packet struct {
	Data         []byte
	Duration     uint32 // In samples.
	SampleRate   uint32
	PTS          int64 // In samples.
	Sync         bool  // True if this is an independent decodable starting point.
	SampleGroup  uint32
}

// SegmentType distinguishes the two segment variants a muxer may emit.
type SegmentType int

// Segment types.
const (
	SegmentInit SegmentType = iota
	SegmentMedia
)

// Segment is a typed byte blob produced by a muxer.
type Segment struct {
	Type    SegmentType
	Data    []byte
	PTS     int64 // In the muxer's time base.
	Samples uint32
}

// SegmentParams carries the downstream-negotiated segmenting policy.
type SegmentParams struct {
	SegmentLengthMS    uint32
	SubSegmentLengthMS uint32 // 0 if the muxer doesn't support sub-segments.
	PacketCountHint    uint32
}

// SourceInfo is what an encoder exposes to a muxer's GetSegmentInfo.
type SourceInfo struct {
	Source PacketSource
}

// SegmentSourceInfo is what a muxer exposes to a segment receiver's
// GetSegmentInfo, and the metadata conveyed to Open downstream.
type SegmentSourceInfo struct {
	Extension string
	MIMEType  string
	TimeBase  uint32
	FrameLen  uint32
}
