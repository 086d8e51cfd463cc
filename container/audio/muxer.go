/*
NAME
  muxer.go

AUTHOR
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package audio

// Capability bits returned by Muxer.GetCaps.
const (
	// CapGlobalHeaders is set iff the muxer carries DSI out-of-band
	// (fMP4, Ogg-FLAC, Ogg-Opus, FLAC raw).
	CapGlobalHeaders uint32 = 1 << iota
	// CapTagsReset is set iff a tag change requires the encoder to
	// flush and reopen (chained Ogg).
	CapTagsReset
)

// Muxer is the upstream contract every container package in this
// module implements: an encoder submits one PacketSource, then a
// sequence of Packets and TagLists, synchronously producing Segments
// through a SegmentReceiver.
//
// Concurrent calls to the same Muxer are not supported; callers must
// serialise Open/SubmitPacket/SubmitTags/Flush/Reset/Close.
type Muxer interface {
	// GetCaps returns the capability bitset for this muxer.
	GetCaps() uint32

	// GetSegmentInfo returns the target segmenting policy for the
	// given source description.
	GetSegmentInfo(SourceInfo) SegmentParams

	// Open locks the stream description for this muxer instance.
	Open(PacketSource) error

	// SubmitPacket buffers or emits data derived from one packet.
	// Packets must be submitted in monotonically non-decreasing PTS
	// order; a muxer never reorders.
	SubmitPacket(Packet) error

	// SubmitTags associates a tag list with the next (or, for fMP4,
	// the in-progress) segment boundary.
	SubmitTags(*TagList) error

	// Flush finalises any in-progress segment.
	Flush() error

	// Reset returns the muxer to its initial state for the same
	// PacketSource passed to the last Open.
	Reset() error

	// Close releases all buffers. The muxer must not be used again.
	Close() error

	// ApplyOption dispatches a (key, value) configuration pair, per
	// the key table each muxer documents.
	ApplyOption(key, value string) error
}

// SegmentReceiver is the downstream contract: a muxer submits Segments
// and TagLists to a receiver, which owns all actual I/O.
type SegmentReceiver interface {
	GetSegmentInfo(SegmentSourceInfo) SegmentParams
	Open(SegmentSourceInfo) error
	SubmitSegment(Segment) error
	SubmitTags(*TagList) error
	Flush() error
}
