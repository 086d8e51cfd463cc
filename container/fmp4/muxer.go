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

// Package fmp4 implements a fragmented-MP4 (ISO/IEC 14496-12) muxer: a
// single ftyp/moov init segment followed by a sequence of
// styp/moof/mdat media segments, one audio track per instance. Timed
// metadata rides in DASH event-message (emsg) boxes carrying ID3 tag
// data, and track/album loudness rides in the init segment's
// udta/ludt box.
package fmp4

import (
	"fmt"

	"github.com/ausocean/hlsmux/container/audio"
	"github.com/ausocean/hlsmux/container/id3"
	"github.com/ausocean/utils/logging"
)

const pkg = "container/fmp4: "

const fragmentTrackID = 1

// Muxer implements audio.Muxer for fragmented MP4.
type Muxer struct {
	dst audio.SegmentReceiver
	log logging.Logger

	source    audio.PacketSource
	opened    bool
	segParams audio.SegmentParams

	track         TrackInfo
	frag          *Fragmenter
	fragSeq       uint32
	targetSamples uint64
	accumSamples  uint64
	segPTS        int64

	withID3     bool
	pendingTags *audio.TagList
	emsgSeq     uint32
	imageMode   audio.ImageMode
}

// NewMuxer returns an fMP4 Muxer submitting segments to dst. When
// withID3 is true, every media segment carries a leading emsg event
// built from the most recently submitted tag list.
func NewMuxer(dst audio.SegmentReceiver, log logging.Logger, withID3 bool) *Muxer {
	return &Muxer{dst: dst, log: log, withID3: withID3}
}

// SetImageMode sets the policy applied to an APICKey tag when building
// an emsg event's ID3 payload; the default, audio.ModeUnset, drops
// picture tags.
func (m *Muxer) SetImageMode(mode audio.ImageMode) { m.imageMode = mode }

// GetCaps reports CapGlobalHeaders: DSI travels once, in the init
// segment's sample entry, never repeated in media segments.
func (m *Muxer) GetCaps() uint32 { return audio.CapGlobalHeaders }

// GetSegmentInfo returns the default segmenting policy.
func (m *Muxer) GetSegmentInfo(audio.SourceInfo) audio.SegmentParams {
	return audio.SegmentParams{SegmentLengthMS: 6000}
}

// ApplyOption dispatches "encoder-delay" = a non-negative sample
// count mapped into the init segment's edit list; no other keys are
// recognised.
func (m *Muxer) ApplyOption(key, value string) error {
	if key != "encoder-delay" {
		return fmt.Errorf("fmp4: unsupported option %q", key)
	}
	var n uint32
	if _, err := fmt.Sscanf(value, "%d", &n); err != nil {
		return fmt.Errorf("fmp4: invalid encoder-delay %q: %w", value, err)
	}
	m.track.EncoderDelay = n
	return nil
}

// AddLoudnessRecord queues a track- or album-scoped loudness record to
// be written into the init segment's udta/ludt box. It must be called
// before Open.
func (m *Muxer) AddLoudnessRecord(r LoudnessRecord) error {
	if m.opened {
		return fmt.Errorf("fmp4: loudness records must be added before Open")
	}
	m.track.Loudness = append(m.track.Loudness, r)
	return nil
}

// Open locks in the packet source, builds the init segment, opens the
// downstream receiver and submits the init segment to it.
func (m *Muxer) Open(src audio.PacketSource) error {
	if m.opened {
		return fmt.Errorf("fmp4: muxer already open")
	}
	m.source = src
	m.track.TrackID = fragmentTrackID
	m.track.Codec = src.Codec
	m.track.SampleRate = src.SampleRate
	m.track.ChannelLayout = src.ChannelLayout
	m.track.DSI = src.DSI
	m.track.RollDistance = src.RollDistance
	m.track.RollType = src.RollType

	init, err := BuildInitSegment(m.track)
	if err != nil {
		return fmt.Errorf("fmp4: building init segment: %w", err)
	}

	m.segParams = m.GetSegmentInfo(audio.SourceInfo{Source: src})
	m.targetSamples = uint64(m.segParams.SegmentLengthMS) * uint64(src.SampleRate) / 1000

	groupingType := ""
	if src.RollDistance != 0 {
		groupingType = rollGroupingType(src.RollType)
	}
	// Mirrors writeTrex's own defaults exactly, so tfhd only overrides
	// a field when a fragment's uniform value actually disagrees with
	// what trex already declared.
	m.frag = NewFragmenter(fragmentTrackID, TrackDefaults{
		Duration: 1024,
		Size:     0,
		Flags:    0,
	}, groupingType)
	m.fragSeq = 1

	info := audio.SegmentSourceInfo{Extension: ".m4s", MIMEType: "audio/mp4", TimeBase: src.SampleRate, FrameLen: src.FrameLen}
	if err := m.dst.Open(info); err != nil {
		return fmt.Errorf("fmp4: opening segment receiver: %w", err)
	}
	if err := m.dst.SubmitSegment(audio.Segment{Type: audio.SegmentInit, Data: init}); err != nil {
		return fmt.Errorf("fmp4: submitting init segment: %w", err)
	}

	m.opened = true
	m.log.Log(logging.Debug, pkg+"opened", "codec", src.Codec.String())
	return nil
}

// SubmitPacket queues one access unit for the in-progress fragment,
// closing and submitting it once the accumulated sample count reaches
// the target.
func (m *Muxer) SubmitPacket(p audio.Packet) error {
	if !m.opened {
		return fmt.Errorf("fmp4: muxer not open")
	}
	if m.accumSamples == 0 {
		m.segPTS = p.PTS
	}
	m.frag.Add(SampleInfo{
		Data:        p.Data,
		Duration:    p.Duration,
		Sync:        p.Sync,
		SampleGroup: p.SampleGroup,
	})
	m.accumSamples += uint64(p.Duration)
	if m.accumSamples >= m.targetSamples {
		return m.closeSegment()
	}
	return nil
}

// SubmitTags associates tags with the next fragment's leading emsg.
func (m *Muxer) SubmitTags(tags *audio.TagList) error {
	if !m.opened {
		return fmt.Errorf("fmp4: muxer not open")
	}
	m.pendingTags = tags
	return nil
}

// buildEmsgs returns the emsg boxes to lead the fragment starting at
// segPTS and spanning durationSamples track-timescale samples, built
// from the active tag list if one has been submitted.
func (m *Muxer) buildEmsgs(durationSamples uint32) ([]Emsg, error) {
	if !m.withID3 || m.pendingTags == nil || m.pendingTags.Len() == 0 {
		return nil, nil
	}
	tag := id3.NewTag(id3.WithImageMode(m.imageMode))
	if err := tag.AddTagList(m.pendingTags); err != nil {
		return nil, err
	}
	b, err := tag.Bytes()
	if err != nil {
		return nil, err
	}
	m.emsgSeq++
	e := newID3Emsg(m.source.SampleRate, uint64(m.segPTS), m.emsgSeq, b)
	e.Duration = durationSamples
	return []Emsg{e}, nil
}

func (m *Muxer) closeSegment() error {
	if m.frag.Len() == 0 {
		return nil
	}
	samples := uint32(m.accumSamples)
	emsgs, err := m.buildEmsgs(samples)
	if err != nil {
		return err
	}
	baseMediaDecodeTime := uint64(m.segPTS)
	data, err := m.frag.Fragment(m.fragSeq, baseMediaDecodeTime, emsgs)
	if err != nil {
		return fmt.Errorf("fmp4: building fragment: %w", err)
	}
	m.fragSeq++
	pts := m.segPTS
	m.accumSamples = 0
	return m.dst.SubmitSegment(audio.Segment{
		Type:    audio.SegmentMedia,
		Data:    data,
		PTS:     pts,
		Samples: samples,
	})
}

// Flush finalises any in-progress fragment.
func (m *Muxer) Flush() error {
	if !m.opened {
		return nil
	}
	return m.closeSegment()
}

// Reset returns the muxer to its initial state for the same
// PacketSource passed to the last Open.
func (m *Muxer) Reset() error {
	src := m.source
	withID3 := m.withID3
	loudness := m.track.Loudness
	encoderDelay := m.track.EncoderDelay
	*m = Muxer{dst: m.dst, log: m.log, withID3: withID3}
	m.track.Loudness = loudness
	m.track.EncoderDelay = encoderDelay
	return m.Open(src)
}

// Close releases the muxer's buffers. It must not be used again.
func (m *Muxer) Close() error {
	m.opened = false
	m.frag = nil
	return nil
}
