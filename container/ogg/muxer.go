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

package ogg

import (
	"fmt"

	"github.com/ausocean/hlsmux/container/audio"
	"github.com/ausocean/utils/logging"
)

// kind distinguishes the two logical-stream payloads this package
// chains into Ogg pages; everything else about page accumulation,
// chaining and tag handling is shared.
type kind int

const (
	kindFLAC kind = iota
	kindOpus
)

var (
	oggFLACSignature = []byte{0x7F, 'F', 'L', 'A', 'C', 0x01, 0x00, 0x00, 0x01}
	flacStreamMarker = []byte("fLaC")
)

// pkg is the log-line prefix, matching the donor's per-package prefix
// convention.
const pkg = "container/ogg: "

// Muxer implements audio.Muxer for the chained-Ogg containers: Ogg-
// FLAC and Ogg-Opus. Per spec §4.8, each packet is appended to the
// active page; once the accumulated sample count reaches
// segment_length × sample_rate / 1000 the page is finalised and
// submitted as a media segment. If the source's channel layout isn't
// the canonical Vorbis/Opus ordering for its channel count, chaining
// is forced on so a fresh logical stream (and header page) opens for
// every segment.
type Muxer struct {
	kind kind
	dst  audio.SegmentReceiver
	log  logging.Logger

	chaining  bool
	imageMode audio.ImageMode
	source    audio.PacketSource
	opened    bool

	serial     uint32
	nextSerial uint32
	page       *Page

	targetSamples uint64
	accumSamples  uint64
	segPTS        int64
	segParams     audio.SegmentParams

	sentHeader bool
}

// Option configures a Muxer at construction.
type Option func(*Muxer) error

// WithChaining forces chaining mode on regardless of channel layout.
func WithChaining(on bool) Option {
	return func(m *Muxer) error {
		m.chaining = on
		return nil
	}
}

// WithImageMode sets the policy applied to an APICKey tag when
// building the comment-list body; the default, audio.ModeUnset, drops
// picture tags.
func WithImageMode(mode audio.ImageMode) Option {
	return func(m *Muxer) error {
		m.imageMode = mode
		return nil
	}
}

// NewFLACMuxer returns a Muxer producing Ogg-FLAC media segments
// through dst.
func NewFLACMuxer(dst audio.SegmentReceiver, log logging.Logger, options ...Option) (*Muxer, error) {
	return newMuxer(kindFLAC, dst, log, options...)
}

// NewOpusMuxer returns a Muxer producing Ogg-Opus media segments
// through dst.
func NewOpusMuxer(dst audio.SegmentReceiver, log logging.Logger, options ...Option) (*Muxer, error) {
	return newMuxer(kindOpus, dst, log, options...)
}

func newMuxer(k kind, dst audio.SegmentReceiver, log logging.Logger, options ...Option) (*Muxer, error) {
	m := &Muxer{kind: k, dst: dst, log: log, serial: 1, nextSerial: 2}
	for _, o := range options {
		if err := o(m); err != nil {
			return nil, fmt.Errorf("ogg: option failed: %w", err)
		}
	}
	return m, nil
}

// GetCaps returns CapGlobalHeaders (the STREAMINFO/OpusHead header
// page is emitted once, out of band) and, when chaining, CapTagsReset
// since a tag change forces the encoder to flush and reopen against a
// fresh logical stream.
func (m *Muxer) GetCaps() uint32 {
	caps := audio.CapGlobalHeaders
	if m.chaining {
		caps |= audio.CapTagsReset
	}
	return caps
}

// GetSegmentInfo returns the default segmenting policy; this container
// doesn't negotiate sub-segments.
func (m *Muxer) GetSegmentInfo(audio.SourceInfo) audio.SegmentParams {
	return audio.SegmentParams{SegmentLengthMS: 6000}
}

// ApplyOption dispatches "chaining" = "true"|"false"; no other keys
// are recognised for Ogg-FLAC/Ogg-Opus per the configuration surface
// table.
func (m *Muxer) ApplyOption(key, value string) error {
	if key != "chaining" {
		return fmt.Errorf("ogg: unsupported option %q", key)
	}
	switch value {
	case "true":
		m.chaining = true
	case "false":
		m.chaining = false
	default:
		return fmt.Errorf("ogg: chaining value must be true or false, got %q", value)
	}
	return nil
}

// Open locks in the packet source, starts the first page and opens the
// downstream receiver. The header and comment pages are built and
// emitted as the init segment by the first SubmitPacket or SubmitTags.
func (m *Muxer) Open(src audio.PacketSource) error {
	if m.opened {
		return fmt.Errorf("ogg: muxer already open")
	}
	m.source = src
	if !audio.IsStandardVorbisLayout(src.ChannelLayout) {
		m.chaining = true
	}
	m.segParams = m.GetSegmentInfo(audio.SourceInfo{Source: src})
	m.targetSamples = uint64(m.segParams.SegmentLengthMS) * uint64(src.SampleRate) / 1000
	m.page = NewPage(m.serial)

	info := audio.SegmentSourceInfo{Extension: ".ogg", MIMEType: "application/ogg", TimeBase: src.SampleRate, FrameLen: src.FrameLen}
	if err := m.dst.Open(info); err != nil {
		return fmt.Errorf("ogg: opening segment receiver: %w", err)
	}

	m.opened = true
	m.log.Log(logging.Debug, pkg+"opened", "codec", src.Codec.String(), "chaining", m.chaining)
	return nil
}

func (m *Muxer) headerPacket() ([]byte, error) {
	switch m.kind {
	case kindFLAC:
		out := append([]byte(nil), oggFLACSignature...)
		out = append(out, flacStreamMarker...)
		out = append(out, m.source.DSI...)
		return out, nil
	case kindOpus:
		return BuildOpusHead(uint8(m.source.ChannelLayout.Channels()), 0, m.source.SampleRate, 0, 0), nil
	default:
		return nil, fmt.Errorf("ogg: unknown stream kind")
	}
}

// frameComment wraps a comment-list body in the container-specific
// packet framing: "OpusTags" for Ogg-Opus, or a FLAC metadata-block
// header (last-block flag set, type 4 = VORBIS_COMMENT, 3-byte
// big-endian length) for Ogg-FLAC.
func (m *Muxer) frameComment(body []byte) []byte {
	if m.kind == kindOpus {
		return append(append([]byte(nil), opusTagsSignature...), body...)
	}
	out := make([]byte, 0, 4+len(body))
	out = append(out, 0x84) // last-metadata-block flag set, block type 4.
	out = append(out, byte(len(body)>>16), byte(len(body)>>8), byte(len(body)))
	return append(out, body...)
}

// emitInitSegment finalises the buffered header+comment pages into an
// init segment carrying zero samples, per §3's segment invariant.
func (m *Muxer) emitInitSegment(tags *audio.TagList) error {
	hdr, err := m.headerPacket()
	if err != nil {
		return err
	}
	if full, err := m.page.AddPacket(hdr, MaxGranulePos); err != nil {
		return fmt.Errorf("ogg: %w", err)
	} else if full {
		return fmt.Errorf("ogg: header packet saturated the page unexpectedly")
	}
	headerPage, err := m.page.FinishPage()
	if err != nil {
		return err
	}

	body, forceChaining, err := BuildCommentBlock(tags, m.source.ChannelLayout, m.imageMode, true)
	if err != nil {
		return err
	}
	if forceChaining {
		m.chaining = true
	}
	comment := m.frameComment(body)
	if _, err := m.page.AddPacket(comment, MaxGranulePos); err != nil {
		return fmt.Errorf("ogg: %w", err)
	}
	commentPage, err := m.page.FinishPage()
	if err != nil {
		return err
	}

	init := append(append([]byte(nil), headerPage...), commentPage...)
	m.sentHeader = true
	return m.dst.SubmitSegment(audio.Segment{Type: audio.SegmentInit, Data: init})
}

// SubmitPacket appends data to the active page, finalising and
// submitting a media segment once the accumulated sample count
// reaches the target.
func (m *Muxer) SubmitPacket(p audio.Packet) error {
	if !m.opened {
		return fmt.Errorf("ogg: muxer not open")
	}
	if !m.sentHeader {
		if err := m.emitInitSegment(nil); err != nil {
			return err
		}
	}
	if m.accumSamples == 0 {
		m.segPTS = p.PTS
	}

	granule := m.accumSamples + uint64(p.Duration)
	if _, err := m.page.AddPacket(p.Data, granule); err != nil {
		return fmt.Errorf("ogg: %w", err)
	}
	m.accumSamples += uint64(p.Duration)

	if m.accumSamples >= m.targetSamples {
		return m.closeSegment(false)
	}
	return nil
}

func (m *Muxer) closeSegment(eos bool) error {
	if m.page.Empty() {
		return nil
	}
	var (
		data []byte
		err  error
	)
	if eos {
		data, err = m.page.EOS()
	} else {
		data, err = m.page.FinishPage()
	}
	if err != nil {
		return err
	}
	samples := m.accumSamples
	m.accumSamples = 0

	if err := m.dst.SubmitSegment(audio.Segment{
		Type:    audio.SegmentMedia,
		Data:    data,
		PTS:     m.segPTS,
		Samples: uint32(samples),
	}); err != nil {
		return err
	}

	if m.chaining && !eos {
		m.serial = m.nextSerial
		m.nextSerial++
		m.page = NewPage(m.serial)
		m.sentHeader = false
	}
	return nil
}

// SubmitTags associates tags with the next segment boundary. In
// chaining mode this starts a fresh logical stream (matching
// CapTagsReset); otherwise the new comment block takes effect on the
// next header page, which this container only ever emits once, so
// non-chained streams fold the tags into the upcoming init segment
// only if one hasn't been sent yet.
func (m *Muxer) SubmitTags(tags *audio.TagList) error {
	if !m.opened {
		return fmt.Errorf("ogg: muxer not open")
	}
	if m.chaining {
		if !m.page.Empty() {
			// closeSegment already rotates to a fresh serial/page for
			// every finished segment in chaining mode.
			if err := m.closeSegment(false); err != nil {
				return err
			}
		}
		return m.emitInitSegment(tags)
	}
	if !m.sentHeader {
		return m.emitInitSegment(tags)
	}
	return nil
}

// Flush finalises any in-progress segment with the EOS flag set.
func (m *Muxer) Flush() error {
	if !m.opened {
		return nil
	}
	return m.closeSegment(true)
}

// Reset returns the muxer to its initial state for the same
// PacketSource passed to the last Open.
func (m *Muxer) Reset() error {
	src := m.source
	*m = Muxer{kind: m.kind, dst: m.dst, log: m.log, chaining: m.chaining, serial: 1, nextSerial: 2}
	return m.Open(src)
}

// Close releases the muxer's buffers. It must not be used again.
func (m *Muxer) Close() error {
	m.opened = false
	m.page = nil
	return nil
}
