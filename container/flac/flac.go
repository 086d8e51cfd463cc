/*
NAME
  flac.go

AUTHOR
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package flac implements the raw-FLAC muxer: a "fLaC" marker,
// STREAMINFO passthrough, a VORBIS_COMMENT metadata block and an
// optional PICTURE block, followed by a continuous run of FLAC frames.
package flac

import (
	"fmt"

	"github.com/ausocean/hlsmux/container/audio"
	"github.com/ausocean/hlsmux/container/ogg"
	"github.com/ausocean/utils/logging"
)

const pkg = "container/flac: "

var marker = []byte("fLaC")

// FLAC metadata block type codes (FLAC format §8.1).
const (
	blockTypeVorbisComment = 4
	blockTypePicture       = 6
)

// Muxer implements audio.Muxer for raw FLAC output.
type Muxer struct {
	dst audio.SegmentReceiver
	log logging.Logger

	source    audio.PacketSource
	opened    bool
	segParams audio.SegmentParams
	imageMode audio.ImageMode

	targetSamples uint64
	accumSamples  uint64
	segPTS        int64
	buf           []byte
	sentHeader    bool
	pendingTags   *audio.TagList
}

// Option configures a Muxer at construction.
type Option func(*Muxer)

// WithImageMode sets the policy applied to an APICKey tag when
// building the PICTURE metadata block; the default, audio.ModeUnset,
// drops picture tags.
func WithImageMode(mode audio.ImageMode) Option {
	return func(m *Muxer) { m.imageMode = mode }
}

// NewMuxer returns a raw-FLAC Muxer submitting segments to dst.
func NewMuxer(dst audio.SegmentReceiver, log logging.Logger, options ...Option) *Muxer {
	m := &Muxer{dst: dst, log: log}
	for _, o := range options {
		o(m)
	}
	return m
}

// GetCaps returns CapGlobalHeaders: STREAMINFO is carried out-of-band
// in the init segment.
func (m *Muxer) GetCaps() uint32 { return audio.CapGlobalHeaders }

// GetSegmentInfo returns the default segmenting policy.
func (m *Muxer) GetSegmentInfo(audio.SourceInfo) audio.SegmentParams {
	return audio.SegmentParams{SegmentLengthMS: 6000}
}

// ApplyOption rejects every key: the configuration table lists none
// for raw FLAC.
func (m *Muxer) ApplyOption(key, value string) error {
	return fmt.Errorf("flac: unsupported option %q", key)
}

// Open locks in the packet source and opens the downstream receiver.
func (m *Muxer) Open(src audio.PacketSource) error {
	if m.opened {
		return fmt.Errorf("flac: muxer already open")
	}
	if src.Codec != audio.CodecFLAC {
		return fmt.Errorf("flac: codec %s is not FLAC", src.Codec)
	}
	if len(src.DSI) == 0 {
		return fmt.Errorf("flac: missing STREAMINFO")
	}
	m.source = src
	m.segParams = m.GetSegmentInfo(audio.SourceInfo{Source: src})
	m.targetSamples = uint64(m.segParams.SegmentLengthMS) * uint64(src.SampleRate) / 1000
	if err := m.dst.Open(audio.SegmentSourceInfo{Extension: ".flac", MIMEType: "audio/flac", TimeBase: src.SampleRate, FrameLen: src.FrameLen}); err != nil {
		return fmt.Errorf("flac: opening segment receiver: %w", err)
	}
	m.opened = true
	m.log.Log(logging.Debug, pkg+"opened")
	return nil
}

func metadataBlock(blockType byte, last bool, body []byte) []byte {
	hdr := byte(blockType)
	if last {
		hdr |= 0x80
	}
	out := make([]byte, 0, 4+len(body))
	out = append(out, hdr, byte(len(body)>>16), byte(len(body)>>8), byte(len(body)))
	return append(out, body...)
}

func (m *Muxer) emitInitSegment(tags *audio.TagList) error {
	comment, _, err := ogg.BuildCommentBlock(tags, m.source.ChannelLayout, m.imageMode, false)
	if err != nil {
		return err
	}

	var picture []byte
	if tags != nil && m.imageMode.Keep() {
		if tag, ok := tags.Get(audio.APICKey); ok {
			pic, err := audio.DecodePicture(tag.Value)
			if err != nil {
				return fmt.Errorf("flac: decoding APIC tag: %w", err)
			}
			picture = audio.EncodePicture(pic)
		}
	}

	init := append([]byte(nil), marker...)
	init = append(init, m.source.DSI...)
	if len(picture) == 0 {
		init = append(init, metadataBlock(blockTypeVorbisComment, true, comment)...)
	} else {
		init = append(init, metadataBlock(blockTypeVorbisComment, false, comment)...)
		init = append(init, metadataBlock(blockTypePicture, true, picture)...)
	}

	m.sentHeader = true
	return m.dst.SubmitSegment(audio.Segment{Type: audio.SegmentInit, Data: init})
}

// SubmitPacket appends the packet's raw FLAC frame to the current
// segment buffer, closing and submitting a media segment once the
// accumulated sample count reaches the target.
func (m *Muxer) SubmitPacket(p audio.Packet) error {
	if !m.opened {
		return fmt.Errorf("flac: muxer not open")
	}
	if !m.sentHeader {
		if err := m.emitInitSegment(m.pendingTags); err != nil {
			return err
		}
		m.pendingTags = nil
	}
	if m.accumSamples == 0 {
		m.segPTS = p.PTS
	}
	m.buf = append(m.buf, p.Data...)
	m.accumSamples += uint64(p.Duration)
	if m.accumSamples >= m.targetSamples {
		return m.closeSegment()
	}
	return nil
}

func (m *Muxer) closeSegment() error {
	if len(m.buf) == 0 {
		return nil
	}
	data := m.buf
	samples := m.accumSamples
	m.buf = nil
	m.accumSamples = 0
	return m.dst.SubmitSegment(audio.Segment{
		Type:    audio.SegmentMedia,
		Data:    data,
		PTS:     m.segPTS,
		Samples: uint32(samples),
	})
}

// SubmitTags associates tags with the next segment boundary. Since
// this container only ever emits one header, tags only take effect if
// the init segment hasn't been sent yet.
func (m *Muxer) SubmitTags(tags *audio.TagList) error {
	if !m.opened {
		return fmt.Errorf("flac: muxer not open")
	}
	if !m.sentHeader {
		m.pendingTags = tags
	}
	return nil
}

// Flush finalises any in-progress segment.
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
	*m = Muxer{dst: m.dst, log: m.log}
	return m.Open(src)
}

// Close releases the muxer's buffers. It must not be used again.
func (m *Muxer) Close() error {
	m.opened = false
	m.buf = nil
	return nil
}
