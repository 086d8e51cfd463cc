/*
NAME
  packedaudio.go

AUTHOR
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package packedaudio implements the simplest of this module's
// muxers: a single continuous elementary bitstream (ADTS, MP3, AC-3 or
// E-AC-3), each media segment opening with an ID3 tag carrying the
// segment's start PTS and, when present, the current tag list.
package packedaudio

import (
	"fmt"

	"github.com/ausocean/hlsmux/container/audio"
	"github.com/ausocean/hlsmux/container/id3"
	"github.com/ausocean/utils/logging"
)

const pkg = "container/packedaudio: "

// extensions and MIME types per codec, per the external-interfaces
// table.
var extByCodec = map[audio.CodecTag]struct{ ext, mime string }{
	audio.CodecAAC:  {".aac", "audio/aac"},
	audio.CodecMP3:  {".mp3", "audio/mpeg"},
	audio.CodecAC3:  {".ac3", "audio/ac3"},
	audio.CodecEAC3: {".eac3", "audio/eac3"},
}

// Muxer implements audio.Muxer for the packed-audio container.
type Muxer struct {
	dst audio.SegmentReceiver
	log logging.Logger

	source    audio.PacketSource
	opened    bool
	segParams audio.SegmentParams

	buf           []byte
	accumSamples  uint64
	targetSamples uint64
	segPTS        int64
	pendingTags   *audio.TagList
	imageMode     audio.ImageMode
}

// NewMuxer returns a packed-audio Muxer submitting segments to dst.
func NewMuxer(dst audio.SegmentReceiver, log logging.Logger) *Muxer {
	return &Muxer{dst: dst, log: log}
}

// SetImageMode sets the policy applied to an APICKey tag in the
// leading ID3 tag's frame conversion; the default, audio.ModeUnset,
// drops picture tags.
func (m *Muxer) SetImageMode(mode audio.ImageMode) { m.imageMode = mode }

// GetCaps reports no capability bits: DSI travels in-band with every
// elementary-stream frame (ADTS headers, MP3/AC-3 frame headers), and
// a tag change never requires the encoder to reset.
func (m *Muxer) GetCaps() uint32 { return 0 }

// GetSegmentInfo returns the default segmenting policy.
func (m *Muxer) GetSegmentInfo(audio.SourceInfo) audio.SegmentParams {
	return audio.SegmentParams{SegmentLengthMS: 6000}
}

// ApplyOption rejects every key: the configuration table lists none
// for this container.
func (m *Muxer) ApplyOption(key, value string) error {
	return fmt.Errorf("packedaudio: unsupported option %q", key)
}

// Open locks in the packet source and opens the downstream receiver.
func (m *Muxer) Open(src audio.PacketSource) error {
	if m.opened {
		return fmt.Errorf("packedaudio: muxer already open")
	}
	info, ok := extByCodec[src.Codec]
	if !ok {
		return fmt.Errorf("packedaudio: codec %s is not a packed-audio elementary stream", src.Codec)
	}
	m.source = src
	m.segParams = m.GetSegmentInfo(audio.SourceInfo{Source: src})
	m.targetSamples = uint64(m.segParams.SegmentLengthMS) * uint64(src.SampleRate) / 1000
	if err := m.dst.Open(audio.SegmentSourceInfo{Extension: info.ext, MIMEType: info.mime, TimeBase: src.SampleRate, FrameLen: src.FrameLen}); err != nil {
		return fmt.Errorf("packedaudio: opening segment receiver: %w", err)
	}
	m.opened = true
	m.log.Log(logging.Debug, pkg+"opened", "codec", src.Codec.String())
	return nil
}

// SubmitPacket appends the packet's already-framed elementary-stream
// bytes to the current segment buffer, opening a new segment with its
// leading ID3 tag(s) if none is in progress.
func (m *Muxer) SubmitPacket(p audio.Packet) error {
	if !m.opened {
		return fmt.Errorf("packedaudio: muxer not open")
	}
	if m.accumSamples == 0 {
		if err := m.openSegment(p.PTS); err != nil {
			return err
		}
	}
	m.buf = append(m.buf, p.Data...)
	m.accumSamples += uint64(p.Duration)
	if m.accumSamples >= m.targetSamples {
		return m.closeSegment()
	}
	return nil
}

// openSegment writes the leading PRIV timestamp tag, and a second tag
// carrying the user tag list if one is pending.
func (m *Muxer) openSegment(pts int64) error {
	m.segPTS = pts
	ts := id3.NewTag()
	rescaled := uint64(pts) * 90000 / uint64(m.source.SampleRate)
	if err := ts.AddTransportStreamTimestamp(rescaled); err != nil {
		return err
	}
	tb, err := ts.Bytes()
	if err != nil {
		return err
	}
	m.buf = append(m.buf, tb...)

	if m.pendingTags != nil && m.pendingTags.Len() > 0 {
		tag := id3.NewTag(id3.WithImageMode(m.imageMode))
		if err := tag.AddTagList(m.pendingTags); err != nil {
			return err
		}
		b, err := tag.Bytes()
		if err != nil {
			return err
		}
		m.buf = append(m.buf, b...)
	}
	return nil
}

// SubmitTags associates tags with the next segment boundary.
func (m *Muxer) SubmitTags(tags *audio.TagList) error {
	if !m.opened {
		return fmt.Errorf("packedaudio: muxer not open")
	}
	m.pendingTags = tags
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
	m.pendingTags = nil
	return m.dst.SubmitSegment(audio.Segment{
		Type:    audio.SegmentMedia,
		Data:    data,
		PTS:     m.segPTS,
		Samples: uint32(samples),
	})
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
