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

package mts

import (
	"bytes"
	"fmt"

	"github.com/ausocean/hlsmux/container/audio"
	"github.com/ausocean/hlsmux/container/id3"
	"github.com/ausocean/utils/logging"
)

// codecFor maps a codec tag onto the Encoder's MediaType selector.
var codecFor = map[audio.CodecTag]int{
	audio.CodecAAC:  EncodeAAC,
	audio.CodecMP3:  EncodeMP3,
	audio.CodecAC3:  EncodeAC3,
	audio.CodecEAC3: EncodeEAC3,
	audio.CodecOpus: EncodeOpus,
}

// nopWriteCloser adapts a bytes.Buffer, which the Muxer uses to
// accumulate one segment's worth of TS packets, to io.WriteCloser.
type nopWriteCloser struct{ *bytes.Buffer }

func (nopWriteCloser) Close() error { return nil }

// Muxer implements audio.Muxer for MPEG-TS, segmenting a single audio
// elementary stream (plus an optional ID3 timed-metadata stream) into
// self-contained TS segments, each opening with a fresh PAT/PMT pair.
type Muxer struct {
	dst audio.SegmentReceiver
	log logging.Logger

	source    audio.PacketSource
	opened    bool
	segParams audio.SegmentParams

	enc *Encoder
	buf *bytes.Buffer

	targetSamples uint64
	accumSamples  uint64
	segPTS        int64

	withID3     bool
	pendingTags *audio.TagList
	imageMode   audio.ImageMode
}

// SetImageMode sets the policy applied to an APICKey tag in the
// leading ID3 tag's frame conversion; the default, audio.ModeUnset,
// drops picture tags.
func (m *Muxer) SetImageMode(mode audio.ImageMode) { m.imageMode = mode }

// NewMuxer returns an MPEG-TS Muxer submitting segments to dst. Passing
// withID3 as true causes each segment's audio to be accompanied by a
// timed-metadata elementary stream carrying the segment's start
// timestamp and any pending tag list, mirroring packedaudio's leading
// ID3 tag.
func NewMuxer(dst audio.SegmentReceiver, log logging.Logger, withID3 bool) *Muxer {
	return &Muxer{dst: dst, log: log, withID3: withID3}
}

// GetCaps reports no capability bits: the AAC/MP3/AC-3/E-AC-3 DSI is
// carried in-band by every access unit's own frame header, but the PMT
// (this container's closest analogue to a global header) is rebuilt
// and re-emitted at the start of every segment rather than carried
// out-of-band, so no bit is set for it; a tag change never forces a
// stream reset.
func (m *Muxer) GetCaps() uint32 { return 0 }

// GetSegmentInfo returns the default segmenting policy.
func (m *Muxer) GetSegmentInfo(audio.SourceInfo) audio.SegmentParams {
	return audio.SegmentParams{SegmentLengthMS: 6000}
}

// ApplyOption rejects every key: this container's configuration
// surface is fixed at construction via NewMuxer's withID3 argument.
func (m *Muxer) ApplyOption(key, value string) error {
	return fmt.Errorf("mts: unsupported option %q", key)
}

// Open locks in the packet source, builds the underlying Encoder and
// opens the downstream receiver.
func (m *Muxer) Open(src audio.PacketSource) error {
	if m.opened {
		return fmt.Errorf("mts: muxer already open")
	}
	codec, ok := codecFor[src.Codec]
	if !ok {
		return fmt.Errorf("mts: codec %s cannot be carried in MPEG-TS", src.Codec)
	}
	m.source = src
	m.segParams = m.GetSegmentInfo(audio.SourceInfo{Source: src})
	m.targetSamples = uint64(m.segParams.SegmentLengthMS) * uint64(src.SampleRate) / 1000

	m.buf = &bytes.Buffer{}
	options := []func(*Encoder) error{MediaType(codec)}
	if m.withID3 {
		options = append(options, WithID3Metadata())
	}
	enc, err := NewEncoder(nopWriteCloser{m.buf}, m.log, options...)
	if err != nil {
		return fmt.Errorf("mts: could not create encoder: %w", err)
	}
	m.enc = enc

	if err := m.dst.Open(audio.SegmentSourceInfo{Extension: ".ts", MIMEType: "video/mp2t", TimeBase: PTSFrequency, FrameLen: src.FrameLen}); err != nil {
		return fmt.Errorf("mts: opening segment receiver: %w", err)
	}
	m.opened = true
	m.log.Log(logging.Debug, pkg+"muxer opened", "codec", src.Codec.String())
	return nil
}

// rescalePTS converts a packet's sample-based PTS to this container's
// 90kHz time base.
func (m *Muxer) rescalePTS(pts int64) uint64 {
	return uint64(pts) * PTSFrequency / uint64(m.source.SampleRate)
}

// SubmitPacket encodes the packet's access unit into the current
// segment, opening a new segment (and requesting fresh PSI) if none is
// in progress.
func (m *Muxer) SubmitPacket(p audio.Packet) error {
	if !m.opened {
		return fmt.Errorf("mts: muxer not open")
	}
	if m.accumSamples == 0 {
		if err := m.openSegment(p.PTS); err != nil {
			return err
		}
	}

	pts := m.rescalePTS(p.PTS)
	if _, err := m.enc.Write(p.Data, pts+PTSOffset); err != nil {
		return fmt.Errorf("mts: encoding access unit: %w", err)
	}
	m.accumSamples += uint64(p.Duration)

	if m.accumSamples >= m.targetSamples {
		return m.closeSegment()
	}
	return nil
}

// openSegment primes the encoder for a new, self-contained segment,
// requesting a fresh PAT/PMT pair and, if configured, writing a
// leading ID3 tag carrying the segment start timestamp and any pending
// user tags.
func (m *Muxer) openSegment(pts int64) error {
	m.segPTS = pts
	m.enc.RequestPSI()

	if !m.withID3 {
		return nil
	}
	ts90k := m.rescalePTS(pts)
	tag := id3.NewTag(id3.WithImageMode(m.imageMode))
	if err := tag.AddTransportStreamTimestamp(ts90k); err != nil {
		return err
	}
	if m.pendingTags != nil && m.pendingTags.Len() > 0 {
		if err := tag.AddTagList(m.pendingTags); err != nil {
			return err
		}
		m.pendingTags = nil
	}
	b, err := tag.Bytes()
	if err != nil {
		return err
	}
	return m.enc.WriteID3(b, ts90k)
}

// SubmitTags associates tags with the next segment boundary.
func (m *Muxer) SubmitTags(tags *audio.TagList) error {
	if !m.opened {
		return fmt.Errorf("mts: muxer not open")
	}
	m.pendingTags = tags
	return nil
}

func (m *Muxer) closeSegment() error {
	if m.buf.Len() == 0 {
		return nil
	}
	data := append([]byte(nil), m.buf.Bytes()...)
	m.buf.Reset()
	samples := m.accumSamples
	m.accumSamples = 0
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
	withID3 := m.withID3
	*m = Muxer{dst: m.dst, log: m.log, withID3: withID3}
	return m.Open(src)
}

// Close releases the muxer's buffers. It must not be used again.
func (m *Muxer) Close() error {
	m.opened = false
	m.buf = nil
	return nil
}
