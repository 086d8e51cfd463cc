/*
NAME
  muxer_test.go

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
	"testing"

	"github.com/Comcast/gots/v2/packet"

	"github.com/ausocean/hlsmux/container/audio"
)

type fakeReceiver struct {
	opened   bool
	segments []audio.Segment
}

func (f *fakeReceiver) GetSegmentInfo(audio.SegmentSourceInfo) audio.SegmentParams {
	return audio.SegmentParams{SegmentLengthMS: 6000}
}
func (f *fakeReceiver) Open(audio.SegmentSourceInfo) error { f.opened = true; return nil }
func (f *fakeReceiver) SubmitSegment(s audio.Segment) error {
	f.segments = append(f.segments, s)
	return nil
}
func (f *fakeReceiver) SubmitTags(*audio.TagList) error { return nil }
func (f *fakeReceiver) Flush() error                    { return nil }

func packetsIn(data []byte) []packet.Packet {
	var out []packet.Packet
	for i := 0; i+PacketSize <= len(data); i += PacketSize {
		var pkt packet.Packet
		copy(pkt[:], data[i:i+PacketSize])
		out = append(out, pkt)
	}
	return out
}

// TestMuxerSegmentIsSelfContained checks that a media segment opens
// with its own PAT/PMT and carries the audio PID.
func TestMuxerSegmentIsSelfContained(t *testing.T) {
	dst := &fakeReceiver{}
	m := NewMuxer(dst, discardLogger{}, false)
	src := audio.PacketSource{Codec: audio.CodecAAC, SampleRate: 48000}
	if err := m.Open(src); err != nil {
		t.Fatalf("Open: %v", err)
	}
	pkt := audio.Packet{Data: bytes.Repeat([]byte{0xAB}, 100), Duration: 288000, PTS: 9000}
	if err := m.SubmitPacket(pkt); err != nil {
		t.Fatalf("SubmitPacket: %v", err)
	}
	if err := m.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(dst.segments) != 1 {
		t.Fatalf("got %d segments, want 1", len(dst.segments))
	}
	pkts := packetsIn(dst.segments[0].Data)
	if len(pkts) < 3 {
		t.Fatalf("got %d TS packets, want at least 3 (PAT, PMT, audio)", len(pkts))
	}
	if pkts[0].PID() != PatPid || pkts[1].PID() != PmtPid {
		t.Errorf("segment does not open with PAT then PMT, got PIDs %d, %d", pkts[0].PID(), pkts[1].PID())
	}
	var sawAudio bool
	for _, p := range pkts[2:] {
		if p.PID() == PIDAudio {
			sawAudio = true
		}
	}
	if !sawAudio {
		t.Errorf("segment carries no audio PID packets")
	}
}

// TestMuxerWithID3LeadsSegmentWithTimestamp checks that enabling ID3
// metadata causes a timed-metadata packet to precede the audio in each
// segment.
func TestMuxerWithID3LeadsSegmentWithTimestamp(t *testing.T) {
	dst := &fakeReceiver{}
	m := NewMuxer(dst, discardLogger{}, true)
	src := audio.PacketSource{Codec: audio.CodecAAC, SampleRate: 48000}
	if err := m.Open(src); err != nil {
		t.Fatalf("Open: %v", err)
	}
	pkt := audio.Packet{Data: []byte{1, 2, 3}, Duration: 288000, PTS: 9000}
	if err := m.SubmitPacket(pkt); err != nil {
		t.Fatalf("SubmitPacket: %v", err)
	}
	if err := m.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	var sawID3 bool
	for _, p := range packetsIn(dst.segments[0].Data) {
		if p.PID() == PIDID3 {
			sawID3 = true
		}
	}
	if !sawID3 {
		t.Errorf("segment carries no ID3 metadata PID packets")
	}
}

// TestMuxerRejectsUnsupportedCodec checks that Open refuses a codec
// this container cannot carry.
func TestMuxerRejectsUnsupportedCodec(t *testing.T) {
	dst := &fakeReceiver{}
	m := NewMuxer(dst, discardLogger{}, false)
	src := audio.PacketSource{Codec: audio.CodecFLAC, SampleRate: 48000}
	if err := m.Open(src); err == nil {
		t.Fatalf("Open: want error for an unsupported codec, got nil")
	}
}
