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

package fmp4

import (
	"bytes"
	"testing"

	"github.com/ausocean/hlsmux/container/audio"
)

type discardLogger struct{}

func (discardLogger) SetLevel(int8)                                     {}
func (discardLogger) Log(level int8, msg string, params ...interface{}) {}

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

func openedAACMuxer(t *testing.T, dst *fakeReceiver, withID3 bool) *Muxer {
	t.Helper()
	m := NewMuxer(dst, discardLogger{}, withID3)
	src := audio.PacketSource{Codec: audio.CodecAAC, SampleRate: 48000, ChannelLayout: audio.LayoutStereo, DSI: []byte{0x12, 0x10}}
	if err := m.Open(src); err != nil {
		t.Fatalf("Open: %v", err)
	}
	return m
}

func TestMuxerOpenSubmitsInitSegmentFirst(t *testing.T) {
	dst := &fakeReceiver{}
	openedAACMuxer(t, dst, false)
	if !dst.opened {
		t.Fatalf("downstream receiver was never opened")
	}
	if len(dst.segments) != 1 {
		t.Fatalf("got %d segments after Open, want 1", len(dst.segments))
	}
	if dst.segments[0].Type != audio.SegmentInit {
		t.Errorf("first segment type = %v, want SegmentInit", dst.segments[0].Type)
	}
	if !bytes.Contains(dst.segments[0].Data, []byte("ftyp")) {
		t.Errorf("init segment doesn't contain ftyp")
	}
}

func TestMuxerSubmitPacketClosesSegmentAtTarget(t *testing.T) {
	dst := &fakeReceiver{}
	m := openedAACMuxer(t, dst, false)
	pkt := audio.Packet{Data: bytes.Repeat([]byte{0xAB}, 50), Duration: 288000, Sync: true, PTS: 0}
	if err := m.SubmitPacket(pkt); err != nil {
		t.Fatalf("SubmitPacket: %v", err)
	}
	if len(dst.segments) != 2 {
		t.Fatalf("got %d segments, want 2 (init + media)", len(dst.segments))
	}
	media := dst.segments[1]
	if media.Type != audio.SegmentMedia {
		t.Errorf("second segment type = %v, want SegmentMedia", media.Type)
	}
	if !bytes.Contains(media.Data, []byte("moof")) || !bytes.Contains(media.Data, []byte("mdat")) {
		t.Errorf("media segment doesn't contain moof/mdat")
	}
	if media.Samples != 288000 {
		t.Errorf("samples = %d, want 288000", media.Samples)
	}
}

func TestMuxerWithID3EmitsEmsg(t *testing.T) {
	dst := &fakeReceiver{}
	m := openedAACMuxer(t, dst, true)
	tags := audio.NewTagList()
	tags.AddString("TIT2", "now playing")
	if err := m.SubmitTags(tags); err != nil {
		t.Fatalf("SubmitTags: %v", err)
	}
	pkt := audio.Packet{Data: bytes.Repeat([]byte{0xAB}, 50), Duration: 288000, Sync: true}
	if err := m.SubmitPacket(pkt); err != nil {
		t.Fatalf("SubmitPacket: %v", err)
	}
	media := dst.segments[1]
	if !bytes.Contains(media.Data, []byte("emsg")) {
		t.Errorf("media segment with active tags doesn't contain an emsg box")
	}
	if !bytes.Contains(media.Data, []byte("https://aomedia.org/emsg/ID3")) {
		t.Errorf("emsg doesn't carry the ID3 scheme URI")
	}
}

func TestMuxerWithoutID3OmitsEmsg(t *testing.T) {
	dst := &fakeReceiver{}
	m := openedAACMuxer(t, dst, false)
	tags := audio.NewTagList()
	tags.AddString("TIT2", "now playing")
	m.SubmitTags(tags)
	pkt := audio.Packet{Data: []byte{0x01}, Duration: 288000, Sync: true}
	if err := m.SubmitPacket(pkt); err != nil {
		t.Fatalf("SubmitPacket: %v", err)
	}
	media := dst.segments[1]
	if bytes.Contains(media.Data, []byte("emsg")) {
		t.Errorf("media segment should not contain emsg when withID3 is false")
	}
}

func TestMuxerRejectsDoubleOpen(t *testing.T) {
	dst := &fakeReceiver{}
	m := openedAACMuxer(t, dst, false)
	if err := m.Open(audio.PacketSource{Codec: audio.CodecAAC}); err == nil {
		t.Fatalf("expected an error re-opening an already-open muxer")
	}
}

func TestMuxerFlushSubmitsPartialFragment(t *testing.T) {
	dst := &fakeReceiver{}
	m := openedAACMuxer(t, dst, false)
	pkt := audio.Packet{Data: []byte{0x01}, Duration: 1024, Sync: true}
	if err := m.SubmitPacket(pkt); err != nil {
		t.Fatalf("SubmitPacket: %v", err)
	}
	if len(dst.segments) != 1 {
		t.Fatalf("got %d segments before Flush, want 1 (below target, still buffered)", len(dst.segments))
	}
	if err := m.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(dst.segments) != 2 {
		t.Fatalf("got %d segments after Flush, want 2", len(dst.segments))
	}
}

func TestMuxerApplyOptionEncoderDelay(t *testing.T) {
	dst := &fakeReceiver{}
	m := NewMuxer(dst, discardLogger{}, false)
	if err := m.ApplyOption("encoder-delay", "1024"); err != nil {
		t.Fatalf("ApplyOption: %v", err)
	}
	src := audio.PacketSource{Codec: audio.CodecAAC, SampleRate: 48000, ChannelLayout: audio.LayoutStereo, DSI: []byte{0x12, 0x10}}
	if err := m.Open(src); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !bytes.Contains(dst.segments[0].Data, []byte("edts")) {
		t.Errorf("init segment built after an encoder-delay option doesn't contain edts")
	}
}

func TestMuxerApplyOptionRejectsUnknownKey(t *testing.T) {
	dst := &fakeReceiver{}
	m := NewMuxer(dst, discardLogger{}, false)
	if err := m.ApplyOption("bogus", "1"); err == nil {
		t.Fatalf("expected an error for an unsupported option key")
	}
}
