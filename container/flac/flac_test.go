/*
NAME
  flac_test.go

AUTHOR
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package flac

import (
	"bytes"
	"testing"

	"github.com/ausocean/hlsmux/container/audio"
)

type discardLogger struct{}

func (discardLogger) SetLevel(int8)                                     {}
func (discardLogger) Log(level int8, msg string, params ...interface{}) {}

type fakeReceiver struct {
	segments []audio.Segment
}

func (f *fakeReceiver) GetSegmentInfo(audio.SegmentSourceInfo) audio.SegmentParams {
	return audio.SegmentParams{SegmentLengthMS: 6000}
}
func (f *fakeReceiver) Open(audio.SegmentSourceInfo) error { return nil }
func (f *fakeReceiver) SubmitSegment(s audio.Segment) error {
	f.segments = append(f.segments, s)
	return nil
}
func (f *fakeReceiver) SubmitTags(*audio.TagList) error { return nil }
func (f *fakeReceiver) Flush() error                    { return nil }

// fakeStreamInfo is a 38-byte placeholder STREAMINFO metadata block
// (4-byte header + 34-byte body); the muxer treats it as opaque.
func fakeStreamInfo() []byte {
	b := make([]byte, 38)
	b[0] = 0 // not last, type 0 (STREAMINFO).
	b[1], b[2], b[3] = 0, 0, 34
	return b
}

func TestInitSegmentLayoutWithoutPicture(t *testing.T) {
	dst := &fakeReceiver{}
	m := NewMuxer(dst, discardLogger{})
	src := audio.PacketSource{Codec: audio.CodecFLAC, SampleRate: 44100, ChannelLayout: audio.LayoutStereo, DSI: fakeStreamInfo()}
	if err := m.Open(src); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := m.SubmitPacket(audio.Packet{Data: []byte{1, 2, 3}, Duration: 1000}); err != nil {
		t.Fatalf("SubmitPacket: %v", err)
	}
	if len(dst.segments) != 1 {
		t.Fatalf("got %d segments, want 1 (init only, media not yet at target)", len(dst.segments))
	}
	init := dst.segments[0].Data
	if !bytes.HasPrefix(init, marker) {
		t.Fatalf("init segment doesn't start with fLaC marker")
	}
	rest := init[len(marker):]
	if !bytes.Equal(rest[:len(fakeStreamInfo())], fakeStreamInfo()) {
		t.Errorf("STREAMINFO not passed through unchanged")
	}
	rest = rest[len(fakeStreamInfo()):]
	if rest[0]&0x80 == 0 {
		t.Errorf("VORBIS_COMMENT block should carry the last-metadata-block flag when there's no picture")
	}
	if rest[0]&0x7F != blockTypeVorbisComment {
		t.Errorf("block type = %d, want %d", rest[0]&0x7F, blockTypeVorbisComment)
	}
}

func TestInitSegmentWithPicture(t *testing.T) {
	dst := &fakeReceiver{}
	m := NewMuxer(dst, discardLogger{}, WithImageMode(audio.ModeKeep|audio.ModeInband))
	src := audio.PacketSource{Codec: audio.CodecFLAC, SampleRate: 44100, ChannelLayout: audio.LayoutStereo, DSI: fakeStreamInfo()}
	if err := m.Open(src); err != nil {
		t.Fatalf("Open: %v", err)
	}
	tags := audio.NewTagList()
	pic := audio.Picture{Type: 3, MIME: "image/jpeg", Data: []byte{0xFF, 0xD8, 0xFF}}
	tags.Add(audio.APICKey, audio.EncodePicture(pic), 0)
	if err := m.SubmitTags(tags); err != nil {
		t.Fatalf("SubmitTags: %v", err)
	}
	if err := m.SubmitPacket(audio.Packet{Data: []byte{9}, Duration: 1000}); err != nil {
		t.Fatalf("SubmitPacket: %v", err)
	}
	init := dst.segments[0].Data
	rest := init[len(marker)+len(fakeStreamInfo()):]
	if rest[0]&0x80 != 0 {
		t.Errorf("VORBIS_COMMENT block should not carry the last-block flag when a picture block follows")
	}
	commentLen := int(rest[1])<<16 | int(rest[2])<<8 | int(rest[3])
	picBlock := rest[4+commentLen:]
	if picBlock[0]&0x80 == 0 {
		t.Errorf("PICTURE block should carry the last-metadata-block flag")
	}
	if picBlock[0]&0x7F != blockTypePicture {
		t.Errorf("block type = %d, want %d", picBlock[0]&0x7F, blockTypePicture)
	}
}

func TestInitSegmentDropsPictureWithoutImageMode(t *testing.T) {
	dst := &fakeReceiver{}
	m := NewMuxer(dst, discardLogger{}) // No WithImageMode: defaults to audio.ModeUnset.
	src := audio.PacketSource{Codec: audio.CodecFLAC, SampleRate: 44100, ChannelLayout: audio.LayoutStereo, DSI: fakeStreamInfo()}
	if err := m.Open(src); err != nil {
		t.Fatalf("Open: %v", err)
	}
	tags := audio.NewTagList()
	pic := audio.Picture{Type: 3, MIME: "image/jpeg", Data: []byte{0xFF, 0xD8, 0xFF}}
	tags.Add(audio.APICKey, audio.EncodePicture(pic), 0)
	if err := m.SubmitTags(tags); err != nil {
		t.Fatalf("SubmitTags: %v", err)
	}
	if err := m.SubmitPacket(audio.Packet{Data: []byte{9}, Duration: 1000}); err != nil {
		t.Fatalf("SubmitPacket: %v", err)
	}
	init := dst.segments[0].Data
	rest := init[len(marker)+len(fakeStreamInfo()):]
	if rest[0]&0x80 == 0 {
		t.Errorf("VORBIS_COMMENT block should carry the last-metadata-block flag when the picture tag is dropped")
	}
}

func TestMediaSegmentEmittedAtTarget(t *testing.T) {
	dst := &fakeReceiver{}
	m := NewMuxer(dst, discardLogger{})
	src := audio.PacketSource{Codec: audio.CodecFLAC, SampleRate: 44100, ChannelLayout: audio.LayoutStereo, DSI: fakeStreamInfo()}
	if err := m.Open(src); err != nil {
		t.Fatalf("Open: %v", err)
	}
	target := uint64(6000) * 44100 / 1000
	if err := m.SubmitPacket(audio.Packet{Data: []byte{1, 2, 3, 4}, Duration: uint32(target)}); err != nil {
		t.Fatalf("SubmitPacket: %v", err)
	}
	if len(dst.segments) != 2 {
		t.Fatalf("got %d segments, want 2 (init + media)", len(dst.segments))
	}
	if dst.segments[1].Type != audio.SegmentMedia {
		t.Errorf("second segment should be media")
	}
	if !bytes.Equal(dst.segments[1].Data, []byte{1, 2, 3, 4}) {
		t.Errorf("media segment data = % X, want the raw packet bytes", dst.segments[1].Data)
	}
}
