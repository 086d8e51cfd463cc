/*
NAME
  init_test.go

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

func aacTrack() TrackInfo {
	return TrackInfo{
		TrackID:       1,
		Codec:         audio.CodecAAC,
		SampleRate:    48000,
		ChannelLayout: audio.LayoutStereo,
		DSI:           []byte{0x12, 0x10},
	}
}

func TestBuildInitSegmentFtypBrand(t *testing.T) {
	out, err := BuildInitSegment(aacTrack())
	if err != nil {
		t.Fatalf("BuildInitSegment: %v", err)
	}
	if !bytes.HasPrefix(out[8:], []byte("iso6")) {
		t.Errorf("major brand = %q, want iso6", out[8:12])
	}
	if !bytes.Contains(out[:32], []byte("aid3")) {
		t.Errorf("compatible brands don't include aid3")
	}
	if !bytes.Contains(out, []byte("moov")) {
		t.Errorf("init segment doesn't contain a moov box")
	}
	if !bytes.Contains(out, []byte("mvex")) {
		t.Errorf("init segment doesn't contain an mvex box")
	}
	if !bytes.Contains(out, []byte("mp4a")) {
		t.Errorf("init segment doesn't contain an mp4a sample entry")
	}
	if !bytes.Contains(out, []byte("esds")) {
		t.Errorf("init segment doesn't contain an esds box")
	}
}

func TestBuildInitSegmentRejectsMissingCodec(t *testing.T) {
	if _, err := BuildInitSegment(TrackInfo{}); err == nil {
		t.Fatalf("expected an error for a track with no codec")
	}
}

func TestBuildInitSegmentRejectsAACWithoutDSI(t *testing.T) {
	tr := aacTrack()
	tr.DSI = nil
	if _, err := BuildInitSegment(tr); err == nil {
		t.Fatalf("expected an error for an AAC track missing dsi")
	}
}

func TestBuildInitSegmentAllowsMP3WithoutDSI(t *testing.T) {
	tr := aacTrack()
	tr.Codec = audio.CodecMP3
	tr.DSI = nil
	out, err := BuildInitSegment(tr)
	if err != nil {
		t.Fatalf("BuildInitSegment: %v", err)
	}
	if !bytes.Contains(out, []byte("mp4a")) {
		t.Errorf("init segment doesn't contain an mp4a sample entry")
	}
}

func TestBuildInitSegmentRejectsFLACWithoutDSI(t *testing.T) {
	tr := aacTrack()
	tr.Codec = audio.CodecFLAC
	tr.DSI = nil
	if _, err := BuildInitSegment(tr); err == nil {
		t.Fatalf("expected an error for a FLAC track missing dsi")
	}
}

func TestBuildInitSegmentEncoderDelayAddsEdts(t *testing.T) {
	tr := aacTrack()
	tr.EncoderDelay = 1024
	out, err := BuildInitSegment(tr)
	if err != nil {
		t.Fatalf("BuildInitSegment: %v", err)
	}
	if !bytes.Contains(out, []byte("edts")) || !bytes.Contains(out, []byte("elst")) {
		t.Errorf("init segment with encoder delay doesn't contain edts/elst")
	}
}

func TestBuildInitSegmentRollDistanceAddsSgpd(t *testing.T) {
	tr := aacTrack()
	tr.RollDistance = -1
	out, err := BuildInitSegment(tr)
	if err != nil {
		t.Fatalf("BuildInitSegment: %v", err)
	}
	if !bytes.Contains(out, []byte("sgpd")) {
		t.Errorf("init segment with a roll distance doesn't contain sgpd")
	}
	if !bytes.Contains(out, []byte("roll")) {
		t.Errorf("sgpd grouping_type should default to roll")
	}
}

func TestBuildInitSegmentLoudnessAddsLudt(t *testing.T) {
	tr := aacTrack()
	tr.Loudness = []LoudnessRecord{{
		Scope:      ScopeTrack,
		SamplePeak: EncodePeak(-1.0),
	}}
	out, err := BuildInitSegment(tr)
	if err != nil {
		t.Fatalf("BuildInitSegment: %v", err)
	}
	if !bytes.Contains(out, []byte("ludt")) || !bytes.Contains(out, []byte("tlou")) {
		t.Errorf("init segment with a loudness record doesn't contain udta/ludt/tlou")
	}
}

func TestBuildInitSegmentALACSampleEntry(t *testing.T) {
	tr := aacTrack()
	tr.Codec = audio.CodecALAC
	tr.DSI = []byte{0x00, 0x00, 0x10, 0x00}
	out, err := BuildInitSegment(tr)
	if err != nil {
		t.Fatalf("BuildInitSegment: %v", err)
	}
	if !bytes.Contains(out, []byte("alac")) {
		t.Errorf("init segment doesn't contain an alac sample entry")
	}
}
