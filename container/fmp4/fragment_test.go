/*
NAME
  fragment_test.go

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
	"encoding/binary"
	"testing"
)

func uniformSamples(n int, size int) []SampleInfo {
	s := make([]SampleInfo, n)
	for i := range s {
		s[i] = SampleInfo{Data: bytes.Repeat([]byte{byte(i)}, size), Duration: 1024, Sync: true}
	}
	return s
}

func TestFragmentRejectsEmptyQueue(t *testing.T) {
	f := NewFragmenter(1, TrackDefaults{Duration: 1024, Flags: sampleFlags(true)}, "")
	if _, err := f.Fragment(1, 0, nil); err == nil {
		t.Fatalf("expected an error fragmenting with no queued samples")
	}
}

func TestFragmentUniformSamplesOmitTrunArrays(t *testing.T) {
	f := NewFragmenter(1, TrackDefaults{Duration: 1024, Flags: sampleFlags(true)}, "")
	for _, s := range uniformSamples(3, 10) {
		f.Add(s)
	}
	out, err := f.Fragment(1, 0, nil)
	if err != nil {
		t.Fatalf("Fragment: %v", err)
	}
	if !bytes.Contains(out, []byte("moof")) || !bytes.Contains(out, []byte("mdat")) {
		t.Fatalf("fragment doesn't contain moof/mdat")
	}
	trunOff := bytes.Index(out, []byte("trun"))
	if trunOff < 0 {
		t.Fatalf("fragment doesn't contain a trun box")
	}
	flags := binary.BigEndian.Uint32(out[trunOff+4:trunOff+8]) & 0x00ffffff
	if flags&trunSampleDurationPresent != 0 {
		t.Errorf("trun flags = %#x, want sample-duration bit clear for uniform samples", flags)
	}
	if flags&trunSampleSizePresent != 0 {
		t.Errorf("trun flags = %#x, want sample-size bit clear for uniform samples", flags)
	}
}

func TestFragmentVaryingSizeForcesTrunArray(t *testing.T) {
	f := NewFragmenter(1, TrackDefaults{Duration: 1024, Flags: sampleFlags(true)}, "")
	f.Add(SampleInfo{Data: bytes.Repeat([]byte{0}, 10), Duration: 1024, Sync: true})
	f.Add(SampleInfo{Data: bytes.Repeat([]byte{0}, 10), Duration: 1024, Sync: true})
	f.Add(SampleInfo{Data: bytes.Repeat([]byte{0}, 20), Duration: 1024, Sync: true})
	out, err := f.Fragment(1, 0, nil)
	if err != nil {
		t.Fatalf("Fragment: %v", err)
	}
	trunOff := bytes.Index(out, []byte("trun"))
	flags := binary.BigEndian.Uint32(out[trunOff+4:trunOff+8]) & 0x00ffffff
	if flags&trunSampleSizePresent == 0 {
		t.Errorf("trun flags = %#x, want sample-size bit set for a divergent sample", flags)
	}
}

func TestFragmentTrunDataOffsetPointsAtMdatBody(t *testing.T) {
	f := NewFragmenter(1, TrackDefaults{Duration: 1024, Flags: sampleFlags(true)}, "")
	for _, s := range uniformSamples(2, 4) {
		f.Add(s)
	}
	out, err := f.Fragment(5, 1000, nil)
	if err != nil {
		t.Fatalf("Fragment: %v", err)
	}
	mdatOff := bytes.Index(out, []byte("mdat"))
	if mdatOff < 0 {
		t.Fatalf("fragment doesn't contain mdat")
	}
	mdatBodyStart := mdatOff + 4
	moofOff := bytes.Index(out, []byte("moof"))
	moofStart := moofOff - 4

	trunOff := bytes.Index(out, []byte("trun"))
	// data_offset is the first field after the full-box header and
	// sample_count (trun's type tag is at trunOff, header starts 4
	// bytes later: version+flags(4) + sample_count(4)).
	dataOffsetPos := trunOff + 4 + 4 + 4
	dataOffset := binary.BigEndian.Uint32(out[dataOffsetPos : dataOffsetPos+4])
	want := uint32(mdatBodyStart - moofStart)
	if dataOffset != want {
		t.Errorf("trun.data_offset = %d, want %d", dataOffset, want)
	}
}

func TestFragmentEmitsSbgpWhenGrouped(t *testing.T) {
	f := NewFragmenter(1, TrackDefaults{Duration: 1024, Flags: sampleFlags(true)}, "roll")
	f.Add(SampleInfo{Data: []byte{0}, Duration: 1024, Sync: false, SampleGroup: 1})
	f.Add(SampleInfo{Data: []byte{0}, Duration: 1024, Sync: true, SampleGroup: 0})
	out, err := f.Fragment(1, 0, nil)
	if err != nil {
		t.Fatalf("Fragment: %v", err)
	}
	if !bytes.Contains(out, []byte("sbgp")) {
		t.Errorf("fragment with a grouping type doesn't contain sbgp")
	}
}

func TestFragmentLeadsWithEmsg(t *testing.T) {
	f := NewFragmenter(1, TrackDefaults{Duration: 1024, Flags: sampleFlags(true)}, "")
	f.Add(SampleInfo{Data: []byte{0}, Duration: 1024, Sync: true})
	e := newID3Emsg(90000, 0, 1, []byte("ID3"))
	out, err := f.Fragment(1, 0, []Emsg{e})
	if err != nil {
		t.Fatalf("Fragment: %v", err)
	}
	emsgOff := bytes.Index(out, []byte("emsg"))
	moofOff := bytes.Index(out, []byte("moof"))
	if emsgOff < 0 || moofOff < 0 || emsgOff > moofOff {
		t.Errorf("emsg should precede moof in the fragment")
	}
}
