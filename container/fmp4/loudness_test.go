/*
NAME
  loudness_test.go

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

import "testing"

func TestEncodePeakClampsToZero(t *testing.T) {
	if got := EncodePeak(30); got != 0 {
		t.Errorf("EncodePeak(30) = %d, want 0 (peaks above 20dB saturate to not-present)", got)
	}
}

func TestEncodePeakTypicalValue(t *testing.T) {
	got := EncodePeak(-1)
	want := uint16((-1 - 20) * -32)
	if got != want {
		t.Errorf("EncodePeak(-1) = %d, want %d", got, want)
	}
}

func TestLoudnessRecordRequiresAPeak(t *testing.T) {
	r := LoudnessRecord{}
	if err := r.validate(); err == nil {
		t.Fatalf("expected an error for a loudness record with no peaks set")
	}
}

func TestLoudnessRecordRejectsOutOfRangeSystem(t *testing.T) {
	r := LoudnessRecord{TruePeak: 100, System: 6}
	if err := r.validate(); err == nil {
		t.Fatalf("expected an error for system out of [0,5]")
	}
}

func TestLoudnessRecordRejectsOutOfRangeReliability(t *testing.T) {
	r := LoudnessRecord{TruePeak: 100, Reliability: 4}
	if err := r.validate(); err == nil {
		t.Fatalf("expected an error for reliability out of [0,3]")
	}
}

func TestEncodeMeasurementValueScaledDB(t *testing.T) {
	got := EncodeMeasurementValue(MethodProgramLoudness, -23, 0)
	want := clampByte(int(23 * 4))
	if got != want {
		t.Errorf("got %d, want %d", got, want)
	}
}

func TestEncodeMeasurementValueLoudnessRangeTail(t *testing.T) {
	got := EncodeMeasurementValue(MethodLoudnessRange, 40, 0)
	want := clampByte(128 + 8)
	if got != want {
		t.Errorf("got %d, want %d", got, want)
	}
}

func TestEncodeMeasurementValueSoundPressure(t *testing.T) {
	got := EncodeMeasurementValue(MethodSoundPressure, -50, 0)
	if got != 50 {
		t.Errorf("got %d, want 50", got)
	}
}

func TestWriteLoudnessBoxChoosesAlouForAlbumScope(t *testing.T) {
	var b builder
	r := LoudnessRecord{Scope: ScopeAlbum, TruePeak: 100}
	if err := writeLoudnessBox(&b, r); err != nil {
		t.Fatalf("writeLoudnessBox: %v", err)
	}
	out := b.bytes()
	if string(out[4:8]) != "alou" {
		t.Errorf("box type = %q, want alou", out[4:8])
	}
}
