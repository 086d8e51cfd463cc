/*
NAME
  loudness.go

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

import "fmt"

// LoudnessScope distinguishes the two loudness-record scopes ISO/IEC
// 23003-4 defines: a per-track record (tlou) and an album-wide record
// (alou).
type LoudnessScope int

// Loudness scopes.
const (
	ScopeTrack LoudnessScope = iota
	ScopeAlbum
)

// MeasurementMethod identifies one of the five scaled-dB measurement
// forms ISO/IEC 23003-4 defines, plus the loudness-range, sound-
// pressure and room-index forms.
type MeasurementMethod byte

// Measurement methods.
const (
	MethodProgramLoudness    MeasurementMethod = 1
	MethodAnchorLoudness     MeasurementMethod = 3
	MethodMaxMomentary       MeasurementMethod = 4
	MethodMaxShortTerm       MeasurementMethod = 5
	MethodProductionMix      MeasurementMethod = 2
	MethodLoudnessRange      MeasurementMethod = 6
	MethodSoundPressure      MeasurementMethod = 7
	MethodRoomType           MeasurementMethod = 8
)

// Measurement is one count-prefixed entry of a loudness record's
// measurement list: a method, an encoded value, a measurement system
// (0-5) and reliability (0-3).
type Measurement struct {
	Method       MeasurementMethod
	Value        byte
	System       byte
	Reliability  byte
}

// bytes encodes the measurement as method, value, system<<4|reliability.
func (m Measurement) bytes() [3]byte {
	return [3]byte{byte(m.Method), m.Value, m.System<<4 | (m.Reliability & 0x0f)}
}

// EncodeMeasurementValue applies the scaled-dB / loudness-range /
// sound-pressure / room-index encoding ISO/IEC 23003-4 assigns per
// method, returning the 1-byte encoded value.
func EncodeMeasurementValue(method MeasurementMethod, dB float64, roomType byte) byte {
	switch method {
	case MethodProgramLoudness, MethodAnchorLoudness, MethodMaxMomentary, MethodMaxShortTerm, MethodProductionMix:
		v := int((-dB) * 4)
		return clampByte(v)
	case MethodLoudnessRange:
		// Piecewise: 0-128 maps 1:1 to 0-32dB in 0.25dB steps; above
		// that, a coarser 1dB-per-step tail to the 8-bit ceiling.
		if dB <= 32 {
			return clampByte(int(dB * 4))
		}
		return clampByte(128 + int(dB-32))
	case MethodSoundPressure:
		return clampByte(int(dB) + 100)
	case MethodRoomType:
		return roomType
	default:
		return 0
	}
}

func clampByte(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 0xff {
		return 0xff
	}
	return byte(v)
}

// LoudnessRecord is one tlou/alou box's content.
type LoudnessRecord struct {
	Scope        LoudnessScope
	DownmixID    uint16
	DRCSetID     uint16
	SamplePeak   uint16 // Encoded (peak_dB - 20) * -32, clamped; 0 = not present.
	TruePeak     uint16
	System       byte // 0-5.
	Reliability  byte // 0-3.
	Measurements []Measurement
}

// EncodePeak applies the sample/true peak encoding: (peak_dB - 20) *
// -32, clamped to [0, 0xFFFF]; 0 means "not present".
func EncodePeak(peakDB float64) uint16 {
	v := int((peakDB - 20) * -32)
	if v < 0 {
		return 0
	}
	if v > 0xffff {
		return 0xffff
	}
	return uint16(v)
}

// validate checks the invariants the writer enforces before emitting
// a loudness box: at least one of sample_peak/true_peak must be set,
// and system/reliability must be in range.
func (r LoudnessRecord) validate() error {
	if r.SamplePeak == 0 && r.TruePeak == 0 {
		return fmt.Errorf("fmp4: loudness record has neither sample_peak nor true_peak set")
	}
	if r.System > 5 {
		return fmt.Errorf("fmp4: loudness record system %d out of range [0,5]", r.System)
	}
	if r.Reliability > 3 {
		return fmt.Errorf("fmp4: loudness record reliability %d out of range [0,3]", r.Reliability)
	}
	return nil
}

// writeLoudnessBox writes a single tlou or alou box for r.
func writeLoudnessBox(b *builder, r LoudnessRecord) error {
	if err := r.validate(); err != nil {
		return err
	}
	typ := "tlou"
	if r.Scope == ScopeAlbum {
		typ = "alou"
	}
	b.box(typ, func() {
		b.fullBoxHeader(0, 0)
		b.u16(r.DownmixID)
		b.u16(r.DRCSetID)
		packed := uint32(r.SamplePeak&0xfff)<<20 | uint32(r.TruePeak&0xfff)<<8 | uint32(r.System&0xf)<<4 | uint32(r.Reliability&0xf)
		b.u32(packed)
		b.u8(byte(len(r.Measurements)))
		for _, m := range r.Measurements {
			v := m.bytes()
			b.raw(v[:])
		}
	})
	return nil
}

// writeLUDT writes udta/ludt containing one tlou box per TRACK-scoped
// record followed by one alou box per ALBUM-scoped record.
func writeLUDT(b *builder, records []LoudnessRecord) error {
	if len(records) == 0 {
		return nil
	}
	var err error
	b.box("udta", func() {
		b.box("ludt", func() {
			for _, album := range []bool{false, true} {
				for _, r := range records {
					if (r.Scope == ScopeAlbum) != album {
						continue
					}
					if e := writeLoudnessBox(b, r); e != nil {
						err = e
					}
				}
			}
		})
	})
	return err
}
