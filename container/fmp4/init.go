/*
NAME
  init.go

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
	"fmt"

	"github.com/ausocean/hlsmux/container/audio"
)

// movieTimescale is the fixed timescale used by mvhd/tkhd (distinct
// from each track's own media timescale, which is its sample rate).
const movieTimescale = 1000

// TrackInfo describes the single audio track carried by this writer's
// init segment and every media segment that follows it.
type TrackInfo struct {
	TrackID       uint32
	Codec         audio.CodecTag
	SampleRate    uint32
	ChannelLayout audio.ChannelLayout
	BitDepth      uint16
	DSI           []byte
	RollDistance  int16
	RollType      audio.RollType
	EncoderDelay  uint32 // Pre-roll samples mapped to media-time 0.
	Loudness      []LoudnessRecord
}

// sampleEntryFor returns the codec-specific sample entry box type for
// track.Codec, per the writer's codec-to-box mapping.
func sampleEntryFor(c audio.CodecTag) (string, error) {
	switch c {
	case audio.CodecAAC, audio.CodecMP3:
		return "mp4a", nil
	case audio.CodecALAC:
		return "alac", nil
	case audio.CodecFLAC:
		return "fLaC", nil
	case audio.CodecOpus:
		return "dOps", nil
	case audio.CodecAC3:
		return "dac3", nil
	case audio.CodecEAC3:
		return "dec3", nil
	default:
		return "", fmt.Errorf("fmp4: codec %s has no fMP4 sample entry", c)
	}
}

// validateTrack enforces the writer's pre-write invariants: a stream
// type (always audio here), codec, channel count and time scale must
// all be set, and non-MP3 mp4a tracks must carry DSI.
func validateTrack(t TrackInfo) error {
	if t.Codec == audio.CodecUnknown {
		return fmt.Errorf("fmp4: track has no codec")
	}
	if t.ChannelLayout.Channels() == 0 {
		return fmt.Errorf("fmp4: track has no channels")
	}
	if t.SampleRate == 0 {
		return fmt.Errorf("fmp4: track has no time scale")
	}
	if t.Codec != audio.CodecMP3 && t.Codec != audio.CodecAAC && len(t.DSI) == 0 {
		return fmt.Errorf("fmp4: codec %s requires dsi", t.Codec)
	}
	if t.Codec == audio.CodecAAC && len(t.DSI) == 0 {
		return fmt.Errorf("fmp4: aac track requires dsi")
	}
	return nil
}

// BuildInitSegment builds the ftyp/moov init segment for a single
// audio track.
func BuildInitSegment(t TrackInfo) ([]byte, error) {
	if err := validateTrack(t); err != nil {
		return nil, err
	}
	var b builder
	writeFtyp(&b)
	if err := writeMoov(&b, t); err != nil {
		return nil, err
	}
	return b.bytes(), nil
}

// writeFtyp writes the file-type box: major brand iso6, compatible
// with iso6 and aid3 (this writer's own marker that ID3-carrying emsg
// boxes may appear in media segments).
func writeFtyp(b *builder) {
	b.box("ftyp", func() {
		b.raw([]byte("iso6"))
		b.u32(0)
		b.raw([]byte("iso6"))
		b.raw([]byte("aid3"))
	})
}

func writeMoov(b *builder, t TrackInfo) error {
	var err error
	b.box("moov", func() {
		b.box("mvhd", func() { writeMvhd(b) })
		if e := writeTrak(b, t); e != nil {
			err = e
			return
		}
		b.box("mvex", func() { writeTrex(b, t) })
	})
	return err
}

func writeMvhd(b *builder) {
	b.fullBoxHeader(0, 0)
	b.u32(0)              // creation_time.
	b.u32(0)              // modification_time.
	b.u32(movieTimescale) // timescale.
	b.u32(0)              // duration, unknown for a fragmented file.
	b.u32(0x00010000)     // rate, 1.0.
	b.u16(0x0100)         // volume, 1.0.
	b.u16(0)              // reserved.
	b.u32(0)              // reserved[0].
	b.u32(0)              // reserved[1].
	for _, v := range [9]uint32{0x00010000, 0, 0, 0, 0x00010000, 0, 0, 0, 0x40000000} {
		b.u32(v) // unity transformation matrix.
	}
	for i := 0; i < 6; i++ {
		b.u32(0) // pre_defined.
	}
	b.u32(t0NextTrackID) // next_track_ID.
}

// t0NextTrackID is the next_track_ID mvhd reserves; track IDs in this
// single-track writer start at 1.
const t0NextTrackID = 2

func writeTrak(b *builder, t TrackInfo) error {
	var err error
	b.box("trak", func() {
		b.box("tkhd", func() { writeTkhd(b, t) })
		if t.EncoderDelay > 0 {
			b.box("edts", func() {
				b.box("elst", func() { writeElst(b, t) })
			})
		}
		b.box("mdia", func() {
			b.box("mdhd", func() { writeMdhd(b, t) })
			b.box("hdlr", func() { writeHdlr(b) })
			b.box("minf", func() {
				b.box("smhd", func() { writeSmhd(b) })
				b.box("dinf", func() {
					b.box("dref", func() { writeDref(b) })
				})
				b.box("stbl", func() {
					if e := writeStsd(b, t); e != nil {
						err = e
						return
					}
					writeEmptyTableBoxes(b)
					if t.RollDistance != 0 {
						writeSgpd(b, t)
					}
				})
			})
		})
		if len(t.Loudness) > 0 {
			if e := writeLUDT(b, t.Loudness); e != nil {
				err = e
			}
		}
	})
	return err
}

func writeTkhd(b *builder, t TrackInfo) {
	const flagsTrackEnabled = 0x1
	b.fullBoxHeader(0, flagsTrackEnabled)
	b.u32(0)         // creation_time.
	b.u32(0)         // modification_time.
	b.u32(t.TrackID) // track_ID.
	b.u32(0)         // reserved.
	b.u32(0)         // duration, unknown for a fragmented file.
	b.u32(0)         // reserved[0].
	b.u32(0)         // reserved[1].
	b.u16(0)         // layer.
	b.u16(0)         // alternate_group.
	b.u16(0x0100)    // volume, 1.0 (audio track).
	b.u16(0)         // reserved.
	for _, v := range [9]uint32{0x00010000, 0, 0, 0, 0x00010000, 0, 0, 0, 0x40000000} {
		b.u32(v)
	}
	b.u32(0) // width, unused for audio.
	b.u32(0) // height, unused for audio.
}

// writeElst maps the first EncoderDelay samples to play at media-time
// 0, the single edit-list entry an encoder pre-roll needs.
func writeElst(b *builder, t TrackInfo) {
	b.fullBoxHeader(1, 0)
	b.u32(1) // entry_count.
	b.u64(0) // segment_duration, in movie timescale units; left at 0, filled at playback by duration inference.
	b.u64(uint64(t.EncoderDelay))
	b.u16(1) // media_rate_integer.
	b.u16(0) // media_rate_fraction.
}

func writeMdhd(b *builder, t TrackInfo) {
	b.fullBoxHeader(0, 0)
	b.u32(0)            // creation_time.
	b.u32(0)             // modification_time.
	b.u32(t.SampleRate) // timescale: this track's own media clock.
	b.u32(0)            // duration, unknown for a fragmented file.
	b.u16(0x55c4)        // language: "und", packed 5-bit-per-char.
	b.u16(0)             // pre_defined.
}

func writeHdlr(b *builder) {
	b.fullBoxHeader(0, 0)
	b.u32(0)             // pre_defined.
	b.raw([]byte("soun")) // handler_type.
	b.u32(0)
	b.u32(0)
	b.u32(0) // reserved[3].
	b.cstring("SoundHandler")
}

func writeSmhd(b *builder) {
	b.fullBoxHeader(0, 0)
	b.u16(0) // balance.
	b.u16(0) // reserved.
}

func writeDref(b *builder) {
	b.fullBoxHeader(0, 0)
	b.u32(1) // entry_count.
	b.box("url ", func() {
		b.fullBoxHeader(0, 0x1) // flags=1: media data is in the same file.
	})
}

func writeStsd(b *builder, t TrackInfo) error {
	var err error
	b.box("stsd", func() {
		b.fullBoxHeader(0, 0)
		b.u32(1) // entry_count.
		entry, e := sampleEntryFor(t.Codec)
		if e != nil {
			err = e
			return
		}
		b.box(entry, func() {
			writeAudioSampleEntry(b, t)
			if entry == "mp4a" {
				b.box("esds", func() {
					b.fullBoxHeader(0, 0)
					bufferSize := uint32(t.ChannelLayout.Channels()) * 6144 / 8
					objectType := byte(0x40) // AAC.
					if t.Codec == audio.CodecMP3 {
						objectType = 0x6b
					}
					if e := buildESDSObject(b, objectType, t.DSI, bufferSize); e != nil {
						err = e
					}
				})
			} else {
				b.raw(t.DSI)
			}
		})
	})
	return err
}

// buildESDSObject writes the esds descriptor nest for the given
// objectTypeIndication (0x40 for AAC, 0x6B for MP3); the
// DecoderSpecificInfo descriptor is omitted when dsi is empty, since an
// MP3 track may carry none.
func buildESDSObject(b *builder, objectType byte, dsi []byte, bufferSizeDB uint32) error {
	return descriptor(b, tagESDescriptor, func(es *builder) {
		es.u16(0)
		es.u8(0)
		descriptor(es, tagDecoderConfigDescriptor, func(dc *builder) {
			dc.u8(objectType)
			dc.u8(streamTypeAudio<<2 | 0x01)
			dc.u24(bufferSizeDB)
			dc.u32(0)
			dc.u32(0)
			if len(dsi) > 0 {
				descriptor(dc, tagDecoderSpecificInfo, func(si *builder) {
					si.raw(dsi)
				})
			}
		})
		descriptor(es, tagSLConfigDescriptor, func(sl *builder) {
			sl.u8(2)
		})
	})
}

func writeAudioSampleEntry(b *builder, t TrackInfo) {
	for i := 0; i < 6; i++ {
		b.u8(0) // reserved.
	}
	b.u16(1) // data_reference_index.
	b.u32(0) // reserved[0].
	b.u32(0) // reserved[1].
	b.u16(uint16(t.ChannelLayout.Channels()))
	bitDepth := t.BitDepth
	if bitDepth == 0 {
		bitDepth = 16
	}
	b.u16(bitDepth)
	b.u16(0) // pre_defined.
	b.u16(0) // reserved.
	b.u32(t.SampleRate << 16)
}

// writeEmptyTableBoxes writes the stts/stsc/stsz/stco boxes a
// fragmented file always declares empty in the init segment: every
// sample lives in a moof/mdat media segment, never in the movie box.
func writeEmptyTableBoxes(b *builder) {
	b.box("stts", func() {
		b.fullBoxHeader(0, 0)
		b.u32(0) // entry_count.
	})
	b.box("stsc", func() {
		b.fullBoxHeader(0, 0)
		b.u32(0)
	})
	b.box("stsz", func() {
		b.fullBoxHeader(0, 0)
		b.u32(0) // sample_size.
		b.u32(0) // sample_count.
	})
	b.box("stco", func() {
		b.fullBoxHeader(0, 0)
		b.u32(0)
	})
}

// rollGroupingType returns the sbgp/sgpd grouping_type for t's roll
// semantics: "roll" for pre-roll, "prol" for post-roll.
func rollGroupingType(t audio.RollType) string {
	if t == audio.RollProl {
		return "prol"
	}
	return "roll"
}

func writeSgpd(b *builder, t TrackInfo) {
	b.box("sgpd", func() {
		b.fullBoxHeader(1, 0)
		b.raw([]byte(rollGroupingType(t.RollType)))
		b.u32(2) // default_length: one signed 16-bit roll_distance.
		b.u32(1) // entry_count.
		b.u16(uint16(t.RollDistance))
	})
}

func writeTrex(b *builder, t TrackInfo) {
	b.fullBoxHeader(0, 0)
	b.u32(t.TrackID)
	b.u32(1)    // default_sample_description_index.
	b.u32(1024) // default_sample_duration: AAC's common frame size; tfhd overrides per-fragment if it differs.
	b.u32(0) // default_sample_size.
	b.u32(0) // default_sample_flags.
}
