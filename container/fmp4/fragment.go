/*
NAME
  fragment.go

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

// Sample-flags sample_depends_on values (ISO/IEC 14496-12 §8.8.3.1).
const (
	dependsOnOthers uint32 = 1 // This sample depends on other samples.
	dependsOnNone   uint32 = 2 // This sample does not depend on others.
)

// sampleFlags packs sample_depends_on and sample_is_non_sync_sample
// into the 32-bit sample_flags word; all other subfields (is_leading,
// is_depended_on, has_redundancy, padding, degradation_priority) are
// left zero, since this writer never sets them.
func sampleFlags(sync bool) uint32 {
	if sync {
		return dependsOnNone << 24
	}
	return dependsOnOthers<<24 | 1<<16
}

// SampleInfo is one access unit queued for the next fragment.
type SampleInfo struct {
	Data        []byte
	Duration    uint32
	Sync        bool
	SampleGroup uint32 // Only meaningful when the track declares a roll distance.
}

// TrackDefaults mirrors the trex defaults a tfhd compares samples
// against to decide whether a field can be omitted.
type TrackDefaults struct {
	Duration uint32
	Size     uint32
	Flags    uint32
}

// Fragmenter buffers one track's samples until Fragment is called,
// applying the trun/tfhd uniformity heuristic: the second sample's
// duration/size/flags seed the candidate defaults, and any later
// sample that disagrees clears the corresponding uniform bit.
type Fragmenter struct {
	trackID      uint32
	defaults     TrackDefaults
	groupingType string // Non-empty enables sbgp; must match the trak's sgpd grouping_type.

	pending []SampleInfo
}

// NewFragmenter returns a Fragmenter for trackID, comparing candidate
// per-fragment defaults against the trak's trex defaults. groupingType
// should be the same "roll"/"prol" value passed to the trak's sgpd, or
// empty to omit sbgp entirely.
func NewFragmenter(trackID uint32, defaults TrackDefaults, groupingType string) *Fragmenter {
	return &Fragmenter{trackID: trackID, defaults: defaults, groupingType: groupingType}
}

// Add queues one sample for the in-progress fragment.
func (f *Fragmenter) Add(s SampleInfo) { f.pending = append(f.pending, s) }

// Len returns the number of samples queued so far.
func (f *Fragmenter) Len() int { return len(f.pending) }

// uniformFields is the result computeUniform derives from a fragment's
// samples with the three-phase heuristic: the candidate tfhd
// default-duration/size/flags, whether each is uniform across the trun
// (false meaning "use per-sample arrays"), and whether the first
// sample's flags must be emitted separately in trun.
type uniformFields struct {
	duration, size, flags     uint32
	uniformDuration, uniformSize, uniformFlags bool
	firstSampleFlags          uint32
	firstDiffersInFlags       bool
}

func computeUniform(samples []SampleInfo) uniformFields {
	var u uniformFields
	if len(samples) == 0 {
		return u
	}
	first := samples[0]
	u.duration = first.Duration
	u.size = uint32(len(first.Data))
	u.flags = sampleFlags(first.Sync)
	u.firstSampleFlags = u.flags
	if len(samples) == 1 {
		return u
	}
	second := samples[1]
	u.duration = second.Duration
	u.size = uint32(len(second.Data))
	u.flags = sampleFlags(second.Sync)
	u.uniformDuration = true
	u.uniformSize = true
	u.uniformFlags = true
	for _, s := range samples[1:] {
		if s.Duration != u.duration {
			u.uniformDuration = false
		}
		if uint32(len(s.Data)) != u.size {
			u.uniformSize = false
		}
		if sampleFlags(s.Sync) != u.flags {
			u.uniformFlags = false
		}
	}
	u.firstDiffersInFlags = u.firstSampleFlags != u.flags
	return u
}

// tfhd/tfdt/trun flag bits (ISO/IEC 14496-12 §8.8.7, §8.8.12, §8.8.8).
const (
	tfhdBaseDataOffsetPresent      = 0x000001
	tfhdDefaultSampleDurationPresent = 0x000008
	tfhdDefaultSampleSizePresent   = 0x000010
	tfhdDefaultSampleFlagsPresent  = 0x000020
	tfhdDefaultBaseIsMoof          = 0x020000

	trunDataOffsetPresent    = 0x000001
	trunFirstSampleFlagsPresent = 0x000004
	trunSampleDurationPresent = 0x000100
	trunSampleSizePresent    = 0x000200
	trunSampleFlagsPresent   = 0x000400
)

// Fragment builds the styp/emsg/moof/mdat media segment for the
// queued samples, resetting the Fragmenter for the next fragment.
// baseMediaDecodeTime is the track-timescale position of the first
// queued sample; seqNum is the moof's monotonic fragment number.
func (f *Fragmenter) Fragment(seqNum uint32, baseMediaDecodeTime uint64, emsgs []Emsg) ([]byte, error) {
	if len(f.pending) == 0 {
		return nil, fmt.Errorf("fmp4: Fragment called with no queued samples")
	}
	samples := f.pending
	f.pending = nil
	u := computeUniform(samples)

	var b builder
	writeStyp(&b)
	for _, e := range emsgs {
		if err := writeEmsg(&b, e); err != nil {
			return nil, err
		}
	}

	moofStartOffset := b.patchOffset()
	var dataOffsetFieldOffset int
	b.box("moof", func() {
		b.box("mfhd", func() {
			b.fullBoxHeader(0, 0)
			b.u32(seqNum)
		})
		b.box("traf", func() {
			f.writeTfhd(&b, u)
			f.writeTfdt(&b, baseMediaDecodeTime)
			dataOffsetFieldOffset = f.writeTrun(&b, samples, u)
			if f.groupingType != "" {
				writeSbgp(&b, f.groupingType, samples)
			}
		})
	})

	b.begin("mdat")
	mdatBodyStart := b.patchOffset()
	for _, s := range samples {
		b.raw(s.Data)
	}
	b.end("mdat")

	// trun's data_offset is mdat's body start relative to moof's start.
	dataOffset := uint32(mdatBodyStart - moofStartOffset)
	b.patchUint32At(dataOffsetFieldOffset, dataOffset)

	return b.bytes(), nil
}

// writeStyp writes the segment-type box, mirroring ftyp's layout but
// naming the DASH media-segment brand.
func writeStyp(b *builder) {
	b.box("styp", func() {
		b.raw([]byte("msdh"))
		b.u32(0)
		b.raw([]byte("msdh"))
	})
}

func (f *Fragmenter) writeTfhd(b *builder, u uniformFields) {
	// base-data-offset is omitted; default-base-is-moof is used instead.
	flags := uint32(tfhdDefaultBaseIsMoof)
	if u.uniformDuration && u.duration != f.defaults.Duration {
		flags |= tfhdDefaultSampleDurationPresent
	}
	if u.uniformSize && u.size != f.defaults.Size {
		flags |= tfhdDefaultSampleSizePresent
	}
	if u.uniformFlags && u.flags != f.defaults.Flags {
		flags |= tfhdDefaultSampleFlagsPresent
	}
	b.box("tfhd", func() {
		b.fullBoxHeader(0, flags)
		b.u32(f.trackID)
		if flags&tfhdDefaultSampleDurationPresent != 0 {
			b.u32(u.duration)
		}
		if flags&tfhdDefaultSampleSizePresent != 0 {
			b.u32(u.size)
		}
		if flags&tfhdDefaultSampleFlagsPresent != 0 {
			b.u32(u.flags)
		}
	})
}

func (f *Fragmenter) writeTfdt(b *builder, baseMediaDecodeTime uint64) {
	b.box("tfdt", func() {
		b.fullBoxHeader(1, 0)
		b.u64(baseMediaDecodeTime)
	})
}

// writeTrun writes the trun box and returns the buffer offset of its
// data_offset field, so the caller can back-patch it once mdat's
// extent is known.
func (f *Fragmenter) writeTrun(b *builder, samples []SampleInfo, u uniformFields) int {
	flags := uint32(trunDataOffsetPresent)
	if !u.uniformDuration {
		flags |= trunSampleDurationPresent
	}
	if !u.uniformSize {
		flags |= trunSampleSizePresent
	}
	if !u.uniformFlags {
		flags |= trunSampleFlagsPresent
	} else if u.firstDiffersInFlags {
		flags |= trunFirstSampleFlagsPresent
	}

	var dataOffsetFieldOffset int
	b.box("trun", func() {
		b.fullBoxHeader(0, flags)
		b.u32(uint32(len(samples)))

		dataOffsetFieldOffset = b.patchOffset()
		b.u32(0) // data_offset, back-patched once mdat begins.

		if flags&trunFirstSampleFlagsPresent != 0 {
			b.u32(u.firstSampleFlags)
		}
		for _, s := range samples {
			if flags&trunSampleDurationPresent != 0 {
				b.u32(s.Duration)
			}
			if flags&trunSampleSizePresent != 0 {
				b.u32(uint32(len(s.Data)))
			}
			if flags&trunSampleFlagsPresent != 0 {
				b.u32(sampleFlags(s.Sync))
			}
		}
	})
	return dataOffsetFieldOffset
}

// writeSbgp writes the sample-to-group box for groupingType ("roll" or
// "prol"), run-length compressing consecutive samples that share a
// SampleGroup.
func writeSbgp(b *builder, groupingType string, samples []SampleInfo) {
	type run struct {
		group uint32
		count uint32
	}
	var runs []run
	for _, s := range samples {
		if len(runs) > 0 && runs[len(runs)-1].group == s.SampleGroup {
			runs[len(runs)-1].count++
			continue
		}
		runs = append(runs, run{group: s.SampleGroup, count: 1})
	}
	b.box("sbgp", func() {
		b.fullBoxHeader(0, 0)
		b.raw([]byte(groupingType))
		b.u32(uint32(len(runs)))
		for _, r := range runs {
			b.u32(r.count)
			b.u32(r.group)
		}
	})
}
