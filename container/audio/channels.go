/*
NAME
  channels.go

AUTHOR
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package audio

import "fmt"

// ADTSChannelConfig maps a ChannelLayout to one of the 7 channel
// configurations ADTS (and the MPEG-4 audio object type machinery more
// broadly) understands. Layouts that don't match one of these exactly
// are rejected by the ADTS packer.
func ADTSChannelConfig(l ChannelLayout) (int, error) {
	switch l {
	case LayoutMono:
		return 1, nil
	case LayoutStereo:
		return 2, nil
	case Layout3_0:
		return 3, nil
	case Layout4_0:
		return 4, nil
	case Layout5_0:
		return 5, nil
	case Layout5_1:
		return 6, nil
	case Layout7_1:
		return 7, nil
	default:
		return 0, fmt.Errorf("audio: channel layout %#x has no ADTS channel configuration", uint64(l))
	}
}

// vorbisChannelOrder gives, for channel counts 1-8, the Vorbis/Opus
// channel ordering as a list of the Channel* position bits from types.go,
// used when re-ordering PCM or describing a non-standard layout in a
// WAVEFORMATEXTENSIBLE_CHANNEL_MASK comment.
var vorbisChannelOrder = map[int][]ChannelLayout{
	1: {ChannelFC},
	2: {ChannelFL, ChannelFR},
	3: {ChannelFL, ChannelFC, ChannelFR},
	4: {ChannelFL, ChannelFR, ChannelBL, ChannelBR},
	5: {ChannelFL, ChannelFC, ChannelFR, ChannelBL, ChannelBR},
	6: {ChannelFL, ChannelFC, ChannelFR, ChannelBL, ChannelBR, ChannelLFE},
	7: {ChannelFL, ChannelFC, ChannelFR, ChannelSL, ChannelSR, ChannelBC, ChannelLFE},
	8: {ChannelFL, ChannelFC, ChannelFR, ChannelSL, ChannelSR, ChannelBL, ChannelBR, ChannelLFE},
}

// IsStandardVorbisLayout reports whether l matches the canonical
// Vorbis/Opus channel ordering for its channel count exactly, i.e.
// doesn't need an explicit WAVEFORMATEXTENSIBLE_CHANNEL_MASK comment.
func IsStandardVorbisLayout(l ChannelLayout) bool {
	order, ok := vorbisChannelOrder[l.Channels()]
	if !ok {
		return false
	}
	var want ChannelLayout
	for _, c := range order {
		want |= c
	}
	return want == l
}
