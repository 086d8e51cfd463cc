/*
DESCRIPTION
  options.go provides option functions that can be provided to the MTS encoders
  constructor NewEncoder for encoder configuration. These options select the
  audio media type and enable an ID3 timed-metadata stream.

AUTHOR
  Saxon Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved. 

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/


package mts

import (
	"errors"

	"github.com/ausocean/hlsmux/container/mts/pes"
	"github.com/ausocean/utils/logging"
)

var ErrUnsupportedMedia = errors.New("unsupported media type")

// MediaType is an option that can be passed to NewEncoder. It selects
// the audio codec being packetized, setting the PES stream ID and PMT
// stream_type the encoder will use. Currently supported options are
// EncodeAAC, EncodeMP3, EncodeAC3, EncodeEAC3 and EncodeOpus.
func MediaType(mt int) func(*Encoder) error {
	return func(e *Encoder) error {
		switch mt {
		case EncodeAAC, EncodeMP3:
			e.streamID = pes.AudioSID
		case EncodeAC3, EncodeEAC3, EncodeOpus:
			e.streamID = pes.PrivateStream1SID
		default:
			return ErrUnsupportedMedia
		}
		e.mediaCodec = mt
		e.log.Log(logging.Debug, pkg+"configured media type", "codec", mt)
		return nil
	}
}

// WithID3Metadata is an option that can be passed to NewEncoder to add
// a second elementary stream, carrying ID3 timed metadata on PIDID3
// alongside the audio stream, as described by the PMT's registration
// descriptor for the "ID3 " format identifier.
func WithID3Metadata() func(*Encoder) error {
	return func(e *Encoder) error {
		e.withID3 = true
		e.continuity[PIDID3] = 0
		e.log.Log(logging.Debug, pkg+"configured for ID3 timed metadata")
		return nil
	}
}
