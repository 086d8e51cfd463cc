/*
NAME
  encoder.go

AUTHOR
  Saxon Nelson-Milton <saxon@ausocean.org>
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package mts

import (
	"fmt"
	"io"

	"github.com/ausocean/hlsmux/container/mts/pes"
	"github.com/ausocean/hlsmux/container/mts/psi"
	"github.com/ausocean/utils/logging"
)

// Constants used to communicate which audio codec will be packetized.
const (
	EncodeAAC = iota
	EncodeMP3
	EncodeAC3
	EncodeEAC3
	EncodeOpus
)

// The program IDs we assign to different types of media.
const (
	PIDAudio = 0x0100
	PIDID3   = 0x0101
)

// Time-related constants.
const (
	// pcrLookahead is subtracted from a frame's PTS to derive the PCR
	// carried on the packet that starts its PES, giving downstream
	// demuxers time to prime their clocks before presentation.
	pcrLookahead = 700 * 90000 / 1000 // 700ms of 90kHz ticks.

	// PTSOffset is added by the muxer to a sample's rescaled PTS before
	// it reaches the audio PES, so that the first segment's PCR (PTS -
	// pcrLookahead) never needs clamping to zero.
	PTSOffset = 2 * pcrLookahead // 126000 ticks.

	// PCRFrequency is the base Program Clock Reference frequency in Hz.
	PCRFrequency = 90000

	// PTSFrequency is the presentation timestamp frequency in Hz.
	PTSFrequency = 90000

	// MaxPTS is the largest PTS value (i.e., for a 33-bit unsigned integer).
	MaxPTS = (1 << 33) - 1
)

const (
	hasPayload         = 0x1
	hasAdaptationField = 0x2
)

const (
	hasDTS = 0x1
	hasPTS = 0x2
)

// streamTypeFor and registrationDataFor give the PMT stream_type for
// each supported audio codec, per ISO/IEC 13818-1 table 2-34, and the
// registration descriptor payload used by codecs without a reserved
// stream_type (AC-3, E-AC-3, Opus).
var streamTypeFor = map[int]byte{
	EncodeAAC:  0x0F, // ISO/IEC 13818-7 Audio with ADTS transport.
	EncodeMP3:  0x03, // ISO/IEC 11172-3 Audio.
	EncodeAC3:  0x81, // ATSC A/52 registered stream type.
	EncodeEAC3: 0x87, // ATSC A/52 Annex E registered stream type.
	EncodeOpus: 0x06, // PES packets, format identified by registration descriptor.
}

var registrationDataFor = map[int][]byte{
	EncodeAC3:  []byte("AC-3"),
	EncodeEAC3: []byte("EAC3"),
	EncodeOpus: []byte("Opus"),
}

const (
	metadataStreamType = 0x15 // ID3 in PES packets, ISO/IEC 13818-1 amendment.
	metadataStreamID   = 0xFC // PES stream_id for a "metadata_stream".
)

// pkg is used as a log-line prefix throughout this package.
const pkg = "container/mts: "

// Encoder encapsulates the properties of an MPEG-TS generator carrying
// a single audio elementary stream, and optionally an ID3 timed
// metadata stream alongside it.
type Encoder struct {
	dst io.WriteCloser

	tsSpace  [PacketSize]byte
	pesSpace [pes.MaxPesSize]byte

	continuity map[uint16]byte

	mediaCodec int
	mediaPID   uint16
	streamID   byte
	withID3    bool

	pmt                *psi.PSI
	patBytes, pmtBytes []byte

	// needPSI is set whenever the caller should precede the next
	// access unit with a fresh PAT/PMT, e.g. at the start of a new
	// output segment so that the segment is self-contained.
	needPSI bool

	log logging.Logger
}

// NewEncoder returns an Encoder for the audio codec selected by a
// MediaType option; EncodeAAC is used if none is given.
func NewEncoder(dst io.WriteCloser, log logging.Logger, options ...func(*Encoder) error) (*Encoder, error) {
	e := &Encoder{
		dst:        dst,
		mediaCodec: EncodeAAC,
		mediaPID:   PIDAudio,
		streamID:   pes.AudioSID,
		continuity: map[uint16]byte{PatPid: 0, PmtPid: 0, PIDAudio: 0},
		log:        log,
		patBytes:   psi.NewPATPSI().Bytes(),
		pmt:        psi.NewPMTPSI(),
		needPSI:    true,
	}

	for _, option := range options {
		err := option(e)
		if err != nil {
			return nil, fmt.Errorf("option failed with error: %w", err)
		}
	}
	log.Log(logging.Debug, pkg+"encoder options applied")

	e.buildPMT()

	return e, nil
}

// buildPMT (re)builds the cached PMT bytes for the encoder's currently
// configured audio stream, adding a registration descriptor for codecs
// that need one to be identified.
func (e *Encoder) buildPMT() {
	pmt := e.pmt.SyntaxSection.SpecificData.(*psi.PMT)
	ssd := pmt.StreamSpecificData
	ssd.StreamType = streamTypeFor[e.mediaCodec]
	ssd.PID = e.mediaPID
	if reg, ok := registrationDataFor[e.mediaCodec]; ok {
		ssd.Descriptors = []psi.Descriptor{{Tag: psi.RegistrationDescriptorTag, Len: byte(len(reg)), Data: reg}}
		ssd.StreamInfoLen = uint16(2 + len(reg))
	} else {
		ssd.Descriptors = nil
		ssd.StreamInfoLen = 0
	}

	if e.withID3 {
		pmt.ExtraStreams = []*psi.StreamSpecificData{{
			StreamType:    metadataStreamType,
			PID:           PIDID3,
			StreamInfoLen: uint16(2 + len(psi.ID3RegistrationData)),
			Descriptors:   []psi.Descriptor{{Tag: psi.RegistrationDescriptorTag, Len: byte(len(psi.ID3RegistrationData)), Data: psi.ID3RegistrationData}},
		}}
	} else {
		pmt.ExtraStreams = nil
	}

	const crcSize = 4 // Trailing CRC-32, counted in section_length but not in SyntaxSection.Bytes().
	e.pmt.SectionLen = uint16(len(e.pmt.SyntaxSection.Bytes()) + crcSize)
	e.pmtBytes = e.pmt.Bytes()
}

// RequestPSI marks the encoder so that the next call to Write or
// WriteID3 is preceded by a fresh PAT/PMT pair, used by the muxer
// wrapper to make every output segment self-contained.
func (e *Encoder) RequestPSI() { e.needPSI = true }

// Write takes an access unit already
// framed for the configured codec (e.g. an ADTS frame or an MP3
// frame) tagged with a 90kHz pts, and encodes it into MPEG-TS,
// writing the result to the encoder's destination.
func (e *Encoder) Write(data []byte, pts uint64) (int, error) {
	e.log.Log(logging.Debug, pkg+"writing access unit", "len(data)", len(data), "pts", pts)
	if e.needPSI {
		if err := e.writePSI(); err != nil {
			return 0, err
		}
		e.needPSI = false
	}

	pesPkt := pes.Packet{
		StreamID:     e.streamID,
		PDI:          hasPTS,
		PTS:          pts,
		Data:         data,
		HeaderLength: 5,
	}

	buf := pesPkt.Bytes(e.pesSpace[:pes.MaxPesSize])

	pusi := true
	for len(buf) != 0 {
		pkt := Packet{
			PUSI: pusi,
			PID:  e.mediaPID,
			RAI:  pusi,
			CC:   e.ccFor(e.mediaPID),
			AFC:  hasAdaptationField | hasPayload,
			PCRF: pusi,
		}
		n := pkt.FillPayload(buf)
		buf = buf[n:]

		if pusi {
			pcr := pcrFor(pts)
			e.log.Log(logging.Debug, pkg+"new access unit", "PCR", pcr, "PTS", pts)
			pkt.PCR = pcr
			pusi = false
		}

		b := pkt.Bytes(e.tsSpace[:PacketSize])
		_, err := e.dst.Write(b)
		if err != nil {
			return len(data), fmt.Errorf("could not write MTS packet to destination: %w", err)
		}
	}

	return len(data), nil
}

// WriteID3 packetizes an ID3 tag as a PES packet on the metadata PID,
// timestamped to align with the audio access unit it describes. It is
// a no-op if the encoder wasn't configured with WithID3Metadata.
func (e *Encoder) WriteID3(tag []byte, pts uint64) error {
	if !e.withID3 {
		return nil
	}
	if e.needPSI {
		if err := e.writePSI(); err != nil {
			return err
		}
		e.needPSI = false
	}
	pesPkt := pes.Packet{
		StreamID:     metadataStreamID,
		PDI:          hasPTS,
		PTS:          pts,
		Data:         tag,
		HeaderLength: 5,
	}
	buf := pesPkt.Bytes(e.pesSpace[:pes.MaxPesSize])
	pusi := true
	for len(buf) != 0 {
		pkt := Packet{
			PUSI: pusi,
			PID:  PIDID3,
			CC:   e.ccFor(PIDID3),
			AFC:  hasAdaptationField | hasPayload,
		}
		n := pkt.FillPayload(buf)
		buf = buf[n:]
		b := pkt.Bytes(e.tsSpace[:PacketSize])
		if _, err := e.dst.Write(b); err != nil {
			return fmt.Errorf("could not write ID3 MTS packet to destination: %w", err)
		}
		pusi = false
	}
	return nil
}

// writePSI writes a PAT followed by the cached PMT to the destination.
func (e *Encoder) writePSI() error {
	patPkt := Packet{
		PUSI:    true,
		PID:     PatPid,
		CC:      e.ccFor(PatPid),
		AFC:     hasPayload,
		Payload: psi.AddPadding(e.patBytes),
	}
	_, err := e.dst.Write(patPkt.Bytes(e.tsSpace[:PacketSize]))
	if err != nil {
		return fmt.Errorf("could not write pat packet: %w", err)
	}

	pmtPkt := Packet{
		PUSI:    true,
		PID:     PmtPid,
		CC:      e.ccFor(PmtPid),
		AFC:     hasPayload,
		Payload: psi.AddPadding(e.pmtBytes),
	}
	_, err = e.dst.Write(pmtPkt.Bytes(e.tsSpace[:PacketSize]))
	if err != nil {
		return fmt.Errorf("could not write pmt packet: %w", err)
	}

	e.log.Log(logging.Debug, pkg+"PSI written", "PAT CC", patPkt.CC, "PMT CC", pmtPkt.CC)
	return nil
}

// pcrFor returns the program clock reference to stamp onto the packet
// that starts the PES carrying the access unit presented at pts.
func pcrFor(pts uint64) uint64 {
	if pts < pcrLookahead {
		return 0
	}
	return pts - pcrLookahead
}

// ccFor returns the next continuity counter for pid.
func (e *Encoder) ccFor(pid uint16) byte {
	cc := e.continuity[pid]
	const continuityCounterMask = 0xf
	e.continuity[pid] = (cc + 1) & continuityCounterMask
	return cc
}

func (e *Encoder) Close() error {
	e.log.Log(logging.Debug, pkg+"closing encoder")
	return e.dst.Close()
}
