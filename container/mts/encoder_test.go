/*
NAME
  encoder_test.go

AUTHOR
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>
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
	"bytes"
	"io"
	"testing"

	"github.com/Comcast/gots/v2/packet"
	gotspes "github.com/Comcast/gots/v2/pes"

	"github.com/ausocean/hlsmux/container/mts/psi"
)

type discardLogger struct{}

func (discardLogger) SetLevel(int8)                                     {}
func (discardLogger) Log(level int8, msg string, params ...interface{}) {}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

type destination struct {
	packets [][]byte
}

func (d *destination) Write(p []byte) (int, error) {
	tmp := make([]byte, PacketSize)
	copy(tmp, p)
	d.packets = append(d.packets, tmp)
	return len(p), nil
}

// TestEncodeAAC checks that an AAC access unit is correctly encoded into
// a valid MPEG-TS stream on the audio PID, and that the original data
// can be recovered from the resulting PES payload.
func TestEncodeAAC(t *testing.T) {
	data := make([]byte, 0, 440)
	for i := 0; i < 440; i++ {
		data = append(data, byte(i))
	}

	dst := &destination{}
	e, err := NewEncoder(nopCloser{dst}, discardLogger{}, MediaType(EncodeAAC))
	if err != nil {
		t.Fatalf("could not create MTS encoder: %v", err)
	}

	if _, err := e.Write(data, 12345); err != nil {
		t.Fatalf("could not write access unit: %v", err)
	}

	var pesData []byte
	var sawAudioPID, sawPAT, sawPMT bool
	for _, p := range dst.packets {
		var pkt packet.Packet
		copy(pkt[:], p)
		switch pkt.PID() {
		case PatPid:
			sawPAT = true
		case PmtPid:
			sawPMT = true
		case PIDAudio:
			sawAudioPID = true
			payload, err := pkt.Payload()
			if err != nil {
				t.Fatalf("could not get payload: %v", err)
			}
			pesData = append(pesData, payload...)
		}
	}
	if !sawPAT || !sawPMT || !sawAudioPID {
		t.Fatalf("missing expected PIDs: PAT=%v PMT=%v audio=%v", sawPAT, sawPMT, sawAudioPID)
	}

	pesPkt, err := gotspes.NewPESHeader(pesData)
	if err != nil {
		t.Fatalf("could not parse PES: %v", err)
	}
	if !bytes.Equal(pesPkt.Data(), data) {
		t.Errorf("recovered data doesn't match input.\ngot:  % X\nwant: % X", pesPkt.Data(), data)
	}
	if pesPkt.PTS() != 12345 {
		t.Errorf("PTS = %d, want 12345", pesPkt.PTS())
	}
}

// TestPMTHasRegistrationDescriptor checks that a codec requiring a
// registration descriptor (E-AC-3) gets one in the PMT's elementary
// stream entry.
func TestPMTHasRegistrationDescriptor(t *testing.T) {
	var buf bytes.Buffer
	e, err := NewEncoder(nopCloser{&buf}, discardLogger{}, MediaType(EncodeEAC3))
	if err != nil {
		t.Fatalf("could not create MTS encoder: %v", err)
	}
	if !bytes.Contains(e.pmtBytes, []byte("EAC3")) {
		t.Errorf("PMT doesn't carry the EAC3 registration descriptor")
	}
}

// TestWithID3MetadataAddsSecondStream checks that enabling ID3 metadata
// adds a second elementary stream entry to the PMT, and that WriteID3
// emits a PES packet on PIDID3.
func TestWithID3MetadataAddsSecondStream(t *testing.T) {
	var buf bytes.Buffer
	e, err := NewEncoder(nopCloser{&buf}, discardLogger{}, MediaType(EncodeAAC), WithID3Metadata())
	if err != nil {
		t.Fatalf("could not create MTS encoder: %v", err)
	}
	if !bytes.Contains(e.pmtBytes, psi.ID3RegistrationData) {
		t.Errorf("PMT doesn't carry the ID3 registration descriptor")
	}

	if err := e.WriteID3([]byte("ID3\x04\x00\x00\x00\x00\x00\x00"), 90000); err != nil {
		t.Fatalf("WriteID3: %v", err)
	}
	out := buf.Bytes()
	var sawID3 bool
	for i := 0; i+PacketSize <= len(out); i += PacketSize {
		var pkt packet.Packet
		copy(pkt[:], out[i:i+PacketSize])
		if pkt.PID() == PIDID3 {
			sawID3 = true
		}
	}
	if !sawID3 {
		t.Errorf("no packet seen on the ID3 metadata PID")
	}
}

// TestRequestPSIRepeatsTables checks that RequestPSI causes the next
// Write to be preceded by a fresh PAT/PMT pair, as used to make every
// output segment self-contained.
func TestRequestPSIRepeatsTables(t *testing.T) {
	var buf bytes.Buffer
	e, err := NewEncoder(nopCloser{&buf}, discardLogger{}, MediaType(EncodeAAC))
	if err != nil {
		t.Fatalf("could not create MTS encoder: %v", err)
	}
	if _, err := e.Write([]byte{1, 2, 3}, 0); err != nil {
		t.Fatalf("Write: %v", err)
	}
	buf.Reset()
	e.RequestPSI()
	if _, err := e.Write([]byte{4, 5, 6}, 1000); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.Bytes()
	if len(out) < 2*PacketSize {
		t.Fatalf("expected at least a PAT and PMT packet to precede the access unit")
	}
	var pat, pmt packet.Packet
	copy(pat[:], out[:PacketSize])
	copy(pmt[:], out[PacketSize:2*PacketSize])
	if pat.PID() != PatPid || pmt.PID() != PmtPid {
		t.Errorf("expected PAT then PMT immediately after RequestPSI, got PIDs %d, %d", pat.PID(), pmt.PID())
	}
}
