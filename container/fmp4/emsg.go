/*
NAME
  emsg.go

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

// id3EmsgScheme and id3EmsgValue identify an ID3-carrying DASH event
// message, per the scheme URI HLS/DASH implementations recognise for
// timed ID3 relayed through emsg.
const (
	id3EmsgScheme = "https://aomedia.org/emsg/ID3"
	id3EmsgValue  = "0"
)

// Emsg is one ISO 23009-1 event-message box. Version 1 (preferred)
// orders fields timescale, presentation_time, event_duration, id,
// scheme_id_uri, value, message; version 0 instead carries a
// presentation_time_delta relative to the enclosing segment and
// orders scheme_id_uri/value before timescale.
type Emsg struct {
	Version          uint8
	Timescale        uint32
	PresentationTime uint64 // Version 1 only.
	PresentationTimeDelta uint32 // Version 0 only.
	Duration         uint32
	ID               uint32
	Scheme           string
	Value            string
	Message          []byte
}

// validate enforces the writer's emsg invariants: scheme, value and
// message must all be present.
func (e Emsg) validate() error {
	if e.Scheme == "" {
		return fmt.Errorf("fmp4: emsg missing scheme")
	}
	if e.Value == "" {
		return fmt.Errorf("fmp4: emsg missing value")
	}
	if e.Message == nil {
		return fmt.Errorf("fmp4: emsg missing message")
	}
	if e.Version > 1 {
		return fmt.Errorf("fmp4: invalid emsg version %d", e.Version)
	}
	return nil
}

// writeEmsg appends one emsg box to b.
func writeEmsg(b *builder, e Emsg) error {
	if err := e.validate(); err != nil {
		return err
	}
	b.box("emsg", func() {
		b.fullBoxHeader(e.Version, 0)
		if e.Version == 1 {
			b.u32(e.Timescale)
			b.u64(e.PresentationTime)
			b.u32(e.Duration)
			b.u32(e.ID)
			b.cstring(e.Scheme)
			b.cstring(e.Value)
		} else {
			b.cstring(e.Scheme)
			b.cstring(e.Value)
			b.u32(e.Timescale)
			b.u32(e.PresentationTimeDelta)
			b.u32(e.Duration)
			b.u32(e.ID)
		}
		b.raw(e.Message)
	})
	return nil
}

// newID3Emsg builds an emsg carrying id3Data as a timed ID3 event
// starting at presentation time pts (in timescale units), with a
// duration that is back-filled once the event's extent is known.
func newID3Emsg(timescale uint32, pts uint64, id uint32, id3Data []byte) Emsg {
	return Emsg{
		Version:          1,
		Timescale:        timescale,
		PresentationTime: pts,
		ID:               id,
		Scheme:           id3EmsgScheme,
		Value:            id3EmsgValue,
		Message:          id3Data,
	}
}
