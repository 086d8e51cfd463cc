/*
NAME
  id3.go

AUTHOR
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package id3 builds ID3v2.4.0 tags: the text, picture and private-data
// frames carried as timed metadata alongside fMP4 (emsg), MPEG-TS and
// packed-audio segments.
package id3

import (
	"fmt"

	"github.com/ausocean/hlsmux/container/audio"
	"github.com/ausocean/hlsmux/container/audio/bits"
)

// headerSize is the fixed ID3v2 header: "ID3", version (0x04 0x00),
// flags, 4-byte sync-safe size.
const headerSize = 10

// encodingUTF8 is the text-encoding byte this package always writes.
const encodingUTF8 = 0x03

// TransportStreamTimestampOwner is the PRIV frame owner identifier
// carrying a 33-bit PTS rescaled to the 90kHz MPEG clock, as used by
// both the MPEG-TS and packed-audio muxers.
const TransportStreamTimestampOwner = "com.apple.streaming.transportStreamTimestamp"

// textFrameMap maps the common tag-list keys this module recognises to
// their ID3v2.4 text frame IDs. Keys with no entry are emitted as
// TXXX:<key> instead.
var textFrameMap = map[string]string{
	"title":        "TIT2",
	"artist":       "TPE1",
	"album":        "TALB",
	"albumartist":  "TPE2",
	"date":         "TDRC",
	"year":         "TDRC",
	"genre":        "TCON",
	"track":        "TRCK",
	"tracknumber":  "TRCK",
	"disc":         "TPOS",
	"discnumber":   "TPOS",
	"composer":     "TCOM",
	"copyright":    "TCOP",
	"organization": "TPUB",
	"grouping":     "GRP1",
	"movementname": "MVNM",
	"movementindex": "MVIN",
	"lyrics":       "USLT",
}

// Kind enumerates the error conditions §7 reserves for the ID3 writer.
type Kind int

// Error kinds.
const (
	ErrOutOfMemory Kind = iota
	ErrUnsupportedFrame
)

// Error is the typed error this package's frame builders return. A
// picture tag that fails to decode in AddTagList is reported as a wrapped
// fmt.Errorf error instead.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return "id3: " + e.Msg }

// Tag accumulates ID3v2.4 frames for a single tag.
type Tag struct {
	frames    [][]byte
	imageMode audio.ImageMode
}

// Option configures a Tag at construction.
type Option func(*Tag)

// WithImageMode sets the policy AddTagList applies to an APICKey tag;
// the default, audio.ModeUnset, drops picture tags. AddAPIC is
// unaffected, since it's a direct, unconditional frame builder.
func WithImageMode(mode audio.ImageMode) Option {
	return func(t *Tag) { t.imageMode = mode }
}

// NewTag returns an empty Tag.
func NewTag(options ...Option) *Tag {
	t := &Tag{}
	for _, o := range options {
		o(t)
	}
	return t
}

// writeFrame appends one frame: 4-byte ID, 4-byte sync-safe size, 2
// flag bytes (always zero; this package never sets frame-level
// flags), payload.
func (t *Tag) writeFrame(id string, payload []byte) {
	if len(id) != 4 {
		panic("id3: frame id must be 4 bytes: " + id)
	}
	size := bits.SyncSafe(uint32(len(payload)))
	f := make([]byte, 0, 10+len(payload))
	f = append(f, id...)
	f = append(f, size[:]...)
	f = append(f, 0, 0) // flags
	f = append(f, payload...)
	t.frames = append(t.frames, f)
}

// AddText adds a text-information frame (T*, GRP1, MVNM, MVIN or
// USLT): one UTF-8 encoding byte, the text, and a terminating NUL.
func (t *Tag) AddText(id, value string) error {
	if len(id) != 4 {
		return &Error{ErrUnsupportedFrame, fmt.Sprintf("invalid text frame id %q", id)}
	}
	payload := make([]byte, 0, 2+len(value))
	payload = append(payload, encodingUTF8)
	payload = append(payload, value...)
	payload = append(payload, 0)
	t.writeFrame(id, payload)
	return nil
}

// AddTXXX adds a user-defined text frame: the encoding byte, the
// description (NUL-terminated), then the value.
func (t *Tag) AddTXXX(description, value string) error {
	payload := make([]byte, 0, 2+len(description)+len(value))
	payload = append(payload, encodingUTF8)
	payload = append(payload, description...)
	payload = append(payload, 0)
	payload = append(payload, value...)
	t.writeFrame("TXXX", payload)
	return nil
}

// AddAPIC converts a FLAC-style picture descriptor into an ID3 APIC
// frame: one encoding byte, the MIME type as a C-string, one picture
// type byte, the description as a C-string, then the raw image data.
func (t *Tag) AddAPIC(pic audio.Picture) error {
	payload := make([]byte, 0, 3+len(pic.MIME)+len(pic.Description)+len(pic.Data))
	payload = append(payload, encodingUTF8)
	payload = append(payload, pic.MIME...)
	payload = append(payload, 0)
	payload = append(payload, byte(pic.Type))
	payload = append(payload, pic.Description...)
	payload = append(payload, 0)
	payload = append(payload, pic.Data...)
	t.writeFrame("APIC", payload)
	return nil
}

// AddPRIV adds a private-data frame: the owner identifier as a
// NUL-terminated C-string, followed by the raw data.
func (t *Tag) AddPRIV(owner string, data []byte) error {
	payload := make([]byte, 0, len(owner)+1+len(data))
	payload = append(payload, owner...)
	payload = append(payload, 0)
	payload = append(payload, data...)
	t.writeFrame("PRIV", payload)
	return nil
}

// AddTransportStreamTimestamp adds the PRIV frame Apple's HLS muxers
// use to carry a sample's PTS in 90kHz units: an 8-byte big-endian
// value holding the 33-bit timestamp, with its upper 31 bits zeroed.
func (t *Tag) AddTransportStreamTimestamp(pts90k uint64) error {
	data := bits.PutUint64BE(nil, pts90k&0x1FFFFFFFF)
	return t.AddPRIV(TransportStreamTimestampOwner, data)
}

// AddTagList converts every tag in tags into an ID3 frame: APICKey
// becomes an APIC frame, keys with an entry in textFrameMap become the
// corresponding text frame, and everything else becomes TXXX.
func (t *Tag) AddTagList(tags *audio.TagList) error {
	if tags == nil {
		return nil
	}
	for _, tag := range tags.All() {
		if tag.Key == audio.APICKey {
			if !t.imageMode.Keep() {
				continue
			}
			pic, err := audio.DecodePicture(tag.Value)
			if err != nil {
				return fmt.Errorf("id3: decoding APIC tag: %w", err)
			}
			if err := t.AddAPIC(pic); err != nil {
				return err
			}
			continue
		}
		if id, ok := textFrameMap[tag.Key]; ok {
			if err := t.AddText(id, string(tag.Value)); err != nil {
				return err
			}
			continue
		}
		if err := t.AddTXXX(tag.Key, string(tag.Value)); err != nil {
			return err
		}
	}
	return nil
}

// Bytes composes the full ID3v2.4.0 tag: the 10-byte header ("ID3",
// version 0x04 0x00, flags 0, sync-safe size) followed by every frame
// added so far.
func (t *Tag) Bytes() ([]byte, error) {
	var body int
	for _, f := range t.frames {
		body += len(f)
	}
	out := make([]byte, 0, headerSize+body)
	out = append(out, 'I', 'D', '3', 0x04, 0x00, 0x00)
	size := bits.SyncSafe(uint32(body))
	out = append(out, size[:]...)
	for _, f := range t.frames {
		out = append(out, f...)
	}
	return out, nil
}

// Empty reports whether no frames have been added.
func (t *Tag) Empty() bool { return len(t.frames) == 0 }
