/*
NAME
  bytescanner.go

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

import "io"

// DecodePicture parses a FLAC-style picture-block descriptor: picture
// type u32be, mime-length u32be, mime, description-length u32be,
// description, width/height/depth/colors u32be each, data-length u32be,
// data. This is the layout carried by a TagList tag whose key is
// APICKey, shared verbatim by the FLAC PICTURE metadata block and (in
// converted form) ID3's APIC frame.
func DecodePicture(b []byte) (Picture, error) {
	var p Picture
	rd := func(n int) ([]byte, error) {
		if len(b) < n {
			return nil, io.ErrUnexpectedEOF
		}
		v := b[:n]
		b = b[n:]
		return v, nil
	}
	u32 := func() (uint32, error) {
		v, err := rd(4)
		if err != nil {
			return 0, err
		}
		return uint32(v[0])<<24 | uint32(v[1])<<16 | uint32(v[2])<<8 | uint32(v[3]), nil
	}

	var err error
	if p.Type, err = u32(); err != nil {
		return p, err
	}
	mimeLen, err := u32()
	if err != nil {
		return p, err
	}
	mb, err := rd(int(mimeLen))
	if err != nil {
		return p, err
	}
	p.MIME = string(mb)
	descLen, err := u32()
	if err != nil {
		return p, err
	}
	db, err := rd(int(descLen))
	if err != nil {
		return p, err
	}
	p.Description = string(db)
	if p.Width, err = u32(); err != nil {
		return p, err
	}
	if p.Height, err = u32(); err != nil {
		return p, err
	}
	if p.Depth, err = u32(); err != nil {
		return p, err
	}
	if p.Colors, err = u32(); err != nil {
		return p, err
	}
	dataLen, err := u32()
	if err != nil {
		return p, err
	}
	data, err := rd(int(dataLen))
	if err != nil {
		return p, err
	}
	p.Data = data
	return p, nil
}

// EncodePicture serialises a Picture back into the FLAC-style
// descriptor layout DecodePicture parses.
func EncodePicture(p Picture) []byte {
	out := make([]byte, 0, 24+len(p.MIME)+len(p.Description)+len(p.Data))
	put32 := func(v uint32) {
		out = append(out, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	}
	put32(p.Type)
	put32(uint32(len(p.MIME)))
	out = append(out, p.MIME...)
	put32(uint32(len(p.Description)))
	out = append(out, p.Description...)
	put32(p.Width)
	put32(p.Height)
	put32(p.Depth)
	put32(p.Colors)
	put32(uint32(len(p.Data)))
	out = append(out, p.Data...)
	return out
}
