/*
NAME
  vorbiscomment.go

AUTHOR
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package ogg

import (
	"encoding/base64"
	"fmt"

	"github.com/ausocean/hlsmux/container/audio"
	"github.com/ausocean/hlsmux/container/audio/bits"
)

// vendor is the string carried in every comment block's vendor field.
const vendor = "hlsmux " + audio.Version

// channelMaskTag is the comment key forced on for non-standard channel
// layouts, causing the receiving decoder to fall back to an explicit
// channel mask instead of the canonical Vorbis/Opus ordering.
const channelMaskTag = "WAVEFORMATEXTENSIBLE_CHANNEL_MASK"

// BuildCommentBlock builds the comment-list body shared by
// VORBIS_COMMENT and OpusTags packets: 4-byte LE vendor length, vendor
// string, 4-byte LE comment count, then per comment a 4-byte LE length
// followed by "KEY=value" UTF-8 bytes. A picture tag (audio.APICKey) is
// base64-encoded into a METADATA_BLOCK_PICTURE comment per the Ogg
// picture-in-comment convention, if mode.Keep() allows it and
// pictureInComment is true; callers whose container already carries a
// dedicated picture block (raw FLAC's PICTURE) pass false so the
// picture isn't duplicated into the comment list. layout, if
// non-standard for its channel count, adds a
// WAVEFORMATEXTENSIBLE_CHANNEL_MASK comment and reports forceChaining
// true, since a decoder must treat the stream as needing an explicit
// channel map and this module re-keys the logical stream's serial
// number when that happens. The caller prepends the container-
// specific framing ("OpusTags" for Ogg-Opus, a FLAC metadata-block
// header for Ogg-FLAC).
func BuildCommentBlock(tags *audio.TagList, layout audio.ChannelLayout, mode audio.ImageMode, pictureInComment bool) (block []byte, forceChaining bool, err error) {
	var comments [][]byte

	if tags != nil {
		for _, tag := range tags.All() {
			if tag.Key == audio.APICKey {
				if !pictureInComment || !mode.Keep() {
					continue
				}
				pic, err := audio.DecodePicture(tag.Value)
				if err != nil {
					return nil, false, fmt.Errorf("ogg: decoding APIC tag: %w", err)
				}
				enc := audio.EncodePicture(pic)
				b64 := base64.StdEncoding.EncodeToString(enc)
				comments = append(comments, []byte("METADATA_BLOCK_PICTURE="+b64))
				continue
			}
			comments = append(comments, []byte(fmt.Sprintf("%s=%s", tag.Key, tag.Value)))
		}
	}

	if !audio.IsStandardVorbisLayout(layout) {
		comments = append(comments, []byte(fmt.Sprintf("%s=0x%X", channelMaskTag, uint64(layout))))
		forceChaining = true
	}

	out := make([]byte, 0, 8+len(vendor)+4*len(comments))
	out = bits.PutUint32LE(out, uint32(len(vendor)))
	out = append(out, vendor...)
	out = bits.PutUint32LE(out, uint32(len(comments)))
	for _, c := range comments {
		out = bits.PutUint32LE(out, uint32(len(c)))
		out = append(out, c...)
	}
	return out, forceChaining, nil
}
