/*
NAME
  imagemode.go

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

// ImageMode is a muxer's policy for handling a Picture attached via
// APICKey: a bitmask of whether to keep it at all, and (if kept)
// whether it travels embedded in the segment stream rather than out
// of band. Only code that embeds pictures directly (container/id3's
// APIC frame, container/flac's PICTURE block and container/ogg's
// METADATA_BLOCK_PICTURE comment) consults it; this
// module has no out-of-band delivery path, so ModeInband is carried
// through for completeness but has no effect beyond ModeKeep alone.
type ImageMode int

// Image modes. ModeUnset (the zero value) drops a picture tag
// entirely, matching the default a caller gets by never setting a
// mode.
const (
	ModeUnset  ImageMode = 0x00
	ModeKeep   ImageMode = 0x01
	ModeInband ImageMode = 0x02
)

// Keep reports whether mode retains a picture tag rather than
// dropping it.
func (mode ImageMode) Keep() bool { return mode&ModeKeep != 0 }

// Inband reports whether a kept picture should travel embedded in the
// segment stream, as opposed to referenced out of band.
func (mode ImageMode) Inband() bool { return mode&ModeInband != 0 }
