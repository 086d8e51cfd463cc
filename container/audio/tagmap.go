/*
NAME
  tagmap.go

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

// DefaultTagMap maps common, loosely-cased tag keys an upstream
// encoder might produce to the casing each muxer expects on the wire
// (ID3 frame IDs, Vorbis comment field names). It is never consulted
// internally by a muxer - TagList keys are opaque to the core - but is
// offered to callers that want to normalise tags from an arbitrary
// source before calling TagList.Add.
var DefaultTagMap = map[string]string{
	"title":        "TITLE",
	"artist":       "ARTIST",
	"album":        "ALBUM",
	"albumartist":  "ALBUMARTIST",
	"date":         "DATE",
	"year":         "DATE",
	"genre":        "GENRE",
	"track":        "TRACKNUMBER",
	"tracknumber":  "TRACKNUMBER",
	"disc":         "DISCNUMBER",
	"discnumber":   "DISCNUMBER",
	"comment":      "COMMENT",
	"composer":     "COMPOSER",
	"performer":    "PERFORMER",
	"copyright":    "COPYRIGHT",
	"organization": "ORGANIZATION",
}
