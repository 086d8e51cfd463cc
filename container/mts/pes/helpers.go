/*
DESCRIPTIONS
  helpers.go provides general codec related helper functions.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved. 

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/


package pes

import "errors"

// PES stream IDs as per ITU-T Rec. H.222.0 / ISO/IEC 13818-1, table
// 2-22. AudioSID (audio stream 0) carries AAC and MP3; PrivateStream1SID
// carries codecs without a reserved audio stream_id, such as AC-3,
// E-AC-3 and Opus.
const (
	AudioSID         = 0xC0
	PrivateStream1SID = 0xBD
)

// SIDToMIMEType will return the corresponding MIME type for passed stream ID.
func SIDToMIMEType(id int) (string, error) {
	switch id {
	case AudioSID:
		return "audio/mpeg", nil
	case PrivateStream1SID:
		return "audio/ac3", nil
	default:
		return "", errors.New("unknown stream ID")
	}
}
