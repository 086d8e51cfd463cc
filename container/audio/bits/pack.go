/*
NAME
  pack.go

AUTHOR
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package bits

import "encoding/binary"

// PutUint16BE, PutUint24BE, PutUint32BE and PutUint64BE append the
// big-endian encoding of v to dst and return the grown slice. 24-bit
// values have no stdlib equivalent, so it's written out by hand; the
// others are thin wrappers over encoding/binary for symmetry.
func PutUint16BE(dst []byte, v uint16) []byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return append(dst, b[:]...)
}

func PutUint24BE(dst []byte, v uint32) []byte {
	return append(dst, byte(v>>16), byte(v>>8), byte(v))
}

func PutUint32BE(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

func PutUint64BE(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

func Uint16BE(b []byte) uint16 { return binary.BigEndian.Uint16(b) }
func Uint24BE(b []byte) uint32 { return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2]) }
func Uint32BE(b []byte) uint32 { return binary.BigEndian.Uint32(b) }
func Uint64BE(b []byte) uint64 { return binary.BigEndian.Uint64(b) }

// PutUint16LE, PutUint32LE and PutUint64LE append the little-endian
// encoding of v to dst and return the grown slice.
func PutUint16LE(dst []byte, v uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return append(dst, b[:]...)
}

func PutUint32LE(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

func PutUint64LE(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

func Uint16LE(b []byte) uint16 { return binary.LittleEndian.Uint16(b) }
func Uint32LE(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }
func Uint64LE(b []byte) uint64 { return binary.LittleEndian.Uint64(b) }

// SyncSafe encodes a 28-bit value as a 4-byte sync-safe integer (ID3's
// scheme): the most significant bit of each byte is cleared, carrying
// 7 bits per byte, so the encoded bytes never contain a value that
// could be mistaken for an MPEG sync pattern.
func SyncSafe(v uint32) [4]byte {
	return [4]byte{
		byte((v >> 21) & 0x7F),
		byte((v >> 14) & 0x7F),
		byte((v >> 7) & 0x7F),
		byte(v & 0x7F),
	}
}

// UnSyncSafe decodes a 4-byte sync-safe integer back to its 28-bit
// value.
func UnSyncSafe(b [4]byte) uint32 {
	return uint32(b[0])<<21 | uint32(b[1])<<14 | uint32(b[2])<<7 | uint32(b[3])
}
