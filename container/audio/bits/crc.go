/*
NAME
  crc.go

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

// All three tables below are built MSB-first (the polynomial's top bit
// aligns with the table index's top bit), matching the donor's own
// container/mts/psi CRC-32 table generator.

var crc8Table [256]byte    // poly 0x07, used by ADTS/TS adaptation.
var crc16Table [256]uint16 // poly 0x8005, used by FLAC frames.
var crc32Table [256]uint32 // poly 0x04C11DB7, used by MPEG-TS sections and Ogg pages.

func init() {
	for i := 0; i < 256; i++ {
		crc8Table[i] = genCRC8(byte(i))
		crc16Table[i] = genCRC16(uint16(i) << 8)
		crc32Table[i] = genCRC32(uint32(i) << 24)
	}
}

func genCRC8(b byte) byte {
	crc := b
	for i := 0; i < 8; i++ {
		if crc&0x80 != 0 {
			crc = (crc << 1) ^ 0x07
		} else {
			crc <<= 1
		}
	}
	return crc
}

func genCRC16(v uint16) uint16 {
	crc := v
	for i := 0; i < 8; i++ {
		if crc&0x8000 != 0 {
			crc = (crc << 1) ^ 0x8005
		} else {
			crc <<= 1
		}
	}
	return crc
}

func genCRC32(v uint32) uint32 {
	crc := v
	for i := 0; i < 8; i++ {
		if crc&0x80000000 != 0 {
			crc = (crc << 1) ^ 0x04C11DB7
		} else {
			crc <<= 1
		}
	}
	return crc
}

// CRC8 computes the CRC-8 (poly 0x07, init 0) over data, used for
// ADTS and TS adaptation-field checksums.
func CRC8(data []byte) byte {
	var crc byte
	for _, b := range data {
		crc = crc8Table[crc^b]
	}
	return crc
}

// CRC16 computes the CRC-16 (poly 0x8005, init 0, MSB-first) over
// data, used for FLAC frame footers.
func CRC16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc = (crc << 8) ^ crc16Table[byte(crc>>8)^b]
	}
	return crc
}

// CRC32MPEG computes the CRC-32 (poly 0x04C11DB7, init 0xFFFFFFFF,
// MSB-first, no final XOR) over data, used for MPEG-TS PSI section
// checksums.
func CRC32MPEG(data []byte) uint32 {
	return crc32With(data, 0xFFFFFFFF)
}

// CRC32Ogg computes the same polynomial with an init value of 0, the
// variant Ogg uses for its page checksum.
func CRC32Ogg(data []byte) uint32 {
	return crc32With(data, 0)
}

func crc32With(data []byte, init uint32) uint32 {
	crc := init
	for _, b := range data {
		crc = (crc << 8) ^ crc32Table[byte(crc>>24)^b]
	}
	return crc
}
