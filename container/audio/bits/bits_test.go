/*
NAME
  bits_test.go

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

import (
	"bytes"
	"testing"
)

func TestWriterByteAligned(t *testing.T) {
	w := NewWriter(0)
	if err := w.Add(8, 0xFF); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := w.Add(8, 0xF1); err != nil {
		t.Fatalf("Add: %v", err)
	}
	got, err := w.Flush()
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	want := []byte{0xFF, 0xF1}
	if !bytes.Equal(got, want) {
		t.Errorf("got %x, want %x", got, want)
	}
}

func TestWriterSubByteFields(t *testing.T) {
	w := NewWriter(0)
	// 12-bit syncword 0xFFF, 1-bit version 0, 2-bit layer 0, 1-bit
	// protection-absent 1 -> first two bytes should be 0xFF 0xF1.
	_ = w.Add(12, 0xFFF)
	_ = w.Add(1, 0)
	_ = w.Add(2, 0)
	if err := w.Add(1, 1); err != nil {
		t.Fatalf("Add: %v", err)
	}
	got, err := w.Flush()
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	want := []byte{0xFF, 0xF1}
	if !bytes.Equal(got, want) {
		t.Errorf("got %x, want %x", got, want)
	}
}

func TestWriterAlign(t *testing.T) {
	w := NewWriter(0)
	_ = w.Add(3, 0x5) // 101
	if err := w.Align(); err != nil {
		t.Fatalf("Align: %v", err)
	}
	got, _ := w.Flush()
	want := []byte{0x5 << 5}
	if !bytes.Equal(got, want) {
		t.Errorf("got %x, want %x", got, want)
	}
}

func TestWriterOverflow(t *testing.T) {
	w := NewWriter(1)
	if err := w.Add(8, 0); err != nil {
		t.Fatalf("first byte should fit: %v", err)
	}
	if err := w.Add(8, 0); err == nil {
		t.Errorf("expected overflow error")
	}
}

func TestCRC8(t *testing.T) {
	// Single zero byte must CRC to 0 for an init-0, poly-0x07 CRC.
	if got := CRC8([]byte{0x00}); got != 0x00 {
		t.Errorf("CRC8(0x00) = %#x, want 0x00", got)
	}
}

func TestCRC32Variants(t *testing.T) {
	data := []byte("123456789")
	mpeg := CRC32MPEG(data)
	ogg := CRC32Ogg(data)
	if mpeg == ogg {
		t.Errorf("MPEG and Ogg CRC-32 variants should differ for non-trivial input")
	}
}

func TestSyncSafeRoundTrip(t *testing.T) {
	for _, v := range []uint32{0, 1, 127, 128, 1 << 20, (1 << 28) - 1} {
		enc := SyncSafe(v)
		for _, b := range enc {
			if b&0x80 != 0 {
				t.Fatalf("sync-safe byte %#x has bit 7 set", b)
			}
		}
		if got := UnSyncSafe(enc); got != v {
			t.Errorf("round trip of %d got %d", v, got)
		}
	}
}
