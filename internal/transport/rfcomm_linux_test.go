//go:build linux

package transport

import "testing"

func TestParseBDAddr(t *testing.T) {
	got, err := parseBDAddr("00:1D:A5:68:98:8B")
	if err != nil {
		t.Fatal(err)
	}
	want := [6]uint8{0x8B, 0x98, 0x68, 0xA5, 0x1D, 0x00}
	if got != want {
		t.Errorf("parseBDAddr = %X, want %X", got, want)
	}

	if _, err := parseBDAddr("not-an-address"); err == nil {
		t.Error("expected error for malformed address")
	}
}
