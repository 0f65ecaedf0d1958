package filters

import (
	"bytes"
	"compress/zlib"
	"io"
	"testing"
)

func TestFlateRoundTrip(t *testing.T) {
	in := bytes.Repeat([]byte("0 0 100 50 re f\n"), 64)
	enc, err := FlateEncode(in)
	if err != nil {
		t.Fatalf("FlateEncode failed: %v", err)
	}
	if len(enc) >= len(in) {
		t.Errorf("encoded %d bytes, want smaller than %d", len(enc), len(in))
	}
	zr, err := zlib.NewReader(bytes.NewReader(enc))
	if err != nil {
		t.Fatalf("zlib.NewReader failed: %v", err)
	}
	out, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !bytes.Equal(out, in) {
		t.Error("round trip mismatch")
	}
}

func TestFlateDeterministic(t *testing.T) {
	in := []byte("q 1 0 0 1 10 20 cm Q")
	a, err := FlateEncode(in)
	if err != nil {
		t.Fatalf("FlateEncode failed: %v", err)
	}
	b, err := FlateEncode(in)
	if err != nil {
		t.Fatalf("FlateEncode failed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("same input produced different encodings")
	}
}

func TestASCIIHexEncode(t *testing.T) {
	got := ASCIIHexEncode([]byte{0x00, 0xAB, 0xFF})
	if string(got) != "00ABFF>" {
		t.Errorf("ASCIIHexEncode = %q, want \"00ABFF>\"", got)
	}
}
