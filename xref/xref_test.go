package xref

import (
	"bytes"
	"testing"
)

func TestTableLayout(t *testing.T) {
	got := Table([]int64{15, 90})
	want := "xref\n0 3\n" +
		"0000000000 65535 f \n" +
		"0000000015 00000 n \n" +
		"0000000090 00000 n \n"
	if string(got) != want {
		t.Errorf("Table:\n%q\nwant:\n%q", got, want)
	}
}

func TestStreamEntries(t *testing.T) {
	data, w := Stream([]int64{0x11, 0x2233})
	if len(w) != 3 || w[0] != 1 || w[1] != 4 || w[2] != 2 {
		t.Fatalf("W = %v, want [1 4 2]", w)
	}
	if len(data) != 3*7 {
		t.Fatalf("data length = %d, want 21", len(data))
	}
	free := []byte{0, 0, 0, 0, 0, 0xFF, 0xFF}
	if !bytes.Equal(data[:7], free) {
		t.Errorf("free entry = % x, want % x", data[:7], free)
	}
	first := []byte{1, 0, 0, 0, 0x11, 0, 0}
	if !bytes.Equal(data[7:14], first) {
		t.Errorf("entry 1 = % x, want % x", data[7:14], first)
	}
	second := []byte{1, 0, 0, 0x22, 0x33, 0, 0}
	if !bytes.Equal(data[14:], second) {
		t.Errorf("entry 2 = % x, want % x", data[14:], second)
	}
}
