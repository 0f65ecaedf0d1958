package semantic

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRectPath(t *testing.T) {
	got := RectPath(10, 20, 100, 50)
	want := Path{Subpaths: []Subpath{{
		Points: []PathPoint{
			{X: 10, Y: 20, Type: PathMoveTo},
			{X: 110, Y: 20, Type: PathLineTo},
			{X: 110, Y: 70, Type: PathLineTo},
			{X: 10, Y: 70, Type: PathLineTo},
		},
		Closed: true,
	}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("RectPath mismatch (-want +got):\n%s", diff)
	}
}

func TestFontRegistry(t *testing.T) {
	r := NewFontRegistry()
	h := r.Register("Test", []byte{1, 2, 3})
	src, err := r.Get(h)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	want := FontSource{Name: "Test", Data: []byte{1, 2, 3}}
	if diff := cmp.Diff(want, src); diff != "" {
		t.Errorf("font source mismatch (-want +got):\n%s", diff)
	}
	if _, err := r.Get(FontHandle(99)); err == nil {
		t.Error("unknown handle returned no error")
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}

func TestImageRegistry(t *testing.T) {
	r := NewImageRegistry()
	img := ImageSource{
		Width: 2, Height: 2,
		ColorSpace:       DeviceGray,
		BitsPerComponent: 8,
		Data:             []byte{0, 1, 2, 3},
	}
	h := r.Register(img)
	got, err := r.Get(h)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if diff := cmp.Diff(img, got); diff != "" {
		t.Errorf("image source mismatch (-want +got):\n%s", diff)
	}
	if _, err := r.Get(ImageHandle(-1)); err == nil {
		t.Error("negative handle returned no error")
	}
}

func TestRegistryNilLen(t *testing.T) {
	var fr *FontRegistry
	var ir *ImageRegistry
	if fr.Len() != 0 || ir.Len() != 0 {
		t.Error("nil registries should report zero length")
	}
}

func TestRegistryNilGet(t *testing.T) {
	var fr *FontRegistry
	var ir *ImageRegistry
	if _, err := fr.Get(0); err == nil {
		t.Error("nil font registry returned no error")
	}
	if _, err := ir.Get(0); err == nil {
		t.Error("nil image registry returned no error")
	}
}
