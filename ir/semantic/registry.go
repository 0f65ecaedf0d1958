package semantic

import "fmt"

// FontHandle identifies a registered source font. Handles are only
// meaningful against the registry that issued them.
type FontHandle int

// ImageHandle identifies a registered image.
type ImageHandle int

// FontSource is a source font as supplied by the caller: a name for
// diagnostics plus the raw font program bytes.
type FontSource struct {
	Name string
	Data []byte
}

// FontRegistry maps font handles to source data. Registration happens
// before the build starts; lookups during the build are read-only.
type FontRegistry struct {
	fonts []FontSource
}

func NewFontRegistry() *FontRegistry { return &FontRegistry{} }

func (r *FontRegistry) Register(name string, data []byte) FontHandle {
	r.fonts = append(r.fonts, FontSource{Name: name, Data: data})
	return FontHandle(len(r.fonts) - 1)
}

func (r *FontRegistry) Get(h FontHandle) (FontSource, error) {
	if r == nil || int(h) < 0 || int(h) >= len(r.fonts) {
		return FontSource{}, fmt.Errorf("semantic: unknown font handle %d", h)
	}
	return r.fonts[h], nil
}

func (r *FontRegistry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.fonts)
}

// ColorSpace names the device color space of image samples.
type ColorSpace string

const (
	DeviceRGB  ColorSpace = "DeviceRGB"
	DeviceGray ColorSpace = "DeviceGray"
)

// ImageSource is decoded raster data ready for embedding. Codecs run
// outside the core; Data holds raw interleaved samples at the stated
// bit depth, SMask an optional 8-bit alpha plane of the same dimensions.
type ImageSource struct {
	Width            int
	Height           int
	ColorSpace       ColorSpace
	BitsPerComponent int
	Data             []byte
	SMask            []byte
	Interpolate      bool
}

// ImageRegistry maps image handles to source data.
type ImageRegistry struct {
	images []ImageSource
}

func NewImageRegistry() *ImageRegistry { return &ImageRegistry{} }

func (r *ImageRegistry) Register(img ImageSource) ImageHandle {
	r.images = append(r.images, img)
	return ImageHandle(len(r.images) - 1)
}

func (r *ImageRegistry) Get(h ImageHandle) (ImageSource, error) {
	if r == nil || int(h) < 0 || int(h) >= len(r.images) {
		return ImageSource{}, fmt.Errorf("semantic: unknown image handle %d", h)
	}
	return r.images[h], nil
}

func (r *ImageRegistry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.images)
}
