// Package fonts loads source fonts and produces the minimal embeddable
// subsets referenced by content streams.
package fonts

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"golang.org/x/crypto/blake2b"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// ErrResourceDecode reports malformed source data for a caller-supplied
// resource. The wrapped message names the offending handle.
var ErrResourceDecode = errors.New("fonts: resource decode failed")

// GlyphID is a glyph index in a source font's original ID space.
type GlyphID uint16

// Font is a parsed source font. Metric fields are scaled to a
// 1000-units-per-em space as used by PDF font dictionaries.
type Font struct {
	Name   string
	Data   []byte
	Digest [blake2b.Size256]byte

	UnitsPerEm  int
	NumGlyphs   int
	Ascent      float64
	Descent     float64
	CapHeight   float64
	ItalicAngle float64
	BBox        [4]float64

	widths []int
}

// Load parses a TrueType/OpenType font and extracts the metrics needed for
// font descriptors and width arrays. Malformed input fails with
// ErrResourceDecode tagged with the font name.
func Load(name string, data []byte) (*Font, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: font %q: empty data", ErrResourceDecode, name)
	}
	parsed, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: font %q: %v", ErrResourceDecode, name, err)
	}
	unitsPerEm := int(parsed.UnitsPerEm())
	if unitsPerEm == 0 {
		return nil, fmt.Errorf("%w: font %q: invalid unitsPerEm", ErrResourceDecode, name)
	}
	buf := &sfnt.Buffer{}
	ppem := fixed.Int26_6(unitsPerEm << 6)

	baseName := strings.TrimSpace(name)
	if ps, _ := parsed.Name(buf, sfnt.NameIDPostScript); len(ps) > 0 {
		baseName = ps
	}
	if baseName == "" {
		baseName = "Unnamed"
	}

	numGlyphs := parsed.NumGlyphs()
	widths := make([]int, numGlyphs)
	for gid := 0; gid < numGlyphs; gid++ {
		adv, err := parsed.GlyphAdvance(buf, sfnt.GlyphIndex(gid), ppem, xfont.HintingNone)
		if err != nil {
			continue
		}
		widths[gid] = int(math.Round(scaleFixed(adv, unitsPerEm)))
	}

	metrics, _ := parsed.Metrics(buf, ppem, xfont.HintingNone)
	bounds, _ := parsed.Bounds(buf, ppem, xfont.HintingNone)

	f := &Font{
		Name:       baseName,
		Data:       data,
		Digest:     blake2b.Sum256(data),
		UnitsPerEm: unitsPerEm,
		NumGlyphs:  numGlyphs,
		Ascent:     scaleFixed(metrics.Ascent, unitsPerEm),
		Descent:    -scaleFixed(metrics.Descent, unitsPerEm),
		CapHeight:  scaleFixed(metrics.CapHeight, unitsPerEm),
		BBox: [4]float64{
			scaleFixed(bounds.Min.X, unitsPerEm),
			-scaleFixed(bounds.Max.Y, unitsPerEm),
			scaleFixed(bounds.Max.X, unitsPerEm),
			-scaleFixed(bounds.Min.Y, unitsPerEm),
		},
		ItalicAngle: italicAngle(parsed),
		widths:      widths,
	}
	if f.CapHeight == 0 {
		f.CapHeight = f.Ascent
	}
	return f, nil
}

// GlyphWidth returns the advance width of gid in 1000-unit space.
func (f *Font) GlyphWidth(gid GlyphID) int {
	if int(gid) >= len(f.widths) {
		return 0
	}
	return f.widths[gid]
}

func italicAngle(f *sfnt.Font) float64 {
	post := f.PostTable()
	if post == nil {
		return 0
	}
	return post.ItalicAngle
}

func scaleFixed(val fixed.Int26_6, unitsPerEm int) float64 {
	return float64(val) * 1000.0 / (64.0 * float64(unitsPerEm))
}
