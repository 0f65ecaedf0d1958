// Package semantic holds the high-level description of a document build:
// page records with their typed paint and text instructions, and the
// registries that map opaque font/image handles to source data.
package semantic

import "github.com/Marisada/krilla/coords"

// Rectangle in PDF user space, lower-left to upper-right.
type Rectangle struct {
	LLX, LLY, URX, URY float64
}

func (r Rectangle) IsZero() bool {
	return r.LLX == 0 && r.LLY == 0 && r.URX == 0 && r.URY == 0
}

// Color is a device RGB color with components in [0, 1].
type Color struct {
	R, G, B float64
}

// DocumentInfo carries the document information dictionary fields.
type DocumentInfo struct {
	Title    string
	Author   string
	Subject  string
	Creator  string
	Producer string
	Keywords []string
}

// PageRecord describes one page: its geometry and the ordered instruction
// sequence that paints it. A record is consumed exactly once by the
// content stream builder.
type PageRecord struct {
	MediaBox     Rectangle
	CropBox      Rectangle
	Rotate       int
	Instructions []Instruction
}

// Document is the complete input to a build: ordered pages plus the
// registries resolving instruction handles, and optional metadata.
type Document struct {
	Pages  []*PageRecord
	Fonts  *FontRegistry
	Images *ImageRegistry
	Info   DocumentInfo
}

// Instruction is one typed paint or text operation. The set is closed;
// the content stream builder switches over every kind.
type Instruction interface {
	isInstruction()
}

// SaveState pushes the current graphics state (q).
type SaveState struct{}

// RestoreState pops the graphics state (Q). A pop without a matching push
// fails the page build.
type RestoreState struct{}

// Concat multiplies the current transformation matrix (cm).
type Concat struct{ M coords.Matrix }

// SetFillColor sets the non-stroking color (rg).
type SetFillColor struct{ C Color }

// SetStrokeColor sets the stroking color (RG).
type SetStrokeColor struct{ C Color }

// SetLineWidth sets the stroke line width (w).
type SetLineWidth struct{ W float64 }

// SetFillAlpha sets non-stroking alpha via an ExtGState resource.
type SetFillAlpha struct{ A float64 }

// SetStrokeAlpha sets stroking alpha via an ExtGState resource.
type SetStrokeAlpha struct{ A float64 }

// PaintPath emits a path followed by a paint operator chosen from the
// fill/stroke flags. A path with neither flag set is a no-op and is
// rejected by the builder.
type PaintPath struct {
	Path   Path
	Fill   bool
	Stroke bool
}

// PositionedGlyph places one glyph at an absolute text-space position.
type PositionedGlyph struct {
	GID  uint16
	X, Y float64
}

// TextRun draws glyphs from one font at one size. Glyph IDs are in the
// source font's ID space; the builder maps them through the font's subset.
type TextRun struct {
	Font   FontHandle
	Size   float64
	Glyphs []PositionedGlyph
}

// PlaceImage draws a registered image under the given transform, which
// maps the image's unit square onto the page.
type PlaceImage struct {
	Image     ImageHandle
	Transform coords.Matrix
}

func (SaveState) isInstruction()      {}
func (RestoreState) isInstruction()   {}
func (Concat) isInstruction()         {}
func (SetFillColor) isInstruction()   {}
func (SetStrokeColor) isInstruction() {}
func (SetLineWidth) isInstruction()   {}
func (SetFillAlpha) isInstruction()   {}
func (SetStrokeAlpha) isInstruction() {}
func (PaintPath) isInstruction()      {}
func (TextRun) isInstruction()        {}
func (PlaceImage) isInstruction()     {}
