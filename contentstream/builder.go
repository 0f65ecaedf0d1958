package contentstream

import (
	"errors"
	"fmt"

	"github.com/Marisada/krilla/fonts"
	"github.com/Marisada/krilla/ir/raw"
	"github.com/Marisada/krilla/ir/semantic"
	"github.com/Marisada/krilla/resources"
)

var (
	// ErrUnbalancedState reports a graphics state pop without a matching
	// push, or pushes left open at the end of a page.
	ErrUnbalancedState = errors.New("contentstream: unbalanced graphics state")

	// ErrUnmappedGlyph reports a glyph ID with no code in the font's subset.
	ErrUnmappedGlyph = errors.New("contentstream: glyph not mapped in subset")
)

// Resolver supplies the indirect objects a page's instructions depend on.
// Implementations are safe for concurrent use across page builds.
type Resolver interface {
	// FontSubset returns the subset and font dictionary reference for a
	// registered font handle.
	FontSubset(h semantic.FontHandle) (*fonts.Subset, raw.ObjectRef, error)
	// Image returns the image XObject reference for a registered image.
	Image(h semantic.ImageHandle) (raw.ObjectRef, error)
	// AlphaState returns an ExtGState reference setting fill or stroke
	// alpha to the given value.
	AlphaState(fill bool, alpha float64) (raw.ObjectRef, error)
}

// Builder renders one page record into content stream bytes, registering
// every referenced object with the page's resource mapper.
type Builder struct {
	resolver  Resolver
	res       *resources.Mapper
	precision int
}

func NewBuilder(resolver Resolver, res *resources.Mapper, precision int) *Builder {
	return &Builder{resolver: resolver, res: res, precision: precision}
}

// Build consumes the page's instructions in order. The q/Q nesting must
// balance across the whole page.
func (b *Builder) Build(page *semantic.PageRecord) ([]byte, error) {
	w := newOpWriter(b.precision)
	stack := newStateStack()

	for i, ins := range page.Instructions {
		switch op := ins.(type) {
		case semantic.SaveState:
			stack.push()
			w.op("q")

		case semantic.RestoreState:
			if !stack.pop() {
				return nil, fmt.Errorf("%w: restore at instruction %d with empty stack", ErrUnbalancedState, i)
			}
			w.op("Q")

		case semantic.Concat:
			m := op.M
			cur := stack.current()
			cur.CTM = m.Multiply(cur.CTM)
			w.op("cm", m[0], m[1], m[2], m[3], m[4], m[5])

		case semantic.SetFillColor:
			stack.current().FillColor = op.C
			w.op("rg", op.C.R, op.C.G, op.C.B)

		case semantic.SetStrokeColor:
			stack.current().StrokeColor = op.C
			w.op("RG", op.C.R, op.C.G, op.C.B)

		case semantic.SetLineWidth:
			stack.current().LineWidth = op.W
			w.op("w", op.W)

		case semantic.SetFillAlpha:
			if err := b.alpha(w, true, op.A); err != nil {
				return nil, err
			}
			stack.current().FillAlpha = op.A

		case semantic.SetStrokeAlpha:
			if err := b.alpha(w, false, op.A); err != nil {
				return nil, err
			}
			stack.current().StrokeAlpha = op.A

		case semantic.PaintPath:
			if err := b.paintPath(w, op); err != nil {
				return nil, fmt.Errorf("instruction %d: %w", i, err)
			}

		case semantic.TextRun:
			if err := b.textRun(w, op); err != nil {
				return nil, fmt.Errorf("instruction %d: %w", i, err)
			}

		case semantic.PlaceImage:
			if err := b.placeImage(w, op); err != nil {
				return nil, fmt.Errorf("instruction %d: %w", i, err)
			}

		default:
			return nil, fmt.Errorf("contentstream: unknown instruction %T", ins)
		}
	}

	if d := stack.depth(); d != 0 {
		return nil, fmt.Errorf("%w: %d state(s) left open at end of page", ErrUnbalancedState, d)
	}
	return w.bytes(), nil
}

func (b *Builder) alpha(w *opWriter, fill bool, a float64) error {
	if a < 0 || a > 1 {
		return fmt.Errorf("contentstream: alpha %v outside [0, 1]", a)
	}
	ref, err := b.resolver.AlphaState(fill, a)
	if err != nil {
		return err
	}
	w.opName("gs", b.res.Register(resources.ExtGState, ref))
	return nil
}

func (b *Builder) paintPath(w *opWriter, op semantic.PaintPath) error {
	if !op.Fill && !op.Stroke {
		return errors.New("contentstream: path painted with neither fill nor stroke")
	}
	for _, sp := range op.Path.Subpaths {
		if x, y, width, height, ok := asRect(sp); ok {
			w.op("re", x, y, width, height)
			continue
		}
		for j, p := range sp.Points {
			switch {
			case j == 0 || p.Type == semantic.PathMoveTo:
				w.op("m", p.X, p.Y)
			case p.Type == semantic.PathLineTo:
				w.op("l", p.X, p.Y)
			case p.Type == semantic.PathCurveTo:
				w.op("c", p.Control1X, p.Control1Y, p.Control2X, p.Control2Y, p.X, p.Y)
			}
		}
		if sp.Closed {
			w.op("h")
		}
	}
	switch {
	case op.Fill && op.Stroke:
		w.op("B")
	case op.Fill:
		w.op("f")
	default:
		w.op("S")
	}
	return nil
}

// asRect recognizes a closed axis-aligned four-corner subpath so it can be
// emitted as a single re operator.
func asRect(sp semantic.Subpath) (x, y, w, h float64, ok bool) {
	if !sp.Closed || len(sp.Points) != 4 {
		return 0, 0, 0, 0, false
	}
	for i, p := range sp.Points {
		if i == 0 {
			if p.Type != semantic.PathMoveTo {
				return 0, 0, 0, 0, false
			}
		} else if p.Type != semantic.PathLineTo {
			return 0, 0, 0, 0, false
		}
	}
	p0, p1, p2, p3 := sp.Points[0], sp.Points[1], sp.Points[2], sp.Points[3]
	if p0.Y != p1.Y || p1.X != p2.X || p2.Y != p3.Y || p3.X != p0.X {
		return 0, 0, 0, 0, false
	}
	return p0.X, p0.Y, p1.X - p0.X, p2.Y - p1.Y, true
}

func (b *Builder) textRun(w *opWriter, op semantic.TextRun) error {
	sub, ref, err := b.resolver.FontSubset(op.Font)
	if err != nil {
		return err
	}
	name := b.res.Register(resources.Font, ref)

	w.raw("BT\n")
	w.raw("/" + name + " " + w.num(op.Size) + " Tf\n")
	for _, g := range op.Glyphs {
		code, ok := sub.Code(fonts.GlyphID(g.GID))
		if !ok {
			return fmt.Errorf("%w: glyph %d in font %q", ErrUnmappedGlyph, g.GID, sub.BaseFont)
		}
		w.op("Tm", 1, 0, 0, 1, g.X, g.Y)
		w.raw(hexCode(code) + " Tj\n")
	}
	w.raw("ET\n")
	return nil
}

func (b *Builder) placeImage(w *opWriter, op semantic.PlaceImage) error {
	ref, err := b.resolver.Image(op.Image)
	if err != nil {
		return err
	}
	name := b.res.Register(resources.XObject, ref)
	m := op.Transform
	w.op("q")
	w.op("cm", m[0], m[1], m[2], m[3], m[4], m[5])
	w.opName("Do", name)
	w.op("Q")
	return nil
}
