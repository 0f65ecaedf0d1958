package contentstream

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/image/font/gofont/goregular"

	"github.com/Marisada/krilla/coords"
	"github.com/Marisada/krilla/fonts"
	"github.com/Marisada/krilla/ir/raw"
	"github.com/Marisada/krilla/ir/semantic"
	"github.com/Marisada/krilla/resources"
)

type stubResolver struct {
	subset     *fonts.Subset
	fontRef    raw.ObjectRef
	imageRef   raw.ObjectRef
	alphaRef   raw.ObjectRef
	alphaCalls []float64
}

func (s *stubResolver) FontSubset(h semantic.FontHandle) (*fonts.Subset, raw.ObjectRef, error) {
	return s.subset, s.fontRef, nil
}

func (s *stubResolver) Image(h semantic.ImageHandle) (raw.ObjectRef, error) {
	return s.imageRef, nil
}

func (s *stubResolver) AlphaState(fill bool, alpha float64) (raw.ObjectRef, error) {
	s.alphaCalls = append(s.alphaCalls, alpha)
	return s.alphaRef, nil
}

func newStubResolver(t *testing.T, glyphs ...fonts.GlyphID) *stubResolver {
	t.Helper()
	f, err := fonts.Load("GoRegular", goregular.TTF)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	sub, err := fonts.MakeSubset(f, glyphs)
	if err != nil {
		t.Fatalf("MakeSubset failed: %v", err)
	}
	return &stubResolver{
		subset:   sub,
		fontRef:  raw.ObjectRef{Num: 10},
		imageRef: raw.ObjectRef{Num: 11},
		alphaRef: raw.ObjectRef{Num: 12},
	}
}

func build(t *testing.T, r Resolver, instructions ...semantic.Instruction) (string, *resources.Mapper) {
	t.Helper()
	m := resources.NewMapper()
	b := NewBuilder(r, m, DefaultPrecision)
	data, err := b.Build(&semantic.PageRecord{Instructions: instructions})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return string(data), m
}

func TestNumberFormatting(t *testing.T) {
	w := newOpWriter(4)
	cases := map[float64]string{
		0:        "0",
		1:        "1",
		-1.5:     "-1.5",
		0.12344:  "0.1234",
		100.2000: "100.2",
		-0.00001: "0",
	}
	for in, want := range cases {
		if got := w.num(in); got != want {
			t.Errorf("num(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestGraphicsOps(t *testing.T) {
	out, _ := build(t, newStubResolver(t),
		semantic.SaveState{},
		semantic.Concat{M: coords.Translate(10, 20)},
		semantic.SetFillColor{C: semantic.Color{R: 1, G: 0.5, B: 0}},
		semantic.SetLineWidth{W: 2},
		semantic.PaintPath{Path: semantic.RectPath(0, 0, 100, 50), Fill: true},
		semantic.RestoreState{},
	)
	for _, want := range []string{
		"q\n",
		"1 0 0 1 10 20 cm\n",
		"1 0.5 0 rg\n",
		"2 w\n",
		"0 0 100 50 re\n",
		"f\n",
		"Q\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCurvePathFallsBackToOperators(t *testing.T) {
	path := semantic.Path{Subpaths: []semantic.Subpath{{
		Points: []semantic.PathPoint{
			{X: 0, Y: 0, Type: semantic.PathMoveTo},
			{X: 30, Y: 40, Type: semantic.PathCurveTo, Control1X: 10, Control1Y: 0, Control2X: 20, Control2Y: 40},
		},
	}}}
	out, _ := build(t, newStubResolver(t), semantic.PaintPath{Path: path, Stroke: true})
	for _, want := range []string{"0 0 m\n", "10 0 20 40 30 40 c\n", "S\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRestoreWithoutSaveFails(t *testing.T) {
	b := NewBuilder(newStubResolver(t), resources.NewMapper(), 0)
	_, err := b.Build(&semantic.PageRecord{Instructions: []semantic.Instruction{
		semantic.RestoreState{},
	}})
	if !errors.Is(err, ErrUnbalancedState) {
		t.Errorf("err = %v, want ErrUnbalancedState", err)
	}
}

func TestUnclosedSaveFails(t *testing.T) {
	b := NewBuilder(newStubResolver(t), resources.NewMapper(), 0)
	_, err := b.Build(&semantic.PageRecord{Instructions: []semantic.Instruction{
		semantic.SaveState{},
		semantic.SaveState{},
		semantic.RestoreState{},
	}})
	if !errors.Is(err, ErrUnbalancedState) {
		t.Errorf("err = %v, want ErrUnbalancedState", err)
	}
}

func TestTextRun(t *testing.T) {
	r := newStubResolver(t, 36)
	out, m := build(t, r, semantic.TextRun{
		Font: 0,
		Size: 12,
		Glyphs: []semantic.PositionedGlyph{
			{GID: 36, X: 72, Y: 720},
		},
	})
	code, ok := r.subset.Code(36)
	if !ok {
		t.Fatal("glyph 36 missing from subset")
	}
	for _, want := range []string{
		"BT\n",
		"/F0 12 Tf\n",
		"1 0 0 1 72 720 Tm\n",
		hexCode(code) + " Tj\n",
		"ET\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if m.Len() != 1 {
		t.Errorf("resource count = %d, want 1", m.Len())
	}
}

func TestUnmappedGlyphFails(t *testing.T) {
	r := newStubResolver(t, 36)
	b := NewBuilder(r, resources.NewMapper(), 0)
	_, err := b.Build(&semantic.PageRecord{Instructions: []semantic.Instruction{
		semantic.TextRun{Font: 0, Size: 12, Glyphs: []semantic.PositionedGlyph{{GID: 9999}}},
	}})
	if !errors.Is(err, ErrUnmappedGlyph) {
		t.Errorf("err = %v, want ErrUnmappedGlyph", err)
	}
}

func TestPlaceImage(t *testing.T) {
	out, _ := build(t, newStubResolver(t), semantic.PlaceImage{
		Image:     0,
		Transform: coords.Scale(200, 100),
	})
	for _, want := range []string{"q\n", "200 0 0 100 0 0 cm\n", "/X0 Do\n", "Q\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestStateStackRestoresOnPop(t *testing.T) {
	s := newStateStack()
	s.current().LineWidth = 3
	s.push()
	s.current().LineWidth = 7
	s.current().CTM = coords.Scale(2, 2)
	if !s.pop() {
		t.Fatal("pop failed with a pushed state")
	}
	if got := s.current().LineWidth; got != 3 {
		t.Errorf("LineWidth after pop = %v, want 3", got)
	}
	if !s.current().CTM.IsIdentity() {
		t.Error("CTM not restored on pop")
	}
	if s.pop() {
		t.Error("popped the page default state")
	}
}

func TestAlphaStates(t *testing.T) {
	r := newStubResolver(t)
	out, _ := build(t, r,
		semantic.SetFillAlpha{A: 0.5},
		semantic.SetStrokeAlpha{A: 0.25},
	)
	if !strings.Contains(out, "/G0 gs\n") {
		t.Errorf("output missing gs operator:\n%s", out)
	}
	if len(r.alphaCalls) != 2 || r.alphaCalls[0] != 0.5 || r.alphaCalls[1] != 0.25 {
		t.Errorf("alpha calls = %v, want [0.5 0.25]", r.alphaCalls)
	}
}
