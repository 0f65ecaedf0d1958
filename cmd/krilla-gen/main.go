// Command krilla-gen writes a small sample document, mostly useful for
// eyeballing output in a viewer and for profiling builds.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"

	"github.com/Marisada/krilla/coords"
	"github.com/Marisada/krilla/ir/semantic"
	"github.com/Marisada/krilla/writer"
)

func main() {
	out := flag.String("o", "out.pdf", "output file")
	pages := flag.Int("pages", 3, "number of pages")
	workers := flag.Int("workers", 0, "page build workers (0 = all CPUs)")
	compress := flag.Bool("compress", false, "flate-compress streams")
	hex := flag.Bool("hex", false, "hex-encode binary streams for inspection")
	xrefStream := flag.Bool("xref-stream", false, "write a cross-reference stream")
	flag.Parse()

	if err := run(*out, *pages, *workers, *compress, *hex, *xrefStream); err != nil {
		fmt.Fprintf(os.Stderr, "krilla-gen: %v\n", err)
		os.Exit(1)
	}
}

func run(out string, pages, workers int, compress, hex, xrefStream bool) error {
	doc, err := sampleDocument(pages)
	if err != nil {
		return err
	}

	cfg := writer.Config{
		WorkerCount: workers,
		Compress:    compress,
		HexStreams:  hex,
	}
	if xrefStream {
		cfg.XRef = writer.XRefStream
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := writer.Write(context.Background(), doc, f, cfg); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func sampleDocument(pageCount int) (*semantic.Document, error) {
	fontReg := semantic.NewFontRegistry()
	font := fontReg.Register("GoRegular", goregular.TTF)

	glyphs, err := glyphRun("krilla sample page")
	if err != nil {
		return nil, err
	}

	var pages []*semantic.PageRecord
	for i := 0; i < pageCount; i++ {
		pages = append(pages, &semantic.PageRecord{
			MediaBox: semantic.Rectangle{URX: 595, URY: 842},
			Instructions: []semantic.Instruction{
				semantic.SaveState{},
				semantic.SetFillColor{C: semantic.Color{R: 0.9, G: 0.9, B: 0.95}},
				semantic.PaintPath{Path: semantic.RectPath(40, 760, 515, 40), Fill: true},
				semantic.RestoreState{},
				semantic.TextRun{Font: font, Size: 14, Glyphs: glyphs},
				semantic.SaveState{},
				semantic.Concat{M: coords.Translate(40, 400)},
				semantic.SetStrokeColor{C: semantic.Color{B: 0.8}},
				semantic.SetLineWidth{W: 1.5},
				semantic.PaintPath{Path: semantic.RectPath(0, 0, 200, 120), Stroke: true},
				semantic.RestoreState{},
			},
		})
	}

	return &semantic.Document{
		Pages:  pages,
		Fonts:  fontReg,
		Images: semantic.NewImageRegistry(),
		Info:   semantic.DocumentInfo{Title: "krilla sample", Creator: "krilla-gen"},
	}, nil
}

// glyphRun maps text to positioned glyphs with a crude fixed advance;
// real layout is the caller's job, this is a demo.
func glyphRun(text string) ([]semantic.PositionedGlyph, error) {
	parsed, err := sfnt.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	var buf sfnt.Buffer
	var glyphs []semantic.PositionedGlyph
	x := 50.0
	for _, r := range text {
		gid, err := parsed.GlyphIndex(&buf, r)
		if err != nil {
			return nil, err
		}
		if gid != 0 {
			glyphs = append(glyphs, semantic.PositionedGlyph{GID: uint16(gid), X: x, Y: 772})
		}
		x += 8
	}
	return glyphs, nil
}
