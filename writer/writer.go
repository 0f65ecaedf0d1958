// Package writer assembles a semantic document into a complete PDF file.
// Pages build concurrently; output bytes depend only on the document, not
// on worker count or scheduling.
package writer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"

	"github.com/Marisada/krilla/cache"
	"github.com/Marisada/krilla/contentstream"
	"github.com/Marisada/krilla/fonts"
	"github.com/Marisada/krilla/ir/raw"
	"github.com/Marisada/krilla/ir/semantic"
	"github.com/Marisada/krilla/observability"
	"github.com/Marisada/krilla/resources"
	"github.com/Marisada/krilla/xref"
)

// ErrIncompleteDocument reports a document that cannot form a valid file:
// no pages, or a nil page record.
var ErrIncompleteDocument = errors.New("writer: incomplete document")

// XRefStyle selects how the cross-reference data is written.
type XRefStyle int

const (
	// XRefTable writes a classic cross-reference table and trailer.
	XRefTable XRefStyle = iota
	// XRefStream writes a cross-reference stream.
	XRefStream
)

// Default page size when a record leaves MediaBox zero (A4, points).
var defaultMediaBox = semantic.Rectangle{URX: 595, URY: 842}

// Config controls a build. The zero value writes an uncompressed file
// with a classic xref table, using every CPU for page builds.
type Config struct {
	// WorkerCount limits concurrent page builds. 0 means GOMAXPROCS;
	// 1 builds pages sequentially. Output bytes are identical either way.
	WorkerCount int
	XRef        XRefStyle
	// Compress flate-encodes content and resource streams.
	Compress bool
	// HexStreams ASCIIHex-encodes binary resource streams (font programs,
	// image samples) so the output can be inspected in a text editor.
	// Ignored when Compress is set.
	HexStreams bool
	// Precision is the number of decimals for content stream operands.
	Precision int
	// SubsetCache, when set, reuses font subsets across builds.
	SubsetCache *fonts.SubsetCache
	Logger      observability.Logger
	Tracer      observability.Tracer
}

func (c Config) workers() int {
	if c.WorkerCount > 0 {
		return c.WorkerCount
	}
	return runtime.GOMAXPROCS(0)
}

func (c Config) logger() observability.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return observability.NopLogger{}
}

func (c Config) tracer() observability.Tracer {
	if c.Tracer != nil {
		return c.Tracer
	}
	return observability.NopTracer()
}

// Write builds doc and writes the finished file to out.
func Write(ctx context.Context, doc *semantic.Document, out io.Writer, cfg Config) error {
	start := time.Now()
	log := cfg.logger()
	ctx, span := cfg.tracer().StartSpan(ctx, "pdf.build")
	defer span.Finish()

	data, err := build(ctx, doc, cfg)
	if err != nil {
		span.SetError(err)
		log.Error("document build failed", observability.Error("error", err))
		return err
	}
	if _, err := out.Write(data); err != nil {
		span.SetError(err)
		return fmt.Errorf("writer: write output: %w", err)
	}
	log.Info("document built",
		observability.Int(observability.MetricPageCount, len(doc.Pages)),
		observability.Int64(observability.MetricOutputBytes, int64(len(data))),
		observability.Int64(observability.MetricBuildTime, time.Since(start).Milliseconds()),
	)
	return nil
}

// Bytes builds doc and returns the finished file.
func Bytes(ctx context.Context, doc *semantic.Document, cfg Config) ([]byte, error) {
	return build(ctx, doc, cfg)
}

type pageResult struct {
	ref raw.ObjectRef
}

func build(ctx context.Context, doc *semantic.Document, cfg Config) ([]byte, error) {
	if doc == nil || len(doc.Pages) == 0 {
		return nil, fmt.Errorf("%w: no pages", ErrIncompleteDocument)
	}
	for i, page := range doc.Pages {
		if page == nil {
			return nil, fmt.Errorf("%w: page %d is nil", ErrIncompleteDocument, i)
		}
		if page.Rotate%90 != 0 {
			return nil, fmt.Errorf("writer: page %d: rotation %d is not a multiple of 90", i, page.Rotate)
		}
	}

	store := raw.NewStore()
	objCache := cache.New()
	resolver, err := newResolver(store, objCache, doc, cfg)
	if err != nil {
		return nil, err
	}

	pagesRef := store.Allocate()
	results := make([]pageResult, len(doc.Pages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers())
	for i, page := range doc.Pages {
		i, page := i, page
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ref, err := buildPage(page, pagesRef, resolver, store, cfg)
			if err != nil {
				return fmt.Errorf("page %d: %w", i, err)
			}
			results[i].ref = ref
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	kids := raw.NewArray()
	for _, res := range results {
		kids.Append(raw.RefObj{R: res.ref})
	}
	pages := raw.Dict()
	pages.Set("Type", raw.NameLiteral("Pages"))
	pages.Set("Kids", kids)
	pages.Set("Count", raw.NumberInt(int64(len(doc.Pages))))
	if err := store.Define(pagesRef, pages); err != nil {
		return nil, err
	}

	catalogRef := store.Allocate()
	catalog := raw.Dict()
	catalog.Set("Type", raw.NameLiteral("Catalog"))
	catalog.Set("Pages", raw.RefObj{R: pagesRef})
	if err := store.Define(catalogRef, catalog); err != nil {
		return nil, err
	}

	infoRef := store.Allocate()
	if err := store.Define(infoRef, infoDict(doc.Info)); err != nil {
		return nil, err
	}

	indirects, err := store.Finalize()
	if err != nil {
		return nil, err
	}
	renumbered, mapping := renumber(indirects, catalogRef, infoRef)

	stats := objCache.Stats()
	cfg.logger().Debug("object graph finished",
		observability.Int(observability.MetricObjectCount, len(renumbered)),
		observability.Int64(observability.MetricCacheHits, stats.Hits),
		observability.Int64(observability.MetricCacheMisses, stats.Misses),
	)
	return encodeFile(renumbered, mapping[catalogRef], mapping[infoRef], cfg.XRef)
}

// buildPage renders one page's content stream and defines its objects.
func buildPage(page *semantic.PageRecord, parent raw.ObjectRef, resolver *docResolver, store *raw.Store, cfg Config) (raw.ObjectRef, error) {
	mapper := resources.NewMapper()
	builder := contentstream.NewBuilder(resolver, mapper, cfg.Precision)
	content, err := builder.Build(page)
	if err != nil {
		return raw.ObjectRef{}, err
	}

	contentRef := store.Allocate()
	stream, err := resolver.stream(raw.Dict(), content)
	if err != nil {
		return raw.ObjectRef{}, err
	}
	if err := store.Define(contentRef, stream); err != nil {
		return raw.ObjectRef{}, err
	}

	mediaBox := page.MediaBox
	if mediaBox.IsZero() {
		mediaBox = defaultMediaBox
	}

	pageRef := store.Allocate()
	dict := raw.Dict()
	dict.Set("Type", raw.NameLiteral("Page"))
	dict.Set("Parent", raw.RefObj{R: parent})
	dict.Set("MediaBox", rectArray(mediaBox))
	if !page.CropBox.IsZero() {
		dict.Set("CropBox", rectArray(page.CropBox))
	}
	if page.Rotate != 0 {
		dict.Set("Rotate", raw.NumberInt(int64(((page.Rotate%360)+360)%360)))
	}
	dict.Set("Resources", mapper.Dict())
	dict.Set("Contents", raw.RefObj{R: contentRef})
	if err := store.Define(pageRef, dict); err != nil {
		return raw.ObjectRef{}, err
	}
	return pageRef, nil
}

func rectArray(r semantic.Rectangle) *raw.ArrayObj {
	return raw.NewArray(
		raw.NumberFloat(r.LLX), raw.NumberFloat(r.LLY),
		raw.NumberFloat(r.URX), raw.NumberFloat(r.URY),
	)
}

func infoDict(info semantic.DocumentInfo) *raw.DictObj {
	dict := raw.Dict()
	set := func(key, val string) {
		if val != "" {
			dict.Set(key, raw.Str([]byte(val)))
		}
	}
	set("Title", info.Title)
	set("Author", info.Author)
	set("Subject", info.Subject)
	set("Creator", info.Creator)
	set("Keywords", strings.Join(info.Keywords, ", "))
	producer := info.Producer
	if producer == "" {
		producer = "krilla"
	}
	dict.Set("Producer", raw.Str([]byte(producer)))
	return dict
}

// encodeFile lays out the object bodies, cross-reference data and trailer.
// The file ID is derived from the body bytes, so identical documents yield
// identical files.
func encodeFile(indirects []raw.Indirect, root, info raw.ObjectRef, style XRefStyle) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n%\xE2\xE3\xCF\xD3\n")

	offsets := make([]int64, 0, len(indirects))
	for _, ind := range indirects {
		offsets = append(offsets, int64(buf.Len()))
		fmt.Fprintf(&buf, "%d %d obj\n", ind.Ref.Num, ind.Ref.Gen)
		if err := serializeObject(&buf, ind.Obj); err != nil {
			return nil, err
		}
		buf.WriteString("\nendobj\n")
	}

	sum := blake2b.Sum256(buf.Bytes())
	id := raw.NewArray(raw.HexStr(sum[:16]), raw.HexStr(sum[:16]))

	switch style {
	case XRefStream:
		xrefNum := len(indirects) + 1
		xrefOffset := int64(buf.Len())
		data, w := xref.Stream(append(offsets, xrefOffset))

		wArr := raw.NewArray()
		for _, width := range w {
			wArr.Append(raw.NumberInt(width))
		}
		dict := raw.Dict()
		dict.Set("Type", raw.NameLiteral("XRef"))
		dict.Set("Size", raw.NumberInt(int64(xrefNum+1)))
		dict.Set("W", wArr)
		dict.Set("Root", raw.RefObj{R: root})
		dict.Set("Info", raw.RefObj{R: info})
		dict.Set("ID", id)
		stream := raw.NewStream(dict, data)

		fmt.Fprintf(&buf, "%d 0 obj\n", xrefNum)
		if err := serializeObject(&buf, stream); err != nil {
			return nil, err
		}
		buf.WriteString("\nendobj\n")
		fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xrefOffset)

	default:
		xrefOffset := int64(buf.Len())
		buf.Write(xref.Table(offsets))

		trailer := raw.Dict()
		trailer.Set("Size", raw.NumberInt(int64(len(indirects)+1)))
		trailer.Set("Root", raw.RefObj{R: root})
		trailer.Set("Info", raw.RefObj{R: info})
		trailer.Set("ID", id)
		buf.WriteString("trailer\n")
		if err := serializeObject(&buf, trailer); err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)
	}
	return buf.Bytes(), nil
}
