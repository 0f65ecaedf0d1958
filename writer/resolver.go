package writer

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/Marisada/krilla/cache"
	"github.com/Marisada/krilla/filters"
	"github.com/Marisada/krilla/fonts"
	"github.com/Marisada/krilla/ir/raw"
	"github.com/Marisada/krilla/ir/semantic"
)

// ErrResourceDecode reports caller-supplied resource data that fails
// validation at embedding time. Font parse failures carry the fonts
// package's sentinel instead; both unwrap with errors.Is.
var ErrResourceDecode = errors.New("writer: resource decode failed")

// docResolver supplies shared indirect objects to concurrent page builds.
// Every object is built at most once per content key; pages that race on
// the same font or image converge on a single reference.
type docResolver struct {
	store       *raw.Store
	cache       *cache.Cache
	doc         *semantic.Document
	subsetCache *fonts.SubsetCache
	compress    bool
	hex         bool

	loaded   map[semantic.FontHandle]*fonts.Font
	glyphUse map[semantic.FontHandle][]fonts.GlyphID

	subsets sync.Map // cache.ContentKey -> *fonts.Subset
}

// newResolver scans the whole document for glyph usage and parses every
// referenced font, so each font subset covers all pages that share it.
func newResolver(store *raw.Store, c *cache.Cache, doc *semantic.Document, cfg Config) (*docResolver, error) {
	r := &docResolver{
		store:       store,
		cache:       c,
		doc:         doc,
		subsetCache: cfg.SubsetCache,
		compress:    cfg.Compress,
		hex:         cfg.HexStreams,
		loaded:      make(map[semantic.FontHandle]*fonts.Font),
		glyphUse:    make(map[semantic.FontHandle][]fonts.GlyphID),
	}

	usage := make(map[semantic.FontHandle]map[fonts.GlyphID]bool)
	for _, page := range doc.Pages {
		for _, ins := range page.Instructions {
			run, ok := ins.(semantic.TextRun)
			if !ok {
				continue
			}
			set := usage[run.Font]
			if set == nil {
				set = make(map[fonts.GlyphID]bool)
				usage[run.Font] = set
			}
			for _, g := range run.Glyphs {
				set[fonts.GlyphID(g.GID)] = true
			}
		}
	}

	for handle, set := range usage {
		src, err := doc.Fonts.Get(handle)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrResourceDecode, err)
		}
		font, err := fonts.Load(src.Name, src.Data)
		if err != nil {
			return nil, err
		}
		glyphs := make([]fonts.GlyphID, 0, len(set))
		for g := range set {
			glyphs = append(glyphs, g)
		}
		sort.Slice(glyphs, func(i, j int) bool { return glyphs[i] < glyphs[j] })
		r.loaded[handle] = font
		r.glyphUse[handle] = glyphs
	}
	return r, nil
}

func (r *docResolver) FontSubset(h semantic.FontHandle) (*fonts.Subset, raw.ObjectRef, error) {
	font, ok := r.loaded[h]
	if !ok {
		return nil, raw.ObjectRef{}, fmt.Errorf("%w: font handle %d was not seen in any text run", ErrResourceDecode, h)
	}
	glyphs := r.glyphUse[h]

	kw := cache.NewKeyWriter("font-subset")
	kw.Bytes(font.Digest[:])
	for _, g := range glyphs {
		kw.Uint64(uint64(g))
	}
	key := kw.Key()

	ref, err := r.cache.GetOrBuild(key, func() (raw.ObjectRef, error) {
		sub, err := r.subsetCache.Get(font, glyphs)
		if err != nil {
			return raw.ObjectRef{}, err
		}
		ref, err := r.defineFont(font, sub)
		if err != nil {
			return raw.ObjectRef{}, err
		}
		r.subsets.Store(key, sub)
		return ref, nil
	})
	if err != nil {
		return nil, raw.ObjectRef{}, err
	}
	sub, _ := r.subsets.Load(key)
	return sub.(*fonts.Subset), ref, nil
}

// defineFont emits the Type0 font object tree: composite font, CID
// descendant, descriptor and embedded program.
func (r *docResolver) defineFont(font *fonts.Font, sub *fonts.Subset) (raw.ObjectRef, error) {
	fileRef := r.store.Allocate()
	fileDict := raw.Dict()
	fileKey := "FontFile2"
	if sub.CFF {
		fileKey = "FontFile3"
		fileDict.Set("Subtype", raw.NameLiteral("OpenType"))
	} else {
		fileDict.Set("Length1", raw.NumberInt(int64(len(sub.Program))))
	}
	fileStream, err := r.binaryStream(fileDict, sub.Program)
	if err != nil {
		return raw.ObjectRef{}, err
	}
	if err := r.store.Define(fileRef, fileStream); err != nil {
		return raw.ObjectRef{}, err
	}

	descRef := r.store.Allocate()
	desc := raw.Dict()
	desc.Set("Type", raw.NameLiteral("FontDescriptor"))
	desc.Set("FontName", raw.NameLiteral(sub.BaseFont))
	desc.Set("Flags", raw.NumberInt(4)) // symbolic
	desc.Set("FontBBox", raw.NewArray(
		raw.NumberFloat(font.BBox[0]), raw.NumberFloat(font.BBox[1]),
		raw.NumberFloat(font.BBox[2]), raw.NumberFloat(font.BBox[3]),
	))
	desc.Set("ItalicAngle", raw.NumberFloat(font.ItalicAngle))
	desc.Set("Ascent", raw.NumberFloat(font.Ascent))
	desc.Set("Descent", raw.NumberFloat(font.Descent))
	desc.Set("CapHeight", raw.NumberFloat(font.CapHeight))
	desc.Set("StemV", raw.NumberInt(80))
	desc.Set(fileKey, raw.RefObj{R: fileRef})
	if err := r.store.Define(descRef, desc); err != nil {
		return raw.ObjectRef{}, err
	}

	widths := raw.NewArray()
	for _, w := range sub.Widths {
		widths.Append(raw.NumberInt(int64(w)))
	}

	cidRef := r.store.Allocate()
	cid := raw.Dict()
	cid.Set("Type", raw.NameLiteral("Font"))
	cid.Set("Subtype", raw.NameLiteral("CIDFontType2"))
	cid.Set("BaseFont", raw.NameLiteral(sub.BaseFont))
	sysInfo := raw.Dict()
	sysInfo.Set("Registry", raw.Str([]byte("Adobe")))
	sysInfo.Set("Ordering", raw.Str([]byte("Identity")))
	sysInfo.Set("Supplement", raw.NumberInt(0))
	cid.Set("CIDSystemInfo", sysInfo)
	cid.Set("FontDescriptor", raw.RefObj{R: descRef})
	cid.Set("DW", raw.NumberInt(1000))
	cid.Set("W", raw.NewArray(raw.NumberInt(0), widths))
	cid.Set("CIDToGIDMap", raw.NameLiteral("Identity"))
	if err := r.store.Define(cidRef, cid); err != nil {
		return raw.ObjectRef{}, err
	}

	type0Ref := r.store.Allocate()
	type0 := raw.Dict()
	type0.Set("Type", raw.NameLiteral("Font"))
	type0.Set("Subtype", raw.NameLiteral("Type0"))
	type0.Set("BaseFont", raw.NameLiteral(sub.BaseFont))
	type0.Set("Encoding", raw.NameLiteral("Identity-H"))
	type0.Set("DescendantFonts", raw.NewArray(raw.RefObj{R: cidRef}))
	if err := r.store.Define(type0Ref, type0); err != nil {
		return raw.ObjectRef{}, err
	}
	return type0Ref, nil
}

func colorComponents(cs semantic.ColorSpace) (int, error) {
	switch cs {
	case semantic.DeviceRGB:
		return 3, nil
	case semantic.DeviceGray:
		return 1, nil
	}
	return 0, fmt.Errorf("unknown color space %q", cs)
}

func validBitDepth(bits int) bool {
	switch bits {
	case 1, 2, 4, 8, 16:
		return true
	}
	return false
}

func (r *docResolver) Image(h semantic.ImageHandle) (raw.ObjectRef, error) {
	img, err := r.doc.Images.Get(h)
	if err != nil {
		return raw.ObjectRef{}, fmt.Errorf("%w: %v", ErrResourceDecode, err)
	}
	comps, err := colorComponents(img.ColorSpace)
	if err != nil {
		return raw.ObjectRef{}, fmt.Errorf("%w: image %d: %v", ErrResourceDecode, h, err)
	}
	if img.Width <= 0 || img.Height <= 0 {
		return raw.ObjectRef{}, fmt.Errorf("%w: image %d: dimensions %dx%d", ErrResourceDecode, h, img.Width, img.Height)
	}
	if !validBitDepth(img.BitsPerComponent) {
		return raw.ObjectRef{}, fmt.Errorf("%w: image %d: bits per component %d", ErrResourceDecode, h, img.BitsPerComponent)
	}
	rowBytes := (img.Width*comps*img.BitsPerComponent + 7) / 8
	if want := rowBytes * img.Height; len(img.Data) != want {
		return raw.ObjectRef{}, fmt.Errorf("%w: image %d: %d sample bytes, want %d", ErrResourceDecode, h, len(img.Data), want)
	}
	if img.SMask != nil && len(img.SMask) != img.Width*img.Height {
		return raw.ObjectRef{}, fmt.Errorf("%w: image %d: %d mask bytes, want %d", ErrResourceDecode, h, len(img.SMask), img.Width*img.Height)
	}

	kw := cache.NewKeyWriter("image-xobject")
	kw.Uint64(uint64(img.Width)).Uint64(uint64(img.Height)).Uint64(uint64(img.BitsPerComponent))
	kw.String(string(img.ColorSpace))
	kw.Bytes(img.Data)
	kw.Bytes(img.SMask)
	if img.Interpolate {
		kw.Uint64(1)
	} else {
		kw.Uint64(0)
	}

	return r.cache.GetOrBuild(kw.Key(), func() (raw.ObjectRef, error) {
		var smaskRef raw.ObjectRef
		if img.SMask != nil {
			smaskRef = r.store.Allocate()
			dict := raw.Dict()
			dict.Set("Type", raw.NameLiteral("XObject"))
			dict.Set("Subtype", raw.NameLiteral("Image"))
			dict.Set("Width", raw.NumberInt(int64(img.Width)))
			dict.Set("Height", raw.NumberInt(int64(img.Height)))
			dict.Set("ColorSpace", raw.NameLiteral(string(semantic.DeviceGray)))
			dict.Set("BitsPerComponent", raw.NumberInt(8))
			stream, err := r.binaryStream(dict, img.SMask)
			if err != nil {
				return raw.ObjectRef{}, err
			}
			if err := r.store.Define(smaskRef, stream); err != nil {
				return raw.ObjectRef{}, err
			}
		}

		ref := r.store.Allocate()
		dict := raw.Dict()
		dict.Set("Type", raw.NameLiteral("XObject"))
		dict.Set("Subtype", raw.NameLiteral("Image"))
		dict.Set("Width", raw.NumberInt(int64(img.Width)))
		dict.Set("Height", raw.NumberInt(int64(img.Height)))
		dict.Set("ColorSpace", raw.NameLiteral(string(img.ColorSpace)))
		dict.Set("BitsPerComponent", raw.NumberInt(int64(img.BitsPerComponent)))
		if img.SMask != nil {
			dict.Set("SMask", raw.RefObj{R: smaskRef})
		}
		if img.Interpolate {
			dict.Set("Interpolate", raw.Bool(true))
		}
		stream, err := r.binaryStream(dict, img.Data)
		if err != nil {
			return raw.ObjectRef{}, err
		}
		if err := r.store.Define(ref, stream); err != nil {
			return raw.ObjectRef{}, err
		}
		return ref, nil
	})
}

func (r *docResolver) AlphaState(fill bool, alpha float64) (raw.ObjectRef, error) {
	kw := cache.NewKeyWriter("ext-g-state")
	if fill {
		kw.Uint64(1)
	} else {
		kw.Uint64(0)
	}
	kw.Uint64(math.Float64bits(alpha))

	return r.cache.GetOrBuild(kw.Key(), func() (raw.ObjectRef, error) {
		ref := r.store.Allocate()
		dict := raw.Dict()
		dict.Set("Type", raw.NameLiteral("ExtGState"))
		if fill {
			dict.Set("ca", raw.NumberFloat(alpha))
		} else {
			dict.Set("CA", raw.NumberFloat(alpha))
		}
		if err := r.store.Define(ref, dict); err != nil {
			return raw.ObjectRef{}, err
		}
		return ref, nil
	})
}

// stream wraps data in a stream object, flate-compressing when the build
// is configured to.
func (r *docResolver) stream(dict *raw.DictObj, data []byte) (*raw.StreamObj, error) {
	if !r.compress || len(data) == 0 {
		return raw.NewStream(dict, data), nil
	}
	enc, err := filters.FlateEncode(data)
	if err != nil {
		return nil, err
	}
	s := raw.NewStream(dict, enc)
	s.Filter = filters.FlateName
	return s, nil
}

// binaryStream is stream for non-text payloads such as font programs and
// image samples. With HexStreams set and compression off, the payload is
// ASCIIHex-encoded so the whole file stays readable in a text editor.
func (r *docResolver) binaryStream(dict *raw.DictObj, data []byte) (*raw.StreamObj, error) {
	if r.hex && !r.compress && len(data) > 0 {
		s := raw.NewStream(dict, filters.ASCIIHexEncode(data))
		s.Filter = filters.ASCIIHexName
		return s, nil
	}
	return r.stream(dict, data)
}
