package fonts

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// Subset is a minimal embeddable font program covering a fixed glyph set.
// Character codes are dense: code i maps to Glyphs[i], with code 0 always the
// missing-glyph entry. The same font and glyph set always produce identical
// bytes.
type Subset struct {
	// BaseFont is the subset-tagged PostScript name, e.g. "ABCDEF+Roboto".
	BaseFont string
	// Program is the rebuilt font file.
	Program []byte
	// Glyphs lists the original glyph IDs in the subset, sorted ascending.
	// The index of a glyph is its subset code.
	Glyphs []GlyphID
	// Widths holds the advance width for each code, in 1000-unit space.
	Widths []int
	// CFF marks a program with CFF outlines (an 'OTTO' wrapper). Such
	// programs embed under FontFile3 with an OpenType subtype instead of
	// FontFile2.
	CFF bool

	codes map[GlyphID]uint16
}

// Code returns the subset character code for an original glyph ID.
func (s *Subset) Code(gid GlyphID) (uint16, bool) {
	code, ok := s.codes[gid]
	return code, ok
}

// MakeSubset builds a subset of font covering glyphs, expanded with the GSUB
// substitution closure and composite glyph components. Glyph 0 is always
// included. A glyph outside the font's range fails with
// ErrIncompleteGlyphClosure.
func MakeSubset(font *Font, glyphs []GlyphID) (*Subset, error) {
	set := make(map[GlyphID]bool, len(glyphs)+1)
	set[0] = true
	for _, g := range glyphs {
		if int(g) >= font.NumGlyphs {
			return nil, fmt.Errorf("%w: font %q has no glyph %d", ErrIncompleteGlyphClosure, font.Name, g)
		}
		set[g] = true
	}
	if err := expandGSUB(font.Data, set); err != nil {
		return nil, fmt.Errorf("%w: font %q: %v", ErrResourceDecode, font.Name, err)
	}

	program, order, err := subsetTrueType(font.Data, set)
	if err != nil {
		if errors.Is(err, ErrIncompleteGlyphClosure) {
			return nil, err
		}
		// Not a rebuildable TrueType program: embed it whole with
		// identity codes so CFF-flavoured fonts still render.
		return identitySubset(font)
	}

	sub := &Subset{
		BaseFont: subsetTag(font, order) + "+" + font.Name,
		Program:  program,
		Glyphs:   order,
		Widths:   make([]int, len(order)),
		codes:    make(map[GlyphID]uint16, len(order)),
	}
	for code, g := range order {
		sub.codes[g] = uint16(code)
		sub.Widths[code] = font.GlyphWidth(g)
	}
	return sub, nil
}

func identitySubset(font *Font) (*Subset, error) {
	order := make([]GlyphID, font.NumGlyphs)
	widths := make([]int, font.NumGlyphs)
	codes := make(map[GlyphID]uint16, font.NumGlyphs)
	for i := range order {
		g := GlyphID(i)
		order[i] = g
		widths[i] = font.GlyphWidth(g)
		codes[g] = uint16(i)
	}
	return &Subset{
		BaseFont: subsetTag(font, order) + "+" + font.Name,
		Program:  font.Data,
		Glyphs:   order,
		Widths:   widths,
		CFF:      isCFFProgram(font.Data),
		codes:    codes,
	}, nil
}

func isCFFProgram(data []byte) bool {
	return len(data) >= 4 && string(data[:4]) == "OTTO"
}

// subsetTag derives the six-letter subset prefix from the font identity and
// glyph set, so equal inputs name their subsets identically.
func subsetTag(font *Font, order []GlyphID) string {
	h, _ := blake2b.New256(nil)
	h.Write(font.Digest[:])
	var buf [2]byte
	for _, g := range order {
		buf[0], buf[1] = byte(g>>8), byte(g)
		h.Write(buf[:])
	}
	sum := h.Sum(nil)
	tag := make([]byte, 6)
	for i := range tag {
		tag[i] = 'A' + sum[i]%26
	}
	return string(tag)
}

// SubsetCache memoizes built subsets across documents. It is safe for
// concurrent use and strictly an optimization: a nil cache disables reuse.
type SubsetCache struct {
	mu      sync.RWMutex
	entries map[string]*Subset
}

func NewSubsetCache() *SubsetCache {
	return &SubsetCache{entries: make(map[string]*Subset)}
}

func cacheKey(font *Font, glyphs []GlyphID) string {
	sorted := append([]GlyphID(nil), glyphs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	h, _ := blake2b.New256(nil)
	h.Write(font.Digest[:])
	var buf [2]byte
	for i, g := range sorted {
		if i > 0 && g == sorted[i-1] {
			continue
		}
		buf[0], buf[1] = byte(g>>8), byte(g)
		h.Write(buf[:])
	}
	return string(h.Sum(nil))
}

// Get builds the subset for font and glyphs, reusing a previous result when
// the font bytes and glyph set match. Subsets are immutable once built, so
// sharing is safe.
func (c *SubsetCache) Get(font *Font, glyphs []GlyphID) (*Subset, error) {
	if c == nil {
		return MakeSubset(font, glyphs)
	}
	key := cacheKey(font, glyphs)
	c.mu.RLock()
	sub, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return sub, nil
	}
	sub, err := MakeSubset(font, glyphs)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	if prev, ok := c.entries[key]; ok {
		sub = prev
	} else {
		c.entries[key] = sub
	}
	c.mu.Unlock()
	return sub, nil
}

// Len reports the number of cached subsets.
func (c *SubsetCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
