package fonts

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
)

// ErrIncompleteGlyphClosure reports a composite glyph whose component lies
// outside the font's glyph range, or a requested glyph that does not exist.
var ErrIncompleteGlyphClosure = errors.New("fonts: incomplete glyph closure")

const (
	compArgsAreWords    = 0x0001
	compHaveScale       = 0x0008
	compMoreComponents  = 0x0020
	compHaveXYScale     = 0x0040
	compHave2x2         = 0x0080
	headChecksumMagic   = 0xB1B0AFBA
	maxCompositeNesting = 64
)

type ttFont struct {
	data      []byte
	tables    map[string][]byte
	numGlyphs int
	locaLong  bool
	loca      []uint32
}

func parseTrueType(data []byte) (*ttFont, error) {
	if len(data) < 12 {
		return nil, errors.New("truncated sfnt header")
	}
	tag := binary.BigEndian.Uint32(data)
	if tag != 0x00010000 && tag != 0x74727565 { // 'true'
		return nil, fmt.Errorf("not a TrueType font (tag %08x)", tag)
	}
	numTables := int(binary.BigEndian.Uint16(data[4:]))
	if len(data) < 12+numTables*16 {
		return nil, errors.New("truncated table directory")
	}
	f := &ttFont{data: data, tables: make(map[string][]byte, numTables)}
	for i := 0; i < numTables; i++ {
		rec := data[12+i*16:]
		name := string(rec[:4])
		off := binary.BigEndian.Uint32(rec[8:])
		length := binary.BigEndian.Uint32(rec[12:])
		if uint64(off)+uint64(length) > uint64(len(data)) {
			return nil, fmt.Errorf("table %q out of bounds", name)
		}
		f.tables[name] = data[off : off+length]
	}

	head, ok := f.tables["head"]
	if !ok || len(head) < 54 {
		return nil, errors.New("missing head table")
	}
	maxp, ok := f.tables["maxp"]
	if !ok || len(maxp) < 6 {
		return nil, errors.New("missing maxp table")
	}
	f.numGlyphs = int(binary.BigEndian.Uint16(maxp[4:]))
	f.locaLong = binary.BigEndian.Uint16(head[50:]) == 1

	loca, ok := f.tables["loca"]
	if !ok {
		return nil, errors.New("missing loca table")
	}
	f.loca = make([]uint32, f.numGlyphs+1)
	if f.locaLong {
		if len(loca) < (f.numGlyphs+1)*4 {
			return nil, errors.New("truncated loca table")
		}
		for i := range f.loca {
			f.loca[i] = binary.BigEndian.Uint32(loca[i*4:])
		}
	} else {
		if len(loca) < (f.numGlyphs+1)*2 {
			return nil, errors.New("truncated loca table")
		}
		for i := range f.loca {
			f.loca[i] = uint32(binary.BigEndian.Uint16(loca[i*2:])) * 2
		}
	}
	glyf, ok := f.tables["glyf"]
	if !ok {
		return nil, errors.New("missing glyf table")
	}
	if f.loca[f.numGlyphs] > uint32(len(glyf)) {
		return nil, errors.New("loca exceeds glyf length")
	}
	return f, nil
}

func (f *ttFont) glyphData(gid GlyphID) ([]byte, error) {
	if int(gid) >= f.numGlyphs {
		return nil, fmt.Errorf("%w: glyph %d outside font range %d", ErrIncompleteGlyphClosure, gid, f.numGlyphs)
	}
	start, end := f.loca[gid], f.loca[gid+1]
	if start > end {
		return nil, fmt.Errorf("glyph %d has inverted loca range", gid)
	}
	return f.tables["glyf"][start:end], nil
}

// componentOffsets returns the byte offset of every component glyph index
// within a composite glyph description. Simple and empty glyphs yield nil.
func componentOffsets(glyph []byte) ([]int, error) {
	if len(glyph) < 10 {
		return nil, nil
	}
	numContours := int16(binary.BigEndian.Uint16(glyph))
	if numContours >= 0 {
		return nil, nil
	}
	var offsets []int
	pos := 10
	for {
		if pos+4 > len(glyph) {
			return nil, errors.New("truncated composite glyph")
		}
		flags := binary.BigEndian.Uint16(glyph[pos:])
		offsets = append(offsets, pos+2)
		pos += 4
		if flags&compArgsAreWords != 0 {
			pos += 4
		} else {
			pos += 2
		}
		switch {
		case flags&compHaveScale != 0:
			pos += 2
		case flags&compHaveXYScale != 0:
			pos += 4
		case flags&compHave2x2 != 0:
			pos += 8
		}
		if flags&compMoreComponents == 0 {
			return offsets, nil
		}
	}
}

// compositeClosure expands the glyph set with every component reachable from
// a composite glyph, to any nesting depth.
func (f *ttFont) compositeClosure(set map[GlyphID]bool) error {
	queue := make([]GlyphID, 0, len(set))
	for g := range set {
		queue = append(queue, g)
	}
	for depth := 0; len(queue) > 0; depth++ {
		if depth > maxCompositeNesting {
			return errors.New("composite glyph nesting too deep")
		}
		var next []GlyphID
		for _, g := range queue {
			data, err := f.glyphData(g)
			if err != nil {
				return err
			}
			offsets, err := componentOffsets(data)
			if err != nil {
				return err
			}
			for _, off := range offsets {
				comp := GlyphID(binary.BigEndian.Uint16(data[off:]))
				if int(comp) >= f.numGlyphs {
					return fmt.Errorf("%w: composite glyph %d references glyph %d outside font range %d",
						ErrIncompleteGlyphClosure, g, comp, f.numGlyphs)
				}
				if !set[comp] {
					set[comp] = true
					next = append(next, comp)
				}
			}
		}
		queue = next
	}
	return nil
}

func (f *ttFont) hMetric(gid GlyphID) (advance, lsb uint16) {
	hhea, hmtx := f.tables["hhea"], f.tables["hmtx"]
	if len(hhea) < 36 || hmtx == nil {
		return 0, 0
	}
	numHM := int(binary.BigEndian.Uint16(hhea[34:]))
	if numHM == 0 {
		return 0, 0
	}
	if int(gid) < numHM {
		if off := int(gid) * 4; off+4 <= len(hmtx) {
			return binary.BigEndian.Uint16(hmtx[off:]), binary.BigEndian.Uint16(hmtx[off+2:])
		}
		return 0, 0
	}
	// Trailing glyphs repeat the last advance with their own bearings.
	if off := (numHM - 1) * 4; off+4 <= len(hmtx) {
		advance = binary.BigEndian.Uint16(hmtx[off:])
	}
	if off := numHM*4 + (int(gid)-numHM)*2; off+2 <= len(hmtx) {
		lsb = binary.BigEndian.Uint16(hmtx[off:])
	}
	return advance, lsb
}

// subsetTrueType rebuilds a TrueType program containing exactly the glyphs in
// keep, renumbered densely in ascending original-ID order with glyph 0 first.
// The returned order maps new glyph IDs to original ones.
func subsetTrueType(data []byte, keep map[GlyphID]bool) (program []byte, order []GlyphID, err error) {
	f, err := parseTrueType(data)
	if err != nil {
		return nil, nil, err
	}
	set := make(map[GlyphID]bool, len(keep)+1)
	set[0] = true
	for g := range keep {
		if int(g) >= f.numGlyphs {
			return nil, nil, fmt.Errorf("%w: glyph %d outside font range %d", ErrIncompleteGlyphClosure, g, f.numGlyphs)
		}
		set[g] = true
	}
	if err := f.compositeClosure(set); err != nil {
		return nil, nil, err
	}

	order = make([]GlyphID, 0, len(set))
	for g := range set {
		order = append(order, g)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	newID := make(map[GlyphID]uint16, len(order))
	for i, g := range order {
		newID[g] = uint16(i)
	}

	var glyf []byte
	loca := make([]uint32, 0, len(order)+1)
	for _, g := range order {
		loca = append(loca, uint32(len(glyf)))
		src, err := f.glyphData(g)
		if err != nil {
			return nil, nil, err
		}
		glyph := append([]byte(nil), src...)
		offsets, err := componentOffsets(glyph)
		if err != nil {
			return nil, nil, err
		}
		for _, off := range offsets {
			comp := GlyphID(binary.BigEndian.Uint16(glyph[off:]))
			binary.BigEndian.PutUint16(glyph[off:], newID[comp])
		}
		glyf = append(glyf, glyph...)
		// Glyph descriptions stay long-aligned.
		for len(glyf)%4 != 0 {
			glyf = append(glyf, 0)
		}
	}
	loca = append(loca, uint32(len(glyf)))

	locaBytes := make([]byte, (len(order)+1)*4)
	for i, off := range loca {
		binary.BigEndian.PutUint32(locaBytes[i*4:], off)
	}

	hmtx := make([]byte, len(order)*4)
	for i, g := range order {
		adv, lsb := f.hMetric(g)
		binary.BigEndian.PutUint16(hmtx[i*4:], adv)
		binary.BigEndian.PutUint16(hmtx[i*4+2:], lsb)
	}

	head := append([]byte(nil), f.tables["head"]...)
	binary.BigEndian.PutUint32(head[8:], 0)           // checksumAdjustment, filled at assembly
	binary.BigEndian.PutUint16(head[50:], 1)          // long loca format
	hhea := append([]byte(nil), f.tables["hhea"]...)
	binary.BigEndian.PutUint16(hhea[34:], uint16(len(order)))
	maxp := append([]byte(nil), f.tables["maxp"]...)
	binary.BigEndian.PutUint16(maxp[4:], uint16(len(order)))

	w := newTTWriter()
	w.add("head", head)
	w.add("hhea", hhea)
	w.add("maxp", maxp)
	w.add("hmtx", hmtx)
	w.add("loca", locaBytes)
	w.add("glyf", glyf)
	for _, hint := range []string{"cvt ", "fpgm", "prep"} {
		if t, ok := f.tables[hint]; ok {
			w.add(hint, append([]byte(nil), t...))
		}
	}
	return w.bytes(), order, nil
}

// ttWriter assembles a table set into a binary font with a sorted directory
// and valid table and whole-font checksums.
type ttWriter struct {
	names  []string
	tables map[string][]byte
}

func newTTWriter() *ttWriter {
	return &ttWriter{tables: make(map[string][]byte)}
}

func (w *ttWriter) add(name string, data []byte) {
	if _, ok := w.tables[name]; !ok {
		w.names = append(w.names, name)
	}
	w.tables[name] = data
}

func (w *ttWriter) bytes() []byte {
	sort.Strings(w.names)
	n := len(w.names)

	entrySelector := 0
	for 1<<(entrySelector+1) <= n {
		entrySelector++
	}
	searchRange := 16 << entrySelector

	out := make([]byte, 12+n*16)
	binary.BigEndian.PutUint32(out, 0x00010000)
	binary.BigEndian.PutUint16(out[4:], uint16(n))
	binary.BigEndian.PutUint16(out[6:], uint16(searchRange))
	binary.BigEndian.PutUint16(out[8:], uint16(entrySelector))
	binary.BigEndian.PutUint16(out[10:], uint16(n*16-searchRange))

	headOffset := -1
	for i, name := range w.names {
		data := w.tables[name]
		offset := len(out)
		if name == "head" {
			headOffset = offset
		}
		padded := append(append([]byte(nil), data...), make([]byte, (4-len(data)%4)%4)...)
		out = append(out, padded...)

		rec := out[12+i*16:]
		copy(rec, name)
		binary.BigEndian.PutUint32(rec[4:], tableChecksum(padded))
		binary.BigEndian.PutUint32(rec[8:], uint32(offset))
		binary.BigEndian.PutUint32(rec[12:], uint32(len(data)))
	}

	if headOffset >= 0 {
		total := tableChecksum(out)
		binary.BigEndian.PutUint32(out[headOffset+8:], headChecksumMagic-total)
	}
	return out
}

func tableChecksum(data []byte) uint32 {
	var sum uint32
	for i := 0; i+4 <= len(data); i += 4 {
		sum += binary.BigEndian.Uint32(data[i:])
	}
	if rem := len(data) % 4; rem != 0 {
		var last [4]byte
		copy(last[:], data[len(data)-rem:])
		sum += binary.BigEndian.Uint32(last[:])
	}
	return sum
}
