package fonts

import (
	"bytes"
	"fmt"

	"github.com/go-text/typesetting/font/opentype"
	"github.com/go-text/typesetting/font/opentype/tables"
)

// expandGSUB grows the glyph set with every glyph reachable through GSUB
// substitutions, so that shaped text rendered with any feature still resolves
// inside the subset. The set is updated in place.
//
// All lookups are iterated to a fixed point. Contextual lookups (types 5-6)
// carry no outputs of their own; the lookups they dispatch to are already
// covered by the top-level iteration, which over-approximates their trigger
// conditions.
func expandGSUB(fontData []byte, set map[GlyphID]bool) error {
	loader, err := opentype.NewLoader(bytes.NewReader(fontData))
	if err != nil {
		return fmt.Errorf("open font: %w", err)
	}
	gsubTag := opentype.NewTag('G', 'S', 'U', 'B')
	if !loader.HasTable(gsubTag) {
		return nil
	}
	gsubBytes, err := loader.RawTable(gsubTag)
	if err != nil {
		return fmt.Errorf("read GSUB table: %w", err)
	}
	layout, _, err := tables.ParseLayout(gsubBytes)
	if err != nil {
		return fmt.Errorf("parse GSUB table: %w", err)
	}

	var subtables []tables.GSUBLookup
	for _, lookup := range layout.LookupList.Lookups {
		parsed, err := lookup.AsGSUBLookups()
		if err != nil {
			continue
		}
		subtables = append(subtables, parsed...)
	}

	for changed := true; changed; {
		changed = false
		current := make([]GlyphID, 0, len(set))
		for g := range set {
			current = append(current, g)
		}
		for _, sub := range subtables {
			if applySubtable(sub, current, set) {
				changed = true
			}
		}
	}
	return nil
}

func applySubtable(sub tables.GSUBLookup, current []GlyphID, set map[GlyphID]bool) bool {
	add := func(g tables.GlyphID) bool {
		gid := GlyphID(g)
		if set[gid] {
			return false
		}
		set[gid] = true
		return true
	}

	changed := false
	cov := sub.Cov()
	for _, gid := range current {
		idx, ok := cov.Index(tables.GlyphID(gid))
		if !ok {
			continue
		}
		switch t := sub.(type) {
		case tables.SingleSubs:
			switch d := t.Data.(type) {
			case tables.SingleSubstData1:
				if add(tables.GlyphID(int(gid) + int(d.DeltaGlyphID))) {
					changed = true
				}
			case tables.SingleSubstData2:
				if idx < len(d.SubstituteGlyphIDs) && add(d.SubstituteGlyphIDs[idx]) {
					changed = true
				}
			}

		case tables.MultipleSubs:
			if idx < len(t.Sequences) {
				for _, out := range t.Sequences[idx].SubstituteGlyphIDs {
					if add(out) {
						changed = true
					}
				}
			}

		case tables.AlternateSubs:
			if idx < len(t.AlternateSets) {
				for _, out := range t.AlternateSets[idx].AlternateGlyphIDs {
					if add(out) {
						changed = true
					}
				}
			}

		case tables.LigatureSubs:
			if idx >= len(t.LigatureSets) {
				break
			}
			for _, lig := range t.LigatureSets[idx].Ligatures {
				formable := true
				for _, comp := range lig.ComponentGlyphIDs {
					if !set[GlyphID(comp)] {
						formable = false
						break
					}
				}
				if formable && add(lig.LigatureGlyph) {
					changed = true
				}
			}

		case tables.ExtensionSubs:
			if inner, ok := unwrapExtension(tables.Extension(t)); ok {
				if applySubtable(inner, []GlyphID{gid}, set) {
					changed = true
				}
			}

		case tables.ReverseChainSingleSubs:
			if idx < len(t.SubstituteGlyphIDs) && add(t.SubstituteGlyphIDs[idx]) {
				changed = true
			}
		}
	}
	return changed
}

func unwrapExtension(ext tables.Extension) (tables.GSUBLookup, bool) {
	if int(ext.ExtensionOffset) >= len(ext.RawData) {
		return nil, false
	}
	data := ext.RawData[ext.ExtensionOffset:]
	var (
		inner tables.GSUBLookup
		err   error
	)
	switch ext.ExtensionLookupType {
	case 1:
		inner, _, err = tables.ParseSingleSubs(data)
	case 2:
		inner, _, err = tables.ParseMultipleSubs(data)
	case 3:
		inner, _, err = tables.ParseAlternateSubs(data)
	case 4:
		inner, _, err = tables.ParseLigatureSubs(data)
	default:
		return nil, false
	}
	if err != nil {
		return nil, false
	}
	return inner, true
}
