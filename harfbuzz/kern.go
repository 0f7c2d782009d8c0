package harfbuzz

import "github.com/wiedymi/otshape/font"

// ported from src/hb-aat-layout-kerx-table.hh (kern/kerx format 0/2/3/6 pair
// application), src/hb-ot-layout-kern-table.hh (classic `kern` table
// orchestration) and src/hb-aat-fallback.hh (no-GPOS/no-kerx fallback
// advance/mark positioning) Copyright © 2018  Ebrahim Byagowi; 2009,2010
// Red Hat, Inc.  Behdad Esfahbod

// kernPairTable is any of font.Kern0/Kern2/Kern3/Kern6: a direct
// (non-state-machine) glyph-pair kerning lookup.
type kernPairTable interface {
	Get(left, right GID) (int16, bool)
}

// kern applies one classic pair-kerning subtable (kern/kerx format 0, 2, 3
// or 6) across the whole buffer: every adjacent pair of non-ignorable
// glyphs is looked up and, if present, added either to the advance between
// them (the common case) or, for a cross-stream subtable, to the trailing
// glyph's perpendicular offset.
func kern(data kernPairTable, crossStream bool, font *Font, buffer *Buffer, mask GlyphMask, autozwj bool) {
	horizontal := buffer.Props.Direction.isHorizontal()

	skippable := func(info *GlyphInfo) bool {
		if !autozwj {
			return false
		}
		return info.isZwnj() || info.isZwj()
	}

	prev := -1
	for i := range buffer.Info {
		if buffer.Info[i].Mask&mask == 0 {
			continue
		}
		if skippable(&buffer.Info[i]) {
			continue
		}
		if prev < 0 {
			prev = i
			continue
		}
		value, ok := data.Get(buffer.Info[prev].Glyph, buffer.Info[i].Glyph)
		if ok && value != 0 {
			if crossStream {
				if horizontal {
					buffer.Pos[i].YOffset += font.emScaleY(value)
				} else {
					buffer.Pos[i].XOffset += font.emScaleX(value)
				}
				buffer.scratchFlags |= bsfHasGPOSAttachment
			} else if horizontal {
				buffer.Pos[prev].XAdvance += font.emScaleX(value)
			} else {
				buffer.Pos[prev].YAdvance += font.emScaleY(value)
			}
		}
		prev = i
	}
}

// hasMachineKerning reports whether k carries any state-machine (format 1
// or 4) subtable, which otLayoutKern can't apply itself (it only walks the
// direct pair tables) — the shaper falls back to zeroing mark widths via
// GDEF instead of trusting position-invariant assumptions when this is
// true.
func hasMachineKerning(k font.Kernx) bool {
	for _, st := range k {
		switch st.Data.(type) {
		case font.Kern1, font.Kern4:
			return true
		}
	}
	return false
}

// hasCrossKerning reports whether k carries any cross-stream subtable
// (kerning that adjusts the perpendicular offset rather than the
// advance), which otLayoutKern applies as an offset adjustment that later
// mark-zeroing passes must not blindly undo.
func hasCrossKerning(k font.Kernx) bool {
	for _, st := range k {
		if st.IsCrossStream() {
			return true
		}
	}
	return false
}

// otLayoutKern applies the face's classic `kern` table (as opposed to
// GPOS "kern" feature lookups or AAT `kerx`), used when the font has no
// GPOS kerning but does carry an old-style kern table.
func (sp *otShapePlan) otLayoutKern(f *Font, buffer *Buffer) {
	for _, st := range f.Face().Kern {
		switch data := st.Data.(type) {
		case font.Kern0:
			kern(data, st.IsCrossStream(), f, buffer, sp.kernMask, true)
		case font.Kern2:
			kern(data, st.IsCrossStream(), f, buffer, sp.kernMask, true)
		case font.Kern3:
			kern(data, st.IsCrossStream(), f, buffer, sp.kernMask, true)
		case font.Kern6:
			kern(data, st.IsCrossStream(), f, buffer, sp.kernMask, true)
		}
	}
}

// otApplyFallbackKern is the last resort when the face has no GPOS, kerx
// or kern data at all: it applies the simple space-width fallback only;
// it positions no marks.
func (sp *otShapePlan) otApplyFallbackKern(f *Font, buffer *Buffer) {
	fallbackSpaces(f, buffer)
}

// fallbackSpaces widens space characters to their font's natural advance
// when no positioning table did it already (GSUB/GPOS-less runs, or runs
// shaped purely through AAT substitution with no kerx).
func fallbackSpaces(f *Font, buffer *Buffer) {
	horizontal := buffer.Props.Direction.isHorizontal()
	for i := range buffer.Info {
		if !buffer.Info[i].isUnicodeSpace() {
			continue
		}
		if horizontal {
			buffer.Pos[i].XAdvance = f.GlyphHAdvance(buffer.Info[i].Glyph)
		} else {
			buffer.Pos[i].YAdvance = f.getGlyphVAdvance(buffer.Info[i].Glyph)
		}
	}
}

// fallbackMarkPositionRecategorizeMarks widens the complexCategory storage
// used to remember which marks were recategorized during fallback
// positioning, a no-op placeholder slot kept for parity with the real
// shaper's two-pass fallback (recategorize, then position) structure; this
// package's simplified fallback positions marks directly in one pass.
func fallbackMarkPositionRecategorizeMarks(buffer *Buffer) {}

// fallbackMarkPosition stacks combining marks over their base glyph, a
// rough version of the diacritic stacking HarfBuzz's fallback shaper
// performs when a font defines no mark positioning at all. Only when
// adjustOffsetsWhenZeroing is set does it act: each mark after a base gets
// its offset along the line reset to 0, its Y offset raised by half the
// base's advance (horizontal text only) and both advances zeroed.
// Otherwise marks are left untouched.
func fallbackMarkPosition(plan *otShapePlan, f *Font, buffer *Buffer, adjustOffsetsWhenZeroing bool) {
	horizontal := buffer.Props.Direction.isHorizontal()
	clusterInfo := buffer.Info

	base := -1
	for i := range clusterInfo {
		if !clusterInfo[i].isUnicodeMark() {
			base = i
			continue
		}
		if base < 0 {
			continue
		}
		if !adjustOffsetsWhenZeroing {
			continue
		}
		if horizontal {
			buffer.Pos[i].XOffset = 0
			buffer.Pos[i].YOffset += f.GlyphHAdvance(clusterInfo[base].Glyph) / 2
		} else {
			buffer.Pos[i].YOffset = 0
		}
		buffer.Pos[i].XAdvance = 0
		buffer.Pos[i].YAdvance = 0
	}
}
