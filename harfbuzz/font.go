package harfbuzz

import (
	"github.com/wiedymi/otshape/font"
	"github.com/wiedymi/otshape/font/opentype/tables"
)

// ported from src/hb-font.hh, hb-ot-font.cc Copyright © 2009  Red Hat, Inc. 2012  Google, Inc. Behdad Esfahbod

// GID is a glyph index, as opposed to a Unicode codepoint.
type GID = font.GID

// gID is the wider integer type the lookup-matching and coverage-digest code
// computes with; glyph ids are always promoted into it.
type gID = uint32

// Face is one sized, instanced sfnt resource: SetCoords/SetPpem pin down the
// variation instance and device size that emScaleX/emFscaleX and friends
// resolve against.
type Face = font.Face

// Font is a Face wrapped with the per-lookup accelerators the shaping
// pipeline consults for every GSUB/GPOS lookup it walks: a setDigest to
// short-circuit lookups whose coverage can't possibly match, built once per
// Font rather than once per shape call.
type Font struct {
	face *Face

	gsubAccels []otLayoutLookupAccelerator
	gposAccels []otLayoutLookupAccelerator
}

// NewFont builds a Font ready for shaping from a sized Face, pre-computing
// the GSUB/GPOS lookup accelerators.
func NewFont(face *Face) *Font {
	f := &Font{face: face}

	gsub := face.GSUB.Lookups
	f.gsubAccels = make([]otLayoutLookupAccelerator, len(gsub))
	for i, l := range gsub {
		f.gsubAccels[i].init(lookupGSUB(l))
	}

	gpos := face.GPOS.Lookups
	f.gposAccels = make([]otLayoutLookupAccelerator, len(gpos))
	for i, l := range gpos {
		f.gposAccels[i].init(lookupGPOS(l))
	}

	return f
}

// Face returns the underlying sized face.
func (f *Font) Face() *Face { return f.face }

func (f *Font) varCoords() []font.VarCoord { return f.face.VarCoords() }

// hasGlyph reports whether the font's cmap maps r to a real (non-.notdef)
// glyph.
func (f *Font) hasGlyph(r rune) bool { return f.face.HasGlyph(r) }

// GlyphHAdvance returns a glyph's horizontal advance, scaled to font units
// via upem (no hdvx/HVAR variation-delta support: advance widths come
// straight from hmtx).
func (f *Font) GlyphHAdvance(gid GID) Position {
	return f.emScaleDir(f.face.HorizontalAdvance(gid), f.xScale())
}

// getGlyphVAdvance returns a glyph's vertical advance. Without a vmtx table
// this package falls back to one em, mirroring HarfBuzz's synthesized
// vertical metrics for fonts lacking vertical layout data.
func (f *Font) getGlyphVAdvance(gid GID) Position {
	return -f.emScaleY(int16(f.face.UnitsPerEm()))
}

// addGlyphHOrigin/subtractGlyphHOrigin/subtractGlyphVOrigin translate
// between the glyph's natural origin and the shaping engine's internal
// horizontal-top-left origin. This package has no separate horizontal or
// vertical origin metrics (no hmtx/vmtx origin side tables beyond advance
// widths), so the origin is always (0, 0) and these are pass-throughs,
// matching HarfBuzz's default font funcs when no origin callback is set.
func (f *Font) addGlyphHOrigin(gid GID, x, y Position) (Position, Position) {
	return x, y
}

func (f *Font) subtractGlyphHOrigin(gid GID, x, y Position) (Position, Position) {
	return x, y
}

func (f *Font) subtractGlyphVOrigin(gid GID, x, y Position) (Position, Position) {
	return x, y
}

// emScaleX/emScaleY scale a signed font-unit design value (a ValueRecord
// placement/advance, an AAT kerning value) by ppem/upem into the device
// scale the buffer's positions are reported in.
func (f *Font) emScaleX(v int16) Position { return f.emScaleDir(int32(v), f.xScale()) }
func (f *Font) emScaleY(v int16) Position { return f.emScaleDir(int32(v), f.yScale()) }

// emScalefX/emScalefY are the float32 counterparts emScaleX/emScaleY use for
// AAT 'trak' track values, which are already fractional (fixed 16.16 em
// units turned into float by the caller).
func (f *Font) emScalefX(v float32) Position { return Position(v * f.xScalef()) }
func (f *Font) emScalefY(v float32) Position { return Position(v * f.yScalef()) }

// emFscaleX/emFscaleY scale a font-unit coordinate (an Anchor's X/Y) into a
// float device coordinate, used where the caller still needs to add a
// fractional device-table delta before rounding to a Position.
func (f *Font) emFscaleX(v int16) float32 { return float32(v) * f.xScalef() }
func (f *Font) emFscaleY(v int16) float32 { return float32(v) * f.yScalef() }

func (f *Font) xScalef() float32 {
	upem := f.face.UnitsPerEm()
	if upem == 0 {
		return 1
	}
	xPpem, _ := f.face.Ppem()
	if xPpem == 0 {
		return 1
	}
	return float32(xPpem) / float32(upem)
}

func (f *Font) yScalef() float32 {
	upem := f.face.UnitsPerEm()
	if upem == 0 {
		return 1
	}
	_, yPpem := f.face.Ppem()
	if yPpem == 0 {
		return 1
	}
	return float32(yPpem) / float32(upem)
}

// xScale/yScale give the integer-friendly scale used when the font has no
// specific pixel size set: device-independent font units pass straight
// through (ppem 0 means "unscaled", matching HarfBuzz's upem==ppem default).
func (f *Font) xScale() int32 {
	xPpem, _ := f.face.Ppem()
	upem := int32(f.face.UnitsPerEm())
	if xPpem == 0 || upem == 0 {
		return 1
	}
	return int32(xPpem)
}

func (f *Font) yScale() int32 {
	_, yPpem := f.face.Ppem()
	upem := int32(f.face.UnitsPerEm())
	if yPpem == 0 || upem == 0 {
		return 1
	}
	return int32(yPpem)
}

func (f *Font) emScaleDir(v, scale int32) Position {
	upem := int32(f.face.UnitsPerEm())
	if upem == 0 {
		upem = 1000
	}
	xPpem, yPpem := f.face.Ppem()
	if scale == 1 && xPpem == 0 && yPpem == 0 {
		// No explicit pixel size installed: report values in font units
		// directly, which is what every unscaled caller in this package
		// (kerning values, kern tests) expects.
		return Position(v)
	}
	return Position(int64(v) * int64(scale) / int64(upem))
}

// getXDelta/getYDelta resolve an optional device-variation table (§4.D) into
// a scaled delta, 0 when dev is nil or the face carries no fine-grained
// device adjustment for the current ppem/instance.
func (f *Font) getXDelta(store tables.ItemVarStore, dev *tables.Devices) Position {
	if dev == nil {
		return 0
	}
	xPpem, _ := f.face.Ppem()
	return Position(dev.GetDelta(xPpem, store, f.face.VarCoords()))
}

func (f *Font) getYDelta(store tables.ItemVarStore, dev *tables.Devices) Position {
	if dev == nil {
		return 0
	}
	_, yPpem := f.face.Ppem()
	return Position(dev.GetDelta(yPpem, store, f.face.VarCoords()))
}

// getGlyphContourPointForOrigin reports the coordinates of glyph's pointIndex
// outline point (an AAT cursive/attachment anchor-point reference), scaled
// to device units. Direction only matters for vertical text, which this
// package's glyf reader does not distinguish, so it is accepted for call-site
// symmetry with HarfBuzz and otherwise ignored.
func (f *Font) getGlyphContourPointForOrigin(gid GID, pointIndex uint16, _ Direction) (x, y Position, ok bool) {
	if int(gid) >= len(f.face.Glyf) {
		return 0, 0, false
	}
	glyph := f.face.Glyf[gid]
	if glyph.IsComposite || int(pointIndex) >= len(glyph.Points) {
		return 0, 0, false
	}
	p := glyph.Points[pointIndex]
	return f.emScaleX(p.X), f.emScaleY(p.Y), true
}
