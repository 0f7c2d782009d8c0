package tables

import (
	"fmt"

	ot "github.com/wiedymi/otshape/font/opentype"
)

// ContourPoint is one on/off-curve outline point, used both for classic
// glyf outline construction and as the gvar delta-application target (§4.D
// applyDeltasToPoints).
type ContourPoint struct {
	X, Y   int16
	OnCurve bool
}

// GlyphData is one parsed `glyf` entry: either a simple glyph (ContourEnds
// and Points set) or a composite (IsComposite, Components non-nil).
type GlyphData struct {
	ContourEnds []uint16
	Points      []ContourPoint
	Components  []GlyphComponent
	IsComposite bool
}

// GlyphComponent is one sub-glyph reference of a composite glyph, including
// its affine placement (§4.B glyf composite transform).
type GlyphComponent struct {
	GlyphIndex           GlyphID
	DX, DY               int16
	PointMatching        bool // ARGS_ARE_XY_VALUES unset: DX/DY are point indices instead
	ScaleX, Scale01, Scale10, ScaleY float32
	RoundXYToGrid        bool
	MoreComponents       bool
}

// Glyf is the parsed `glyf` table, indexed by glyph ID via the `loca`
// offsets supplied at parse time.
type Glyf []GlyphData

// PointCount returns the number of outline points recorded for gid,
// excluding the 4 phantom points synthesized by the variation machinery
// (left/right sidebearing and vertical origin/advance anchors).
func (g Glyf) PointCount(gid GlyphID) int {
	if int(gid) >= len(g) {
		return 0
	}
	gl := g[gid]
	if gl.IsComposite {
		return len(gl.Components)
	}
	return len(gl.Points)
}

// ParseLoca decodes the `loca` table into byte offsets into `glyf`, per-glyph
// plus a trailing sentinel (longFormat per head.indexToLocFormat).
func ParseLoca(data []byte, numGlyphs int, longFormat bool) ([]uint32, error) {
	r := ot.NewLoader(data)
	offs := make([]uint32, numGlyphs+1)
	for i := range offs {
		if longFormat {
			offs[i] = r.U32()
		} else {
			offs[i] = uint32(r.U16()) * 2
		}
	}
	if r.Err() != nil {
		return nil, r.Err()
	}
	return offs, nil
}

// ParseGlyf decodes every glyph outline given loca's per-glyph byte offsets.
func ParseGlyf(data []byte, loca []uint32) (Glyf, error) {
	if len(loca) == 0 {
		return nil, nil
	}
	out := make(Glyf, len(loca)-1)
	for i := 0; i < len(loca)-1; i++ {
		start, end := loca[i], loca[i+1]
		if start == end {
			continue // empty glyph (e.g. space)
		}
		if int(end) > len(data) {
			return nil, fmt.Errorf("tables: %w: glyf entry %d out of range", ErrBadFont, i)
		}
		gl, err := parseOneGlyph(data[start:end])
		if err != nil {
			return nil, fmt.Errorf("tables: glyph %d: %w", i, err)
		}
		out[i] = gl
	}
	return out, nil
}

func parseOneGlyph(data []byte) (GlyphData, error) {
	r := ot.NewLoader(data)
	numContours := r.I16()
	r.I16() // xMin
	r.I16() // yMin
	r.I16() // xMax
	r.I16() // yMax
	if r.Err() != nil {
		return GlyphData{}, r.Err()
	}
	if numContours < 0 {
		return parseCompositeGlyph(r)
	}
	return parseSimpleGlyph(r, int(numContours))
}

func parseSimpleGlyph(r *ot.Loader, numContours int) (GlyphData, error) {
	ends := make([]uint16, numContours)
	for i := range ends {
		ends[i] = r.U16()
	}
	insLen := int(r.U16())
	r.Bytes(insLen)
	if r.Err() != nil {
		return GlyphData{}, r.Err()
	}
	numPoints := 0
	if numContours > 0 {
		numPoints = int(ends[numContours-1]) + 1
	}
	const (
		flagOnCurve      = 1 << 0
		flagXShort       = 1 << 1
		flagYShort       = 1 << 2
		flagRepeat       = 1 << 3
		flagXSameOrPos   = 1 << 4
		flagYSameOrPos   = 1 << 5
	)
	flags := make([]byte, 0, numPoints)
	for len(flags) < numPoints {
		f := r.U8()
		flags = append(flags, f)
		if f&flagRepeat != 0 {
			rep := int(r.U8())
			for k := 0; k < rep && len(flags) < numPoints; k++ {
				flags = append(flags, f)
			}
		}
	}
	points := make([]ContourPoint, numPoints)
	var x int16
	for i := 0; i < numPoints; i++ {
		f := flags[i]
		switch {
		case f&flagXShort != 0:
			d := int16(r.U8())
			if f&flagXSameOrPos == 0 {
				d = -d
			}
			x += d
		case f&flagXSameOrPos == 0:
			x += r.I16()
		}
		points[i].X = x
		points[i].OnCurve = f&flagOnCurve != 0
	}
	var y int16
	for i := 0; i < numPoints; i++ {
		f := flags[i]
		switch {
		case f&flagYShort != 0:
			d := int16(r.U8())
			if f&flagYSameOrPos == 0 {
				d = -d
			}
			y += d
		case f&flagYSameOrPos == 0:
			y += r.I16()
		}
		points[i].Y = y
	}
	if r.Err() != nil {
		return GlyphData{}, r.Err()
	}
	return GlyphData{ContourEnds: ends, Points: points}, nil
}

func parseCompositeGlyph(r *ot.Loader) (GlyphData, error) {
	const (
		flagArgsAreWords   = 1 << 0
		flagArgsAreXY      = 1 << 1
		flagHaveScale      = 1 << 3
		flagMoreComponents = 1 << 5
		flagHaveXYScale    = 1 << 6
		flagHave2x2        = 1 << 7
	)
	var comps []GlyphComponent
	for {
		flags := r.U16()
		gid := r.U16()
		var dx, dy int16
		if flags&flagArgsAreWords != 0 {
			dx, dy = r.I16(), r.I16()
		} else {
			dx, dy = int16(int8(r.U8())), int16(int8(r.U8()))
		}
		c := GlyphComponent{
			GlyphIndex:    gid,
			DX:            dx,
			DY:            dy,
			PointMatching: flags&flagArgsAreXY == 0,
			ScaleX:        1, ScaleY: 1,
			MoreComponents: flags&flagMoreComponents != 0,
		}
		switch {
		case flags&flagHave2x2 != 0:
			c.ScaleX = r.F2Dot14()
			c.Scale01 = r.F2Dot14()
			c.Scale10 = r.F2Dot14()
			c.ScaleY = r.F2Dot14()
		case flags&flagHaveXYScale != 0:
			c.ScaleX = r.F2Dot14()
			c.ScaleY = r.F2Dot14()
		case flags&flagHaveScale != 0:
			s := r.F2Dot14()
			c.ScaleX, c.ScaleY = s, s
		}
		if r.Err() != nil {
			return GlyphData{}, r.Err()
		}
		comps = append(comps, c)
		if flags&flagMoreComponents == 0 {
			break
		}
	}
	return GlyphData{Components: comps, IsComposite: true}, nil
}
