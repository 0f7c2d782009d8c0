package font

import (
	"github.com/wiedymi/otshape/font/opentype/tables"
)

// Tag re-exports tables.Tag (itself opentype.Tag) so font-package code and
// its callers share one identifier for an OpenType 4-byte tag.
type Tag = tables.Tag

// VarCoord re-exports tables.VarCoord: a normalized variation coordinate.
type VarCoord = tables.VarCoord

// GID re-exports tables.GlyphID under the short name the shaping engine
// uses pervasively.
type GID = tables.GlyphID

// Cmap re-exports tables.Cmap for packages (fontscan) that only need to walk
// or query a font's rune-to-glyph map, not the rest of font.Font.
type Cmap = tables.Cmap

// CmapIter re-exports tables.CmapIter.
type CmapIter = tables.CmapIter

// CmapRuneRanger re-exports tables.CmapRuneRanger, the fast range-based
// coverage-scan path a Cmap subtable can offer.
type CmapRuneRanger = tables.CmapRuneRanger

// gID is GID's unexported spelling, used by the internal variation
// machinery alongside its lowercase sibling identifiers.
type gID = GID

// phantomCount is the number of synthetic points gvar appends to every
// glyph's real outline points: left/right side-bearing points and the
// (rarely used) vertical origin/advance points (§4.D gvar, phantom points).
const phantomCount = 4

// contourPoint is one glyph outline point as consumed by the gvar delta
// machinery; isExplicit marks a point a tuple's point-number list directly
// references, as opposed to one whose delta must be inferred from its
// neighbors.
type contourPoint struct {
	X, Y       float32
	isEndPoint bool
	isExplicit bool
}

func (p *contourPoint) translate(dx, dy float32) {
	p.X += dx
	p.Y += dy
}

func minC(a, b VarCoord) VarCoord {
	if a < b {
		return a
	}
	return b
}

func maxC(a, b VarCoord) VarCoord {
	if a > b {
		return a
	}
	return b
}

func minF(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

// pointNumbersCount returns the number of "real" outline points glyf
// records for g, not counting the 4 phantom points gvar appends: for a
// simple glyph this is its point count, for a composite glyph gvar treats
// each component as a single point (its own phantom points carry its
// placement delta).
func pointNumbersCount(g tables.GlyphData) int {
	if g.IsComposite {
		return len(g.Components)
	}
	return len(g.Points)
}

// contourPointsOf builds the contourPoint slice gvar's applyDeltasToPoints
// mutates in place, for a simple glyph's real points plus phantomCount
// synthetic phantom points appended at zero.
func contourPointsOf(g tables.GlyphData) []contourPoint {
	n := pointNumbersCount(g) + phantomCount
	pts := make([]contourPoint, n)
	if g.IsComposite {
		for i, c := range g.Components {
			pts[i] = contourPoint{X: float32(c.DX), Y: float32(c.DY)}
		}
		return pts
	}
	endSet := make(map[int]bool, len(g.ContourEnds))
	for _, e := range g.ContourEnds {
		endSet[int(e)] = true
	}
	for i, p := range g.Points {
		pts[i] = contourPoint{X: float32(p.X), Y: float32(p.Y), isEndPoint: endSet[i]}
	}
	return pts
}
