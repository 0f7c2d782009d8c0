package tables

import (
	"fmt"

	ot "github.com/wiedymi/otshape/font/opentype"
)

// Head is the parsed `head` table: the fields the shaping/measurement path
// actually needs (units-per-em and the loca offset format).
type Head struct {
	UnitsPerEm      uint16
	IndexToLocFormat int16
}

func ParseHead(data []byte) (Head, error) {
	r := ot.NewLoader(data)
	if len(data) < 54 {
		return Head{}, fmt.Errorf("tables: %w: head too short", ErrBadFont)
	}
	r.Seek(18)
	upm := r.U16()
	r.Seek(50)
	locFmt := r.I16()
	if r.Err() != nil {
		return Head{}, r.Err()
	}
	return Head{UnitsPerEm: upm, IndexToLocFormat: locFmt}, nil
}

// Maxp carries the glyph count, the one field `maxp` contributes beyond
// bounds-checking table sizes.
type Maxp struct {
	NumGlyphs uint16
}

func ParseMaxp(data []byte) (Maxp, error) {
	if len(data) < 6 {
		return Maxp{}, fmt.Errorf("tables: %w: maxp too short", ErrBadFont)
	}
	r := ot.NewLoader(data)
	r.Seek(4)
	n := r.U16()
	return Maxp{NumGlyphs: n}, r.Err()
}

// LongHorMetric is one `hmtx` entry (advance width plus left side bearing).
type LongHorMetric struct {
	AdvanceWidth uint16
	Lsb          int16
}

// Hmtx is the parsed `hmtx` table; glyphs beyond len(HMetrics) reuse the
// last advance width with their own individually-stored LSB.
type Hmtx struct {
	HMetrics        []LongHorMetric
	LeftSideBearings []int16
}

func ParseHmtx(data []byte, numHMetrics, numGlyphs int) (Hmtx, error) {
	r := ot.NewLoader(data)
	metrics := make([]LongHorMetric, numHMetrics)
	for i := range metrics {
		metrics[i] = LongHorMetric{AdvanceWidth: r.U16(), Lsb: r.I16()}
	}
	extra := numGlyphs - numHMetrics
	var lsbs []int16
	if extra > 0 {
		lsbs = make([]int16, extra)
		for i := range lsbs {
			lsbs[i] = r.I16()
		}
	}
	if r.Err() != nil {
		return Hmtx{}, r.Err()
	}
	return Hmtx{HMetrics: metrics, LeftSideBearings: lsbs}, nil
}

// Advance returns the unscaled (pre-variation) advance width for gid.
func (h Hmtx) Advance(gid GlyphID) uint16 {
	if len(h.HMetrics) == 0 {
		return 0
	}
	if int(gid) < len(h.HMetrics) {
		return h.HMetrics[gid].AdvanceWidth
	}
	return h.HMetrics[len(h.HMetrics)-1].AdvanceWidth
}

// Lsb returns the unscaled left side bearing for gid.
func (h Hmtx) Lsb(gid GlyphID) int16 {
	if int(gid) < len(h.HMetrics) {
		return h.HMetrics[gid].Lsb
	}
	i := int(gid) - len(h.HMetrics)
	if i >= 0 && i < len(h.LeftSideBearings) {
		return h.LeftSideBearings[i]
	}
	return 0
}
