package tables

import (
	"fmt"
	"sort"

	ot "github.com/wiedymi/otshape/font/opentype"
)

// Cmap maps Unicode runes to glyph IDs (§4.B cmap). It is resolved once at
// font-load time to the best available subtable, per the platform/encoding
// preference order documented on ParseCmap.
type Cmap interface {
	Lookup(r rune) (GlyphID, bool)

	// Iter walks every mapped rune in increasing order, the slow path
	// fontscan's coverage scanner falls back to for a Cmap with no faster
	// CmapRuneRanger implementation.
	Iter() CmapIter
}

// CmapIter walks a Cmap's mapped runes in increasing order.
type CmapIter interface {
	Next() bool
	Char() (rune, GlyphID)
}

// CmapRuneRanger is the fast path a Cmap implementation can offer fontscan's
// coverage scanner: its covered runes as sorted, non-overlapping, inclusive
// [start,end] pairs appended to buffer, instead of one rune at a time.
type CmapRuneRanger interface {
	RuneRanges(buffer [][2]rune) [][2]rune
}

// rangeKind distinguishes the three ways a cmapRange resolves a rune inside
// [start,end] to a glyph ID.
type rangeKind int

const (
	rangeDelta    rangeKind = iota // glyph = rune + delta (mod 65536), format 4
	rangeOffset                    // glyph = startGID + (rune - start), format 12
	rangeConstant                  // glyph = startGID for every rune in range, format 13
	rangeList                      // glyph = glyphs[rune-start], format 4 with glyphIdArray
)

type cmapRange struct {
	start, end rune
	startGID   GlyphID
	delta      int16
	kind       rangeKind
	glyphs     []GlyphID
}

// cmapGeneric serves formats 4, 12 and 13 via a sorted range table; it is
// built once at parse time regardless of subtable format so Lookup never
// needs to branch on the original encoding.
type cmapGeneric struct {
	ranges []cmapRange
}

func (c *cmapGeneric) Lookup(r rune) (GlyphID, bool) {
	i := sort.Search(len(c.ranges), func(i int) bool { return c.ranges[i].end >= r })
	if i >= len(c.ranges) || r < c.ranges[i].start {
		return 0, false
	}
	rg := c.ranges[i]
	switch rg.kind {
	case rangeList:
		idx := int(r - rg.start)
		if idx < 0 || idx >= len(rg.glyphs) {
			return 0, false
		}
		g := rg.glyphs[idx]
		return g, g != 0
	case rangeOffset:
		return rg.startGID + GlyphID(r-rg.start), true
	case rangeConstant:
		return rg.startGID, true
	default: // rangeDelta
		g := GlyphID(int32(r) + int32(rg.delta))
		return g, g != 0
	}
}

type cmapGenericIter struct {
	c       *cmapGeneric
	ri      int
	cur     rune
	started bool
}

func (c *cmapGeneric) Iter() CmapIter { return &cmapGenericIter{c: c} }

func (it *cmapGenericIter) Next() bool {
	for it.ri < len(it.c.ranges) {
		rg := it.c.ranges[it.ri]
		if !it.started {
			it.cur = rg.start
			it.started = true
		} else {
			it.cur++
		}
		if it.cur > rg.end {
			it.ri++
			it.started = false
			continue
		}
		if rg.kind == rangeList {
			idx := int(it.cur - rg.start)
			if idx < 0 || idx >= len(rg.glyphs) || rg.glyphs[idx] == 0 {
				continue
			}
		}
		return true
	}
	return false
}

func (it *cmapGenericIter) Char() (rune, GlyphID) {
	g, _ := it.c.Lookup(it.cur)
	return it.cur, g
}

// RuneRanges appends this cmap's covered runes as sorted, non-overlapping
// inclusive ranges; a rangeList subtable (format 4 with an explicit glyph
// array) may have unmapped holes, so it is split into maximal contiguous
// mapped spans rather than reported as one [start,end] pair.
func (c *cmapGeneric) RuneRanges(buffer [][2]rune) [][2]rune {
	for _, rg := range c.ranges {
		if rg.kind != rangeList {
			buffer = append(buffer, [2]rune{rg.start, rg.end})
			continue
		}
		spanStart := rune(-1)
		for r := rg.start; r <= rg.end; r++ {
			idx := int(r - rg.start)
			mapped := idx < len(rg.glyphs) && rg.glyphs[idx] != 0
			if mapped && spanStart < 0 {
				spanStart = r
			} else if !mapped && spanStart >= 0 {
				buffer = append(buffer, [2]rune{spanStart, r - 1})
				spanStart = -1
			}
		}
		if spanStart >= 0 {
			buffer = append(buffer, [2]rune{spanStart, rg.end})
		}
	}
	return buffer
}

type cmapFormat0 struct {
	glyphs [256]GlyphID
}

func (c *cmapFormat0) Lookup(r rune) (GlyphID, bool) {
	if r < 0 || r > 255 {
		return 0, false
	}
	g := c.glyphs[r]
	return g, g != 0
}

type cmapFormat0Iter struct {
	c   *cmapFormat0
	idx int
}

func (c *cmapFormat0) Iter() CmapIter { return &cmapFormat0Iter{c: c, idx: -1} }

func (it *cmapFormat0Iter) Next() bool {
	for it.idx++; it.idx < len(it.c.glyphs); it.idx++ {
		if it.c.glyphs[it.idx] != 0 {
			return true
		}
	}
	return false
}

func (it *cmapFormat0Iter) Char() (rune, GlyphID) { return rune(it.idx), it.c.glyphs[it.idx] }

func (c *cmapFormat0) RuneRanges(buffer [][2]rune) [][2]rune {
	start := -1
	for i, g := range c.glyphs {
		if g != 0 {
			if start < 0 {
				start = i
			}
		} else if start >= 0 {
			buffer = append(buffer, [2]rune{rune(start), rune(i - 1)})
			start = -1
		}
	}
	if start >= 0 {
		buffer = append(buffer, [2]rune{rune(start), rune(len(c.glyphs) - 1)})
	}
	return buffer
}

type cmapFormat6 struct {
	first  uint16
	glyphs []GlyphID
}

func (c *cmapFormat6) Lookup(r rune) (GlyphID, bool) {
	if r < rune(c.first) || int(r-rune(c.first)) >= len(c.glyphs) {
		return 0, false
	}
	g := c.glyphs[r-rune(c.first)]
	return g, g != 0
}

type cmapFormat6Iter struct {
	c   *cmapFormat6
	idx int
}

func (c *cmapFormat6) Iter() CmapIter { return &cmapFormat6Iter{c: c, idx: -1} }

func (it *cmapFormat6Iter) Next() bool {
	for it.idx++; it.idx < len(it.c.glyphs); it.idx++ {
		if it.c.glyphs[it.idx] != 0 {
			return true
		}
	}
	return false
}

func (it *cmapFormat6Iter) Char() (rune, GlyphID) {
	return rune(it.c.first) + rune(it.idx), it.c.glyphs[it.idx]
}

func (c *cmapFormat6) RuneRanges(buffer [][2]rune) [][2]rune {
	start := -1
	for i, g := range c.glyphs {
		if g != 0 {
			if start < 0 {
				start = i
			}
		} else if start >= 0 {
			buffer = append(buffer, [2]rune{rune(c.first) + rune(start), rune(c.first) + rune(i-1)})
			start = -1
		}
	}
	if start >= 0 {
		buffer = append(buffer, [2]rune{rune(c.first) + rune(start), rune(c.first) + rune(len(c.glyphs)-1)})
	}
	return buffer
}

// ParseCmap decodes the `cmap` table and returns the Lookup implementation
// for the best available subtable, per the platform/encoding preference
// order (3,10)/(0,4)/(0,6) > (3,1) > other (0,*) > (3,0) > (1,0); among
// records of equal rank the first one listed wins.
func ParseCmap(data []byte) (Cmap, error) {
	r := ot.NewLoader(data)
	r.U16() // version
	n := int(r.U16())
	type rec struct {
		platform, encoding uint16
		offset             uint32
	}
	recs := make([]rec, n)
	for i := range recs {
		recs[i] = rec{platform: r.U16(), encoding: r.U16(), offset: r.U32()}
	}
	if r.Err() != nil {
		return nil, r.Err()
	}
	score := func(rc rec) int {
		switch {
		case rc.platform == 3 && rc.encoding == 10:
			return 5
		case rc.platform == 0 && (rc.encoding == 4 || rc.encoding == 6):
			return 5
		case rc.platform == 3 && rc.encoding == 1:
			return 4
		case rc.platform == 0:
			return 3
		case rc.platform == 3 && rc.encoding == 0:
			return 2
		case rc.platform == 1 && rc.encoding == 0:
			return 1
		}
		return 0
	}
	best := -1
	bestScore := -1
	for i, rc := range recs {
		if s := score(rc); s > bestScore {
			bestScore, best = s, i
		}
	}
	if best < 0 {
		return nil, fmt.Errorf("tables: %w: cmap has no usable subtable", ErrMissingTable)
	}
	return parseCmapSubtable(data, int(recs[best].offset))
}

func parseCmapSubtable(data []byte, base int) (Cmap, error) {
	r := ot.NewLoader(data)
	r.Seek(base)
	format := r.U16()
	switch format {
	case 0:
		r.U16() // length
		r.U16() // language
		var c cmapFormat0
		for i := range c.glyphs {
			c.glyphs[i] = GlyphID(r.U8())
		}
		return &c, r.Err()
	case 4:
		return parseCmap4(data, base)
	case 6:
		r.U16() // length
		r.U16() // language
		first := r.U16()
		count := int(r.U16())
		glyphs := make([]GlyphID, count)
		for i := range glyphs {
			glyphs[i] = r.U16()
		}
		return &cmapFormat6{first: first, glyphs: glyphs}, r.Err()
	case 12, 13:
		return parseCmap12or13(data, base, format == 13)
	case 14:
		return nil, fmt.Errorf("tables: %w: cmap format 14 (variation sequences) is not a rune map", ErrUnsupportedFormat)
	default:
		return nil, fmt.Errorf("tables: %w: cmap format %d", ErrUnsupportedFormat, format)
	}
}

func parseCmap4(data []byte, base int) (Cmap, error) {
	r := ot.NewLoader(data)
	r.Seek(base)
	r.U16() // format
	r.U16() // length
	r.U16() // language
	segX2 := int(r.U16())
	segCount := segX2 / 2
	r.U16() // searchRange
	r.U16() // entrySelector
	r.U16() // rangeShift
	ends := make([]uint16, segCount)
	for i := range ends {
		ends[i] = r.U16()
	}
	r.U16() // reservedPad
	starts := make([]uint16, segCount)
	for i := range starts {
		starts[i] = r.U16()
	}
	deltas := make([]int16, segCount)
	for i := range deltas {
		deltas[i] = r.I16()
	}
	idRangeOffsetPos := r.Pos()
	idRangeOffsets := make([]uint16, segCount)
	for i := range idRangeOffsets {
		idRangeOffsets[i] = r.U16()
	}
	if r.Err() != nil {
		return nil, r.Err()
	}
	var ranges []cmapRange
	for i := 0; i < segCount; i++ {
		if starts[i] == 0xFFFF && ends[i] == 0xFFFF {
			continue
		}
		if idRangeOffsets[i] == 0 {
			ranges = append(ranges, cmapRange{start: rune(starts[i]), end: rune(ends[i]), delta: deltas[i], kind: rangeDelta})
			continue
		}
		count := int(ends[i]) - int(starts[i]) + 1
		glyphs := make([]GlyphID, count)
		glyphArrayBase := idRangeOffsetPos + i*2 + int(idRangeOffsets[i])
		gr := ot.NewLoader(data)
		for j := 0; j < count; j++ {
			gr.Seek(glyphArrayBase + j*2)
			g := gr.U16()
			if gr.Err() != nil {
				return nil, gr.Err()
			}
			if g != 0 {
				g = GlyphID(int32(g) + int32(deltas[i]))
			}
			glyphs[j] = g
		}
		ranges = append(ranges, cmapRange{start: rune(starts[i]), end: rune(ends[i]), kind: rangeList, glyphs: glyphs})
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].start < ranges[j].start })
	return &cmapGeneric{ranges: ranges}, nil
}

func parseCmap12or13(data []byte, base int, constantGID bool) (Cmap, error) {
	r := ot.NewLoader(data)
	r.Seek(base)
	r.U16() // format
	r.U16() // reserved
	r.U32() // length
	r.U32() // language
	n := int(r.U32())
	ranges := make([]cmapRange, n)
	for i := range ranges {
		start := r.U32()
		end := r.U32()
		startGID := r.U32()
		kind := rangeOffset
		if constantGID {
			kind = rangeConstant
		}
		ranges[i] = cmapRange{start: rune(start), end: rune(end), startGID: GlyphID(startGID), kind: kind}
	}
	if r.Err() != nil {
		return nil, r.Err()
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].start < ranges[j].start })
	return &cmapGeneric{ranges: ranges}, nil
}
