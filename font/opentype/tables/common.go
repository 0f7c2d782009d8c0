// Package tables holds the structural decoding of each required OpenType
// table (§4.B) plus the lookup-acceleration structures (Coverage, ClassDef,
// Device, §4.C) shared by GSUB and GPOS.
package tables

import (
	"fmt"

	ot "github.com/wiedymi/otshape/font/opentype"
)

// Tag re-exports opentype.Tag so callers of this package do not need to
// import two packages for one concept.
type Tag = ot.Tag

// GlyphID is an unsigned 16-bit index into the font's glyph table; 0 is
// .notdef and is a valid, renderable value.
type GlyphID = uint16

// glyph class bits, as produced by GDEF's GlyphClassDef and propagated into
// GlyphInfo.glyphProps by the shaping engine.
const (
	GPBaseGlyph uint16 = 1 << iota
	GPLigature
	GPMark
	GPComponent
)

// ParseUint16s reads n big-endian uint16 values from data.
func ParseUint16s(data []byte, n int) ([]uint16, error) {
	if len(data) < 2*n {
		return nil, fmt.Errorf("tables: EOF reading %d uint16s", n)
	}
	out := make([]uint16, n)
	for i := range out {
		out[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
	}
	return out, nil
}

// ---------------------------- Coverage ----------------------------

// Coverage maps a GlyphID to its CoverageIndex (§3 Coverage). There are two
// physical formats; Index performs a binary search and Len/Glyphs expose the
// ordered set for round-trip checks (§8.5).
type Coverage interface {
	// Index returns the coverage index of gid, and whether gid is covered.
	Index(gid GlyphID) (int, bool)
	// Glyphs returns the covered glyphs in increasing order; Glyphs()[k]
	// is the glyph whose Index is k.
	Glyphs() []GlyphID
	Len() int
}

// Coverage1 is the explicit-list coverage format.
type Coverage1 struct {
	Glyphs_ []GlyphID
}

func (c Coverage1) Index(gid GlyphID) (int, bool) {
	lo, hi := 0, len(c.Glyphs_)
	for lo < hi {
		mid := lo + (hi-lo)/2
		g := c.Glyphs_[mid]
		if gid < g {
			hi = mid
		} else if gid > g {
			lo = mid + 1
		} else {
			return mid, true
		}
	}
	return 0, false
}
func (c Coverage1) Glyphs() []GlyphID { return c.Glyphs_ }
func (c Coverage1) Len() int          { return len(c.Glyphs_) }

// RangeRecord is one sorted glyph-ID range of a format-2 coverage, or one
// entry of a class-def format-2 ClassDef.
type RangeRecord struct {
	StartGlyphID, EndGlyphID GlyphID
	StartCoverageIndex       uint16
}

// Coverage2 is the sorted glyph-range coverage format.
type Coverage2 struct {
	Ranges []RangeRecord
}

func (c Coverage2) Index(gid GlyphID) (int, bool) {
	lo, hi := 0, len(c.Ranges)
	for lo < hi {
		mid := lo + (hi-lo)/2
		r := c.Ranges[mid]
		switch {
		case gid < r.StartGlyphID:
			hi = mid
		case gid > r.EndGlyphID:
			lo = mid + 1
		default:
			return int(r.StartCoverageIndex) + int(gid-r.StartGlyphID), true
		}
	}
	return 0, false
}

func (c Coverage2) Glyphs() []GlyphID {
	var out []GlyphID
	for _, r := range c.Ranges {
		for g := r.StartGlyphID; g <= r.EndGlyphID; g++ {
			out = append(out, g)
			if g == 0xFFFF {
				break
			}
		}
	}
	return out
}

func (c Coverage2) Len() int {
	n := 0
	for _, r := range c.Ranges {
		n += int(r.EndGlyphID) - int(r.StartGlyphID) + 1
	}
	return n
}

// ParseCoverage decodes a Coverage table at offset `base` in `data`.
func ParseCoverage(data []byte, base int) (Coverage, error) {
	r := ot.NewLoader(data)
	r.Seek(base)
	format := r.U16()
	switch format {
	case 1:
		count := int(r.U16())
		glyphs := make([]GlyphID, count)
		for i := range glyphs {
			glyphs[i] = r.U16()
		}
		if r.Err() != nil {
			return nil, r.Err()
		}
		return Coverage1{Glyphs_: glyphs}, nil
	case 2:
		count := int(r.U16())
		ranges := make([]RangeRecord, count)
		for i := range ranges {
			ranges[i] = RangeRecord{StartGlyphID: r.U16(), EndGlyphID: r.U16(), StartCoverageIndex: r.U16()}
		}
		if r.Err() != nil {
			return nil, r.Err()
		}
		return Coverage2{Ranges: ranges}, nil
	default:
		return nil, fmt.Errorf("tables: %w: coverage format %d", ErrUnsupportedFormat, format)
	}
}

// ---------------------------- ClassDef ----------------------------

// ClassDef maps a GlyphID to a ClassId, defaulting to 0 (§3 ClassDef).
type ClassDef interface {
	Class(gid GlyphID) (uint16, bool)
}

// ClassDefFormat1 is the contiguous-range format.
type ClassDefFormat1 struct {
	StartGlyphID GlyphID
	ClassValues  []uint16
}

func (c ClassDefFormat1) Class(gid GlyphID) (uint16, bool) {
	if gid < c.StartGlyphID || int(gid-c.StartGlyphID) >= len(c.ClassValues) {
		return 0, false
	}
	return c.ClassValues[gid-c.StartGlyphID], true
}

// ClassRangeRecord is one entry of a format-2 ClassDef.
type ClassRangeRecord struct {
	StartGlyphID, EndGlyphID GlyphID
	Class                    uint16
}

// ClassDefFormat2 is the sorted glyph-ranges format.
type ClassDefFormat2 struct {
	Ranges []ClassRangeRecord
}

func (c ClassDefFormat2) Class(gid GlyphID) (uint16, bool) {
	lo, hi := 0, len(c.Ranges)
	for lo < hi {
		mid := lo + (hi-lo)/2
		r := c.Ranges[mid]
		switch {
		case gid < r.StartGlyphID:
			hi = mid
		case gid > r.EndGlyphID:
			lo = mid + 1
		default:
			return r.Class, true
		}
	}
	return 0, false
}

// ParseClassDef decodes a ClassDef table at offset `base`.
func ParseClassDef(data []byte, base int) (ClassDef, error) {
	r := ot.NewLoader(data)
	r.Seek(base)
	format := r.U16()
	switch format {
	case 1:
		start := r.U16()
		count := int(r.U16())
		values := make([]uint16, count)
		for i := range values {
			values[i] = r.U16()
		}
		if r.Err() != nil {
			return nil, r.Err()
		}
		return ClassDefFormat1{StartGlyphID: start, ClassValues: values}, nil
	case 2:
		count := int(r.U16())
		ranges := make([]ClassRangeRecord, count)
		for i := range ranges {
			ranges[i] = ClassRangeRecord{StartGlyphID: r.U16(), EndGlyphID: r.U16(), Class: r.U16()}
		}
		if r.Err() != nil {
			return nil, r.Err()
		}
		return ClassDefFormat2{Ranges: ranges}, nil
	default:
		return nil, fmt.Errorf("tables: %w: classDef format %d", ErrUnsupportedFormat, format)
	}
}

// ---------------------------- Device / VariationIndex ----------------------------

// Devices is the union of a Device table (PPEM-indexed deltas) and a
// VariationIndex table (resolved through an ItemVariationStore); the top bit
// of DeltaFormat selects which one a given table byte range encodes (§4.C).
type Devices struct {
	// set when DeltaFormat == 0x8000 (VariationIndex)
	IsVariationIndex bool
	Outer, Inner     uint16

	// set otherwise (classic Device table)
	StartSize, EndSize uint16
	DeltaValues        []int8 // one decoded value per PPEM in [StartSize,EndSize]
}

// GetDelta resolves the device/variation delta for the given PPEM and
// variation coordinates.
func (d *Devices) GetDelta(ppem uint16, store ItemVarStore, coords []VarCoord) int32 {
	if d == nil {
		return 0
	}
	if d.IsVariationIndex {
		idx := VarIdx{Outer: d.Outer, Inner: d.Inner}
		return int32(store.GetDelta(idx, coords))
	}
	if ppem < d.StartSize || ppem > d.EndSize || len(d.DeltaValues) == 0 {
		return 0
	}
	i := int(ppem - d.StartSize)
	if i >= len(d.DeltaValues) {
		return 0
	}
	return int32(d.DeltaValues[i])
}

// ParseDevice decodes a Device/VariationIndex table at offset base.
func ParseDevice(data []byte, base int) (*Devices, error) {
	if base == 0 {
		return nil, nil
	}
	r := ot.NewLoader(data)
	r.Seek(base)
	a, b := r.U16(), r.U16()
	format := r.U16()
	if r.Err() != nil {
		return nil, r.Err()
	}
	if format == 0x8000 {
		return &Devices{IsVariationIndex: true, Outer: a, Inner: b}, nil
	}
	startSize, endSize := a, b
	n := int(endSize) - int(startSize) + 1
	if n < 0 {
		return nil, fmt.Errorf("tables: invalid device table size range")
	}
	values := make([]int8, 0, n)
	bitsPerValue := map[uint16]int{1: 2, 2: 4, 3: 8}[format]
	if bitsPerValue == 0 {
		return nil, fmt.Errorf("tables: %w: device format %d", ErrUnsupportedFormat, format)
	}
	perWord := 16 / bitsPerValue
	words := (n + perWord - 1) / perWord
	for w := 0; w < words; w++ {
		word := r.U16()
		for k := 0; k < perWord && len(values) < n; k++ {
			shift := 16 - bitsPerValue*(k+1)
			raw := int32(word>>uint(shift)) & ((1 << bitsPerValue) - 1)
			// sign extend
			signBit := int32(1) << (bitsPerValue - 1)
			if raw&signBit != 0 {
				raw -= signBit << 1
			}
			values = append(values, int8(raw))
		}
	}
	if r.Err() != nil {
		return nil, r.Err()
	}
	return &Devices{StartSize: startSize, EndSize: endSize, DeltaValues: values}, nil
}
