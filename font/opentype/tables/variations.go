package tables

import (
	"encoding/binary"
	"fmt"
)

// VarCoord is a normalized variation coordinate, quantized to 2.14 fixed
// point in [-16384, 16384] representing [-1, 1] (§3, §4.D).
type VarCoord int16

// VariationAxisRecord describes one `fvar` axis (§4.B fvar).
type VariationAxisRecord struct {
	Tag                    Tag
	Minimum, Default, Maximum float32
	Flags                  uint16
	AxisNameID             uint16
}

type fvarAxisArray struct {
	Axis []VariationAxisRecord
}

// Fvar is the parsed `fvar` table.
type Fvar struct {
	FvarRecords fvarAxisArray
}

// ParseFvar decodes the `fvar` table.
func ParseFvar(data []byte) (Fvar, error) {
	if len(data) < 16 {
		return Fvar{}, fmt.Errorf("tables: %w: fvar too short", ErrBadFont)
	}
	axisCount := int(binary.BigEndian.Uint16(data[4:]))
	axisSize := int(binary.BigEndian.Uint16(data[6:]))
	axesOffset := int(binary.BigEndian.Uint16(data[2:]))
	axes := make([]VariationAxisRecord, 0, axisCount)
	for i := 0; i < axisCount; i++ {
		off := axesOffset + i*axisSize
		if off+20 > len(data) {
			return Fvar{}, fmt.Errorf("tables: %w: fvar axis %d truncated", ErrBadFont, i)
		}
		axes = append(axes, VariationAxisRecord{
			Tag:        Tag(binary.BigEndian.Uint32(data[off:])),
			Minimum:    fixed16_16(data[off+4:]),
			Default:    fixed16_16(data[off+8:]),
			Maximum:    fixed16_16(data[off+12:]),
			Flags:      binary.BigEndian.Uint16(data[off+16:]),
			AxisNameID: binary.BigEndian.Uint16(data[off+18:]),
		})
	}
	return Fvar{FvarRecords: fvarAxisArray{Axis: axes}}, nil
}

func fixed16_16(b []byte) float32 {
	return float32(int32(binary.BigEndian.Uint32(b))) / (1 << 16)
}

// AxisValueMap is one (from,to) pair of an `avar` axis segment map.
type AxisValueMap struct{ FromCoordinate, ToCoordinate VarCoord }

type AxisSegmentMap struct{ AxisValueMaps []AxisValueMap }

// Avar is the parsed `avar` table.
type Avar struct {
	AxisSegmentMaps []AxisSegmentMap
}

// ParseAvar decodes the `avar` table, taking the axis count from avar's own
// header.
func ParseAvar(data []byte) (Avar, error) {
	if len(data) < 8 {
		return Avar{}, nil
	}
	axisCount := int(binary.BigEndian.Uint16(data[6:]))
	pos := 8
	maps := make([]AxisSegmentMap, 0, axisCount)
	for i := 0; i < axisCount; i++ {
		if pos+2 > len(data) {
			return Avar{}, fmt.Errorf("tables: %w: avar truncated", ErrBadFont)
		}
		n := int(binary.BigEndian.Uint16(data[pos:]))
		pos += 2
		pairs := make([]AxisValueMap, 0, n)
		for j := 0; j < n; j++ {
			if pos+4 > len(data) {
				return Avar{}, fmt.Errorf("tables: %w: avar truncated", ErrBadFont)
			}
			pairs = append(pairs, AxisValueMap{
				FromCoordinate: VarCoord(int16(binary.BigEndian.Uint16(data[pos:]))),
				ToCoordinate:   VarCoord(int16(binary.BigEndian.Uint16(data[pos+2:]))),
			})
			pos += 4
		}
		maps = append(maps, AxisSegmentMap{AxisValueMaps: pairs})
	}
	return Avar{AxisSegmentMaps: maps}, nil
}

// ---------------------------- ItemVariationStore ----------------------------

// Coord is VarCoord under the short name the CFF2 blend operator and the
// shaping entry points use.
type Coord = VarCoord

// VarIdx identifies one (outer, inner) delta-set entry, either referenced
// directly by HVAR/MVAR/a VariationIndex device table.
type VarIdx struct{ Outer, Inner uint16 }

// VarRegionAxis is one axis tent (start,peak,end) of a variation region.
type VarRegionAxis struct{ StartCoord, PeakCoord, EndCoord VarCoord }

type VarRegion struct{ Axes []VarRegionAxis }

type itemVariationData struct {
	RegionIndexes []uint16
	DeltaSets     [][]int32 // one row per item, one column per region in RegionIndexes
}

// ItemVarStore is a resolved `ItemVariationStore` (used by GDEF, HVAR, MVAR,
// and VariationIndex device tables alike).
type ItemVarStore struct {
	Regions []VarRegion
	Datas   []itemVariationData
	axisCnt int
}

// AxisCount returns the number of axes the store was built for, or -1 if the
// store is empty (no variation data present).
func (s ItemVarStore) AxisCount() int {
	if len(s.Regions) == 0 {
		return -1
	}
	return s.axisCnt
}

// DataCount returns the number of ItemVariationData subtables in the store,
// the range a CFF2 `vsindex` operand must stay within.
func (s ItemVarStore) DataCount() int { return len(s.Datas) }

// RegionScalars returns, for the ItemVariationData subtable dataIndex, the
// per-region scalar the CFF2 blend operator multiplies each delta operand
// by (one scalar per region that subtable's DeltaSets rows are indexed by).
func (s ItemVarStore) RegionScalars(dataIndex int, coords []VarCoord) []float32 {
	if dataIndex < 0 || dataIndex >= len(s.Datas) {
		return nil
	}
	d := s.Datas[dataIndex]
	out := make([]float32, len(d.RegionIndexes))
	for i, ri := range d.RegionIndexes {
		if int(ri) >= len(s.Regions) {
			continue
		}
		out[i] = regionScalar(s.Regions[ri], coords)
	}
	return out
}

func regionScalar(r VarRegion, coords []VarCoord) float32 {
	scalar := float32(1)
	for i, axis := range r.Axes {
		var v VarCoord
		if i < len(coords) {
			v = coords[i]
		}
		switch {
		case axis.PeakCoord == 0:
			continue
		case v == axis.PeakCoord:
			continue
		case v <= axis.StartCoord || v >= axis.EndCoord:
			return 0
		case v < axis.PeakCoord:
			scalar *= float32(v-axis.StartCoord) / float32(axis.PeakCoord-axis.StartCoord)
		default:
			scalar *= float32(axis.EndCoord-v) / float32(axis.EndCoord-axis.PeakCoord)
		}
	}
	return scalar
}

// GetDelta sums the scaled deltas for one item across all active regions.
func (s ItemVarStore) GetDelta(idx VarIdx, coords []VarCoord) float32 {
	if int(idx.Outer) >= len(s.Datas) {
		return 0
	}
	d := s.Datas[idx.Outer]
	if int(idx.Inner) >= len(d.DeltaSets) {
		return 0
	}
	row := d.DeltaSets[idx.Inner]
	var total float32
	for i, regionIdx := range d.RegionIndexes {
		if int(regionIdx) >= len(s.Regions) || i >= len(row) {
			continue
		}
		total += float32(row[i]) * regionScalar(s.Regions[regionIdx], coords)
	}
	return total
}

// DeltaSetIndexMap maps a glyph ID (or other index) to a VarIdx; the
// identity mapping is used when the map is absent (a glyph's own ID is the
// inner index into data set 0).
type DeltaSetIndexMap struct {
	Map []VarIdx // nil means identity
}

// Index resolves gid to its VarIdx.
func (m *DeltaSetIndexMap) Index(gid GlyphID) VarIdx {
	if m == nil || m.Map == nil {
		return VarIdx{Outer: 0, Inner: gid}
	}
	if int(gid) >= len(m.Map) {
		if len(m.Map) == 0 {
			return VarIdx{}
		}
		return m.Map[len(m.Map)-1]
	}
	return m.Map[gid]
}

// ---------------------------- HVAR / MVAR ----------------------------

// HVAR is the parsed `HVAR` table: advance-width (and optionally LSB) deltas
// indexed by glyph, resolved through an ItemVariationStore.
type HVAR struct {
	ItemVariationStore  ItemVarStore
	AdvanceWidthMapping *DeltaSetIndexMap
	LsbMapping          *DeltaSetIndexMap
}

// VarValueRecord is one entry of MVAR's value-record array: a 4-byte tag
// (e.g. "hasc", "unds") paired with the delta-set index to apply to it.
type VarValueRecord struct {
	ValueTag Tag
	Index    VarIdx
}

// MVAR is the parsed `MVAR` table: metric deltas (ascender, underline
// thickness, ...) selected by tag, resolved through an ItemVariationStore.
type MVAR struct {
	ItemVariationStore ItemVarStore
	ValueRecords       []VarValueRecord
}

// ---------------------------- gvar ----------------------------

// Tuple is a list of per-axis coordinates, either a peak tuple or one end of
// an intermediate-region tuple.
type Tuple struct{ Values []VarCoord }

// TupleVariationHeader is one entry of a glyph (or cvar) variation-data
// tuple list (§4.D gvar).
type TupleVariationHeader struct {
	VariationDataSize  uint16
	tupleIndex         uint16
	PeakTuple          Tuple // nil Values means "use shared tuple by Index()"
	IntermediateTuples [2]Tuple
}

const (
	tvhEmbeddedPeakTuple    uint16 = 0x8000
	tvhIntermediateRegion   uint16 = 0x4000
	tvhPrivatePointNumbers  uint16 = 0x2000
	tvhTupleIndexMask       uint16 = 0x0FFF
)

// Index returns the shared-tuple index when PeakTuple was not embedded.
func (h TupleVariationHeader) Index() uint16 { return h.tupleIndex & tvhTupleIndexMask }

// HasPrivatePointNumbers reports whether this tuple carries its own point
// numbers rather than reusing the glyph's shared point numbers.
func (h TupleVariationHeader) HasPrivatePointNumbers() bool {
	return h.tupleIndex&tvhPrivatePointNumbers != 0
}

// SharedTuples is the `gvar` shared tuple record list.
type SharedTuples struct{ SharedTuples []Tuple }

// GlyphVariationData is one glyph's entry of `gvar`.
type GlyphVariationData struct {
	TupleVariationHeaders []TupleVariationHeader
	SerializedData        []byte
	sharedPointNumbers    bool
}

// HasSharedPointNumbers reports whether the first bytes of SerializedData
// are the glyph's shared point-number run.
func (g GlyphVariationData) HasSharedPointNumbers() bool { return g.sharedPointNumbers }

// Gvar is the parsed `gvar` table.
type Gvar struct {
	SharedTuples        SharedTuples
	GlyphVariationDatas []GlyphVariationData
}

// ---------------------------- GDEF ----------------------------

// MarkGlyphSets holds the `GDEF` MarkGlyphSetsDef mark-filtering-set
// coverages, indexed by set number.
type MarkGlyphSets struct {
	Coverages []Coverage
}

// LigCaretList holds per-ligature-glyph caret positions; the shaping core
// does not consume carets itself (that is a rendering/cursor concern) but
// keeps the structural parse for completeness and for external callers that
// need caret positions adjacent to shaping.
type LigCaretList struct {
	Coverage  Coverage
	LigGlyphs [][]Devices // one slice of caret values per ligature glyph
}

// GDEF is the parsed `GDEF` table (§4.B GDEF).
type GDEF struct {
	GlyphClassDef     ClassDef // nil if absent
	AttachList        map[GlyphID][]uint16
	LigCaretList      LigCaretList
	MarkAttachClassDef ClassDef // nil if absent
	MarkGlyphSetsDef  MarkGlyphSets
	ItemVarStore      ItemVarStore
}

// GlyphProps returns the GP* bitmask for gid as recorded by GDEF's
// GlyphClassDef (§4.C ClassDef, §4.I matching).
func (g GDEF) GlyphProps(gid GlyphID) uint16 {
	if g.GlyphClassDef == nil {
		return 0
	}
	class, ok := g.GlyphClassDef.Class(gid)
	if !ok {
		return 0
	}
	switch class {
	case 1:
		return GPBaseGlyph
	case 2:
		return GPLigature
	case 3:
		return GPMark
	case 4:
		return GPComponent
	}
	return 0
}
