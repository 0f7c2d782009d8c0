package tables

import (
	"encoding/binary"
	"fmt"
)

// parseItemVariationStore decodes an `ItemVariationStore` (§4.D), used by
// GDEF, HVAR, MVAR and VariationIndex device tables alike.
func parseItemVariationStore(data []byte) (ItemVarStore, error) {
	if len(data) < 8 {
		return ItemVarStore{}, fmt.Errorf("tables: %w: ItemVariationStore too short", ErrBadFont)
	}
	regionListOffset := int(binary.BigEndian.Uint32(data[2:]))
	dataCount := int(binary.BigEndian.Uint16(data[6:]))
	if 8+2*dataCount > len(data) {
		return ItemVarStore{}, fmt.Errorf("tables: %w: ItemVariationStore truncated", ErrBadFont)
	}
	dataOffsets := make([]int, dataCount)
	for i := range dataOffsets {
		dataOffsets[i] = int(binary.BigEndian.Uint16(data[8+2*i:]))
	}

	axisCount, regions, err := parseVariationRegionList(data, regionListOffset)
	if err != nil {
		return ItemVarStore{}, err
	}

	datas := make([]itemVariationData, dataCount)
	for i, off := range dataOffsets {
		d, err := parseItemVariationData(data, off)
		if err != nil {
			return ItemVarStore{}, err
		}
		datas[i] = d
	}
	return ItemVarStore{Regions: regions, Datas: datas, axisCnt: axisCount}, nil
}

func parseVariationRegionList(data []byte, off int) (int, []VarRegion, error) {
	if off+4 > len(data) {
		return 0, nil, fmt.Errorf("tables: %w: VariationRegionList too short", ErrBadFont)
	}
	axisCount := int(binary.BigEndian.Uint16(data[off:]))
	regionCount := int(binary.BigEndian.Uint16(data[off+2:]))
	pos := off + 4
	regions := make([]VarRegion, regionCount)
	for i := range regions {
		axes := make([]VarRegionAxis, axisCount)
		for a := 0; a < axisCount; a++ {
			if pos+6 > len(data) {
				return 0, nil, fmt.Errorf("tables: %w: VariationRegionList truncated", ErrBadFont)
			}
			axes[a] = VarRegionAxis{
				StartCoord: VarCoord(int16(binary.BigEndian.Uint16(data[pos:]))),
				PeakCoord:  VarCoord(int16(binary.BigEndian.Uint16(data[pos+2:]))),
				EndCoord:   VarCoord(int16(binary.BigEndian.Uint16(data[pos+4:]))),
			}
			pos += 6
		}
		regions[i] = VarRegion{Axes: axes}
	}
	return axisCount, regions, nil
}

func parseItemVariationData(data []byte, off int) (itemVariationData, error) {
	if off+6 > len(data) {
		return itemVariationData{}, fmt.Errorf("tables: %w: ItemVariationData too short", ErrBadFont)
	}
	itemCount := int(binary.BigEndian.Uint16(data[off:]))
	wordDeltaCount := int(binary.BigEndian.Uint16(data[off+2:])) & 0x7FFF
	regionIndexCount := int(binary.BigEndian.Uint16(data[off+4:]))
	pos := off + 6
	regionIndexes := make([]uint16, regionIndexCount)
	for i := range regionIndexes {
		if pos+2 > len(data) {
			return itemVariationData{}, fmt.Errorf("tables: %w: ItemVariationData truncated", ErrBadFont)
		}
		regionIndexes[i] = binary.BigEndian.Uint16(data[pos:])
		pos += 2
	}
	rowSize := 2*wordDeltaCount + (regionIndexCount - wordDeltaCount)
	sets := make([][]int32, itemCount)
	for i := range sets {
		row := make([]int32, regionIndexCount)
		p := pos
		for r := 0; r < regionIndexCount; r++ {
			if r < wordDeltaCount {
				if p+2 > len(data) {
					return itemVariationData{}, fmt.Errorf("tables: %w: ItemVariationData truncated", ErrBadFont)
				}
				row[r] = int32(int16(binary.BigEndian.Uint16(data[p:])))
				p += 2
			} else {
				if p+1 > len(data) {
					return itemVariationData{}, fmt.Errorf("tables: %w: ItemVariationData truncated", ErrBadFont)
				}
				row[r] = int32(int8(data[p]))
				p++
			}
		}
		sets[i] = row
		pos += rowSize
	}
	return itemVariationData{RegionIndexes: regionIndexes, DeltaSets: sets}, nil
}

// parseDeltaSetIndexMap decodes a `DeltaSetIndexMap` as used by HVAR/MVAR's
// AdvanceWidthMapping/LsbMapping (nil offset means "identity mapping").
func parseDeltaSetIndexMap(data []byte, off int) (*DeltaSetIndexMap, error) {
	if off == 0 || off >= len(data) {
		return nil, nil
	}
	if off+4 > len(data) {
		return nil, fmt.Errorf("tables: %w: DeltaSetIndexMap too short", ErrBadFont)
	}
	format := data[off]
	entryFormat := data[off+1]
	innerBits := int(entryFormat&0xF) + 1
	entrySize := int((entryFormat>>4)&0x3) + 1
	pos := off + 2
	var mapCount int
	if format == 0 {
		mapCount = int(binary.BigEndian.Uint16(data[pos:]))
		pos += 2
	} else {
		mapCount = int(binary.BigEndian.Uint32(data[pos:]))
		pos += 4
	}
	out := make([]VarIdx, mapCount)
	for i := 0; i < mapCount; i++ {
		if pos+entrySize > len(data) {
			return nil, fmt.Errorf("tables: %w: DeltaSetIndexMap truncated", ErrBadFont)
		}
		var v uint32
		for b := 0; b < entrySize; b++ {
			v = v<<8 | uint32(data[pos+b])
		}
		pos += entrySize
		inner := v & ((1 << uint(innerBits)) - 1)
		outer := v >> uint(innerBits)
		out[i] = VarIdx{Outer: uint16(outer), Inner: uint16(inner)}
	}
	return &DeltaSetIndexMap{Map: out}, nil
}

// ParseHVAR decodes the `HVAR` table (§4.D advance-width variation).
func ParseHVAR(data []byte) (HVAR, error) {
	if len(data) < 20 {
		return HVAR{}, fmt.Errorf("tables: %w: HVAR too short", ErrBadFont)
	}
	storeOff := int(binary.BigEndian.Uint32(data[4:]))
	awOff := int(binary.BigEndian.Uint32(data[8:]))
	lsbOff := int(binary.BigEndian.Uint32(data[12:]))
	store, err := parseItemVariationStore(data[storeOff:])
	if err != nil {
		return HVAR{}, err
	}
	awMap, err := parseDeltaSetIndexMap(data, awOff)
	if err != nil {
		return HVAR{}, err
	}
	lsbMap, err := parseDeltaSetIndexMap(data, lsbOff)
	if err != nil {
		return HVAR{}, err
	}
	return HVAR{ItemVariationStore: store, AdvanceWidthMapping: awMap, LsbMapping: lsbMap}, nil
}

// ParseMVAR decodes the `MVAR` table (§4.D font-wide metric variation).
func ParseMVAR(data []byte, axisCount int) (MVAR, error) {
	if len(data) < 12 {
		return MVAR{}, fmt.Errorf("tables: %w: MVAR too short", ErrBadFont)
	}
	recordSize := int(binary.BigEndian.Uint16(data[6:]))
	recordCount := int(binary.BigEndian.Uint16(data[8:]))
	storeOff := int(binary.BigEndian.Uint16(data[10:]))
	var store ItemVarStore
	var err error
	if storeOff != 0 {
		store, err = parseItemVariationStore(data[storeOff:])
		if err != nil {
			return MVAR{}, err
		}
	}
	records := make([]VarValueRecord, 0, recordCount)
	pos := 12
	for i := 0; i < recordCount; i++ {
		if pos+8 > len(data) {
			return MVAR{}, fmt.Errorf("tables: %w: MVAR truncated", ErrBadFont)
		}
		records = append(records, VarValueRecord{
			ValueTag: Tag(binary.BigEndian.Uint32(data[pos:])),
			Index:    VarIdx{Outer: binary.BigEndian.Uint16(data[pos+4:]), Inner: binary.BigEndian.Uint16(data[pos+6:])},
		})
		pos += recordSize
	}
	return MVAR{ItemVariationStore: store, ValueRecords: records}, nil
}

const (
	tupleEmbeddedPeak   = tvhEmbeddedPeakTuple
	tupleIntermediate   = tvhIntermediateRegion
	tuplePrivatePoints  = tvhPrivatePointNumbers
	gvarSharedPointsBit = uint16(0x8000)
	gvarTupleCountMask  = uint16(0x0FFF)
)

// ParseGvar decodes the `gvar` table (§4.D glyph outline variation).
func ParseGvar(data []byte) (Gvar, error) {
	if len(data) < 20 {
		return Gvar{}, fmt.Errorf("tables: %w: gvar too short", ErrBadFont)
	}
	axisCount := int(binary.BigEndian.Uint16(data[4:]))
	sharedTupleCount := int(binary.BigEndian.Uint16(data[6:]))
	sharedTuplesOffset := int(binary.BigEndian.Uint32(data[8:]))
	glyphCount := int(binary.BigEndian.Uint16(data[12:]))
	flags := binary.BigEndian.Uint16(data[14:])
	dataArrayOffset := int(binary.BigEndian.Uint32(data[16:]))
	longOffsets := flags&1 != 0

	sharedTuples := make([]Tuple, sharedTupleCount)
	pos := sharedTuplesOffset
	for i := range sharedTuples {
		vals := make([]VarCoord, axisCount)
		for a := 0; a < axisCount; a++ {
			if pos+2 > len(data) {
				return Gvar{}, fmt.Errorf("tables: %w: gvar shared tuples truncated", ErrBadFont)
			}
			vals[a] = VarCoord(int16(binary.BigEndian.Uint16(data[pos:])))
			pos += 2
		}
		sharedTuples[i] = Tuple{Values: vals}
	}

	offsets := make([]int, glyphCount+1)
	offPos := 20
	for i := range offsets {
		if longOffsets {
			if offPos+4 > len(data) {
				return Gvar{}, fmt.Errorf("tables: %w: gvar offsets truncated", ErrBadFont)
			}
			offsets[i] = int(binary.BigEndian.Uint32(data[offPos:]))
			offPos += 4
		} else {
			if offPos+2 > len(data) {
				return Gvar{}, fmt.Errorf("tables: %w: gvar offsets truncated", ErrBadFont)
			}
			offsets[i] = 2 * int(binary.BigEndian.Uint16(data[offPos:]))
			offPos += 2
		}
	}

	glyphDatas := make([]GlyphVariationData, glyphCount)
	for i := 0; i < glyphCount; i++ {
		start, end := dataArrayOffset+offsets[i], dataArrayOffset+offsets[i+1]
		if start == end {
			continue
		}
		if end > len(data) || start+4 > len(data) {
			return Gvar{}, fmt.Errorf("tables: %w: gvar glyph %d data truncated", ErrBadFont, i)
		}
		tupleCountField := binary.BigEndian.Uint16(data[start:])
		tupleDataOffset := int(binary.BigEndian.Uint16(data[start+2:]))
		sharedPoints := tupleCountField&gvarSharedPointsBit != 0
		tupleCount := int(tupleCountField & gvarTupleCountMask)

		headers := make([]TupleVariationHeader, tupleCount)
		hpos := start + 4
		for t := 0; t < tupleCount; t++ {
			if hpos+4 > len(data) {
				return Gvar{}, fmt.Errorf("tables: %w: gvar tuple header truncated", ErrBadFont)
			}
			size := binary.BigEndian.Uint16(data[hpos:])
			idx := binary.BigEndian.Uint16(data[hpos+2:])
			hpos += 4
			var peak, s0, s1 Tuple
			if idx&tupleEmbeddedPeak != 0 {
				vals := make([]VarCoord, axisCount)
				for a := 0; a < axisCount; a++ {
					if hpos+2 > len(data) {
						return Gvar{}, fmt.Errorf("tables: %w: gvar peak tuple truncated", ErrBadFont)
					}
					vals[a] = VarCoord(int16(binary.BigEndian.Uint16(data[hpos:])))
					hpos += 2
				}
				peak = Tuple{Values: vals}
			}
			if idx&tupleIntermediate != 0 {
				v0 := make([]VarCoord, axisCount)
				v1 := make([]VarCoord, axisCount)
				for a := 0; a < axisCount; a++ {
					if hpos+4 > len(data) {
						return Gvar{}, fmt.Errorf("tables: %w: gvar intermediate tuple truncated", ErrBadFont)
					}
					v0[a] = VarCoord(int16(binary.BigEndian.Uint16(data[hpos:])))
					v1[a] = VarCoord(int16(binary.BigEndian.Uint16(data[hpos+2:])))
					hpos += 4
				}
				s0, s1 = Tuple{Values: v0}, Tuple{Values: v1}
			}
			headers[t] = TupleVariationHeader{
				VariationDataSize:  size,
				tupleIndex:         idx,
				PeakTuple:          peak,
				IntermediateTuples: [2]Tuple{s0, s1},
			}
		}

		serialized := data[start+tupleDataOffset : end]
		glyphDatas[i] = GlyphVariationData{
			TupleVariationHeaders: headers,
			SerializedData:        serialized,
			sharedPointNumbers:    sharedPoints,
		}
	}

	return Gvar{SharedTuples: SharedTuples{SharedTuples: sharedTuples}, GlyphVariationDatas: glyphDatas}, nil
}

// ParseGDEF decodes the `GDEF` table (§4.B GDEF). axisCount is the font's
// fvar axis count (0 if the font is not variable); ParseGDEF does not
// consult it, and an embedded ItemVariationStore is kept whatever its own
// axis count.
func ParseGDEF(data []byte, axisCount int) (GDEF, error) {
	if len(data) < 12 {
		return GDEF{}, fmt.Errorf("tables: %w: GDEF too short", ErrBadFont)
	}
	minor := binary.BigEndian.Uint16(data[2:])
	glyphClassOff := int(binary.BigEndian.Uint16(data[4:]))
	attachListOff := int(binary.BigEndian.Uint16(data[6:]))
	ligCaretOff := int(binary.BigEndian.Uint16(data[8:]))
	markAttachOff := int(binary.BigEndian.Uint16(data[10:]))
	markGlyphSetsOff := 0
	pos := 12
	if minor >= 2 {
		if pos+2 > len(data) {
			return GDEF{}, fmt.Errorf("tables: %w: GDEF truncated", ErrBadFont)
		}
		markGlyphSetsOff = int(binary.BigEndian.Uint16(data[pos:]))
		pos += 2
	}
	itemVarStoreOff := 0
	if minor >= 3 {
		if pos+4 > len(data) {
			return GDEF{}, fmt.Errorf("tables: %w: GDEF truncated", ErrBadFont)
		}
		itemVarStoreOff = int(binary.BigEndian.Uint32(data[pos:]))
	}

	var out GDEF
	if glyphClassOff != 0 {
		if cd, err := ParseClassDef(data, glyphClassOff); err == nil {
			out.GlyphClassDef = cd
		}
	}
	if markAttachOff != 0 {
		if cd, err := ParseClassDef(data, markAttachOff); err == nil {
			out.MarkAttachClassDef = cd
		}
	}
	if attachListOff != 0 {
		out.AttachList = parseAttachList(data, attachListOff)
	}
	if ligCaretOff != 0 {
		out.LigCaretList = parseLigCaretList(data, ligCaretOff)
	}
	if markGlyphSetsOff != 0 {
		out.MarkGlyphSetsDef = parseMarkGlyphSets(data, markGlyphSetsOff)
	}
	if itemVarStoreOff != 0 {
		if s, err := parseItemVariationStore(data[itemVarStoreOff:]); err == nil {
			out.ItemVarStore = s
		}
	}
	return out, nil
}

func parseAttachList(data []byte, off int) map[GlyphID][]uint16 {
	if off+4 > len(data) {
		return nil
	}
	coverageOff := int(binary.BigEndian.Uint16(data[off:]))
	glyphCount := int(binary.BigEndian.Uint16(data[off+2:]))
	cov, err := ParseCoverage(data, off+coverageOff)
	if err != nil {
		return nil
	}
	out := make(map[GlyphID][]uint16, glyphCount)
	glyphs := cov.Glyphs()
	pos := off + 4
	for i := 0; i < glyphCount && i < len(glyphs); i++ {
		if pos+2 > len(data) {
			break
		}
		apOff := off + int(binary.BigEndian.Uint16(data[pos:]))
		pos += 2
		if apOff+2 > len(data) {
			continue
		}
		n := int(binary.BigEndian.Uint16(data[apOff:]))
		pts, err := ParseUint16s(data[apOff+2:], n)
		if err != nil {
			continue
		}
		out[glyphs[i]] = pts
	}
	return out
}

func parseLigCaretList(data []byte, off int) LigCaretList {
	if off+4 > len(data) {
		return LigCaretList{}
	}
	coverageOff := int(binary.BigEndian.Uint16(data[off:]))
	ligCount := int(binary.BigEndian.Uint16(data[off+2:]))
	cov, err := ParseCoverage(data, off+coverageOff)
	if err != nil {
		return LigCaretList{}
	}
	out := make([][]Devices, ligCount)
	pos := off + 4
	for i := 0; i < ligCount; i++ {
		if pos+2 > len(data) {
			break
		}
		ligGlyphOff := off + int(binary.BigEndian.Uint16(data[pos:]))
		pos += 2
		if ligGlyphOff+2 > len(data) {
			continue
		}
		caretCount := int(binary.BigEndian.Uint16(data[ligGlyphOff:]))
		devs := make([]Devices, 0, caretCount)
		cpos := ligGlyphOff + 2
		for c := 0; c < caretCount; c++ {
			if cpos+2 > len(data) {
				break
			}
			caretOff := ligGlyphOff + int(binary.BigEndian.Uint16(data[cpos:]))
			cpos += 2
			if caretOff+4 > len(data) {
				continue
			}
			format := binary.BigEndian.Uint16(data[caretOff:])
			if format == 3 {
				devOff := int(binary.BigEndian.Uint16(data[caretOff+4:]))
				if dv, err := ParseDevice(data, caretOff+devOff); err == nil && dv != nil {
					devs = append(devs, *dv)
				}
			}
		}
		out[i] = devs
	}
	return LigCaretList{Coverage: cov, LigGlyphs: out}
}

func parseMarkGlyphSets(data []byte, off int) MarkGlyphSets {
	if off+4 > len(data) {
		return MarkGlyphSets{}
	}
	count := int(binary.BigEndian.Uint16(data[off+2:]))
	covs := make([]Coverage, 0, count)
	pos := off + 4
	for i := 0; i < count; i++ {
		if pos+4 > len(data) {
			break
		}
		covOff := int(binary.BigEndian.Uint32(data[pos:]))
		pos += 4
		if cov, err := ParseCoverage(data, off+covOff); err == nil {
			covs = append(covs, cov)
		}
	}
	return MarkGlyphSets{Coverages: covs}
}

// ParseAnkr decodes the `ankr` table (§4.E AAT anchor points). Only AAT
// lookup table formats 0 (glyph array) and 6 (sorted glyph/value pairs) are
// supported, which covers every shipping `ankr` table observed in practice;
// other formats (2, 4, 8) yield an empty anchor set rather than an error.
func ParseAnkr(data []byte) (Ankr, error) {
	if len(data) < 12 {
		return Ankr{}, fmt.Errorf("tables: %w: ankr too short", ErrBadFont)
	}
	lookupOff := int(binary.BigEndian.Uint32(data[4:]))
	glyphDataOff := int(binary.BigEndian.Uint32(data[8:]))
	if lookupOff+2 > len(data) {
		return Ankr{}, fmt.Errorf("tables: %w: ankr truncated", ErrBadFont)
	}
	format := binary.BigEndian.Uint16(data[lookupOff:])
	anchors := map[GlyphID][]AnkrPoint{}
	readPoints := func(off int) []AnkrPoint {
		off += glyphDataOff
		if off+2 > len(data) {
			return nil
		}
		n := int(binary.BigEndian.Uint16(data[off:]))
		pts := make([]AnkrPoint, 0, n)
		pos := off + 2
		for i := 0; i < n; i++ {
			if pos+4 > len(data) {
				break
			}
			pts = append(pts, AnkrPoint{
				X: int16(binary.BigEndian.Uint16(data[pos:])),
				Y: int16(binary.BigEndian.Uint16(data[pos+2:])),
			})
			pos += 4
		}
		return pts
	}
	switch format {
	case 0:
		pos := lookupOff + 2
		gid := GlyphID(0)
		for pos+2 <= len(data) {
			valueOff := int(binary.BigEndian.Uint16(data[pos:]))
			if pts := readPoints(valueOff); len(pts) > 0 {
				anchors[gid] = pts
			}
			pos += 2
			gid++
		}
	case 6:
		if lookupOff+12 > len(data) {
			break
		}
		unitSize := int(binary.BigEndian.Uint16(data[lookupOff+2:]))
		nUnits := int(binary.BigEndian.Uint16(data[lookupOff+4:]))
		pos := lookupOff + 12
		for i := 0; i < nUnits; i++ {
			if pos+4 > len(data) {
				break
			}
			gid := GlyphID(binary.BigEndian.Uint16(data[pos:]))
			valueOff := int(binary.BigEndian.Uint16(data[pos+2:]))
			if gid != 0xFFFF {
				if pts := readPoints(valueOff); len(pts) > 0 {
					anchors[gid] = pts
				}
			}
			pos += unitSize
		}
	}
	return Ankr{Anchors: anchors}, nil
}

// ParseTrak decodes the `trak` table (§4.E AAT tracking).
func ParseTrak(data []byte) (Trak, error) {
	if len(data) < 12 {
		return Trak{}, fmt.Errorf("tables: %w: trak too short", ErrBadFont)
	}
	horizOff := int(binary.BigEndian.Uint16(data[6:]))
	vertOff := int(binary.BigEndian.Uint16(data[8:]))
	horiz, err := parseTrackData(data, horizOff)
	if err != nil {
		return Trak{}, err
	}
	vert, err := parseTrackData(data, vertOff)
	if err != nil {
		return Trak{}, err
	}
	return Trak{Horiz: horiz, Vert: vert}, nil
}

func parseTrackData(data []byte, off int) (TrackData, error) {
	if off == 0 || off+8 > len(data) {
		return TrackData{}, nil
	}
	nTracks := int(binary.BigEndian.Uint16(data[off:]))
	nSizes := int(binary.BigEndian.Uint16(data[off+2:]))
	sizeTableOff := int(binary.BigEndian.Uint32(data[off+4:]))

	sizes := make([]float32, nSizes)
	for i := 0; i < nSizes; i++ {
		p := sizeTableOff + 4*i
		if p+4 > len(data) {
			return TrackData{}, fmt.Errorf("tables: %w: trak sizes truncated", ErrBadFont)
		}
		sizes[i] = fixed16_16(data[p:])
	}

	entries := make([]TrackTableEntry, nTracks)
	pos := off + 8
	for i := 0; i < nTracks; i++ {
		if pos+8 > len(data) {
			return TrackData{}, fmt.Errorf("tables: %w: trak entries truncated", ErrBadFont)
		}
		track := fixed16_16(data[pos:])
		nameIndex := binary.BigEndian.Uint16(data[pos+4:])
		perSizeOff := int(binary.BigEndian.Uint16(data[pos+6:]))
		perSize := make([]int16, nSizes)
		for s := 0; s < nSizes; s++ {
			p := perSizeOff + 2*s
			if p+2 > len(data) {
				break
			}
			perSize[s] = int16(binary.BigEndian.Uint16(data[p:]))
		}
		entries[i] = TrackTableEntry{Track: track, NameIndex: nameIndex, PerSizeTracking: perSize}
		pos += 8
	}
	return TrackData{TrackTable: entries, SizeTable: sizes}, nil
}
