package font

import (
	"encoding/binary"
	"fmt"

	"github.com/wiedymi/otshape/font/opentype/tables"
)

// parseStateTable decodes an AAT extended state table (§4.E AAT state
// machines): a glyph class lookup, a [state][class] entry-index grid, and
// the entry array itself. This is the 32-bit "extended" layout shared by
// kerx formats 1/4 and every morx subtable.
// entrySize is the per-entry byte width, which varies by subtable kind:
// rearrangement and kerx formats 1/4 use 4 bytes (NewState+Flags only);
// morx ligature adds one trailing uint16 (6 bytes); morx contextual and
// insertion add two (8 bytes).
func parseStateTable(data []byte, base int, entrySize int) (AATStateTable, error) {
	if base+16 > len(data) {
		return AATStateTable{}, fmt.Errorf("font: AAT state table header truncated")
	}
	nClasses := binary.BigEndian.Uint32(data[base:])
	classTableOff := int(binary.BigEndian.Uint32(data[base+4:]))
	stateArrayOff := int(binary.BigEndian.Uint32(data[base+8:]))
	entryTableOff := int(binary.BigEndian.Uint32(data[base+12:]))

	classes := parseAATLookupGlyphMap(data, base+classTableOff)

	extraCount := (entrySize - 4) / 2
	var entries []tables.AATStateEntry
	pos := base + entryTableOff
	for pos+entrySize <= len(data) {
		var extra [2]uint16
		for i := 0; i < extraCount; i++ {
			extra[i] = binary.BigEndian.Uint16(data[pos+4+i*2:])
		}
		entries = append(entries, tables.NewAATStateEntry(
			binary.BigEndian.Uint16(data[pos:]),
			binary.BigEndian.Uint16(data[pos+2:]),
			extra,
		))
		pos += entrySize
	}

	nStates := 0
	if nClasses > 0 {
		available := (len(data) - (base + stateArrayOff)) / 2
		if available > 0 {
			nStates = available / int(nClasses)
		}
	}
	stateArray := make([][]uint16, nStates)
	sp := base + stateArrayOff
	for s := 0; s < nStates; s++ {
		row := make([]uint16, nClasses)
		for c := uint32(0); c < nClasses; c++ {
			p := sp + s*int(nClasses)*2 + int(c)*2
			if p+2 <= len(data) {
				row[c] = binary.BigEndian.Uint16(data[p:])
			}
		}
		stateArray[s] = row
	}

	return AATStateTable{Classes: classes, StateArray: stateArray, Entries: entries, NumClasses: uint16(nClasses)}, nil
}

// parseAATLookupGlyphMap decodes an AAT lookup table (§4.E) mapping glyph
// IDs to a uint16 value, at formats 0 (plain array, one value per glyph
// starting at 0) and 6 (sorted glyph/value unit array) — the two formats
// every class table and non-contextual substitution table observed in
// practice actually uses. Formats 2, 4 and 8 are left unsupported (empty
// map) rather than guessed at.
func parseAATLookupGlyphMap(data []byte, off int) map[GID]uint16 {
	out := map[GID]uint16{}
	if off+4 > len(data) {
		return out
	}
	format := binary.BigEndian.Uint16(data[off:])
	switch format {
	case 0:
		pos := off + 2
		gid := GID(0)
		for pos+2 <= len(data) {
			out[gid] = binary.BigEndian.Uint16(data[pos:])
			pos += 2
			gid++
		}
	case 6:
		if off+12 <= len(data) {
			unitSize := int(binary.BigEndian.Uint16(data[off+2:]))
			nUnits := int(binary.BigEndian.Uint16(data[off+4:]))
			pos := off + 12
			for i := 0; i < nUnits; i++ {
				if pos+4 > len(data) || unitSize < 4 {
					break
				}
				gid := GID(binary.BigEndian.Uint16(data[pos:]))
				val := binary.BigEndian.Uint16(data[pos+2:])
				if gid != 0xFFFF {
					out[gid] = val
				}
				pos += unitSize
			}
		}
	}
	return out
}

// parseKern decodes the classic (non-extended) `kern` table: a sequence of
// subtables each prefixed by a version-0 or version-1 header depending on
// the table's own top-level version word.
func parseKern(data []byte) (Kernx, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("font: kern too short")
	}
	version := binary.BigEndian.Uint16(data)
	var out Kernx
	if version == 1 {
		// Apple version: Fixed version (4 bytes), uint32 nTables. Each
		// subtable: uint32 length, uint8 coverage flags (0x80 vertical,
		// 0x40 cross-stream), uint8 format, uint16 tupleIndex.
		if len(data) < 8 {
			return nil, fmt.Errorf("font: kern truncated")
		}
		n := binary.BigEndian.Uint32(data[4:])
		pos := 8
		for i := uint32(0); i < n; i++ {
			if pos+8 > len(data) {
				break
			}
			length := int(binary.BigEndian.Uint32(data[pos:]))
			flags := data[pos+4]
			format := data[pos+5]
			horizontal := flags&0x80 == 0
			crossStream := flags&0x40 != 0
			st, ok := parseKernSubtableBody(data[pos+8:], format)
			if ok {
				st.Horizontal, st.CrossStream = horizontal, crossStream
				out = append(out, st)
			}
			if length <= 0 {
				break
			}
			pos += length
		}
	} else {
		// Microsoft version: uint16 version, uint16 nTables. Each
		// subtable: uint16 version (ignored), uint16 length, uint8
		// format, uint8 coverage flags (bit0 horizontal, bit2 cross-stream).
		n := int(binary.BigEndian.Uint16(data[2:]))
		pos := 4
		for i := 0; i < n; i++ {
			if pos+6 > len(data) {
				break
			}
			length := int(binary.BigEndian.Uint16(data[pos+2:]))
			format := data[pos+4]
			flags := data[pos+5]
			horizontal := flags&0x01 != 0
			crossStream := flags&0x04 != 0
			st, ok := parseKernSubtableBody(data[pos+6:], format)
			if ok {
				st.Horizontal, st.CrossStream = horizontal, crossStream
				out = append(out, st)
			}
			if length <= 0 {
				break
			}
			pos += length
		}
	}
	return out, nil
}

func parseKernSubtableBody(data []byte, format byte) (KernSubtable, bool) {
	switch format {
	case 0:
		if len(data) < 14 {
			return KernSubtable{}, false
		}
		nPairs := int(binary.BigEndian.Uint16(data[6:]))
		pos := 14
		k0 := Kern0{}
		for i := 0; i < nPairs; i++ {
			if pos+6 > len(data) {
				break
			}
			k0.Pairs = append(k0.Pairs, struct {
				Left, Right GID
				Value       int16
			}{
				Left:  binary.BigEndian.Uint16(data[pos:]),
				Right: binary.BigEndian.Uint16(data[pos+2:]),
				Value: int16(binary.BigEndian.Uint16(data[pos+4:])),
			})
			pos += 6
		}
		return KernSubtable{Data: k0}, true
	case 2:
		if len(data) < 8 {
			return KernSubtable{}, false
		}
		rowWidth := int(binary.BigEndian.Uint16(data[2:]))
		leftOff := int(binary.BigEndian.Uint16(data[4:]))
		rightOff := int(binary.BigEndian.Uint16(data[6:]))
		leftClass := parseKernClassTable(data, leftOff)
		rightClass := parseKernClassTable(data, rightOff)
		k2 := Kern2{LeftClass: leftClass, RightClass: rightClass}
		maxLeft, maxRight := uint16(0), uint16(0)
		for _, c := range leftClass {
			if c > maxLeft {
				maxLeft = c
			}
		}
		for _, c := range rightClass {
			if c > maxRight {
				maxRight = c
			}
		}
		k2.Values = make([][]int16, maxLeft+1)
		arrayOff := 8
		for l := 0; l <= int(maxLeft); l++ {
			row := make([]int16, maxRight+1)
			for r := 0; r <= int(maxRight); r++ {
				p := arrayOff + l*rowWidth + r*2
				if p+2 <= len(data) {
					row[r] = int16(binary.BigEndian.Uint16(data[p:]))
				}
			}
			k2.Values[l] = row
		}
		return KernSubtable{Data: k2}, true
	default:
		return KernSubtable{}, false
	}
}

func parseKernClassTable(data []byte, off int) map[GID]uint16 {
	if off+4 > len(data) {
		return nil
	}
	firstGlyph := GID(binary.BigEndian.Uint16(data[off:]))
	nGlyphs := int(binary.BigEndian.Uint16(data[off+2:]))
	out := make(map[GID]uint16, nGlyphs)
	pos := off + 4
	for i := 0; i < nGlyphs; i++ {
		if pos+2 > len(data) {
			break
		}
		out[firstGlyph+GID(i)] = binary.BigEndian.Uint16(data[pos:])
		pos += 2
	}
	return out
}

// parseKerx decodes the AAT `kerx` table (§4.E, the 32-bit successor to
// classic `kern`): formats 0, 1, 2 and 4 are decoded, format 4 with any of
// its three anchor-action encodings (Kern4); other formats are skipped.
func parseKerx(data []byte) (Kernx, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("font: kerx too short")
	}
	n := binary.BigEndian.Uint32(data[4:])
	var out Kernx
	pos := 8
	for i := uint32(0); i < n; i++ {
		if pos+12 > len(data) {
			break
		}
		length := int(binary.BigEndian.Uint32(data[pos:]))
		coverage := binary.BigEndian.Uint32(data[pos+4:])
		format := byte(coverage & 0xFF)
		horizontal := coverage&0x80000000 == 0
		crossStream := coverage&0x40000000 != 0
		variation := coverage&0x20000000 != 0
		body := data[pos+12:]
		if length > 0 && pos+length <= len(data) {
			body = data[pos : pos+length][12:]
		}
		st, ok := parseKerxSubtableBody(body, format)
		if ok {
			st.Horizontal, st.CrossStream, st.Variation, st.IsExtended = horizontal, crossStream, variation, true
			out = append(out, st)
		}
		if length <= 0 {
			break
		}
		pos += length
	}
	return out, nil
}

func parseKerxSubtableBody(data []byte, format byte) (KernSubtable, bool) {
	switch format {
	case 0:
		if len(data) < 8 {
			return KernSubtable{}, false
		}
		nPairs := int(binary.BigEndian.Uint32(data))
		pos := 8
		k0 := Kern0{}
		for i := 0; i < nPairs; i++ {
			if pos+6 > len(data) {
				break
			}
			k0.Pairs = append(k0.Pairs, struct {
				Left, Right GID
				Value       int16
			}{
				Left:  binary.BigEndian.Uint16(data[pos:]),
				Right: binary.BigEndian.Uint16(data[pos+2:]),
				Value: int16(binary.BigEndian.Uint16(data[pos+4:])),
			})
			pos += 6
		}
		return KernSubtable{Data: k0}, true
	case 1:
		st, err := parseStateTable(data, 0, 4)
		if err != nil {
			return KernSubtable{}, false
		}
		valuesOff := 0
		if len(data) >= 20 {
			valuesOff = int(binary.BigEndian.Uint32(data[16:]))
		}
		var values []int16
		for p := valuesOff; p+2 <= len(data); p += 2 {
			values = append(values, int16(binary.BigEndian.Uint16(data[p:])))
		}
		return KernSubtable{Data: Kern1{Machine: st, Values: values}}, true
	case 2:
		if len(data) < 16 {
			return KernSubtable{}, false
		}
		rowWidth := int(binary.BigEndian.Uint32(data[4:]))
		leftOff := int(binary.BigEndian.Uint32(data[8:]))
		rightOff := int(binary.BigEndian.Uint32(data[12:]))
		leftClass := parseKernClassTable(data, leftOff)
		rightClass := parseKernClassTable(data, rightOff)
		maxLeft, maxRight := uint16(0), uint16(0)
		for _, c := range leftClass {
			if c > maxLeft {
				maxLeft = c
			}
		}
		for _, c := range rightClass {
			if c > maxRight {
				maxRight = c
			}
		}
		k2 := Kern2{LeftClass: leftClass, RightClass: rightClass, Values: make([][]int16, maxLeft+1)}
		arrayOff := 16
		for l := 0; l <= int(maxLeft); l++ {
			row := make([]int16, maxRight+1)
			for r := 0; r <= int(maxRight); r++ {
				p := arrayOff + l*rowWidth + r*2
				if p+2 <= len(data) {
					row[r] = int16(binary.BigEndian.Uint16(data[p:]))
				}
			}
			k2.Values[l] = row
		}
		return KernSubtable{Data: k2}, true
	case 4:
		st, err := parseStateTable(data, 0, 4)
		if err != nil {
			return KernSubtable{}, false
		}
		k4 := Kern4{Machine: st}
		if len(data) >= 20 {
			flags := binary.BigEndian.Uint32(data[16:])
			actionType := uint8((flags >> 30) & 0x3)
			actionOff := int(flags & 0x00FFFFFF)
			maxIdx := -1
			for _, e := range st.Entries {
				idx := e.AsKernxIndex()
				if idx != 0xFFFF && int(idx) > maxIdx {
					maxIdx = int(idx)
				}
			}
			switch actionType {
			case 0, 1:
				var anchors []struct{ Mark, Current uint16 }
				for i := 0; i <= maxIdx; i++ {
					p := actionOff + i*4
					if p+4 > len(data) {
						break
					}
					anchors = append(anchors, struct{ Mark, Current uint16 }{
						Mark:    binary.BigEndian.Uint16(data[p:]),
						Current: binary.BigEndian.Uint16(data[p+2:]),
					})
				}
				if actionType == 0 {
					k4.Anchors = tables.KerxAnchorControls{Anchors: anchors}
				} else {
					k4.Anchors = tables.KerxAnchorAnchors{Anchors: anchors}
				}
			case 2:
				var coords []struct{ MarkX, MarkY, CurrentX, CurrentY int16 }
				for i := 0; i <= maxIdx; i++ {
					p := actionOff + i*8
					if p+8 > len(data) {
						break
					}
					coords = append(coords, struct{ MarkX, MarkY, CurrentX, CurrentY int16 }{
						MarkX:    int16(binary.BigEndian.Uint16(data[p:])),
						MarkY:    int16(binary.BigEndian.Uint16(data[p+2:])),
						CurrentX: int16(binary.BigEndian.Uint16(data[p+4:])),
						CurrentY: int16(binary.BigEndian.Uint16(data[p+6:])),
					})
				}
				k4.Anchors = tables.KerxAnchorCoordinates{Anchors: coords}
			}
		}
		return KernSubtable{Data: k4}, true
	default:
		return KernSubtable{}, false
	}
}

// parseMorx decodes the AAT `morx` table (§4.E glyph-metamorphosis): one or
// more chains, each an ordered list of subtables applied in sequence.
func parseMorx(data []byte) ([]MorxChain, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("font: morx too short")
	}
	nChains := binary.BigEndian.Uint32(data[4:])
	chains := make([]MorxChain, 0, nChains)
	pos := 8
	for i := uint32(0); i < nChains; i++ {
		if pos+16 > len(data) {
			break
		}
		defaultFlags := binary.BigEndian.Uint32(data[pos:])
		chainLength := int(binary.BigEndian.Uint32(data[pos+4:]))
		nSubtables := binary.BigEndian.Uint32(data[pos+12:])
		sp := pos + 16
		var subtables []MorxSubtable
		for s := uint32(0); s < nSubtables; s++ {
			if sp+12 > len(data) {
				break
			}
			length := int(binary.BigEndian.Uint32(data[sp:]))
			coverage := binary.BigEndian.Uint32(data[sp+4:])
			subFeatureFlags := binary.BigEndian.Uint32(data[sp+8:])
			subtype := byte(coverage & 0xFF)
			body := data[sp+12:]
			if length > 0 && sp+length <= len(data) {
				body = data[sp : sp+length][12:]
			}
			sub, ok := parseMorxSubtableBody(body, subtype)
			if ok {
				sub.Coverage = GlyphMask(coverage >> 24)
				sub.Flags = subFeatureFlags
				subtables = append(subtables, sub)
			}
			if length <= 0 {
				break
			}
			sp += length
		}
		chains = append(chains, MorxChain{DefaultFlags: defaultFlags, Subtables: subtables})
		if chainLength <= 0 {
			break
		}
		pos += chainLength
	}
	return chains, nil
}

func parseMorxSubtableBody(data []byte, subtype byte) (MorxSubtable, bool) {
	switch subtype & 0x7 {
	case 0: // rearrangement
		st, err := parseStateTable(data, 0, 4)
		if err != nil {
			return MorxSubtable{}, false
		}
		return MorxSubtable{Data: MorxRearrangementSubtable(st)}, true
	case 1: // contextual
		st, err := parseStateTable(data, 0, 8)
		if err != nil {
			return MorxSubtable{}, false
		}
		subTableOff := 0
		if len(data) >= 20 {
			subTableOff = int(binary.BigEndian.Uint32(data[16:]))
		}
		maxIdx := -1
		for _, e := range st.Entries {
			mi, ci := e.AsMorxContextual()
			if mi != 0xFFFF && int(mi) > maxIdx {
				maxIdx = int(mi)
			}
			if ci != 0xFFFF && int(ci) > maxIdx {
				maxIdx = int(ci)
			}
		}
		subs := make([]AATGlyphMap, maxIdx+1)
		for i := 0; i <= maxIdx; i++ {
			p := subTableOff + i*4
			if p+4 > len(data) {
				continue
			}
			off := int(binary.BigEndian.Uint32(data[p:]))
			subs[i] = AATGlyphMap(parseAATLookupGlyphMap(data, off))
		}
		return MorxSubtable{Data: MorxContextualSubtable{Machine: st, Substitutions: subs}}, true
	case 2: // ligature
		st, err := parseStateTable(data, 0, 6)
		if err != nil {
			return MorxSubtable{}, false
		}
		if len(data) < 28 {
			return MorxSubtable{Data: MorxLigatureSubtable{Machine: st}}, true
		}
		ligActionOff := int(binary.BigEndian.Uint32(data[16:]))
		componentOff := int(binary.BigEndian.Uint32(data[20:]))
		ligatureOff := int(binary.BigEndian.Uint32(data[24:]))
		var actions []uint32
		for p := ligActionOff; p+4 <= len(data) && p < componentOff; p += 4 {
			actions = append(actions, binary.BigEndian.Uint32(data[p:]))
		}
		var components []uint16
		for p := componentOff; p+2 <= len(data) && p < ligatureOff; p += 2 {
			components = append(components, binary.BigEndian.Uint16(data[p:]))
		}
		var ligatures []GID
		for p := ligatureOff; p+2 <= len(data); p += 2 {
			ligatures = append(ligatures, binary.BigEndian.Uint16(data[p:]))
		}
		return MorxSubtable{Data: MorxLigatureSubtable{Machine: st, LigatureAction: actions, Components: components, Ligatures: ligatures}}, true
	case 4: // non-contextual
		return MorxSubtable{Data: MorxNonContextualSubtable{Class: AATGlyphMap(parseAATLookupGlyphMap(data, 0))}}, true
	case 5: // insertion
		st, err := parseStateTable(data, 0, 8)
		if err != nil {
			return MorxSubtable{}, false
		}
		insertionOff := 0
		if len(data) >= 20 {
			insertionOff = int(binary.BigEndian.Uint32(data[16:]))
		}
		var insertions []GID
		for p := insertionOff; p+2 <= len(data); p += 2 {
			insertions = append(insertions, binary.BigEndian.Uint16(data[p:]))
		}
		return MorxSubtable{Data: MorxInsertionSubtable{Machine: st, Insertions: insertions}}, true
	default:
		return MorxSubtable{}, false
	}
}
