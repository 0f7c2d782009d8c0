package font

import (
	"github.com/wiedymi/otshape/font/opentype/tables"
)

// AATStateTable is a decoded AAT extended state table: a class lookup per
// glyph plus a [state][class] entry transition grid, shared by every kerx
// and morx subtable format (§4.E AAT state machines).
type AATStateTable struct {
	Classes    map[GID]uint16 // glyph -> class; missing glyph gets class 1 (outOfBounds)
	StateArray [][]uint16     // [state][class] -> entry index
	Entries    []tables.AATStateEntry
	NumClasses uint16
}

// AAT reserved classes (§4.E state table header).
const (
	AATClassEndOfText    uint16 = 0
	AATClassOutOfBounds  uint16 = 1
	AATClassDeletedGlyph uint16 = 2
	AATStateStartOfText  uint16 = 0
	AATStateStartOfLine  uint16 = 1
)

// GetClass returns g's state-table class, or AATClassOutOfBounds if g has
// none assigned.
func (t AATStateTable) GetClass(g GID) uint16 {
	if c, ok := t.Classes[g]; ok {
		return c
	}
	return AATClassOutOfBounds
}

// GetEntry returns the transition entry for (state, class), clamping out of
// range lookups the way HarfBuzz does (missing glyph classes behave as
// "out of bounds").
func (t AATStateTable) GetEntry(state, class uint16) tables.AATStateEntry {
	if int(state) >= len(t.StateArray) {
		return tables.AATStateEntry{}
	}
	row := t.StateArray[state]
	if int(class) >= len(row) {
		return tables.AATStateEntry{}
	}
	idx := row[class]
	if int(idx) >= len(t.Entries) {
		return tables.AATStateEntry{}
	}
	return t.Entries[idx]
}

// GlyphMask is a morx/kerx subtable's coverage bitmask (direction and
// variation applicability).
type GlyphMask uint32

const (
	MorxCoverageVertical   GlyphMask = 0x80
	MorxCoverageDescending GlyphMask = 0x40
	MorxCoverageLogical    GlyphMask = 0x10
)

// MorxRearrangementSubtable reorders glyphs within a matched span; its
// entry flags alone select one of 15 verbs, so it carries no payload beyond
// the state machine itself and is simply that machine.
type MorxRearrangementSubtable = AATStateTable

// AATGlyphMap is a decoded AAT lookup table (§4.E formats 0 and 6): a sparse
// glyph -> value map, used for morx non-contextual and contextual glyph
// substitution.
type AATGlyphMap map[GID]uint16

// Class implements the lookup interface morx substitution driving needs,
// named to match the OpenType ClassDef convention it mirrors.
func (m AATGlyphMap) Class(gid GID) (uint16, bool) {
	v, ok := m[gid]
	return v, ok
}

// MorxContextualSubtable substitutes the current and/or marked glyph based
// on per-entry substitution-table indices (AATStateEntry.AsMorxContextual),
// each index selecting one of Substitutions.
type MorxContextualSubtable struct {
	Machine       AATStateTable
	Substitutions []AATGlyphMap
}

// MorxLigatureSubtable builds ligatures via a push/pop component stack and
// an action list (§4.E, MLActionOffset/MLSetComponent/MLActionLast/
// MLActionStore).
type MorxLigatureSubtable struct {
	Machine        AATStateTable
	LigatureAction []uint32
	Components     []uint16
	Ligatures      []GID
}

// MorxInsertionSubtable inserts glyphs before and/or after the current
// glyph, driven by per-entry insertion-list indices
// (AATStateEntry.AsMorxInsertion).
type MorxInsertionSubtable struct {
	Machine    AATStateTable
	Insertions []GID
}

// MorxNonContextualSubtable is a simple glyph -> glyph substitution lookup
// applied unconditionally to every input glyph (format 4).
type MorxNonContextualSubtable struct {
	Class AATGlyphMap
}

// MorxSubtable is one `morx` chain subtable: its coverage mask plus its
// decoded payload, one of the Morx*Subtable types above.
type MorxSubtable struct {
	Coverage GlyphMask
	Flags    uint32 // feature-selector flags, not currently decoded further
	Data     interface{}
}

// MorxChain is one `morx` chain: an ordered list of subtables applied in
// sequence, each gated by the feature selections this chain enables.
type MorxChain struct {
	DefaultFlags uint32
	Subtables    []MorxSubtable
}

// Kern0 is kern/kerx format 0: a sorted list of (left,right) glyph pairs and
// their kerning value.
type Kern0 struct {
	Pairs []struct {
		Left, Right GID
		Value       int16
	}
}

// Get looks up the kerning value for an ordered glyph pair, binary-searching
// the sorted pair list (§4.E kern format 0).
func (k Kern0) Get(left, right GID) (int16, bool) {
	lo, hi := 0, len(k.Pairs)
	for lo < hi {
		mid := (lo + hi) / 2
		p := k.Pairs[mid]
		switch {
		case p.Left < left || (p.Left == left && p.Right < right):
			lo = mid + 1
		case p.Left > left || (p.Left == left && p.Right > right):
			hi = mid
		default:
			return p.Value, true
		}
	}
	return 0, false
}

// Kern1 is kern/kerx format 1: an AAT state machine whose entries index
// into a kerning-value array (AATStateEntry.AsKernxIndex).
type Kern1 struct {
	Machine AATStateTable
	Values  []int16
}

// Kern2 is kern/kerx format 2: a 2-D class-indexed kerning array.
type Kern2 struct {
	LeftClass, RightClass map[GID]uint16
	Values                [][]int16 // [leftClass][rightClass]
}

// Get looks up the kerning value via the left/right class arrays, 0 (no
// kerning) for a glyph absent from its class map.
func (k Kern2) Get(left, right GID) (int16, bool) {
	lc, ok := k.LeftClass[left]
	if !ok {
		return 0, false
	}
	rc, ok := k.RightClass[right]
	if !ok {
		return 0, false
	}
	if int(lc) >= len(k.Values) || int(rc) >= len(k.Values[lc]) {
		return 0, false
	}
	return k.Values[lc][rc], true
}

// Kern3 is kerx format 3: a compact per-glyph-pair class/index kerning
// table (kerx-only; absent from the classic AAT `kern` table).
type Kern3 struct {
	LeftClass, RightClass []uint16 // indexed by glyph id
	Kern                  [][]int16
}

// Get looks up the kerning value via the per-glyph class arrays.
func (k Kern3) Get(left, right GID) (int16, bool) {
	if int(left) >= len(k.LeftClass) || int(right) >= len(k.RightClass) {
		return 0, false
	}
	lc, rc := k.LeftClass[left], k.RightClass[right]
	if int(lc) >= len(k.Kern) || int(rc) >= len(k.Kern[lc]) {
		return 0, false
	}
	return k.Kern[lc][rc], true
}

// Kern4 is kerx format 4: an AAT state machine whose entries perform an
// anchor-point action instead of adjusting an advance. Anchors holds
// exactly one of tables.KerxAnchorControls, KerxAnchorAnchors or
// KerxAnchorCoordinates, selected by the subtable's action-type field.
type Kern4 struct {
	Machine AATStateTable
	Anchors interface{}
}

// ActionType reports which of the three anchor-action encodings Anchors
// holds (0 control points, 1 named anchors, 2 literal coordinates).
func (k Kern4) ActionType() uint8 {
	switch k.Anchors.(type) {
	case tables.KerxAnchorAnchors:
		return 1
	case tables.KerxAnchorCoordinates:
		return 2
	default:
		return 0
	}
}

// Kern6 is kerx format 6: a sparse row/column glyph-index kerning matrix.
type Kern6 struct {
	RowIndex, ColumnIndex map[GID]uint16
	Kern                  [][]int16
}

// Get looks up the kerning value via the row/column index maps.
func (k Kern6) Get(left, right GID) (int16, bool) {
	row, ok := k.RowIndex[left]
	if !ok {
		return 0, false
	}
	col, ok := k.ColumnIndex[right]
	if !ok {
		return 0, false
	}
	if int(row) >= len(k.Kern) || int(col) >= len(k.Kern[row]) {
		return 0, false
	}
	return k.Kern[row][col], true
}

// KernSubtable is one `kern`/`kerx` subtable: its coverage flags and one of
// the Kern0..Kern6 payloads.
type KernSubtable struct {
	Horizontal  bool
	CrossStream bool
	Variation   bool
	IsExtended  bool // true for `kerx` subtables, false for classic `kern`
	Data        interface{}
}

func (s KernSubtable) IsBackwards() bool   { return false }
func (s KernSubtable) IsCrossStream() bool { return s.CrossStream }
func (s KernSubtable) IsHorizontal() bool  { return s.Horizontal }
func (s KernSubtable) IsVariation() bool   { return s.Variation }

// Kernx is a decoded `kern` or `kerx` table: its ordered list of subtables,
// applied cumulatively.
type Kernx []KernSubtable
