package tables

// AATStateEntry is one transition of an AAT extended state table: the state
// to move to, transition flags (subtable-specific, e.g. kerx1Push), and for
// morx subtables that carry per-entry extra data (contextual, ligature,
// insertion) the decoded extra uint16 fields that follow NewState/Flags.
type AATStateEntry struct {
	NewState uint16
	Flags    uint16
	extra    [2]uint16
}

// AsKernxIndex extracts the low 14 bits of Flags as a kerning-value index,
// used by kerx subtable formats 1 and 4 (0xFFFF = "no action").
func (e AATStateEntry) AsKernxIndex() uint16 {
	if e.Flags&0x3FFF == 0x3FFF {
		return 0xFFFF
	}
	return e.Flags & 0x3FFF
}

// AsMorxContextual returns the (markIndex, currentIndex) substitution-table
// indices of a morx contextual subtable entry's extra data.
func (e AATStateEntry) AsMorxContextual() (markIndex, currentIndex uint16) {
	return e.extra[0], e.extra[1]
}

// AsMorxLigature returns the ligature-action array index of a morx ligature
// subtable entry's extra data.
func (e AATStateEntry) AsMorxLigature() uint16 { return e.extra[0] }

// AsMorxInsertion returns the (currentInsertIndex, markedInsertIndex)
// insertion-list indices of a morx insertion subtable entry's extra data.
func (e AATStateEntry) AsMorxInsertion() (current, marked uint16) {
	return e.extra[0], e.extra[1]
}

// NewAATStateEntry builds an entry from its decoded fields; extra holds the
// subtable-specific trailing uint16s (0, 1 or 2 of them, zero-padded).
func NewAATStateEntry(newState, flags uint16, extra [2]uint16) AATStateEntry {
	return AATStateEntry{NewState: newState, Flags: flags, extra: extra}
}

// morx ligature subtable entry flags (§4.E, 16-bit, tested against
// AATStateEntry.Flags).
const (
	MLSetComponent uint16 = 0x8000 // push this glyph onto the component stack
	MLOffset       uint16 = 0x2000 // ligActionIndex selects a ligature action group
)

// morx ligature-action word flags (§4.E, 32-bit, tested against entries of
// MorxLigatureSubtable.LigatureAction).
const (
	MLActionLast   uint32 = 0x80000000 // last action for this group
	MLActionStore  uint32 = 0x40000000 // store the formed ligature glyph
	MLActionOffset uint32 = 0x3FFFFFFF // signed 30-bit component-index delta
)

// Ankr is the parsed `ankr` table: per-glyph anchor points referenced by
// kerx subtable format 4's anchor-point action and by morx/GPOS cursive
// fallback.
type Ankr struct {
	// Anchors[gid] is the list of named anchor points for that glyph.
	Anchors map[GlyphID][]AnkrPoint
}

type AnkrPoint struct{ X, Y int16 }

// GetAnchor returns glyph gid's anchor point at index, or the zero point if
// the glyph has no anchor table or index is out of range.
func (a Ankr) GetAnchor(gid GlyphID, index int) AnkrPoint {
	pts := a.Anchors[gid]
	if index < 0 || index >= len(pts) {
		return AnkrPoint{}
	}
	return pts[index]
}

// KerxAnchorControls is kerx format-4 action type 0: indices into the
// glyph's own outline point list.
type KerxAnchorControls struct {
	Anchors []struct{ Mark, Current uint16 }
}

// KerxAnchorAnchors is kerx format-4 action type 1: indices into the `ankr`
// table's per-glyph anchor point list.
type KerxAnchorAnchors struct {
	Anchors []struct{ Mark, Current uint16 }
}

// KerxAnchorCoordinates is kerx format-4 action type 2: literal design-unit
// coordinates.
type KerxAnchorCoordinates struct {
	Anchors []struct{ MarkX, MarkY, CurrentX, CurrentY int16 }
}

// TrackTableEntry is one `trak` per-track entry: a track value (amount of
// tracking, in points/1000 em) plus per-size-subfamily advance adjustments.
type TrackTableEntry struct {
	Track           float32
	NameIndex       uint16
	PerSizeTracking []int16 // one value per size in the shared size array
}

// TrackData is one horizontal or vertical `trak` direction's track table.
type TrackData struct {
	TrackTable []TrackTableEntry
	SizeTable  []float32 // shared per-direction size array, in points
}

// Trak is the parsed `trak` table (§4.E AAT trak): additional tracking
// (letter-spacing) applied at specific point sizes, interpolated between
// table entries.
type Trak struct {
	Horiz, Vert TrackData
}

// IsEmpty reports whether the table carries no tracking data in either
// direction, the condition under which a shaper should skip 'trak'
// application entirely.
func (t Trak) IsEmpty() bool {
	return len(t.Horiz.TrackTable) == 0 && len(t.Vert.TrackTable) == 0
}
