package tables

import (
	"fmt"

	ot "github.com/wiedymi/otshape/font/opentype"
)

// GPOSLookupType enumerates the nine GPOS subtable types (§4.J).
type GPOSLookupType uint16

const (
	GPOSSingle GPOSLookupType = iota + 1
	GPOSPair
	GPOSCursive
	GPOSMarkToBase
	GPOSMarkToLigature
	GPOSMarkToMark
	GPOSContext
	GPOSChainingContext
	GPOSExtension
)

// ValueFormat is the bitfield selecting which fields a ValueRecord carries.
type ValueFormat uint16

const (
	VFXPlacement ValueFormat = 1 << iota
	VFYPlacement
	VFXAdvance
	VFYAdvance
	VFXPlaDevice
	VFYPlaDevice
	VFXAdvDevice
	VFYAdvDevice
)

// ValueRecord is a GPOS positioning adjustment (§3 ValueRecord); only the
// fields selected by Format were actually present in the font and should be
// applied, everything else is zero.
type ValueRecord struct {
	Format                                       ValueFormat
	XPlacement, YPlacement, XAdvance, YAdvance    int16
	XPlaDevice, YPlaDevice, XAdvDevice, YAdvDevice *Devices
}

func parseValueRecord(r *ot.Loader, data []byte, subtableBase int, format ValueFormat) ValueRecord {
	v := ValueRecord{Format: format}
	if format&VFXPlacement != 0 {
		v.XPlacement = r.I16()
	}
	if format&VFYPlacement != 0 {
		v.YPlacement = r.I16()
	}
	if format&VFXAdvance != 0 {
		v.XAdvance = r.I16()
	}
	if format&VFYAdvance != 0 {
		v.YAdvance = r.I16()
	}
	var xPlaOff, yPlaOff, xAdvOff, yAdvOff uint16
	if format&VFXPlaDevice != 0 {
		xPlaOff = r.U16()
	}
	if format&VFYPlaDevice != 0 {
		yPlaOff = r.U16()
	}
	if format&VFXAdvDevice != 0 {
		xAdvOff = r.U16()
	}
	if format&VFYAdvDevice != 0 {
		yAdvOff = r.U16()
	}
	if r.Err() != nil {
		return v
	}
	if xPlaOff != 0 {
		v.XPlaDevice, _ = ParseDevice(data, subtableBase+int(xPlaOff))
	}
	if yPlaOff != 0 {
		v.YPlaDevice, _ = ParseDevice(data, subtableBase+int(yPlaOff))
	}
	if xAdvOff != 0 {
		v.XAdvDevice, _ = ParseDevice(data, subtableBase+int(xAdvOff))
	}
	if yAdvOff != 0 {
		v.YAdvDevice, _ = ParseDevice(data, subtableBase+int(yAdvOff))
	}
	return v
}

func valueRecordSize(format ValueFormat) int {
	n := 0
	for f := ValueFormat(1); f <= VFYAdvDevice; f <<= 1 {
		if format&f != 0 {
			n += 2
		}
	}
	return n
}

// Anchor is a decoded Anchor table in any of its three formats, recorded
// in Format (format 2 adds a contour-point hint for hinted rendering,
// format 3 adds device tables for use at non-design sizes).
type Anchor struct {
	XCoordinate, YCoordinate int16
	AnchorPoint              uint16 // format 2 only
	XDevice, YDevice         *Devices // format 3 only
	Format                   uint16
}

func parseAnchor(data []byte, base int) (*Anchor, error) {
	if base == 0 {
		return nil, nil
	}
	r := ot.NewLoader(data)
	r.Seek(base)
	format := r.U16()
	x, y := r.I16(), r.I16()
	a := &Anchor{XCoordinate: x, YCoordinate: y, Format: format}
	switch format {
	case 2:
		a.AnchorPoint = r.U16()
	case 3:
		xDevOff, yDevOff := r.U16(), r.U16()
		if r.Err() != nil {
			return nil, r.Err()
		}
		a.XDevice, _ = ParseDevice(data, base+int(xDevOff))
		a.YDevice, _ = ParseDevice(data, base+int(yDevOff))
	}
	if r.Err() != nil {
		return nil, r.Err()
	}
	return a, nil
}

// MarkRecord pairs a mark's class with its anchor into the base it attaches
// to (§4.J mark attachment).
type MarkRecord struct {
	Class  uint16
	Anchor *Anchor
}

// MarkArray is the MarkArray subtable shared by MarkBasePos/MarkLigPos/MarkMarkPos.
type MarkArray struct {
	MarkRecords []MarkRecord
}

// SinglePos is GPOS lookup type 1.
type SinglePos struct {
	Coverage Coverage
	Values   []ValueRecord // format 2: one per coverage index. format 1: single shared value, Values[0].
	format   uint16
}

func (s SinglePos) ValueFor(gid GlyphID) (ValueRecord, bool) {
	idx, ok := s.Coverage.Index(gid)
	if !ok {
		return ValueRecord{}, false
	}
	if s.format == 1 {
		return s.Values[0], true
	}
	if idx >= len(s.Values) {
		return ValueRecord{}, false
	}
	return s.Values[idx], true
}

// PairValueRecord is one (second glyph, value pair) entry of a first
// glyph's PairSet (format 1).
type PairValueRecord struct {
	SecondGlyph GlyphID
	Value1, Value2 ValueRecord
}

// PairPos is GPOS lookup type 2, either explicit glyph pairs (format 1, aka
// PairPosFormat1/"Data1") or class-pair value matrices (format 2, aka
// PairPosFormat2/"Data2").
type PairPos struct {
	Format   uint16
	Coverage Coverage

	// format 1
	PairSets [][]PairValueRecord

	// format 2
	ClassDef1, ClassDef2 ClassDef
	Class1Count, Class2Count uint16
	ClassValues             [][2]ValueRecord // [class1][class2]
}

// CursivePos is GPOS lookup type 3: entry/exit anchors for cursive joining.
type CursivePos struct {
	Coverage     Coverage
	EntryExit    []struct{ Entry, Exit *Anchor }
}

// MarkBasePos is GPOS lookup type 4.
type MarkBasePos struct {
	MarkCoverage, BaseCoverage Coverage
	MarkArray                 MarkArray
	BaseAnchors               [][]*Anchor // [baseCoverageIndex][markClass]
}

// MarkLigPos is GPOS lookup type 5: like MarkBasePos but the base side has
// one anchor set per ligature component.
type MarkLigPos struct {
	MarkCoverage, LigatureCoverage Coverage
	MarkArray                     MarkArray
	LigatureAnchors                [][][]*Anchor // [ligCoverageIndex][component][markClass]
}

// MarkMarkPos is GPOS lookup type 6: mark-to-mark attachment.
type MarkMarkPos struct {
	Mark1Coverage, Mark2Coverage Coverage
	Mark1Array                  MarkArray
	Mark2Anchors                [][]*Anchor
}

// GPOSLookupSubtable is the decoded payload of one GPOS subtable.
type GPOSLookupSubtable struct {
	Type GPOSLookupType

	Single     *SinglePos
	Pair       *PairPos
	Cursive    *CursivePos
	MarkBase   *MarkBasePos
	MarkLig    *MarkLigPos
	MarkMark   *MarkMarkPos
	Context    *SequenceContext
	Chaining   *ChainedSequenceContext
}

func parseMarkArray(data []byte, base int) (MarkArray, error) {
	r := ot.NewLoader(data)
	r.Seek(base)
	count := int(r.U16())
	type raw struct {
		class  uint16
		anchor uint16
	}
	raws := make([]raw, count)
	for i := range raws {
		raws[i] = raw{class: r.U16(), anchor: r.U16()}
	}
	if r.Err() != nil {
		return MarkArray{}, r.Err()
	}
	recs := make([]MarkRecord, count)
	for i, rw := range raws {
		a, err := parseAnchor(data, base+int(rw.anchor))
		if err != nil {
			return MarkArray{}, err
		}
		recs[i] = MarkRecord{Class: rw.class, Anchor: a}
	}
	return MarkArray{MarkRecords: recs}, nil
}

// ParseGPOSSubtable decodes one GPOS subtable of the given lookup type at
// offset base, transparently resolving Extension (type 9) subtables.
func ParseGPOSSubtable(data []byte, base int, lookupType GPOSLookupType) (GPOSLookupSubtable, error) {
	r := ot.NewLoader(data)
	r.Seek(base)
	format := r.U16()

	switch lookupType {
	case GPOSExtension:
		extType := r.U16()
		off := r.U32()
		if r.Err() != nil {
			return GPOSLookupSubtable{}, r.Err()
		}
		return ParseGPOSSubtable(data, base+int(off), GPOSLookupType(extType))

	case GPOSSingle:
		covOff := r.U16()
		vf := ValueFormat(r.U16())
		if format == 1 {
			v := parseValueRecord(r, data, base, vf)
			if r.Err() != nil {
				return GPOSLookupSubtable{}, r.Err()
			}
			cov, err := ParseCoverage(data, base+int(covOff))
			if err != nil {
				return GPOSLookupSubtable{}, err
			}
			return GPOSLookupSubtable{Type: lookupType, Single: &SinglePos{Coverage: cov, Values: []ValueRecord{v}, format: 1}}, nil
		}
		count := int(r.U16())
		values := make([]ValueRecord, count)
		for i := range values {
			values[i] = parseValueRecord(r, data, base, vf)
		}
		if r.Err() != nil {
			return GPOSLookupSubtable{}, r.Err()
		}
		cov, err := ParseCoverage(data, base+int(covOff))
		if err != nil {
			return GPOSLookupSubtable{}, err
		}
		return GPOSLookupSubtable{Type: lookupType, Single: &SinglePos{Coverage: cov, Values: values, format: 2}}, nil

	case GPOSPair:
		if format == 1 {
			covOff := r.U16()
			vf1 := ValueFormat(r.U16())
			vf2 := ValueFormat(r.U16())
			setCount := int(r.U16())
			setOffs := make([]uint16, setCount)
			for i := range setOffs {
				setOffs[i] = r.U16()
			}
			if r.Err() != nil {
				return GPOSLookupSubtable{}, r.Err()
			}
			cov, err := ParseCoverage(data, base+int(covOff))
			if err != nil {
				return GPOSLookupSubtable{}, err
			}
			sets := make([][]PairValueRecord, setCount)
			for i, off := range setOffs {
				sr := ot.NewLoader(data)
				sr.Seek(base + int(off))
				n := int(sr.U16())
				recs := make([]PairValueRecord, n)
				for j := range recs {
					second := sr.U16()
					v1 := parseValueRecord(sr, data, base, vf1)
					v2 := parseValueRecord(sr, data, base, vf2)
					recs[j] = PairValueRecord{SecondGlyph: second, Value1: v1, Value2: v2}
				}
				if sr.Err() != nil {
					return GPOSLookupSubtable{}, sr.Err()
				}
				sets[i] = recs
			}
			return GPOSLookupSubtable{Type: lookupType, Pair: &PairPos{Format: 1, Coverage: cov, PairSets: sets}}, nil
		}
		covOff := r.U16()
		vf1 := ValueFormat(r.U16())
		vf2 := ValueFormat(r.U16())
		cd1Off := r.U16()
		cd2Off := r.U16()
		class1Count := r.U16()
		class2Count := r.U16()
		if r.Err() != nil {
			return GPOSLookupSubtable{}, r.Err()
		}
		cov, err := ParseCoverage(data, base+int(covOff))
		if err != nil {
			return GPOSLookupSubtable{}, err
		}
		cd1, err := ParseClassDef(data, base+int(cd1Off))
		if err != nil {
			return GPOSLookupSubtable{}, err
		}
		cd2, err := ParseClassDef(data, base+int(cd2Off))
		if err != nil {
			return GPOSLookupSubtable{}, err
		}
		total := int(class1Count) * int(class2Count)
		matrix := make([][2]ValueRecord, total)
		for i := range matrix {
			matrix[i][0] = parseValueRecord(r, data, base, vf1)
			matrix[i][1] = parseValueRecord(r, data, base, vf2)
		}
		if r.Err() != nil {
			return GPOSLookupSubtable{}, r.Err()
		}
		return GPOSLookupSubtable{Type: lookupType, Pair: &PairPos{
			Format: 2, Coverage: cov, ClassDef1: cd1, ClassDef2: cd2,
			Class1Count: class1Count, Class2Count: class2Count, ClassValues: matrix,
		}}, nil

	case GPOSCursive:
		covOff := r.U16()
		count := int(r.U16())
		type raw struct{ entry, exit uint16 }
		raws := make([]raw, count)
		for i := range raws {
			raws[i] = raw{entry: r.U16(), exit: r.U16()}
		}
		if r.Err() != nil {
			return GPOSLookupSubtable{}, r.Err()
		}
		cov, err := ParseCoverage(data, base+int(covOff))
		if err != nil {
			return GPOSLookupSubtable{}, err
		}
		entries := make([]struct{ Entry, Exit *Anchor }, count)
		for i, rw := range raws {
			entries[i].Entry, err = parseAnchor(data, base+int(rw.entry))
			if err != nil {
				return GPOSLookupSubtable{}, err
			}
			entries[i].Exit, err = parseAnchor(data, base+int(rw.exit))
			if err != nil {
				return GPOSLookupSubtable{}, err
			}
		}
		return GPOSLookupSubtable{Type: lookupType, Cursive: &CursivePos{Coverage: cov, EntryExit: entries}}, nil

	case GPOSMarkToBase:
		markCovOff := r.U16()
		baseCovOff := r.U16()
		classCount := int(r.U16())
		markArrayOff := r.U16()
		baseArrayOff := r.U16()
		if r.Err() != nil {
			return GPOSLookupSubtable{}, r.Err()
		}
		markCov, err := ParseCoverage(data, base+int(markCovOff))
		if err != nil {
			return GPOSLookupSubtable{}, err
		}
		baseCov, err := ParseCoverage(data, base+int(baseCovOff))
		if err != nil {
			return GPOSLookupSubtable{}, err
		}
		markArray, err := parseMarkArray(data, base+int(markArrayOff))
		if err != nil {
			return GPOSLookupSubtable{}, err
		}
		baseAnchors, err := parseAnchorMatrix(data, base+int(baseArrayOff), classCount)
		if err != nil {
			return GPOSLookupSubtable{}, err
		}
		return GPOSLookupSubtable{Type: lookupType, MarkBase: &MarkBasePos{
			MarkCoverage: markCov, BaseCoverage: baseCov, MarkArray: markArray, BaseAnchors: baseAnchors,
		}}, nil

	case GPOSMarkToMark:
		mark1CovOff := r.U16()
		mark2CovOff := r.U16()
		classCount := int(r.U16())
		mark1ArrayOff := r.U16()
		mark2ArrayOff := r.U16()
		if r.Err() != nil {
			return GPOSLookupSubtable{}, r.Err()
		}
		mark1Cov, err := ParseCoverage(data, base+int(mark1CovOff))
		if err != nil {
			return GPOSLookupSubtable{}, err
		}
		mark2Cov, err := ParseCoverage(data, base+int(mark2CovOff))
		if err != nil {
			return GPOSLookupSubtable{}, err
		}
		mark1Array, err := parseMarkArray(data, base+int(mark1ArrayOff))
		if err != nil {
			return GPOSLookupSubtable{}, err
		}
		mark2Anchors, err := parseAnchorMatrix(data, base+int(mark2ArrayOff), classCount)
		if err != nil {
			return GPOSLookupSubtable{}, err
		}
		return GPOSLookupSubtable{Type: lookupType, MarkMark: &MarkMarkPos{
			Mark1Coverage: mark1Cov, Mark2Coverage: mark2Cov, Mark1Array: mark1Array, Mark2Anchors: mark2Anchors,
		}}, nil

	case GPOSMarkToLigature:
		markCovOff := r.U16()
		ligCovOff := r.U16()
		classCount := int(r.U16())
		markArrayOff := r.U16()
		ligArrayOff := r.U16()
		if r.Err() != nil {
			return GPOSLookupSubtable{}, r.Err()
		}
		markCov, err := ParseCoverage(data, base+int(markCovOff))
		if err != nil {
			return GPOSLookupSubtable{}, err
		}
		ligCov, err := ParseCoverage(data, base+int(ligCovOff))
		if err != nil {
			return GPOSLookupSubtable{}, err
		}
		markArray, err := parseMarkArray(data, base+int(markArrayOff))
		if err != nil {
			return GPOSLookupSubtable{}, err
		}
		lr := ot.NewLoader(data)
		lr.Seek(base + int(ligArrayOff))
		ligCount := int(lr.U16())
		ligAttachOffs := make([]uint16, ligCount)
		for i := range ligAttachOffs {
			ligAttachOffs[i] = lr.U16()
		}
		if lr.Err() != nil {
			return GPOSLookupSubtable{}, lr.Err()
		}
		ligAnchors := make([][][]*Anchor, ligCount)
		for i, attOff := range ligAttachOffs {
			comps, err := parseAnchorMatrix(data, base+int(ligArrayOff)+int(attOff), classCount)
			if err != nil {
				return GPOSLookupSubtable{}, err
			}
			ligAnchors[i] = comps
		}
		return GPOSLookupSubtable{Type: lookupType, MarkLig: &MarkLigPos{
			MarkCoverage: markCov, LigatureCoverage: ligCov, MarkArray: markArray, LigatureAnchors: ligAnchors,
		}}, nil

	case GPOSContext:
		ctx, err := parseSequenceContext(data, base, int(format))
		if err != nil {
			return GPOSLookupSubtable{}, err
		}
		return GPOSLookupSubtable{Type: lookupType, Context: &ctx}, nil

	case GPOSChainingContext:
		ctx, err := parseChainedSequenceContext(data, base, int(format))
		if err != nil {
			return GPOSLookupSubtable{}, err
		}
		return GPOSLookupSubtable{Type: lookupType, Chaining: &ctx}, nil
	}
	return GPOSLookupSubtable{}, fmt.Errorf("tables: %w: gpos lookup type %d", ErrUnsupportedFormat, lookupType)
}

// Cov is the GPOS counterpart of GSUBLookupSubtable.Cov: the subtable's
// primary Coverage table, used to digest/skip glyphs that cannot possibly
// match before walking the subtable's full match logic.
func (s GPOSLookupSubtable) Cov() Coverage {
	switch {
	case s.Single != nil:
		return s.Single.Coverage
	case s.Pair != nil:
		return s.Pair.Coverage
	case s.Cursive != nil:
		return s.Cursive.Coverage
	case s.MarkBase != nil:
		return s.MarkBase.MarkCoverage
	case s.MarkLig != nil:
		return s.MarkLig.MarkCoverage
	case s.MarkMark != nil:
		return s.MarkMark.Mark1Coverage
	case s.Context != nil:
		return s.Context.Coverage
	case s.Chaining != nil:
		return s.Chaining.Coverage
	default:
		return nil
	}
}

// GPOSLookup is the GPOS counterpart of GSUBLookup: the per-subtable view
// the engine applies, as opposed to font.GPOSLookup's whole-lookup view.
type GPOSLookup = GPOSLookupSubtable

// parseAnchorMatrix decodes a BaseArray/Mark2Array/ComponentRecord table: a
// count followed by count*classCount anchor offsets, row-major.
func parseAnchorMatrix(data []byte, base int, classCount int) ([][]*Anchor, error) {
	r := ot.NewLoader(data)
	r.Seek(base)
	count := int(r.U16())
	offs := make([]uint16, count*classCount)
	for i := range offs {
		offs[i] = r.U16()
	}
	if r.Err() != nil {
		return nil, r.Err()
	}
	rows := make([][]*Anchor, count)
	for i := 0; i < count; i++ {
		row := make([]*Anchor, classCount)
		for c := 0; c < classCount; c++ {
			off := offs[i*classCount+c]
			if off == 0 {
				continue
			}
			a, err := parseAnchor(data, base+int(off))
			if err != nil {
				return nil, err
			}
			row[c] = a
		}
		rows[i] = row
	}
	return rows, nil
}
