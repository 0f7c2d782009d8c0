package font

import (
	ot "github.com/wiedymi/otshape/font/opentype"
	"github.com/wiedymi/otshape/font/opentype/tables"
)

// Layout is a resolved GSUB or GPOS layout table: its script/feature lists
// (§4.I/§4.J). Both GSUB and GPOS share this shape; only the lookup
// subtable decoders differ (tables.ParseGSUBSubtable vs
// tables.ParseGPOSSubtable), so the lookups themselves live on GSUBTable/
// GPOSTable rather than here.
type Layout struct {
	ScriptList  tables.ScriptList
	FeatureList tables.FeatureList
}

// UseMarkFilteringSet is the LookupFlag bit selecting a GDEF mark-filtering
// set instead of the coarse "skip all marks" behavior (§4.I skippingIterator).
const UseMarkFilteringSet = 0x0010

// LookupOptions packs a lookup's LookupFlag and, when UseMarkFilteringSet is
// set, its mark-filtering set index, into the single uint32 the shaping
// engine carries around as "lookup props" (§4.I skippingIterator: the low 16
// bits gate RightToLeft/IgnoreBaseGlyphs/IgnoreLigatures/IgnoreMarks/mark
// attachment type, the high 16 select a GDEF mark-glyph-set).
type LookupOptions struct {
	Flag             uint16
	MarkFilteringSet uint16
}

// Props packs the two fields the way the engine's lookupProps value expects
// them: flag in the low word, mark-filtering set in the high word.
func (o LookupOptions) Props() uint32 {
	return uint32(o.Flag) | uint32(o.MarkFilteringSet)<<16
}

// GSUBTable is a parsed `GSUB` table: its Layout plus the lookup list, kept
// separately from GPOSTable because GSUB and GPOS lookups decode to
// different subtable union types.
type GSUBTable struct {
	Layout  Layout
	Lookups []GSUBLookup
}

// GPOSTable is a parsed `GPOS` table, the GPOS counterpart of GSUBTable.
type GPOSTable struct {
	Layout  Layout
	Lookups []GPOSLookup
}

// GSUBLookup is one fully decoded GSUB lookup: its flag/type plus every
// subtable (Extension indirection already resolved).
type GSUBLookup struct {
	Type          tables.GSUBLookupType
	LookupOptions LookupOptions
	Subtables     []tables.GSUBLookupSubtable
}

// GPOSLookup is the GPOS counterpart of GSUBLookup.
type GPOSLookup struct {
	Type          tables.GPOSLookupType
	LookupOptions LookupOptions
	Subtables     []tables.GPOSLookupSubtable
}

// parseLayoutHeader decodes the common ScriptList/FeatureList/LookupList
// header shared by GSUB and GPOS, returning the absolute byte offset of
// each Lookup table for the caller to decode with its own subtable parser.
func parseLayoutHeader(data []byte, base int) (Layout, []int, error) {
	r := ot.NewLoader(data)
	r.Seek(base)
	r.U16() // majorVersion
	minor := r.U16()
	scriptListOff := r.U16()
	featureListOff := r.U16()
	lookupListOff := r.U16()
	if minor == 1 {
		r.U32() // featureVariationsOffset; feature variation substitution is out of scope
	}
	if r.Err() != nil {
		return Layout{}, nil, r.Err()
	}
	scripts, err := tables.ParseScriptList(data, base+int(scriptListOff))
	if err != nil {
		return Layout{}, nil, err
	}
	features, err := tables.ParseFeatureList(data, base+int(featureListOff))
	if err != nil {
		return Layout{}, nil, err
	}
	lr := ot.NewLoader(data)
	lr.Seek(base + int(lookupListOff))
	lookupCount := int(lr.U16())
	offs := make([]int, lookupCount)
	for i := range offs {
		offs[i] = base + int(lookupListOff) + int(lr.U16())
	}
	if lr.Err() != nil {
		return Layout{}, nil, lr.Err()
	}
	return Layout{ScriptList: scripts, FeatureList: features}, offs, nil
}

func parseLookupFlagAndSubtableOffsets(data []byte, base int) (lookupType, flag uint16, markFilteringSet uint16, subtableOffsets []int, err error) {
	r := ot.NewLoader(data)
	r.Seek(base)
	lookupType = r.U16()
	flag = r.U16()
	count := int(r.U16())
	rel := make([]uint16, count)
	for i := range rel {
		rel[i] = r.U16()
	}
	if flag&UseMarkFilteringSet != 0 {
		markFilteringSet = r.U16()
	}
	if r.Err() != nil {
		return 0, 0, 0, nil, r.Err()
	}
	subtableOffsets = make([]int, count)
	for i, o := range rel {
		subtableOffsets[i] = base + int(o)
	}
	return lookupType, flag, markFilteringSet, subtableOffsets, nil
}

// FindVariationIndex returns the FeatureVariations substitution index for
// coords, or -1. Cross-lookup variable-font feature substitution is out of
// scope, so this always reports "no substitution" — callers key their plan
// cache on it for call-site symmetry with variation-aware shapers.
func (t GSUBTable) FindVariationIndex(coords []VarCoord) int { return -1 }

// FindVariationIndex is the GPOS counterpart of GSUBTable.FindVariationIndex.
func (t GPOSTable) FindVariationIndex(coords []VarCoord) int { return -1 }

// ParseGSUB decodes a complete `GSUB` table.
func ParseGSUB(data []byte) (GSUBTable, error) {
	layout, lookupOffs, err := parseLayoutHeader(data, 0)
	if err != nil {
		return GSUBTable{}, err
	}
	lookups := make([]GSUBLookup, len(lookupOffs))
	for i, off := range lookupOffs {
		lt, flag, mfs, subOffs, err := parseLookupFlagAndSubtableOffsets(data, off)
		if err != nil {
			return GSUBTable{}, err
		}
		lk := GSUBLookup{Type: tables.GSUBLookupType(lt), LookupOptions: LookupOptions{Flag: flag, MarkFilteringSet: mfs}}
		for _, so := range subOffs {
			st, err := tables.ParseGSUBSubtable(data, so, lk.Type)
			if err != nil {
				return GSUBTable{}, err
			}
			lk.Subtables = append(lk.Subtables, st)
		}
		lookups[i] = lk
	}
	return GSUBTable{Layout: layout, Lookups: lookups}, nil
}

// ParseGPOS decodes a complete `GPOS` table.
func ParseGPOS(data []byte) (GPOSTable, error) {
	layout, lookupOffs, err := parseLayoutHeader(data, 0)
	if err != nil {
		return GPOSTable{}, err
	}
	lookups := make([]GPOSLookup, len(lookupOffs))
	for i, off := range lookupOffs {
		lt, flag, mfs, subOffs, err := parseLookupFlagAndSubtableOffsets(data, off)
		if err != nil {
			return GPOSTable{}, err
		}
		lk := GPOSLookup{Type: tables.GPOSLookupType(lt), LookupOptions: LookupOptions{Flag: flag, MarkFilteringSet: mfs}}
		for _, so := range subOffs {
			st, err := tables.ParseGPOSSubtable(data, so, lk.Type)
			if err != nil {
				return GPOSTable{}, err
			}
			lk.Subtables = append(lk.Subtables, st)
		}
		lookups[i] = lk
	}
	return GPOSTable{Layout: layout, Lookups: lookups}, nil
}
