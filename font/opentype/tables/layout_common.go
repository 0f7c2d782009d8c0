package tables

import (
	"fmt"

	ot "github.com/wiedymi/otshape/font/opentype"
)

// LangSys is one language-system record of a Script table: a required
// feature index (0xFFFF if none) plus the feature indices it enables.
type LangSys struct {
	RequiredFeatureIndex uint16
	FeatureIndices       []uint16
}

// LangSysRecord pairs a LangSys with its 4-byte tag.
type LangSysRecord struct {
	Tag     Tag
	LangSys LangSys
}

// Script is one ScriptList entry: a default LangSys plus per-language
// overrides.
type Script struct {
	DefaultLangSys *LangSys
	LangSysRecords []LangSysRecord
}

// ScriptRecord pairs a Script with its tag.
type ScriptRecord struct {
	Tag    Tag
	Script Script
}

// ScriptList is the parsed GSUB/GPOS ScriptList.
type ScriptList struct {
	Records []ScriptRecord
}

// FindScript returns the Script for tag, if present.
func (s ScriptList) FindScript(tag Tag) (Script, bool) {
	for _, r := range s.Records {
		if r.Tag == tag {
			return r.Script, true
		}
	}
	return Script{}, false
}

// FeatureRecord pairs a Feature with its tag; features are not de-duplicated
// by tag (a tag may occur more than once, distinguished by FeatureParams or
// by which scripts/languages reference which index).
type FeatureRecord struct {
	Tag     Tag
	Feature Feature
}

// Feature is one FeatureList entry.
type Feature struct {
	FeatureParamsOffset uint16
	LookupListIndices   []uint16
}

// FeatureList is the parsed GSUB/GPOS FeatureList.
type FeatureList struct {
	Records []FeatureRecord
}

// SequenceLookupRecord applies a nested lookup at a given input sequence
// position (§4.I context lookups).
type SequenceLookupRecord struct {
	SequenceIndex   uint16
	LookupListIndex uint16
}

// SequenceRuleSet is one rule set of a SequenceContext: per Coverage index
// in format 1, per class value in format 2.
type SequenceRuleSet struct {
	Rules []SequenceRule
}

// SequenceRule is one context rule: an input glyph/class sequence (the
// first position is implicit, matched by Coverage/ClassDef) plus the
// lookups it invokes.
type SequenceRule struct {
	InputSequence []uint16 // glyph IDs (format 1) or class values (format 2)
	SeqLookups    []SequenceLookupRecord
}

// SequenceContext is the common shape of GSUB lookup type 5 and GPOS lookup
// type 7 (Sequence Context), across its three subtable formats.
type SequenceContext struct {
	Format int

	// format 1: glyph-specific rule sets, indexed by Coverage index
	Coverage  Coverage
	RuleSets  []SequenceRuleSet // format 1

	// format 2
	ClassDef  ClassDef
	ClassSets []SequenceRuleSet // format 2, indexed by class value

	// format 3: a single literal rule, one coverage per position
	Coverages  []Coverage
	SeqLookups []SequenceLookupRecord
}

// ChainedSequenceRule is one chaining-context rule (§4.I chaining context):
// backtrack is stored in the order it appears in the font (reversed relative
// to match direction), input/lookahead in reading order.
type ChainedSequenceRule struct {
	Backtrack  []uint16
	Input      []uint16
	Lookahead  []uint16
	SeqLookups []SequenceLookupRecord
}

type ChainedSequenceRuleSet struct {
	Rules []ChainedSequenceRule
}

// ChainedSequenceContext is the common shape of GSUB lookup type 6 and GPOS
// lookup type 8 (Chained Sequence Context / Chaining Context), across its
// three formats.
type ChainedSequenceContext struct {
	Format int

	Coverage Coverage
	RuleSets []ChainedSequenceRuleSet // format 1

	BacktrackClassDef ClassDef
	InputClassDef     ClassDef
	LookaheadClassDef ClassDef
	ClassSets         []ChainedSequenceRuleSet // format 2

	BacktrackCoverages []Coverage
	InputCoverages     []Coverage
	LookaheadCoverages []Coverage
	SeqLookups         []ChainedSequenceRule // format 3, single literal rule (reuse Input/SeqLookups fields)
}

// ParseScriptList decodes a ScriptList at offset base within data.
func ParseScriptList(data []byte, base int) (ScriptList, error) {
	r := ot.NewLoader(data)
	r.Seek(base)
	count := int(r.U16())
	recs := make([]ScriptRecord, 0, count)
	type raw struct {
		tag Tag
		off uint16
	}
	raws := make([]raw, count)
	for i := range raws {
		raws[i] = raw{tag: r.Tag(), off: r.U16()}
	}
	if r.Err() != nil {
		return ScriptList{}, r.Err()
	}
	for _, rw := range raws {
		sc, err := parseScript(data, base+int(rw.off))
		if err != nil {
			return ScriptList{}, fmt.Errorf("tables: script %s: %w", rw.tag, err)
		}
		recs = append(recs, ScriptRecord{Tag: rw.tag, Script: sc})
	}
	return ScriptList{Records: recs}, nil
}

func parseScript(data []byte, base int) (Script, error) {
	r := ot.NewLoader(data)
	r.Seek(base)
	defOff := r.U16()
	langCount := int(r.U16())
	type raw struct {
		tag Tag
		off uint16
	}
	raws := make([]raw, langCount)
	for i := range raws {
		raws[i] = raw{tag: r.Tag(), off: r.U16()}
	}
	if r.Err() != nil {
		return Script{}, r.Err()
	}
	var sc Script
	if defOff != 0 {
		ls, err := parseLangSys(data, base+int(defOff))
		if err != nil {
			return Script{}, err
		}
		sc.DefaultLangSys = &ls
	}
	for _, rw := range raws {
		ls, err := parseLangSys(data, base+int(rw.off))
		if err != nil {
			return Script{}, err
		}
		sc.LangSysRecords = append(sc.LangSysRecords, LangSysRecord{Tag: rw.tag, LangSys: ls})
	}
	return sc, nil
}

func parseLangSys(data []byte, base int) (LangSys, error) {
	r := ot.NewLoader(data)
	r.Seek(base)
	r.U16() // lookupOrder, reserved (NULL)
	required := r.U16()
	count := int(r.U16())
	idx := make([]uint16, count)
	for i := range idx {
		idx[i] = r.U16()
	}
	if r.Err() != nil {
		return LangSys{}, r.Err()
	}
	return LangSys{RequiredFeatureIndex: required, FeatureIndices: idx}, nil
}

// ParseFeatureList decodes a FeatureList at offset base. FeatureParams
// (e.g. for 'size', 'cv01'..'cv99') are kept unparsed: the shaping core has
// no use for them and callers needing them can reparse FeatureParamsOffset
// directly against data.
func ParseFeatureList(data []byte, base int) (FeatureList, error) {
	r := ot.NewLoader(data)
	r.Seek(base)
	count := int(r.U16())
	type raw struct {
		tag Tag
		off uint16
	}
	raws := make([]raw, count)
	for i := range raws {
		raws[i] = raw{tag: r.Tag(), off: r.U16()}
	}
	if r.Err() != nil {
		return FeatureList{}, r.Err()
	}
	recs := make([]FeatureRecord, 0, count)
	for _, rw := range raws {
		fr := ot.NewLoader(data)
		fr.Seek(base + int(rw.off))
		paramsOff := fr.U16()
		lcount := int(fr.U16())
		lidx := make([]uint16, lcount)
		for i := range lidx {
			lidx[i] = fr.U16()
		}
		if fr.Err() != nil {
			return FeatureList{}, fr.Err()
		}
		recs = append(recs, FeatureRecord{Tag: rw.tag, Feature: Feature{FeatureParamsOffset: paramsOff, LookupListIndices: lidx}})
	}
	return FeatureList{Records: recs}, nil
}
