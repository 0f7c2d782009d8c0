package tables

import (
	"fmt"

	ot "github.com/wiedymi/otshape/font/opentype"
)

// GSUBLookupType enumerates the eight GSUB subtable types (§4.I).
type GSUBLookupType uint16

const (
	GSUBSingle GSUBLookupType = iota + 1
	GSUBMultiple
	GSUBAlternate
	GSUBLigature
	GSUBContext
	GSUBChainingContext
	GSUBExtension
	GSUBReverseChaining
)

// SingleSubst is GSUB lookup type 1: one-for-one glyph replacement.
type SingleSubst struct {
	Coverage    Coverage
	DeltaFormat1 int16  // format 1: constant glyph-id delta
	Substitutes []GlyphID // format 2: explicit per-coverage-index substitute
	format      uint16
}

func (s SingleSubst) Format() uint16 { return s.format }

func (s SingleSubst) Substitute(gid GlyphID) (GlyphID, bool) {
	idx, ok := s.Coverage.Index(gid)
	if !ok {
		return 0, false
	}
	if s.format == 1 {
		return GlyphID(int32(gid) + int32(s.DeltaFormat1)), true
	}
	if idx >= len(s.Substitutes) {
		return 0, false
	}
	return s.Substitutes[idx], true
}

// MultipleSubst is GSUB lookup type 2: one glyph expands to a sequence.
type MultipleSubst struct {
	Coverage  Coverage
	Sequences [][]GlyphID
}

func (s MultipleSubst) Sequence(gid GlyphID) ([]GlyphID, bool) {
	idx, ok := s.Coverage.Index(gid)
	if !ok || idx >= len(s.Sequences) {
		return nil, false
	}
	return s.Sequences[idx], true
}

// AlternateSubst is GSUB lookup type 3: a glyph has several alternates, one
// of which is picked by feature parameter (e.g. 'rand', cvXX, aaltN).
type AlternateSubst struct {
	Coverage   Coverage
	Alternates [][]GlyphID
}

func (s AlternateSubst) Alternates_(gid GlyphID) ([]GlyphID, bool) {
	idx, ok := s.Coverage.Index(gid)
	if !ok || idx >= len(s.Alternates) {
		return nil, false
	}
	return s.Alternates[idx], true
}

// Ligature is one ligature entry: the tail glyphs to match (the first glyph
// is implicit, matched by Coverage) and the resulting ligature glyph.
type Ligature struct {
	LigatureGlyph  GlyphID
	ComponentGlyphs []GlyphID
}

// LigatureSubst is GSUB lookup type 4.
type LigatureSubst struct {
	Coverage   Coverage
	LigatureSets [][]Ligature
}

func (s LigatureSubst) Set(gid GlyphID) ([]Ligature, bool) {
	idx, ok := s.Coverage.Index(gid)
	if !ok || idx >= len(s.LigatureSets) {
		return nil, false
	}
	return s.LigatureSets[idx], true
}

// ReverseChainSingleSubst is GSUB lookup type 8: reverse-scanned,
// one-for-one substitution with backtrack/lookahead context (used almost
// exclusively for Arabic/Syriac contextual fallback forms applied right to
// left).
type ReverseChainSingleSubst struct {
	Coverage           Coverage
	BacktrackCoverages []Coverage
	LookaheadCoverages []Coverage
	Substitutes        []GlyphID
}

// GSUBLookupSubtable is the decoded payload of one GSUB subtable, tagged by
// its LookupType; exactly one of the typed fields is populated.
type GSUBLookupSubtable struct {
	Type GSUBLookupType

	Single      *SingleSubst
	Multiple    *MultipleSubst
	Alternate   *AlternateSubst
	Ligature    *LigatureSubst
	Context     *SequenceContext
	Chaining    *ChainedSequenceContext
	Reverse     *ReverseChainSingleSubst
}

// ParseGSUBSubtable decodes one GSUB subtable of the given lookup type at
// offset base. Extension (type 7) is resolved transparently: the returned
// subtable carries the *extended* lookup's own type.
func ParseGSUBSubtable(data []byte, base int, lookupType GSUBLookupType) (GSUBLookupSubtable, error) {
	r := ot.NewLoader(data)
	r.Seek(base)
	format := r.U16()

	switch lookupType {
	case GSUBExtension:
		extType := r.U16()
		off := r.U32()
		if r.Err() != nil {
			return GSUBLookupSubtable{}, r.Err()
		}
		return ParseGSUBSubtable(data, base+int(off), GSUBLookupType(extType))

	case GSUBSingle:
		covOff := r.U16()
		cov, err := ParseCoverage(data, base+int(covOff))
		if err != nil {
			return GSUBLookupSubtable{}, err
		}
		if format == 1 {
			delta := r.I16()
			if r.Err() != nil {
				return GSUBLookupSubtable{}, r.Err()
			}
			return GSUBLookupSubtable{Type: lookupType, Single: &SingleSubst{Coverage: cov, DeltaFormat1: delta, format: 1}}, nil
		}
		count := int(r.U16())
		subs := make([]GlyphID, count)
		for i := range subs {
			subs[i] = r.U16()
		}
		if r.Err() != nil {
			return GSUBLookupSubtable{}, r.Err()
		}
		return GSUBLookupSubtable{Type: lookupType, Single: &SingleSubst{Coverage: cov, Substitutes: subs, format: 2}}, nil

	case GSUBMultiple:
		covOff := r.U16()
		seqCount := int(r.U16())
		seqOffs := make([]uint16, seqCount)
		for i := range seqOffs {
			seqOffs[i] = r.U16()
		}
		if r.Err() != nil {
			return GSUBLookupSubtable{}, r.Err()
		}
		cov, err := ParseCoverage(data, base+int(covOff))
		if err != nil {
			return GSUBLookupSubtable{}, err
		}
		seqs := make([][]GlyphID, seqCount)
		for i, off := range seqOffs {
			sr := ot.NewLoader(data)
			sr.Seek(base + int(off))
			n := int(sr.U16())
			g := make([]GlyphID, n)
			for j := range g {
				g[j] = sr.U16()
			}
			if sr.Err() != nil {
				return GSUBLookupSubtable{}, sr.Err()
			}
			seqs[i] = g
		}
		return GSUBLookupSubtable{Type: lookupType, Multiple: &MultipleSubst{Coverage: cov, Sequences: seqs}}, nil

	case GSUBAlternate:
		covOff := r.U16()
		setCount := int(r.U16())
		setOffs := make([]uint16, setCount)
		for i := range setOffs {
			setOffs[i] = r.U16()
		}
		if r.Err() != nil {
			return GSUBLookupSubtable{}, r.Err()
		}
		cov, err := ParseCoverage(data, base+int(covOff))
		if err != nil {
			return GSUBLookupSubtable{}, err
		}
		alts := make([][]GlyphID, setCount)
		for i, off := range setOffs {
			sr := ot.NewLoader(data)
			sr.Seek(base + int(off))
			n := int(sr.U16())
			g := make([]GlyphID, n)
			for j := range g {
				g[j] = sr.U16()
			}
			if sr.Err() != nil {
				return GSUBLookupSubtable{}, sr.Err()
			}
			alts[i] = g
		}
		return GSUBLookupSubtable{Type: lookupType, Alternate: &AlternateSubst{Coverage: cov, Alternates: alts}}, nil

	case GSUBLigature:
		covOff := r.U16()
		setCount := int(r.U16())
		setOffs := make([]uint16, setCount)
		for i := range setOffs {
			setOffs[i] = r.U16()
		}
		if r.Err() != nil {
			return GSUBLookupSubtable{}, r.Err()
		}
		cov, err := ParseCoverage(data, base+int(covOff))
		if err != nil {
			return GSUBLookupSubtable{}, err
		}
		sets := make([][]Ligature, setCount)
		for i, setOff := range setOffs {
			sr := ot.NewLoader(data)
			sr.Seek(base + int(setOff))
			ligCount := int(sr.U16())
			ligOffs := make([]uint16, ligCount)
			for j := range ligOffs {
				ligOffs[j] = sr.U16()
			}
			if sr.Err() != nil {
				return GSUBLookupSubtable{}, sr.Err()
			}
			ligs := make([]Ligature, ligCount)
			for j, ligOff := range ligOffs {
				lr := ot.NewLoader(data)
				lr.Seek(base + int(setOff) + int(ligOff))
				ligGlyph := lr.U16()
				compCount := int(lr.U16())
				comps := make([]GlyphID, 0, compCount-1)
				for k := 1; k < compCount; k++ {
					comps = append(comps, lr.U16())
				}
				if lr.Err() != nil {
					return GSUBLookupSubtable{}, lr.Err()
				}
				ligs[j] = Ligature{LigatureGlyph: ligGlyph, ComponentGlyphs: comps}
			}
			sets[i] = ligs
		}
		return GSUBLookupSubtable{Type: lookupType, Ligature: &LigatureSubst{Coverage: cov, LigatureSets: sets}}, nil

	case GSUBContext:
		ctx, err := parseSequenceContext(data, base, int(format))
		if err != nil {
			return GSUBLookupSubtable{}, err
		}
		return GSUBLookupSubtable{Type: lookupType, Context: &ctx}, nil

	case GSUBChainingContext:
		ctx, err := parseChainedSequenceContext(data, base, int(format))
		if err != nil {
			return GSUBLookupSubtable{}, err
		}
		return GSUBLookupSubtable{Type: lookupType, Chaining: &ctx}, nil

	case GSUBReverseChaining:
		covOff := r.U16()
		backCount := int(r.U16())
		backOffs := make([]uint16, backCount)
		for i := range backOffs {
			backOffs[i] = r.U16()
		}
		aheadCount := int(r.U16())
		aheadOffs := make([]uint16, aheadCount)
		for i := range aheadOffs {
			aheadOffs[i] = r.U16()
		}
		glyphCount := int(r.U16())
		subs := make([]GlyphID, glyphCount)
		for i := range subs {
			subs[i] = r.U16()
		}
		if r.Err() != nil {
			return GSUBLookupSubtable{}, r.Err()
		}
		cov, err := ParseCoverage(data, base+int(covOff))
		if err != nil {
			return GSUBLookupSubtable{}, err
		}
		back := make([]Coverage, backCount)
		for i, off := range backOffs {
			back[i], err = ParseCoverage(data, base+int(off))
			if err != nil {
				return GSUBLookupSubtable{}, err
			}
		}
		ahead := make([]Coverage, aheadCount)
		for i, off := range aheadOffs {
			ahead[i], err = ParseCoverage(data, base+int(off))
			if err != nil {
				return GSUBLookupSubtable{}, err
			}
		}
		return GSUBLookupSubtable{Type: lookupType, Reverse: &ReverseChainSingleSubst{
			Coverage: cov, BacktrackCoverages: back, LookaheadCoverages: ahead, Substitutes: subs,
		}}, nil
	}
	return GSUBLookupSubtable{}, fmt.Errorf("tables: %w: gsub lookup type %d", ErrUnsupportedFormat, lookupType)
}

// Cov returns the subtable's primary Coverage table, the one a caller
// digests to decide whether a glyph might match this subtable at all
// (§4.I skippingIterator / lookup accelerator).
func (s GSUBLookupSubtable) Cov() Coverage {
	switch {
	case s.Single != nil:
		return s.Single.Coverage
	case s.Multiple != nil:
		return s.Multiple.Coverage
	case s.Alternate != nil:
		return s.Alternate.Coverage
	case s.Ligature != nil:
		return s.Ligature.Coverage
	case s.Context != nil:
		return s.Context.Coverage
	case s.Chaining != nil:
		return s.Chaining.Coverage
	case s.Reverse != nil:
		return s.Reverse.Coverage
	default:
		return nil
	}
}

// GSUBLookup is the per-subtable view the shaping engine applies: one
// decoded subtable plus the lookup type that selects how to apply it. The
// whole-lookup aggregate (type, flags, every subtable) is font.GSUBLookup;
// this alias lets the engine's per-subtable dispatch code name the subtable
// type the way it names whole lookups, since both are "a GSUB lookup" at
// the grain each piece of code cares about.
type GSUBLookup = GSUBLookupSubtable

// parseSequenceContext and parseChainedSequenceContext are shared between
// GSUB (types 5/6) and GPOS (types 7/8): the binary layout is identical.
func parseSequenceContext(data []byte, base, format int) (SequenceContext, error) {
	r := ot.NewLoader(data)
	r.Seek(base + 2) // skip format, already consumed by caller's peek
	switch format {
	case 1:
		covOff := r.U16()
		setCount := int(r.U16())
		setOffs := make([]uint16, setCount)
		for i := range setOffs {
			setOffs[i] = r.U16()
		}
		if r.Err() != nil {
			return SequenceContext{}, r.Err()
		}
		cov, err := ParseCoverage(data, base+int(covOff))
		if err != nil {
			return SequenceContext{}, err
		}
		sets, err := parseSequenceRuleSets(data, base, setOffs)
		if err != nil {
			return SequenceContext{}, err
		}
		return SequenceContext{Format: 1, Coverage: cov, RuleSets: sets}, nil
	case 2:
		covOff := r.U16()
		classDefOff := r.U16()
		setCount := int(r.U16())
		setOffs := make([]uint16, setCount)
		for i := range setOffs {
			setOffs[i] = r.U16()
		}
		if r.Err() != nil {
			return SequenceContext{}, r.Err()
		}
		cov, err := ParseCoverage(data, base+int(covOff))
		if err != nil {
			return SequenceContext{}, err
		}
		cd, err := ParseClassDef(data, base+int(classDefOff))
		if err != nil {
			return SequenceContext{}, err
		}
		sets, err := parseSequenceRuleSets(data, base, setOffs)
		if err != nil {
			return SequenceContext{}, err
		}
		return SequenceContext{Format: 2, Coverage: cov, ClassDef: cd, ClassSets: sets}, nil
	case 3:
		glyphCount := int(r.U16())
		seqLookupCount := int(r.U16())
		covOffs := make([]uint16, glyphCount)
		for i := range covOffs {
			covOffs[i] = r.U16()
		}
		recs := make([]SequenceLookupRecord, seqLookupCount)
		for i := range recs {
			recs[i] = SequenceLookupRecord{SequenceIndex: r.U16(), LookupListIndex: r.U16()}
		}
		if r.Err() != nil {
			return SequenceContext{}, r.Err()
		}
		covs := make([]Coverage, glyphCount)
		var err error
		for i, off := range covOffs {
			covs[i], err = ParseCoverage(data, base+int(off))
			if err != nil {
				return SequenceContext{}, err
			}
		}
		return SequenceContext{Format: 3, Coverages: covs, SeqLookups: recs}, nil
	}
	return SequenceContext{}, fmt.Errorf("tables: %w: sequence context format %d", ErrUnsupportedFormat, format)
}

func parseSequenceRuleSets(data []byte, base int, offs []uint16) ([]SequenceRuleSet, error) {
	sets := make([]SequenceRuleSet, len(offs))
	for i, off := range offs {
		if off == 0 {
			continue
		}
		sr := ot.NewLoader(data)
		sr.Seek(base + int(off))
		ruleCount := int(sr.U16())
		ruleOffs := make([]uint16, ruleCount)
		for j := range ruleOffs {
			ruleOffs[j] = sr.U16()
		}
		if sr.Err() != nil {
			return nil, sr.Err()
		}
		rules := make([]SequenceRule, ruleCount)
		for j, ruleOff := range ruleOffs {
			rr := ot.NewLoader(data)
			rr.Seek(base + int(off) + int(ruleOff))
			glyphCount := int(rr.U16())
			seqLookupCount := int(rr.U16())
			input := make([]uint16, 0, glyphCount-1)
			for k := 1; k < glyphCount; k++ {
				input = append(input, rr.U16())
			}
			recs := make([]SequenceLookupRecord, seqLookupCount)
			for k := range recs {
				recs[k] = SequenceLookupRecord{SequenceIndex: rr.U16(), LookupListIndex: rr.U16()}
			}
			if rr.Err() != nil {
				return nil, rr.Err()
			}
			rules[j] = SequenceRule{InputSequence: input, SeqLookups: recs}
		}
		sets[i] = SequenceRuleSet{Rules: rules}
	}
	return sets, nil
}

func parseChainedSequenceContext(data []byte, base, format int) (ChainedSequenceContext, error) {
	r := ot.NewLoader(data)
	r.Seek(base + 2)
	switch format {
	case 1:
		covOff := r.U16()
		setCount := int(r.U16())
		setOffs := make([]uint16, setCount)
		for i := range setOffs {
			setOffs[i] = r.U16()
		}
		if r.Err() != nil {
			return ChainedSequenceContext{}, r.Err()
		}
		cov, err := ParseCoverage(data, base+int(covOff))
		if err != nil {
			return ChainedSequenceContext{}, err
		}
		sets, err := parseChainedRuleSets(data, base, setOffs)
		if err != nil {
			return ChainedSequenceContext{}, err
		}
		return ChainedSequenceContext{Format: 1, Coverage: cov, RuleSets: sets}, nil
	case 2:
		covOff := r.U16()
		backClassOff := r.U16()
		inClassOff := r.U16()
		aheadClassOff := r.U16()
		setCount := int(r.U16())
		setOffs := make([]uint16, setCount)
		for i := range setOffs {
			setOffs[i] = r.U16()
		}
		if r.Err() != nil {
			return ChainedSequenceContext{}, r.Err()
		}
		cov, err := ParseCoverage(data, base+int(covOff))
		if err != nil {
			return ChainedSequenceContext{}, err
		}
		backCD, err := ParseClassDef(data, base+int(backClassOff))
		if err != nil {
			return ChainedSequenceContext{}, err
		}
		inCD, err := ParseClassDef(data, base+int(inClassOff))
		if err != nil {
			return ChainedSequenceContext{}, err
		}
		aheadCD, err := ParseClassDef(data, base+int(aheadClassOff))
		if err != nil {
			return ChainedSequenceContext{}, err
		}
		sets, err := parseChainedRuleSets(data, base, setOffs)
		if err != nil {
			return ChainedSequenceContext{}, err
		}
		return ChainedSequenceContext{Format: 2, Coverage: cov, BacktrackClassDef: backCD, InputClassDef: inCD, LookaheadClassDef: aheadCD, ClassSets: sets}, nil
	case 3:
		backCount := int(r.U16())
		backOffs := make([]uint16, backCount)
		for i := range backOffs {
			backOffs[i] = r.U16()
		}
		inCount := int(r.U16())
		inOffs := make([]uint16, inCount)
		for i := range inOffs {
			inOffs[i] = r.U16()
		}
		aheadCount := int(r.U16())
		aheadOffs := make([]uint16, aheadCount)
		for i := range aheadOffs {
			aheadOffs[i] = r.U16()
		}
		seqLookupCount := int(r.U16())
		recs := make([]SequenceLookupRecord, seqLookupCount)
		for i := range recs {
			recs[i] = SequenceLookupRecord{SequenceIndex: r.U16(), LookupListIndex: r.U16()}
		}
		if r.Err() != nil {
			return ChainedSequenceContext{}, r.Err()
		}
		parse := func(offs []uint16) ([]Coverage, error) {
			cs := make([]Coverage, len(offs))
			for i, off := range offs {
				c, err := ParseCoverage(data, base+int(off))
				if err != nil {
					return nil, err
				}
				cs[i] = c
			}
			return cs, nil
		}
		back, err := parse(backOffs)
		if err != nil {
			return ChainedSequenceContext{}, err
		}
		in, err := parse(inOffs)
		if err != nil {
			return ChainedSequenceContext{}, err
		}
		ahead, err := parse(aheadOffs)
		if err != nil {
			return ChainedSequenceContext{}, err
		}
		return ChainedSequenceContext{
			Format: 3, BacktrackCoverages: back, InputCoverages: in, LookaheadCoverages: ahead,
			SeqLookups: []ChainedSequenceRule{{SeqLookups: recs}},
		}, nil
	}
	return ChainedSequenceContext{}, fmt.Errorf("tables: %w: chained sequence context format %d", ErrUnsupportedFormat, format)
}

func parseChainedRuleSets(data []byte, base int, offs []uint16) ([]ChainedSequenceRuleSet, error) {
	sets := make([]ChainedSequenceRuleSet, len(offs))
	for i, off := range offs {
		if off == 0 {
			continue
		}
		sr := ot.NewLoader(data)
		sr.Seek(base + int(off))
		ruleCount := int(sr.U16())
		ruleOffs := make([]uint16, ruleCount)
		for j := range ruleOffs {
			ruleOffs[j] = sr.U16()
		}
		if sr.Err() != nil {
			return nil, sr.Err()
		}
		rules := make([]ChainedSequenceRule, ruleCount)
		for j, ruleOff := range ruleOffs {
			rr := ot.NewLoader(data)
			rr.Seek(base + int(off) + int(ruleOff))
			backCount := int(rr.U16())
			back := make([]uint16, backCount)
			for k := range back {
				back[k] = rr.U16()
			}
			inCount := int(rr.U16())
			input := make([]uint16, 0, inCount-1)
			for k := 1; k < inCount; k++ {
				input = append(input, rr.U16())
			}
			aheadCount := int(rr.U16())
			ahead := make([]uint16, aheadCount)
			for k := range ahead {
				ahead[k] = rr.U16()
			}
			seqLookupCount := int(rr.U16())
			recs := make([]SequenceLookupRecord, seqLookupCount)
			for k := range recs {
				recs[k] = SequenceLookupRecord{SequenceIndex: rr.U16(), LookupListIndex: rr.U16()}
			}
			if rr.Err() != nil {
				return nil, rr.Err()
			}
			rules[j] = ChainedSequenceRule{Backtrack: back, Input: input, Lookahead: ahead, SeqLookups: recs}
		}
		sets[i] = ChainedSequenceRuleSet{Rules: rules}
	}
	return sets, nil
}
