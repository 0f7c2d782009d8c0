package harfbuzz

import (
	"github.com/wiedymi/otshape/font"
	"github.com/wiedymi/otshape/font/opentype/tables"
)

// ported from harfbuzz/src/hb-ot-layout-gsub-table.hh Copyright © 2007,2008,2009,2010  Red Hat, Inc.; 2010,2012  Google, Inc.  Behdad Esfahbod

var _ layoutLookup = lookupGSUB{}

// implements layoutLookup
type lookupGSUB font.GSUBLookup

func (l lookupGSUB) Props() uint32 { return l.LookupOptions.Props() }

func (l lookupGSUB) collectCoverage(dst *setDigest) {
	for _, table := range l.Subtables {
		dst.collectCoverage(table.Cov())
	}
}

func (l lookupGSUB) dispatchSubtables(ctx *getSubtablesContext) {
	for _, table := range l.Subtables {
		*ctx = append(*ctx, newGSUBApplicable(table))
	}
}

func (l lookupGSUB) dispatchApply(ctx *otApplyContext) bool {
	for _, table := range l.Subtables {
		if ctx.applyGSUB(table) {
			return true
		}
	}
	return false
}

func (l lookupGSUB) isReverse() bool {
	return l.Type == tables.GSUBReverseChaining
}

func applyRecurseGSUB(c *otApplyContext, lookupIndex uint16) bool {
	gsub := c.font.face.GSUB
	l := lookupGSUB(gsub.Lookups[lookupIndex])
	return c.applyRecurseLookup(lookupIndex, l)
}

// applyGSUB dispatches one GSUB subtable at the buffer's current position,
// returning true if it substituted something. Reverse-chaining single
// substitution is the one GSUB lookup type applied back to front (see
// lookupGSUB.isReverse and applyString); every other type is applied
// forward like GPOS.
func (c *otApplyContext) applyGSUB(table tables.GSUBLookup) bool {
	buffer := c.buffer
	glyphID := buffer.cur(0).Glyph

	switch {
	case table.Single != nil:
		sub, ok := table.Single.Substitute(gID(glyphID))
		if !ok {
			return false
		}
		c.replaceGlyph(GID(sub))
		buffer.nextGlyph()
		return true

	case table.Multiple != nil:
		return c.substituteMultiple(table.Multiple)

	case table.Alternate != nil:
		return c.substituteAlternate(table.Alternate)

	case table.Ligature != nil:
		set, ok := table.Ligature.Set(gID(glyphID))
		if !ok {
			return false
		}
		return c.applyLigatureSet(set)

	case table.Context != nil:
		index, ok := table.Context.Coverage.Index(gID(glyphID))
		if table.Context.Format == 1 && !ok {
			return false
		}
		return c.applyLookupContext(table.Context, index, glyphID)

	case table.Chaining != nil:
		index, ok := table.Chaining.Coverage.Index(gID(glyphID))
		if table.Chaining.Format == 1 && !ok {
			return false
		}
		return c.applyLookupChainedContext(table.Chaining, index, glyphID)

	case table.Reverse != nil:
		return c.applyReverseChainSingle(table.Reverse)
	}
	return false
}

// substituteMultiple implements GSUB lookup type 2: one glyph expands into a
// sequence of output glyphs (or, for an empty sequence — disallowed by spec
// but produced by some Indic fonts in the wild — is deleted outright).
func (c *otApplyContext) substituteMultiple(data *tables.MultipleSubst) bool {
	buffer := c.buffer
	glyphID := buffer.cur(0).Glyph

	seq, ok := data.Sequence(gID(glyphID))
	if !ok {
		return false
	}

	if len(seq) == 0 {
		buffer.deleteGlyph()
		return true
	}

	klass := buffer.cur(0).glyphProps & preserve
	for i, g := range seq {
		buffer.cur(0).setLigPropsForMark(0, uint8(i))
		buffer.outputGlyphForComponent(GID(g), klass)
	}
	buffer.skipGlyph()
	return true
}

// substituteAlternate implements GSUB lookup type 3: the first alternate of
// the set is used, or, when c.random is set (the "rand" feature), one
// picked at random. The feature's value does not select an alternate.
func (c *otApplyContext) substituteAlternate(data *tables.AlternateSubst) bool {
	buffer := c.buffer
	glyphID := buffer.cur(0).Glyph

	alternates, ok := data.Alternates_(gID(glyphID))
	if !ok || len(alternates) == 0 {
		return false
	}

	index := uint32(0)
	if c.random {
		index = c.randomNumber() % uint32(len(alternates))
	}
	c.replaceGlyph(GID(alternates[index]))
	buffer.nextGlyph()
	return true
}

// applyLigatureSet implements GSUB lookup type 4, trying each Ligature in
// turn until one matches the glyphs following the current position.
func (c *otApplyContext) applyLigatureSet(set []tables.Ligature) bool {
	buffer := c.buffer
	for _, lig := range set {
		var matchPositions [maxContextLength]int
		ok, matchEnd, totalComponentCount := c.matchInput(lig.ComponentGlyphs, matchGlyph, &matchPositions)
		if !ok {
			buffer.unsafeToConcat(buffer.idx, matchEnd)
			continue
		}
		buffer.unsafeToBreak(buffer.idx, matchEnd)
		c.ligateInput(len(lig.ComponentGlyphs)+1, matchPositions, matchEnd, gID(lig.LigatureGlyph), totalComponentCount)
		return true
	}
	return false
}

// applyReverseChainSingle implements GSUB lookup type 8: chaining context
// single substitution applied back to front so the backtrack/lookahead of
// earlier glyphs already reflects the substitutions made on later ones.
func (c *otApplyContext) applyReverseChainSingle(data *tables.ReverseChainSingleSubst) bool {
	buffer := c.buffer
	glyphID := buffer.cur(0).Glyph
	index, ok := data.Coverage.Index(gID(glyphID))
	if !ok {
		return false
	}

	hasMatch, startIndex := c.matchBacktrack(get1N(&c.indices, 0, len(data.BacktrackCoverages)), matchCoverage(data.BacktrackCoverages))
	if !hasMatch {
		buffer.unsafeToConcatFromOutbuffer(startIndex, buffer.idx+1)
		return false
	}

	hasMatch, endIndex := c.matchLookahead(get1N(&c.indices, 0, len(data.LookaheadCoverages)), matchCoverage(data.LookaheadCoverages), buffer.idx+1)
	if !hasMatch {
		buffer.unsafeToConcatFromOutbuffer(startIndex, endIndex)
		return false
	}

	buffer.unsafeToBreakFromOutbuffer(startIndex, endIndex)

	if index >= len(data.Substitutes) {
		return false
	}
	c.replaceGlyph(GID(data.Substitutes[index]))
	return true
}
