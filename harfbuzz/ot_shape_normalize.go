package harfbuzz

// ported from src/hb-ot-shape-normalize.cc Copyright © 2011,2012  Google, Inc. Behdad Esfahbod

// otNormalizeContext carries the state otShapeNormalize and the per-script
// decompose/compose overrides need: the plan (for the active shaper and
// feature masks), the buffer being normalized, and the font (glyph
// availability drives every decomposition decision).
type otNormalizeContext struct {
	plan   *otShapePlan
	buffer *Buffer
	font   *Font
}

// decomposeOne recursively decomposes ab into the shortest (shortest==true)
// or fully-decomposed (shortest==false) sequence of codepoints the font can
// render, trying the shaper's decompose override before falling back to
// plain Unicode canonical decomposition.
func decomposeOne(c *otNormalizeContext, shortest bool, ab rune) ([]rune, bool) {
	a, b, ok := c.plan.shaper.decompose(c, ab)
	if !ok {
		return nil, false
	}
	if b != 0 && !c.font.hasGlyph(b) {
		return nil, false
	}

	hasA := c.font.hasGlyph(a)
	if shortest && hasA {
		if b == 0 {
			return []rune{a}, true
		}
		return []rune{a, b}, true
	}

	if sub, ok := decomposeOne(c, shortest, a); ok {
		if b != 0 {
			sub = append(sub, b)
		}
		return sub, true
	}

	if hasA {
		if b == 0 {
			return []rune{a}, true
		}
		return []rune{a, b}, true
	}

	return nil, false
}

// otShapeNormalize runs after cluster formation and the shaper's
// preprocessText, before GSUB. Except in nmDefault mode, which skips this
// pass, it decomposes characters the font can't render directly into ones
// it can (so GSUB still sees clusters it can match); then, unless the
// shaper asked for a fully decomposed run, it recomposes adjacent
// starter+mark pairs the font can render precomposed, preferring fewer
// glyphs for lookups keyed on the composed form. It finishes by resolving every codepoint to its nominal
// glyph id, the one place in the pipeline that does so.
func otShapeNormalize(plan *otShapePlan, buffer *Buffer, font *Font) {
	if len(buffer.Info) == 0 {
		return
	}

	mode := plan.shaper.normalizationPreference()
	if mode == nmAuto {
		if plan.shaper.gposTag() != 0 {
			mode = nmComposedDiacriticsNoShortCircuit
		} else {
			mode = nmDefault
		}
	}

	c := &otNormalizeContext{plan: plan, buffer: buffer, font: font}
	// Stop decomposing as soon as an intermediate codepoint already has a
	// glyph, except in the two modes that need the fully decomposed form
	// (to recompose precisely, or to stay decomposed outright).
	shortest := mode != nmDecomposed && mode != nmComposedDiacriticsNoShortCircuit

	if mode != nmDefault {
		buffer.clearOutput()
		for buffer.idx = 0; buffer.idx < len(buffer.Info); {
			cur := *buffer.cur(0)

			runes, ok := decomposeOne(c, shortest, cur.codepoint)
			if !ok || (len(runes) == 1 && runes[0] == cur.codepoint) {
				buffer.nextGlyph()
				continue
			}

			for _, r := range runes {
				out := buffer.outputGlyph(0)
				out.codepoint = r
				out.setUnicodeProps(buffer)
				out.setCluster(cur.Cluster, cur.Mask)
			}
			buffer.skipGlyph()
		}
		buffer.swapBuffers()
	}

	if mode != nmDecomposed && len(buffer.Info) > 1 {
		buffer.clearOutput()
		buffer.nextGlyph()
		for buffer.idx < len(buffer.Info) {
			starter := &buffer.outInfo[len(buffer.outInfo)-1]
			mark := buffer.cur(0)

			if !mark.isUnicodeMark() {
				buffer.nextGlyph()
				continue
			}

			composed, ok := c.plan.shaper.compose(c, starter.codepoint, mark.codepoint)
			if !ok || !c.font.hasGlyph(composed) {
				buffer.nextGlyph()
				continue
			}

			starter.codepoint = composed
			starter.setUnicodeProps(buffer)
			buffer.skipGlyph()
		}
		buffer.swapBuffers()
	}

	for i := range buffer.Info {
		if gid, ok := font.face.NominalGlyph(buffer.Info[i].codepoint); ok {
			buffer.Info[i].Glyph = gid
		}
	}
}
