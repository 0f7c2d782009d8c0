package harfbuzz

import (
	"math/bits"

	"github.com/wiedymi/otshape/font/opentype/tables"
	"github.com/wiedymi/otshape/language"
)

// ported from src/hb-ot-shape-complex.hh, hb-ot-shape-complex.cc, hb-ot-shape.hh
// Copyright © 2010,2012  Google, Inc.  Behdad Esfahbod

const (
	maxContextLength = 64
	maxNestingLevel  = 6
	maxOpsDefault    = 0x1FFFFFFF
	maxInt           = int(^uint(0) >> 1)
)

// LookupFlag bits (§4.H LookupFlag), used when walking GSUB/GPOS subtables.
const (
	otRightToLeft        = 0x0001
	otIgnoreBaseGlyphs    = 0x0002
	otIgnoreLigatures    = 0x0004
	otIgnoreMarks        = 0x0008
	otMarkAttachmentType = 0xFF00
)

func min8(a, b uint8) uint8 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

// bitStorage returns the number of bits needed to store v (0 for v==0),
// mirroring hb_bit_storage.
func bitStorage(v uint32) int {
	return bits.Len32(v)
}

// Feature is a single user-requested OT feature setting (a font-feature-
// settings entry): Tag with Value applied to glyphs in [Start, End).
type Feature struct {
	Tag   tables.Tag
	Value uint32
	Start int
	End   int
}

// FeatureGlobalStart/FeatureGlobalEnd mark a Feature as applying to the
// whole buffer rather than a specific character range.
const (
	FeatureGlobalStart = 0
	FeatureGlobalEnd   = maxInt
)

// zeroWidthMarks selects how (and whether) a complex shaper wants combining
// marks with no GPOS anchor zeroed out, mirroring hb_ot_shape_zero_width_marks_t.
type zeroWidthMarks uint8

const (
	zeroWidthMarksNone zeroWidthMarks = iota
	zeroWidthMarksByGdefEarly
	zeroWidthMarksByGdefLate
)

// normalizationMode selects the Unicode decompose/recompose strategy
// otShapeNormalize runs before GSUB, mirroring hb_ot_shape_normalization_mode_t.
type normalizationMode uint8

const (
	nmAuto normalizationMode = iota
	nmDefault
	nmComposedDiacritics
	nmComposedDiacriticsNoShortCircuit
	nmDecomposed
)

// otComplexShaper is the interface every script-specific shaping strategy
// (Indic, Khmer, the Universal Shaping Engine, Arabic joining, ...)
// implements; the default (Latin-style) behavior lives in
// complexShaperDefault, and complexShaperNil supplies the no-op defaults
// embedding shapers only partially override.
type otComplexShaper interface {
	// collectFeatures is called during shape-plan construction; the shaper
	// registers the OpenType features its script needs via plan.map_.
	collectFeatures(plan *otShapePlanner)

	// overrideFeatures runs after the generic feature list has been added,
	// letting the shaper force specific features on or off.
	overrideFeatures(plan *otShapePlanner)

	// dataCreate builds any shaper-specific precomputed state (syllable
	// tables, reordering classes) once the plan is compiled.
	dataCreate(plan *otShapePlan)

	// setupMasks assigns the per-glyph feature masks (syllable-local
	// joiners, reordering markers) that collectFeatures's features key off.
	setupMasks(plan *otShapePlan, buffer *Buffer, font *Font)

	// marksBehavior reports how the shaper wants unpositioned combining
	// marks zeroed, and whether it wants the generic mark-stacking
	// fallback positioner engaged when the font has no GPOS mark anchors.
	marksBehavior() (zeroWidthMarks, bool)

	// normalizationPreference reports the Unicode normalization strategy
	// this script needs before GSUB.
	normalizationPreference() normalizationMode

	// gposTag, when non-zero, is the script tag the shaper insists GPOS be
	// selected under; a mismatch disables GPOS for the run.
	gposTag() tables.Tag

	// preprocessText runs once per buffer, after cluster formation and
	// before normalization, letting the shaper reorder or insert codepoints
	// (e.g. the vowel-constraint fixups of the Indic and USE shapers).
	preprocessText(plan *otShapePlan, buffer *Buffer, font *Font)

	// postprocessGlyphs runs after positioning, for any final glyph-level
	// fixups the shaper needs; every shaper in this package leaves it empty.
	postprocessGlyphs(plan *otShapePlan, buffer *Buffer, font *Font)

	// decompose is consulted by otShapeNormalize before falling back to
	// uni.decompose, letting a script veto or special-case a decomposition.
	decompose(c *otNormalizeContext, ab rune) (a, b rune, ok bool)

	// compose is the recomposition counterpart of decompose.
	compose(c *otNormalizeContext, a, b rune) (ab rune, ok bool)

	// reorderMarks takes a range [start, end) of combining marks to
	// reorder; nothing in the shaping pipeline calls it, and every
	// implementation is empty.
	reorderMarks(plan *otShapePlan, buffer *Buffer, start, end int)
}

// complexShaperNil supplies no-op/default implementations of every
// otComplexShaper method; Indic and the Universal Shaping Engine embed it
// and only override the methods their script actually needs.
type complexShaperNil struct{}

func (complexShaperNil) collectFeatures(*otShapePlanner)                  {}
func (complexShaperNil) overrideFeatures(*otShapePlanner)                 {}
func (complexShaperNil) dataCreate(*otShapePlan)                         {}
func (complexShaperNil) setupMasks(*otShapePlan, *Buffer, *Font)          {}
func (complexShaperNil) marksBehavior() (zeroWidthMarks, bool)            { return zeroWidthMarksNone, false }
func (complexShaperNil) normalizationPreference() normalizationMode       { return nmAuto }
func (complexShaperNil) gposTag() tables.Tag                              { return 0 }
func (complexShaperNil) preprocessText(*otShapePlan, *Buffer, *Font)      {}
func (complexShaperNil) postprocessGlyphs(*otShapePlan, *Buffer, *Font)   {}
func (complexShaperNil) reorderMarks(*otShapePlan, *Buffer, int, int)     {}

func (complexShaperNil) decompose(_ *otNormalizeContext, ab rune) (rune, rune, bool) {
	return uni.decompose(ab)
}

func (complexShaperNil) compose(_ *otNormalizeContext, a, b rune) (rune, bool) {
	return uni.compose(a, b)
}

var _ otComplexShaper = complexShaperNil{}

// complexShaperDefault is the shaper used for every script with no special
// joining or reordering rules (Latin, Cyrillic, Greek, and so on). dumb is
// set on the instance newOtShapePlanner swaps in for a script-specific
// shaper when a font's AAT morx table does the substitution work instead of
// GSUB; no method reads the flag, the swap to these no-op methods is the
// whole effect.
type complexShaperDefault struct {
	complexShaperNil
	dumb bool
}

var _ otComplexShaper = complexShaperDefault{}

// categorizeComplex picks the otComplexShaper for the script planner.props
// carries, mirroring hb_ot_shape_complex_categorize.
func (planner *otShapePlanner) categorizeComplex() otComplexShaper {
	switch planner.props.Script {
	case language.Khmer:
		return &complexShaperKhmer{}

	case language.Devanagari, language.Bengali, language.Gurmukhi, language.Gujarati, language.Oriya,
		language.Tamil, language.Telugu, language.Kannada, language.Malayalam:
		return &complexShaperIndic{}

	case language.Myanmar, language.Sinhala, language.Thai:
		return &complexShaperUSE{}

	default:
		if hasArabicJoining(planner.props.Script) {
			return &complexShaperArabic{}
		}
		return complexShaperDefault{}
	}
}

// otLayoutDeleteGlyphsInplace removes every glyph pred matches, compacting
// the buffer's Info (and Pos, once allocated) in place.
func otLayoutDeleteGlyphsInplace(buffer *Buffer, pred func(*GlyphInfo) bool) {
	buffer.deleteGlyphsInplace(pred)
}

// otLayoutPositionStart is run once before GPOS/kerx positioning: it clears
// every glyph's attachment chain and type, so the run starts with no mark
// or cursive attachments recorded.
func otLayoutPositionStart(font *Font, buffer *Buffer) {
	positionStartGPOS(buffer)
}

// otLayoutPositionFinishOffsets runs after GPOS/kerx positioning: when the
// buffer carries attachments, each mark- or cursive-attached glyph gets the
// offset of the glyph it is attached to added to its own (for marks, less
// the advances in between).
func otLayoutPositionFinishOffsets(font *Font, buffer *Buffer) {
	positionFinishOffsetsGPOS(buffer)
}

// layoutSubstituteStart primes each glyph's glyphProps from the font's
// GDEF glyph-class definitions (base/ligature/mark/component), which GSUB
// lookup flags (IgnoreMarks, etc.) match against; called once before any
// GSUB lookup is applied.
func layoutSubstituteStart(font *Font, buffer *Buffer) {
	gdef := font.face.GDEF
	for i := range buffer.Info {
		buffer.Info[i].glyphProps = gdef.GlyphProps(buffer.Info[i].Glyph)
	}
}
