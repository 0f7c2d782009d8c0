package harfbuzz

import (
	ot "github.com/wiedymi/otshape/font/opentype/tables"
	"github.com/wiedymi/otshape/language"
)

// ported from src/hb-ot-shape-complex-arabic.cc and
// src/hb-ot-shape-complex-arabic-fallback.hh
// Copyright © 2010,2012  Google, Inc.  Behdad Esfahbod

var _ otComplexShaper = (*complexShaperArabic)(nil)

// joiningType is a codepoint's cursive-joining behavior (Unicode
// ArabicShaping.txt's Joining_Type), the same four-and-a-half-way
// classification every Arabic-model script (Arabic proper, Syriac, N'Ko,
// Mandaic, Thaana) shares.
type joiningType uint8

const (
	joiningU joiningType = iota // non-joining (e.g. HAMZA)
	joiningR                    // right-joining: accepts a join from its logical predecessor only
	joiningD                    // dual-joining: joins on both sides
	joiningC                    // join-causing but formless itself (TATWEEL, ZWJ)
	joiningL                    // left-joining: extends a join to its logical successor only
	joiningT                    // transparent: a combining mark, invisible to the joining chain
)

// arabicJoiningTable classifies the core Arabic block; it is a
// hand-maintained subset of ArabicShaping.txt covering the letters that
// appear in ordinary running text; a codepoint absent from it and not a
// combining mark defaults to non-joining, which is the correct behavior
// for the overwhelming majority of Unicode.
var arabicJoiningTable = map[rune]joiningType{
	0x0621: joiningU, // HAMZA
	0x0622: joiningR, // ALEF WITH MADDA ABOVE
	0x0623: joiningR, // ALEF WITH HAMZA ABOVE
	0x0624: joiningR, // WAW WITH HAMZA ABOVE
	0x0625: joiningR, // ALEF WITH HAMZA BELOW
	0x0626: joiningD, // YEH WITH HAMZA ABOVE
	0x0627: joiningR, // ALEF
	0x0628: joiningD, // BEH
	0x0629: joiningR, // TEH MARBUTA
	0x062A: joiningD, // TEH
	0x062B: joiningD, // THEH
	0x062C: joiningD, // JEEM
	0x062D: joiningD, // HAH
	0x062E: joiningD, // KHAH
	0x062F: joiningR, // DAL
	0x0630: joiningR, // THAL
	0x0631: joiningR, // REH
	0x0632: joiningR, // ZAIN
	0x0633: joiningD, // SEEN
	0x0634: joiningD, // SHEEN
	0x0635: joiningD, // SAD
	0x0636: joiningD, // DAD
	0x0637: joiningD, // TAH
	0x0638: joiningD, // ZAH
	0x0639: joiningD, // AIN
	0x063A: joiningD, // GHAIN
	0x0640: joiningC, // TATWEEL
	0x0641: joiningD, // FEH
	0x0642: joiningD, // QAF
	0x0643: joiningD, // KAF
	0x0644: joiningD, // LAM
	0x0645: joiningD, // MEEM
	0x0646: joiningD, // NOON
	0x0647: joiningD, // HEH
	0x0648: joiningR, // WAW
	0x0649: joiningD, // ALEF MAKSURA
	0x064A: joiningD, // YEH
	0x066E: joiningD, // DOTLESS BEH
	0x066F: joiningD, // DOTLESS QAF
	0x0671: joiningR, // ALEF WASLA
	0x0672: joiningR,
	0x0673: joiningR,
	0x0675: joiningR,
	0x0676: joiningR,
	0x0677: joiningR,
	0x0678: joiningD,
	0x0679: joiningD, // TTEH
	0x067A: joiningD,
	0x067B: joiningD,
	0x067C: joiningD,
	0x067D: joiningD,
	0x067E: joiningD, // PEH
	0x067F: joiningD,
	0x0680: joiningD,
	0x0681: joiningD,
	0x0682: joiningD,
	0x0683: joiningD,
	0x0684: joiningD,
	0x0685: joiningD,
	0x0686: joiningD, // TCHEH
	0x0687: joiningD,
	0x0688: joiningR,
	0x0689: joiningR,
	0x068A: joiningR,
	0x068B: joiningR,
	0x068C: joiningR,
	0x068D: joiningR,
	0x068E: joiningR,
	0x068F: joiningR,
	0x0690: joiningR,
	0x0691: joiningR, // RREH
	0x0692: joiningR,
	0x0693: joiningR,
	0x0694: joiningR,
	0x0695: joiningR,
	0x0696: joiningR,
	0x0697: joiningR,
	0x0698: joiningR, // JEH
	0x0699: joiningR,
	0x069A: joiningD,
	0x069B: joiningD,
	0x069C: joiningD,
	0x069D: joiningD,
	0x069E: joiningD,
	0x069F: joiningD,
	0x06A0: joiningD,
	0x06A1: joiningD,
	0x06A2: joiningD,
	0x06A3: joiningD,
	0x06A4: joiningD, // VEH
	0x06A5: joiningD,
	0x06A6: joiningD,
	0x06A7: joiningD,
	0x06A8: joiningD,
	0x06A9: joiningD, // KEHEH
	0x06AA: joiningD,
	0x06AB: joiningD,
	0x06AC: joiningD,
	0x06AD: joiningD,
	0x06AE: joiningD,
	0x06AF: joiningD, // GAF
	0x06B0: joiningD,
	0x06B1: joiningD,
	0x06B2: joiningD,
	0x06B3: joiningD,
	0x06B4: joiningD,
	0x06B5: joiningD,
	0x06B6: joiningD,
	0x06B7: joiningD,
	0x06B8: joiningD,
	0x06B9: joiningD,
	0x06BA: joiningR, // NOON GHUNNA
	0x06BB: joiningD,
	0x06BC: joiningD,
	0x06BD: joiningD,
	0x06BE: joiningD, // HEH DOACHASHMEE
	0x06BF: joiningD,
	0x06C0: joiningR, // HEH WITH YEH ABOVE
	0x06C1: joiningD, // HEH GOAL
	0x06C2: joiningD,
	0x06C3: joiningR,
	0x06C4: joiningR,
	0x06C5: joiningR,
	0x06C6: joiningR,
	0x06C7: joiningR,
	0x06C8: joiningR,
	0x06C9: joiningR,
	0x06CA: joiningR,
	0x06CB: joiningR,
	0x06CC: joiningD, // FARSI YEH
	0x06CD: joiningR,
	0x06CE: joiningD,
	0x06CF: joiningR,
	0x06D0: joiningD, // YEH BARREE
	0x06D1: joiningD,
	0x06D2: joiningR, // YEH BARREE WITH HAMZA ABOVE
	0x06D3: joiningR,
	0x200D: joiningC, // ZERO WIDTH JOINER
}

// arabicJoiningType reports r's cursive-joining behavior, treating any
// combining mark absent from arabicJoiningTable as transparent (it never
// breaks a joining chain) and everything else absent as non-joining.
func arabicJoiningType(r rune) joiningType {
	if jt, ok := arabicJoiningTable[r]; ok {
		return jt
	}
	if uni.generalCategory(r).isMark() {
		return joiningT
	}
	return joiningU
}

// hasArabicJoining reports whether script follows the Arabic cursive-
// joining model, whether or not it is visually rendered right-to-left.
func hasArabicJoining(script language.Script) bool {
	switch script {
	case language.Arabic,
		language.NewScript("Syrc"),
		language.NewScript("Nkoo"),
		language.NewScript("Mand"),
		language.NewScript("Thaa"):
		return true
	}
	return false
}

// arabicFallbackFeatures are the GSUB feature tags a from-scratch Arabic
// joining implementation has to synthesize when the font itself carries no
// isol/fina/medi/init lookups; arabicFallbackMaxLookups bounds how large a
// built-in substitute lookup table this package would ever build for them
// (this package has no embedded fallback glyph outlines, so it never
// actually builds one — the font's own GSUB data is relied on instead —
// but the bound is kept as the contract fallbackFeatures must satisfy).
var arabicFallbackFeatures = []ot.Tag{
	ot.NewTag('i', 's', 'o', 'l'),
	ot.NewTag('f', 'i', 'n', 'a'),
	ot.NewTag('m', 'e', 'd', 'i'),
	ot.NewTag('i', 'n', 'i', 't'),
	ot.NewTag('r', 'l', 'i', 'g'),
	ot.NewTag('c', 'a', 'l', 't'),
	ot.NewTag('l', 'i', 'g', 'a'),
	ot.NewTag('d', 'l', 'i', 'g'),
	ot.NewTag('c', 's', 'w', 'h'),
	ot.NewTag('m', 's', 'e', 't'),
}

const arabicFallbackMaxLookups = 12

// arabicShapePlan holds the per-plan feature masks the joining pass needs
// to pick the isol/fina/medi/init GSUB lookups for each glyph.
type arabicShapePlan struct {
	isolMask GlyphMask
	finaMask GlyphMask
	mediMask GlyphMask
	initMask GlyphMask
}

func newArabicPlan(plan *otShapePlan) arabicShapePlan {
	var p arabicShapePlan
	p.isolMask = plan.map_.getMask1(ot.NewTag('i', 's', 'o', 'l'))
	p.finaMask = plan.map_.getMask1(ot.NewTag('f', 'i', 'n', 'a'))
	p.mediMask = plan.map_.getMask1(ot.NewTag('m', 'e', 'd', 'i'))
	p.initMask = plan.map_.getMask1(ot.NewTag('i', 'n', 'i', 't'))
	return p
}

// joinCausesNext reports whether t extends a cursive join to its logical
// successor (dual-joining and join-causing letters do; right-joining ones
// don't, since they only ever accept a join from before).
func joinCausesNext(t joiningType) bool { return t == joiningD || t == joiningC || t == joiningL }

// acceptsPrevJoin reports whether t can receive a join from its logical
// predecessor.
func acceptsPrevJoin(t joiningType) bool { return t == joiningD || t == joiningC || t == joiningR }

// setupMasks classifies every non-transparent glyph by its joining
// context (isolated/initial/medial/final) and sets the matching feature
// mask, skipping over transparent combining marks exactly as the Unicode
// cursive-joining algorithm requires.
func (p *arabicShapePlan) setupMasks(buffer *Buffer, _ language.Script) {
	info := buffer.Info
	n := len(info)

	types := make([]joiningType, n)
	for i := range info {
		types[i] = arabicJoiningType(info[i].codepoint)
	}

	prevNonTransparent := -1
	nextNonTransparent := make([]int, n)
	next := -1
	for i := n - 1; i >= 0; i-- {
		nextNonTransparent[i] = next
		if types[i] != joiningT {
			next = i
		}
	}

	for i := 0; i < n; i++ {
		if types[i] == joiningT {
			continue
		}

		joinsPrev := prevNonTransparent >= 0 && joinCausesNext(types[prevNonTransparent]) && acceptsPrevJoin(types[i])
		nextIdx := nextNonTransparent[i]
		joinsNext := nextIdx >= 0 && acceptsPrevJoin(types[nextIdx]) && joinCausesNext(types[i])

		var mask GlyphMask
		switch {
		case joinsPrev && joinsNext:
			mask = p.mediMask
		case joinsPrev:
			mask = p.finaMask
		case joinsNext:
			mask = p.initMask
		default:
			mask = p.isolMask
		}
		info[i].Mask |= mask

		prevNonTransparent = i
	}
}

// complexShaperArabic drives cursive joining for Arabic and the other
// scripts sharing its joining model (see hasArabicJoining). The Universal
// Shaping Engine shaper also carries an *arabicShapePlan, built when its
// script has Arabic joining; none of the scripts categorizeComplex sends to
// it (Myanmar, Sinhala, Thai) does, so there it stays nil.
type complexShaperArabic struct {
	complexShaperNil
	plan arabicShapePlan
}

func (complexShaperArabic) collectFeatures(plan *otShapePlanner) {
	map_ := &plan.map_
	map_.addFeature(ot.NewTag('s', 't', 'c', 'h'))
	map_.addGSUBPause(nil)
	for _, feat := range []ot.Tag{
		ot.NewTag('i', 'n', 'i', 't'),
		ot.NewTag('m', 'e', 'd', 'i'),
		ot.NewTag('f', 'i', 'n', 'a'),
		ot.NewTag('i', 's', 'o', 'l'),
	} {
		map_.addFeature(feat)
	}
}

func (cs *complexShaperArabic) dataCreate(plan *otShapePlan) {
	cs.plan = newArabicPlan(plan)
}

func (cs *complexShaperArabic) setupMasks(plan *otShapePlan, buffer *Buffer, _ *Font) {
	cs.plan.setupMasks(buffer, plan.props.Script)
}

func (complexShaperArabic) marksBehavior() (zeroWidthMarks, bool) {
	return zeroWidthMarksByGdefLate, false
}

func (complexShaperArabic) normalizationPreference() normalizationMode {
	return nmDefault
}
