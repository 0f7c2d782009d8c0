package harfbuzz

import (
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// ported loosely from src/hb-unicode.hh's hb_unicode_funcs_t default
// implementation (general category / decompose / compose / mirroring),
// backed here by the stdlib `unicode` tables and `golang.org/x/text/unicode/
// norm` instead of ICU.

// generalCategory mirrors hb_unicode_general_category_t: one value per
// Unicode General_Category, packed into unicodeProp's low 5 bits.
type generalCategory uint8

const (
	genCatUnassigned generalCategory = iota
	control
	format
	privateUse
	surrogate
	lowercaseLetter
	modifierLetter
	otherLetter
	titlecaseLetter
	uppercaseLetter
	spacingMark
	enclosingMark
	nonSpacingMark
	decimalNumber
	letterNumber
	otherNumber
	connectPunctuation
	dashPunctuation
	closePunctuation
	finalPunctuation
	initialPunctuation
	otherPunctuation
	openPunctuation
	currencySymbol
	modifierSymbol
	mathSymbol
	otherSymbol
	lineSeparator
	paragraphSeparator
	spaceSeparator
)

func (g generalCategory) isMark() bool {
	return g == spacingMark || g == enclosingMark || g == nonSpacingMark
}

const notSpace uint8 = 0

var categoryTables = [...]struct {
	cat   generalCategory
	table *unicode.RangeTable
}{
	{control, unicode.Cc},
	{format, unicode.Cf},
	{privateUse, unicode.Co},
	{surrogate, unicode.Cs},
	{lowercaseLetter, unicode.Ll},
	{modifierLetter, unicode.Lm},
	{otherLetter, unicode.Lo},
	{titlecaseLetter, unicode.Lt},
	{uppercaseLetter, unicode.Lu},
	{spacingMark, unicode.Mc},
	{enclosingMark, unicode.Me},
	{nonSpacingMark, unicode.Mn},
	{decimalNumber, unicode.Nd},
	{letterNumber, unicode.Nl},
	{otherNumber, unicode.No},
	{connectPunctuation, unicode.Pc},
	{dashPunctuation, unicode.Pd},
	{closePunctuation, unicode.Pe},
	{finalPunctuation, unicode.Pf},
	{initialPunctuation, unicode.Pi},
	{otherPunctuation, unicode.Po},
	{openPunctuation, unicode.Ps},
	{currencySymbol, unicode.Sc},
	{modifierSymbol, unicode.Sk},
	{mathSymbol, unicode.Sm},
	{otherSymbol, unicode.So},
	{lineSeparator, unicode.Zl},
	{paragraphSeparator, unicode.Zp},
	{spaceSeparator, unicode.Zs},
}

func categoryOf(r rune) generalCategory {
	for _, e := range categoryTables {
		if unicode.Is(e.table, r) {
			return e.cat
		}
	}
	return genCatUnassigned
}

// isDefaultIgnorable approximates Unicode's Default_Ignorable_Code_Point
// property for the characters shaping actually encounters: soft hyphen,
// zero-width space/joiners, word joiner, the BOM, variation selectors, the
// Mongolian free variation selectors and combining grapheme joiner, and the
// deprecated tag characters.
func isDefaultIgnorable(u rune) bool {
	switch {
	case u == 0x00AD, u == 0x034F, u == 0x061C,
		u == 0x115F, u == 0x1160,
		u == 0x17B4, u == 0x17B5,
		u == 0x200B, u == 0x200C, u == 0x200D, u == 0x200E, u == 0x200F,
		u == 0x2060, u == 0x2061, u == 0x2062, u == 0x2063, u == 0x2064,
		u == 0x2065, u == 0xFEFF,
		u >= 0x180B && u <= 0x180F,
		u >= 0x202A && u <= 0x202E,
		u >= 0x2066 && u <= 0x206F,
		u >= 0xFE00 && u <= 0xFE0F,
		u >= 0xFFF0 && u <= 0xFFF8,
		u >= 0xE0000 && u <= 0xE0FFF:
		return true
	}
	return false
}

// isHiddenDefaultIgnorable reports the Default_Ignorable()s HarfBuzz keeps visible/hidden
// rather than deleting (the Mongolian FVS quartet, CGJ, and the tag block),
// mirroring hb-unicode.hh's IS_HIDDEN check.
func isHiddenDefaultIgnorable(u rune) bool {
	switch {
	case u >= 0x180B && u <= 0x180E,
		u == 0x034F,
		u >= 0xE0020 && u <= 0xE007F:
		return true
	}
	return false
}

// computeUnicodeProps classifies one codepoint into the packed unicodeProp
// representation (§4.E.2), and reports any buffer-wide scratch flags it
// implies (non-ASCII content, default-ignorables present).
func computeUnicodeProps(u rune) (unicodeProp, bufferScratchFlags) {
	gc := categoryOf(u)
	props := unicodeProp(gc)
	var scratch bufferScratchFlags

	if u > 0x7F {
		scratch |= bsfHasNonASCII
	}

	if isDefaultIgnorable(u) {
		props |= upropsMaskIgnorable
		scratch |= bsfHasDefaultIgnorables
	}
	if isHiddenDefaultIgnorable(u) {
		props |= upropsMaskHidden
	}

	if gc == format {
		switch u {
		case 0x200D:
			props |= upropsMaskCfZwj
		case 0x200C:
			props |= upropsMaskCfZwnj
		}
	}

	return props, scratch
}

// unicodeFuncs is the small slice of per-rune Unicode algorithms the
// complex shapers need beyond general category: canonical decomposition/
// composition (for split-matra and ligature recomposition, §4.H) and
// bracket mirroring (§4.E.4, used when reversing RTL runs).
type unicodeFuncs struct{}

var uni unicodeFuncs

func (unicodeFuncs) generalCategory(r rune) generalCategory { return categoryOf(r) }

// decompose reports ab's two-rune canonical decomposition, following
// norm.NFD's decomposition mapping; HarfBuzz's complex shapers only ever
// care about the binary (exactly two codepoint) case, so a compatibility
// or singleton decomposition reports false, as HarfBuzz's own decompose
// does for mappings it can't use directly.
func (unicodeFuncs) decompose(ab rune) (a, b rune, ok bool) {
	props := norm.NFD.PropertiesString(string(ab))
	dm := props.Decomposition()
	if dm == nil {
		return 0, 0, false
	}
	rs := []rune(string(dm))
	if len(rs) != 2 {
		return 0, 0, false
	}
	return rs[0], rs[1], true
}

// compose is the inverse of decompose: it recomposes a+b into a single
// rune via NFC normalization, reporting false when the pair is not a
// canonical composition (e.g. it is on the Unicode composition-exclusion
// list, or simply isn't a known pair).
func (unicodeFuncs) compose(a, b rune) (rune, bool) {
	if a == 0 || b == 0 {
		return 0, false
	}
	composed := norm.NFC.String(string(a) + string(b))
	rs := []rune(composed)
	if len(rs) != 1 {
		return 0, false
	}
	return rs[0], true
}

// mirrorPairs covers the bracket/punctuation characters shaping most
// commonly needs to mirror for RTL runs (§4.E.4); it is a deliberately
// small, hand-maintained table rather than the full Unicode
// BidiMirroring.txt, since no copy of that data file is available anywhere
// in the retrieval pack to ground a larger table against.
var mirrorPairs = map[rune]rune{
	'(': ')', ')': '(',
	'[': ']', ']': '[',
	'{': '}', '}': '{',
	'<': '>', '>': '<',
	0x2018: 0x2019, 0x2019: 0x2018, // single quotes (not Bidi_Mirrored; deleted again in init)
	0x201C: 0x201D, 0x201D: 0x201C,
	0x2039: 0x203A, 0x203A: 0x2039, // single guillemets
	0x00AB: 0x00BB, 0x00BB: 0x00AB, // guillemets
	0x2264: 0x2265, 0x2265: 0x2264, // <=, >=
	0x2266: 0x2267, 0x2267: 0x2266,
	0x3008: 0x3009, 0x3009: 0x3008, // CJK angle brackets
	0x300A: 0x300B, 0x300B: 0x300A,
}

func init() {
	// Quotation marks are not part of Unicode's Bidi_Mirrored set; drop them
	// from the table rather than ship an inaccurate mirror.
	delete(mirrorPairs, 0x2018)
	delete(mirrorPairs, 0x2019)
	delete(mirrorPairs, 0x201C)
	delete(mirrorPairs, 0x201D)
}

func (unicodeFuncs) mirroring(r rune) rune {
	if m, ok := mirrorPairs[r]; ok {
		return m
	}
	return r
}
