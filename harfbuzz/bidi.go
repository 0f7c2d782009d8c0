package harfbuzz

import (
	"unicode/utf8"

	"golang.org/x/text/unicode/bidi"
)

// BidiRun is one maximal same-direction span of a paragraph (§4.E.3 UAX #9
// embedding levels, §4.E.6 visual reordering): the rune range the shaping
// façade hands to the engine as a single run, and the direction to shape
// it in.
type BidiRun struct {
	Start, End int // rune offsets into the paragraph, logical order
	RTL        bool
}

// ResolveBidi runs the Unicode Bidirectional Algorithm over text and
// returns its runs already in visual (left-to-right on the page) order,
// using x/text's conformant implementation rather than re-deriving UAX #9
// by hand. baseDirection seeds the paragraph's default embedding level
// when the text carries no stronger directional hint; pass 0 to let
// bidi.Paragraph auto-detect it from the first strong character.
func ResolveBidi(text []rune, baseDirection Direction) ([]BidiRun, error) {
	var p bidi.Paragraph
	var opts []bidi.Option
	switch baseDirection {
	case RightToLeft:
		opts = append(opts, bidi.DefaultDirection(bidi.RightToLeft))
	case LeftToRight:
		opts = append(opts, bidi.DefaultDirection(bidi.LeftToRight))
	}
	if err := p.SetString(string(text), opts...); err != nil {
		return nil, err
	}
	ordering, err := p.Order()
	if err != nil {
		return nil, err
	}

	runs := make([]BidiRun, 0, ordering.NumRuns())
	offset := 0
	for i := 0; i < ordering.NumRuns(); i++ {
		run := ordering.Run(i)
		n := utf8.RuneCountInString(run.String())
		runs = append(runs, BidiRun{
			Start: offset,
			End:   offset + n,
			RTL:   run.Direction() == bidi.RightToLeft,
		})
		offset += n
	}
	return runs, nil
}
