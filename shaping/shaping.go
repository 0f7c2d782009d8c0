// Package shaping is the small public façade that glues paragraph
// segmentation (BiDi, per-run script detection) and the harfbuzz engine
// together, the way a text layout engine would use them: hand it a
// paragraph and a face, get back glyphs and positions in visual order.
package shaping

import (
	"errors"

	"github.com/wiedymi/otshape/harfbuzz"
	"github.com/wiedymi/otshape/language"
)

// ported in the spirit of go-text/typesetting's shaping package, the layer
// the boxesandglue/typesetting harfbuzz port is itself meant to sit under.

// ErrNoFace is returned by Shape when Input.Face is nil.
var ErrNoFace = errors.New("shaping: Input.Face is nil")

// Input is one paragraph of text to shape (§2 input model): the runes plus
// the face to shape them with, and any caller overrides of automatic
// direction/script/language detection or feature settings.
type Input struct {
	Text []rune
	Face *harfbuzz.Face

	// PointSize, when positive, is installed on Face as its AAT `trak`
	// tracking point size before shaping.
	PointSize float32

	// Direction overrides the base paragraph direction ResolveBidi would
	// otherwise auto-detect from Text's first strong character; zero means
	// auto-detect.
	Direction harfbuzz.Direction

	// Script and Language, when non-zero, override per-run automatic
	// detection for every run of the paragraph.
	Script   language.Script
	Language language.Language

	Features []harfbuzz.Feature
}

// Output is one paragraph's shaped result: glyphs, their source-text cluster
// indices, and positions, concatenated across every run of the paragraph in
// visual (left-to-right on the page) order (§4.E.6), ready for a renderer to
// walk directly.
type Output struct {
	Glyphs    []harfbuzz.GID
	Clusters  []int
	Positions []harfbuzz.GlyphPosition
}

// Shape splits Text into BiDi runs (§4.E.3), script-segments each run
// (§4.E.5), shapes every resulting span through the harfbuzz engine via
// cache, and concatenates the runs in visual order into one Output. cache
// may be nil, in which case a throwaway one-shot cache is used — passing a
// shared *harfbuzz.PlanCache across calls is what makes repeated shaping
// against the same faces cheap (§4.G).
func Shape(cache *harfbuzz.PlanCache, in Input) (Output, error) {
	if in.Face == nil {
		return Output{}, ErrNoFace
	}
	if cache == nil {
		cache = harfbuzz.NewPlanCache()
	}
	if in.PointSize > 0 {
		in.Face.Ptem = in.PointSize
	}

	bidiRuns, err := harfbuzz.ResolveBidi(in.Text, in.Direction)
	if err != nil {
		return Output{}, err
	}

	font := harfbuzz.NewFont(in.Face)

	var out Output
	for _, br := range bidiRuns {
		dir := harfbuzz.LeftToRight
		if br.RTL {
			dir = harfbuzz.RightToLeft
		}
		for _, sr := range scriptRuns(in.Text[br.Start:br.End], br.Start) {
			buf := harfbuzz.NewBuffer()
			buf.AddRunes(in.Text[sr.start:sr.end], sr.start)

			buf.Props.Direction = dir
			buf.Props.Script = sr.script
			if in.Script != 0 {
				buf.Props.Script = in.Script
			}
			buf.Props.Language = in.Language
			buf.GuessSegmentProperties()

			cache.Shape(font, buf, in.Features)

			appendRun(&out, buf)
		}
	}
	return out, nil
}

func appendRun(out *Output, buf *harfbuzz.Buffer) {
	for i, info := range buf.Info {
		out.Glyphs = append(out.Glyphs, info.Glyph)
		out.Clusters = append(out.Clusters, info.Cluster)
		out.Positions = append(out.Positions, buf.Pos[i])
	}
}

// scriptRun is one maximal same-script span inside a single BiDi run.
type scriptRun struct {
	start, end int
	script     language.Script
}

// scriptRuns splits text into maximal runs of a single strong script
// (§4.E.5): a harfbuzz.Buffer carries one Props.Script for its whole
// content, so mixed-script text must be split before each span is handed to
// the engine. Common and Inherited codepoints (punctuation, digits,
// combining marks) join whichever strong script run they're adjacent to,
// preferring the run to their left, matching UAX #24's script-run
// recommendation so ordinary text doesn't fragment at every space or digit.
func scriptRuns(text []rune, base int) []scriptRun {
	if len(text) == 0 {
		return nil
	}

	scripts := make([]language.Script, len(text))
	for i, r := range text {
		scripts[i] = language.LookupScript(r)
	}

	var last language.Script
	for i, s := range scripts {
		if s == language.Common || s == language.Inherited {
			if last != 0 {
				scripts[i] = last
			}
		} else {
			last = s
		}
	}
	var next language.Script
	for i := len(scripts) - 1; i >= 0; i-- {
		if scripts[i] == language.Common || scripts[i] == language.Inherited {
			if next != 0 {
				scripts[i] = next
			}
		} else {
			next = scripts[i]
		}
	}

	var runs []scriptRun
	runStart := 0
	for i := 1; i <= len(scripts); i++ {
		if i == len(scripts) || scripts[i] != scripts[runStart] {
			runs = append(runs, scriptRun{start: base + runStart, end: base + i, script: scripts[runStart]})
			runStart = i
		}
	}
	return runs
}
