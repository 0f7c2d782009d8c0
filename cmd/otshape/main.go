// Command otshape loads a font and shapes a string, printing the resulting
// glyph IDs, clusters and advances — a manual-inspection tool, not part of
// the shaping contract itself.
package main

import (
	"flag"
	"fmt"
	"os"

	ot "github.com/wiedymi/otshape/font/opentype"
	"github.com/wiedymi/otshape/font"
	"github.com/wiedymi/otshape/harfbuzz"
	"github.com/wiedymi/otshape/shaping"
)

func main() {
	fontPath := flag.String("font", "", "path to a .ttf/.otf file")
	text := flag.String("text", "", "text to shape")
	flag.Parse()

	if *fontPath == "" || *text == "" {
		fmt.Fprintln(os.Stderr, "usage: otshape -font FILE -text STRING")
		os.Exit(2)
	}

	if err := run(*fontPath, *text); err != nil {
		fmt.Fprintln(os.Stderr, "otshape:", err)
		os.Exit(1)
	}
}

func run(fontPath, text string) error {
	data, err := os.ReadFile(fontPath)
	if err != nil {
		return err
	}

	sfnt, err := ot.ParseSFNT(data)
	if err != nil {
		return err
	}
	f, err := font.Parse(sfnt)
	if err != nil {
		return err
	}
	face := font.NewFace(f)

	out, err := shaping.Shape(harfbuzz.NewPlanCache(), shaping.Input{
		Text: []rune(text),
		Face: face,
	})
	if err != nil {
		return err
	}

	for i, g := range out.Glyphs {
		pos := out.Positions[i]
		fmt.Printf("glyph=%d cluster=%d xAdvance=%d yAdvance=%d xOffset=%d yOffset=%d\n",
			g, out.Clusters[i], pos.XAdvance, pos.YAdvance, pos.XOffset, pos.YOffset)
	}
	return nil
}
