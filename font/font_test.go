package font

import (
	"testing"

	ot "github.com/wiedymi/otshape/font/opentype"
	td "github.com/go-text/typesetting-utils/opentype"
)

func TestParseNotoSans(t *testing.T) {
	data, err := td.Files.ReadFile("common/NotoSans-Regular.ttf")
	if err != nil {
		t.Fatalf("reading fixture: %v", err)
	}

	sfnt, err := ot.ParseSFNT(data)
	if err != nil {
		t.Fatalf("ParseSFNT: %v", err)
	}

	f, err := Parse(sfnt)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if f.NumGlyphs() == 0 {
		t.Fatal("parsed font reports zero glyphs")
	}
	if f.UnitsPerEm() == 0 {
		t.Fatal("parsed font reports zero UnitsPerEm")
	}
	if !f.HasGlyph('A') {
		t.Fatal("NotoSans-Regular should map 'A' to a real glyph")
	}

	face := NewFace(f)
	x, y := face.Ppem()
	if x == 0 || y == 0 {
		t.Fatalf("NewFace should default ppem to the font's upem, got (%d,%d)", x, y)
	}
}
