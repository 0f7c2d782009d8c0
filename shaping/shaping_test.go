package shaping

import (
	"testing"

	"github.com/wiedymi/otshape/font"
	ot "github.com/wiedymi/otshape/font/opentype"
	"github.com/wiedymi/otshape/harfbuzz"
	td "github.com/go-text/typesetting-utils/opentype"
)

func loadFace(t *testing.T, filename string) *harfbuzz.Face {
	t.Helper()
	data, err := td.Files.ReadFile(filename)
	if err != nil {
		t.Fatalf("reading fixture %s: %v", filename, err)
	}
	sfnt, err := ot.ParseSFNT(data)
	if err != nil {
		t.Fatalf("%s: ParseSFNT: %v", filename, err)
	}
	f, err := font.Parse(sfnt)
	if err != nil {
		t.Fatalf("%s: font.Parse: %v", filename, err)
	}
	return font.NewFace(f)
}

// TestShapeKerning is scenario S1: shaping "AV" should kern the pair so the
// combined advance is less than the sum of A and V shaped individually, and
// the two glyphs should keep their logical clusters.
func TestShapeKerning(t *testing.T) {
	face := loadFace(t, "common/NotoSans-Regular.ttf")
	cache := harfbuzz.NewPlanCache()

	av, err := Shape(cache, Input{Text: []rune("AV"), Face: face})
	if err != nil {
		t.Fatalf("Shape(\"AV\"): %v", err)
	}
	if len(av.Glyphs) != 2 {
		t.Fatalf("expected 2 glyphs for \"AV\", got %d", len(av.Glyphs))
	}
	if av.Clusters[0] != 0 || av.Clusters[1] != 1 {
		t.Fatalf("expected clusters [0 1], got %v", av.Clusters)
	}
	combined := av.Positions[0].XAdvance + av.Positions[1].XAdvance

	a, err := Shape(cache, Input{Text: []rune("A"), Face: face})
	if err != nil {
		t.Fatalf("Shape(\"A\"): %v", err)
	}
	v, err := Shape(cache, Input{Text: []rune("V"), Face: face})
	if err != nil {
		t.Fatalf("Shape(\"V\"): %v", err)
	}
	separate := a.Positions[0].XAdvance + v.Positions[0].XAdvance

	if combined >= separate {
		t.Fatalf("expected kerned \"AV\" advance (%d) < unkerned sum (%d)", combined, separate)
	}
}

// TestShapeLigature is scenario S4: "fi" should collapse to a single
// ligature glyph sharing cluster 0.
func TestShapeLigature(t *testing.T) {
	face := loadFace(t, "common/NotoSans-Regular.ttf")
	cache := harfbuzz.NewPlanCache()

	out, err := Shape(cache, Input{Text: []rune("fi"), Face: face})
	if err != nil {
		t.Fatalf("Shape(\"fi\"): %v", err)
	}
	if len(out.Glyphs) != 1 {
		t.Fatalf("expected the \"fi\" ligature to collapse to 1 glyph, got %d", len(out.Glyphs))
	}
	if out.Clusters[0] != 0 {
		t.Fatalf("expected cluster 0, got %d", out.Clusters[0])
	}
}

// TestShapeBidi is a Latin-only slice of scenario S5: a pure left-to-right
// paragraph goes through the bidi path and its clusters must stay
// monotonic. No Arabic text is shaped here.
func TestShapeBidi(t *testing.T) {
	latin := loadFace(t, "common/NotoSans-Regular.ttf")
	cache := harfbuzz.NewPlanCache()

	text := []rune("Hello World")
	out, err := Shape(cache, Input{Text: text, Face: latin})
	if err != nil {
		t.Fatalf("Shape: %v", err)
	}
	if len(out.Glyphs) == 0 {
		t.Fatal("expected a non-empty shaped run")
	}
	for i := 1; i < len(out.Clusters); i++ {
		if out.Clusters[i] < out.Clusters[i-1] {
			t.Fatalf("expected monotonic clusters in a pure-LTR run, got %v", out.Clusters)
		}
	}
}
