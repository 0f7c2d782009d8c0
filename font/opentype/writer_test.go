package opentype

import (
	"testing"

	td "github.com/go-text/typesetting-utils/opentype"
)

// TestParseSFNT checks that every fixture's table directory parses, lists
// at least one table, yields head, maxp and cmap, and returns nothing for
// a tag the font does not declare.
func TestParseSFNT(t *testing.T) {
	for _, filename := range []string{
		"common/NotoSans-Regular.ttf",
		"common/NotoSansArabic-Regular.ttf",
		"common/NotoSansDevanagari-Regular.ttf",
	} {
		data, err := td.Files.ReadFile(filename)
		if err != nil {
			t.Fatalf("%s: %v", filename, err)
		}

		sfnt, err := ParseSFNT(data)
		if err != nil {
			t.Fatalf("%s: ParseSFNT: %v", filename, err)
		}

		tags := sfnt.Tags()
		if len(tags) == 0 {
			t.Fatalf("%s: no tables found", filename)
		}

		for _, required := range []Tag{MustNewTag("head"), MustNewTag("maxp"), MustNewTag("cmap")} {
			if sfnt.Table(required) == nil {
				t.Errorf("%s: missing required table %q", filename, required.String())
			}
		}

		if sfnt.Table(MustNewTag("zzzz")) != nil {
			t.Errorf("%s: Table returned data for a tag the font doesn't declare", filename)
		}
	}
}
