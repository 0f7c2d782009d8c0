// Package font decodes the sfnt tables a shaping engine consumes (glyf,
// cmap, hmtx, GSUB/GPOS/GDEF, and the AAT/variable-font side tables) into
// the typed records the harfbuzz package's shaping pipeline walks.
package font

import (
	"fmt"

	ot "github.com/wiedymi/otshape/font/opentype"
	"github.com/wiedymi/otshape/font/opentype/tables"
)

// Font is everything decoded from one sfnt resource (one entry of a font
// collection): its required tables plus whichever optional layout, AAT and
// variation tables are present.
type Font struct {
	Head tables.Head
	Maxp tables.Maxp
	Hmtx tables.Hmtx
	Cmap tables.Cmap
	Loca []uint32
	Glyf tables.Glyf

	GSUB GSUBTable
	GPOS GPOSTable
	GDEF tables.GDEF

	Ankr tables.Ankr
	Trak tables.Trak
	Kern Kernx
	Kerx Kernx
	Morx []MorxChain

	fvar fvar
	avar tables.Avar
	mvar mvar
	hvar *tables.HVAR
	gvar *gvar

	upem uint16
}

// tableGetter abstracts the handful of ways a font's raw tables can be
// handed to Parse: a single-font sfnt blob, directly, or any source that
// already demuxes tags to byte slices (a ttc member, a woff2 decompressor).
type tableGetter interface {
	// Table returns the raw bytes of tag, or nil if absent.
	Table(tag Tag) []byte
}

// Parse decodes a Font from a table source. The required tables (head,
// maxp, hmtx, cmap) must be present, or Parse returns an error; a malformed
// head or maxp is an error too, while a malformed hmtx or cmap is skipped.
// Every other table, glyf+loca included, is optional and silently skipped
// when absent or malformed, mirroring how HarfBuzz treats optional tables
// as "not supported" rather than a hard error.
func Parse(src tableGetter) (*Font, error) {
	var f Font

	headData := src.Table(ot.MustNewTag("head"))
	if headData == nil {
		return nil, fmt.Errorf("font: missing required table 'head'")
	}
	head, err := tables.ParseHead(headData)
	if err != nil {
		return nil, err
	}
	f.Head = head
	f.upem = head.UnitsPerEm
	if f.upem == 0 {
		f.upem = 1000
	}

	maxpData := src.Table(ot.MustNewTag("maxp"))
	if maxpData == nil {
		return nil, fmt.Errorf("font: missing required table 'maxp'")
	}
	maxp, err := tables.ParseMaxp(maxpData)
	if err != nil {
		return nil, err
	}
	f.Maxp = maxp

	hmtxData := src.Table(ot.MustNewTag("hmtx"))
	if hmtxData == nil {
		return nil, fmt.Errorf("font: missing required table 'hmtx'")
	}
	if hheaData := src.Table(ot.MustNewTag("hhea")); hheaData != nil {
		numH := numberOfHMetrics(hheaData)
		if hmtx, err := tables.ParseHmtx(hmtxData, numH, int(maxp.NumGlyphs)); err == nil {
			f.Hmtx = hmtx
		}
	}

	cmapData := src.Table(ot.MustNewTag("cmap"))
	if cmapData == nil {
		return nil, fmt.Errorf("font: missing required table 'cmap'")
	}
	if cm, err := tables.ParseCmap(cmapData); err == nil {
		f.Cmap = cm
	}

	if locaData, glyfData := src.Table(ot.MustNewTag("loca")), src.Table(ot.MustNewTag("glyf")); locaData != nil && glyfData != nil {
		longFormat := head.IndexToLocFormat == 1
		if loca, err := tables.ParseLoca(locaData, int(maxp.NumGlyphs), longFormat); err == nil {
			f.Loca = loca
			if glyf, err := tables.ParseGlyf(glyfData, loca); err == nil {
				f.Glyf = glyf
			}
		}
	}

	if gsubData := src.Table(ot.MustNewTag("GSUB")); gsubData != nil {
		if g, err := ParseGSUB(gsubData); err == nil {
			f.GSUB = g
		}
	}
	if gposData := src.Table(ot.MustNewTag("GPOS")); gposData != nil {
		if g, err := ParseGPOS(gposData); err == nil {
			f.GPOS = g
		}
	}

	axisCount := 0
	if fvarData := src.Table(ot.MustNewTag("fvar")); fvarData != nil {
		if table, err := tables.ParseFvar(fvarData); err == nil {
			f.fvar = newFvar(table)
			axisCount = len(f.fvar)
		}
	}
	if avarData := src.Table(ot.MustNewTag("avar")); avarData != nil {
		if av, err := tables.ParseAvar(avarData); err == nil {
			f.avar = av
		}
	}
	if gdefData := src.Table(ot.MustNewTag("GDEF")); gdefData != nil {
		if gdef, err := tables.ParseGDEF(gdefData, axisCount); err == nil {
			_ = sanitizeGDEF(gdef, axisCount)
			f.GDEF = gdef
		}
	}
	if mvarData := src.Table(ot.MustNewTag("MVAR")); mvarData != nil {
		if mv, err := tables.ParseMVAR(mvarData, axisCount); err == nil {
			if built, err := newMvar(mv, axisCount); err == nil {
				f.mvar = built
			}
		}
	}
	if hvarData := src.Table(ot.MustNewTag("HVAR")); hvarData != nil {
		if hv, err := tables.ParseHVAR(hvarData); err == nil {
			f.hvar = &hv
		}
	}
	if gvarData := src.Table(ot.MustNewTag("gvar")); gvarData != nil && f.Glyf != nil {
		if gv, err := tables.ParseGvar(gvarData); err == nil {
			if built, err := newGvar(gv, f.Glyf); err == nil {
				f.gvar = &built
			}
		}
	}

	if ankrData := src.Table(ot.MustNewTag("ankr")); ankrData != nil {
		if a, err := tables.ParseAnkr(ankrData); err == nil {
			f.Ankr = a
		}
	}
	if trakData := src.Table(ot.MustNewTag("trak")); trakData != nil {
		if t, err := tables.ParseTrak(trakData); err == nil {
			f.Trak = t
		}
	}
	if kernData := src.Table(ot.MustNewTag("kern")); kernData != nil {
		if k, err := parseKern(kernData); err == nil {
			f.Kern = k
		}
	}
	if kerxData := src.Table(ot.MustNewTag("kerx")); kerxData != nil {
		if k, err := parseKerx(kerxData); err == nil {
			f.Kerx = k
		}
	}
	if morxData := src.Table(ot.MustNewTag("morx")); morxData != nil {
		if m, err := parseMorx(morxData); err == nil {
			f.Morx = m
		}
	}

	return &f, nil
}

func numberOfHMetrics(hhea []byte) int {
	if len(hhea) < 36 {
		return 0
	}
	return int(hhea[34])<<8 | int(hhea[35])
}

// UnitsPerEm returns the font's design grid size (head.UnitsPerEm).
func (f *Font) UnitsPerEm() uint16 { return f.upem }

// NumGlyphs returns the font's glyph count.
func (f *Font) NumGlyphs() int { return int(f.Maxp.NumGlyphs) }

// HasGlyph reports whether rune r maps to a non-.notdef glyph.
func (f *Font) HasGlyph(r rune) bool {
	if f.Cmap == nil {
		return false
	}
	gid, ok := f.Cmap.Lookup(r)
	return ok && gid != 0
}

// NominalGlyph returns the glyph cmap assigns to r.
func (f *Font) NominalGlyph(r rune) (GID, bool) {
	if f.Cmap == nil {
		return 0, false
	}
	return f.Cmap.Lookup(r)
}

// HorizontalAdvance returns a glyph's unscaled (font-unit) advance width.
func (f *Font) HorizontalAdvance(gid GID) int32 {
	return int32(f.Hmtx.Advance(gid))
}

// Face is a Font sized and instanced for shaping: its chosen variation
// coordinates and the pixels-per-em it is being measured at.
type Face struct {
	Font
	varCoords []VarCoord
	ppemX     uint16
	ppemY     uint16
	Ptem      float32 // point size used by AAT `trak`, 0 disables tracking
}

// NewFace wraps a parsed Font for shaping, defaulting to no variation
// instance and the font's own upem as its pixel size.
func NewFace(f *Font) *Face {
	return &Face{Font: *f, ppemX: f.upem, ppemY: f.upem}
}

// SetCoords installs normalized variation coordinates (§4.D), one per fvar
// axis; an empty slice resets the face to the font's default instance.
func (face *Face) SetCoords(coords []VarCoord) { face.varCoords = coords }

// VarCoords returns the face's currently installed normalized variation
// coordinates.
func (face *Face) VarCoords() []VarCoord { return face.varCoords }

// SetPpem sets the face's horizontal/vertical pixels-per-em.
func (face *Face) SetPpem(x, y uint16) { face.ppemX, face.ppemY = x, y }

// Ppem returns the face's horizontal/vertical pixels-per-em.
func (face *Face) Ppem() (uint16, uint16) { return face.ppemX, face.ppemY }
