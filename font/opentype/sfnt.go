package opentype

import "fmt"

// ported from the sfnt directory layout described in the OpenType spec's
// "Organization of an OpenType Font" chapter — the 12-byte offset table
// followed by one 16-byte table record per table, the same structure every
// sfnt reader (golang.org/x/image/font/sfnt, go-text/typesetting's own
// loader) parses before any individual table is touched.

// SFNT is a single font's table directory: the offset and length of every
// table a raw .ttf/.otf/.ttc-member resource declares, resolved once so
// repeated Table lookups are a map index rather than a rescan.
type SFNT struct {
	data   []byte
	tables map[Tag][2]uint32 // tag -> [offset, length]
}

// ParseSFNT reads the sfnt table directory at the start of data (or, for a
// `ttcf` collection, the first font's directory — this module has no use
// for the other members of a collection) and returns an SFNT ready for
// Table lookups.
func ParseSFNT(data []byte) (*SFNT, error) {
	r := NewLoader(data)
	version := r.Tag()

	if version == TagTTC {
		r.U16() // majorVersion
		r.U16() // minorVersion
		numFonts := r.U32()
		if numFonts == 0 {
			return nil, fmt.Errorf("opentype: ttc collection has no fonts")
		}
		base := int(r.U32()) // offset of the first member's table directory
		r = NewLoader(data)
		r.Seek(base)
		version = r.Tag()
	}

	switch version {
	case TagTrueType, TagOTTO, TagTrue, 0x00020000:
	default:
		return nil, fmt.Errorf("opentype: unrecognized sfnt version %s", version.String())
	}

	numTables := int(r.U16())
	r.U16() // searchRange
	r.U16() // entrySelector
	r.U16() // rangeShift
	if r.Err() != nil {
		return nil, r.Err()
	}

	tables := make(map[Tag][2]uint32, numTables)
	for i := 0; i < numTables; i++ {
		tag := r.Tag()
		r.U32() // checksum
		offset := r.U32()
		length := r.U32()
		if r.Err() != nil {
			return nil, r.Err()
		}
		if int(offset) > len(data) || int(offset)+int(length) > len(data) {
			continue // skip a table record pointing out of bounds rather than fail the whole font
		}
		tables[tag] = [2]uint32{offset, length}
	}

	return &SFNT{data: data, tables: tables}, nil
}

// Table returns the raw bytes of tag, or nil if the font has no such table.
// This satisfies the tableGetter interface font.Parse consumes.
func (s *SFNT) Table(tag Tag) []byte {
	rec, ok := s.tables[tag]
	if !ok {
		return nil
	}
	return s.data[rec[0] : rec[0]+rec[1]]
}

// Tags returns every table tag this font declares, in no particular order.
func (s *SFNT) Tags() []Tag {
	tags := make([]Tag, 0, len(s.tables))
	for t := range s.tables {
		tags = append(tags, t)
	}
	return tags
}
