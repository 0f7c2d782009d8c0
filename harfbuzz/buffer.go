package harfbuzz

import (
	"github.com/wiedymi/otshape/language"
)

// ported from src/hb-buffer.hh, hb-buffer.cc Copyright © 1998-2004  David Turner and Werner Lemberg; 2004,2007,2009,2010  Red Hat, Inc.; 2011,2012  Google, Inc.  Behdad Esfahbod

// Direction is the text flow direction a segment is shaped in.
type Direction uint8

const (
	LeftToRight Direction = iota + 1
	RightToLeft
	TopToBottom
	BottomToTop
)

func (d Direction) isHorizontal() bool { return d == LeftToRight || d == RightToLeft }
func (d Direction) isVertical() bool   { return d == TopToBottom || d == BottomToTop }
func (d Direction) isForward() bool    { return d == LeftToRight || d == TopToBottom }
func (d Direction) isBackward() bool   { return d == RightToLeft || d == BottomToTop }

// BufferFlags are caller-set options affecting how shaping treats the
// buffer as a whole, rather than a single feature.
type BufferFlags uint32

const (
	PreserveDefaultIgnorables BufferFlags = 1 << iota
	RemoveDefaultIgnorables
	ProduceSafeToInsertTatweel
	ProduceUnsafeToConcat
)

// bufferScratchFlags are internal bookkeeping bits set while computing
// Unicode properties, consulted by later shaping stages to skip whole
// passes cheaply (e.g. no default-ignorables seen, nothing to zero-width).
type bufferScratchFlags uint32

const (
	bsfDefault bufferScratchFlags = 0
	bsfHasNonASCII bufferScratchFlags = 1 << (iota - 1)
	bsfHasDefaultIgnorables
	bsfHasSpaceFallback
	bsfHasGlyphFlags
	bsfHasGPOSAttachment
)

// SegmentProperties describes the script, language and direction a run of
// text is shaped under (§2 input model).
type SegmentProperties struct {
	Direction Direction
	Script    language.Script
	Language  language.Language
}

// Buffer holds one run's input codepoints, on output its shaped glyphs and
// positions. Shaping mutates Info/Pos through two parallel arrays (Info and
// a scratch outInfo) the way hb_buffer_t does: GSUB builds a fresh glyph
// stream into outInfo while walking Info, then swaps; GPOS and AAT state
// machines edit Info/outInfo in place.
type Buffer struct {
	Info []GlyphInfo
	Pos  []GlyphPosition

	Flags BufferFlags
	Props SegmentProperties

	// Invisible is the glyph substituted for default-ignorable codepoints
	// when Flags doesn't ask to preserve or remove them outright (zero
	// value means "real .notdef", i.e. don't special-case them).
	Invisible GID

	outInfo []GlyphInfo
	idx     int

	haveOutput   bool
	scratchFlags bufferScratchFlags
	serial       uint8

	maxLen int
	maxOps int
}

// NewBuffer returns an empty buffer ready for AddRunes.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Reset clears a buffer's content while keeping its flags, ready for reuse
// on the next run.
func (b *Buffer) Reset() {
	b.Info = b.Info[:0]
	b.Pos = b.Pos[:0]
	b.outInfo = b.outInfo[:0]
	b.idx = 0
	b.haveOutput = false
	b.scratchFlags = bsfDefault
	b.Props = SegmentProperties{}
}

// AddRunes appends text to the buffer, one GlyphInfo per rune, its Cluster
// set to its rune offset plus clusterBase (the usual convention for
// concatenating runs: pass the running byte/rune offset of the run within
// the paragraph).
func (b *Buffer) AddRunes(text []rune, clusterBase int) {
	for i, r := range text {
		b.Info = append(b.Info, GlyphInfo{codepoint: r, Cluster: clusterBase + i})
	}
}

// GuessSegmentProperties fills in Script/Direction from the buffer's first
// strong character when the caller hasn't set them, mirroring
// hb_buffer_guess_segment_properties.
func (b *Buffer) GuessSegmentProperties() {
	if b.Props.Script == language.Common || b.Props.Script == 0 {
		for _, info := range b.Info {
			if s := language.LookupScript(info.codepoint); s != language.Common && s != language.Inherited {
				b.Props.Script = s
				break
			}
		}
	}
	if b.Props.Direction == 0 {
		if b.Props.Script.IsRightToLeft() {
			b.Props.Direction = RightToLeft
		} else {
			b.Props.Direction = LeftToRight
		}
	}
}

func (b *Buffer) cur(n int) *GlyphInfo    { return &b.Info[b.idx+n] }
func (b *Buffer) curPos(n int) *GlyphPosition { return &b.Pos[b.idx+n] }

func (b *Buffer) backtrackLen() int {
	if b.haveOutput {
		return len(b.outInfo)
	}
	return b.idx
}

func (b *Buffer) lookaheadLen() int { return len(b.Info) - b.idx }

func (b *Buffer) clearOutput() {
	b.haveOutput = true
	b.outInfo = b.outInfo[:0]
}

func (b *Buffer) clearPositions() {
	b.Pos = make([]GlyphPosition, len(b.Info))
}

// nextGlyph copies the current input glyph to the output stream and
// advances past it.
func (b *Buffer) nextGlyph() {
	if b.haveOutput {
		b.outInfo = append(b.outInfo, b.Info[b.idx])
	}
	b.idx++
}

// copyGlyph copies the current input glyph to the output stream without
// advancing past it (used when an insertion must land before it).
func (b *Buffer) copyGlyph() {
	b.outInfo = append(b.outInfo, b.Info[b.idx])
}

// skipGlyph drops the current input glyph from the output stream entirely
// and advances past it.
func (b *Buffer) skipGlyph() { b.idx++ }

// deleteGlyph drops the current glyph, merging its cluster into a
// neighbour so cluster boundaries survive the deletion.
func (b *Buffer) deleteGlyph() {
	cluster := b.Info[b.idx].Cluster
	switch {
	case b.idx+1 < len(b.Info) && cluster == b.Info[b.idx+1].Cluster:
		// Cluster survives via the next glyph; nothing to merge.
	case len(b.outInfo) > 0:
		if cluster < b.outInfo[len(b.outInfo)-1].Cluster {
			b.outInfo[len(b.outInfo)-1].Cluster = cluster
		}
	case b.idx+1 < len(b.Info):
		b.mergeClusters(b.idx, b.idx+2)
	}
	b.skipGlyph()
}

// replaceGlyphIndex overwrites the current input glyph's id in place,
// without touching the output stream or advancing.
func (b *Buffer) replaceGlyphIndex(g GID) { b.Info[b.idx].Glyph = g }

// outputGlyph appends a new glyph to the output stream derived from the
// current input glyph's cluster/mask/ligature bookkeeping, without
// consuming the input glyph (used for one-to-many substitutions).
func (b *Buffer) outputGlyph(glyphID GID) *GlyphInfo {
	info := b.Info[b.idx]
	info.Glyph = glyphID
	b.outInfo = append(b.outInfo, info)
	return &b.outInfo[len(b.outInfo)-1]
}

func (b *Buffer) outputGlyphForComponent(glyphID GID, class uint16) {
	info := b.outputGlyph(glyphID)
	info.glyphProps |= class
}

// replaceGlyphs consumes numIn input glyphs starting at idx and emits
// glyphIDs in their place, defaulting their cluster to the first consumed
// input glyph's unless clusters supplies one per output glyph.
func (b *Buffer) replaceGlyphs(numIn int, clusters []int, glyphIDs []GID) {
	base := b.Info[b.idx]
	for i, g := range glyphIDs {
		info := base
		info.Glyph = g
		if clusters != nil {
			info.Cluster = clusters[i]
		}
		b.outInfo = append(b.outInfo, info)
	}
	b.idx += numIn
}

// deleteGlyphsInplace removes every glyph pred matches, compacting Info
// (and Pos, if already allocated) in place.
func (b *Buffer) deleteGlyphsInplace(pred func(*GlyphInfo) bool) {
	j := 0
	hasPos := len(b.Pos) == len(b.Info)
	for i := range b.Info {
		if pred(&b.Info[i]) {
			continue
		}
		if j != i {
			b.Info[j] = b.Info[i]
			if hasPos {
				b.Pos[j] = b.Pos[i]
			}
		}
		j++
	}
	b.Info = b.Info[:j]
	if hasPos {
		b.Pos = b.Pos[:j]
	}
}

// moveTo repositions the logical cursor to position i of the combined
// outInfo+Info[idx:] stream, shuffling glyphs between the two slices as
// needed. Used by AAT state-machine actions (ligature/insertion) that must
// rewrite glyphs behind the current position.
func (b *Buffer) moveTo(i int) {
	if !b.haveOutput {
		if i > len(b.Info) {
			i = len(b.Info)
		}
		b.idx = i
		return
	}
	total := len(b.outInfo) + (len(b.Info) - b.idx)
	if i > total {
		i = total
	}
	if i < 0 {
		i = 0
	}
	switch {
	case len(b.outInfo) < i:
		for len(b.outInfo) < i {
			b.outInfo = append(b.outInfo, b.Info[b.idx])
			b.idx++
		}
	case len(b.outInfo) > i:
		count := len(b.outInfo) - i
		moved := append([]GlyphInfo(nil), b.outInfo[i:]...)
		rest := append([]GlyphInfo(nil), b.Info[b.idx:]...)
		newInfo := make([]GlyphInfo, 0, (b.idx-count)+len(moved)+len(rest))
		newInfo = append(newInfo, b.Info[:b.idx-count]...)
		newInfo = append(newInfo, moved...)
		newInfo = append(newInfo, rest...)
		b.Info = newInfo
		b.idx -= count
		b.outInfo = b.outInfo[:i]
	}
}

// swapBuffers finishes a clearOutput pass: the freshly built output
// replaces Info, and the old Info storage is recycled as the next scratch
// outInfo.
func (b *Buffer) swapBuffers() {
	b.Info, b.outInfo = b.outInfo, b.Info[:0]
	b.idx = 0
}

// Reverse reverses the whole buffer (glyphs and, once allocated,
// positions), used both to flip into native shaping order and, at the end
// of shaping, back into visual order for backward directions.
func (b *Buffer) Reverse() { b.reverseRange(0, len(b.Info)) }

func (b *Buffer) reverseRange(start, end int) {
	for i, j := start, end-1; i < j; i, j = i+1, j-1 {
		b.Info[i], b.Info[j] = b.Info[j], b.Info[i]
		if len(b.Pos) == len(b.Info) {
			b.Pos[i], b.Pos[j] = b.Pos[j], b.Pos[i]
		}
	}
}

// mergeClusters forces Info[start:end) to share the smallest cluster value
// among them and the union of their defined glyph-flag bits, so later
// consumers can't observe a break inside a substitution's input.
func (b *Buffer) mergeClusters(start, end int) {
	if end-start < 2 || end > len(b.Info) {
		return
	}
	cluster := b.Info[start].Cluster
	var mask GlyphMask
	for i := start; i < end; i++ {
		if b.Info[i].Cluster < cluster {
			cluster = b.Info[i].Cluster
		}
		mask |= b.Info[i].Mask & glyphFlagDefined
	}
	for i := start; i < end; i++ {
		b.Info[i].Cluster = cluster
		b.Info[i].Mask = (b.Info[i].Mask &^ glyphFlagDefined) | mask
	}
}

// mergeOutClusters is mergeClusters over the scratch output stream, used
// mid-substitution before the final swapBuffers.
func (b *Buffer) mergeOutClusters(start, end int) {
	if end-start < 2 || end > len(b.outInfo) {
		return
	}
	cluster := b.outInfo[start].Cluster
	for i := start; i < end; i++ {
		if b.outInfo[i].Cluster < cluster {
			cluster = b.outInfo[i].Cluster
		}
	}
	for i := start; i < end; i++ {
		b.outInfo[i].Cluster = cluster
	}
}

// setMasks sets the bits selected by mask to value's bits in every glyph's
// Mask between [start, end), the mechanism user features use to scope
// themselves to a slice of the text.
func (b *Buffer) setMasks(value, mask GlyphMask, start, end int) {
	if start < 0 {
		start = 0
	}
	if end > len(b.Info) {
		end = len(b.Info)
	}
	if mask == 0 {
		return
	}
	for i := start; i < end; i++ {
		b.Info[i].Mask = (b.Info[i].Mask &^ mask) | (value & mask)
	}
}

func (b *Buffer) resetMasks(mask GlyphMask) {
	for i := range b.Info {
		b.Info[i].Mask = mask
	}
}

func (b *Buffer) unsafeToBreak(start, end int) {
	b.unsafeToBreakImpl(start, end, GlyphUnsafeToBreak|GlyphUnsafeToConcat)
}

func (b *Buffer) unsafeToConcat(start, end int) {
	if b.Flags&ProduceUnsafeToConcat == 0 {
		return
	}
	b.unsafeToBreakImpl(start, end, GlyphUnsafeToConcat)
}

func (b *Buffer) unsafeToBreakImpl(start, end int, flags GlyphMask) {
	if end > len(b.Info) {
		end = len(b.Info)
	}
	if end-start < 2 {
		return
	}
	b.scratchFlags |= bsfHasGlyphFlags
	for i := start; i < end; i++ {
		b.Info[i].Mask |= flags
	}
}

// unsafeToBreakFromOutbuffer/unsafeToConcatFromOutbuffer apply the same
// marking when the range straddles the already-built output stream and the
// not-yet-consumed input, addressed as one logical outInfo+Info[idx:] run.
func (b *Buffer) unsafeToBreakFromOutbuffer(start, end int) {
	b.fromOutbufferImpl(start, end, GlyphUnsafeToBreak|GlyphUnsafeToConcat, true)
}

func (b *Buffer) unsafeToConcatFromOutbuffer(start, end int) {
	b.fromOutbufferImpl(start, end, GlyphUnsafeToConcat, b.Flags&ProduceUnsafeToConcat != 0)
}

func (b *Buffer) fromOutbufferImpl(start, end int, flags GlyphMask, enabled bool) {
	if !enabled {
		return
	}
	if !b.haveOutput {
		b.unsafeToBreakImpl(start, end, flags)
		return
	}
	total := len(b.outInfo) + (len(b.Info) - b.idx)
	if end > total {
		end = total
	}
	if end-start < 2 {
		return
	}
	b.scratchFlags |= bsfHasGlyphFlags
	for i := start; i < end; i++ {
		if i < len(b.outInfo) {
			b.outInfo[i].Mask |= flags
		} else if j := b.idx + (i - len(b.outInfo)); j < len(b.Info) {
			b.Info[j].Mask |= flags
		}
	}
}

func (b *Buffer) allocateLigID() uint8 {
	b.serial++
	if b.serial == 0 {
		b.serial++
	}
	return b.serial
}

func (b *Buffer) digest() setDigest {
	var d setDigest
	for i := range b.Info {
		d.add(gID(b.Info[i].Glyph))
	}
	return d
}

// setUnicodeProps fills in every glyph's Unicode classification ahead of
// clustering/normalization, the first thing shaping does to raw input.
func (b *Buffer) setUnicodeProps() {
	for i := range b.Info {
		b.Info[i].setUnicodeProps(b)
	}
}

// formClusters merges grapheme-continuation codepoints (combining marks
// and the like) into their base character's cluster, so a later break
// can't split a user-perceived character.
func (b *Buffer) formClusters() {
	if b.scratchFlags&bsfHasNonASCII == 0 {
		return
	}
	for i := 1; i < len(b.Info); i++ {
		if b.Info[i].isContinuation() {
			b.mergeClusters(i-1, i+1)
		}
	}
}

// ensureNativeDirection flips a backward (RTL/BTT) buffer into the order
// the GSUB/GPOS/AAT state machines assume: forward traversal through
// what's visually the end of the line first. otContext.position reverses
// it back once positioning is done.
func (b *Buffer) ensureNativeDirection() {
	if b.Props.Direction.isBackward() {
		b.Reverse()
	}
}

// insertDottedCircle prepends a dotted-circle placeholder (U+25CC) when
// text opens with a combining mark and the font carries that glyph,
// mirroring how HarfBuzz makes isolated/malformed mark sequences visible
// instead of silently misplacing them.
func (b *Buffer) insertDottedCircle(font *Font) {
	if len(b.Info) == 0 || !b.Info[0].isUnicodeMark() {
		return
	}
	gid, ok := font.Face().NominalGlyph(0x25CC)
	if !ok {
		return
	}
	dotted := GlyphInfo{codepoint: 0x25CC, Glyph: gid, Cluster: b.Info[0].Cluster}
	dotted.setUnicodeProps(b)
	b.Info = append([]GlyphInfo{dotted}, b.Info...)
}

// bufferIterator walks Info in maximal runs sharing some equivalence
// (same cluster, same syllable, same grapheme) one group at a time.
type bufferIterator struct {
	info  []GlyphInfo
	start int
	same  func(first, other *GlyphInfo) bool
}

func (it *bufferIterator) next() (start, end int) {
	if it.start >= len(it.info) {
		return len(it.info), len(it.info)
	}
	start = it.start
	end = start + 1
	for end < len(it.info) && it.same(&it.info[start], &it.info[end]) {
		end++
	}
	it.start = end
	return start, end
}

func (b *Buffer) clusterIterator() (bufferIterator, int) {
	return bufferIterator{info: b.Info, same: func(a, bb *GlyphInfo) bool { return a.Cluster == bb.Cluster }}, len(b.Info)
}

func (b *Buffer) syllableIterator() (bufferIterator, int) {
	return bufferIterator{info: b.Info, same: func(a, bb *GlyphInfo) bool { return a.syllable == bb.syllable }}, len(b.Info)
}

func (b *Buffer) graphemesIterator() (bufferIterator, int) {
	return bufferIterator{info: b.Info, same: func(_, bb *GlyphInfo) bool { return bb.isContinuation() }}, len(b.Info)
}
