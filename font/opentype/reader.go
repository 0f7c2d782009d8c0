package opentype

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrBadOffset is returned whenever a read would walk past the end of the
// buffer backing a Loader (§7 BadOffset). There are no partial reads: a read
// either fully succeeds or the cursor's error sticks.
var ErrBadOffset = errors.New("opentype: offset out of bounds")

// Loader is a bounds-checked, big-endian cursor over a borrowed byte slice.
// It never copies the underlying bytes: SubLoader produces an independent
// cursor over the same backing array.
//
// Every Loader remembers the first error it hit; once an error has occurred
// all further reads are no-ops returning the zero value, so call chains do
// not need to check the error after every single read - check once at the
// end with Err.
type Loader struct {
	data []byte
	pos  int
	err  error
}

// NewLoader wraps data for reading; it does not copy data.
func NewLoader(data []byte) *Loader { return &Loader{data: data} }

// Err returns the first error encountered by this Loader, if any.
func (r *Loader) Err() error { return r.err }

// Pos returns the current read offset, in bytes, from the start of data.
func (r *Loader) Pos() int { return r.pos }

// Len returns the total length of the underlying buffer.
func (r *Loader) Len() int { return len(r.data) }

// Seek moves the cursor to an absolute offset; it fails if offset is out of
// range.
func (r *Loader) Seek(offset int) {
	if r.err != nil {
		return
	}
	if offset < 0 || offset > len(r.data) {
		r.err = fmt.Errorf("%w: seek to %d (len %d)", ErrBadOffset, offset, len(r.data))
		return
	}
	r.pos = offset
}

func (r *Loader) need(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.pos+n > len(r.data) || n < 0 {
		r.err = fmt.Errorf("%w: need %d bytes at %d (len %d)", ErrBadOffset, n, r.pos, len(r.data))
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

// U8 reads one byte.
func (r *Loader) U8() uint8 {
	b := r.need(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// I8 reads one signed byte.
func (r *Loader) I8() int8 { return int8(r.U8()) }

// U16 reads a big-endian uint16.
func (r *Loader) U16() uint16 {
	b := r.need(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

// I16 reads a big-endian int16.
func (r *Loader) I16() int16 { return int16(r.U16()) }

// U24 reads a big-endian 24-bit unsigned integer.
func (r *Loader) U24() uint32 {
	b := r.need(3)
	if b == nil {
		return 0
	}
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

// U32 reads a big-endian uint32.
func (r *Loader) U32() uint32 {
	b := r.need(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

// I32 reads a big-endian int32.
func (r *Loader) I32() int32 { return int32(r.U32()) }

// Tag reads a 4-byte Tag.
func (r *Loader) Tag() Tag { return Tag(r.U32()) }

// F2Dot14 reads a 2.14 fixed-point value used pervasively by variable-font
// tables (normalized coordinates, device deltas).
func (r *Loader) F2Dot14() float32 { return float32(r.I16()) / (1 << 14) }

// Fixed reads a 16.16 fixed-point value (used by `head.fontRevision` etc.)
func (r *Loader) Fixed() float32 { return float32(r.I32()) / (1 << 16) }

// Bytes reads n raw bytes without interpreting them.
func (r *Loader) Bytes(n int) []byte { return r.need(n) }

// SubLoader returns an independent cursor positioned at base+offset within
// the same backing array; it never copies bytes. offset is relative to the
// start of the full buffer (base must be supplied by the caller for
// table-relative offsets, which is the overwhelmingly common case in
// OpenType: pass 0 for an absolute offset).
func (r *Loader) SubLoader(base, offset int) *Loader {
	if r.err != nil {
		return &Loader{err: r.err}
	}
	start := base + offset
	if start < 0 || start > len(r.data) {
		return &Loader{err: fmt.Errorf("%w: sub-loader at %d (len %d)", ErrBadOffset, start, len(r.data))}
	}
	return &Loader{data: r.data[start:]}
}

// View returns the n bytes starting at offset (relative to the start of the
// whole buffer) without moving the cursor; used to hand a table its own byte
// range for lazy dereferencing.
func (r *Loader) View(offset, n int) ([]byte, error) {
	if offset < 0 || n < 0 || offset+n > len(r.data) {
		return nil, fmt.Errorf("%w: view [%d:%d] (len %d)", ErrBadOffset, offset, offset+n, len(r.data))
	}
	return r.data[offset : offset+n], nil
}
