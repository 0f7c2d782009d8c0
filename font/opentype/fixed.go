package opentype

import "golang.org/x/image/math/fixed"

// Device-table and variation-delta rounding is done in 26.6 fixed point,
// matching how golang.org/x/image represents sub-pixel font-unit quantities;
// reusing fixed.Int26_6 here instead of hand-rolled shift-and-round helpers
// keeps the rounding rule identical to the rest of the x/image-based stack.

// RoundDesignUnits rounds a fractional design-unit delta (as produced by a
// Device table or an ItemVariationStore) to the nearest integer using
// round-half-away-from-zero via fixed.Int26_6.
func RoundDesignUnits(v float32) int32 {
	f := fixed.Int26_6(v*64 + sign(v)*32)
	return int32(f / 64)
}

func sign(v float32) float32 {
	if v < 0 {
		return -1
	}
	return 1
}
