package harfbuzz

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/wiedymi/otshape/fontscan"
	"github.com/wiedymi/otshape/language"
)

// ported from src/hb-shape-plan.cc (shape plan caching; Copyright © 2012
// Google, Inc. Behdad Esfahbod) and the boxesandglue fontscan package's
// rune-coverage digest, exposed here through CoversScript and CoversRune;
// Plan and Shape do not consult it.

// PlanCache compiles and reuses otShapePlans across Shape calls made against
// the same face under the same segment properties and feature list (§4.G):
// building a plan walks every Script/LangSys record a face's GSUB and GPOS
// carry, so a caller re-shaping the same faces run after run (the normal
// case for a text layout engine) should not pay that cost on every call.
// The zero value is not usable; use NewPlanCache. A *PlanCache is safe for
// concurrent use.
type PlanCache struct {
	mu      sync.Mutex
	plans   map[planCacheKey]*shaperOpentype
	runes   map[*Face]fontscan.RuneSet
	scripts map[*Face]fontscan.ScriptSet
}

// NewPlanCache returns an empty plan cache.
func NewPlanCache() *PlanCache {
	return &PlanCache{
		plans:   map[planCacheKey]*shaperOpentype{},
		runes:   map[*Face]fontscan.RuneSet{},
		scripts: map[*Face]fontscan.ScriptSet{},
	}
}

type planCacheKey struct {
	face     *Face
	script   language.Script
	lang     language.Language
	dir      Direction
	features string
}

// coverage returns (and memoizes) face's rune/script coverage digest.
func (c *PlanCache) coverage(face *Face) (fontscan.RuneSet, fontscan.ScriptSet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if runes, ok := c.runes[face]; ok {
		return runes, c.scripts[face]
	}
	runes, scripts := fontscan.Coverage(face.Cmap)
	c.runes[face] = runes
	c.scripts[face] = scripts
	return runes, scripts
}

// CoversScript reports whether face's cmap maps any rune of script, computing
// and caching face's coverage digest on first use. shaping.Shape does not
// call it: it shapes every run with the single face of its Input.
func (c *PlanCache) CoversScript(face *Face, script language.Script) bool {
	if face.Cmap == nil {
		return true
	}
	_, scripts := c.coverage(face)
	return scripts.Contains(script)
}

// CoversRune reports whether face's cmap maps r, using the same cached
// coverage digest as CoversScript.
func (c *PlanCache) CoversRune(face *Face, r rune) bool {
	if face.Cmap == nil {
		return true
	}
	runes, _ := c.coverage(face)
	return runes.Contains(r)
}

// Plan returns the compiled shape plan for (face, props, features),
// compiling and caching it on first use.
func (c *PlanCache) Plan(face *Face, props SegmentProperties, features []Feature) *shaperOpentype {
	key := planCacheKey{face: face, script: props.Script, lang: props.Language, dir: props.Direction, features: featureCacheKey(features)}

	c.mu.Lock()
	if sp, ok := c.plans[key]; ok {
		c.mu.Unlock()
		return sp
	}
	c.mu.Unlock()

	sp := &shaperOpentype{}
	sp.init(&face.Font, face.VarCoords())
	sp.compile(props, features)

	c.mu.Lock()
	c.plans[key] = sp
	c.mu.Unlock()
	return sp
}

// featureCacheKey folds a feature list into the part of a plan cache key
// that actually affects otMapBuilder.compile: each feature's tag, value, and
// whether it applies globally (Start/End spanning the whole buffer) versus
// to a sub-range — collectFeatures registers a range-scoped feature with
// ffNone instead of ffGLOBAL but is otherwise insensitive to the exact
// range, so the range bounds themselves need not be part of the key.
func featureCacheKey(features []Feature) string {
	sorted := append([]Feature(nil), features...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Tag != sorted[j].Tag {
			return sorted[i].Tag < sorted[j].Tag
		}
		return sorted[i].Value < sorted[j].Value
	})
	var b strings.Builder
	for _, f := range sorted {
		global := f.Start == FeatureGlobalStart && f.End == FeatureGlobalEnd
		fmt.Fprintf(&b, "%08x:%08x:%v;", uint32(f.Tag), f.Value, global)
	}
	return b.String()
}

// Shape runs the full OpenType/AAT shaping pipeline over buffer using the
// plan cache's compiled plan for (font.Face(), buffer.Props, features),
// compiling one if this is the first time these segment properties and
// features have been shaped against this face.
func (c *PlanCache) Shape(font *Font, buffer *Buffer, features []Feature) {
	sp := c.Plan(font.Face(), buffer.Props, features)
	sp.shape(font, buffer, features)
}
