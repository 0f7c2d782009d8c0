package harfbuzz

import (
	"github.com/wiedymi/otshape/font"
	ot "github.com/wiedymi/otshape/font/opentype"
	"github.com/wiedymi/otshape/font/opentype/tables"
	"github.com/wiedymi/otshape/language"
)

// Script/language/feature resolution against a GSUB or GPOS Layout table
// (§3 Script selection), shared by both tables via *font.Layout.
//
// ported from src/hb-ot-layout.cc (hb_ot_layout_table_select_script,
// hb_ot_layout_script_select_language, hb_ot_layout_language_get_required_feature,
// hb_ot_layout_language_find_feature) Copyright © 2007,2008,2009  Red Hat, Inc. Behdad Esfahbod

// newOTTagsFromScriptAndLanguage converts a script/language pair to the
// ordered list of OpenType tags to try for each, most specific first.
func newOTTagsFromScriptAndLanguage(script language.Script, lang language.Language) ([]ot.Tag, []ot.Tag) {
	return script.Tags(), lang.Tags()
}

// selectScript returns the index of the first scriptTags entry the layout
// table declares a Script record for, the chosen tag, and whether a
// non-default match was found (as opposed to falling back to "DFLT").
func selectScript(layout *font.Layout, scriptTags []ot.Tag) (int, tables.Tag, bool) {
	for _, tag := range scriptTags {
		for i, rec := range layout.ScriptList.Records {
			if rec.Tag == tag {
				return i, tag, tag != ot.MustNewTag("DFLT")
			}
		}
	}
	for i, rec := range layout.ScriptList.Records {
		if rec.Tag == ot.MustNewTag("DFLT") || rec.Tag == ot.MustNewTag("dflt") {
			return i, rec.Tag, false
		}
	}
	if len(layout.ScriptList.Records) > 0 {
		return 0, layout.ScriptList.Records[0].Tag, false
	}
	return NoScriptIndex, 0, false
}

// selectLanguage returns the LangSys index within scriptIndex's Script
// record matching the first of langTags found, or the script's
// DefaultLangSys (index DefaultLanguageIndex) if none match.
func selectLanguage(layout *font.Layout, scriptIndex int, langTags []ot.Tag) (int, tables.Tag) {
	if scriptIndex == NoScriptIndex || scriptIndex >= len(layout.ScriptList.Records) {
		return DefaultLanguageIndex, 0
	}
	script := layout.ScriptList.Records[scriptIndex].Script
	for _, tag := range langTags {
		for i, rec := range script.LangSysRecords {
			if rec.Tag == tag {
				return i, tag
			}
		}
	}
	return DefaultLanguageIndex, 0
}

func langSysFor(layout *font.Layout, scriptIndex, languageIndex int) (tables.LangSys, bool) {
	if scriptIndex == NoScriptIndex || scriptIndex >= len(layout.ScriptList.Records) {
		return tables.LangSys{}, false
	}
	script := layout.ScriptList.Records[scriptIndex].Script
	if languageIndex == DefaultLanguageIndex {
		if script.DefaultLangSys == nil {
			return tables.LangSys{}, false
		}
		return *script.DefaultLangSys, true
	}
	if languageIndex < 0 || languageIndex >= len(script.LangSysRecords) {
		return tables.LangSys{}, false
	}
	return script.LangSysRecords[languageIndex].LangSys, true
}

// getRequiredFeature returns the required-feature index (or NoFeatureIndex)
// declared by scriptIndex/languageIndex's LangSys, and its tag.
func getRequiredFeature(layout *font.Layout, scriptIndex, languageIndex int) (uint16, tables.Tag) {
	ls, ok := langSysFor(layout, scriptIndex, languageIndex)
	if !ok || ls.RequiredFeatureIndex == 0xFFFF {
		return NoFeatureIndex, 0
	}
	if int(ls.RequiredFeatureIndex) >= len(layout.FeatureList.Records) {
		return NoFeatureIndex, 0
	}
	return ls.RequiredFeatureIndex, layout.FeatureList.Records[ls.RequiredFeatureIndex].Tag
}

// findFeatureForLang returns the FeatureList index of tag among the
// features scriptIndex/languageIndex's LangSys enables, or NoFeatureIndex.
func findFeatureForLang(layout *font.Layout, scriptIndex, languageIndex int, tag ot.Tag) uint16 {
	ls, ok := langSysFor(layout, scriptIndex, languageIndex)
	if !ok {
		return NoFeatureIndex
	}
	for _, idx := range ls.FeatureIndices {
		if int(idx) < len(layout.FeatureList.Records) && layout.FeatureList.Records[idx].Tag == tag {
			return idx
		}
	}
	return NoFeatureIndex
}

// getFeatureLookupsWithVar returns the lookup-list indices a feature
// enables. variationsIndex selects a FeatureVariations substitution of the
// feature; feature variation substitution is out of scope (§ Non-goals:
// cross-lookup variable-font feature substitution), so variationsIndex is
// accepted for call-site symmetry with HarfBuzz and otherwise ignored.
func getFeatureLookupsWithVar(layout *font.Layout, featureIndex uint16, variationsIndex int) []uint16 {
	_ = variationsIndex
	if int(featureIndex) >= len(layout.FeatureList.Records) {
		return nil
	}
	return layout.FeatureList.Records[featureIndex].Feature.LookupListIndices
}
