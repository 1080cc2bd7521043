// Package mapping resolves human-readable bank and insurer names to the
// canonical lowercase-ASCII identifiers used in cache keys and list outputs.
//
// Resolution is exact-match first against a fixed mapping table; unmapped
// names fall back to a deterministic transliteration (lowercased, separators
// removed, Cyrillic transliterated to Latin). The fallback is stable and
// idempotent: the same name always yields the same identifier across calls
// and across process restarts.
package mapping

import (
	"strings"

	"github.com/gosimple/slug"
)

// Transliterate converts a display name to a lowercase ASCII identifier with
// all separators removed. Empty input yields an empty identifier.
func Transliterate(name string) string {
	if name == "" {
		return ""
	}
	return strings.ReplaceAll(slug.MakeLang(name, "ru"), "-", "")
}

// ResolveBank resolves a bank sheet title to its canonical identifier.
func ResolveBank(name string) string {
	if id, ok := bankNameMappings[name]; ok {
		return id
	}
	return Transliterate(name)
}

// ResolveCompany resolves an insurer column header to its canonical identifier.
func ResolveCompany(name string) string {
	if id, ok := companyNameMappings[name]; ok {
		return id
	}
	return Transliterate(name)
}
