// Package language owns the viewer's display-language preference and the
// selectable language catalog.
package language

import (
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Language is one selectable language.
type Language struct {
	Code string `json:"code"` // ISO 639-1
	Name string `json:"name"` // English display name
}

// commonCodes are presented first in the catalog, in this order.
var commonCodes = []string{"en", "es", "fr", "de", "zh", "ja", "ru", "ar", "hi", "pt"}

// catalogCodes is the full set of selectable ISO 639-1 codes.
var catalogCodes = []string{
	"af", "am", "ar", "az", "be", "bg", "bn", "bs", "ca", "cs",
	"cy", "da", "de", "el", "en", "es", "et", "eu", "fa", "fi",
	"fr", "ga", "gl", "gu", "he", "hi", "hr", "hu", "hy", "id",
	"is", "it", "ja", "ka", "kk", "km", "kn", "ko", "ky", "lo",
	"lt", "lv", "mk", "ml", "mn", "mr", "ms", "my", "ne", "nl",
	"no", "pa", "pl", "pt", "ro", "ru", "si", "sk", "sl", "sq",
	"sr", "sv", "sw", "ta", "te", "th", "tr", "uk", "ur", "uz",
	"vi", "zh", "zu",
}

// Name returns the English display name for an ISO 639-1 code, or the code
// itself when it cannot be resolved.
func Name(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return code
}

// All returns the catalog: common languages first in a fixed priority order,
// then the remainder alphabetically by display name.
func All() []Language {
	common := make(map[string]int, len(commonCodes))
	for i, c := range commonCodes {
		common[c] = i
	}

	langs := make([]Language, 0, len(catalogCodes))
	for _, code := range catalogCodes {
		langs = append(langs, Language{Code: code, Name: Name(code)})
	}

	sort.Slice(langs, func(i, j int) bool {
		pi, iCommon := common[langs[i].Code]
		pj, jCommon := common[langs[j].Code]
		if iCommon && jCommon {
			return pi < pj
		}
		if iCommon != jCommon {
			return iCommon
		}
		return langs[i].Name < langs[j].Name
	})
	return langs
}

// Filter returns catalog entries whose name or code contains the query,
// case-insensitively. An empty query returns the full catalog.
func Filter(query string) []Language {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return All()
	}
	var out []Language
	for _, l := range All() {
		if strings.Contains(strings.ToLower(l.Name), query) ||
			strings.Contains(strings.ToLower(l.Code), query) {
			out = append(out, l)
		}
	}
	return out
}
