// Package lang validates language codes and converts them to the forms the
// word aligners expect: ISO 639-1 base codes for OpenAI and WhisperX, BCP-47
// tags with a region for Google Speech-to-Text.
package lang

import (
	"fmt"
	"strings"
)

// validLanguages lists the ISO 639-1 codes accepted by every aligner backend.
var validLanguages = map[string]bool{
	"af": true, "ar": true, "bg": true, "bn": true, "ca": true, "cs": true,
	"da": true, "de": true, "el": true, "en": true, "es": true, "et": true,
	"fa": true, "fi": true, "fr": true, "gu": true, "he": true, "hi": true,
	"hr": true, "hu": true, "id": true, "it": true, "ja": true, "kn": true,
	"ko": true, "lt": true, "lv": true, "mk": true, "ml": true, "mr": true,
	"ms": true, "nl": true, "no": true, "pa": true, "pl": true, "pt": true,
	"ro": true, "ru": true, "sk": true, "sl": true, "sr": true, "sv": true,
	"sw": true, "ta": true, "te": true, "th": true, "tl": true, "tr": true,
	"uk": true, "ur": true, "vi": true, "zh": true,
}

// defaultRegions picks the region Google Speech-to-Text uses when only a
// base code is configured. Codes not listed fall back to their upper-cased
// base ("fr" becomes "fr-FR").
var defaultRegions = map[string]string{
	"en": "US",
	"ar": "SA",
	"da": "DK",
	"el": "GR",
	"et": "EE",
	"fa": "IR",
	"he": "IL",
	"hi": "IN",
	"ja": "JP",
	"ko": "KR",
	"ms": "MY",
	"sl": "SI",
	"sr": "RS",
	"sv": "SE",
	"sw": "KE",
	"uk": "UA",
	"ur": "PK",
	"vi": "VN",
	"zh": "CN",
	"cs": "CZ",
	"bn": "BD",
	"ca": "ES",
	"gu": "IN",
	"kn": "IN",
	"ml": "IN",
	"mr": "IN",
	"pa": "IN",
	"ta": "IN",
	"te": "IN",
	"tl": "PH",
	"af": "ZA",
	"no": "NO",
}

// Normalize lower-cases a code and uses hyphens as separators.
// "pt_BR", "PT-BR" and "pt-br" all become "pt-br".
func Normalize(code string) string {
	return strings.ToLower(strings.ReplaceAll(code, "_", "-"))
}

// Validate checks a code. Empty is valid and means "backend default".
func Validate(code string) error {
	if code == "" {
		return nil
	}
	if !validLanguages[BaseCode(code)] {
		return fmt.Errorf("invalid language code %q (use ISO 639-1 codes like 'en', 'fr', 'pt-BR'): %w",
			code, ErrInvalid)
	}
	return nil
}

// BaseCode returns the ISO 639-1 part of a code: "pt-BR" gives "pt".
func BaseCode(code string) string {
	base, _, _ := strings.Cut(Normalize(code), "-")
	return base
}

// BCP47 returns a language-REGION tag. A region in the input is kept;
// otherwise a default region is chosen. Empty input gives "en-US".
func BCP47(code string) string {
	if code == "" {
		return "en-US"
	}
	base, rest, hasRegion := strings.Cut(Normalize(code), "-")
	if hasRegion && rest != "" {
		// Keep the last subtag as the region: "zh-hans-cn" gives "zh-CN".
		parts := strings.Split(rest, "-")
		return base + "-" + strings.ToUpper(parts[len(parts)-1])
	}
	if region, ok := defaultRegions[base]; ok {
		return base + "-" + region
	}
	return base + "-" + strings.ToUpper(base)
}
