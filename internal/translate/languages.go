// Package translate forks drafts into sibling drafts in other languages.
package translate

import (
	"fmt"
	"sort"

	"github.com/jonesrussell/newsroom/internal/domain"
)

// languageNames maps the supported NLLB language codes to display names.
var languageNames = map[string]string{
	"eng_Latn": "English",
	"hin_Deva": "Hindi",
	"ben_Beng": "Bengali",
	"spa_Latn": "Spanish",
	"fra_Latn": "French",
	"deu_Latn": "German",
	"arb_Arab": "Arabic",
	"zho_Hans": "Chinese (Simplified)",
	"jpn_Jpan": "Japanese",
	"por_Latn": "Portuguese",
}

// SupportedLanguages returns the allowed NLLB codes in sorted order.
func SupportedLanguages() []string {
	codes := make([]string, 0, len(languageNames))
	for code := range languageNames {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// LanguageName returns the display name for a supported code.
func LanguageName(code string) (string, bool) {
	name, ok := languageNames[code]
	return name, ok
}

// ValidateLanguage rejects codes outside the allow-list.
func ValidateLanguage(code string) error {
	if _, ok := languageNames[code]; !ok {
		return fmt.Errorf("%w: unsupported language code %q", domain.ErrConfiguration, code)
	}
	return nil
}
