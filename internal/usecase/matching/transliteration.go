package matching

import (
	"strings"

	"github.com/johnquangdev/lesson-attribution/internal/domain/entities"
)

// TransliterationTable answers cross-script first-name equivalence
type TransliterationTable struct {
	hebrewToEnglish map[string]map[string]struct{}
	englishToHebrew map[string]map[string]struct{}
}

// NewTransliterationTable indexes entries in both directions. A nil or empty
// slice yields a table where nothing is equivalent.
func NewTransliterationTable(entries []entities.TransliterationEntry) *TransliterationTable {
	t := &TransliterationTable{
		hebrewToEnglish: make(map[string]map[string]struct{}),
		englishToHebrew: make(map[string]map[string]struct{}),
	}
	for _, e := range entries {
		he := strings.TrimSpace(e.HebrewName)
		if he == "" {
			continue
		}
		for _, v := range e.EnglishVariants {
			en := strings.ToLower(strings.TrimSpace(v))
			if en == "" {
				continue
			}
			addPair(t.hebrewToEnglish, he, en)
			addPair(t.englishToHebrew, en, he)
		}
	}
	return t
}

// Len reports the number of Hebrew names indexed
func (t *TransliterationTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.hebrewToEnglish)
}

// Equivalent reports whether a and b are registered spellings of the same name
// in different scripts. Same-script pairs are never equivalent here.
func (t *TransliterationTable) Equivalent(a, b string) bool {
	if t == nil || a == "" || b == "" {
		return false
	}
	a, b = strings.ToLower(a), strings.ToLower(b)
	if variants, ok := t.hebrewToEnglish[a]; ok {
		if _, hit := variants[b]; hit {
			return true
		}
	}
	if variants, ok := t.englishToHebrew[a]; ok {
		if _, hit := variants[b]; hit {
			return true
		}
	}
	return false
}

func addPair(index map[string]map[string]struct{}, key, value string) {
	set, ok := index[key]
	if !ok {
		set = make(map[string]struct{})
		index[key] = set
	}
	set[value] = struct{}{}
}
