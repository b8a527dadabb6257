package grouplesson

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/johnquangdev/lesson-attribution/pkg/lexicon"
)

// SingingDetector flags turns that look like singing rather than speech
type SingingDetector struct {
	glyphs           []string
	verbs            map[string]struct{}
	syllableMaxRunes int
	minRepeats       int
}

// NewSingingDetector builds a detector from the lexicon's singing markers
func NewSingingDetector(m lexicon.SingingMarkers) *SingingDetector {
	verbs := make(map[string]struct{}, len(m.Verbs))
	for _, v := range m.Verbs {
		verbs[strings.ToLower(v)] = struct{}{}
	}
	return &SingingDetector{
		glyphs:           m.Glyphs,
		verbs:            verbs,
		syllableMaxRunes: m.SyllableMaxRunes,
		minRepeats:       m.MinRepeats,
	}
}

// IsSinging checks, in order: note glyphs, singing verbs, then a run of the
// same short syllable ("לה לה לה", "la-la-la").
func (d *SingingDetector) IsSinging(text string) bool {
	for _, g := range d.glyphs {
		if g != "" && strings.Contains(text, g) {
			return true
		}
	}

	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	for _, tok := range tokens {
		if _, ok := d.verbs[tok]; ok {
			return true
		}
	}

	run := 1
	for i := 1; i < len(tokens); i++ {
		if tokens[i] == tokens[i-1] && utf8.RuneCountInString(tokens[i]) <= d.syllableMaxRunes {
			run++
			if run >= d.minRepeats {
				return true
			}
			continue
		}
		run = 1
	}
	return false
}
