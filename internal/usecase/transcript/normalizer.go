package transcript

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"

	"github.com/johnquangdev/lesson-attribution/pkg/lexicon"
)

var (
	// "Noa's iPhone", "Noa’s iPad (2)"
	possessiveDevice = regexp.MustCompile(`(?i)\s*['’‘` + "`" + `]s\s+(iphone|ipad|android|galaxy)\b.*$`)
	// "ה-iPhone של דני", "האייפון של דני"
	localizedDevice = regexp.MustCompile(`(?i)^(?:ה-?\s*)?(iphone|ipad|אייפון|אייפד)\s+של\s+`)
	// Phone numbers masquerading as names
	leadingPhone = regexp.MustCompile(`^\d{10,}\s*`)
	asciiName    = regexp.MustCompile(`^[A-Za-z ]+$`)

	invisibleRemover = runes.Remove(runes.Predicate(isInvisible))
)

// isInvisible matches BOMs, zero-width characters and bidi controls
func isInvisible(r rune) bool {
	switch r {
	case '\uFEFF', '\u200B', '\u200C', '\u200D', '\u200E', '\u200F', '\u2060', '\u061C':
		return true
	}
	return (r >= '\u202A' && r <= '\u202E') || (r >= '\u2066' && r <= '\u2069')
}

// Normalizer turns a raw speaker label into a stable identity key
type Normalizer struct {
	teacherSuffix *regexp.Regexp
}

// NewNormalizer creates a normalizer using the lexicon's teacher suffix pattern
func NewNormalizer(lx *lexicon.Lexicon) *Normalizer {
	return &Normalizer{teacherSuffix: lx.TeacherSuffix()}
}

// Normalize runs the label cleanup pipeline. An empty result means no
// attribution is possible for the label.
func (n *Normalizer) Normalize(label string) string {
	s := StripInvisible(label)

	if n.teacherSuffix != nil {
		s = n.teacherSuffix.ReplaceAllString(s, "")
	}

	s = possessiveDevice.ReplaceAllString(s, "")
	s = localizedDevice.ReplaceAllString(s, "")
	s = leadingPhone.ReplaceAllString(s, "")

	s = strings.Join(strings.Fields(s), " ")

	// Latin-script names only; Hebrew has no case
	if s != "" && asciiName.MatchString(s) {
		s = cases.Title(language.Und).String(s)
	}
	return s
}

// StripInvisible removes BOMs, zero-width characters and bidi controls
func StripInvisible(s string) string {
	out, _, err := transform.String(invisibleRemover, s)
	if err != nil {
		return s
	}
	return out
}
