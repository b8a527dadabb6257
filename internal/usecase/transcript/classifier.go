package transcript

import (
	"strings"
	"unicode/utf8"

	"github.com/johnquangdev/lesson-attribution/internal/domain/entities"
	"github.com/johnquangdev/lesson-attribution/pkg/lexicon"
)

// Classifier labels normalized speakers as teacher, roster student or unknown
type Classifier struct {
	teacherNames []string
	roster       []string
}

// NewClassifier creates a classifier from the lexicon's teacher variants and group roster
func NewClassifier(lx *lexicon.Lexicon) *Classifier {
	return &Classifier{
		teacherNames: foldAll(lx.TeacherNames),
		roster:       foldAll(lx.GroupRoster),
	}
}

// Classify applies the cascade: teacher first, then roster student, else unknown
func (c *Classifier) Classify(label string) entities.SpeakerRole {
	switch {
	case c.IsTeacher(label):
		return entities.RoleTeacher
	case c.IsRosterStudent(label):
		return entities.RoleStudent
	default:
		return entities.RoleUnknown
	}
}

// IsTeacher reports whether label contains, or is contained by, a teacher variant
func (c *Classifier) IsTeacher(label string) bool {
	return matchesAny(strings.ToLower(label), c.teacherNames)
}

// IsRosterStudent reports whether label matches a known group first name
func (c *Classifier) IsRosterStudent(label string) bool {
	return matchesAny(strings.ToLower(label), c.roster)
}

// minTruncatedRunes is the shortest label accepted as a truncation of a variant
const minTruncatedRunes = 3

// matchesAny is the bidirectional substring test, tolerant to truncation on
// either side. A label only counts as a truncated variant when it is at least
// minTruncatedRunes long.
func matchesAny(label string, variants []string) bool {
	if label == "" {
		return false
	}
	truncatable := utf8.RuneCountInString(label) >= minTruncatedRunes
	for _, v := range variants {
		if strings.Contains(label, v) {
			return true
		}
		if truncatable && strings.Contains(v, label) {
			return true
		}
	}
	return false
}

func foldAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
