package matching

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/johnquangdev/lesson-attribution/internal/domain/entities"
)

// Rule identifies which step of the scoring cascade produced a score
type Rule string

const (
	RuleExact           Rule = "exact"
	RuleDevice          Rule = "device"
	RuleTransliteration Rule = "transliteration"
	RuleBareFirstName   Rule = "bare_first_name"
	RuleSharedFirstName Rule = "shared_first_name"
	RuleContainment     Rule = "containment"
	RuleNone            Rule = "none"
)

// Scores assigned by each rule
const (
	ScoreExact           = 100
	ScoreTransliteration = 95
	ScoreBareFirstName   = 90
	ScoreSharedFirstName = 85
	ScoreContainment     = 80
)

const (
	minFirstTokenRunes = 2
	minContainedRunes  = 3
)

// ScoreResult is the outcome of comparing two names
type ScoreResult struct {
	Score int  `json:"score"`
	Rule  Rule `json:"rule"`
}

// Match is the best CRM candidate for a transcript name
type Match struct {
	Candidate *entities.CRMStudent `json:"candidate,omitempty"`
	Score     int                  `json:"score"`
	Rule      Rule                 `json:"rule"`
}

// Scorer is a deterministic, side-effect free name similarity function
type Scorer struct {
	deviceTokens []string
	table        *TransliterationTable
}

// NewScorer creates a scorer. deviceTokens are matched case-insensitively as substrings.
func NewScorer(deviceTokens []string, table *TransliterationTable) *Scorer {
	tokens := make([]string, 0, len(deviceTokens))
	for _, tok := range deviceTokens {
		if tok = foldName(tok); tok != "" {
			tokens = append(tokens, tok)
		}
	}
	if table == nil {
		table = NewTransliterationTable(nil)
	}
	return &Scorer{deviceTokens: tokens, table: table}
}

// Score runs the rule cascade top-down; the first applicable rule wins
func (s *Scorer) Score(a, b string) ScoreResult {
	na, nb := foldName(a), foldName(b)
	if na == "" || nb == "" {
		return ScoreResult{Score: 0, Rule: RuleNone}
	}

	if na == nb {
		return ScoreResult{Score: ScoreExact, Rule: RuleExact}
	}

	if s.hasDeviceToken(na) || s.hasDeviceToken(nb) {
		return ScoreResult{Score: 0, Rule: RuleDevice}
	}

	fa, fb := firstToken(na), firstToken(nb)

	if s.table.Equivalent(fa, fb) {
		return ScoreResult{Score: ScoreTransliteration, Rule: RuleTransliteration}
	}

	if fa == fb && utf8.RuneCountInString(fa) >= minFirstTokenRunes {
		if na == fa || nb == fb {
			return ScoreResult{Score: ScoreBareFirstName, Rule: RuleBareFirstName}
		}
		return ScoreResult{Score: ScoreSharedFirstName, Rule: RuleSharedFirstName}
	}

	if contains(na, nb) || contains(nb, na) {
		return ScoreResult{Score: ScoreContainment, Rule: RuleContainment}
	}

	return ScoreResult{Score: 0, Rule: RuleNone}
}

// BestMatch scores name against every candidate in order. A strictly higher
// score replaces the current best, so ties keep the first candidate seen. An
// exact match ends the search.
func (s *Scorer) BestMatch(name string, candidates []entities.CRMStudent) Match {
	best := Match{Rule: RuleNone}
	for i := range candidates {
		res := s.Score(name, candidates[i].Name)
		if res.Score > best.Score {
			best = Match{Candidate: &candidates[i], Score: res.Score, Rule: res.Rule}
		}
		if res.Score == ScoreExact {
			break
		}
	}
	return best
}

func (s *Scorer) hasDeviceToken(folded string) bool {
	for _, tok := range s.deviceTokens {
		if strings.Contains(folded, tok) {
			return true
		}
	}
	return false
}

// contains reports whether outer holds inner and inner is long enough to count
func contains(outer, inner string) bool {
	return utf8.RuneCountInString(inner) >= minContainedRunes && strings.Contains(outer, inner)
}

func firstToken(s string) string {
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}

// foldName keeps letters, digits and Hebrew marks, case-folds, and collapses
// everything else into single spaces.
func foldName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Hebrew, r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		space = true
	}
	return b.String()
}
