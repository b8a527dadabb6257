package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnquangdev/lesson-attribution/internal/domain/entities"
	"github.com/johnquangdev/lesson-attribution/pkg/lexicon"
)

func newTestScorer(t *testing.T) *Scorer {
	t.Helper()
	entries, err := lexicon.LoadTransliterations("")
	require.NoError(t, err)
	return NewScorer(lexicon.Default().DeviceTokens, NewTransliterationTable(entries))
}

func TestScore_Cascade(t *testing.T) {
	s := newTestScorer(t)

	tests := []struct {
		name  string
		a, b  string
		score int
		rule  Rule
	}{
		{"exact after folding", "noa  cohen!", "Noa Cohen", 100, RuleExact},
		{"transliteration", "ליהי", "Lihi Cohen", 95, RuleTransliteration},
		{"transliteration reversed", "Lihi", "ליהי כהן", 95, RuleTransliteration},
		{"bare first name", "Noa", "Noa Cohen", 90, RuleBareFirstName},
		{"shared first name", "Noa Levi", "Noa Cohen", 85, RuleSharedFirstName},
		{"single rune first token", "N Levi", "N Cohen", 0, RuleNone},
		{"containment", "Cohen", "Noa Cohen", 80, RuleContainment},
		{"containment too short", "Co", "Noa Cohen", 0, RuleNone},
		{"no relation", "דני", "Daniel Levy", 0, RuleNone},
		{"empty side", "", "Noa", 0, RuleNone},
		{"surname is not a first name", "כהן", "Cohen Noa", 0, RuleNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Score(tt.a, tt.b)
			assert.Equal(t, tt.score, got.Score)
			assert.Equal(t, tt.rule, got.Rule)
		})
	}
}

func TestScore_ExactMatchPrecedesDeviceExclusion(t *testing.T) {
	s := newTestScorer(t)

	// identical labels hit the exact rule before the device rule is consulted
	got := s.Score("iPhone", "iphone")
	assert.Equal(t, ScoreExact, got.Score)
	assert.Equal(t, RuleExact, got.Rule)

	got = s.Score("Noa iPhone", "Noa's iPhone")
	assert.Equal(t, 0, got.Score)
	assert.Equal(t, RuleDevice, got.Rule)
}

func TestScore_DeviceTokenForcesZero(t *testing.T) {
	s := newTestScorer(t)

	others := []string{"Noa", "Noa Cohen", "ליהי", "Noa iPhone Cohen", "Samsung"}
	devices := []string{"Noa iPhone", "iPad של נועה", "Galaxy S21", "TELNO 1", "android noa"}

	for _, d := range devices {
		for _, o := range others {
			assert.Equal(t, 0, s.Score(d, o).Score, "%q vs %q", d, o)
			assert.Equal(t, 0, s.Score(o, d).Score, "%q vs %q", o, d)
		}
	}
}

func TestScore_Deterministic(t *testing.T) {
	s := newTestScorer(t)
	first := s.Score("ליהי", "Lihi Cohen")
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, s.Score("ליהי", "Lihi Cohen"))
	}
}

func TestScore_MissingTransliterationsDisableOnlyRuleThree(t *testing.T) {
	s := NewScorer(lexicon.Default().DeviceTokens, NewTransliterationTable(nil))

	assert.Equal(t, 0, s.Score("ליהי", "Lihi Cohen").Score)
	assert.Equal(t, 90, s.Score("Noa", "Noa Cohen").Score)
	assert.Equal(t, 0, s.Score("Noa iPhone", "Noa").Score)
}

func TestBestMatch(t *testing.T) {
	s := newTestScorer(t)

	candidates := []entities.CRMStudent{
		{ID: "1", Name: "Noa Levi"},
		{ID: "2", Name: "Noa Cohen"},
		{ID: "3", Name: "Noa"},
		{ID: "4", Name: "Noa Cohen"},
	}

	t.Run("exact short-circuits regardless of order", func(t *testing.T) {
		best := s.BestMatch("Noa", candidates)
		require.NotNil(t, best.Candidate)
		assert.Equal(t, "3", best.Candidate.ID)
		assert.Equal(t, 100, best.Score)
	})

	t.Run("ties keep first seen", func(t *testing.T) {
		best := s.BestMatch("Noa Shir", candidates[:2])
		require.NotNil(t, best.Candidate)
		assert.Equal(t, "1", best.Candidate.ID)
		assert.Equal(t, 85, best.Score)
	})

	t.Run("no candidate scores", func(t *testing.T) {
		best := s.BestMatch("דני", []entities.CRMStudent{{ID: "9", Name: "Daniel Levy"}})
		assert.Nil(t, best.Candidate)
		assert.Equal(t, 0, best.Score)
	})
}

func TestTransliterationTable_Equivalent(t *testing.T) {
	table := NewTransliterationTable([]entities.TransliterationEntry{
		{HebrewName: "ליהי", EnglishVariants: []string{"Lihi", "lihy"}, IsFirstName: true},
	})

	assert.True(t, table.Equivalent("ליהי", "lihi"))
	assert.True(t, table.Equivalent("LIHY", "ליהי"))
	assert.False(t, table.Equivalent("lihi", "lihy"))
	assert.False(t, table.Equivalent("ליהי", "ליהי"))
	assert.Equal(t, 1, table.Len())
}
