package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchingConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultMatching().Validate())

	tests := []struct {
		name   string
		mutate func(*MatchingConfig)
	}{
		{"threshold above 100", func(m *MatchingConfig) { m.AutoApplyThreshold = 101 }},
		{"negative suggest threshold", func(m *MatchingConfig) { m.SuggestThreshold = -1 }},
		{"no workers", func(m *MatchingConfig) { m.Workers = 0 }},
		{"no job retries", func(m *MatchingConfig) { m.JobRetries = 0 }},
		{"no first lines", func(m *MatchingConfig) { m.FirstLines = 0 }},
		{"zero words per minute", func(m *MatchingConfig) { m.WordsPerMinute = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := DefaultMatching()
			tt.mutate(&m)
			assert.Error(t, m.Validate())
		})
	}
}

func TestConfig_ValidateRequiresCRM(t *testing.T) {
	cfg := &Config{CRM: CRMConfig{PageSize: 100}, Matching: DefaultMatching()}
	assert.Error(t, cfg.Validate())

	cfg.CRM.BaseURL = "https://crm.example.com/api"
	assert.NoError(t, cfg.Validate())
}

func TestLoadUnchecked_MatchingFromEnv(t *testing.T) {
	t.Setenv("MATCHING_AUTO_APPLY_THRESHOLD", "85")
	t.Setenv("MATCHING_WORKERS", "2")
	t.Setenv("MATCHING_JOB_RETRIES", "5")
	t.Setenv("MATCHING_JOB_BASE_DELAY", "250ms")

	cfg, err := LoadUnchecked()
	require.NoError(t, err)
	assert.Equal(t, 85, cfg.Matching.AutoApplyThreshold)
	assert.Equal(t, 2, cfg.Matching.Workers)
	assert.Equal(t, 30, cfg.Matching.FirstLines)
	assert.Equal(t, 5, cfg.Matching.JobRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Matching.JobBaseDelay)
}
