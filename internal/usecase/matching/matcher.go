package matching

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/johnquangdev/lesson-attribution/internal/domain/entities"
	"github.com/johnquangdev/lesson-attribution/internal/domain/repositories"
	ucerrors "github.com/johnquangdev/lesson-attribution/internal/usecase/errors"
	"github.com/johnquangdev/lesson-attribution/pkg/config"
)

const pendingPageSize = 200

// Outcome is what the matcher did with one pending mapping
type Outcome string

const (
	OutcomeAutoMatched Outcome = "auto_matched"
	OutcomeSuggested   Outcome = "suggested"
	OutcomeUnmatched   Outcome = "unmatched"
	// OutcomeSkipped means the mapping left pending between listing and writing
	OutcomeSkipped Outcome = "skipped"
)

// Decision records the matcher verdict for one mapping
type Decision struct {
	OriginalName string  `json:"original_name"`
	Candidate    string  `json:"candidate,omitempty"`
	Score        int     `json:"score"`
	Rule         Rule    `json:"rule"`
	Outcome      Outcome `json:"outcome"`
	// Changed is false when the stored mapping already carried this verdict
	Changed bool `json:"changed"`
}

// MatchReport summarizes one matcher pass
type MatchReport struct {
	Examined    int        `json:"examined"`
	AutoMatched int        `json:"auto_matched"`
	Suggested   int        `json:"suggested"`
	Unmatched   int        `json:"unmatched"`
	Unchanged   int        `json:"unchanged"`
	Skipped     int        `json:"skipped"`
	Decisions   []Decision `json:"decisions"`
}

// Matcher scores pending mappings against the CRM roster and promotes or
// annotates them. It never reads or writes non-pending mappings.
type Matcher struct {
	repo   repositories.MappingRepository
	scorer *Scorer
	cfg    config.MatchingConfig
	logger *zap.Logger
}

// NewMatcher creates a new auto-matcher
func NewMatcher(repo repositories.MappingRepository, scorer *Scorer, cfg config.MatchingConfig, logger *zap.Logger) *Matcher {
	return &Matcher{
		repo:   repo,
		scorer: scorer,
		cfg:    cfg,
		logger: logger,
	}
}

// Scorer returns the scorer used for matching
func (m *Matcher) Scorer() *Scorer {
	return m.scorer
}

// Run evaluates every pending mapping once. Re-running with the same roster and
// no new observations performs no writes.
func (m *Matcher) Run(ctx context.Context, candidates []entities.CRMStudent) (*MatchReport, error) {
	pending, err := m.listPending(ctx)
	if err != nil {
		return nil, err
	}

	report := &MatchReport{Decisions: make([]Decision, 0, len(pending))}
	for _, mapping := range pending {
		decision, err := m.decide(ctx, mapping, candidates)
		if err != nil {
			return report, err
		}

		report.Examined++
		switch decision.Outcome {
		case OutcomeAutoMatched:
			report.AutoMatched++
		case OutcomeSuggested:
			report.Suggested++
		case OutcomeUnmatched:
			report.Unmatched++
		case OutcomeSkipped:
			report.Skipped++
		}
		if decision.Outcome != OutcomeSkipped && !decision.Changed {
			report.Unchanged++
		}
		report.Decisions = append(report.Decisions, decision)
	}

	if m.logger != nil {
		m.logger.Info("✅ Matcher pass completed",
			zap.Int("examined", report.Examined),
			zap.Int("auto_matched", report.AutoMatched),
			zap.Int("suggested", report.Suggested),
			zap.Int("unmatched", report.Unmatched),
			zap.Int("unchanged", report.Unchanged),
		)
	}
	return report, nil
}

func (m *Matcher) decide(ctx context.Context, mapping *entities.NameMapping, candidates []entities.CRMStudent) (Decision, error) {
	best := m.scorer.BestMatch(mapping.OriginalName, candidates)
	decision := Decision{
		OriginalName: mapping.OriginalName,
		Score:        best.Score,
		Rule:         best.Rule,
	}
	if best.Candidate != nil {
		decision.Candidate = best.Candidate.Name
	}

	if best.Candidate != nil && m.cfg.AutoApply && best.Score >= m.cfg.AutoApplyThreshold {
		score := best.Score
		_, err := m.repo.Transition(ctx, entities.MappingTransition{
			OriginalName: mapping.OriginalName,
			From:         entities.MappingStatusPending,
			To:           entities.MappingStatusAutoMatched,
			Action:       entities.ActionAutoMatch,
			ResolvedName: entities.StringPtr(best.Candidate.Name),
			Confidence:   &score,
			CRMMatch:     entities.StringPtr(best.Candidate.Name),
			CRMStudentID: entities.StringPtr(best.Candidate.ID),
			Actor:        entities.ActorAutoMatcher,
		})
		if errors.Is(err, ucerrors.ErrInvalidTransition) {
			decision.Outcome = OutcomeSkipped
			return decision, nil
		}
		if err != nil {
			return decision, fmt.Errorf("auto-match %q: %w", mapping.OriginalName, err)
		}

		if m.logger != nil {
			m.logger.Info("✅ Mapping auto-matched",
				zap.String("original_name", mapping.OriginalName),
				zap.String("resolved_name", best.Candidate.Name),
				zap.Int("score", best.Score),
				zap.String("rule", string(best.Rule)),
			)
		}
		decision.Outcome = OutcomeAutoMatched
		decision.Changed = true
		return decision, nil
	}

	var crmMatch, crmStudentID *string
	outcome := OutcomeUnmatched
	if best.Candidate != nil && best.Score >= m.cfg.SuggestThreshold {
		crmMatch = entities.StringPtr(best.Candidate.Name)
		crmStudentID = entities.StringPtr(best.Candidate.ID)
		outcome = OutcomeSuggested
	}

	changed, err := m.repo.Suggest(ctx, mapping.OriginalName, crmMatch, crmStudentID, best.Score)
	if errors.Is(err, ucerrors.ErrInvalidTransition) {
		decision.Outcome = OutcomeSkipped
		return decision, nil
	}
	if err != nil {
		return decision, fmt.Errorf("record suggestion for %q: %w", mapping.OriginalName, err)
	}
	decision.Outcome = outcome
	decision.Changed = changed
	return decision, nil
}

// listPending snapshots all pending mappings before any write shifts the pages
func (m *Matcher) listPending(ctx context.Context) ([]*entities.NameMapping, error) {
	var all []*entities.NameMapping
	for offset := 0; ; offset += pendingPageSize {
		page, total, err := m.repo.ListByStatus(ctx, entities.MappingStatusPending, pendingPageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("list pending mappings: %w", err)
		}
		all = append(all, page...)
		if len(page) < pendingPageSize || int64(len(all)) >= total {
			return all, nil
		}
	}
}
