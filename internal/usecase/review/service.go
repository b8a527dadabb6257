package review

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/johnquangdev/lesson-attribution/internal/domain/entities"
	"github.com/johnquangdev/lesson-attribution/internal/domain/repositories"
	ucerrors "github.com/johnquangdev/lesson-attribution/internal/usecase/errors"
	"github.com/johnquangdev/lesson-attribution/internal/usecase/matching"
)

// ApproveSource selects where the resolved name of an approval comes from
type ApproveSource string

const (
	SourceSuggestion ApproveSource = "suggestion" // Accept the matcher's CRM suggestion
	SourceOriginal   ApproveSource = "original"   // The label is already the correct name
	SourceCustom     ApproveSource = "custom"     // Reviewer typed the name
)

// ApproveInput is a reviewer approval
type ApproveInput struct {
	OriginalName string
	Source       ApproveSource
	ResolvedName string
	Actor        string
}

// RosterProvider returns the CRM roster used for manual search
type RosterProvider interface {
	Roster(ctx context.Context) ([]entities.CRMStudent, error)
}

// SearchResult is one CRM student offered to a reviewer
type SearchResult struct {
	Student entities.CRMStudent `json:"student"`
	Score   int                 `json:"score"`
}

// Service defines the human review workflow over name mappings
type Service interface {
	List(ctx context.Context, status entities.MappingStatus, limit, offset int) ([]*entities.NameMapping, int64, error)
	Get(ctx context.Context, originalName string) (*entities.NameMapping, error)
	Approve(ctx context.Context, in ApproveInput) (*entities.NameMapping, error)
	Reject(ctx context.Context, originalName, actor string) (*entities.NameMapping, error)
	Undo(ctx context.Context, actor string) (*entities.NameMapping, *entities.UndoEntry, error)
	SearchCRM(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

type reviewService struct {
	repo   repositories.MappingRepository
	roster RosterProvider
	scorer *matching.Scorer
	logger *zap.Logger
}

// NewReviewService constructs the review service
func NewReviewService(repo repositories.MappingRepository, roster RosterProvider, scorer *matching.Scorer, logger *zap.Logger) Service {
	return &reviewService{
		repo:   repo,
		roster: roster,
		scorer: scorer,
		logger: logger,
	}
}

func (s *reviewService) List(ctx context.Context, status entities.MappingStatus, limit, offset int) ([]*entities.NameMapping, int64, error) {
	if status != "" && !status.Valid() {
		return nil, 0, ucerrors.ErrInvalidInput
	}
	return s.repo.ListByStatus(ctx, status, limit, offset)
}

func (s *reviewService) Get(ctx context.Context, originalName string) (*entities.NameMapping, error) {
	return s.repo.Get(ctx, originalName)
}

// Approve resolves a pending mapping. Empty or whitespace names are never persisted.
func (s *reviewService) Approve(ctx context.Context, in ApproveInput) (*entities.NameMapping, error) {
	current, err := s.repo.Get(ctx, in.OriginalName)
	if err != nil {
		return nil, err
	}

	t := entities.MappingTransition{
		OriginalName: current.OriginalName,
		From:         current.Status,
		To:           entities.MappingStatusApproved,
		Action:       entities.ActionApprove,
		Actor:        in.Actor,
	}

	var resolved string
	switch in.Source {
	case SourceSuggestion:
		if current.CRMMatch == nil {
			return nil, ucerrors.ErrNoSuggestion
		}
		resolved = *current.CRMMatch
		t.CRMStudentID = current.CRMStudentID
	case SourceOriginal:
		resolved = current.OriginalName
	case SourceCustom:
		resolved = in.ResolvedName
	default:
		return nil, ucerrors.ErrInvalidApproveMode
	}

	resolved = strings.TrimSpace(resolved)
	if resolved == "" {
		return nil, ucerrors.ErrEmptyResolvedName
	}
	t.ResolvedName = &resolved

	updated, err := s.repo.Transition(ctx, t)
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("✅ Mapping approved",
			zap.String("original_name", updated.OriginalName),
			zap.String("resolved_name", resolved),
			zap.String("source", string(in.Source)),
			zap.String("from", string(t.From)),
			zap.String("to", string(t.To)),
			zap.String("actor", in.Actor),
		)
	}
	return updated, nil
}

// Reject marks a pending mapping as not a real student
func (s *reviewService) Reject(ctx context.Context, originalName, actor string) (*entities.NameMapping, error) {
	current, err := s.repo.Get(ctx, originalName)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.Transition(ctx, entities.MappingTransition{
		OriginalName: current.OriginalName,
		From:         current.Status,
		To:           entities.MappingStatusRejected,
		Action:       entities.ActionReject,
		ResolvedName: current.ResolvedName,
		Actor:        actor,
	})
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("🚫 Mapping rejected",
			zap.String("original_name", updated.OriginalName),
			zap.String("from", string(current.Status)),
			zap.String("to", string(updated.Status)),
			zap.String("actor", actor),
		)
	}
	return updated, nil
}

// Undo reverts the most recent action across all mappings
func (s *reviewService) Undo(ctx context.Context, actor string) (*entities.NameMapping, *entities.UndoEntry, error) {
	mapping, entry, err := s.repo.Undo(ctx, actor)
	if err != nil {
		return nil, nil, err
	}

	if s.logger != nil {
		s.logger.Info("↩️ Mapping action undone",
			zap.String("original_name", mapping.OriginalName),
			zap.String("undone_action", entry.Action),
			zap.String("from", string(entry.AppliedStatus)),
			zap.String("to", string(mapping.Status)),
			zap.String("actor", actor),
		)
	}
	return mapping, entry, nil
}

// SearchCRM lets a reviewer look up students by free text. Results are ranked
// by similarity score, then name; plain substring hits are kept with score 0.
func (s *reviewService) SearchCRM(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ucerrors.ErrInvalidInput
	}

	students, err := s.roster.Roster(ctx)
	if err != nil {
		return nil, err
	}

	lowered := strings.ToLower(query)
	var results []SearchResult
	for _, st := range students {
		score := s.scorer.Score(query, st.Name).Score
		if score == 0 && !strings.Contains(strings.ToLower(st.Name), lowered) {
			continue
		}
		results = append(results, SearchResult{Student: st, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Student.Name < results[j].Student.Name
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
