package grouplesson

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/johnquangdev/lesson-attribution/internal/domain/entities"
	"github.com/johnquangdev/lesson-attribution/internal/domain/repositories"
	ucerrors "github.com/johnquangdev/lesson-attribution/internal/usecase/errors"
	"github.com/johnquangdev/lesson-attribution/internal/usecase/transcript"
)

// Service records group lesson analyses and builds per-student roll-ups
type Service struct {
	analyzer *Analyzer
	lessons  repositories.GroupLessonRepository
	mappings repositories.MappingRepository
	logger   *zap.Logger
}

// NewService creates the group lesson service
func NewService(analyzer *Analyzer, lessons repositories.GroupLessonRepository, mappings repositories.MappingRepository, logger *zap.Logger) *Service {
	return &Service{
		analyzer: analyzer,
		lessons:  lessons,
		mappings: mappings,
		logger:   logger,
	}
}

// Record analyzes attr and persists the result when it is a group lesson.
// Returns nil for 1:1 lessons.
func (s *Service) Record(ctx context.Context, attr *transcript.Attribution) (*entities.GroupLessonAnalysis, error) {
	analysis, stats, ok := s.analyzer.Analyze(attr)
	if !ok {
		return nil, nil
	}

	if err := s.lessons.SaveAnalysis(ctx, analysis, stats); err != nil {
		return nil, fmt.Errorf("save group analysis for %s: %w", attr.TranscriptID, err)
	}

	if s.logger != nil {
		s.logger.Info("✅ Group lesson analyzed",
			zap.String("transcript_id", attr.TranscriptID),
			zap.String("detected_by", analysis.DetectedBy),
			zap.Int("students", analysis.StudentSpeakerCount),
			zap.Int("singing_segments", analysis.SingingSegments),
		)
	}
	return analysis, nil
}

// Analysis returns the stored analysis and stats for a transcript
func (s *Service) Analysis(ctx context.Context, transcriptID string) (*entities.GroupLessonAnalysis, []entities.StudentSpeakingStats, error) {
	analysis, stats, err := s.lessons.GetAnalysis(ctx, transcriptID)
	if err != nil {
		return nil, nil, err
	}
	if analysis == nil {
		return nil, nil, ucerrors.ErrAnalysisNotFound
	}
	return analysis, stats, nil
}

// StudentSummary rolls up stats across every transcript where a speaker label
// resolves to resolvedName, or equals it verbatim.
func (s *Service) StudentSummary(ctx context.Context, resolvedName string) (*entities.StudentSummary, error) {
	if resolvedName == "" {
		return nil, ucerrors.ErrInvalidInput
	}

	labels, err := s.mappings.ListNamesResolvedTo(ctx, resolvedName)
	if err != nil {
		return nil, err
	}
	labels = appendUnique(labels, resolvedName)

	stats, err := s.lessons.ListStatsBySpeakers(ctx, labels)
	if err != nil {
		return nil, err
	}

	summary := &entities.StudentSummary{
		ResolvedName:  resolvedName,
		SpeakerLabels: labels,
	}
	transcripts := make(map[string]bool)
	singing := make(map[string]bool)
	for _, st := range stats {
		transcripts[st.TranscriptID] = true
		if st.SingingDetected {
			singing[st.TranscriptID] = true
		}
		summary.SegmentCount += st.SegmentCount
		summary.WordCount += st.WordCount
		summary.EstimatedSpeakingSeconds += st.EstimatedSpeakingSeconds
	}
	summary.TranscriptCount = len(transcripts)
	summary.SingingTranscripts = len(singing)
	return summary, nil
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
