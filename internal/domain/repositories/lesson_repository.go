package repositories

import (
	"context"

	"github.com/johnquangdev/lesson-attribution/internal/domain/entities"
)

// AttributionRepository persists per-transcript attribution outcomes
type AttributionRepository interface {
	SaveAttribution(ctx context.Context, a *entities.TranscriptAttribution) error
	GetAttribution(ctx context.Context, transcriptID string) (*entities.TranscriptAttribution, error)
}

// GroupLessonRepository persists group lesson analyses and per-student stats
type GroupLessonRepository interface {
	// SaveAnalysis upserts the analysis and replaces the stats rows for its transcript
	SaveAnalysis(ctx context.Context, analysis *entities.GroupLessonAnalysis, stats []entities.StudentSpeakingStats) error
	GetAnalysis(ctx context.Context, transcriptID string) (*entities.GroupLessonAnalysis, []entities.StudentSpeakingStats, error)
	ListStatsBySpeakers(ctx context.Context, speakerNames []string) ([]entities.StudentSpeakingStats, error)
}

// TranscriptSource supplies captured transcripts
type TranscriptSource interface {
	ListTranscripts(ctx context.Context) ([]entities.TranscriptDocument, error)
}

// StudentRegistry is the read-only CRM roster
type StudentRegistry interface {
	ListStudents(ctx context.Context) ([]entities.CRMStudent, error)
}
