package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/johnquangdev/lesson-attribution/internal/domain/entities"
	"github.com/johnquangdev/lesson-attribution/internal/domain/repositories"
)

// AttributionRepository stores per-transcript attribution outcomes
type AttributionRepository struct {
	db *gorm.DB
}

var _ repositories.AttributionRepository = (*AttributionRepository)(nil)

// NewAttributionRepository creates a new attribution repository
func NewAttributionRepository(db *gorm.DB) *AttributionRepository {
	return &AttributionRepository{db: db}
}

// SaveAttribution upserts the outcome for a transcript
func (r *AttributionRepository) SaveAttribution(ctx context.Context, a *entities.TranscriptAttribution) error {
	if a == nil {
		return errors.New("attribution cannot be nil")
	}
	a.ProcessedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Save(a).Error
}

// GetAttribution returns the stored outcome, or nil when the transcript was never processed
func (r *AttributionRepository) GetAttribution(ctx context.Context, transcriptID string) (*entities.TranscriptAttribution, error) {
	var a entities.TranscriptAttribution
	if err := r.db.WithContext(ctx).Where("transcript_id = ?", transcriptID).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// GroupLessonRepository stores group lesson analyses and speaking stats
type GroupLessonRepository struct {
	db *gorm.DB
}

var _ repositories.GroupLessonRepository = (*GroupLessonRepository)(nil)

// NewGroupLessonRepository creates a new group lesson repository
func NewGroupLessonRepository(db *gorm.DB) *GroupLessonRepository {
	return &GroupLessonRepository{db: db}
}

// SaveAnalysis upserts the per-transcript summary and replaces its stats rows
func (r *GroupLessonRepository) SaveAnalysis(ctx context.Context, analysis *entities.GroupLessonAnalysis, stats []entities.StudentSpeakingStats) error {
	if analysis == nil {
		return errors.New("analysis cannot be nil")
	}
	if analysis.ID == uuid.Nil {
		analysis.ID = uuid.New()
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := `INSERT INTO group_lesson_analyses (id, transcript_id, speakers, student_speaker_count, teacher_speaker_count, total_segments, total_words, estimated_duration_seconds, singing_segments, detected_by, created_at, updated_at)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW())
            ON CONFLICT (transcript_id) DO UPDATE SET speakers = EXCLUDED.speakers, student_speaker_count = EXCLUDED.student_speaker_count, teacher_speaker_count = EXCLUDED.teacher_speaker_count, total_segments = EXCLUDED.total_segments, total_words = EXCLUDED.total_words, estimated_duration_seconds = EXCLUDED.estimated_duration_seconds, singing_segments = EXCLUDED.singing_segments, detected_by = EXCLUDED.detected_by, updated_at = NOW()`
		if err := tx.Exec(q,
			analysis.ID, analysis.TranscriptID, analysis.Speakers,
			analysis.StudentSpeakerCount, analysis.TeacherSpeakerCount,
			analysis.TotalSegments, analysis.TotalWords, analysis.EstimatedDurationSeconds,
			analysis.SingingSegments, analysis.DetectedBy, time.Now(),
		).Error; err != nil {
			return err
		}

		if err := tx.Where("transcript_id = ?", analysis.TranscriptID).Delete(&entities.StudentSpeakingStats{}).Error; err != nil {
			return err
		}
		if len(stats) == 0 {
			return nil
		}
		return tx.CreateInBatches(stats, 100).Error
	})
}

// GetAnalysis returns the analysis and stats for a transcript, or nil when absent
func (r *GroupLessonRepository) GetAnalysis(ctx context.Context, transcriptID string) (*entities.GroupLessonAnalysis, []entities.StudentSpeakingStats, error) {
	var analysis entities.GroupLessonAnalysis
	if err := r.db.WithContext(ctx).Where("transcript_id = ?", transcriptID).First(&analysis).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	var stats []entities.StudentSpeakingStats
	if err := r.db.WithContext(ctx).
		Where("transcript_id = ?", transcriptID).
		Order("speaker_name ASC").
		Find(&stats).Error; err != nil {
		return nil, nil, err
	}
	return &analysis, stats, nil
}

// ListStatsBySpeakers returns every stats row whose speaker is one of names
func (r *GroupLessonRepository) ListStatsBySpeakers(ctx context.Context, names []string) ([]entities.StudentSpeakingStats, error) {
	if len(names) == 0 {
		return nil, nil
	}
	var stats []entities.StudentSpeakingStats
	if err := r.db.WithContext(ctx).
		Where("speaker_name IN ?", names).
		Order("transcript_id ASC, speaker_name ASC").
		Find(&stats).Error; err != nil {
		return nil, err
	}
	return stats, nil
}
