package presenter

import (
	"github.com/johnquangdev/lesson-attribution/internal/adapter/dto/lesson"
	"github.com/johnquangdev/lesson-attribution/internal/domain/entities"
)

// ToGroupAnalysisResponse converts a stored analysis and its stat rows
func ToGroupAnalysisResponse(a *entities.GroupLessonAnalysis, stats []entities.StudentSpeakingStats) *lesson.GroupAnalysisResponse {
	if a == nil {
		return nil
	}

	students := make([]lesson.SpeakerStatsResponse, len(stats))
	for i, s := range stats {
		students[i] = lesson.SpeakerStatsResponse{
			SpeakerName:              s.SpeakerName,
			SegmentCount:             s.SegmentCount,
			WordCount:                s.WordCount,
			EstimatedSpeakingSeconds: s.EstimatedSpeakingSeconds,
			SingingDetected:          s.SingingDetected,
		}
	}

	return &lesson.GroupAnalysisResponse{
		TranscriptID:             a.TranscriptID,
		DetectedBy:               a.DetectedBy,
		Speakers:                 a.Speakers,
		StudentSpeakerCount:      a.StudentSpeakerCount,
		TeacherSpeakerCount:      a.TeacherSpeakerCount,
		TotalSegments:            a.TotalSegments,
		TotalWords:               a.TotalWords,
		SingingSegments:          a.SingingSegments,
		EstimatedDurationSeconds: a.EstimatedDurationSeconds,
		Students:                 students,
	}
}

// ToStudentSummaryResponse converts a student roll-up
func ToStudentSummaryResponse(s *entities.StudentSummary) *lesson.StudentSummaryResponse {
	if s == nil {
		return nil
	}
	return &lesson.StudentSummaryResponse{
		ResolvedName:             s.ResolvedName,
		SpeakerLabels:            s.SpeakerLabels,
		TranscriptCount:          s.TranscriptCount,
		SegmentCount:             s.SegmentCount,
		WordCount:                s.WordCount,
		EstimatedSpeakingSeconds: s.EstimatedSpeakingSeconds,
		SingingTranscripts:       s.SingingTranscripts,
	}
}
