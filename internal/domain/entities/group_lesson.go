package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// GroupLessonAnalysis is the per-transcript summary of a multi-student session
type GroupLessonAnalysis struct {
	ID                       uuid.UUID                   `json:"id" gorm:"type:uuid;default:gen_random_uuid()"`
	TranscriptID             string                      `json:"transcript_id" gorm:"type:varchar(255);primary_key"`
	Speakers                 datatypes.JSONSlice[string] `json:"speakers" gorm:"type:jsonb;not null;default:'[]'"`
	StudentSpeakerCount      int                         `json:"student_speaker_count" gorm:"not null;default:0"`
	TeacherSpeakerCount      int                         `json:"teacher_speaker_count" gorm:"not null;default:0"`
	TotalSegments            int                         `json:"total_segments" gorm:"not null;default:0"`
	TotalWords               int                         `json:"total_words" gorm:"not null;default:0"`
	EstimatedDurationSeconds float64                     `json:"estimated_duration_seconds" gorm:"not null;default:0"`
	SingingSegments          int                         `json:"singing_segments" gorm:"not null;default:0"`
	DetectedBy               string                      `json:"detected_by" gorm:"type:varchar(20)"`
	CreatedAt                time.Time                   `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt                time.Time                   `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (GroupLessonAnalysis) TableName() string {
	return "group_lesson_analyses"
}

// Group lesson detection sources
const (
	GroupDetectedByTitle  = "title"
	GroupDetectedByRoster = "roster"
)

// StudentSpeakingStats is one student's contribution to one transcript
type StudentSpeakingStats struct {
	TranscriptID             string    `json:"transcript_id" gorm:"type:varchar(255);primary_key"`
	SpeakerName              string    `json:"speaker_name" gorm:"type:text;primary_key"`
	SegmentCount             int       `json:"segment_count" gorm:"not null;default:0"`
	WordCount                int       `json:"word_count" gorm:"not null;default:0"`
	EstimatedSpeakingSeconds float64   `json:"estimated_speaking_seconds" gorm:"not null;default:0"`
	SingingDetected          bool      `json:"singing_detected" gorm:"not null;default:false"`
	CreatedAt                time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for GORM
func (StudentSpeakingStats) TableName() string {
	return "student_speaking_stats"
}

// StudentSummary is the longitudinal roll-up for one resolved student name
type StudentSummary struct {
	ResolvedName             string   `json:"resolved_name"`
	SpeakerLabels            []string `json:"speaker_labels"`
	TranscriptCount          int      `json:"transcript_count"`
	SegmentCount             int      `json:"segment_count"`
	WordCount                int      `json:"word_count"`
	EstimatedSpeakingSeconds float64  `json:"estimated_speaking_seconds"`
	SingingTranscripts       int      `json:"singing_transcripts"`
}
