package entities

import "time"

// TranscriptDocument is a captured lesson transcript as supplied by the transcript store
type TranscriptDocument struct {
	ID         string    `json:"id"`
	RawText    string    `json:"raw_text"`
	Title      string    `json:"title"`
	LessonDate time.Time `json:"lesson_date"`
}

// TranscriptFormat is the line grammar detected for a whole document
type TranscriptFormat string

const (
	FormatNone        TranscriptFormat = "none"        // No line matched either grammar
	FormatTimestamped TranscriptFormat = "timestamped" // `speaker(12.34): text`
	FormatPlain       TranscriptFormat = "plain"       // `דובר: text`, Hebrew speaker names only
)

// SpeakerRole is the classifier verdict for a speaker label
type SpeakerRole string

const (
	RoleUnknown SpeakerRole = "unknown"
	RoleTeacher SpeakerRole = "teacher"
	RoleStudent SpeakerRole = "student"
)

// SpeakerTurn is one parsed line of speech
type SpeakerTurn struct {
	SpeakerLabel    string   `json:"speaker_label"`
	NormalizedLabel string   `json:"normalized_label"`
	Text            string   `json:"text"`
	StartTime       *float64 `json:"start_time,omitempty"`
	IsTeacher       bool     `json:"is_teacher"`
	IsStudent       bool     `json:"is_student"`
}

// Role reports the classification stored on the turn
func (t SpeakerTurn) Role() SpeakerRole {
	switch {
	case t.IsTeacher:
		return RoleTeacher
	case t.IsStudent:
		return RoleStudent
	default:
		return RoleUnknown
	}
}

// TranscriptAttribution records the outcome of attributing one transcript
type TranscriptAttribution struct {
	TranscriptID  string           `json:"transcript_id" gorm:"type:varchar(255);primary_key"`
	Format        TranscriptFormat `json:"format" gorm:"type:varchar(20);not null"`
	TurnCount     int              `json:"turn_count" gorm:"not null;default:0"`
	StudentNames  []string         `json:"student_names" gorm:"type:jsonb;serializer:json"`
	IsGroup       bool             `json:"is_group" gorm:"not null;default:false"`
	NoAttribution bool             `json:"no_attribution" gorm:"not null;default:false"`
	Reason        string           `json:"reason,omitempty" gorm:"type:text"`
	ProcessedAt   time.Time        `json:"processed_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (TranscriptAttribution) TableName() string {
	return "transcript_attributions"
}
