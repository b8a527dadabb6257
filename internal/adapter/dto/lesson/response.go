package lesson

// SpeakerStatsResponse is the per-student bucket of a group lesson
type SpeakerStatsResponse struct {
	SpeakerName              string  `json:"speaker_name"`
	SegmentCount             int     `json:"segment_count"`
	WordCount                int     `json:"word_count"`
	EstimatedSpeakingSeconds float64 `json:"estimated_speaking_seconds"`
	SingingDetected          bool    `json:"singing_detected"`
}

// GroupAnalysisResponse represents a group lesson analysis
type GroupAnalysisResponse struct {
	TranscriptID             string                 `json:"transcript_id"`
	DetectedBy               string                 `json:"detected_by"`
	Speakers                 []string               `json:"speakers"`
	StudentSpeakerCount      int                    `json:"student_speaker_count"`
	TeacherSpeakerCount      int                    `json:"teacher_speaker_count"`
	TotalSegments            int                    `json:"total_segments"`
	TotalWords               int                    `json:"total_words"`
	SingingSegments          int                    `json:"singing_segments"`
	EstimatedDurationSeconds float64                `json:"estimated_duration_seconds"`
	Students                 []SpeakerStatsResponse `json:"students"`
}

// StudentSummaryResponse is the longitudinal roll-up for one student
type StudentSummaryResponse struct {
	ResolvedName             string   `json:"resolved_name"`
	SpeakerLabels            []string `json:"speaker_labels"`
	TranscriptCount          int      `json:"transcript_count"`
	SegmentCount             int      `json:"segment_count"`
	WordCount                int      `json:"word_count"`
	EstimatedSpeakingSeconds float64  `json:"estimated_speaking_seconds"`
	SingingTranscripts       int      `json:"singing_transcripts"`
}
