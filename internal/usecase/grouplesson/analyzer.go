package grouplesson

import (
	"strings"

	"gorm.io/datatypes"

	"github.com/johnquangdev/lesson-attribution/internal/domain/entities"
	"github.com/johnquangdev/lesson-attribution/internal/usecase/transcript"
)

// Analyzer rolls classified turns of a group lesson into per-student stats
type Analyzer struct {
	singing        *SingingDetector
	wordsPerMinute float64
}

// NewAnalyzer creates a group lesson analyzer. wordsPerMinute drives the
// linear speaking-time estimate.
func NewAnalyzer(singing *SingingDetector, wordsPerMinute float64) *Analyzer {
	if wordsPerMinute <= 0 {
		wordsPerMinute = 150
	}
	return &Analyzer{singing: singing, wordsPerMinute: wordsPerMinute}
}

// Analyze returns ok=false for lessons that are not group lessons.
// Stat buckets go to roster-matched speakers; a lesson flagged only by its
// title with no roster match gives every non-teacher speaker a bucket.
func (a *Analyzer) Analyze(attr *transcript.Attribution) (*entities.GroupLessonAnalysis, []entities.StudentSpeakingStats, bool) {
	if attr == nil || !attr.IsGroup || attr.NoAttribution {
		return nil, nil, false
	}

	useRoster := len(attr.RosterStudents) > 0
	buckets := make(map[string]*entities.StudentSpeakingStats)
	var order []string
	teachers := make(map[string]bool)

	analysis := &entities.GroupLessonAnalysis{
		TranscriptID: attr.TranscriptID,
		Speakers:     datatypes.JSONSlice[string](append([]string(nil), attr.Speakers...)),
		DetectedBy:   attr.GroupDetectedBy,
	}

	var lastStart *float64
	for _, turn := range attr.Turns {
		words := len(strings.Fields(turn.Text))
		singing := a.singing.IsSinging(turn.Text)

		analysis.TotalSegments++
		analysis.TotalWords += words
		if singing {
			analysis.SingingSegments++
		}
		if turn.StartTime != nil && (lastStart == nil || *turn.StartTime > *lastStart) {
			lastStart = turn.StartTime
		}

		if turn.IsTeacher {
			teachers[turn.NormalizedLabel] = true
			continue
		}
		if useRoster && !turn.IsStudent {
			continue
		}

		b, ok := buckets[turn.NormalizedLabel]
		if !ok {
			b = &entities.StudentSpeakingStats{
				TranscriptID: attr.TranscriptID,
				SpeakerName:  turn.NormalizedLabel,
			}
			buckets[turn.NormalizedLabel] = b
			order = append(order, turn.NormalizedLabel)
		}
		b.SegmentCount++
		b.WordCount += words
		b.SingingDetected = b.SingingDetected || singing
	}

	stats := make([]entities.StudentSpeakingStats, 0, len(order))
	for _, name := range order {
		b := buckets[name]
		b.EstimatedSpeakingSeconds = a.estimateSeconds(b.WordCount)
		stats = append(stats, *b)
	}

	analysis.StudentSpeakerCount = len(stats)
	analysis.TeacherSpeakerCount = len(teachers)
	if lastStart != nil {
		analysis.EstimatedDurationSeconds = *lastStart
	} else {
		analysis.EstimatedDurationSeconds = a.estimateSeconds(analysis.TotalWords)
	}
	return analysis, stats, true
}

func (a *Analyzer) estimateSeconds(words int) float64 {
	return float64(words) / a.wordsPerMinute * 60
}
