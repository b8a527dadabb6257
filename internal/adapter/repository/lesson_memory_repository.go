package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/lesson-attribution/internal/domain/entities"
	"github.com/johnquangdev/lesson-attribution/internal/domain/repositories"
)

// MemoryAttributionRepository keeps attribution outcomes in process
type MemoryAttributionRepository struct {
	mu    sync.RWMutex
	items map[string]entities.TranscriptAttribution
}

var _ repositories.AttributionRepository = (*MemoryAttributionRepository)(nil)

// NewMemoryAttributionRepository creates an empty store
func NewMemoryAttributionRepository() *MemoryAttributionRepository {
	return &MemoryAttributionRepository{items: make(map[string]entities.TranscriptAttribution)}
}

func (r *MemoryAttributionRepository) SaveAttribution(_ context.Context, a *entities.TranscriptAttribution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *a
	stored.StudentNames = append([]string(nil), a.StudentNames...)
	stored.ProcessedAt = time.Now().UTC()
	r.items[a.TranscriptID] = stored
	return nil
}

func (r *MemoryAttributionRepository) GetAttribution(_ context.Context, transcriptID string) (*entities.TranscriptAttribution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.items[transcriptID]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

// MemoryGroupLessonRepository keeps group lesson analyses in process
type MemoryGroupLessonRepository struct {
	mu       sync.RWMutex
	analyses map[string]entities.GroupLessonAnalysis
	stats    map[string][]entities.StudentSpeakingStats
}

var _ repositories.GroupLessonRepository = (*MemoryGroupLessonRepository)(nil)

// NewMemoryGroupLessonRepository creates an empty store
func NewMemoryGroupLessonRepository() *MemoryGroupLessonRepository {
	return &MemoryGroupLessonRepository{
		analyses: make(map[string]entities.GroupLessonAnalysis),
		stats:    make(map[string][]entities.StudentSpeakingStats),
	}
}

func (r *MemoryGroupLessonRepository) SaveAnalysis(_ context.Context, analysis *entities.GroupLessonAnalysis, stats []entities.StudentSpeakingStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if analysis.ID == uuid.Nil {
		analysis.ID = uuid.New()
	}
	r.analyses[analysis.TranscriptID] = *analysis
	r.stats[analysis.TranscriptID] = append([]entities.StudentSpeakingStats(nil), stats...)
	return nil
}

func (r *MemoryGroupLessonRepository) GetAnalysis(_ context.Context, transcriptID string) (*entities.GroupLessonAnalysis, []entities.StudentSpeakingStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	analysis, ok := r.analyses[transcriptID]
	if !ok {
		return nil, nil, nil
	}
	stats := append([]entities.StudentSpeakingStats(nil), r.stats[transcriptID]...)
	sort.Slice(stats, func(i, j int) bool { return stats[i].SpeakerName < stats[j].SpeakerName })
	return &analysis, stats, nil
}

func (r *MemoryGroupLessonRepository) ListStatsBySpeakers(_ context.Context, names []string) ([]entities.StudentSpeakingStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	var out []entities.StudentSpeakingStats
	for _, rows := range r.stats {
		for _, s := range rows {
			if wanted[s.SpeakerName] {
				out = append(out, s)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TranscriptID != out[j].TranscriptID {
			return out[i].TranscriptID < out[j].TranscriptID
		}
		return out[i].SpeakerName < out[j].SpeakerName
	})
	return out, nil
}
