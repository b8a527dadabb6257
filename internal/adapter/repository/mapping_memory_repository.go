package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/johnquangdev/lesson-attribution/internal/domain/entities"
	"github.com/johnquangdev/lesson-attribution/internal/domain/repositories"
	ucerrors "github.com/johnquangdev/lesson-attribution/internal/usecase/errors"
)

type observationKey struct {
	transcriptID string
	originalName string
}

// MemoryMappingRepository is an in-process MappingRepository used for dry runs
// and tests. One mutex serializes every operation, undo included.
type MemoryMappingRepository struct {
	mu           sync.Mutex
	mappings     map[string]*entities.NameMapping
	observations map[observationKey]struct{}
	undoLog      []*entities.UndoEntry
	nextUndoID   int64
	now          func() time.Time
}

var _ repositories.MappingRepository = (*MemoryMappingRepository)(nil)

// NewMemoryMappingRepository creates an empty in-memory mapping store
func NewMemoryMappingRepository() *MemoryMappingRepository {
	return &MemoryMappingRepository{
		mappings:     make(map[string]*entities.NameMapping),
		observations: make(map[observationKey]struct{}),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Seed stores copies of mappings as-is, replacing any with the same name
func (r *MemoryMappingRepository) Seed(mappings ...*entities.NameMapping) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range mappings {
		r.mappings[m.OriginalName] = m.Clone()
	}
}

func (r *MemoryMappingRepository) Observe(_ context.Context, transcriptID, originalName string) (*entities.NameMapping, bool, error) {
	if originalName == "" {
		return nil, false, ucerrors.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := observationKey{transcriptID: transcriptID, originalName: originalName}
	if _, seen := r.observations[key]; seen {
		return r.mappings[originalName].Clone(), false, nil
	}
	r.observations[key] = struct{}{}

	m, ok := r.mappings[originalName]
	if !ok {
		m = entities.NewNameMapping(originalName)
		r.mappings[originalName] = m
	} else {
		m.TranscriptCount++
		m.UpdatedAt = r.now()
	}
	return m.Clone(), true, nil
}

func (r *MemoryMappingRepository) Get(_ context.Context, originalName string) (*entities.NameMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.mappings[originalName]
	if !ok {
		return nil, ucerrors.ErrMappingNotFound
	}
	return m.Clone(), nil
}

// ListByStatus lists mappings in status; an empty status lists all
func (r *MemoryMappingRepository) ListByStatus(_ context.Context, status entities.MappingStatus, limit, offset int) ([]*entities.NameMapping, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*entities.NameMapping
	for _, m := range r.mappings {
		if status == "" || m.Status == status {
			matched = append(matched, m)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].TranscriptCount != matched[j].TranscriptCount {
			return matched[i].TranscriptCount > matched[j].TranscriptCount
		}
		return matched[i].OriginalName < matched[j].OriginalName
	})

	total := int64(len(matched))
	if offset >= len(matched) {
		return []*entities.NameMapping{}, total, nil
	}
	end := len(matched)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	out := make([]*entities.NameMapping, 0, end-offset)
	for _, m := range matched[offset:end] {
		out = append(out, m.Clone())
	}
	return out, total, nil
}

func (r *MemoryMappingRepository) ListNamesResolvedTo(_ context.Context, resolvedName string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var names []string
	for _, m := range r.mappings {
		if m.Status.IsResolved() && m.ResolvedName != nil && strings.EqualFold(*m.ResolvedName, resolvedName) {
			names = append(names, m.OriginalName)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (r *MemoryMappingRepository) Suggest(_ context.Context, originalName string, crmMatch, crmStudentID *string, confidence int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.mappings[originalName]
	if !ok {
		return false, ucerrors.ErrMappingNotFound
	}
	if m.Status != entities.MappingStatusPending {
		return false, ucerrors.ErrInvalidTransition
	}
	if sameSuggestion(m, crmMatch, crmStudentID, confidence) {
		return false, nil
	}

	m.CRMMatch = copyString(crmMatch)
	m.CRMStudentID = copyString(crmStudentID)
	m.Confidence = confidence
	m.UpdatedAt = r.now()
	return true, nil
}

func (r *MemoryMappingRepository) Transition(_ context.Context, t entities.MappingTransition) (*entities.NameMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.mappings[t.OriginalName]
	if !ok {
		return nil, ucerrors.ErrMappingNotFound
	}
	if m.Status != t.From || !t.From.CanTransitionTo(t.To) {
		return nil, ucerrors.ErrInvalidTransition
	}

	now := r.now()
	entry := &entities.UndoEntry{
		OriginalName:         m.OriginalName,
		Action:               t.Action,
		PreviousStatus:       m.Status,
		PreviousResolvedName: copyString(m.ResolvedName),
		AppliedStatus:        t.To,
		AppliedResolvedName:  copyString(t.ResolvedName),
		Actor:                t.Actor,
		CreatedAt:            now,
	}
	applyTransition(m, t, now)

	r.nextUndoID++
	entry.ID = r.nextUndoID
	r.undoLog = append(r.undoLog, entry)
	return m.Clone(), nil
}

func (r *MemoryMappingRepository) Undo(_ context.Context, actor string) (*entities.NameMapping, *entities.UndoEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.top()
	if entry == nil {
		return nil, nil, ucerrors.ErrNothingToUndo
	}
	m, ok := r.mappings[entry.OriginalName]
	if !ok {
		return nil, nil, ucerrors.ErrMappingNotFound
	}

	now := r.now()
	restoreFromUndo(m, entry, actor, now)
	entry.UndoneAt = &now
	entry.UndoneBy = entities.StringPtr(actor)

	out := *entry
	return m.Clone(), &out, nil
}

func (r *MemoryMappingRepository) LatestUndo(_ context.Context) (*entities.UndoEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.top()
	if entry == nil {
		return nil, nil
	}
	out := *entry
	return &out, nil
}

// top returns the most recent entry not yet undone; caller holds mu
func (r *MemoryMappingRepository) top() *entities.UndoEntry {
	for i := len(r.undoLog) - 1; i >= 0; i-- {
		if r.undoLog[i].UndoneAt == nil {
			return r.undoLog[i]
		}
	}
	return nil
}

// applyTransition mutates m to the transition target and records history
func applyTransition(m *entities.NameMapping, t entities.MappingTransition, now time.Time) {
	m.History = append(m.History, entities.HistoryEntry{
		Action:               t.Action,
		PreviousStatus:       m.Status,
		PreviousResolvedName: copyString(m.ResolvedName),
		Actor:                t.Actor,
		Timestamp:            now,
	})
	m.Status = t.To
	m.ResolvedName = copyString(t.ResolvedName)
	if t.Confidence != nil {
		m.Confidence = *t.Confidence
	}
	if t.CRMMatch != nil {
		m.CRMMatch = copyString(t.CRMMatch)
	}
	if t.CRMStudentID != nil {
		m.CRMStudentID = copyString(t.CRMStudentID)
	}
	m.UpdatedAt = now
}

// restoreFromUndo puts m back into the state captured by entry. The undo
// itself is recorded in history but never pushed on the undo stack.
func restoreFromUndo(m *entities.NameMapping, entry *entities.UndoEntry, actor string, now time.Time) {
	m.History = append(m.History, entities.HistoryEntry{
		Action:               entities.ActionUndo,
		PreviousStatus:       m.Status,
		PreviousResolvedName: copyString(m.ResolvedName),
		Actor:                actor,
		Timestamp:            now,
	})
	m.Status = entry.PreviousStatus
	m.ResolvedName = copyString(entry.PreviousResolvedName)
	m.UpdatedAt = now
}

func sameSuggestion(m *entities.NameMapping, crmMatch, crmStudentID *string, confidence int) bool {
	return m.Confidence == confidence &&
		equalStrings(m.CRMMatch, crmMatch) &&
		equalStrings(m.CRMStudentID, crmStudentID)
}

func equalStrings(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
