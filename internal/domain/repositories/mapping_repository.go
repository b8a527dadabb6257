package repositories

import (
	"context"

	"github.com/johnquangdev/lesson-attribution/internal/domain/entities"
)

// MappingRepository defines persistence operations for name mappings and the undo stack
type MappingRepository interface {
	// Observe records that transcriptID contains originalName. The first observation of a
	// (transcript, name) pair creates the mapping or increments its transcript count atomically;
	// repeats are no-ops and report counted=false.
	Observe(ctx context.Context, transcriptID, originalName string) (mapping *entities.NameMapping, counted bool, err error)

	// Get returns the mapping or usecase ErrMappingNotFound
	Get(ctx context.Context, originalName string) (*entities.NameMapping, error)

	// ListByStatus lists mappings ordered by transcript count desc, then name
	ListByStatus(ctx context.Context, status entities.MappingStatus, limit, offset int) ([]*entities.NameMapping, int64, error)

	// ListNamesResolvedTo returns every original name whose mapping resolves to resolvedName
	ListNamesResolvedTo(ctx context.Context, resolvedName string) ([]string, error)

	// Suggest stores matcher output on a pending mapping; returns false when nothing changed
	Suggest(ctx context.Context, originalName string, crmMatch, crmStudentID *string, confidence int) (bool, error)

	// Transition applies a forward change if the mapping is still in t.From,
	// appending history and pushing an undo entry in the same unit of work.
	Transition(ctx context.Context, t entities.MappingTransition) (*entities.NameMapping, error)

	// Undo pops the most recent undo entry across all mappings and restores that mapping.
	// Concurrent calls are mutually exclusive.
	Undo(ctx context.Context, actor string) (*entities.NameMapping, *entities.UndoEntry, error)

	// LatestUndo peeks at the top of the undo stack (nil when empty)
	LatestUndo(ctx context.Context) (*entities.UndoEntry, error)
}
