package review

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/johnquangdev/lesson-attribution/internal/adapter/repository"
	"github.com/johnquangdev/lesson-attribution/internal/domain/entities"
	ucerrors "github.com/johnquangdev/lesson-attribution/internal/usecase/errors"
	"github.com/johnquangdev/lesson-attribution/internal/usecase/matching"
	"github.com/johnquangdev/lesson-attribution/pkg/lexicon"
)

type staticRoster []entities.CRMStudent

func (r staticRoster) Roster(context.Context) ([]entities.CRMStudent, error) {
	return r, nil
}

func newService(t *testing.T) (Service, *repository.MemoryMappingRepository) {
	t.Helper()
	lx := lexicon.Default()
	entries, err := lexicon.LoadTransliterations("")
	require.NoError(t, err)
	scorer := matching.NewScorer(lx.DeviceTokens, matching.NewTransliterationTable(entries))

	repo := repository.NewMemoryMappingRepository()
	roster := staticRoster{
		{ID: "s-1", Name: "Noa Levi", Active: true},
		{ID: "s-2", Name: "Noam Bar", Active: true},
		{ID: "s-3", Name: "Daniel Cohen", Active: false},
	}
	return NewReviewService(repo, roster, scorer, zaptest.NewLogger(t)), repo
}

func observe(t *testing.T, repo *repository.MemoryMappingRepository, names ...string) {
	t.Helper()
	for _, n := range names {
		_, _, err := repo.Observe(context.Background(), "t-1", n)
		require.NoError(t, err)
	}
}

func TestApprove_Sources(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService(t)
	observe(t, repo, "Noa", "Dana K", "דניאל")

	changed, err := repo.Suggest(ctx, "Noa", entities.StringPtr("Noa Levi"), entities.StringPtr("s-1"), 90)
	require.NoError(t, err)
	require.True(t, changed)

	t.Run("suggestion", func(t *testing.T) {
		m, err := svc.Approve(ctx, ApproveInput{OriginalName: "Noa", Source: SourceSuggestion, Actor: "maya"})
		require.NoError(t, err)
		assert.Equal(t, entities.MappingStatusApproved, m.Status)
		assert.Equal(t, "Noa Levi", *m.ResolvedName)
		require.NotNil(t, m.CRMStudentID)
		assert.Equal(t, "s-1", *m.CRMStudentID)
	})

	t.Run("original", func(t *testing.T) {
		m, err := svc.Approve(ctx, ApproveInput{OriginalName: "Dana K", Source: SourceOriginal, Actor: "maya"})
		require.NoError(t, err)
		assert.Equal(t, "Dana K", *m.ResolvedName)
	})

	t.Run("custom is trimmed", func(t *testing.T) {
		m, err := svc.Approve(ctx, ApproveInput{OriginalName: "דניאל", Source: SourceCustom, ResolvedName: "  Daniel Cohen ", Actor: "maya"})
		require.NoError(t, err)
		assert.Equal(t, "Daniel Cohen", *m.ResolvedName)
	})

	t.Run("already reviewed", func(t *testing.T) {
		_, err := svc.Approve(ctx, ApproveInput{OriginalName: "Noa", Source: SourceOriginal, Actor: "maya"})
		assert.ErrorIs(t, err, ucerrors.ErrInvalidTransition)
	})
}

func TestApprove_RejectsBadInput(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService(t)
	observe(t, repo, "Shira")

	_, err := svc.Approve(ctx, ApproveInput{OriginalName: "Shira", Source: SourceCustom, ResolvedName: " \t ", Actor: "maya"})
	assert.ErrorIs(t, err, ucerrors.ErrEmptyResolvedName)

	_, err = svc.Approve(ctx, ApproveInput{OriginalName: "Shira", Source: SourceSuggestion, Actor: "maya"})
	assert.ErrorIs(t, err, ucerrors.ErrNoSuggestion)

	_, err = svc.Approve(ctx, ApproveInput{OriginalName: "Shira", Source: "guess", Actor: "maya"})
	assert.ErrorIs(t, err, ucerrors.ErrInvalidApproveMode)

	_, err = svc.Approve(ctx, ApproveInput{OriginalName: "Nobody", Source: SourceOriginal, Actor: "maya"})
	assert.ErrorIs(t, err, ucerrors.ErrMappingNotFound)

	m, err := svc.Get(ctx, "Shira")
	require.NoError(t, err)
	assert.Equal(t, entities.MappingStatusPending, m.Status)
	assert.Nil(t, m.ResolvedName)
}

func TestRejectAndUndo(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService(t)
	observe(t, repo, "Samsung Galaxy", "Noa")

	rejected, err := svc.Reject(ctx, "Samsung Galaxy", "maya")
	require.NoError(t, err)
	assert.Equal(t, entities.MappingStatusRejected, rejected.Status)

	approved, err := svc.Approve(ctx, ApproveInput{OriginalName: "Noa", Source: SourceOriginal, Actor: "maya"})
	require.NoError(t, err)
	assert.Equal(t, entities.MappingStatusApproved, approved.Status)

	// undo is global: the latest action goes first
	m, entry, err := svc.Undo(ctx, "maya")
	require.NoError(t, err)
	assert.Equal(t, "Noa", m.OriginalName)
	assert.Equal(t, entities.MappingStatusPending, m.Status)
	assert.Nil(t, m.ResolvedName)
	assert.Equal(t, entities.ActionApprove, entry.Action)

	m, _, err = svc.Undo(ctx, "maya")
	require.NoError(t, err)
	assert.Equal(t, "Samsung Galaxy", m.OriginalName)
	assert.Equal(t, entities.MappingStatusPending, m.Status)

	_, _, err = svc.Undo(ctx, "maya")
	assert.ErrorIs(t, err, ucerrors.ErrNothingToUndo)

	pending, total, err := svc.List(ctx, entities.MappingStatusPending, 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, pending, 2)

	_, _, err = svc.List(ctx, "bogus", 0, 0)
	assert.ErrorIs(t, err, ucerrors.ErrInvalidInput)
}

func TestSearchCRM(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	results, err := svc.SearchCRM(ctx, "Noa", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Noa Levi", results[0].Student.Name)
	assert.Equal(t, 90, results[0].Score)
	assert.Equal(t, "Noam Bar", results[1].Student.Name)
	assert.Equal(t, 80, results[1].Score)

	results, err = svc.SearchCRM(ctx, "Noa", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	_, err = svc.SearchCRM(ctx, "   ", 10)
	assert.ErrorIs(t, err, ucerrors.ErrInvalidInput)
}
