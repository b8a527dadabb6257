package batch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/johnquangdev/lesson-attribution/internal/adapter/repository"
	"github.com/johnquangdev/lesson-attribution/internal/domain/entities"
	"github.com/johnquangdev/lesson-attribution/internal/domain/repositories"
	"github.com/johnquangdev/lesson-attribution/internal/infrastructure/cache"
	ucerrors "github.com/johnquangdev/lesson-attribution/internal/usecase/errors"
	"github.com/johnquangdev/lesson-attribution/internal/usecase/grouplesson"
	"github.com/johnquangdev/lesson-attribution/internal/usecase/matching"
	"github.com/johnquangdev/lesson-attribution/internal/usecase/transcript"
	"github.com/johnquangdev/lesson-attribution/pkg/config"
	"github.com/johnquangdev/lesson-attribution/pkg/lexicon"
)

type fakeSource struct {
	docs []entities.TranscriptDocument
}

func (f *fakeSource) ListTranscripts(context.Context) ([]entities.TranscriptDocument, error) {
	return f.docs, nil
}

type fakeRegistry struct {
	students []entities.CRMStudent
	err      error
	calls    int
}

func (f *fakeRegistry) ListStudents(context.Context) ([]entities.CRMStudent, error) {
	f.calls++
	return f.students, f.err
}

type fixture struct {
	runner       *Runner
	mappings     *repository.MemoryMappingRepository
	attributions *repository.MemoryAttributionRepository
	registry     *fakeRegistry
	lock         *cache.LocalRunLock
}

var lessons = []entities.TranscriptDocument{
	{ID: "lesson-1", RawText: "ענבל (0): שלום\nליהי (2): היי ענבל\nענבל (4): נתחיל"},
	{ID: "lesson-2", RawText: "ענבל (0): שלום לכולן\nעדי (2.5): היי\nשיר (4): לה לה לה לה"},
	{ID: "lesson-3", RawText: "no speakers here"},
}

// flakyAttributions fails the first saves of each transcript with a transient error
type flakyAttributions struct {
	*repository.MemoryAttributionRepository
	mu       sync.Mutex
	failures int
	calls    map[string]int
}

func (f *flakyAttributions) SaveAttribution(ctx context.Context, a *entities.TranscriptAttribution) error {
	f.mu.Lock()
	f.calls[a.TranscriptID]++
	n := f.calls[a.TranscriptID]
	f.mu.Unlock()
	if n <= f.failures {
		return errors.New("dial tcp 10.0.0.5:5432: connection refused")
	}
	return f.MemoryAttributionRepository.SaveAttribution(ctx, a)
}

func newFixture(t *testing.T, registry *fakeRegistry) *fixture {
	t.Helper()
	cfg := config.DefaultMatching()
	cfg.Workers = 2
	return newFixtureWith(t, registry, cfg, nil)
}

func newFixtureWith(t *testing.T, registry *fakeRegistry, cfg config.MatchingConfig, attributionRepo repositories.AttributionRepository) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	lx := lexicon.Default()

	entries, err := lexicon.LoadTransliterations("")
	require.NoError(t, err)
	scorer := matching.NewScorer(lx.DeviceTokens, matching.NewTransliterationTable(entries))

	mappings := repository.NewMemoryMappingRepository()
	attributions := repository.NewMemoryAttributionRepository()
	if attributionRepo == nil {
		attributionRepo = attributions
	}
	lock := cache.NewLocalRunLock()
	analyzer := grouplesson.NewAnalyzer(grouplesson.NewSingingDetector(lx.Singing), cfg.WordsPerMinute)

	runner := NewRunner(Deps{
		Source:       &fakeSource{docs: lessons},
		Attributor:   transcript.NewAttributor(lx, cfg.FirstLines),
		Attributions: attributionRepo,
		Lessons:      grouplesson.NewService(analyzer, repository.NewMemoryGroupLessonRepository(), mappings, logger),
		Mappings:     mappings,
		Roster:       cache.NewRosterCache(registry, 0, logger),
		Matcher:      matching.NewMatcher(mappings, scorer, cfg, logger),
		Lock:         lock,
	}, cfg, logger)

	return &fixture{
		runner:       runner,
		mappings:     mappings,
		attributions: attributions,
		registry:     registry,
		lock:         lock,
	}
}

func TestRun_IngestsAndMatches(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &fakeRegistry{students: []entities.CRMStudent{
		{ID: "s-1", Name: "Lihi Cohen", Active: true},
		{ID: "s-2", Name: "Adi Shalev", Active: false},
	}})

	report, err := f.runner.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Transcripts)
	assert.Equal(t, 2, report.Attributed)
	assert.Equal(t, 1, report.NoAttribution)
	assert.Equal(t, 1, report.GroupLessons)
	assert.Equal(t, 3, report.NewObservations)
	assert.Empty(t, report.Failed)
	// inactive students are not candidates
	assert.Equal(t, 1, report.Candidates)
	require.NotNil(t, report.Match)
	assert.Equal(t, 3, report.Match.Examined)
	assert.Equal(t, 1, report.Match.AutoMatched)

	lihi, err := f.mappings.Get(ctx, "ליהי")
	require.NoError(t, err)
	assert.Equal(t, entities.MappingStatusAutoMatched, lihi.Status)
	require.NotNil(t, lihi.ResolvedName)
	assert.Equal(t, "Lihi Cohen", *lihi.ResolvedName)

	adi, err := f.mappings.Get(ctx, "עדי")
	require.NoError(t, err)
	assert.Equal(t, entities.MappingStatusPending, adi.Status)

	empty, err := f.attributions.GetAttribution(ctx, "lesson-3")
	require.NoError(t, err)
	require.NotNil(t, empty)
	assert.True(t, empty.NoAttribution)
	assert.Equal(t, transcript.ReasonNoTurns, empty.Reason)
}

func TestRun_RerunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &fakeRegistry{students: []entities.CRMStudent{
		{ID: "s-1", Name: "Lihi Cohen", Active: true},
	}})

	_, err := f.runner.Run(ctx)
	require.NoError(t, err)

	report, err := f.runner.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.NewObservations)
	assert.Zero(t, report.Match.AutoMatched)
	assert.Equal(t, 2, f.registry.calls)

	lihi, err := f.mappings.Get(ctx, "ליהי")
	require.NoError(t, err)
	assert.Equal(t, 1, lihi.TranscriptCount)
}

func TestRun_CRMFailureAbortsMatching(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &fakeRegistry{err: errors.New("crm returned status 503")})

	report, err := f.runner.Run(ctx)
	require.ErrorIs(t, err, ucerrors.ErrCRMUnavailable)
	require.NotNil(t, report)
	assert.Nil(t, report.Match)

	// ingestion already persisted stays usable
	lihi, err := f.mappings.Get(ctx, "ליהי")
	require.NoError(t, err)
	assert.Equal(t, entities.MappingStatusPending, lihi.Status)
	assert.Nil(t, lihi.CRMMatch)
}

func TestRun_RejectsConcurrentRun(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &fakeRegistry{})

	release, ok, err := f.lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.runner.Run(ctx)
	assert.ErrorIs(t, err, ucerrors.ErrRunInProgress)

	require.NoError(t, release(ctx))
	_, err = f.runner.Run(ctx)
	assert.NoError(t, err)
}

func TestRun_RetriesTransientIngestErrors(t *testing.T) {
	cfg := config.DefaultMatching()
	cfg.Workers = 2
	cfg.JobRetries = 3
	cfg.JobBaseDelay = time.Millisecond

	flaky := &flakyAttributions{
		MemoryAttributionRepository: repository.NewMemoryAttributionRepository(),
		failures:                    2,
		calls:                       map[string]int{},
	}
	f := newFixtureWith(t, &fakeRegistry{students: []entities.CRMStudent{
		{ID: "s-1", Name: "Lihi Cohen", Active: true},
	}}, cfg, flaky)

	report, err := f.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Failed)
	assert.Equal(t, 2, report.Attributed)
	assert.Equal(t, 3, flaky.calls["lesson-1"])

	saved, err := flaky.GetAttribution(context.Background(), "lesson-1")
	require.NoError(t, err)
	require.NotNil(t, saved)
}

func TestRun_ReportsTranscriptsThatExhaustRetries(t *testing.T) {
	cfg := config.DefaultMatching()
	cfg.Workers = 1
	cfg.JobRetries = 2
	cfg.JobBaseDelay = time.Millisecond

	flaky := &flakyAttributions{
		MemoryAttributionRepository: repository.NewMemoryAttributionRepository(),
		failures:                    2,
		calls:                       map[string]int{},
	}
	f := newFixtureWith(t, &fakeRegistry{}, cfg, flaky)

	report, err := f.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Failed, 3)
	assert.Equal(t, 2, flaky.calls["lesson-1"])
	assert.Contains(t, report.Failed[0].Error, "max retries (2) exceeded")
}
