// Package app wires configuration, storage and use cases into the objects
// shared by the API server and the matcher CLI.
package app

import (
	"fmt"
	"log"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/johnquangdev/lesson-attribution/internal/adapter/repository"
	"github.com/johnquangdev/lesson-attribution/internal/domain/repositories"
	"github.com/johnquangdev/lesson-attribution/internal/infrastructure/cache"
	"github.com/johnquangdev/lesson-attribution/internal/infrastructure/database"
	"github.com/johnquangdev/lesson-attribution/internal/infrastructure/storage"
	"github.com/johnquangdev/lesson-attribution/internal/usecase/batch"
	"github.com/johnquangdev/lesson-attribution/internal/usecase/grouplesson"
	"github.com/johnquangdev/lesson-attribution/internal/usecase/matching"
	"github.com/johnquangdev/lesson-attribution/internal/usecase/review"
	"github.com/johnquangdev/lesson-attribution/internal/usecase/transcript"
	"github.com/johnquangdev/lesson-attribution/pkg/config"
	"github.com/johnquangdev/lesson-attribution/pkg/crm"
	"github.com/johnquangdev/lesson-attribution/pkg/lexicon"
)

// rosterTTL bounds how stale the roster served to manual CRM search may get.
// Batch runs always invalidate before matching.
const rosterTTL = 10 * time.Minute

// Options selects how much infrastructure to bring up
type Options struct {
	// InMemory replaces Postgres with in-memory repositories (dry runs)
	InMemory bool
	// WithRunner connects transcript storage and builds the batch runner
	WithRunner bool
}

// App holds the wired dependencies
type App struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *gorm.DB

	Mappings     repositories.MappingRepository
	Attributions repositories.AttributionRepository
	Roster       *cache.RosterCache
	Scorer       *matching.Scorer
	Matcher      *matching.Matcher
	Attributor   *transcript.Attributor
	Lessons      *grouplesson.Service
	Review       review.Service
	Runner       *batch.Runner

	closers []func()
}

// NewLogger builds the process logger for the configured environment
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Server.Environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// New wires every dependency. Call Close when done.
func New(cfg *config.Config, logger *zap.Logger, opts Options) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	// Locale data
	lx, err := lexicon.Load(cfg.Lexicon.LexiconFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load lexicon: %w", err)
	}
	entries := lexicon.LoadTransliterationsOrEmpty(cfg.Lexicon.TransliterationFile, logger)
	table := matching.NewTransliterationTable(entries)
	logger.Info("✅ Lexicon loaded",
		zap.Int("teacher_names", len(lx.TeacherNames)),
		zap.Int("group_roster", len(lx.GroupRoster)),
		zap.Int("transliterations", table.Len()),
	)

	// Repositories
	var lessonRepo repositories.GroupLessonRepository
	if opts.InMemory {
		logger.Warn("⚠️ Using in-memory repositories, nothing will be persisted")
		a.Mappings = repository.NewMemoryMappingRepository()
		a.Attributions = repository.NewMemoryAttributionRepository()
		lessonRepo = repository.NewMemoryGroupLessonRepository()
	} else {
		db, err := database.NewPostgresDB(cfg)
		if err != nil {
			return nil, err
		}
		a.DB = db
		a.closers = append(a.closers, func() { _ = database.CloseDB(db) })

		if cfg.Database.AutoMigrate {
			if _, err := database.Migrate(db, database.MigrationsDir); err != nil {
				a.Close()
				return nil, err
			}
		}

		a.Mappings = repository.NewMappingRepository(db)
		a.Attributions = repository.NewAttributionRepository(db)
		lessonRepo = repository.NewGroupLessonRepository(db)
	}

	// CRM roster
	crmClient := crm.NewClient(&cfg.CRM, crm.RetryPolicy{
		InitialInterval: cfg.Matching.CRMInitialInterval,
		MaxInterval:     cfg.Matching.CRMMaxInterval,
		MaxElapsedTime:  cfg.Matching.CRMMaxElapsed,
	}, logger)
	a.Roster = cache.NewRosterCache(crmClient, rosterTTL, logger)

	// Use cases
	a.Scorer = matching.NewScorer(lx.DeviceTokens, table)
	a.Matcher = matching.NewMatcher(a.Mappings, a.Scorer, cfg.Matching, logger)
	a.Attributor = transcript.NewAttributor(lx, cfg.Matching.FirstLines)
	analyzer := grouplesson.NewAnalyzer(grouplesson.NewSingingDetector(lx.Singing), cfg.Matching.WordsPerMinute)
	a.Lessons = grouplesson.NewService(analyzer, lessonRepo, a.Mappings, logger)
	a.Review = review.NewReviewService(a.Mappings, a.Roster, a.Scorer, logger)

	if opts.WithRunner {
		if cfg.Storage.Endpoint == "" {
			a.Close()
			return nil, fmt.Errorf("STORAGE_ENDPOINT is required to run matching")
		}
		store, err := storage.NewTranscriptStore(&cfg.Storage)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect transcript storage: %w", err)
		}

		a.Runner = batch.NewRunner(batch.Deps{
			Source:       store,
			Attributor:   a.Attributor,
			Attributions: a.Attributions,
			Lessons:      a.Lessons,
			Mappings:     a.Mappings,
			Roster:       a.Roster,
			Matcher:      a.Matcher,
			Lock:         a.runLock(opts),
		}, cfg.Matching, logger)
	}

	return a, nil
}

// runLock picks the Redis lock when Redis is configured, else a process-local one
func (a *App) runLock(opts Options) batch.RunLock {
	if opts.InMemory || a.Config.Redis.Host == "" {
		return cache.NewLocalRunLock()
	}

	client, err := cache.NewRedisClient(a.Config)
	if err != nil {
		a.Logger.Warn("⚠️ Redis unavailable, matching runs are only exclusive within this process",
			zap.Error(err),
		)
		return cache.NewLocalRunLock()
	}
	a.closers = append(a.closers, func() { _ = client.Close() })
	return cache.NewRedisRunLock(client, a.Config.Redis.LockTTL)
}

// Close releases connections in reverse order of creation
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	log.Println("✅ Dependencies closed")
}
