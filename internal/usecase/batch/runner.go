package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnquangdev/lesson-attribution/internal/domain/entities"
	"github.com/johnquangdev/lesson-attribution/internal/domain/repositories"
	ucerrors "github.com/johnquangdev/lesson-attribution/internal/usecase/errors"
	"github.com/johnquangdev/lesson-attribution/internal/usecase/grouplesson"
	"github.com/johnquangdev/lesson-attribution/internal/usecase/matching"
	"github.com/johnquangdev/lesson-attribution/internal/usecase/transcript"
	"github.com/johnquangdev/lesson-attribution/pkg/config"
	"github.com/johnquangdev/lesson-attribution/pkg/jobcontext"
)

// RunLock keeps matching runs exclusive. ok is false when another run holds it.
type RunLock interface {
	Acquire(ctx context.Context) (release func(context.Context) error, ok bool, err error)
}

// Roster serves the CRM candidate list for a run
type Roster interface {
	Roster(ctx context.Context) ([]entities.CRMStudent, error)
	Invalidate()
}

// Deps are the collaborators of a Runner
type Deps struct {
	Source       repositories.TranscriptSource
	Attributor   *transcript.Attributor
	Attributions repositories.AttributionRepository
	Lessons      *grouplesson.Service
	Mappings     repositories.MappingRepository
	Roster       Roster
	Matcher      *matching.Matcher
	Lock         RunLock
}

// FailedTranscript is a transcript whose ingestion failed after retries
type FailedTranscript struct {
	TranscriptID string `json:"transcript_id"`
	Error        string `json:"error"`
}

// RunReport summarizes one batch run
type RunReport struct {
	RunID           uuid.UUID             `json:"run_id"`
	StartedAt       time.Time             `json:"started_at"`
	Duration        time.Duration         `json:"duration"`
	Transcripts     int                   `json:"transcripts"`
	Attributed      int                   `json:"attributed"`
	NoAttribution   int                   `json:"no_attribution"`
	GroupLessons    int                   `json:"group_lessons"`
	NewObservations int                   `json:"new_observations"`
	Candidates      int                   `json:"candidates"`
	Failed          []FailedTranscript    `json:"failed,omitempty"`
	Match           *matching.MatchReport `json:"match,omitempty"`
}

// Runner ingests transcripts, then reconciles pending names against the CRM
type Runner struct {
	deps   Deps
	cfg    config.MatchingConfig
	logger *zap.Logger
}

// NewRunner creates a batch runner
func NewRunner(deps Deps, cfg config.MatchingConfig, logger *zap.Logger) *Runner {
	return &Runner{
		deps:   deps,
		cfg:    cfg,
		logger: logger,
	}
}

// Run performs one full batch run. Ingestion failures are reported per
// transcript; a CRM outage aborts the run after ingestion with ErrCRMUnavailable.
func (r *Runner) Run(ctx context.Context) (*RunReport, error) {
	release, ok, err := r.deps.Lock.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, ucerrors.ErrRunInProgress
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil && r.logger != nil {
			r.logger.Warn("⚠️ Failed to release run lock", zap.Error(err))
		}
	}()

	report := &RunReport{RunID: uuid.New(), StartedAt: time.Now()}
	if r.logger != nil {
		r.logger.Info("🔄 Matching run started",
			zap.String("run_id", report.RunID.String()),
			zap.Int("workers", r.cfg.Workers),
		)
	}

	docs, err := r.deps.Source.ListTranscripts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}
	report.Transcripts = len(docs)

	r.ingest(ctx, report, docs)

	r.deps.Roster.Invalidate()
	students, err := r.deps.Roster.Roster(ctx)
	if err != nil {
		if r.logger != nil {
			r.logger.Error("❌ CRM roster unavailable, matching aborted",
				zap.String("run_id", report.RunID.String()),
				zap.Error(err),
			)
		}
		return report, fmt.Errorf("%w: %v", ucerrors.ErrCRMUnavailable, err)
	}

	candidates := r.filterCandidates(students)
	report.Candidates = len(candidates)

	match, err := r.deps.Matcher.Run(ctx, candidates)
	if err != nil {
		return report, fmt.Errorf("match pending names: %w", err)
	}
	report.Match = match
	report.Duration = time.Since(report.StartedAt)

	if r.logger != nil {
		r.logger.Info("✅ Matching run finished",
			zap.String("run_id", report.RunID.String()),
			zap.Int("transcripts", report.Transcripts),
			zap.Int("attributed", report.Attributed),
			zap.Int("no_attribution", report.NoAttribution),
			zap.Int("failed", len(report.Failed)),
			zap.Int("auto_matched", match.AutoMatched),
			zap.Int("suggested", match.Suggested),
			zap.Duration("duration", report.Duration),
		)
	}
	return report, nil
}

// ingest processes docs in a bounded worker pool
func (r *Runner) ingest(ctx context.Context, report *RunReport, docs []entities.TranscriptDocument) {
	workers := r.cfg.Workers
	if workers < 1 {
		workers = 1
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, workers)
	)

	ctx = jobcontext.WithRetryPolicy(ctx, jobcontext.RetryPolicy{
		MaxRetries: r.cfg.JobRetries,
		BaseDelay:  r.cfg.JobBaseDelay,
	})

	for i, doc := range docs {
		if ctx.Err() != nil {
			mu.Lock()
			report.Failed = append(report.Failed, FailedTranscript{TranscriptID: doc.ID, Error: ctx.Err().Error()})
			mu.Unlock()
			continue
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(workerID int, doc entities.TranscriptDocument) {
			defer wg.Done()
			defer func() { <-sem }()

			jobCtx, cancel := jobcontext.JobBegin(ctx, report.RunID, doc.ID, workerID)
			defer cancel()

			var outcome *ingestOutcome
			err := jobcontext.JobEnd(jobCtx, func(ctx context.Context) error {
				o, err := r.ingestOne(ctx, doc)
				if err != nil {
					return err
				}
				outcome = o
				return nil
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed = append(report.Failed, FailedTranscript{TranscriptID: doc.ID, Error: err.Error()})
				if r.logger != nil {
					r.logger.Error("❌ Transcript ingestion failed",
						zap.String("run_id", report.RunID.String()),
						zap.String("transcript_id", doc.ID),
						zap.Error(err),
					)
				}
				return
			}
			if outcome.noAttribution {
				report.NoAttribution++
			} else {
				report.Attributed++
			}
			if outcome.group {
				report.GroupLessons++
			}
			report.NewObservations += outcome.newObservations
		}(i%workers, doc)
	}

	wg.Wait()
}

type ingestOutcome struct {
	noAttribution   bool
	group           bool
	newObservations int
}

// ingestOne attributes one transcript and records its outcome. Every write is
// idempotent so a retried job cannot double count.
func (r *Runner) ingestOne(ctx context.Context, doc entities.TranscriptDocument) (*ingestOutcome, error) {
	meta, _ := jobcontext.Metadata(ctx)
	if meta.Attempt > 0 && r.logger != nil {
		r.logger.Info("🔄 Retrying transcript", meta.Fields()...)
	}

	attr := r.deps.Attributor.Attribute(doc)

	if err := r.deps.Attributions.SaveAttribution(ctx, attr.Record()); err != nil {
		return nil, fmt.Errorf("save attribution: %w", err)
	}

	outcome := &ingestOutcome{noAttribution: attr.NoAttribution}
	if attr.NoAttribution {
		if r.logger != nil {
			r.logger.Warn("⚠️ No attribution possible",
				append(meta.Fields(), zap.String("reason", attr.Reason))...,
			)
		}
		return outcome, nil
	}

	analysis, err := r.deps.Lessons.Record(ctx, attr)
	if err != nil {
		return nil, err
	}
	outcome.group = analysis != nil

	for _, name := range attr.StudentNames {
		_, counted, err := r.deps.Mappings.Observe(ctx, doc.ID, name)
		if err != nil {
			return nil, fmt.Errorf("observe %q: %w", name, err)
		}
		if counted {
			outcome.newObservations++
		}
	}

	if r.logger != nil {
		r.logger.Debug("✅ Transcript attributed",
			append(meta.Fields(),
				zap.String("format", string(attr.Format)),
				zap.Strings("student_names", attr.StudentNames),
				zap.Bool("group", attr.IsGroup),
				zap.Duration("elapsed", time.Since(meta.StartTime)),
			)...,
		)
	}
	return outcome, nil
}

func (r *Runner) filterCandidates(students []entities.CRMStudent) []entities.CRMStudent {
	if r.cfg.IncludeInactive {
		return students
	}
	active := make([]entities.CRMStudent, 0, len(students))
	for _, s := range students {
		if s.Active {
			active = append(active, s)
		}
	}
	return active
}
