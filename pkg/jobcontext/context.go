// Package jobcontext runs one transcript job of a batch run with a timeout,
// panic recovery and bounded retries, carrying the job's identity in context.
package jobcontext

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ctxKey int

const (
	metadataKey ctxKey = iota
	policyKey
)

// jobTimeout bounds a single job including its retries
const jobTimeout = 5 * time.Minute

// maxDelay caps the wait between attempts
const maxDelay = 60 * time.Second

// RetryPolicy bounds how often a failing job is attempted
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultRetryPolicy applies when the run context carries none
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 3, BaseDelay: time.Second}

// JobMetadata identifies one transcript job within a run
type JobMetadata struct {
	RunID        uuid.UUID
	TranscriptID string
	WorkerID     int
	Attempt      int
	MaxRetries   int
	StartTime    time.Time
}

// Fields returns the metadata as log fields
func (m JobMetadata) Fields() []zap.Field {
	return []zap.Field{
		zap.String("run_id", m.RunID.String()),
		zap.String("transcript_id", m.TranscriptID),
		zap.Int("worker_id", m.WorkerID),
		zap.Int("attempt", m.Attempt+1),
		zap.Int("max_retries", m.MaxRetries),
	}
}

// WithRetryPolicy sets the policy for every job begun from ctx. Non-positive
// values fall back to DefaultRetryPolicy.
func WithRetryPolicy(ctx context.Context, p RetryPolicy) context.Context {
	if p.MaxRetries < 1 {
		p.MaxRetries = DefaultRetryPolicy.MaxRetries
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultRetryPolicy.BaseDelay
	}
	return context.WithValue(ctx, policyKey, p)
}

func policyFrom(ctx context.Context) RetryPolicy {
	if p, ok := ctx.Value(policyKey).(RetryPolicy); ok {
		return p
	}
	return DefaultRetryPolicy
}

// JobBegin derives the job context. Cancel it when the job is done.
func JobBegin(parent context.Context, runID uuid.UUID, transcriptID string, workerID int) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, jobTimeout)
	meta := JobMetadata{
		RunID:        runID,
		TranscriptID: transcriptID,
		WorkerID:     workerID,
		MaxRetries:   policyFrom(parent).MaxRetries,
		StartTime:    time.Now(),
	}
	return context.WithValue(ctx, metadataKey, meta), cancel
}

// Metadata returns the job metadata of ctx, with Attempt set to the running attempt
func Metadata(ctx context.Context) (JobMetadata, bool) {
	meta, ok := ctx.Value(metadataKey).(JobMetadata)
	return meta, ok
}

// JobEnd runs job until it succeeds, fails with a non-retryable error, or
// runs out of attempts. Panics are returned as errors.
func JobEnd(ctx context.Context, job func(context.Context) error) error {
	policy := policyFrom(ctx)
	meta, _ := Metadata(ctx)

	var err error
	for attempt := 0; attempt < policy.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled during retry: %w", ctx.Err())
			case <-time.After(retryDelay(attempt, policy.BaseDelay)):
			}
		}

		meta.Attempt = attempt
		err = runAttempt(context.WithValue(ctx, metadataKey, meta), job)
		if err == nil {
			return nil
		}
		if !IsRetryableError(err) {
			return fmt.Errorf("non-retryable error: %w", err)
		}
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", policy.MaxRetries, err)
}

func runAttempt(ctx context.Context, job func(context.Context) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic recovered: %v", p)
		}
	}()

	if ctx.Err() != nil {
		return fmt.Errorf("context cancelled before job execution: %w", ctx.Err())
	}
	return job(ctx)
}

// retryableFragments are lower-cased error texts worth another attempt:
// timeouts, dropped connections, Postgres serialization and deadlock codes.
var retryableFragments = []string{
	"context deadline exceeded",
	"connection refused",
	"connection reset",
	"network unreachable",
	"no such host",
	"i/o timeout",
	"deadlock",
	"40001",
	"40p01",
	"temporary failure",
	"try again",
}

// IsRetryableError reports whether err is transient. A cancelled run is not.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, fragment := range retryableFragments {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

// retryDelay doubles base per attempt, capped at maxDelay
func retryDelay(attempt int, base time.Duration) time.Duration {
	if attempt < 1 {
		return base
	}
	if attempt > 16 {
		return maxDelay
	}
	d := base << uint(attempt-1)
	if d > maxDelay || d <= 0 {
		return maxDelay
	}
	return d
}
