package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/johnquangdev/lesson-attribution/internal/domain/entities"
	"github.com/johnquangdev/lesson-attribution/internal/domain/repositories"
)

// RosterCache holds one CRM roster snapshot in memory. A batch run refreshes
// it once and every later read in that run is served from the snapshot.
type RosterCache struct {
	mu        sync.Mutex
	registry  repositories.StudentRegistry
	ttl       time.Duration
	students  []entities.CRMStudent
	fetchedAt time.Time
	loaded    bool
	logger    *zap.Logger
}

// NewRosterCache creates a roster cache. ttl <= 0 keeps a snapshot until Invalidate.
func NewRosterCache(registry repositories.StudentRegistry, ttl time.Duration, logger *zap.Logger) *RosterCache {
	return &RosterCache{
		registry: registry,
		ttl:      ttl,
		logger:   logger,
	}
}

// Roster returns the cached snapshot, fetching it when absent or expired.
// Concurrent callers share a single fetch.
func (c *RosterCache) Roster(ctx context.Context) ([]entities.CRMStudent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded && (c.ttl <= 0 || time.Since(c.fetchedAt) < c.ttl) {
		return c.snapshot(), nil
	}

	students, err := c.registry.ListStudents(ctx)
	if err != nil {
		return nil, err
	}

	c.students = students
	c.fetchedAt = time.Now()
	c.loaded = true

	if c.logger != nil {
		c.logger.Info("✅ CRM roster cached", zap.Int("students", len(students)))
	}
	return c.snapshot(), nil
}

// Invalidate drops the snapshot so the next read refetches
func (c *RosterCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.students = nil
	c.loaded = false
}

func (c *RosterCache) snapshot() []entities.CRMStudent {
	out := make([]entities.CRMStudent, len(c.students))
	copy(out, c.students)
	return out
}
