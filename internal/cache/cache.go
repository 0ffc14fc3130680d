package cache

import (
	"context"
	"sync"
	"time"

	"kardex/backend/internal/domain"
)

// ReportCache keeps finished reconciliation reports by run id so exports can
// return exactly what was shown. It is never used to skip a recomputation.
type ReportCache interface {
	Get(ctx context.Context, runID string) (*domain.TransferReport, bool, error)
	Set(ctx context.Context, runID string, report *domain.TransferReport, ttl time.Duration) error
}

type NoopReportCache struct{}

func (NoopReportCache) Get(_ context.Context, _ string) (*domain.TransferReport, bool, error) {
	return nil, false, nil
}

func (NoopReportCache) Set(_ context.Context, _ string, _ *domain.TransferReport, _ time.Duration) error {
	return nil
}

type memoryEntry struct {
	report    domain.TransferReport
	expiresAt time.Time
}

// MemoryReportCache is the in-process archive used when Redis is not configured.
type MemoryReportCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryReportCache() *MemoryReportCache {
	return &MemoryReportCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryReportCache) Get(_ context.Context, runID string) (*domain.TransferReport, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[runID]
	if !ok {
		return nil, false, nil
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, runID)
		return nil, false, nil
	}
	report := entry.report
	return &report, true, nil
}

func (c *MemoryReportCache) Set(_ context.Context, runID string, report *domain.TransferReport, ttl time.Duration) error {
	if report == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for id, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, id)
		}
	}
	c.entries[runID] = memoryEntry{report: *report, expiresAt: now.Add(ttl)}
	return nil
}
