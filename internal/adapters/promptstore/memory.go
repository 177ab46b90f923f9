package promptstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mikey/mailtagger/internal/core"
	"go.uber.org/zap"
)

// MemoryStore is an in-memory implementation of the PromptRepository
// interface. State does not survive a restart; it exists for local runs
// and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	prompts map[int64]*core.Prompt
	nextID  int64
	logs    []*core.ClassificationRecord
	tests   []*core.TestResult
	logger  *zap.Logger
}

// NewMemoryStore creates a new in-memory prompt store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		prompts: make(map[int64]*core.Prompt),
		nextID:  1,
		logger:  logger,
	}
}

// GetActivePrompt returns the single active prompt, installing the built-in
// default when the store is empty
func (s *MemoryStore) GetActivePrompt(ctx context.Context) (*core.Prompt, error) {
	s.mu.RLock()
	for _, p := range s.prompts {
		if p.IsActive {
			cp := *p
			s.mu.RUnlock()
			return &cp, nil
		}
	}
	s.mu.RUnlock()

	s.logger.Info("No active prompt found, installing default",
		zap.String("name", DefaultPromptName))
	return s.SetActivePrompt(ctx, DefaultPromptName, DefaultPromptContent)
}

// SetActivePrompt upserts a prompt by name and makes it the only active one
func (s *MemoryStore) SetActivePrompt(_ context.Context, name, content string) (*core.Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var target *core.Prompt
	for _, p := range s.prompts {
		p.IsActive = false
		if p.Name == name {
			target = p
		}
	}

	if target == nil {
		target = &core.Prompt{
			ID:        s.nextID,
			Name:      name,
			CreatedAt: now,
		}
		s.nextID++
		s.prompts[target.ID] = target
	}
	target.Content = content
	target.IsActive = true
	target.UpdatedAt = now

	cp := *target
	return &cp, nil
}

// LogClassification appends a production classification record
func (s *MemoryStore) LogClassification(_ context.Context, rec *core.ClassificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.logs = append(s.logs, &cp)
	return nil
}

// SaveTestResult appends a result from an ad-hoc prompt test run
func (s *MemoryStore) SaveTestResult(_ context.Context, res *core.TestResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *res
	s.tests = append(s.tests, &cp)
	return nil
}

// RecentTestResults returns the most recent test results, newest first
func (s *MemoryStore) RecentTestResults(_ context.Context, limit int) ([]*core.TestResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*core.TestResult, len(s.tests))
	for i, t := range s.tests {
		cp := *t
		results[i] = &cp
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].TestDate.After(results[j].TestDate)
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Statistics aggregates classification logs for the active prompt over the
// last N days
func (s *MemoryStore) Statistics(ctx context.Context, days int) (*core.Statistics, error) {
	active, err := s.GetActivePrompt(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().AddDate(0, 0, -days)
	stats := &core.Statistics{
		PromptID:   active.ID,
		PromptName: active.Name,
		Days:       days,
		Categories: make(map[core.Category]core.CategoryStats),
	}

	type agg struct {
		count      int
		confidence float64
	}
	perCategory := make(map[core.Category]*agg)
	var totalConf, totalTime float64

	for _, rec := range s.logs {
		if rec.PromptID != active.ID || rec.Timestamp.Before(cutoff) {
			continue
		}
		a, ok := perCategory[rec.Category]
		if !ok {
			a = &agg{}
			perCategory[rec.Category] = a
		}
		a.count++
		a.confidence += rec.Confidence
		totalConf += rec.Confidence
		totalTime += rec.ProcessingTime.Seconds()
		stats.Total++
	}

	for category, a := range perCategory {
		stats.Categories[category] = core.CategoryStats{
			Count:         a.count,
			AvgConfidence: a.confidence / float64(a.count),
		}
	}
	if stats.Total > 0 {
		stats.AvgConfidence = totalConf / float64(stats.Total)
		stats.AvgProcessingTime = totalTime / float64(stats.Total)
	}
	return stats, nil
}

// PruneLogs removes classification logs and test results older than the
// given age
func (s *MemoryStore) PruneLogs(_ context.Context, olderThan time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	logs := s.logs[:0]
	for _, rec := range s.logs {
		if !rec.Timestamp.Before(cutoff) {
			logs = append(logs, rec)
		}
	}
	s.logs = logs

	tests := s.tests[:0]
	for _, res := range s.tests {
		if !res.TestDate.Before(cutoff) {
			tests = append(tests, res)
		}
	}
	s.tests = tests
	return nil
}
