package seasonal

import (
	"fmt"
	"sync"
	"time"

	"github.com/westtrac/parts-insights/internal/domain"
)

type slot struct {
	mu       sync.RWMutex
	patterns map[string]domain.SeasonalPattern
	failures []domain.EntityFailure
	builtAt  time.Time
}

// Store holds the latest patterns per level. Each level is replaced
// wholesale on rebuild so readers never see a half-built level.
type Store struct {
	slots map[domain.Level]*slot
	now   func() time.Time
}

func NewStore() *Store {
	s := &Store{
		slots: make(map[domain.Level]*slot, len(domain.Levels)),
		now:   time.Now,
	}
	for _, level := range domain.Levels {
		s.slots[level] = &slot{patterns: map[string]domain.SeasonalPattern{}}
	}
	return s
}

// Rebuild replaces the contents of one level.
func (s *Store) Rebuild(level domain.Level, patterns map[string]domain.SeasonalPattern, failures []domain.EntityFailure) error {
	sl, ok := s.slots[level]
	if !ok {
		return fmt.Errorf("%w: unknown level %q", domain.ErrInvalidInput, level)
	}

	copied := make(map[string]domain.SeasonalPattern, len(patterns))
	for id, p := range patterns {
		copied[id] = p
	}
	failed := append([]domain.EntityFailure(nil), failures...)

	sl.mu.Lock()
	sl.patterns = copied
	sl.failures = failed
	sl.builtAt = s.now()
	sl.mu.Unlock()
	return nil
}

// Load rebuilds every level from a finished analysis.
func (s *Store) Load(analysis *domain.SeasonalAnalysis) {
	for _, level := range domain.Levels {
		la := analysis.Levels[level]
		// Levels are fixed, Rebuild cannot fail here.
		_ = s.Rebuild(level, la.Patterns, la.Failures)
	}
}

// Pattern returns the stored pattern of an entity at a level.
func (s *Store) Pattern(level domain.Level, entityID string) (domain.SeasonalPattern, bool) {
	sl, ok := s.slots[level]
	if !ok {
		return domain.SeasonalPattern{}, false
	}
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	p, ok := sl.patterns[entityID]
	return p, ok
}

// Patterns returns a copy of all patterns of a level.
func (s *Store) Patterns(level domain.Level) map[string]domain.SeasonalPattern {
	sl, ok := s.slots[level]
	if !ok {
		return nil
	}
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	out := make(map[string]domain.SeasonalPattern, len(sl.patterns))
	for id, p := range sl.patterns {
		out[id] = p
	}
	return out
}

// Snapshot returns every level keyed by its slot name.
func (s *Store) Snapshot() map[domain.Level]map[string]domain.SeasonalPattern {
	out := make(map[domain.Level]map[string]domain.SeasonalPattern, len(s.slots))
	for _, level := range domain.Levels {
		out[level] = s.Patterns(level)
	}
	return out
}

func (s *Store) Failures(level domain.Level) []domain.EntityFailure {
	sl, ok := s.slots[level]
	if !ok {
		return nil
	}
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	return append([]domain.EntityFailure(nil), sl.failures...)
}

// BuiltAt reports when a level was last rebuilt; zero if never.
func (s *Store) BuiltAt(level domain.Level) time.Time {
	sl, ok := s.slots[level]
	if !ok {
		return time.Time{}
	}
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	return sl.builtAt
}
