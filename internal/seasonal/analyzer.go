package seasonal

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/westtrac/parts-insights/internal/domain"
)

// Analyzer runs the three-level analysis and publishes the result to a Store.
type Analyzer struct {
	store      *Store
	maxRecords int
	workers    int
	now        func() time.Time
}

// NewAnalyzer creates an analyzer. maxRecords <= 0 disables the input bound.
func NewAnalyzer(store *Store, maxRecords int) *Analyzer {
	return &Analyzer{
		store:      store,
		maxRecords: maxRecords,
		workers:    1,
		now:        time.Now,
	}
}

// WithWorkers sets how many entities are computed concurrently per level.
func (a *Analyzer) WithWorkers(n int) *Analyzer {
	if n < 1 {
		n = 1
	}
	a.workers = n
	return a
}

// AnalyzeAllLevels computes part, category and global patterns.
//
// Record-level problems (empty input, missing part or date, bad quantity)
// abort the run. Per-entity problems are recorded as failures and the
// remaining entities are still analyzed. Records without a category are left
// out of the category level only and reported there as one failure with an
// empty entity id.
func (a *Analyzer) AnalyzeAllLevels(records []domain.UsageRecord) (*domain.SeasonalAnalysis, error) {
	if a.maxRecords > 0 && len(records) > a.maxRecords {
		return nil, fmt.Errorf("%w: %d records, limit %d", domain.ErrInputTooLarge, len(records), a.maxRecords)
	}
	if err := validateRecords(records); err != nil {
		return nil, err
	}

	start := a.now()
	analysis := &domain.SeasonalAnalysis{
		Levels:         make(map[domain.Level]domain.LevelAnalysis, len(domain.Levels)),
		PartCategories: DominantCategories(records),
		RecordCount:    len(records),
		GeneratedAt:    start.UTC(),
	}

	for _, level := range domain.Levels {
		la := analyzeLevel(records, level, a.workers)
		analysis.Levels[level] = la
		log.Debug().
			Str("analysis_level", string(level)).
			Int("patterns", len(la.Patterns)).
			Int("failures", len(la.Failures)).
			Msg("seasonal level analyzed")
	}

	if a.store != nil {
		a.store.Load(analysis)
	}

	log.Info().
		Int("records", len(records)).
		Int("failures", len(analysis.Failures())).
		Dur("duration", a.now().Sub(start)).
		Msg("seasonal analysis completed")

	return analysis, nil
}

func analyzeLevel(records []domain.UsageRecord, level domain.Level, workers int) domain.LevelAnalysis {
	la := domain.LevelAnalysis{
		Patterns: map[string]domain.SeasonalPattern{},
		Failures: []domain.EntityFailure{},
	}

	if level.Grouping() == domain.ByCategory {
		var failure *domain.EntityFailure
		records, failure = splitUncategorized(records)
		if failure != nil {
			la.Failures = append(la.Failures, *failure)
		}
		if len(records) == 0 {
			return la
		}
	}

	rows, err := AggregateMonthly(records, level.Grouping())
	if err != nil {
		la.Failures = append(la.Failures, domain.FailureFromError(level, "", &domain.EntityError{Level: level, Err: err}))
		return la
	}

	for _, result := range computePatterns(level, splitByEntity(rows), workers) {
		if result.failure != nil {
			la.Failures = append(la.Failures, *result.failure)
			continue
		}
		la.Patterns[result.pattern.EntityID] = result.pattern
	}

	return la
}

// splitUncategorized drops records without a category. They are reported as a
// single failure with an empty entity id so the other categories still get a
// pattern.
func splitUncategorized(records []domain.UsageRecord) ([]domain.UsageRecord, *domain.EntityFailure) {
	var (
		kept    = make([]domain.UsageRecord, 0, len(records))
		missing int
		first   = -1
	)
	for i, r := range records {
		if strings.TrimSpace(r.Category) == "" {
			if first < 0 {
				first = i
			}
			missing++
			continue
		}
		kept = append(kept, r)
	}
	if missing == 0 {
		return records, nil
	}

	err := &domain.EntityError{
		Level: domain.LevelCategory,
		Err: fmt.Errorf("%w: %d record(s) without category, first is record %d (part %q)",
			domain.ErrInvalidInput, missing, first+1, records[first].PartNumber),
	}
	failure := domain.FailureFromError(domain.LevelCategory, "", err)
	return kept, &failure
}
