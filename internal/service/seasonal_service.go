package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/westtrac/parts-insights/internal/cache"
	"github.com/westtrac/parts-insights/internal/config"
	"github.com/westtrac/parts-insights/internal/domain"
	"github.com/westtrac/parts-insights/internal/repository"
	"github.com/westtrac/parts-insights/internal/seasonal"
)

// ErrNoUsageSource is returned when an analysis is requested without a repository.
var ErrNoUsageSource = errors.New("no usage repository configured")

// SeasonalService loads usage, runs the seasonal analysis and answers
// recommendation lookups against the latest result.
type SeasonalService struct {
	repo     repository.UsageRepository
	cache    cache.SeasonalCache
	analyzer *seasonal.Analyzer
	store    *seasonal.Store
	index    *seasonal.CategoryIndex
	composer *seasonal.Composer

	// mu serializes analysis runs so the store and the category index are
	// always published from the same result.
	mu      sync.Mutex
	current *domain.SeasonalAnalysis
}

func NewSeasonalService(repo repository.UsageRepository, cacheImpl cache.SeasonalCache, cfg config.SeasonalConfig) (*SeasonalService, error) {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopSeasonalCache()
	}

	locale, ok := seasonal.LocaleFor(cfg.Locale)
	if !ok && cfg.Locale != "" {
		log.Warn().Str("locale", cfg.Locale).Msg("seasonal: unknown locale, falling back to nl")
	}

	store := seasonal.NewStore()
	index := seasonal.NewCategoryIndex()

	var lookup seasonal.CategoryLookup = index
	if repo != nil {
		lookup = seasonal.LookupChain{index, repo}
	}

	composer, err := seasonal.NewComposer(store, lookup, seasonal.ComposerConfig{
		Locale:                   locale,
		RenormalizeMissingLevels: cfg.RenormalizeMissingLevels,
	})
	if err != nil {
		return nil, err
	}

	return &SeasonalService{
		repo:     repo,
		cache:    cacheImpl,
		analyzer: seasonal.NewAnalyzer(nil, cfg.MaxRecords).WithWorkers(cfg.Workers),
		store:    store,
		index:    index,
		composer: composer,
	}, nil
}

// Analyze runs the analysis for the filtered usage, serving from cache when possible.
func (s *SeasonalService) Analyze(ctx context.Context, filter domain.UsageFilter) (*domain.SeasonalAnalysis, error) {
	if s.repo == nil {
		return nil, ErrNoUsageSource
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if analysis, ok, err := s.cache.GetAnalysis(ctx, filter); err == nil && ok {
		s.publish(analysis)
		return analysis, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("seasonal: cache get analysis failed")
	}

	records, err := s.repo.GetUsageRecords(ctx, filter)
	if err != nil {
		return nil, err
	}

	analysis, err := s.analyzer.AnalyzeAllLevels(records)
	if err != nil {
		return nil, err
	}
	s.publish(analysis)

	if err := s.cache.SetAnalysis(ctx, filter, analysis); err != nil {
		log.Warn().Err(err).Msg("seasonal: cache set analysis failed")
	}

	return analysis, nil
}

// AnalyzeRecords runs the analysis over records that were loaded elsewhere.
func (s *SeasonalService) AnalyzeRecords(records []domain.UsageRecord) (*domain.SeasonalAnalysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	analysis, err := s.analyzer.AnalyzeAllLevels(records)
	if err != nil {
		return nil, err
	}
	s.publish(analysis)
	return analysis, nil
}

// Current returns the last published analysis.
func (s *SeasonalService) Current() (*domain.SeasonalAnalysis, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.current != nil
}

func (s *SeasonalService) Patterns(level domain.Level) map[string]domain.SeasonalPattern {
	return s.store.Patterns(level)
}

func (s *SeasonalService) Failures(level domain.Level) []domain.EntityFailure {
	return s.store.Failures(level)
}

// BuiltAt reports when the level was last rebuilt; zero before the first run.
func (s *SeasonalService) BuiltAt(level domain.Level) time.Time {
	return s.store.BuiltAt(level)
}

func (s *SeasonalService) Snapshot() map[domain.Level]map[string]domain.SeasonalPattern {
	return s.store.Snapshot()
}

func (s *SeasonalService) Recommend(level domain.Level, entityID string) domain.Recommendation {
	return s.composer.RecommendForEntity(level, entityID)
}

func (s *SeasonalService) RecommendCombined(ctx context.Context, partNumber string) domain.CombinedRecommendation {
	return s.composer.RecommendForPart(ctx, partNumber)
}

func (s *SeasonalService) Locale() seasonal.Locale {
	return s.composer.Locale()
}

func (s *SeasonalService) GetFilterOptions(ctx context.Context) (*domain.UsageFilterOptions, error) {
	if s.repo == nil {
		return nil, ErrNoUsageSource
	}
	return s.repo.GetFilterOptions(ctx)
}

// InvalidateCache drops every cached analysis.
func (s *SeasonalService) InvalidateCache(ctx context.Context) error {
	return s.cache.InvalidateAll(ctx)
}

func (s *SeasonalService) publish(analysis *domain.SeasonalAnalysis) {
	s.store.Load(analysis)
	s.index.Load(analysis.PartCategories)
	s.current = analysis
}
