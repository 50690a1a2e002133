package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/westtrac/parts-insights/internal/config"
	"github.com/westtrac/parts-insights/internal/domain"
)

type mockUsageRepository struct {
	mock.Mock
}

func (m *mockUsageRepository) GetUsageRecords(ctx context.Context, filter domain.UsageFilter) ([]domain.UsageRecord, error) {
	args := m.Called(ctx, filter)
	records, _ := args.Get(0).([]domain.UsageRecord)
	return records, args.Error(1)
}

func (m *mockUsageRepository) PartCategory(ctx context.Context, partNumber string) (string, bool, error) {
	args := m.Called(ctx, partNumber)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockUsageRepository) GetFilterOptions(ctx context.Context) (*domain.UsageFilterOptions, error) {
	args := m.Called(ctx)
	opts, _ := args.Get(0).(*domain.UsageFilterOptions)
	return opts, args.Error(1)
}

type mockSeasonalCache struct {
	mock.Mock
}

func (m *mockSeasonalCache) GetAnalysis(ctx context.Context, filter domain.UsageFilter) (*domain.SeasonalAnalysis, bool, error) {
	args := m.Called(ctx, filter)
	analysis, _ := args.Get(0).(*domain.SeasonalAnalysis)
	return analysis, args.Bool(1), args.Error(2)
}

func (m *mockSeasonalCache) SetAnalysis(ctx context.Context, filter domain.UsageFilter, analysis *domain.SeasonalAnalysis) error {
	return m.Called(ctx, filter, analysis).Error(0)
}

func (m *mockSeasonalCache) InvalidateAll(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func record(part, category string, month time.Month, qty float64) domain.UsageRecord {
	return domain.UsageRecord{
		PartNumber: part,
		Category:   category,
		Date:       time.Date(2024, month, 10, 0, 0, 0, 0, time.UTC),
		Quantity:   qty,
	}
}

func sampleRecords() []domain.UsageRecord {
	return []domain.UsageRecord{
		record("P1", "Onderhoud", time.January, 100),
		record("P1", "Onderhoud", time.February, 100),
		record("P1", "Onderhoud", time.March, 400),
		record("P2", "Reparatie", time.March, 5),
	}
}

func defaultSeasonalConfig() config.SeasonalConfig {
	return config.SeasonalConfig{Locale: "nl", MaxRecords: 1000}
}

func TestSeasonalService_AnalyzeCacheMiss(t *testing.T) {
	ctx := context.Background()
	filter := domain.UsageFilter{Clients: []string{"Acme"}}

	repo := new(mockUsageRepository)
	repo.On("GetUsageRecords", ctx, filter).Return(sampleRecords(), nil).Once()

	c := new(mockSeasonalCache)
	c.On("GetAnalysis", ctx, filter).Return(nil, false, nil).Once()
	c.On("SetAnalysis", ctx, filter, mock.AnythingOfType("*domain.SeasonalAnalysis")).Return(errors.New("redis down")).Once()

	svc, err := NewSeasonalService(repo, c, defaultSeasonalConfig())
	require.NoError(t, err)

	analysis, err := svc.Analyze(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, 4, analysis.RecordCount)
	assert.Contains(t, analysis.Levels[domain.LevelPart].Patterns, "P1")

	current, ok := svc.Current()
	require.True(t, ok)
	assert.Same(t, analysis, current)
	assert.Len(t, svc.Patterns(domain.LevelPart), 2)

	repo.AssertExpectations(t)
	c.AssertExpectations(t)
}

func TestSeasonalService_AnalyzeCacheHitPublishes(t *testing.T) {
	ctx := context.Background()
	filter := domain.UsageFilter{}
	cached := &domain.SeasonalAnalysis{
		Levels: map[domain.Level]domain.LevelAnalysis{
			domain.LevelPart: {Patterns: map[string]domain.SeasonalPattern{
				"P7": {
					EntityID:      "P7",
					Level:         domain.LevelPart,
					Periods:       []domain.Period{domain.MonthOfYear(time.May), domain.MonthOfYear(time.June)},
					SeasonalIndex: []float64{1.5, 0.5},
					PeakMonths:    []domain.Period{domain.MonthOfYear(time.May)},
					TroughMonths:  []domain.Period{domain.MonthOfYear(time.June)},
				},
			}},
		},
		PartCategories: map[string]string{"P7": "Onderhoud"},
		RecordCount:    12,
	}

	repo := new(mockUsageRepository)
	c := new(mockSeasonalCache)
	c.On("GetAnalysis", ctx, filter).Return(cached, true, nil).Once()

	svc, err := NewSeasonalService(repo, c, defaultSeasonalConfig())
	require.NoError(t, err)

	analysis, err := svc.Analyze(ctx, filter)
	require.NoError(t, err)
	assert.Same(t, cached, analysis)

	rec := svc.Recommend(domain.LevelPart, "P7")
	assert.Equal(t, domain.StatusAvailable, rec.Status)
	assert.Equal(t, "Verhoog voorraad voor maanden: Mei", rec.StockAdvice.PeakPeriods)

	combined := svc.RecommendCombined(ctx, "P7")
	assert.Equal(t, "Onderhoud", combined.Category)
	assert.Equal(t, []domain.Level{domain.LevelCategory, domain.LevelGlobal}, combined.MissingLevels)

	repo.AssertNotCalled(t, "GetUsageRecords", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "PartCategory", mock.Anything, mock.Anything)
	c.AssertExpectations(t)
}

// jsonCache stores analyses as JSON, the way they are kept in Redis.
type jsonCache struct {
	payload []byte
}

func (j *jsonCache) GetAnalysis(context.Context, domain.UsageFilter) (*domain.SeasonalAnalysis, bool, error) {
	if j.payload == nil {
		return nil, false, nil
	}
	var analysis domain.SeasonalAnalysis
	if err := json.Unmarshal(j.payload, &analysis); err != nil {
		return nil, false, err
	}
	return &analysis, true, nil
}

func (j *jsonCache) SetAnalysis(_ context.Context, _ domain.UsageFilter, analysis *domain.SeasonalAnalysis) error {
	payload, err := json.Marshal(analysis)
	j.payload = payload
	return err
}

func (j *jsonCache) InvalidateAll(context.Context) error {
	j.payload = nil
	return nil
}

func TestSeasonalService_DecodedCacheHitAnswersLikeFreshAnalysis(t *testing.T) {
	ctx := context.Background()
	shared := &jsonCache{}

	repo := new(mockUsageRepository)
	repo.On("GetUsageRecords", ctx, domain.UsageFilter{}).Return(sampleRecords(), nil).Once()
	fresh, err := NewSeasonalService(repo, shared, defaultSeasonalConfig())
	require.NoError(t, err)
	_, err = fresh.Analyze(ctx, domain.UsageFilter{})
	require.NoError(t, err)
	require.NotNil(t, shared.payload)

	cold := new(mockUsageRepository)
	warm, err := NewSeasonalService(cold, shared, defaultSeasonalConfig())
	require.NoError(t, err)
	analysis, err := warm.Analyze(ctx, domain.UsageFilter{})
	require.NoError(t, err)
	assert.Equal(t, "Onderhoud", analysis.PartCategories["P1"])

	for _, level := range domain.Levels {
		assert.Equal(t, fresh.Patterns(level), warm.Patterns(level), level)
	}
	for _, part := range []string{"P1", "P2"} {
		assert.Equal(t, fresh.RecommendCombined(ctx, part), warm.RecommendCombined(ctx, part), part)
	}
	assert.Equal(t, domain.StatusAvailable, warm.Recommend(domain.LevelCategory, "Onderhoud").Status)

	cold.AssertNotCalled(t, "GetUsageRecords", mock.Anything, mock.Anything)
	cold.AssertNotCalled(t, "PartCategory", mock.Anything, mock.Anything)
}

func TestSeasonalService_AnalyzeErrors(t *testing.T) {
	ctx := context.Background()

	repo := new(mockUsageRepository)
	repo.On("GetUsageRecords", ctx, domain.UsageFilter{}).Return(nil, errors.New("db down")).Once()
	svc, err := NewSeasonalService(repo, nil, defaultSeasonalConfig())
	require.NoError(t, err)

	_, err = svc.Analyze(ctx, domain.UsageFilter{})
	assert.EqualError(t, err, "db down")

	empty := new(mockUsageRepository)
	empty.On("GetUsageRecords", ctx, domain.UsageFilter{}).Return([]domain.UsageRecord{}, nil).Once()
	svc, err = NewSeasonalService(empty, nil, defaultSeasonalConfig())
	require.NoError(t, err)

	_, err = svc.Analyze(ctx, domain.UsageFilter{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, ok := svc.Current()
	assert.False(t, ok)

	svc, err = NewSeasonalService(nil, nil, defaultSeasonalConfig())
	require.NoError(t, err)
	_, err = svc.Analyze(ctx, domain.UsageFilter{})
	assert.ErrorIs(t, err, ErrNoUsageSource)
}

func TestSeasonalService_RecommendCombinedFallsBackToRepository(t *testing.T) {
	ctx := context.Background()

	repo := new(mockUsageRepository)
	repo.On("PartCategory", ctx, "P9").Return("Onderhoud", true, nil).Once()

	svc, err := NewSeasonalService(repo, nil, defaultSeasonalConfig())
	require.NoError(t, err)

	_, err = svc.AnalyzeRecords(sampleRecords())
	require.NoError(t, err)

	combined := svc.RecommendCombined(ctx, "P9")
	assert.Equal(t, "Onderhoud", combined.Category)
	assert.Equal(t, domain.StatusNoData, combined.Detail[domain.LevelPart].Status)
	assert.Equal(t, domain.StatusAvailable, combined.Detail[domain.LevelCategory].Status)
	assert.Equal(t, []domain.Level{domain.LevelPart}, combined.MissingLevels)
	repo.AssertExpectations(t)
}

func TestSeasonalService_EnglishLocale(t *testing.T) {
	svc, err := NewSeasonalService(nil, nil, config.SeasonalConfig{Locale: "en"})
	require.NoError(t, err)

	rec := svc.Recommend(domain.LevelPart, "missing")
	assert.Equal(t, "No seasonal data available for this part", rec.Message)
	assert.Equal(t, "en", svc.Locale().Code)
}
