package seasonal

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/westtrac/parts-insights/internal/domain"
)

// Fixed level weights of the combined recommendation.
const (
	PartWeight     = 0.6
	CategoryWeight = 0.3
	GlobalWeight   = 0.1
)

// LevelWeights maps each level to its share of the combined score.
type LevelWeights map[domain.Level]float64

func DefaultWeights() LevelWeights {
	return LevelWeights{
		domain.LevelPart:     PartWeight,
		domain.LevelCategory: CategoryWeight,
		domain.LevelGlobal:   GlobalWeight,
	}
}

// VerifyWeights checks that every level has a non-negative weight and that
// the weights sum to exactly one.
func VerifyWeights(w LevelWeights) error {
	sum := decimal.Zero
	for _, level := range domain.Levels {
		weight, ok := w[level]
		if !ok {
			return fmt.Errorf("missing weight for %s", level)
		}
		if weight < 0 {
			return fmt.Errorf("negative weight %v for %s", weight, level)
		}
		sum = sum.Add(decimal.NewFromFloat(weight))
	}
	if !sum.Equal(decimal.NewFromInt(1)) {
		return fmt.Errorf("level weights sum to %s, want 1", sum)
	}
	return nil
}

type ComposerConfig struct {
	Locale                   Locale
	RenormalizeMissingLevels bool
}

// Composer turns stored patterns into per-level and combined recommendations.
type Composer struct {
	store       *Store
	lookup      CategoryLookup
	locale      Locale
	renormalize bool
	weights     LevelWeights
}

func NewComposer(store *Store, lookup CategoryLookup, cfg ComposerConfig) (*Composer, error) {
	weights := DefaultWeights()
	if err := VerifyWeights(weights); err != nil {
		return nil, err
	}

	locale := cfg.Locale
	if locale.Code == "" {
		locale = Dutch
	}

	return &Composer{
		store:       store,
		lookup:      lookup,
		locale:      locale,
		renormalize: cfg.RenormalizeMissingLevels,
		weights:     weights,
	}, nil
}

func (c *Composer) Locale() Locale {
	return c.locale
}

// RecommendForEntity builds the recommendation for an entity from the store.
// An entity without a stored pattern yields a no_data recommendation.
func (c *Composer) RecommendForEntity(level domain.Level, entityID string) domain.Recommendation {
	if c.store == nil || entityID == "" {
		return c.RecommendFromPattern(level, entityID, nil)
	}
	pattern, ok := c.store.Pattern(level, entityID)
	if !ok {
		return c.RecommendFromPattern(level, entityID, nil)
	}
	return c.RecommendFromPattern(level, entityID, &pattern)
}

func (c *Composer) RecommendFromPattern(level domain.Level, entityID string, pattern *domain.SeasonalPattern) domain.Recommendation {
	if pattern == nil {
		return domain.Recommendation{
			Level:    level,
			EntityID: entityID,
			Status:   domain.StatusNoData,
			Message:  c.locale.NoData(level),
		}
	}

	return domain.Recommendation{
		Level:    level,
		EntityID: pattern.EntityID,
		Status:   domain.StatusAvailable,
		StockAdvice: &domain.StockAdvice{
			PeakPeriods:   c.locale.IncreasePrefix + c.locale.JoinPeriods(pattern.PeakMonths),
			TroughPeriods: c.locale.DecreasePrefix + c.locale.JoinPeriods(pattern.TroughMonths),
		},
		SeasonalIndex: pattern.SeasonalIndex,
		PeakMonths:    pattern.PeakMonths,
		TroughMonths:  pattern.TroughMonths,
		Pattern:       pattern,
	}
}

// Combine fuses the three level recommendations into one weighted advice.
//
// Each level contributes, per month-of-year, the share of its buckets in that
// month that are peaks minus the share that are troughs. Levels without data
// contribute nothing; their weight is only redistributed when the composer was
// configured to renormalize.
func (c *Composer) Combine(part, category, global domain.Recommendation) domain.CombinedRecommendation {
	byLevel := map[domain.Level]domain.Recommendation{
		domain.LevelPart:     withLevel(part, domain.LevelPart),
		domain.LevelCategory: withLevel(category, domain.LevelCategory),
		domain.LevelGlobal:   withLevel(global, domain.LevelGlobal),
	}

	combined := domain.CombinedRecommendation{
		PartNumber:    part.EntityID,
		Category:      category.EntityID,
		Detail:        make(map[domain.Level]domain.Recommendation, len(byLevel)),
		MissingLevels: []domain.Level{},
	}

	var scores [12]decimal.Decimal
	coverage := decimal.Zero
	for _, level := range domain.Levels {
		rec := byLevel[level]
		if !rec.HasData() {
			if rec.Status == "" {
				rec = c.RecommendFromPattern(level, rec.EntityID, nil)
			}
			combined.Detail[level] = rec
			combined.MissingLevels = append(combined.MissingLevels, level)
			continue
		}
		combined.Detail[level] = rec

		weight := decimal.NewFromFloat(c.weights[level])
		coverage = coverage.Add(weight)
		signals := monthSignals(rec.Pattern)
		for m := range signals {
			scores[m] = scores[m].Add(weight.Mul(signals[m]))
		}
	}

	advice := domain.WeightedAdvice{
		IncreaseMonths: []domain.WeightedMonth{},
		DecreaseMonths: []domain.WeightedMonth{},
		Coverage:       coverage.InexactFloat64(),
	}
	one := decimal.NewFromInt(1)
	if c.renormalize && coverage.IsPositive() && !coverage.Equal(one) {
		advice.Renormalized = true
		for m := range scores {
			scores[m] = scores[m].DivRound(coverage, 12)
		}
	}

	for m, score := range scores {
		value := score.Round(12).InexactFloat64()
		advice.MonthScores[m] = value
		month := time.Month(m + 1)
		wm := domain.WeightedMonth{Month: month, Name: c.locale.MonthName(month), Score: value}
		switch {
		case score.IsPositive():
			advice.IncreaseMonths = append(advice.IncreaseMonths, wm)
		case score.IsNegative():
			advice.DecreaseMonths = append(advice.DecreaseMonths, wm)
		}
	}

	sort.SliceStable(advice.IncreaseMonths, func(i, j int) bool {
		return advice.IncreaseMonths[i].Score > advice.IncreaseMonths[j].Score
	})
	sort.SliceStable(advice.DecreaseMonths, func(i, j int) bool {
		return advice.DecreaseMonths[i].Score < advice.DecreaseMonths[j].Score
	})

	advice.Summary = c.summarize(advice)
	combined.WeightedAdvice = advice
	return combined
}

// RecommendForPart resolves the category of a part and combines the
// part, category and global recommendations. Lookup errors degrade to a
// missing category level.
func (c *Composer) RecommendForPart(ctx context.Context, partNumber string) domain.CombinedRecommendation {
	partNumber = strings.TrimSpace(partNumber)
	part := c.RecommendForEntity(domain.LevelPart, partNumber)
	if part.EntityID == "" {
		part.EntityID = partNumber
	}

	categoryID := ""
	if c.lookup != nil {
		found, ok, err := c.lookup.PartCategory(ctx, partNumber)
		if err != nil {
			log.Warn().Err(err).Str("part_number", partNumber).Msg("resolve part category")
		} else if ok {
			categoryID = found
		}
	}
	category := c.RecommendForEntity(domain.LevelCategory, categoryID)

	global := c.RecommendForEntity(domain.LevelGlobal, domain.GlobalEntityID)
	return c.Combine(part, category, global)
}

func (c *Composer) summarize(advice domain.WeightedAdvice) string {
	if advice.Coverage == 0 {
		return c.locale.NoDataMessage
	}
	return c.locale.IncreasePrefix + c.formatMonths(advice.IncreaseMonths) +
		"; " + c.locale.DecreasePrefix + c.formatMonths(advice.DecreaseMonths)
}

func (c *Composer) formatMonths(months []domain.WeightedMonth) string {
	if len(months) == 0 {
		return c.locale.NoneLabel
	}
	parts := make([]string, len(months))
	for i, m := range months {
		parts[i] = fmt.Sprintf("%s (%s)", m.Name, c.locale.FormatDecimal(m.Score, 2))
	}
	return strings.Join(parts, ", ")
}

func withLevel(rec domain.Recommendation, level domain.Level) domain.Recommendation {
	if rec.Level == "" {
		rec.Level = level
	}
	return rec
}

// monthSignals returns, per month-of-year, (peaks - troughs) / buckets of that month.
func monthSignals(p *domain.SeasonalPattern) [12]decimal.Decimal {
	var buckets, peaks, troughs [12]int64
	count := func(counts *[12]int64, periods []domain.Period) {
		for _, period := range periods {
			if period.Month >= time.January && period.Month <= time.December {
				counts[period.Month-1]++
			}
		}
	}
	count(&buckets, p.Periods)
	count(&peaks, p.PeakMonths)
	count(&troughs, p.TroughMonths)

	var signals [12]decimal.Decimal
	for m := range signals {
		if buckets[m] == 0 {
			continue
		}
		signals[m] = decimal.NewFromInt(peaks[m] - troughs[m]).DivRound(decimal.NewFromInt(buckets[m]), 12)
	}
	return signals
}
