package seasonal

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/westtrac/parts-insights/internal/domain"
)

// CategoryLookup resolves the category a part belongs to.
type CategoryLookup interface {
	PartCategory(ctx context.Context, partNumber string) (string, bool, error)
}

// CategoryIndex is an in-memory CategoryLookup filled from the last analysis.
type CategoryIndex struct {
	mu         sync.RWMutex
	categories map[string]string
}

func NewCategoryIndex() *CategoryIndex {
	return &CategoryIndex{categories: map[string]string{}}
}

// Load replaces the index contents.
func (i *CategoryIndex) Load(categories map[string]string) {
	copied := make(map[string]string, len(categories))
	for part, category := range categories {
		copied[part] = category
	}
	i.mu.Lock()
	i.categories = copied
	i.mu.Unlock()
}

func (i *CategoryIndex) PartCategory(_ context.Context, partNumber string) (string, bool, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	category, ok := i.categories[strings.TrimSpace(partNumber)]
	return category, ok, nil
}

// LookupChain asks each lookup in order and returns the first hit.
// A failing lookup is skipped; its error is returned only if nothing matched.
type LookupChain []CategoryLookup

func (c LookupChain) PartCategory(ctx context.Context, partNumber string) (string, bool, error) {
	var lastErr error
	for _, lookup := range c {
		if lookup == nil {
			continue
		}
		category, ok, err := lookup.PartCategory(ctx, partNumber)
		if err != nil {
			log.Warn().Err(err).Str("part_number", partNumber).Msg("category lookup failed")
			lastErr = err
			continue
		}
		if ok {
			return category, true, nil
		}
	}
	return "", false, lastErr
}

// DominantCategories picks, per part, the category with the largest total
// quantity. Ties go to the alphabetically first category.
func DominantCategories(records []domain.UsageRecord) map[string]string {
	totals := make(map[string]map[string]decimal.Decimal)
	for _, r := range records {
		part := strings.TrimSpace(r.PartNumber)
		category := strings.TrimSpace(r.Category)
		if part == "" || category == "" {
			continue
		}
		if totals[part] == nil {
			totals[part] = make(map[string]decimal.Decimal)
		}
		totals[part][category] = totals[part][category].Add(decimal.NewFromFloat(r.Quantity))
	}

	out := make(map[string]string, len(totals))
	for part, byCategory := range totals {
		var best string
		var bestTotal decimal.Decimal
		for category, total := range byCategory {
			if best == "" || total.GreaterThan(bestTotal) || (total.Equal(bestTotal) && category < best) {
				best = category
				bestTotal = total
			}
		}
		out[part] = best
	}
	return out
}
