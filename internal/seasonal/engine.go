// Package seasonal computes month-over-month usage indices for parts at part,
// category and global level and turns them into stocking advice.
package seasonal

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/westtrac/parts-insights/internal/domain"
)

const (
	// PeakThreshold and TroughThreshold are exclusive bounds on the seasonal index.
	PeakThreshold   = 1.2
	TroughThreshold = 0.8
)

type bucketKey struct {
	entity string
	period domain.Period
}

// AggregateMonthly sums usage per entity and period for the given grouping.
//
// ByPart buckets by month-of-year with years collapsed. ByCategory and ByGlobal
// bucket by calendar year-month and fill months without usage between an
// entity's first and last observed month with zero.
func AggregateMonthly(records []domain.UsageRecord, grouping domain.Grouping) ([]domain.MonthlyUsage, error) {
	if err := validateRecords(records); err != nil {
		return nil, err
	}

	sums := make(map[bucketKey]decimal.Decimal)
	for i, r := range records {
		key, err := bucketFor(r, grouping)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", domain.ErrInvalidInput, i+1, err)
		}
		sums[key] = sums[key].Add(decimal.NewFromFloat(r.Quantity))
	}

	if grouping != domain.ByPart {
		fillGaps(sums)
	}

	out := make([]domain.MonthlyUsage, 0, len(sums))
	for key, total := range sums {
		out = append(out, domain.MonthlyUsage{
			EntityID:      key.entity,
			Period:        key.period,
			TotalQuantity: total.InexactFloat64(),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].EntityID != out[j].EntityID {
			return out[i].EntityID < out[j].EntityID
		}
		return out[i].Period.Before(out[j].Period)
	})

	return out, nil
}

// ComputePattern derives the seasonal index of one entity from its monthly usage.
// Rows must all belong to the same entity and are indexed in the order given.
func ComputePattern(level domain.Level, rows []domain.MonthlyUsage) (domain.SeasonalPattern, error) {
	if len(rows) == 0 {
		return domain.SeasonalPattern{}, &domain.EntityError{
			Level: level,
			Err:   fmt.Errorf("%w: no monthly usage", domain.ErrInvalidInput),
		}
	}

	entityID := rows[0].EntityID
	sum := decimal.Zero
	totals := make([]decimal.Decimal, len(rows))
	for i, row := range rows {
		if row.EntityID != entityID {
			return domain.SeasonalPattern{}, &domain.EntityError{
				Level:    level,
				EntityID: entityID,
				Err:      fmt.Errorf("%w: rows mix entities %q and %q", domain.ErrInvalidInput, entityID, row.EntityID),
			}
		}
		if row.TotalQuantity < 0 || math.IsNaN(row.TotalQuantity) || math.IsInf(row.TotalQuantity, 0) {
			return domain.SeasonalPattern{}, &domain.EntityError{
				Level:    level,
				EntityID: entityID,
				Err:      fmt.Errorf("%w: invalid total %v for %s", domain.ErrInvalidInput, row.TotalQuantity, row.Period),
			}
		}
		totals[i] = decimal.NewFromFloat(row.TotalQuantity)
		sum = sum.Add(totals[i])
	}

	if sum.IsZero() {
		return domain.SeasonalPattern{}, &domain.EntityError{
			Level:    level,
			EntityID: entityID,
			Err:      domain.ErrDivisionUndefined,
		}
	}

	// total / (sum / n) computed as total * n / sum keeps exact ratios exact.
	n := decimal.NewFromInt(int64(len(rows)))
	pattern := domain.SeasonalPattern{
		EntityID:      entityID,
		Level:         level,
		Periods:       make([]domain.Period, len(rows)),
		Totals:        make([]float64, len(rows)),
		SeasonalIndex: make([]float64, len(rows)),
		PeakMonths:    make([]domain.Period, 0),
		TroughMonths:  make([]domain.Period, 0),
	}
	for i, row := range rows {
		index := totals[i].Mul(n).Div(sum).InexactFloat64()

		pattern.Periods[i] = row.Period
		pattern.Totals[i] = row.TotalQuantity
		pattern.SeasonalIndex[i] = index

		switch {
		case index > PeakThreshold:
			pattern.PeakMonths = append(pattern.PeakMonths, row.Period)
		case index < TroughThreshold:
			pattern.TroughMonths = append(pattern.TroughMonths, row.Period)
		}
	}

	return pattern, nil
}

// splitByEntity cuts rows sorted by entity into one slice per entity.
func splitByEntity(rows []domain.MonthlyUsage) [][]domain.MonthlyUsage {
	var groups [][]domain.MonthlyUsage
	start := 0
	for i := 1; i <= len(rows); i++ {
		if i == len(rows) || rows[i].EntityID != rows[start].EntityID {
			groups = append(groups, rows[start:i])
			start = i
		}
	}
	return groups
}

func bucketFor(r domain.UsageRecord, grouping domain.Grouping) (bucketKey, error) {
	switch grouping {
	case domain.ByPart:
		return bucketKey{
			entity: strings.TrimSpace(r.PartNumber),
			period: domain.MonthOfYear(r.Date.Month()),
		}, nil
	case domain.ByCategory:
		category := strings.TrimSpace(r.Category)
		if category == "" {
			return bucketKey{}, fmt.Errorf("missing category for part %q", r.PartNumber)
		}
		return bucketKey{
			entity: category,
			period: domain.YearMonth(r.Date.Year(), r.Date.Month()),
		}, nil
	case domain.ByGlobal:
		return bucketKey{
			entity: domain.GlobalEntityID,
			period: domain.YearMonth(r.Date.Year(), r.Date.Month()),
		}, nil
	default:
		return bucketKey{}, fmt.Errorf("unknown grouping %q", grouping)
	}
}

func fillGaps(sums map[bucketKey]decimal.Decimal) {
	type span struct{ first, last domain.Period }
	spans := make(map[string]span)
	for key := range sums {
		s, ok := spans[key.entity]
		if !ok {
			spans[key.entity] = span{first: key.period, last: key.period}
			continue
		}
		if key.period.Before(s.first) {
			s.first = key.period
		}
		if s.last.Before(key.period) {
			s.last = key.period
		}
		spans[key.entity] = s
	}

	for entity, s := range spans {
		for p := s.first; !s.last.Before(p); p = p.Next() {
			key := bucketKey{entity: entity, period: p}
			if _, ok := sums[key]; !ok {
				sums[key] = decimal.Zero
			}
		}
	}
}

func validateRecords(records []domain.UsageRecord) error {
	if len(records) == 0 {
		return fmt.Errorf("%w: usage data is empty", domain.ErrInvalidInput)
	}
	for i, r := range records {
		if problem := recordProblem(r); problem != "" {
			return fmt.Errorf("%w: record %d: %s", domain.ErrInvalidInput, i+1, problem)
		}
	}
	return nil
}

func recordProblem(r domain.UsageRecord) string {
	switch {
	case strings.TrimSpace(r.PartNumber) == "":
		return "missing part number"
	case r.Date.IsZero():
		return "missing date"
	case math.IsNaN(r.Quantity) || math.IsInf(r.Quantity, 0):
		return "quantity is not a finite number"
	case r.Quantity < 0:
		return fmt.Sprintf("negative quantity %v", r.Quantity)
	}
	return ""
}
