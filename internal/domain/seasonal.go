package domain

import (
	"fmt"
	"strings"
	"time"
)

// Level names one of the three aggregation levels of the seasonal analysis.
// The string values are the keys the presentation layer reads.
type Level string

const (
	LevelPart     Level = "part_level"
	LevelCategory Level = "category_level"
	LevelGlobal   Level = "global_level"
)

// Levels lists the aggregation levels in combination order.
var Levels = []Level{LevelPart, LevelCategory, LevelGlobal}

// Grouping is the aggregation mode used to bucket usage records.
type Grouping string

const (
	ByPart     Grouping = "by_part"
	ByCategory Grouping = "by_category"
	ByGlobal   Grouping = "by_global"
)

// GlobalEntityID is the synthetic entity covering all records at global level.
const GlobalEntityID = "GLOBAL"

// Grouping returns the aggregation mode that feeds this level.
func (l Level) Grouping() Grouping {
	switch l {
	case LevelCategory:
		return ByCategory
	case LevelGlobal:
		return ByGlobal
	default:
		return ByPart
	}
}

// ParseLevel accepts both the slot names and their short forms (part, category, global).
func ParseLevel(s string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "part", "part_level":
		return LevelPart, true
	case "category", "category_level":
		return LevelCategory, true
	case "global", "global_level":
		return LevelGlobal, true
	}
	return "", false
}

// Period is a usage bucket. Year 0 means a month-of-year bucket with years
// collapsed (part level); otherwise it is a calendar year-month.
type Period struct {
	Year  int        `json:"year,omitempty"`
	Month time.Month `json:"month"`
}

func MonthOfYear(m time.Month) Period {
	return Period{Month: m}
}

func YearMonth(year int, m time.Month) Period {
	return Period{Year: year, Month: m}
}

func (p Period) IsMonthOfYear() bool {
	return p.Year == 0
}

func (p Period) Before(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}

// Next returns the following calendar month. Only meaningful for year-month periods.
func (p Period) Next() Period {
	if p.Month == time.December {
		return Period{Year: p.Year + 1, Month: time.January}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

func (p Period) String() string {
	if p.IsMonthOfYear() {
		return fmt.Sprintf("%02d", int(p.Month))
	}
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// MonthlyUsage is the summed quantity of one entity in one period.
type MonthlyUsage struct {
	EntityID      string  `json:"entity_id"`
	Period        Period  `json:"period"`
	TotalQuantity float64 `json:"total_quantity"`
}

// SeasonalPattern holds the seasonal index of one entity.
// SeasonalIndex[i] = Totals[i] / mean(Totals), aligned with Periods.
type SeasonalPattern struct {
	EntityID      string    `json:"entity_id"`
	Level         Level     `json:"level"`
	Periods       []Period  `json:"periods"`
	Totals        []float64 `json:"totals"`
	SeasonalIndex []float64 `json:"seasonal_index"`
	PeakMonths    []Period  `json:"peak_months"`
	TroughMonths  []Period  `json:"trough_months"`
}

// EntityFailure records an entity (or a whole level when EntityID is empty)
// that could not be analyzed.
type EntityFailure struct {
	Level    Level  `json:"level"`
	EntityID string `json:"entity_id,omitempty"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
}

// LevelAnalysis is the outcome of one aggregation level.
type LevelAnalysis struct {
	Patterns map[string]SeasonalPattern `json:"patterns"`
	Failures []EntityFailure            `json:"failures"`
}

// SeasonalAnalysis is the result of a full analysis run over all levels.
type SeasonalAnalysis struct {
	Levels map[Level]LevelAnalysis `json:"levels"`
	// PartCategories maps each part to the category it is used under most.
	PartCategories map[string]string `json:"part_categories"`
	RecordCount    int               `json:"record_count"`
	GeneratedAt    time.Time         `json:"generated_at"`
}

// Failures flattens the failures of every level in level order.
func (a *SeasonalAnalysis) Failures() []EntityFailure {
	var out []EntityFailure
	for _, level := range Levels {
		out = append(out, a.Levels[level].Failures...)
	}
	return out
}
