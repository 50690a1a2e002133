package domain

import "time"

// RecommendationStatus distinguishes a computed recommendation from "no seasonal signal yet".
type RecommendationStatus string

const (
	StatusAvailable RecommendationStatus = "available"
	StatusNoData    RecommendationStatus = "no_data"
)

// StockAdvice is the human-readable peak and trough guidance.
type StockAdvice struct {
	PeakPeriods   string `json:"peak_periods"`
	TroughPeriods string `json:"trough_periods"`
}

// Recommendation is the advice for one entity at one level.
type Recommendation struct {
	Level         Level                `json:"level"`
	EntityID      string               `json:"entity_id"`
	Status        RecommendationStatus `json:"status"`
	Message       string               `json:"message,omitempty"`
	StockAdvice   *StockAdvice         `json:"stock_advice,omitempty"`
	SeasonalIndex []float64            `json:"seasonal_index,omitempty"`
	PeakMonths    []Period             `json:"peak_months,omitempty"`
	TroughMonths  []Period             `json:"trough_months,omitempty"`
	// Pattern is kept for the weighted combination and is not serialized.
	Pattern *SeasonalPattern `json:"-"`
}

func (r Recommendation) HasData() bool {
	return r.Status == StatusAvailable && r.Pattern != nil
}

// WeightedMonth is a month-of-year with its signed combined score:
// positive means raise stock, negative means lower it.
type WeightedMonth struct {
	Month time.Month `json:"month"`
	Name  string     `json:"name"`
	Score float64    `json:"score"`
}

// WeightedAdvice is the weighted fusion of the per-level signals.
type WeightedAdvice struct {
	IncreaseMonths []WeightedMonth `json:"increase_months"`
	DecreaseMonths []WeightedMonth `json:"decrease_months"`
	// MonthScores is indexed by month-1.
	MonthScores  [12]float64 `json:"month_scores"`
	Coverage     float64     `json:"coverage"`
	Renormalized bool        `json:"renormalized"`
	Summary      string      `json:"summary"`
}

// CombinedRecommendation carries the weighted advice and the unweighted per-level detail.
type CombinedRecommendation struct {
	PartNumber     string                   `json:"part_number"`
	Category       string                   `json:"category,omitempty"`
	WeightedAdvice WeightedAdvice           `json:"weighted_advice"`
	Detail         map[Level]Recommendation `json:"detail"`
	MissingLevels  []Level                  `json:"missing_levels"`
}
