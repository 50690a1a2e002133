// Package export renders seasonal analyses as spreadsheets.
package export

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/westtrac/parts-insights/internal/domain"
	"github.com/westtrac/parts-insights/internal/seasonal"
	"github.com/xuri/excelize/v2"
)

const (
	FailuresSheet = "failures"
	ContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var patternHeader = []interface{}{"entity_id", "period", "period_name", "total_quantity", "seasonal_index", "classification"}

var failureHeader = []interface{}{"level", "entity_id", "kind", "message"}

// FileName returns the workbook name for an analysis generated at t.
func FileName(t time.Time) string {
	return fmt.Sprintf("seasonal_patterns_%s.xlsx", t.UTC().Format("20060102_150405"))
}

// WritePatternsWorkbook writes one sheet per level plus a failures sheet.
func WritePatternsWorkbook(w io.Writer, analysis *domain.SeasonalAnalysis, locale seasonal.Locale) error {
	f, err := BuildPatternsWorkbook(analysis, locale)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func BuildPatternsWorkbook(analysis *domain.SeasonalAnalysis, locale seasonal.Locale) (*excelize.File, error) {
	if analysis == nil {
		return nil, fmt.Errorf("%w: no analysis to export", domain.ErrInvalidInput)
	}

	f := excelize.NewFile()
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, level := range domain.Levels {
		sheet := string(level)
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create sheet %s: %w", sheet, err)
		}

		if err := writePatternSheet(f, sheet, analysis.Levels[level].Patterns, locale, headerStyle); err != nil {
			f.Close()
			return nil, err
		}
	}

	if _, err := f.NewSheet(FailuresSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet %s: %w", FailuresSheet, err)
	}
	if err := writeFailureSheet(f, analysis.Failures(), headerStyle); err != nil {
		f.Close()
		return nil, err
	}

	f.SetActiveSheet(0)
	return f, nil
}

func writePatternSheet(f *excelize.File, sheet string, patterns map[string]domain.SeasonalPattern, locale seasonal.Locale, headerStyle int) error {
	if err := writeHeader(f, sheet, patternHeader, headerStyle); err != nil {
		return err
	}

	ids := make([]string, 0, len(patterns))
	for id := range patterns {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	row := 2
	for _, id := range ids {
		p := patterns[id]
		peaks := periodSet(p.PeakMonths)
		troughs := periodSet(p.TroughMonths)

		for i, period := range p.Periods {
			classification := ""
			switch {
			case peaks[period]:
				classification = locale.PeakLabel
			case troughs[period]:
				classification = locale.TroughLabel
			}

			var total, index float64
			if i < len(p.Totals) {
				total = p.Totals[i]
			}
			if i < len(p.SeasonalIndex) {
				index = p.SeasonalIndex[i]
			}

			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			values := []interface{}{id, period.String(), locale.PeriodName(period), total, index, classification}
			if err := f.SetSheetRow(sheet, cell, &values); err != nil {
				return fmt.Errorf("failed to write row %d of %s: %w", row, sheet, err)
			}
			row++
		}
	}

	return f.SetColWidth(sheet, "A", "F", 18)
}

func writeFailureSheet(f *excelize.File, failures []domain.EntityFailure, headerStyle int) error {
	if err := writeHeader(f, FailuresSheet, failureHeader, headerStyle); err != nil {
		return err
	}

	for i, failure := range failures {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{string(failure.Level), failure.EntityID, failure.Kind, failure.Message}
		if err := f.SetSheetRow(FailuresSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write failure row %d: %w", i+2, err)
		}
	}

	return f.SetColWidth(FailuresSheet, "A", "D", 24)
}

func writeHeader(f *excelize.File, sheet string, header []interface{}, style int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header of %s: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

func periodSet(periods []domain.Period) map[domain.Period]bool {
	set := make(map[domain.Period]bool, len(periods))
	for _, p := range periods {
		set[p] = true
	}
	return set
}
