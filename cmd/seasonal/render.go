package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/westtrac/parts-insights/internal/domain"
	"github.com/westtrac/parts-insights/internal/seasonal"
)

func writeAnalysisSummary(out io.Writer, analysis *domain.SeasonalAnalysis) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "records\t%d\n", analysis.RecordCount)
	fmt.Fprintln(tw, "level\tpatterns\tfailures")
	for _, level := range domain.Levels {
		la := analysis.Levels[level]
		fmt.Fprintf(tw, "%s\t%d\t%d\n", level, len(la.Patterns), len(la.Failures))
	}
	tw.Flush()

	for _, f := range analysis.Failures() {
		entity := f.EntityID
		if entity == "" {
			entity = "*"
		}
		fmt.Fprintf(out, "  %s %s: %s (%s)\n", f.Level, entity, f.Message, f.Kind)
	}
}

// renderIndexChart plots the seasonal index of one pattern with the
// peak and trough periods underneath.
func renderIndexChart(p domain.SeasonalPattern, locale seasonal.Locale) string {
	if len(p.SeasonalIndex) == 0 {
		return locale.NoDataMessage
	}

	caption := fmt.Sprintf("%s %s: %s", p.Level, p.EntityID, periodRange(p.Periods, locale))
	chart := asciigraph.Plot(p.SeasonalIndex,
		asciigraph.Height(10),
		asciigraph.Precision(2),
		asciigraph.Caption(caption),
	)

	var b strings.Builder
	b.WriteString(chart)
	fmt.Fprintf(&b, "\n%s: %s\n", locale.PeakLabel, locale.JoinPeriods(p.PeakMonths))
	fmt.Fprintf(&b, "%s: %s", locale.TroughLabel, locale.JoinPeriods(p.TroughMonths))
	return b.String()
}

func periodRange(periods []domain.Period, locale seasonal.Locale) string {
	switch len(periods) {
	case 0:
		return locale.NoneLabel
	case 1:
		return locale.PeriodName(periods[0])
	}
	return locale.PeriodName(periods[0]) + " - " + locale.PeriodName(periods[len(periods)-1])
}

func writeCombined(out io.Writer, combined domain.CombinedRecommendation, locale seasonal.Locale) {
	fmt.Fprintf(out, "%s", combined.PartNumber)
	if combined.Category != "" {
		fmt.Fprintf(out, " (%s)", combined.Category)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, combined.WeightedAdvice.Summary)
	fmt.Fprintf(out, "coverage %s\n", locale.FormatDecimal(combined.WeightedAdvice.Coverage, 2))

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, level := range domain.Levels {
		rec, ok := combined.Detail[level]
		if !ok {
			continue
		}
		switch {
		case rec.StockAdvice != nil:
			fmt.Fprintf(tw, "%s\t%s\t%s\n", level, rec.StockAdvice.PeakPeriods, rec.StockAdvice.TroughPeriods)
		default:
			fmt.Fprintf(tw, "%s\t%s\t\n", level, rec.Message)
		}
	}
	tw.Flush()
}
