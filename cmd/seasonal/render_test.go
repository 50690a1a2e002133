package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/westtrac/parts-insights/internal/config"
	"github.com/westtrac/parts-insights/internal/domain"
	"github.com/westtrac/parts-insights/internal/seasonal"
	"github.com/westtrac/parts-insights/internal/service"
)

func sampleRecords() []domain.UsageRecord {
	at := func(m time.Month) time.Time { return time.Date(2024, m, 5, 0, 0, 0, 0, time.UTC) }
	return []domain.UsageRecord{
		{PartNumber: "P1", Category: "Onderhoud", Date: at(time.January), Quantity: 100},
		{PartNumber: "P1", Category: "Onderhoud", Date: at(time.February), Quantity: 100},
		{PartNumber: "P1", Category: "Onderhoud", Date: at(time.March), Quantity: 400},
		{PartNumber: "P2", Category: "Reparatie", Date: at(time.March), Quantity: 0},
	}
}

func TestWriteAnalysisSummary(t *testing.T) {
	analysis, err := seasonal.NewAnalyzer(nil, 0).AnalyzeAllLevels(sampleRecords())
	require.NoError(t, err)

	var buf bytes.Buffer
	writeAnalysisSummary(&buf, analysis)

	out := buf.String()
	assert.Contains(t, out, "records")
	assert.Contains(t, out, "part_level")
	assert.Contains(t, out, "global_level")
	assert.Contains(t, out, "part_level P2")
	assert.Contains(t, out, domain.FailureDivisionUndefined)
}

func TestRenderIndexChart(t *testing.T) {
	analysis, err := seasonal.NewAnalyzer(nil, 0).AnalyzeAllLevels(sampleRecords())
	require.NoError(t, err)

	chart := renderIndexChart(analysis.Levels[domain.LevelPart].Patterns["P1"], seasonal.Dutch)
	assert.Contains(t, chart, "part_level P1: Januari - Maart")
	assert.Contains(t, chart, "Piek: Maart")
	assert.Contains(t, chart, "Dal: Januari, Februari")

	assert.Equal(t, seasonal.Dutch.NoDataMessage, renderIndexChart(domain.SeasonalPattern{}, seasonal.Dutch))
}

func TestWriteCombined(t *testing.T) {
	svc, err := service.NewSeasonalService(nil, nil, config.SeasonalConfig{Locale: "en"})
	require.NoError(t, err)
	_, err = svc.AnalyzeRecords(sampleRecords())
	require.NoError(t, err)

	var buf bytes.Buffer
	writeCombined(&buf, svc.RecommendCombined(context.Background(), "P1"), svc.Locale())

	out := buf.String()
	assert.Contains(t, out, "P1 (Onderhoud)")
	assert.Contains(t, out, "coverage 1.00")
	assert.Contains(t, out, "Increase stock for months: March")
}
