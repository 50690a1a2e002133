package seasonal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/westtrac/parts-insights/internal/domain"
)

func TestLocaleFor(t *testing.T) {
	l, ok := LocaleFor("EN")
	assert.True(t, ok)
	assert.Equal(t, "en", l.Code)

	l, ok = LocaleFor("fr")
	assert.False(t, ok)
	assert.Equal(t, "nl", l.Code)
}

func TestLocale_NoDataPerLevel(t *testing.T) {
	for _, l := range []Locale{Dutch, English} {
		for _, level := range domain.Levels {
			assert.NotEmpty(t, l.NoData(level), "%s %s", l.Code, level)
		}
		assert.Equal(t, l.NoDataMessage, l.NoData(domain.LevelGlobal))
		assert.NotEqual(t, l.NoData(domain.LevelPart), l.NoData(domain.LevelCategory))
	}
	assert.Equal(t, "No seasonal data available for this category", English.NoData(domain.LevelCategory))
	assert.Equal(t, "Geen seizoensdata beschikbaar", Dutch.NoData(domain.Level("other")))
}

func TestLocale_PeriodNames(t *testing.T) {
	assert.Equal(t, "Maart", Dutch.PeriodName(domain.MonthOfYear(time.March)))
	assert.Equal(t, "Oktober 2023", Dutch.PeriodName(domain.YearMonth(2023, time.October)))
	assert.Equal(t, "May", English.MonthName(time.May))
	assert.Equal(t, "geen", Dutch.JoinPeriods(nil))
	assert.Equal(t, "Juni, Juli", Dutch.JoinPeriods([]domain.Period{
		domain.MonthOfYear(time.June), domain.MonthOfYear(time.July),
	}))
}

func TestLocale_FormatDecimal(t *testing.T) {
	tests := []struct {
		locale   Locale
		value    float64
		decimals int
		want     string
	}{
		{Dutch, 1234.5, 2, "1.234,50"},
		{English, 1234.5, 2, "1,234.50"},
		{Dutch, 1234567, 0, "1.234.567"},
		{Dutch, 123456, 1, "123.456,0"},
		{Dutch, -0.6, 2, "-0,60"},
		{Dutch, -0.001, 2, "0,00"},
		{English, 0.125, 2, "0.13"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.locale.FormatDecimal(tt.value, tt.decimals))
	}
}
