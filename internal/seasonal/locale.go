package seasonal

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/westtrac/parts-insights/internal/domain"
)

// Locale holds the month names and phrases used in stocking advice.
type Locale struct {
	Code               string
	MonthNames         [12]string
	IncreasePrefix     string
	DecreasePrefix     string
	// NoDataMessage is level-neutral. NoDataByLevel overrides it per level.
	NoDataMessage      string
	NoDataByLevel      map[domain.Level]string
	NoneLabel          string
	PeakLabel          string
	TroughLabel        string
	DecimalSeparator   byte
	ThousandsSeparator byte
}

var Dutch = Locale{
	Code: "nl",
	MonthNames: [12]string{
		"Januari", "Februari", "Maart", "April", "Mei", "Juni",
		"Juli", "Augustus", "September", "Oktober", "November", "December",
	},
	IncreasePrefix:     "Verhoog voorraad voor maanden: ",
	DecreasePrefix:     "Verlaag voorraad voor maanden: ",
	NoDataMessage:      "Geen seizoensdata beschikbaar",
	NoDataByLevel: map[domain.Level]string{
		domain.LevelPart:     "Geen seizoensdata beschikbaar voor dit onderdeel",
		domain.LevelCategory: "Geen seizoensdata beschikbaar voor deze categorie",
	},
	NoneLabel:          "geen",
	PeakLabel:          "Piek",
	TroughLabel:        "Dal",
	DecimalSeparator:   ',',
	ThousandsSeparator: '.',
}

var English = Locale{
	Code: "en",
	MonthNames: [12]string{
		"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December",
	},
	IncreasePrefix:     "Increase stock for months: ",
	DecreasePrefix:     "Decrease stock for months: ",
	NoDataMessage:      "No seasonal data available",
	NoDataByLevel: map[domain.Level]string{
		domain.LevelPart:     "No seasonal data available for this part",
		domain.LevelCategory: "No seasonal data available for this category",
	},
	NoneLabel:          "none",
	PeakLabel:          "Peak",
	TroughLabel:        "Trough",
	DecimalSeparator:   '.',
	ThousandsSeparator: ',',
}

var locales = map[string]Locale{
	Dutch.Code:   Dutch,
	English.Code: English,
}

// LocaleFor returns the built-in locale for a code. Unknown codes fall back to Dutch.
func LocaleFor(code string) (Locale, bool) {
	l, ok := locales[strings.ToLower(strings.TrimSpace(code))]
	if !ok {
		return Dutch, false
	}
	return l, true
}

// NoData returns the message for a level without a pattern.
func (l Locale) NoData(level domain.Level) string {
	if msg, ok := l.NoDataByLevel[level]; ok {
		return msg
	}
	return l.NoDataMessage
}

func (l Locale) MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return strconv.Itoa(int(m))
	}
	return l.MonthNames[m-1]
}

// PeriodName renders "Maart" for month-of-year periods and "Maart 2024" for year-months.
func (l Locale) PeriodName(p domain.Period) string {
	if p.IsMonthOfYear() {
		return l.MonthName(p.Month)
	}
	return fmt.Sprintf("%s %d", l.MonthName(p.Month), p.Year)
}

func (l Locale) JoinPeriods(periods []domain.Period) string {
	if len(periods) == 0 {
		return l.NoneLabel
	}
	names := make([]string, len(periods))
	for i, p := range periods {
		names[i] = l.PeriodName(p)
	}
	return strings.Join(names, ", ")
}

// FormatDecimal formats v with the locale's separators, always printing the
// requested number of decimals. 1234.5 with 2 decimals in nl is "1.234,50".
func (l Locale) FormatDecimal(v float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}

	factor := math.Pow(10, float64(decimals))
	scaled := int64(math.Round(math.Abs(v) * factor))
	intPart := scaled / int64(factor)
	fracPart := scaled % int64(factor)

	s := strconv.FormatInt(intPart, 10)
	if len(s) > 3 {
		var buf []byte
		lead := len(s) % 3
		if lead > 0 {
			buf = append(buf, s[:lead]...)
		}
		for i := lead; i < len(s); i += 3 {
			if len(buf) > 0 {
				buf = append(buf, l.ThousandsSeparator)
			}
			buf = append(buf, s[i:i+3]...)
		}
		s = string(buf)
	}

	if v < 0 && scaled != 0 {
		s = "-" + s
	}
	if decimals == 0 {
		return s
	}

	frac := strconv.FormatInt(fracPart, 10)
	for len(frac) < decimals {
		frac = "0" + frac
	}
	return s + string(l.DecimalSeparator) + frac
}
