package seasonal

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/westtrac/parts-insights/internal/domain"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02-01-2006",
}

// ParseDate accepts ISO dates, datetimes and day-first dd-mm-yyyy dates.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: missing date", domain.ErrInvalidInput)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparsable date %q", domain.ErrInvalidInput, s)
}

// ParseQuantity accepts both "1.5" and "1,5".
func ParseQuantity(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: missing quantity", domain.ErrInvalidInput)
	}
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	q, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: unparsable quantity %q", domain.ErrInvalidInput, s)
	}
	return q, nil
}

// ParseUsageRow turns a raw row into a validated usage record.
func ParseUsageRow(raw domain.RawUsageRow) (domain.UsageRecord, error) {
	record := domain.UsageRecord{
		PartNumber: strings.TrimSpace(raw.PartNumber),
		Category:   strings.TrimSpace(raw.Category),
	}

	date, err := ParseDate(raw.Date)
	if err != nil {
		return domain.UsageRecord{}, err
	}
	record.Date = date

	quantity, err := ParseQuantity(raw.Quantity)
	if err != nil {
		return domain.UsageRecord{}, err
	}
	record.Quantity = quantity

	if problem := recordProblem(record); problem != "" {
		return domain.UsageRecord{}, fmt.Errorf("%w: %s", domain.ErrInvalidInput, problem)
	}
	return record, nil
}

// ParseUsageRows parses rows in order and reports the 1-based row number of the first bad row.
func ParseUsageRows(rows []domain.RawUsageRow) ([]domain.UsageRecord, error) {
	records := make([]domain.UsageRecord, 0, len(rows))
	for i, raw := range rows {
		record, err := ParseUsageRow(raw)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		records = append(records, record)
	}
	return records, nil
}
