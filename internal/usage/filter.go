package usage

import (
	"fmt"
	"strings"

	"github.com/westtrac/parts-insights/internal/domain"
)

// ErrUnsupportedFilter is returned for filters a CSV export carries no column for.
var ErrUnsupportedFilter = fmt.Errorf("%w: filter not supported for CSV usage", domain.ErrInvalidInput)

// FilterRecords applies the date, category and part filters to records loaded
// from CSV with the same semantics as the database query: From is inclusive,
// To exclusive, list filters match exactly. Client and zero-invoice filters
// need order data and are rejected.
func FilterRecords(records []domain.UsageRecord, filter domain.UsageFilter) ([]domain.UsageRecord, error) {
	if len(filter.Clients) > 0 {
		return nil, fmt.Errorf("%w: clients", ErrUnsupportedFilter)
	}
	if filter.ExcludeZeroInvoices {
		return nil, fmt.Errorf("%w: exclude zero invoices", ErrUnsupportedFilter)
	}

	categories := toSet(filter.Categories)
	parts := toSet(filter.PartNumbers)

	out := make([]domain.UsageRecord, 0, len(records))
	for _, r := range records {
		if filter.From != nil && r.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !r.Date.Before(*filter.To) {
			continue
		}
		if categories != nil && !categories[strings.TrimSpace(r.Category)] {
			continue
		}
		if parts != nil && !parts[strings.TrimSpace(r.PartNumber)] {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[strings.TrimSpace(v)] = true
	}
	return set
}
