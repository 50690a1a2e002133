package domain

import "time"

// UsageRecord is one parts usage line: a quantity of a part consumed on an
// order of the given category on a given date.
type UsageRecord struct {
	PartNumber string    `json:"part_number" db:"part_number"`
	Category   string    `json:"category" db:"category"`
	Date       time.Time `json:"date" db:"usage_date"`
	Quantity   float64   `json:"quantity" db:"quantity"`
}

// RawUsageRow is an unparsed usage line as it arrives from CSV files or query strings.
type RawUsageRow struct {
	PartNumber string
	Category   string
	Date       string
	Quantity   string
}

// UsageFilter narrows the usage rows loaded for an analysis.
type UsageFilter struct {
	From                *time.Time `json:"from,omitempty"`
	To                  *time.Time `json:"to,omitempty"`
	Clients             []string   `json:"clients,omitempty"`
	Categories          []string   `json:"categories,omitempty"`
	PartNumbers         []string   `json:"part_numbers,omitempty"`
	ExcludeZeroInvoices bool       `json:"exclude_zero_invoices,omitempty"`
}

// UsageFilterOptions lists the values the usage filters can take.
type UsageFilterOptions struct {
	Years      []int    `json:"years"`
	Clients    []string `json:"clients"`
	Categories []string `json:"categories"`
}
