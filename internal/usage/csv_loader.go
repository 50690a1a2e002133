// Package usage loads parts usage rows from CSV exports.
package usage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/westtrac/parts-insights/internal/domain"
	"github.com/westtrac/parts-insights/internal/seasonal"
)

// Column aliases, English first then the Dutch names used by the dashboard exports.
var (
	partColumns     = []string{"part_number", "part", "onderdeel_id", "onderdeel"}
	categoryColumns = []string{"category", "categorie"}
	dateColumns     = []string{"date", "usage_date", "datum"}
	quantityColumns = []string{"quantity", "qty", "amount", "aantal"}
)

// Loader reads usage records from CSV.
type Loader struct {
	comma rune
}

func NewLoader() *Loader {
	return &Loader{comma: ','}
}

// WithComma returns a loader using a different field separator, e.g. ';'.
func (l *Loader) WithComma(comma rune) *Loader {
	return &Loader{comma: comma}
}

func (l *Loader) LoadFile(path string) ([]domain.UsageRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open usage file %s: %w", path, err)
	}
	defer file.Close()

	return l.Load(file)
}

// Load parses a usage CSV with a header row. Part, date and quantity columns
// are required; category is optional. Row numbers in errors are 1-based and
// count the header.
func (l *Loader) Load(r io.Reader) ([]domain.UsageRecord, error) {
	reader := csv.NewReader(r)
	reader.Comma = l.comma
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: usage CSV is empty", domain.ErrInvalidInput)
		}
		return nil, fmt.Errorf("failed to read usage CSV header: %w", err)
	}

	idxPart := columnIndex(header, partColumns)
	idxCategory := columnIndex(header, categoryColumns)
	idxDate := columnIndex(header, dateColumns)
	idxQuantity := columnIndex(header, quantityColumns)

	var missing []string
	if idxPart < 0 {
		missing = append(missing, partColumns[0])
	}
	if idxDate < 0 {
		missing = append(missing, dateColumns[0])
	}
	if idxQuantity < 0 {
		missing = append(missing, quantityColumns[0])
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: usage CSV header %v is missing columns %v", domain.ErrInvalidInput, header, missing)
	}

	var records []domain.UsageRecord
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("usage CSV row %d: %w", line, err)
		}
		if isBlank(row) {
			continue
		}

		get := func(idx int) string {
			if idx < 0 || idx >= len(row) {
				return ""
			}
			return row[idx]
		}

		record, err := seasonal.ParseUsageRow(domain.RawUsageRow{
			PartNumber: get(idxPart),
			Category:   get(idxCategory),
			Date:       get(idxDate),
			Quantity:   get(idxQuantity),
		})
		if err != nil {
			return nil, fmt.Errorf("usage CSV row %d: %w", line, err)
		}
		records = append(records, record)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: usage CSV has no data rows", domain.ErrInvalidInput)
	}
	return records, nil
}

func columnIndex(header []string, names []string) int {
	targets := make(map[string]struct{}, len(names))
	for _, name := range names {
		targets[normalizeColumnName(name)] = struct{}{}
	}
	for i, h := range header {
		if _, ok := targets[normalizeColumnName(h)]; ok {
			return i
		}
	}
	return -1
}

func normalizeColumnName(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer(" ", "_", "-", "_", ".", "").Replace(name)
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
